// Package migrate runs versioned schema migrations against any registered
// adapter. Migrations live in a directory as NNNN_label.sql or
// NNNN_label.star files; applied versions are tracked in the
// mallard_schema_migrations table of the target database itself.
package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Format identifies how a migration file expresses its changes.
type Format string

const (
	// FormatSQL is a plain SQL file with up/down section markers.
	FormatSQL Format = "sql"
	// FormatStarlark is a Starlark file defining up(db) and down(db).
	FormatStarlark Format = "star"
)

// Migration is one migration file on disk.
type Migration struct {
	Version int64
	Label   string
	Path    string
	Format  Format
}

// Filename returns the base name of the migration file.
func (m Migration) Filename() string {
	return filepath.Base(m.Path)
}

// filenameRe matches NNNN_label.sql / NNNN_label.star migration names.
var filenameRe = regexp.MustCompile(`^(\d{4,})_([a-zA-Z0-9_]+)\.(sql|star)$`)

// LoadDir reads all migration files from dir, sorted by version. A missing
// directory yields an empty set. Files with a recognized extension but a
// malformed name, and duplicate versions, are errors.
func LoadDir(dir string) ([]Migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrations []Migration
	seen := make(map[int64]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := filepath.Ext(name)
		if ext != ".sql" && ext != ".star" {
			continue
		}

		m := filenameRe.FindStringSubmatch(name)
		if m == nil {
			return nil, fmt.Errorf("invalid migration filename %q: want NNNN_label%s", name, ext)
		}
		version, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid migration version in %q: %w", name, err)
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("duplicate migration version %d: %s and %s", version, prev, name)
		}
		seen[version] = name

		migrations = append(migrations, Migration{
			Version: version,
			Label:   m[2],
			Path:    filepath.Join(dir, name),
			Format:  Format(strings.TrimPrefix(ext, ".")),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

const sqlTemplate = `-- +mallard up

-- +mallard down
`

const starTemplate = `def up(db):
    pass

def down(db):
    pass
`

// Create writes a new empty migration file with the next free version and
// returns its path. The label is normalized to lowercase snake case.
func Create(dir, label string, format Format) (string, error) {
	if format != FormatSQL && format != FormatStarlark {
		return "", fmt.Errorf("unknown migration format %q", format)
	}
	normalized := normalizeLabel(label)
	if normalized == "" {
		return "", fmt.Errorf("migration label is required")
	}

	existing, err := LoadDir(dir)
	if err != nil {
		return "", err
	}
	var next int64 = 1
	if n := len(existing); n > 0 {
		next = existing[n-1].Version + 1
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create migrations directory: %w", err)
	}

	name := fmt.Sprintf("%04d_%s.%s", next, normalized, format)
	path := filepath.Join(dir, name)

	template := sqlTemplate
	if format == FormatStarlark {
		template = starTemplate
	}
	if err := os.WriteFile(path, []byte(template), 0o644); err != nil {
		return "", fmt.Errorf("failed to write migration file: %w", err)
	}
	return path, nil
}

// normalizeLabel lowercases a label and replaces runs of non-alphanumerics
// with single underscores.
func normalizeLabel(label string) string {
	var sb strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(strings.TrimSpace(label)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				sb.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimSuffix(sb.String(), "_")
}
