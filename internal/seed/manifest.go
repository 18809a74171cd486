package seed

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const manifestName = "seeds.yml"

// manifest is the optional seeds.yml sidecar next to the fixture files.
type manifest struct {
	// Truncate clears every table before loading.
	Truncate bool `yaml:"truncate"`
	// Tables holds per-table fixture settings keyed by table name.
	Tables map[string]tableSpec `yaml:"tables"`
}

// tableSpec overrides the inferred schema for one fixture table.
type tableSpec struct {
	// Columns maps column names to portable type ids or native type names.
	Columns map[string]string `yaml:"columns"`
}

// loadManifest reads seeds.yml from dir; a missing file yields an empty
// manifest.
func loadManifest(dir string) (*manifest, error) {
	content, err := os.ReadFile(filepath.Join(dir, manifestName)) //nolint:gosec // path comes from the configured seeds directory
	if errors.Is(err, os.ErrNotExist) {
		return &manifest{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", manifestName, err)
	}

	var m manifest
	if err := yaml.Unmarshal(content, &m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", manifestName, err)
	}
	return &m, nil
}
