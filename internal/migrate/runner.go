package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mallardhq/mallard/pkg/adapter"
	"github.com/mallardhq/mallard/pkg/ddl"
)

// VersionTable tracks applied migrations inside the target database.
const VersionTable = "mallard_schema_migrations"

const (
	directionUp   = "up"
	directionDown = "down"
)

// RunRecorder receives a record of every migration execution. The internal
// state store implements this; a nil recorder disables recording.
type RunRecorder interface {
	RecordMigration(ctx context.Context, version int64, name, direction string, duration time.Duration, runErr error) error
}

// Runner applies and reverts migrations from a directory against one adapter.
type Runner struct {
	adp      adapter.Adapter
	dir      string
	logger   *slog.Logger
	recorder RunRecorder
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the runner's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// WithRecorder sets the migration run recorder.
func WithRecorder(rec RunRecorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// NewRunner creates a migration runner for the given adapter and directory.
func NewRunner(adp adapter.Adapter, dir string, opts ...Option) *Runner {
	r := &Runner{adp: adp, dir: dir, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Status describes one migration's position relative to the database.
type Status struct {
	Version   int64
	Label     string
	Format    Format
	Applied   bool
	AppliedAt string
	// Missing marks versions recorded in the database whose file is gone.
	Missing bool
}

// ensureVersionTable creates the tracking table when absent.
func (r *Runner) ensureVersionTable(ctx context.Context) error {
	builder := ddl.NewBuilder(r.adp.Dialect())
	stmt, err := builder.CreateTable("", VersionTable, []ddl.ColumnDef{
		{Name: "version", Type: "BIGINT", NotNull: true, PrimaryKey: true},
		{Name: "name", Type: "VARCHAR", NotNull: true},
		{Name: "applied_at", Type: "TIMESTAMP", NotNull: true},
	}, ddl.CreateTableOptions{IfNotExists: true})
	if err != nil {
		return err
	}
	if _, err := r.adp.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create %s: %w", VersionTable, err)
	}
	return nil
}

// applied returns the versions recorded in the tracking table with their
// applied timestamps, in ascending version order.
func (r *Runner) applied(ctx context.Context) (map[int64]string, []int64, error) {
	exists, err := r.adp.TableExists(ctx, VersionTable)
	if err != nil {
		return nil, nil, err
	}
	if !exists {
		return map[int64]string{}, nil, nil
	}

	d := r.adp.Dialect()
	rows, err := r.adp.Query(ctx,
		"SELECT version, applied_at FROM "+d.QuoteIdent(VersionTable)+" ORDER BY version")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", VersionTable, err)
	}
	defer func() { _ = rows.Close() }()

	appliedAt := make(map[int64]string)
	var versions []int64
	for rows.Next() {
		var (
			version int64
			at      any
		)
		if err := rows.Scan(&version, &at); err != nil {
			return nil, nil, fmt.Errorf("failed to scan version row: %w", err)
		}
		appliedAt[version] = formatTimestamp(at)
		versions = append(versions, version)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating versions: %w", err)
	}
	return appliedAt, versions, nil
}

// Up applies every pending migration in version order.
func (r *Runner) Up(ctx context.Context) (int, error) {
	return r.UpTo(ctx, 0)
}

// UpTo applies pending migrations with version <= target. A target of 0
// means no limit. Returns the number of migrations applied.
func (r *Runner) UpTo(ctx context.Context, target int64) (int, error) {
	migrations, err := LoadDir(r.dir)
	if err != nil {
		return 0, err
	}
	if err := r.ensureVersionTable(ctx); err != nil {
		return 0, err
	}
	appliedAt, _, err := r.applied(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, m := range migrations {
		if _, done := appliedAt[m.Version]; done {
			continue
		}
		if target > 0 && m.Version > target {
			break
		}
		if err := r.run(ctx, m, directionUp); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// Down reverts the most recently applied migration.
func (r *Runner) Down(ctx context.Context) error {
	migrations, err := LoadDir(r.dir)
	if err != nil {
		return err
	}
	_, versions, err := r.applied(ctx)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		return fmt.Errorf("no migrations applied")
	}

	latest := versions[len(versions)-1]
	m, ok := findVersion(migrations, latest)
	if !ok {
		return fmt.Errorf("migration file for version %d not found", latest)
	}
	return r.run(ctx, m, directionDown)
}

// DownTo reverts applied migrations with version > target, newest first.
// Returns the number of migrations reverted.
func (r *Runner) DownTo(ctx context.Context, target int64) (int, error) {
	migrations, err := LoadDir(r.dir)
	if err != nil {
		return 0, err
	}
	_, versions, err := r.applied(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for i := len(versions) - 1; i >= 0; i-- {
		version := versions[i]
		if version <= target {
			break
		}
		m, ok := findVersion(migrations, version)
		if !ok {
			return count, fmt.Errorf("migration file for version %d not found", version)
		}
		if err := r.run(ctx, m, directionDown); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// Redo reverts and reapplies the most recently applied migration.
func (r *Runner) Redo(ctx context.Context) error {
	_, versions, err := r.applied(ctx)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		return fmt.Errorf("no migrations applied")
	}
	latest := versions[len(versions)-1]

	if err := r.Down(ctx); err != nil {
		return err
	}
	_, err = r.UpTo(ctx, latest)
	return err
}

// Version returns the highest applied version, or 0 when none are applied.
func (r *Runner) Version(ctx context.Context) (int64, error) {
	_, versions, err := r.applied(ctx)
	if err != nil {
		return 0, err
	}
	if len(versions) == 0 {
		return 0, nil
	}
	return versions[len(versions)-1], nil
}

// Status returns every known migration with its applied state, including
// versions recorded in the database whose files have been deleted.
func (r *Runner) Status(ctx context.Context) ([]Status, error) {
	migrations, err := LoadDir(r.dir)
	if err != nil {
		return nil, err
	}
	appliedAt, versions, err := r.applied(ctx)
	if err != nil {
		return nil, err
	}

	var statuses []Status
	for _, m := range migrations {
		at, done := appliedAt[m.Version]
		statuses = append(statuses, Status{
			Version:   m.Version,
			Label:     m.Label,
			Format:    m.Format,
			Applied:   done,
			AppliedAt: at,
		})
	}
	for _, version := range versions {
		if _, ok := findVersion(migrations, version); ok {
			continue
		}
		statuses = append(statuses, Status{
			Version:   version,
			Applied:   true,
			AppliedAt: appliedAt[version],
			Missing:   true,
		})
	}
	return statuses, nil
}

// Create writes a new migration file in the runner's directory.
func (r *Runner) Create(label string, format Format) (string, error) {
	return Create(r.dir, label, format)
}

// run executes one migration in one direction, tracks the version change,
// and reports the run to the recorder.
func (r *Runner) run(ctx context.Context, m Migration, direction string) error {
	start := time.Now()
	err := r.runInner(ctx, m, direction)
	duration := time.Since(start)

	if r.recorder != nil {
		if recErr := r.recorder.RecordMigration(ctx, m.Version, m.Label, direction, duration, err); recErr != nil {
			r.logger.Warn("failed to record migration run", slog.Any("error", recErr))
		}
	}

	if err != nil {
		return fmt.Errorf("migration %s %s failed: %w", m.Filename(), direction, err)
	}
	r.logger.Info("migration complete",
		slog.String("migration", m.Filename()),
		slog.String("direction", direction),
		slog.Duration("duration", duration))
	return nil
}

func (r *Runner) runInner(ctx context.Context, m Migration, direction string) error {
	d := r.adp.Dialect()

	if d.SupportsTransactionalDDL {
		tx, err := r.adp.Begin(ctx)
		if err != nil {
			return err
		}
		exec := func(stmt string) error {
			_, execErr := tx.ExecContext(ctx, stmt)
			return execErr
		}
		if err := r.execute(m, direction, exec); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit: %w", err)
		}
		return nil
	}

	exec := func(stmt string) error {
		_, execErr := r.adp.Exec(ctx, stmt)
		return execErr
	}
	return r.execute(m, direction, exec)
}

// execute runs the migration body and the version bookkeeping through the
// same statement executor.
func (r *Runner) execute(m Migration, direction string, exec func(string) error) error {
	switch m.Format {
	case FormatSQL:
		content, err := os.ReadFile(m.Path) //nolint:gosec // path comes from the migrations directory listing
		if err != nil {
			return fmt.Errorf("failed to read migration file: %w", err)
		}
		up, down, err := parseSQLSections(string(content))
		if err != nil {
			return err
		}
		stmts := up
		if direction == directionDown {
			if len(down) == 0 {
				return fmt.Errorf("migration has no down section")
			}
			stmts = down
		}
		for _, stmt := range stmts {
			if err := exec(stmt); err != nil {
				return err
			}
		}
	case FormatStarlark:
		star, err := loadStarMigration(m.Path)
		if err != nil {
			return err
		}
		db := newDBModule(r.adp.Dialect(), exec)
		if err := star.call(direction, db); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown migration format %q", m.Format)
	}

	return r.trackVersion(m, direction, exec)
}

// trackVersion records or removes the version row via the migration's own
// executor so it commits or rolls back with the migration body.
func (r *Runner) trackVersion(m Migration, direction string, exec func(string) error) error {
	d := r.adp.Dialect()
	table := d.QuoteIdent(VersionTable)

	var stmt string
	if direction == directionUp {
		stmt = fmt.Sprintf(
			"INSERT INTO %s (version, name, applied_at) VALUES (%d, %s, CURRENT_TIMESTAMP)",
			table, m.Version, d.QuoteLiteral(m.Label))
	} else {
		stmt = fmt.Sprintf("DELETE FROM %s WHERE version = %d", table, m.Version)
	}
	if err := exec(stmt); err != nil {
		return fmt.Errorf("failed to track version %d: %w", m.Version, err)
	}
	return nil
}

func findVersion(migrations []Migration, version int64) (Migration, bool) {
	for _, m := range migrations {
		if m.Version == version {
			return m, true
		}
	}
	return Migration{}, false
}

// formatTimestamp renders a scanned applied_at value, whose Go type varies
// by driver.
func formatTimestamp(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case string:
		return t
	case []byte:
		return string(t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
