package state

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // sqlite driver
)

// defaultListLimit caps list results when the caller passes no limit.
const defaultListLimit = 50

// SQLiteStore implements Store on a local SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore creates an unopened store.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger}
}

// buildDSN renders the modernc.org/sqlite DSN with foreign keys and a busy
// timeout; file-backed stores also get WAL journaling.
func buildDSN(path string) string {
	if path == ":memory:" {
		return "file::memory:?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// Open opens the store at path, creating parent directories on first use.
func (s *SQLiteStore) Open(path string) error {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create state directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", buildDSN(path))
	if err != nil {
		return fmt.Errorf("failed to open state store: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping state store: %w", err)
	}

	s.db = db
	s.path = path
	s.logger.Debug("state store opened", slog.String("path", path))
	return nil
}

// Close closes the store.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Path returns the path the store was opened with.
func (s *SQLiteStore) Path() string { return s.path }

// generateID creates a new record id.
func generateID() string {
	return uuid.New().String()
}

// errorText renders an error for a nullable TEXT column.
func errorText(err error) any {
	if err == nil {
		return nil
	}
	return err.Error()
}

// RecordQuery appends one query execution to the history log.
func (s *SQLiteStore) RecordQuery(ctx context.Context, target, query string, rows int64, duration time.Duration, runErr error) error {
	if s.db == nil {
		return fmt.Errorf("state store not opened")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO query_history (id, target, query, rows, duration_ms, error, executed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		generateID(), target, query, rows, duration.Milliseconds(), errorText(runErr), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record query: %w", err)
	}
	return nil
}

// ListQueryHistory returns the most recent query records, newest first.
func (s *SQLiteStore) ListQueryHistory(ctx context.Context, limit int) ([]QueryRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("state store not opened")
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, target, query, rows, duration_ms, error, executed_at
		 FROM query_history ORDER BY executed_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []QueryRecord
	for rows.Next() {
		var (
			rec        QueryRecord
			durationMS int64
			errMsg     sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.Target, &rec.Query, &rec.Rows, &durationMS, &errMsg, &rec.ExecutedAt); err != nil {
			return nil, fmt.Errorf("failed to scan query record: %w", err)
		}
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		rec.Error = errMsg.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating query history: %w", err)
	}
	return records, nil
}

// RecordMigration appends one migration execution to the audit trail.
func (s *SQLiteStore) RecordMigration(ctx context.Context, target string, version int64, name, direction string, duration time.Duration, runErr error) error {
	if s.db == nil {
		return fmt.Errorf("state store not opened")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO migration_runs (id, target, version, name, direction, duration_ms, error, applied_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		generateID(), target, version, name, direction, duration.Milliseconds(), errorText(runErr), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record migration run: %w", err)
	}
	return nil
}

// ListMigrationRuns returns recent migration records, newest first. An empty
// target lists every target.
func (s *SQLiteStore) ListMigrationRuns(ctx context.Context, target string, limit int) ([]MigrationRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("state store not opened")
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `SELECT id, target, version, name, direction, duration_ms, error, applied_at
		 FROM migration_runs`
	args := []any{}
	if target != "" {
		query += " WHERE target = ?"
		args = append(args, target)
	}
	query += " ORDER BY applied_at DESC, id LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list migration runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []MigrationRecord
	for rows.Next() {
		var (
			rec        MigrationRecord
			durationMS int64
			errMsg     sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.Target, &rec.Version, &rec.Name, &rec.Direction, &durationMS, &errMsg, &rec.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration record: %w", err)
		}
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		rec.Error = errMsg.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating migration runs: %w", err)
	}
	return records, nil
}

// Prune deletes records older than the cutoff from both logs.
func (s *SQLiteStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	if s.db == nil {
		return 0, fmt.Errorf("state store not opened")
	}

	var total int64
	for _, stmt := range []string{
		"DELETE FROM query_history WHERE executed_at < ?",
		"DELETE FROM migration_runs WHERE applied_at < ?",
	} {
		res, err := s.db.ExecContext(ctx, stmt, before.UTC())
		if err != nil {
			return total, fmt.Errorf("failed to prune state store: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("failed to count pruned rows: %w", err)
		}
		total += n
	}

	s.logger.Debug("state store pruned",
		slog.Int64("removed", total),
		slog.Time("before", before))
	return total, nil
}

var _ Store = (*SQLiteStore)(nil)
