// Package sqlite provides the SQLite database adapter.
//
// SQLite is file-backed like DuckDB, so database lifecycle operations are
// file operations. The driver is modernc.org/sqlite, a pure-Go port that
// needs no cgo.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // sqlite driver

	"github.com/mallardhq/mallard/pkg/adapter"
	"github.com/mallardhq/mallard/pkg/core"
	"github.com/mallardhq/mallard/pkg/dialect"
	sqlitedialect "github.com/mallardhq/mallard/pkg/dialects/sqlite"
)

// Adapter implements the adapter.Adapter interface for SQLite.
type Adapter struct {
	adapter.BaseSQLAdapter
	dialect *dialect.Dialect
}

// New creates a new SQLite adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
		dialect:        sqlitedialect.SQLite,
	}
}

// Dialect returns the SQLite dialect configuration.
func (a *Adapter) Dialect() *dialect.Dialect {
	return a.dialect
}

// buildDSN renders the modernc.org/sqlite DSN: foreign keys and a busy
// timeout always, WAL journaling for file databases.
func buildDSN(path string) string {
	if path == "" || path == ":memory:" {
		return "file::memory:?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// Connect establishes a connection to SQLite.
// Use ":memory:" or an empty path for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg *core.TargetConfig) error {
	a.Logger.Debug("connecting to sqlite", slog.String("path", cfg.Path))

	db, err := sql.Open("sqlite", buildDSN(cfg.Path))
	if err != nil {
		return fmt.Errorf("failed to open sqlite connection: %w", err)
	}

	if cfg.InMemory() {
		// Each pooled connection would otherwise get its own private
		// memory database.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// InsertReturning executes an INSERT and returns the generated primary key
// value via a RETURNING clause.
func (a *Adapter) InsertReturning(ctx context.Context, sqlStr, pkColumn string, args ...any) (any, error) {
	return a.InsertReturningCommon(ctx, a.dialect, sqlStr, pkColumn, args...)
}

// DatabaseExists reports whether the database file exists on disk.
// In-memory targets always exist.
func (a *Adapter) DatabaseExists(_ context.Context, cfg *core.TargetConfig) (bool, error) {
	if cfg.InMemory() {
		return true, nil
	}
	_, err := os.Stat(cfg.Path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat database file: %w", err)
}

// CreateDatabase creates the database file by connecting to it. Parent
// directories are created as needed. No-op for in-memory targets.
func (a *Adapter) CreateDatabase(ctx context.Context, cfg *core.TargetConfig) error {
	if cfg.InMemory() {
		return nil
	}

	if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", buildDSN(cfg.Path))
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}

	a.Logger.Info("created database", slog.String("path", cfg.Path))
	return nil
}

// DropDatabase removes the database file together with its WAL and shared
// memory sidecars. No-op for in-memory targets; missing files are not an
// error.
func (a *Adapter) DropDatabase(_ context.Context, cfg *core.TargetConfig) error {
	if cfg.InMemory() {
		return nil
	}

	for _, path := range []string{cfg.Path, cfg.Path + "-wal", cfg.Path + "-shm"} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}

	a.Logger.Info("dropped database", slog.String("path", cfg.Path))
	return nil
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
