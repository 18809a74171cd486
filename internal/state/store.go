// Package state provides the local toolkit state store: a SQLite database
// that records query history and migration runs across invocations. The
// store lives under the project's .mallard directory and is independent of
// any target database.
package state

import (
	"context"
	"time"
)

// QueryRecord is one executed query in the history log.
type QueryRecord struct {
	ID         string
	Target     string
	Query      string
	Rows       int64
	Duration   time.Duration
	Error      string
	ExecutedAt time.Time
}

// Failed reports whether the query ended in an error.
func (r QueryRecord) Failed() bool { return r.Error != "" }

// MigrationRecord is one migration execution in the audit trail.
type MigrationRecord struct {
	ID        string
	Target    string
	Version   int64
	Name      string
	Direction string
	Duration  time.Duration
	Error     string
	AppliedAt time.Time
}

// Failed reports whether the migration ended in an error.
func (r MigrationRecord) Failed() bool { return r.Error != "" }

// Store is the toolkit state store contract.
type Store interface {
	// Open opens the store at path, creating parent directories and the
	// database file as needed. Use ":memory:" for an ephemeral store.
	Open(path string) error

	// Close closes the store.
	Close() error

	// Migrate brings the store schema up to date.
	Migrate() error

	// RecordQuery appends one query execution to the history log.
	RecordQuery(ctx context.Context, target, query string, rows int64, duration time.Duration, runErr error) error

	// ListQueryHistory returns the most recent query records, newest first.
	ListQueryHistory(ctx context.Context, limit int) ([]QueryRecord, error)

	// RecordMigration appends one migration execution to the audit trail.
	RecordMigration(ctx context.Context, target string, version int64, name, direction string, duration time.Duration, runErr error) error

	// ListMigrationRuns returns recent migration records, newest first,
	// optionally filtered by target.
	ListMigrationRuns(ctx context.Context, target string, limit int) ([]MigrationRecord, error)

	// Prune deletes records older than the cutoff from both logs and
	// returns the number removed.
	Prune(ctx context.Context, before time.Time) (int64, error)
}
