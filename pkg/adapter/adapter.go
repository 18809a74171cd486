// Package adapter defines the contract every database backend implements,
// the registry backends self-register into, and a shared database/sql base
// that concrete adapters embed.
//
// Concrete implementations live in pkg/adapters/ subdirectories and register
// themselves via init(). Import them with a blank identifier:
//
//	import _ "github.com/mallardhq/mallard/pkg/adapters/duckdb"
package adapter

import (
	"context"
	"database/sql"

	"github.com/mallardhq/mallard/pkg/core"
	"github.com/mallardhq/mallard/pkg/dialect"
)

// Adapter is the interface all database adapters implement. It covers
// connection lifecycle, SQL execution, schema introspection, and
// database-level management.
//
// Table arguments accept either a bare name or a schema-qualified
// "schema.table"; bare names resolve against the dialect's default schema.
type Adapter interface {
	// Connect establishes a connection using the provided target config.
	Connect(ctx context.Context, cfg *core.TargetConfig) error

	// Close closes the connection and releases resources.
	Close() error

	// Ping verifies the connection is alive.
	Ping(ctx context.Context) error

	// Exec executes a statement that doesn't return rows.
	Exec(ctx context.Context, sqlStr string, args ...any) (sql.Result, error)

	// Query executes a statement that returns rows.
	Query(ctx context.Context, sqlStr string, args ...any) (*core.Rows, error)

	// QueryRow executes a statement expected to return at most one row.
	// Returns nil before Connect.
	QueryRow(ctx context.Context, sqlStr string, args ...any) *sql.Row

	// Begin starts a transaction.
	Begin(ctx context.Context) (*sql.Tx, error)

	// InsertReturning executes an INSERT and returns the generated value of
	// pkColumn, via a RETURNING clause when the dialect supports one.
	InsertReturning(ctx context.Context, sqlStr, pkColumn string, args ...any) (any, error)

	// Tables lists base tables, excluding engine-internal schemas.
	Tables(ctx context.Context) ([]core.Table, error)

	// Views lists views, excluding engine-internal schemas.
	Views(ctx context.Context) ([]core.Table, error)

	// Columns returns the column definitions of a table in ordinal order.
	Columns(ctx context.Context, table string) ([]core.Column, error)

	// Indexes returns the secondary indexes defined on a table.
	Indexes(ctx context.Context, table string) ([]core.Index, error)

	// PrimaryKeys returns the primary key column names of a table.
	PrimaryKeys(ctx context.Context, table string) ([]string, error)

	// TableExists reports whether the table is present.
	TableExists(ctx context.Context, table string) (bool, error)

	// TableMetadata collects columns, indexes, primary key, and row count.
	TableMetadata(ctx context.Context, table string) (*core.TableMetadata, error)

	// CreateDatabase creates the database the config points at. File-backed
	// engines create the file; server engines issue CREATE DATABASE over a
	// maintenance connection. Does not require a prior Connect.
	CreateDatabase(ctx context.Context, cfg *core.TargetConfig) error

	// DropDatabase removes the database the config points at, including any
	// engine sidecar files (WAL, shared memory).
	DropDatabase(ctx context.Context, cfg *core.TargetConfig) error

	// DatabaseExists reports whether the database is present: a file stat
	// for file-backed engines, a catalog query for server engines.
	DatabaseExists(ctx context.Context, cfg *core.TargetConfig) (bool, error)

	// LoadCSV loads a CSV file into a table, creating the table with an
	// inferred schema when it does not exist.
	LoadCSV(ctx context.Context, table, path string) error

	// Dialect returns the SQL dialect configuration for this adapter:
	// quoting rules, placeholder style, reserved words, and the type map.
	Dialect() *dialect.Dialect
}
