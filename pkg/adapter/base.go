package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mallardhq/mallard/pkg/core"
	"github.com/mallardhq/mallard/pkg/dialect"
)

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Close, Ping, Exec, Query, QueryRow, and Begin implementations.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    *core.TargetConfig
	Logger *slog.Logger
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection")
		}
		return b.DB.Close()
	}
	return nil
}

// Ping verifies the database connection is alive.
func (b *BaseSQLAdapter) Ping(ctx context.Context) error {
	if b.DB == nil {
		return &NotConnectedError{}
	}
	return b.DB.PingContext(ctx)
}

// Exec executes a SQL statement that doesn't return rows.
func (b *BaseSQLAdapter) Exec(ctx context.Context, sqlStr string, args ...any) (sql.Result, error) {
	if b.DB == nil {
		return nil, &NotConnectedError{}
	}
	if b.Logger != nil {
		b.Logger.Debug("exec", slog.String("sql", sqlStr))
	}
	res, err := b.DB.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute SQL: %w", err)
	}
	return res, nil
}

// Query executes a SQL statement that returns rows.
func (b *BaseSQLAdapter) Query(ctx context.Context, sqlStr string, args ...any) (*core.Rows, error) {
	if b.DB == nil {
		return nil, &NotConnectedError{}
	}
	if b.Logger != nil {
		b.Logger.Debug("query", slog.String("sql", sqlStr))
	}
	//nolint:rowserrcheck // rows.Err() must be checked by caller after iteration completes
	rows, err := b.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return &core.Rows{Rows: rows}, nil
}

// QueryRow executes a SQL statement expected to return at most one row.
// Returns nil when the connection is not established.
func (b *BaseSQLAdapter) QueryRow(ctx context.Context, sqlStr string, args ...any) *sql.Row {
	if b.DB == nil {
		return nil
	}
	return b.DB.QueryRowContext(ctx, sqlStr, args...)
}

// Begin starts a transaction.
func (b *BaseSQLAdapter) Begin(ctx context.Context) (*sql.Tx, error) {
	if b.DB == nil {
		return nil, &NotConnectedError{}
	}
	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// InsertReturningCommon provides a shared implementation of InsertReturning.
// With RETURNING support it appends the clause and scans the generated value;
// otherwise it falls back to the driver's LastInsertId.
func (b *BaseSQLAdapter) InsertReturningCommon(ctx context.Context, d *dialect.Dialect, sqlStr, pkColumn string, args ...any) (any, error) {
	if b.DB == nil {
		return nil, &NotConnectedError{}
	}

	if d.SupportsReturning {
		stmt := sqlStr + " RETURNING " + d.QuoteIdent(pkColumn)
		if b.Logger != nil {
			b.Logger.Debug("insert returning", slog.String("sql", stmt))
		}
		var id any
		if err := b.DB.QueryRowContext(ctx, stmt, args...).Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to insert returning %s: %w", pkColumn, err)
		}
		return id, nil
	}

	res, err := b.DB.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("driver does not report generated keys: %w", err)
	}
	return id, nil
}

// ParseQualifiedName splits a table reference into schema and name.
// Uses the dialect's default schema if not specified.
func ParseQualifiedName(table string, d *dialect.Dialect) (schema, name string) {
	if parts := strings.Split(table, "."); len(parts) == 2 {
		return parts[0], parts[1]
	}
	return d.DefaultSchema, table
}

// TableMetadataCommon provides a shared implementation of TableMetadata,
// composing the adapter's introspection methods with a row count query.
// Concrete adapters call this to avoid duplicating the assembly.
func TableMetadataCommon(ctx context.Context, a Adapter, table string) (*core.TableMetadata, error) {
	d := a.Dialect()
	schema, name := ParseQualifiedName(table, d)

	columns, err := a.Columns(ctx, table)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, &TableNotFoundError{Table: table}
	}

	indexes, err := a.Indexes(ctx, table)
	if err != nil {
		return nil, err
	}

	pk, err := a.PrimaryKeys(ctx, table)
	if err != nil {
		return nil, err
	}

	meta := &core.TableMetadata{
		Schema:     schema,
		Name:       name,
		Columns:    columns,
		Indexes:    indexes,
		PrimaryKey: pk,
	}

	countQuery := "SELECT COUNT(*) FROM " + d.QuoteQualified(schema, name)
	if row := a.QueryRow(ctx, countQuery); row != nil {
		if err := row.Scan(&meta.RowCount); err != nil {
			// Non-fatal, leave the count at 0.
			meta.RowCount = 0
		}
	}

	return meta, nil
}
