// Package duckdb provides the DuckDB database adapter.
//
// DuckDB is an embedded analytical engine: the database is a single file
// (or fully in-memory), so database lifecycle operations are file
// operations and there is no server to manage.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver

	"github.com/mallardhq/mallard/pkg/adapter"
	"github.com/mallardhq/mallard/pkg/core"
	"github.com/mallardhq/mallard/pkg/ddl"
	"github.com/mallardhq/mallard/pkg/dialect"
	duckdialect "github.com/mallardhq/mallard/pkg/dialects/duckdb"
)

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
	dialect *dialect.Dialect
	builder *ddl.Builder
}

// New creates a new DuckDB adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
		dialect:        duckdialect.DuckDB,
		builder:        ddl.NewBuilder(duckdialect.DuckDB),
	}
}

// Dialect returns the DuckDB dialect configuration.
func (a *Adapter) Dialect() *dialect.Dialect {
	return a.dialect
}

// Connect establishes a connection to DuckDB and applies any configured
// session params (extensions, secrets, settings) in that order.
// Use ":memory:" or an empty path for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg *core.TargetConfig) error {
	path := cfg.Path
	if path == ":memory:" {
		path = ""
	}

	a.Logger.Debug("connecting to duckdb", slog.String("path", cfg.Path))

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	a.DB = db
	a.Cfg = cfg

	if err := a.applySessionParams(ctx, cfg.Params); err != nil {
		_ = a.Close()
		a.DB = nil
		return err
	}
	return nil
}

// InsertReturning executes an INSERT and returns the generated primary key
// value via a RETURNING clause.
func (a *Adapter) InsertReturning(ctx context.Context, sqlStr, pkColumn string, args ...any) (any, error) {
	return a.InsertReturningCommon(ctx, a.dialect, sqlStr, pkColumn, args...)
}

// CreateTableWithPrimaryKey creates a table whose primary key column
// autoincrements. DuckDB has no serial types, so the column draws its
// default from a dedicated sequence named <table>_<column>_seq.
func (a *Adapter) CreateTableWithPrimaryKey(ctx context.Context, table string, columns []ddl.ColumnDef, pkColumn string) error {
	schema, name := adapter.ParseQualifiedName(table, a.dialect)

	seqName := a.builder.DefaultSequenceName(name, pkColumn)
	createSeq, err := a.builder.CreateSequence(schema, seqName, 1, true)
	if err != nil {
		return err
	}
	seqDefault, err := a.builder.SequenceDefault(schema, seqName)
	if err != nil {
		return err
	}

	defs := make([]ddl.ColumnDef, len(columns))
	copy(defs, columns)
	for i := range defs {
		if defs[i].Name == pkColumn {
			defs[i].PrimaryKey = true
			defs[i].Default = seqDefault
		}
	}

	createTable, err := a.builder.CreateTable(schema, name, defs, ddl.CreateTableOptions{})
	if err != nil {
		return err
	}

	if _, err := a.Exec(ctx, createSeq); err != nil {
		return fmt.Errorf("failed to create sequence %s: %w", seqName, err)
	}
	if _, err := a.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}
	return nil
}

// DropTable drops a table together with the sequences backing its
// autoincrement columns.
func (a *Adapter) DropTable(ctx context.Context, table string, ifExists bool) error {
	schema, name := adapter.ParseQualifiedName(table, a.dialect)

	stmt, err := a.builder.DropTable(schema, name, ifExists)
	if err != nil {
		return err
	}
	if _, err := a.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", table, err)
	}

	return a.dropOwnedSequences(ctx, schema, name)
}

// dropOwnedSequences removes sequences matching the <table>_<column>_seq
// naming convention used by CreateTableWithPrimaryKey.
func (a *Adapter) dropOwnedSequences(ctx context.Context, schema, table string) error {
	pattern := strings.ReplaceAll(table, "_", `\_`) + `\_%\_seq`
	query := `SELECT schema_name, sequence_name FROM duckdb_sequences() WHERE sequence_name LIKE ? ESCAPE '\'`
	args := []any{pattern}
	if schema != "" {
		query += " AND schema_name = ?"
		args = append(args, schema)
	}

	rows, err := a.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to list sequences for %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	type seq struct{ schema, name string }
	var owned []seq
	for rows.Next() {
		var s seq
		if err := rows.Scan(&s.schema, &s.name); err != nil {
			return fmt.Errorf("failed to scan sequence row: %w", err)
		}
		owned = append(owned, s)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating sequences: %w", err)
	}

	for _, s := range owned {
		stmt, err := a.builder.DropSequence(s.schema, s.name, true)
		if err != nil {
			return err
		}
		if _, err := a.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to drop sequence %s: %w", s.name, err)
		}
	}
	return nil
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

// CreateDatabase creates the database file by connecting to it; the engine
// materializes the file on first connection. Parent directories are created
// as needed. No-op for in-memory targets.
func (a *Adapter) CreateDatabase(ctx context.Context, cfg *core.TargetConfig) error {
	if cfg.InMemory() {
		return nil
	}

	if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", cfg.Path)
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

// DropDatabase removes the database file and its write-ahead log.
// No-op for in-memory targets; missing files are not an error.
func (a *Adapter) DropDatabase(_ context.Context, cfg *core.TargetConfig) error {
	if cfg.InMemory() {
		return nil
	}

	if err := os.Remove(cfg.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove database file: %w", err)
	}
	if err := os.Remove(cfg.Path + ".wal"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove database WAL file: %w", err)
	}

	a.Logger.Info("dropped database", slog.String("path", cfg.Path))
	return nil
}

// LoadCSV loads a CSV file into a table using read_csv_auto. When the table
// does not exist it is created with the inferred schema; otherwise rows are
// appended.
func (a *Adapter) LoadCSV(ctx context.Context, table, path string) error {
	if !a.IsConnected() {
		return &adapter.NotConnectedError{}
	}

	schema, name := adapter.ParseQualifiedName(table, a.dialect)
	if err := ddl.ValidateIdentifier(name, 0); err != nil {
		return fmt.Errorf("invalid table name: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	exists, err := a.TableExists(ctx, table)
	if err != nil {
		return err
	}

	source := fmt.Sprintf("SELECT * FROM read_csv_auto(%s, header = true)", a.dialect.QuoteLiteral(absPath))
	quoted := a.dialect.QuoteQualified(schema, name)

	var stmt string
	if exists {
		stmt = fmt.Sprintf("INSERT INTO %s %s", quoted, source)
	} else {
		stmt = fmt.Sprintf("CREATE TABLE %s AS %s", quoted, source)
	}

	if _, err := a.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("failed to load CSV: %w", err)
	}
	return nil
}

// ExportCSV writes a table to a CSV file with a header row.
func (a *Adapter) ExportCSV(ctx context.Context, table, path string) error {
	if !a.IsConnected() {
		return &adapter.NotConnectedError{}
	}

	schema, name := adapter.ParseQualifiedName(table, a.dialect)

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	stmt := fmt.Sprintf("COPY %s TO %s (HEADER, DELIMITER ',')",
		a.dialect.QuoteQualified(schema, name), a.dialect.QuoteLiteral(absPath))

	if _, err := a.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("failed to export CSV: %w", err)
	}
	return nil
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
