package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mallardhq/mallard/pkg/adapter"
	"github.com/mallardhq/mallard/pkg/core"
)

// Introspection goes through DuckDB's catalog functions (duckdb_tables,
// duckdb_views, duckdb_columns, duckdb_indexes, duckdb_constraints) rather
// than information_schema: the catalog functions expose internal flags and
// index definitions that information_schema hides.

// Tables lists base tables, excluding engine-internal ones.
func (a *Adapter) Tables(ctx context.Context) ([]core.Table, error) {
	query := "SELECT schema_name, table_name FROM duckdb_tables() WHERE NOT internal"
	args := []any{}
	if s := a.targetSchema(); s != "" {
		query += " AND schema_name = ?"
		args = append(args, s)
	}
	query += " ORDER BY schema_name, table_name"

	return a.scanTables(ctx, query, core.KindTable, args...)
}

// Views lists views, excluding engine-internal ones.
func (a *Adapter) Views(ctx context.Context) ([]core.Table, error) {
	query := "SELECT schema_name, view_name FROM duckdb_views() WHERE NOT internal"
	args := []any{}
	if s := a.targetSchema(); s != "" {
		query += " AND schema_name = ?"
		args = append(args, s)
	}
	query += " ORDER BY schema_name, view_name"

	return a.scanTables(ctx, query, core.KindView, args...)
}

func (a *Adapter) scanTables(ctx context.Context, query string, kind core.TableKind, args ...any) ([]core.Table, error) {
	rows, err := a.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var tables []core.Table
	for rows.Next() {
		t := core.Table{Kind: kind}
		if err := rows.Scan(&t.Schema, &t.Name); err != nil {
			return nil, fmt.Errorf("failed to scan table row: %w", err)
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}
	return tables, nil
}

// Columns returns the column definitions of a table in ordinal order,
// with native types resolved to portable ids where the type map knows them.
func (a *Adapter) Columns(ctx context.Context, table string) ([]core.Column, error) {
	schema, name := adapter.ParseQualifiedName(table, a.dialect)

	query := `
		SELECT column_name, data_type, is_nullable, column_default, column_index
		FROM duckdb_columns()
		WHERE schema_name = ? AND table_name = ?
		ORDER BY column_index
	`
	rows, err := a.Query(ctx, query, schema, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []core.Column
	for rows.Next() {
		var col core.Column
		var def sql.NullString
		if err := rows.Scan(&col.Name, &col.Type, &col.Nullable, &def, &col.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		if def.Valid {
			col.Default = &def.String
		}
		if g, _, ok := a.dialect.Types.GenericType(col.Type); ok {
			col.GenericType = g
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}

	if len(columns) == 0 {
		return nil, &adapter.TableNotFoundError{Table: table}
	}

	pk, err := a.PrimaryKeys(ctx, table)
	if err != nil {
		return nil, err
	}
	for _, pkCol := range pk {
		for i := range columns {
			if columns[i].Name == pkCol {
				columns[i].PrimaryKey = true
			}
		}
	}

	return columns, nil
}

// PrimaryKeys returns the primary key column names of a table, in key order.
func (a *Adapter) PrimaryKeys(ctx context.Context, table string) ([]string, error) {
	schema, name := adapter.ParseQualifiedName(table, a.dialect)

	query := `
		SELECT unnest(constraint_column_names)
		FROM duckdb_constraints()
		WHERE schema_name = ? AND table_name = ? AND constraint_type = 'PRIMARY KEY'
	`
	rows, err := a.Query(ctx, query, schema, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query primary key: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var pk []string
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, fmt.Errorf("failed to scan primary key column: %w", err)
		}
		pk = append(pk, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating primary key: %w", err)
	}
	return pk, nil
}

// Indexes returns the secondary indexes on a table. Primary key indexes are
// excluded; the column list is recovered from the index definition.
func (a *Adapter) Indexes(ctx context.Context, table string) ([]core.Index, error) {
	schema, name := adapter.ParseQualifiedName(table, a.dialect)

	query := `
		SELECT index_name, is_unique, sql
		FROM duckdb_indexes()
		WHERE schema_name = ? AND table_name = ? AND NOT is_primary
		ORDER BY index_name
	`
	rows, err := a.Query(ctx, query, schema, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query indexes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var indexes []core.Index
	for rows.Next() {
		var idx core.Index
		var defSQL sql.NullString
		if err := rows.Scan(&idx.Name, &idx.Unique, &defSQL); err != nil {
			return nil, fmt.Errorf("failed to scan index row: %w", err)
		}
		idx.Table = name
		if defSQL.Valid {
			idx.Columns = parseIndexColumns(defSQL.String)
		}
		indexes = append(indexes, idx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating indexes: %w", err)
	}
	return indexes, nil
}

// TableExists reports whether a base table is present.
func (a *Adapter) TableExists(ctx context.Context, table string) (bool, error) {
	if !a.IsConnected() {
		return false, &adapter.NotConnectedError{}
	}

	schema, name := adapter.ParseQualifiedName(table, a.dialect)

	var count int
	row := a.QueryRow(ctx,
		"SELECT COUNT(*) FROM duckdb_tables() WHERE schema_name = ? AND table_name = ?",
		schema, name)
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check table existence: %w", err)
	}
	return count > 0, nil
}

// TableMetadata collects columns, indexes, primary key, and row count.
func (a *Adapter) TableMetadata(ctx context.Context, table string) (*core.TableMetadata, error) {
	if !a.IsConnected() {
		return nil, &adapter.NotConnectedError{}
	}
	meta, err := adapter.TableMetadataCommon(ctx, a, table)
	if err != nil {
		return nil, err
	}

	// estimated_size is the engine's row estimate; the exact count came from
	// TableMetadataCommon. Fetch the table's in-file footprint alongside.
	row := a.QueryRow(ctx,
		"SELECT COALESCE(estimated_size, 0) FROM duckdb_tables() WHERE schema_name = ? AND table_name = ?",
		meta.Schema, meta.Name)
	if row != nil {
		if err := row.Scan(&meta.SizeBytes); err != nil {
			meta.SizeBytes = 0
		}
	}
	return meta, nil
}

// targetSchema returns the schema the connection is scoped to, if any.
func (a *Adapter) targetSchema() string {
	if a.Cfg != nil {
		return a.Cfg.Schema
	}
	return ""
}

// parseIndexColumns extracts the column list from a CREATE INDEX statement:
// the parenthesized group after the table name, split on top-level commas.
func parseIndexColumns(createSQL string) []string {
	open := strings.IndexByte(createSQL, '(')
	closing := strings.LastIndexByte(createSQL, ')')
	if open < 0 || closing <= open {
		return nil
	}

	inner := createSQL[open+1 : closing]
	var columns []string
	depth := 0
	start := 0
	for i, r := range inner {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				columns = append(columns, cleanIndexColumn(inner[start:i]))
				start = i + 1
			}
		}
	}
	columns = append(columns, cleanIndexColumn(inner[start:]))
	return columns
}

func cleanIndexColumn(col string) string {
	col = strings.TrimSpace(col)
	col = strings.Trim(col, `"`)
	return col
}
