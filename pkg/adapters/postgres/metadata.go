package postgres

// Schema introspection uses information_schema for relations and columns and
// pg_catalog for primary keys and indexes, which information_schema does not
// expose in column order. All queries scope to one schema: the configured one
// or the dialect default (public).

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mallardhq/mallard/pkg/adapter"
	"github.com/mallardhq/mallard/pkg/core"
)

// Tables returns all base tables in the target schema.
func (a *Adapter) Tables(ctx context.Context) ([]core.Table, error) {
	return a.scanRelations(ctx, "BASE TABLE", core.KindTable)
}

// Views returns all views in the target schema.
func (a *Adapter) Views(ctx context.Context) ([]core.Table, error) {
	return a.scanRelations(ctx, "VIEW", core.KindView)
}

func (a *Adapter) scanRelations(ctx context.Context, tableType string, kind core.TableKind) ([]core.Table, error) {
	schema := a.targetSchema()
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = $2
		ORDER BY table_name`

	rows, err := a.Query(ctx, query, schema, tableType)
	if err != nil {
		return nil, fmt.Errorf("failed to list %ss: %w", kind, err)
	}
	defer func() { _ = rows.Close() }()

	var tables []core.Table
	for rows.Next() {
		t := core.Table{Schema: schema, Kind: kind}
		if err := rows.Scan(&t.Name); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", kind, err)
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %ss: %w", kind, err)
	}
	return tables, nil
}

// Columns returns column definitions for a table in ordinal position order.
func (a *Adapter) Columns(ctx context.Context, table string) ([]core.Column, error) {
	schema, name := a.resolveTable(table)

	query := `
		SELECT column_name, data_type, is_nullable, column_default, ordinal_position
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`

	rows, err := a.Query(ctx, query, schema, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns for %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var columns []core.Column
	for rows.Next() {
		var (
			col        core.Column
			isNullable string
			colDefault sql.NullString
		)
		if err := rows.Scan(&col.Name, &col.Type, &isNullable, &colDefault, &col.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column row: %w", err)
		}
		col.Nullable = isNullable == "YES"
		if colDefault.Valid {
			col.Default = &colDefault.String
		}
		if g, _, ok := a.dialect.Types.GenericType(col.Type); ok {
			col.GenericType = g
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}
	if len(columns) == 0 {
		return nil, &adapter.TableNotFoundError{Table: table}
	}

	pks, err := a.PrimaryKeys(ctx, table)
	if err != nil {
		return nil, err
	}
	for _, pk := range pks {
		for i := range columns {
			if columns[i].Name == pk {
				columns[i].PrimaryKey = true
			}
		}
	}
	return columns, nil
}

// PrimaryKeys returns the primary key column names in key order.
func (a *Adapter) PrimaryKeys(ctx context.Context, table string) ([]string, error) {
	schema, name := a.resolveTable(table)

	query := `
		SELECT a.attname
		FROM pg_index i
		JOIN pg_class c ON c.oid = i.indrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		JOIN pg_attribute a ON a.attrelid = c.oid AND a.attnum = ANY(i.indkey)
		WHERE i.indisprimary AND n.nspname = $1 AND c.relname = $2
		ORDER BY array_position(i.indkey, a.attnum)`

	rows, err := a.Query(ctx, query, schema, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query primary keys for %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan primary key row: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating primary keys: %w", err)
	}
	return keys, nil
}

// Indexes returns secondary indexes on a table with their columns in index
// order. The primary key index is excluded.
func (a *Adapter) Indexes(ctx context.Context, table string) ([]core.Index, error) {
	schema, name := a.resolveTable(table)

	query := `
		SELECT ic.relname, i.indisunique, a.attname
		FROM pg_index i
		JOIN pg_class c ON c.oid = i.indrelid
		JOIN pg_class ic ON ic.oid = i.indexrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		JOIN pg_attribute a ON a.attrelid = c.oid AND a.attnum = ANY(i.indkey)
		WHERE NOT i.indisprimary AND n.nspname = $1 AND c.relname = $2
		ORDER BY ic.relname, array_position(i.indkey, a.attnum)`

	rows, err := a.Query(ctx, query, schema, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query indexes for %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	byName := make(map[string]*core.Index)
	var order []string
	for rows.Next() {
		var (
			idxName string
			unique  bool
			column  string
		)
		if err := rows.Scan(&idxName, &unique, &column); err != nil {
			return nil, fmt.Errorf("failed to scan index row: %w", err)
		}
		idx, ok := byName[idxName]
		if !ok {
			idx = &core.Index{Name: idxName, Table: name, Unique: unique}
			byName[idxName] = idx
			order = append(order, idxName)
		}
		idx.Columns = append(idx.Columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating indexes: %w", err)
	}

	indexes := make([]core.Index, 0, len(order))
	for _, idxName := range order {
		indexes = append(indexes, *byName[idxName])
	}
	sortIndexes(indexes)
	return indexes, nil
}

// TableExists reports whether a table or view with the given name exists.
func (a *Adapter) TableExists(ctx context.Context, table string) (bool, error) {
	if !a.IsConnected() {
		return false, &adapter.NotConnectedError{}
	}
	schema, name := a.resolveTable(table)

	var count int
	row := a.QueryRow(ctx,
		"SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = $1 AND table_name = $2",
		schema, name)
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check table existence: %w", err)
	}
	return count > 0, nil
}

// TableMetadata returns the full introspected shape of a table including its
// total on-disk size.
func (a *Adapter) TableMetadata(ctx context.Context, table string) (*core.TableMetadata, error) {
	meta, err := adapter.TableMetadataCommon(ctx, a, table)
	if err != nil {
		return nil, err
	}

	schema, name := a.resolveTable(table)
	meta.Schema = schema

	row := a.QueryRow(ctx, `
		SELECT COALESCE(pg_total_relation_size(c.oid), 0)
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1 AND c.relname = $2`,
		schema, name)
	if err := row.Scan(&meta.SizeBytes); err != nil {
		meta.SizeBytes = 0
	}
	return meta, nil
}

// resolveTable splits an optionally qualified table name, defaulting the
// schema to the target schema rather than the dialect default.
func (a *Adapter) resolveTable(table string) (schema, name string) {
	if parts := strings.SplitN(table, ".", 2); len(parts) == 2 {
		return parts[0], parts[1]
	}
	return a.targetSchema(), table
}
