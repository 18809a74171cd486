package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/mallardhq/mallard/pkg/adapter"
	"github.com/mallardhq/mallard/pkg/core"
	"github.com/mallardhq/mallard/pkg/ddl"
)

// Introspection uses sqlite_master for object listings and the PRAGMA
// functions (table_info, index_list, index_info) for structure. PRAGMA
// statements cannot carry bound parameters, so identifiers are validated
// before interpolation.

// Tables lists base tables, excluding SQLite's internal sqlite_* tables.
func (a *Adapter) Tables(ctx context.Context) ([]core.Table, error) {
	return a.scanObjects(ctx, "table", core.KindTable)
}

// Views lists views.
func (a *Adapter) Views(ctx context.Context) ([]core.Table, error) {
	return a.scanObjects(ctx, "view", core.KindView)
}

func (a *Adapter) scanObjects(ctx context.Context, objectType string, kind core.TableKind) ([]core.Table, error) {
	rows, err := a.Query(ctx,
		"SELECT name FROM sqlite_master WHERE type = ? AND name NOT LIKE 'sqlite_%' ORDER BY name",
		objectType)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var tables []core.Table
	for rows.Next() {
		t := core.Table{Schema: a.dialect.DefaultSchema, Kind: kind}
		if err := rows.Scan(&t.Name); err != nil {
			return nil, fmt.Errorf("failed to scan table row: %w", err)
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}
	return tables, nil
}

// Columns returns the column definitions of a table in ordinal order.
func (a *Adapter) Columns(ctx context.Context, table string) ([]core.Column, error) {
	name, err := a.pragmaTarget(table)
	if err != nil {
		return nil, err
	}

	rows, err := a.Query(ctx, "PRAGMA table_info("+name+")")
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []core.Column
	for rows.Next() {
		var (
			cid     int
			col     core.Column
			notNull int
			def     sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &col.Name, &col.Type, &notNull, &def, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.Position = cid + 1
		col.Nullable = notNull == 0
		col.PrimaryKey = pk > 0
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
	return columns, nil
}

// PrimaryKeys returns the primary key column names of a table, in key order.
func (a *Adapter) PrimaryKeys(ctx context.Context, table string) ([]string, error) {
	name, err := a.pragmaTarget(table)
	if err != nil {
		return nil, err
	}

	rows, err := a.Query(ctx, "PRAGMA table_info("+name+")")
	if err != nil {
		return nil, fmt.Errorf("failed to query primary key: %w", err)
	}
	defer func() { _ = rows.Close() }()

	type pkCol struct {
		order int
		name  string
	}
	var pkCols []pkCol
	for rows.Next() {
		var (
			cid     int
			colName string
			colType string
			notNull int
			def     sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &colName, &colType, &notNull, &def, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		if pk > 0 {
			pkCols = append(pkCols, pkCol{order: pk, name: colName})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}

	sort.Slice(pkCols, func(i, j int) bool { return pkCols[i].order < pkCols[j].order })
	pk := make([]string, 0, len(pkCols))
	for _, c := range pkCols {
		pk = append(pk, c.name)
	}
	return pk, nil
}

// Indexes returns the secondary indexes on a table. The implicit indexes
// SQLite creates for PRIMARY KEY constraints are excluded.
func (a *Adapter) Indexes(ctx context.Context, table string) ([]core.Index, error) {
	name, err := a.pragmaTarget(table)
	if err != nil {
		return nil, err
	}
	_, bare := adapter.ParseQualifiedName(table, a.dialect)

	rows, err := a.Query(ctx, "PRAGMA index_list("+name+")")
	if err != nil {
		return nil, fmt.Errorf("failed to query indexes: %w", err)
	}

	type indexEntry struct {
		name   string
		unique bool
	}
	var entries []indexEntry
	for rows.Next() {
		var (
			seq     int
			idxName string
			unique  int
			origin  string
			partial int
		)
		if err := rows.Scan(&seq, &idxName, &unique, &origin, &partial); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan index row: %w", err)
		}
		if origin == "pk" {
			continue
		}
		entries = append(entries, indexEntry{name: idxName, unique: unique == 1})
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("error iterating indexes: %w", err)
	}
	_ = rows.Close()

	indexes := make([]core.Index, 0, len(entries))
	for _, e := range entries {
		columns, err := a.indexColumns(ctx, e.name)
		if err != nil {
			return nil, err
		}
		indexes = append(indexes, core.Index{
			Name:    e.name,
			Table:   bare,
			Columns: columns,
			Unique:  e.unique,
		})
	}

	sort.Slice(indexes, func(i, j int) bool { return indexes[i].Name < indexes[j].Name })
	return indexes, nil
}

func (a *Adapter) indexColumns(ctx context.Context, indexName string) ([]string, error) {
	if err := ddl.ValidateIdentifier(indexName, 0); err != nil {
		return nil, fmt.Errorf("invalid index name: %w", err)
	}

	rows, err := a.Query(ctx, "PRAGMA index_info("+a.dialect.QuoteIdent(indexName)+")")
	if err != nil {
		return nil, fmt.Errorf("failed to query index columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	type indexCol struct {
		seqno int
		name  string
	}
	var cols []indexCol
	for rows.Next() {
		var (
			seqno int
			cid   int
			name  sql.NullString
		)
		if err := rows.Scan(&seqno, &cid, &name); err != nil {
			return nil, fmt.Errorf("failed to scan index column: %w", err)
		}
		if name.Valid {
			cols = append(cols, indexCol{seqno: seqno, name: name.String})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating index columns: %w", err)
	}

	sort.Slice(cols, func(i, j int) bool { return cols[i].seqno < cols[j].seqno })
	names := make([]string, 0, len(cols))
	for _, c := range cols {
		names = append(names, c.name)
	}
	return names, nil
}

// TableExists reports whether a base table is present.
func (a *Adapter) TableExists(ctx context.Context, table string) (bool, error) {
	if !a.IsConnected() {
		return false, &adapter.NotConnectedError{}
	}

	_, name := adapter.ParseQualifiedName(table, a.dialect)

	var count int
	row := a.QueryRow(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name)
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
	return adapter.TableMetadataCommon(ctx, a, table)
}

// pragmaTarget validates and quotes a table reference for interpolation
// into a PRAGMA statement.
func (a *Adapter) pragmaTarget(table string) (string, error) {
	_, name := adapter.ParseQualifiedName(table, a.dialect)
	if err := ddl.ValidateIdentifier(name, 0); err != nil {
		return "", fmt.Errorf("invalid table name: %w", err)
	}
	return a.dialect.QuoteIdent(name), nil
}
