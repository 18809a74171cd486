package core

import "database/sql"

// TableKind distinguishes tables from views in catalog listings.
type TableKind string

const (
	KindTable TableKind = "table"
	KindView  TableKind = "view"
)

// Table identifies a relation in the database catalog.
type Table struct {
	Schema string
	Name   string
	Kind   TableKind
}

// Column represents a column in a database table.
//
// Type is the native type name as reported by the engine (e.g. DECIMAL(10,2));
// GenericType is the portable type id resolved through the dialect type map,
// empty when the native type has no mapping.
type Column struct {
	Name        string
	Type        string
	GenericType string
	Nullable    bool
	Default     *string
	PrimaryKey  bool
	Position    int
}

// Index represents a secondary index on a table.
type Index struct {
	Name    string
	Table   string
	Columns []string
	Unique  bool
}

// Sequence represents a named sequence (engines that support them).
type Sequence struct {
	Schema string
	Name   string
	Start  int64
}

// TableMetadata holds the full introspected shape of a table.
type TableMetadata struct {
	Schema     string
	Name       string
	Columns    []Column
	Indexes    []Index
	PrimaryKey []string
	RowCount   int64
	SizeBytes  int64
}

// Rows wraps sql.Rows to provide a consistent interface.
type Rows struct {
	*sql.Rows
}
