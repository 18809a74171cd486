// Package ddl builds SQL DDL statements from validated parts.
//
// Every builder validates identifiers and type names before interpolating
// them, quotes through the bound dialect, and returns the statement text.
// Nothing here executes SQL; adapters and the migration runner do that.
package ddl

import (
	"fmt"
	"strings"

	"github.com/mallardhq/mallard/pkg/dialect"
)

// ColumnDef describes a column for CREATE TABLE and ADD COLUMN.
//
// Type is a native type name (already resolved through the dialect type
// map); Default is a rendered SQL expression, e.g. the output of
// dialect.QuoteLiteral or SequenceDefault.
type ColumnDef struct {
	Name       string
	Type       string
	NotNull    bool
	Default    string
	PrimaryKey bool
}

// CreateTableOptions modify CreateTable output.
type CreateTableOptions struct {
	IfNotExists bool
	Temporary   bool
	// PrimaryKey names the columns of a table-level PRIMARY KEY constraint.
	// Column-level PrimaryKey flags take precedence when set.
	PrimaryKey []string
}

// Builder renders DDL statements for one dialect.
type Builder struct {
	d *dialect.Dialect
}

// NewBuilder returns a Builder bound to the given dialect.
func NewBuilder(d *dialect.Dialect) *Builder {
	return &Builder{d: d}
}

// Dialect returns the bound dialect.
func (b *Builder) Dialect() *dialect.Dialect {
	return b.d
}

func (b *Builder) ident(name, what string) (string, error) {
	if err := ValidateIdentifier(name, b.d.Identifiers.MaxLength); err != nil {
		return "", fmt.Errorf("invalid %s: %w", what, err)
	}
	return b.d.QuoteIdent(name), nil
}

// qualified validates and quotes schema.table; empty schema is allowed and
// resolves to the bare table name.
func (b *Builder) qualified(schema, table string) (string, error) {
	if schema != "" {
		if err := ValidateIdentifier(schema, b.d.Identifiers.MaxLength); err != nil {
			return "", fmt.Errorf("invalid schema name: %w", err)
		}
	}
	if err := ValidateIdentifier(table, b.d.Identifiers.MaxLength); err != nil {
		return "", fmt.Errorf("invalid table name: %w", err)
	}
	return b.d.QuoteQualified(schema, table), nil
}

func (b *Builder) columnDef(c ColumnDef) (string, error) {
	if err := ValidateIdentifier(c.Name, b.d.Identifiers.MaxLength); err != nil {
		return "", fmt.Errorf("invalid column name %q: %w", c.Name, err)
	}
	if err := ValidateTypeName(c.Type); err != nil {
		return "", fmt.Errorf("invalid column type for %q: %w", c.Name, err)
	}
	def := b.d.QuoteIdent(c.Name) + " " + c.Type
	if c.Default != "" {
		if err := validateDefault(c.Default); err != nil {
			return "", fmt.Errorf("invalid default for %q: %w", c.Name, err)
		}
		def += " DEFAULT " + c.Default
	}
	if c.NotNull {
		def += " NOT NULL"
	}
	if c.PrimaryKey {
		def += " PRIMARY KEY"
	}
	return def, nil
}

// CreateTable returns: CREATE [TEMPORARY] TABLE [IF NOT EXISTS]
// "schema"."table" ("col1" TYPE1 ..., PRIMARY KEY (...)).
func (b *Builder) CreateTable(schema, table string, columns []ColumnDef, opts CreateTableOptions) (string, error) {
	name, err := b.qualified(schema, table)
	if err != nil {
		return "", err
	}
	if len(columns) == 0 {
		return "", fmt.Errorf("at least one column is required")
	}

	colDefs := make([]string, 0, len(columns)+1)
	for _, c := range columns {
		def, err := b.columnDef(c)
		if err != nil {
			return "", err
		}
		colDefs = append(colDefs, def)
	}

	if len(opts.PrimaryKey) > 0 {
		quoted := make([]string, 0, len(opts.PrimaryKey))
		for _, col := range opts.PrimaryKey {
			q, err := b.ident(col, "primary key column")
			if err != nil {
				return "", err
			}
			quoted = append(quoted, q)
		}
		colDefs = append(colDefs, "PRIMARY KEY ("+strings.Join(quoted, ", ")+")")
	}

	var sb strings.Builder
	sb.WriteString("CREATE ")
	if opts.Temporary {
		sb.WriteString("TEMPORARY ")
	}
	sb.WriteString("TABLE ")
	if opts.IfNotExists {
		sb.WriteString("IF NOT EXISTS ")
	}
	sb.WriteString(name)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(colDefs, ", "))
	sb.WriteString(")")
	return sb.String(), nil
}

// DropTable returns: DROP TABLE [IF EXISTS] "schema"."table".
func (b *Builder) DropTable(schema, table string, ifExists bool) (string, error) {
	name, err := b.qualified(schema, table)
	if err != nil {
		return "", err
	}
	if ifExists {
		return "DROP TABLE IF EXISTS " + name, nil
	}
	return "DROP TABLE " + name, nil
}

// RenameTable returns: ALTER TABLE "schema"."old" RENAME TO "new".
func (b *Builder) RenameTable(schema, oldName, newName string) (string, error) {
	old, err := b.qualified(schema, oldName)
	if err != nil {
		return "", err
	}
	next, err := b.ident(newName, "table name")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s RENAME TO %s", old, next), nil
}

// Truncate returns: DELETE FROM "schema"."table".
//
// DELETE FROM is used rather than TRUNCATE: it is transactional everywhere
// and DuckDB treats the two identically.
func (b *Builder) Truncate(schema, table string) (string, error) {
	name, err := b.qualified(schema, table)
	if err != nil {
		return "", err
	}
	return "DELETE FROM " + name, nil
}

// CreateSchema returns: CREATE SCHEMA [IF NOT EXISTS] "name".
func (b *Builder) CreateSchema(name string, ifNotExists bool) (string, error) {
	q, err := b.ident(name, "schema name")
	if err != nil {
		return "", err
	}
	if ifNotExists {
		return "CREATE SCHEMA IF NOT EXISTS " + q, nil
	}
	return "CREATE SCHEMA " + q, nil
}

// DropSchema returns: DROP SCHEMA "name" [CASCADE].
func (b *Builder) DropSchema(name string, cascade bool) (string, error) {
	q, err := b.ident(name, "schema name")
	if err != nil {
		return "", err
	}
	stmt := "DROP SCHEMA " + q
	if cascade {
		stmt += " CASCADE"
	}
	return stmt, nil
}
