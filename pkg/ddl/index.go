package ddl

import (
	"fmt"
	"strings"
)

// UnsupportedError reports a DDL operation the dialect cannot express.
type UnsupportedError struct {
	Dialect   string
	Operation string
	Hint      string
}

func (e *UnsupportedError) Error() string {
	msg := fmt.Sprintf("%s does not support %s", e.Dialect, e.Operation)
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

// DefaultIndexName derives an index name from the table and column names:
// idx_<table>_<col1>_<col2>, truncated to the dialect identifier limit.
func (b *Builder) DefaultIndexName(table string, columns []string) string {
	name := "idx_" + table + "_" + strings.Join(columns, "_")
	maxLen := b.d.Identifiers.MaxLength
	if maxLen <= 0 {
		maxLen = maxIdentifierLen
	}
	if len(name) > maxLen {
		name = name[:maxLen]
	}
	return name
}

// CreateIndex returns: CREATE [UNIQUE] INDEX [IF NOT EXISTS] "name" ON
// "schema"."table" ("col1", "col2").
func (b *Builder) CreateIndex(indexName, schema, table string, columns []string, unique, ifNotExists bool) (string, error) {
	idx, err := b.ident(indexName, "index name")
	if err != nil {
		return "", err
	}
	name, err := b.qualified(schema, table)
	if err != nil {
		return "", err
	}
	if len(columns) == 0 {
		return "", fmt.Errorf("at least one column is required")
	}
	quoted := make([]string, 0, len(columns))
	for _, col := range columns {
		q, err := b.ident(col, "column name")
		if err != nil {
			return "", err
		}
		quoted = append(quoted, q)
	}

	var sb strings.Builder
	sb.WriteString("CREATE ")
	if unique {
		sb.WriteString("UNIQUE ")
	}
	sb.WriteString("INDEX ")
	if ifNotExists {
		sb.WriteString("IF NOT EXISTS ")
	}
	sb.WriteString(idx)
	sb.WriteString(" ON ")
	sb.WriteString(name)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(quoted, ", "))
	sb.WriteString(")")
	return sb.String(), nil
}

// DropIndex returns: DROP INDEX [IF EXISTS] "schema"."name".
func (b *Builder) DropIndex(schema, indexName string, ifExists bool) (string, error) {
	name, err := b.qualified(schema, indexName)
	if err != nil {
		return "", err
	}
	if ifExists {
		return "DROP INDEX IF EXISTS " + name, nil
	}
	return "DROP INDEX " + name, nil
}

// RenameIndex returns: ALTER INDEX "schema"."old" RENAME TO "new".
// Errors when the dialect has no index rename statement.
func (b *Builder) RenameIndex(schema, oldName, newName string) (string, error) {
	if !b.d.SupportsIndexRename {
		return "", &UnsupportedError{Dialect: b.d.Name, Operation: "ALTER INDEX RENAME",
			Hint: "drop and recreate the index under the new name"}
	}
	old, err := b.qualified(schema, oldName)
	if err != nil {
		return "", err
	}
	next, err := b.ident(newName, "index name")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER INDEX %s RENAME TO %s", old, next), nil
}
