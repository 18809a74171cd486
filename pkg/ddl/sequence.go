package ddl

import "fmt"

// CreateSequence returns: CREATE SEQUENCE [IF NOT EXISTS] "schema"."name"
// [START start]. Errors when the dialect has no sequences.
func (b *Builder) CreateSequence(schema, name string, start int64, ifNotExists bool) (string, error) {
	if !b.d.SupportsSequences {
		return "", &UnsupportedError{Dialect: b.d.Name, Operation: "CREATE SEQUENCE"}
	}
	seq, err := b.qualified(schema, name)
	if err != nil {
		return "", err
	}
	stmt := "CREATE SEQUENCE "
	if ifNotExists {
		stmt += "IF NOT EXISTS "
	}
	stmt += seq
	if start > 1 {
		stmt += fmt.Sprintf(" START %d", start)
	}
	return stmt, nil
}

// DropSequence returns: DROP SEQUENCE [IF EXISTS] "schema"."name".
func (b *Builder) DropSequence(schema, name string, ifExists bool) (string, error) {
	if !b.d.SupportsSequences {
		return "", &UnsupportedError{Dialect: b.d.Name, Operation: "DROP SEQUENCE"}
	}
	seq, err := b.qualified(schema, name)
	if err != nil {
		return "", err
	}
	if ifExists {
		return "DROP SEQUENCE IF EXISTS " + seq, nil
	}
	return "DROP SEQUENCE " + seq, nil
}

// SequenceDefault renders the default expression that draws from a
// sequence: nextval('"schema"."name"'). The quoted name is wrapped in a
// string literal, which is how both DuckDB and Postgres address sequences
// in defaults.
func (b *Builder) SequenceDefault(schema, name string) (string, error) {
	if !b.d.SupportsSequences {
		return "", &UnsupportedError{Dialect: b.d.Name, Operation: "sequence defaults"}
	}
	seq, err := b.qualified(schema, name)
	if err != nil {
		return "", err
	}
	return "nextval(" + b.d.QuoteLiteral(seq) + ")", nil
}

// DefaultSequenceName derives the sequence name backing an autoincrement
// column: <table>_<column>_seq, truncated to the identifier limit.
func (b *Builder) DefaultSequenceName(table, column string) string {
	name := table + "_" + column + "_seq"
	maxLen := b.d.Identifiers.MaxLength
	if maxLen <= 0 {
		maxLen = maxIdentifierLen
	}
	if len(name) > maxLen {
		name = name[:maxLen]
	}
	return name
}
