// Package duckdb provides the DuckDB SQL dialect definition.
// This package is pure data with no database driver dependencies.
package duckdb

import (
	"fmt"
	"strings"

	"github.com/mallardhq/mallard/pkg/dialect"
)

func init() {
	dialect.Register(DuckDB)
}

// DuckDB is the DuckDB dialect configuration.
var DuckDB = &dialect.Dialect{
	Name:          "duckdb",
	DefaultSchema: "main",
	Placeholder:   dialect.PlaceholderQuestion,
	Identifiers: dialect.IdentifierConfig{
		Quote:         `"`,
		QuoteEnd:      `"`,
		Escape:        `""`,
		Normalization: dialect.NormCaseInsensitive,
	},

	SupportsReturning:        true,
	SupportsSequences:        true,
	SupportsTransactionalDDL: true,
	SupportsAlterColumnType:  true,

	QuotedTrue:  "TRUE",
	QuotedFalse: "FALSE",

	BlobLiteral: blobLiteral,

	Keywords: duckDBKeywords,
	Types:    duckDBTypes,
}

// blobLiteral renders bytes in DuckDB's escaped-hex blob form: '\xDE\xAD'::BLOB.
func blobLiteral(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b)*4 + 8)
	sb.WriteByte('\'')
	for _, c := range b {
		fmt.Fprintf(&sb, `\x%02X`, c)
	}
	sb.WriteString("'::BLOB")
	return sb.String()
}
