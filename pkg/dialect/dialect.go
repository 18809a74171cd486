// Package dialect provides SQL dialect configuration: identifier quoting,
// literal quoting, parameter placeholders, reserved words, and the mapping
// between portable column types and engine-native type names.
//
// Concrete dialect definitions live in pkg/dialects/*/ packages and register
// themselves here. A Dialect is pure data plus small methods; it never talks
// to a database.
package dialect

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NormalizationStrategy defines how unquoted identifiers are normalized.
type NormalizationStrategy int

const (
	// NormLowercase normalizes unquoted identifiers to lowercase (default SQL behavior).
	NormLowercase NormalizationStrategy = iota
	// NormUppercase normalizes unquoted identifiers to uppercase (Snowflake, Oracle).
	NormUppercase
	// NormCaseInsensitive normalizes to lowercase for comparison (DuckDB, SQLite).
	NormCaseInsensitive
	// NormCaseSensitive preserves identifier case exactly.
	NormCaseSensitive
)

// PlaceholderStyle defines how query parameters are formatted.
type PlaceholderStyle int

const (
	// PlaceholderQuestion uses ? for all parameters (DuckDB, SQLite).
	PlaceholderQuestion PlaceholderStyle = iota
	// PlaceholderDollar uses $1, $2, etc. (PostgreSQL).
	PlaceholderDollar
)

// IdentifierConfig defines how identifiers are quoted and normalized.
type IdentifierConfig struct {
	Quote         string                // Quote character: ", `, [
	QuoteEnd      string                // End quote character (usually same as Quote)
	Escape        string                // Escape sequence for an embedded quote: "", ``
	Normalization NormalizationStrategy // How unquoted identifiers compare
	MaxLength     int                   // Identifier length limit in bytes, 0 = unlimited
}

// Dialect is the static configuration for one SQL dialect.
type Dialect struct {
	Name          string
	DefaultSchema string
	Placeholder   PlaceholderStyle
	Identifiers   IdentifierConfig

	// Feature flags read by adapters and DDL builders.
	SupportsReturning        bool
	SupportsSequences        bool
	SupportsCreateDatabase   bool // server-side CREATE DATABASE statement
	SupportsTransactionalDDL bool
	SupportsAlterColumnType  bool
	SupportsIndexRename      bool

	// Boolean literal spellings.
	QuotedTrue  string
	QuotedFalse string

	// BlobLiteral renders a byte slice as an inline literal. Nil falls back
	// to the X'..' hex form.
	BlobLiteral func(b []byte) string

	// Keywords are the dialect's reserved words (any case).
	Keywords []string

	// Types is the data-type mapping table for this dialect.
	Types *TypeMap

	keywords map[string]struct{}
}

// QuoteIdent quotes a single identifier, escaping embedded quote characters.
func (d *Dialect) QuoteIdent(name string) string {
	q := d.Identifiers.Quote
	end := d.Identifiers.QuoteEnd
	if end == "" {
		end = q
	}
	escaped := strings.ReplaceAll(name, end, d.Identifiers.Escape)
	return q + escaped + end
}

// QuoteQualified quotes schema.name, omitting the schema part when empty.
func (d *Dialect) QuoteQualified(schema, name string) string {
	if schema == "" {
		return d.QuoteIdent(name)
	}
	return d.QuoteIdent(schema) + "." + d.QuoteIdent(name)
}

// QuoteLiteral renders a Go value as a SQL literal. Strings are
// single-quoted with ” doubling; times use the engine-neutral
// YYYY-MM-DD HH:MM:SS.ffffff form; nil renders as NULL.
func (d *Dialect) QuoteLiteral(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return quoteString(val)
	case bool:
		if val {
			return d.QuotedTrue
		}
		return d.QuotedFalse
	case int:
		return strconv.Itoa(val)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case time.Time:
		return quoteString(val.Format("2006-01-02 15:04:05.999999"))
	case []byte:
		if d.BlobLiteral != nil {
			return d.BlobLiteral(val)
		}
		return "X'" + strings.ToUpper(hex.EncodeToString(val)) + "'"
	default:
		return quoteString(fmt.Sprintf("%v", val))
	}
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// PlaceholderAt returns the placeholder for the i-th parameter (1-based).
func (d *Dialect) PlaceholderAt(i int) string {
	if d.Placeholder == PlaceholderDollar {
		return "$" + strconv.Itoa(i)
	}
	return "?"
}

// IsReservedWord reports whether s is a reserved word in this dialect.
func (d *Dialect) IsReservedWord(s string) bool {
	_, ok := d.keywords[strings.ToLower(s)]
	return ok
}

// NeedsQuoting reports whether an identifier must be quoted to be used
// verbatim: reserved words, leading digits, or characters outside
// [a-zA-Z0-9_].
func (d *Dialect) NeedsQuoting(name string) bool {
	if name == "" {
		return true
	}
	if d.IsReservedWord(name) {
		return true
	}
	for i, r := range name {
		switch {
		case r == '_',
			r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return true
			}
		default:
			return true
		}
	}
	return false
}

// buildKeywordSet is called once at registration time.
func (d *Dialect) buildKeywordSet() {
	d.keywords = make(map[string]struct{}, len(d.Keywords))
	for _, k := range d.Keywords {
		d.keywords[strings.ToLower(k)] = struct{}{}
	}
}
