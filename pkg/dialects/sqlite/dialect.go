// Package sqlite provides the SQLite SQL dialect definition.
package sqlite

import "github.com/mallardhq/mallard/pkg/dialect"

func init() {
	dialect.Register(SQLite)
}

// SQLite is the SQLite dialect configuration.
//
// SQLite stores all integers in a single 8-byte class, so the type map has
// no width table; explicit integer limits are accepted and ignored.
var SQLite = &dialect.Dialect{
	Name:          "sqlite",
	DefaultSchema: "main",
	Placeholder:   dialect.PlaceholderQuestion,
	Identifiers: dialect.IdentifierConfig{
		Quote:         `"`,
		QuoteEnd:      `"`,
		Escape:        `""`,
		Normalization: dialect.NormCaseInsensitive,
	},

	SupportsReturning:        true,
	SupportsTransactionalDDL: true,

	QuotedTrue:  "1",
	QuotedFalse: "0",

	Keywords: sqliteKeywords,
	Types:    sqliteTypes,
}

var sqliteTypes = &dialect.TypeMap{
	ToNative: map[string]dialect.NativeTypeDef{
		// INTEGER PRIMARY KEY is the rowid alias and autoincrements.
		dialect.TypePrimaryKey: {Name: "INTEGER"},
		dialect.TypeString:     {Name: "VARCHAR", Length: true},
		dialect.TypeText:       {Name: "TEXT"},
		dialect.TypeInteger:    {Name: "INTEGER"},
		dialect.TypeBigint:     {Name: "BIGINT"},
		dialect.TypeFloat:      {Name: "REAL"},
		dialect.TypeDecimal:    {Name: "DECIMAL", Precision: true},
		dialect.TypeBoolean:    {Name: "BOOLEAN"},
		dialect.TypeDate:       {Name: "DATE"},
		dialect.TypeTime:       {Name: "TIME"},
		dialect.TypeDatetime:   {Name: "DATETIME"},
		dialect.TypeBinary:     {Name: "BLOB"},
	},
	FromNative: map[string]string{
		"VARCHAR":           dialect.TypeString,
		"CHARACTER":         dialect.TypeString,
		"VARYING CHARACTER": dialect.TypeString,
		"NCHAR":             dialect.TypeString,
		"NVARCHAR":          dialect.TypeString,
		"TEXT":              dialect.TypeText,
		"CLOB":              dialect.TypeText,
		"TINYINT":           dialect.TypeInteger,
		"SMALLINT":          dialect.TypeInteger,
		"MEDIUMINT":         dialect.TypeInteger,
		"INTEGER":           dialect.TypeInteger,
		"INT":               dialect.TypeInteger,
		"BIGINT":            dialect.TypeBigint,
		"INT8":              dialect.TypeBigint,
		"UNSIGNED BIG INT":  dialect.TypeBigint,
		"REAL":              dialect.TypeFloat,
		"DOUBLE":            dialect.TypeFloat,
		"DOUBLE PRECISION":  dialect.TypeFloat,
		"FLOAT":             dialect.TypeFloat,
		"DECIMAL":           dialect.TypeDecimal,
		"NUMERIC":           dialect.TypeDecimal,
		"BOOLEAN":           dialect.TypeBoolean,
		"DATE":              dialect.TypeDate,
		"TIME":              dialect.TypeTime,
		"DATETIME":          dialect.TypeDatetime,
		"TIMESTAMP":         dialect.TypeDatetime,
		"BLOB":              dialect.TypeBinary,
	},
}
