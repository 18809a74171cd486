// Package postgres provides the PostgreSQL SQL dialect definition.
package postgres

import (
	"encoding/hex"

	"github.com/mallardhq/mallard/pkg/dialect"
)

func init() {
	dialect.Register(Postgres)
}

// Postgres is the PostgreSQL dialect configuration.
var Postgres = &dialect.Dialect{
	Name:          "postgres",
	DefaultSchema: "public",
	Placeholder:   dialect.PlaceholderDollar,
	Identifiers: dialect.IdentifierConfig{
		Quote:         `"`,
		QuoteEnd:      `"`,
		Escape:        `""`,
		Normalization: dialect.NormLowercase,
		MaxLength:     63,
	},

	SupportsReturning:        true,
	SupportsSequences:        true,
	SupportsCreateDatabase:   true,
	SupportsTransactionalDDL: true,
	SupportsAlterColumnType:  true,
	SupportsIndexRename:      true,

	QuotedTrue:  "TRUE",
	QuotedFalse: "FALSE",

	BlobLiteral: func(b []byte) string {
		return `'\x` + hex.EncodeToString(b) + `'::bytea`
	},

	Keywords: postgresKeywords,
	Types:    postgresTypes,
}

var postgresTypes = &dialect.TypeMap{
	ToNative: map[string]dialect.NativeTypeDef{
		dialect.TypePrimaryKey: {Name: "BIGSERIAL"},
		dialect.TypeString:     {Name: "VARCHAR", Length: true},
		dialect.TypeText:       {Name: "TEXT"},
		dialect.TypeInteger:    {Name: "INTEGER"},
		dialect.TypeBigint:     {Name: "BIGINT"},
		dialect.TypeFloat:      {Name: "DOUBLE PRECISION"},
		dialect.TypeDecimal:    {Name: "DECIMAL", Precision: true},
		dialect.TypeBoolean:    {Name: "BOOLEAN"},
		dialect.TypeDate:       {Name: "DATE"},
		dialect.TypeTime:       {Name: "TIME"},
		dialect.TypeDatetime:   {Name: "TIMESTAMP"},
		dialect.TypeBinary:     {Name: "BYTEA"},
		dialect.TypeUUID:       {Name: "UUID"},
		dialect.TypeInterval:   {Name: "INTERVAL"},
		dialect.TypeJSON:       {Name: "JSONB"},
	},
	FromNative: map[string]string{
		"CHARACTER VARYING":           dialect.TypeString,
		"VARCHAR":                     dialect.TypeString,
		"CHARACTER":                   dialect.TypeString,
		"CHAR":                        dialect.TypeString,
		"BPCHAR":                      dialect.TypeString,
		"NAME":                        dialect.TypeString,
		"TEXT":                        dialect.TypeText,
		"SMALLINT":                    dialect.TypeInteger,
		"INT2":                        dialect.TypeInteger,
		"INTEGER":                     dialect.TypeInteger,
		"INT":                         dialect.TypeInteger,
		"INT4":                        dialect.TypeInteger,
		"SERIAL":                      dialect.TypeInteger,
		"BIGINT":                      dialect.TypeBigint,
		"INT8":                        dialect.TypeBigint,
		"BIGSERIAL":                   dialect.TypeBigint,
		"REAL":                        dialect.TypeFloat,
		"FLOAT4":                      dialect.TypeFloat,
		"DOUBLE PRECISION":            dialect.TypeFloat,
		"FLOAT8":                      dialect.TypeFloat,
		"NUMERIC":                     dialect.TypeDecimal,
		"DECIMAL":                     dialect.TypeDecimal,
		"BOOLEAN":                     dialect.TypeBoolean,
		"BOOL":                        dialect.TypeBoolean,
		"DATE":                        dialect.TypeDate,
		"TIME":                        dialect.TypeTime,
		"TIME WITHOUT TIME ZONE":      dialect.TypeTime,
		"TIME WITH TIME ZONE":         dialect.TypeTime,
		"TIMETZ":                      dialect.TypeTime,
		"TIMESTAMP":                   dialect.TypeDatetime,
		"TIMESTAMP WITHOUT TIME ZONE": dialect.TypeDatetime,
		"TIMESTAMP WITH TIME ZONE":    dialect.TypeDatetime,
		"TIMESTAMPTZ":                 dialect.TypeDatetime,
		"BYTEA":                       dialect.TypeBinary,
		"UUID":                        dialect.TypeUUID,
		"JSON":                        dialect.TypeJSON,
		"JSONB":                       dialect.TypeJSON,
		"INTERVAL":                    dialect.TypeInterval,
	},
	IntegerWidths: []dialect.IntegerWidth{
		{MaxBytes: 2, Name: "SMALLINT"},
		{MaxBytes: 4, Name: "INTEGER"},
		{MaxBytes: 8, Name: "BIGINT"},
	},
}
