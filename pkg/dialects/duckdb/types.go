package duckdb

import "github.com/mallardhq/mallard/pkg/dialect"

// duckDBTypes is the DuckDB data-type mapping table.
//
// Autoincrementing primary keys map to BIGINT; DuckDB has no serial type,
// so the adapter pairs the column with a sequence and a nextval() default.
// Composite types (LIST, STRUCT, MAP) are introspection-only: they cannot
// be rendered from a portable id without their element types.
var duckDBTypes = &dialect.TypeMap{
	ToNative: map[string]dialect.NativeTypeDef{
		dialect.TypePrimaryKey: {Name: "BIGINT"},
		dialect.TypeString:     {Name: "VARCHAR", Length: true},
		dialect.TypeText:       {Name: "VARCHAR"},
		dialect.TypeInteger:    {Name: "INTEGER"},
		dialect.TypeBigint:     {Name: "BIGINT"},
		dialect.TypeFloat:      {Name: "DOUBLE"},
		dialect.TypeDecimal:    {Name: "DECIMAL", Precision: true},
		dialect.TypeBoolean:    {Name: "BOOLEAN"},
		dialect.TypeDate:       {Name: "DATE"},
		dialect.TypeTime:       {Name: "TIME"},
		dialect.TypeDatetime:   {Name: "TIMESTAMP"},
		dialect.TypeBinary:     {Name: "BLOB"},
		dialect.TypeUUID:       {Name: "UUID"},
		dialect.TypeInterval:   {Name: "INTERVAL"},
		dialect.TypeJSON:       {Name: "JSON"},
	},
	FromNative: map[string]string{
		"VARCHAR":                  dialect.TypeString,
		"CHAR":                     dialect.TypeString,
		"BPCHAR":                   dialect.TypeString,
		"TEXT":                     dialect.TypeString,
		"STRING":                   dialect.TypeString,
		"ENUM":                     dialect.TypeString,
		"TINYINT":                  dialect.TypeInteger,
		"INT1":                     dialect.TypeInteger,
		"SMALLINT":                 dialect.TypeInteger,
		"INT2":                     dialect.TypeInteger,
		"SHORT":                    dialect.TypeInteger,
		"INTEGER":                  dialect.TypeInteger,
		"INT":                      dialect.TypeInteger,
		"INT4":                     dialect.TypeInteger,
		"SIGNED":                   dialect.TypeInteger,
		"UTINYINT":                 dialect.TypeInteger,
		"USMALLINT":                dialect.TypeInteger,
		"UINTEGER":                 dialect.TypeInteger,
		"BIGINT":                   dialect.TypeBigint,
		"INT8":                     dialect.TypeBigint,
		"LONG":                     dialect.TypeBigint,
		"HUGEINT":                  dialect.TypeBigint,
		"UBIGINT":                  dialect.TypeBigint,
		"UHUGEINT":                 dialect.TypeBigint,
		"DOUBLE":                   dialect.TypeFloat,
		"FLOAT8":                   dialect.TypeFloat,
		"FLOAT":                    dialect.TypeFloat,
		"FLOAT4":                   dialect.TypeFloat,
		"REAL":                     dialect.TypeFloat,
		"DECIMAL":                  dialect.TypeDecimal,
		"NUMERIC":                  dialect.TypeDecimal,
		"BOOLEAN":                  dialect.TypeBoolean,
		"BOOL":                     dialect.TypeBoolean,
		"LOGICAL":                  dialect.TypeBoolean,
		"DATE":                     dialect.TypeDate,
		"TIME":                     dialect.TypeTime,
		"TIMESTAMP":                dialect.TypeDatetime,
		"DATETIME":                 dialect.TypeDatetime,
		"TIMESTAMP WITH TIME ZONE": dialect.TypeDatetime,
		"TIMESTAMPTZ":              dialect.TypeDatetime,
		"TIMESTAMP_S":              dialect.TypeDatetime,
		"TIMESTAMP_MS":             dialect.TypeDatetime,
		"TIMESTAMP_NS":             dialect.TypeDatetime,
		"BLOB":                     dialect.TypeBinary,
		"BYTEA":                    dialect.TypeBinary,
		"BINARY":                   dialect.TypeBinary,
		"VARBINARY":                dialect.TypeBinary,
		"UUID":                     dialect.TypeUUID,
		"INTERVAL":                 dialect.TypeInterval,
		"JSON":                     dialect.TypeJSON,
		"LIST":                     dialect.TypeList,
		"STRUCT":                   dialect.TypeStruct,
		"MAP":                      dialect.TypeMapKind,
		"UNION":                    dialect.TypeStruct,
	},
	IntegerWidths: []dialect.IntegerWidth{
		{MaxBytes: 1, Name: "TINYINT"},
		{MaxBytes: 2, Name: "SMALLINT"},
		{MaxBytes: 4, Name: "INTEGER"},
		{MaxBytes: 8, Name: "BIGINT"},
		{MaxBytes: 16, Name: "HUGEINT"},
	},
}
