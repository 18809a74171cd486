package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTypeMap() *TypeMap {
	return &TypeMap{
		ToNative: map[string]NativeTypeDef{
			TypePrimaryKey: {Name: "BIGINT"},
			TypeString:     {Name: "VARCHAR", Length: true},
			TypeText:       {Name: "VARCHAR"},
			TypeInteger:    {Name: "INTEGER"},
			TypeBigint:     {Name: "BIGINT"},
			TypeDecimal:    {Name: "DECIMAL", Precision: true},
			TypeFloat:      {Name: "DOUBLE"},
			TypeBoolean:    {Name: "BOOLEAN"},
			TypeDatetime:   {Name: "TIMESTAMP"},
		},
		FromNative: map[string]string{
			"VARCHAR":   TypeString,
			"INTEGER":   TypeInteger,
			"INT":       TypeInteger,
			"BIGINT":    TypeBigint,
			"HUGEINT":   TypeBigint,
			"DECIMAL":   TypeDecimal,
			"NUMERIC":   TypeDecimal,
			"DOUBLE":    TypeFloat,
			"BOOLEAN":   TypeBoolean,
			"TIMESTAMP": TypeDatetime,
			"STRUCT":    TypeStruct,
		},
		IntegerWidths: []IntegerWidth{
			{1, "TINYINT"},
			{2, "SMALLINT"},
			{4, "INTEGER"},
			{8, "BIGINT"},
			{16, "HUGEINT"},
		},
	}
}

func TestNativeType(t *testing.T) {
	m := testTypeMap()

	tests := []struct {
		name    string
		generic string
		mods    TypeMods
		want    string
		wantErr string
	}{
		{"plain integer", TypeInteger, TypeMods{}, "INTEGER", ""},
		{"integer limit 1", TypeInteger, TypeMods{Limit: 1}, "TINYINT", ""},
		{"integer limit 2", TypeInteger, TypeMods{Limit: 2}, "SMALLINT", ""},
		{"integer limit 3 rounds up", TypeInteger, TypeMods{Limit: 3}, "INTEGER", ""},
		{"integer limit 8", TypeInteger, TypeMods{Limit: 8}, "BIGINT", ""},
		{"integer limit 16", TypeInteger, TypeMods{Limit: 16}, "HUGEINT", ""},
		{"integer limit too large", TypeInteger, TypeMods{Limit: 32}, "", "no integer type with byte size 32"},
		{"bigint", TypeBigint, TypeMods{}, "BIGINT", ""},
		{"string plain", TypeString, TypeMods{}, "VARCHAR", ""},
		{"string limit", TypeString, TypeMods{Limit: 255}, "VARCHAR(255)", ""},
		{"decimal plain", TypeDecimal, TypeMods{}, "DECIMAL", ""},
		{"decimal precision", TypeDecimal, TypeMods{Precision: 10}, "DECIMAL(10)", ""},
		{"decimal precision and scale", TypeDecimal, TypeMods{Precision: 10, Scale: 2}, "DECIMAL(10,2)", ""},
		{"primary key", TypePrimaryKey, TypeMods{}, "BIGINT", ""},
		{"unknown generic", "geometry", TypeMods{}, "", `no native type mapping for "geometry"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.NativeType(tt.generic, tt.mods)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenericType(t *testing.T) {
	m := testTypeMap()

	tests := []struct {
		native   string
		want     string
		wantMods TypeMods
		wantOK   bool
	}{
		{"VARCHAR", TypeString, TypeMods{}, true},
		{"varchar", TypeString, TypeMods{}, true},
		{"VARCHAR(255)", TypeString, TypeMods{Limit: 255}, true},
		{"INTEGER", TypeInteger, TypeMods{}, true},
		{"INT", TypeInteger, TypeMods{}, true},
		{"HUGEINT", TypeBigint, TypeMods{}, true},
		{"DECIMAL(10,2)", TypeDecimal, TypeMods{Precision: 10, Scale: 2}, true},
		{"NUMERIC(18,3)", TypeDecimal, TypeMods{Precision: 18, Scale: 3}, true},
		{"INTEGER[]", TypeList, TypeMods{}, true},
		{"STRUCT(a VARCHAR, b INTEGER)", TypeStruct, TypeMods{}, true},
		{"GEOMETRY", "", TypeMods{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.native, func(t *testing.T) {
			got, mods, ok := m.GenericType(tt.native)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
				assert.Equal(t, tt.wantMods, mods)
			}
		})
	}
}
