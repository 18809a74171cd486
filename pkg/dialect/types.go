package dialect

import (
	"fmt"
	"strconv"
	"strings"
)

// Portable column type ids. Adapters and the DDL layer speak these; the
// dialect type map translates them to engine-native names and back.
const (
	TypePrimaryKey = "primary_key"
	TypeString     = "string"
	TypeText       = "text"
	TypeInteger    = "integer"
	TypeBigint     = "bigint"
	TypeFloat      = "float"
	TypeDecimal    = "decimal"
	TypeBoolean    = "boolean"
	TypeDate       = "date"
	TypeTime       = "time"
	TypeDatetime   = "datetime"
	TypeBinary     = "binary"
	TypeUUID       = "uuid"
	TypeInterval   = "interval"
	TypeJSON       = "json"
	TypeList       = "list"
	TypeStruct     = "struct"
	TypeMapKind    = "map"
)

// TypeMods carries the size modifiers a column definition may specify.
// Limit is the byte width for integers and the character length for
// strings; Precision/Scale apply to decimals. Zero means unspecified.
type TypeMods struct {
	Limit     int
	Precision int
	Scale     int
}

// NativeTypeDef describes how one portable type renders in a dialect.
type NativeTypeDef struct {
	Name      string // native base name, e.g. "VARCHAR"
	Precision bool   // accepts (precision[,scale])
	Length    bool   // accepts (limit)
}

// IntegerWidth maps a byte-width ceiling to a native integer type.
// Entries are ordered ascending by MaxBytes.
type IntegerWidth struct {
	MaxBytes int
	Name     string
}

// TypeMap is a dialect's data-type mapping table.
type TypeMap struct {
	// ToNative maps portable type ids to native type definitions.
	ToNative map[string]NativeTypeDef
	// FromNative maps native base names (uppercase, unparameterized,
	// aliases included) back to portable type ids.
	FromNative map[string]string
	// IntegerWidths resolves an explicit integer byte limit to a native
	// type. Empty means the dialect has a single integer type.
	IntegerWidths []IntegerWidth
}

// NativeType renders the native type name for a portable type id with the
// given modifiers.
func (m *TypeMap) NativeType(generic string, mods TypeMods) (string, error) {
	def, ok := m.ToNative[generic]
	if !ok {
		return "", fmt.Errorf("no native type mapping for %q", generic)
	}

	// Dialects without width entries have a single integer type; the limit
	// is advisory there and ignored.
	if (generic == TypeInteger || generic == TypeBigint) && mods.Limit > 0 && len(m.IntegerWidths) > 0 {
		name, err := m.integerForLimit(mods.Limit)
		if err != nil {
			return "", err
		}
		return name, nil
	}

	if def.Precision && mods.Precision > 0 {
		if mods.Scale > 0 {
			return fmt.Sprintf("%s(%d,%d)", def.Name, mods.Precision, mods.Scale), nil
		}
		return fmt.Sprintf("%s(%d)", def.Name, mods.Precision), nil
	}

	if def.Length && mods.Limit > 0 {
		return fmt.Sprintf("%s(%d)", def.Name, mods.Limit), nil
	}

	return def.Name, nil
}

func (m *TypeMap) integerForLimit(limit int) (string, error) {
	for _, w := range m.IntegerWidths {
		if limit <= w.MaxBytes {
			return w.Name, nil
		}
	}
	return "", fmt.Errorf("no integer type with byte size %d", limit)
}

// GenericType resolves a native type name as reported by the engine back to
// a portable type id. Parameterized names (DECIMAL(10,2), VARCHAR(255)) and
// list suffixes (INTEGER[]) are handled; ok is false for unmapped types.
func (m *TypeMap) GenericType(native string) (generic string, mods TypeMods, ok bool) {
	name := strings.TrimSpace(native)
	if strings.HasSuffix(name, "[]") {
		return TypeList, TypeMods{}, true
	}

	base := name
	var params []int
	if i := strings.IndexByte(name, '('); i >= 0 {
		base = strings.TrimSpace(name[:i])
		params = parseTypeParams(name[i:])
	}

	generic, ok = m.FromNative[strings.ToUpper(base)]
	if !ok {
		return "", TypeMods{}, false
	}

	switch generic {
	case TypeDecimal, TypeFloat:
		if len(params) > 0 {
			mods.Precision = params[0]
		}
		if len(params) > 1 {
			mods.Scale = params[1]
		}
	default:
		if len(params) > 0 {
			mods.Limit = params[0]
		}
	}
	return generic, mods, true
}

// parseTypeParams extracts the integer parameters from a trailing
// "(p[,s])" group. Non-integer parameters (STRUCT fields, MAP entries)
// yield nothing.
func parseTypeParams(s string) []int {
	s = strings.TrimPrefix(s, "(")
	if i := strings.LastIndexByte(s, ')'); i >= 0 {
		s = s[:i]
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil
		}
		out = append(out, n)
	}
	return out
}
