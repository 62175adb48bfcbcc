package openapi

import (
	"strconv"
	"strings"

	"github.com/faucetdb/tibero/internal/model"
	"github.com/faucetdb/tibero/internal/sqltypes"
)

// TypeMapping maps database column types to OpenAPI type/format pairs.
type TypeMapping struct {
	Type   string // OpenAPI type: string, integer, number, boolean
	Format string // OpenAPI format: int32, int64, float, double, decimal, date-time, duration, byte
}

// NUMBER values travel as decimal strings so no digit is lost.
var decimalMapping = TypeMapping{"string", "decimal"}

// dataTypeToOpenAPI maps the reflected data type names, lowercased with the
// size stripped, to OpenAPI types.
var dataTypeToOpenAPI = map[string]TypeMapping{
	// Integer types
	"integer":      {"integer", ""},
	"int":          {"integer", ""},
	"smallint":     {"integer", "int32"},
	"smallinteger": {"integer", "int32"},
	"biginteger":   {"integer", "int64"},

	// Fixed point
	"number":  decimalMapping,
	"numeric": decimalMapping,
	"decimal": decimalMapping,

	// Float types
	"float":            {"number", "double"},
	"double":           {"number", "double"},
	"double precision": {"number", "double"},
	"doubleprecision":  {"number", "double"},
	"binary_double":    {"number", "double"},
	"binarydouble":     {"number", "double"},
	"real":             {"number", "float"},
	"binary_float":     {"number", "float"},
	"binaryfloat":      {"number", "float"},

	// String types
	"varchar":     {"string", ""},
	"varchar2":    {"string", ""},
	"nvarchar":    {"string", ""},
	"nvarchar2":   {"string", ""},
	"char":        {"string", ""},
	"nchar":       {"string", ""},
	"string":      {"string", ""},
	"unicode":     {"string", ""},
	"text":        {"string", ""},
	"unicodetext": {"string", ""},
	"clob":        {"string", ""},
	"nclob":       {"string", ""},
	"long":        {"string", ""},
	"rowid":       {"string", ""},
	"urowid":      {"string", ""},
	"xmltype":     {"string", ""},

	// Date/time types. DATE carries a time of day.
	"date":      {"string", "date-time"},
	"datetime":  {"string", "date-time"},
	"timestamp": {"string", "date-time"},
	"interval":  {"string", "duration"},

	// Boolean
	"boolean": {"boolean", ""},

	// Binary
	"blob":        {"string", "byte"},
	"bfile":       {"string", "byte"},
	"raw":         {"string", "byte"},
	"long raw":    {"string", "byte"},
	"largebinary": {"string", "byte"},
}

// MapDataType converts a reflected data type such as "NUMBER(10, 2)" or
// "TIMESTAMP WITH TIME ZONE" to an OpenAPI type mapping. Falls back to
// {"string", ""} for unknown types.
func MapDataType(dataType string) TypeMapping {
	normalized := strings.ToLower(strings.TrimSpace(dataType))

	// "number(10, 2)" -> "number", "timestamp(6) with time zone" -> "timestamp"
	if idx := strings.IndexByte(normalized, '('); idx >= 0 {
		normalized = strings.TrimSpace(normalized[:idx])
	}
	switch {
	case strings.HasPrefix(normalized, "timestamp"):
		normalized = "timestamp"
	case strings.HasPrefix(normalized, "interval"):
		normalized = "interval"
	}

	if normalized == "number" {
		if m, ok := numberFromDataType(dataType); ok {
			return m
		}
	}
	if m, ok := dataTypeToOpenAPI[normalized]; ok {
		return m
	}
	return TypeMapping{"string", ""}
}

// MapColumn maps a reflected column, preferring its resolved type over the
// data type text.
func MapColumn(col model.Column) TypeMapping {
	if col.Type == nil {
		return MapDataType(col.DataType)
	}
	switch t := col.Type.(type) {
	case sqltypes.Number:
		return numberMapping(t.Precision, t.Scale)
	case sqltypes.Numeric:
		return numberMapping(t.Precision, t.Scale)
	case sqltypes.Integer:
		return TypeMapping{"integer", ""}
	case sqltypes.SmallInteger:
		return TypeMapping{"integer", "int32"}
	case sqltypes.BigInteger:
		return TypeMapping{"integer", "int64"}
	case sqltypes.Real, sqltypes.BinaryFloat:
		return TypeMapping{"number", "float"}
	}

	switch sqltypes.AffinityOf(col.Type) {
	case sqltypes.AffinityFloat:
		return TypeMapping{"number", "double"}
	case sqltypes.AffinityBinary:
		return TypeMapping{"string", "byte"}
	case sqltypes.AffinityDateTime:
		return TypeMapping{"string", "date-time"}
	case sqltypes.AffinityInterval:
		return TypeMapping{"string", "duration"}
	case sqltypes.AffinityBoolean:
		return TypeMapping{"boolean", ""}
	}
	return TypeMapping{"string", ""}
}

// numberMapping maps NUMBER(p, 0) to an integer when it fits in 64 bits.
func numberMapping(precision, scale *int) TypeMapping {
	if precision == nil || scale == nil || *scale != 0 {
		return decimalMapping
	}
	switch p := *precision; {
	case p <= 9:
		return TypeMapping{"integer", "int32"}
	case p <= 18:
		return TypeMapping{"integer", "int64"}
	}
	return decimalMapping
}

// numberFromDataType parses the precision and scale of "NUMBER(p)" or
// "NUMBER(p, s)".
func numberFromDataType(dataType string) (TypeMapping, bool) {
	open := strings.IndexByte(dataType, '(')
	end := strings.LastIndexByte(dataType, ')')
	if open < 0 || end < open {
		return TypeMapping{}, false
	}
	parts := strings.Split(dataType[open+1:end], ",")
	if len(parts) > 2 {
		return TypeMapping{}, false
	}
	nums := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			return TypeMapping{}, false
		}
		nums = append(nums, n)
	}
	scale := 0
	if len(nums) == 2 {
		scale = nums[1]
	}
	return numberMapping(&nums[0], &scale), true
}
