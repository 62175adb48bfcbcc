package dialect

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/faucetdb/tibero/internal/model"
	"github.com/faucetdb/tibero/internal/sqltypes"
)

// Processor converts one value on its way to or from the driver. A nil
// Processor passes values through.
type Processor func(any) (any, error)

// BindProcessor returns the conversion applied to bind values of type t.
// Fractional numerics travel as decimal.Decimal so no precision is lost in
// a float64; integral NUMBER values are passed unchanged.
func BindProcessor(t sqltypes.Type) Processor {
	switch v := t.(type) {
	case sqltypes.Number:
		return numericBind(v.Scale)
	case sqltypes.Numeric:
		return numericBind(v.Scale)
	case sqltypes.Float, sqltypes.Double, sqltypes.DoublePrecision, sqltypes.Real,
		sqltypes.BinaryDouble, sqltypes.BinaryFloat:
		return toFloat
	case sqltypes.Boolean:
		return func(v any) (any, error) {
			if b, ok := v.(bool); ok {
				if b {
					return 1, nil
				}
				return 0, nil
			}
			return v, nil
		}
	}
	return nil
}

func numericBind(scale *int) Processor {
	if scale != nil && *scale == 0 {
		return nil
	}
	return func(v any) (any, error) {
		switch x := v.(type) {
		case nil:
			return nil, nil
		case float64:
			if math.IsInf(x, 0) || math.IsNaN(x) {
				return x, nil
			}
			return decimal.NewFromFloat(x), nil
		case float32:
			return decimal.NewFromFloat32(x), nil
		case int:
			return decimal.NewFromInt(int64(x)), nil
		case int32:
			return decimal.NewFromInt32(x), nil
		case int64:
			return decimal.NewFromInt(x), nil
		}
		return v, nil
	}
}

// ResultProcessor returns the conversion applied to fetched values of
// type t. The ODBC driver hands NUMBER back as text, which keeps every
// digit.
func ResultProcessor(t sqltypes.Type) Processor {
	switch t.(type) {
	case sqltypes.Integer, sqltypes.SmallInteger, sqltypes.BigInteger:
		return toInt
	case sqltypes.Number, sqltypes.Numeric:
		return toDecimal
	case sqltypes.Float, sqltypes.Double, sqltypes.DoublePrecision, sqltypes.Real,
		sqltypes.BinaryDouble, sqltypes.BinaryFloat:
		return toFloat
	case sqltypes.Boolean:
		return toBool
	case sqltypes.Date:
		return func(v any) (any, error) {
			if ts, ok := v.(time.Time); ok {
				return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, ts.Location()), nil
			}
			return v, nil
		}
	case sqltypes.String, sqltypes.Unicode, sqltypes.VarChar, sqltypes.NVarChar,
		sqltypes.VarChar2, sqltypes.NVarChar2, sqltypes.Char, sqltypes.NChar,
		sqltypes.Text, sqltypes.UnicodeText, sqltypes.CLOB, sqltypes.NCLOB, sqltypes.Long:
		return func(v any) (any, error) {
			if b, ok := v.([]byte); ok {
				return string(b), nil
			}
			return v, nil
		}
	}
	return nil
}

// Apply runs p on v, passing v through when p is nil.
func (p Processor) Apply(v any) (any, error) {
	if p == nil || v == nil {
		return v, nil
	}
	return p(v)
}

func toDecimal(v any) (any, error) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, nil
	case []byte:
		return parseDecimal(string(x))
	case string:
		return parseDecimal(x)
	case int64:
		return decimal.NewFromInt(x), nil
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case float64:
		return decimal.NewFromFloat(x), nil
	}
	return nil, fmt.Errorf("cannot convert %T to decimal", v)
}

func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse numeric %q: %w", s, err)
	}
	return d, nil
}

func toInt(v any) (any, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case float64:
		return int64(x), nil
	case []byte:
		return toInt(string(x))
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err == nil {
			return n, nil
		}
		d, derr := parseDecimal(x)
		if derr != nil {
			return nil, derr
		}
		return d.IntPart(), nil
	case decimal.Decimal:
		return x.IntPart(), nil
	}
	return nil, fmt.Errorf("cannot convert %T to integer", v)
}

func toFloat(v any) (any, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int:
		return float64(x), nil
	case decimal.Decimal:
		return x.InexactFloat64(), nil
	case []byte:
		return toFloat(string(x))
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil, fmt.Errorf("parse float %q: %w", x, err)
		}
		return f, nil
	}
	return nil, fmt.Errorf("cannot convert %T to float", v)
}

func toBool(v any) (any, error) {
	n, err := toInt(v)
	if err != nil {
		return nil, err
	}
	return n.(int64) != 0, nil
}

// ProcessRow converts a fetched row in place using the types of the
// reflected columns. Columns without a processor are left alone.
func ProcessRow(row Row, columns []model.Column) error {
	for _, c := range columns {
		v, ok := row[c.Name]
		if !ok {
			continue
		}
		out, err := ResultProcessor(c.Type).Apply(v)
		if err != nil {
			return fmt.Errorf("column %s: %w", c.Name, err)
		}
		row[c.Name] = out
	}
	return nil
}
