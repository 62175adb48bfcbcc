package dialect

import (
	"fmt"

	"github.com/faucetdb/tibero/internal/sqltypes"
)

// CompileType renders t as Tibero column type text.
//
// DATE stores a time of day and has no fractional seconds, so the generic
// DateTime maps to it. There is no TIME type.
func (d *Dialect) CompileType(t sqltypes.Type) (string, error) {
	switch v := t.(type) {
	case sqltypes.Integer:
		return "INTEGER", nil
	case sqltypes.SmallInteger, sqltypes.Boolean:
		return "SMALLINT", nil
	case sqltypes.BigInteger:
		return numeric("NUMBER", sqltypes.IntPtr(19), nil), nil
	case sqltypes.Number:
		return numeric("NUMBER", v.Precision, v.Scale), nil
	case sqltypes.Numeric:
		return numeric("NUMERIC", v.Precision, v.Scale), nil
	case sqltypes.Float:
		return floatType(v)
	case sqltypes.Double, sqltypes.DoublePrecision:
		return "DOUBLE PRECISION", nil
	case sqltypes.Real:
		return "REAL", nil
	case sqltypes.BinaryDouble:
		return "BINARY_DOUBLE", nil
	case sqltypes.BinaryFloat:
		return "BINARY_FLOAT", nil

	case sqltypes.String:
		return d.varchar(v.Length, "", "2"), nil
	case sqltypes.VarChar2:
		return d.varchar(v.Length, "", "2"), nil
	case sqltypes.VarChar:
		return d.varchar(v.Length, "", ""), nil
	case sqltypes.NVarChar:
		return d.varchar(v.Length, "N", "2"), nil
	case sqltypes.NVarChar2:
		return d.varchar(v.Length, "N", "2"), nil
	case sqltypes.Unicode:
		if d.opts.UseNCharForUnicode {
			return d.varchar(v.Length, "N", "2"), nil
		}
		return d.varchar(v.Length, "", "2"), nil
	case sqltypes.Char:
		return sized("CHAR", v.Length), nil
	case sqltypes.NChar:
		return sized("NCHAR", v.Length), nil
	case sqltypes.Text, sqltypes.CLOB:
		return "CLOB", nil
	case sqltypes.UnicodeText:
		if d.opts.UseNCharForUnicode {
			return "NCLOB", nil
		}
		return "CLOB", nil
	case sqltypes.NCLOB:
		return "NCLOB", nil
	case sqltypes.Long:
		return "LONG", nil

	case sqltypes.LargeBinary, sqltypes.BLOB:
		return "BLOB", nil
	case sqltypes.BFILE:
		return "BFILE", nil
	case sqltypes.Raw:
		return sized("RAW", v.Length), nil
	case sqltypes.RowID:
		return "ROWID", nil

	case sqltypes.Date, sqltypes.DateTime:
		return "DATE", nil
	case sqltypes.Timestamp:
		switch {
		case v.LocalTimezone:
			return "TIMESTAMP WITH LOCAL TIME ZONE", nil
		case v.Timezone:
			return "TIMESTAMP WITH TIME ZONE", nil
		}
		return "TIMESTAMP", nil
	case sqltypes.Interval:
		s := "INTERVAL DAY"
		if v.DayPrecision != nil {
			s += fmt.Sprintf("(%d)", *v.DayPrecision)
		}
		s += " TO SECOND"
		if v.SecondPrecision != nil {
			s += fmt.Sprintf("(%d)", *v.SecondPrecision)
		}
		return s, nil
	}
	return "", compileErrorf("can't generate DDL for %s", sqltypes.Describe(t))
}

// FLOAT takes a binary precision. A decimal precision does not convert
// cleanly, so it is refused with the estimated binary value.
func floatType(v sqltypes.Float) (string, error) {
	if v.BinaryPrecision == nil && v.Precision != nil && *v.Precision != 0 {
		estimate := int(float64(*v.Precision) / 0.30103)
		return "", &ArgumentError{Message: fmt.Sprintf(
			"Tibero FLOAT types use 'binary precision', which does not convert "+
				"cleanly from decimal 'precision'. Specify the type as "+
				"Float{BinaryPrecision: %d} instead of Float{Precision: %d} so "+
				"that binary_precision=%d is given accurately.",
			estimate, *v.Precision, estimate)}
	}
	return numeric("FLOAT", v.BinaryPrecision, nil), nil
}

func numeric(name string, precision, scale *int) string {
	switch {
	case precision == nil:
		return name
	case scale == nil:
		return fmt.Sprintf("%s(%d)", name, *precision)
	}
	return fmt.Sprintf("%s(%d, %d)", name, *precision, *scale)
}

func sized(name string, n int) string {
	if n == 0 {
		return name
	}
	return fmt.Sprintf("%s(%d)", name, n)
}

// varchar renders the VARCHAR family. Non national types get CHAR length
// semantics when the server supports them.
func (d *Dialect) varchar(length int, n, two string) string {
	switch {
	case length == 0:
		return n + "VARCHAR" + two
	case n == "" && d.opts.SupportsCharLength:
		return fmt.Sprintf("VARCHAR%s(%d CHAR)", two, length)
	}
	return fmt.Sprintf("%sVARCHAR%s(%d)", n, two, length)
}
