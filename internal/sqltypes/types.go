// Package sqltypes defines the abstract column types shared by the reflection
// assemblers and the type compiler.
package sqltypes

import "fmt"

// Type is an abstract column type. Concrete types are plain values; the
// dialect's type compiler turns them into DDL text.
type Type interface {
	sqlType()
}

// Affinity groups types by the kind of Go value they carry.
type Affinity int

const (
	AffinityNull Affinity = iota
	AffinityInteger
	AffinityNumeric
	AffinityFloat
	AffinityString
	AffinityBinary
	AffinityDateTime
	AffinityInterval
	AffinityBoolean
)

func (a Affinity) String() string {
	switch a {
	case AffinityInteger:
		return "integer"
	case AffinityNumeric:
		return "numeric"
	case AffinityFloat:
		return "float"
	case AffinityString:
		return "string"
	case AffinityBinary:
		return "binary"
	case AffinityDateTime:
		return "datetime"
	case AffinityInterval:
		return "interval"
	case AffinityBoolean:
		return "boolean"
	default:
		return "null"
	}
}

// --- Numeric ---

type Integer struct{}
type SmallInteger struct{}
type BigInteger struct{}

// Numeric is the generic fixed-point type.
type Numeric struct {
	Precision *int
	Scale     *int
}

// Number is the native NUMBER(p, s) type.
type Number struct {
	Precision *int
	Scale     *int
}

// Float carries either a decimal Precision (generic float) or an explicit
// BinaryPrecision (native FLOAT). The two are different units.
type Float struct {
	Precision       *int
	BinaryPrecision *int
}

type Double struct{}
type DoublePrecision struct{}
type Real struct{}
type BinaryDouble struct{}
type BinaryFloat struct{}

// --- Character ---

// String is the generic variable-length string; Length 0 means unbounded.
type String struct{ Length int }

// Unicode is a generic string that must hold any character.
type Unicode struct{ Length int }

type VarChar struct{ Length int }
type NVarChar struct{ Length int }
type VarChar2 struct{ Length int }
type NVarChar2 struct{ Length int }
type Char struct{ Length int }
type NChar struct{ Length int }

type Text struct{}
type UnicodeText struct{}
type CLOB struct{}
type NCLOB struct{}
type Long struct{}

// --- Binary ---

type LargeBinary struct{}
type BLOB struct{}
type BFILE struct{}
type Raw struct{ Length int }
type RowID struct{}

// --- Temporal ---

// Date is the native DATE, which also stores a time of day.
type Date struct{}

// DateTime is the generic timestamp without fractional seconds.
type DateTime struct{}

type Timestamp struct {
	Timezone      bool
	LocalTimezone bool
}

type Interval struct {
	DayPrecision    *int
	SecondPrecision *int
}

// --- Other ---

type Boolean struct{}

// NullType stands for a catalog type that could not be recognized.
type NullType struct{}

func (Integer) sqlType()         {}
func (SmallInteger) sqlType()    {}
func (BigInteger) sqlType()      {}
func (Numeric) sqlType()         {}
func (Number) sqlType()          {}
func (Float) sqlType()           {}
func (Double) sqlType()          {}
func (DoublePrecision) sqlType() {}
func (Real) sqlType()            {}
func (BinaryDouble) sqlType()    {}
func (BinaryFloat) sqlType()     {}
func (String) sqlType()          {}
func (Unicode) sqlType()         {}
func (VarChar) sqlType()         {}
func (NVarChar) sqlType()        {}
func (VarChar2) sqlType()        {}
func (NVarChar2) sqlType()       {}
func (Char) sqlType()            {}
func (NChar) sqlType()           {}
func (Text) sqlType()            {}
func (UnicodeText) sqlType()     {}
func (CLOB) sqlType()            {}
func (NCLOB) sqlType()           {}
func (Long) sqlType()            {}
func (LargeBinary) sqlType()     {}
func (BLOB) sqlType()            {}
func (BFILE) sqlType()           {}
func (Raw) sqlType()             {}
func (RowID) sqlType()           {}
func (Date) sqlType()            {}
func (DateTime) sqlType()        {}
func (Timestamp) sqlType()       {}
func (Interval) sqlType()        {}
func (Boolean) sqlType()         {}
func (NullType) sqlType()        {}

// AffinityOf reports the value affinity of t.
func AffinityOf(t Type) Affinity {
	switch t.(type) {
	case Integer, SmallInteger, BigInteger:
		return AffinityInteger
	case Number, Numeric:
		return AffinityNumeric
	case Float, Double, DoublePrecision, Real, BinaryDouble, BinaryFloat:
		return AffinityFloat
	case String, Unicode, VarChar, NVarChar, VarChar2, NVarChar2, Char, NChar,
		Text, UnicodeText, CLOB, NCLOB, Long, RowID:
		return AffinityString
	case LargeBinary, BLOB, BFILE, Raw:
		return AffinityBinary
	case Date, DateTime, Timestamp:
		return AffinityDateTime
	case Interval:
		return AffinityInterval
	case Boolean:
		return AffinityBoolean
	default:
		return AffinityNull
	}
}

// Describe renders a short, dialect-neutral description of t for logs and
// error messages.
func Describe(t Type) string {
	switch v := t.(type) {
	case Number:
		return "NUMBER" + precisionSuffix(v.Precision, v.Scale)
	case Numeric:
		return "NUMERIC" + precisionSuffix(v.Precision, v.Scale)
	case Float:
		if v.BinaryPrecision != nil {
			return fmt.Sprintf("FLOAT(binary_precision=%d)", *v.BinaryPrecision)
		}
		return "FLOAT" + precisionSuffix(v.Precision, nil)
	case VarChar:
		return lengthSuffix("VARCHAR", v.Length)
	case NVarChar:
		return lengthSuffix("NVARCHAR", v.Length)
	case VarChar2:
		return lengthSuffix("VARCHAR2", v.Length)
	case NVarChar2:
		return lengthSuffix("NVARCHAR2", v.Length)
	case Char:
		return lengthSuffix("CHAR", v.Length)
	case NChar:
		return lengthSuffix("NCHAR", v.Length)
	case Raw:
		return lengthSuffix("RAW", v.Length)
	case Timestamp:
		switch {
		case v.LocalTimezone:
			return "TIMESTAMP WITH LOCAL TIME ZONE"
		case v.Timezone:
			return "TIMESTAMP WITH TIME ZONE"
		}
		return "TIMESTAMP"
	case nil:
		return "NULL"
	}
	return fmt.Sprintf("%T", t)[len("sqltypes."):]
}

func precisionSuffix(p, s *int) string {
	switch {
	case p == nil:
		return ""
	case s == nil:
		return fmt.Sprintf("(%d)", *p)
	default:
		return fmt.Sprintf("(%d, %d)", *p, *s)
	}
}

func lengthSuffix(name string, n int) string {
	if n == 0 {
		return name
	}
	return fmt.Sprintf("%s(%d)", name, n)
}

// IntPtr returns a pointer to n.
func IntPtr(n int) *int { return &n }
