// Package clause is a small SQL expression tree. Statements are built from
// plain values and handed to a dialect compiler, which renders them.
package clause

// Expression is any node that can appear where a SQL value is expected.
type Expression interface {
	expression()
}

// FromItem is any node that can appear in a FROM list.
type FromItem interface {
	fromItem()
}

// Column is a (possibly qualified) column reference. Raw columns are
// rendered verbatim, without quoting, e.g. ROWNUM.
type Column struct {
	Table string
	Name  string
	Raw   bool
}

// Star selects every column, optionally of one table.
type Star struct {
	Table string
}

// Expr is raw SQL text.
type Expr struct {
	SQL string
}

// Value is a constant rendered inline as a SQL literal.
type Value struct {
	Value any
}

// BindParam is a named bound parameter. Expanding binds take a slice and
// render one placeholder per element. LiteralExecute binds are rendered
// inline at execution time.
type BindParam struct {
	Name           string
	Value          any
	HasValue       bool
	Expanding      bool
	LiteralExecute bool
}

// Label names an expression in a column list.
type Label struct {
	Expr Expression
	Name string
}

// Binary is a two-operand expression such as a = b or a + b.
type Binary struct {
	Left  Expression
	Op    string
	Right Expression
}

// And joins conditions with AND. An empty And renders nothing.
type And struct {
	Exprs []Expression
}

// Or joins conditions with OR.
type Or struct {
	Exprs []Expression
}

type Not struct {
	Expr Expression
}

type IsNull struct {
	Expr   Expression
	Negate bool
}

// In is expr [NOT] IN (list). List is an expanding BindParam, a Tuple, a
// Select or an EmptySet.
type In struct {
	Expr   Expression
	List   Expression
	Negate bool
}

type Tuple struct {
	Exprs []Expression
}

// Func is a SQL function call. Well known generic names ("now",
// "char_length", "aggregate_strings") are translated by the dialect.
type Func struct {
	Name string
	Args []Expression
}

type When struct {
	Cond Expression
	Then Expression
}

type Case struct {
	Whens []When
	Else  Expression
}

type Like struct {
	Expr    Expression
	Pattern Expression
	Negate  bool
}

type Exists struct {
	Select *Select
}

// Boolean is a TRUE or FALSE constant.
type Boolean struct {
	Value bool
}

// DistinctFrom is a IS [NOT] DISTINCT FROM b.
type DistinctFrom struct {
	Left   Expression
	Right  Expression
	Negate bool
}

type RegexpMatch struct {
	Expr    Expression
	Pattern Expression
	Flags   *string
	Negate  bool
}

type RegexpReplace struct {
	Expr        Expression
	Pattern     Expression
	Replacement Expression
	Flags       *string
}

// Match is a full text match of Left against Right.
type Match struct {
	Left  Expression
	Right Expression
}

// OuterJoinColumn marks a column as the optional side of a non-ANSI outer
// join.
type OuterJoinColumn struct {
	Column Column
}

// Sequence renders the next value of a sequence.
type Sequence struct {
	Schema string
	Name   string
}

// EmptySet is a list that contains no rows.
type EmptySet struct{}

// Cast is CAST(expr AS type), the type already rendered.
type Cast struct {
	Expr Expression
	Type string
}

func (Column) expression()          {}
func (Star) expression()            {}
func (Expr) expression()            {}
func (Value) expression()           {}
func (BindParam) expression()       {}
func (Label) expression()           {}
func (Binary) expression()          {}
func (And) expression()             {}
func (Or) expression()              {}
func (Not) expression()             {}
func (IsNull) expression()          {}
func (In) expression()              {}
func (Tuple) expression()           {}
func (Func) expression()            {}
func (Case) expression()            {}
func (Like) expression()            {}
func (Exists) expression()          {}
func (Boolean) expression()         {}
func (DistinctFrom) expression()    {}
func (RegexpMatch) expression()     {}
func (RegexpReplace) expression()   {}
func (Match) expression()           {}
func (OuterJoinColumn) expression() {}
func (Sequence) expression()        {}
func (EmptySet) expression()        {}
func (Cast) expression()            {}

// Constructors. They keep the catalog queries readable.

func Col(table, name string) Column { return Column{Table: table, Name: name} }

func Raw(sql string) Column { return Column{Name: sql, Raw: true} }

func Val(v any) Value { return Value{Value: v} }

func Bind(name string) BindParam { return BindParam{Name: name} }

// BindValue is a bind with a value known at build time.
func BindValue(name string, v any) BindParam {
	return BindParam{Name: name, Value: v, HasValue: true}
}

// Expanding is a bind that receives a list at execution time.
func Expanding(name string) BindParam {
	return BindParam{Name: name, Expanding: true}
}

func Eq(l, r Expression) Binary  { return Binary{Left: l, Op: "=", Right: r} }
func Neq(l, r Expression) Binary { return Binary{Left: l, Op: "!=", Right: r} }
func Lt(l, r Expression) Binary  { return Binary{Left: l, Op: "<", Right: r} }
func Lte(l, r Expression) Binary { return Binary{Left: l, Op: "<=", Right: r} }
func Gt(l, r Expression) Binary  { return Binary{Left: l, Op: ">", Right: r} }
func Gte(l, r Expression) Binary { return Binary{Left: l, Op: ">=", Right: r} }
func Add(l, r Expression) Binary { return Binary{Left: l, Op: "+", Right: r} }
func Mod(l, r Expression) Binary { return Binary{Left: l, Op: "%", Right: r} }

func AndOf(exprs ...Expression) And { return And{Exprs: exprs} }
func OrOf(exprs ...Expression) Or   { return Or{Exprs: exprs} }

func InList(e Expression, list Expression) In    { return In{Expr: e, List: list} }
func NotInList(e Expression, list Expression) In { return In{Expr: e, List: list, Negate: true} }

func Fn(name string, args ...Expression) Func { return Func{Name: name, Args: args} }

func As(e Expression, name string) Label { return Label{Expr: e, Name: name} }

// Values builds an inline tuple of constants.
func Values[T any](vs ...T) Tuple {
	exprs := make([]Expression, len(vs))
	for i, v := range vs {
		exprs[i] = Value{Value: v}
	}
	return Tuple{Exprs: exprs}
}

// Conjoin ANDs a and b, dropping nil operands and flattening nested Ands.
func Conjoin(a, b Expression) Expression {
	var exprs []Expression
	for _, e := range []Expression{a, b} {
		switch v := e.(type) {
		case nil:
		case And:
			exprs = append(exprs, v.Exprs...)
		default:
			exprs = append(exprs, v)
		}
	}
	switch len(exprs) {
	case 0:
		return nil
	case 1:
		return exprs[0]
	}
	return And{Exprs: exprs}
}

// OutputName is the name a column expression is known by in a result set,
// or "" when the expression is anonymous.
func OutputName(e Expression) string {
	switch v := e.(type) {
	case Label:
		return v.Name
	case Column:
		if v.Raw {
			return ""
		}
		return v.Name
	case OuterJoinColumn:
		return v.Column.Name
	}
	return ""
}
