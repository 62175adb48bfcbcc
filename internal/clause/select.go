package clause

// Statement is anything a dialect can compile on its own.
type Statement interface {
	statement()
}

// Table is a named table or view, optionally schema qualified and aliased.
type Table struct {
	Schema string
	Name   string
	Alias  string
}

// Ref returns the name other expressions use to qualify this table's
// columns.
func (t Table) Ref() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Name
}

// C returns a column of t qualified by its reference name.
func (t Table) C(name string) Column { return Column{Table: t.Ref(), Name: name} }

// Join is Left [LEFT OUTER|FULL OUTER] JOIN Right ON On.
type Join struct {
	Left  FromItem
	Right FromItem
	On    Expression
	Outer bool
	Full  bool
}

// Grouping is a parenthesized FROM item.
type Grouping struct {
	Item FromItem
}

// Subquery is a SELECT or compound select used as a FROM item under Alias.
type Subquery struct {
	Query Statement
	Alias string
}

// C returns a column of the subquery.
func (s Subquery) C(name string) Column { return Column{Table: s.Alias, Name: name} }

// TableFunc is a table-valued function in a FROM list.
type TableFunc struct {
	Func  Func
	Alias string
}

func (Table) fromItem()     {}
func (Join) fromItem()      {}
func (Grouping) fromItem()  {}
func (Subquery) fromItem()  {}
func (TableFunc) fromItem() {}

type OrderBy struct {
	Expr Expression
	Desc bool
}

// ForUpdate is the row locking clause.
type ForUpdate struct {
	Of         []Expression
	NoWait     bool
	SkipLocked bool
}

// Fetch is an explicit FETCH FIRST clause.
type Fetch struct {
	Count    Expression
	Percent  bool
	WithTies bool
}

// Select is a SELECT statement. A *Select is also an Expression (a scalar
// subquery) when nested in another statement.
type Select struct {
	Hints     []string
	Distinct  bool
	Columns   []Expression
	From      []FromItem
	Where     Expression
	GroupBy   []Expression
	Having    Expression
	OrderBy   []OrderBy
	Limit     Expression
	Offset    Expression
	Fetch     *Fetch
	ForUpdate *ForUpdate

	rewritten bool
}

func (*Select) expression() {}
func (*Select) statement()  {}

// NewSelect starts a SELECT of cols.
func NewSelect(cols ...Expression) *Select {
	return &Select{Columns: cols}
}

// Clone returns a shallow copy whose slices can be appended to without
// affecting s.
func (s *Select) Clone() *Select {
	c := *s
	c.Hints = append([]string(nil), s.Hints...)
	c.Columns = append([]Expression(nil), s.Columns...)
	c.From = append([]FromItem(nil), s.From...)
	c.GroupBy = append([]Expression(nil), s.GroupBy...)
	c.OrderBy = append([]OrderBy(nil), s.OrderBy...)
	if s.ForUpdate != nil {
		fu := *s.ForUpdate
		fu.Of = append([]Expression(nil), s.ForUpdate.Of...)
		c.ForUpdate = &fu
	}
	return &c
}

// Select helpers return s so queries read top to bottom.

func (s *Select) SelectFrom(items ...FromItem) *Select {
	s.From = append(s.From, items...)
	return s
}

func (s *Select) Filter(conds ...Expression) *Select {
	for _, c := range conds {
		s.Where = Conjoin(s.Where, c)
	}
	return s
}

func (s *Select) Order(items ...OrderBy) *Select {
	s.OrderBy = append(s.OrderBy, items...)
	return s
}

func (s *Select) AddColumns(cols ...Expression) *Select {
	s.Columns = append(s.Columns, cols...)
	return s
}

// Rewritten reports whether the dialect already restructured s.
func (s *Select) Rewritten() bool { return s.rewritten }

// MarkRewritten flags s so dialect rewrites are not applied again.
func (s *Select) MarkRewritten() { s.rewritten = true }

// HasRowLimit reports whether s carries LIMIT or OFFSET.
func (s *Select) HasRowLimit() bool { return s.Limit != nil || s.Offset != nil }

// Compound joins selects with UNION, UNION ALL, INTERSECT or EXCEPT.
type Compound struct {
	Op      string
	Selects []*Select
	OrderBy []OrderBy
}

func (*Compound) statement()  {}
func (*Compound) expression() {}

func UnionAll(selects ...*Select) *Compound {
	return &Compound{Op: "UNION ALL", Selects: selects}
}

func Except(selects ...*Select) *Compound {
	return &Compound{Op: "EXCEPT", Selects: selects}
}

// Assignment is one column = value pair in INSERT or UPDATE.
type Assignment struct {
	Column string
	Value  Expression
}

type Insert struct {
	Table     Table
	Values    []Assignment
	Returning []Expression
}

type Update struct {
	Table     Table
	Set       []Assignment
	Where     Expression
	Returning []Expression
}

type Delete struct {
	Table     Table
	Where     Expression
	Returning []Expression
}

func (*Insert) statement() {}
func (*Update) statement() {}
func (*Delete) statement() {}
