package dialect

import (
	"fmt"
	"strings"

	"github.com/faucetdb/tibero/internal/clause"
)

// compiler renders one statement. It is not reused across statements.
type compiler struct {
	d     *Dialect
	frags []fragment
	buf   strings.Builder
	names map[string]bool
	order []string

	// depth is 0 for the statement being compiled and grows for every
	// nested select. FOR UPDATE is only rendered at depth 0.
	depth int
	// anon numbers the aliases invented by the row limit rewrite.
	anon int
	// literalBinds renders binds inline, as DDL requires.
	literalBinds bool
	// inColumns is set while rendering a select's column list.
	inColumns bool

	err error
}

func (d *Dialect) newCompiler() *compiler {
	return &compiler{d: d, names: map[string]bool{}}
}

// Compile renders stmt for Tibero. Select statements are rewritten first:
// joins are flattened when UseANSI is off and LIMIT/OFFSET are emulated
// with ROWNUM when EnableOffsetFetch is off.
func (d *Dialect) Compile(stmt clause.Statement) (*Compiled, error) {
	c := d.newCompiler()
	c.statement(stmt)
	return c.finish()
}

// CompileSQL compiles stmt and renders it with params in one step.
func (d *Dialect) CompileSQL(stmt clause.Statement, params map[string]any) (string, []any, error) {
	compiled, err := d.Compile(stmt)
	if err != nil {
		return "", nil, err
	}
	return compiled.Render(params, ExecOptions{})
}

func (c *compiler) finish() (*Compiled, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.flush()
	return &Compiled{frags: c.frags, names: c.order}, nil
}

func (c *compiler) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

func (c *compiler) write(s string) { c.buf.WriteString(s) }

func (c *compiler) flush() {
	if c.buf.Len() > 0 {
		c.frags = append(c.frags, fragment{text: c.buf.String()})
		c.buf.Reset()
	}
}

func (c *compiler) bind(b clause.BindParam) {
	if c.literalBinds && !b.Expanding {
		if !b.HasValue {
			c.fail(compileErrorf("bind %s has no value and cannot be rendered inline", b.Name))
			return
		}
		lit, err := literal(b.Value)
		if err != nil {
			c.fail(err)
			return
		}
		c.write(lit)
		return
	}
	c.flush()
	bp := b
	c.frags = append(c.frags, fragment{bind: &bp})
	if !c.names[b.Name] {
		c.names[b.Name] = true
		c.order = append(c.order, b.Name)
	}
}

func (c *compiler) quote(name string) string { return c.d.names.Quote(name) }

func (c *compiler) statement(stmt clause.Statement) {
	switch s := stmt.(type) {
	case *clause.Select:
		c.selectStmt(s)
	case *clause.Compound:
		c.compound(s)
	case *clause.Insert:
		c.insert(s)
	case *clause.Update:
		c.update(s)
	case *clause.Delete:
		c.delete(s)
	default:
		c.fail(compileErrorf("unsupported statement %T", stmt))
	}
}

func (c *compiler) selectStmt(s *clause.Select) {
	if err := c.d.checkRowLimit(s); err != nil {
		c.fail(err)
		return
	}
	if !s.Rewritten() {
		s = c.d.rewrite(s, &c.anon)
	}

	c.write("SELECT ")
	for _, h := range s.Hints {
		c.write("/*+ " + h + " */ ")
	}
	if s.Distinct {
		c.write("DISTINCT ")
	}

	c.inColumns = true
	for i, col := range s.Columns {
		if i > 0 {
			c.write(", ")
		}
		c.expr(col)
	}
	c.inColumns = false

	if len(s.From) == 0 {
		c.write(" FROM DUAL")
	} else {
		c.write(" FROM ")
		for i, f := range s.From {
			if i > 0 {
				c.write(", ")
			}
			c.from(f)
		}
	}

	if s.Where != nil {
		c.write(" WHERE ")
		c.expr(s.Where)
	}
	if len(s.GroupBy) > 0 {
		c.write(" GROUP BY ")
		c.exprList(s.GroupBy)
	}
	if s.Having != nil {
		c.write(" HAVING ")
		c.expr(s.Having)
	}
	c.orderBy(s.OrderBy)
	c.rowLimit(s)
	c.forUpdate(s)
}

func (c *compiler) orderBy(items []clause.OrderBy) {
	if len(items) == 0 {
		return
	}
	c.write(" ORDER BY ")
	for i, o := range items {
		if i > 0 {
			c.write(", ")
		}
		c.expr(o.Expr)
		if o.Desc {
			c.write(" DESC")
		}
	}
}

// rowLimit renders OFFSET/FETCH. When offset fetch is disabled the rewrite
// has already moved LIMIT and OFFSET into ROWNUM predicates, so only an
// explicit FETCH clause is rendered.
func (c *compiler) rowLimit(s *clause.Select) {
	if s.Fetch == nil && !(c.d.opts.EnableOffsetFetch && s.HasRowLimit()) {
		return
	}
	if s.Offset != nil {
		c.write(" OFFSET ")
		c.expr(literalExecute(s.Offset))
		c.write(" ROWS")
	}
	switch {
	case s.Fetch != nil:
		c.write(" FETCH FIRST ")
		c.expr(literalExecute(s.Fetch.Count))
		if s.Fetch.Percent {
			c.write(" PERCENT")
		}
		if s.Fetch.WithTies {
			c.write(" ROWS WITH TIES")
		} else {
			c.write(" ROWS ONLY")
		}
	case s.Limit != nil:
		c.write(" FETCH FIRST ")
		c.expr(literalExecute(s.Limit))
		c.write(" ROWS ONLY")
	}
}

// literalExecute marks integer binds to be rendered inline at execution.
func literalExecute(e clause.Expression) clause.Expression {
	if b, ok := e.(clause.BindParam); ok {
		if _, ok := simpleInt(b); ok {
			b.LiteralExecute = true
			return b
		}
	}
	return e
}

func (c *compiler) forUpdate(s *clause.Select) {
	if s.ForUpdate == nil || c.depth > 0 {
		return
	}
	c.write(" FOR UPDATE")
	if len(s.ForUpdate.Of) > 0 {
		c.write(" OF ")
		c.exprList(s.ForUpdate.Of)
	}
	if s.ForUpdate.NoWait {
		c.write(" NOWAIT")
	}
	if s.ForUpdate.SkipLocked {
		c.write(" SKIP LOCKED")
	}
}

func (c *compiler) compound(s *clause.Compound) {
	op := s.Op
	if strings.HasPrefix(op, "EXCEPT") {
		op = "MINUS"
	}
	c.depth++
	for i, sel := range s.Selects {
		if i > 0 {
			c.write(" " + op + " ")
		}
		c.selectStmt(sel)
	}
	c.depth--
	c.orderBy(s.OrderBy)
}

// nested renders a select (or compound) in parentheses one level deeper.
func (c *compiler) nested(stmt clause.Statement) {
	c.depth++
	saved := c.inColumns
	c.inColumns = false
	c.write("(")
	c.statement(stmt)
	c.write(")")
	c.inColumns = saved
	c.depth--
}

func (c *compiler) from(f clause.FromItem) {
	switch v := f.(type) {
	case clause.Table:
		c.write(c.d.names.QuoteSchema(v.Schema, v.Name))
		if v.Alias != "" {
			// no AS before a table alias
			c.write(" " + c.quote(v.Alias))
		}
	case clause.Join:
		c.from(v.Left)
		if !c.d.opts.UseANSI {
			right := v.Right
			if g, ok := right.(clause.Grouping); ok {
				right = g.Item
			}
			c.write(", ")
			c.from(right)
			return
		}
		switch {
		case v.Full:
			c.write(" FULL OUTER JOIN ")
		case v.Outer:
			c.write(" LEFT OUTER JOIN ")
		default:
			c.write(" JOIN ")
		}
		c.from(v.Right)
		if v.On != nil {
			c.write(" ON ")
			c.expr(v.On)
		}
	case clause.Grouping:
		c.write("(")
		c.from(v.Item)
		c.write(")")
	case clause.Subquery:
		c.nested(v.Query)
		c.write(" " + c.quote(v.Alias))
	case clause.TableFunc:
		c.write("TABLE (")
		c.function(v.Func)
		c.write(")")
		if v.Alias != "" {
			c.write(" " + c.quote(v.Alias))
		}
	default:
		c.fail(compileErrorf("unsupported FROM item %T", f))
	}
}

func (c *compiler) exprList(exprs []clause.Expression) {
	for i, e := range exprs {
		if i > 0 {
			c.write(", ")
		}
		c.expr(e)
	}
}

func (c *compiler) expr(e clause.Expression) {
	switch v := e.(type) {
	case nil:
		c.write("NULL")
	case clause.Column:
		c.column(v)
	case clause.Star:
		if v.Table != "" {
			c.write(c.quote(v.Table) + ".")
		}
		c.write("*")
	case clause.Expr:
		c.write(v.SQL)
	case clause.Value:
		lit, err := literal(v.Value)
		if err != nil {
			c.fail(err)
			return
		}
		c.write(lit)
	case clause.BindParam:
		c.bind(v)
	case clause.Label:
		inCols := c.inColumns
		c.inColumns = false
		c.expr(v.Expr)
		c.inColumns = inCols
		if inCols {
			c.write(" AS " + c.quote(v.Name))
		}
	case clause.Binary:
		c.binary(v)
	case clause.And:
		c.conjunction(v.Exprs, " AND ")
	case clause.Or:
		c.conjunction(v.Exprs, " OR ")
	case clause.Not:
		c.write("NOT (")
		c.expr(v.Expr)
		c.write(")")
	case clause.IsNull:
		c.expr(v.Expr)
		if v.Negate {
			c.write(" IS NOT NULL")
		} else {
			c.write(" IS NULL")
		}
	case clause.In:
		c.in(v)
	case clause.Tuple:
		c.write("(")
		c.exprList(v.Exprs)
		c.write(")")
	case clause.Func:
		c.function(v)
	case clause.Case:
		c.write("CASE")
		for _, w := range v.Whens {
			c.write(" WHEN ")
			c.expr(w.Cond)
			c.write(" THEN ")
			c.expr(w.Then)
		}
		if v.Else != nil {
			c.write(" ELSE ")
			c.expr(v.Else)
		}
		c.write(" END")
	case clause.Like:
		c.expr(v.Expr)
		if v.Negate {
			c.write(" NOT LIKE ")
		} else {
			c.write(" LIKE ")
		}
		c.expr(v.Pattern)
	case clause.Exists:
		c.write("EXISTS ")
		c.nested(v.Select)
	case clause.Boolean:
		if v.Value {
			c.write("1")
		} else {
			c.write("0")
		}
	case clause.DistinctFrom:
		c.write("DECODE(")
		c.expr(v.Left)
		c.write(", ")
		c.expr(v.Right)
		if v.Negate {
			c.write(", 0, 1) = 0")
		} else {
			c.write(", 0, 1) = 1")
		}
	case clause.RegexpMatch:
		if v.Negate {
			c.write("NOT ")
		}
		c.write("REGEXP_LIKE(")
		c.expr(v.Expr)
		c.write(", ")
		c.expr(v.Pattern)
		if v.Flags != nil {
			c.write(", " + quoteString(*v.Flags))
		}
		c.write(")")
	case clause.RegexpReplace:
		c.write("REGEXP_REPLACE(")
		c.expr(v.Expr)
		c.write(", ")
		c.expr(v.Pattern)
		c.write(", ")
		c.expr(v.Replacement)
		if v.Flags != nil {
			c.write(", " + quoteString(*v.Flags))
		}
		c.write(")")
	case clause.Match:
		c.write("CONTAINS (")
		c.expr(v.Left)
		c.write(", ")
		c.expr(v.Right)
		c.write(")")
	case clause.OuterJoinColumn:
		c.column(v.Column)
		c.write("(+)")
	case clause.Sequence:
		c.write(c.d.names.QuoteSchema(v.Schema, v.Name) + ".nextval")
	case clause.EmptySet:
		c.write(emptySetSQL)
	case clause.Cast:
		c.write("CAST(")
		c.expr(v.Expr)
		c.write(" AS " + v.Type + ")")
	case *clause.Select:
		c.nested(v)
	case *clause.Compound:
		c.nested(v)
	default:
		c.fail(compileErrorf("unsupported expression %T", e))
	}
}

func (c *compiler) column(v clause.Column) {
	if v.Raw {
		c.write(v.Name)
		return
	}
	if v.Table != "" {
		c.write(c.quote(v.Table) + ".")
	}
	c.write(c.quote(v.Name))
}

func (c *compiler) binary(v clause.Binary) {
	if v.Op == "%" {
		c.write("mod(")
		c.expr(v.Left)
		c.write(", ")
		c.expr(v.Right)
		c.write(")")
		return
	}
	c.operand(v.Left)
	c.write(" " + v.Op + " ")
	c.operand(v.Right)
}

// operand parenthesizes boolean groups used inside a binary expression.
func (c *compiler) operand(e clause.Expression) {
	switch e.(type) {
	case clause.And, clause.Or:
		c.write("(")
		c.expr(e)
		c.write(")")
	default:
		c.expr(e)
	}
}

func (c *compiler) conjunction(exprs []clause.Expression, sep string) {
	if len(exprs) == 0 {
		c.write("1 = 1")
		return
	}
	for i, e := range exprs {
		if i > 0 {
			c.write(sep)
		}
		switch e.(type) {
		case clause.And, clause.Or:
			if len(exprs) > 1 {
				c.write("(")
				c.expr(e)
				c.write(")")
				continue
			}
		}
		c.expr(e)
	}
}

func (c *compiler) in(v clause.In) {
	c.expr(v.Expr)
	if v.Negate {
		c.write(" NOT IN ")
	} else {
		c.write(" IN ")
	}
	switch l := v.List.(type) {
	case clause.BindParam:
		if !l.Expanding {
			c.write("(")
			c.bind(l)
			c.write(")")
			return
		}
		if c.literalBinds {
			items, err := expand(l.Value)
			if err != nil {
				c.fail(err)
				return
			}
			exprs := make([]clause.Expression, len(items))
			for i, item := range items {
				exprs[i] = clause.Value{Value: item}
			}
			if len(exprs) == 0 {
				c.write("(" + emptySetSQL + ")")
				return
			}
			c.expr(clause.Tuple{Exprs: exprs})
			return
		}
		c.bind(l)
	case clause.Tuple:
		if len(l.Exprs) == 0 {
			c.write("(" + emptySetSQL + ")")
			return
		}
		c.expr(l)
	case clause.EmptySet:
		c.write("(" + emptySetSQL + ")")
	case *clause.Select, *clause.Compound:
		c.expr(l)
	default:
		c.write("(")
		c.expr(l)
		c.write(")")
	}
}

func (c *compiler) function(f clause.Func) {
	name := f.Name
	switch strings.ToLower(name) {
	case "now":
		c.write("CURRENT_TIMESTAMP")
		return
	case "char_length":
		name = "LENGTH"
	case "aggregate_strings":
		name = "LISTAGG"
	}
	if _, ok := noArgFuncs[strings.ToUpper(name)]; ok && len(f.Args) == 0 {
		c.write(name)
		return
	}
	c.write(name + "(")
	c.exprList(f.Args)
	c.write(")")
}

func (c *compiler) assignments(set []clause.Assignment, sep string, value bool) {
	for i, a := range set {
		if i > 0 {
			c.write(sep)
		}
		if value {
			c.expr(a.Value)
		} else {
			c.write(c.quote(a.Column))
		}
	}
}

func (c *compiler) insert(s *clause.Insert) {
	c.write("INSERT INTO ")
	c.from(clause.Table{Schema: s.Table.Schema, Name: s.Table.Name})
	if len(s.Values) == 0 {
		c.fail(compileErrorf("INSERT into %s has no values; the server does not support DEFAULT VALUES", s.Table.Name))
		return
	}
	c.write(" (")
	c.assignments(s.Values, ", ", false)
	c.write(") VALUES (")
	c.assignments(s.Values, ", ", true)
	c.write(")")
	c.returning(s.Returning)
}

func (c *compiler) update(s *clause.Update) {
	c.write("UPDATE ")
	c.from(s.Table)
	c.write(" SET ")
	for i, a := range s.Set {
		if i > 0 {
			c.write(", ")
		}
		c.write(c.quote(a.Column) + "=")
		c.expr(a.Value)
	}
	if s.Where != nil {
		c.write(" WHERE ")
		c.expr(s.Where)
	}
	c.returning(s.Returning)
}

func (c *compiler) delete(s *clause.Delete) {
	c.write("DELETE FROM ")
	c.from(s.Table)
	if s.Where != nil {
		c.write(" WHERE ")
		c.expr(s.Where)
	}
	c.returning(s.Returning)
}

// returning renders RETURNING cols INTO out binds named ret_0, ret_1...
// The caller supplies the out destinations under those names.
func (c *compiler) returning(cols []clause.Expression) {
	if len(cols) == 0 {
		return
	}
	c.write(" RETURNING ")
	c.exprList(cols)
	c.write(" INTO ")
	for i := range cols {
		if i > 0 {
			c.write(", ")
		}
		c.bind(clause.BindParam{Name: fmt.Sprintf("ret_%d", i)})
	}
}
