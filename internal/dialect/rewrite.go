package dialect

import (
	"fmt"
	"strings"

	"github.com/faucetdb/tibero/internal/clause"
)

// Rewrite returns the select as it will be compiled: joins flattened when
// UseANSI is off and LIMIT/OFFSET moved into ROWNUM subqueries when
// EnableOffsetFetch is off. The input is never modified.
func (d *Dialect) Rewrite(s *clause.Select) *clause.Select {
	n := 0
	return d.rewrite(s, &n)
}

func (d *Dialect) rewrite(s *clause.Select, anon *int) *clause.Select {
	if s.Rewritten() {
		return s
	}
	if !d.opts.UseANSI && hasJoin(s.From) {
		s = flattenJoins(s)
	}
	if d.emulatesRowLimit(s) {
		return d.rownumWrap(s, anon)
	}
	return s
}

// emulatesRowLimit reports whether s gets its LIMIT and OFFSET from ROWNUM
// subqueries.
func (d *Dialect) emulatesRowLimit(s *clause.Select) bool {
	return s.HasRowLimit() && !d.opts.EnableOffsetFetch && s.Fetch == nil
}

// checkRowLimit rejects a star projection paged with an emulated OFFSET:
// the outer layer can only hide ora_rn when it selects named columns.
func (d *Dialect) checkRowLimit(s *clause.Select) error {
	if s.Rewritten() || s.Offset == nil || !d.emulatesRowLimit(s) {
		return nil
	}
	for _, c := range s.Columns {
		if _, ok := c.(clause.Star); ok {
			return compileErrorf("SELECT * with an OFFSET cannot be paged with ROWNUM; select named columns instead")
		}
	}
	return nil
}

func hasJoin(items []clause.FromItem) bool {
	for _, f := range items {
		switch f.(type) {
		case clause.Join, clause.Grouping:
			return true
		}
	}
	return false
}

// flattenJoins moves every ON condition into WHERE. Columns on the optional
// side of an outer join get the (+) marker. The FROM list itself keeps its
// join nodes; the compiler renders them comma separated.
func flattenJoins(s *clause.Select) *clause.Select {
	out := s.Clone()
	var conds []clause.Expression
	for _, f := range s.From {
		conds = append(conds, joinConditions(f)...)
	}
	for _, c := range conds {
		out.Where = clause.Conjoin(out.Where, c)
	}
	flat := make([]clause.FromItem, 0, len(s.From))
	for _, f := range s.From {
		flat = append(flat, stripJoin(f)...)
	}
	out.From = flat
	return out
}

func joinConditions(item clause.FromItem) []clause.Expression {
	switch v := item.(type) {
	case clause.Grouping:
		return joinConditions(v.Item)
	case clause.Join:
		conds := joinConditions(v.Left)
		conds = append(conds, joinConditions(v.Right)...)
		if v.On == nil {
			return conds
		}
		on := v.On
		if v.Outer || v.Full {
			on = markOuter(on, clause.FromNames(v.Right))
		}
		return append(conds, on)
	}
	return nil
}

// markOuter adds (+) to the columns of a comparison that belong to one of
// the optional tables.
func markOuter(on clause.Expression, optional []string) clause.Expression {
	isOptional := func(e clause.Expression) (clause.Column, bool) {
		c, ok := e.(clause.Column)
		if !ok || c.Raw {
			return c, false
		}
		for _, name := range optional {
			if c.Table == name {
				return c, true
			}
		}
		return c, false
	}
	return clause.Transform(on, func(e clause.Expression) (clause.Expression, bool) {
		switch v := e.(type) {
		case clause.Binary:
			if c, ok := isOptional(v.Left); ok {
				return clause.Binary{Left: clause.OuterJoinColumn{Column: c}, Op: v.Op, Right: v.Right}, true
			}
			if c, ok := isOptional(v.Right); ok {
				return clause.Binary{Left: v.Left, Op: v.Op, Right: clause.OuterJoinColumn{Column: c}}, true
			}
		case clause.IsNull:
			if c, ok := isOptional(v.Expr); ok {
				return clause.IsNull{Expr: clause.OuterJoinColumn{Column: c}, Negate: v.Negate}, true
			}
		}
		return nil, false
	})
}

func stripJoin(item clause.FromItem) []clause.FromItem {
	switch v := item.(type) {
	case clause.Grouping:
		return stripJoin(v.Item)
	case clause.Join:
		return append(stripJoin(v.Left), stripJoin(v.Right)...)
	}
	return []clause.FromItem{item}
}

// rownumWrap emulates LIMIT and OFFSET:
//
//	SELECT cols FROM (
//	  SELECT anon.*, ROWNUM AS ora_rn FROM (<inner>) anon WHERE ROWNUM <= limit+offset
//	) WHERE ora_rn > offset
//
// Without an offset the outer layer is omitted.
func (d *Dialect) rownumWrap(s *clause.Select, anon *int) *clause.Select {
	limit, offset := s.Limit, s.Offset
	fu := s.ForUpdate
	visible := len(s.Columns)

	inner := s.Clone()
	inner.Limit, inner.Offset, inner.ForUpdate = nil, nil, nil
	if fu != nil {
		for _, of := range fu.Of {
			if !selects(inner.Columns, of) {
				inner.Columns = append(inner.Columns, of)
			}
		}
	}
	names := nameColumns(inner)
	inner.MarkRewritten()

	var outerAlias string
	if offset != nil {
		outerAlias = d.nextAnon(anon)
	}
	innerAlias := d.nextAnon(anon)
	innerSub := clause.Subquery{Query: inner, Alias: innerAlias}

	limitSel := &clause.Select{From: []clause.FromItem{innerSub}}
	limitSel.Columns = projection(s.Columns[:visible], names, innerAlias)
	if d.opts.OptimizeLimits {
		if n, ok := simpleInt(limit); ok {
			limitSel.Hints = append(limitSel.Hints, fmt.Sprintf("FIRST_ROWS(%d)", n))
		}
	}

	rownum := clause.Raw("ROWNUM")
	if limit != nil {
		maxRow := limit
		if offset != nil {
			l, lok := simpleInt(limit)
			o, ook := simpleInt(offset)
			if lok && ook {
				maxRow = clause.Value{Value: l + o}
			} else {
				maxRow = clause.Add(limit, offset)
			}
		}
		limitSel.Where = clause.Lte(rownum, literalExecute(maxRow))
	}

	if offset == nil {
		limitSel.ForUpdate = adaptForUpdate(fu, names, inner.Columns, innerAlias)
		limitSel.MarkRewritten()
		return limitSel
	}

	// The offset layer needs every inner column the FOR UPDATE names plus
	// the row number.
	limitSel.Columns = projection(inner.Columns, names, innerAlias)
	limitSel.Columns = append(limitSel.Columns, clause.As(rownum, "ora_rn"))
	limitSel.MarkRewritten()

	offsetSel := &clause.Select{
		Columns: projection(s.Columns[:visible], names, outerAlias),
		From:    []clause.FromItem{clause.Subquery{Query: limitSel, Alias: outerAlias}},
		Where:   clause.Gt(clause.Column{Name: "ora_rn"}, literalExecute(offset)),
	}
	offsetSel.ForUpdate = adaptForUpdate(fu, names, inner.Columns, outerAlias)
	offsetSel.MarkRewritten()
	return offsetSel
}

func (d *Dialect) nextAnon(anon *int) string {
	*anon++
	return fmt.Sprintf("anon_%d", *anon)
}

// selects reports whether e is already one of cols, bare or labelled.
func selects(cols []clause.Expression, e clause.Expression) bool {
	for _, c := range cols {
		if sameColumn(c, e) {
			return true
		}
	}
	return false
}

// sameColumn reports whether c is the column e, possibly under a label.
// Only plain columns are compared; other nodes may hold slices.
func sameColumn(c, e clause.Expression) bool {
	want, ok := e.(clause.Column)
	if !ok {
		return false
	}
	if l, ok := c.(clause.Label); ok {
		c = l.Expr
	}
	got, ok := c.(clause.Column)
	return ok && got == want
}

// nameColumns gives every column of s a unique output name, labelling the
// anonymous ones in place, and returns the names in column order.
func nameColumns(s *clause.Select) []string {
	seen := map[string]int{}
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		if _, ok := c.(clause.Star); ok {
			continue
		}
		name := clause.OutputName(c)
		if name == "" {
			name = anonName(c, i)
		}
		if n := seen[strings.ToLower(name)]; n > 0 {
			name = fmt.Sprintf("%s_%d", name, n)
		}
		seen[strings.ToLower(name)]++
		if name != clause.OutputName(c) {
			if l, ok := c.(clause.Label); ok {
				c = l.Expr
			}
			s.Columns[i] = clause.As(c, name)
		}
		names[i] = name
	}
	return names
}

func anonName(e clause.Expression, i int) string {
	if f, ok := e.(clause.Func); ok {
		return fmt.Sprintf("%s_%d", strings.ToLower(f.Name), i+1)
	}
	return fmt.Sprintf("anon_col_%d", i+1)
}

// projection selects the named columns from a wrapping alias.
func projection(cols []clause.Expression, names []string, alias string) []clause.Expression {
	out := make([]clause.Expression, len(cols))
	for i, c := range cols {
		if _, ok := c.(clause.Star); ok {
			out[i] = clause.Star{Table: alias}
			continue
		}
		out[i] = clause.Column{Table: alias, Name: names[i]}
	}
	return out
}

// adaptForUpdate points FOR UPDATE OF columns at the wrapping alias.
func adaptForUpdate(fu *clause.ForUpdate, names []string, cols []clause.Expression, alias string) *clause.ForUpdate {
	if fu == nil {
		return nil
	}
	out := *fu
	out.Of = make([]clause.Expression, len(fu.Of))
	for i, of := range fu.Of {
		out.Of[i] = of
		for j, c := range cols {
			if sameColumn(c, of) {
				out.Of[i] = clause.Column{Table: alias, Name: names[j]}
				break
			}
		}
	}
	return &out
}
