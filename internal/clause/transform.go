package clause

// Transform returns a copy of e in which every node for which fn reports
// true has been replaced by fn's result. Replaced nodes are not descended
// into. Nested selects are left untouched.
func Transform(e Expression, fn func(Expression) (Expression, bool)) Expression {
	if e == nil {
		return nil
	}
	if r, ok := fn(e); ok {
		return r
	}
	t := func(x Expression) Expression { return Transform(x, fn) }
	switch v := e.(type) {
	case Label:
		return Label{Expr: t(v.Expr), Name: v.Name}
	case Binary:
		return Binary{Left: t(v.Left), Op: v.Op, Right: t(v.Right)}
	case And:
		return And{Exprs: transformAll(v.Exprs, fn)}
	case Or:
		return Or{Exprs: transformAll(v.Exprs, fn)}
	case Not:
		return Not{Expr: t(v.Expr)}
	case IsNull:
		return IsNull{Expr: t(v.Expr), Negate: v.Negate}
	case In:
		return In{Expr: t(v.Expr), List: t(v.List), Negate: v.Negate}
	case Tuple:
		return Tuple{Exprs: transformAll(v.Exprs, fn)}
	case Func:
		return Func{Name: v.Name, Args: transformAll(v.Args, fn)}
	case Case:
		whens := make([]When, len(v.Whens))
		for i, w := range v.Whens {
			whens[i] = When{Cond: t(w.Cond), Then: t(w.Then)}
		}
		return Case{Whens: whens, Else: t(v.Else)}
	case Like:
		return Like{Expr: t(v.Expr), Pattern: t(v.Pattern), Negate: v.Negate}
	case DistinctFrom:
		return DistinctFrom{Left: t(v.Left), Right: t(v.Right), Negate: v.Negate}
	case RegexpMatch:
		return RegexpMatch{Expr: t(v.Expr), Pattern: t(v.Pattern), Flags: v.Flags, Negate: v.Negate}
	case RegexpReplace:
		return RegexpReplace{Expr: t(v.Expr), Pattern: t(v.Pattern), Replacement: t(v.Replacement), Flags: v.Flags}
	case Match:
		return Match{Left: t(v.Left), Right: t(v.Right)}
	case Cast:
		return Cast{Expr: t(v.Expr), Type: v.Type}
	}
	return e
}

func transformAll(exprs []Expression, fn func(Expression) (Expression, bool)) []Expression {
	if exprs == nil {
		return nil
	}
	out := make([]Expression, len(exprs))
	for i, e := range exprs {
		out[i] = Transform(e, fn)
	}
	return out
}

// FromNames returns every table reference name (alias or name) reachable
// from item, descending into joins and groupings.
func FromNames(item FromItem) []string {
	switch v := item.(type) {
	case Table:
		return []string{v.Ref()}
	case Subquery:
		return []string{v.Alias}
	case TableFunc:
		if v.Alias != "" {
			return []string{v.Alias}
		}
		return []string{v.Func.Name}
	case Grouping:
		return FromNames(v.Item)
	case Join:
		return append(FromNames(v.Left), FromNames(v.Right)...)
	}
	return nil
}
