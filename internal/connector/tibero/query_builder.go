package tibero

import (
	"context"
	"fmt"
	"sort"

	"github.com/faucetdb/tibero/internal/clause"
	"github.com/faucetdb/tibero/internal/connector"
	"github.com/faucetdb/tibero/internal/dialect"
	"github.com/faucetdb/tibero/internal/model"
	"github.com/faucetdb/tibero/internal/query"
)

// BuildSelect renders a paginated SELECT of one table. Names are given in
// normalized (lower case) form. Pagination and FOR UPDATE OF go through
// the dialect's row limit rewrite. When ROWNUM emulates an offset and no
// fields are requested, the table's columns are reflected so the page does
// not carry the row number column.
func (c *TiberoConnector) BuildSelect(ctx context.Context, req connector.SelectRequest) (string, []any, error) {
	d := c.dialectOrDefault()
	s, err := SelectStatement(c.schemaName, req)
	if err != nil {
		return "", nil, err
	}
	if len(req.Fields) == 0 && req.Offset > 0 && !d.Options().EnableOffsetFetch && c.queryer != nil {
		if err := c.expandStar(ctx, d, s, req); err != nil {
			return "", nil, err
		}
	}
	return d.CompileSQL(s, nil)
}

// expandStar replaces the star projection of s with the reflected columns
// of the requested table.
func (c *TiberoConnector) expandStar(ctx context.Context, d *dialect.Dialect, s *clause.Select, req connector.SelectRequest) error {
	tbl, ok := s.From[0].(clause.Table)
	if !ok {
		return nil
	}
	cols, err := d.NewInspector(c.queryer, dialect.NewInfoCache()).
		GetColumns(ctx, req.Table, dialect.ReflectOptions{Schema: tbl.Schema})
	if err != nil {
		return fmt.Errorf("columns of %s: %w", req.Table, err)
	}
	starColumns(s, cols)
	return nil
}

// starColumns replaces the projection of s with cols of its table. No
// columns leaves s alone.
func starColumns(s *clause.Select, cols []model.Column) {
	tbl, ok := s.From[0].(clause.Table)
	if !ok || len(cols) == 0 {
		return
	}
	exprs := make([]clause.Expression, len(cols))
	for i, col := range cols {
		exprs[i] = tbl.C(col.Name)
	}
	s.Columns = exprs
}

// BuildSelect renders req with d. defaultSchema applies when req names no
// schema.
func BuildSelect(d *dialect.Dialect, defaultSchema string, req connector.SelectRequest) (string, []any, error) {
	s, err := SelectStatement(defaultSchema, req)
	if err != nil {
		return "", nil, err
	}
	return d.CompileSQL(s, nil)
}

// SelectStatement builds the clause tree of req.
func SelectStatement(defaultSchema string, req connector.SelectRequest) (*clause.Select, error) {
	if req.Table == "" {
		return nil, fmt.Errorf("table name is required")
	}
	if req.Limit < 0 || req.Offset < 0 {
		return nil, fmt.Errorf("limit and offset must not be negative")
	}
	if err := validateNames(req); err != nil {
		return nil, err
	}

	schema := req.Schema
	if schema == "" {
		schema = defaultSchema
	}
	tbl := clause.Table{Schema: schema, Name: req.Table}

	var cols []clause.Expression
	for _, f := range req.Fields {
		cols = append(cols, tbl.C(f))
	}
	if len(cols) == 0 {
		cols = append(cols, clause.Star{})
	}
	s := clause.NewSelect(cols...).SelectFrom(tbl)

	names := make([]string, 0, len(req.Equals))
	for name := range req.Equals {
		names = append(names, name)
	}
	sort.Strings(names)
	for i, name := range names {
		bind := clause.BindValue(fmt.Sprintf("param_%d", i+1), req.Equals[name])
		s.Filter(clause.Eq(tbl.C(name), bind))
	}
	cond, err := query.ParseFilter(req.Filter, func(table, name string) clause.Expression {
		if table == "" || table == req.Table {
			return tbl.C(name)
		}
		return clause.Col(table, name)
	})
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	if cond != nil {
		s.Filter(cond)
	}

	for _, o := range req.Order {
		s.Order(clause.OrderBy{Expr: tbl.C(o.Column), Desc: o.Desc})
	}

	if req.Limit > 0 {
		s.Limit = clause.Val(req.Limit)
	}
	if req.Offset > 0 {
		s.Offset = clause.Val(req.Offset)
	}

	if req.ForUpdateOf != nil {
		fu := &clause.ForUpdate{NoWait: req.NoWait}
		for _, name := range req.ForUpdateOf {
			fu.Of = append(fu.Of, tbl.C(name))
		}
		s.ForUpdate = fu
	}
	return s, nil
}

// validateNames rejects client supplied names that are not plain
// identifiers. Quoted mixed case names pass.
func validateNames(req connector.SelectRequest) error {
	names := append([]string{req.Table}, req.Fields...)
	for col := range req.Equals {
		names = append(names, col)
	}
	for _, o := range req.Order {
		names = append(names, o.Column)
	}
	names = append(names, req.ForUpdateOf...)
	if req.Schema != "" {
		names = append(names, req.Schema)
	}
	return query.ValidateIdentifiers(names)
}
