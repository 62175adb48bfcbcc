package dialect

import (
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/faucetdb/tibero/internal/clause"
	"github.com/faucetdb/tibero/internal/model"
)

// queryCache holds compiled reflection queries keyed by the parameters they
// were built from. Building is pure, so two goroutines missing the same key
// store equal values.
type queryCache struct {
	entries *lru.Cache[string, *Compiled]
}

func newQueryCache(size int) (*queryCache, error) {
	c, err := lru.New[string, *Compiled](size)
	if err != nil {
		return nil, fmt.Errorf("create query cache: %w", err)
	}
	return &queryCache{entries: c}, nil
}

// query returns the compiled statement for key, building it on a miss.
func (d *Dialect) query(key string, build func() clause.Statement) (*Compiled, error) {
	if c, ok := d.queries.entries.Get(key); ok {
		return c, nil
	}
	stmt := build()
	c, err := d.Compile(stmt)
	if err != nil {
		name, _, _ := strings.Cut(key, "|")
		return nil, fmt.Errorf("compile %s query: %w", name, err)
	}
	c.long = selectsLong(stmt)
	d.queries.entries.Add(key, c)
	return c, nil
}

func cacheKey(name string, parts ...any) string {
	var b strings.Builder
	b.WriteString(name)
	for _, p := range parts {
		fmt.Fprintf(&b, "|%v", p)
	}
	return b.String()
}

func ownerBind(owner string) clause.BindParam { return clause.BindValue("owner", owner) }

// sysPrefixed labels a system generated constraint or index name with a SYS
// prefix so rows sort the way they do on Oracle.
func sysPrefixed(c clause.Column, label string) clause.Label {
	return clause.As(clause.Case{
		Whens: []clause.When{{
			Cond: clause.RegexpMatch{Expr: c, Pattern: clause.Val(`^_.*CON\d+$`)},
			Then: clause.Binary{Left: clause.Val("SYS"), Op: "||", Right: c},
		}},
		Else: c,
	}, label)
}

// ----------------------------------------------------------------------------
// Names
// ----------------------------------------------------------------------------

func (d *Dialect) defaultSchemaQuery() (*Compiled, error) {
	return d.query("default_schema", func() clause.Statement {
		return clause.NewSelect(clause.Fn("sys_context", clause.Val("userenv"), clause.Val("current_schema")))
	})
}

func (d *Dialect) schemaNamesQuery() (*Compiled, error) {
	return d.query("schema_names", func() clause.Statement {
		u := allUsers
		return clause.NewSelect(u.C("username")).
			SelectFrom(u.Table()).
			Order(clause.OrderBy{Expr: u.C("username")})
	})
}

// tableNamesQuery lists plain tables minus materialized views. With
// synonyms, synonyms pointing at visible tables are listed too.
func (d *Dialect) tableNamesQuery(owner string, withSynonyms bool) (*Compiled, error) {
	key := cacheKey("table_names", owner, withSynonyms, strings.Join(d.opts.ExcludeTablespaces, ","))
	return d.query(key, func() clause.Statement {
		t := allTables
		var (
			from clause.FromItem = t.Table()
			c                    = t.C
		)
		if withSynonyms {
			s := allSynonyms
			union := clause.UnionAll(
				clause.NewSelect(
					t.C("table_name"), t.C("owner"), t.C("iot_type"), t.C("duration"), t.C("tablespace_name"),
				).SelectFrom(t.Table()),
				clause.NewSelect(
					clause.As(s.C("synonym_name"), "table_name"),
					s.C("owner"), t.C("iot_type"), t.C("duration"), t.C("tablespace_name"),
				).SelectFrom(clause.Join{
					Left:  t.Table(),
					Right: s.Table(),
					On: clause.AndOf(
						clause.Eq(t.C("table_name"), s.C("org_object_name")),
						clause.Eq(t.C("owner"), clause.Fn("coalesce", s.C("org_object_owner"), s.C("owner"))),
					),
				}),
			)
			sub := clause.Subquery{Query: union, Alias: "available_tables"}
			from, c = sub, sub.C
		}

		q := clause.NewSelect(c("table_name")).SelectFrom(from)
		if len(d.opts.ExcludeTablespaces) > 0 {
			q.Filter(clause.NotInList(
				clause.Fn("coalesce", c("tablespace_name"), clause.Val("no tablespace")),
				clause.Values(d.opts.ExcludeTablespaces...),
			))
		}
		q.Filter(
			clause.Eq(c("owner"), ownerBind(owner)),
			clause.IsNull{Expr: c("iot_type")},
			clause.IsNull{Expr: c("duration")},
		)

		m := allMViews
		mviews := clause.NewSelect(clause.As(m.C("mview_name"), "table_name")).
			SelectFrom(m.Table()).
			Filter(clause.Eq(m.C("owner"), ownerBind(owner)))
		return clause.Except(q, mviews)
	})
}

// tempTableNamesQuery reads all_tables directly; it is never run over a db
// link.
func (d *Dialect) tempTableNamesQuery(owner string) (*Compiled, error) {
	key := cacheKey("temp_table_names", owner, strings.Join(d.opts.ExcludeTablespaces, ","))
	return d.query(key, func() clause.Statement {
		q := clause.NewSelect(clause.Raw("table_name")).SelectFrom(clause.Table{Name: "all_tables"})
		if len(d.opts.ExcludeTablespaces) > 0 {
			q.Filter(clause.NotInList(
				clause.Fn("nvl", clause.Raw("tablespace_name"), clause.Val("no tablespace")),
				clause.Values(d.opts.ExcludeTablespaces...),
			))
		}
		return q.Filter(
			clause.Eq(clause.Raw("OWNER"), ownerBind(owner)),
			clause.IsNull{Expr: clause.Raw("DURATION"), Negate: true},
		)
	})
}

func (d *Dialect) viewNamesQuery(owner string) (*Compiled, error) {
	return d.query(cacheKey("view_names", owner), func() clause.Statement {
		v := allViews
		return clause.NewSelect(v.C("view_name")).
			SelectFrom(v.Table()).
			Filter(clause.Eq(v.C("owner"), ownerBind(owner)))
	})
}

func (d *Dialect) mviewNamesQuery(owner string) (*Compiled, error) {
	return d.query(cacheKey("mview_names", owner), func() clause.Statement {
		m := allMViews
		return clause.NewSelect(m.C("mview_name")).
			SelectFrom(m.Table()).
			Filter(clause.Eq(m.C("owner"), ownerBind(owner)))
	})
}

func (d *Dialect) sequenceNamesQuery(owner string) (*Compiled, error) {
	return d.query(cacheKey("sequence_names", owner), func() clause.Statement {
		s := allSequences
		return clause.NewSelect(s.C("sequence_name")).
			SelectFrom(s.Table()).
			Filter(clause.Eq(s.C("sequence_owner"), ownerBind(owner)))
	})
}

func (d *Dialect) dbLinksQuery() (*Compiled, error) {
	return d.query("db_links", func() clause.Statement {
		l := allDBLinks
		return clause.NewSelect(l.C("db_link")).SelectFrom(l.Table())
	})
}

// ----------------------------------------------------------------------------
// Existence and definitions
// ----------------------------------------------------------------------------

// hasTableQuery binds table_name and owner. Materialized views are listed
// by all_tables.
func (d *Dialect) hasTableQuery() (*Compiled, error) {
	return d.query("has_table", func() clause.Statement {
		t, v := allTables, allViews
		tables := clause.Subquery{
			Query: clause.UnionAll(
				clause.NewSelect(t.C("table_name"), t.C("owner")).SelectFrom(t.Table()),
				clause.NewSelect(clause.As(v.C("view_name"), "table_name"), v.C("owner")).SelectFrom(v.Table()),
			),
			Alias: "tables_and_views",
		}
		return clause.NewSelect(tables.C("table_name")).
			SelectFrom(tables).
			Filter(
				clause.Eq(tables.C("table_name"), clause.Bind("table_name")),
				clause.Eq(tables.C("owner"), clause.Bind("owner")),
			)
	})
}

// hasSequenceQuery binds sequence_name and owner.
func (d *Dialect) hasSequenceQuery() (*Compiled, error) {
	return d.query("has_sequence", func() clause.Statement {
		s := allSequences
		return clause.NewSelect(s.C("sequence_name")).
			SelectFrom(s.Table()).
			Filter(
				clause.Eq(s.C("sequence_name"), clause.Bind("sequence_name")),
				clause.Eq(s.C("sequence_owner"), clause.Bind("owner")),
			)
	})
}

// viewDefinitionQuery binds name and owner. Both text columns are LONG.
func (d *Dialect) viewDefinitionQuery() (*Compiled, error) {
	return d.query("view_definition", func() clause.Statement {
		v, m := allViews, allMViews
		return clause.UnionAll(
			clause.NewSelect(v.C("text")).SelectFrom(v.Table()).Filter(
				clause.Eq(v.C("view_name"), clause.Bind("name")),
				clause.Eq(v.C("owner"), clause.Bind("owner")),
			),
			clause.NewSelect(m.C("query")).SelectFrom(m.Table()).Filter(
				clause.Eq(m.C("mview_name"), clause.Bind("name")),
				clause.Eq(m.C("owner"), clause.Bind("owner")),
			),
		)
	})
}

// ----------------------------------------------------------------------------
// Objects and table options
// ----------------------------------------------------------------------------

// allObjectsQuery lists object names of owner. Materialized views appear in
// all_objects both as MATERIALIZED VIEW and as TABLE, so asking for tables
// without materialized views excludes the :mat_views names.
func (d *Dialect) allObjectsQuery(owner string, scope model.ObjectScope, kind model.ObjectKind, hasFilterNames, hasMatViews bool) (*Compiled, error) {
	key := cacheKey("all_objects", owner, uint8(scope), uint8(kind), hasFilterNames, hasMatViews)
	return d.query(key, func() clause.Statement {
		o := allObjects
		q := clause.NewSelect(o.C("object_name")).
			SelectFrom(o.Table()).
			Filter(clause.Eq(o.C("owner"), ownerBind(owner)))

		if kind == model.KindAny {
			q.Filter(clause.InList(o.C("object_type"), clause.Values("TABLE", "VIEW")))
		} else {
			var types []string
			if kind.Has(model.KindView) {
				types = append(types, "VIEW")
			}
			if kind.Has(model.KindMaterializedView) && !kind.Has(model.KindTable) {
				types = append(types, "MATERIALIZED VIEW")
			}
			if kind.Has(model.KindTable) {
				types = append(types, "TABLE")
				if hasMatViews && !kind.Has(model.KindMaterializedView) {
					q.Filter(clause.NotInList(o.C("object_name"), clause.Expanding("mat_views")))
				}
			}
			q.Filter(clause.InList(o.C("object_type"), clause.Values(types...)))
		}

		switch scope {
		case model.ScopeDefault:
			q.Filter(clause.Eq(o.C("temporary"), clause.Val("N")))
		case model.ScopeTemporary:
			q.Filter(clause.Eq(o.C("temporary"), clause.Val("Y")))
		}

		if hasFilterNames {
			q.Filter(clause.InList(o.C("object_name"), clause.Expanding("filter_names")))
		}
		return q
	})
}

func (d *Dialect) tableOptionsQuery(owner string, scope model.ObjectScope, kind model.ObjectKind, hasFilterNames, hasMatViews bool) (*Compiled, error) {
	key := cacheKey("table_options", owner, uint8(scope), uint8(kind), hasFilterNames, hasMatViews)
	return d.query(key, func() clause.Statement {
		t := allTables
		q := clause.NewSelect(t.C("table_name"), t.C("compression"), t.C("compress_for")).
			SelectFrom(t.Table()).
			Filter(clause.Eq(t.C("owner"), ownerBind(owner)))
		if hasFilterNames {
			q.Filter(clause.InList(t.C("table_name"), clause.Expanding("filter_names")))
		}
		switch scope {
		case model.ScopeDefault:
			q.Filter(clause.IsNull{Expr: t.C("duration")})
		case model.ScopeTemporary:
			q.Filter(clause.IsNull{Expr: t.C("duration"), Negate: true})
		}
		switch {
		case hasMatViews && kind.Has(model.KindTable) && !kind.Has(model.KindMaterializedView):
			q.Filter(clause.NotInList(t.C("table_name"), clause.Expanding("mat_views")))
		case !kind.Has(model.KindTable) && kind.Has(model.KindMaterializedView):
			q.Filter(clause.InList(t.C("table_name"), clause.Expanding("mat_views")))
		}
		return q
	})
}

// ----------------------------------------------------------------------------
// Columns, indexes and constraints
// ----------------------------------------------------------------------------

// columnQuery binds all_objects. data_default is LONG.
func (d *Dialect) columnQuery(owner string) (*Compiled, error) {
	identity := d.opts.ReflectIdentityColumns
	return d.query(cacheKey("columns", owner, identity), func() clause.Statement {
		c, cm := allTabCols, allColComments
		cols := []clause.Expression{
			c.C("table_name"), c.C("column_name"), c.C("data_type"), c.C("char_length"),
			c.C("data_precision"), c.C("data_scale"), c.C("nullable"), c.C("data_default"),
			cm.C("comments"), c.C("virtual_column"),
			clause.As(nil, "default_on_null"),
		}
		var from clause.FromItem = clause.Join{
			Left:  c.Table(),
			Right: cm.Table(),
			On: clause.AndOf(
				clause.Eq(c.C("table_name"), cm.C("table_name")),
				clause.Eq(c.C("column_name"), cm.C("column_name")),
				clause.Eq(c.C("owner"), cm.C("owner")),
			),
			Outer: true,
		}

		if identity {
			ids := allTabIdentityCols
			cols = append(cols, clause.As(clause.Case{
				Whens: []clause.When{{Cond: clause.IsNull{Expr: ids.C("table_name")}, Then: nil}},
				Else: clause.Binary{
					Left:  clause.Binary{Left: ids.C("generation_type"), Op: "||", Right: clause.Val(",")},
					Op:    "||",
					Right: ids.C("identity_options"),
				},
			}, "identity_options"))
			from = clause.Join{
				Left:  from,
				Right: ids.Table(),
				On: clause.AndOf(
					clause.Eq(c.C("table_name"), ids.C("table_name")),
					clause.Eq(c.C("column_name"), ids.C("column_name")),
					clause.Eq(c.C("owner"), ids.C("owner")),
				),
				Outer: true,
			}
		} else {
			cols = append(cols, clause.As(nil, "identity_options"))
		}

		return clause.NewSelect(cols...).
			SelectFrom(from).
			Filter(
				clause.InList(c.C("table_name"), clause.Expanding("all_objects")),
				clause.Eq(c.C("hidden_column"), clause.Val("N")),
				clause.Eq(c.C("owner"), ownerBind(owner)),
			).
			Order(clause.OrderBy{Expr: c.C("table_name")}, clause.OrderBy{Expr: c.C("column_id")})
	})
}

// indexQuery binds all_objects. column_expression is LONG.
func (d *Dialect) indexQuery(owner string) (*Compiled, error) {
	return d.query(cacheKey("indexes", owner), func() clause.Statement {
		ic, ix, ie := allIndColumns, allIndexes, allIndExpressions
		return clause.NewSelect(
			ic.C("table_name"),
			sysPrefixed(ic.C("index_name"), "index_name"),
			ic.C("column_name"),
			ix.C("index_type"),
			ix.C("uniqueness"),
			ix.C("compression"),
			ix.C("prefix_length"),
			ic.C("descend"),
			ie.C("column_expression"),
		).
			SelectFrom(clause.Join{
				Left: clause.Join{
					Left:  ic.Table(),
					Right: ix.Table(),
					On: clause.AndOf(
						clause.Eq(ic.C("index_name"), ix.C("index_name")),
						clause.Eq(ic.C("index_owner"), ix.C("owner")),
					),
				},
				Right: ie.Table(),
				On: clause.AndOf(
					clause.Eq(ie.C("index_name"), ic.C("index_name")),
					clause.Eq(ie.C("index_owner"), ic.C("index_owner")),
					clause.Eq(ie.C("column_position"), ic.C("column_position")),
				),
				Outer: true,
			}).
			Filter(
				clause.Eq(ix.C("table_owner"), ownerBind(owner)),
				clause.InList(ix.C("table_name"), clause.Expanding("all_objects")),
			).
			Order(clause.OrderBy{Expr: clause.Raw("index_name")}, clause.OrderBy{Expr: ic.C("column_position")})
	})
}

// constraintQuery binds all_objects and returns primary key, foreign key,
// unique and check constraint rows, one per constrained column.
func (d *Dialect) constraintQuery(owner string) (*Compiled, error) {
	return d.query(cacheKey("constraints", owner), func() clause.Statement {
		con := allConstraints
		local, remote := allConsColumns.As("local"), allConsColumns.As("remote")
		return clause.NewSelect(
			con.C("table_name"),
			con.C("constraint_type"),
			sysPrefixed(con.C("constraint_name"), "constraint_name"),
			clause.As(local.C("column_name"), "local_column"),
			clause.As(remote.C("table_name"), "remote_table"),
			clause.As(remote.C("column_name"), "remote_column"),
			clause.As(remote.C("owner"), "remote_owner"),
			con.C("search_condition"),
			con.C("delete_rule"),
			sysPrefixed(con.C("index_name"), "index_name"),
		).
			SelectFrom(clause.Join{
				Left: clause.Join{
					Left:  con.Table(),
					Right: local.Table(),
					On: clause.AndOf(
						clause.Eq(local.C("owner"), con.C("owner")),
						clause.Eq(con.C("constraint_name"), local.C("constraint_name")),
					),
				},
				Right: remote.Table(),
				On: clause.AndOf(
					clause.Eq(con.C("r_owner"), remote.C("owner")),
					clause.Eq(con.C("r_constraint_name"), remote.C("constraint_name")),
					clause.OrOf(
						clause.IsNull{Expr: remote.C("position")},
						clause.Eq(local.C("position"), remote.C("position")),
					),
				),
				Outer: true,
			}).
			Filter(
				clause.Eq(con.C("owner"), ownerBind(owner)),
				clause.InList(con.C("table_name"), clause.Expanding("all_objects")),
				clause.InList(con.C("constraint_type"), clause.Values("R", "P", "U", "C")),
			).
			Order(clause.OrderBy{Expr: clause.Raw("constraint_name")}, clause.OrderBy{Expr: local.C("position")})
	})
}

// ----------------------------------------------------------------------------
// Comments and synonyms
// ----------------------------------------------------------------------------

func (d *Dialect) commentQuery(owner string, scope model.ObjectScope, kind model.ObjectKind, hasFilterNames bool) (*Compiled, error) {
	key := cacheKey("comments", owner, uint8(scope), uint8(kind), hasFilterNames)
	return d.query(key, func() clause.Statement {
		var queries []*clause.Select
		if kind.Has(model.KindTable) || kind.Has(model.KindView) {
			tc := allTabComments
			q := clause.NewSelect(tc.C("table_name"), tc.C("comments")).
				SelectFrom(tc.Table()).
				Filter(
					clause.Eq(tc.C("owner"), ownerBind(owner)),
					clause.Like{Expr: tc.C("table_name"), Pattern: clause.Val("BIN$%"), Negate: true},
				)
			switch {
			case !kind.Has(model.KindView):
				q.Filter(clause.Eq(tc.C("table_type"), clause.Val("TABLE")))
			case !kind.Has(model.KindTable):
				q.Filter(clause.Eq(tc.C("table_type"), clause.Val("VIEW")))
			}
			queries = append(queries, q)
		}
		if kind.Has(model.KindMaterializedView) {
			mc := allMViewComments
			queries = append(queries, clause.NewSelect(clause.As(mc.C("mview_name"), "table_name"), mc.C("comments")).
				SelectFrom(mc.Table()).
				Filter(
					clause.Eq(mc.C("owner"), ownerBind(owner)),
					clause.Like{Expr: mc.C("mview_name"), Pattern: clause.Val("BIN$%"), Negate: true},
				))
		}

		var (
			q       *clause.Select
			nameCol clause.Expression
		)
		switch len(queries) {
		case 0:
			// nothing requested; select from an always empty set
			return clause.NewSelect(clause.As(nil, "table_name"), clause.As(nil, "comments")).
				Filter(clause.Expr{SQL: "1!=1"})
		case 1:
			q = queries[0]
			nameCol = q.Columns[0]
			if l, ok := nameCol.(clause.Label); ok {
				nameCol = l.Expr
			}
		default:
			sub := clause.Subquery{Query: clause.UnionAll(queries...), Alias: "tables_and_views"}
			q = clause.NewSelect(sub.C("table_name"), sub.C("comments")).SelectFrom(sub)
			nameCol = sub.C("table_name")
		}

		if scope == model.ScopeDefault || scope == model.ScopeTemporary {
			temp := "N"
			if scope == model.ScopeTemporary {
				temp = "Y"
			}
			o := allObjects
			q.Distinct = true
			q.From = []clause.FromItem{clause.Join{
				Left:  q.From[0],
				Right: o.Table(),
				On: clause.AndOf(
					clause.Eq(o.C("owner"), ownerBind(owner)),
					clause.Eq(o.C("object_name"), nameCol),
					clause.Eq(o.C("temporary"), clause.Val(temp)),
				),
			}}
		}
		if hasFilterNames {
			q.Filter(clause.InList(nameCol, clause.Expanding("filter_names")))
		}
		return q
	})
}

func (d *Dialect) synonymsQuery(owner string, hasFilterNames bool) (*Compiled, error) {
	return d.query(cacheKey("synonyms", owner, hasFilterNames), func() clause.Statement {
		s := allSynonyms
		q := clause.NewSelect(s.C("synonym_name"), s.C("org_object_name"), s.C("org_object_owner")).
			SelectFrom(s.Table()).
			Filter(clause.Eq(s.C("owner"), ownerBind(owner)))
		if hasFilterNames {
			q.Filter(clause.InList(s.C("synonym_name"), clause.Expanding("filter_names")))
		}
		return q
	})
}

// synonymOwnersQuery binds owners, the remote owners referenced by foreign
// keys.
func (d *Dialect) synonymOwnersQuery() (*Compiled, error) {
	return d.query("synonym_owners", func() clause.Statement {
		s := allSynonyms
		return clause.NewSelect(s.C("owner"), s.C("org_object_name"), s.C("org_object_owner"), s.C("synonym_name")).
			SelectFrom(s.Table()).
			Filter(clause.InList(s.C("owner"), clause.Expanding("owners")))
	})
}
