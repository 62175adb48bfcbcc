package dialect

import (
	"fmt"
	"slices"

	"github.com/faucetdb/tibero/internal/clause"
	"github.com/faucetdb/tibero/internal/sqltypes"
)

// DBLinkPlaceholder is appended to every catalog view name and replaced
// with "@link" (or nothing) when a compiled query is rendered.
const DBLinkPlaceholder = "__$sa_dblink$__"

type catalogColumn struct {
	Name     string
	Type     sqltypes.Type
	Nullable bool
}

// catalogView is the shape of one system catalog view. Views are always
// referenced through their alias because the server rejects columns
// qualified with view@link.
type catalogView struct {
	table   clause.Table
	columns map[string]catalogColumn
	order   []string
}

// catalogViews indexes the declared views by alias. It is filled during
// package initialization only.
var catalogViews = map[string]catalogView{}

func newCatalogView(name, alias string, cols ...catalogColumn) catalogView {
	v := catalogView{
		table:   clause.Table{Name: name + DBLinkPlaceholder, Alias: alias},
		columns: make(map[string]catalogColumn, len(cols)),
	}
	for _, c := range cols {
		v.columns[c.Name] = c
		v.order = append(v.order, c.Name)
	}
	catalogViews[alias] = v
	return v
}

// Table is the FROM item of the view.
func (v catalogView) Table() clause.Table { return v.table }

// C returns a qualified column of the view. Asking for a column the view
// does not have is a programming error.
func (v catalogView) C(name string) clause.Column {
	if _, ok := v.columns[name]; !ok {
		panic(fmt.Sprintf("catalog view %s has no column %q", v.table.Alias, name))
	}
	return clause.Column{Table: v.table.Alias, Name: name}
}

// As returns the same view under another alias.
func (v catalogView) As(alias string) catalogView {
	v.table.Alias = alias
	return v
}

// Columns lists the view's columns in declaration order.
func (v catalogView) Columns() []catalogColumn {
	out := make([]catalogColumn, len(v.order))
	for i, n := range v.order {
		out[i] = v.columns[n]
	}
	return out
}

// IsLong reports whether the named column is of the LONG type.
func (v catalogView) IsLong(name string) bool {
	_, ok := v.columns[name].Type.(sqltypes.Long)
	return ok
}

// selectsLong reports whether stmt projects a LONG catalog column, directly
// or through alias.*. Views renamed with As are not indexed; none of them
// has LONG columns.
func selectsLong(stmt clause.Statement) bool {
	switch s := stmt.(type) {
	case *clause.Select:
		for _, e := range s.Columns {
			if l, ok := e.(clause.Label); ok {
				e = l.Expr
			}
			switch c := e.(type) {
			case clause.Column:
				if v, ok := catalogViews[c.Table]; ok && v.IsLong(c.Name) {
					return true
				}
			case clause.Star:
				v, ok := catalogViews[c.Table]
				if ok && slices.ContainsFunc(v.Columns(), func(cc catalogColumn) bool { return v.IsLong(cc.Name) }) {
					return true
				}
			}
		}
	case *clause.Compound:
		return slices.ContainsFunc(s.Selects, func(sel *clause.Select) bool { return selectsLong(sel) })
	}
	return false
}

func col(name string, t sqltypes.Type) catalogColumn {
	return catalogColumn{Name: name, Type: t, Nullable: true}
}

func notNull(name string, t sqltypes.Type) catalogColumn {
	return catalogColumn{Name: name, Type: t}
}

func vc(n int) sqltypes.Type { return sqltypes.VarChar{Length: n} }
func ch(n int) sqltypes.Type { return sqltypes.Char{Length: n} }

var (
	number = sqltypes.Number{}
	date   = sqltypes.Date{}
	long   = sqltypes.Long{}
)

// dual is the single row pseudo table.
var dual = clause.Table{Name: "dual"}

var allTables = newCatalogView("all_tables", "a_tables",
	notNull("owner", vc(128)),
	notNull("table_name", vc(128)),
	col("tablespace_name", vc(128)),
	col("pct_free", number),
	col("ini_trans", number),
	col("logging", vc(3)),
	col("num_rows", number),
	col("blocks", number),
	col("avg_row_len", number),
	col("degree", number),
	col("sample_size", number),
	col("last_analyzed", date),
	col("partitioned", vc(3)),
	col("buffer_pool", vc(7)),
	col("row_movement", vc(8)),
	col("duration", vc(11)),
	col("compression", vc(3)),
	col("compress_for", vc(12)),
	col("dropped", vc(3)),
	col("read_only", vc(3)),
	col("temporary", vc(3)),
	col("max_extents", number),
	col("iot_type", vc(12)),
	col("initial_extent", number),
	col("next_extent", number),
	col("min_extents", number),
	col("is_virtual", vc(1)),
	col("inmemory", vc(8)),
	col("inmemory_priority", vc(8)),
	col("inmemory_distribute", vc(15)),
	col("inmemory_compression", vc(14)),
	col("inmemory_duplicate", vc(13)),
)

var allViews = newCatalogView("all_views", "a_views",
	notNull("owner", vc(128)),
	notNull("view_name", vc(128)),
	col("text", long),
)

var allSequences = newCatalogView("all_sequences", "a_sequences",
	notNull("sequence_owner", vc(128)),
	notNull("sequence_name", vc(128)),
	col("min_value", number),
	col("max_value", number),
	notNull("increment_by", number),
	col("cycle_flag", vc(1)),
	col("order_flag", vc(1)),
	col("if_avail", vc(1)),
	notNull("cache_size", number),
	notNull("last_number", number),
	col("session_flag", vc(1)),
	col("scale_flag", vc(1)),
	col("extend_flag", vc(1)),
)

var allUsers = newCatalogView("all_users", "a_users",
	notNull("username", vc(128)),
	notNull("user_id", number),
	notNull("created", date),
)

var allMViews = newCatalogView("all_mviews", "a_mviews",
	notNull("owner", vc(128)),
	notNull("mview_name", vc(128)),
	notNull("container_name", vc(128)),
	col("query", long),
	col("query_len", number),
	col("updatable", ch(1)),
	col("rewrite_enabled", vc(1)),
	col("rewrite_capability", ch(7)),
	col("refresh_mode", vc(6)),
	col("refresh_method", vc(1)),
	col("build_mode", vc(9)),
	col("fast_refreshable", vc(3)),
	col("last_refresh_type", vc(8)),
	col("last_refresh_date", date),
	col("last_refresh_end_time", date),
	col("staleness", vc(9)),
	col("compile_state", ch(5)),
	col("use_no_index", ch(1)),
	col("interval", vc(2000)),
	col("reduced_precision", vc(1)),
	col("refresh_key", vc(11)),
)

var allTabIdentityCols = newCatalogView("all_tab_identity_cols", "a_tab_identity_cols",
	notNull("owner", vc(128)),
	notNull("table_name", vc(128)),
	notNull("column_name", vc(128)),
	col("generation_type", vc(18)),
	notNull("sequence_name", vc(128)),
	col("identity_options", vc(65532)),
)

var allTabCols = newCatalogView("all_tab_cols", "a_tab_cols",
	notNull("owner", vc(128)),
	notNull("table_name", vc(128)),
	notNull("column_name", vc(128)),
	col("data_type", vc(128)),
	col("data_type_owner", vc(128)),
	notNull("data_length", number),
	col("data_precision", number),
	col("data_scale", number),
	col("nullable", vc(1)),
	col("column_id", number),
	col("data_default", long),
	col("default_length", number),
	col("num_nulls", number),
	col("char_col_decl_length", number),
	col("char_length", number),
	col("char_used", vc(1)),
	col("hidden_column", vc(1)),
	col("virtual_column", vc(1)),
	col("segment_column_id", number),
	notNull("internal_column_id", number),
	col("qualified_col_name", vc(4000)),
)

var allTabComments = newCatalogView("all_tab_comments", "a_tab_comments",
	notNull("owner", vc(128)),
	notNull("table_name", vc(128)),
	col("table_type", vc(9)),
	col("comments", vc(4000)),
)

var allColComments = newCatalogView("all_col_comments", "a_col_comments",
	notNull("owner", vc(128)),
	notNull("table_name", vc(128)),
	notNull("column_name", vc(128)),
	col("comments", vc(4000)),
)

var allMViewComments = newCatalogView("all_mview_comments", "a_mview_comments",
	notNull("owner", vc(128)),
	notNull("mview_name", vc(128)),
	col("comments", vc(4000)),
)

var allIndColumns = newCatalogView("all_ind_columns", "a_ind_columns",
	notNull("index_owner", vc(128)),
	notNull("index_name", vc(128)),
	notNull("table_owner", vc(128)),
	notNull("table_name", vc(128)),
	col("column_name", vc(128)),
	notNull("column_position", number),
	notNull("column_length", number),
	col("descend", vc(4)),
)

var allIndexes = newCatalogView("all_indexes", "a_indexes",
	notNull("owner", vc(128)),
	notNull("index_name", vc(128)),
	col("index_type", vc(26)),
	notNull("table_owner", vc(128)),
	notNull("table_name", vc(128)),
	col("table_type", ch(9)),
	col("uniqueness", vc(9)),
	col("compression", vc(8)),
	col("prefix_length", number),
	col("tablespace_name", vc(128)),
	col("logging", vc(3)),
	col("status", vc(8)),
	col("num_rows", number),
	col("last_analyzed", date),
	col("partitioned", vc(3)),
	col("generated_by_system", vc(1)),
	col("referential", vc(3)),
	col("visibility", vc(9)),
	col("parameters", vc(1000)),
)

var allIndExpressions = newCatalogView("all_ind_expressions", "a_ind_expressions",
	notNull("index_owner", vc(128)),
	notNull("index_name", vc(128)),
	notNull("table_owner", vc(128)),
	notNull("table_name", vc(128)),
	notNull("column_position", number),
	col("column_expression", long),
)

var allConstraints = newCatalogView("all_constraints", "a_constraints",
	col("owner", vc(128)),
	col("constraint_name", vc(128)),
	col("con_type", vc(22)),
	col("constraint_type", vc(1)),
	col("table_name", vc(128)),
	col("search_condition", vc(65532)),
	col("r_owner", vc(128)),
	col("r_constraint_name", vc(128)),
	col("delete_rule", vc(9)),
	col("status", vc(8)),
	col("deferrable", vc(14)),
	col("deferred", vc(9)),
	col("index_owner", vc(128)),
	col("index_name", vc(128)),
)

var allConsColumns = newCatalogView("all_cons_columns", "a_cons_columns",
	notNull("owner", vc(128)),
	notNull("constraint_name", vc(128)),
	notNull("table_name", vc(128)),
	col("column_name", vc(128)),
	col("position", number),
)

var allDBLinks = newCatalogView("all_db_links", "a_db_links",
	notNull("owner", vc(128)),
	notNull("db_link", vc(128)),
	col("username", vc(128)),
	col("host", vc(128)),
	notNull("created", date),
)

// Tibero's all_synonyms only exposes the target as org_object_owner and
// org_object_name, the latter carrying "@link" for remote objects.
var allSynonyms = newCatalogView("all_synonyms", "a_synonyms",
	col("owner", vc(128)),
	col("synonym_name", vc(128)),
	col("org_object_owner", vc(128)),
	col("org_object_name", vc(257)),
)

var allObjects = newCatalogView("all_objects", "a_objects",
	notNull("owner", vc(128)),
	notNull("object_name", vc(128)),
	col("subobject_name", vc(128)),
	notNull("object_id", number),
	col("object_type", vc(23)),
	notNull("object_type_no", number),
	notNull("created", date),
	notNull("last_ddl_time", date),
	col("timestamp", vc(19)),
	col("status", vc(7)),
	col("temporary", vc(1)),
)
