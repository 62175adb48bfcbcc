package dialect

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest/observer"

	"github.com/faucetdb/tibero/internal/model"
	"github.com/faucetdb/tibero/internal/sqltypes"
)

func key(schema, name string) model.TableKey { return model.TableKey{Schema: schema, Name: name} }

// colRow builds an all_tab_cols row; extra overrides the defaults.
func colRow(table, column, dataType string, extra Row) Row {
	r := Row{
		"table_name":       table,
		"column_name":      column,
		"data_type":        dataType,
		"char_length":      nil,
		"data_precision":   nil,
		"data_scale":       nil,
		"nullable":         "Y",
		"data_default":     nil,
		"comments":         nil,
		"virtual_column":   "NO",
		"identity_options": nil,
		"default_on_null":  nil,
	}
	for k, v := range extra {
		r[k] = v
	}
	return r
}

func objectRows(names ...string) []Row {
	out := make([]Row, len(names))
	for i, n := range names {
		out[i] = Row{"object_name": n}
	}
	return out
}

func conRow(table, typ, name, column string, extra Row) Row {
	r := Row{
		"table_name":       table,
		"constraint_type":  typ,
		"constraint_name":  name,
		"local_column":     column,
		"remote_table":     nil,
		"remote_column":    nil,
		"remote_owner":     nil,
		"search_condition": nil,
		"delete_rule":      nil,
		"index_name":       nil,
	}
	for k, v := range extra {
		r[k] = v
	}
	return r
}

func indexRow(table, index, column string, extra Row) Row {
	r := Row{
		"table_name":        table,
		"index_name":        index,
		"column_name":       column,
		"index_type":        "NORMAL",
		"uniqueness":        "NONUNIQUE",
		"compression":       "DISABLED",
		"prefix_length":     nil,
		"descend":           "ASC",
		"column_expression": nil,
	}
	for k, v := range extra {
		r[k] = v
	}
	return r
}

func inspect(t *testing.T, d *Dialect, db *fakeDB) *Inspector {
	t.Helper()
	return d.NewInspector(db, nil)
}

func messages(logs *observer.ObservedLogs) []string {
	var out []string
	for _, e := range logs.All() {
		out = append(out, e.Message)
	}
	return out
}

// ---------------------------------------------------------------------------
// Names
// ---------------------------------------------------------------------------

func TestDefaultSchemaNameIsCached(t *testing.T) {
	d := newTestDialect(t, DefaultOptions())
	db := schemaDB()
	in := inspect(t, d, db)
	ctx := context.Background()

	name, err := in.DefaultSchemaName(ctx)
	require.NoError(t, err)
	assert.Equal(t, "scott", name)

	_, err = in.DefaultSchemaName(ctx)
	require.NoError(t, err)
	assert.Len(t, db.callsMatching(sqlDefaultSchema), 1)

	// a new pass asks again
	_, err = d.NewInspector(db, nil).DefaultSchemaName(ctx)
	require.NoError(t, err)
	assert.Len(t, db.callsMatching(sqlDefaultSchema), 2)
}

func TestGetTableNames(t *testing.T) {
	d := newTestDialect(t, DefaultOptions())
	db := schemaDB().on("MINUS", Row{"table_name": "EMP"}, Row{"table_name": "MixedCase"})
	in := inspect(t, d, db)
	ctx := context.Background()

	names, err := in.GetTableNames(ctx, ReflectOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"emp", "MixedCase"}, names)

	calls := db.callsMatching("MINUS")
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].args, "SCOTT")

	_, err = in.GetTableNames(ctx, ReflectOptions{Schema: "hr"})
	require.NoError(t, err)
	calls = db.callsMatching("MINUS")
	require.Len(t, calls, 2)
	assert.Contains(t, calls[1].args, "HR")
}

func TestHasTable(t *testing.T) {
	d := newTestDialect(t, DefaultOptions())
	db := schemaDB().onArgs("a_tables.owner FROM", func(args []any) []Row {
		if args[0] == "EMP" {
			return []Row{{"table_name": "EMP"}}
		}
		return nil
	})
	in := inspect(t, d, db)
	ctx := context.Background()

	ok, err := in.HasTable(ctx, "emp", ReflectOptions{})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = in.HasTable(ctx, "nope", ReflectOptions{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasSequence(t *testing.T) {
	d := newTestDialect(t, DefaultOptions())
	db := schemaDB().onArgs("SELECT a_sequences.sequence_name FROM", func(args []any) []Row {
		if args[0] == "EMP_SEQ" {
			return []Row{{"sequence_name": "EMP_SEQ"}}
		}
		return nil
	})
	in := inspect(t, d, db)
	ctx := context.Background()

	ok, err := in.HasSequence(ctx, "emp_seq", ReflectOptions{})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = in.HasSequence(ctx, "nope", ReflectOptions{Schema: "hr", DBLink: "remote"})
	require.NoError(t, err)
	assert.False(t, ok)

	calls := db.callsMatching("a_sequences.sequence_name")
	require.Len(t, calls, 2)
	assert.Equal(t, []any{"EMP_SEQ", "SCOTT"}, calls[0].args)
	assert.Equal(t, []any{"NOPE", "HR"}, calls[1].args)
	assert.Contains(t, calls[1].sql, "all_sequences@remote")

	db.failOn = "a_sequences.sequence_name"
	_, err = in.HasSequence(ctx, "emp_seq", ReflectOptions{})
	assert.ErrorContains(t, err, "has sequence SCOTT.emp_seq")
}

func TestGetTempTableNames(t *testing.T) {
	opts := DefaultOptions()
	opts.ExcludeTablespaces = []string{"SYSTEM"}
	d := newTestDialect(t, opts)
	db := schemaDB().on("DURATION IS NOT NULL",
		Row{"table_name": "SESSION_TMP"},
		Row{"table_name": "Mixed_Tmp"},
	)
	in := inspect(t, d, db)
	ctx := context.Background()

	names, err := in.GetTempTableNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"session_tmp", "Mixed_Tmp"}, names)

	_, err = in.GetTempTableNames(ctx)
	require.NoError(t, err)
	calls := db.callsMatching("DURATION IS NOT NULL")
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].args, "SCOTT")
	assert.Contains(t, calls[0].sql, "FROM all_tables")
	assert.Contains(t, calls[0].sql, "NOT IN ('SYSTEM')")
	assert.NotContains(t, calls[0].sql, "@")
}

func TestListDBLinks(t *testing.T) {
	d := newTestDialect(t, DefaultOptions())
	db := (&fakeDB{}).on("FROM all_db_links", Row{"db_link": "HQ"}, Row{"db_link": "Branch.Link"})
	in := inspect(t, d, db)
	ctx := context.Background()

	links, err := in.ListDBLinks(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"hq", "Branch.Link"}, links)

	_, err = in.ListDBLinks(ctx, "@remote")
	require.NoError(t, err)

	calls := db.callsMatching("all_db_links")
	require.Len(t, calls, 2)
	assert.Equal(t, "SELECT a_db_links.db_link FROM all_db_links a_db_links", calls[0].sql)
	assert.Empty(t, calls[0].args)
	assert.Contains(t, calls[1].sql, "all_db_links@remote a_db_links")
}

func TestGetViewDefinition(t *testing.T) {
	d := newTestDialect(t, DefaultOptions())
	db := schemaDB().onArgs("SELECT a_views.text FROM", func(args []any) []Row {
		if args[0] == "V_EMP" {
			return []Row{{"text": "SELECT * FROM emp"}}
		}
		return nil
	})
	in := inspect(t, d, db)
	ctx := context.Background()

	text, err := in.GetViewDefinition(ctx, "v_emp", ReflectOptions{})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM emp", text)

	_, err = in.GetViewDefinition(ctx, "missing", ReflectOptions{})
	assert.ErrorIs(t, err, ErrNoSuchTable)
}

// ---------------------------------------------------------------------------
// Columns
// ---------------------------------------------------------------------------

func TestGetMultiColumnsTypes(t *testing.T) {
	d, logs := newObservedDialect(t, DefaultOptions())
	db := schemaDB().
		on(sqlObjects, objectRows("EMP")...).
		on(sqlColumns,
			colRow("EMP", "ID", "NUMBER", Row{"data_scale": int64(0), "nullable": "N"}),
			colRow("EMP", "SAL", "NUMBER", Row{"data_precision": int64(10), "data_scale": int64(2)}),
			colRow("EMP", "BIG", "NUMBER", Row{"data_precision": int64(19), "data_scale": int64(0)}),
			colRow("EMP", "NAME", "VARCHAR", Row{"char_length": int64(30), "data_default": "'x'"}),
			colRow("EMP", "RATE", "FLOAT", Row{"data_precision": int64(126)}),
			colRow("EMP", "HIRED", "TIMESTAMP(6) WITH TIME ZONE", nil),
			colRow("EMP", "DOC", "XMLTYPE", nil),
			colRow("EMP", "lower", "DATE", Row{"comments": "case sensitive"}),
		)
	in := inspect(t, d, db)

	data, err := in.GetMultiColumns(context.Background(), ReflectOptions{})
	require.NoError(t, err)
	cols := data[key("", "emp")]
	require.Len(t, cols, 8)

	assert.Equal(t, sqltypes.Integer{}, cols[0].Type)
	assert.False(t, cols[0].Nullable)
	assert.Equal(t, sqltypes.Number{Precision: ptr(10), Scale: ptr(2)}, cols[1].Type)
	assert.Equal(t, sqltypes.AffinityNumeric, sqltypes.AffinityOf(cols[1].Type))
	assert.Equal(t, sqltypes.Number{Precision: ptr(19), Scale: ptr(0)}, cols[2].Type)
	assert.Equal(t, sqltypes.VarChar{Length: 30}, cols[3].Type)
	assert.Equal(t, ptr("'x'"), cols[3].Default)
	assert.Equal(t, sqltypes.DoublePrecision{}, cols[4].Type)
	assert.Equal(t, sqltypes.Timestamp{Timezone: true}, cols[5].Type)
	assert.Equal(t, sqltypes.NullType{}, cols[6].Type)
	assert.Equal(t, "lower", cols[7].Name)
	assert.True(t, cols[7].Quote)
	assert.Equal(t, ptr("case sensitive"), cols[7].Comment)

	assert.Contains(t, messages(logs), "Did not recognize type 'XMLTYPE' of column 'doc'")
}

func TestComputedAndIdentityColumns(t *testing.T) {
	opts := DefaultOptions()
	opts.ReflectIdentityColumns = true
	d := newTestDialect(t, opts)
	db := schemaDB().
		on(sqlObjects, objectRows("T")...).
		on(sqlColumns,
			colRow("T", "ID", "NUMBER", Row{
				"data_default":     `"SCOTT"."ISEQ$$_1".nextval`,
				"identity_options": "ALWAYS, START WITH: 1, INCREMENT BY: 1, MAX_VALUE: 9999, CYCLE_FLAG: N, CACHE_SIZE: 20, ORDER_FLAG: Y",
				"default_on_null":  "NO",
			}),
			colRow("T", "TWICE", "NUMBER", Row{"data_default": "ID * 2", "virtual_column": "Y"}),
		)
	in := inspect(t, d, db)

	cols, err := in.GetMultiColumns(context.Background(), ReflectOptions{})
	require.NoError(t, err)
	got := cols[key("", "t")]
	require.Len(t, got, 2)

	assert.Nil(t, got[0].Default)
	assert.Equal(t, &model.Identity{
		Always:    true,
		Start:     dec("1"),
		Increment: dec("1"),
		MaxValue:  dec("9999"),
		Cycle:     ptr(false),
		Cache:     ptr(int64(20)),
		Order:     ptr(true),
	}, got[0].Identity)

	assert.Nil(t, got[1].Default)
	assert.Equal(t, &model.Computed{SQLText: "ID * 2"}, got[1].Computed)

	require.NotEmpty(t, db.callsMatching(sqlColumns))
	assert.Contains(t, db.callsMatching(sqlColumns)[0].sql, "all_tab_identity_cols")
}

func TestIdentityDefaultBounds(t *testing.T) {
	opts := DefaultOptions()
	opts.ReflectIdentityColumns = true
	d := newTestDialect(t, opts)
	db := schemaDB().
		on(sqlObjects, objectRows("T")...).
		on(sqlColumns,
			colRow("T", "ID", "NUMBER", Row{
				"data_default":     `"SCOTT"."ISEQ$$_7".nextval`,
				"identity_options": "BY DEFAULT, START WITH: 1, INCREMENT BY: -1, MAX_VALUE: 9999999999999999999999999999, MIN_VALUE: -999999999999999999999999999, CYCLE_FLAG: N, CACHE_SIZE: 20, ORDER_FLAG: N",
				"default_on_null":  "NO",
			}),
		)
	in := inspect(t, d, db)

	cols, err := in.GetMultiColumns(context.Background(), ReflectOptions{})
	require.NoError(t, err)
	id := cols[key("", "t")][0].Identity
	require.NotNil(t, id)
	require.NotNil(t, id.MaxValue)
	require.NotNil(t, id.MinValue)
	assert.Equal(t, "9999999999999999999999999999", id.MaxValue.String())
	assert.Equal(t, "-999999999999999999999999999", id.MinValue.String())
	assert.Equal(t, "-1", id.Increment.String())
	assert.False(t, id.Always)

	assert.Contains(t, d.Identity(id), "MINVALUE -999999999999999999999999999 MAXVALUE 9999999999999999999999999999")
}

func TestGetColumnsSkipsObjectListForSingleTable(t *testing.T) {
	d := newTestDialect(t, DefaultOptions())
	db := schemaDB().on(sqlColumns, colRow("EMP", "ID", "NUMBER", nil))
	in := inspect(t, d, db)
	ctx := context.Background()

	cols, err := in.GetColumns(ctx, "emp", ReflectOptions{})
	require.NoError(t, err)
	assert.Len(t, cols, 1)
	assert.Empty(t, db.callsMatching(sqlObjects))

	_, err = in.GetColumns(ctx, "nope", ReflectOptions{})
	var nst *NoSuchTableError
	require.True(t, errors.As(err, &nst))
	assert.Equal(t, "no such table: nope", nst.Error())
}

func TestMultiColumnsBatchesObjects(t *testing.T) {
	d := newTestDialect(t, DefaultOptions())
	names := objectNames(1201)
	db := schemaDB().
		on(sqlObjects, objectRows(names...)...).
		onArgs(sqlColumns, func(args []any) []Row {
			var out []Row
			for _, a := range args {
				if s, ok := a.(string); ok && strings.HasPrefix(s, "T") {
					out = append(out, colRow(s, "ID", "NUMBER", nil))
				}
			}
			return out
		})
	in := inspect(t, d, db)

	data, err := in.GetMultiColumns(context.Background(), ReflectOptions{})
	require.NoError(t, err)
	assert.Len(t, data, 1201)
	assert.Len(t, db.callsMatching(sqlColumns), 3)
}

func TestMultiColumnsOverDBLink(t *testing.T) {
	d := newTestDialect(t, DefaultOptions())
	db := schemaDB().
		on(sqlObjects, objectRows("EMP")...).
		on(sqlColumns, colRow("EMP", "ID", "NUMBER", nil))
	in := inspect(t, d, db)

	data, err := in.GetMultiColumns(context.Background(), ReflectOptions{DBLink: "remote"})
	require.NoError(t, err)
	assert.Len(t, data[key("", "emp")], 1)

	objects := db.callsMatching(sqlObjects)
	require.Len(t, objects, 1)
	assert.Contains(t, objects[0].sql, "all_objects@remote")
	assert.NotEmpty(t, objects[0].args)

	columns := db.callsMatching("all_tab_cols@remote")
	require.Len(t, columns, 1)
	assert.Empty(t, columns[0].args)
	assert.Contains(t, columns[0].sql, "'EMP'")
}

// ---------------------------------------------------------------------------
// Synonyms
// ---------------------------------------------------------------------------

func TestSynonymResolution(t *testing.T) {
	d := newTestDialect(t, DefaultOptions())
	db := schemaDB().
		on(sqlSynonyms, Row{"synonym_name": "S", "org_object_name": "T@L", "org_object_owner": "B"}).
		on(sqlObjects, objectRows("T")...).
		on(sqlColumns, colRow("T", "X", "NUMBER", nil))
	in := inspect(t, d, db)

	data, err := in.GetMultiColumns(context.Background(), ReflectOptions{Schema: "a", ResolveSynonyms: true})
	require.NoError(t, err)
	require.Len(t, data, 1)
	cols, ok := data[key("a", "s")]
	require.True(t, ok, "keys: %v", SortedKeys(data))
	assert.Equal(t, "x", cols[0].Name)

	syn := db.callsMatching(sqlSynonyms)
	require.Len(t, syn, 1)
	assert.Equal(t, []any{"A"}, syn[0].args)

	remote := db.callsMatching("all_tab_cols@L")
	require.Len(t, remote, 1)
	assert.Contains(t, remote[0].sql, "'B'")
	assert.Contains(t, remote[0].sql, "('T')")

	objects := db.callsMatching(sqlObjects)
	require.Len(t, objects, 1)
	assert.Contains(t, objects[0].sql, "all_objects@L")
	assert.Contains(t, objects[0].args, "B")
	assert.Contains(t, objects[0].args, "T")
}

func TestSynonymResolutionWithoutSynonyms(t *testing.T) {
	d := newTestDialect(t, DefaultOptions())
	db := schemaDB().
		on(sqlObjects, objectRows("EMP")...).
		on(sqlColumns, colRow("EMP", "ID", "NUMBER", nil))
	in := inspect(t, d, db)

	data, err := in.GetMultiColumns(context.Background(), ReflectOptions{ResolveSynonyms: true})
	require.NoError(t, err)
	assert.Contains(t, data, key("", "emp"))
	assert.Len(t, db.callsMatching(sqlSynonyms), 1)
}

func TestMalformedSynonym(t *testing.T) {
	d := newTestDialect(t, DefaultOptions())
	db := schemaDB().on(sqlSynonyms, Row{"synonym_name": "S", "org_object_name": "T", "org_object_owner": "B"})
	in := inspect(t, d, db)

	_, err := in.GetMultiColumns(context.Background(), ReflectOptions{ResolveSynonyms: true})
	assert.ErrorIs(t, err, ErrMalformedSynonym)
}

// ---------------------------------------------------------------------------
// Indexes and constraints
// ---------------------------------------------------------------------------

func TestIndexesExcludePrimaryKey(t *testing.T) {
	d := newTestDialect(t, DefaultOptions())
	db := schemaDB().
		on(sqlObjects, objectRows("EMP", "DEPT")...).
		on(sqlConstraints,
			conRow("EMP", "P", "PK_EMP", "ID", Row{"index_name": "PK_EMP"}),
			conRow("EMP", "U", "UQ_CODE", "CODE", Row{"index_name": "UQ_CODE"}),
		).
		on(sqlIndexes,
			indexRow("EMP", "PK_EMP", "ID", Row{"uniqueness": "UNIQUE"}),
			indexRow("EMP", "IX_NAME", "NAME", Row{"index_type": "BITMAP", "compression": "ENABLED", "prefix_length": int64(1)}),
			indexRow("EMP", "IX_NAME", "DEPT_ID", nil),
			indexRow("EMP", "IX_EXPR", "SYS_NC00005$", Row{
				"index_type":        "FUNCTION-BASED NORMAL",
				"descend":           "DESC",
				"column_expression": `UPPER("NAME")`,
			}),
			indexRow("EMP", "UQ_CODE", "CODE", Row{"uniqueness": "UNIQUE"}),
		)
	in := inspect(t, d, db)
	ctx := context.Background()

	data, err := in.GetMultiIndexes(ctx, ReflectOptions{})
	require.NoError(t, err)
	assert.Equal(t, []model.Index{}, data[key("", "dept")])

	idx := data[key("", "emp")]
	require.Len(t, idx, 3)
	assert.Equal(t, "ix_name", idx[0].Name)
	assert.Equal(t, []string{"name", "dept_id"}, idx[0].Columns())
	assert.True(t, idx[0].DialectOptions.Bitmap)
	assert.Equal(t, ptr(1), idx[0].DialectOptions.Compress)

	assert.Equal(t, "ix_expr", idx[1].Name)
	assert.Equal(t, []*string{nil}, idx[1].ColumnNames)
	assert.Equal(t, []string{`UPPER("NAME")`}, idx[1].Expressions)
	assert.Equal(t, map[string][]string{`UPPER("NAME")`: {"desc"}}, idx[1].ColumnSorting)

	assert.Equal(t, "uq_code", idx[2].Name)
	assert.True(t, idx[2].Unique)

	uniques, err := in.GetMultiUniqueConstraints(ctx, ReflectOptions{})
	require.NoError(t, err)
	assert.Equal(t, []model.UniqueConstraint{{
		Name:            "uq_code",
		ColumnNames:     []string{"code"},
		DuplicatesIndex: "uq_code",
	}}, uniques[key("", "emp")])

	// constraint and index rows are read once per pass
	assert.Len(t, db.callsMatching(sqlConstraints), 1)
	assert.Len(t, db.callsMatching(sqlIndexes), 1)
}

func TestPrimaryKeys(t *testing.T) {
	d := newTestDialect(t, DefaultOptions())
	db := schemaDB().
		on(sqlObjects, objectRows("EMP", "LOG")...).
		on(sqlConstraints,
			conRow("EMP", "P", "PK_EMP", "ID", nil),
			conRow("EMP", "P", "PK_EMP", "VERSION", nil),
		)
	in := inspect(t, d, db)

	pks, err := in.GetMultiPKConstraint(context.Background(), ReflectOptions{})
	require.NoError(t, err)
	assert.Equal(t, model.PrimaryKey{Name: "pk_emp", ConstrainedColumns: []string{"id", "version"}}, pks[key("", "emp")])
	assert.Equal(t, model.PrimaryKey{ConstrainedColumns: []string{}}, pks[key("", "log")])
}

func TestForeignKeys(t *testing.T) {
	d, logs := newObservedDialect(t, DefaultOptions())
	db := schemaDB().
		on(sqlObjects, objectRows("EMP")...).
		on(sqlConstraints,
			conRow("EMP", "R", "FK_DEPT", "DEPT_ID", Row{
				"remote_table": "DEPT", "remote_column": "ID", "remote_owner": "SCOTT", "delete_rule": "CASCADE",
			}),
			conRow("EMP", "R", "FK_MGR", "MGR_ID", Row{
				"remote_table": "BOSS", "remote_column": "ID", "remote_owner": "HR", "delete_rule": "NO ACTION",
			}),
			conRow("EMP", "R", "FK_HIDDEN", "X", Row{"remote_owner": "SECRET", "delete_rule": "NO ACTION"}),
		)
	in := inspect(t, d, db)

	data, err := in.GetMultiForeignKeys(context.Background(), ReflectOptions{})
	require.NoError(t, err)
	assert.Equal(t, []model.ForeignKey{
		{
			Name:               "fk_dept",
			ConstrainedColumns: []string{"dept_id"},
			ReferredTable:      "dept",
			ReferredColumns:    []string{"id"},
			Options:            map[string]string{"ondelete": "CASCADE"},
		},
		{
			Name:               "fk_mgr",
			ConstrainedColumns: []string{"mgr_id"},
			ReferredSchema:     "hr",
			ReferredTable:      "boss",
			ReferredColumns:    []string{"id"},
			Options:            map[string]string{},
		},
	}, data[key("", "emp")])

	require.Equal(t, 1, logs.Len())
	assert.Equal(t,
		"Got 'None' querying 'table_name' from all_cons_columns - does the user have proper rights to the table?",
		logs.All()[0].Message)
	assert.Equal(t, "fk_hidden", logs.All()[0].ContextMap()["constraint"])
}

func TestForeignKeysFollowReferredSynonyms(t *testing.T) {
	d := newTestDialect(t, DefaultOptions())
	db := schemaDB().
		on(sqlSynonyms).
		on(sqlObjects, objectRows("EMP")...).
		on(sqlConstraints,
			conRow("EMP", "R", "FK_BOSS", "MGR_ID", Row{
				"remote_table": "BOSS", "remote_column": "ID", "remote_owner": "HR", "delete_rule": "NO ACTION",
			}),
		).
		on(sqlSynonymOwners, Row{
			"owner": "HR", "org_object_name": "BOSS@HQ", "org_object_owner": "SCOTT", "synonym_name": "MANAGERS",
		})
	in := inspect(t, d, db)

	data, err := in.GetMultiForeignKeys(context.Background(), ReflectOptions{ResolveSynonyms: true})
	require.NoError(t, err)
	fks := data[key("", "emp")]
	require.Len(t, fks, 1)
	assert.Equal(t, "managers", fks[0].ReferredTable)
	assert.Empty(t, fks[0].ReferredSchema)

	owners := db.callsMatching(sqlSynonymOwners)
	require.Len(t, owners, 1)
	assert.Equal(t, []any{"HR"}, owners[0].args)
}

func TestCheckConstraints(t *testing.T) {
	d := newTestDialect(t, DefaultOptions())
	rows := []Row{
		conRow("EMP", "C", "SYS_C0011", "ID", Row{"search_condition": `"ID" IS NOT NULL`}),
		conRow("EMP", "C", "CK_SAL", "SAL", Row{"search_condition": "sal > 0"}),
	}

	tests := []struct {
		name       string
		includeAll bool
		want       []model.CheckConstraint
	}{
		{
			name: "not null checks skipped",
			want: []model.CheckConstraint{{Name: "ck_sal", SQLText: "sal > 0"}},
		},
		{
			name:       "include all",
			includeAll: true,
			want: []model.CheckConstraint{
				{Name: "sys_c0011", SQLText: `"ID" IS NOT NULL`},
				{Name: "ck_sal", SQLText: "sal > 0"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := schemaDB().on(sqlObjects, objectRows("EMP", "DEPT")...).on(sqlConstraints, rows...)
			in := inspect(t, d, db)

			data, err := in.GetMultiCheckConstraints(context.Background(), ReflectOptions{IncludeAll: tt.includeAll})
			require.NoError(t, err)
			assert.Equal(t, tt.want, data[key("", "emp")])
			assert.Equal(t, []model.CheckConstraint{}, data[key("", "dept")])
		})
	}
}

// ---------------------------------------------------------------------------
// Comments and options
// ---------------------------------------------------------------------------

func TestTableComments(t *testing.T) {
	d := newTestDialect(t, DefaultOptions())
	db := schemaDB().on(sqlTabComments,
		Row{"table_name": "EMP", "comments": "staff"},
		Row{"table_name": "MV_EMP", "comments": "snapshot table for snapshot SCOTT.MV_EMP"},
		Row{"table_name": "DEPT", "comments": nil},
	)
	in := inspect(t, d, db)

	data, err := in.GetMultiTableComment(context.Background(), ReflectOptions{})
	require.NoError(t, err)
	assert.Equal(t, model.TableComment{Text: ptr("staff")}, data[key("", "emp")])
	assert.Nil(t, data[key("", "mv_emp")].Text)
	assert.Contains(t, data, key("", "dept"))
	assert.Nil(t, data[key("", "dept")].Text)
}

func TestTableOptions(t *testing.T) {
	d := newTestDialect(t, DefaultOptions())
	db := schemaDB().
		on(sqlTableOptions,
			Row{"table_name": "EMP", "compression": "ENABLED", "compress_for": "BASIC"},
			Row{"table_name": "DEPT", "compression": "DISABLED", "compress_for": nil},
		).
		on(sqlViewNames, Row{"view_name": "V_EMP"})
	in := inspect(t, d, db)

	data, err := in.GetMultiTableOptions(context.Background(), ReflectOptions{Kind: model.KindTable | model.KindView})
	require.NoError(t, err)
	assert.Equal(t, map[model.TableKey]model.TableOptions{
		key("", "emp"):   {"compress": "BASIC"},
		key("", "dept"):  {},
		key("", "v_emp"): {},
	}, data)
}

// ---------------------------------------------------------------------------
// Aggregation
// ---------------------------------------------------------------------------

func reflectionDB() *fakeDB {
	return schemaDB().
		on(sqlObjects, objectRows("EMP", "V_EMP")...).
		on(sqlViewNames, Row{"view_name": "V_EMP"}).
		on(sqlColumns,
			colRow("EMP", "ID", "NUMBER", Row{"data_scale": int64(0), "nullable": "N"}),
			colRow("EMP", "NAME", "VARCHAR", Row{"char_length": int64(40)}),
			colRow("V_EMP", "NAME", "VARCHAR", Row{"char_length": int64(40)}),
		).
		on(sqlConstraints, conRow("EMP", "P", "PK_EMP", "ID", Row{"index_name": "PK_EMP"})).
		on(sqlIndexes,
			indexRow("EMP", "PK_EMP", "ID", Row{"uniqueness": "UNIQUE"}),
			indexRow("EMP", "IX_NAME", "NAME", nil),
		).
		on(sqlTabComments, Row{"table_name": "EMP", "comments": "staff"}).
		on(sqlTableOptions, Row{"table_name": "EMP", "compression": "DISABLED"})
}

func TestReflectSchema(t *testing.T) {
	d := newTestDialect(t, DefaultOptions())
	in := inspect(t, d, reflectionDB())

	s, err := in.ReflectSchema(context.Background(), ReflectOptions{Kind: model.KindTable | model.KindView})
	require.NoError(t, err)

	require.Len(t, s.Tables, 1)
	emp := s.Tables[0]
	assert.Equal(t, "emp", emp.Name)
	assert.Equal(t, "table", emp.Kind)
	assert.Len(t, emp.Columns, 2)
	assert.Equal(t, []string{"id"}, emp.PrimaryKey.ConstrainedColumns)
	require.Len(t, emp.Indexes, 1)
	assert.Equal(t, "ix_name", emp.Indexes[0].Name)
	assert.Equal(t, ptr("staff"), emp.Comment.Text)
	assert.Equal(t, model.TableOptions{}, emp.Options)
	assert.Equal(t, []model.ForeignKey{}, emp.ForeignKeys)

	require.Len(t, s.Views, 1)
	assert.Equal(t, "v_emp", s.Views[0].Name)
	assert.Equal(t, "view", s.Views[0].Kind)
}

func TestReflectTable(t *testing.T) {
	d := newTestDialect(t, DefaultOptions())
	db := reflectionDB()
	in := inspect(t, d, db)
	ctx := context.Background()

	tbl, err := in.ReflectTable(ctx, "emp", ReflectOptions{})
	require.NoError(t, err)
	assert.Equal(t, "emp", tbl.Name)
	assert.Equal(t, sqltypes.Integer{}, tbl.Columns[0].Type)
	assert.Equal(t, "pk_emp", tbl.PrimaryKey.Name)

	// the pass reuses catalog rows
	_, err = in.ReflectTable(ctx, "emp", ReflectOptions{})
	require.NoError(t, err)
	assert.Len(t, db.callsMatching(sqlColumns), 1)

	_, err = in.ReflectTable(ctx, "ghost", ReflectOptions{})
	assert.ErrorIs(t, err, ErrNoSuchTable)
}

func TestReflectionErrorsAreWrapped(t *testing.T) {
	d := newTestDialect(t, DefaultOptions())
	db := schemaDB().on(sqlObjects, objectRows("EMP")...)
	db.failOn = sqlColumns
	in := inspect(t, d, db)

	_, err := in.GetMultiColumns(context.Background(), ReflectOptions{})
	assert.ErrorContains(t, err, "get columns SCOTT: query catalog: connection reset")
}
