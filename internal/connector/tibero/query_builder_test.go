package tibero

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/faucetdb/tibero/internal/connector"
	"github.com/faucetdb/tibero/internal/dialect"
)

// newTestConnector creates a TiberoConnector with a known schema name and
// no database connection, suitable for query building tests.
func newTestConnector(t *testing.T, opts dialect.Options) *TiberoConnector {
	t.Helper()
	d, err := dialect.New(opts, zap.NewNop())
	require.NoError(t, err)
	return &TiberoConnector{dialect: d, logger: zap.NewNop(), schemaName: "scott"}
}

func rownumOptions() dialect.Options {
	opts := dialect.DefaultOptions()
	opts.EnableOffsetFetch = false
	return opts
}

// ---------------------------------------------------------------------------
// BuildSelect tests
// ---------------------------------------------------------------------------

func TestBuildSelect(t *testing.T) {
	tests := []struct {
		name     string
		opts     dialect.Options
		req      connector.SelectRequest
		wantSQL  string
		wantArgs []any
		wantErr  string
	}{
		{
			name:    "empty table returns error",
			opts:    dialect.DefaultOptions(),
			req:     connector.SelectRequest{},
			wantErr: "table name is required",
		},
		{
			name:    "negative limit returns error",
			opts:    dialect.DefaultOptions(),
			req:     connector.SelectRequest{Table: "emp", Limit: -1},
			wantErr: "must not be negative",
		},
		{
			name:    "simple select all",
			opts:    dialect.DefaultOptions(),
			req:     connector.SelectRequest{Table: "emp"},
			wantSQL: "SELECT * FROM scott.emp",
		},
		{
			name:    "explicit schema and fields",
			opts:    dialect.DefaultOptions(),
			req:     connector.SelectRequest{Schema: "hr", Table: "emp", Fields: []string{"empno", "ename"}},
			wantSQL: "SELECT emp.empno, emp.ename FROM hr.emp",
		},
		{
			name:    "case sensitive names are quoted",
			opts:    dialect.DefaultOptions(),
			req:     connector.SelectRequest{Table: "Emp", Fields: []string{"Name"}},
			wantSQL: `SELECT "Emp"."Name" FROM scott."Emp"`,
		},
		{
			name: "equality filters bind in column order",
			opts: dialect.DefaultOptions(),
			req: connector.SelectRequest{
				Table:  "emp",
				Equals: map[string]any{"job": "CLERK", "deptno": 10},
			},
			wantSQL:  "SELECT * FROM scott.emp WHERE emp.deptno = ? AND emp.job = ?",
			wantArgs: []any{10, "CLERK"},
		},
		{
			name: "order and offset fetch",
			opts: dialect.DefaultOptions(),
			req: connector.SelectRequest{
				Table:  "emp",
				Fields: []string{"ename"},
				Order:  []connector.OrderField{{Column: "sal", Desc: true}, {Column: "ename"}},
				Limit:  10,
				Offset: 20,
			},
			wantSQL: "SELECT emp.ename FROM scott.emp ORDER BY emp.sal DESC, emp.ename OFFSET 20 ROWS FETCH FIRST 10 ROWS ONLY",
		},
		{
			name: "rownum limit",
			opts: rownumOptions(),
			req: connector.SelectRequest{
				Table:  "emp",
				Fields: []string{"ename"},
				Limit:  5,
			},
			wantSQL: "SELECT anon_1.ename FROM (SELECT emp.ename FROM scott.emp) anon_1 WHERE ROWNUM <= 5",
		},
		{
			name: "rownum limit and offset with filter",
			opts: rownumOptions(),
			req: connector.SelectRequest{
				Table:  "emp",
				Fields: []string{"ename"},
				Equals: map[string]any{"deptno": 30},
				Limit:  10,
				Offset: 20,
			},
			wantSQL: "SELECT anon_1.ename FROM (" +
				"SELECT anon_2.ename, ROWNUM AS ora_rn FROM (SELECT emp.ename FROM scott.emp WHERE emp.deptno = ?) anon_2 WHERE ROWNUM <= 30" +
				") anon_1 WHERE ora_rn > 20",
			wantArgs: []any{30},
		},
		{
			name: "rownum for update of",
			opts: rownumOptions(),
			req: connector.SelectRequest{
				Table:       "emp",
				Fields:      []string{"ename"},
				Limit:       10,
				ForUpdateOf: []string{"sal"},
				NoWait:      true,
			},
			wantSQL: "SELECT anon_1.ename FROM (SELECT emp.ename, emp.sal FROM scott.emp) anon_1 WHERE ROWNUM <= 10 FOR UPDATE OF anon_1.sal NOWAIT",
		},
		{
			name: "filter expression joins equality filters",
			opts: dialect.DefaultOptions(),
			req: connector.SelectRequest{
				Table:  "emp",
				Equals: map[string]any{"deptno": 10},
				Filter: "sal > 1000 OR job = 'CLERK'",
			},
			wantSQL:  "SELECT * FROM scott.emp WHERE emp.deptno = ? AND (emp.sal > ? OR emp.job = ?)",
			wantArgs: []any{10, int64(1000), "CLERK"},
		},
		{
			name:    "invalid filter returns error",
			opts:    dialect.DefaultOptions(),
			req:     connector.SelectRequest{Table: "emp", Filter: "sal >"},
			wantErr: "filter: expected value after sal >",
		},
		{
			name:    "unsafe column name returns error",
			opts:    dialect.DefaultOptions(),
			req:     connector.SelectRequest{Table: "emp", Fields: []string{"ename; DROP TABLE emp"}},
			wantErr: "invalid identifier",
		},
		{
			name:    "for update without of list",
			opts:    dialect.DefaultOptions(),
			req:     connector.SelectRequest{Table: "emp", ForUpdateOf: []string{}},
			wantSQL: "SELECT * FROM scott.emp FOR UPDATE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestConnector(t, tt.opts)
			sql, args, err := c.BuildSelect(context.Background(), tt.req)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

// empColumns are the all_tab_cols rows of scott.emp.
func empColumns() []dialect.Row {
	row := func(name, typ string, length any) dialect.Row {
		return dialect.Row{
			"table_name": "EMP", "column_name": name, "data_type": typ,
			"char_length": length, "data_precision": nil, "data_scale": nil,
			"nullable": "Y", "data_default": nil, "comments": nil,
			"virtual_column": "NO", "identity_options": nil, "default_on_null": nil,
		}
	}
	return []dialect.Row{row("EMPNO", "NUMBER", nil), row("ENAME", "VARCHAR2", 10)}
}

func TestBuildSelectExpandsStarForRownumOffset(t *testing.T) {
	c := newTestConnector(t, rownumOptions())
	q := &stubQueryer{rows: map[string][]dialect.Row{"all_tab_cols": empColumns()}}
	c.queryer = q

	sql, args, err := c.BuildSelect(context.Background(), connector.SelectRequest{Table: "emp", Limit: 5, Offset: 10})
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT anon_1.empno, anon_1.ename FROM ("+
			"SELECT anon_2.empno, anon_2.ename, ROWNUM AS ora_rn FROM (SELECT emp.empno, emp.ename FROM scott.emp) anon_2 WHERE ROWNUM <= 15"+
			") anon_1 WHERE ora_rn > 10",
		sql)
	assert.Empty(t, args)
	assert.NotContains(t, sql, "anon_1.*")
	require.NotEmpty(t, q.calls)
	assert.Contains(t, q.calls[0], "all_tab_cols")
	assert.Contains(t, q.args[0], "EMP")
	reflected := len(q.calls)

	// Offset fetch and limit-only pages keep the star and reflect nothing.
	sql, _, err = c.BuildSelect(context.Background(), connector.SelectRequest{Table: "emp", Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, "SELECT anon_1.* FROM (SELECT * FROM scott.emp) anon_1 WHERE ROWNUM <= 5", sql)

	fetch := newTestConnector(t, dialect.DefaultOptions())
	fetch.queryer = q
	sql, _, err = fetch.BuildSelect(context.Background(), connector.SelectRequest{Table: "emp", Limit: 5, Offset: 10})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM scott.emp OFFSET 10 ROWS FETCH FIRST 5 ROWS ONLY", sql)
	assert.Len(t, q.calls, reflected)
}

func TestBuildSelectRownumOffsetUnknownTable(t *testing.T) {
	c := newTestConnector(t, rownumOptions())
	c.queryer = &stubQueryer{}

	_, _, err := c.BuildSelect(context.Background(), connector.SelectRequest{Table: "nope", Offset: 10})
	var nst *dialect.NoSuchTableError
	assert.ErrorAs(t, err, &nst)
	assert.ErrorContains(t, err, "columns of nope")
}

func TestBuildSelectRownumOffsetWithoutConnection(t *testing.T) {
	c := newTestConnector(t, rownumOptions())

	_, _, err := c.BuildSelect(context.Background(), connector.SelectRequest{Table: "emp", Offset: 10})
	var ce *dialect.CompileError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Error(), "select named columns")
}

func TestQuoteIdentifierBeforeConnect(t *testing.T) {
	c := New(nil)
	assert.Equal(t, `"EMP"`, c.QuoteIdentifier("EMP"))
	assert.Equal(t, "emp", c.QuoteIdentifier("emp"))

	sql, _, err := c.BuildSelect(context.Background(), connector.SelectRequest{Table: "emp", Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM emp FETCH FIRST 3 ROWS ONLY", sql)
}

func TestQuoteIdentifier(t *testing.T) {
	c := newTestConnector(t, dialect.DefaultOptions())
	assert.Equal(t, "emp", c.QuoteIdentifier("emp"))
	assert.Equal(t, `"EMP"`, c.QuoteIdentifier("EMP"))
	assert.Equal(t, `"select"`, c.QuoteIdentifier("select"))
	assert.Equal(t, DriverName, c.DriverName())
}
