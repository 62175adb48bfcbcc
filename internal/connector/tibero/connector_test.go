package tibero

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faucetdb/tibero/internal/connector"
	"github.com/faucetdb/tibero/internal/dialect"
)

// stubQueryer answers every statement containing a key of rows with its
// rows, and records what it ran.
type stubQueryer struct {
	rows  map[string][]dialect.Row
	err   error
	calls []string
	args  [][]any
}

func (s *stubQueryer) Query(_ context.Context, query string, args []any) ([]dialect.Row, error) {
	s.calls = append(s.calls, query)
	s.args = append(s.args, args)
	if s.err != nil {
		return nil, s.err
	}
	for match, rows := range s.rows {
		if strings.Contains(query, match) {
			return rows, nil
		}
	}
	return nil, nil
}

// ---------------------------------------------------------------------------
// Connection string
// ---------------------------------------------------------------------------

func TestConnectionString(t *testing.T) {
	tests := []struct {
		name string
		cfg  connector.ConnectionConfig
		want string
	}{
		{
			name: "host port database",
			cfg:  connector.ConnectionConfig{Host: "db1", Port: 8629, Database: "tibero", User: "scott", Password: "tiger"},
			want: "DRIVER={Tibero};SERVER=db1;PORT=8629;DB=tibero;UID=scott;PWD=tiger",
		},
		{
			name: "named data source",
			cfg:  connector.ConnectionConfig{DSN: "TIBERO7", User: "scott", Password: "tiger"},
			want: "DSN=TIBERO7;UID=scott;PWD=tiger",
		},
		{
			name: "full connection string is kept",
			cfg:  connector.ConnectionConfig{DSN: "DSN=t;UID=a;PWD=b", User: "ignored"},
			want: "DSN=t;UID=a;PWD=b",
		},
		{
			name: "special characters are braced",
			cfg:  connector.ConnectionConfig{Host: "db1", User: "scott", Password: "p;w}d"},
			want: "DRIVER={Tibero};SERVER=db1;UID=scott;PWD={p;w}}d}",
		},
		{
			name: "no credentials",
			cfg:  connector.ConnectionConfig{Host: "db1"},
			want: "DRIVER={Tibero};SERVER=db1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConnectionString(tt.cfg))
		})
	}
}

func TestRedactedConnectionString(t *testing.T) {
	s := ConnectionString(connector.ConnectionConfig{Host: "db1", User: "scott", Password: "p;w}d"})
	assert.Equal(t, "DRIVER={Tibero};SERVER=db1;UID=scott;PWD=***", connector.RedactDSN(s))
}

func TestSetClientEnv(t *testing.T) {
	t.Setenv("TB_NLS_LANG", "MSWIN949")
	// register for restore, then clear
	t.Setenv("TBCLI_WCHAR_TYPE", "")
	require.NoError(t, os.Unsetenv("TBCLI_WCHAR_TYPE"))

	setClientEnv()
	assert.Equal(t, "UCS2", os.Getenv("TBCLI_WCHAR_TYPE"))
	assert.Equal(t, "MSWIN949", os.Getenv("TB_NLS_LANG"))
}

func TestPingWithoutConnection(t *testing.T) {
	c := New(nil)
	assert.ErrorContains(t, c.Ping(context.Background()), "not connected")
	assert.NoError(t, c.Disconnect())
}

// ---------------------------------------------------------------------------
// Introspection
// ---------------------------------------------------------------------------

func TestGetTableNamesUsesConfiguredSchema(t *testing.T) {
	c := newTestConnector(t, dialect.DefaultOptions())
	q := &stubQueryer{rows: map[string][]dialect.Row{
		"MINUS": {{"table_name": "EMP"}, {"table_name": "DEPT"}},
	}}
	c.queryer = q

	names, err := c.GetTableNames(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"emp", "dept"}, names)
	require.Len(t, q.calls, 1)
	assert.Contains(t, q.args[0], "SCOTT")

	_, err = c.GetTableNames(context.Background(), "hr")
	require.NoError(t, err)
	assert.Contains(t, q.args[1], "HR")
}

func TestInspectSharesCache(t *testing.T) {
	c := newTestConnector(t, dialect.DefaultOptions())
	q := &stubQueryer{rows: map[string][]dialect.Row{
		"all_users": {{"username": "SCOTT"}, {"username": "HR"}},
	}}
	c.queryer = q
	cache := dialect.NewInfoCache()

	for range 2 {
		names, err := c.Inspect(cache).GetSchemaNames(context.Background(), "")
		require.NoError(t, err)
		assert.Equal(t, []string{"scott", "hr"}, names)
	}
	assert.Len(t, q.calls, 1)

	_, err := c.Inspect(nil).GetSchemaNames(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, q.calls, 2)
}

func TestIntrospectErrorsAreWrapped(t *testing.T) {
	c := newTestConnector(t, dialect.DefaultOptions())
	c.queryer = &stubQueryer{err: errors.New("connection reset")}

	_, err := c.IntrospectSchema(context.Background(), dialect.ReflectOptions{})
	assert.ErrorContains(t, err, "introspect schema")
	assert.ErrorContains(t, err, "connection reset")

	_, err = c.IntrospectTable(context.Background(), "emp", dialect.ReflectOptions{})
	assert.ErrorContains(t, err, "introspect table emp")
}
