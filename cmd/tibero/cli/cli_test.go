package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/faucetdb/tibero/internal/config"
	"github.com/faucetdb/tibero/internal/dialect"
	"github.com/faucetdb/tibero/internal/drift"
	"github.com/faucetdb/tibero/internal/model"
	"github.com/faucetdb/tibero/internal/openapi"
	"github.com/faucetdb/tibero/internal/service"
)

// run executes the command tree with args in an empty working directory and
// home, so no stray tibero.yaml is picked up.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cmd := newRootCmd("1.2.3", "abc", "today")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

// ---------------------------------------------------------------------------
// sql
// ---------------------------------------------------------------------------

func TestSQLCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "filters",
			args: []string{"sql", "emp", "-s", "scott", "--where", "deptno=10", "--where", "job=CLERK"},
			want: "SELECT * FROM scott.emp WHERE emp.deptno = ? AND emp.job = ?\n-- 1: 10\n-- 2: \"CLERK\"\n",
		},
		{
			name: "filter expression",
			args: []string{"sql", "emp", "-s", "scott", "-w", "deptno=10", "--filter", "sal > 1000 OR comm IS NOT NULL"},
			want: "SELECT * FROM scott.emp WHERE emp.deptno = ? AND (emp.sal > ? OR emp.comm IS NOT NULL)\n-- 1: 10\n-- 2: 1000\n",
		},
		{
			name: "offset fetch",
			args: []string{"sql", "emp", "-s", "scott", "-c", "ename", "--order", "-sal,ename", "--limit", "10", "--offset", "20"},
			want: "SELECT emp.ename FROM scott.emp ORDER BY emp.sal DESC, emp.ename OFFSET 20 ROWS FETCH FIRST 10 ROWS ONLY\n",
		},
		{
			name: "rownum",
			args: []string{"sql", "emp", "-s", "scott", "-c", "ename", "--limit", "5", "--rownum"},
			want: "SELECT anon_1.ename FROM (SELECT emp.ename FROM scott.emp) anon_1 WHERE ROWNUM <= 5\n",
		},
		{
			name: "for update",
			args: []string{"sql", "emp", "-s", "scott", "--for-update"},
			want: "SELECT * FROM scott.emp FOR UPDATE\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestSQLCommandErrors(t *testing.T) {
	_, err := run(t, "sql", "emp", "--where", "deptno")
	assert.ErrorContains(t, err, `invalid --where "deptno"`)

	_, err = run(t, "sql", "emp", "--limit", "-1")
	assert.ErrorContains(t, err, "must not be negative")

	_, err = run(t, "sql", "emp", "--filter", "sal >")
	assert.ErrorContains(t, err, "filter: expected value after sal >")

	_, err = run(t, "sql", "emp", "--limit", "5", "--offset", "10", "--rownum")
	assert.ErrorContains(t, err, "select named columns")

	_, err = run(t, "sql", "emp", "--for-update", "--run")
	assert.ErrorContains(t, err, "--run does not lock rows")

	_, err = run(t, "sql")
	assert.Error(t, err)
}

func TestSQLFlagsRequest(t *testing.T) {
	f := sqlFlags{forUpdateOf: []string{"sal, comm"}, noWait: true}
	req, err := f.request("emp")
	require.NoError(t, err)
	assert.Equal(t, []string{"sal", "comm"}, req.ForUpdateOf)
	assert.True(t, req.NoWait)

	req, err = sqlFlags{}.request("emp")
	require.NoError(t, err)
	assert.Nil(t, req.ForUpdateOf)
	assert.Nil(t, req.Equals)
}

// ---------------------------------------------------------------------------
// config and version
// ---------------------------------------------------------------------------

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tibero.yaml")
	out, err := run(t, "config", "init", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Created "+path)

	cfg, err := config.LoadYAMLConfig(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), cfg)

	_, err = run(t, "config", "init", "--path", path)
	assert.ErrorContains(t, err, "already exists")
}

func TestConfigShowMasksSecrets(t *testing.T) {
	t.Setenv("TIBERO_CONNECTION_PASSWORD", "tiger")
	out, err := run(t, "config", "show", "--dsn", "DRIVER={Tibero};SERVER=db1;UID=scott;PWD=tiger")
	require.NoError(t, err)
	assert.NotContains(t, out, "tiger")

	var cfg config.Config
	require.NoError(t, yaml.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, "***", cfg.Connection.Password)
	assert.Equal(t, "DRIVER={Tibero};SERVER=db1;UID=scott;PWD=***", cfg.Connection.DSN)
	assert.Equal(t, "error", cfg.Logging.Level)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version", "--json")
	require.NoError(t, err)

	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "1.2.3", info["version"])
	assert.Equal(t, "Tibero", info["odbc"])
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func TestWriteOutput(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeOutput(&buf, "yaml", map[string]int{"a": 1}))
	assert.Equal(t, "a: 1\n", buf.String())

	buf.Reset()
	require.NoError(t, writeOutput(&buf, "", []string{"x"}))
	assert.JSONEq(t, `["x"]`, buf.String())

	assert.ErrorContains(t, writeOutput(&buf, "xml", nil), `unknown format "xml"`)
}

func TestPromptPasswordSkipsNonTerminal(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Connection.User = "scott"

	f, err := os.CreateTemp(t.TempDir(), "stdin")
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, promptPassword(cfg, f, &bytes.Buffer{}))
	assert.Empty(t, cfg.Connection.Password)
}

func TestListNamesUnknownKind(t *testing.T) {
	_, err := listNames(t.Context(), nil, "synonym", dialect.ReflectOptions{})
	assert.ErrorContains(t, err, `unknown kind "synonym"`)
}

// catalogQueryer answers catalog statements containing a key with its rows
// and records every statement.
type catalogQueryer struct {
	rows  map[string][]dialect.Row
	calls []string
}

func (q *catalogQueryer) Query(_ context.Context, sql string, _ []any) ([]dialect.Row, error) {
	q.calls = append(q.calls, sql)
	if strings.Contains(sql, "sys_context") {
		return []dialect.Row{{"sys_context('userenv','current_schema')": "SCOTT"}}, nil
	}
	for k, rows := range q.rows {
		if strings.Contains(sql, k) {
			return rows, nil
		}
	}
	return nil, nil
}

func testInspector(t *testing.T, q *catalogQueryer) *dialect.Inspector {
	t.Helper()
	d, err := dialect.New(dialect.DefaultOptions(), zap.NewNop())
	require.NoError(t, err)
	return d.NewInspector(q, nil)
}

func TestListNamesTempAndDBLinks(t *testing.T) {
	q := &catalogQueryer{rows: map[string][]dialect.Row{
		"DURATION":     {{"table_name": "SESSION_TMP"}},
		"all_db_links": {{"db_link": "HQ"}},
	}}
	in := testInspector(t, q)

	names, err := listNames(t.Context(), in, "temp", dialect.ReflectOptions{Schema: "hr"})
	require.NoError(t, err)
	assert.Equal(t, []string{"session_tmp"}, names)

	names, err = listNames(t.Context(), in, "dblink", dialect.ReflectOptions{DBLink: "remote"})
	require.NoError(t, err)
	assert.Equal(t, []string{"hq"}, names)
	assert.Contains(t, q.calls[len(q.calls)-1], "all_db_links@remote")
}

func TestHasName(t *testing.T) {
	q := &catalogQueryer{rows: map[string][]dialect.Row{
		"a_sequences.sequence_name FROM": {{"sequence_name": "EMP_SEQ"}},
	}}
	in := testInspector(t, q)
	opts := dialect.ReflectOptions{Schema: "scott"}

	ok, err := hasName(t.Context(), in, "sequence", "emp_seq", opts)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = hasName(t.Context(), in, "table", "emp", opts)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = hasName(t.Context(), in, "view", "emp_v", opts)
	assert.ErrorContains(t, err, "kind table or sequence")
}

func TestWriteDrift(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeDrift(&buf, "text", drift.Report{Schema: "scott"}))
	assert.Contains(t, buf.String(), "No drift in scott")

	buf.Reset()
	r := drift.Report{
		Schema:        "scott",
		TotalTables:   1,
		DriftedTables: 1,
		BreakingCount: 1,
		Tables: []drift.TableReport{{
			TableName: "bonus",
			Items:     []drift.Item{{Type: drift.Breaking, Category: "table_removed", Description: `Table "bonus" was removed from the database`}},
		}},
	}
	require.NoError(t, writeDrift(&buf, "text", r))
	assert.Equal(t,
		"breaking table_removed        Table \"bonus\" was removed from the database\n"+
			"1 of 1 tables drifted, 1 breaking changes\n",
		buf.String())
}

// ---------------------------------------------------------------------------
// snapshot history
// ---------------------------------------------------------------------------

func TestSnapshotHistoryCommands(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TIBERO_HISTORY_DATA_DIR", dir)

	store, err := drift.OpenStore(dir)
	require.NoError(t, err)
	taken := time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)
	id, err := store.Save(t.Context(), historyKey(config.DefaultConfig()), "v1", drift.Snapshot{Schema: "scott", TakenAt: taken})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	out, err := run(t, "snapshot", "list", "--schema", "scott")
	require.NoError(t, err)
	assert.Contains(t, out, "ID  SCHEMA  OBJECTS  TAKEN                LABEL")
	assert.Contains(t, out, "scott   0        2026-05-04 10:30:00  v1")

	out, err = run(t, "snapshot", "list", "--schema", "hr")
	require.NoError(t, err)
	assert.Equal(t, "No stored snapshots\n", out)

	out, err = run(t, "snapshot", "delete", strconv.FormatInt(id, 10))
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted snapshot")

	_, err = run(t, "snapshot", "delete", strconv.FormatInt(id, 10))
	assert.ErrorIs(t, err, drift.ErrNotFound)

	_, err = run(t, "snapshot", "delete", "latest")
	assert.ErrorContains(t, err, `invalid snapshot id "latest"`)

	_, err = run(t, "drift")
	assert.ErrorContains(t, err, "a snapshot file, --id or --schema is required")

	_, err = run(t, "drift", "--schema", "scott")
	assert.ErrorContains(t, err, "no stored snapshot of scott")
}

func TestHistoryKey(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Connection.Host = "db1"
	cfg.Connection.Database = "tibero"
	assert.Equal(t, "db1:8629/tibero", historyKey(cfg))

	cfg = config.DefaultConfig()
	cfg.Connection.DSN = "DSN=TIBERO;PWD=secret"
	key := historyKey(cfg)
	assert.Regexp(t, `^dsn:[0-9a-f]{16}$`, key)
	assert.NotContains(t, key, "secret")
}

// ---------------------------------------------------------------------------
// token
// ---------------------------------------------------------------------------

func TestTokenCommand(t *testing.T) {
	const secret = "0123456789abcdef0123456789abcdef"
	t.Setenv("TIBERO_SERVER_AUTH_JWT_SECRET", secret)

	out, err := run(t, "token", "--subject", "ci", "--schema", "scott,hr", "--ttl", "1h")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "Expires "))

	p, err := service.NewAuthService(secret).ValidateJWT(lines[0])
	require.NoError(t, err)
	assert.Equal(t, "ci", p.Subject)
	assert.Equal(t, []string{"scott", "hr"}, p.Schemas)
	assert.WithinDuration(t, time.Now().Add(time.Hour), p.ExpiresAt, time.Minute)
}

func TestTokenCommandErrors(t *testing.T) {
	_, err := run(t, "token", "--subject", "ci")
	assert.ErrorContains(t, err, "server.auth.jwt_secret is not set")

	t.Setenv("TIBERO_SERVER_AUTH_JWT_SECRET", "0123456789abcdef0123456789abcdef")
	_, err = run(t, "token")
	assert.ErrorContains(t, err, `required flag(s) "subject" not set`)

	_, err = run(t, "token", "--subject", "ci", "--ttl=-1h")
	assert.ErrorContains(t, err, "--ttl must be positive")
}

// ---------------------------------------------------------------------------
// openapi
// ---------------------------------------------------------------------------

func TestWriteSpec(t *testing.T) {
	doc := openapi.GenerateSchemaSpec(&model.Schema{Name: "scott"}, openapi.Options{})

	var buf bytes.Buffer
	require.NoError(t, writeSpec(&buf, "json", doc))
	var fromJSON map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fromJSON))
	assert.Equal(t, "3.1.0", fromJSON["openapi"])

	buf.Reset()
	require.NoError(t, writeSpec(&buf, "yaml", doc))
	assert.Contains(t, buf.String(), "\nopenapi: 3.1.0\n")
	assert.Contains(t, buf.String(), "\ninfo:\n")
	var fromYAML map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &fromYAML))
	assert.Equal(t, fromJSON["info"], fromYAML["info"])

	assert.ErrorContains(t, writeSpec(&buf, "xml", doc), `unknown format "xml"`)
}
