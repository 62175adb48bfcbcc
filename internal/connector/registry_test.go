package connector

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/faucetdb/tibero/internal/dialect"
	"github.com/faucetdb/tibero/internal/model"
)

// mockConnector implements Connector without a database.
type mockConnector struct {
	connected    bool
	disconnected bool
	closeErr     error
	cfg          ConnectionConfig
}

func (m *mockConnector) Connect(cfg ConnectionConfig) error {
	if cfg.DSN == "fail" {
		return errors.New("mock connect failure")
	}
	m.connected = true
	m.cfg = cfg
	return nil
}

func (m *mockConnector) Disconnect() error {
	m.disconnected = true
	m.connected = false
	return m.closeErr
}

func (m *mockConnector) Ping(context.Context) error          { return nil }
func (m *mockConnector) DB() *sqlx.DB                         { return nil }
func (m *mockConnector) Inspect(*dialect.InfoCache) Inspector { return nil }
func (m *mockConnector) IntrospectSchema(context.Context, dialect.ReflectOptions) (*model.Schema, error) {
	return nil, nil
}
func (m *mockConnector) IntrospectTable(context.Context, string, dialect.ReflectOptions) (*model.Table, error) {
	return nil, nil
}
func (m *mockConnector) GetTableNames(context.Context, string) ([]string, error) { return nil, nil }
func (m *mockConnector) BuildSelect(context.Context, SelectRequest) (string, []any, error) {
	return "", nil, nil
}
func (m *mockConnector) DriverName() string            { return "mock" }
func (m *mockConnector) QuoteIdentifier(n string) string { return n }

func newMockRegistry(t *testing.T) (*Registry, *[]*mockConnector) {
	t.Helper()
	made := &[]*mockConnector{}
	r := NewRegistry(nil)
	r.RegisterDriver("mock", func(*zap.Logger) Connector {
		m := &mockConnector{}
		*made = append(*made, m)
		return m
	})
	return r, made
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

func TestRegistryConnectAndGet(t *testing.T) {
	r, made := newMockRegistry(t)

	conn, err := r.Connect("main", ConnectionConfig{Driver: "mock", DSN: "TIBERO"})
	require.NoError(t, err)
	require.Len(t, *made, 1)
	assert.True(t, (*made)[0].connected)
	assert.NotNil(t, (*made)[0].cfg.Logger, "registry logger is handed down")

	got, err := r.Get("main")
	require.NoError(t, err)
	assert.Same(t, conn, got)
	assert.Equal(t, []string{"main"}, r.ListServices())
}

func TestRegistryUnknownDriver(t *testing.T) {
	r, _ := newMockRegistry(t)
	_, err := r.Connect("main", ConnectionConfig{Driver: "oracle"})
	assert.ErrorContains(t, err, "unsupported driver: oracle (available: [mock])")
}

func TestRegistryConnectFailure(t *testing.T) {
	r, _ := newMockRegistry(t)
	_, err := r.Connect("main", ConnectionConfig{Driver: "mock", DSN: "fail"})
	assert.ErrorContains(t, err, `connect service "main": mock connect failure`)
	assert.Empty(t, r.ListServices())
}

func TestRegistryReplaceClosesPrevious(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	r := NewRegistry(zap.New(core))
	var made []*mockConnector
	r.RegisterDriver("mock", func(*zap.Logger) Connector {
		m := &mockConnector{closeErr: errors.New("already closed")}
		made = append(made, m)
		return m
	})

	_, err := r.Connect("main", ConnectionConfig{Driver: "mock"})
	require.NoError(t, err)
	_, err = r.Connect("main", ConnectionConfig{Driver: "mock"})
	require.NoError(t, err)

	require.Len(t, made, 2)
	assert.True(t, made[0].disconnected)
	assert.False(t, made[1].disconnected)
	assert.Equal(t, 1, logs.FilterMessage("closing replaced connection").Len())
}

func TestRegistryDisconnect(t *testing.T) {
	r, made := newMockRegistry(t)
	_, err := r.Connect("a", ConnectionConfig{Driver: "mock"})
	require.NoError(t, err)

	require.NoError(t, r.Disconnect("a"))
	assert.True(t, (*made)[0].disconnected)

	_, err = r.Get("a")
	assert.ErrorContains(t, err, `service "a" not found`)
	assert.ErrorContains(t, r.Disconnect("a"), `service "a" not found`)
}

func TestRegistryCloseAll(t *testing.T) {
	r, made := newMockRegistry(t)
	for _, name := range []string{"b", "a", "c"} {
		_, err := r.Connect(name, ConnectionConfig{Driver: "mock"})
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"a", "b", "c"}, r.ListServices())
	assert.Equal(t, []string{"mock"}, r.Drivers())

	r.CloseAll()
	assert.Empty(t, r.ListServices())
	for _, m := range *made {
		assert.True(t, m.disconnected)
	}
}

// ---------------------------------------------------------------------------
// RedactDSN
// ---------------------------------------------------------------------------

func TestRedactDSN(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"DSN=tibero;UID=scott;PWD=tiger", "DSN=tibero;UID=scott;PWD=***"},
		{"DRIVER={Tibero};SERVER=db;PWD={a;b}}c};DB=t", "DRIVER={Tibero};SERVER=db;PWD=***;DB=t"},
		{"UID=scott;password=x", "UID=scott;password=***"},
		{"DSN=tibero", "DSN=tibero"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, RedactDSN(tt.in))
		})
	}
}
