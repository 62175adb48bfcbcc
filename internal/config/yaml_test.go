package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faucetdb/tibero/internal/dialect"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tibero.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// ---------------------------------------------------------------------------
// YAML file
// ---------------------------------------------------------------------------

func TestLoadYAMLConfig(t *testing.T) {
	t.Setenv("TB_TEST_PASSWORD", "tiger")
	path := writeConfig(t, `
connection:
  host: db1
  database: tibero
  user: scott
  password: ${TB_TEST_PASSWORD}
  pool:
    max_open_conns: 4
dialect:
  enable_offset_fetch: false
  exclude_tablespaces: [SYSTEM]
  batch_size: 100
logging:
  format: json
`)

	cfg, err := LoadYAMLConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "tiger", cfg.Connection.Password)
	assert.Equal(t, 4, cfg.Connection.Pool.MaxOpenConns)
	assert.Equal(t, "30m", cfg.Connection.Pool.ConnMaxLifetime, "unset keys keep defaults")
	assert.Equal(t, 8629, cfg.Connection.Port)
	assert.False(t, cfg.Dialect.EnableOffsetFetch)
	assert.True(t, cfg.Dialect.UseANSI)
	assert.Equal(t, []string{"SYSTEM"}, cfg.Dialect.ExcludeTablespaces)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "info", cfg.Logging.Level)
	require.NoError(t, cfg.Validate())

	conn, err := cfg.ConnectionConfig()
	require.NoError(t, err)
	assert.Equal(t, "tibero", conn.Driver)
	assert.Equal(t, "db1", conn.Host)
	assert.Equal(t, 30*time.Minute, conn.ConnMaxLifetime)
	assert.Equal(t, 100, conn.Dialect.BatchSize)
	assert.False(t, conn.Dialect.EnableOffsetFetch)
}

func TestLoadYAMLConfigErrors(t *testing.T) {
	_, err := LoadYAMLConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config file")

	_, err = LoadYAMLConfig(writeConfig(t, "connection: [unclosed"))
	assert.ErrorContains(t, err, "parse config file")
}

func TestDefaultConfigMatchesDialectDefaults(t *testing.T) {
	assert.Equal(t, dialect.DefaultOptions(), DefaultConfig().DialectOptions())
}

func TestWriteDefaultConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tibero.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	cfg, err := LoadYAMLConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"host", func(c *Config) { c.Connection.Host = "db1" }, ""},
		{"dsn", func(c *Config) { c.Connection.DSN = "TIBERO" }, ""},
		{"no target", func(c *Config) {}, "connection.dsn or connection.host is required"},
		{"bad duration", func(c *Config) {
			c.Connection.Host = "db1"
			c.Server.ShutdownTimeout = "soon"
		}, "server.shutdown_timeout"},
		{"isolation level", func(c *Config) {
			c.Connection.Host = "db1"
			c.Connection.IsolationLevel = "serializable"
		}, ""},
		{"autocommit", func(c *Config) {
			c.Connection.Host = "db1"
			c.Connection.IsolationLevel = "autocommit"
		}, ""},
		{"bad isolation level", func(c *Config) {
			c.Connection.Host = "db1"
			c.Connection.IsolationLevel = "READ UNCOMMITTED"
		}, "unsupported isolation level"},
		{"short jwt secret", func(c *Config) {
			c.Connection.Host = "db1"
			c.Server.Auth.JWTSecret = "short"
		}, "server.auth.jwt_secret must be at least 32 bytes"},
		{"jwt secret", func(c *Config) {
			c.Connection.Host = "db1"
			c.Server.Auth.JWTSecret = "0123456789abcdef0123456789abcdef"
		}, ""},
		{"bad token ttl", func(c *Config) {
			c.Connection.Host = "db1"
			c.Server.Auth.TokenTTL = "forever"
		}, "server.auth.token_ttl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

// ---------------------------------------------------------------------------
// Environment and flags
// ---------------------------------------------------------------------------

func TestLoadAppliesEnvironment(t *testing.T) {
	path := writeConfig(t, "connection:\n  host: db1\n  port: 9000\n")
	t.Setenv("TIBERO_CONNECTION_PORT", "8630")
	t.Setenv("TIBERO_DIALECT_USE_ANSI", "false")
	t.Setenv("TIBERO_DIALECT_EXCLUDE_TABLESPACES", "SYSTEM, USERS")
	t.Setenv("TIBERO_LOGGING_LEVEL", "debug")
	t.Setenv("TIBERO_HISTORY_KEEP", "5")
	t.Setenv("TIBERO_SERVER_AUTH_JWT_SECRET", "from-env")

	cfg, err := Load(NewViper(), path)
	require.NoError(t, err)
	assert.Equal(t, "db1", cfg.Connection.Host)
	assert.Equal(t, 8630, cfg.Connection.Port)
	assert.False(t, cfg.Dialect.UseANSI)
	assert.Equal(t, []string{"SYSTEM", "USERS"}, cfg.Dialect.ExcludeTablespaces)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 5, cfg.History.Keep)
	assert.Equal(t, "from-env", cfg.Server.Auth.JWTSecret)
	assert.Equal(t, "24h", cfg.Server.Auth.TokenTTL)
}

func TestLoadExplicitValues(t *testing.T) {
	v := NewViper()
	v.Set("connection.schema", "hr")
	v.Set("dialect.batch_size", 50)

	cfg, err := Load(v, writeConfig(t, "connection:\n  schema: scott\n"))
	require.NoError(t, err)
	assert.Equal(t, "hr", cfg.Connection.Schema)
	assert.Equal(t, 50, cfg.Dialect.BatchSize)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(NewViper(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "read config file")
}

func TestLoadWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestHistoryDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := DefaultConfig()
	dir, err := cfg.HistoryDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".tibero"), dir)

	cfg.History.DataDir = "/var/lib/tibero"
	dir, err = cfg.HistoryDir()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/tibero", dir)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitList([]string{"a, b", "c", " "}))
	assert.Nil(t, splitList(nil))
}
