package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/faucetdb/tibero/internal/connector"
	"github.com/faucetdb/tibero/internal/dialect"
)

// Config represents the top-level tibero configuration file.
type Config struct {
	Connection ConnectionYAML `yaml:"connection"`
	Dialect    DialectYAML    `yaml:"dialect"`
	Server     ServerConfig   `yaml:"server"`
	Logging    LoggingConfig  `yaml:"logging"`
	History    HistoryConfig  `yaml:"history"`
}

// ConnectionYAML describes the database to connect to. Either DSN or Host
// is required.
type ConnectionYAML struct {
	Driver         string         `yaml:"driver"`
	DSN            string         `yaml:"dsn"`
	Host           string         `yaml:"host"`
	Port           int            `yaml:"port"`
	Database       string         `yaml:"database"`
	User           string         `yaml:"user"`
	Password       string         `yaml:"password"`
	Schema         string         `yaml:"schema"`
	IsolationLevel string         `yaml:"isolation_level"`
	Pool           PoolYAMLConfig `yaml:"pool"`
}

// PoolYAMLConfig controls the connection pool.
type PoolYAMLConfig struct {
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime string `yaml:"conn_max_idle_time"`
}

// DialectYAML mirrors dialect.Options.
type DialectYAML struct {
	UseANSI                bool     `yaml:"use_ansi"`
	OptimizeLimits         bool     `yaml:"optimize_limits"`
	EnableOffsetFetch      bool     `yaml:"enable_offset_fetch"`
	UseNCharForUnicode     bool     `yaml:"use_nchar_for_unicode"`
	ExcludeTablespaces     []string `yaml:"exclude_tablespaces"`
	SupportsCharLength     bool     `yaml:"supports_char_length"`
	MaxIdentifierLength    int      `yaml:"max_identifier_length"`
	DoublePrecisionBits    int      `yaml:"double_precision_bits"`
	RealPrecisionBits      int      `yaml:"real_precision_bits"`
	BatchSize              int      `yaml:"batch_size"`
	QueryCacheSize         int      `yaml:"query_cache_size"`
	ReflectIdentityColumns bool     `yaml:"reflect_identity_columns"`
}

// ServerConfig controls the reflection API server.
type ServerConfig struct {
	Host            string          `yaml:"host"`
	Port            int             `yaml:"port"`
	ShutdownTimeout string          `yaml:"shutdown_timeout"`
	CORS            CORSConfig      `yaml:"cors"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
	Auth            AuthConfig      `yaml:"auth"`
}

// CORSConfig controls cross-origin resource sharing settings.
type CORSConfig struct {
	Origins []string `yaml:"origins"`
	Methods []string `yaml:"methods"`
}

// RateLimitConfig limits requests per client IP. Zero requests disables it.
type RateLimitConfig struct {
	Requests int    `yaml:"requests"`
	Window   string `yaml:"window"`
}

// AuthConfig enables bearer token authentication of the API when
// JWTSecret is set.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	TokenTTL  string `yaml:"token_ttl"`
}

// minSecretLength is the HS256 key size.
const minSecretLength = 32

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// HistoryConfig controls where snapshots are kept. An empty DataDir means
// ~/.tibero.
type HistoryConfig struct {
	DataDir string `yaml:"data_dir"`
	Keep    int    `yaml:"keep"`
}

// LoadYAMLConfig reads and parses a YAML configuration file on top of the
// defaults. Environment variables referenced as ${VAR_NAME} in the file are
// expanded before parsing.
func LoadYAMLConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand environment variables: ${VAR_NAME}
	content := os.ExpandEnv(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns a Config pre-filled with the defaults of a
// Tibero 7 server.
func DefaultConfig() *Config {
	opts := dialect.DefaultOptions()
	return &Config{
		Connection: ConnectionYAML{
			Driver: "tibero",
			Port:   8629,
			Pool: PoolYAMLConfig{
				MaxOpenConns:    10,
				MaxIdleConns:    2,
				ConnMaxLifetime: "30m",
			},
		},
		Dialect: DialectYAML{
			UseANSI:                opts.UseANSI,
			OptimizeLimits:         opts.OptimizeLimits,
			EnableOffsetFetch:      opts.EnableOffsetFetch,
			UseNCharForUnicode:     opts.UseNCharForUnicode,
			ExcludeTablespaces:     opts.ExcludeTablespaces,
			SupportsCharLength:     opts.SupportsCharLength,
			MaxIdentifierLength:    opts.MaxIdentifierLength,
			DoublePrecisionBits:    opts.DoublePrecisionBits,
			RealPrecisionBits:      opts.RealPrecisionBits,
			BatchSize:              opts.BatchSize,
			QueryCacheSize:         opts.QueryCacheSize,
			ReflectIdentityColumns: opts.ReflectIdentityColumns,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ShutdownTimeout: "30s",
			CORS: CORSConfig{
				Origins: []string{"*"},
				Methods: []string{"GET"},
			},
			RateLimit: RateLimitConfig{
				Requests: 100,
				Window:   "1m",
			},
			Auth: AuthConfig{
				TokenTTL: "24h",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		History: HistoryConfig{
			Keep: 20,
		},
	}
}

// WriteDefaultConfig writes the default configuration to a YAML file.
func WriteDefaultConfig(path string) error {
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if c.Connection.DSN == "" && c.Connection.Host == "" {
		return fmt.Errorf("%w: connection.dsn or connection.host is required", ErrInvalidConfig)
	}
	for _, kv := range [][2]string{
		{"connection.pool.conn_max_lifetime", c.Connection.Pool.ConnMaxLifetime},
		{"connection.pool.conn_max_idle_time", c.Connection.Pool.ConnMaxIdleTime},
		{"server.shutdown_timeout", c.Server.ShutdownTimeout},
		{"server.rate_limit.window", c.Server.RateLimit.Window},
		{"server.auth.token_ttl", c.Server.Auth.TokenTTL},
	} {
		if _, err := Duration(kv[0], kv[1]); err != nil {
			return err
		}
	}
	if c.Server.Auth.JWTSecret != "" {
		if err := c.ValidateAuth(); err != nil {
			return err
		}
	}
	if level := c.Connection.IsolationLevel; level != "" && !strings.EqualFold(level, dialect.AutoCommit) {
		d, err := dialect.New(c.DialectOptions(), nil)
		if err != nil {
			return err
		}
		if _, err := d.IsolationLevelSQL(level); err != nil {
			return fmt.Errorf("%w: connection.isolation_level: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

// ValidateAuth reports whether tokens can be signed with the auth section.
func (c *Config) ValidateAuth() error {
	secret := c.Server.Auth.JWTSecret
	if secret == "" {
		return fmt.Errorf("%w: server.auth.jwt_secret is not set", ErrInvalidConfig)
	}
	if len(secret) < minSecretLength {
		return fmt.Errorf("%w: server.auth.jwt_secret must be at least %d bytes", ErrInvalidConfig, minSecretLength)
	}
	_, err := Duration("server.auth.token_ttl", c.Server.Auth.TokenTTL)
	return err
}

// DialectOptions converts the dialect section.
func (c *Config) DialectOptions() dialect.Options {
	d := c.Dialect
	return dialect.Options{
		UseANSI:                d.UseANSI,
		OptimizeLimits:         d.OptimizeLimits,
		EnableOffsetFetch:      d.EnableOffsetFetch,
		UseNCharForUnicode:     d.UseNCharForUnicode,
		ExcludeTablespaces:     d.ExcludeTablespaces,
		SupportsCharLength:     d.SupportsCharLength,
		MaxIdentifierLength:    d.MaxIdentifierLength,
		DoublePrecisionBits:    d.DoublePrecisionBits,
		RealPrecisionBits:      d.RealPrecisionBits,
		BatchSize:              d.BatchSize,
		QueryCacheSize:         d.QueryCacheSize,
		ReflectIdentityColumns: d.ReflectIdentityColumns,
	}
}

// ConnectionConfig converts the connection and dialect sections.
func (c *Config) ConnectionConfig() (connector.ConnectionConfig, error) {
	conn := c.Connection
	lifetime, err := Duration("connection.pool.conn_max_lifetime", conn.Pool.ConnMaxLifetime)
	if err != nil {
		return connector.ConnectionConfig{}, err
	}
	idle, err := Duration("connection.pool.conn_max_idle_time", conn.Pool.ConnMaxIdleTime)
	if err != nil {
		return connector.ConnectionConfig{}, err
	}
	return connector.ConnectionConfig{
		Driver:          conn.Driver,
		DSN:             conn.DSN,
		Host:            conn.Host,
		Port:            conn.Port,
		Database:        conn.Database,
		User:            conn.User,
		Password:        conn.Password,
		SchemaName:      conn.Schema,
		MaxOpenConns:    conn.Pool.MaxOpenConns,
		MaxIdleConns:    conn.Pool.MaxIdleConns,
		ConnMaxLifetime: lifetime,
		ConnMaxIdleTime: idle,
		Dialect:         c.DialectOptions(),
	}, nil
}

// HistoryDir returns the directory of the snapshot database.
func (c *Config) HistoryDir() (string, error) {
	if c.History.DataDir != "" {
		return c.History.DataDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("%w: history.data_dir is not set and there is no home directory", ErrInvalidConfig)
	}
	return filepath.Join(home, ".tibero"), nil
}

// Duration parses the duration setting key; empty means zero.
func Duration(key, v string) (time.Duration, error) {
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
	}
	return d, nil
}
