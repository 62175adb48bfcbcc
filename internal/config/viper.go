package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. TIBERO_CONNECTION_HOST.
const EnvPrefix = "TIBERO"

// NewViper returns a viper instance reading TIBERO_* overrides. Flags are
// bound to it by the CLI.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// SearchPaths are tried in order when no config file is given.
func SearchPaths() []string {
	paths := []string{"tibero.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".tibero", "tibero.yaml"))
	}
	return paths
}

// Load builds the configuration from the defaults, then the config file,
// then the environment and flags bound to v. An explicit path must exist;
// otherwise the first of SearchPaths that exists is used, if any.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path == "" {
		for _, p := range SearchPaths() {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			} else if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("stat config file: %w", err)
			}
		}
	}

	cfg := DefaultConfig()
	if path != "" {
		loaded, err := LoadYAMLConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	applyOverrides(v, cfg)
	return cfg, nil
}

var stringSettings = map[string]func(*Config) *string{
	"connection.driver":                  func(c *Config) *string { return &c.Connection.Driver },
	"connection.dsn":                     func(c *Config) *string { return &c.Connection.DSN },
	"connection.host":                    func(c *Config) *string { return &c.Connection.Host },
	"connection.database":                func(c *Config) *string { return &c.Connection.Database },
	"connection.user":                    func(c *Config) *string { return &c.Connection.User },
	"connection.password":                func(c *Config) *string { return &c.Connection.Password },
	"connection.schema":                  func(c *Config) *string { return &c.Connection.Schema },
	"connection.isolation_level":         func(c *Config) *string { return &c.Connection.IsolationLevel },
	"connection.pool.conn_max_lifetime":  func(c *Config) *string { return &c.Connection.Pool.ConnMaxLifetime },
	"connection.pool.conn_max_idle_time": func(c *Config) *string { return &c.Connection.Pool.ConnMaxIdleTime },
	"server.host":                        func(c *Config) *string { return &c.Server.Host },
	"server.shutdown_timeout":            func(c *Config) *string { return &c.Server.ShutdownTimeout },
	"server.rate_limit.window":           func(c *Config) *string { return &c.Server.RateLimit.Window },
	"server.auth.jwt_secret":             func(c *Config) *string { return &c.Server.Auth.JWTSecret },
	"server.auth.token_ttl":              func(c *Config) *string { return &c.Server.Auth.TokenTTL },
	"logging.level":                      func(c *Config) *string { return &c.Logging.Level },
	"logging.format":                     func(c *Config) *string { return &c.Logging.Format },
	"history.data_dir":                   func(c *Config) *string { return &c.History.DataDir },
}

var intSettings = map[string]func(*Config) *int{
	"connection.port":                func(c *Config) *int { return &c.Connection.Port },
	"connection.pool.max_open_conns": func(c *Config) *int { return &c.Connection.Pool.MaxOpenConns },
	"connection.pool.max_idle_conns": func(c *Config) *int { return &c.Connection.Pool.MaxIdleConns },
	"dialect.max_identifier_length":  func(c *Config) *int { return &c.Dialect.MaxIdentifierLength },
	"dialect.double_precision_bits":  func(c *Config) *int { return &c.Dialect.DoublePrecisionBits },
	"dialect.real_precision_bits":    func(c *Config) *int { return &c.Dialect.RealPrecisionBits },
	"dialect.batch_size":             func(c *Config) *int { return &c.Dialect.BatchSize },
	"dialect.query_cache_size":       func(c *Config) *int { return &c.Dialect.QueryCacheSize },
	"server.port":                    func(c *Config) *int { return &c.Server.Port },
	"server.rate_limit.requests":     func(c *Config) *int { return &c.Server.RateLimit.Requests },
	"history.keep":                   func(c *Config) *int { return &c.History.Keep },
}

var boolSettings = map[string]func(*Config) *bool{
	"dialect.use_ansi":                 func(c *Config) *bool { return &c.Dialect.UseANSI },
	"dialect.optimize_limits":          func(c *Config) *bool { return &c.Dialect.OptimizeLimits },
	"dialect.enable_offset_fetch":      func(c *Config) *bool { return &c.Dialect.EnableOffsetFetch },
	"dialect.use_nchar_for_unicode":    func(c *Config) *bool { return &c.Dialect.UseNCharForUnicode },
	"dialect.supports_char_length":     func(c *Config) *bool { return &c.Dialect.SupportsCharLength },
	"dialect.reflect_identity_columns": func(c *Config) *bool { return &c.Dialect.ReflectIdentityColumns },
}

var listSettings = map[string]func(*Config) *[]string{
	"dialect.exclude_tablespaces": func(c *Config) *[]string { return &c.Dialect.ExcludeTablespaces },
	"server.cors.origins":         func(c *Config) *[]string { return &c.Server.CORS.Origins },
	"server.cors.methods":         func(c *Config) *[]string { return &c.Server.CORS.Methods },
}

func applyOverrides(v *viper.Viper, cfg *Config) {
	for key, field := range stringSettings {
		if v.IsSet(key) {
			*field(cfg) = v.GetString(key)
		}
	}
	for key, field := range intSettings {
		if v.IsSet(key) {
			*field(cfg) = v.GetInt(key)
		}
	}
	for key, field := range boolSettings {
		if v.IsSet(key) {
			*field(cfg) = v.GetBool(key)
		}
	}
	for key, field := range listSettings {
		if v.IsSet(key) {
			*field(cfg) = splitList(v.GetStringSlice(key))
		}
	}
}

// splitList accepts both repeated values and one comma separated value.
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
