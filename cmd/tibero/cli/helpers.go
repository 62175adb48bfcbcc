package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/faucetdb/tibero/internal/config"
	"github.com/faucetdb/tibero/internal/connector"
	"github.com/faucetdb/tibero/internal/connector/tibero"
)

// serviceName is the registry name of the configured connection.
const serviceName = "default"

// bind maps config keys to flags. Viper only reports a flag as set once the
// user changed it, so flag defaults never mask the config file.
func bind(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}

// newRegistry creates a connector registry with the tibero driver registered.
func newRegistry(logger *zap.Logger) *connector.Registry {
	registry := connector.NewRegistry(logger)
	registry.RegisterDriver(tibero.DriverName, tibero.New)
	return registry
}

// connect validates cfg and opens the configured service. The caller closes
// the returned registry.
func connect(cfg *config.Config, logger *zap.Logger) (*connector.Registry, connector.Connector, error) {
	if err := promptPassword(cfg, os.Stdin, os.Stderr); err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	connCfg, err := cfg.ConnectionConfig()
	if err != nil {
		return nil, nil, err
	}
	registry := newRegistry(logger)
	conn, err := registry.Connect(serviceName, connCfg)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("connected", zap.String("dsn", connector.RedactDSN(tibero.ConnectionString(connCfg))))
	return registry, conn, nil
}

// promptPassword asks for the password when a user is configured without
// one and in is a terminal.
func promptPassword(cfg *config.Config, in *os.File, out io.Writer) error {
	c := &cfg.Connection
	if c.User == "" || c.Password != "" || strings.Contains(c.DSN, "=") {
		return nil
	}
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}
	fmt.Fprintf(out, "Password for %s: ", c.User)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	c.Password = string(pw)
	return nil
}

// writeOutput encodes v as indented JSON or YAML.
func writeOutput(w io.Writer, format string, v any) error {
	switch format {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q: want json or yaml", format)
	}
}

// splitFlag accepts both repeated values and one comma separated value.
func splitFlag(in []string) []string {
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
