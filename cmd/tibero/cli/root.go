package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/faucetdb/tibero/internal/config"
	"github.com/faucetdb/tibero/internal/logging"
)

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	return newRootCmd(version, commit, date).Execute()
}

// app carries the state shared by every subcommand: the viper instance the
// persistent flags are bound to and the --config path.
type app struct {
	v       *viper.Viper
	cfgFile string
}

func newRootCmd(version, commit, date string) *cobra.Command {
	a := &app{v: config.NewViper()}

	cmd := &cobra.Command{
		Use:   "tibero",
		Short: "Reflect and query Tibero databases",
		Long: `tibero connects to a Tibero database over ODBC, reflects its catalog
(tables, views, sequences, synonyms, constraints, indexes and comments) and
renders Tibero SQL. The reflection is also served as a read-only HTTP API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := cmd.PersistentFlags()
	f.StringVar(&a.cfgFile, "config", "", "config file (default is ./tibero.yaml or ~/.tibero/tibero.yaml)")
	f.String("dsn", "", "ODBC data source name or full connection string")
	f.String("host", "", "database host")
	f.Int("port", 8629, "database port")
	f.String("database", "", "database name")
	f.StringP("user", "u", "", "database user")
	f.String("password", "", "database password (prompted when omitted on a terminal)")
	f.String("log-level", "info", "log level: debug, info, warn, error")
	f.String("log-format", "text", "log format: text or json")

	bind(a.v, f, map[string]string{
		"connection.dsn":      "dsn",
		"connection.host":     "host",
		"connection.port":     "port",
		"connection.database": "database",
		"connection.user":     "user",
		"connection.password": "password",
		"logging.level":       "log-level",
		"logging.format":      "log-format",
	})

	cmd.AddCommand(newReflectCmd(a))
	cmd.AddCommand(newTablesCmd(a))
	cmd.AddCommand(newSQLCmd(a))
	cmd.AddCommand(newSnapshotCmd(a))
	cmd.AddCommand(newDriftCmd(a))
	cmd.AddCommand(newOpenAPICmd(a))
	cmd.AddCommand(newMCPCmd(a, version))
	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newTokenCmd(a))
	cmd.AddCommand(newConfigCmd(a))
	cmd.AddCommand(newVersionCmd(version, commit, date))

	return cmd
}

// loadConfig reads the file, environment and flags into one Config and
// builds the logger it describes.
func (a *app) loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	return cfg, logger, nil
}
