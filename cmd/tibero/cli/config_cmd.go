package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/faucetdb/tibero/internal/config"
	"github.com/faucetdb/tibero/internal/connector"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage tibero configuration",
		Long:  "Initialize a default configuration file or display the current effective configuration.",
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd(a))

	return cmd
}

// ---------- config init ----------

func newConfigInitCmd() *cobra.Command {
	var (
		force bool
		path  string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default tibero.yaml configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", path)
				}
			}
			if err := config.WriteDefaultConfig(path); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
			fmt.Fprintln(cmd.OutOrStdout(), "Set connection.dsn or connection.host, then run 'tibero reflect'.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config file")
	cmd.Flags().StringVar(&path, "path", "tibero.yaml", "Where to write the file")

	return cmd
}

// ---------- config show ----------

func newConfigShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := a.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Connection.Password != "" {
				cfg.Connection.Password = "***"
			}
			if cfg.Server.Auth.JWTSecret != "" {
				cfg.Server.Auth.JWTSecret = "***"
			}
			cfg.Connection.DSN = connector.RedactDSN(cfg.Connection.DSN)
			return writeOutput(cmd.OutOrStdout(), "yaml", cfg)
		},
	}
}
