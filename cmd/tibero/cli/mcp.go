package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/faucetdb/tibero/internal/mcp"
)

func newMCPCmd(a *app, version string) *cobra.Command {
	var (
		httpAddr  string
		noHistory bool
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the catalog to MCP clients",
		Long: `Connect to the configured database and expose its reflection as Model
Context Protocol tools: list schemas and tables, describe tables, show view
definitions, preview SELECT statements and check schema drift against the
snapshot history. Serves over stdio unless --http is given.`,
		Example: `  tibero mcp --config /etc/tibero.yaml
  tibero mcp --http :3001`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := a.loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			registry, _, err := connect(cfg, logger)
			if err != nil {
				return err
			}
			defer registry.CloseAll()

			var history *mcp.History
			if !noHistory {
				store, err := openHistory(cfg)
				if err != nil {
					logger.Warn("snapshot history unavailable, drift tool disabled", zap.Error(err))
				} else {
					defer store.Close()
					history = &mcp.History{Store: store, Key: historyKey(cfg)}
				}
			}

			srv := mcp.NewMCPServer(registry, serviceName, version, history, logger)
			if httpAddr != "" {
				return srv.ServeHTTP(httpAddr)
			}
			return srv.ServeStdio()
		},
	}

	cmd.Flags().StringVar(&httpAddr, "http", "", "serve Streamable HTTP on this address instead of stdio")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "do not open the snapshot history")
	return cmd
}
