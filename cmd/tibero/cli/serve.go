package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/faucetdb/tibero/internal/config"
	"github.com/faucetdb/tibero/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the reflection API over HTTP",
		Long: `Connect to the configured database and serve its catalog as a read-only
JSON API under /api/v1. When server.auth.jwt_secret is set every API request
needs a bearer token issued by tibero token. The server stops on SIGINT or
SIGTERM after draining in-flight requests.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := a.loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			srvCfg, err := serverConfig(cfg)
			if err != nil {
				return err
			}
			registry, _, err := connect(cfg, logger)
			if err != nil {
				return err
			}

			srv := server.New(srvCfg, registry, serviceName, logger)
			logger.Info("serving reflection API",
				zap.String("url", fmt.Sprintf("http://%s:%d/api/v1", srvCfg.Host, srvCfg.Port)),
				zap.Strings("drivers", registry.Drivers()))
			return srv.ListenAndServe(cmd.Context())
		},
	}

	cmd.Flags().String("listen-host", "", "HTTP listen host (default from config, 0.0.0.0)")
	cmd.Flags().IntP("listen-port", "p", 0, "HTTP listen port (default from config, 8080)")
	bind(a.v, cmd.Flags(), map[string]string{
		"server.host": "listen-host",
		"server.port": "listen-port",
	})

	return cmd
}

func serverConfig(cfg *config.Config) (server.Config, error) {
	s := cfg.Server
	shutdown, err := config.Duration("server.shutdown_timeout", s.ShutdownTimeout)
	if err != nil {
		return server.Config{}, err
	}
	window, err := config.Duration("server.rate_limit.window", s.RateLimit.Window)
	if err != nil {
		return server.Config{}, err
	}
	return server.Config{
		Host:            s.Host,
		Port:            s.Port,
		ShutdownTimeout: shutdown,
		CORSOrigins:     s.CORS.Origins,
		CORSMethods:     s.CORS.Methods,
		RateLimit:       s.RateLimit.Requests,
		RateWindow:      window,
		JWTSecret:       s.Auth.JWTSecret,
	}, nil
}
