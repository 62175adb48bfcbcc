package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/faucetdb/tibero/internal/config"
	"github.com/faucetdb/tibero/internal/service"
)

func newTokenCmd(a *app) *cobra.Command {
	var (
		subject string
		schemas []string
		ttl     string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the reflection API",
		Long: `Sign a token with server.auth.jwt_secret. A token issued with --schema can
only reflect the listed schemas. The token is valid for --ttl, by default
server.auth.token_ttl.`,
		Example: `  tibero token --subject ci
  tibero token --subject reporting --schema scott,hr --ttl 720h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := a.loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if err := cfg.ValidateAuth(); err != nil {
				return err
			}
			if ttl == "" {
				ttl = cfg.Server.Auth.TokenTTL
			}
			d, err := config.Duration("ttl", ttl)
			if err != nil {
				return err
			}
			if d <= 0 {
				return fmt.Errorf("--ttl must be positive, got %s", ttl)
			}

			token, err := service.NewAuthService(cfg.Server.Auth.JWTSecret).IssueJWT(subject, splitFlag(schemas), d)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "Expires %s\n", time.Now().Add(d).UTC().Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "who the token is for")
	cmd.Flags().StringSliceVarP(&schemas, "schema", "s", nil, "limit the token to these schemas")
	cmd.Flags().StringVar(&ttl, "ttl", "", "lifetime of the token, e.g. 24h")
	cmd.MarkFlagRequired("subject")
	return cmd
}
