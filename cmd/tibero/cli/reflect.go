package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/faucetdb/tibero/internal/connector"
	"github.com/faucetdb/tibero/internal/dialect"
	"github.com/faucetdb/tibero/internal/model"
)

// sessionOpener is implemented by connectors that can pin a connection at
// an isolation level.
type sessionOpener interface {
	Session(ctx context.Context, level string, cache *dialect.InfoCache) (connector.Inspector, *sqlx.Conn, error)
}

type reflectFlags struct {
	schema          string
	kind            string
	scope           string
	dblink          string
	resolveSynonyms bool
	includeAll      bool
	format          string
	ddl             bool
	isolationLevel  string
}

func (f *reflectFlags) options() (dialect.ReflectOptions, error) {
	kind, ok := model.ParseObjectKind(f.kind)
	if !ok {
		return dialect.ReflectOptions{}, fmt.Errorf("unknown kind %q: want table, view, materialized_view or any", f.kind)
	}
	scope, ok := model.ParseObjectScope(f.scope)
	if !ok {
		return dialect.ReflectOptions{}, fmt.Errorf("unknown scope %q: want default, temporary or any", f.scope)
	}
	return dialect.ReflectOptions{
		Schema:          f.schema,
		Kind:            kind,
		Scope:           scope,
		DBLink:          f.dblink,
		ResolveSynonyms: f.resolveSynonyms,
		IncludeAll:      f.includeAll,
	}, nil
}

func newReflectCmd(a *app) *cobra.Command {
	var f reflectFlags

	cmd := &cobra.Command{
		Use:   "reflect [table...]",
		Short: "Reflect tables of a schema",
		Long: `Reflect columns, keys, indexes, constraints and comments. Without arguments
every object of the selected kind in the schema is reflected.`,
		Example: `  tibero reflect --schema scott
  tibero reflect emp dept --format yaml
  tibero reflect --kind view,mview --dblink remote
  tibero reflect --ddl --isolation-level "READ COMMITTED"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReflect(cmd.Context(), a, cmd.OutOrStdout(), f, args)
		},
	}

	cmd.Flags().StringVarP(&f.schema, "schema", "s", "", "schema to reflect (default is the connection's schema)")
	cmd.Flags().StringVar(&f.kind, "kind", "table", "object kinds: table, view, materialized_view, any (comma separated)")
	cmd.Flags().StringVar(&f.scope, "scope", "default", "table scope: default, temporary or any")
	cmd.Flags().StringVar(&f.dblink, "dblink", "", "reflect through a database link")
	cmd.Flags().BoolVar(&f.resolveSynonyms, "resolve-synonyms", false, "follow synonyms to their targets")
	cmd.Flags().BoolVar(&f.includeAll, "include-all", false, "keep NOT NULL check constraints")
	cmd.Flags().StringVarP(&f.format, "format", "o", "json", "output format: json or yaml")
	cmd.Flags().BoolVar(&f.ddl, "ddl", false, "print CREATE statements instead of the reflection")
	cmd.Flags().StringVar(&f.isolationLevel, "isolation-level", "", "reflect in one session at this isolation level")

	return cmd
}

func runReflect(ctx context.Context, a *app, out io.Writer, f reflectFlags, tables []string) error {
	opts, err := f.options()
	if err != nil {
		return err
	}
	cfg, logger, err := a.loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	registry, conn, err := connect(cfg, logger)
	if err != nil {
		return err
	}
	defer registry.CloseAll()

	level := f.isolationLevel
	if level == "" {
		level = cfg.Connection.IsolationLevel
	}
	in, closeSession, err := inspector(ctx, conn, level)
	if err != nil {
		return err
	}
	defer closeSession()
	if opts.Schema == "" {
		// Session inspectors do not know the configured schema.
		opts.Schema = cfg.Connection.Schema
	}

	var result []model.Table
	if len(tables) == 0 {
		s, err := in.ReflectSchema(ctx, opts)
		if err != nil {
			return err
		}
		result = append(s.Tables, s.Views...)
		logger.Info("reflected schema",
			zap.String("schema", s.Name),
			zap.Int("tables", len(s.Tables)),
			zap.Int("views", len(s.Views)),
			zap.Int("sequences", len(s.Sequences)))
	} else {
		for _, name := range tables {
			t, err := in.ReflectTable(ctx, name, opts)
			if err != nil {
				return err
			}
			result = append(result, *t)
		}
	}

	if !f.ddl {
		if len(tables) == 1 {
			return writeOutput(out, f.format, result[0])
		}
		return writeOutput(out, f.format, result)
	}

	d, err := dialect.New(cfg.DialectOptions(), logger)
	if err != nil {
		return err
	}
	stmts, err := d.SchemaDDL(result)
	if err != nil {
		return err
	}
	for _, s := range stmts {
		fmt.Fprintln(out, strings.TrimSpace(s)+";")
	}
	return nil
}

// inspector returns a pooled inspector, or a session pinned at level when
// one is requested. The returned func releases the session.
func inspector(ctx context.Context, conn connector.Connector, level string) (connector.Inspector, func(), error) {
	if level == "" || strings.EqualFold(level, dialect.AutoCommit) {
		return conn.Inspect(dialect.NewInfoCache()), func() {}, nil
	}
	so, ok := conn.(sessionOpener)
	if !ok {
		return nil, nil, fmt.Errorf("driver %s does not support isolation levels", conn.DriverName())
	}
	in, sc, err := so.Session(ctx, level, nil)
	if err != nil {
		return nil, nil, err
	}
	return in, func() { sc.Close() }, nil
}
