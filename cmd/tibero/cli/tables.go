package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/faucetdb/tibero/internal/connector"
	"github.com/faucetdb/tibero/internal/dialect"
)

func newTablesCmd(a *app) *cobra.Command {
	var (
		schema          string
		kind            string
		dblink          string
		exists          string
		resolveSynonyms bool
	)

	cmd := &cobra.Command{
		Use:     "tables",
		Aliases: []string{"ls"},
		Short:   "List object names of a schema",
		Example: `  tibero tables --schema hr
  tibero tables --kind sequence
  tibero tables --kind temp
  tibero tables --kind dblink
  tibero tables --kind sequence --exists emp_seq
  tibero tables --kind schema --dblink remote`,
		RunE: func(cmd *cobra.Command, args []string) error {
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

			if schema == "" {
				schema = cfg.Connection.Schema
			}
			opts := dialect.ReflectOptions{Schema: schema, DBLink: dblink, ResolveSynonyms: resolveSynonyms}
			if exists != "" {
				found, err := hasName(cmd.Context(), conn.Inspect(nil), kind, exists, opts)
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("%s %s does not exist", kindLabel(kind), exists)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s exists\n", kindLabel(kind), exists)
				return err
			}
			names, err := listNames(cmd.Context(), conn.Inspect(nil), kind, opts)
			if err != nil {
				return err
			}
			return printNames(cmd.OutOrStdout(), names)
		},
	}

	cmd.Flags().StringVarP(&schema, "schema", "s", "", "schema to list (default is the connection's schema)")
	cmd.Flags().StringVar(&kind, "kind", "table", "table, view, materialized_view, sequence, temp, dblink or schema")
	cmd.Flags().StringVar(&dblink, "dblink", "", "list through a database link")
	cmd.Flags().StringVar(&exists, "exists", "", "check that the named table or sequence exists instead of listing")
	cmd.Flags().BoolVar(&resolveSynonyms, "resolve-synonyms", false, "include synonyms of the schema")

	return cmd
}

func listNames(ctx context.Context, in connector.Inspector, kind string, opts dialect.ReflectOptions) ([]string, error) {
	switch kind {
	case "", "table":
		return in.GetTableNames(ctx, opts)
	case "view":
		return in.GetViewNames(ctx, opts)
	case "materialized_view", "mview":
		return in.GetMaterializedViewNames(ctx, opts)
	case "sequence":
		return in.GetSequenceNames(ctx, opts)
	case "temp":
		return in.GetTempTableNames(ctx)
	case "dblink":
		return in.ListDBLinks(ctx, opts.DBLink)
	case "schema":
		return in.GetSchemaNames(ctx, opts.DBLink)
	}
	return nil, fmt.Errorf("unknown kind %q: want table, view, materialized_view, sequence, temp, dblink or schema", kind)
}

// hasName checks one table (views included) or sequence.
func hasName(ctx context.Context, in connector.Inspector, kind, name string, opts dialect.ReflectOptions) (bool, error) {
	switch kind {
	case "", "table":
		return in.HasTable(ctx, name, opts)
	case "sequence":
		return in.HasSequence(ctx, name, opts)
	}
	return false, fmt.Errorf("--exists works with kind table or sequence, not %q", kind)
}

func kindLabel(kind string) string {
	if kind == "" {
		return "table"
	}
	return kind
}

func printNames(w io.Writer, names []string) error {
	for _, n := range names {
		if _, err := fmt.Fprintln(w, n); err != nil {
			return err
		}
	}
	return nil
}
