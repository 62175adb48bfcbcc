package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/faucetdb/tibero/internal/config"
	"github.com/faucetdb/tibero/internal/connector"
	"github.com/faucetdb/tibero/internal/connector/tibero"
	"github.com/faucetdb/tibero/internal/dialect"
)

type sqlFlags struct {
	schema      string
	columns     []string
	where       []string
	filter      string
	order       []string
	limit       int
	offset      int
	forUpdate   bool
	forUpdateOf []string
	noWait      bool
	rownum      bool
	run         bool
	format      string
}

func newSQLCmd(a *app) *cobra.Command {
	var f sqlFlags

	cmd := &cobra.Command{
		Use:   "sql <table>",
		Short: "Render the SELECT for a table, or run it with --run",
		Long: `Render a paginated, optionally locking SELECT the way the connector sends it.
Binds are printed as positional arguments after the statement. ROWNUM paging
with an offset needs --columns, since the table is not reflected.

With --run the statement is executed and the rows are printed with values
converted to the reflected column types.`,
		Example: `  tibero sql emp --columns ename,sal --where deptno=10 --order -sal --limit 10
  tibero sql emp --filter "sal > 1000 AND job IN ('CLERK', 'ANALYST')"
  tibero sql emp --columns empno,ename --limit 5 --offset 10 --rownum
  tibero sql emp --for-update-of sal --nowait
  tibero sql emp --where deptno=10 --limit 5 --run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := a.loadConfig()
			if err != nil {
				return err
			}
			if f.rownum {
				cfg.Dialect.EnableOffsetFetch = false
			}
			req, err := f.request(args[0])
			if err != nil {
				return err
			}
			if f.run {
				req.Schema = f.schema
				return runSelect(cmd.Context(), cfg, logger, cmd.OutOrStdout(), f.format, req)
			}
			d, err := dialect.New(cfg.DialectOptions(), logger)
			if err != nil {
				return err
			}
			schema := f.schema
			if schema == "" {
				schema = cfg.Connection.Schema
			}
			sql, binds, err := tibero.BuildSelect(d, schema, req)
			if err != nil {
				return err
			}
			return printSQL(cmd.OutOrStdout(), sql, binds)
		},
	}

	cmd.Flags().StringVarP(&f.schema, "schema", "s", "", "schema of the table")
	cmd.Flags().StringSliceVarP(&f.columns, "columns", "c", nil, "columns to select (default *)")
	cmd.Flags().StringArrayVarP(&f.where, "where", "w", nil, "equality filter column=value (repeatable)")
	cmd.Flags().StringVarP(&f.filter, "filter", "f", "", "filter expression, e.g. \"sal > 1000 OR comm IS NOT NULL\"")
	cmd.Flags().StringSliceVar(&f.order, "order", nil, "order columns, prefix with - for descending")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "maximum number of rows")
	cmd.Flags().IntVar(&f.offset, "offset", 0, "rows to skip")
	cmd.Flags().BoolVar(&f.forUpdate, "for-update", false, "lock the selected rows")
	cmd.Flags().StringSliceVar(&f.forUpdateOf, "for-update-of", nil, "lock the rows of these columns")
	cmd.Flags().BoolVar(&f.noWait, "nowait", false, "fail instead of waiting for locks")
	cmd.Flags().BoolVar(&f.rownum, "rownum", false, "paginate with ROWNUM instead of OFFSET/FETCH")
	cmd.Flags().BoolVar(&f.run, "run", false, "connect, run the statement and print the rows")
	cmd.Flags().StringVarP(&f.format, "format", "o", "json", "row output format with --run: json or yaml")

	return cmd
}

func (f sqlFlags) request(table string) (connector.SelectRequest, error) {
	req := connector.SelectRequest{
		Table:  table,
		Fields: splitFlag(f.columns),
		Filter: f.filter,
		Limit:  f.limit,
		Offset: f.offset,
		NoWait: f.noWait,
	}
	for _, o := range splitFlag(f.order) {
		if col, ok := strings.CutPrefix(o, "-"); ok {
			req.Order = append(req.Order, connector.OrderField{Column: col, Desc: true})
		} else {
			req.Order = append(req.Order, connector.OrderField{Column: o})
		}
	}
	for _, w := range f.where {
		col, val, ok := strings.Cut(w, "=")
		if !ok || strings.TrimSpace(col) == "" {
			return req, fmt.Errorf("invalid --where %q: want column=value", w)
		}
		if req.Equals == nil {
			req.Equals = make(map[string]any)
		}
		req.Equals[strings.TrimSpace(col)] = whereValue(val)
	}
	if of := splitFlag(f.forUpdateOf); len(of) > 0 {
		req.ForUpdateOf = of
	} else if f.forUpdate {
		req.ForUpdateOf = []string{}
	}
	return req, nil
}

// runSelect connects and prints the rows of req.
func runSelect(ctx context.Context, cfg *config.Config, logger *zap.Logger, out io.Writer, format string, req connector.SelectRequest) error {
	if req.ForUpdateOf != nil {
		return fmt.Errorf("--run does not lock rows; drop --for-update and --for-update-of")
	}
	registry, conn, err := connect(cfg, logger)
	if err != nil {
		return err
	}
	defer registry.CloseAll()

	if req.Schema == "" {
		req.Schema = cfg.Connection.Schema
	}
	fetcher, ok := conn.(connector.Fetcher)
	if !ok {
		return fmt.Errorf("driver %s cannot run selects", conn.DriverName())
	}
	rows, err := fetcher.Fetch(ctx, req)
	if err != nil {
		return err
	}
	if rows == nil {
		rows = []dialect.Row{}
	}
	return writeOutput(out, format, rows)
}

// whereValue binds integers as numbers and everything else as text.
func whereValue(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return s
}

func printSQL(w io.Writer, sql string, binds []any) error {
	if _, err := fmt.Fprintln(w, sql); err != nil {
		return err
	}
	for i, b := range binds {
		if _, err := fmt.Fprintf(w, "-- %d: %#v\n", i+1, b); err != nil {
			return err
		}
	}
	return nil
}
