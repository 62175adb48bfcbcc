package cli

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/faucetdb/tibero/internal/config"
	"github.com/faucetdb/tibero/internal/dialect"
	"github.com/faucetdb/tibero/internal/drift"
	"github.com/faucetdb/tibero/internal/model"
)

// errBreakingDrift makes the drift command exit non-zero.
var errBreakingDrift = errors.New("breaking schema drift detected")

func newSnapshotCmd(a *app) *cobra.Command {
	var (
		schema string
		kind   string
		path   string
		save   bool
		label  string
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save the reflection of a schema for later drift checks",
		Long: `Reflect a schema and write it to a JSON file, or with --save to the
snapshot history kept in history.data_dir. The history keeps the newest
history.keep snapshots of every schema.`,
		Example: `  tibero snapshot --schema scott --out scott.json
  tibero drift scott.json
  tibero snapshot --schema scott --save --label v1.4
  tibero drift --schema scott`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := a.loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if schema == "" {
				schema = cfg.Connection.Schema
			}
			s, err := reflectSchema(cmd.Context(), cfg, logger, schema, kind)
			if err != nil {
				return err
			}
			snap := drift.NewSnapshot(s)

			if path == "" && !save {
				path = "snapshot.json"
			}
			if path != "" {
				if err := snap.Save(path); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %d objects of %s to %s\n", len(snap.Tables), snap.Schema, path)
			}
			if !save {
				return nil
			}

			store, err := openHistory(cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			key := historyKey(cfg)
			id, err := store.Save(cmd.Context(), key, label, snap)
			if err != nil {
				return err
			}
			if cfg.History.Keep > 0 {
				pruned, err := store.Prune(cmd.Context(), key, snap.Schema, cfg.History.Keep)
				if err != nil {
					return err
				}
				logger.Debug("history pruned", zap.Int64("deleted", pruned))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored snapshot %d of %s (%d objects)\n", id, snap.Schema, len(snap.Tables))
			return nil
		},
	}

	cmd.Flags().StringVarP(&schema, "schema", "s", "", "schema to capture (default is the connection's schema)")
	cmd.Flags().StringVar(&kind, "kind", "any", "object kinds to capture")
	cmd.Flags().StringVar(&path, "out", "", "file to write (default snapshot.json unless --save)")
	cmd.Flags().BoolVar(&save, "save", false, "store the snapshot in the history")
	cmd.Flags().StringVar(&label, "label", "", "label of the stored snapshot, e.g. a release")

	cmd.AddCommand(newSnapshotListCmd(a))
	cmd.AddCommand(newSnapshotDeleteCmd(a))
	return cmd
}

func newSnapshotListCmd(a *app) *cobra.Command {
	var (
		schema string
		format string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := a.loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			store, err := openHistory(cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			entries, err := store.List(cmd.Context(), historyKey(cfg), schema)
			if err != nil {
				return err
			}
			return writeEntries(cmd.OutOrStdout(), format, entries)
		},
	}

	cmd.Flags().StringVarP(&schema, "schema", "s", "", "only list snapshots of this schema")
	cmd.Flags().StringVarP(&format, "format", "o", "text", "output format: text, json or yaml")
	return cmd
}

func newSnapshotDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid snapshot id %q", args[0])
			}
			cfg, logger, err := a.loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			store, err := openHistory(cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted snapshot %d\n", id)
			return nil
		},
	}
}

func newDriftCmd(a *app) *cobra.Command {
	var (
		schema string
		id     int64
		kind   string
		format string
	)

	cmd := &cobra.Command{
		Use:   "drift [snapshot-file]",
		Short: "Compare a saved snapshot against the live schema",
		Long: `Reflect the schema a snapshot was taken of and report every change since.
Without a file the snapshot comes from the history: --id picks one, otherwise
the newest snapshot of --schema is used.

Removed columns, narrowed types, new NOT NULL columns without a default and
new foreign keys are breaking; the command then exits non-zero.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := a.loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			var snap drift.Snapshot
			if len(args) == 1 {
				snap, err = drift.Load(args[0])
			} else {
				snap, err = historySnapshot(cmd.Context(), cfg, schema, id)
			}
			if err != nil {
				return err
			}

			s, err := reflectSchema(cmd.Context(), cfg, logger, snap.Schema, kind)
			if err != nil {
				return err
			}

			report := drift.Diff(snap, s)
			logger.Info("drift checked",
				zap.String("schema", report.Schema),
				zap.Int("drifted", report.DriftedTables),
				zap.Int("breaking", report.BreakingCount))
			if err := writeDrift(cmd.OutOrStdout(), format, report); err != nil {
				return err
			}
			if report.HasBreaking() {
				return errBreakingDrift
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&schema, "schema", "s", "", "schema of the stored snapshot (default is the connection's schema)")
	cmd.Flags().Int64Var(&id, "id", 0, "id of the stored snapshot")
	cmd.Flags().StringVar(&kind, "kind", "any", "object kinds to compare")
	cmd.Flags().StringVarP(&format, "format", "o", "text", "output format: text, json or yaml")

	return cmd
}

// reflectSchema connects, reflects one schema and disconnects.
func reflectSchema(ctx context.Context, cfg *config.Config, logger *zap.Logger, schema, kind string) (*model.Schema, error) {
	k, ok := model.ParseObjectKind(kind)
	if !ok {
		return nil, fmt.Errorf("unknown kind %q: want table, view, materialized_view or any", kind)
	}
	registry, conn, err := connect(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer registry.CloseAll()

	return conn.IntrospectSchema(ctx, dialect.ReflectOptions{Schema: schema, Kind: k})
}

func openHistory(cfg *config.Config) (*drift.Store, error) {
	dir, err := cfg.HistoryDir()
	if err != nil {
		return nil, err
	}
	return drift.OpenStore(dir)
}

func historySnapshot(ctx context.Context, cfg *config.Config, schema string, id int64) (drift.Snapshot, error) {
	store, err := openHistory(cfg)
	if err != nil {
		return drift.Snapshot{}, err
	}
	defer store.Close()

	if id != 0 {
		return store.Get(ctx, id)
	}
	if schema == "" {
		schema = cfg.Connection.Schema
	}
	if schema == "" {
		return drift.Snapshot{}, errors.New("a snapshot file, --id or --schema is required")
	}
	snap, err := store.Latest(ctx, historyKey(cfg), schema)
	if errors.Is(err, drift.ErrNotFound) {
		return snap, fmt.Errorf("no stored snapshot of %s: run tibero snapshot --save first", schema)
	}
	return snap, err
}

// historyKey names the database a snapshot was taken from without storing
// credentials.
func historyKey(cfg *config.Config) string {
	c := cfg.Connection
	if c.Host != "" {
		return fmt.Sprintf("%s:%d/%s", c.Host, c.Port, c.Database)
	}
	sum := sha256.Sum256([]byte(c.DSN))
	return "dsn:" + hex.EncodeToString(sum[:8])
}

func writeEntries(w io.Writer, format string, entries []drift.Entry) error {
	if format != "text" {
		return writeOutput(w, format, entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "No stored snapshots")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSCHEMA\tOBJECTS\tTAKEN\tLABEL")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n", e.ID, e.Schema, e.TableCount, e.TakenAt.Format("2006-01-02 15:04:05"), e.Label)
	}
	return tw.Flush()
}

func writeDrift(w io.Writer, format string, r drift.Report) error {
	if format != "text" {
		return writeOutput(w, format, r)
	}
	if r.DriftedTables == 0 {
		fmt.Fprintf(w, "No drift in %s since %s\n", r.Schema, r.TakenAt.Format("2006-01-02 15:04:05"))
		return nil
	}
	for _, t := range r.Tables {
		for _, it := range t.Items {
			fmt.Fprintf(w, "%-8s %-20s %s\n", it.Type, it.Category, it.Description)
		}
	}
	fmt.Fprintf(w, "%d of %d tables drifted, %d breaking changes\n", r.DriftedTables, r.TotalTables, r.BreakingCount)
	return nil
}
