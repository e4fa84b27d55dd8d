package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"typescan/internal/config"
	"typescan/internal/loadpath"
	"typescan/internal/scan"
	"typescan/internal/storage"
	"typescan/internal/typeinfo"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	roots      []string
	dbPath     string
	logLevel   string
	export     bool
}

func newRootCmd() *cobra.Command {
	o := &options{}
	rootCmd := &cobra.Command{
		Use:           "typescan",
		Short:         "Find types by marker or base type across directories and zip archives",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&o.configPath, "config", "c", "typescan.yaml", "Path to the YAML configuration")
	flags.StringArrayVarP(&o.roots, "path", "p", nil, "Lookup root (directory or zip archive); repeatable, in lookup order")
	flags.StringVarP(&o.dbPath, "db", "d", config.DefaultDB, "Path to the run database (SQLite)")
	flags.StringVar(&o.logLevel, "log-level", config.DefaultLogLevel, "Log level (debug, info, warn, error)")
	flags.BoolVar(&o.export, "export", false, "Record the run in the database")

	rootCmd.AddCommand(
		newQueryCmd(o, "marked", "Find types carrying a marker", (*scan.Query).MarkedWith),
		newQueryCmd(o, "assignable", "Find types assignable to a base type", (*scan.Query).AssignableTo),
		newRunsCmd(o),
		newShowCmd(o),
	)
	return rootCmd
}

// load merges the configuration file, the environment and explicit flags.
func (o *options) load(cmd *cobra.Command) (*config.Config, *log.Logger, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	flags := cmd.Flags()
	if len(o.roots) > 0 {
		cfg.LoadPath.Roots = o.roots
	}
	if flags.Changed("db") {
		cfg.Export.DB = o.dbPath
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if o.export {
		cfg.Export.Enabled = true
	}
	if len(cfg.LoadPath.Roots) == 0 {
		cfg.LoadPath.Roots = []string{"."}
	}

	level, err := log.ParseLevel(strings.ToLower(cfg.Log.Level))
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
	}
	logger := log.NewWithOptions(cmd.ErrOrStderr(), log.Options{
		Prefix: "typescan",
		Level:  level,
	})
	return cfg, logger, nil
}

func newQueryCmd(o *options, kind, short string, terminal func(*scan.Query, string) *scan.MatchSet) *cobra.Command {
	return &cobra.Command{
		Use:   kind + " <target> <namespace>...",
		Short: short,
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := o.load(cmd)
			if err != nil {
				return err
			}

			lp, err := loadpath.New(afero.NewOsFs(), cfg.LoadPath.Roots,
				loadpath.WithLogger(logger),
				loadpath.WithCacheSize(cfg.Cache.Size),
				loadpath.WithUnitSuffix(cfg.LoadPath.UnitSuffix),
			)
			if err != nil {
				return err
			}

			collector := &scan.Collector{}
			engine := scan.NewEngine(lp,
				scan.WithLogger(logger),
				scan.WithSink(scan.Tee(scan.LogSink{Logger: logger}, collector)),
				scan.WithUnitSuffix(cfg.LoadPath.UnitSuffix),
				scan.WithArchiveSuffixes(cfg.Scan.ArchiveSuffixes...),
				scan.WithMaxDepth(cfg.Scan.MaxDepth),
			)
			q, err := engine.Query(args[1:]...)
			if err != nil {
				return err
			}

			target := args[0]
			started := time.Now()
			set := terminal(q, target)
			elapsed := time.Since(started)

			out := cmd.OutOrStdout()
			for _, h := range set.Handles() {
				fmt.Fprintf(out, "%s\t%s\n", h.ID(), h.Source())
			}
			stats := set.Stats()
			logger.Info("query finished",
				"matched", stats.Matched, "rejected", stats.Rejected,
				"skipped", stats.Skipped, "diagnostics", len(collector.Diagnostics()),
				"elapsed", elapsed)

			if !cfg.Export.Enabled {
				return nil
			}
			run := &storage.Run{
				Kind:       kind,
				Target:     target,
				Namespaces: q.Namespaces(),
				Roots:      cfg.LoadPath.Roots,
				StartedAt:  started,
				Duration:   elapsed,
				Stats:      statsMap(stats),
				Matches:    matches(set.Handles()),
			}
			return exportRun(cmd.Context(), cfg.Export.DB, run, cmd)
		},
	}
}

func statsMap(s scan.Stats) map[string]int {
	return map[string]int{
		"namespaces": s.Namespaces,
		"roots":      s.Roots,
		"candidates": s.Candidates,
		"matched":    s.Matched,
		"rejected":   s.Rejected,
		"skipped":    s.Skipped,
		"duplicates": s.Duplicates,
	}
}

func matches(handles []typeinfo.Handle) []storage.Match {
	out := make([]storage.Match, 0, len(handles))
	for _, h := range handles {
		out = append(out, storage.Match{
			TypeID:  h.ID(),
			Kind:    string(h.Kind()),
			Source:  h.Source(),
			Markers: h.Markers(),
		})
	}
	return out
}

func exportRun(ctx context.Context, dbPath string, run *storage.Run, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	id, err := store.SaveRun(ctx, run)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "saved run #%d to %s\n", id, dbPath)
	return nil
}

func openStore(o *options, cmd *cobra.Command) (*storage.SQLiteStore, error) {
	cfg, _, err := o.load(cmd)
	if err != nil {
		return nil, err
	}
	store, err := storage.NewSQLiteStore(cfg.Export.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return store, nil
}

func newRunsCmd(o *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(o, cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range runs {
				fmt.Fprintf(out, "#%d\t%s\t%s %s\t%s\t%d matches\n",
					r.ID, r.StartedAt.Local().Format(time.DateTime), r.Kind, r.Target,
					strings.Join(r.Namespaces, ","), r.Stats["matched"])
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list (0 for all)")
	return cmd
}

func newShowCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the matches of a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid run id %q", args[0])
			}
			store, err := openStore(o, cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.LoadRun(cmd.Context(), id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run #%d: %s %s in %s\n", run.ID, run.Kind, run.Target, strings.Join(run.Namespaces, ", "))
			fmt.Fprintf(out, "Roots: %s\n", strings.Join(run.Roots, ", "))
			fmt.Fprintf(out, "Took %v, %d candidates, %d skipped\n", run.Duration, run.Stats["candidates"], run.Stats["skipped"])
			for _, m := range run.Matches {
				fmt.Fprintf(out, "%s\t%s\t%s\n", m.TypeID, m.Kind, m.Source)
			}
			return nil
		},
	}
}
