package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ds/internal/config"
	"github.com/Aman-CERP/ds/internal/logging"
	"github.com/Aman-CERP/ds/internal/preflight"
	"github.com/Aman-CERP/ds/internal/search"
	"github.com/Aman-CERP/ds/internal/telemetry"
	"github.com/Aman-CERP/ds/internal/ui"
)

const (
	// historyLockTimeout bounds the wait for another ds process flushing history.
	historyLockTimeout = 2 * time.Second

	// serveFlushInterval is how often a long-running server persists history.
	serveFlushInterval = time.Minute
)

// searchFlags are shared by the root, search and sql commands.
type searchFlags struct {
	limit     int
	format    string
	generator string
	noSQL     bool
}

func (f *searchFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.limit, "limit", "n", 0, "Maximum number of results (default from config, 10)")
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "Output format: text, plain, json")
	cmd.Flags().StringVar(&f.generator, "generator", "", "SQL generator: auto, helper, native")
	cmd.Flags().BoolVar(&f.noSQL, "no-sql", false, "Do not print the generated SQL")

	// Everything after the pattern belongs to the query, including "-term".
	cmd.Flags().SetInterspersed(false)
}

// apply overrides cfg with the flags the user set.
func (f *searchFlags) apply(cfg *config.Config) error {
	if f.limit < 0 {
		return fmt.Errorf("--limit must not be negative")
	}
	if f.limit > 0 {
		cfg.Search.MaxResults = f.limit
	}
	if f.format != "" {
		if !ui.ValidFormat(f.format) {
			return fmt.Errorf("unknown output format %q (use text, plain or json)", f.format)
		}
		cfg.Output.Format = strings.ToLower(f.format)
	}
	if f.generator != "" {
		cfg.Search.Generator = f.generator
	}
	if f.noSQL {
		show := false
		cfg.Output.ShowSQL = &show
	}
	return nil
}

func newSearchCmd(a *app) *cobra.Command {
	flags := &searchFlags{}

	cmd := &cobra.Command{
		Use:   "search <pattern> [query...]",
		Short: "Search files (same as running ds with arguments)",
		Long: `Search the Windows Search index.

The pattern restricts the file path: "*" matches everything, a pattern with
* or ? is matched with LIKE, anything else must appear in the path.
The remaining arguments form the free text query.`,
		Example: `  ds search *.xlsx budget
  ds search --format json report quarterly`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, a, flags, args)
		},
	}

	flags.register(cmd)
	return cmd
}

// splitArgs returns the pattern and the joined user query.
func splitArgs(args []string) (string, string) {
	if len(args) == 0 {
		return "", ""
	}
	return args[0], strings.Join(args[1:], " ")
}

func runSearch(cmd *cobra.Command, a *app, flags *searchFlags, args []string) error {
	cfg := a.config()
	if err := flags.apply(cfg); err != nil {
		return err
	}

	renderer, err := ui.NewRenderer(ui.NewConfig(cmd.OutOrStdout(),
		ui.WithFormat(cfg.Output.Format),
		ui.WithNoColor(a.noColor),
		ui.WithShowSQL(cfg.ShowSQL()),
		ui.WithErrors(cmd.ErrOrStderr()),
	))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if timeout := cfg.SearchTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	pattern, userQuery := splitArgs(args)
	renderer.Start(pattern, userQuery)

	engine, _, closeEngine, err := newEngine(cfg, true, 0)
	if err != nil {
		renderer.Error(err)
		return errReported
	}
	defer closeEngine()

	runFirstTimeCheck(ctx, cfg)

	opts := search.Options{Pattern: pattern, UserQuery: userQuery, MaxResults: cfg.Search.MaxResults}
	prepared, err := engine.GenerateSQL(ctx, opts)
	if err != nil {
		renderer.Error(err)
		return errReported
	}
	renderer.SQL(prepared.SQL)

	resp, err := engine.Execute(ctx, prepared, opts)
	if err != nil {
		renderer.Error(err)
		return errReported
	}
	for _, r := range resp.Results {
		renderer.Result(r)
	}
	return renderer.Complete(resp)
}

// newEngine builds the search engine from cfg. With execute set it wires
// the OLE DB provider and, when enabled, the history collector. The returned
// func flushes history and releases resources. A positive flushEvery also
// persists history periodically.
func newEngine(cfg *config.Config, execute bool, flushEvery time.Duration) (*search.Engine, *telemetry.QueryMetrics, func(), error) {
	gen, err := search.NewGenerator(cfg.Search.Generator)
	if err != nil {
		return nil, nil, nil, err
	}

	engineCfg := search.DefaultEngineConfig()
	engineCfg.Catalog = cfg.Search.Catalog
	engineCfg.Scope = cfg.Search.Scope
	engineCfg.SelectColumns = cfg.Search.SelectColumns
	engineCfg.Sorting = cfg.Search.Sorting
	engineCfg.MaxResults = cfg.Search.MaxResults
	engineCfg.Timeout = cfg.SearchTimeout()

	if !execute {
		engine, err := search.NewEngine(gen, engineCfg)
		return engine, nil, func() {}, err
	}

	connector := search.ProviderConnector(cfg.Search.ConnectionString,
		search.ConnectionSourceFor(cfg.Search.Generator), cfg.Search.Catalog)
	opts := []search.EngineOption{search.WithConnector(connector)}
	metrics, closeMetrics := openMetrics(cfg, flushEvery)
	if metrics != nil {
		opts = append(opts, search.WithMetrics(metrics))
	}

	engine, err := search.NewEngine(gen, engineCfg, opts...)
	if err != nil {
		closeMetrics()
		return nil, nil, nil, err
	}
	return engine, metrics, closeMetrics, nil
}

// openMetrics opens the history store. History is best effort: failures are
// logged and the search runs without it.
func openMetrics(cfg *config.Config, flushEvery time.Duration) (*telemetry.QueryMetrics, func()) {
	if !cfg.HistoryEnabled() {
		return nil, func() {}
	}

	store, err := telemetry.OpenSQLiteMetricsStore(cfg.History.Path)
	if err != nil {
		slog.Warn("history_unavailable",
			slog.String("path", cfg.History.Path),
			slog.String("error", err.Error()))
		return nil, func() {}
	}

	qcfg := telemetry.DefaultQueryMetricsConfig()
	qcfg.FlushInterval = flushEvery
	if cfg.History.ZeroResults > 0 {
		qcfg.ZeroResultsCapacity = cfg.History.ZeroResults
	}
	metrics := telemetry.NewQueryMetricsWithConfig(store, qcfg,
		telemetry.WithLocker(telemetry.NewFileLock(cfg.History.Path, historyLockTimeout)))

	return metrics, func() {
		if err := metrics.Close(); err != nil {
			slog.Warn("history_flush_failed", slog.String("error", err.Error()))
		}
		_ = store.Close()
	}
}

// runFirstTimeCheck runs the preflight checks once per machine and logs the
// outcome. It never blocks a search; "ds doctor" shows the details.
func runFirstTimeCheck(ctx context.Context, cfg *config.Config) {
	dataDir := config.DataDir()
	if !preflight.NeedsCheck(dataDir) {
		return
	}

	checker := preflight.New(
		preflight.WithCatalog(cfg.Search.Catalog),
		preflight.WithPaths(logging.DefaultLogDir(), dataDir),
		preflight.WithOutput(io.Discard),
	)
	results := checker.RunAll(ctx)
	if checker.HasCriticalFailures(results) {
		slog.Warn("preflight_failed", slog.String("summary", checker.SummaryStatus(results)))
		return
	}
	if err := preflight.MarkPassed(dataDir); err != nil {
		slog.Debug("preflight_marker_failed", slog.String("error", err.Error()))
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
