package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ds/internal/telemetry"
	"github.com/Aman-CERP/ds/internal/ui"
)

func newStatsCmd(a *app) *cobra.Command {
	var (
		jsonOutput bool
		days       int
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show search history statistics",
		Long: `Display the search history recorded by ds:
  - Searches per restriction kind (match all, LIKE, CONTAINS)
  - Latency distribution
  - Most frequent query terms
  - Recent searches that returned nothing`,
		Example: `  ds stats
  ds stats --days 30
  ds stats --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd, a, jsonOutput, days)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().IntVar(&days, "days", 7, "Number of days to include")

	return cmd
}

func runStats(cmd *cobra.Command, a *app, jsonOutput bool, days int) error {
	if days <= 0 {
		return fmt.Errorf("--days must be positive")
	}
	cfg := a.config()
	path := cfg.History.Path
	renderer := ui.NewStatsRenderer(cmd.OutOrStdout(), a.noColor)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		now := time.Now()
		empty := &telemetry.Summary{
			From: now.AddDate(0, 0, -(days - 1)).Format("2006-01-02"),
			To:   now.Format("2006-01-02"),
		}
		if jsonOutput {
			return renderer.RenderJSON(empty)
		}
		out := a.writer(cmd.OutOrStdout())
		out.Warningf("No history database at %s", path)
		if !cfg.HistoryEnabled() {
			out.Status("", "History is disabled (history.enabled: false)")
		}
		return nil
	}

	store, err := telemetry.OpenSQLiteMetricsStore(path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	summary, err := telemetry.Summarize(store, time.Now(), days, cfg.History.TopTerms)
	if err != nil {
		return err
	}

	if jsonOutput {
		return renderer.RenderJSON(summary)
	}
	if err := renderer.Render(summary); err != nil {
		return err
	}

	out := a.writer(cmd.OutOrStdout())
	out.Newline()
	out.KeyValue("Database", path)
	if info != nil {
		out.KeyValue("Size", ui.FormatBytes(uint64(info.Size())))
	}
	return nil
}
