package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ds/internal/config"
	"github.com/Aman-CERP/ds/internal/logging"
	"github.com/Aman-CERP/ds/internal/preflight"
)

func newDoctorCmd(a *app) *cobra.Command {
	var (
		verbose    bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check system requirements and diagnose issues",
		Long: `Run system diagnostics to ensure ds can search.

Checks:
  - Platform (Windows Search exists only on Windows)
  - WSearch service installed and running
  - Search.CollatorDSO OLE DB provider registered
  - Catalog state (idle, crawling, paused)
  - Log and history directories writable
  - Free disk space for the history database

Log, history and disk checks are non-critical warnings.

Use --verbose for detailed diagnostic information.
Use --json for machine-readable output.`,
		Example: `  # Run diagnostics
  ds doctor

  # Verbose output with details
  ds doctor --verbose

  # JSON output for scripting
  ds doctor --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, a, verbose, jsonOutput)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed diagnostic info")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runDoctor(cmd *cobra.Command, a *app, verbose, jsonOutput bool) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := a.config()
	dataDir := config.DataDir()

	opts := []preflight.Option{
		preflight.WithCatalog(cfg.Search.Catalog),
		preflight.WithPaths(logging.DefaultLogDir(), dataDir),
		preflight.WithVerbose(verbose),
		preflight.WithOutput(cmd.OutOrStdout()),
	}
	if a.probe != nil {
		opts = append(opts, preflight.WithProbe(a.probe))
	}
	checker := preflight.New(opts...)

	results := checker.RunAll(ctx)
	failed := checker.HasCriticalFailures(results)
	lastPass := preflight.MarkerAge(dataDir)
	recordDoctorOutcome(dataDir, failed)

	if jsonOutput {
		if err := outputDoctorJSON(cmd, checker, results); err != nil {
			return err
		}
	} else {
		checker.PrintResults(results)
		if lastPass > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "\nLast successful check: %s ago\n", formatAge(lastPass))
		}
	}

	if failed {
		// The report already lists the failures.
		return errReported
	}
	return nil
}

// recordDoctorOutcome updates the marker that lets searches skip the
// first-run check.
func recordDoctorOutcome(dataDir string, failed bool) {
	if failed {
		_ = preflight.ClearMarker(dataDir)
		return
	}
	_ = preflight.MarkPassed(dataDir)
}

// doctorReport is the JSON output of "ds doctor --json".
type doctorReport struct {
	Status   string                  `json:"status"`
	Checks   []preflight.CheckResult `json:"checks"`
	Warnings []string                `json:"warnings,omitempty"`
	Errors   []string                `json:"errors,omitempty"`
}

func outputDoctorJSON(cmd *cobra.Command, checker *preflight.Checker, results []preflight.CheckResult) error {
	report := doctorReport{
		Status: checker.SummaryStatus(results),
		Checks: results,
	}
	for _, r := range results {
		if r.IsCritical() {
			report.Errors = append(report.Errors, r.Name+": "+r.Message)
		} else if r.Status != preflight.StatusPass {
			report.Warnings = append(report.Warnings, r.Name+": "+r.Message)
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// formatAge renders a marker age as "less than 1 hour", "5 hours" or "3 days".
func formatAge(d time.Duration) string {
	hours := int(d.Hours())
	switch {
	case hours < 1:
		return "less than 1 hour"
	case hours == 1:
		return "1 hour"
	case hours < 24:
		return fmt.Sprintf("%d hours", hours)
	case hours < 48:
		return "1 day"
	default:
		return fmt.Sprintf("%d days", hours/24)
	}
}
