// Package cmd provides the CLI commands for ds.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ds/internal/config"
	dserrors "github.com/Aman-CERP/ds/internal/errors"
	"github.com/Aman-CERP/ds/internal/logging"
	"github.com/Aman-CERP/ds/internal/output"
	"github.com/Aman-CERP/ds/internal/preflight"
	"github.com/Aman-CERP/ds/internal/profiling"
	"github.com/Aman-CERP/ds/pkg/version"
)

// usageLine is printed when ds runs without a pattern.
const usageLine = "Usage: ds [file search path pattern] [userQuery]"

// errReported marks a failure that has already been shown to the user.
var errReported = errors.New("reported")

// app carries state shared by every command of one invocation.
type app struct {
	cfg     *config.Config
	debug   bool
	noColor bool
	cleanup func()

	profile  profiling.Options
	profiler *profiling.Session

	// probe overrides the preflight system probe in tests.
	probe preflight.Probe
}

// NewRootCmd creates the root command for the ds CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{})
}

func newRootCmd(a *app) *cobra.Command {
	flags := &searchFlags{}

	cmd := &cobra.Command{
		Use:   "ds [pattern] [query...]",
		Short: "Search files through the Windows Search index",
		Long: `ds finds files through the Windows Search index.

The first argument is a path pattern (* and ? are wildcards, * alone matches
everything). Every further argument is joined into a free text query in
Windows Search syntax.`,
		Example: `  # Every .docx mentioning budget
  ds *.docx budget

  # Paths containing "report", excluding drafts
  ds report quarterly -draft

  # Print only the SQL
  ds sql *.go`,
		Version:       version.Version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), usageLine)
				return errReported
			}
			return runSearch(cmd, a, flags, args)
		},
	}

	cmd.SetVersionTemplate("ds version {{.Version}}\n")

	flags.register(cmd)
	cmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging (also to stderr)")
	cmd.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable colored output")
	cmd.PersistentFlags().StringVar(&a.profile.CPU, "profile-cpu", "", "Write a CPU profile to `file`")
	cmd.PersistentFlags().StringVar(&a.profile.Heap, "profile-mem", "", "Write a heap profile to `file` on exit")
	cmd.PersistentFlags().StringVar(&a.profile.Trace, "profile-trace", "", "Write an execution trace to `file`")
	_ = cmd.PersistentFlags().MarkHidden("profile-trace")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return a.init(cmd)
	}
	cmd.PersistentPostRunE = func(*cobra.Command, []string) error {
		a.close()
		return nil
	}

	cmd.AddCommand(newSearchCmd(a))
	cmd.AddCommand(newSQLCmd(a))
	cmd.AddCommand(newDoctorCmd(a))
	cmd.AddCommand(newStatsCmd(a))
	cmd.AddCommand(newConfigCmd(a))
	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newLogsCmd(a))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// init loads configuration and installs the logger for this run.
func (a *app) init(cmd *cobra.Command) error {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		return err
	}
	a.cfg = cfg
	if cfg.Output.Color == "never" {
		a.noColor = true
	}

	logCfg := logging.Config{
		Level:     cfg.Logging.Level,
		FilePath:  logging.DefaultLogPath(),
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxFiles:  cfg.Logging.MaxFiles,
	}

	switch {
	case cmd.Name() == "serve":
		if a.debug {
			logCfg.Level = "debug"
		}
		a.cleanup, err = logging.SetupServeMode(logCfg)
	case a.debug:
		logCfg.Level = "debug"
		logCfg.WriteToStderr = true
		a.cleanup, err = logging.SetupDefault(logCfg)
		if err == nil {
			slog.Debug("debug_logging_enabled",
				slog.String("log_file", logCfg.FilePath),
				slog.String("version", version.Version))
		}
	default:
		a.cleanup, err = logging.SetupDefault(logCfg)
	}
	if err != nil {
		// An unwritable log directory must not stop a search.
		logging.Discard()
		a.cleanup = nil
	}

	if a.profile.Enabled() {
		a.profiler, err = profiling.Start(a.profile)
		if err != nil {
			return dserrors.New(dserrors.ErrCodeFilePermission, "failed to start profiling", err).
				WithSuggestion("Check that the --profile-* paths are writable")
		}
	}

	return nil
}

func (a *app) close() {
	if a.profiler != nil {
		if err := a.profiler.Stop(); err != nil {
			slog.Warn("profile_write_failed", slog.String("error", err.Error()))
		}
		a.profiler = nil
	}
	if a.cleanup != nil {
		a.cleanup()
		a.cleanup = nil
	}
}

// config returns the loaded configuration, or defaults when a command runs
// without the root pre-run (as in unit tests of a single command).
func (a *app) config() *config.Config {
	if a.cfg == nil {
		a.cfg = config.NewConfig()
	}
	return a.cfg
}

// writer returns a status writer that honors --no-color.
func (a *app) writer(w io.Writer) *output.Writer {
	if a.noColor {
		return output.NewWithColor(w, false)
	}
	return output.New(w)
}

// Execute runs the root command. Errors not already shown are printed to
// stderr.
func Execute() error {
	a := &app{}
	err := newRootCmd(a).Execute()
	a.close()
	if err != nil {
		reportError(os.Stderr, err)
	}
	return err
}

func reportError(w io.Writer, err error) {
	if errors.Is(err, errReported) {
		return
	}
	fmt.Fprint(w, dserrors.FormatForCLI(err))
}
