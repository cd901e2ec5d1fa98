// Package ui renders search results, SQL and history summaries to the
// terminal.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/Aman-CERP/ds/internal/search"
)

// Output formats accepted by output.format and --format.
const (
	FormatText  = "text"
	FormatPlain = "plain"
	FormatJSON  = "json"
)

// Renderer receives the events of one search in order:
// Start, SQL, Result per row, then Complete or Error.
type Renderer interface {
	Start(pattern, userQuery string)
	SQL(stmt string)
	Result(r search.Result)
	Complete(resp *search.Response) error
	Error(err error)
}

// Config configures the result renderer.
type Config struct {
	Output  io.Writer
	Errors  io.Writer
	Format  string
	NoColor bool
	ShowSQL bool
}

// ConfigOption is a function that modifies Config.
type ConfigOption func(*Config)

// WithFormat selects text, plain or json output.
func WithFormat(format string) ConfigOption {
	return func(c *Config) {
		c.Format = format
	}
}

// WithNoColor disables color output.
func WithNoColor(noColor bool) ConfigOption {
	return func(c *Config) {
		c.NoColor = noColor
	}
}

// WithShowSQL controls whether the generated SQL is echoed.
func WithShowSQL(show bool) ConfigOption {
	return func(c *Config) {
		c.ShowSQL = show
	}
}

// WithErrors sets the writer used for error reports (stderr by default).
func WithErrors(w io.Writer) ConfigOption {
	return func(c *Config) {
		c.Errors = w
	}
}

// NewConfig creates a new Config with the given output and options.
func NewConfig(output io.Writer, opts ...ConfigOption) Config {
	cfg := Config{
		Output:  output,
		Errors:  os.Stderr,
		Format:  FormatText,
		ShowSQL: true,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

// ValidFormat reports whether format names a known renderer.
func ValidFormat(format string) bool {
	switch strings.ToLower(format) {
	case FormatText, FormatPlain, FormatJSON:
		return true
	default:
		return false
	}
}

// NewRenderer picks a renderer for the format and environment. Text output
// falls back to plain when colors are disabled, when stdout is not a
// terminal, or in CI.
func NewRenderer(cfg Config) (Renderer, error) {
	switch strings.ToLower(cfg.Format) {
	case FormatJSON:
		return NewJSONRenderer(cfg), nil
	case FormatPlain:
		return NewPlainRenderer(cfg), nil
	case FormatText, "":
		if cfg.NoColor || DetectNoColor() || !IsTTY(cfg.Output) || DetectCI() {
			return NewPlainRenderer(cfg), nil
		}
		return NewTextRenderer(cfg), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (use text, plain or json)", cfg.Format)
	}
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}

	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	return false
}

// DetectNoColor checks if NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI checks if running in a CI environment.
func DetectCI() bool {
	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TF_BUILD"}
	for _, v := range ciVars {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}
