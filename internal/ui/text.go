package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	dserrors "github.com/Aman-CERP/ds/internal/errors"
	"github.com/Aman-CERP/ds/internal/search"
)

// TextRenderer writes the classic lines with terminal styling and a short
// timing footer.
type TextRenderer struct {
	mu      sync.Mutex
	out     io.Writer
	errs    io.Writer
	showSQL bool
	styles  Styles
}

// NewTextRenderer creates a styled renderer.
func NewTextRenderer(cfg Config) *TextRenderer {
	return &TextRenderer{
		out:     cfg.Output,
		errs:    cfg.Errors,
		showSQL: cfg.ShowSQL,
		styles:  GetStyles(cfg.NoColor),
	}
}

// Start implements Renderer.
func (r *TextRenderer) Start(pattern, userQuery string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprintf(r.out, "%s %s %s %s\n",
		r.styles.Label.Render("Starting search with path pattern:"),
		r.styles.Header.Render(pattern),
		r.styles.Label.Render("and query:"),
		r.styles.Header.Render(userQuery))
}

// SQL implements Renderer.
func (r *TextRenderer) SQL(stmt string) {
	if !r.showSQL {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprintln(r.out, r.styles.Label.Render(sqlHeader))
	_, _ = fmt.Fprintln(r.out, r.styles.SQL.Render(stmt))
}

// Result implements Renderer.
func (r *TextRenderer) Result(res search.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprintf(r.out, "%s %s%s %s %s\n",
		r.styles.Label.Render("File Name:"),
		r.styles.Path.Render(res.Path),
		r.styles.Label.Render(","),
		r.styles.Label.Render("Size:"),
		r.styles.Size.Render(fmt.Sprintf("%d bytes", res.Size)))
}

// Complete implements Renderer.
func (r *TextRenderer) Complete(resp *search.Response) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := fmt.Fprintln(r.out, r.styles.Success.Render(completeLine)); err != nil {
		return err
	}
	if resp != nil {
		_, _ = fmt.Fprintln(r.out, r.styles.Dim.Render(fmt.Sprintf("%d %s in %s via %s",
			len(resp.Results), plural(len(resp.Results), "result", "results"),
			resp.Duration.Round(time.Millisecond), resp.Generator)))
	}
	return nil
}

// Error implements Renderer.
func (r *TextRenderer) Error(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprint(r.errs, r.styles.Error.Render(dserrors.FormatForCLI(err)))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
