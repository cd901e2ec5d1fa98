package ui

import (
	"fmt"
	"io"
	"sync"

	dserrors "github.com/Aman-CERP/ds/internal/errors"
	"github.com/Aman-CERP/ds/internal/search"
)

// Line formats shared by the plain and text renderers.
const (
	startLine    = "Starting search with path pattern: %s and query: %s\n"
	sqlHeader    = "Generated SQL query:"
	resultLine   = "File Name: %s, Size: %d bytes\n"
	completeLine = "Search completed successfully."
)

// PlainRenderer writes the classic line-oriented output without styling.
type PlainRenderer struct {
	mu      sync.Mutex
	out     io.Writer
	errs    io.Writer
	showSQL bool
}

// NewPlainRenderer creates a plain text renderer.
func NewPlainRenderer(cfg Config) *PlainRenderer {
	return &PlainRenderer{
		out:     cfg.Output,
		errs:    cfg.Errors,
		showSQL: cfg.ShowSQL,
	}
}

// Start implements Renderer.
func (r *PlainRenderer) Start(pattern, userQuery string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprintf(r.out, startLine, pattern, userQuery)
}

// SQL implements Renderer.
func (r *PlainRenderer) SQL(stmt string) {
	if !r.showSQL {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprintln(r.out, sqlHeader)
	_, _ = fmt.Fprintln(r.out, stmt)
}

// Result implements Renderer.
func (r *PlainRenderer) Result(res search.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprintf(r.out, resultLine, res.Path, res.Size)
}

// Complete implements Renderer.
func (r *PlainRenderer) Complete(*search.Response) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := fmt.Fprintln(r.out, completeLine)
	return err
}

// Error implements Renderer.
func (r *PlainRenderer) Error(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprint(r.errs, dserrors.FormatForCLI(err))
}
