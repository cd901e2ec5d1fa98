package ui

import (
	"encoding/json"
	"io"
	"sync"

	dserrors "github.com/Aman-CERP/ds/internal/errors"
	"github.com/Aman-CERP/ds/internal/search"
)

// searchDocument is the single JSON object written per search.
type searchDocument struct {
	Pattern    string          `json:"pattern"`
	Query      string          `json:"query"`
	SQL        string          `json:"sql,omitempty"`
	Generator  string          `json:"generator,omitempty"`
	Kind       string          `json:"kind,omitempty"`
	Count      int             `json:"count"`
	DurationMS int64           `json:"duration_ms"`
	Results    []search.Result `json:"results"`
}

// JSONRenderer buffers one search and writes it as a single JSON object.
type JSONRenderer struct {
	mu      sync.Mutex
	out     io.Writer
	showSQL bool
	doc     searchDocument
}

// NewJSONRenderer creates a JSON renderer.
func NewJSONRenderer(cfg Config) *JSONRenderer {
	return &JSONRenderer{
		out:     cfg.Output,
		showSQL: cfg.ShowSQL,
		doc:     searchDocument{Results: []search.Result{}},
	}
}

// Start implements Renderer.
func (r *JSONRenderer) Start(pattern, userQuery string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.doc.Pattern = pattern
	r.doc.Query = userQuery
}

// SQL implements Renderer.
func (r *JSONRenderer) SQL(stmt string) {
	if !r.showSQL {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.doc.SQL = stmt
}

// Result implements Renderer.
func (r *JSONRenderer) Result(res search.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.doc.Results = append(r.doc.Results, res)
}

// Complete implements Renderer.
func (r *JSONRenderer) Complete(resp *search.Response) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if resp != nil {
		r.doc.Generator = resp.Generator
		r.doc.Kind = resp.Restriction.Kind.String()
		r.doc.DurationMS = resp.Duration.Milliseconds()
	}
	r.doc.Count = len(r.doc.Results)

	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(r.doc)
}

// Error implements Renderer. The error document goes to the regular output
// so a consumer reading stdout always receives JSON.
func (r *JSONRenderer) Error(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, ferr := dserrors.FormatJSON(err)
	if ferr != nil {
		return
	}
	_, _ = r.out.Write(append(data, '\n'))
}
