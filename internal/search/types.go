package search

import (
	"time"

	"github.com/Aman-CERP/ds/internal/pattern"
)

// Result is one row returned by the search provider.
type Result struct {
	// Path is the display path (first select column).
	Path string `json:"path"`
	// Size is the item size in bytes (second select column); 0 when unknown.
	Size uint64 `json:"size"`
	// Extra holds any further select columns, rendered as strings.
	Extra []string `json:"extra,omitempty"`
}

// Options describes one search.
type Options struct {
	// Pattern is the file path pattern ("*", "*.go", "report").
	Pattern string
	// UserQuery is the free-text query. May be empty.
	UserQuery string
	// MaxResults overrides the configured row limit when > 0.
	MaxResults int
}

// Response is the outcome of Engine.Search or Engine.GenerateSQL.
type Response struct {
	SQL         string              `json:"sql"`
	Generator   string              `json:"generator"`
	Restriction pattern.Restriction `json:"restriction"`
	Results     []Result            `json:"results"`
	Duration    time.Duration       `json:"duration_ns"`
}
