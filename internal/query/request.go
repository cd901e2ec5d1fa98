// Package query builds Windows Search SQL from a user query and a set of
// helper settings (columns, sorting, row limit, where restrictions).
//
// Two generators implement the same contract: the platform query helper
// (package wsearch, Windows only) and Native, a portable generator that
// produces equivalent SQL without touching COM.
package query

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	dserrors "github.com/Aman-CERP/ds/internal/errors"
)

// Defaults mirror the settings the tool has always used.
const (
	DefaultCatalog    = "SystemIndex"
	DefaultMaxResults = 10
	DefaultSorting    = "System.DateModified DESC"
)

// DefaultSelectColumns are the columns read back for every row.
// The executor expects the display path first and the size second.
var DefaultSelectColumns = []string{"System.ItemPathDisplay", "System.Size"}

// propertyName matches canonical property names such as System.Music.Artist.
var propertyName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*(\.[A-Za-z0-9_]+)*$`)

// Request holds everything needed to produce one SQL statement.
type Request struct {
	// Catalog is the search catalog, normally SystemIndex.
	Catalog string `json:"catalog"`
	// MaxResults caps the row count; zero or negative means no cap.
	MaxResults int `json:"max_results"`
	// SelectColumns lists the properties returned for each row.
	SelectColumns []string `json:"select_columns"`
	// Sorting is a comma-separated list of "property [ASC|DESC]".
	Sorting string `json:"sorting"`
	// WhereRestrictions is appended verbatim after the user-query conditions.
	// It starts with "AND".
	WhereRestrictions string `json:"where_restrictions"`
	// UserQuery is the free-text query. May be empty.
	UserQuery string `json:"user_query"`
}

// DefaultRequest returns a request populated with the default helper settings.
func DefaultRequest() Request {
	cols := make([]string, len(DefaultSelectColumns))
	copy(cols, DefaultSelectColumns)
	return Request{
		Catalog:       DefaultCatalog,
		MaxResults:    DefaultMaxResults,
		SelectColumns: cols,
		Sorting:       DefaultSorting,
	}
}

// ColumnList returns the columns joined the way the query helper expects them.
func (r Request) ColumnList() string {
	return strings.Join(r.SelectColumns, ", ")
}

// Validate checks that columns and sort keys are plain property names.
func (r Request) Validate() error {
	if r.Catalog == "" {
		return dserrors.ValidationError("catalog name is required", nil)
	}
	if len(r.SelectColumns) == 0 {
		return dserrors.New(dserrors.ErrCodeInvalidColumns, "at least one select column is required", nil)
	}
	for _, c := range r.SelectColumns {
		if !propertyName.MatchString(c) {
			return dserrors.New(dserrors.ErrCodeInvalidColumns,
				fmt.Sprintf("invalid column name %q", c), nil)
		}
	}
	if _, err := parseSorting(r.Sorting); err != nil {
		return err
	}
	return nil
}

// Generator turns a Request into SQL text.
type Generator interface {
	// GenerateSQL returns the statement for req.
	GenerateSQL(ctx context.Context, req Request) (string, error)

	// Name identifies the generator in logs and output ("helper", "native").
	Name() string
}

// sortKey is one parsed ORDER BY term.
type sortKey struct {
	property string
	desc     bool
}

// parseSorting parses "System.DateModified DESC, System.ItemName".
func parseSorting(s string) ([]sortKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var keys []sortKey
	for _, part := range strings.Split(s, ",") {
		fields := strings.Fields(part)
		if len(fields) == 0 || len(fields) > 2 {
			return nil, dserrors.New(dserrors.ErrCodeInvalidQuery,
				fmt.Sprintf("invalid sort term %q", strings.TrimSpace(part)), nil)
		}
		if !propertyName.MatchString(fields[0]) {
			return nil, dserrors.New(dserrors.ErrCodeInvalidQuery,
				fmt.Sprintf("invalid sort property %q", fields[0]), nil)
		}
		key := sortKey{property: fields[0]}
		if len(fields) == 2 {
			switch strings.ToUpper(fields[1]) {
			case "ASC":
			case "DESC":
				key.desc = true
			default:
				return nil, dserrors.New(dserrors.ErrCodeInvalidQuery,
					fmt.Sprintf("invalid sort direction %q", fields[1]), nil)
			}
		}
		keys = append(keys, key)
	}
	return keys, nil
}
