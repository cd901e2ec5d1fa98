package search

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"strings"

	dserrors "github.com/Aman-CERP/ds/internal/errors"
)

// Querier is the part of *sql.DB the executor needs.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Executor runs generated SQL and scans rows into Results.
type Executor struct {
	db Querier
}

// NewExecutor creates an executor over db.
func NewExecutor(db Querier) *Executor {
	return &Executor{db: db}
}

// Run executes stmt and returns at most limit rows (limit <= 0 means all).
// Column 1 is the path and column 2 the size; any further columns are kept
// as strings.
func (e *Executor) Run(ctx context.Context, stmt string, limit int) ([]Result, error) {
	rows, err := e.db.QueryContext(ctx, stmt)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, dserrors.New(dserrors.ErrCodeSearchFailed, "search query failed", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, dserrors.New(dserrors.ErrCodeRowScan, "cannot read result columns", err)
	}
	if len(cols) == 0 {
		return nil, dserrors.New(dserrors.ErrCodeInvalidColumns, "query returned no columns", nil)
	}

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	results := make([]Result, 0)
	for rows.Next() {
		if limit > 0 && len(results) >= limit {
			break
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, dserrors.New(dserrors.ErrCodeRowScan, "cannot scan result row", err)
		}

		r := Result{Path: toString(values[0])}
		if len(values) > 1 {
			r.Size = toUint64(values[1])
		}
		for _, v := range values[min(2, len(values)):] {
			r.Extra = append(r.Extra, toString(v))
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, dserrors.New(dserrors.ErrCodeSearchFailed, "reading search results failed", err)
	}

	return results, nil
}

// toString renders a scanned value. NULL becomes "".
func toString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

// toUint64 converts a scanned size value. NULL, negative and non-numeric
// values become 0.
func toUint64(v any) uint64 {
	switch x := v.(type) {
	case nil:
		return 0
	case uint64:
		return x
	case int64:
		if x < 0 {
			return 0
		}
		return uint64(x)
	case int32:
		if x < 0 {
			return 0
		}
		return uint64(x)
	case int:
		if x < 0 {
			return 0
		}
		return uint64(x)
	case uint32:
		return uint64(x)
	case float64:
		if x < 0 || math.IsNaN(x) || x > math.MaxUint64 {
			return 0
		}
		return uint64(x)
	case []byte:
		return parseUint(string(x))
	case string:
		return parseUint(x)
	default:
		return parseUint(fmt.Sprint(x))
	}
}

func parseUint(s string) uint64 {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
