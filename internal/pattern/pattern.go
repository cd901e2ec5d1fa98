// Package pattern translates shell-style file path patterns into where
// restrictions understood by the Windows Search SQL dialect.
//
// The translation is deliberately small: '*' becomes '%', '?' becomes '_',
// and the result is matched with LIKE when it contains a wildcard, or with
// Contains() when it does not. Everything else about matching is left to the
// indexer.
package pattern

import (
	"fmt"
	"strings"

	dserrors "github.com/Aman-CERP/ds/internal/errors"
)

// PathProperty is the indexed property the pattern is matched against.
const PathProperty = "System.ItemPathDisplay"

// DefaultScope restricts results to file system items.
const DefaultScope = "file:"

// MatchAll is the pattern that disables path filtering.
const MatchAll = "*"

// Kind describes how a pattern is matched.
type Kind int

const (
	// KindNone means no path restriction is applied.
	KindNone Kind = iota
	// KindLike matches with SQL LIKE and '%'/'_' wildcards.
	KindLike
	// KindContains matches with the full-text Contains() predicate.
	KindContains
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindLike:
		return "like"
	case KindContains:
		return "contains"
	default:
		return "unknown"
	}
}

// Restriction is the translated form of a path pattern.
type Restriction struct {
	// Pattern is the original user input.
	Pattern string `json:"pattern"`
	// Kind is the matching strategy.
	Kind Kind `json:"-"`
	// Value is the translated literal (wildcards substituted, quotes doubled).
	Value string `json:"value,omitempty"`
	// Scope is the scope literal, "file:" by default.
	Scope string `json:"scope"`
}

// Clause returns the path predicate alone, or "" for KindNone.
func (r Restriction) Clause() string {
	switch r.Kind {
	case KindLike:
		return fmt.Sprintf("%s LIKE '%s'", PathProperty, r.Value)
	case KindContains:
		return fmt.Sprintf("Contains(%s, '%s')", PathProperty, r.Value)
	default:
		return ""
	}
}

// Where returns the full where-restriction text handed to the query helper.
// It always starts with "AND " because the helper appends it to its own
// conditions.
func (r Restriction) Where() string {
	where := fmt.Sprintf("AND scope='%s'", escapeLiteral(r.Scope))
	if clause := r.Clause(); clause != "" {
		where += " AND " + clause + " "
	}
	return where
}

// Translate converts a user path pattern into a Restriction using the
// default scope.
func Translate(p string) (Restriction, error) {
	return TranslateScoped(p, DefaultScope)
}

// TranslateScoped converts a user path pattern into a Restriction bound to
// the given scope. An empty scope falls back to DefaultScope.
func TranslateScoped(p, scope string) (Restriction, error) {
	if scope == "" {
		scope = DefaultScope
	}
	if strings.ContainsRune(p, 0) {
		return Restriction{}, dserrors.New(dserrors.ErrCodeInvalidPattern,
			"path pattern contains a NUL character", nil)
	}

	r := Restriction{Pattern: p, Scope: scope}
	if p == "" || p == MatchAll {
		r.Kind = KindNone
		return r, nil
	}

	value := strings.ReplaceAll(p, "*", "%")
	value = strings.ReplaceAll(value, "?", "_")

	if strings.ContainsAny(value, "%_") {
		r.Kind = KindLike
	} else {
		r.Kind = KindContains
	}
	r.Value = escapeLiteral(value)

	return r, nil
}

// escapeLiteral doubles single quotes so the value stays inside its SQL string.
func escapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
