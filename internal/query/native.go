package query

import (
	"context"
	"fmt"
	"strings"
)

// Native generates Windows Search SQL without the platform query helper.
// The output follows the same shape the helper produces, so it can be run
// against the Search.CollatorDSO provider directly or shown as a dry run on
// any operating system.
type Native struct{}

// NewNative returns a Native generator.
func NewNative() *Native {
	return &Native{}
}

// Name implements Generator.
func (n *Native) Name() string {
	return "native"
}

// GenerateSQL implements Generator.
func (n *Native) GenerateSQL(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := req.Validate(); err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	if req.MaxResults > 0 {
		fmt.Fprintf(&sb, "TOP %d ", req.MaxResults)
	}

	cols := make([]string, len(req.SelectColumns))
	for i, c := range req.SelectColumns {
		cols[i] = `"` + c + `"`
	}
	sb.WriteString(strings.Join(cols, ","))
	fmt.Fprintf(&sb, ` FROM "%s"`, req.Catalog)

	if where := whereClause(userQueryClause(req.UserQuery), req.WhereRestrictions); where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}

	keys, _ := parseSorting(req.Sorting)
	if len(keys) > 0 {
		terms := make([]string, len(keys))
		for i, k := range keys {
			dir := "ASC"
			if k.desc {
				dir = "DESC"
			}
			terms[i] = fmt.Sprintf(`"%s" %s`, k.property, dir)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(terms, ", "))
	}

	return sb.String(), nil
}

// whereClause joins the user-query condition with the restriction text.
// Restrictions begin with "AND"; the keyword is dropped when nothing precedes it.
func whereClause(user, restrictions string) string {
	restrictions = strings.TrimSpace(restrictions)
	if user == "" {
		trimmed := strings.TrimSpace(strings.TrimPrefix(restrictions, "AND "))
		return trimmed
	}
	if restrictions == "" {
		return user
	}
	if !strings.HasPrefix(strings.ToUpper(restrictions), "AND ") {
		restrictions = "AND " + restrictions
	}
	return user + " " + restrictions
}
