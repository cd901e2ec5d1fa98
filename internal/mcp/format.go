package mcp

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/ds/internal/search"
)

// FormatSearchResults formats a search response as markdown.
func FormatSearchResults(pattern, query string, resp *search.Response) string {
	if resp == nil || len(resp.Results) == 0 {
		return fmt.Sprintf("No files found for pattern `%s` and query \"%s\"", pattern, query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Files matching `%s`", pattern)
	if query != "" {
		fmt.Fprintf(&sb, " and \"%s\"", query)
	}
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "Found %d file", len(resp.Results))
	if len(resp.Results) != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")

	sb.WriteString("| Path | Size |\n|---|---:|\n")
	for _, r := range resp.Results {
		fmt.Fprintf(&sb, "| %s | %d |\n", escapeCell(r.Path), r.Size)
	}

	return sb.String()
}

// FormatSQL formats a dry-run response as markdown.
func FormatSQL(resp *search.Response) string {
	if resp == nil {
		return ""
	}
	return fmt.Sprintf("Generated by `%s` (path restriction: %s)\n\n```sql\n%s\n```\n",
		resp.Generator, resp.Restriction.Kind, resp.SQL)
}

// toFileResults converts engine rows to tool output rows.
func toFileResults(results []search.Result) []FileResult {
	out := make([]FileResult, 0, len(results))
	for _, r := range results {
		out = append(out, FileResult{Path: r.Path, Size: r.Size, Extra: r.Extra})
	}
	return out
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
