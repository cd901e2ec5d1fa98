package mcp

// Tool names.
const (
	ToolFileSearch  = "file_search"
	ToolGenerateSQL = "generate_sql"
)

// Limits applied to the limit argument of both tools.
const (
	defaultLimit = 10
	maxLimit     = 200
)

// FileSearchInput defines the input schema for the file_search tool.
type FileSearchInput struct {
	Pattern string `json:"pattern" jsonschema:"file path pattern with * and ? wildcards, e.g. *.docx or report*; * matches everything"`
	Query   string `json:"query,omitempty" jsonschema:"free text query in Windows Search syntax, e.g. budget ext:xlsx -draft"`
	Limit   int    `json:"limit,omitempty" jsonschema:"maximum number of results, defaults to the configured search.max_results"`
}

// FileSearchOutput defines the output schema for the file_search tool.
type FileSearchOutput struct {
	SQL     string       `json:"sql" jsonschema:"the SQL sent to the Windows Search provider"`
	Count   int          `json:"count" jsonschema:"number of results"`
	Results []FileResult `json:"results" jsonschema:"matching files, most recently modified first"`
}

// FileResult is one matching file.
type FileResult struct {
	Path  string   `json:"path" jsonschema:"full display path of the file"`
	Size  uint64   `json:"size" jsonschema:"size in bytes"`
	Extra []string `json:"extra,omitempty" jsonschema:"additional selected columns"`
}

// GenerateSQLInput defines the input schema for the generate_sql tool.
type GenerateSQLInput struct {
	Pattern string `json:"pattern" jsonschema:"file path pattern, e.g. *.docx or * for everything"`
	Query   string `json:"query,omitempty" jsonschema:"free text query in Windows Search syntax"`
	Limit   int    `json:"limit,omitempty" jsonschema:"TOP row limit written into the SQL, default 10"`
}

// GenerateSQLOutput defines the output schema for the generate_sql tool.
type GenerateSQLOutput struct {
	SQL       string `json:"sql" jsonschema:"generated Windows Search SQL"`
	Generator string `json:"generator" jsonschema:"helper (OS query helper) or native (portable)"`
	Kind      string `json:"kind" jsonschema:"path restriction kind: none, like or contains"`
}

// clampLimit applies the configured default and the ceiling to a requested
// limit.
func clampLimit(limit, configured int) int {
	if limit <= 0 {
		limit = configured
	}
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
