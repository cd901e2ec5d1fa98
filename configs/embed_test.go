package configs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestUserConfigTemplate_IsValidYAML(t *testing.T) {
	require.NotEmpty(t, UserConfigTemplate)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(UserConfigTemplate), &doc))

	// Every section is present so users can uncomment values in place.
	for _, section := range []string{"search", "output", "history", "logging", "server"} {
		assert.Contains(t, doc, section)
	}
	assert.Equal(t, 1, doc["version"])
}

func TestUserConfigTemplate_DocumentsEveryKey(t *testing.T) {
	for _, key := range []string{
		"catalog:", "max_results:", "select_columns:", "sorting:", "scope:", "generator:",
		"timeout:", "connection_string:", "format:", "color:", "show_sql:", "enabled:",
		"path:", "top_terms:", "zero_results:", "level:", "max_size_mb:", "max_files:", "transport:",
	} {
		assert.Contains(t, UserConfigTemplate, "# "+key)
	}
}
