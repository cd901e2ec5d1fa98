// Package config loads ds settings from defaults, YAML files and DS_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	dserrors "github.com/Aman-CERP/ds/internal/errors"
)

// AppName names the config directory and the project config file.
const AppName = "ds"

// Config represents the complete ds configuration.
type Config struct {
	Version int           `yaml:"version" json:"version"`
	Search  SearchConfig  `yaml:"search" json:"search"`
	Output  OutputConfig  `yaml:"output" json:"output"`
	History HistoryConfig `yaml:"history" json:"history"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Server  ServerConfig  `yaml:"server" json:"server"`
}

// SearchConfig holds the query helper settings.
type SearchConfig struct {
	// Catalog is the Windows Search catalog (default: SystemIndex).
	Catalog string `yaml:"catalog" json:"catalog"`

	// MaxResults caps rows per search (default: 10). 0 means no cap.
	MaxResults int `yaml:"max_results" json:"max_results"`

	// SelectColumns are the properties returned per row. The first is shown
	// as the file name, the second as the size.
	SelectColumns []string `yaml:"select_columns" json:"select_columns"`

	// Sorting is "property [ASC|DESC]", comma separated.
	Sorting string `yaml:"sorting" json:"sorting"`

	// Scope limits results to a URL scope (default: "file:").
	Scope string `yaml:"scope" json:"scope"`

	// Generator selects how SQL is produced: auto, helper or native.
	Generator string `yaml:"generator" json:"generator"`

	// Timeout bounds one search, as a Go duration (e.g. "30s").
	Timeout string `yaml:"timeout" json:"timeout"`

	// ConnectionString overrides the OLE DB connection string.
	ConnectionString string `yaml:"connection_string,omitempty" json:"connection_string,omitempty"`
}

// OutputConfig controls how results are printed.
type OutputConfig struct {
	// Format is text, json or plain.
	Format string `yaml:"format" json:"format"`

	// Color is auto, always or never.
	Color string `yaml:"color" json:"color"`

	// ShowSQL prints the generated SQL before the results (default: true).
	ShowSQL *bool `yaml:"show_sql,omitempty" json:"show_sql,omitempty"`
}

// HistoryConfig controls the local query telemetry store.
type HistoryConfig struct {
	// Enabled turns recording on (default: true).
	Enabled *bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`

	// Path is the SQLite database (default: ~/.ds/history.db).
	Path string `yaml:"path" json:"path"`

	// TopTerms is how many terms "ds stats" shows (default: 10).
	TopTerms int `yaml:"top_terms" json:"top_terms"`

	// ZeroResults is how many zero-result searches are kept in memory (default: 100).
	ZeroResults int `yaml:"zero_results" json:"zero_results"`
}

// LoggingConfig controls the rotating log file.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// ServerConfig configures "ds serve".
type ServerConfig struct {
	// Transport is the MCP transport; only stdio is supported.
	Transport string `yaml:"transport" json:"transport"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Search: SearchConfig{
			Catalog:       "SystemIndex",
			MaxResults:    10,
			SelectColumns: []string{"System.ItemPathDisplay", "System.Size"},
			Sorting:       "System.DateModified DESC",
			Scope:         "file:",
			Generator:     "auto",
			Timeout:       "30s",
		},
		Output: OutputConfig{
			Format:  "text",
			Color:   "auto",
			ShowSQL: boolPtr(true),
		},
		History: HistoryConfig{
			Enabled:     boolPtr(true),
			Path:        filepath.Join(DataDir(), "history.db"),
			TopTerms:    10,
			ZeroResults: 100,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
		Server: ServerConfig{
			Transport: "stdio",
		},
	}
}

func boolPtr(b bool) *bool {
	return &b
}

// HistoryEnabled reports whether search telemetry is recorded.
func (c *Config) HistoryEnabled() bool {
	return c.History.Enabled == nil || *c.History.Enabled
}

// ShowSQL reports whether the generated SQL is printed.
func (c *Config) ShowSQL() bool {
	return c.Output.ShowSQL == nil || *c.Output.ShowSQL
}

// SearchTimeout returns the parsed search timeout; 0 means none.
func (c *Config) SearchTimeout() time.Duration {
	d, err := time.ParseDuration(c.Search.Timeout)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// DataDir returns the ds data directory (~/.ds).
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".ds")
	}
	return filepath.Join(home, ".ds")
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/ds/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/ds/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName, "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", AppName, "config.yaml")
	}
	return filepath.Join(home, ".config", AppName, "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig loads the user/global configuration file if it exists.
// Returns nil config and nil error if the file doesn't exist.
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()
	if !fileExists(configPath) {
		return nil, nil
	}

	cfg := &Config{}
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load loads configuration for the given working directory.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/ds/config.yaml)
//  3. Project config (.ds.yaml in dir)
//  4. Environment variables (DS_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, err
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ProjectConfigPath returns the project config file in dir, or "" if none.
func ProjectConfigPath(dir string) string {
	for _, name := range []string{".ds.yaml", ".ds.yml"} {
		p := filepath.Join(dir, name)
		if fileExists(p) {
			return p
		}
	}
	return ""
}

// loadFromFile merges .ds.yaml (or .ds.yml) from dir, if present.
func (c *Config) loadFromFile(dir string) error {
	if p := ProjectConfigPath(dir); p != "" {
		var parsed Config
		if err := parsed.loadYAML(p); err != nil {
			return err
		}
		c.mergeWith(&parsed)
	}
	return nil
}

// loadYAML parses path into c, replacing whatever c held.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return dserrors.New(dserrors.ErrCodeConfigNotFound, "failed to read config file", err).
			WithDetail("path", path)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return dserrors.ConfigError("failed to parse config file", err).
			WithDetail("path", path).
			WithSuggestion("Check the YAML syntax, or regenerate it with 'ds config init --force'")
	}
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	// Search
	if other.Search.Catalog != "" {
		c.Search.Catalog = other.Search.Catalog
	}
	if other.Search.MaxResults != 0 {
		c.Search.MaxResults = other.Search.MaxResults
	}
	if len(other.Search.SelectColumns) > 0 {
		c.Search.SelectColumns = other.Search.SelectColumns
	}
	if other.Search.Sorting != "" {
		c.Search.Sorting = other.Search.Sorting
	}
	if other.Search.Scope != "" {
		c.Search.Scope = other.Search.Scope
	}
	if other.Search.Generator != "" {
		c.Search.Generator = other.Search.Generator
	}
	if other.Search.Timeout != "" {
		c.Search.Timeout = other.Search.Timeout
	}
	if other.Search.ConnectionString != "" {
		c.Search.ConnectionString = other.Search.ConnectionString
	}

	// Output
	if other.Output.Format != "" {
		c.Output.Format = other.Output.Format
	}
	if other.Output.Color != "" {
		c.Output.Color = other.Output.Color
	}
	if other.Output.ShowSQL != nil {
		c.Output.ShowSQL = boolPtr(*other.Output.ShowSQL)
	}

	// History
	if other.History.Enabled != nil {
		c.History.Enabled = boolPtr(*other.History.Enabled)
	}
	if other.History.Path != "" {
		c.History.Path = expandHome(other.History.Path)
	}
	if other.History.TopTerms != 0 {
		c.History.TopTerms = other.History.TopTerms
	}
	if other.History.ZeroResults != 0 {
		c.History.ZeroResults = other.History.ZeroResults
	}

	// Logging
	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.MaxSizeMB != 0 {
		c.Logging.MaxSizeMB = other.Logging.MaxSizeMB
	}
	if other.Logging.MaxFiles != 0 {
		c.Logging.MaxFiles = other.Logging.MaxFiles
	}

	// Server
	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
}

// applyEnvOverrides applies DS_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DS_CATALOG"); v != "" {
		c.Search.Catalog = v
	}
	if v := os.Getenv("DS_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Search.MaxResults = n
		}
	}
	if v := os.Getenv("DS_SCOPE"); v != "" {
		c.Search.Scope = v
	}
	if v := os.Getenv("DS_GENERATOR"); v != "" {
		c.Search.Generator = v
	}
	if v := os.Getenv("DS_TIMEOUT"); v != "" {
		c.Search.Timeout = v
	}
	if v := os.Getenv("DS_CONNECTION_STRING"); v != "" {
		c.Search.ConnectionString = v
	}
	if v := os.Getenv("DS_FORMAT"); v != "" {
		c.Output.Format = v
	}
	if v := os.Getenv("DS_COLOR"); v != "" {
		c.Output.Color = v
	}
	if v := os.Getenv("NO_COLOR"); v != "" {
		c.Output.Color = "never"
	}
	if v := os.Getenv("DS_HISTORY"); v != "" {
		c.History.Enabled = boolPtr(parseBool(v))
	}
	if v := os.Getenv("DS_HISTORY_PATH"); v != "" {
		c.History.Path = expandHome(v)
	}
	if v := os.Getenv("DS_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("DS_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// expandHome replaces a leading "~/" with the home directory.
func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") || strings.HasPrefix(p, `~\`) {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[1:])
		}
	}
	return p
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Search.Catalog == "" {
		return invalid("search.catalog must not be empty")
	}
	if c.Search.MaxResults < 0 {
		return invalid(fmt.Sprintf("search.max_results must be non-negative, got %d", c.Search.MaxResults))
	}
	if len(c.Search.SelectColumns) == 0 {
		return invalid("search.select_columns must list at least one column")
	}

	validGenerators := map[string]bool{"auto": true, "helper": true, "native": true}
	if !validGenerators[strings.ToLower(c.Search.Generator)] {
		return invalid(fmt.Sprintf("search.generator must be 'auto', 'helper' or 'native', got %s", c.Search.Generator))
	}

	if c.Search.Timeout != "" {
		if d, err := time.ParseDuration(c.Search.Timeout); err != nil || d < 0 {
			return invalid(fmt.Sprintf("search.timeout must be a non-negative duration, got %s", c.Search.Timeout))
		}
	}

	validFormats := map[string]bool{"text": true, "json": true, "plain": true}
	if !validFormats[strings.ToLower(c.Output.Format)] {
		return invalid(fmt.Sprintf("output.format must be 'text', 'json' or 'plain', got %s", c.Output.Format))
	}

	validColors := map[string]bool{"auto": true, "always": true, "never": true}
	if !validColors[strings.ToLower(c.Output.Color)] {
		return invalid(fmt.Sprintf("output.color must be 'auto', 'always' or 'never', got %s", c.Output.Color))
	}

	if c.History.TopTerms < 0 || c.History.ZeroResults < 0 {
		return invalid("history.top_terms and history.zero_results must be non-negative")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return invalid(fmt.Sprintf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level))
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxFiles < 0 {
		return invalid("logging.max_size_mb and logging.max_files must be non-negative")
	}

	if strings.ToLower(c.Server.Transport) != "stdio" {
		return invalid(fmt.Sprintf("server.transport must be 'stdio', got %s", c.Server.Transport))
	}

	return nil
}

func invalid(msg string) error {
	return dserrors.ConfigError(msg, nil)
}

// WriteYAML writes the configuration to a YAML file, creating its directory.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadUserConfig loads the user configuration file.
// Returns nil config and nil error if the file doesn't exist.
func LoadUserConfig() (*Config, error) {
	return loadUserConfig()
}
