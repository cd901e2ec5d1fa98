package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/ds/internal/config"
	"github.com/Aman-CERP/ds/internal/search"
	"github.com/Aman-CERP/ds/internal/telemetry"
	"github.com/Aman-CERP/ds/pkg/version"
)

// Searcher is the part of the search engine the server needs.
type Searcher interface {
	Search(ctx context.Context, opts search.Options) (*search.Response, error)
	GenerateSQL(ctx context.Context, opts search.Options) (*search.Response, error)
}

// Server is the MCP server for ds. It lets AI clients query the Windows
// Search index through the same engine as the CLI.
type Server struct {
	mcp    *mcp.Server
	engine Searcher
	config *config.Config
	logger *slog.Logger

	// Query telemetry (optional, set via SetMetrics)
	metrics *telemetry.QueryMetrics

	mu sync.RWMutex
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var tools = []ToolInfo{
	{
		Name: ToolFileSearch,
		Description: "Find files on this Windows machine through the Windows Search index. " +
			"Combine a path pattern (*.docx, report*) with an optional free text query " +
			"(budget ext:xlsx -draft). Returns paths and sizes, newest first.",
	},
	{
		Name: ToolGenerateSQL,
		Description: "Show the Windows Search SQL that file_search would run, without running it. " +
			"Works on any platform.",
	},
}

// NewServer creates a new MCP server.
func NewServer(engine Searcher, cfg *config.Config) (*Server, error) {
	if engine == nil {
		return nil, errors.New("search engine is required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}

	s := &Server{
		engine: engine,
		config: cfg,
		logger: slog.Default(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "ds",
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()
	s.registerConfigResource()

	return s, nil
}

// SetMetrics sets the query metrics collector and registers the
// ds://history resource.
func (s *Server) SetMetrics(m *telemetry.QueryMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m

	if m != nil {
		s.registerHistoryResource()
	}
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return "ds", version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	out := make([]ToolInfo, len(tools))
	copy(out, tools)
	return out
}

// CallTool invokes a tool by name with loosely typed arguments and returns
// markdown. It backs tests and in-process callers; MCP clients go through
// the typed handlers.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	pattern, _ := args["pattern"].(string)
	query, _ := args["query"].(string)
	limit := 0
	if l, ok := args["limit"].(float64); ok {
		limit = int(l)
	}

	switch name {
	case ToolFileSearch:
		resp, err := s.fileSearch(ctx, pattern, query, limit)
		if err != nil {
			return "", err
		}
		return FormatSearchResults(pattern, query, resp), nil
	case ToolGenerateSQL:
		resp, err := s.generateSQL(ctx, pattern, query, limit)
		if err != nil {
			return "", err
		}
		return FormatSQL(resp), nil
	default:
		return "", NewMethodNotFoundError(name)
	}
}

func (s *Server) registerTools() {
	for _, t := range tools {
		switch t.Name {
		case ToolFileSearch:
			mcp.AddTool(s.mcp, &mcp.Tool{Name: t.Name, Description: t.Description}, s.mcpFileSearchHandler)
		case ToolGenerateSQL:
			mcp.AddTool(s.mcp, &mcp.Tool{Name: t.Name, Description: t.Description}, s.mcpGenerateSQLHandler)
		}
		s.logger.Debug("tool_registered", slog.String("name", t.Name))
	}
}

// mcpFileSearchHandler is the MCP SDK handler for the file_search tool.
func (s *Server) mcpFileSearchHandler(ctx context.Context, _ *mcp.CallToolRequest, input FileSearchInput) (
	*mcp.CallToolResult,
	FileSearchOutput,
	error,
) {
	resp, err := s.fileSearch(ctx, input.Pattern, input.Query, input.Limit)
	if err != nil {
		return nil, FileSearchOutput{}, err
	}

	return nil, FileSearchOutput{
		SQL:     resp.SQL,
		Count:   len(resp.Results),
		Results: toFileResults(resp.Results),
	}, nil
}

// mcpGenerateSQLHandler is the MCP SDK handler for the generate_sql tool.
func (s *Server) mcpGenerateSQLHandler(ctx context.Context, _ *mcp.CallToolRequest, input GenerateSQLInput) (
	*mcp.CallToolResult,
	GenerateSQLOutput,
	error,
) {
	resp, err := s.generateSQL(ctx, input.Pattern, input.Query, input.Limit)
	if err != nil {
		return nil, GenerateSQLOutput{}, err
	}

	return nil, GenerateSQLOutput{
		SQL:       resp.SQL,
		Generator: resp.Generator,
		Kind:      resp.Restriction.Kind.String(),
	}, nil
}

func (s *Server) fileSearch(ctx context.Context, pattern, query string, limit int) (*search.Response, error) {
	opts, err := s.buildOptions(pattern, query, limit)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	requestID := generateRequestID()
	s.logger.Info("tool_called",
		slog.String("request_id", requestID),
		slog.String("tool", ToolFileSearch),
		slog.String("pattern", opts.Pattern),
		slog.String("query", opts.UserQuery),
		slog.Int("limit", opts.MaxResults))

	resp, err := s.engine.Search(ctx, opts)
	if err != nil {
		s.logger.Error("tool_failed",
			slog.String("request_id", requestID),
			slog.String("tool", ToolFileSearch),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	s.logger.Info("tool_completed",
		slog.String("request_id", requestID),
		slog.String("tool", ToolFileSearch),
		slog.Duration("duration", time.Since(start)),
		slog.Int("result_count", len(resp.Results)))
	return resp, nil
}

func (s *Server) generateSQL(ctx context.Context, pattern, query string, limit int) (*search.Response, error) {
	opts, err := s.buildOptions(pattern, query, limit)
	if err != nil {
		return nil, err
	}

	resp, err := s.engine.GenerateSQL(ctx, opts)
	if err != nil {
		s.logger.Warn("tool_failed",
			slog.String("tool", ToolGenerateSQL),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	return resp, nil
}

// buildOptions validates tool arguments. An empty pattern means "*" and a
// missing limit means search.max_results.
func (s *Server) buildOptions(pattern, query string, limit int) (search.Options, error) {
	if limit < 0 {
		return search.Options{}, NewInvalidParamsError("limit must not be negative")
	}
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		pattern = "*"
	}
	return search.Options{
		Pattern:    pattern,
		UserQuery:  strings.TrimSpace(query),
		MaxResults: clampLimit(limit, s.config.Search.MaxResults),
	}, nil
}

// Serve starts the server with the specified transport.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("serve_started", slog.String("transport", transport))

	switch transport {
	case "", "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("serve_stopped", slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("serve_stopped")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
