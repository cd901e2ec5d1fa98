package mcp

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"gopkg.in/yaml.v3"
)

// Resource URIs.
const (
	ConfigURI  = "ds://config"
	HistoryURI = "ds://history"
)

func (s *Server) registerConfigResource() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "config",
			URI:         ConfigURI,
			Description: "Effective ds configuration (defaults, config files and environment merged)",
			MIMEType:    "application/yaml",
		},
		s.handleConfigResource,
	)
}

func (s *Server) registerHistoryResource() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "history",
			URI:         HistoryURI,
			Description: "Query history since the server started: counts, top terms, latency histogram",
			MIMEType:    "application/json",
		},
		s.handleHistoryResource,
	)
}

func (s *Server) handleConfigResource(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	text, err := s.configText()
	if err != nil {
		return nil, MapError(err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{URI: ConfigURI, MIMEType: "application/yaml", Text: text},
		},
	}, nil
}

func (s *Server) handleHistoryResource(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	text, err := s.historyText()
	if err != nil {
		return nil, MapError(err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{URI: HistoryURI, MIMEType: "application/json", Text: text},
		},
	}, nil
}

func (s *Server) configText() (string, error) {
	data, err := yaml.Marshal(s.config)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *Server) historyText() (string, error) {
	s.mu.RLock()
	m := s.metrics
	s.mu.RUnlock()

	if m == nil {
		return "{}", nil
	}
	data, err := json.MarshalIndent(m.Snapshot(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
