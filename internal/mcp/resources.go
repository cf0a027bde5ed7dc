// ABOUTME: MCP resource implementations for healthexport.
// ABOUTME: Provides healthexport://sessions and healthexport://samples/summary.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	sessionsURI = "healthexport://sessions"
	summaryURI  = "healthexport://samples/summary"
)

func (s *Server) registerResources() {
	// Every live or persisted export session with progress counts
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         sessionsURI,
		Name:        "Export Sessions",
		Description: "Live and saved bulk export sessions with batch progress",
		MIMEType:    "application/json",
	}, s.handleSessionsResource)

	s.mcpServer.AddResource(&mcp.Resource{
		URI:         summaryURI,
		Name:        "Sample Counts",
		Description: "Number of stored samples per sample type",
		MIMEType:    "application/json",
	}, s.handleSummaryResource)
}

// Resource handlers

func (s *Server) handleSessionsResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	infos, err := s.exporter.Sessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	result := map[string]interface{}{
		"sessions": infos,
		"count":    len(infos),
	}
	return jsonResource(sessionsURI, result)
}

func (s *Server) handleSummaryResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	counts, err := s.repo.CountSamples(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count samples: %w", err)
	}

	byType := make(map[string]int, len(counts))
	total := 0
	for st, n := range counts {
		byType[string(st)] = n
		total += n
	}

	result := map[string]interface{}{
		"generated_at": time.Now().Format(time.RFC3339),
		"samples":      byType,
		"total":        total,
	}
	return jsonResource(summaryURI, result)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
