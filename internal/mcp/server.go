// Package mcp exposes the triage pipeline as an MCP tool so agent
// clients can run the same analysis the HTTP API serves.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/loglens/loglens/internal/api"
	"github.com/loglens/loglens/internal/logging"
	"github.com/loglens/loglens/internal/triage"
)

// TriageService runs the analysis pipeline for one support issue.
type TriageService interface {
	Analyze(ctx context.Context, req triage.Request) (*triage.Result, error)
}

// Server wraps an mcp-go server with the LogLens tool set.
type Server struct {
	mcpServer *server.MCPServer
	service   TriageService
	logger    *logging.Logger
}

// New creates the LogLens MCP server and registers its tools.
func New(service TriageService, version string) *Server {
	mcpServer := server.NewMCPServer(
		"LogLens MCP Server",
		version,
		server.WithToolCapabilities(false),
		server.WithLogging(),
	)

	s := &Server{
		mcpServer: mcpServer,
		service:   service,
		logger:    logging.GetLogger("mcp"),
	}

	s.registerTools()

	return s
}

func (s *Server) registerTools() {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"description": map[string]interface{}{
				"type":        "string",
				"description": "The customer's description of the problem",
			},
			"timestamp": map[string]interface{}{
				"type":        "string",
				"description": "When the problem occurred, ISO 8601 (e.g., 2025-01-19T14:30:00Z)",
			},
			"customer_id": map[string]interface{}{
				"type":        "string",
				"description": "The customer identifier to search error events for",
			},
		},
		"required": []string{"description", "timestamp", "customer_id"},
	}

	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		// This should never happen with well-formed schemas
		panic(fmt.Sprintf("Failed to marshal analyze_support_issue schema: %v", err))
	}

	tool := mcp.NewToolWithRawSchema(
		"analyze_support_issue",
		"Analyze a customer support issue by correlating its description with error events around the given time and suggesting probable causes and a response",
		schemaJSON,
	)

	s.mcpServer.AddTool(tool, s.handleAnalyzeSupportIssue)
}

// analyzeArgs is the decoded tool argument set.
type analyzeArgs struct {
	Description string `json:"description"`
	Timestamp   string `json:"timestamp"`
	CustomerID  string `json:"customer_id"`
}

func (s *Server) handleAnalyzeSupportIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(request.Params.Arguments)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
	}

	var args analyzeArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
	}

	var missing []string
	if strings.TrimSpace(args.Description) == "" {
		missing = append(missing, "description")
	}
	if strings.TrimSpace(args.Timestamp) == "" {
		missing = append(missing, "timestamp")
	}
	if strings.TrimSpace(args.CustomerID) == "" {
		missing = append(missing, "customer_id")
	}
	if len(missing) > 0 {
		return mcp.NewToolResultError(fmt.Sprintf("Missing required arguments: %s", strings.Join(missing, ", "))), nil
	}

	result, err := s.service.Analyze(ctx, triage.Request{
		Description: strings.TrimSpace(args.Description),
		Timestamp:   strings.TrimSpace(args.Timestamp),
		CustomerID:  strings.TrimSpace(args.CustomerID),
	})
	if err != nil {
		// Same safe message the HTTP API would send; the raw error
		// stays in the log.
		s.logger.Error("analyze_support_issue failed: %v", err)
		return mcp.NewToolResultError(api.ClassifyPipelineError(err).Message), nil
	}

	resultJSON, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format result: %v", err)), nil
	}

	return mcp.NewToolResultText(string(resultJSON)), nil
}

// GetMCPServer returns the underlying mcp-go server for transport setup
func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}
