// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Tempura tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/frytempura/tempura/internal/pipeline"
)

// Server wraps the MCP server with Tempura tools.
type Server struct {
	mcp *server.MCPServer
	p   *pipeline.Pipeline
}

// New creates a new MCP server with all Tempura tools registered.
func New(p *pipeline.Pipeline) *Server {
	s := &Server{p: p}

	s.mcp = server.NewMCPServer(
		"Tempura",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_build_status",
		mcp.WithDescription("Snapshot of the most recent build-and-deploy run: state, timing, scripts, artifact, deploy reports."),
	), s.getBuildStatus)

	s.mcp.AddTool(mcp.NewTool("trigger_build",
		mcp.WithDescription("Run a full rebuild now: scan sources, compile the aggregate artifact, and execute the deploy map."),
	), s.triggerBuild)

	s.mcp.AddTool(mcp.NewTool("list_scripts",
		mcp.WithDescription("List every script in the registry with its description and exported symbols."),
	), s.listScripts)

	s.mcp.AddTool(mcp.NewTool("read_script",
		mcp.WithDescription("Read the TypeScript source of a script by registry name."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Script name: the source file stem (e.g. daily-note)")),
	), s.readScript)

	s.mcp.AddTool(mcp.NewTool("search_scripts",
		mcp.WithDescription("Search scripts by name, description, or exported symbol."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchScripts)

	s.mcp.AddTool(mcp.NewTool("get_script_contract",
		mcp.WithDescription("Returns the canonical Tempura script format contract. "+
			"Call this before writing scripts to ensure they compile and land in the registry."),
	), s.getScriptContract)

	// Resource: script format contract.
	s.mcp.AddResource(
		mcp.NewResource("tempura://script-format", "Script Format Contract",
			mcp.WithResourceDescription("Canonical TypeScript script format that all user scripts must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readScriptFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) getBuildStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, _ := json.MarshalIndent(s.p.Status(), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) triggerBuild(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.p.Rebuild(ctx, "mcp"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(s.p.Status(), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listScripts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, _ := json.MarshalIndent(s.p.Catalog().Snapshot(), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readScript(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	_, data, err := s.p.ReadScript(name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", name)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) searchScripts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(s.p.Catalog().Search(query), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getScriptContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ScriptFormatContract), nil
}

func (s *Server) readScriptFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "tempura://script-format",
			MIMEType: "text/markdown",
			Text:     ScriptFormatContract,
		},
	}, nil
}
