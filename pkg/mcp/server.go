// Package mcp exposes the answer engine as MCP tools for AI agents.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewServer creates an MCP server with the anna tools registered.
func NewServer(version string, h *Handlers) *server.MCPServer {
	s := server.NewMCPServer(
		"anna",
		version,
		server.WithToolCapabilities(true),
	)

	s.AddTool(
		mcp.NewTool("anna/ask",
			mcp.WithDescription("Answer a question about this Linux system from read-only probe evidence, audited by a second model"),
			mcp.WithString("question", mcp.Required(), mcp.Description("The question to answer")),
		),
		h.HandleAsk,
	)

	s.AddTool(
		mcp.NewTool("anna/probes",
			mcp.WithDescription("List the read-only probes the engine may run"),
		),
		h.HandleProbes,
	)

	s.AddTool(
		mcp.NewTool("anna/schema",
			mcp.WithDescription("Export a JSON Schema (junior, senior or catalog)"),
			mcp.WithString("type", mcp.Required(), mcp.Description("Schema type: 'junior', 'senior' or 'catalog'")),
		),
		HandleSchema,
	)

	return s
}
