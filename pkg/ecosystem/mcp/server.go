// Package mcp exposes planrun to AI agent clients over the Model
// Context Protocol: planning, command execution and schema export as
// MCP tools.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/planrun/planrun/pkg/executor"
	"github.com/planrun/planrun/pkg/oracle"
	"github.com/planrun/planrun/pkg/placeholder"
)

// Deps are the collaborators the MCP tools run against.
type Deps struct {
	Planner  oracle.Planner
	Executor executor.Executor
	Context  placeholder.Context
}

// NewServer creates an MCP server with the planrun tools registered.
func NewServer(version string, deps Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"planrun",
		version,
		server.WithToolCapabilities(true),
	)

	h := &handlers{deps: deps}

	s.AddTool(
		mcp.NewTool("planrun/plan",
			mcp.WithDescription("Turn a natural-language request into an ordered plan of shell operations (without executing)"),
			mcp.WithString("instructions", mcp.Required(), mcp.Description("The natural-language request to plan")),
			mcp.WithString("kind", mcp.Description("Tool kind: execute, answer, introspect, report, schedule or config (default execute)")),
		),
		h.HandlePlan,
	)

	s.AddTool(
		mcp.NewTool("planrun/exec",
			mcp.WithDescription("Run an ordered list of shell commands strictly sequentially with critical-failure semantics"),
			mcp.WithString("commands", mcp.Required(), mcp.Description("JSON array of {description, command, workdir?, timeoutMs?, critical?} objects")),
			mcp.WithString("summary", mcp.Description("Summary used in the completion message")),
		),
		h.HandleExec,
	)

	s.AddTool(
		mcp.NewTool("planrun/schema",
			mcp.WithDescription("Export the JSON Schema of the planning oracle's response contract"),
		),
		h.HandleSchema,
	)

	return s
}
