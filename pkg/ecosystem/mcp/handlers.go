package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/planrun/planrun/pkg/executor"
	"github.com/planrun/planrun/pkg/oracle"
	"github.com/planrun/planrun/pkg/run"
)

type handlers struct {
	deps Deps
}

// HandlePlan implements the planrun/plan MCP tool. The plan is
// returned as-is: Define choice groups are not auto-resolved, so the
// agent client can present or resolve them itself.
func (h *handlers) HandlePlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	instructions, _ := args["instructions"].(string)
	if instructions == "" {
		return errorResult("instructions argument is required"), nil
	}

	kind := oracle.KindExecute
	if k, ok := args["kind"].(string); ok && k != "" {
		kind = oracle.ToolKind(k)
		if !kind.Known() {
			return errorResult(fmt.Sprintf("unknown tool kind %q", k)), nil
		}
	}

	resp, err := h.deps.Planner.Plan(ctx, instructions, kind)
	if err != nil {
		return errorResult(err.Error()), nil
	}

	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("marshal plan: %s", err)), nil
	}
	return textResult(string(data)), nil
}

// HandleExec implements the planrun/exec MCP tool.
func (h *handlers) HandleExec(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	rawCommands, _ := args["commands"].(string)
	if rawCommands == "" {
		return errorResult("commands argument is required"), nil
	}

	var commands []executor.ExecutionCommand
	if err := json.Unmarshal([]byte(rawCommands), &commands); err != nil {
		return errorResult(fmt.Sprintf("parse commands: %s", err)), nil
	}
	summary, _ := args["summary"].(string)

	eng := run.New(run.Options{
		Summary:  summary,
		Commands: commands,
		Context:  h.deps.Context,
		Executor: h.deps.Executor,
	})
	final := eng.Run(ctx)

	response := map[string]any{
		"tasks": final.Tasks,
	}
	if final.CompletionMessage != "" {
		response["completionMessage"] = final.CompletionMessage
	}
	if final.Error != "" {
		response["error"] = final.Error
	}

	data, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("marshal result: %s", err)), nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(data))},
		IsError: final.Error != "",
	}, nil
}

// HandleSchema implements the planrun/schema MCP tool.
func (h *handlers) HandleSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := oracle.GenerateResponseSchema()
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return textResult(string(data)), nil
}

func textResult(s string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(s)},
	}
}

func errorResult(s string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(s)},
		IsError: true,
	}
}
