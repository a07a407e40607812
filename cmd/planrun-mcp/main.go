// Package main provides the planrun-mcp binary — MCP server for AI agents.
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/planrun/planrun/pkg/config"
	pmcp "github.com/planrun/planrun/pkg/ecosystem/mcp"
	"github.com/planrun/planrun/pkg/executor"
	"github.com/planrun/planrun/pkg/oracle"
)

var version = "dev"

func main() {
	cfg, err := config.LoadDefault()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	s := pmcp.NewServer(version, pmcp.Deps{
		Planner:  oracle.NewHTTPPlanner(cfg.Oracle.Endpoint, cfg.Oracle.Model, cfg.APIKey()),
		Executor: &executor.ShellExecutor{Shell: cfg.Shell},
		Context:  cfg.PlaceholderContext(),
	})
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
