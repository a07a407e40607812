package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/planrun/planrun/pkg/run"
)

var planFormat string

var planCmd = &cobra.Command{
	Use:   "plan [instructions...]",
	Short: "Ask the oracle for a plan and print it without executing",
	Long: `Request a plan for the given instructions and print it without
running anything. Choice points are resolved interactively first, so
the printed plan is the concrete command list the root command would
execute.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVar(&planFormat, "format", "text", "Output format: text, json or yaml")
}

func runPlan(cmd *cobra.Command, args []string) error {
	setupLogger(flagVerbose)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	kind, err := toolKind(cfg)
	if err != nil {
		return err
	}

	resp, err := newPlanner(cfg).Plan(context.Background(), strings.Join(args, " "), kind)
	if err != nil {
		return fmt.Errorf("plan: %w", err)
	}

	if resp.Message != "" {
		fmt.Println(resp.Message)
	}
	if resp.Answer != "" {
		fmt.Printf("\n%s\n", resp.Answer)
	}
	for _, c := range resp.Capabilities {
		fmt.Printf("  %-24s %s (%s)\n", c.Name, c.Description, c.Origin)
	}

	commands := resp.Commands
	if len(commands) == 0 && len(resp.Tasks) > 0 {
		tasks, err := refineHeadless(resp.Tasks)
		if err != nil {
			return err
		}
		commands = run.CommandsFromTasks(tasks)
	}
	if len(commands) == 0 {
		return nil
	}

	switch planFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(commands)
	case "yaml":
		return yaml.NewEncoder(os.Stdout).Encode(commands)
	case "text":
		for i, c := range commands {
			if c.Description != "" && c.Description != c.Command {
				fmt.Printf("  %d. %s\n     $ %s\n", i+1, c.Description, c.Command)
			} else {
				fmt.Printf("  %d. $ %s\n", i+1, c.Command)
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q (valid: text, json, yaml)", planFormat)
	}
}
