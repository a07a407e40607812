package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/planrun/planrun/pkg/config"
	"github.com/planrun/planrun/pkg/executor"
	"github.com/planrun/planrun/pkg/oracle"
	"github.com/planrun/planrun/pkg/refine"
	"github.com/planrun/planrun/pkg/run"
	"github.com/planrun/planrun/pkg/task"
	"github.com/planrun/planrun/pkg/tui"
)

var (
	flagConfig   string
	flagTool     string
	flagVerbose  bool
	flagDryRun   bool
	flagHeadless bool
)

func loadConfig() (*config.Config, error) {
	if flagConfig != "" {
		return config.Load(flagConfig)
	}
	return config.LoadDefault()
}

func toolKind(cfg *config.Config) (oracle.ToolKind, error) {
	name := cfg.Tool
	if flagTool != "" {
		name = flagTool
	}
	kind := oracle.ToolKind(name)
	if !kind.Known() {
		return "", fmt.Errorf("unknown tool kind %q (valid: execute, answer, introspect, report, schedule, config)", name)
	}
	return kind, nil
}

func newPlanner(cfg *config.Config) *oracle.HTTPPlanner {
	return oracle.NewHTTPPlanner(
		cfg.Oracle.Endpoint,
		cfg.Oracle.Model,
		cfg.APIKey(),
		oracle.WithLogger(slog.Default()),
	)
}

// readInstructions prompts interactively when no instructions were
// given on the command line.
func readInstructions(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}

	rl, err := readline.New("planrun> ")
	if err != nil {
		return "", fmt.Errorf("open prompt: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF or readline.ErrInterrupt
			return "", fmt.Errorf("no instructions given")
		}
		line = strings.TrimSpace(line)
		if line != "" {
			return line, nil
		}
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	setupLogger(flagVerbose)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	kind, err := toolKind(cfg)
	if err != nil {
		return err
	}
	instructions, err := readInstructions(args)
	if err != nil {
		return err
	}

	var exec executor.Executor
	if flagDryRun {
		exec = &executor.MockExecutor{Delay: 50 * time.Millisecond}
	}

	if flagHeadless {
		return runHeadless(cfg, kind, instructions, exec)
	}

	app := tui.NewApp(tui.Options{
		Planner:      newPlanner(cfg),
		Kind:         kind,
		Instructions: instructions,
		Context:      cfg.PlaceholderContext(),
		Executor:     exec,
		Shell:        cfg.Shell,
	})
	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}

// runHeadless drives the plan → refine → execute flow on plain
// stdin/stdout, for scripting and terminals without TUI support.
func runHeadless(cfg *config.Config, kind oracle.ToolKind, instructions string, exec executor.Executor) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	planner := newPlanner(cfg)
	resp, err := planner.Plan(ctx, instructions, kind)
	if err != nil {
		return fmt.Errorf("plan: %w", err)
	}
	if resp.Message != "" {
		fmt.Println(resp.Message)
	}

	commands := resp.Commands
	if len(commands) == 0 {
		tasks, err := refineHeadless(resp.Tasks)
		if err != nil {
			return err
		}
		commands = run.CommandsFromTasks(tasks)
	}

	eng := run.New(run.Options{
		Message:  resp.Message,
		Summary:  resp.Summary,
		Commands: commands,
		Context:  cfg.PlaceholderContext(),
		Executor: exec,
		Shell:    cfg.Shell,
	})

	done := make(chan run.State, 1)
	go func() { done <- eng.Run(ctx) }()

	final := watchRun(eng, done)
	if final.Error != "" {
		return fmt.Errorf("%s", final.Error)
	}
	if final.CompletionMessage != "" {
		fmt.Println(final.CompletionMessage)
	}
	return nil
}

// refineHeadless resolves each choice group via a numbered prompt.
func refineHeadless(tasks []task.Task) ([]task.Task, error) {
	eng := refine.New(tasks, refine.Callbacks{})
	if eng.Phase() == refine.PhaseDone {
		return eng.Snapshot().Tasks, nil
	}

	rl, err := readline.New("> ")
	if err != nil {
		return nil, fmt.Errorf("open prompt: %w", err)
	}
	defer rl.Close()

	for eng.Phase() != refine.PhaseDone {
		snap := eng.Snapshot()
		fmt.Printf("\n%s (choice %d of %d)\n", snap.Prompt, snap.CurrentGroupIndex+1, snap.GroupCount)
		for i, opt := range snap.Options {
			marker := " "
			if snap.HighlightedIndex != nil && *snap.HighlightedIndex == i {
				marker = "*"
			}
			if opt.Command != "" {
				fmt.Printf("  %s %d. %s — %s\n", marker, i+1, opt.Name, opt.Command)
			} else {
				fmt.Printf("  %s %d. %s\n", marker, i+1, opt.Name)
			}
		}

		line, err := rl.Readline()
		if err != nil {
			eng.Abort()
			return nil, fmt.Errorf("task selection aborted")
		}
		line = strings.TrimSpace(line)
		if line == "" && snap.HighlightedIndex != nil {
			eng.Confirm() // accept the default
			continue
		}
		n, err := strconv.Atoi(line)
		if err != nil || n < 1 || n > len(snap.Options) {
			fmt.Printf("enter a number between 1 and %d\n", len(snap.Options))
			continue
		}
		moveHighlightTo(eng, n-1)
		eng.Confirm()
	}
	return eng.Snapshot().Tasks, nil
}

// moveHighlightTo walks the cyclic highlight forward until it rests on
// the requested option index.
func moveHighlightTo(eng *refine.Engine, target int) {
	for i := 0; i < len(eng.Snapshot().Options)+1; i++ {
		snap := eng.Snapshot()
		if snap.HighlightedIndex != nil && *snap.HighlightedIndex == target {
			return
		}
		eng.Navigate(1)
	}
}

// watchRun prints task transitions as they happen, polling snapshots
// until the engine goroutine reports the final state.
func watchRun(eng *run.Engine, done <-chan run.State) run.State {
	printed := make(map[int]executor.Status)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	report := func(s run.State) {
		for i, t := range s.Tasks {
			if printed[i] == t.Status {
				continue
			}
			switch t.Status {
			case executor.StatusRunning:
				fmt.Printf("▸ %s\n", t.Label)
			case executor.StatusSuccess:
				fmt.Printf("✓ %s (%s)\n", t.Label, t.Elapsed.Round(time.Millisecond))
			case executor.StatusFailed:
				fmt.Printf("✗ %s", t.Label)
				if t.Err != "" {
					fmt.Printf(" — %s", t.Err)
				}
				fmt.Println()
				if t.Stderr != "" {
					fmt.Print(indent(t.Stderr))
				}
			case executor.StatusAborted:
				fmt.Printf("⊘ %s\n", t.Label)
			}
			printed[i] = t.Status
		}
	}

	for {
		select {
		case final := <-done:
			report(final)
			return final
		case <-ticker.C:
			report(eng.Snapshot())
		}
	}
}

func indent(s string) string {
	var b strings.Builder
	for _, line := range strings.Split(strings.TrimRight(s, "\n"), "\n") {
		b.WriteString("    ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}
