package run

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/expr-lang/expr"

	"github.com/planrun/planrun/pkg/executor"
	"github.com/planrun/planrun/pkg/placeholder"
)

// Callbacks cross into the caller (typically the rendering layer).
// All callbacks are invoked from the goroutine running Run.
type Callbacks struct {
	// OnCompleted receives the final state snapshot of a run that
	// finished without an unresolved critical failure.
	OnCompleted func(state State)

	// OnError receives the batch-level error message: a pre-flight
	// placeholder failure or a critical task failure.
	OnError func(message string)

	// OnAborted is notified with the operation name "execution" when
	// the run is cancelled.
	OnAborted func(operation string)
}

// Options configures one engine run.
type Options struct {
	// Message is the oracle's message text, surfaced verbatim —
	// notably when the command list is empty.
	Message string

	// Summary seeds the completion message.
	Summary string

	// Commands is the flat resolved command list.
	Commands []executor.ExecutionCommand

	// Context is the read-only placeholder context.
	Context placeholder.Context

	// Executor runs individual commands. Nil selects a ShellExecutor
	// wired to the engine's live output buffers.
	Executor executor.Executor

	// Shell overrides the default shell of the built-in executor.
	// Ignored when Executor is set.
	Shell string

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	Callbacks Callbacks
}

// Engine consumes a flat command list and runs it one task at a time.
// Exactly one task is Running at any moment; task i+1 only starts
// after task i reaches a terminal status. State is owned exclusively
// by the engine; a mutex guards it because callers may poll Snapshot
// from another goroutine while Run is in flight.
type Engine struct {
	mu      sync.Mutex
	state   State
	started time.Time // start of the currently Running task
	current int       // index of the currently Running task, -1 if none

	opts   Options
	exec   executor.Executor
	logger *slog.Logger
}

// New prepares an engine. The run begins when Run is called.
func New(opts Options) *Engine {
	e := &Engine{
		opts:    opts,
		current: -1,
		logger:  opts.Logger,
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.exec = opts.Executor
	if e.exec == nil {
		e.exec = &executor.ShellExecutor{Shell: opts.Shell, Sink: e.AppendOutput}
	}
	e.state = State{Message: opts.Message, Summary: opts.Summary}
	return e
}

// Snapshot returns an immutable copy of the current state. The elapsed
// time of a Running task is recomputed from its recorded start time.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.state.clone()
	if e.current >= 0 && e.current < len(s.Tasks) && s.Tasks[e.current].Status == executor.StatusRunning {
		s.Tasks[e.current].Elapsed = time.Since(e.started)
	}
	return s
}

// AppendOutput accumulates a live output chunk into the per-task
// buffer that the caller may poll each tick. It matches
// executor.OutputFunc so it can serve as a ShellExecutor sink.
func (e *Engine) AppendOutput(index int, stream executor.Stream, chunk string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if index < 0 || index >= len(e.state.Tasks) {
		return
	}
	switch stream {
	case executor.StreamStderr:
		e.state.Tasks[index].Stderr += chunk
	default:
		e.state.Tasks[index].Stdout += chunk
	}
}

// Run executes the batch to a terminal state and returns the final
// snapshot. Cancellation is cooperative: the engine stops scheduling
// new work the instant ctx's cancellation is observed.
func (e *Engine) Run(ctx context.Context) State {
	// Zero commands: complete immediately using the provided message,
	// with an empty task list and no summary.
	if len(e.opts.Commands) == 0 {
		e.logger.Debug("no commands to execute", "message", e.opts.Message)
		snap := e.Snapshot()
		if e.opts.Callbacks.OnCompleted != nil {
			e.opts.Callbacks.OnCompleted(snap)
		}
		return snap
	}

	cmds, err := e.preflight()
	if err != nil {
		return e.failBatch(err.Error())
	}

	e.mu.Lock()
	for _, c := range cmds {
		label := c.Description
		if label == "" {
			label = c.Command
		}
		e.state.Tasks = append(e.state.Tasks, TaskInfo{
			Label:   label,
			Command: c.Command,
			Status:  executor.StatusPending,
		})
	}
	e.mu.Unlock()

	var threadedWorkdir string
	for i := range cmds {
		if ctx.Err() != nil {
			return e.cancelFrom(i)
		}

		cmd := cmds[i]
		// A completed command's working directory is merged into the
		// next command unless it specifies its own.
		if cmd.Workdir == "" && threadedWorkdir != "" {
			cmd.Workdir = threadedWorkdir
		}

		e.mu.Lock()
		e.state.Tasks[i].Status = executor.StatusRunning
		e.started = time.Now()
		e.current = i
		e.mu.Unlock()

		e.logger.Debug("dispatching task", "index", i, "command", cmd.Command)
		out, execErr := e.exec.Execute(ctx, cmd, nil, i)

		elapsed := time.Since(e.started)
		if ctx.Err() != nil {
			e.finishTask(i, executor.StatusAborted, out, "", elapsed)
			return e.cancelFrom(i + 1)
		}

		if execErr != nil {
			e.finishTask(i, executor.StatusFailed, out, execErr.Error(), elapsed)
			if cmd.IsCritical() {
				return e.failRun(i)
			}
			continue
		}

		if out.Workdir != "" {
			threadedWorkdir = out.Workdir
		}

		if out.Result == executor.ResultError {
			e.finishTask(i, executor.StatusFailed, out, out.Err, elapsed)
			if cmd.IsCritical() {
				return e.failRun(i)
			}
			// Non-critical failure: visible per task, does not set the
			// run-level error — even when it is the last task to run.
			continue
		}

		e.finishTask(i, executor.StatusSuccess, out, "", elapsed)
	}

	return e.complete()
}

// preflight resolves and validates placeholders for every command
// before the first command starts, and drops commands whose `when`
// condition evaluates false. A single unresolvable reference aborts
// the whole run with zero side effects.
func (e *Engine) preflight() ([]executor.ExecutionCommand, error) {
	env := map[string]any(e.opts.Context)
	var out []executor.ExecutionCommand
	for _, cmd := range e.opts.Commands {
		if cmd.When != "" {
			program, err := expr.Compile(cmd.When, expr.Env(env), expr.AsBool())
			if err != nil {
				return nil, fmt.Errorf("compile condition %q: %w", cmd.When, err)
			}
			keep, err := expr.Run(program, env)
			if err != nil {
				return nil, fmt.Errorf("evaluate condition %q: %w", cmd.When, err)
			}
			if keep != true {
				e.logger.Debug("condition false, dropping command", "command", cmd.Command)
				continue
			}
		}

		resolved := placeholder.Resolve(cmd.Command, e.opts.Context)
		if err := placeholder.AssertFullyResolved(resolved, cmd.Command); err != nil {
			return nil, err
		}
		cmd.Command = resolved
		out = append(out, cmd)
	}
	return out, nil
}

// finishTask records a terminal status plus the command output.
func (e *Engine) finishTask(i int, status executor.Status, out *executor.CommandOutput, errMsg string, elapsed time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := &e.state.Tasks[i]
	t.Status = status
	t.Elapsed = elapsed
	if out != nil {
		t.Stdout = out.Output
		t.Stderr = out.Errors
		if errMsg == "" {
			errMsg = out.Err
		}
	}
	t.Err = errMsg
	e.current = -1
}

// failBatch reports a pre-flight failure: a whole-batch error with
// zero tasks executed.
func (e *Engine) failBatch(msg string) State {
	e.logger.Error("batch aborted before execution", "error", msg)
	e.mu.Lock()
	e.state.Error = msg
	e.mu.Unlock()
	if e.opts.Callbacks.OnError != nil {
		e.opts.Callbacks.OnError(msg)
	}
	return e.Snapshot()
}

// failRun reports a critical task failure. Scheduling stops; tasks
// after the failure remain Pending and no completion message is
// produced.
func (e *Engine) failRun(i int) State {
	e.mu.Lock()
	t := e.state.Tasks[i]
	detail := strings.TrimSpace(t.Stderr)
	if detail == "" {
		detail = t.Err
	}
	e.state.Error = fmt.Sprintf("%s: %s", t.Label, detail)
	msg := e.state.Error
	e.mu.Unlock()

	e.logger.Error("critical task failed", "index", i, "command", t.Command, "error", t.Err)
	if e.opts.Callbacks.OnError != nil {
		e.opts.Callbacks.OnError(msg)
	}
	return e.Snapshot()
}

// cancelFrom marks every not-yet-started task Cancelled and notifies
// the abort handler. No task at or after index from is ever
// dispatched.
func (e *Engine) cancelFrom(from int) State {
	e.mu.Lock()
	for i := from; i < len(e.state.Tasks); i++ {
		if e.state.Tasks[i].Status == executor.StatusPending {
			e.state.Tasks[i].Status = executor.StatusCancelled
		}
	}
	e.current = -1
	e.mu.Unlock()

	e.logger.Info("run cancelled", "from", from)
	if e.opts.Callbacks.OnAborted != nil {
		e.opts.Callbacks.OnAborted("execution")
	}
	return e.Snapshot()
}

// complete produces the completion message from the summary and the
// total elapsed time across all tasks.
func (e *Engine) complete() State {
	e.mu.Lock()
	var total time.Duration
	for _, t := range e.state.Tasks {
		total += t.Elapsed
	}
	summary := strings.TrimSpace(e.state.Summary)
	if summary == "" {
		summary = "Execution completed"
	}
	e.state.CompletionMessage = summary + " in " + humanizeDuration(total)
	e.mu.Unlock()

	snap := e.Snapshot()
	e.logger.Info("run completed", "tasks", len(snap.Tasks), "message", snap.CompletionMessage)
	if e.opts.Callbacks.OnCompleted != nil {
		e.opts.Callbacks.OnCompleted(snap)
	}
	return snap
}
