// Package executor defines the Executor interface and its shared
// types, with two interchangeable implementations: ShellExecutor
// (real process spawning) and MockExecutor (deterministic test double).
package executor

import (
	"context"
)

// Status is the lifecycle state of a task as observed by callers.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusAborted   Status = "aborted"   // was running when the run was cancelled
	StatusCancelled Status = "cancelled" // never started; run was cancelled
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusAborted, StatusCancelled:
		return true
	}
	return false
}

// ExecutionCommand is one resolved shell operation to run.
type ExecutionCommand struct {
	Description string `json:"description"           yaml:"description" jsonschema:"required"`
	Command     string `json:"command"               yaml:"command"     jsonschema:"required"`
	Workdir     string `json:"workdir,omitempty"     yaml:"workdir,omitempty"`
	TimeoutMs   int64  `json:"timeoutMs,omitempty"   yaml:"timeoutMs,omitempty"`

	// Critical defaults to true: a nil pointer means the task's failure
	// halts all subsequent execution in the batch.
	Critical *bool `json:"critical,omitempty" yaml:"critical,omitempty"`

	// When is an optional boolean expression evaluated against the
	// placeholder context before dispatch. A false result drops the
	// command during pre-flight.
	When string `json:"when,omitempty" yaml:"when,omitempty"`
}

// IsCritical reports the failure policy, applying the default.
func (c *ExecutionCommand) IsCritical() bool {
	return c.Critical == nil || *c.Critical
}

// Result classifies a completed execution.
type Result string

const (
	ResultSuccess Result = "success"
	ResultError   Result = "error"
)

// CommandOutput is the record of one completed command.
type CommandOutput struct {
	Description string `json:"description"`
	Command     string `json:"command"`
	Output      string `json:"output"`            // captured stdout (last 128 lines)
	Errors      string `json:"errors"`            // captured stderr (last 128 lines)
	Result      Result `json:"result"`
	Err         string `json:"error,omitempty"`   // e.g. "Exit code: 2"
	Workdir     string `json:"workdir,omitempty"` // working directory after the command ran
}

// Stream identifies an output stream in sink callbacks.
type Stream string

const (
	StreamStdout Stream = "stdout"
	StreamStderr Stream = "stderr"
)

// ProgressFunc observes status transitions for the command at the
// given batch index. Implementations emit StatusRunning synchronously
// before starting, then exactly one terminal status.
type ProgressFunc func(status Status, index int)

// OutputFunc receives output chunks as they arrive, before the
// 128-line retention cap is applied.
type OutputFunc func(index int, stream Stream, chunk string)

// Executor runs one shell command to completion.
// Implementations: ShellExecutor, MockExecutor.
type Executor interface {
	Execute(ctx context.Context, cmd ExecutionCommand, onProgress ProgressFunc, index int) (*CommandOutput, error)
}

// maxRetainedLines bounds per-stream retained output on noisy commands.
const maxRetainedLines = 128

// tailLines keeps the last maxRetainedLines entries of lines.
func tailLines(lines []string) []string {
	if len(lines) <= maxRetainedLines {
		return lines
	}
	return lines[len(lines)-maxRetainedLines:]
}
