// Package run executes a flat resolved command list strictly
// sequentially, with cancellation, critical/non-critical failure
// semantics, placeholder substitution and live progress reporting.
package run

import (
	"time"

	"github.com/planrun/planrun/pkg/executor"
)

// TaskInfo is the execution-time record for one resolved command.
// Status transitions: Pending → Running → {Success | Failed}, with
// Running → Aborted and Pending → Cancelled as cancellation-only
// transitions. No task re-enters Pending after leaving it.
type TaskInfo struct {
	Label   string
	Command string
	Status  executor.Status
	Elapsed time.Duration
	Stdout  string
	Stderr  string
	Err     string
}

// State is owned exclusively by the engine; callers only ever receive
// copies via Snapshot. CompletionMessage and Error are empty until
// set — an empty CompletionMessage means the run did not complete
// successfully (or has not completed yet).
type State struct {
	Message           string
	Summary           string
	Tasks             []TaskInfo
	CompletionMessage string
	Error             string
}

// clone deep-copies the state so callers can't reach engine internals.
func (s *State) clone() State {
	out := *s
	out.Tasks = append([]TaskInfo(nil), s.Tasks...)
	return out
}
