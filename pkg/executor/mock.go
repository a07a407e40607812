package executor

import (
	"context"
	"sync"
	"time"
)

// MockResult is the canned outcome for one command string.
type MockResult struct {
	Output  string
	Errors  string
	Result  Result
	Err     string
	Workdir string
}

// MockExecutor is the deterministic test double: it looks up a
// per-command-string mocked result (defaulting to empty success)
// after a configurable synthetic delay. It makes the execution
// engine's state machine testable without spawning processes.
type MockExecutor struct {
	// Results maps command strings to canned outcomes.
	Results map[string]MockResult

	// Delay is the synthetic execution time per command.
	Delay time.Duration

	mu    sync.Mutex
	calls []string
}

// Execute emits StatusRunning, waits out the synthetic delay
// (observing cancellation), then returns the mocked result.
func (m *MockExecutor) Execute(ctx context.Context, cmd ExecutionCommand, onProgress ProgressFunc, index int) (*CommandOutput, error) {
	m.mu.Lock()
	m.calls = append(m.calls, cmd.Command)
	m.mu.Unlock()

	if onProgress != nil {
		onProgress(StatusRunning, index)
	}

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			if onProgress != nil {
				onProgress(StatusAborted, index)
			}
			return &CommandOutput{
				Description: cmd.Description,
				Command:     cmd.Command,
				Result:      ResultError,
			}, ctx.Err()
		}
	} else if ctx.Err() != nil {
		if onProgress != nil {
			onProgress(StatusAborted, index)
		}
		return &CommandOutput{
			Description: cmd.Description,
			Command:     cmd.Command,
			Result:      ResultError,
		}, ctx.Err()
	}

	res, ok := m.Results[cmd.Command]
	if !ok {
		res = MockResult{Result: ResultSuccess}
	}

	out := &CommandOutput{
		Description: cmd.Description,
		Command:     cmd.Command,
		Output:      res.Output,
		Errors:      res.Errors,
		Result:      res.Result,
		Err:         res.Err,
		Workdir:     res.Workdir,
	}
	if onProgress != nil {
		if res.Result == ResultError {
			onProgress(StatusFailed, index)
		} else {
			onProgress(StatusSuccess, index)
		}
	}
	return out, nil
}

// Calls returns the command strings dispatched so far, in order.
func (m *MockExecutor) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}
