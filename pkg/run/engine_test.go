package run

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/planrun/planrun/pkg/executor"
	"github.com/planrun/planrun/pkg/placeholder"
)

func boolPtr(b bool) *bool { return &b }

func cmdList(commands ...string) []executor.ExecutionCommand {
	var out []executor.ExecutionCommand
	for _, c := range commands {
		out = append(out, executor.ExecutionCommand{Description: c, Command: c})
	}
	return out
}

func TestZeroCommandsCompletesImmediately(t *testing.T) {
	var completed *State
	e := New(Options{
		Message:  "Nothing to do.",
		Executor: &executor.MockExecutor{},
		Callbacks: Callbacks{
			OnCompleted: func(s State) { completed = &s },
		},
	})

	final := e.Run(context.Background())

	if len(final.Tasks) != 0 {
		t.Errorf("tasks = %v, want empty", final.Tasks)
	}
	if final.Error != "" {
		t.Errorf("error = %q, want empty", final.Error)
	}
	if final.CompletionMessage != "" {
		t.Errorf("completionMessage = %q, want empty", final.CompletionMessage)
	}
	if final.Message != "Nothing to do." {
		t.Errorf("message = %q", final.Message)
	}
	if completed == nil {
		t.Error("OnCompleted not fired")
	}
}

func TestUnresolvedPlaceholderAbortsWholeBatch(t *testing.T) {
	mock := &executor.MockExecutor{}
	var errMsg string
	e := New(Options{
		Commands: []executor.ExecutionCommand{
			{Description: "ok", Command: "echo hi"},
			{Description: "bad", Command: "ls {x.y}"},
			{Description: "never", Command: "echo bye"},
		},
		Context:   placeholder.Context{},
		Executor:  mock,
		Callbacks: Callbacks{OnError: func(m string) { errMsg = m }},
	})

	final := e.Run(context.Background())

	if len(mock.Calls()) != 0 {
		t.Errorf("commands executed during failed pre-flight: %v", mock.Calls())
	}
	if final.Error == "" || !strings.Contains(final.Error, "{x.y}") {
		t.Errorf("error = %q, want it to name the token", final.Error)
	}
	if errMsg == "" {
		t.Error("OnError not fired")
	}
	if final.CompletionMessage != "" {
		t.Errorf("completionMessage = %q, want empty", final.CompletionMessage)
	}
}

func TestPlaceholdersResolvedBeforeExecution(t *testing.T) {
	mock := &executor.MockExecutor{}
	e := New(Options{
		Commands: []executor.ExecutionCommand{
			{Description: "list", Command: "ls {project.alpha.path}"},
		},
		Context: placeholder.Context{
			"project": map[string]any{"alpha": map[string]any{"path": "/srv/alpha"}},
		},
		Executor: mock,
	})

	final := e.Run(context.Background())

	if calls := mock.Calls(); len(calls) != 1 || calls[0] != "ls /srv/alpha" {
		t.Errorf("dispatched = %v, want [ls /srv/alpha]", calls)
	}
	if final.Tasks[0].Command != "ls /srv/alpha" {
		t.Errorf("task command = %q", final.Tasks[0].Command)
	}
}

func TestCriticalFailureStopsScheduling(t *testing.T) {
	mock := &executor.MockExecutor{
		Results: map[string]executor.MockResult{
			"fail": {Result: executor.ResultError, Err: "Exit code: 1", Errors: "kaboom"},
		},
	}
	e := New(Options{
		Commands: cmdList("echo 1", "fail", "echo 3"),
		Executor: mock,
	})

	final := e.Run(context.Background())

	if calls := mock.Calls(); len(calls) != 2 {
		t.Fatalf("dispatched %d commands, want 2: %v", len(calls), calls)
	}
	if final.Tasks[0].Status != executor.StatusSuccess {
		t.Errorf("task 0 status = %q, want success", final.Tasks[0].Status)
	}
	if final.Tasks[1].Status != executor.StatusFailed {
		t.Errorf("task 1 status = %q, want failed", final.Tasks[1].Status)
	}
	if final.Tasks[2].Status != executor.StatusPending {
		t.Errorf("task 2 status = %q, want pending", final.Tasks[2].Status)
	}
	if final.Error == "" {
		t.Error("run-level error not set")
	}
	// The failing command's stderr is what the user sees.
	if !strings.Contains(final.Error, "kaboom") {
		t.Errorf("error = %q, want it to carry stderr", final.Error)
	}
	if final.CompletionMessage != "" {
		t.Errorf("completionMessage = %q, want empty", final.CompletionMessage)
	}
}

func TestNonCriticalFailureContinues(t *testing.T) {
	mock := &executor.MockExecutor{
		Results: map[string]executor.MockResult{
			"fail": {Result: executor.ResultError, Err: "Exit code: 1"},
		},
	}
	cmds := cmdList("echo 1", "fail", "echo 3")
	cmds[1].Critical = boolPtr(false)
	e := New(Options{Commands: cmds, Executor: mock})

	final := e.Run(context.Background())

	if calls := mock.Calls(); len(calls) != 3 {
		t.Fatalf("dispatched %d commands, want 3", len(calls))
	}
	if final.Tasks[1].Status != executor.StatusFailed {
		t.Errorf("task 1 status = %q, want failed", final.Tasks[1].Status)
	}
	if final.Tasks[2].Status != executor.StatusSuccess {
		t.Errorf("task 2 status = %q, want success", final.Tasks[2].Status)
	}
	if final.Error != "" {
		t.Errorf("run-level error = %q, want empty for non-critical failure", final.Error)
	}
	if final.CompletionMessage == "" {
		t.Error("expected a completion message despite non-critical failure")
	}
}

// A non-critical failure on the *last* task still leaves the run-level
// error unset. Both policies are defensible; this one is ours.
func TestTrailingNonCriticalFailureLeavesErrorUnset(t *testing.T) {
	mock := &executor.MockExecutor{
		Results: map[string]executor.MockResult{
			"fail": {Result: executor.ResultError, Err: "Exit code: 1"},
		},
	}
	cmds := cmdList("echo 1", "fail")
	cmds[1].Critical = boolPtr(false)
	e := New(Options{Commands: cmds, Executor: mock})

	final := e.Run(context.Background())

	if final.Error != "" {
		t.Errorf("run-level error = %q, want empty", final.Error)
	}
	if final.CompletionMessage == "" {
		t.Error("expected completion message")
	}
}

func TestCompletionMessageUsesSummaryAndElapsed(t *testing.T) {
	mock := &executor.MockExecutor{Delay: 5 * time.Millisecond}
	e := New(Options{
		Summary:  "  Deployed the thing  ",
		Commands: cmdList("echo 1", "echo 2"),
		Executor: mock,
	})

	final := e.Run(context.Background())

	if !strings.HasPrefix(final.CompletionMessage, "Deployed the thing in ") {
		t.Errorf("completionMessage = %q", final.CompletionMessage)
	}
}

func TestCompletionMessageDefaultsWhenSummaryEmpty(t *testing.T) {
	e := New(Options{
		Commands: cmdList("echo 1"),
		Executor: &executor.MockExecutor{},
	})
	final := e.Run(context.Background())
	if !strings.HasPrefix(final.CompletionMessage, "Execution completed in ") {
		t.Errorf("completionMessage = %q", final.CompletionMessage)
	}
}

func TestCancellationMidRun(t *testing.T) {
	mock := &executor.MockExecutor{Delay: 200 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())

	var abortedOp string
	e := New(Options{
		Commands:  cmdList("echo 1", "echo 2", "echo 3"),
		Executor:  mock,
		Callbacks: Callbacks{OnAborted: func(op string) { abortedOp = op }},
	})

	go func() {
		// Let task 0 finish and task 1 start, then cancel.
		time.Sleep(300 * time.Millisecond)
		cancel()
	}()
	final := e.Run(ctx)

	if abortedOp != "execution" {
		t.Errorf("abort operation = %q, want %q", abortedOp, "execution")
	}
	if final.Tasks[0].Status != executor.StatusSuccess {
		t.Errorf("task 0 status = %q, want success", final.Tasks[0].Status)
	}
	if final.Tasks[1].Status != executor.StatusAborted {
		t.Errorf("task 1 status = %q, want aborted", final.Tasks[1].Status)
	}
	if final.Tasks[2].Status != executor.StatusCancelled {
		t.Errorf("task 2 status = %q, want cancelled", final.Tasks[2].Status)
	}
	if calls := mock.Calls(); len(calls) != 2 {
		t.Errorf("dispatched %d commands after cancellation, want 2", len(calls))
	}
	if final.CompletionMessage != "" {
		t.Errorf("completionMessage = %q, want empty", final.CompletionMessage)
	}
}

// The concrete three-critical-task scenario from the engine contract.
func TestThreeTaskCriticalScenario(t *testing.T) {
	mock := &executor.MockExecutor{
		Results: map[string]executor.MockResult{
			"fail": {Result: executor.ResultError, Err: "Exit code: 1"},
		},
	}
	e := New(Options{
		Commands: []executor.ExecutionCommand{
			{Description: "one", Command: "echo 1", Critical: boolPtr(true)},
			{Description: "two", Command: "fail", Critical: boolPtr(true)},
			{Description: "three", Command: "echo 3", Critical: boolPtr(true)},
		},
		Executor: mock,
	})

	final := e.Run(context.Background())

	var terminal int
	for _, tk := range final.Tasks {
		if tk.Status == executor.StatusSuccess || tk.Status == executor.StatusFailed {
			terminal++
		}
	}
	if terminal != 2 {
		t.Errorf("terminal outputs = %d, want 2", terminal)
	}
	if final.Tasks[0].Status != executor.StatusSuccess || final.Tasks[1].Status != executor.StatusFailed {
		t.Errorf("statuses = %q, %q", final.Tasks[0].Status, final.Tasks[1].Status)
	}
	if final.Error == "" || final.CompletionMessage != "" {
		t.Errorf("error = %q, completionMessage = %q", final.Error, final.CompletionMessage)
	}
}

func TestWorkdirThreading(t *testing.T) {
	mock := &executor.MockExecutor{
		Results: map[string]executor.MockResult{
			"cd /tmp/work": {Result: executor.ResultSuccess, Workdir: "/tmp/work"},
		},
	}
	explicit := executor.ExecutionCommand{Description: "own dir", Command: "ls", Workdir: "/opt/own"}
	e := New(Options{
		Commands: []executor.ExecutionCommand{
			{Description: "enter", Command: "cd /tmp/work"},
			{Description: "list", Command: "pwd"},
			explicit,
		},
		Executor: &threadingRecorder{inner: mock},
	})

	rec := e.exec.(*threadingRecorder)
	e.Run(context.Background())

	if len(rec.workdirs) != 3 {
		t.Fatalf("recorded %d dispatches", len(rec.workdirs))
	}
	if rec.workdirs[0] != "" {
		t.Errorf("task 0 workdir = %q, want empty", rec.workdirs[0])
	}
	// The workdir produced by the completed command is merged into the
	// next command…
	if rec.workdirs[1] != "/tmp/work" {
		t.Errorf("task 1 workdir = %q, want /tmp/work", rec.workdirs[1])
	}
	// …unless that command specifies its own.
	if rec.workdirs[2] != "/opt/own" {
		t.Errorf("task 2 workdir = %q, want /opt/own", rec.workdirs[2])
	}
}

// threadingRecorder wraps an executor and records the workdir each
// dispatched command carried.
type threadingRecorder struct {
	inner    executor.Executor
	workdirs []string
}

func (r *threadingRecorder) Execute(ctx context.Context, cmd executor.ExecutionCommand, onProgress executor.ProgressFunc, index int) (*executor.CommandOutput, error) {
	r.workdirs = append(r.workdirs, cmd.Workdir)
	return r.inner.Execute(ctx, cmd, onProgress, index)
}

func TestWhenConditionDropsCommandPreflight(t *testing.T) {
	mock := &executor.MockExecutor{}
	e := New(Options{
		Commands: []executor.ExecutionCommand{
			{Description: "always", Command: "echo always"},
			{Description: "never", Command: "echo never", When: `env == "prod"`},
			{Description: "match", Command: "echo match", When: `env == "dev"`},
		},
		Context:  placeholder.Context{"env": "dev"},
		Executor: mock,
	})

	final := e.Run(context.Background())

	calls := mock.Calls()
	if len(calls) != 2 || calls[0] != "echo always" || calls[1] != "echo match" {
		t.Errorf("dispatched = %v", calls)
	}
	// Dropped commands never become tasks.
	if len(final.Tasks) != 2 {
		t.Errorf("tasks = %d, want 2", len(final.Tasks))
	}
}

func TestSnapshotRecomputesRunningElapsed(t *testing.T) {
	mock := &executor.MockExecutor{Delay: 150 * time.Millisecond}
	e := New(Options{
		Commands: cmdList("echo slow"),
		Executor: mock,
	})

	done := make(chan State)
	go func() { done <- e.Run(context.Background()) }()

	time.Sleep(60 * time.Millisecond)
	mid := e.Snapshot()
	if len(mid.Tasks) == 1 && mid.Tasks[0].Status == executor.StatusRunning {
		if mid.Tasks[0].Elapsed <= 0 {
			t.Error("running task elapsed not recomputed")
		}
	}

	final := <-done
	if final.Tasks[0].Status != executor.StatusSuccess {
		t.Errorf("final status = %q", final.Tasks[0].Status)
	}
	if final.Tasks[0].Elapsed < 100*time.Millisecond {
		t.Errorf("final elapsed = %v, want >= delay", final.Tasks[0].Elapsed)
	}
}

func TestStrictSequencing(t *testing.T) {
	mock := &executor.MockExecutor{Delay: 20 * time.Millisecond}
	e := New(Options{
		Commands: cmdList("a", "b", "c", "d"),
		Executor: &sequencingChecker{t: t, inner: mock},
	})
	final := e.Run(context.Background())
	for i, tk := range final.Tasks {
		if tk.Status != executor.StatusSuccess {
			t.Errorf("task %d status = %q", i, tk.Status)
		}
	}
}

// sequencingChecker fails the test if a dispatch overlaps another or
// arrives out of order.
type sequencingChecker struct {
	t        *testing.T
	inner    executor.Executor
	inFlight bool
	next     int
}

func (s *sequencingChecker) Execute(ctx context.Context, cmd executor.ExecutionCommand, onProgress executor.ProgressFunc, index int) (*executor.CommandOutput, error) {
	if s.inFlight {
		s.t.Error("overlapping dispatch")
	}
	if index != s.next {
		s.t.Errorf("dispatch index = %d, want %d", index, s.next)
	}
	s.inFlight = true
	out, err := s.inner.Execute(ctx, cmd, onProgress, index)
	s.inFlight = false
	s.next++
	return out, err
}

func TestHumanizeDuration(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{450 * time.Millisecond, "450ms"},
		{2500 * time.Millisecond, "2.5s"},
		{3 * time.Second, "3s"},
		{92 * time.Second, "1m 32s"},
	}
	for _, c := range cases {
		if got := humanizeDuration(c.in); got != c.want {
			t.Errorf("humanizeDuration(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}
