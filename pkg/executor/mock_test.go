package executor

import (
	"context"
	"reflect"
	"testing"
	"time"
)

func TestMockExecutorDefaultsToEmptySuccess(t *testing.T) {
	m := &MockExecutor{}
	out, err := m.Execute(context.Background(), ExecutionCommand{Command: "anything"}, nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Result != ResultSuccess || out.Output != "" {
		t.Errorf("default result = %+v, want empty success", out)
	}
}

func TestMockExecutorReturnsCannedResult(t *testing.T) {
	m := &MockExecutor{
		Results: map[string]MockResult{
			"fail": {Result: ResultError, Err: "Exit code: 1", Errors: "boom"},
		},
	}
	out, err := m.Execute(context.Background(), ExecutionCommand{Command: "fail"}, nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Result != ResultError || out.Err != "Exit code: 1" || out.Errors != "boom" {
		t.Errorf("canned result not returned: %+v", out)
	}
}

func TestMockExecutorProgress(t *testing.T) {
	m := &MockExecutor{
		Results: map[string]MockResult{"bad": {Result: ResultError}},
	}

	var statuses []Status
	record := func(s Status, index int) { statuses = append(statuses, s) }

	if _, err := m.Execute(context.Background(), ExecutionCommand{Command: "ok"}, record, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := m.Execute(context.Background(), ExecutionCommand{Command: "bad"}, record, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []Status{StatusRunning, StatusSuccess, StatusRunning, StatusFailed}
	if !reflect.DeepEqual(statuses, want) {
		t.Errorf("statuses = %v, want %v", statuses, want)
	}
}

func TestMockExecutorRecordsCalls(t *testing.T) {
	m := &MockExecutor{}
	for _, c := range []string{"one", "two", "three"} {
		if _, err := m.Execute(context.Background(), ExecutionCommand{Command: c}, nil, 0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := m.Calls(); !reflect.DeepEqual(got, []string{"one", "two", "three"}) {
		t.Errorf("calls = %v", got)
	}
}

func TestMockExecutorDelayObservesCancellation(t *testing.T) {
	m := &MockExecutor{Delay: 5 * time.Second}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := m.Execute(ctx, ExecutionCommand{Command: "slow"}, nil, 0)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if time.Since(start) > time.Second {
		t.Error("cancellation did not interrupt the synthetic delay")
	}
}
