package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/planrun/planrun/pkg/executor"
	"github.com/planrun/planrun/pkg/refine"
	"github.com/planrun/planrun/pkg/run"
	"github.com/planrun/planrun/pkg/task"
)

func TestStepsPanelGlyphs(t *testing.T) {
	p := stepsPanel{width: 60, height: 10}
	out := p.View([]run.TaskInfo{
		{Label: "Fetch sources", Status: executor.StatusSuccess, Elapsed: 1200 * time.Millisecond},
		{Label: "Run build", Status: executor.StatusRunning, Elapsed: 300 * time.Millisecond},
		{Label: "Publish", Status: executor.StatusPending},
	})

	for _, want := range []string{GlyphSuccess, GlyphRunning, GlyphPending, "Fetch sources", "Run build", "Publish"} {
		if !strings.Contains(out, want) {
			t.Errorf("panel missing %q:\n%s", want, out)
		}
	}
}

func TestStepsPanelEmpty(t *testing.T) {
	p := stepsPanel{width: 40, height: 6}
	out := p.View(nil)
	if !strings.Contains(out, "nothing to run") {
		t.Errorf("empty panel = %q, want placeholder text", out)
	}
}

func TestChoiceOverlayRendersActiveGroup(t *testing.T) {
	eng := refine.New([]task.Task{
		{Type: task.Define, Action: "Pick a deployment target", Params: &task.Params{
			Options: []task.RefinementOption{
				{Name: "Staging", Command: "deploy --env staging"},
				{Name: "Production", Command: "deploy --env prod"},
			},
		}},
	}, refine.Callbacks{})
	eng.Navigate(1)

	c := choiceOverlay{width: 100, height: 30}
	out := c.View(eng.Snapshot())

	for _, want := range []string{"Pick a deployment target", "Staging", "Production", "Choice 1 of 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("overlay missing %q", want)
		}
	}
}

func TestStats(t *testing.T) {
	done, failed := stats([]run.TaskInfo{
		{Status: executor.StatusSuccess},
		{Status: executor.StatusFailed},
		{Status: executor.StatusSuccess},
		{Status: executor.StatusPending},
	})
	if done != 2 || failed != 1 {
		t.Errorf("stats = (%d, %d), want (2, 1)", done, failed)
	}
}

func TestRunningIndex(t *testing.T) {
	tasks := []run.TaskInfo{
		{Status: executor.StatusSuccess},
		{Status: executor.StatusRunning},
		{Status: executor.StatusPending},
	}
	if got := runningIndex(tasks); got != 1 {
		t.Errorf("runningIndex = %d, want 1", got)
	}
	if got := runningIndex(nil); got != -1 {
		t.Errorf("runningIndex(nil) = %d, want -1", got)
	}
}

func TestRunDoneRouting(t *testing.T) {
	cases := []struct {
		name      string
		state     run.State
		wantPhase phase
	}{
		{
			name:      "completed",
			state:     run.State{CompletionMessage: "done in 1s", Tasks: []run.TaskInfo{{Status: executor.StatusSuccess}}},
			wantPhase: phaseDone,
		},
		{
			name:      "critical failure",
			state:     run.State{Error: "boom", Tasks: []run.TaskInfo{{Status: executor.StatusFailed}}},
			wantPhase: phaseFailed,
		},
		{
			name:      "cancelled mid-run",
			state:     run.State{Tasks: []run.TaskInfo{{Status: executor.StatusSuccess}, {Status: executor.StatusAborted}, {Status: executor.StatusCancelled}}},
			wantPhase: phaseAborted,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := NewApp(Options{})
			app.phase = phaseExecuting
			app.Update(runDoneMsg{state: tc.state})
			if app.phase != tc.wantPhase {
				t.Errorf("phase = %d, want %d", app.phase, tc.wantPhase)
			}
			if tc.wantPhase == phaseAborted && app.errText != "execution cancelled" {
				t.Errorf("errText = %q, want %q", app.errText, "execution cancelled")
			}
		})
	}
}

func TestRenderMarkdownFallsBackOnEmpty(t *testing.T) {
	if got := renderMarkdown(""); got != "" {
		t.Errorf("renderMarkdown(\"\") = %q, want empty", got)
	}
}
