package tui

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/planrun/planrun/pkg/executor"
	"github.com/planrun/planrun/pkg/oracle"
	"github.com/planrun/planrun/pkg/placeholder"
	"github.com/planrun/planrun/pkg/refine"
	"github.com/planrun/planrun/pkg/run"
	"github.com/planrun/planrun/pkg/task"
)

type phase int

const (
	phasePlanning phase = iota
	phaseRefining
	phaseExecuting
	phaseDone
	phaseFailed
	phaseAborted
)

const tickInterval = 100 * time.Millisecond

// Options configures one interactive session.
type Options struct {
	Planner      oracle.Planner
	Kind         oracle.ToolKind
	Instructions string
	Context      placeholder.Context

	// Executor overrides the default shell executor (used in dry runs).
	Executor executor.Executor

	// Shell overrides the execution shell when Executor is nil.
	Shell string

	Logger *slog.Logger
}

type planMsg struct {
	resp *oracle.PlanResponse
	err  error
}

type tickMsg time.Time

type runDoneMsg struct {
	state run.State
}

// App is the top-level Bubble Tea model. It drives the
// plan → refine → execute flow against the engines, which own all
// domain state; the model only issues inputs and renders snapshots.
type App struct {
	opts   Options
	logger *slog.Logger

	phase  phase
	width  int
	height int

	spin    spinner.Model
	message string
	errText string
	final   run.State

	plan   *oracle.PlanResponse
	refEng *refine.Engine

	runEng    *run.Engine
	runCtx    context.Context
	cancelRun context.CancelFunc
	runDone   chan run.State

	steps  stepsPanel
	output outputPanel
	choice choiceOverlay
}

// NewApp builds the model. Run it with tea.NewProgram(app).Run().
func NewApp(opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = taskRunning
	return &App{
		opts:   opts,
		logger: logger,
		phase:  phasePlanning,
		spin:   sp,
		output: newOutputPanel(),
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.spin.Tick, a.planCmd())
}

// planCmd asks the oracle for a plan off the UI goroutine.
func (a *App) planCmd() tea.Cmd {
	return func() tea.Msg {
		resp, err := a.opts.Planner.Plan(context.Background(), a.opts.Instructions, a.opts.Kind)
		return planMsg{resp: resp, err: err}
	}
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForRun blocks a tea command on the engine goroutine finishing.
func (a *App) waitForRun() tea.Cmd {
	done := a.runDone
	return func() tea.Msg {
		return runDoneMsg{state: <-done}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.steps = stepsPanel{width: a.panelWidth(), height: a.panelHeight()}
		a.choice = choiceOverlay{width: a.width, height: a.height}
		a.output.resize(a.panelWidth(), a.panelHeight())
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd

	case planMsg:
		return a.handlePlan(msg)

	case tickMsg:
		if a.phase != phaseExecuting {
			return a, nil
		}
		a.refreshRun()
		return a, tick()

	case runDoneMsg:
		a.final = msg.state
		a.syncOutput(msg.state)
		switch {
		case msg.state.Error != "":
			a.phase = phaseFailed
			a.errText = msg.state.Error
		case runCancelled(msg.state.Tasks):
			a.phase = phaseAborted
			a.errText = "execution cancelled"
		default:
			a.phase = phaseDone
		}
		return a, nil
	}
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		if a.cancelRun != nil {
			a.cancelRun()
		}
		return a, tea.Quit

	case key.Matches(msg, keys.Cancel):
		switch a.phase {
		case phaseRefining:
			a.refEng.Abort()
			a.phase = phaseAborted
			a.errText = "task selection aborted"
		case phaseExecuting:
			if a.cancelRun != nil {
				a.cancelRun()
			}
		case phaseDone, phaseFailed, phaseAborted:
			return a, tea.Quit
		}
		return a, nil

	case key.Matches(msg, keys.Up):
		if a.phase == phaseRefining {
			a.refEng.Navigate(-1)
		}
		return a, nil

	case key.Matches(msg, keys.Down):
		if a.phase == phaseRefining {
			a.refEng.Navigate(1)
		}
		return a, nil

	case key.Matches(msg, keys.Confirm):
		if a.phase == phaseRefining {
			a.refEng.Confirm()
			if a.refEng.Phase() == refine.PhaseDone {
				return a.startRun(a.refEng.Snapshot().Tasks, nil)
			}
		} else if a.phase == phaseDone || a.phase == phaseFailed || a.phase == phaseAborted {
			return a, tea.Quit
		}
		return a, nil

	case key.Matches(msg, keys.PgUp):
		a.output.scroll(-5)
		return a, nil

	case key.Matches(msg, keys.PgDown):
		a.output.scroll(5)
		return a, nil
	}
	return a, nil
}

func (a *App) handlePlan(msg planMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		a.phase = phaseFailed
		a.errText = msg.err.Error()
		return a, nil
	}
	a.plan = msg.resp
	a.message = msg.resp.Message

	// A concrete command list skips refinement entirely.
	if len(msg.resp.Commands) > 0 {
		return a.startRun(nil, msg.resp.Commands)
	}

	a.refEng = refine.New(msg.resp.Tasks, refine.Callbacks{})
	if a.refEng.Phase() == refine.PhaseDone {
		return a.startRun(a.refEng.Snapshot().Tasks, nil)
	}
	a.phase = phaseRefining
	return a, nil
}

// startRun launches the execution engine in its own goroutine and
// begins polling snapshots on a tick. Exactly one of tasks and
// commands is set, depending on whether the plan needed refinement.
func (a *App) startRun(tasks []task.Task, commands []executor.ExecutionCommand) (tea.Model, tea.Cmd) {
	if commands == nil {
		commands = run.CommandsFromTasks(tasks)
	}

	a.runEng = run.New(run.Options{
		Message:  a.message,
		Summary:  a.planSummary(),
		Commands: commands,
		Context:  a.opts.Context,
		Executor: a.opts.Executor,
		Shell:    a.opts.Shell,
		Logger:   a.logger,
	})
	a.runCtx, a.cancelRun = context.WithCancel(context.Background())
	a.runDone = make(chan run.State, 1)

	go func(ctx context.Context, eng *run.Engine, done chan<- run.State) {
		done <- eng.Run(ctx)
	}(a.runCtx, a.runEng, a.runDone)

	a.phase = phaseExecuting
	return a, tea.Batch(tick(), a.waitForRun())
}

func (a *App) planSummary() string {
	if a.plan == nil {
		return ""
	}
	return a.plan.Summary
}

func (a *App) refreshRun() {
	if a.runEng == nil {
		return
	}
	snap := a.runEng.Snapshot()
	a.syncOutput(snap)
	a.final = snap
}

// syncOutput points the output panel at the running task, or the last
// task that produced anything once the run ends.
func (a *App) syncOutput(s run.State) {
	var focus *run.TaskInfo
	for i := range s.Tasks {
		t := &s.Tasks[i]
		if t.Status == executor.StatusRunning {
			focus = t
			break
		}
		if t.Stdout != "" || t.Stderr != "" || t.Err != "" {
			focus = t
		}
	}
	a.output.setContent(focus)
}

func (a *App) panelWidth() int {
	w := a.width/2 - 2
	if w < 20 {
		w = 20
	}
	return w
}

func (a *App) panelHeight() int {
	h := a.height - 8
	if h < 5 {
		h = 5
	}
	return h
}

func (a *App) View() string {
	if a.width == 0 {
		return ""
	}

	header := headerStyle.Render("planrun")
	var body string

	switch a.phase {
	case phasePlanning:
		body = "\n " + a.spin.View() + " planning…\n"

	case phaseRefining:
		return header + "\n" + a.choice.View(a.refEng.Snapshot())

	default:
		msg := ""
		if a.message != "" {
			msg = renderMarkdown(a.message) + "\n"
		}
		focusTitle := "Output"
		if i := runningIndex(a.final.Tasks); i >= 0 {
			focusTitle = a.final.Tasks[i].Label
		}
		panels := lipgloss.JoinHorizontal(lipgloss.Top,
			a.steps.View(a.final.Tasks),
			a.output.View(focusTitle, a.panelWidth(), a.panelHeight()))
		body = msg + panels + "\n" + a.footer()
	}

	return header + "\n" + body
}

// runCancelled reports whether the run ended by cancellation rather
// than completing: cancellation leaves Aborted or Cancelled tasks
// behind and no run-level error.
func runCancelled(tasks []run.TaskInfo) bool {
	for _, t := range tasks {
		if t.Status == executor.StatusAborted || t.Status == executor.StatusCancelled {
			return true
		}
	}
	return false
}

func runningIndex(tasks []run.TaskInfo) int {
	for i, t := range tasks {
		if t.Status == executor.StatusRunning {
			return i
		}
	}
	return -1
}

func (a *App) footer() string {
	switch a.phase {
	case phaseExecuting:
		done, failed := stats(a.final.Tasks)
		status := taskDim.Render(fmt.Sprintf("done %d · failed %d", done, failed))
		return status + "  " +
			keyStyle.Render("esc") + keyDescStyle.Render(":cancel") + "  " +
			keyStyle.Render("pgup/pgdn") + keyDescStyle.Render(":scroll")
	case phaseDone:
		return completionStyle.Render(a.final.CompletionMessage) + "  " +
			keyDescStyle.Render("press enter or q to exit")
	case phaseFailed:
		return errorStyle.Render(a.errText) + "  " +
			keyDescStyle.Render("press enter or q to exit")
	case phaseAborted:
		return errorStyle.Render(a.errText) + "  " +
			keyDescStyle.Render("press enter or q to exit")
	}
	return ""
}
