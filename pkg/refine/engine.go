// Package refine resolves a plan containing ambiguous choice points
// into a single concrete, ordered task list. It walks the Define
// groups of a flattened task list in document order, turning each
// confirmed user selection into a concrete Execute task.
package refine

import (
	"github.com/planrun/planrun/pkg/task"
)

// Phase is the engine's lifecycle state.
type Phase string

const (
	// PhaseIdle: the active group has no highlight yet; the user has
	// not moved focus inside it.
	PhaseIdle Phase = "idle"
	// PhaseAwaitingSelection: an option is highlighted, awaiting
	// confirmation.
	PhaseAwaitingSelection Phase = "awaiting_selection"
	// PhaseDone: every group confirmed; the resolved list was emitted.
	PhaseDone Phase = "done"
	// PhaseAborted: the user abandoned refinement.
	PhaseAborted Phase = "aborted"
)

// State is the mutable refinement cursor. CurrentGroupIndex indexes
// into the ordered list of Define groups found in the flattened task
// list, not into the raw task slice.
type State struct {
	HighlightedIndex    *int
	CurrentGroupIndex   int
	CompletedSelections []string
}

// Callbacks cross into the caller (typically the rendering layer).
type Callbacks struct {
	// OnCompleted receives the full flattened, resolved task list.
	// Fires exactly once, when the last group is confirmed — or
	// synchronously from New when there are no groups at all.
	OnCompleted func(tasks []task.Task)

	// OnAborted is notified with the operation name "task selection".
	OnAborted func(operation string)
}

// Snapshot is an immutable view returned after each transition. The
// rendering layer is a pure read-only consumer of snapshots.
type Snapshot struct {
	Phase               Phase
	HighlightedIndex    *int
	CurrentGroupIndex   int
	GroupCount          int
	CompletedSelections []string

	// Prompt and Options describe the active group. Empty once Done
	// or Aborted.
	Prompt  string
	Options []task.RefinementOption

	// Tasks is the current working list (Define nodes progressively
	// replaced by Execute nodes).
	Tasks []task.Task
}

// Engine is the refinement state machine. It is owned by a single
// caller for the duration of one refinement run; methods must not be
// called concurrently.
type Engine struct {
	tasks  []task.Task // flattened working list
	groups []int       // positions of Define nodes in tasks
	phase  Phase
	state  State
	cb     Callbacks
}

// New flattens the task list (dropping Ignore/Discard) and locates its
// Define groups. With zero groups the engine transitions directly to
// Done, emitting the flattened list synchronously — no user
// interaction required.
func New(tasks []task.Task, cb Callbacks) *Engine {
	flat := task.Flatten(tasks)
	e := &Engine{
		tasks:  flat,
		groups: task.DefineIndexes(flat),
		phase:  PhaseIdle,
		cb:     cb,
	}
	if len(e.groups) == 0 {
		e.phase = PhaseDone
		if cb.OnCompleted != nil {
			cb.OnCompleted(copyTasks(flat))
		}
		return e
	}
	e.applyDefaultHighlight()
	return e
}

// Phase returns the current lifecycle state.
func (e *Engine) Phase() Phase { return e.phase }

// Navigate moves the highlight within the current group, cyclically
// over its options. delta is typically +1 or -1; navigation is
// symmetric regardless of option count. No input is processed after
// Done or Aborted.
func (e *Engine) Navigate(delta int) {
	if e.phase == PhaseDone || e.phase == PhaseAborted {
		return
	}
	opts := e.currentOptions()
	n := len(opts)
	if n == 0 {
		return
	}
	var next int
	if e.state.HighlightedIndex == nil {
		// First move lands on an end of the list.
		if delta >= 0 {
			next = 0
		} else {
			next = n - 1
		}
	} else {
		next = (*e.state.HighlightedIndex + delta) % n
		if next < 0 {
			next += n
		}
	}
	e.state.HighlightedIndex = &next
	e.phase = PhaseAwaitingSelection
}

// Confirm resolves the highlighted option of the current group.
// Confirming with no highlight is a no-op: no state transition occurs
// and no completion callback fires. On confirm, the chosen option's
// command becomes the action of a concrete Execute task replacing the
// Define node at that position; the option's name is display-only and
// never feeds into execution.
func (e *Engine) Confirm() {
	if e.phase == PhaseDone || e.phase == PhaseAborted {
		return
	}
	if e.state.HighlightedIndex == nil {
		return
	}
	opts := e.currentOptions()
	h := *e.state.HighlightedIndex
	if h < 0 || h >= len(opts) {
		return
	}

	action := resolveAction(opts[h])
	pos := e.groups[e.state.CurrentGroupIndex]
	e.tasks[pos] = task.Task{
		Type:   task.Execute,
		Action: action,
		Config: e.tasks[pos].Config,
	}
	e.state.CompletedSelections = append(e.state.CompletedSelections, action)

	e.state.CurrentGroupIndex++
	e.state.HighlightedIndex = nil
	if e.state.CurrentGroupIndex >= len(e.groups) {
		e.phase = PhaseDone
		if e.cb.OnCompleted != nil {
			e.cb.OnCompleted(copyTasks(e.tasks))
		}
		return
	}
	e.applyDefaultHighlight()
}

// Abort abandons refinement. The highlighted-but-unconfirmed value, if
// any, is preserved into CompletedSelections best-effort before the
// caller's abort handler is notified with operation "task selection".
func (e *Engine) Abort() {
	if e.phase == PhaseDone || e.phase == PhaseAborted {
		return
	}
	if e.state.HighlightedIndex != nil {
		opts := e.currentOptions()
		if h := *e.state.HighlightedIndex; h >= 0 && h < len(opts) {
			e.state.CompletedSelections = append(e.state.CompletedSelections, resolveAction(opts[h]))
		}
	}
	e.phase = PhaseAborted
	if e.cb.OnAborted != nil {
		e.cb.OnAborted("task selection")
	}
}

// Snapshot returns an immutable copy of the engine's observable state.
func (e *Engine) Snapshot() Snapshot {
	s := Snapshot{
		Phase:               e.phase,
		CurrentGroupIndex:   e.state.CurrentGroupIndex,
		GroupCount:          len(e.groups),
		CompletedSelections: append([]string(nil), e.state.CompletedSelections...),
		Tasks:               copyTasks(e.tasks),
	}
	if e.state.HighlightedIndex != nil {
		h := *e.state.HighlightedIndex
		s.HighlightedIndex = &h
	}
	if e.phase == PhaseIdle || e.phase == PhaseAwaitingSelection {
		node := e.tasks[e.groups[e.state.CurrentGroupIndex]]
		s.Prompt = node.Action
		s.Options = append([]task.RefinementOption(nil), node.Options()...)
	}
	return s
}

// applyDefaultHighlight sets the highlight to the active group's
// provided default option, if any. Otherwise the highlight stays nil
// until the user moves focus.
func (e *Engine) applyDefaultHighlight() {
	node := e.tasks[e.groups[e.state.CurrentGroupIndex]]
	if node.Params == nil || node.Params.Default == "" {
		e.phase = PhaseIdle
		return
	}
	for i, opt := range node.Params.Options {
		if opt.Name == node.Params.Default {
			idx := i
			e.state.HighlightedIndex = &idx
			e.phase = PhaseAwaitingSelection
			return
		}
	}
	e.phase = PhaseIdle
}

func (e *Engine) currentOptions() []task.RefinementOption {
	if e.state.CurrentGroupIndex >= len(e.groups) {
		return nil
	}
	return e.tasks[e.groups[e.state.CurrentGroupIndex]].Options()
}

// resolveAction returns the option's command verbatim (preserving file
// paths, URLs, exact casing). Only a bare user-facing phrase without a
// distinct command field is lower-cased and hyphen-slugified.
func resolveAction(opt task.RefinementOption) string {
	if opt.Command != "" {
		return opt.Command
	}
	return task.Slugify(opt.Name)
}

func copyTasks(tasks []task.Task) []task.Task {
	return append([]task.Task(nil), tasks...)
}
