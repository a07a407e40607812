// Package task defines the task model shared by the refinement and
// execution engines: a tagged-union Task type as produced by the
// planning oracle, plus flattening of nested groups into a linear
// execution list.
package task

import (
	"fmt"
	"strings"
)

// Type discriminates the task variants.
type Type string

const (
	// Execute runs a shell command. Action holds the literal command string.
	Execute Type = "execute"
	// Define presents mutually exclusive options the user must pick among.
	Define Type = "define"
	// Select marks a task already resolved by a user selection.
	Select Type = "select"
	// Group decomposes into ordered Subtasks.
	Group Type = "group"
	// Ignore marks a branch the planner decided not to pursue.
	Ignore Type = "ignore"
	// Discard marks a branch the user rejected.
	Discard Type = "discard"

	// Informational variants. These never execute; they round-trip
	// through the model unchanged for the rendering layer.
	Answer     Type = "answer"
	Introspect Type = "introspect"
	Report     Type = "report"
	Schedule   Type = "schedule"
	Config     Type = "config"
)

// Types lists every known variant, in declaration order.
var Types = []Type{
	Execute, Define, Select, Group, Ignore, Discard,
	Answer, Introspect, Report, Schedule, Config,
}

// Known reports whether t is a declared variant.
func (t Type) Known() bool {
	for _, k := range Types {
		if t == k {
			return true
		}
	}
	return false
}

// RefinementOption is one alternative inside a Define task.
// Name is display-only; Command is the exact string that becomes the
// resolved action when the option is confirmed.
type RefinementOption struct {
	Name    string `json:"name"              yaml:"name"              jsonschema:"required"`
	Command string `json:"command,omitempty" yaml:"command,omitempty"`
}

// Params carries variant-specific parameters.
type Params struct {
	// Options are the alternatives of a Define task, in presentation
	// order. Must be non-empty for Define.
	Options []RefinementOption `json:"options,omitempty" yaml:"options,omitempty"`

	// Default optionally names the option highlighted when the group
	// becomes active. Empty means no initial highlight.
	Default string `json:"default,omitempty" yaml:"default,omitempty"`
}

// Task is one node of the oracle's plan. The Type field discriminates;
// the remaining fields are populated per variant.
type Task struct {
	Type Type `json:"type" yaml:"type" jsonschema:"required"`

	// Action is a human-readable description or, for Execute, the
	// literal shell-command string to run.
	Action string `json:"action,omitempty" yaml:"action,omitempty"`

	// Config lists named requirement references. Opaque to the engines.
	Config []string `json:"config,omitempty" yaml:"config,omitempty"`

	// Params holds variant-specific parameters (Define options).
	Params *Params `json:"params,omitempty" yaml:"params,omitempty"`

	// Subtasks are the ordered children of a Group task.
	Subtasks []Task `json:"subtasks,omitempty" yaml:"subtasks,omitempty"`
}

// Options returns the Define options, or nil for other variants.
func (t *Task) Options() []RefinementOption {
	if t.Type != Define || t.Params == nil {
		return nil
	}
	return t.Params.Options
}

// Validate checks variant-specific structural rules. It does not
// recurse into informational variants — those round-trip unchanged.
func (t *Task) Validate() error {
	if !t.Type.Known() {
		return fmt.Errorf("unknown task type %q", t.Type)
	}
	switch t.Type {
	case Define:
		if len(t.Options()) == 0 {
			return fmt.Errorf("define task %q has no options", t.Action)
		}
		for i, opt := range t.Options() {
			if opt.Name == "" {
				return fmt.Errorf("define task %q option %d has no name", t.Action, i)
			}
		}
	case Group:
		for i := range t.Subtasks {
			if err := t.Subtasks[i].Validate(); err != nil {
				return fmt.Errorf("subtask %d: %w", i, err)
			}
		}
	}
	return nil
}

// Slugify lowercases a bare user-facing phrase and joins words with
// hyphens, for use as an execution action when a Define option carries
// no distinct command field. Command strings proper are never slugified
// — they are used verbatim to preserve paths, URLs and casing.
func Slugify(phrase string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(phrase)))
	return strings.Join(fields, "-")
}
