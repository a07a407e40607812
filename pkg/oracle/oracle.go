// Package oracle defines the planning-oracle contract: the external
// natural-language planning service that turns free text into a task
// list or command list, plus response validation against the shape
// each tool kind requires.
package oracle

import (
	"context"
	"encoding/json"

	"github.com/planrun/planrun/pkg/executor"
	"github.com/planrun/planrun/pkg/task"
)

// ToolKind selects the planning mode and therefore the response shape
// the oracle must produce.
type ToolKind string

const (
	// KindExecute plans concrete shell operations.
	KindExecute ToolKind = "execute"
	// KindAnswer answers a question without executing anything.
	KindAnswer ToolKind = "answer"
	// KindIntrospect reports the assistant's own capabilities.
	KindIntrospect ToolKind = "introspect"
	// KindReport produces a status report.
	KindReport ToolKind = "report"
	// KindSchedule proposes scheduled work.
	KindSchedule ToolKind = "schedule"
	// KindConfig proposes configuration changes.
	KindConfig ToolKind = "config"
)

// Kinds lists every tool kind.
var Kinds = []ToolKind{KindExecute, KindAnswer, KindIntrospect, KindReport, KindSchedule, KindConfig}

// Known reports whether k is a declared kind.
func (k ToolKind) Known() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Origin classifies where a reported capability comes from.
type Origin string

const (
	OriginBuiltin Origin = "builtin"
	OriginPlugin  Origin = "plugin"
	OriginLearned Origin = "learned"
)

// Origins is the fixed set of valid capability origins.
var Origins = []Origin{OriginBuiltin, OriginPlugin, OriginLearned}

// Capability is one entry of an introspect response.
type Capability struct {
	Name        string `json:"name"        jsonschema:"required"`
	Description string `json:"description" jsonschema:"required"`
	// Origin membership is enforced by the domain validation phase so
	// the error can name the exact entry.
	Origin Origin `json:"origin" jsonschema:"required"`
}

// PlanResponse is the oracle's reply to one planning request.
type PlanResponse struct {
	// Message is the conversational text shown to the user.
	Message string `json:"message" jsonschema:"required"`

	// Summary optionally seeds the execution completion message.
	Summary string `json:"summary,omitempty"`

	// Tasks is the plan as a task list, possibly containing Define
	// choice groups that require refinement.
	Tasks []task.Task `json:"tasks,omitempty"`

	// Commands is the plan as an already-concrete command list.
	Commands []executor.ExecutionCommand `json:"commands,omitempty"`

	// Question and Answer are required for the answer kind.
	Question string `json:"question,omitempty"`
	Answer   string `json:"answer,omitempty"`

	// Capabilities are required for the introspect kind.
	Capabilities []Capability `json:"capabilities,omitempty"`

	// Debug carries opaque diagnostic items for the timeline.
	Debug []json.RawMessage `json:"debug,omitempty"`
}

// Planner is the external planning service.
type Planner interface {
	Plan(ctx context.Context, instructions string, kind ToolKind) (*PlanResponse, error)
}
