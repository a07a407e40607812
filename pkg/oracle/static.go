package oracle

import (
	"context"
	"sync"
)

// StaticPlanner is a Planner test double returning a canned response
// (or error) and recording the instructions it was asked to plan.
type StaticPlanner struct {
	Response *PlanResponse
	Err      error

	mu       sync.Mutex
	requests []string
}

// Plan returns the canned response after validating it against the
// requested kind, so tests exercise the same contract real planners do.
func (s *StaticPlanner) Plan(ctx context.Context, instructions string, kind ToolKind) (*PlanResponse, error) {
	s.mu.Lock()
	s.requests = append(s.requests, instructions)
	s.mu.Unlock()

	if s.Err != nil {
		return nil, s.Err
	}
	if s.Response == nil {
		return &PlanResponse{Message: "ok"}, nil
	}
	if err := Validate(s.Response, kind); err != nil {
		return nil, err
	}
	return s.Response, nil
}

// Requests returns the instructions planned so far, in order.
func (s *StaticPlanner) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}
