package oracle

import (
	"context"
	"encoding/json"
	"fmt"
)

// Compile-time interface checks.
var (
	_ Decision = (*StaticDecision)(nil)
	_ World    = (*StaticWorld)(nil)
)

// StaticDecision is a canned decision oracle for tests, examples, and
// offline runs. With no Responses configured every actor waits.
type StaticDecision struct {
	// Responses maps actor id to the raw response returned for that actor.
	Responses map[string]string
	// Err, when set, is returned for every call.
	Err error
}

// Decide returns the canned response for the actor, or an empty decision.
func (s *StaticDecision) Decide(_ context.Context, req DecisionRequest) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	if resp, ok := s.Responses[req.Actor.ID]; ok {
		return resp, nil
	}
	return `{"actions": [], "messages": []}`, nil
}

// Info implements Decision.
func (s *StaticDecision) Info() Info {
	return Info{Name: "static", Provider: "static"}
}

// StaticWorld is a canned world oracle. It echoes the mechanical results
// back as narration and continues the simulation unless configured otherwise.
type StaticWorld struct {
	// Summary overrides the generated world summary when non-empty.
	Summary string
	// Halt ends the simulation after the next resolved round.
	Halt bool
	// Err, when set, is returned for every call.
	Err error
}

// Resolve implements World.
func (s *StaticWorld) Resolve(_ context.Context, req ResolutionRequest) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	summary := s.Summary
	if summary == "" {
		summary = fmt.Sprintf("Round %d resolved with %d action(s).", req.Round, len(req.Results)+len(req.Completions))
	}
	results := make([]map[string]string, 0, len(req.Results)+len(req.Completions))
	for _, r := range append(req.Results, req.Completions...) {
		results = append(results, map[string]string{
			"actor_id":    r.ActorID,
			"action":      r.Action,
			"explanation": r.Explanation,
		})
	}
	payload := map[string]any{
		"world_state_update": map[string]any{
			"summary":               summary,
			"key_changes":           []string{},
			"emergent_developments": []string{},
		},
		"action_results":         results,
		"actor_updates":          []any{},
		"continue_simulation":    !s.Halt,
		"continuation_reasoning": "static world oracle",
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Info implements World.
func (s *StaticWorld) Info() Info {
	return Info{Name: "static", Provider: "static"}
}
