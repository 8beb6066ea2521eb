package oracle

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecisionSystemPrompt frames the decision oracle's role and the response
// contract shared by every provider adapter.
const DecisionSystemPrompt = `You are the decision-maker for a single actor in a round-based world simulation.
Given the actor's profile, current state, and incoming messages, decide what the actor does next.

Respond with a single JSON object and nothing else:
{
  "actions": [{"action": "...", "reasoning": "...", "execute_round": N, "duration": N}],
  "messages": [{"to_actor_id": "...", "content": "...", "reasoning": "...", "deliver_round": N}]
}

Rules:
- execute_round must be the current round or later; duration is in rounds, minimum 1.
- Schedule at most the allowed number of actions and messages.
- Keep each action under 100 characters and each message under 200 characters.
- If the actor is already executing a multi-round action, do not schedule another one that overlaps it.
- Empty arrays are valid: an actor may wait.`

// ResolutionSystemPrompt frames the world oracle's role. Mechanical outcomes
// are already decided; the oracle narrates consequences, never verdicts.
const ResolutionSystemPrompt = `You are the world narrator for a round-based simulation.
Each action's success or failure has already been determined mechanically; you describe consequences, you never change verdicts.

Respond with a single JSON object and nothing else:
{
  "world_state_update": {"summary": "...", "key_changes": ["..."], "emergent_developments": ["..."]},
  "action_results": [{"actor_id": "...", "action": "...", "explanation": "..."}],
  "actor_updates": [{"actor_id": "...", "observations": ["..."], "direct_impacts": ["..."], "indirect_impacts": ["..."],
                     "state_changes": {"enabled_actions": ["..."], "disabled_actions": ["..."], "resources": {}, "constraints": ["..."]}}],
  "continue_simulation": true,
  "continuation_reasoning": "..."
}

Set continue_simulation to false only when the scenario has reached a natural end state.
An actor that can no longer participate (defeated, departed, absorbed) gets "eliminated": true in its state_changes; it leaves the simulation permanently.`

// RenderDecisionUser builds the user message for a decision request: the
// request context serialized as indented JSON under a short header.
func RenderDecisionUser(req DecisionRequest) (string, error) {
	ctx := map[string]any{
		"round":         req.Round,
		"actor":         req.Actor,
		"state":         req.State,
		"world_summary": req.WorldSummary,
		"messages":      req.Messages,
		"max_actions":   req.MaxActions,
		"max_messages":  req.MaxMessages,
	}
	if req.ActiveAction != nil {
		ctx["active_action"] = req.ActiveAction
	}
	return renderContext(fmt.Sprintf("Decide for round %d.", req.Round), ctx)
}

// RenderResolutionUser builds the user message for a resolution request.
func RenderResolutionUser(req ResolutionRequest) (string, error) {
	ctx := map[string]any{
		"round":              req.Round,
		"scenario":           req.Scenario,
		"world_summary":      req.WorldSummary,
		"action_results":     req.Results,
		"completed_actions":  req.Completions,
		"delivered_messages": req.Delivered,
		"actors":             req.ActorProfiles,
	}
	return renderContext(fmt.Sprintf("Narrate round %d.", req.Round), ctx)
}

func renderContext(header string, ctx map[string]any) (string, error) {
	data, err := json.MarshalIndent(ctx, "", "  ")
	if err != nil {
		return "", fmt.Errorf("render prompt context: %w", err)
	}
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\n")
	b.Write(data)
	return b.String(), nil
}
