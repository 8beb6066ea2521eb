package parse

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/simforge/worldsim/core"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Decision is an actor's per-round decision payload: the actions it wants to
// schedule and the messages it wants to send.
type Decision struct {
	Actions  []DecisionAction  `json:"actions"`
	Messages []DecisionMessage `json:"messages"`
}

// DecisionAction is one action request inside a decision.
type DecisionAction struct {
	Action       string `json:"action"`
	Reasoning    string `json:"reasoning"`
	ExecuteRound int    `json:"execute_round"`
	Duration     int    `json:"duration"`
}

// DecisionMessage is one outbound message inside a decision. DeliverRound
// zero means deliver next round.
type DecisionMessage struct {
	ToActorID    string `json:"to_actor_id"`
	Content      string `json:"content"`
	Reasoning    string `json:"reasoning"`
	DeliverRound int    `json:"deliver_round"`
}

// WorldUpdate is the world collaborator's account of a resolved round.
type WorldUpdate struct {
	WorldStateUpdate      WorldStateUpdate  `json:"world_state_update"`
	ActionResults         []ActionNarrative `json:"action_results"`
	ActorUpdates          []ActorUpdate     `json:"actor_updates"`
	ContinueSimulation    bool              `json:"continue_simulation"`
	ContinuationReasoning string            `json:"continuation_reasoning"`
}

// WorldStateUpdate summarizes the shared world after a round.
type WorldStateUpdate struct {
	Summary              string   `json:"summary"`
	KeyChanges           []string `json:"key_changes"`
	EmergentDevelopments []string `json:"emergent_developments"`
}

// ActionNarrative is the collaborator's narrative for one executed action,
// matched back to the scheduled record by actor id.
type ActionNarrative struct {
	ActorID     string `json:"actor_id"`
	Action      string `json:"action"`
	Explanation string `json:"explanation"`
}

// ActorUpdate carries the per-actor consequences of a round.
type ActorUpdate struct {
	ActorID         string       `json:"actor_id"`
	Observations    []string     `json:"observations"`
	DirectImpacts   []string     `json:"direct_impacts"`
	IndirectImpacts []string     `json:"indirect_impacts"`
	StateChanges    StateChanges `json:"state_changes"`
}

// StateChanges lists capability and resource deltas for one actor.
// Eliminated removes the actor from the active set for all future rounds.
type StateChanges struct {
	EnabledActions  []string       `json:"enabled_actions"`
	DisabledActions []string       `json:"disabled_actions"`
	Resources       map[string]any `json:"resources"`
	Constraints     []string       `json:"constraints"`
	Eliminated      bool           `json:"eliminated"`
}

const decisionSchema = `{
  "type": "object",
  "properties": {
    "actions": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "action": {"type": "string", "minLength": 1},
          "reasoning": {"type": "string"},
          "execute_round": {"type": "integer", "minimum": 0},
          "duration": {"type": "integer", "minimum": 1}
        },
        "required": ["action", "execute_round", "duration"]
      }
    },
    "messages": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "to_actor_id": {"type": "string", "minLength": 1},
          "content": {"type": "string", "minLength": 1},
          "reasoning": {"type": "string"},
          "deliver_round": {"type": "integer", "minimum": 0}
        },
        "required": ["to_actor_id", "content"]
      }
    }
  },
  "required": ["actions", "messages"]
}`

const worldUpdateSchema = `{
  "type": "object",
  "properties": {
    "world_state_update": {
      "type": "object",
      "properties": {
        "summary": {"type": "string"},
        "key_changes": {"type": "array", "items": {"type": "string"}},
        "emergent_developments": {"type": "array", "items": {"type": "string"}}
      },
      "required": ["summary"]
    },
    "action_results": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "actor_id": {"type": "string", "minLength": 1},
          "action": {"type": "string"},
          "explanation": {"type": "string"}
        },
        "required": ["actor_id"]
      }
    },
    "actor_updates": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "actor_id": {"type": "string", "minLength": 1},
          "observations": {"type": "array", "items": {"type": "string"}},
          "direct_impacts": {"type": "array", "items": {"type": "string"}},
          "indirect_impacts": {"type": "array", "items": {"type": "string"}},
          "state_changes": {"type": "object"}
        },
        "required": ["actor_id"]
      }
    },
    "continue_simulation": {"type": "boolean"}
  },
  "required": ["world_state_update", "continue_simulation"]
}`

var (
	compiledDecisionSchema    = jsonschema.MustCompileString("decision.json", decisionSchema)
	compiledWorldUpdateSchema = jsonschema.MustCompileString("world_update.json", worldUpdateSchema)
)

// DecodeDecision cleans a raw model response and decodes it into a Decision.
// Absent actions or messages arrays default to empty so a minimal response
// like {} still validates after defaulting.
func DecodeDecision(raw string) (*Decision, error) {
	doc, err := Clean(raw)
	if err != nil {
		return nil, err
	}
	doc = defaultArray(doc, "actions")
	doc = defaultArray(doc, "messages")
	if err := validate(compiledDecisionSchema, doc); err != nil {
		return nil, fmt.Errorf("%w: decision rejected by schema: %v", core.ErrUnparseableResponse, err)
	}
	var d Decision
	if err := json.Unmarshal([]byte(doc), &d); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrUnparseableResponse, err)
	}
	return &d, nil
}

// DecodeWorldUpdate cleans a raw model response and decodes it into a
// WorldUpdate. A missing continue flag defaults to true so a degraded
// response never terminates the simulation by accident.
func DecodeWorldUpdate(raw string) (*WorldUpdate, error) {
	doc, err := Clean(raw)
	if err != nil {
		return nil, err
	}
	doc = defaultArray(doc, "action_results")
	doc = defaultArray(doc, "actor_updates")
	if !gjson.Get(doc, "continue_simulation").Exists() {
		doc, _ = sjson.Set(doc, "continue_simulation", true)
	}
	if err := validate(compiledWorldUpdateSchema, doc); err != nil {
		return nil, fmt.Errorf("%w: world update rejected by schema: %v", core.ErrUnparseableResponse, err)
	}
	var u WorldUpdate
	if err := json.Unmarshal([]byte(doc), &u); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrUnparseableResponse, err)
	}
	return &u, nil
}

func defaultArray(doc, key string) string {
	if gjson.Get(doc, key).Exists() {
		return doc
	}
	out, err := sjson.SetRaw(doc, key, "[]")
	if err != nil {
		return doc
	}
	return out
}

func validate(schema *jsonschema.Schema, doc string) error {
	var v any
	if err := json.Unmarshal([]byte(doc), &v); err != nil {
		return err
	}
	return schema.Validate(v)
}
