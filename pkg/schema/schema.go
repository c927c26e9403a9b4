// Package schema defines the expected output shapes for LLM calls and
// validates provider payloads against them. Validation is uniform: it does not
// matter which provider produced the payload.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Enumerations shared between the output shapes and payload normalization.
var (
	// Intents are the known dialogue intent categories.
	Intents = []string{
		"payment_issue",
		"technical_error",
		"account_access",
		"tariff_question",
		"refund_request",
		"other",
	}

	// Satisfactions are the known customer satisfaction levels.
	Satisfactions = []string{"satisfied", "neutral", "unsatisfied"}

	// AgentMistakes are the known agent mistake categories.
	AgentMistakes = []string{
		"ignored_question",
		"incorrect_info",
		"rude_tone",
		"no_resolution",
		"unnecessary_escalation",
	}

	// Speakers are the two dialogue participants.
	Speakers = []string{"user", "agent"}
)

// Shape is a compiled expected-output contract for one kind of LLM request.
type Shape struct {
	name     string
	doc      string
	compiled *jsonschema.Schema
}

// New compiles a shape from a JSON Schema document.
func New(name, doc string) (*Shape, error) {
	compiled, err := jsonschema.CompileString(name+".json", doc)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s shape: %w", name, err)
	}
	return &Shape{name: name, doc: doc, compiled: compiled}, nil
}

// MustNew compiles a shape and panics on error. For package-level shapes only.
func MustNew(name, doc string) *Shape {
	s, err := New(name, doc)
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the shape's identifier.
func (s *Shape) Name() string {
	return s.name
}

// Doc returns the raw JSON Schema document, suitable for forwarding to a
// provider as part of the request.
func (s *Shape) Doc() json.RawMessage {
	return json.RawMessage(s.doc)
}

// Validate checks a raw provider payload against the shape. A payload that is
// not valid JSON or does not satisfy the schema returns an error; the caller
// decides whether to fall back to another provider.
func (s *Shape) Validate(raw json.RawMessage) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("%s payload is not valid JSON: %w", s.name, err)
	}
	if err := s.compiled.Validate(v); err != nil {
		return fmt.Errorf("%s payload rejected: %w", s.name, err)
	}
	return nil
}

func enumJSON(values []string) string {
	b, _ := json.Marshal(values)
	return string(b)
}

// Dialogue is the expected shape of a generated support dialogue: an object
// holding an alternating sequence of user/agent turns.
var Dialogue = MustNew("dialogue", fmt.Sprintf(`{
	"type": "object",
	"required": ["dialogue"],
	"properties": {
		"dialogue": {
			"type": "array",
			"minItems": 2,
			"items": {
				"type": "object",
				"required": ["speaker", "text"],
				"properties": {
					"speaker": {"enum": %s},
					"text": {"type": "string", "minLength": 1}
				}
			}
		}
	}
}`, enumJSON(Speakers)))

// Analysis is the expected shape of a dialogue analysis payload.
var Analysis = MustNew("analysis", fmt.Sprintf(`{
	"type": "object",
	"required": ["intent", "satisfaction", "quality_score", "agent_mistakes"],
	"properties": {
		"intent": {"enum": %s},
		"satisfaction": {"enum": %s},
		"quality_score": {"type": "integer", "minimum": 1, "maximum": 5},
		"agent_mistakes": {
			"type": "array",
			"items": {"enum": %s}
		}
	}
}`, enumJSON(Intents), enumJSON(Satisfactions), enumJSON(AgentMistakes)))
