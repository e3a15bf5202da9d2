package goal

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// payloadSchema constrains a Goal JSON payload loaded from .sunwell/
// (e.g. a `resume --goal` argument, or a goal attached to a briefing)
// before the Planner or Guardrails are allowed to trust it.
const payloadSchema = `{
	"type": "object",
	"required": ["id", "description", "category", "complexity"],
	"properties": {
		"id": {"type": "string", "minLength": 1},
		"description": {"type": "string", "minLength": 1},
		"category": {"enum": ["fix", "test", "feature", "document"]},
		"complexity": {"enum": ["trivial", "simple", "moderate", "complex"]},
		"lens": {"type": "string"},
		"file_hints": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["path"],
				"properties": {
					"path": {"type": "string"},
					"reason": {"type": "string"}
				}
			}
		}
	}
}`

var compiledPayloadSchema *jsonschema.Schema

func schema() (*jsonschema.Schema, error) {
	if compiledPayloadSchema != nil {
		return compiledPayloadSchema, nil
	}
	var doc any
	if err := json.Unmarshal([]byte(payloadSchema), &doc); err != nil {
		return nil, fmt.Errorf("goal: unmarshal schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("goal.json", doc); err != nil {
		return nil, fmt.Errorf("goal: add schema resource: %w", err)
	}
	s, err := c.Compile("goal.json")
	if err != nil {
		return nil, fmt.Errorf("goal: compile schema: %w", err)
	}
	compiledPayloadSchema = s
	return s, nil
}

// rawGoal mirrors Goal's wire shape for JSON payloads read from disk,
// independent of the in-memory struct's field names.
type rawGoal struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Complexity  string     `json:"complexity"`
	Lens        string     `json:"lens"`
	FileHints   []FileHint `json:"file_hints"`
}

// ParseAndValidate decodes raw as a Goal payload, validates it against
// payloadSchema, and returns the resulting immutable Goal. Used by the
// CLI's `resume` and `autonomous` intake, which read a goal description
// off disk or from a flag rather than constructing a Goal in-process.
func ParseAndValidate(raw []byte) (Goal, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Goal{}, fmt.Errorf("goal: unmarshal payload: %w", err)
	}
	s, err := schema()
	if err != nil {
		return Goal{}, err
	}
	if err := s.Validate(doc); err != nil {
		return Goal{}, fmt.Errorf("goal: payload failed validation: %w", err)
	}

	var rg rawGoal
	if err := json.Unmarshal(raw, &rg); err != nil {
		return Goal{}, fmt.Errorf("goal: decode payload: %w", err)
	}
	return Goal{
		ID:          rg.ID,
		Description: rg.Description,
		Category:    Category(rg.Category),
		Complexity:  Complexity(rg.Complexity),
		Lens:        rg.Lens,
		FileHints:   rg.FileHints,
	}, nil
}
