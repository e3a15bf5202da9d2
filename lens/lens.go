// Package lens defines the read-only per-category policy profile every
// engine consults instead of hard-coding thresholds: scoring weight
// hints, spawn permissions and budgets, and auto-approve policy.
package lens

import (
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/sunwell-ai/core/goal"
)

// ScoreWeights is the Harmonic Planner's per-dimension weight vector.
// Weights need not sum to 1; the planner normalizes.
type ScoreWeights struct {
	Coverage float64 `yaml:"coverage"`
	Locality float64 `yaml:"locality"`
	Risk     float64 `yaml:"risk"`
	Novelty  float64 `yaml:"novelty"`
}

// DefaultScoreWeights is the vector used when a Lens does not override it.
var DefaultScoreWeights = ScoreWeights{Coverage: 0.4, Locality: 0.25, Risk: 0.25, Novelty: 0.1}

// AutoApprovePolicy allows a lens to widen or narrow which
// category/complexity combinations may be auto-approved by the
// Verification Gate without additional human confirmation.
type AutoApprovePolicy struct {
	Categories []goal.Category   `yaml:"categories"`
	Complexity []goal.Complexity `yaml:"complexity"`
}

// Allows reports whether the policy covers the given goal shape.
func (p AutoApprovePolicy) Allows(category goal.Category, complexity goal.Complexity) bool {
	categoryOK := len(p.Categories) == 0
	for _, c := range p.Categories {
		if c == category {
			categoryOK = true
			break
		}
	}
	complexityOK := len(p.Complexity) == 0
	for _, c := range p.Complexity {
		if c == complexity {
			complexityOK = true
			break
		}
	}
	return categoryOK && complexityOK
}

// Lens is a read-only policy profile, loaded once per workspace and
// shared by value across planner, spawner, and guardrail components.
type Lens struct {
	Name              string            `yaml:"name"`
	Weights           ScoreWeights      `yaml:"weights"`
	CanSpawn          bool              `yaml:"can_spawn"`
	MaxChildren       int               `yaml:"max_children"`
	SpawnBudgetTokens int               `yaml:"spawn_budget_tokens"`
	AutoApprove       AutoApprovePolicy `yaml:"auto_approve"`
}

// Default returns the built-in lens used when a workspace defines none.
func Default() Lens {
	return Lens{
		Name:              "default",
		Weights:           DefaultScoreWeights,
		CanSpawn:          true,
		MaxChildren:       3,
		SpawnBudgetTokens: 5000,
		AutoApprove: AutoApprovePolicy{
			Categories: []goal.Category{goal.CategoryTest, goal.CategoryDocument},
		},
	}
}

// ResolvedWeights returns the lens's weights, falling back to
// DefaultScoreWeights when the lens leaves the vector entirely zeroed.
func (l Lens) ResolvedWeights() ScoreWeights {
	w := l.Weights
	if w.Coverage == 0 && w.Locality == 0 && w.Risk == 0 && w.Novelty == 0 {
		return DefaultScoreWeights
	}
	return w
}

// documentSchema constrains a Lens document loaded from disk before it is
// trusted by the Planner or Guardrails; a malformed one must not silently
// become the default.
const documentSchema = `{
	"type": "object",
	"required": ["name"],
	"properties": {
		"name": {"type": "string", "minLength": 1},
		"can_spawn": {"type": "boolean"},
		"max_children": {"type": "integer", "minimum": 0},
		"spawn_budget_tokens": {"type": "integer", "minimum": 0},
		"weights": {
			"type": "object",
			"properties": {
				"coverage": {"type": "number"},
				"locality": {"type": "number"},
				"risk": {"type": "number"},
				"novelty": {"type": "number"}
			}
		}
	}
}`

var compiledDocumentSchema *jsonschema.Schema

func schema() (*jsonschema.Schema, error) {
	if compiledDocumentSchema != nil {
		return compiledDocumentSchema, nil
	}
	var doc any
	if err := yaml.Unmarshal([]byte(documentSchema), &doc); err != nil {
		return nil, fmt.Errorf("lens: unmarshal schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("lens.json", doc); err != nil {
		return nil, fmt.Errorf("lens: add schema resource: %w", err)
	}
	s, err := c.Compile("lens.json")
	if err != nil {
		return nil, fmt.Errorf("lens: compile schema: %w", err)
	}
	compiledDocumentSchema = s
	return s, nil
}

// Load reads a Lens from a YAML file, the format workspaces use under
// .sunwell/config.yaml's `lenses:` section or standalone lens files,
// validating its shape against documentSchema before unmarshaling it
// into the typed struct.
func Load(path string) (Lens, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Lens{}, err
	}

	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Lens{}, err
	}
	s, err := schema()
	if err != nil {
		return Lens{}, err
	}
	if err := s.Validate(doc); err != nil {
		return Lens{}, fmt.Errorf("lens: %s failed validation: %w", path, err)
	}

	var l Lens
	if err := yaml.Unmarshal(raw, &l); err != nil {
		return Lens{}, err
	}
	return l, nil
}
