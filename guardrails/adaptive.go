package guardrails

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// GuardViolation is an append-only record of a classifier decision.
// UserFeedback is nil when no feedback was given.
type GuardViolation struct {
	GuardID      string    `json:"guard_id"`
	Timestamp    time.Time `json:"timestamp"`
	Context      string    `json:"context"`
	ActionTaken  string    `json:"action_taken"`
	UserFeedback *string   `json:"user_feedback,omitempty"`
}

// EvolutionKind is the closed set of adaptive-guard suggestions.
type EvolutionKind string

const (
	EvolutionRefinePattern EvolutionKind = "refine_pattern"
	EvolutionAddException  EvolutionKind = "add_exception"
	EvolutionRelaxRisk     EvolutionKind = "relax_risk"
)

// GuardEvolution is a suggestion emitted by the periodic analyzer.
type GuardEvolution struct {
	Kind        EvolutionKind
	GuardID     string
	Suggestion  string
	AutoApplied bool
}

// ViolationLog appends GuardViolation records to
// .sunwell/guardrails/violations.jsonl.
type ViolationLog struct {
	path string
}

// OpenViolationLog prepares a log rooted at workspaceRoot/.sunwell/guardrails.
func OpenViolationLog(workspaceRoot string) (*ViolationLog, error) {
	dir := filepath.Join(workspaceRoot, ".sunwell", "guardrails")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &ViolationLog{path: filepath.Join(dir, "violations.jsonl")}, nil
}

// Record appends one violation.
func (l *ViolationLog) Record(v GuardViolation) error {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(v)
}

// All reads every recorded violation.
func (l *ViolationLog) All() ([]GuardViolation, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []GuardViolation
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var v GuardViolation
		if err := json.Unmarshal(scanner.Bytes(), &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, scanner.Err()
}

// Analyzer periodically scans the violation log for patterns and emits
// GuardEvolution suggestions, auto-applying only Safe-zone relaxations;
// all others require human confirmation.
type Analyzer struct {
	log *ViolationLog
}

// NewAnalyzer constructs an Analyzer over a ViolationLog.
func NewAnalyzer(log *ViolationLog) *Analyzer {
	return &Analyzer{log: log}
}

// Analyze groups violations by guard id and, when a guard has
// accumulated repeated occurrences with no negative feedback, suggests
// relaxing it. Only suggestions for guards whose id is prefixed
// "safe/" are marked auto-applied; everything else needs confirmation.
func (a *Analyzer) Analyze(minOccurrences int) ([]GuardEvolution, error) {
	violations, err := a.log.All()
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	negativeFeedback := make(map[string]bool)
	for _, v := range violations {
		counts[v.GuardID]++
		if v.UserFeedback != nil && *v.UserFeedback == "incorrect" {
			negativeFeedback[v.GuardID] = true
		}
	}

	var suggestions []GuardEvolution
	for guardID, count := range counts {
		if count < minOccurrences || negativeFeedback[guardID] {
			continue
		}
		autoApply := len(guardID) >= 5 && guardID[:5] == "safe/"
		suggestions = append(suggestions, GuardEvolution{
			Kind:        EvolutionRelaxRisk,
			GuardID:     guardID,
			Suggestion:  "repeated benign triggers, consider relaxing",
			AutoApplied: autoApply,
		})
	}
	return suggestions, nil
}
