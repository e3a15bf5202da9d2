// Package memory defines the Persistent Memory facade: append-only
// decisions/failures/learnings plus a cross-cutting MemoryContext query
// used by Orient and the Harmonic Planner.
package memory

import "time"

// Decision is a persistent, append-only architectural choice recorded
// during Learn.
type Decision struct {
	Category        string
	Question        string
	ChosenOption    string
	RejectedOptions []RejectedOption
	Rationale       string
	CreatedAt       time.Time
}

// RejectedOption names an alternative and why it was not chosen; these
// feed the planner's "DO NOT: <reason>" constraint injection.
type RejectedOption struct {
	Option string
	Reason string
}

// FailedApproach is a persistent, append-only record of an unsuccessful
// attempt at a target path. A failure is only promoted to this record
// after the same path has failed twice within one run.
type FailedApproach struct {
	Description string
	ErrorKind   string
	RootCause   string
	Context     string
	CreatedAt   time.Time
}

// Learning is a fact distilled from a run. It may be superseded by a
// later Learning but is never edited in place.
type Learning struct {
	Fact       string
	Category   string
	Confidence float64
	Sources    []string
	CreatedAt  time.Time
}

// Pattern is a recurring structural observation about the workspace
// (e.g. "tests live under <pkg>_test.go"), stored as
// intelligence/patterns.yaml.
type Pattern struct {
	Name        string
	Description string
	Examples    []string
}

// TeamRecord is an optional shared decision visible across sessions,
// structurally identical to Decision.
type TeamRecord = Decision

// Context aggregates everything Orient needs to seed a run: constraints
// derived from decisions' rejected options, dead ends from failures,
// team decisions, learnings, and patterns.
type Context struct {
	Constraints []RejectedOption
	DeadEnds    []FailedApproach
	Team        []TeamRecord
	Learnings   []Learning
	Patterns    []Pattern
}

// ConstraintLines renders constraints as "DO NOT: <option> — <reason>"
// prompt lines for the Harmonic Planner.
func (c Context) ConstraintLines() []string {
	lines := make([]string, 0, len(c.Constraints))
	for _, r := range c.Constraints {
		line := "DO NOT: " + r.Reason
		if r.Option != "" {
			line = "DO NOT: " + r.Option + " — " + r.Reason
		}
		lines = append(lines, line)
	}
	return lines
}

// DeadEndLines renders dead ends as "AVOID: <description>" prompt lines.
func (c Context) DeadEndLines() []string {
	lines := make([]string, 0, len(c.DeadEnds))
	for _, f := range c.DeadEnds {
		lines = append(lines, "AVOID: "+f.Description)
	}
	return lines
}

// TeamLines renders team decisions as "FOLLOW: <chosen option>" lines.
func (c Context) TeamLines() []string {
	lines := make([]string, 0, len(c.Team))
	for _, d := range c.Team {
		lines = append(lines, "FOLLOW: "+d.ChosenOption)
	}
	return lines
}

// TopLearnings returns at most k learnings, highest confidence first.
func (c Context) TopLearnings(k int) []Learning {
	sorted := make([]Learning, len(c.Learnings))
	copy(sorted, c.Learnings)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].Confidence > sorted[j-1].Confidence; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	if k > len(sorted) {
		k = len(sorted)
	}
	return sorted[:k]
}

// Store is the durable-write side of the Persistent Memory facade. A
// workspace has exactly one Store, shared across runs via
// WorkspaceManager.
type Store interface {
	AddDecision(d Decision) error
	AddFailure(f FailedApproach) error
	AddLearning(l Learning) error
	Patterns() ([]Pattern, error)
	GetRelevant(goalDescription string) (Context, error)
	// Sync flushes any buffered state to durable storage. Idempotent.
	Sync() error
}
