// Package events defines Sunwell's closed event vocabulary and the bus that
// fans events out to subscribers. Every engine in the execution core
// (orchestrator, planner, spawner, convergence, guardrails) emits events
// through this package instead of logging directly, so that a run's full
// history can be replayed, persisted, and streamed to a caller.
package events

import "time"

// Type is the closed set of event kinds a run can emit. New values must be
// added here; consumers switch exhaustively over Type and an unrecognized
// value is a bug, not a silently ignored case.
type Type string

// Severity classifies how prominently a UI should surface an event.
type Severity string

const (
	// SeverityInfo is routine progress.
	SeverityInfo Severity = "info"
	// SeverityWarn indicates a recoverable but noteworthy condition.
	SeverityWarn Severity = "warn"
	// SeverityError indicates a failure that affected the run.
	SeverityError Severity = "error"
	// SeverityCritical indicates a forbidden/dangerous action or unrecoverable fault.
	SeverityCritical Severity = "critical"
)

// Event type constants, grouped by run phase; a consumer rendering a
// timeline can group on these prefixes.
const (
	Signal Type = "SIGNAL"

	Orient           Type = "ORIENT"
	PrefetchStart    Type = "PREFETCH_START"
	PrefetchComplete Type = "PREFETCH_COMPLETE"
	PrefetchTimeout  Type = "PREFETCH_TIMEOUT"

	PlanStart              Type = "PLAN_START"
	PlanCandidateStart     Type = "PLAN_CANDIDATE_START"
	PlanCandidateGenerated Type = "PLAN_CANDIDATE_GENERATED"
	PlanCandidatesComplete Type = "PLAN_CANDIDATES_COMPLETE"
	PlanCandidateScored    Type = "PLAN_CANDIDATE_SCORED"
	PlanScoringComplete    Type = "PLAN_SCORING_COMPLETE"
	PlanRefineStart        Type = "PLAN_REFINE_START"
	PlanRefineAttempt      Type = "PLAN_REFINE_ATTEMPT"
	PlanRefineComplete     Type = "PLAN_REFINE_COMPLETE"
	PlanRefineFinal        Type = "PLAN_REFINE_FINAL"
	PlanComplete           Type = "PLAN_COMPLETE"

	TaskStart    Type = "TASK_START"
	TaskComplete Type = "TASK_COMPLETE"

	SpecialistSpawned   Type = "SPECIALIST_SPAWNED"
	SpecialistCompleted Type = "SPECIALIST_COMPLETED"

	ValidationStart  Type = "VALIDATION_START"
	ValidationPassed Type = "VALIDATION_PASSED"
	ValidationFailed Type = "VALIDATION_FAILED"

	ConvergenceStart           Type = "CONVERGENCE_START"
	ConvergenceIterationStart  Type = "CONVERGENCE_ITERATION_START"
	ConvergenceIterationDone   Type = "CONVERGENCE_ITERATION_COMPLETE"
	ConvergenceFixing          Type = "CONVERGENCE_FIXING"
	ConvergenceStable          Type = "CONVERGENCE_STABLE"
	ConvergenceTimeout         Type = "CONVERGENCE_TIMEOUT"
	ConvergenceStuck           Type = "CONVERGENCE_STUCK"
	ConvergenceMaxIterations   Type = "CONVERGENCE_MAX_ITERATIONS"
	ConvergenceBudgetExceeded  Type = "CONVERGENCE_BUDGET_EXCEEDED"

	LearningAdded    Type = "LEARNING_ADDED"
	DecisionMade     Type = "DECISION_MADE"
	FailureRecorded  Type = "FAILURE_RECORDED"

	CheckpointFound Type = "CHECKPOINT_FOUND"
	CheckpointSaved Type = "CHECKPOINT_SAVED"

	PhaseComplete Type = "PHASE_COMPLETE"
	Escalate      Type = "ESCALATE"
	Complete      Type = "COMPLETE"
	Error         Type = "ERROR"
	Cancelled     Type = "CANCELLED"
)

// UIHints carries presentation-only metadata a terminal/Studio front end may
// use to render an event (icon, animation). The core never interprets these
// values; they are opaque tags set by the emitting component.
type UIHints struct {
	Icon      string `json:"icon,omitempty"`
	Animation string `json:"animation,omitempty"`
}

// Event is the common envelope for everything streamed out of a run. Data
// remains an open-schema map at the wire/persistence boundary; typed
// accessors live next to each emitting
// package (e.g. planner.CandidateScoredData).
type Event struct {
	Type         Type           `json:"type"`
	Data         map[string]any `json:"data,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
	RunID        string         `json:"run_id,omitempty"`
	SpecialistID string         `json:"specialist_id,omitempty"`
	Severity     Severity       `json:"severity,omitempty"`
	UI           *UIHints       `json:"ui,omitempty"`
}

// New constructs an Event with the current time and the given type/data. The
// caller typically overrides RunID/SpecialistID/Severity for the call site.
func New(t Type, data map[string]any) Event {
	return Event{Type: t, Data: data, Timestamp: time.Now().UTC()}
}

// WithSeverity returns a copy of the event with Severity set.
func (e Event) WithSeverity(s Severity) Event {
	e.Severity = s
	return e
}

// WithRun returns a copy of the event tagged with a run id.
func (e Event) WithRun(runID string) Event {
	e.RunID = runID
	return e
}

// WithSpecialist returns a copy of the event tagged with a specialist id.
// Specialist events interleave with the parent's stream; the tag lets
// consumers re-project the merged stream per specialist.
func (e Event) WithSpecialist(id string) Event {
	e.SpecialistID = id
	return e
}
