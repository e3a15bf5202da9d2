package guardrails

import (
	"fmt"
	"time"

	"github.com/sunwell-ai/core/guardrails/recovery"
)

// Guardrails wires the classifier, scope tracker, verification gate,
// git recovery manager, escalation handler, and adaptive analyzer
// together into a single gate an orchestrator calls before and after
// every tool invocation.
type Guardrails struct {
	Classifier   *Classifier
	Scope        *ScopeTracker
	Verification VerificationGate
	Escalation   *EscalationHandler
	Recovery     *recovery.Manager
	Violations   *ViolationLog
	Analyzer     *Analyzer
}

// Options configures a Guardrails instance.
type Options struct {
	TrustZones  []TrustZone
	ScopeLimits ScopeLimits
	UI          UIAdapter
}

// Open constructs a full Guardrails instance rooted at workspacePath,
// including the git-based Recovery Manager (which requires the
// workspace to be a clean git working tree) and the JSONL violation log
// under .sunwell/guardrails.
func Open(workspacePath, sessionID string, opts Options) (*Guardrails, error) {
	rec, err := recovery.Open(workspacePath, sessionID)
	if err != nil {
		return nil, fmt.Errorf("guardrails: recovery manager: %w", err)
	}
	violations, err := OpenViolationLog(workspacePath)
	if err != nil {
		return nil, fmt.Errorf("guardrails: violation log: %w", err)
	}
	limits := opts.ScopeLimits
	if limits == (ScopeLimits{}) {
		limits = DefaultScopeLimits
	}
	return &Guardrails{
		Classifier:   New(opts.TrustZones...),
		Scope:        NewScopeTracker(limits),
		Verification: NewVerificationGate(),
		Escalation:   NewEscalationHandler(opts.UI),
		Recovery:     rec,
		Violations:   violations,
		Analyzer:     NewAnalyzer(violations),
	}, nil
}

// Evaluate classifies an action and, when the classifier flags it for
// escalation and confidence is below the verification gate's threshold
// for its risk level, routes it through the Escalation Handler. It
// returns the final Classification, the resolved Option (OptionApprove
// when no escalation was needed), and any error from the UI adapter.
func (g *Guardrails) Evaluate(goalID string, a Action, confidence float64) (Classification, Option, error) {
	c := g.Classifier.Classify(a)

	if g.Verification.CanAutoApprove(c.Risk, confidence) {
		return c, OptionApprove, nil
	}

	reason := ReasonDangerousAction
	if c.Risk == RiskForbidden {
		reason = ReasonForbiddenAction
	} else if confidence < 0.70 {
		reason = ReasonLowConfidence
	}

	_, chosen, err := g.Escalation.Escalate(goalID, c, reason)
	if err != nil {
		return c, chosen, err
	}

	_ = g.Violations.Record(GuardViolation{GuardID: string(c.Risk), Timestamp: time.Now(), ActionTaken: string(chosen)})
	return c, chosen, nil
}

// CheckScope evaluates a proposed change set against the Scope Tracker.
// A failed check is routed through the Escalation Handler with the
// scope_exceeded reason; the returned Option is OptionApprove when the
// check passed without escalation.
func (g *Guardrails) CheckScope(goalID string, cs ChangeSet) (ScopeCheckResult, Option, error) {
	result := g.Scope.Check(cs)
	if result.Passed {
		return result, OptionApprove, nil
	}
	c := Classification{
		Risk:               RiskModerate,
		Reason:             result.Reason,
		EscalationRequired: true,
	}
	_, chosen, err := g.Escalation.Escalate(goalID, c, ReasonScopeExceeded)
	if err != nil {
		return result, chosen, err
	}
	_ = g.Violations.Record(GuardViolation{GuardID: string(result.LimitType), Timestamp: time.Now(), ActionTaken: string(chosen)})
	return result, chosen, nil
}
