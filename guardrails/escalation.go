package guardrails

// EscalationReason is the closed enum of why an Escalation was raised.
type EscalationReason string

const (
	ReasonForbiddenAction EscalationReason = "forbidden_action"
	ReasonDangerousAction EscalationReason = "dangerous_action"
	ReasonScopeExceeded   EscalationReason = "scope_exceeded"
	ReasonLowConfidence   EscalationReason = "low_confidence"
	ReasonProtectedPath   EscalationReason = "protected_path"
	ReasonMissingTests    EscalationReason = "missing_tests"
)

// Severity is the escalation's urgency, derived from the triggering risk.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Option is one of the resolutions a user may choose for an Escalation.
type Option string

const (
	OptionApprove     Option = "approve"
	OptionApproveOnce Option = "approve_once"
	OptionSkip        Option = "skip"
	OptionModify      Option = "modify"
	OptionAbort       Option = "abort"
	OptionRelax       Option = "relax"
)

// Escalation is produced by the Escalation Handler.
type Escalation struct {
	ID                string
	GoalID            string
	Reason            EscalationReason
	Details           string
	Options           []Option
	RecommendedOption Option
	Severity          Severity
}

// UIAdapter is the interface-adapter contract an Escalation is resolved
// through.
type UIAdapter interface {
	ShowEscalation(severity Severity, message string, options []Option, recommended Option) (Option, error)
}

// EscalationHandler builds Escalations from classifications and routes
// them to a UIAdapter for resolution.
type EscalationHandler struct {
	ui UIAdapter
}

// NewEscalationHandler constructs a handler bound to a UI adapter.
func NewEscalationHandler(ui UIAdapter) *EscalationHandler {
	return &EscalationHandler{ui: ui}
}

// severityFor maps a Risk to its Escalation severity: forbidden is
// critical, dangerous is a warning, everything else informational.
func severityFor(risk Risk) Severity {
	switch risk {
	case RiskForbidden:
		return SeverityCritical
	case RiskDangerous:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// Escalate builds an Escalation for a classification and resolves it
// through the UI adapter, returning the chosen Option.
func (h *EscalationHandler) Escalate(goalID string, c Classification, reason EscalationReason) (Escalation, Option, error) {
	esc := Escalation{
		GoalID:            goalID,
		Reason:            reason,
		Details:           c.Reason,
		Options:           []Option{OptionApprove, OptionApproveOnce, OptionSkip, OptionModify, OptionAbort},
		RecommendedOption: recommend(c.Risk),
		Severity:          severityFor(c.Risk),
	}
	if c.Risk == RiskDangerous {
		esc.Options = append(esc.Options, OptionRelax)
	}
	if h.ui == nil {
		return esc, esc.RecommendedOption, nil
	}
	chosen, err := h.ui.ShowEscalation(esc.Severity, esc.Details, esc.Options, esc.RecommendedOption)
	return esc, chosen, err
}

func recommend(risk Risk) Option {
	if risk == RiskForbidden {
		return OptionAbort
	}
	return OptionSkip
}
