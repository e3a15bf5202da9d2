// Package guardrails implements the Guardrail System:
// action classification, scope tracking, verification gating, git-based
// recovery, escalation, and adaptive guard evolution. The forbidden
// deny-list always takes precedence over every allow rule.
package guardrails

import (
	"path/filepath"
	"regexp"
)

// Risk is the closed classification an action receives.
type Risk string

const (
	RiskSafe      Risk = "Safe"
	RiskModerate  Risk = "Moderate"
	RiskDangerous Risk = "Dangerous"
	RiskForbidden Risk = "Forbidden"
)

// ActionType is the kind of operation being classified.
type ActionType string

const (
	ActionWriteFile ActionType = "write_file"
	ActionEditFile  ActionType = "edit_file"
	ActionRunShell  ActionType = "run_shell"
	ActionDBSchema  ActionType = "db_schema"
)

// Action is a candidate operation submitted for classification.
type Action struct {
	Type    ActionType
	Path    string
	Command string
}

// Classification is the outcome of classifying an Action.
type Classification struct {
	ActionType         ActionType
	Risk               Risk
	Path               string
	Reason             string
	EscalationRequired bool
	BlockingRule       string
}

// TrustZone overrides the risk derived from action type for paths
// matching Glob. Forbidden patterns still win over any zone.
type TrustZone struct {
	Glob                string
	Risk                Risk
	AllowedInAutonomous bool
	Reason              string
}

// Classifier implements the Action Classifier.
type Classifier struct {
	forbidden []compiledRule
	dangerous []compiledRule
	safe      []compiledRule
	zones     []TrustZone
}

type compiledRule struct {
	pattern *regexp.Regexp
	reason  string
}

// DefaultForbiddenPatterns are the hard-coded patterns with no override
// at any trust level: secrets, system paths, catastrophic shell forms.
var DefaultForbiddenPatterns = []compiledRule{
	{regexp.MustCompile(`(?i)\.env($|\.)`), "environment/secret file"},
	{regexp.MustCompile(`(?i)id_rsa|\.pem$|\.ppk$`), "private key material"},
	{regexp.MustCompile(`^/etc/|^/boot/|^/sys/|^/proc/`), "system path"},
	{regexp.MustCompile(`rm\s+-rf\s+/(\s|$)`), "catastrophic shell form"},
	{regexp.MustCompile(`(?i)AKIA[0-9A-Z]{16}`), "embedded AWS credential"},
}

// DefaultDangerousPatterns match delete, auth, migrations, schema
// changes, and network operations.
var DefaultDangerousPatterns = []compiledRule{
	{regexp.MustCompile(`(?i)auth/|authentication|oauth`), "authentication path"},
	{regexp.MustCompile(`(?i)migrations?/`), "schema migration"},
	{regexp.MustCompile(`(?i)schema\.(sql|json|yaml)$`), "schema definition"},
	{regexp.MustCompile(`^rm\b|delete`), "delete operation"},
	{regexp.MustCompile(`(?i)curl |wget |http\.Client|net/http`), "network operation"},
}

// DefaultSafePatterns match tests, docs, and caches.
var DefaultSafePatterns = []compiledRule{
	{regexp.MustCompile(`(?i)_test\.go$|(^|/)tests?/|(^|/)test_[^/]+$`), "test file"},
	{regexp.MustCompile(`(?i)\.md$|(^|/)docs?/`), "documentation"},
	{regexp.MustCompile(`(?i)/\.?cache/|/tmp/`), "cache/tmp path"},
}

// New constructs a Classifier with the default pattern sets plus any
// user-configured trust zones.
func New(zones ...TrustZone) *Classifier {
	return &Classifier{
		forbidden: DefaultForbiddenPatterns,
		dangerous: DefaultDangerousPatterns,
		safe:      DefaultSafePatterns,
		zones:     zones,
	}
}

// Classify implements the Action Classifier algorithm: forbidden always
// wins; trust zones override the action-type-derived risk; otherwise
// dangerous/safe patterns apply; the fallback is Moderate.
func (c *Classifier) Classify(a Action) Classification {
	subject := a.Path
	if subject == "" {
		subject = a.Command
	}

	if rule, ok := match(c.forbidden, subject); ok {
		return Classification{
			ActionType: a.Type, Risk: RiskForbidden, Path: a.Path,
			Reason: rule.reason, EscalationRequired: true, BlockingRule: rule.reason,
		}
	}

	if zone, ok := matchZone(c.zones, a.Path); ok {
		return Classification{
			ActionType: a.Type, Risk: zone.Risk, Path: a.Path,
			Reason: zone.Reason, EscalationRequired: zone.Risk == RiskDangerous,
		}
	}

	if rule, ok := match(c.dangerous, subject); ok {
		return Classification{
			ActionType: a.Type, Risk: RiskDangerous, Path: a.Path,
			Reason: rule.reason, EscalationRequired: true,
		}
	}

	if rule, ok := match(c.safe, subject); ok {
		return Classification{ActionType: a.Type, Risk: RiskSafe, Path: a.Path, Reason: rule.reason}
	}

	return Classification{ActionType: a.Type, Risk: RiskModerate, Path: a.Path, Reason: "no matching rule"}
}

func match(rules []compiledRule, subject string) (compiledRule, bool) {
	for _, r := range rules {
		if r.pattern.MatchString(subject) {
			return r, true
		}
	}
	return compiledRule{}, false
}

func matchZone(zones []TrustZone, path string) (TrustZone, bool) {
	for _, z := range zones {
		if ok, _ := filepath.Match(z.Glob, path); ok {
			return z, true
		}
	}
	return TrustZone{}, false
}
