// Package ids centralizes identifier generation so every entity (goal, run,
// task, specialist, escalation, checkpoint) uses the same uuid-based scheme.
package ids

import "github.com/google/uuid"

// New returns a new random (v4) identifier as a string.
func New() string {
	return uuid.NewString()
}

// NewPrefixed returns a new identifier prefixed with a short tag, e.g.
// NewPrefixed("goal") -> "goal_3f9c2e...". Prefixes make ids self-describing
// in logs and event payloads without a lookup.
func NewPrefixed(prefix string) string {
	return prefix + "_" + uuid.NewString()
}
