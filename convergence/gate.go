// Package convergence implements the Convergence Loop:
// self-stabilizing post-write validation that runs lint/type/test/syntax
// gates concurrently, invokes a fixer on failure, and escalates on
// stuck errors, budget exhaustion, or a max-iteration ceiling.
package convergence

import (
	"context"
	"time"
)

// GateKind is the closed set of validation gates.
type GateKind string

const (
	GateLint   GateKind = "lint"
	GateType   GateKind = "type"
	GateTest   GateKind = "test"
	GateSyntax GateKind = "syntax"
)

// GateTimeouts are the per-gate subprocess timeouts (lint ~30s, type
// 60s, test 120s, syntax in-process/fast).
var GateTimeouts = map[GateKind]time.Duration{
	GateLint:   30 * time.Second,
	GateType:   60 * time.Second,
	GateTest:   120 * time.Second,
	GateSyntax: 5 * time.Second,
}

// GateResult is one gate's verdict for the current iteration.
type GateResult struct {
	Kind       GateKind
	Passed     bool
	Errors     []string
	DurationMS int64
}

// Gate is one pluggable validation check.
type Gate interface {
	Kind() GateKind
	// Run validates files (or the whole project, if the gate ignores
	// the file list) within its own timeout and returns a verdict. Run
	// must respect ctx cancellation.
	Run(ctx context.Context, files []string) GateResult
}
