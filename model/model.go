// Package model defines the provider-agnostic Model capability used by
// the Harmonic Planner, the Convergence fixer, and the Specialist
// Spawner's child agents. Sunwell's core never talks to a provider SDK
// directly; it calls through this interface.
package model

import "context"

// Usage reports token consumption for a single call, used by the
// Convergence Loop's token budget and the Specialist Spawner's
// per-child budget accounting.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Total returns the combined token count.
func (u Usage) Total() int { return u.InputTokens + u.OutputTokens }

// Options configures a single generation call.
type Options struct {
	// Model selects a specific provider model id; empty uses the client's
	// configured default.
	Model string
	// Temperature controls sampling variance. The Harmonic Planner uses this
	// to diversify candidates.
	Temperature float64
	// Seed, when non-zero, requests deterministic sampling where the
	// provider supports it.
	Seed int64
	// MaxTokens caps the completion length.
	MaxTokens int
}

// Result is the outcome of a non-streaming Generate call.
type Result struct {
	Text  string
	Usage Usage
	// StopReason is provider-specific ("end_turn", "max_tokens", ...).
	StopReason string
}

// TokenEvent is one increment of a streaming response.
type TokenEvent struct {
	Text       string
	Done       bool
	Usage      Usage
	StopReason string
}

// Model is the capability every Sunwell engine depends on instead of a
// concrete SDK client.
type Model interface {
	// Generate performs a single non-streaming completion. The prompt is a
	// fully rendered string; the core has no opinion on prompt schema, that
	// is the planner/fixer's job.
	Generate(ctx context.Context, prompt string, opts Options) (Result, error)

	// Stream performs a streaming completion, delivering incremental chunks
	// to the returned channel. The channel is closed when generation
	// completes or ctx is cancelled; the caller must drain it.
	Stream(ctx context.Context, prompt string, opts Options) (<-chan TokenEvent, error)
}
