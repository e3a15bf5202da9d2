// Package ratelimit wraps a model.Model with an adaptive tokens-per-minute
// budget, used by the Harmonic Planner's candidate fan-out and the
// Convergence Loop's fixer calls to avoid provider rate-limit errors when
// several candidates or iterations generate concurrently.
package ratelimit

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/time/rate"

	"github.com/sunwell-ai/core/model"
)

// ErrRateLimited is matched against provider errors to trigger backoff.
// Callers that know their provider's rate-limit error should wrap it so
// errors.Is(err, ErrRateLimited) succeeds.
var ErrRateLimited = errors.New("ratelimit: provider rate limited")

// Limiter applies an AIMD-style adaptive token bucket in front of a
// model.Model: requests block until budget is available, successful calls
// slowly grow the budget back toward its ceiling, and a rate-limited
// response halves it.
type Limiter struct {
	mu sync.Mutex

	limiter *rate.Limiter

	currentTPM   float64
	minTPM       float64
	maxTPM       float64
	recoveryRate float64
}

// New constructs a Limiter with an initial and maximum tokens-per-minute
// budget. A non-positive initialTPM defaults to a conservative 60000 TPM;
// maxTPM is clamped up to initialTPM when smaller.
func New(initialTPM, maxTPM float64) *Limiter {
	if initialTPM <= 0 {
		initialTPM = 60000
	}
	if maxTPM <= 0 || maxTPM < initialTPM {
		maxTPM = initialTPM
	}
	minTPM := initialTPM * 0.1
	if minTPM < 1 {
		minTPM = 1
	}
	recoveryRate := initialTPM * 0.05
	if recoveryRate < 1 {
		recoveryRate = 1
	}
	return &Limiter{
		limiter:      rate.NewLimiter(rate.Limit(initialTPM/60.0), int(initialTPM)),
		currentTPM:   initialTPM,
		minTPM:       minTPM,
		maxTPM:       maxTPM,
		recoveryRate: recoveryRate,
	}
}

// Wrap returns a model.Model that enforces this limiter's budget before
// delegating Generate/Stream calls to next.
func (l *Limiter) Wrap(next model.Model) model.Model {
	return &limited{next: next, limiter: l}
}

type limited struct {
	next    model.Model
	limiter *Limiter
}

func (c *limited) Generate(ctx context.Context, prompt string, opts model.Options) (model.Result, error) {
	if err := c.limiter.wait(ctx, prompt); err != nil {
		return model.Result{}, err
	}
	result, err := c.next.Generate(ctx, prompt, opts)
	c.limiter.observe(err)
	return result, err
}

func (c *limited) Stream(ctx context.Context, prompt string, opts model.Options) (<-chan model.TokenEvent, error) {
	if err := c.limiter.wait(ctx, prompt); err != nil {
		return nil, err
	}
	events, err := c.next.Stream(ctx, prompt, opts)
	c.limiter.observe(err)
	return events, err
}

func (l *Limiter) wait(ctx context.Context, prompt string) error {
	return l.limiter.WaitN(ctx, estimateTokens(prompt))
}

func (l *Limiter) observe(err error) {
	if err == nil {
		l.probe()
		return
	}
	if errors.Is(err, ErrRateLimited) {
		l.backoff()
	}
}

func (l *Limiter) backoff() {
	l.mu.Lock()
	defer l.mu.Unlock()

	newTPM := l.currentTPM * 0.5
	if newTPM < l.minTPM {
		newTPM = l.minTPM
	}
	if newTPM == l.currentTPM {
		return
	}
	l.currentTPM = newTPM
	l.limiter.SetLimit(rate.Limit(newTPM / 60.0))
	l.limiter.SetBurst(int(newTPM))
}

func (l *Limiter) probe() {
	l.mu.Lock()
	defer l.mu.Unlock()

	newTPM := l.currentTPM + l.recoveryRate
	if newTPM > l.maxTPM {
		newTPM = l.maxTPM
	}
	if newTPM == l.currentTPM {
		return
	}
	l.currentTPM = newTPM
	l.limiter.SetLimit(rate.Limit(newTPM / 60.0))
	l.limiter.SetBurst(int(newTPM))
}

// CurrentTPM reports the limiter's current effective budget, mainly for
// telemetry/debug dump reporting.
func (l *Limiter) CurrentTPM() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currentTPM
}

// estimateTokens is a cheap heuristic: ~1 token per 3 characters plus a
// fixed buffer for framing overhead.
func estimateTokens(prompt string) int {
	n := len(prompt)
	if n <= 0 {
		return 500
	}
	tokens := n / 3
	if tokens < 1 {
		tokens = 1
	}
	return tokens + 500
}
