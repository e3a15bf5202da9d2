// Package retry centralizes Sunwell's retry policies so every engine backs
// off the same way instead of hand-rolling loops; each error kind carries
// its own policy.
package retry

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/sunwell-ai/core/errs"
)

// Policy configures one retry strategy.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// BaseDelay is the delay before the second attempt.
	BaseDelay time.Duration
	// MaxDelay caps exponential backoff growth.
	MaxDelay time.Duration
	// Jitter, when true, randomizes each delay in [0.5x, 1.5x].
	Jitter bool
}

// Model calls retry up to 3 times with exponential backoff; gates are
// never retried (the Convergence Loop handles repetition); tool calls
// retry up to 2 times on transient errors; file I/O retries once on
// transient OS errors, then fails.
var (
	Model = Policy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond, MaxDelay: 8 * time.Second, Jitter: true}
	Tool  = Policy{MaxAttempts: 2, BaseDelay: 200 * time.Millisecond, MaxDelay: 2 * time.Second, Jitter: true}
	File  = Policy{MaxAttempts: 2, BaseDelay: 50 * time.Millisecond, MaxDelay: 200 * time.Millisecond}
	Gate  = Policy{MaxAttempts: 1}
)

// delay returns the backoff before attempt n (1-indexed; delay before the
// second attempt is BaseDelay).
func (p Policy) delay(attempt int) time.Duration {
	if attempt <= 1 || p.BaseDelay <= 0 {
		return 0
	}
	d := p.BaseDelay
	for i := 1; i < attempt-1; i++ {
		d *= 2
		if p.MaxDelay > 0 && d > p.MaxDelay {
			d = p.MaxDelay
			break
		}
	}
	if p.Jitter {
		factor := 0.5 + rand.Float64()
		d = time.Duration(float64(d) * factor)
	}
	return d
}

// Do runs fn up to p.MaxAttempts times, sleeping between attempts according
// to the policy's backoff. shouldRetry inspects the returned error and
// decides whether another attempt is worthwhile (e.g. classify transient vs.
// permanent OS errors); a nil shouldRetry retries any non-nil error.
//
// Do returns the last error, wrapped with kind via errs.Wrap, if every
// attempt fails. It respects ctx cancellation between attempts.
func Do(ctx context.Context, p Policy, kind errs.Kind, shouldRetry func(error) bool, fn func(ctx context.Context) error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if attempt > 1 {
			d := p.delay(attempt)
			if d > 0 {
				select {
				case <-ctx.Done():
					return errs.Wrap(kind, ctx.Err())
				case <-time.After(d):
				}
			}
		}
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if shouldRetry != nil && !shouldRetry(err) {
			break
		}
	}
	return errs.Wrap(kind, lastErr)
}
