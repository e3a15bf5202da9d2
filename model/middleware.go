package model

import (
	"context"
	"errors"

	"github.com/sunwell-ai/core/errs"
	"github.com/sunwell-ai/core/retry"
)

// WithRetry wraps a Model so Generate calls back off and retry on
// provider faults. Cancellation is never retried; everything else is
// treated as a potentially transient provider error. Stream is passed
// through untouched, since a partially consumed stream cannot be
// replayed safely.
func WithRetry(next Model) Model {
	return &retrying{next: next}
}

type retrying struct {
	next Model
}

func (r *retrying) Generate(ctx context.Context, prompt string, opts Options) (Result, error) {
	var result Result
	err := retry.Do(ctx, retry.Model, errs.ModelError, retryableModelError, func(ctx context.Context) error {
		var callErr error
		result, callErr = r.next.Generate(ctx, prompt, opts)
		return callErr
	})
	if err != nil {
		return Result{}, err
	}
	return result, nil
}

func (r *retrying) Stream(ctx context.Context, prompt string, opts Options) (<-chan TokenEvent, error) {
	return r.next.Stream(ctx, prompt, opts)
}

func retryableModelError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}
