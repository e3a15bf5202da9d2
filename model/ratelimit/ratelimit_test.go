package ratelimit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunwell-ai/core/model"
)

type stubModel struct {
	err error
}

func (s *stubModel) Generate(context.Context, string, model.Options) (model.Result, error) {
	return model.Result{Text: "ok"}, s.err
}

func (s *stubModel) Stream(context.Context, string, model.Options) (<-chan model.TokenEvent, error) {
	return nil, s.err
}

func TestLimiter_ProbeGrowsBudgetOnSuccess(t *testing.T) {
	l := New(100, 200)
	wrapped := l.Wrap(&stubModel{})
	_, err := wrapped.Generate(context.Background(), "hi", model.Options{})
	require.NoError(t, err)
	assert.Greater(t, l.CurrentTPM(), 100.0)
}

func TestLimiter_BackoffHalvesBudgetOnRateLimit(t *testing.T) {
	l := New(1_000_000, 2_000_000)
	wrapped := l.Wrap(&stubModel{err: ErrRateLimited})
	_, err := wrapped.Generate(context.Background(), "hi", model.Options{})
	require.ErrorIs(t, err, ErrRateLimited)
	assert.InDelta(t, 500_000, l.CurrentTPM(), 1)
}

func TestLimiter_NewClampsDefaults(t *testing.T) {
	l := New(0, 0)
	assert.Equal(t, 60000.0, l.CurrentTPM())
	assert.Equal(t, 60000.0, l.maxTPM)
}
