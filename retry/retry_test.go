package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunwell-ai/core/errs"
)

func TestDo_SucceedsAfterRetries(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}, errs.ToolExecutionError, nil,
		func(context.Context) error {
			attempts++
			if attempts < 3 {
				return errors.New("transient")
			}
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDo_ExhaustsAttemptsAndWraps(t *testing.T) {
	boom := errors.New("permanent")
	err := Do(context.Background(), Policy{MaxAttempts: 2, BaseDelay: time.Millisecond}, errs.ModelError, nil,
		func(context.Context) error { return boom })
	require.Error(t, err)
	assert.Equal(t, errs.ModelError, errs.KindOf(err))
	assert.ErrorIs(t, err, boom)
}

func TestDo_ShouldRetryFalseStopsEarly(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), Policy{MaxAttempts: 5, BaseDelay: time.Millisecond}, errs.ToolExecutionError,
		func(error) bool { return false },
		func(context.Context) error {
			attempts++
			return errors.New("non-retryable")
		})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDo_RespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Do(ctx, Policy{MaxAttempts: 3, BaseDelay: time.Second}, errs.ModelError, nil,
		func(context.Context) error { return errors.New("slow") })
	require.Error(t, err)
}
