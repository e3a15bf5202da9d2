package spawner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunwell-ai/core/session"
)

type fakeRunner struct {
	outcome Outcome
	delay   time.Duration
}

func (r *fakeRunner) Run(_ context.Context, _ Request, _ *session.Context) Outcome {
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	return r.outcome
}

func TestSpawner_SpawnAndWaitRoundTrip(t *testing.T) {
	runner := &fakeRunner{outcome: Outcome{Summary: "done"}}
	s := New(runner, nil, DefaultMaxSpawnDepth, DefaultMaxChildren)

	id, err := s.Spawn(context.Background(), Request{ParentID: "parent-1"}, 0, nil, nil)
	require.NoError(t, err)

	outcome, err := s.Wait(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "done", outcome.Summary)
}

func TestSpawner_DepthCapExceeded(t *testing.T) {
	runner := &fakeRunner{outcome: Outcome{Summary: "done"}}
	s := New(runner, nil, 2, DefaultMaxChildren)

	_, err := s.Spawn(context.Background(), Request{ParentID: "parent-1"}, 2, nil, nil)
	require.Error(t, err)
}

func TestSpawner_ChildCountCapExceeded(t *testing.T) {
	runner := &fakeRunner{outcome: Outcome{Summary: "done"}, delay: 50 * time.Millisecond}
	s := New(runner, nil, DefaultMaxSpawnDepth, 1)

	_, err := s.Spawn(context.Background(), Request{ParentID: "parent-1"}, 0, nil, nil)
	require.NoError(t, err)

	_, err = s.Spawn(context.Background(), Request{ParentID: "parent-1"}, 0, nil, nil)
	require.Error(t, err)
}

func TestBudget_AllocateSplitsEightyTwenty(t *testing.T) {
	b := NewBudget(10000)
	share := b.Allocate(0.2, DefaultTokenBudget)
	assert.Equal(t, 2000, share)
	assert.Equal(t, 8000, b.Remaining())
}

func TestBudget_AllocateNeverExceedsRemaining(t *testing.T) {
	b := NewBudget(3)
	share := b.Allocate(0.2, DefaultTokenBudget)
	assert.Equal(t, 3, share)
	assert.Equal(t, 0, b.Remaining())
}
