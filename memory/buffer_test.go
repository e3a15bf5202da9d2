package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingStore struct {
	decisions []Decision
	learnings []Learning
	failures  []FailedApproach
	context   Context
}

func (s *recordingStore) AddDecision(d Decision) error { s.decisions = append(s.decisions, d); return nil }
func (s *recordingStore) AddFailure(f FailedApproach) error {
	s.failures = append(s.failures, f)
	return nil
}
func (s *recordingStore) AddLearning(l Learning) error { s.learnings = append(s.learnings, l); return nil }
func (s *recordingStore) Patterns() ([]Pattern, error) { return s.context.Patterns, nil }
func (s *recordingStore) GetRelevant(string) (Context, error) {
	return s.context, nil
}
func (s *recordingStore) Sync() error { return nil }

func TestBuffer_WritesNeverReachParent(t *testing.T) {
	parent := &recordingStore{}
	b := NewBuffer(parent)

	require.NoError(t, b.AddDecision(Decision{Question: "q", CreatedAt: time.Now()}))
	require.NoError(t, b.AddLearning(Learning{Fact: "f", CreatedAt: time.Now()}))
	require.NoError(t, b.AddFailure(FailedApproach{Description: "d", CreatedAt: time.Now()}))
	require.NoError(t, b.Sync())

	assert.Empty(t, parent.decisions)
	assert.Empty(t, parent.learnings)
	assert.Empty(t, parent.failures)

	assert.Len(t, b.Decisions(), 1)
	assert.Len(t, b.Learnings(), 1)
	assert.Len(t, b.Failures(), 1)
}

func TestBuffer_ReadsShareParentView(t *testing.T) {
	parent := &recordingStore{context: Context{
		Learnings: []Learning{{Fact: "parent fact"}},
	}}
	b := NewBuffer(parent)

	// A buffered learning must stay invisible to reads until merged.
	require.NoError(t, b.AddLearning(Learning{Fact: "pending"}))
	ctx, err := b.GetRelevant("anything")
	require.NoError(t, err)
	require.Len(t, ctx.Learnings, 1)
	assert.Equal(t, "parent fact", ctx.Learnings[0].Fact)
}
