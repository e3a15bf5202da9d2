package guardrails

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViolationLog_RecordAndAll(t *testing.T) {
	log, err := OpenViolationLog(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, log.Record(GuardViolation{GuardID: "safe/tests", Timestamp: time.Now(), ActionTaken: "blocked"}))
	require.NoError(t, log.Record(GuardViolation{GuardID: "safe/tests", Timestamp: time.Now(), ActionTaken: "blocked"}))

	all, err := log.All()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestAnalyzer_SuggestsAutoApplyOnlyForSafeZones(t *testing.T) {
	log, err := OpenViolationLog(t.TempDir())
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, log.Record(GuardViolation{GuardID: "safe/tests", Timestamp: time.Now()}))
	}
	for i := 0; i < 3; i++ {
		require.NoError(t, log.Record(GuardViolation{GuardID: "dangerous/auth", Timestamp: time.Now()}))
	}

	a := NewAnalyzer(log)
	suggestions, err := a.Analyze(2)
	require.NoError(t, err)

	byGuard := make(map[string]GuardEvolution)
	for _, s := range suggestions {
		byGuard[s.GuardID] = s
	}
	assert.True(t, byGuard["safe/tests"].AutoApplied)
	assert.False(t, byGuard["dangerous/auth"].AutoApplied)
}

func TestAnalyzer_SkipsGuardsWithNegativeFeedback(t *testing.T) {
	log, err := OpenViolationLog(t.TempDir())
	require.NoError(t, err)
	feedback := "incorrect"
	for i := 0; i < 3; i++ {
		require.NoError(t, log.Record(GuardViolation{GuardID: "safe/x", Timestamp: time.Now(), UserFeedback: &feedback}))
	}
	a := NewAnalyzer(log)
	suggestions, err := a.Analyze(2)
	require.NoError(t, err)
	assert.Empty(t, suggestions)
}
