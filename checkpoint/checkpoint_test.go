package checkpoint

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_SaveLoadRoundTrip(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	cp := Checkpoint{
		SessionID:        "sess-1",
		Goal:             "goalhash",
		Phase:            PhaseOrientComplete,
		CompletedTaskIDs: []string{"t1"},
		CheckpointAt:     time.Now().Truncate(time.Second),
	}
	require.NoError(t, s.Save(cp))

	loaded, ok, err := s.Load("sess-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, cp.SessionID, loaded.SessionID)
	assert.Equal(t, cp.Phase, loaded.Phase)
	assert.True(t, cp.CheckpointAt.Equal(loaded.CheckpointAt))
}

func TestFileStore_MostRecentReturnsLastSaved(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Save(Checkpoint{
			SessionID: fmt.Sprintf("sess-%d", i),
			Goal:      "g",
			Phase:     PhaseTaskComplete,
		}))
	}
	latest, ok, err := s.MostRecent("g")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "sess-2", latest.SessionID)
}

func TestFileStore_PruneKeepsAtMostFive(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	for i := 0; i < 8; i++ {
		require.NoError(t, s.Save(Checkpoint{SessionID: fmt.Sprintf("sess-%d", i), Goal: "g"}))
	}
	index, err := s.readIndex("g")
	require.NoError(t, err)
	assert.Len(t, index, 5)
	assert.Equal(t, "sess-7", index[len(index)-1])
	_, ok, err := s.Load("sess-0")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore_LoadMissingReturnsFalse(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	_, ok, err := s.Load("nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore_AllListsEverySavedCheckpointAcrossGoals(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Save(Checkpoint{SessionID: "sess-a", Goal: "goal-1", Phase: PhaseOrientComplete}))
	require.NoError(t, s.Save(Checkpoint{SessionID: "sess-b", Goal: "goal-2", Phase: PhaseTaskComplete}))

	all, err := s.All()
	require.NoError(t, err)
	require.Len(t, all, 2)

	sessionIDs := []string{all[0].SessionID, all[1].SessionID}
	assert.ElementsMatch(t, []string{"sess-a", "sess-b"}, sessionIDs)
}

func TestFileStore_AllSkipsGoalIndexFiles(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Save(Checkpoint{SessionID: "sess-a", Goal: "goal-1"}))

	all, err := s.All()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "sess-a", all[0].SessionID)
}
