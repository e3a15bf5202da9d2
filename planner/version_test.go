package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunwell-ai/core/session"
)

func TestVersionStore_PersistsAndHydratesAcrossInstances(t *testing.T) {
	root := t.TempDir()

	s1, err := OpenVersionStore(root)
	require.NoError(t, err)
	s1.Accept("goalhash", ReasonInitial, []session.Task{{ID: "t1", TargetPath: "a.go"}}, 0.5)
	s1.Accept("goalhash", ReasonRefined, []session.Task{{ID: "t1", TargetPath: "a.go"}, {ID: "t2", TargetPath: "b.go"}}, 0.7)

	s2, err := OpenVersionStore(root)
	require.NoError(t, err)
	history := s2.History("goalhash")
	require.Len(t, history, 2)
	assert.Equal(t, ReasonInitial, history[0].Reason)
	assert.Equal(t, ReasonRefined, history[1].Reason)
	assert.Contains(t, history[1].Diff, "+ b.go")

	latest, ok := s2.Latest("goalhash")
	require.True(t, ok)
	assert.Equal(t, 0.7, latest.Score)
}

func TestOpenVersionStore_EmptyWorkspaceHasNoHistory(t *testing.T) {
	s, err := OpenVersionStore(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, s.History("nonexistent"))
}

func TestVersionStore_InMemoryDoesNotTouchDisk(t *testing.T) {
	s := NewVersionStore()
	v := s.Accept("g", ReasonInitial, []session.Task{{ID: "t1", TargetPath: "a.go"}}, 1.0)
	assert.Equal(t, "g-v1", v.ID)
}
