package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunwell-ai/core/goal"
)

func TestContext_AppendArtifactDedupesModifiedFiles(t *testing.T) {
	c := New("s1", goal.Goal{ID: "g1"}, Workspace{Path: "/tmp/proj"})
	c.AppendArtifact(Artifact{Path: "a.go", Content: "x", TaskID: "t1"})
	c.AppendArtifact(Artifact{Path: "a.go", Content: "y", TaskID: "t1"})
	assert.Len(t, c.FilesModified, 1)
	assert.Equal(t, "y", c.ArtifactsByPath["a.go"].Content)
}

func TestContext_SetTaskResult(t *testing.T) {
	c := New("s1", goal.Goal{ID: "g1"}, Workspace{})
	c.AppendTask(Task{ID: "t1", Description: "do thing"})
	require.True(t, c.SetTaskResult("t1", "done"))
	task, ok := c.TaskByID("t1")
	require.True(t, ok)
	require.NotNil(t, task.IntegratedResult)
	assert.Equal(t, "done", *task.IntegratedResult)
	assert.False(t, c.SetTaskResult("missing", "x"))
}

func TestContext_ReleaseArtifact(t *testing.T) {
	c := New("s1", goal.Goal{ID: "g1"}, Workspace{})
	c.AppendArtifact(Artifact{Path: "a.go", Content: "x"})
	c.ReleaseArtifact("a.go")
	_, ok := c.ArtifactsByPath["a.go"]
	assert.False(t, ok)
	assert.Contains(t, c.FilesModified, "a.go")
}
