package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsure_CreatesExpectedDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Ensure(dir))

	assert.True(t, Exists(dir))
	for _, d := range []string{
		filepath.Join(Root(dir), "memory", "sessions"),
		filepath.Join(Root(dir), "memory", "learnings"),
		filepath.Join(Root(dir), "intelligence"),
		filepath.Join(Root(dir), "plans"),
		filepath.Join(Root(dir), "checkpoints"),
		filepath.Join(Root(dir), "guardrails"),
	} {
		info, err := os.Stat(d)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestExists_FalseWhenNoSunwellDir(t *testing.T) {
	assert.False(t, Exists(t.TempDir()))
}

func TestPathHelpers_NestUnderRoot(t *testing.T) {
	root := "/proj"
	assert.Equal(t, "/proj/.sunwell/briefing.json", BriefingPath(root))
	assert.Equal(t, "/proj/.sunwell/plans/abc123.json", PlanPath(root, "abc123"))
	assert.Equal(t, "/proj/.sunwell/plans/abc123/v3.json", PlanVersionPath(root, "abc123", 3))
	assert.Equal(t, "/proj/.sunwell/memory/sessions/sess1", SessionDir(root, "sess1"))
}
