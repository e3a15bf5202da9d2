package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunwell-ai/core/errs"
)

func TestExecutor_WriteFileFiresHookExactlyOnce(t *testing.T) {
	dir := t.TempDir()
	var hookCalls int
	e := New(dir, func(context.Context, string) error {
		hookCalls++
		return nil
	}, nil)

	res, err := e.Execute(context.Background(), Call{Tool: WriteFile, Path: "a.go", Content: "package a"})
	require.NoError(t, err)
	assert.Contains(t, res.Output, "a.go")
	assert.Equal(t, 1, hookCalls)

	raw, err := os.ReadFile(filepath.Join(dir, "a.go"))
	require.NoError(t, err)
	assert.Equal(t, "package a", string(raw))
}

func TestExecutor_EditFileRequiresFindMatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("hello world"), 0o644))
	e := New(dir, nil, nil)

	_, err := e.Execute(context.Background(), Call{Tool: EditFile, Path: "a.go", Find: "missing", Replace: "x"})
	require.Error(t, err)
	assert.Equal(t, errs.ToolExecutionError, errs.KindOf(err))
}

func TestExecutor_PathEscapeIsRejected(t *testing.T) {
	e := New(t.TempDir(), nil, nil)
	_, err := e.Execute(context.Background(), Call{Tool: ReadFile, Path: "../../etc/passwd"})
	require.Error(t, err)
	assert.Equal(t, errs.GuardrailViolation, errs.KindOf(err))
}

func TestExecutor_RunShellRejectsUnlistedCommand(t *testing.T) {
	e := New(t.TempDir(), nil, []AllowedCommand{{Name: "go-test", Path: "go", Args: []string{"test"}}})
	_, err := e.Execute(context.Background(), Call{Tool: RunShell, Command: "rm"})
	require.Error(t, err)
	assert.Equal(t, errs.GuardrailViolation, errs.KindOf(err))
}
