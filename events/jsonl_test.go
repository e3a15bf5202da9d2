package events

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSink_AppendAndRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.jsonl")

	sink, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, sink.HandleEvent(context.Background(), New(Orient, map[string]any{"n": 1})))
	require.NoError(t, sink.HandleEvent(context.Background(), New(PlanComplete, nil)))
	require.NoError(t, sink.Close())

	got, err := Read(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Orient, got[0].Type)
	assert.Equal(t, PlanComplete, got[1].Type)
}

func TestPrune_DropsOldAndExcessRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.jsonl")

	sink, err := Open(path)
	require.NoError(t, err)
	old := New(Orient, nil)
	old.Timestamp = time.Now().Add(-8 * 24 * time.Hour)
	require.NoError(t, sink.HandleEvent(context.Background(), old))
	require.NoError(t, sink.HandleEvent(context.Background(), New(PlanComplete, nil)))
	require.NoError(t, sink.Close())

	// Reopening prunes.
	sink2, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, sink2.Close())

	got, err := Read(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, PlanComplete, got[0].Type)
}

func TestRead_MissingFileReturnsEmpty(t *testing.T) {
	got, err := Read(filepath.Join(t.TempDir(), "missing.jsonl"))
	require.NoError(t, err)
	assert.Nil(t, got)
}
