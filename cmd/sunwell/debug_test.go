package main

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedact_MasksKnownSecretShapes(t *testing.T) {
	in := []byte("api_key=sk-abcdefghijklmnopqrstuvwx\nAWS AKIAABCDEFGHIJKL\nAuthorization: Bearer abc.def.ghi")
	out := string(redact(in))
	assert.NotContains(t, out, "sk-abcdefghijklmnopqrstuvwx")
	assert.NotContains(t, out, "AKIAABCDEFGHIJKL")
	assert.Contains(t, out, "[REDACTED]")
}

func TestAddFile_TruncatesOnceBudgetExhausted(t *testing.T) {
	buf := &bytes.Buffer{}
	gz := gzip.NewWriter(buf)
	tw := tar.NewWriter(gz)

	budget := 10
	addFile(tw, &budget, "big.txt", []byte("0123456789this-is-extra"))
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	gr, err := gzip.NewReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	tr := tar.NewReader(gr)
	hdr, err := tr.Next()
	require.NoError(t, err)
	assert.Equal(t, "big.txt", hdr.Name)
	content, err := io.ReadAll(tr)
	require.NoError(t, err)
	assert.Contains(t, string(content), truncationMarker)
	assert.True(t, budget <= 0)
}

func TestAddFile_LeavesSmallContentUntouched(t *testing.T) {
	buf := &bytes.Buffer{}
	gz := gzip.NewWriter(buf)
	tw := tar.NewWriter(gz)

	budget := 1000
	addFile(tw, &budget, "small.txt", []byte("hello"))
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	gr, err := gzip.NewReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	tr := tar.NewReader(gr)
	_, err = tr.Next()
	require.NoError(t, err)
	content, err := io.ReadAll(tr)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))
	assert.Equal(t, 1000-len("hello"), budget)
}
