package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionIndex_ParsesVPrefixedTag(t *testing.T) {
	n, err := versionIndex("v3")
	assert.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestVersionIndex_RejectsMalformedTag(t *testing.T) {
	_, err := versionIndex("3")
	assert.Error(t, err)

	_, err = versionIndex("v0")
	assert.Error(t, err)

	_, err = versionIndex("vX")
	assert.Error(t, err)
}
