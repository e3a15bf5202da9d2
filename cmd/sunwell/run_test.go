package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sunwell-ai/core/convergence"
	"github.com/sunwell-ai/core/orchestrator"
)

func TestGatesFromCSV_DisabledReturnsNil(t *testing.T) {
	assert.Nil(t, gatesFromCSV("", t.TempDir(), true))
}

func TestGatesFromCSV_DefaultsToAllFourGates(t *testing.T) {
	gates := gatesFromCSV("", t.TempDir(), false)
	assert.Len(t, gates, 4)
}

func TestGatesFromCSV_HonorsExplicitSubset(t *testing.T) {
	gates := gatesFromCSV("syntax,test", t.TempDir(), false)
	assert.Len(t, gates, 2)
	assert.Equal(t, convergence.GateSyntax, gates[0].Kind())
	assert.Equal(t, convergence.GateTest, gates[1].Kind())
}

func TestExitForResult_MapsStatusToExitCodes(t *testing.T) {
	cases := map[string]int{"escalated": 2, "timeout": 3, "cancelled": 4}
	for status, code := range cases {
		err := exitForResult(orchestrator.Result{Status: status})
		if err == nil {
			t.Fatalf("status %s: expected an error", status)
		}
		ec, ok := err.(exitCodeError)
		if !ok {
			t.Fatalf("status %s: expected exitCodeError, got %T", status, err)
		}
		assert.Equal(t, code, ec.code)
	}
}

func TestExitForResult_CompleteReturnsNil(t *testing.T) {
	assert.NoError(t, exitForResult(orchestrator.Result{Status: "complete"}))
}
