package spawner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sunwell-ai/core/memory"
)

func TestMergeOutcome_ParentWinsOnConflict(t *testing.T) {
	parent := []memory.Decision{
		{Category: "storage", Question: "which db", ChosenOption: "postgres", CreatedAt: time.Unix(100, 0)},
	}
	outcome := Outcome{
		Decisions: []memory.Decision{
			{Category: "storage", Question: "which db", ChosenOption: "sqlite", CreatedAt: time.Unix(50, 0)},
		},
	}

	result := MergeOutcome(parent, outcome)
	assert.Empty(t, result.Decisions)
}

func TestMergeOutcome_NonConflictingChildDecisionAppendedLater(t *testing.T) {
	parentTime := time.Unix(100, 0)
	parent := []memory.Decision{
		{Category: "storage", Question: "which db", ChosenOption: "postgres", CreatedAt: parentTime},
	}
	outcome := Outcome{
		Decisions: []memory.Decision{
			{Category: "auth", Question: "which flow", ChosenOption: "oauth", CreatedAt: time.Unix(10, 0)},
		},
	}

	result := MergeOutcome(parent, outcome)
	if assert.Len(t, result.Decisions, 1) {
		assert.True(t, result.Decisions[0].CreatedAt.After(parentTime))
	}
}

func TestMergeOutcome_FailureRecordMerged(t *testing.T) {
	outcome := Outcome{Failure: &memory.FailedApproach{Description: "tried X"}}
	result := MergeOutcome(nil, outcome)
	if assert.Len(t, result.Failures, 1) {
		assert.Equal(t, "tried X", result.Failures[0].Description)
	}
}
