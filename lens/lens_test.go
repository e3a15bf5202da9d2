package lens

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sunwell-ai/core/goal"
)

func TestAutoApprovePolicy_Allows(t *testing.T) {
	p := AutoApprovePolicy{Categories: []goal.Category{goal.CategoryTest}}
	assert.True(t, p.Allows(goal.CategoryTest, goal.ComplexitySimple))
	assert.False(t, p.Allows(goal.CategoryFeature, goal.ComplexitySimple))
}

func TestLens_ResolvedWeightsFallsBackToDefault(t *testing.T) {
	l := Lens{}
	assert.Equal(t, DefaultScoreWeights, l.ResolvedWeights())

	l.Weights = ScoreWeights{Coverage: 1}
	assert.Equal(t, ScoreWeights{Coverage: 1}, l.ResolvedWeights())
}

func TestDefault_HasSpawnBudget(t *testing.T) {
	d := Default()
	assert.True(t, d.CanSpawn)
	assert.Equal(t, 3, d.MaxChildren)
}
