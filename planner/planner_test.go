package planner

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunwell-ai/core/events"
	"github.com/sunwell-ai/core/goal"
	"github.com/sunwell-ai/core/lens"
	"github.com/sunwell-ai/core/memory"
	"github.com/sunwell-ai/core/model"
	"github.com/sunwell-ai/core/session"
)

type fakeModel struct {
	generateCount int
	fail          bool
	taskJSON      string
	prompts       []string
}

func (f *fakeModel) Generate(_ context.Context, prompt string, _ model.Options) (model.Result, error) {
	f.generateCount++
	f.prompts = append(f.prompts, prompt)
	if f.fail {
		return model.Result{}, errors.New("model unavailable")
	}
	return model.Result{Text: f.taskJSON, Usage: model.Usage{InputTokens: 10, OutputTokens: 5}}, nil
}

func (f *fakeModel) Stream(_ context.Context, _ string, _ model.Options) (<-chan model.TokenEvent, error) {
	return nil, errors.New("not supported in test double")
}

const sampleTasksJSON = `[{"description":"add retry to http client","target_path":"internal/http/client.go","mode":"modify"}]`

func TestPlanner_PlanReturnsWinningCandidate(t *testing.T) {
	m := &fakeModel{taskJSON: sampleTasksJSON}
	bus := events.NewBus()
	var seen []events.Type
	_, err := bus.Register(events.SubscriberFunc(func(_ context.Context, e events.Event) error {
		seen = append(seen, e.Type)
		return nil
	}))
	require.NoError(t, err)

	store := NewVersionStore()
	p := New(m, bus, lens.Default(), store, Options{Candidates: 3, RefineRounds: 0})

	g := goal.Goal{ID: "g1", Description: "add retry to http client"}
	ws := session.Workspace{ProjectType: "go"}

	result, err := p.Plan(context.Background(), g, ws, memory.Context{})
	require.NoError(t, err)
	require.Len(t, result.Tasks, 1)
	assert.Equal(t, "internal/http/client.go", result.Tasks[0].TargetPath)
	assert.Contains(t, seen, events.PlanComplete)
	assert.Contains(t, seen, events.PlanCandidatesComplete)

	_, ok := store.Latest(g.Hash())
	assert.True(t, ok)
}

func TestPlanner_AllCandidatesFailFallsBackToDegenerate(t *testing.T) {
	m := &fakeModel{fail: true}
	store := NewVersionStore()
	p := New(m, events.NewBus(), lens.Default(), store, Options{Candidates: 2, RefineRounds: 0})

	g := goal.Goal{ID: "g2", Description: "do something impossible"}
	result, err := p.Plan(context.Background(), g, session.Workspace{}, memory.Context{})
	require.NoError(t, err)
	require.Len(t, result.Tasks, 1)
	assert.True(t, strings.Contains(result.Tasks[0].Description, "investigate goal"))
	assert.Equal(t, 0.0, result.Score)
}

func TestPlanner_RefineAcceptsOnlyStrictImprovement(t *testing.T) {
	m := &fakeModel{taskJSON: sampleTasksJSON}
	store := NewVersionStore()
	p := New(m, events.NewBus(), lens.Default(), store, Options{Candidates: 1, RefineRounds: 1})

	g := goal.Goal{ID: "g3", Description: "add retry to http client"}
	result, err := p.Plan(context.Background(), g, session.Workspace{}, memory.Context{})
	require.NoError(t, err)

	history := store.History(g.Hash())
	require.NotEmpty(t, history)
	assert.Equal(t, result.Score, history[len(history)-1].Score)
}
