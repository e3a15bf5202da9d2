package planner

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunwell-ai/core/events"
	"github.com/sunwell-ai/core/goal"
	"github.com/sunwell-ai/core/lens"
	"github.com/sunwell-ai/core/memory"
	"github.com/sunwell-ai/core/memory/jsonl"
	"github.com/sunwell-ai/core/session"
)

// A decision recorded in one session must bias planning in the next:
// the rejected option surfaces as a DO NOT line in every candidate
// prompt, and the winning plan stays clear of it.
func TestPlanner_CrossSessionDecisionBiasesPrompt(t *testing.T) {
	root := t.TempDir()

	// Session 1 records the decision.
	s1, err := jsonl.Open(root)
	require.NoError(t, err)
	require.NoError(t, s1.AddDecision(memory.Decision{
		Category:     "auth",
		Question:     "token strategy",
		ChosenOption: "OAuth",
		RejectedOptions: []memory.RejectedOption{
			{Option: "JWT", Reason: "no server-side revocation"},
		},
		CreatedAt: time.Now(),
	}))

	// Session 2 plans a related goal against a fresh store handle.
	s2, err := jsonl.Open(root)
	require.NoError(t, err)
	memCtx, err := s2.GetRelevant("Add token refresh")
	require.NoError(t, err)

	m := &fakeModel{taskJSON: `[{"description":"add refresh endpoint using the existing OAuth flow","target_path":"src/auth/refresh.go","mode":"create"}]`}
	p := New(m, events.NewBus(), lens.Default(), NewVersionStore(), Options{Candidates: 2, RefineRounds: 0})

	result, err := p.Plan(context.Background(), goal.Goal{ID: "g2", Description: "Add token refresh"}, session.Workspace{ProjectType: "go"}, memCtx)
	require.NoError(t, err)

	require.NotEmpty(t, m.prompts)
	for _, prompt := range m.prompts {
		assert.Contains(t, prompt, "DO NOT: JWT — no server-side revocation")
	}
	for _, task := range result.Tasks {
		assert.NotContains(t, strings.ToLower(task.Description), "jwt")
	}
}
