package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunwell-ai/core/checkpoint"
	"github.com/sunwell-ai/core/convergence"
	"github.com/sunwell-ai/core/events"
	"github.com/sunwell-ai/core/goal"
	"github.com/sunwell-ai/core/guardrails"
	"github.com/sunwell-ai/core/ids"
	"github.com/sunwell-ai/core/lens"
	"github.com/sunwell-ai/core/memory"
	"github.com/sunwell-ai/core/memory/dag"
	"github.com/sunwell-ai/core/model"
	"github.com/sunwell-ai/core/planner"
	"github.com/sunwell-ai/core/session"
	"github.com/sunwell-ai/core/spawner"
	"github.com/sunwell-ai/core/tools"
)

// fakeModel always proposes the same single-task plan, then writes fixed
// content for whatever task it is asked to execute.
type fakeModel struct {
	planResponse string
	writeContent string
	planCalls    int
}

func (m *fakeModel) Generate(_ context.Context, prompt string, _ model.Options) (model.Result, error) {
	if m.planResponse != "" && containsPlanCue(prompt) {
		m.planCalls++
		return model.Result{Text: m.planResponse}, nil
	}
	return model.Result{Text: m.writeContent}, nil
}

func (m *fakeModel) Stream(context.Context, string, model.Options) (<-chan model.TokenEvent, error) {
	ch := make(chan model.TokenEvent)
	close(ch)
	return ch, nil
}

func containsPlanCue(prompt string) bool {
	return len(prompt) > 0 && (prompt[0] == 'G') // "Goal: ..." prefix from planner.buildPrompt
}

// memStore is an in-memory memory.Store good enough to exercise Orient,
// failure/learning recording, and Sync.
type memStore struct {
	decisions []memory.Decision
	failures  []memory.FailedApproach
	learnings []memory.Learning
}

func (s *memStore) AddDecision(d memory.Decision) error   { s.decisions = append(s.decisions, d); return nil }
func (s *memStore) AddFailure(f memory.FailedApproach) error {
	s.failures = append(s.failures, f)
	return nil
}
func (s *memStore) AddLearning(l memory.Learning) error { s.learnings = append(s.learnings, l); return nil }
func (s *memStore) Patterns() ([]memory.Pattern, error) { return nil, nil }
func (s *memStore) GetRelevant(string) (memory.Context, error) {
	return memory.Context{}, nil
}
func (s *memStore) Sync() error { return nil }

// stableGate always passes, so convergence never escalates.
type stableGate struct{ kind convergence.GateKind }

func (g stableGate) Kind() convergence.GateKind { return g.kind }
func (g stableGate) Run(context.Context, []string) convergence.GateResult {
	return convergence.GateResult{Kind: g.kind, Passed: true}
}

// failingGate always fails with the same error, forcing a stuck escalation.
type failingGate struct{ kind convergence.GateKind }

func (g failingGate) Kind() convergence.GateKind { return g.kind }
func (g failingGate) Run(context.Context, []string) convergence.GateResult {
	return convergence.GateResult{Kind: g.kind, Passed: false, Errors: []string{"persistent lint failure"}}
}

func initCleanRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello"), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(".")
	require.NoError(t, err)
	_, err = wt.Commit("initial commit", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@localhost"},
	})
	require.NoError(t, err)
	return dir
}

func newTestOrchestrator(t *testing.T, m model.Model, gates []convergence.Gate, mem memory.Store) (*Orchestrator, string, checkpoint.Store) {
	t.Helper()
	root := initCleanRepo(t)

	cpStore, err := checkpoint.Open(root)
	require.NoError(t, err)

	gr, err := guardrails.Open(root, "sess-orchestrator", guardrails.Options{})
	require.NoError(t, err)

	bus := events.NewBus()
	ex := tools.New(root, nil, nil)

	o := New(Dependencies{
		Model:       m,
		Bus:         bus,
		Memory:      mem,
		Checkpoints: cpStore,
		Tools:       ex,
		Guardrails:  gr,
		Lens:        lens.Default(),
		Gates:       gates,
		Convergence: convergence.Config{EscalateAfterSameError: 2, DebounceMS: 1},
		Planner:     planner.Options{Candidates: 1, RefineRounds: 0},
	})
	return o, root, cpStore
}

func newGoal(description string) goal.Goal {
	return goal.Goal{
		ID:          ids.NewPrefixed("goal"),
		Description: description,
		Category:    goal.CategoryFeature,
		Complexity:  goal.ComplexitySimple,
	}
}

func TestRun_HappyPathCompletesAndPersistsBriefing(t *testing.T) {
	plan := `[{"description":"write greeting file","target_path":"greeting.md","mode":"create"}]`
	m := &fakeModel{planResponse: plan, writeContent: "hello, sunwell"}
	mem := &memStore{}

	o, root, _ := newTestOrchestrator(t, m, []convergence.Gate{stableGate{kind: convergence.GateSyntax}}, mem)

	g := newGoal("add a greeting file")
	sess := session.New(ids.NewPrefixed("session"), g, session.Workspace{Path: root, ProjectType: "go"})

	result, err := o.Run(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, "complete", result.Status)
	assert.FileExists(t, filepath.Join(root, "greeting.md"))
	assert.FileExists(t, filepath.Join(root, ".sunwell", "briefing.json"))
	assert.NotEmpty(t, mem.learnings)
}

func TestRun_EscalatesOnStuckGate(t *testing.T) {
	plan := `[{"description":"write file that never lints clean","target_path":"bad.md","mode":"create"}]`
	m := &fakeModel{planResponse: plan, writeContent: "not quite right"}
	mem := &memStore{}

	o, root, _ := newTestOrchestrator(t, m, []convergence.Gate{failingGate{kind: convergence.GateLint}}, mem)

	g := newGoal("add a file that will never pass lint")
	sess := session.New(ids.NewPrefixed("session"), g, session.Workspace{Path: root, ProjectType: "go"})

	result, err := o.Run(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, "escalated", result.Status)
}

func TestRun_ResumesFromCheckpoint(t *testing.T) {
	plan := `[{"description":"write greeting file","target_path":"greeting.md","mode":"create"}]`
	m := &fakeModel{planResponse: plan, writeContent: "hello again"}
	mem := &memStore{}

	o, root, cpStore := newTestOrchestrator(t, m, []convergence.Gate{stableGate{kind: convergence.GateSyntax}}, mem)

	g := newGoal("add a greeting file")
	goalHash := g.Hash()
	require.NoError(t, cpStore.Save(checkpoint.Checkpoint{
		SessionID:        "prior-session",
		Goal:             goalHash,
		Phase:            checkpoint.PhaseImplementationComplete,
		CompletedTaskIDs: []string{"task-already-done"},
	}))

	sess := session.New(ids.NewPrefixed("session"), g, session.Workspace{Path: root, ProjectType: "go"})
	sess.Options.AutoResume = true

	result, err := o.Run(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, "complete", result.Status)
}

func TestShouldSpawn_RequiresNarrowFocusHighEstimateAndLensPermission(t *testing.T) {
	o := &Orchestrator{deps: Dependencies{Lens: lens.Lens{CanSpawn: true}}}

	longDescription := ""
	for i := 0; i < spawnFocusWordThreshold; i++ {
		longDescription += "word "
	}

	narrow := session.Task{TargetPath: "a/b.go", Description: longDescription}
	assert.True(t, o.shouldSpawn(narrow))

	short := session.Task{TargetPath: "a/b.go", Description: "short task"}
	assert.False(t, o.shouldSpawn(short))

	directory := session.Task{TargetPath: "a/b/", Description: longDescription}
	assert.False(t, o.shouldSpawn(directory))

	noSpawnLens := &Orchestrator{deps: Dependencies{Lens: lens.Lens{CanSpawn: false}}}
	assert.False(t, noSpawnLens.shouldSpawn(narrow))
}

func TestOutcomeTracker_PromotesSecondFailureAtSamePath(t *testing.T) {
	tr := newOutcomeTracker()

	fa, ln := tr.record("x.go", "attempt 1", "execution_error", "boom")
	assert.Nil(t, fa)
	require.NotNil(t, ln)
	assert.Equal(t, lowConfidenceLearning, ln.Confidence)

	fa, ln = tr.record("x.go", "attempt 2", "execution_error", "boom again")
	require.NotNil(t, fa)
	assert.Nil(t, ln)
	assert.Equal(t, "x.go", fa.Context)
}

func TestSuccessorPhase(t *testing.T) {
	next, ok := successorPhase(checkpoint.PhaseOrientComplete)
	assert.True(t, ok)
	assert.Equal(t, checkpoint.PhaseExplorationComplete, next)

	_, ok = successorPhase(checkpoint.PhaseReviewComplete)
	assert.False(t, ok)

	_, ok = successorPhase(checkpoint.Phase("unknown"))
	assert.False(t, ok)
}

func TestRun_CancelledPersistsUserCheckpoint(t *testing.T) {
	plan := `[{"description":"write greeting file","target_path":"greeting.md","mode":"create"}]`
	m := &fakeModel{planResponse: plan, writeContent: "never written"}
	mem := &memStore{}

	o, root, cpStore := newTestOrchestrator(t, m, []convergence.Gate{stableGate{kind: convergence.GateSyntax}}, mem)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := newGoal("add a greeting file")
	sess := session.New(ids.NewPrefixed("session"), g, session.Workspace{Path: root, ProjectType: "go"})

	result, err := o.Run(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", result.Status)

	cp, ok, err := cpStore.MostRecent(g.Hash())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, checkpoint.PhaseUserCheckpoint, cp.Phase)
}

func TestRun_RecordsConversationTurnsAndSnapshotPointer(t *testing.T) {
	plan := `[{"description":"write greeting file","target_path":"greeting.md","mode":"create"}]`
	m := &fakeModel{planResponse: plan, writeContent: "hello, sunwell"}
	mem := &memStore{}

	o, root, cpStore := newTestOrchestrator(t, m, []convergence.Gate{stableGate{kind: convergence.GateSyntax}}, mem)

	sessionID := ids.NewPrefixed("session")
	turns, err := dag.Open(root, sessionID)
	require.NoError(t, err)
	o.deps.Turns = turns

	g := newGoal("add a greeting file")
	sess := session.New(sessionID, g, session.Workspace{Path: root, ProjectType: "go"})

	result, err := o.Run(context.Background(), sess)
	require.NoError(t, err)
	require.Equal(t, "complete", result.Status)

	all := turns.Turns()
	require.NotEmpty(t, all)
	assert.Equal(t, dag.RoleUser, all[0].Role)
	assert.Contains(t, all[0].Content, "add a greeting file")

	cp, ok, err := cpStore.MostRecent(g.Hash())
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, cp.MemorySnapshot)
	_, err = turns.Thread(cp.MemorySnapshot)
	require.NoError(t, err)
}

func TestRun_EscalatesWhenPlanExceedsFileBudget(t *testing.T) {
	plan := `[
		{"description":"add widget a","target_path":"internal/a.go","mode":"create"},
		{"description":"add widget b","target_path":"internal/b.go","mode":"create"},
		{"description":"add widget c","target_path":"internal/c.go","mode":"create"}
	]`
	m := &fakeModel{planResponse: plan, writeContent: "package internal"}
	mem := &memStore{}

	root := initCleanRepo(t)
	cpStore, err := checkpoint.Open(root)
	require.NoError(t, err)

	limits := guardrails.DefaultScopeLimits
	limits.FilesPerGoal = 2
	gr, err := guardrails.Open(root, "sess-scope", guardrails.Options{ScopeLimits: limits})
	require.NoError(t, err)

	o := New(Dependencies{
		Model:       m,
		Bus:         events.NewBus(),
		Memory:      mem,
		Checkpoints: cpStore,
		Tools:       tools.New(root, nil, nil),
		Guardrails:  gr,
		Lens:        lens.Default(),
		Gates:       []convergence.Gate{stableGate{kind: convergence.GateSyntax}},
		Convergence: convergence.Config{EscalateAfterSameError: 2, DebounceMS: 1},
		Planner:     planner.Options{Candidates: 1, RefineRounds: 0},
	})

	sess := session.New(ids.NewPrefixed("session"), newGoal("add three widgets"), session.Workspace{Path: root, ProjectType: "go"})
	result, err := o.Run(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, "escalated", result.Status)
	assert.Contains(t, result.Summary, "files_per_goal")
}

func TestRun_CompleteRecordsArchitecturalDecision(t *testing.T) {
	plan := `[{"description":"write greeting file","target_path":"greeting.md","mode":"create"}]`
	m := &fakeModel{planResponse: plan, writeContent: "hello, sunwell"}
	mem := &memStore{}

	o, root, _ := newTestOrchestrator(t, m, []convergence.Gate{stableGate{kind: convergence.GateSyntax}}, mem)

	sess := session.New(ids.NewPrefixed("session"), newGoal("add a greeting file"), session.Workspace{Path: root, ProjectType: "go"})
	result, err := o.Run(context.Background(), sess)
	require.NoError(t, err)
	require.Equal(t, "complete", result.Status)

	require.NotEmpty(t, mem.decisions)
	assert.Contains(t, mem.decisions[0].Question, "add a greeting file")
	assert.Contains(t, mem.decisions[0].ChosenOption, "greeting.md")
	require.NotEmpty(t, result.Decisions)
}

func TestExecuteViaSpecialist_MergesBufferedRecordsOnceOnSuccess(t *testing.T) {
	childPlan := `[{"description":"produce side file","target_path":"side.md","mode":"create"}]`
	m := &fakeModel{planResponse: childPlan, writeContent: "side content"}
	mem := &memStore{}

	o, root, _ := newTestOrchestrator(t, m, []convergence.Gate{stableGate{kind: convergence.GateSyntax}}, mem)

	sess := session.New(ids.NewPrefixed("session"), newGoal("produce side file"), session.Workspace{Path: root, ProjectType: "go"})
	task := session.Task{ID: "task-side", Description: "produce side file", TargetPath: "side.md", Mode: session.ModeCreate}
	sess.AppendTask(task)

	rec := &runRecords{}
	err := o.executeViaSpecialist(context.Background(), sess, spawner.NewBudget(10_000), task, rec)
	require.NoError(t, err)

	// The child's buffered records land in parent memory exactly once:
	// the run-summary learning and the run decision its Learn phase
	// produced, nothing else.
	assert.Len(t, mem.learnings, 1)
	assert.Len(t, mem.decisions, 1)
	assert.Len(t, rec.learnings, 1)
	assert.Len(t, rec.decisions, 1)

	got, ok := sess.TaskByID("task-side")
	require.True(t, ok)
	require.NotNil(t, got.IntegratedResult)
}

func TestExecuteViaSpecialist_FailedChildMergesNothing(t *testing.T) {
	childPlan := `[{"description":"produce side file","target_path":"side.md","mode":"create"}]`
	m := &fakeModel{planResponse: childPlan, writeContent: "never lints"}
	mem := &memStore{}

	o, root, _ := newTestOrchestrator(t, m, []convergence.Gate{failingGate{kind: convergence.GateLint}}, mem)

	sess := session.New(ids.NewPrefixed("session"), newGoal("produce side file"), session.Workspace{Path: root, ProjectType: "go"})
	task := session.Task{ID: "task-side", Description: "produce side file", TargetPath: "side.md", Mode: session.ModeCreate}
	sess.AppendTask(task)

	rec := &runRecords{}
	err := o.executeViaSpecialist(context.Background(), sess, spawner.NewBudget(10_000), task, rec)
	require.Error(t, err)

	assert.Empty(t, mem.learnings)
	assert.Empty(t, mem.decisions)
	assert.Empty(t, rec.decisions)
	assert.Empty(t, rec.learnings)
}

func TestRun_ResumeRestoresPlanAndSkipsReplanning(t *testing.T) {
	m := &fakeModel{planResponse: `[]`, writeContent: "hello again"}
	mem := &memStore{}

	root := initCleanRepo(t)
	cpStore, err := checkpoint.Open(root)
	require.NoError(t, err)
	gr, err := guardrails.Open(root, "sess-resume", guardrails.Options{})
	require.NoError(t, err)

	g := newGoal("add a greeting file")
	goalHash := g.Hash()

	versions := planner.NewVersionStore()
	versions.Accept(goalHash, planner.ReasonInitial, []session.Task{
		{ID: "task-seeded", Description: "write greeting file", TargetPath: "greeting.md", Mode: session.ModeCreate},
	}, 0.9)
	require.NoError(t, cpStore.Save(checkpoint.Checkpoint{
		SessionID: "prior-session",
		Goal:      goalHash,
		Phase:     checkpoint.PhaseDesignApproved,
	}))

	o := New(Dependencies{
		Model:        m,
		Bus:          events.NewBus(),
		Memory:       mem,
		Checkpoints:  cpStore,
		Tools:        tools.New(root, nil, nil),
		Guardrails:   gr,
		Lens:         lens.Default(),
		Gates:        []convergence.Gate{stableGate{kind: convergence.GateSyntax}},
		Convergence:  convergence.Config{EscalateAfterSameError: 2, DebounceMS: 1},
		Planner:      planner.Options{Candidates: 1, RefineRounds: 0},
		PlanVersions: versions,
	})

	sess := session.New(ids.NewPrefixed("session"), g, session.Workspace{Path: root, ProjectType: "go"})
	sess.Options.AutoResume = true

	result, err := o.Run(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, "complete", result.Status)
	assert.Equal(t, 0, m.planCalls)
	assert.FileExists(t, filepath.Join(root, "greeting.md"))
}
