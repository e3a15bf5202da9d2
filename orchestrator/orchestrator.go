// Package orchestrator implements the Agent Orchestrator:
// the top-level phase state machine driving a run through Orient, Plan,
// Execute, Convergence, Validate, and Learn, with checkpoint-backed
// resume and a recursive Specialist Spawner hookup.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

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
	"github.com/sunwell-ai/core/telemetry"
	"github.com/sunwell-ai/core/tools"
)

// DefaultPrefetchTimeout bounds the concurrent prefetch phase; hitting
// it is non-fatal.
const DefaultPrefetchTimeout = 10 * time.Second

// spawnFocusWordThreshold is the "high token estimate" half of the
// spawn-vs-inline heuristic: a task description this
// long or longer is assumed expensive enough to warrant its own budget
// rather than competing with the parent's.
const spawnFocusWordThreshold = 40

// Dependencies are the collaborators an Orchestrator is constructed with.
type Dependencies struct {
	Model       model.Model
	Bus         events.Bus
	Memory      memory.Store
	Checkpoints checkpoint.Store
	Tools       *tools.Executor
	Guardrails  *guardrails.Guardrails
	Lens        lens.Lens
	Telemetry   telemetry.Telemetry

	// Turns, when set, records the run's conversation DAG; checkpoints
	// point at its head turn as their memory snapshot.
	Turns *dag.Log

	Gates       []convergence.Gate
	Convergence convergence.Config

	Planner      planner.Options
	PlanVersions *planner.VersionStore

	SpawnMaxDepth    int
	SpawnMaxChildren int
	PrefetchTimeout  time.Duration
}

// Result is what a top-level or specialist run reports once it reaches a
// terminal status.
type Result struct {
	Status     string // "complete", "escalated", "timeout", "cancelled", "error"
	Summary    string
	Decisions  []memory.Decision
	Learnings  []memory.Learning
	Failure    *memory.FailedApproach
	Checkpoint checkpoint.Checkpoint
	Err        error
}

// Orchestrator drives one run through the phase state machine. A fresh
// Orchestrator is constructed per run (and, recursively, per spawned
// specialist); Dependencies besides depth/budget are shared.
type Orchestrator struct {
	deps     Dependencies
	planner  *planner.Planner
	spawner  *spawner.Spawner
	fixer    *modelFixer
	outcomes *outcomeTracker
	depth    int
}

// New constructs a top-level Orchestrator (depth 0).
func New(deps Dependencies) *Orchestrator {
	if deps.PrefetchTimeout <= 0 {
		deps.PrefetchTimeout = DefaultPrefetchTimeout
	}
	if deps.SpawnMaxDepth <= 0 {
		deps.SpawnMaxDepth = spawner.DefaultMaxSpawnDepth
	}
	if deps.SpawnMaxChildren <= 0 {
		deps.SpawnMaxChildren = spawner.DefaultMaxChildren
	}
	if deps.PlanVersions == nil {
		deps.PlanVersions = planner.NewVersionStore()
	}
	if deps.Telemetry.Log == nil || deps.Telemetry.Metrics == nil || deps.Telemetry.Tracer == nil {
		deps.Telemetry = telemetry.Noop()
	}

	o := &Orchestrator{
		deps:     deps,
		outcomes: newOutcomeTracker(),
		fixer:    newModelFixer(deps.Model, deps.Tools),
	}
	o.planner = planner.New(deps.Model, deps.Bus, deps.Lens, deps.PlanVersions, deps.Planner)
	o.spawner = spawner.New(runnerFunc(o.runSpecialist), deps.Bus, deps.SpawnMaxDepth, deps.SpawnMaxChildren)
	return o
}

// runnerFunc adapts a function to spawner.Runner.
type runnerFunc func(ctx context.Context, req spawner.Request, childCtx *session.Context) spawner.Outcome

func (f runnerFunc) Run(ctx context.Context, req spawner.Request, childCtx *session.Context) spawner.Outcome {
	return f(ctx, req, childCtx)
}

// Run drives sess through the full phase state machine. Progress is
// streamed by publishing to deps.Bus as the run proceeds; callers observe
// it by registering a Subscriber before calling Run. Run returns once the
// run reaches a terminal status.
func (o *Orchestrator) Run(ctx context.Context, sess *session.Context) (Result, error) {
	if sess.Options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, sess.Options.Timeout)
		defer cancel()
	}

	o.deps.Telemetry.Log.Info(ctx, "orchestrator run starting", "goal", sess.Goal.ID, "depth", o.depth)
	o.recordTurn(dag.RoleUser, "goal: "+sess.Goal.Description)

	budget := spawner.NewBudget(sess.Options.MaxTokens)
	completedTasks := make(map[string]bool)

	// Specialists execute within the parent's goal; only the top-level
	// run owns scope accounting and the per-goal commit.
	topLevel := o.depth == 0
	if topLevel && o.deps.Guardrails != nil {
		o.deps.Guardrails.Scope.StartGoal()
	}

	// Step 1: resume check.
	goalHash := sess.Goal.Hash()
	pruneStale(o.deps.Checkpoints, []string{goalHash})
	var resumed *checkpoint.Checkpoint
	if sess.Options.AutoResume {
		if cp, ok, err := o.deps.Checkpoints.MostRecent(goalHash); err == nil && ok {
			o.publish(ctx, events.CheckpointFound, map[string]any{
				"session_id": cp.SessionID, "phase": string(cp.Phase),
			})
			for _, id := range cp.CompletedTaskIDs {
				completedTasks[id] = true
			}
			resumed = &cp
		}
	}

	if sess.Briefing == nil && sess.Workspace.Path != "" {
		sess.Briefing = loadBriefing(sess.Workspace.Path)
	}

	// A checkpoint at or past DESIGN_APPROVED means a plan was already
	// accepted; restore its task set from the version store and continue
	// from the successor phase instead of re-running Orient and Plan.
	var planVersionID string
	var prefetched map[string]string
	restored := false
	if resumed != nil && (phaseReached(resumed.Phase, checkpoint.PhaseDesignApproved) || resumed.Phase == checkpoint.PhaseUserCheckpoint) {
		if v, ok := o.deps.PlanVersions.Latest(goalHash); ok && len(v.Tasks) > 0 {
			for _, t := range v.Tasks {
				sess.AppendTask(t)
			}
			planVersionID = v.ID
			restored = true
			o.recordTurn(dag.RoleAgent, fmt.Sprintf("resumed after %s with %d tasks, %d already complete", resumed.Phase, len(sess.Tasks), len(completedTasks)))
		}
	}

	if !restored {
		// Step 2 (Orient) and step 3 (Prefetch) run concurrently.
		var memCtx memory.Context
		memCtx, prefetched = o.orientAndPrefetch(ctx, sess)
		o.recordTurn(dag.RoleAgent, fmt.Sprintf("oriented: %d constraints, %d dead ends", len(memCtx.Constraints), len(memCtx.DeadEnds)))
		if _, err := o.saveCheckpoint(ctx, sess, checkpoint.PhaseOrientComplete, "oriented"); err != nil {
			return o.errorResult(ctx, err)
		}
		if _, err := o.saveCheckpoint(ctx, sess, checkpoint.PhaseExplorationComplete, "prefetch complete"); err != nil {
			return o.errorResult(ctx, err)
		}

		// Step 4: Plan.
		planResult, err := o.planner.Plan(ctx, sess.Goal, sess.Workspace, memCtx)
		if err != nil {
			return o.errorResult(ctx, err)
		}
		for _, t := range planResult.Tasks {
			sess.AppendTask(t)
		}
		planVersionID = planResult.VersionID
		o.recordTurn(dag.RoleAgent, fmt.Sprintf("plan accepted: %d tasks, score %.2f", len(planResult.Tasks), planResult.Score))
	}

	if topLevel && o.deps.Guardrails != nil {
		check, chosen, err := o.deps.Guardrails.CheckScope(sess.Goal.ID, plannedChangeSet(sess.Tasks))
		if err != nil {
			return o.errorResult(ctx, err)
		}
		if !check.Passed && chosen != guardrails.OptionApprove && chosen != guardrails.OptionApproveOnce {
			o.publish(ctx, events.Escalate, map[string]any{
				"reason": string(guardrails.ReasonScopeExceeded), "limit_type": string(check.LimitType),
			})
			return Result{Status: "escalated", Summary: "scope exceeded: " + check.Reason}, nil
		}
	}
	if !restored {
		if _, err := o.saveCheckpoint(ctx, sess, checkpoint.PhaseDesignApproved, "plan accepted"); err != nil {
			return o.errorResult(ctx, err)
		}
	}

	// Step 5 (Execute) interleaved with step 6 (Convergence after writes).
	rec := &runRecords{}

	for {
		progressed := false
		for _, t := range sess.Tasks {
			if completedTasks[t.ID] || !o.dependenciesSatisfied(t, completedTasks) {
				continue
			}
			if ctx.Err() != nil {
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return o.timeoutResult(ctx, sess, rec), nil
				}
				return o.cancelledResult(ctx, sess, rec), nil
			}
			progressed = true

			o.publish(ctx, events.TaskStart, map[string]any{"task_id": t.ID, "path": t.TargetPath})
			taskErr := o.executeTask(ctx, sess, budget, t, prefetched, rec)
			completedTasks[t.ID] = true

			if taskErr != nil {
				fa, ln := o.outcomes.record(t.TargetPath, t.Description, "execution_error", taskErr.Error())
				if fa != nil {
					rec.failure = fa
					_ = o.deps.Memory.AddFailure(*fa)
					o.publish(ctx, events.FailureRecorded, map[string]any{"task_id": t.ID, "path": t.TargetPath})
				}
				if ln != nil {
					rec.learnings = append(rec.learnings, *ln)
					_ = o.deps.Memory.AddLearning(*ln)
					o.publish(ctx, events.LearningAdded, map[string]any{"task_id": t.ID})
				}
				o.publish(ctx, events.TaskComplete, map[string]any{"task_id": t.ID, "ok": false, "error": taskErr.Error()})
				continue
			}
			o.publish(ctx, events.TaskComplete, map[string]any{"task_id": t.ID, "ok": true})
			o.recordTurn(o.turnRole(), "task complete: "+t.Description)
			if topLevel && o.deps.Guardrails != nil {
				o.deps.Guardrails.Scope.Check(guardrails.ChangeSet{LinesChanged: artifactLines(sess, t.TargetPath)})
			}

			if _, err := o.saveCheckpoint(ctx, sess, checkpoint.PhaseTaskComplete, "task "+t.ID+" complete"); err != nil {
				return o.errorResult(ctx, err)
			}

			if len(sess.FilesModified) > 0 {
				if result := o.runConvergence(ctx, sess); result.Status == convergence.StatusEscalated {
					return o.escalatedResult(ctx, sess, result, rec), nil
				} else if result.Status == convergence.StatusTimeout {
					return o.timeoutResult(ctx, sess, rec), nil
				}
			}
		}
		if !progressed {
			break
		}
	}

	if _, err := o.saveCheckpoint(ctx, sess, checkpoint.PhaseImplementationComplete, "all ready tasks executed"); err != nil {
		return o.errorResult(ctx, err)
	}

	// Step 7: Validate, the final gate sweep.
	o.publish(ctx, events.ValidationStart, map[string]any{"files": len(sess.FilesModified)})
	validation := o.runConvergence(ctx, sess)
	switch validation.Status {
	case convergence.StatusEscalated:
		o.publish(ctx, events.ValidationFailed, map[string]any{"reason": string(validation.Reason)})
		return o.escalatedResult(ctx, sess, validation, rec), nil
	case convergence.StatusTimeout:
		o.publish(ctx, events.ValidationFailed, map[string]any{"reason": "timeout"})
		return o.timeoutResult(ctx, sess, rec), nil
	default:
		o.publish(ctx, events.ValidationPassed, map[string]any{"iterations": validation.Iterations})
	}
	if _, err := o.saveCheckpoint(ctx, sess, checkpoint.PhaseReviewComplete, "validation passed"); err != nil {
		return o.errorResult(ctx, err)
	}

	// Step 8: Learn.
	summary, decision := o.learn(ctx, sess, completedTasks, planVersionID)
	if decision != nil {
		rec.decisions = append(rec.decisions, *decision)
	}
	o.recordTurn(dag.RoleAgent, "run summary: "+summary)
	if err := o.deps.Memory.Sync(); err != nil {
		return o.errorResult(ctx, err)
	}

	if topLevel && o.deps.Guardrails != nil {
		o.deps.Guardrails.Scope.CompleteGoal()
		if o.deps.Guardrails.Recovery != nil && o.deps.Guardrails.Recovery.HasSessionTag() {
			if err := o.deps.Guardrails.Recovery.CommitGoal(sess.Goal.ID, summary); err != nil {
				o.deps.Telemetry.Log.Warn(ctx, "goal commit failed", "goal", sess.Goal.ID, "error", err)
			}
		}
	}

	o.publish(ctx, events.Complete, map[string]any{"summary": summary})
	return Result{
		Status:    "complete",
		Summary:   summary,
		Decisions: rec.decisions,
		Learnings: rec.learnings,
		Failure:   rec.failure,
	}, nil
}

// runRecords accumulates the memory records a run produces, carried into
// the terminal Result and consulted by specialist merges as the
// parent's view of this run's decisions.
type runRecords struct {
	decisions []memory.Decision
	learnings []memory.Learning
	failure   *memory.FailedApproach
}

// phaseReached reports whether p is at or past target in phase order.
func phaseReached(p, target checkpoint.Phase) bool {
	pi, ti := -1, -1
	for i, candidate := range phaseOrder {
		if candidate == p {
			pi = i
		}
		if candidate == target {
			ti = i
		}
	}
	return pi >= 0 && ti >= 0 && pi >= ti
}

// orientAndPrefetch runs Orient (memory.GetRelevant) and Prefetch (hint
// path reads) concurrently.
func (o *Orchestrator) orientAndPrefetch(ctx context.Context, sess *session.Context) (memory.Context, map[string]string) {
	type orientResult struct {
		ctx memory.Context
		err error
	}
	orientDone := make(chan orientResult, 1)
	go func() {
		mc, err := o.deps.Memory.GetRelevant(sess.Goal.Description)
		orientDone <- orientResult{ctx: mc, err: err}
	}()

	prefetchDone := make(chan map[string]string, 1)
	go func() {
		pctx, cancel := context.WithTimeout(ctx, o.deps.PrefetchTimeout)
		defer cancel()
		prefetchDone <- o.prefetch(pctx, sess)
	}()

	res := <-orientDone
	if res.err != nil {
		res.ctx = memory.Context{}
	}
	o.publish(ctx, events.Orient, map[string]any{
		"constraints": len(res.ctx.Constraints), "dead_ends": len(res.ctx.DeadEnds),
	})

	o.publish(ctx, events.PrefetchStart, map[string]any{"hints": len(sess.Goal.FileHints)})
	var prefetched map[string]string
	select {
	case prefetched = <-prefetchDone:
		o.publish(ctx, events.PrefetchComplete, map[string]any{"fetched": len(prefetched)})
	case <-time.After(o.deps.PrefetchTimeout + time.Second):
		o.publish(ctx, events.PrefetchTimeout, map[string]any{})
	}

	return res.ctx, prefetched
}

// prefetch reads every goal file hint not already known as a dead end.
func (o *Orchestrator) prefetch(ctx context.Context, sess *session.Context) map[string]string {
	deadEnds := make(map[string]bool)
	if mc, err := o.deps.Memory.GetRelevant(sess.Goal.Description); err == nil {
		for _, f := range mc.DeadEnds {
			deadEnds[f.Context] = true
		}
	}

	hints := make([]string, 0, len(sess.Goal.FileHints))
	for _, hint := range sess.Goal.FileHints {
		hints = append(hints, hint.Path)
	}
	if sess.Briefing != nil {
		hints = append(hints, sess.Briefing.HotFiles...)
	}

	fetched := make(map[string]string)
	for _, path := range hints {
		if deadEnds[path] {
			continue
		}
		select {
		case <-ctx.Done():
			return fetched
		default:
		}
		if _, ok := fetched[path]; ok {
			continue
		}
		res, err := o.deps.Tools.Execute(ctx, tools.Call{Tool: tools.ReadFile, Path: path})
		if err != nil {
			continue
		}
		fetched[path] = res.Output
	}
	return fetched
}

func (o *Orchestrator) dependenciesSatisfied(t session.Task, completed map[string]bool) bool {
	for _, dep := range t.DependsOn {
		if !completed[dep] {
			return false
		}
	}
	return true
}

// executeTask decides whether t should be spawned to a specialist or run
// in-process, and carries it out.
func (o *Orchestrator) executeTask(ctx context.Context, sess *session.Context, budget *spawner.Budget, t session.Task, prefetched map[string]string, rec *runRecords) error {
	if o.shouldSpawn(t) {
		return o.executeViaSpecialist(ctx, sess, budget, t, rec)
	}
	return o.executeInline(ctx, sess, t, prefetched)
}

// shouldSpawn decides delegation: a task with narrow focus and a high
// token estimate is handed to a specialist when the lens permits it.
func (o *Orchestrator) shouldSpawn(t session.Task) bool {
	if !o.deps.Lens.CanSpawn {
		return false
	}
	narrowFocus := t.TargetPath != "" && !strings.HasSuffix(t.TargetPath, "/")
	highEstimate := len(strings.Fields(t.Description)) >= spawnFocusWordThreshold
	return narrowFocus && highEstimate
}

func (o *Orchestrator) executeInline(ctx context.Context, sess *session.Context, t session.Task, prefetched map[string]string) error {
	confidence := 0.75
	_, chosen, err := o.deps.Guardrails.Evaluate(sess.Goal.ID, guardrails.Action{Type: actionTypeFor(t), Path: t.TargetPath}, confidence)
	if err != nil {
		return err
	}
	if chosen != guardrails.OptionApprove && chosen != guardrails.OptionApproveOnce {
		return fmt.Errorf("task %s not approved (%s)", t.ID, chosen)
	}

	var b strings.Builder
	b.WriteString("Task: " + t.Description + "\n")
	b.WriteString("Target: " + t.TargetPath + " (" + string(t.Mode) + ")\n")
	if existing, ok := prefetched[t.TargetPath]; ok {
		b.WriteString("Current content:\n" + existing + "\n")
	}
	b.WriteString("Produce the full resulting file content only.")

	res, err := o.deps.Model.Generate(ctx, b.String(), model.Options{Temperature: 0.2})
	if err != nil {
		return err
	}
	if _, err := o.deps.Tools.Execute(ctx, tools.Call{Tool: tools.WriteFile, Path: t.TargetPath, Content: res.Text}); err != nil {
		return err
	}
	sess.AppendArtifact(session.Artifact{Path: t.TargetPath, Content: res.Text, TaskID: t.ID})
	sess.SetTaskResult(t.ID, "completed inline")
	return nil
}

// plannedChangeSet projects a task list onto the Scope Tracker's change
// shape: one file per distinct target path, flagged by whether any
// source or test paths are touched. Line counts are unknown before
// execution and accounted per task as artifacts land.
func plannedChangeSet(tasks []session.Task) guardrails.ChangeSet {
	seen := make(map[string]bool)
	var cs guardrails.ChangeSet
	for _, t := range tasks {
		if t.TargetPath == "" || seen[t.TargetPath] || t.Mode == session.ModeRead {
			continue
		}
		seen[t.TargetPath] = true
		cs.Files = append(cs.Files, t.TargetPath)
		switch {
		case isTestPath(t.TargetPath):
			cs.TouchesTests = true
		case isDocPath(t.TargetPath):
			// Docs count against file/line budgets but not the
			// source-needs-tests rule.
		default:
			cs.TouchesSource = true
		}
	}
	return cs
}

func isTestPath(path string) bool {
	base := path
	if i := strings.LastIndex(path, "/"); i >= 0 {
		base = path[i+1:]
	}
	return strings.HasSuffix(base, "_test.go") ||
		strings.HasPrefix(base, "test_") ||
		strings.HasPrefix(path, "tests/") ||
		strings.Contains(path, "/tests/")
}

func isDocPath(path string) bool {
	return strings.HasSuffix(path, ".md") || strings.HasSuffix(path, ".txt") ||
		strings.HasPrefix(path, "docs/") || strings.Contains(path, "/docs/")
}

// artifactLines counts the lines of the artifact most recently written
// at path, feeding the Scope Tracker's per-goal line budget.
func artifactLines(sess *session.Context, path string) int {
	a, ok := sess.ArtifactsByPath[path]
	if !ok || a.Content == "" {
		return 0
	}
	return strings.Count(a.Content, "\n") + 1
}

func actionTypeFor(t session.Task) guardrails.ActionType {
	if t.Mode == session.ModeCreate {
		return guardrails.ActionWriteFile
	}
	return guardrails.ActionEditFile
}

func (o *Orchestrator) executeViaSpecialist(ctx context.Context, sess *session.Context, budget *spawner.Budget, t session.Task, rec *runRecords) error {
	childGoal := goal.Goal{
		ID:          ids.NewPrefixed("goal"),
		Description: t.Description,
		Category:    sess.Goal.Category,
		Complexity:  goal.ComplexitySimple,
		Lens:        sess.Goal.Lens,
		FileHints:   []goal.FileHint{{Path: t.TargetPath, Reason: "spawned task target"}},
	}
	childCtx := session.New(ids.NewPrefixed("session"), childGoal, sess.Snapshot())
	childCtx.Options = sess.Options

	req := spawner.Request{
		ParentID: sess.SessionID,
		Role:     "specialist",
		Focus:    t.Description,
		Reason:   "narrow focus, high token estimate",
	}
	id, err := o.spawner.Spawn(ctx, req, o.depth, budget, childCtx)
	if err != nil {
		return err
	}
	outcome, err := o.spawner.Wait(ctx, id)
	if err != nil {
		return err
	}
	if outcome.Err != nil {
		// Containment: a failed specialist merges only its failure
		// record; its buffered decisions and learnings are dropped.
		failOnly := spawner.Outcome{Failure: outcome.Failure}
		for _, f := range spawner.MergeOutcome(rec.decisions, failOnly).Failures {
			_ = o.deps.Memory.AddFailure(f)
			o.publish(ctx, events.FailureRecorded, map[string]any{"task_id": t.ID, "path": t.TargetPath})
		}
		return outcome.Err
	}

	merged := spawner.MergeOutcome(rec.decisions, outcome)
	for _, d := range merged.Decisions {
		_ = o.deps.Memory.AddDecision(d)
		rec.decisions = append(rec.decisions, d)
		o.publish(ctx, events.DecisionMade, map[string]any{"task_id": t.ID, "question": d.Question})
	}
	for _, l := range merged.Learnings {
		_ = o.deps.Memory.AddLearning(l)
		rec.learnings = append(rec.learnings, l)
		o.publish(ctx, events.LearningAdded, map[string]any{"task_id": t.ID})
	}
	for _, f := range merged.Failures {
		_ = o.deps.Memory.AddFailure(f)
		o.publish(ctx, events.FailureRecorded, map[string]any{"task_id": t.ID, "path": t.TargetPath})
	}
	sess.SetTaskResult(t.ID, outcome.Summary)
	return nil
}

// runSpecialist is the Runner the Spawner invokes for every spawn; it
// recurses into a fresh, depth-incremented Orchestrator sharing this
// run's dependencies and spawner, scoped to childCtx. The child's memory
// view is a pending-write Buffer over the parent store: reads are
// shared, writes stay buffered until the parent merges a successful
// outcome.
func (o *Orchestrator) runSpecialist(ctx context.Context, req spawner.Request, childCtx *session.Context) spawner.Outcome {
	buffer := memory.NewBuffer(o.deps.Memory)
	childDeps := o.deps
	childDeps.Memory = buffer
	child := &Orchestrator{
		deps:     childDeps,
		planner:  o.planner,
		spawner:  o.spawner,
		fixer:    o.fixer,
		outcomes: newOutcomeTracker(),
		depth:    o.depth + 1,
	}
	result, err := child.Run(ctx, childCtx)
	outcome := spawner.Outcome{
		Summary:   result.Summary,
		Decisions: buffer.Decisions(),
		Learnings: buffer.Learnings(),
		Failure:   result.Failure,
		Err:       result.Err,
	}
	if err != nil {
		outcome.Err = err
	}
	// Any terminal status short of complete counts as unsuccessful: the
	// buffered records must not merge into parent memory.
	if outcome.Err == nil && result.Status != "complete" {
		outcome.Err = fmt.Errorf("specialist run %s: %s", result.Status, result.Summary)
	}
	if outcome.Failure == nil {
		if buffered := buffer.Failures(); len(buffered) > 0 {
			outcome.Failure = &buffered[len(buffered)-1]
		}
	}
	return outcome
}

func (o *Orchestrator) runConvergence(ctx context.Context, sess *session.Context) convergence.Result {
	loop := convergence.New(o.deps.Gates, o.fixer, o.deps.Bus, o.deps.Convergence)
	return loop.Run(ctx, sess.FilesModified, sess.ArtifactsByPath)
}

// learn extracts a plain-text summary plus an architectural decision
// from the run's tool-use and outcome, persists both along with a
// closing learning, and returns the summary and the decision (nil when
// the run changed nothing worth deciding over).
func (o *Orchestrator) learn(ctx context.Context, sess *session.Context, completed map[string]bool, planVersionID string) (string, *memory.Decision) {
	summary := fmt.Sprintf("goal %q: %d/%d tasks completed", sess.Goal.Description, len(completed), len(sess.Tasks))
	closing := memory.Learning{
		Fact:       summary,
		Category:   "run_summary",
		Confidence: 0.6,
		Sources:    sess.FilesModified,
		CreatedAt:  time.Now(),
	}
	_ = o.deps.Memory.AddLearning(closing)
	o.publish(ctx, events.LearningAdded, map[string]any{"category": "run_summary"})

	var decision *memory.Decision
	if len(sess.FilesModified) > 0 {
		d := memory.Decision{
			Category:     string(sess.Goal.Category),
			Question:     "approach for: " + sess.Goal.Description,
			ChosenOption: fmt.Sprintf("plan %s touching %s", planVersionID, strings.Join(sess.FilesModified, ", ")),
			Rationale:    summary + "; validated stable",
			CreatedAt:    time.Now(),
		}
		_ = o.deps.Memory.AddDecision(d)
		o.publish(ctx, events.DecisionMade, map[string]any{"question": d.Question, "plan_version": planVersionID})
		decision = &d
	}

	if sess.Workspace.Path != "" {
		briefing := session.Briefing{
			Summary:  summary,
			Mission:  sess.Goal.Description,
			HotFiles: sess.FilesModified,
			SavedAt:  time.Now(),
		}
		if f := o.outcomes.hazards(); len(f) > 0 {
			briefing.Hazards = f
		}
		_ = saveBriefing(sess.Workspace.Path, briefing)
	}
	return summary, decision
}

func (o *Orchestrator) errorResult(ctx context.Context, err error) (Result, error) {
	o.publish(ctx, events.Error, map[string]any{"error": err.Error()})
	return Result{Status: "error", Err: err}, err
}

func (o *Orchestrator) escalatedResult(ctx context.Context, sess *session.Context, conv convergence.Result, rec *runRecords) Result {
	o.publish(ctx, events.Escalate, map[string]any{"reason": string(conv.Reason), "iterations": conv.Iterations})
	return Result{Status: "escalated", Summary: "convergence escalated: " + string(conv.Reason), Decisions: rec.decisions, Learnings: rec.learnings, Failure: rec.failure}
}

// cancelledResult persists a user checkpoint so the run can resume from
// where the cancellation landed, then reports the cancelled status.
func (o *Orchestrator) cancelledResult(ctx context.Context, sess *session.Context, rec *runRecords) Result {
	_, _ = o.saveCheckpoint(context.WithoutCancel(ctx), sess, checkpoint.PhaseUserCheckpoint, "cancelled by user")
	o.publish(ctx, events.Cancelled, map[string]any{"reason": "user abort"})
	return Result{Status: "cancelled", Summary: "run cancelled", Decisions: rec.decisions, Learnings: rec.learnings, Failure: rec.failure}
}

func (o *Orchestrator) timeoutResult(ctx context.Context, sess *session.Context, rec *runRecords) Result {
	o.publish(ctx, events.Cancelled, map[string]any{"reason": "convergence timeout"})
	return Result{Status: "timeout", Summary: "convergence timed out", Decisions: rec.decisions, Learnings: rec.learnings, Failure: rec.failure}
}

// recordTurn appends to the conversation DAG when one is configured,
// chaining each turn onto the current head. Failures are non-fatal; the
// DAG is an observability artifact, not run state.
func (o *Orchestrator) recordTurn(role dag.Role, content string) {
	if o.deps.Turns == nil {
		return
	}
	var parents []string
	if head := o.deps.Turns.Head(); head != "" {
		parents = append(parents, head)
	}
	_, _ = o.deps.Turns.Append(role, content, parents...)
}

// turnRole distinguishes a specialist's turns from the parent agent's.
func (o *Orchestrator) turnRole() dag.Role {
	if o.depth > 0 {
		return dag.RoleSpecialist
	}
	return dag.RoleAgent
}

func (o *Orchestrator) publish(ctx context.Context, t events.Type, data map[string]any) {
	if o.deps.Bus == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	_ = o.deps.Bus.Publish(ctx, events.New(t, data))
}
