package planner

import (
	"context"
	"fmt"
	"sort"

	"github.com/sunwell-ai/core/events"
	"github.com/sunwell-ai/core/goal"
	"github.com/sunwell-ai/core/lens"
	"github.com/sunwell-ai/core/memory"
	"github.com/sunwell-ai/core/model"
	"github.com/sunwell-ai/core/session"
)

// Options configures a Planner's candidate pool, refinement rounds, and
// how many learnings to inject per prompt.
type Options struct {
	// Candidates is the number of parallel candidates generated per plan
	// call.
	Candidates int
	// RefineRounds caps refinement attempts.
	RefineRounds int
	// TopLearnings bounds how many learnings are injected into prompts.
	TopLearnings int
}

// DefaultOptions is the tuning used when the caller passes zero values.
var DefaultOptions = Options{Candidates: 5, RefineRounds: 2, TopLearnings: 5}

// Planner implements the Harmonic Planner.
type Planner struct {
	model   model.Model
	bus     events.Bus
	opts    Options
	weights lens.ScoreWeights
	scorer  *scorer
	store   *VersionStore
}

// New constructs a Planner bound to a model, an event bus, a lens'
// resolved weights, and a shared VersionStore (one per workspace, so
// history survives across goals within a session).
func New(m model.Model, bus events.Bus, l lens.Lens, store *VersionStore, opts Options) *Planner {
	if opts.Candidates <= 0 {
		opts.Candidates = DefaultOptions.Candidates
	}
	if opts.RefineRounds < 0 {
		opts.RefineRounds = DefaultOptions.RefineRounds
	}
	if opts.TopLearnings <= 0 {
		opts.TopLearnings = DefaultOptions.TopLearnings
	}
	weights := l.ResolvedWeights()
	return &Planner{
		model:   m,
		bus:     bus,
		opts:    opts,
		weights: weights,
		scorer:  newScorer(weights),
		store:   store,
	}
}

// Result is the outcome of a Plan call.
type Result struct {
	Tasks     []session.Task
	Score     float64
	Metrics   model.Usage
	VersionID string
}

// Plan runs the full candidate-generation, scoring, and refinement
// pipeline for g and returns the winning plan's tasks, score, metrics,
// and accepted version id.
func (p *Planner) Plan(ctx context.Context, g goal.Goal, ws session.Workspace, mem memory.Context) (Result, error) {
	goalHash := g.Hash()
	prompt := buildPrompt(g, ws, mem, p.opts.TopLearnings)

	p.publish(ctx, events.PlanStart, map[string]any{"goal_id": g.ID})
	p.publish(ctx, events.PlanCandidateStart, map[string]any{"n": p.opts.Candidates})

	candidates := generateCandidates(ctx, p.model, prompt, p.opts.Candidates)
	for _, c := range candidates {
		p.publish(ctx, events.PlanCandidateGenerated, map[string]any{"candidate_id": c.ID})
	}
	p.publish(ctx, events.PlanCandidatesComplete, map[string]any{"generated": len(candidates)})

	var usage model.Usage
	for _, c := range candidates {
		usage.InputTokens += c.Usage.InputTokens
		usage.OutputTokens += c.Usage.OutputTokens
	}

	if len(candidates) == 0 {
		p.publishSeverity(ctx, events.Error, map[string]any{"reason": "all planner candidates failed to generate"}, events.SeverityWarn)
		degenerate := degenerateCandidate(g.Description)
		v := p.store.Accept(goalHash, ReasonInitial, degenerate.Tasks, 0)
		return Result{Tasks: degenerate.Tasks, Score: 0, Metrics: usage, VersionID: v.ID}, nil
	}

	scored := make([]ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		s := p.scorer.score(c, g.Description, ws, mem)
		p.publish(ctx, events.PlanCandidateScored, map[string]any{"candidate_id": c.ID, "score": s.Score})
		scored = append(scored, s)
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	p.publish(ctx, events.PlanScoringComplete, map[string]any{"winner": scored[0].Candidate.ID, "score": scored[0].Score})

	leader := scored[0]
	version := p.store.Accept(goalHash, ReasonInitial, leader.Candidate.Tasks, leader.Score)

	if p.opts.RefineRounds > 0 {
		p.publish(ctx, events.PlanRefineStart, map[string]any{"rounds": p.opts.RefineRounds})
	}
	for round := 1; round <= p.opts.RefineRounds; round++ {
		p.publish(ctx, events.PlanRefineAttempt, map[string]any{"round": round})

		refined, err := p.model.Generate(ctx, refinePrompt(leader.Candidate.RawText, leader), model.Options{Temperature: 0.3})
		if err != nil {
			continue
		}
		tasks := parseTasks(refined.Text)
		if len(tasks) == 0 {
			continue
		}
		usage.InputTokens += refined.Usage.InputTokens
		usage.OutputTokens += refined.Usage.OutputTokens

		candidate := Candidate{ID: fmt.Sprintf("refine-%d", round), Tasks: tasks, RawText: refined.Text}
		rescored := p.scorer.score(candidate, g.Description, ws, mem)

		// A refined candidate is accepted only if its score strictly
		// improves; a tie keeps the original for determinism.
		if rescored.Score <= leader.Score {
			continue
		}
		leader = rescored
		version = p.store.Accept(goalHash, ReasonRefined, leader.Candidate.Tasks, leader.Score)
		p.publish(ctx, events.PlanRefineComplete, map[string]any{"round": round, "score": leader.Score})
	}
	if p.opts.RefineRounds > 0 {
		p.publish(ctx, events.PlanRefineFinal, map[string]any{"score": leader.Score})
	}

	p.publish(ctx, events.PlanComplete, map[string]any{"task_count": len(leader.Candidate.Tasks), "score": leader.Score})

	return Result{Tasks: leader.Candidate.Tasks, Score: leader.Score, Metrics: usage, VersionID: version.ID}, nil
}

func (p *Planner) publish(ctx context.Context, t events.Type, data map[string]any) events.Event {
	e := events.New(t, data)
	if p.bus != nil {
		_ = p.bus.Publish(ctx, e)
	}
	return e
}

func (p *Planner) publishSeverity(ctx context.Context, t events.Type, data map[string]any, sev events.Severity) events.Event {
	e := events.New(t, data).WithSeverity(sev)
	if p.bus != nil {
		_ = p.bus.Publish(ctx, e)
	}
	return e
}
