// Package spawner implements the Specialist Spawner:
// bounded delegation of a subtask to a child agent, with depth and
// child-count caps, token-budget splitting, and a pending-buffer memory
// model that only merges into the parent on success.
package spawner

import (
	"context"
	"sync"

	"github.com/sunwell-ai/core/errs"
	"github.com/sunwell-ai/core/events"
	"github.com/sunwell-ai/core/ids"
	"github.com/sunwell-ai/core/memory"
	"github.com/sunwell-ai/core/session"
)

// DefaultTokenBudget is the spawn token budget used when the parent has
// no remaining budget tracked.
const DefaultTokenBudget = 5000

// DefaultMaxSpawnDepth is the fallback depth cap.
const DefaultMaxSpawnDepth = 3

// DefaultMaxChildren is the fallback per-lens child-count cap.
const DefaultMaxChildren = 3

// Request describes a bounded delegation to a child agent.
type Request struct {
	ParentID      string
	Role          string
	Focus         string
	Reason        string
	ToolWhitelist []string
	ContextKeys   []string
	TokenBudget   int
}

// Outcome is what a specialist run reports back to its parent: a
// summary plus any new learnings/decisions. On failure, only the
// failure record is merged.
type Outcome struct {
	Summary   string
	Decisions []memory.Decision
	Learnings []memory.Learning
	Failure   *memory.FailedApproach
	Err       error
}

// Runner executes one specialist's work. Implementations typically
// construct a nested Orchestrator run scoped to childCtx.
type Runner interface {
	Run(ctx context.Context, req Request, childCtx *session.Context) Outcome
}

// pendingResult holds an in-flight or completed specialist run.
type pendingResult struct {
	done    chan struct{}
	outcome Outcome
}

// Spawner tracks in-flight and completed specialist runs per parent,
// enforcing depth and child-count caps.
type Spawner struct {
	mu          sync.Mutex
	bus         events.Bus
	runner      Runner
	maxDepth    int
	maxChildren int
	depthByID   map[string]int
	childrenOf  map[string]int
	results     map[string]*pendingResult
}

// New constructs a Spawner bound to a Runner and an event bus.
func New(runner Runner, bus events.Bus, maxDepth, maxChildren int) *Spawner {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxSpawnDepth
	}
	if maxChildren <= 0 {
		maxChildren = DefaultMaxChildren
	}
	return &Spawner{
		bus:         bus,
		runner:      runner,
		maxDepth:    maxDepth,
		maxChildren: maxChildren,
		depthByID:   make(map[string]int),
		childrenOf:  make(map[string]int),
		results:     make(map[string]*pendingResult),
	}
}

// Spawn delegates req to a child agent, returning the new specialist's
// id. parentBudget is consulted for the 80/20 token split: the parent
// keeps 80%, each spawn is allocated 20%.
func (s *Spawner) Spawn(ctx context.Context, req Request, parentDepth int, parentBudget *Budget, childCtx *session.Context) (string, error) {
	if parentDepth+1 > s.maxDepth {
		return "", errs.Newf(errs.BudgetExceeded, "SpawnDepthExceeded: depth %d exceeds max_spawn_depth %d", parentDepth+1, s.maxDepth)
	}

	s.mu.Lock()
	if s.childrenOf[req.ParentID] >= s.maxChildren {
		s.mu.Unlock()
		return "", errs.Newf(errs.BudgetExceeded, "parent %s already has max_children (%d) specialists", req.ParentID, s.maxChildren)
	}
	s.childrenOf[req.ParentID]++
	s.mu.Unlock()

	if req.TokenBudget == 0 {
		if parentBudget != nil {
			req.TokenBudget = parentBudget.Allocate(0.2, DefaultTokenBudget)
		} else {
			req.TokenBudget = DefaultTokenBudget
		}
	}

	specialistID := ids.NewPrefixed("specialist")
	s.mu.Lock()
	s.depthByID[specialistID] = parentDepth + 1
	pr := &pendingResult{done: make(chan struct{})}
	s.results[specialistID] = pr
	s.mu.Unlock()

	s.publish(ctx, specialistID, events.SpecialistSpawned, map[string]any{
		"parent_id": req.ParentID, "role": req.Role, "focus": req.Focus,
	})

	go func() {
		outcome := s.runner.Run(ctx, req, childCtx)
		pr.outcome = outcome
		close(pr.done)

		data := map[string]any{"parent_id": req.ParentID, "summary": outcome.Summary}
		if outcome.Err != nil {
			data["error"] = outcome.Err.Error()
		}
		s.publish(ctx, specialistID, events.SpecialistCompleted, data)
	}()

	return specialistID, nil
}

// Wait blocks until the specialist identified by id completes, or ctx
// is cancelled.
func (s *Spawner) Wait(ctx context.Context, specialistID string) (Outcome, error) {
	s.mu.Lock()
	pr, ok := s.results[specialistID]
	s.mu.Unlock()
	if !ok {
		return Outcome{}, errs.Newf(errs.Internal, "unknown specialist id %q", specialistID)
	}

	select {
	case <-pr.done:
		return pr.outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// publish tags every spawner event with the specialist id so consumers
// can re-project an interleaved stream per specialist.
func (s *Spawner) publish(ctx context.Context, specialistID string, t events.Type, data map[string]any) {
	if s.bus == nil {
		return
	}
	_ = s.bus.Publish(ctx, events.New(t, data).WithSpecialist(specialistID))
}

// Budget tracks a parent's remaining token allotment so spawns can take
// their 20% share while the parent retains 80%.
type Budget struct {
	mu        sync.Mutex
	remaining int
}

// NewBudget constructs a Budget with the given total.
func NewBudget(total int) *Budget {
	return &Budget{remaining: total}
}

// Allocate reserves fraction of the current remaining budget (bounded
// by maxTokens) for a spawned child, deducting it from the remaining
// pool.
func (b *Budget) Allocate(fraction float64, maxTokens int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	share := int(float64(b.remaining) * fraction)
	if share <= 0 || share > maxTokens {
		share = maxTokens
	}
	if share > b.remaining {
		share = b.remaining
	}
	b.remaining -= share
	return share
}

// Remaining reports the parent's current remaining budget.
func (b *Budget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remaining
}
