package convergence

import (
	"context"
	"sync"
	"time"

	"github.com/sunwell-ai/core/events"
	"github.com/sunwell-ai/core/model"
	"github.com/sunwell-ai/core/session"
)

// Status is the closed set of Convergence Loop states: Running, and the
// terminal states Stable, Escalated, Timeout, Cancelled.
type Status string

const (
	StatusRunning   Status = "Running"
	StatusStable    Status = "Stable"
	StatusEscalated Status = "Escalated"
	StatusTimeout   Status = "Timeout"
	StatusCancelled Status = "Cancelled"
)

// EscalationReason names why an Escalated result occurred.
type EscalationReason string

const (
	EscalationBudgetExceeded EscalationReason = "budget_exceeded"
	EscalationStuck          EscalationReason = "stuck"
	EscalationMaxIterations  EscalationReason = "max_iterations"
)

// Config are the Convergence Loop's tunables.
type Config struct {
	TimeoutSeconds         int
	MaxTokens              int
	MaxIterations          int
	EscalateAfterSameError int
	DebounceMS             int
}

// DefaultConfig is the stock tuning; callers override per lens or flag.
var DefaultConfig = Config{
	TimeoutSeconds:         600,
	MaxTokens:              50_000,
	MaxIterations:          10,
	EscalateAfterSameError: DefaultEscalateAfterSameError,
	DebounceMS:             200,
}

// TypedError is a gate failure converted into a typed record for the
// fixer.
type TypedError struct {
	Gate    GateKind
	Message string
}

// FixResult is what a Fixer reports after attempting a repair.
type FixResult struct {
	WrittenFiles []string
	Usage        model.Usage
}

// Fixer invokes the model against the current artifacts to repair
// reported gate failures.
type Fixer interface {
	Fix(ctx context.Context, errs []TypedError, artifacts map[string]session.Artifact) (FixResult, error)
}

// Result is the Convergence Loop's terminal output.
type Result struct {
	Status     Status
	Reason     EscalationReason
	Iterations int
	DurationMS int64
	TokensUsed int
}

// Loop runs gates concurrently against changed files, invoking a Fixer
// on failure until the artifacts stabilize or an escalation condition
// triggers.
type Loop struct {
	gates  []Gate
	fixer  Fixer
	bus    events.Bus
	config Config
}

// New constructs a Loop bound to a gate set and a fixer.
func New(gates []Gate, fixer Fixer, bus events.Bus, config Config) *Loop {
	if config.MaxIterations <= 0 {
		config.MaxIterations = DefaultConfig.MaxIterations
	}
	if config.EscalateAfterSameError <= 0 {
		config.EscalateAfterSameError = DefaultConfig.EscalateAfterSameError
	}
	if config.DebounceMS <= 0 {
		config.DebounceMS = DefaultConfig.DebounceMS
	}
	if config.TimeoutSeconds <= 0 {
		config.TimeoutSeconds = DefaultConfig.TimeoutSeconds
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = DefaultConfig.MaxTokens
	}
	return &Loop{gates: gates, fixer: fixer, bus: bus, config: config}
}

// Run validates changedFiles against all gates, repeatedly invoking the
// fixer until stable or an escalation condition fires.
func (l *Loop) Run(ctx context.Context, changedFiles []string, artifacts map[string]session.Artifact) Result {
	start := time.Now()
	tracker := newStuckTracker()
	tokensUsed := 0
	files := changedFiles
	initial := append([]string(nil), changedFiles...)

	l.publish(ctx, events.ConvergenceStart, map[string]any{"files": len(changedFiles)})

	for iteration := 1; ; iteration++ {
		// Cancellation is honored at each iteration boundary.
		select {
		case <-ctx.Done():
			l.publish(ctx, events.Cancelled, map[string]any{"iteration": iteration})
			return l.result(StatusCancelled, "", iteration-1, start, tokensUsed)
		default:
		}

		elapsed := time.Since(start)
		if elapsed.Seconds() > float64(l.config.TimeoutSeconds) {
			l.publish(ctx, events.ConvergenceTimeout, map[string]any{"iteration": iteration})
			return l.result(StatusTimeout, "", iteration-1, start, tokensUsed)
		}
		if tokensUsed > l.config.MaxTokens {
			l.publish(ctx, events.ConvergenceBudgetExceeded, map[string]any{"iteration": iteration})
			return l.result(StatusEscalated, EscalationBudgetExceeded, iteration-1, start, tokensUsed)
		}
		if iteration > l.config.MaxIterations {
			l.publish(ctx, events.ConvergenceMaxIterations, map[string]any{"iteration": iteration})
			return l.result(StatusEscalated, EscalationMaxIterations, iteration-1, start, tokensUsed)
		}

		l.publish(ctx, events.ConvergenceIterationStart, map[string]any{"iteration": iteration, "files": len(files)})
		results := l.runGates(ctx, files)
		l.publish(ctx, events.ConvergenceIterationDone, map[string]any{"iteration": iteration})

		var failed []GateResult
		for _, r := range results {
			if !r.Passed {
				failed = append(failed, r)
			}
		}
		if len(failed) == 0 {
			l.publish(ctx, events.ConvergenceStable, map[string]any{"iteration": iteration})
			return l.result(StatusStable, "", iteration, start, tokensUsed)
		}

		for _, r := range failed {
			for _, errMsg := range r.Errors {
				if tracker.record(r.Kind, errMsg) >= l.config.EscalateAfterSameError {
					l.publish(ctx, events.ConvergenceStuck, map[string]any{"iteration": iteration, "gate": r.Kind})
					return l.result(StatusEscalated, EscalationStuck, iteration, start, tokensUsed)
				}
			}
		}

		typed := make([]TypedError, 0)
		for _, r := range failed {
			for _, e := range r.Errors {
				typed = append(typed, TypedError{Gate: r.Kind, Message: e})
			}
		}

		l.publish(ctx, events.ConvergenceFixing, map[string]any{"iteration": iteration, "error_count": len(typed)})
		fix, err := l.fixer.Fix(ctx, typed, artifacts)
		if err != nil {
			// A fixer failure is itself treated as the same stuck signal
			// the model would have produced had it replied with the same
			// error; the loop continues to retry up to max_iterations.
			tracker.record(GateSyntax, err.Error())
			continue
		}
		tokensUsed += fix.Usage.Total()

		// Only files reported changed within the current iteration (or
		// the initial set if no writes occurred) are revalidated next
		// iteration; when no writes occur, re-check all initial files to
		// avoid deadlock on a silent no-op fix.
		if len(fix.WrittenFiles) > 0 {
			files = fix.WrittenFiles
		} else {
			files = initial
		}

		time.Sleep(time.Duration(l.config.DebounceMS) * time.Millisecond)
	}
}

// runGates executes every configured gate concurrently against files,
// each respecting its own per-kind timeout.
func (l *Loop) runGates(ctx context.Context, files []string) []GateResult {
	results := make([]GateResult, len(l.gates))
	var wg sync.WaitGroup
	for i, g := range l.gates {
		wg.Add(1)
		go func(i int, g Gate) {
			defer wg.Done()
			timeout := GateTimeouts[g.Kind()]
			gctx := ctx
			var cancel context.CancelFunc
			if timeout > 0 {
				gctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			results[i] = g.Run(gctx, files)
		}(i, g)
	}
	wg.Wait()
	return results
}

func (l *Loop) result(status Status, reason EscalationReason, iterations int, start time.Time, tokensUsed int) Result {
	return Result{
		Status:     status,
		Reason:     reason,
		Iterations: iterations,
		DurationMS: time.Since(start).Milliseconds(),
		TokensUsed: tokensUsed,
	}
}

func (l *Loop) publish(ctx context.Context, t events.Type, data map[string]any) {
	if l.bus == nil {
		return
	}
	_ = l.bus.Publish(ctx, events.New(t, data))
}
