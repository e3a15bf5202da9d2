package spawner

import (
	"time"

	"github.com/sunwell-ai/core/memory"
)

// MergeResult is what MergeOutcome writes into the parent memory store.
type MergeResult struct {
	Decisions []memory.Decision
	Learnings []memory.Learning
	Failures  []memory.FailedApproach
}

// MergeOutcome folds a completed specialist's pending memory buffer into
// the parent's view: parent-first on conflict, child records appended
// with a later timestamp. Concretely:
// parent-authored Decisions for the same Category+Question are kept
// as-is; the child's Decisions on the same key are dropped rather than
// overriding the parent's, and every child record (whether conflicting
// or not) is appended with its CreatedAt bumped to be strictly later
// than the corresponding parent record so a chronological read of
// memory always shows the parent's choice first.
func MergeOutcome(parentDecisions []memory.Decision, outcome Outcome) MergeResult {
	parentKeys := make(map[string]struct{}, len(parentDecisions))
	var latestParent time.Time
	for _, d := range parentDecisions {
		parentKeys[decisionKey(d)] = struct{}{}
		if d.CreatedAt.After(latestParent) {
			latestParent = d.CreatedAt
		}
	}

	result := MergeResult{}
	for _, d := range outcome.Decisions {
		if _, conflict := parentKeys[decisionKey(d)]; conflict {
			// Parent-first: the parent's decision for this question stands;
			// the child's conflicting decision is not merged in.
			continue
		}
		d.CreatedAt = laterThan(d.CreatedAt, latestParent)
		result.Decisions = append(result.Decisions, d)
	}

	for _, l := range outcome.Learnings {
		l.CreatedAt = laterThan(l.CreatedAt, latestParent)
		result.Learnings = append(result.Learnings, l)
	}

	if outcome.Failure != nil {
		f := *outcome.Failure
		f.CreatedAt = laterThan(f.CreatedAt, latestParent)
		result.Failures = append(result.Failures, f)
	}

	return result
}

func decisionKey(d memory.Decision) string {
	return d.Category + "\x00" + d.Question
}

// laterThan returns t if it is already strictly after floor, otherwise
// floor advanced by one nanosecond so ordering by CreatedAt is stable.
func laterThan(t, floor time.Time) time.Time {
	if t.After(floor) {
		return t
	}
	return floor.Add(time.Nanosecond)
}
