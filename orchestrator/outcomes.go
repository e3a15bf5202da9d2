package orchestrator

import (
	"sort"
	"sync"
	"time"

	"github.com/sunwell-ai/core/memory"
)

// outcomeTracker decides whether a task failure becomes a durable
// memory.FailedApproach or a low-confidence memory.Learning: the same
// target path failing twice within one run
// is promoted to a FailedApproach; a first failure at a path is recorded
// as a tentative Learning instead, since a single failure may just be a
// transient model mistake rather than a genuine dead end.
type outcomeTracker struct {
	mu        sync.Mutex
	failCount map[string]int
}

func newOutcomeTracker() *outcomeTracker {
	return &outcomeTracker{failCount: make(map[string]int)}
}

// lowConfidenceLearning is the confidence assigned to a single-failure
// Learning candidate; low enough that the planner's top-K selection
// rarely surfaces it ahead of a confirmed one.
const lowConfidenceLearning = 0.3

// hazards lists every path that failed at least once this run, carried
// into the closing briefing so the next session re-checks them early.
func (t *outcomeTracker) hazards() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.failCount))
	for path := range t.failCount {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

// record increments the failure count for path and returns either a
// FailedApproach (second-or-later failure) or a Learning (first
// failure), never both.
func (t *outcomeTracker) record(path, description, errKind, rootCause string) (*memory.FailedApproach, *memory.Learning) {
	t.mu.Lock()
	t.failCount[path]++
	n := t.failCount[path]
	t.mu.Unlock()

	now := time.Now()
	if n >= 2 {
		return &memory.FailedApproach{
			Description: description,
			ErrorKind:   errKind,
			RootCause:   rootCause,
			Context:     path,
			CreatedAt:   now,
		}, nil
	}
	return nil, &memory.Learning{
		Fact:       "attempt at " + path + " failed: " + rootCause,
		Category:   "tentative_failure",
		Confidence: lowConfidenceLearning,
		Sources:    []string{path},
		CreatedAt:  now,
	}
}
