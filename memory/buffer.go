package memory

import "sync"

// Buffer is the pending-write view of a parent Store handed to a
// spawned specialist: reads are shared with the parent, writes
// accumulate in memory and reach the parent store only when the parent
// merges a successful outcome. A failed specialist's buffered records
// are simply dropped, except for its failure record.
type Buffer struct {
	mu     sync.Mutex
	parent Store

	decisions []Decision
	learnings []Learning
	failures  []FailedApproach
}

// NewBuffer wraps parent with a pending-write buffer.
func NewBuffer(parent Store) *Buffer {
	return &Buffer{parent: parent}
}

// AddDecision buffers a decision without touching the parent store.
func (b *Buffer) AddDecision(d Decision) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.decisions = append(b.decisions, d)
	return nil
}

// AddFailure buffers a failure record without touching the parent store.
func (b *Buffer) AddFailure(f FailedApproach) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = append(b.failures, f)
	return nil
}

// AddLearning buffers a learning without touching the parent store.
func (b *Buffer) AddLearning(l Learning) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.learnings = append(b.learnings, l)
	return nil
}

// Patterns reads through to the parent store.
func (b *Buffer) Patterns() ([]Pattern, error) {
	return b.parent.Patterns()
}

// GetRelevant reads through to the parent store; buffered records are
// deliberately invisible until merged.
func (b *Buffer) GetRelevant(goalDescription string) (Context, error) {
	return b.parent.GetRelevant(goalDescription)
}

// Sync is a no-op: pending writes are flushed by the parent's merge on
// successful completion, never by the child itself. Idempotent.
func (b *Buffer) Sync() error { return nil }

// Decisions returns a copy of the buffered decisions.
func (b *Buffer) Decisions() []Decision {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Decision(nil), b.decisions...)
}

// Learnings returns a copy of the buffered learnings.
func (b *Buffer) Learnings() []Learning {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Learning(nil), b.learnings...)
}

// Failures returns a copy of the buffered failure records.
func (b *Buffer) Failures() []FailedApproach {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]FailedApproach(nil), b.failures...)
}
