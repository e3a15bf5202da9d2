// Package dag persists a session's conversation history as an
// append-only DAG of turns under
// .sunwell/memory/sessions/<session_id>/turns.jsonl. Each turn names its
// parents, so branching exchanges (a retried plan, a specialist's side
// conversation) share ancestry without rewriting history. Checkpoints
// reference the head turn id as their memory snapshot pointer.
package dag

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sunwell-ai/core/ids"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAgent     Role = "agent"
	RoleSystem    Role = "system"
	RoleSpecialist Role = "specialist"
)

// Turn is one node in the conversation DAG. ParentIDs is empty for a
// root turn; multiple parents mark a merge (e.g. a specialist's summary
// joining back into the parent thread).
type Turn struct {
	ID        string    `json:"id"`
	ParentIDs []string  `json:"parent_ids,omitempty"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Log is the append-only store for one session's turns. Mutations are
// serialized with a mutex; reads hand out copies.
type Log struct {
	mu    sync.Mutex
	path  string
	turns []Turn
	byID  map[string]int
}

// Open hydrates the turn log for sessionID from disk, creating the
// session directory if missing.
func Open(workspaceRoot, sessionID string) (*Log, error) {
	dir := filepath.Join(workspaceRoot, ".sunwell", "memory", "sessions", sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	l := &Log{
		path: filepath.Join(dir, "turns.jsonl"),
		byID: make(map[string]int),
	}
	turns, err := readTurns(l.path)
	if err != nil {
		return nil, err
	}
	for _, t := range turns {
		l.byID[t.ID] = len(l.turns)
		l.turns = append(l.turns, t)
	}
	return l, nil
}

// Append records a new turn with the given parents and returns it. Every
// named parent must already exist in the log; an unknown parent is an
// error rather than a dangling edge.
func (l *Log) Append(role Role, content string, parentIDs ...string) (Turn, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, p := range parentIDs {
		if _, ok := l.byID[p]; !ok {
			return Turn{}, fmt.Errorf("dag: unknown parent turn %q", p)
		}
	}
	t := Turn{
		ID:        ids.NewPrefixed("turn"),
		ParentIDs: append([]string(nil), parentIDs...),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := appendTurn(l.path, t); err != nil {
		return Turn{}, err
	}
	l.byID[t.ID] = len(l.turns)
	l.turns = append(l.turns, t)
	return t, nil
}

// Head returns the id of the most recently appended turn, or "" when the
// log is empty.
func (l *Log) Head() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.turns) == 0 {
		return ""
	}
	return l.turns[len(l.turns)-1].ID
}

// Heads returns every turn no other turn names as a parent, in append
// order. A linear conversation has one head; concurrent specialist
// threads produce several until their summaries merge back.
func (l *Log) Heads() []Turn {
	l.mu.Lock()
	defer l.mu.Unlock()

	referenced := make(map[string]bool)
	for _, t := range l.turns {
		for _, p := range t.ParentIDs {
			referenced[p] = true
		}
	}
	var heads []Turn
	for _, t := range l.turns {
		if !referenced[t.ID] {
			heads = append(heads, t)
		}
	}
	return heads
}

// Turns returns a copy of every turn in append order.
func (l *Log) Turns() []Turn {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

// Thread linearizes the ancestry of headID, oldest first, following each
// turn's first parent. Returns an error if headID is unknown.
func (l *Log) Thread(headID string) ([]Turn, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx, ok := l.byID[headID]
	if !ok {
		return nil, fmt.Errorf("dag: unknown turn %q", headID)
	}
	var chain []Turn
	for {
		t := l.turns[idx]
		chain = append(chain, t)
		if len(t.ParentIDs) == 0 {
			break
		}
		idx, ok = l.byID[t.ParentIDs[0]]
		if !ok {
			break
		}
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}
