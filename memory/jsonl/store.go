// Package jsonl implements memory.Store against the append-only JSONL
// layout under a workspace's .sunwell/ directory:
// intelligence/decisions.jsonl, intelligence/failures.jsonl,
// memory/learnings/learnings.jsonl, intelligence/patterns.yaml, and the
// optional team/shared.jsonl.
package jsonl

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/sunwell-ai/core/memory"
)

// Layout names the files a Store reads and writes, relative to a
// workspace's .sunwell root.
type Layout struct {
	Root string
}

func (l Layout) decisionsPath() string { return filepath.Join(l.Root, "intelligence", "decisions.jsonl") }
func (l Layout) failuresPath() string  { return filepath.Join(l.Root, "intelligence", "failures.jsonl") }
func (l Layout) learningsPath() string {
	return filepath.Join(l.Root, "memory", "learnings", "learnings.jsonl")
}
func (l Layout) patternsPath() string { return filepath.Join(l.Root, "intelligence", "patterns.yaml") }
func (l Layout) teamPath() string     { return filepath.Join(l.Root, "team", "shared.jsonl") }

// Store is a workspace-scoped memory.Store backed by JSONL append-only
// files. Reads require no lock; mutations are serialized with a single
// per-store mutex, with I/O performed outside the lock only for the
// append buffer flush, not for the append itself (append is already an
// O(1) write, not worth a two-phase split).
type Store struct {
	mu     sync.Mutex
	layout Layout
}

// Open prepares a Store rooted at workspaceRoot/.sunwell, creating the
// directories used by the layout if missing.
func Open(workspaceRoot string) (*Store, error) {
	root := filepath.Join(workspaceRoot, ".sunwell")
	l := Layout{Root: root}
	dirs := []string{
		filepath.Dir(l.decisionsPath()),
		filepath.Dir(l.learningsPath()),
		filepath.Dir(l.teamPath()),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, err
		}
	}
	return &Store{layout: l}, nil
}

func appendJSONL(path string, v any) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	return enc.Encode(v)
}

func readJSONL[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []T
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var v T
		if err := json.Unmarshal([]byte(line), &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, scanner.Err()
}

// AddDecision appends a Decision record.
func (s *Store) AddDecision(d memory.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendJSONL(s.layout.decisionsPath(), d)
}

// AddFailure appends a FailedApproach record.
func (s *Store) AddFailure(f memory.FailedApproach) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendJSONL(s.layout.failuresPath(), f)
}

// AddLearning appends a Learning record.
func (s *Store) AddLearning(l memory.Learning) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendJSONL(s.layout.learningsPath(), l)
}

// Patterns loads intelligence/patterns.yaml, returning an empty slice if
// the file does not exist yet.
func (s *Store) Patterns() ([]memory.Pattern, error) {
	raw, err := os.ReadFile(s.layout.patternsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var patterns []memory.Pattern
	if err := yaml.Unmarshal(raw, &patterns); err != nil {
		return nil, err
	}
	return patterns, nil
}

// GetRelevant builds a memory.Context from the full on-disk history.
// goalDescription is currently unused for filtering (no embedding/search
// component is in scope); callers narrow further with in-memory
// filtering once records are loaded. Kept as a parameter so a future
// relevance ranker has a stable call site.
func (s *Store) GetRelevant(_ string) (memory.Context, error) {
	decisions, err := readJSONL[memory.Decision](s.layout.decisionsPath())
	if err != nil {
		return memory.Context{}, err
	}
	failures, err := readJSONL[memory.FailedApproach](s.layout.failuresPath())
	if err != nil {
		return memory.Context{}, err
	}
	learnings, err := readJSONL[memory.Learning](s.layout.learningsPath())
	if err != nil {
		return memory.Context{}, err
	}
	team, err := readJSONL[memory.TeamRecord](s.layout.teamPath())
	if err != nil {
		return memory.Context{}, err
	}
	patterns, err := s.Patterns()
	if err != nil {
		return memory.Context{}, err
	}

	var constraints []memory.RejectedOption
	for _, d := range decisions {
		constraints = append(constraints, d.RejectedOptions...)
	}

	return memory.Context{
		Constraints: constraints,
		DeadEnds:    failures,
		Team:        team,
		Learnings:   learnings,
		Patterns:    patterns,
	}, nil
}

// Sync is a no-op: every Add* call already fsyncs its line via the OS
// file-append path, so there is no buffered state to flush. Idempotent
// by construction.
func (s *Store) Sync() error { return nil }
