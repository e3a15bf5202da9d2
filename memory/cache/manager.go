// Package cache keeps workspace-scoped singletons alive across runs,
// initialized lazily under a double-checked-lock pattern.
// WorkspaceManager owns the one memory.Store per workspace and layers an
// optional Redis-backed MemoryContext cache on top so repeated Orient
// calls within a run don't re-scan the JSONL files on every call.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sunwell-ai/core/memory"
	"github.com/sunwell-ai/core/memory/jsonl"
)

// WorkspaceManager is a process-wide registry of per-workspace
// memory.Store instances, reused across runs.
type WorkspaceManager struct {
	mu     sync.Mutex
	stores map[string]memory.Store

	redis *redis.Client
	ttl   time.Duration
}

// Option configures a WorkspaceManager.
type Option func(*WorkspaceManager)

// WithRedis layers a Redis-backed cache of MemoryContext reads on top of
// the JSONL store, with the given TTL. Optional: a nil *redis.Client
// (the zero value from this option never being applied) leaves the
// manager purely in-process.
func WithRedis(client *redis.Client, ttl time.Duration) Option {
	return func(m *WorkspaceManager) {
		m.redis = client
		m.ttl = ttl
	}
}

// NewWorkspaceManager constructs an empty manager. Callers typically
// keep one instance for the life of the process.
func NewWorkspaceManager(opts ...Option) *WorkspaceManager {
	m := &WorkspaceManager{stores: make(map[string]memory.Store), ttl: 5 * time.Minute}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store returns the memory.Store for workspaceRoot, creating it under a
// double-checked lock on first use.
func (m *WorkspaceManager) Store(workspaceRoot string) (memory.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.stores[workspaceRoot]; ok {
		return s, nil
	}
	s, err := jsonl.Open(workspaceRoot)
	if err != nil {
		return nil, err
	}
	var store memory.Store = s
	if m.redis != nil {
		store = &cachedStore{Store: s, redis: m.redis, ttl: m.ttl, workspace: workspaceRoot}
	}
	m.stores[workspaceRoot] = store
	return store, nil
}

// Forget drops the cached store for a workspace, forcing the next Store
// call to reopen it. Used by tests and by workspace teardown.
func (m *WorkspaceManager) Forget(workspaceRoot string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stores, workspaceRoot)
}

// Close tears down the manager: every cached store entry is dropped and,
// if a Redis client was configured via WithRedis, it is closed. Close is
// explicit teardown beyond what Forget offers per-workspace; lifecycles
// pair an open with a close rather than relying on GC.
func (m *WorkspaceManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stores = make(map[string]memory.Store)
	if m.redis != nil {
		return m.redis.Close()
	}
	return nil
}

// cachedStore wraps a memory.Store, caching GetRelevant results in Redis
// keyed by workspace + goal description so Orient calls within the TTL
// window skip the JSONL re-scan. Writes always go straight to the
// underlying store; no invalidation is attempted, since staleness up to
// ttl is within memory's eventual cross-run consistency.
type cachedStore struct {
	memory.Store
	redis     *redis.Client
	ttl       time.Duration
	workspace string
}

func (c *cachedStore) GetRelevant(goalDescription string) (memory.Context, error) {
	ctx := context.Background()
	key := "sunwell:memctx:" + c.workspace + ":" + goalDescription

	if raw, err := c.redis.Get(ctx, key).Bytes(); err == nil {
		var mc memory.Context
		if json.Unmarshal(raw, &mc) == nil {
			return mc, nil
		}
	}

	mc, err := c.Store.GetRelevant(goalDescription)
	if err != nil {
		return memory.Context{}, err
	}
	if raw, err := json.Marshal(mc); err == nil {
		c.redis.Set(ctx, key, raw, c.ttl)
	}
	return mc, nil
}
