// Package planner implements the Harmonic Planner: parallel candidate
// generation, fixed-dimension scoring, bounded refinement rounds, and
// versioned acceptance, all biased by memory-derived constraints.
package planner

import (
	"context"
	"fmt"
	"sync"

	"github.com/sunwell-ai/core/model"
	"github.com/sunwell-ai/core/session"
)

// Candidate is one parallel attempt at a plan, produced with its own
// temperature/seed variance so the pool diversifies.
type Candidate struct {
	ID          string
	Tasks       []session.Task
	RawText     string
	Temperature float64
	Seed        int64
	Usage       model.Usage
}

// generateCandidates spawns n candidates in parallel, each with a
// distinct temperature/seed, and returns only the ones that generated
// successfully. A candidate that errors is dropped, not retried; a
// single bad candidate never sinks the pool.
func generateCandidates(ctx context.Context, m model.Model, prompt string, n int) []Candidate {
	type result struct {
		idx int
		c   Candidate
		ok  bool
	}

	results := make([]result, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			temp := 0.2 + float64(i)*0.15
			seed := int64(i + 1)
			res, err := m.Generate(ctx, prompt, model.Options{Temperature: temp, Seed: seed})
			if err != nil {
				return
			}
			tasks := parseTasks(res.Text)
			if len(tasks) == 0 {
				return
			}
			results[i] = result{idx: i, ok: true, c: Candidate{
				ID:          fmt.Sprintf("cand-%d", i),
				Tasks:       tasks,
				RawText:     res.Text,
				Temperature: temp,
				Seed:        seed,
				Usage:       res.Usage,
			}}
		}(i)
	}
	wg.Wait()

	out := make([]Candidate, 0, n)
	for _, r := range results {
		if r.ok {
			out = append(out, r.c)
		}
	}
	return out
}

// degenerateCandidate is the one-task fallback plan used when every
// candidate fails to generate: investigate the goal, and warn.
func degenerateCandidate(g string) Candidate {
	return Candidate{
		ID: "degenerate",
		Tasks: []session.Task{
			{ID: "task-investigate", Description: "investigate goal: " + g, Mode: session.ModeRead},
		},
	}
}
