// Package workspace centralizes the on-disk layout of a project's
// .sunwell/ directory, so every engine that reads or writes
// a path under it (memory/jsonl, checkpoint, guardrails, orchestrator)
// agrees on the same names instead of hard-coding strings at each call
// site.
package workspace

import (
	"os"
	"path/filepath"
	"strconv"
)

// Root returns the .sunwell directory for a project root.
func Root(projectRoot string) string {
	return filepath.Join(projectRoot, ".sunwell")
}

// ConfigPath is the user settings file.
func ConfigPath(projectRoot string) string {
	return filepath.Join(Root(projectRoot), "config.yaml")
}

// ProjectManifestPath identifies the workspace (identity, trust, paths).
func ProjectManifestPath(projectRoot string) string {
	return filepath.Join(Root(projectRoot), "project.json")
}

// BriefingPath is the session-continuity artifact written at the end of
// a run and read back during the next run's Orient phase.
func BriefingPath(projectRoot string) string {
	return filepath.Join(Root(projectRoot), "briefing.json")
}

// EventsLogPath is the recent event history file, capped at 10k rows / 7
// days by the writer.
func EventsLogPath(projectRoot string) string {
	return filepath.Join(Root(projectRoot), "events.jsonl")
}

// RelatedProjectsPath links sibling workspaces.
func RelatedProjectsPath(projectRoot string) string {
	return filepath.Join(Root(projectRoot), "workspace.json")
}

// PlanPath is the latest accepted plan for a goal hash.
func PlanPath(projectRoot, goalHash string) string {
	return filepath.Join(Root(projectRoot), "plans", goalHash+".json")
}

// PlanVersionPath is one version-history entry for a goal hash.
func PlanVersionPath(projectRoot, goalHash string, version int) string {
	return filepath.Join(Root(projectRoot), "plans", goalHash, "v"+strconv.Itoa(version)+".json")
}

// SessionDir is the per-session conversation-DAG directory.
func SessionDir(projectRoot, sessionID string) string {
	return filepath.Join(Root(projectRoot), "memory", "sessions", sessionID)
}

// Ensure creates every directory a fresh workspace needs, idempotently.
func Ensure(projectRoot string) error {
	root := Root(projectRoot)
	dirs := []string{
		filepath.Join(root, "memory", "sessions"),
		filepath.Join(root, "memory", "learnings"),
		filepath.Join(root, "intelligence"),
		filepath.Join(root, "team"),
		filepath.Join(root, "plans"),
		filepath.Join(root, "checkpoints"),
		filepath.Join(root, "guardrails"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// Exists reports whether projectRoot already has a .sunwell directory,
// used by the CLI to decide whether to run first-time initialization.
func Exists(projectRoot string) bool {
	info, err := os.Stat(Root(projectRoot))
	return err == nil && info.IsDir()
}
