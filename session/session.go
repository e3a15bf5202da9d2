// Package session defines the mutable run-scoped context the Agent
// Orchestrator owns exclusively for the duration of a run. Other
// components receive read views of it
// plus a recorded-mutation API; they never mutate SessionContext fields
// directly.
package session

import (
	"time"

	"github.com/sunwell-ai/core/goal"
)

// Workspace captures metadata about the project a run operates on,
// gathered during Orient.
type Workspace struct {
	Path          string
	ProjectType   string
	Framework     string
	KeyFiles      []string
	DirectoryTree []string
}

// Mode is how a Task touches its target path.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeModify Mode = "modify"
	ModeRead   Mode = "read"
)

// Task is a planner-produced unit of work. The orchestrator is the only
// component allowed to mutate it, and only to attach a result once the
// task completes.
type Task struct {
	ID               string
	Description      string
	TargetPath       string
	Mode             Mode
	DependsOn        []string
	IntegratedResult *string
}

// Artifact is a file produced or modified by a task, held in memory only
// while convergence is active for it.
type Artifact struct {
	Path    string
	Content string
	TaskID  string
}

// Briefing is the optional continuity artifact loaded from a prior
// session, giving the run a head start on Orient: the mission it left
// off on, hazards worth re-checking, and the files that were hot when
// it ended.
type Briefing struct {
	Summary       string
	Mission       string
	Hazards       []string
	HotFiles      []string
	OpenQuestions []string
	SavedAt       time.Time
}

// Options are run-level knobs the orchestrator consults (autonomous vs.
// interactive, auto-resume, overridden limits).
type Options struct {
	Autonomous bool
	AutoResume bool
	MaxTokens  int
	Timeout    time.Duration
}

// Context is one per run: identity, workspace metadata, briefing, lens,
// options, plus the mutable tail (tasks, current task, artifacts,
// modified files) that grows monotonically over the run's lifetime.
type Context struct {
	SessionID string
	Workspace Workspace
	Goal      goal.Goal
	Briefing  *Briefing
	Lens      string
	Options   Options

	Tasks           []Task
	CurrentTaskID   string
	ArtifactsByPath map[string]Artifact
	FilesModified   []string
}

// New creates an empty Context for a run, keyed to g and the given
// workspace path. The goal is fixed for the session's lifetime.
func New(sessionID string, g goal.Goal, ws Workspace) *Context {
	return &Context{
		SessionID:       sessionID,
		Workspace:       ws,
		Goal:            g,
		ArtifactsByPath: make(map[string]Artifact),
	}
}

// AppendTask records a new planner-produced task. Tasks only grow; they
// are never removed mid-run.
func (c *Context) AppendTask(t Task) {
	c.Tasks = append(c.Tasks, t)
}

// AppendArtifact records or replaces an in-memory artifact and marks its
// path as modified.
func (c *Context) AppendArtifact(a Artifact) {
	c.ArtifactsByPath[a.Path] = a
	for _, p := range c.FilesModified {
		if p == a.Path {
			return
		}
	}
	c.FilesModified = append(c.FilesModified, a.Path)
}

// ReleaseArtifact drops an artifact's in-memory content once it has been
// flushed to disk and is no longer under active convergence.
func (c *Context) ReleaseArtifact(path string) {
	delete(c.ArtifactsByPath, path)
}

// TaskByID finds a task by id, returning ok=false if absent.
func (c *Context) TaskByID(id string) (Task, bool) {
	for _, t := range c.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// SetTaskResult attaches a result to the named task. Only the
// orchestrator calls this.
func (c *Context) SetTaskResult(id, result string) bool {
	for i := range c.Tasks {
		if c.Tasks[i].ID == id {
			c.Tasks[i].IntegratedResult = &result
			return true
		}
	}
	return false
}

// Snapshot produces a read-only copy of the parent context keys a
// spawned specialist's own SessionContext is derived from.
func (c *Context) Snapshot() Workspace {
	return c.Workspace
}
