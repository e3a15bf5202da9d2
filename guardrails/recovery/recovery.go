// Package recovery implements the git-based Recovery Manager: a session
// tag at HEAD, per-goal commit tracking, and goal/session rollback.
package recovery

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Manager implements session-start tagging, per-goal commits, and
// rollback against a git working tree.
type Manager struct {
	repo        *git.Repository
	sessionTag  string
	goalCommits map[string]plumbing.Hash
}

// Open validates the workspace is a clean git working tree and creates a
// session tag at HEAD. A dirty tree fails: rollback semantics depend on
// the tag marking a state the user actually had.
func Open(workspacePath, sessionID string) (*Manager, error) {
	repo, err := git.PlainOpen(workspacePath)
	if err != nil {
		return nil, fmt.Errorf("recovery: open repo: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("recovery: worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("recovery: status: %w", err)
	}
	if !status.IsClean() {
		return nil, fmt.Errorf("recovery: workspace is not clean, refusing to start session")
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("recovery: head: %w", err)
	}
	tagName := "sunwell-session-" + sessionID
	if _, err := repo.CreateTag(tagName, head.Hash(), nil); err != nil {
		return nil, fmt.Errorf("recovery: create session tag: %w", err)
	}

	return &Manager{repo: repo, sessionTag: tagName, goalCommits: make(map[string]plumbing.Hash)}, nil
}

// CommitGoal stages all changes and commits them with a metadata header
// identifying the goal id, so per-goal rollback can find the commit.
func (m *Manager) CommitGoal(goalID, summary string) error {
	wt, err := m.repo.Worktree()
	if err != nil {
		return err
	}
	if _, err := wt.Add("."); err != nil {
		return fmt.Errorf("recovery: stage changes: %w", err)
	}
	message := fmt.Sprintf("%s%s\n\n%s", goalCommitMessagePrefix, goalID, summary)
	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: "sunwell", Email: "sunwell@localhost", When: time.Now()},
	})
	if err != nil {
		return fmt.Errorf("recovery: commit goal: %w", err)
	}
	m.goalCommits[goalID] = hash
	return nil
}

// RollbackGoal reverts the single commit associated with goalID.
func (m *Manager) RollbackGoal(goalID string) error {
	hash, ok := m.goalCommits[goalID]
	if !ok {
		return fmt.Errorf("recovery: no commit recorded for goal %q", goalID)
	}
	commit, err := m.repo.CommitObject(hash)
	if err != nil {
		return fmt.Errorf("recovery: load commit: %w", err)
	}
	parents := commit.Parents()
	parent, err := parents.Next()
	if err != nil {
		return fmt.Errorf("recovery: commit has no parent to revert to: %w", err)
	}
	wt, err := m.repo.Worktree()
	if err != nil {
		return err
	}
	if err := wt.Reset(&git.ResetOptions{Commit: parent.Hash, Mode: git.HardReset}); err != nil {
		return fmt.Errorf("recovery: reset to parent: %w", err)
	}
	delete(m.goalCommits, goalID)
	return nil
}

// RollbackSession hard-resets to the session tag and cleans untracked
// files.
func (m *Manager) RollbackSession() error {
	tagRef, err := m.repo.Tag(m.sessionTag)
	if err != nil {
		return fmt.Errorf("recovery: resolve session tag: %w", err)
	}
	wt, err := m.repo.Worktree()
	if err != nil {
		return err
	}
	if err := wt.Reset(&git.ResetOptions{Commit: tagRef.Hash(), Mode: git.HardReset}); err != nil {
		return fmt.Errorf("recovery: reset to session tag: %w", err)
	}
	if err := wt.Clean(&git.CleanOptions{Dir: true}); err != nil {
		return fmt.Errorf("recovery: clean untracked: %w", err)
	}
	m.goalCommits = make(map[string]plumbing.Hash)
	return nil
}

// goalCommitMessagePrefix is the header CommitGoal writes; exported
// helpers below search git log for it rather than relying on an
// in-memory Manager, since `guardrails rollback-goal` runs in a fresh
// process with no goalCommits map populated.
const goalCommitMessagePrefix = "sunwell-goal: "

// RollbackGoalByID reverts the single commit tagged with goalID's
// header, locating it from git log rather than an in-memory
// Manager so it can run as a standalone CLI operation after the
// session that made the commit has exited.
func RollbackGoalByID(workspacePath, goalID string) error {
	repo, err := git.PlainOpen(workspacePath)
	if err != nil {
		return fmt.Errorf("recovery: open repo: %w", err)
	}
	head, err := repo.Head()
	if err != nil {
		return fmt.Errorf("recovery: head: %w", err)
	}
	commits, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return fmt.Errorf("recovery: log: %w", err)
	}
	header := goalCommitMessagePrefix + goalID
	var found *object.Commit
	_ = commits.ForEach(func(c *object.Commit) error {
		if found == nil && strings.HasPrefix(c.Message, header) {
			found = c
		}
		return nil
	})
	if found == nil {
		return fmt.Errorf("recovery: no commit found for goal %q", goalID)
	}
	parents := found.Parents()
	parent, err := parents.Next()
	if err != nil {
		return fmt.Errorf("recovery: commit has no parent to revert to: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return err
	}
	return wt.Reset(&git.ResetOptions{Commit: parent.Hash, Mode: git.HardReset})
}

// RollbackToSessionTag hard-resets the workspace to the tag a session
// created at start, reachable from a fresh process without an in-memory
// Manager.
func RollbackToSessionTag(workspacePath, sessionID string) error {
	repo, err := git.PlainOpen(workspacePath)
	if err != nil {
		return fmt.Errorf("recovery: open repo: %w", err)
	}
	tagRef, err := repo.Tag("sunwell-session-" + sessionID)
	if err != nil {
		return fmt.Errorf("recovery: resolve session tag: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return err
	}
	if err := wt.Reset(&git.ResetOptions{Commit: tagRef.Hash(), Mode: git.HardReset}); err != nil {
		return fmt.Errorf("recovery: reset to session tag: %w", err)
	}
	return wt.Clean(&git.CleanOptions{Dir: true})
}

// HasSessionTag reports whether a session tag was successfully created.
// The Orchestrator only offers per-goal revert or full-session rollback
// when a tag exists.
func (m *Manager) HasSessionTag() bool {
	return m.sessionTag != ""
}
