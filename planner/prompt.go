package planner

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/sunwell-ai/core/goal"
	"github.com/sunwell-ai/core/ids"
	"github.com/sunwell-ai/core/memory"
	"github.com/sunwell-ai/core/session"
)

// buildPrompt injects constraints (DO NOT), dead ends (AVOID), team
// decisions (FOLLOW), and top-K learnings into the candidate-generation
// prompt.
func buildPrompt(g goal.Goal, ws session.Workspace, mem memory.Context, topK int) string {
	var b strings.Builder
	b.WriteString("Goal: ")
	b.WriteString(g.Description)
	b.WriteString("\n\n")
	b.WriteString("Project type: " + ws.ProjectType + "\n")
	if len(ws.KeyFiles) > 0 {
		b.WriteString("Key files: " + strings.Join(ws.KeyFiles, ", ") + "\n")
	}
	for _, l := range mem.ConstraintLines() {
		b.WriteString(l + "\n")
	}
	for _, l := range mem.DeadEndLines() {
		b.WriteString(l + "\n")
	}
	for _, l := range mem.TeamLines() {
		b.WriteString(l + "\n")
	}
	for _, learning := range mem.TopLearnings(topK) {
		b.WriteString("LEARNED: " + learning.Fact + "\n")
	}
	b.WriteString("\nRespond with a JSON array of tasks, each with \"description\", \"target_path\", and \"mode\" (create|modify|read).\n")
	return b.String()
}

// refinePrompt asks the model for improvements to the current leader.
func refinePrompt(leaderText string, score ScoredCandidate) string {
	var b strings.Builder
	b.WriteString("The following plan scored ")
	b.WriteString(strconv.FormatFloat(score.Score, 'f', 3, 64))
	b.WriteString(". Improve its coverage, locality, and risk profile without regressing:\n\n")
	b.WriteString(leaderText)
	b.WriteString("\n\nRespond with an improved JSON array of tasks in the same format.\n")
	return b.String()
}

// rawTask is the wire shape a candidate-generation response is expected
// to produce.
type rawTask struct {
	Description string   `json:"description"`
	TargetPath  string   `json:"target_path"`
	Mode        string   `json:"mode"`
	DependsOn   []string `json:"depends_on"`
}

// parseTasks extracts a JSON array of tasks from free-form model output
// by locating the outermost brackets, tolerating prose before/after the
// array the way a chat completion typically wraps structured output.
func parseTasks(text string) []session.Task {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 || end == -1 || end < start {
		return nil
	}

	var raw []rawTask
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil
	}

	tasks := make([]session.Task, 0, len(raw))
	for _, r := range raw {
		mode := session.ModeModify
		switch r.Mode {
		case "create":
			mode = session.ModeCreate
		case "read":
			mode = session.ModeRead
		}
		tasks = append(tasks, session.Task{
			ID:          ids.NewPrefixed("task"),
			Description: r.Description,
			TargetPath:  r.TargetPath,
			Mode:        mode,
			DependsOn:   r.DependsOn,
		})
	}
	return tasks
}
