package planner

import (
	"strings"

	"github.com/sunwell-ai/core/guardrails"
	"github.com/sunwell-ai/core/lens"
	"github.com/sunwell-ai/core/memory"
	"github.com/sunwell-ai/core/session"
)

// ScoredCandidate pairs a Candidate with its per-dimension metrics
// (coverage, locality, risk, novelty) and weighted total score.
type ScoredCandidate struct {
	Candidate Candidate
	Coverage  float64
	Locality  float64
	Risk      float64
	Novelty   float64
	Score     float64
}

// scorer evaluates candidates against a goal, workspace, memory
// context, and the lens's weight vector.
type scorer struct {
	weights    lens.ScoreWeights
	classifier *guardrails.Classifier
}

func newScorer(w lens.ScoreWeights) *scorer {
	return &scorer{weights: w, classifier: guardrails.New()}
}

// score evaluates one candidate. Dimensions are normalized to [0, 1]
// before weighting, except novelty which may go negative when a
// candidate's tasks echo a known dead end.
func (s *scorer) score(c Candidate, goalDescription string, ws session.Workspace, mem memory.Context) ScoredCandidate {
	coverage := coverageScore(c.Tasks, goalDescription)
	locality := localityScore(c.Tasks, ws)
	risk := s.riskScore(c.Tasks)
	novelty := noveltyScore(c.Tasks, mem.DeadEnds)

	total := s.weights.Coverage*coverage + s.weights.Locality*locality + s.weights.Risk*risk + s.weights.Novelty*novelty

	return ScoredCandidate{
		Candidate: c,
		Coverage:  coverage,
		Locality:  locality,
		Risk:      risk,
		Novelty:   novelty,
		Score:     total,
	}
}

// coverageScore estimates how much of the goal's vocabulary the
// candidate's task descriptions address, as a crude proxy for "does
// this plan actually address the goal".
func coverageScore(tasks []session.Task, goalDescription string) float64 {
	words := distinctWords(goalDescription)
	if len(words) == 0 {
		return 0
	}
	var joined strings.Builder
	for _, t := range tasks {
		joined.WriteString(strings.ToLower(t.Description))
		joined.WriteByte(' ')
	}
	body := joined.String()

	hit := 0
	for _, w := range words {
		if strings.Contains(body, w) {
			hit++
		}
	}
	return float64(hit) / float64(len(words))
}

// localityScore rewards tasks whose target paths fall under the
// workspace's known key files or directory tree, reflecting how well a
// plan respects existing project structure.
func localityScore(tasks []session.Task, ws session.Workspace) float64 {
	if len(tasks) == 0 {
		return 0
	}
	known := make([]string, 0, len(ws.KeyFiles)+len(ws.DirectoryTree))
	known = append(known, ws.KeyFiles...)
	known = append(known, ws.DirectoryTree...)
	if len(known) == 0 {
		return 0.5
	}

	hit := 0
	for _, t := range tasks {
		for _, k := range known {
			if t.TargetPath != "" && strings.HasPrefix(t.TargetPath, dirOf(k)) {
				hit++
				break
			}
		}
	}
	return float64(hit) / float64(len(tasks))
}

// riskScore inverts the classifier's risk so that 1.0 means safest;
// a candidate touching Forbidden paths is hard-capped regardless of
// other dimensions.
func (s *scorer) riskScore(tasks []session.Task) float64 {
	if len(tasks) == 0 {
		return 1
	}
	var total float64
	for _, t := range tasks {
		c := s.classifier.Classify(guardrails.Action{Type: guardrails.ActionWriteFile, Path: t.TargetPath})
		switch c.Risk {
		case guardrails.RiskForbidden:
			total += 0
		case guardrails.RiskDangerous:
			total += 0.25
		case guardrails.RiskModerate:
			total += 0.75
		default:
			total += 1
		}
	}
	return total / float64(len(tasks))
}

// noveltyScore penalizes a candidate whose task descriptions closely
// echo a recorded dead end.
func noveltyScore(tasks []session.Task, deadEnds []memory.FailedApproach) float64 {
	if len(deadEnds) == 0 {
		return 1
	}
	for _, t := range tasks {
		desc := strings.ToLower(t.Description)
		for _, d := range deadEnds {
			if d.Description == "" {
				continue
			}
			if strings.Contains(desc, strings.ToLower(d.Description)) {
				return -1
			}
		}
	}
	return 1
}

func distinctWords(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 3 {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

func dirOf(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[:i]
	}
	return p
}
