package orchestrator

import (
	"encoding/json"
	"os"

	"github.com/sunwell-ai/core/session"
	"github.com/sunwell-ai/core/workspace"
)

// loadBriefing reads .sunwell/briefing.json when a prior session left
// one; a missing or unreadable briefing is simply absent, never an
// error.
func loadBriefing(projectRoot string) *session.Briefing {
	raw, err := os.ReadFile(workspace.BriefingPath(projectRoot))
	if err != nil {
		return nil
	}
	var b session.Briefing
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil
	}
	return &b
}

// saveBriefing writes the run's closing session.Briefing to
// .sunwell/briefing.json, the continuity artifact read back during the
// next run's Orient phase.
func saveBriefing(projectRoot string, b session.Briefing) error {
	raw, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	path := workspace.BriefingPath(projectRoot)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
