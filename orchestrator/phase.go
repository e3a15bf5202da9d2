package orchestrator

import "github.com/sunwell-ai/core/checkpoint"

// phaseOrder fixes the sequence checkpoint.Phase values appear in across a
// run, used by resume to restore the phase and task set and continue
// from the successor phase.
var phaseOrder = []checkpoint.Phase{
	checkpoint.PhaseOrientComplete,
	checkpoint.PhaseExplorationComplete,
	checkpoint.PhaseDesignApproved,
	checkpoint.PhaseTaskComplete,
	checkpoint.PhaseImplementationComplete,
	checkpoint.PhaseReviewComplete,
}

// successorPhase returns the phase following p in phaseOrder, or ok=false
// if p is the last phase or not recognized (in which case resume restarts
// from Orient).
func successorPhase(p checkpoint.Phase) (checkpoint.Phase, bool) {
	for i, candidate := range phaseOrder {
		if candidate == p && i+1 < len(phaseOrder) {
			return phaseOrder[i+1], true
		}
	}
	return "", false
}
