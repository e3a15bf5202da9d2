package goal

import (
	"crypto/sha256"
	"encoding/hex"
)

// hashGoal produces a short, filesystem-safe content hash used to name
// per-goal plan and checkpoint files.
func hashGoal(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
