package guardrails

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerificationGate_Table(t *testing.T) {
	g := NewVerificationGate()
	assert.True(t, g.CanAutoApprove(RiskSafe, 0.70))
	assert.False(t, g.CanAutoApprove(RiskSafe, 0.69))
	assert.True(t, g.CanAutoApprove(RiskModerate, 0.9))
	assert.False(t, g.CanAutoApprove(RiskModerate, 0.84))
	assert.False(t, g.CanAutoApprove(RiskDangerous, 0.99))
	assert.False(t, g.CanAutoApprove(RiskForbidden, 1.0))
}
