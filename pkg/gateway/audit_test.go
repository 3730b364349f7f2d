package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditor_RecentReturnsNewestFirst(t *testing.T) {
	a := NewAuditor()
	a.RecordTurn("conn-1", "turn-1", "auto", "", time.Second)
	a.RecordTurn("conn-1", "turn-2", "auto", "", time.Second)
	a.RecordTurn("conn-1", "turn-3", "auto", "internal", time.Second)

	recent := a.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "turn-3", recent[0].TurnID)
	assert.Equal(t, "turn-2", recent[1].TurnID)
}

func TestAuditor_WrapsAtCapacity(t *testing.T) {
	a := NewAuditor()
	for i := 0; i < auditRingSize+5; i++ {
		a.RecordTurn("conn-1", "turn", "auto", "", time.Second)
	}

	recent := a.Recent(0)
	assert.Len(t, recent, auditRingSize)
}

func TestAuditor_FailureRate(t *testing.T) {
	a := NewAuditor()
	assert.Equal(t, 0.0, a.FailureRate(10))

	a.RecordTurn("c", "t1", "auto", "", time.Second)
	a.RecordTurn("c", "t2", "auto", "internal", time.Second)
	a.RecordTurn("c", "t3", "auto", "timeout", time.Second)
	a.RecordTurn("c", "t4", "auto", "", time.Second)

	assert.Equal(t, 0.5, a.FailureRate(10))
}
