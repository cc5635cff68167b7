package datalink

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeSnapshotsHistory(t *testing.T) {
	pm := NewPositionMerger(50, false)
	p := NewPlaneFromPosition(&PositionTarget{Hex: "A1B2C3", GS: 400}, Identity{Hex: "A1B2C3"}, 1000)

	pm.Merge(p, &PositionTarget{Hex: "A1B2C3", GS: 410}, 1005)

	require.NotNil(t, p.Position)
	assert.Equal(t, 410.0, p.Position.GS)
	assert.Equal(t, 1005.0, p.PositionUpdated)
	require.Len(t, p.History, 1)
	assert.Equal(t, 400.0, p.History[0].GS, "prior fix snapshotted before overwrite")
}

func TestMergeHistoryBounded(t *testing.T) {
	pm := NewPositionMerger(50, false)
	p := NewPlaneFromPosition(&PositionTarget{Hex: "A1B2C3", GS: 0}, Identity{Hex: "A1B2C3"}, 0)

	for i := 1; i <= 60; i++ {
		pm.Merge(p, &PositionTarget{Hex: "A1B2C3", GS: float64(i)}, float64(i))
	}

	require.Len(t, p.History, 50)
	assert.Equal(t, 59.0, p.History[0].GS, "newest sample first")
	assert.Equal(t, 10.0, p.History[49].GS, "oldest surviving sample")
}

func TestMergeRefreshesIdentity(t *testing.T) {
	pm := NewPositionMerger(50, false)
	p := NewPlane(&Message{UID: "m", Tail: "C-FTJP"}, Identity{Tail: "CFTJP"})

	pm.Merge(p, &PositionTarget{Hex: "c06abc", Flight: "ACA101", Registration: "C-FTJP"}, 1000)

	assert.Equal(t, "ACA101", p.Callsign)
	assert.Equal(t, "C06ABC", p.Hex)
	assert.Equal(t, "CFTJP", p.Tail)
}

func TestSweepClearsStalePositions(t *testing.T) {
	pm := NewPositionMerger(50, false)

	var planes []*Plane
	for i := 0; i < 3; i++ {
		p := NewPlaneFromPosition(&PositionTarget{Hex: fmt.Sprintf("A%05d", i)}, Identity{Hex: fmt.Sprintf("A%05d", i)}, 1000)
		planes = append(planes, p)
	}
	pm.Merge(planes[1], &PositionTarget{Hex: "A00001"}, 1010)

	pm.Sweep(planes, 1010)

	assert.Nil(t, planes[0].Position, "missed by the batch")
	assert.NotNil(t, planes[1].Position, "updated this batch")
	assert.Nil(t, planes[2].Position)

	t.Run("plane and history survive the sweep", func(t *testing.T) {
		assert.Equal(t, "A00000", planes[0].Hex)
		assert.Zero(t, planes[0].PositionUpdated)
	})
}
