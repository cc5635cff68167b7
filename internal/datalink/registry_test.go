package datalink

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msgPlane(callsign string) *Plane {
	msg := &Message{UID: "msg-" + callsign, Flight: callsign}
	return NewPlane(msg, Identity{Callsign: callsign})
}

func posPlane(callsign string) *Plane {
	p := msgPlane(callsign)
	p.Position = &PositionTarget{Flight: callsign}
	p.PositionUpdated = 1000
	return p
}

func TestRegistryFind(t *testing.T) {
	r := NewRegistry(10)
	r.InsertFront(msgPlane("ACA101"))
	r.InsertFront(msgPlane("WJA202"))

	t.Run("by callsign", func(t *testing.T) {
		idx, ok := r.Find(Identity{Callsign: "ACA101"})
		require.True(t, ok)
		assert.Equal(t, 1, idx)
	})

	t.Run("by uid", func(t *testing.T) {
		idx, ok := r.Find(Identity{UID: r.At(0).UID})
		require.True(t, ok)
		assert.Equal(t, 0, idx)
	})

	t.Run("empty identity never matches", func(t *testing.T) {
		_, ok := r.Find(Identity{})
		assert.False(t, ok)
	})

	t.Run("unknown identity", func(t *testing.T) {
		_, ok := r.Find(Identity{Callsign: "DAL999"})
		assert.False(t, ok)
	})
}

func TestRegistryPromote(t *testing.T) {
	r := NewRegistry(10)
	for _, cs := range []string{"A", "B", "C", "D"} {
		r.InsertFront(msgPlane(cs))
	}
	// Order is now D, C, B, A

	idx, ok := r.Find(Identity{Callsign: "B"})
	require.True(t, ok)
	r.Promote(idx)

	var order []string
	for i := 0; i < r.Len(); i++ {
		order = append(order, r.At(i).Callsign)
	}
	assert.Equal(t, []string{"B", "D", "C", "A"}, order)
}

func TestRegistryEviction(t *testing.T) {
	t.Run("bounded at max planes", func(t *testing.T) {
		r := NewRegistry(3)
		for i := 0; i < 10; i++ {
			r.InsertFront(msgPlane(fmt.Sprintf("CS%d", i)))
		}
		assert.Equal(t, 3, r.Len())
	})

	t.Run("drops least recently touched candidate", func(t *testing.T) {
		r := NewRegistry(3)
		for _, cs := range []string{"A", "B", "C"} {
			r.InsertFront(msgPlane(cs))
		}
		r.InsertFront(msgPlane("D"))

		// A was the oldest message-only plane
		_, ok := r.Find(Identity{Callsign: "A"})
		assert.False(t, ok)
		for _, cs := range []string{"B", "C", "D"} {
			_, ok := r.Find(Identity{Callsign: cs})
			assert.True(t, ok, cs)
		}
	})

	t.Run("planes with live position survive", func(t *testing.T) {
		r := NewRegistry(3)
		r.InsertFront(posPlane("LIVE1"))
		r.InsertFront(posPlane("LIVE2"))
		r.InsertFront(msgPlane("MSG1"))
		r.InsertFront(msgPlane("MSG2"))

		// MSG1 is the only evictable plane past the bound
		assert.Equal(t, 3, r.Len())
		_, ok := r.Find(Identity{Callsign: "MSG1"})
		assert.False(t, ok)
		for _, cs := range []string{"LIVE1", "LIVE2", "MSG2"} {
			_, ok := r.Find(Identity{Callsign: cs})
			assert.True(t, ok, cs)
		}
	})

	t.Run("drop empty removes stateless planes only", func(t *testing.T) {
		r := NewRegistry(10)
		r.InsertFront(msgPlane("MSG"))
		r.InsertFront(posPlane("LIVE"))

		stale := posPlane("STALE")
		stale.Position = nil
		stale.Messages = nil
		r.InsertFront(stale)

		assert.Equal(t, 1, r.DropEmpty())
		assert.Equal(t, 2, r.Len())
		for _, cs := range []string{"MSG", "LIVE"} {
			_, ok := r.Find(Identity{Callsign: cs})
			assert.True(t, ok, cs)
		}
	})

	t.Run("may exceed bound when nothing is evictable", func(t *testing.T) {
		r := NewRegistry(2)
		for i := 0; i < 4; i++ {
			r.InsertFront(posPlane(fmt.Sprintf("LIVE%d", i)))
		}
		assert.Equal(t, 4, r.Len())
	})
}
