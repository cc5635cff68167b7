package datalink

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdr-enthusiasts/acarshub-server/internal/config"
	"github.com/sdr-enthusiasts/acarshub-server/internal/websocket"
	"github.com/sdr-enthusiasts/acarshub-server/pkg/logger"
)

type recordingArchive struct {
	saved []*Message
}

func (a *recordingArchive) SaveMessage(m *Message) error {
	a.saved = append(a.saved, m)
	return nil
}

type recordingBroadcaster struct {
	messages []*websocket.Message
}

func (b *recordingBroadcaster) Broadcast(m *websocket.Message) {
	b.messages = append(b.messages, m)
}

func newTestEngine(t *testing.T) (*MessageHandler, *SettingsStore) {
	t.Helper()
	settings := NewSettingsStore(config.FiltersConfig{}, 50)
	h := NewMessageHandler(config.EngineConfig{
		MaxPlanes:           50,
		MaxPositionHistory:  50,
		MultipartWindowSecs: 8.0,
	}, settings, nil, nil, nil, nil, logger.NewNop())
	return h, settings
}

func textMsg(flight, text string, ts float64) *Message {
	return &Message{Flight: flight, Timestamp: ts, Text: strPtr(text)}
}

func TestOnMessageCreatesPlane(t *testing.T) {
	h, _ := newTestEngine(t)

	result := h.OnMessage(textMsg("ACA101", "HELLO", 100), false)
	assert.NotEmpty(t, result.UID)
	assert.True(t, result.ShouldDisplay)

	planes := h.GetAllPlanes()
	require.Len(t, planes, 1)
	assert.Equal(t, "ACA101", planes[0].Callsign)
	require.Len(t, planes[0].Messages, 1)
	assert.Equal(t, result.UID, planes[0].SelectedTab)
}

func TestOnMessageCollapsesDuplicates(t *testing.T) {
	h, _ := newTestEngine(t)

	h.OnMessage(textMsg("ACA101", "HELLO", 100), false)
	h.OnMessage(textMsg("ACA101", "HELLO", 105), false)
	h.OnMessage(textMsg("ACA101", "HELLO", 110), false)

	planes := h.GetAllPlanes()
	require.Len(t, planes, 1)
	require.Len(t, planes[0].Messages, 1)
	assert.Equal(t, 2, planes[0].Messages[0].Duplicates)
	assert.Equal(t, 110.0, planes[0].Messages[0].Timestamp)

	status := h.Status()
	assert.Equal(t, uint64(3), status.MessagesSeen)
	assert.Equal(t, uint64(2), status.DuplicatesSeen)
}

func TestOnMessagePromotesActivePlane(t *testing.T) {
	h, _ := newTestEngine(t)

	h.OnMessage(textMsg("ACA101", "FIRST", 100), false)
	h.OnMessage(textMsg("WJA202", "SECOND", 110), false)
	h.OnMessage(textMsg("ACA101", "THIRD", 120), false)

	planes := h.GetAllPlanes()
	require.Len(t, planes, 2)
	assert.Equal(t, "ACA101", planes[0].Callsign, "most recently active first")
	assert.Equal(t, "WJA202", planes[1].Callsign)
}

func TestOnMessageCrossProtocolCorrelation(t *testing.T) {
	h, _ := newTestEngine(t)

	// Same aircraft seen as a callsign on ACARS and a hex on VDLM2,
	// linked by a message carrying both keys.
	h.OnMessage(&Message{Protocol: "acars", Flight: "ACA101", Timestamp: 100, Text: strPtr("ONE")}, false)
	h.OnMessage(&Message{Protocol: "vdlm2", Flight: "ACA101", Hex: "C06ABC", Timestamp: 110, Text: strPtr("TWO")}, false)
	h.OnMessage(&Message{Protocol: "vdlm2", Hex: "C06ABC", Timestamp: 120, Text: strPtr("THREE")}, false)

	planes := h.GetAllPlanes()
	require.Len(t, planes, 1)
	assert.Equal(t, "ACA101", planes[0].Callsign)
	assert.Equal(t, "C06ABC", planes[0].Hex, "hex backfilled from the linking message")
	assert.Len(t, planes[0].Messages, 3)
}

func TestOnMessageArchivesBeforeDeduplication(t *testing.T) {
	h, _ := newTestEngine(t)
	archive := &recordingArchive{}
	h.archive = archive

	h.OnMessage(textMsg("ACA101", "HELLO", 100), false)
	h.OnMessage(textMsg("ACA101", "HELLO", 105), false)

	assert.Len(t, archive.saved, 2, "every transmission is archived, duplicates included")
}

func TestOnMessageBroadcasts(t *testing.T) {
	h, _ := newTestEngine(t)
	hub := &recordingBroadcaster{}
	h.wsServer = hub

	h.OnMessage(textMsg("ACA101", "HELLO", 100), false)
	require.Len(t, hub.messages, 1)
	assert.Equal(t, websocket.MessageTypeACARSMsg, hub.messages[0].Type)

	t.Run("backlog replay is silent", func(t *testing.T) {
		h.OnMessage(textMsg("WJA202", "WORLD", 110), true)
		assert.Len(t, hub.messages, 1)
	})
}

func TestBroadcastCarriesStoredMessage(t *testing.T) {
	h, _ := newTestEngine(t)
	hub := &recordingBroadcaster{}
	h.wsServer = hub

	first := h.OnMessage(textMsg("ACA101", "HELLO", 100), false)
	dup := h.OnMessage(textMsg("ACA101", "HELLO", 105), false)

	assert.Equal(t, first.UID, dup.UID, "result points at the surviving message")

	require.Len(t, hub.messages, 2)
	broadcast, ok := hub.messages[1].Data["message"].(*Message)
	require.True(t, ok)
	assert.Equal(t, first.UID, broadcast.UID)
	assert.Equal(t, 1, broadcast.Duplicates, "clients see the merged state")
	assert.Equal(t, 105.0, broadcast.Timestamp)

	t.Run("multipart broadcast carries the merged text", func(t *testing.T) {
		h.OnMessage(&Message{
			Flight: "WJA202", StationID: "ST1",
			Timestamp: 200, Msgno: "B01A", Text: strPtr("PART ONE "),
		}, false)
		h.OnMessage(&Message{
			Flight: "WJA202", StationID: "ST1",
			Timestamp: 203, Msgno: "B01B", Text: strPtr("PART TWO"),
		}, false)

		require.Len(t, hub.messages, 4)
		broadcast, ok := hub.messages[3].Data["message"].(*Message)
		require.True(t, ok)
		require.NotNil(t, broadcast.Text)
		assert.Equal(t, "PART ONE PART TWO", *broadcast.Text)
		assert.Equal(t, "B01A B01B", broadcast.MsgnoParts)
	})
}

func TestOnPositionsMergesAndSweeps(t *testing.T) {
	h, _ := newTestEngine(t)

	h.OnMessage(&Message{Flight: "ACA101", Timestamp: 100, Text: strPtr("HELLO")}, false)

	h.OnPositions(&PositionBatch{Now: 1000, Aircraft: []PositionTarget{
		{Hex: "C06ABC", Flight: "ACA101", GS: 420},
		{Hex: "AB1234", Flight: "WJA202", GS: 380},
	}})

	planes := h.GetAllPlanes()
	require.Len(t, planes, 2)

	var aca, wja *PlaneView
	for i := range planes {
		switch planes[i].Callsign {
		case "ACA101":
			aca = &planes[i]
		case "WJA202":
			wja = &planes[i]
		}
	}
	require.NotNil(t, aca)
	require.NotNil(t, wja)

	assert.Len(t, aca.Messages, 1, "message thread merged with the position track")
	require.NotNil(t, aca.Position)
	assert.Equal(t, 420.0, aca.Position.GS)
	assert.Equal(t, "C06ABC", aca.Hex)

	assert.Empty(t, wja.Messages)
	require.NotNil(t, wja.Position)

	t.Run("next batch sweeps the missing aircraft", func(t *testing.T) {
		h.OnPositions(&PositionBatch{Now: 1010, Aircraft: []PositionTarget{
			{Hex: "C06ABC", Flight: "ACA101", GS: 425},
		}})

		_, ok := h.GetPlane(wja.UID)
		assert.False(t, ok, "no messages and no position leaves nothing to keep")

		view, ok := h.GetPlane(aca.UID)
		require.True(t, ok)
		require.NotNil(t, view.Position)
		assert.Equal(t, 425.0, view.Position.GS)
		require.Len(t, view.History, 1)
		assert.Equal(t, 420.0, view.History[0].GS)
	})
}

func TestTransientAircraftDoNotAccumulate(t *testing.T) {
	h, _ := newTestEngine(t)

	// Each batch carries one aircraft never seen before, so the prior
	// one drops out of the feed and loses its position on the sweep.
	for i := 0; i < 500; i++ {
		h.OnPositions(&PositionBatch{Now: float64(1000 + i), Aircraft: []PositionTarget{
			{Hex: fmt.Sprintf("%06X", i)},
		}})
	}

	assert.Equal(t, 1, h.Status().Planes,
		"swept planes with no messages must not linger")

	t.Run("swept planes with messages stay", func(t *testing.T) {
		h.OnMessage(textMsg("ACA101", "HELLO", 100), false)
		h.OnPositions(&PositionBatch{Now: 2000, Aircraft: []PositionTarget{
			{Hex: "C06ABC", Flight: "ACA101"},
		}})
		h.OnPositions(&PositionBatch{Now: 2010, Aircraft: []PositionTarget{
			{Hex: "AB1234", Flight: "WJA202"},
		}})

		planes := h.GetAllPlanes()
		var callsigns []string
		for _, p := range planes {
			callsigns = append(callsigns, p.Callsign)
		}
		assert.Contains(t, callsigns, "ACA101", "message history keeps the plane alive")
	})
}

func TestNavigateTabThroughEngine(t *testing.T) {
	h, _ := newTestEngine(t)

	r1 := h.OnMessage(textMsg("ACA101", "FIRST", 100), false)
	r2 := h.OnMessage(textMsg("ACA101", "SECOND", 110), false)

	planes := h.GetAllPlanes()
	require.Len(t, planes, 1)
	uid := planes[0].UID
	require.Equal(t, r2.UID, planes[0].SelectedTab)

	selected, ok := h.NavigateTab(uid, TabRight)
	require.True(t, ok)
	assert.Equal(t, r1.UID, selected)

	t.Run("pinned tab survives new messages", func(t *testing.T) {
		h.OnMessage(textMsg("ACA101", "THIRD", 120), false)
		view, ok := h.GetPlane(uid)
		require.True(t, ok)
		assert.Equal(t, r1.UID, view.SelectedTab)
	})

	t.Run("unknown plane", func(t *testing.T) {
		_, ok := h.NavigateTab("nope", TabLeft)
		assert.False(t, ok)
	})
}

func TestSnapshotVisibility(t *testing.T) {
	h, settings := newTestEngine(t)

	h.OnMessage(&Message{Flight: "ACA101", Timestamp: 100, Text: strPtr("HELLO")}, false)
	h.OnMessage(&Message{Flight: "WJA202", Timestamp: 110}, false) // No content

	settings.Update(true, nil, 50)

	visible := h.GetAllMessages()
	require.Len(t, visible, 1)
	assert.Equal(t, "ACA101", visible[0].Callsign)

	all := h.GetAllPlanes()
	assert.Len(t, all, 2, "unfiltered view keeps the hidden plane")
}

func TestRegistryBoundThroughEngine(t *testing.T) {
	settings := NewSettingsStore(config.FiltersConfig{}, 5)
	h := NewMessageHandler(config.EngineConfig{
		MaxPlanes:           5,
		MaxPositionHistory:  50,
		MultipartWindowSecs: 8.0,
	}, settings, nil, nil, nil, nil, logger.NewNop())

	for i := 0; i < 20; i++ {
		h.OnMessage(textMsg(fmt.Sprintf("CS%03d", i), "MSG", float64(i)), false)
	}

	assert.Equal(t, 5, h.Status().Planes)
	planes := h.GetAllPlanes()
	require.Len(t, planes, 5)
	assert.Equal(t, "CS019", planes[0].Callsign, "newest survives at the front")
}
