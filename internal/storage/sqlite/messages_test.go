package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdr-enthusiasts/acarshub-server/internal/datalink"
	"github.com/sdr-enthusiasts/acarshub-server/pkg/logger"
)

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func setupTestStorage(t *testing.T) *MessageStorage {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := NewMessageStorage(dbPath, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func TestSaveAndLoadMessage(t *testing.T) {
	s := setupTestStorage(t)

	msg := &datalink.Message{
		UID:         "uid-1",
		Protocol:    "acars",
		Timestamp:   1700000000.5,
		StationID:   "ST1",
		Label:       "H1",
		Msgno:       "A12A",
		Flight:      "ACA101",
		Tail:        "C-FTJP",
		Hex:         "C06ABC",
		Text:        strPtr("POS REPORT"),
		Depa:        strPtr("CYYZ"),
		Lat:         floatPtr(43.676),
		Matched:     true,
		MatchedText: []string{"ACA101"},
	}
	require.NoError(t, s.SaveMessage(msg))

	loaded, err := s.RecentMessages(10)
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	got := loaded[0]
	assert.Equal(t, "uid-1", got.UID)
	assert.Equal(t, "acars", got.Protocol)
	assert.Equal(t, 1700000000.5, got.Timestamp)
	assert.Equal(t, "ACA101", got.Flight)
	assert.Equal(t, "C06ABC", got.Hex)
	require.NotNil(t, got.Text)
	assert.Equal(t, "POS REPORT", *got.Text)
	require.NotNil(t, got.Depa)
	assert.Equal(t, "CYYZ", *got.Depa)
	require.NotNil(t, got.Lat)
	assert.Equal(t, 43.676, *got.Lat)
	assert.Nil(t, got.Dsta)
	assert.Nil(t, got.Lon)
	assert.True(t, got.Matched)
	assert.Equal(t, []string{"ACA101"}, got.MatchedText)
}

func TestRecentMessagesOrderAndLimit(t *testing.T) {
	s := setupTestStorage(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.SaveMessage(&datalink.Message{
			UID:       string(rune('a' + i)),
			Protocol:  "acars",
			Timestamp: float64(100 + i),
		}))
	}

	loaded, err := s.RecentMessages(3)
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	assert.Equal(t, 104.0, loaded[0].Timestamp, "newest first")
	assert.Equal(t, 102.0, loaded[2].Timestamp)
}

func TestSearchMessages(t *testing.T) {
	s := setupTestStorage(t)

	seed := []*datalink.Message{
		{UID: "1", Protocol: "acars", Timestamp: 100, Flight: "ACA101", Tail: "C-FTJP", Label: "H1", Text: strPtr("REQUEST FUEL UPLIFT")},
		{UID: "2", Protocol: "vdlm2", Timestamp: 200, Flight: "ACA101", Label: "Q0"},
		{UID: "3", Protocol: "acars", Timestamp: 300, Flight: "WJA202", Tail: "C-GXYZ", Label: "H1", Text: strPtr("POSITION REPORT")},
	}
	for _, m := range seed {
		require.NoError(t, s.SaveMessage(m))
	}

	uids := func(messages []datalink.Message) []string {
		var out []string
		for _, m := range messages {
			out = append(out, m.UID)
		}
		return out
	}

	t.Run("by flight", func(t *testing.T) {
		got, err := s.SearchMessages(SearchQuery{Flight: "ACA101"})
		require.NoError(t, err)
		assert.Equal(t, []string{"2", "1"}, uids(got), "newest first")
	})

	t.Run("substring and case-insensitive", func(t *testing.T) {
		got, err := s.SearchMessages(SearchQuery{Text: "fuel"})
		require.NoError(t, err)
		assert.Equal(t, []string{"1"}, uids(got))
	})

	t.Run("filters combine", func(t *testing.T) {
		got, err := s.SearchMessages(SearchQuery{Label: "H1", Protocol: "acars", Flight: "WJA"})
		require.NoError(t, err)
		assert.Equal(t, []string{"3"}, uids(got))
	})

	t.Run("time bounded", func(t *testing.T) {
		got, err := s.SearchMessages(SearchQuery{StartTime: 150, EndTime: 250})
		require.NoError(t, err)
		assert.Equal(t, []string{"2"}, uids(got))
	})

	t.Run("by tail", func(t *testing.T) {
		got, err := s.SearchMessages(SearchQuery{Tail: "GXYZ"})
		require.NoError(t, err)
		assert.Equal(t, []string{"3"}, uids(got))
	})

	t.Run("no filters returns everything up to the limit", func(t *testing.T) {
		got, err := s.SearchMessages(SearchQuery{Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"3", "2"}, uids(got))
	})

	t.Run("no match", func(t *testing.T) {
		got, err := s.SearchMessages(SearchQuery{Flight: "DAL999"})
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestCounts(t *testing.T) {
	s := setupTestStorage(t)

	for _, protocol := range []string{"acars", "acars", "vdlm2"} {
		require.NoError(t, s.SaveMessage(&datalink.Message{UID: "u", Protocol: protocol, Timestamp: 1}))
	}

	total, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	byProtocol, err := s.CountByProtocol()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"acars": 2, "vdlm2": 1}, byProtocol)
}
