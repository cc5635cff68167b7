package ingest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sdr-enthusiasts/acarshub-server/internal/datalink"
)

// wireMessage is the flat JSON shape the upstream decoders (acarsdec,
// vdlm2dec, dumphfdl via acars_router) emit. Absent fields are simply
// omitted from the JSON, so strings use "" and numerics use pointers to
// distinguish absent from zero.
type wireMessage struct {
	Timestamp float64         `json:"timestamp"`
	StationID string          `json:"station_id"`
	Channel   int             `json:"channel"`
	FreqMHz   float64         `json:"freq"`
	Level     float64         `json:"level"`
	Error     int             `json:"error"`
	Mode      string          `json:"mode"`
	Label     string          `json:"label"`
	BlockID   string          `json:"block_id"`
	Ack       any             `json:"ack"` // false or a string, per the decoders
	Tail      string          `json:"tail"`
	Flight    string          `json:"flight"`
	Msgno     string          `json:"msgno"`
	Text      string          `json:"text"`
	Data      string          `json:"data"`
	Libacars  json.RawMessage `json:"libacars"`
	ICAO      *float64        `json:"icao"`
	ToAddr    *float64        `json:"toaddr"`
	Depa      string          `json:"depa"`
	Dsta      string          `json:"dsta"`
	Eta       string          `json:"eta"`
	Gtout     string          `json:"gtout"`
	Gtin      string          `json:"gtin"`
	Wloff     string          `json:"wloff"`
	Wlin      string          `json:"wlin"`
	Lat       *float64        `json:"lat"`
	Lon       *float64        `json:"lon"`
	Alt       *float64        `json:"alt"`
}

// DecodeMessage parses one datagram from a decoder feed into an engine
// message. The protocol tags the message for archival and MQTT routing.
func DecodeMessage(protocol string, data []byte) (*datalink.Message, error) {
	var wire wireMessage
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("failed to decode %s message: %w", protocol, err)
	}

	msg := &datalink.Message{
		Protocol:  protocol,
		Timestamp: wire.Timestamp,
		StationID: wire.StationID,
		Label:     strings.TrimSpace(wire.Label),
		Msgno:     strings.TrimSpace(wire.Msgno),
		Flight:    strings.TrimSpace(wire.Flight),
		Tail:      strings.TrimSpace(wire.Tail),
	}

	if wire.ICAO != nil {
		// The decoders send the ICAO address as a JSON number; the
		// engine keys on its hex form.
		msg.Hex = fmt.Sprintf("%06X", int64(*wire.ICAO))
	}

	msg.Text = optString(wire.Text)
	msg.Data = optString(wire.Data)
	msg.Depa = optString(wire.Depa)
	msg.Dsta = optString(wire.Dsta)
	msg.Eta = optString(wire.Eta)
	msg.Gtout = optString(wire.Gtout)
	msg.Gtin = optString(wire.Gtin)
	msg.Wloff = optString(wire.Wloff)
	msg.Wlin = optString(wire.Wlin)

	if len(wire.Libacars) > 0 && string(wire.Libacars) != "null" {
		libacars := string(wire.Libacars)
		msg.Libacars = &libacars
	}

	msg.Lat = wire.Lat
	msg.Lon = wire.Lon
	msg.Alt = wire.Alt

	return msg, nil
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
