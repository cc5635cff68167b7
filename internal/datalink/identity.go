package datalink

import "strings"

// squitterLabel marks identity-less broadcast messages that are
// correlated by message content instead of callsign/hex/tail.
const squitterLabel = "SQ"

// tailSeparators are the characters stripped from tail numbers before
// comparison; different decoders punctuate registrations differently.
const tailSeparators = "~.-"

// Identity holds the zero or more keys that tie a message or position
// to a plane. Keys are checked in field order; an all-empty Identity
// means "no identity".
type Identity struct {
	Callsign string
	Hex      string
	Tail     string
	Squitter string
	UID      string
}

// None reports whether no identity key could be derived.
func (id Identity) None() bool {
	return id.Callsign == "" && id.Hex == "" && id.Tail == "" &&
		id.Squitter == "" && id.UID == ""
}

// MessageIdentity derives the identity keys for a decoded message, in
// priority order: callsign, ICAO hex, tail. Messages carrying none of
// those fall back to their text as a squitter key when labelled as such.
func MessageIdentity(m *Message) Identity {
	var id Identity
	if m.Flight != "" {
		id.Callsign = strings.ToUpper(strings.TrimSpace(m.Flight))
	}
	if m.Hex != "" {
		id.Hex = strings.ToUpper(m.Hex)
	}
	if m.Tail != "" {
		id.Tail = NormalizeTail(m.Tail)
	}
	if id.None() && m.Label == squitterLabel && m.Text != nil {
		id.Squitter = *m.Text
	}
	return id
}

// PositionIdentity derives identity keys from an ADS-B target. The
// callsign falls back from flight name to tail to hex when the
// preferred field is blank; the registration fallback is normalized
// the same way the tail key is, so both keys agree.
func PositionIdentity(t *PositionTarget) Identity {
	var id Identity
	callsign := strings.TrimSpace(t.Flight)
	if callsign == "" {
		callsign = NormalizeTail(t.Registration)
	}
	if callsign == "" {
		callsign = strings.TrimSpace(t.Hex)
	}
	if callsign != "" {
		id.Callsign = strings.ToUpper(callsign)
	}
	if t.Hex != "" {
		id.Hex = strings.ToUpper(t.Hex)
	}
	if t.Registration != "" {
		id.Tail = NormalizeTail(t.Registration)
	}
	return id
}

// NormalizeTail uppercases a tail number and strips the separator
// characters so that "C-FTJP", "C.FTJP" and "CFTJP" compare equal.
func NormalizeTail(tail string) string {
	var b strings.Builder
	b.Grow(len(tail))
	for _, r := range strings.ToUpper(strings.TrimSpace(tail)) {
		if !strings.ContainsRune(tailSeparators, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
