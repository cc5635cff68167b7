package datalink

// Message is one decoded datalink transmission. The source fields are
// fixed at decode time; only the bookkeeping fields (Timestamp on
// duplicate, Duplicates, MsgnoParts, Matched/MatchedText) mutate after
// that.
type Message struct {
	UID       string  `json:"uid"`
	Protocol  string  `json:"protocol,omitempty"` // "acars", "vdlm2", or "hfdl"
	Timestamp float64 `json:"timestamp"`          // Seconds since epoch
	StationID string  `json:"station_id,omitempty"`
	Label     string  `json:"label,omitempty"`
	Msgno     string  `json:"msgno,omitempty"` // 4-character bucket+counter code, e.g. "A12B"

	// Identity source fields
	Flight string `json:"flight,omitempty"`
	Tail   string `json:"tail,omitempty"`
	Hex    string `json:"icao_hex,omitempty"`

	// Free-text payload fields
	Text     *string `json:"text,omitempty"`
	Data     *string `json:"data,omitempty"`
	Libacars *string `json:"libacars,omitempty"`

	// Flight-plan fields
	Depa  *string `json:"depa,omitempty"`
	Dsta  *string `json:"dsta,omitempty"`
	Eta   *string `json:"eta,omitempty"`
	Gtout *string `json:"gtout,omitempty"`
	Gtin  *string `json:"gtin,omitempty"`
	Wloff *string `json:"wloff,omitempty"`
	Wlin  *string `json:"wlin,omitempty"`

	// Position fields
	Lat *float64 `json:"lat,omitempty"`
	Lon *float64 `json:"lon,omitempty"`
	Alt *float64 `json:"alt,omitempty"`

	// Bookkeeping
	Duplicates  int      `json:"duplicates,omitempty"`
	MsgnoParts  string   `json:"msgno_parts,omitempty"` // Space-separated fragment codes, e.g. "A12A A12B" or "A12Ax2 A12B"
	Matched     bool     `json:"matched,omitempty"`
	MatchedText []string `json:"matched_text,omitempty"`
}

// sameContent reports whether m and other agree on every content field:
// each one present-and-equal on both messages, or absent on both.
func (m *Message) sameContent(other *Message) bool {
	return strEq(m.Text, other.Text) &&
		strEq(m.Data, other.Data) &&
		strEq(m.Libacars, other.Libacars) &&
		strEq(m.Dsta, other.Dsta) &&
		strEq(m.Depa, other.Depa) &&
		strEq(m.Eta, other.Eta) &&
		strEq(m.Gtout, other.Gtout) &&
		strEq(m.Gtin, other.Gtin) &&
		strEq(m.Wloff, other.Wloff) &&
		strEq(m.Wlin, other.Wlin) &&
		floatEq(m.Lat, other.Lat) &&
		floatEq(m.Lon, other.Lon) &&
		floatEq(m.Alt, other.Alt)
}

// sameText reports whether both messages carry a text field with the
// same bytes.
func (m *Message) sameText(other *Message) bool {
	return m.Text != nil && other.Text != nil && *m.Text == *other.Text
}

// HasContent reports whether the message carries any displayable
// content field. Messages with none of these are hidden by the
// empty-message filter.
func (m *Message) HasContent() bool {
	return m.Text != nil || m.Data != nil || m.Libacars != nil ||
		m.Depa != nil || m.Dsta != nil || m.Eta != nil ||
		m.Gtout != nil || m.Gtin != nil || m.Wloff != nil || m.Wlin != nil ||
		m.Lat != nil || m.Lon != nil || m.Alt != nil
}

func strEq(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func floatEq(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
