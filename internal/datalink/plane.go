package datalink

import "github.com/google/uuid"

// Plane is the engine's model of one aircraft/conversation thread. Its
// message list is ordered newest-first; a plane with zero messages and
// no live position must not exist.
type Plane struct {
	UID      string
	Callsign string
	Hex      string
	Tail     string
	Squitter string // Correlation key for identity-less broadcast messages

	Messages []*Message // Newest-first

	Position        *PositionTarget  // Live position, nil when out of the feed
	PositionUpdated float64          // Batch timestamp of the live position
	History         []PositionSample // Prior positions, newest-first, bounded

	SelectedTab      string // UID of the message tab shown in the UI
	ManuallySelected bool   // Set once the user navigates tabs themselves
}

// NewPlane constructs a plane seeded with its first message.
func NewPlane(msg *Message, id Identity) *Plane {
	return &Plane{
		UID:         uuid.NewString(),
		Callsign:    id.Callsign,
		Hex:         id.Hex,
		Tail:        id.Tail,
		Squitter:    id.Squitter,
		Messages:    []*Message{msg},
		SelectedTab: msg.UID,
	}
}

// NewPlaneFromPosition constructs a plane seeded with a live position
// instead of a message.
func NewPlaneFromPosition(t *PositionTarget, id Identity, now float64) *Plane {
	fix := *t
	return &Plane{
		UID:             uuid.NewString(),
		Callsign:        id.Callsign,
		Hex:             id.Hex,
		Tail:            id.Tail,
		Position:        &fix,
		PositionUpdated: now,
	}
}

// matches reports whether any supplied non-empty identity key equals
// the corresponding plane field. The internal UID wins when supplied.
func (p *Plane) matches(id Identity) bool {
	if id.UID != "" && id.UID == p.UID {
		return true
	}
	if id.Callsign != "" && id.Callsign == p.Callsign {
		return true
	}
	if id.Hex != "" && id.Hex == p.Hex {
		return true
	}
	if id.Tail != "" && id.Tail == p.Tail {
		return true
	}
	if id.Squitter != "" && id.Squitter == p.Squitter {
		return true
	}
	return false
}

// backfillIdentity fills blank identity fields from a freshly matched
// message. Populated fields are never overwritten by messages.
func (p *Plane) backfillIdentity(id Identity) {
	if p.Callsign == "" {
		p.Callsign = id.Callsign
	}
	if p.Hex == "" {
		p.Hex = id.Hex
	}
	if p.Tail == "" {
		p.Tail = id.Tail
	}
}

// refreshIdentity overwrites identity fields from a position update.
// Positions are authoritative, unlike message backfill.
func (p *Plane) refreshIdentity(id Identity) {
	if id.Callsign != "" {
		p.Callsign = id.Callsign
	}
	if id.Hex != "" {
		p.Hex = id.Hex
	}
	if id.Tail != "" {
		p.Tail = id.Tail
	}
}

// updateSelectedTab resets the selected tab to the newest message
// unless the user has pinned one manually.
func (p *Plane) updateSelectedTab() {
	if len(p.Messages) == 0 {
		return
	}
	if len(p.Messages) == 1 || !p.ManuallySelected {
		p.SelectedTab = p.Messages[0].UID
	}
}

// TabDirection selects which way tab navigation moves.
type TabDirection int

const (
	TabLeft TabDirection = iota
	TabRight
)

// NavigateTab moves the selected tab one position left or right,
// wrapping at both ends, and latches manual selection.
func (p *Plane) NavigateTab(dir TabDirection) string {
	n := len(p.Messages)
	if n == 0 {
		return ""
	}

	idx := 0
	for i, m := range p.Messages {
		if m.UID == p.SelectedTab {
			idx = i
			break
		}
	}

	switch dir {
	case TabLeft:
		idx--
		if idx < 0 {
			idx = n - 1
		}
	case TabRight:
		idx++
		if idx >= n {
			idx = 0
		}
	}

	p.SelectedTab = p.Messages[idx].UID
	p.ManuallySelected = true
	return p.SelectedTab
}
