package datalink

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Policy holds the tunable constants of the multi-part continuation
// heuristic. The defaults reproduce the numbering convention of the
// upstream decoders; they are deliberately isolated here so the
// heuristic can be adjusted without touching the merge logic.
type Policy struct {
	// MultipartWindowSecs is how far apart two fragments of the same
	// transmission may be timestamped.
	MultipartWindowSecs float64
}

// DefaultPolicy returns the constants the dashboard has always used.
func DefaultPolicy() Policy {
	return Policy{MultipartWindowSecs: 8.0}
}

// continues reports whether the new message looks like a continuation
// fragment of the old one: same receiving station, both carrying a
// 4-character sequence code, close together in time, and sequence codes
// matching under either the "AxxA" bucket pattern (first and fourth
// characters equal) or the straight-counter pattern (first three
// characters equal). The dual pattern is a known-imprecise heuristic
// inherited from the decoders' numbering convention.
func (p Policy) continues(old, msg *Message) bool {
	if old.StationID != msg.StationID {
		return false
	}
	if len(old.Msgno) != 4 || len(msg.Msgno) != 4 {
		return false
	}
	if math.Abs(msg.Timestamp-old.Timestamp) > p.MultipartWindowSecs {
		return false
	}
	a, b := old.Msgno, msg.Msgno
	if a[0] == b[0] && a[3] == b[3] {
		return true
	}
	return a[:3] == b[:3]
}

// Correlator decides, for each inbound message, whether it duplicates
// or continues a message the plane already holds.
type Correlator struct {
	policy Policy
}

// NewCorrelator creates a correlator with the given policy.
func NewCorrelator(policy Policy) *Correlator {
	return &Correlator{policy: policy}
}

// Correlate runs msg against the plane's existing messages, scanning
// the newest-first list in order. Per existing message the rules
// are evaluated in order - full-field duplicate, text-only duplicate,
// multi-part continuation - and the first match wins, ending the scan.
// A matched (consumed) message promotes the existing entry to the front
// of the list and Correlate returns true. When nothing matches, msg is
// inserted at the front as a new conversation turn and Correlate
// returns false.
func (c *Correlator) Correlate(plane *Plane, msg *Message) bool {
	matched := -1

	for i, old := range plane.Messages {
		switch {
		case old.sameContent(msg):
			// Identical transmission received again: bump the duplicate
			// counter and refresh the timestamp, drop the new copy.
			old.Timestamp = msg.Timestamp
			old.Duplicates++

		case old.sameText(msg):
			old.Timestamp = msg.Timestamp
			old.Duplicates++

		case c.policy.continues(old, msg):
			c.mergeMultipart(old, msg)

		default:
			continue
		}

		matched = i
		break
	}

	if matched >= 0 {
		plane.Messages = moveToFront(plane.Messages, matched)
		return true
	}

	plane.Messages = append(plane.Messages, nil)
	copy(plane.Messages[1:], plane.Messages)
	plane.Messages[0] = msg
	return false
}

// mergeMultipart folds a continuation fragment into the message that
// started the transmission. Repeated fragments only bump the per-code
// counter in the msgno_parts accumulator; fresh fragments append their
// text and code.
func (c *Correlator) mergeMultipart(old, frag *Message) {
	addText := true

	if old.MsgnoParts != "" {
		tokens := strings.Fields(old.MsgnoParts)
		for i, tok := range tokens {
			if len(tok) >= 4 && tok[:4] == frag.Msgno[:4] {
				// Same fragment replayed: count it, don't re-append the text.
				tokens[i] = bumpFragmentCount(tok)
				addText = false
			}
		}
		old.MsgnoParts = strings.Join(tokens, " ")
	}

	if addText {
		if frag.Text != nil {
			if old.Text != nil {
				merged := *old.Text + *frag.Text
				old.Text = &merged
			} else {
				text := *frag.Text
				old.Text = &text
			}
		}
		if old.MsgnoParts == "" {
			old.MsgnoParts = old.Msgno + " " + frag.Msgno
		} else {
			old.MsgnoParts += " " + frag.Msgno
		}
		old.Timestamp = frag.Timestamp
	}
}

// bumpFragmentCount increments the trailing xN counter of a fragment
// token. Tokens start implicitly at count 1, so the first duplicate
// turns "A12A" into "A12Ax2". An unparseable counter suffix is treated
// as count 1 rather than propagated as an error.
func bumpFragmentCount(tok string) string {
	code := tok[:4]
	count := 1
	if len(tok) > 5 && tok[4] == 'x' {
		if n, err := strconv.Atoi(tok[5:]); err == nil {
			count = n
		}
	}
	return fmt.Sprintf("%sx%d", code, count+1)
}
