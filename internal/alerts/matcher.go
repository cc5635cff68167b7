package alerts

import (
	"strings"

	"github.com/sdr-enthusiasts/acarshub-server/internal/config"
	"github.com/sdr-enthusiasts/acarshub-server/internal/datalink"
	"github.com/sdr-enthusiasts/acarshub-server/pkg/logger"
)

// Matcher checks messages against the configured alert terms. Terms
// match case-insensitively against message text, callsign, tail, and
// ICAO hex. Ignore terms suppress text matches (they exist to silence
// recurring noise phrases), but never identity matches.
type Matcher struct {
	terms  []string
	ignore []string
	logger *logger.Logger
}

// NewMatcher creates a matcher from the alert configuration.
func NewMatcher(cfg config.AlertsConfig, log *logger.Logger) *Matcher {
	m := &Matcher{logger: log.Named("alerts")}
	for _, t := range cfg.Terms {
		if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
			m.terms = append(m.terms, t)
		}
	}
	for _, t := range cfg.IgnoreTerms {
		if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
			m.ignore = append(m.ignore, t)
		}
	}
	return m
}

// Match returns the alert terms the message matches, or nil.
func (m *Matcher) Match(msg *datalink.Message) []string {
	if len(m.terms) == 0 {
		return nil
	}

	var text string
	if msg.Text != nil {
		text = strings.ToUpper(*msg.Text)
	}
	textIgnored := false
	for _, ig := range m.ignore {
		if text != "" && strings.Contains(text, ig) {
			textIgnored = true
			break
		}
	}

	flight := strings.ToUpper(msg.Flight)
	tail := strings.ToUpper(msg.Tail)
	hex := strings.ToUpper(msg.Hex)

	var matched []string
	for _, term := range m.terms {
		switch {
		case text != "" && !textIgnored && strings.Contains(text, term):
			matched = append(matched, term)
		case flight != "" && strings.Contains(flight, term):
			matched = append(matched, term)
		case tail != "" && strings.Contains(tail, term):
			matched = append(matched, term)
		case hex != "" && strings.Contains(hex, term):
			matched = append(matched, term)
		}
	}

	if len(matched) > 0 {
		m.logger.Debug("Message matched alert terms",
			logger.String("uid", msg.UID),
			logger.Int("terms", len(matched)))
	}
	return matched
}
