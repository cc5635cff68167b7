package datalink

// Settings supplies the current display preferences. The engine reads
// them per call and caches nothing.
type Settings interface {
	ExcludeEmptyMessages() bool
	ExcludedLabels() []string
	MaxPlanes() int
}

// DisplayFilter decides per message whether it should be shown.
type DisplayFilter struct {
	settings Settings
}

// NewDisplayFilter creates a filter reading the given settings.
func NewDisplayFilter(settings Settings) *DisplayFilter {
	return &DisplayFilter{settings: settings}
}

// ShouldDisplay evaluates the visibility chain: alert-matched messages
// are always shown; with no filters configured everything is shown;
// the empty-message filter hides messages with no content fields; the
// label exclusion list hides matching labels.
func (f *DisplayFilter) ShouldDisplay(m *Message) bool {
	if m.Matched {
		return true
	}

	excludeEmpty := f.settings.ExcludeEmptyMessages()
	excludedLabels := f.settings.ExcludedLabels()
	if !excludeEmpty && len(excludedLabels) == 0 {
		return true
	}

	if excludeEmpty && !m.HasContent() {
		return false
	}

	for _, label := range excludedLabels {
		if m.Label == label {
			return false
		}
	}

	return true
}
