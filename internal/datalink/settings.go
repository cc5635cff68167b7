package datalink

import (
	"sync"

	"github.com/sdr-enthusiasts/acarshub-server/internal/config"
)

// SettingsStore is the Settings implementation backing the engine. The
// API layer can update it at runtime; the engine reads it per call.
type SettingsStore struct {
	mu             sync.RWMutex
	excludeEmpty   bool
	excludedLabels []string
	maxPlanes      int
}

// NewSettingsStore seeds the store from configuration.
func NewSettingsStore(filters config.FiltersConfig, maxPlanes int) *SettingsStore {
	return &SettingsStore{
		excludeEmpty:   filters.ExcludeEmptyMessages,
		excludedLabels: append([]string(nil), filters.ExcludedLabels...),
		maxPlanes:      maxPlanes,
	}
}

// ExcludeEmptyMessages reports whether content-less messages are hidden.
func (s *SettingsStore) ExcludeEmptyMessages() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.excludeEmpty
}

// ExcludedLabels returns the current label exclusion list.
func (s *SettingsStore) ExcludedLabels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.excludedLabels...)
}

// MaxPlanes returns the display bound on the plane list.
func (s *SettingsStore) MaxPlanes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxPlanes
}

// Update replaces the current display settings.
func (s *SettingsStore) Update(excludeEmpty bool, excludedLabels []string, maxPlanes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.excludeEmpty = excludeEmpty
	s.excludedLabels = append([]string(nil), excludedLabels...)
	s.maxPlanes = maxPlanes
}
