package config

import "sync"

// Store holds the active configuration.
//
// The active value is always a fully populated tree: the defaults with every
// override merged on top. Set swaps in a freshly merged copy, so a value
// returned by Get is the current configuration, not a defensive copy.
type Store struct {
	mu       sync.RWMutex
	defaults Config
	active   Config
}

// NewStore creates a store initialized to defaults.
// A nil defaults uses the built-in Default().
func NewStore(defaults Config) *Store {
	if defaults == nil {
		defaults = Default()
	}
	s := &Store{defaults: defaults.Clone()}
	s.active = s.defaults.Clone()
	return s
}

// Set deep-merges overrides into the active configuration
func (s *Store) Set(overrides Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = Merge(s.active, overrides)
}

// Get returns the active configuration
func (s *Store) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.active
}

// Init discards all overrides and restores the defaults
func (s *Store) Init() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = s.defaults.Clone()
}

// Replace swaps in cfg as the active configuration.
// Missing fields are filled from the defaults.
func (s *Store) Replace(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = Merge(s.defaults, cfg)
}

// Defaults returns a copy of the configuration Init restores
func (s *Store) Defaults() Config {
	return s.defaults.Clone()
}
