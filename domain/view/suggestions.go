package view

import (
	"sync"

	"devrank/domain/autocomplete"
)

// Suggestions keeps the latest delivered name list of every field.
type Suggestions struct {
	mu    sync.RWMutex
	lists map[autocomplete.Field][]string
}

// NewSuggestions creates empty suggestion state.
func NewSuggestions() *Suggestions {
	return &Suggestions{lists: make(map[autocomplete.Field][]string)}
}

// Deliver replaces the list of a field.
func (s *Suggestions) Deliver(field autocomplete.Field, names []string) {
	cp := make([]string, len(names))
	copy(cp, names)

	s.mu.Lock()
	s.lists[field] = cp
	s.mu.Unlock()
}

// Get returns a copy of a field's list; nil if nothing was delivered yet.
func (s *Suggestions) Get(field autocomplete.Field) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list, ok := s.lists[field]
	if !ok {
		return nil
	}
	out := make([]string, len(list))
	copy(out, list)
	return out
}

// All returns a copy of every delivered list.
func (s *Suggestions) All() map[autocomplete.Field][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[autocomplete.Field][]string, len(s.lists))
	for f, list := range s.lists {
		cp := make([]string, len(list))
		copy(cp, list)
		out[f] = cp
	}
	return out
}
