package watch

import (
	"slices"
	"sync"

	"trending-watch/internal/domain/entity"
)

// SeenSet records every ticker handed to the notifier during the life of the
// process. It only grows. One SeenSet is created at startup and shared by
// every session the Supervisor runs.
type SeenSet struct {
	mu    sync.RWMutex
	items map[entity.Ticker]struct{}
}

// NewSeenSet creates an empty set.
func NewSeenSet() *SeenSet {
	return &SeenSet{items: make(map[entity.Ticker]struct{})}
}

// Contains reports whether id was recorded.
func (s *SeenSet) Contains(id entity.Ticker) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[id]
	return ok
}

// Record inserts id. Recording an id that is already present is a no-op.
func (s *SeenSet) Record(id entity.Ticker) {
	s.Add(id)
}

// Add inserts id and reports whether it was absent. The check and the insert
// happen under one lock, so of many concurrent callers with the same id
// exactly one sees true. Callers notify only when Add returns true.
func (s *SeenSet) Add(id entity.Ticker) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; ok {
		return false
	}
	s.items[id] = struct{}{}
	return true
}

// Len returns the number of recorded ids.
func (s *SeenSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Snapshot returns the recorded ids in sorted order.
func (s *SeenSet) Snapshot() []entity.Ticker {
	s.mu.RLock()
	out := make([]entity.Ticker, 0, len(s.items))
	for id := range s.items {
		out = append(out, id)
	}
	s.mu.RUnlock()

	slices.Sort(out)
	return out
}
