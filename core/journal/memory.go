package journal

import (
	"context"
	"sync"
)

// MemoryStore keeps the newest entries in process memory. With a positive
// limit the entries form a ring and the oldest is overwritten first.
type MemoryStore struct {
	mu      sync.RWMutex
	limit   int
	entries []Entry
	head    int // index of the oldest entry once the ring is full
}

// NewMemoryStore returns a store retaining at most limit entries.
func NewMemoryStore(limit int) *MemoryStore {
	return &MemoryStore{limit: limit}
}

func (s *MemoryStore) Append(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.limit <= 0 || len(s.entries) < s.limit {
		s.entries = append(s.entries, e)
		return nil
	}
	s.entries[s.head] = e
	s.head = (s.head + 1) % s.limit
	return nil
}

func (s *MemoryStore) Query(_ context.Context, q Query) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for i := range s.entries {
		e := s.entries[(s.head+i)%len(s.entries)]
		if q.Match(e) {
			out = append(out, e)
		}
	}
	return q.truncate(out), nil
}

func (s *MemoryStore) Close() error { return nil }
