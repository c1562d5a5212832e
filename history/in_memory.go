package history

import (
	"context"
	"sync"

	"github.com/hupe1980/genfan/core"
)

// InMemoryStore is a volatile HistoryStore implementation keeping entries in
// a process local slice, most recent first. It is safe for concurrent access;
// all mutation is serialized on a single mutex so every Add applies on top of
// the latest committed list, never on a stale snapshot. Listed entries are
// copied to prevent external mutation of internal state.
//
// A capacity of zero or less means unbounded retention.
type InMemoryStore struct {
	mu       sync.RWMutex
	capacity int
	entries  []core.HistoryEntry
}

// NewInMemoryStore constructs an empty in-memory history store bounded at
// capacity entries.
func NewInMemoryStore(capacity int) *InMemoryStore {
	return &InMemoryStore{capacity: capacity}
}

// Add prepends the entry and trims the tail past capacity, returning the
// trimmed entries.
func (s *InMemoryStore) Add(_ context.Context, entry core.HistoryEntry) ([]core.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var evicted []core.HistoryEntry
	s.entries, evicted = prepend(s.entries, entry, s.capacity)
	return evicted, nil
}

// Remove deletes the entry with the given id; unknown ids are a no-op.
func (s *InMemoryStore) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = removeByID(s.entries, id)
	return nil
}

// Clear drops every entry. Idempotent.
func (s *InMemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return nil
}

// List returns a snapshot slice, most recent first.
func (s *InMemoryStore) List(_ context.Context) ([]core.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot(s.entries), nil
}

// Len returns the number of retained entries.
func (s *InMemoryStore) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// prepend inserts entry at the head of list and trims past capacity,
// returning the new list and the trimmed tail (oldest last). Shared by the
// in-memory and file backed stores so both apply identical eviction
// arithmetic: inserting at length L leaves min(L+1, capacity) entries.
func prepend(list []core.HistoryEntry, entry core.HistoryEntry, capacity int) ([]core.HistoryEntry, []core.HistoryEntry) {
	next := make([]core.HistoryEntry, 0, len(list)+1)
	next = append(next, entry)
	next = append(next, list...)
	if capacity <= 0 || len(next) <= capacity {
		return next, nil
	}
	evicted := make([]core.HistoryEntry, len(next)-capacity)
	copy(evicted, next[capacity:])
	return next[:capacity], evicted
}

func removeByID(list []core.HistoryEntry, id string) []core.HistoryEntry {
	next := list[:0]
	for _, e := range list {
		if e.ID != id {
			next = append(next, e)
		}
	}
	return next
}

func snapshot(list []core.HistoryEntry) []core.HistoryEntry {
	out := make([]core.HistoryEntry, len(list))
	copy(out, list)
	return out
}
