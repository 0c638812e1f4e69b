package requestlog

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCapacity is the number of entries a MemoryStore keeps by default.
const DefaultCapacity = 1000

// MemoryStore implements Store with an in-memory ring buffer. Once full,
// the oldest entry is evicted on every Log.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []*Entry
	start   int
	count   int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a MemoryStore holding up to capacity entries.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryStore{entries: make([]*Entry, capacity)}
}

// Log records entry, filling in ID, Timestamp and Protocol when unset.
func (s *MemoryStore) Log(entry *Entry) {
	if entry == nil {
		return
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.Protocol == "" {
		entry.Protocol = ProtocolHTTP
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	capacity := len(s.entries)
	if s.count < capacity {
		s.entries[(s.start+s.count)%capacity] = entry
		s.count++
		return
	}
	s.entries[s.start] = entry
	s.start = (s.start + 1) % capacity
}

// at returns the i-th oldest entry. Callers hold mu.
func (s *MemoryStore) at(i int) *Entry {
	return s.entries[(s.start+i)%len(s.entries)]
}

// Get retrieves an entry by ID.
func (s *MemoryStore) Get(id string) *Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := s.count - 1; i >= 0; i-- {
		if e := s.at(i); e.ID == id {
			return e
		}
	}
	return nil
}

// List returns entries newest first.
func (s *MemoryStore) List(filter *Filter) []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Entry, 0, s.count)
	skipped := 0
	for i := s.count - 1; i >= 0; i-- {
		e := s.at(i)
		if filter != nil {
			if !filter.matches(e) {
				continue
			}
			if skipped < filter.Offset {
				skipped++
				continue
			}
			if filter.Limit > 0 && len(result) >= filter.Limit {
				break
			}
		}
		result = append(result, e)
	}
	return result
}

// Clear removes all entries.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.entries)
	s.start = 0
	s.count = 0
}

// Count returns the number of entries.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}
