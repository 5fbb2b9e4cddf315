package session

import (
	"sync"
	"time"
)

// MemoryStore is a thread-safe in-memory Store. The record is lost when the
// process exits.
type MemoryStore struct {
	mu  sync.Mutex
	rec Record
	set bool

	now func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (s *MemoryStore) Put(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = rec
	s.set = true
	return nil
}

func (s *MemoryStore) Get() (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set {
		return Record{}, false
	}
	if s.now().After(s.rec.ExpiresAt) {
		s.rec = Record{}
		s.set = false
		return Record{}, false
	}
	return s.rec, true
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = Record{}
	s.set = false
	return nil
}
