package cache

import (
	"context"
	"sync"
	"time"
)

// sweepInterval bounds how often Set scans for expired quotes.
const sweepInterval = time.Minute

type entry struct {
	payload  []byte
	deadline time.Time // zero means no expiry
}

func (e entry) expired(at time.Time) bool {
	return !e.deadline.IsZero() && at.After(e.deadline)
}

// MemoryStore keeps quotes in process memory. Expired entries are dropped
// when read and by a periodic sweep on Set, so symbols that are never read
// again do not accumulate.
type MemoryStore struct {
	mu        sync.Mutex
	entries   map[string]entry
	lastSweep time.Time
	now       func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]entry), now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if e.expired(s.now()) {
		delete(s.entries, key)
		return nil, false, nil
	}
	return copyBytes(e.payload), true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	at := s.now()
	e := entry{payload: copyBytes(value)}
	if ttl > 0 {
		e.deadline = at.Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = e
	if at.Sub(s.lastSweep) >= sweepInterval {
		s.sweepLocked(at)
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Len reports the number of held entries, expired ones not yet swept included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) sweepLocked(at time.Time) {
	for k, e := range s.entries {
		if e.expired(at) {
			delete(s.entries, k)
		}
	}
	s.lastSweep = at
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
