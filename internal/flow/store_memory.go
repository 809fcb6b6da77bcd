package flow

import (
	"context"
	"sync"
	"time"
)

// Clock abstracts time for expiry tests.
type Clock func() time.Time

// MemoryStore keeps attempt notes in process memory. Suited to single-node
// deployments and tests; use the Redis store when the gateway runs behind a
// load balancer.
type MemoryStore struct {
	mu       sync.RWMutex
	attempts map[string]*attemptNotes
	ttl      time.Duration
	clock    Clock
}

type attemptNotes struct {
	notes     map[string]string
	expiresAt time.Time
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithClock sets the clock function for testability.
func WithClock(clock Clock) MemoryStoreOption {
	return func(s *MemoryStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewMemoryStore creates a memory-backed attempt store. Attempts expire ttl
// after their first write.
func NewMemoryStore(ttl time.Duration, opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		attempts: make(map[string]*attemptNotes),
		ttl:      ttl,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Put(_ context.Context, attemptID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.attempts[attemptID]
	if !ok || s.expired(entry) {
		entry = &attemptNotes{
			notes:     make(map[string]string),
			expiresAt: s.clock().Add(s.ttl),
		}
		s.attempts[attemptID] = entry
	}
	entry.notes[key] = value
	return nil
}

func (s *MemoryStore) Get(_ context.Context, attemptID, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.attempts[attemptID]
	if !ok || s.expired(entry) {
		return "", nil
	}
	return entry.notes[key], nil
}

func (s *MemoryStore) Remove(_ context.Context, attemptID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.attempts[attemptID]; ok && !s.expired(entry) {
		delete(entry.notes, key)
	}
	return nil
}

func (s *MemoryStore) Destroy(_ context.Context, attemptID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.attempts, attemptID)
	return nil
}

func (s *MemoryStore) expired(entry *attemptNotes) bool {
	return s.clock().After(entry.expiresAt)
}
