package user

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore keeps users in process memory. It favors clarity over
// performance and enforces the same email-uniqueness contract as the
// Postgres store.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]*User
	byEmail map[string]string // lowercased email -> user ID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]*User),
		byEmail: make(map[string]string),
	}
}

func (s *MemoryStore) Create(_ context.Context, u *User) error {
	key := strings.ToLower(u.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[key]; exists {
		return ErrEmailExists
	}
	cp := cloneUser(u)
	s.byID[u.ID] = cp
	s.byEmail[key] = u.ID
	return nil
}

func (s *MemoryStore) GetByEmail(_ context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(s.byID[id]), nil
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(u), nil
}

func cloneUser(u *User) *User {
	cp := *u
	if u.Attributes != nil {
		cp.Attributes = make(map[string][]string, len(u.Attributes))
		for k, vs := range u.Attributes {
			values := make([]string, len(vs))
			copy(values, vs)
			cp.Attributes[k] = values
		}
	}
	return &cp
}
