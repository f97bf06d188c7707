package auth

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]*User
	byEmail map[string]*User
}

// NewMemoryStore creates an in-memory user store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]*User),
		byEmail: make(map[string]*User),
	}
}

func (s *MemoryStore) Create(ctx context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(user.Email)
	if _, exists := s.byEmail[key]; exists {
		return ErrEmailTaken
	}
	cp := copyUser(user)
	s.byID[user.ID] = cp
	s.byEmail[key] = cp
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(u), nil
}

func (s *MemoryStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(u), nil
}

func (s *MemoryStore) Update(ctx context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[user.ID]; !ok {
		return ErrNotFound
	}
	cp := copyUser(user)
	s.byID[user.ID] = cp
	s.byEmail[strings.ToLower(user.Email)] = cp
	return nil
}

func copyUser(u *User) *User {
	cp := *u
	if u.OTPExpiry != nil {
		t := *u.OTPExpiry
		cp.OTPExpiry = &t
	}
	return &cp
}
