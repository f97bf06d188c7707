package children

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu       sync.RWMutex
	children map[string]*Child
}

// NewMemoryStore creates an in-memory child store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{children: make(map[string]*Child)}
}

func (s *MemoryStore) Create(ctx context.Context, child *Child) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *child
	s.children[child.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Child, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.children[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) ListByParent(ctx context.Context, parentID string) ([]*Child, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Child
	for _, c := range s.children {
		if c.ParentID == parentID {
			cp := *c
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (s *MemoryStore) Update(ctx context.Context, child *Child) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.children[child.ID]; !ok {
		return ErrNotFound
	}
	cp := *child
	s.children[child.ID] = &cp
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.children[id]; !ok {
		return ErrNotFound
	}
	delete(s.children, id)
	return nil
}
