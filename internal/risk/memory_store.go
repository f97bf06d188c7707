package risk

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu          sync.RWMutex
	assessments map[string][]*Assessment // childID -> newest first
}

// NewMemoryStore creates an in-memory assessment store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{assessments: make(map[string][]*Assessment)}
}

func (s *MemoryStore) Create(ctx context.Context, a *Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := copyAssessment(a)
	s.assessments[a.ChildID] = append([]*Assessment{cp}, s.assessments[a.ChildID]...)
	return nil
}

func (s *MemoryStore) ListByChild(ctx context.Context, childID string, limit int) ([]*Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.assessments[childID]
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	result := make([]*Assessment, 0, len(list))
	for _, a := range list {
		result = append(result, copyAssessment(a))
	}
	return result, nil
}

func (s *MemoryStore) Latest(ctx context.Context, childID string) (*Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.assessments[childID]
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return copyAssessment(list[0]), nil
}

func copyAssessment(a *Assessment) *Assessment {
	cp := *a
	cp.Factors = make(map[string]float64, len(a.Factors))
	for k, v := range a.Factors {
		cp.Factors[k] = v
	}
	return &cp
}
