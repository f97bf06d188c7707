package gamification

import (
	"context"
	"sync"
	"time"

	"github.com/neuronest/guardian/internal/syncutil"
)

// MemoryStore is an in-memory implementation of Store for demo/test use.
// Per-child locks serialize Update calls for the same child while letting
// different children progress concurrently.
type MemoryStore struct {
	mu     sync.Mutex
	states map[string]*State
	locks  *syncutil.ContextShardedMutex
}

// NewMemoryStore creates an in-memory gamification store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: make(map[string]*State),
		locks:  syncutil.NewContextShardedMutex(),
	}
}

func (s *MemoryStore) GetOrCreate(ctx context.Context, childID string) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[childID]
	if !ok {
		st = NewState(childID, time.Now())
		s.states[childID] = st
	}
	return copyState(st), nil
}

func (s *MemoryStore) EnsureState(ctx context.Context, childID string) error {
	_, err := s.GetOrCreate(ctx, childID)
	return err
}

func (s *MemoryStore) Update(ctx context.Context, childID string, fn func(*State) error) (*State, error) {
	unlock, err := s.locks.LockContext(ctx, childID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	s.mu.Lock()
	st, ok := s.states[childID]
	if !ok {
		st = NewState(childID, time.Now())
		s.states[childID] = st
	}
	working := copyState(st)
	s.mu.Unlock()

	if err := fn(working); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.states[childID] = copyState(working)
	s.mu.Unlock()

	return working, nil
}

func copyState(st *State) *State {
	cp := *st
	cp.Badges = append([]string(nil), st.Badges...)
	if cp.Badges == nil {
		cp.Badges = []string{}
	}
	if st.LastActiveDate != nil {
		t := *st.LastActiveDate
		cp.LastActiveDate = &t
	}
	return &cp
}
