package screentime

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu   sync.RWMutex
	logs map[string][]*Log // childID -> logs in insertion order
}

// NewMemoryStore creates an in-memory screen-time store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{logs: make(map[string][]*Log)}
}

func (s *MemoryStore) Create(ctx context.Context, log *Log) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *log
	s.logs[log.ChildID] = append(s.logs[log.ChildID], &cp)
	return nil
}

func (s *MemoryStore) ListSince(ctx context.Context, childID, sinceDate string) ([]*Log, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Log
	for _, l := range s.logs[childID] {
		if l.Date >= sinceDate {
			cp := *l
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (s *MemoryStore) ListForDay(ctx context.Context, childID, date string) ([]*Log, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Log
	for _, l := range s.logs[childID] {
		if l.Date == date {
			cp := *l
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (s *MemoryStore) TotalForDay(ctx context.Context, childID, date string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	for _, l := range s.logs[childID] {
		if l.Date == date {
			total += l.DurationMinutes
		}
	}
	return total, nil
}
