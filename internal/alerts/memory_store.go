package alerts

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu     sync.RWMutex
	alerts []*Alert
}

// NewMemoryStore creates an in-memory alert store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Create(ctx context.Context, alert *Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *alert
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	s.alerts = append(s.alerts, &cp)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.alerts {
		if a.ID == id {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) List(ctx context.Context, q ListQuery) ([]*Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}

	var result []*Alert
	// Newest first; the slice is append-ordered so walk backwards.
	for i := len(s.alerts) - 1; i >= 0 && len(result) < limit; i-- {
		a := s.alerts[i]
		if a.UserID != q.UserID {
			continue
		}
		if q.ChildID != "" && a.ChildID != q.ChildID {
			continue
		}
		if q.UnreadOnly && a.IsRead {
			continue
		}
		if q.Cursor != nil {
			// Skip entries at or after the cursor position.
			if a.CreatedAt.After(q.Cursor.CreatedAt) ||
				(a.CreatedAt.Equal(q.Cursor.CreatedAt) && a.ID >= q.Cursor.ID) {
				continue
			}
		}
		cp := *a
		result = append(result, &cp)
	}
	return result, nil
}

func (s *MemoryStore) ListRecentByChild(ctx context.Context, childID string, limit int) ([]*Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	var result []*Alert
	for i := len(s.alerts) - 1; i >= 0 && len(result) < limit; i-- {
		if s.alerts[i].ChildID == childID {
			cp := *s.alerts[i]
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (s *MemoryStore) MarkRead(ctx context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.alerts {
		if a.ID == id && a.UserID == userID {
			a.IsRead = true
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, a := range s.alerts {
		if a.UserID == userID && !a.IsRead {
			a.IsRead = true
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) UnreadCount(ctx context.Context, userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, a := range s.alerts {
		if a.UserID == userID && !a.IsRead {
			n++
		}
	}
	return n, nil
}
