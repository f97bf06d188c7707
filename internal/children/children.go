// Package children manages monitored child profiles.
package children

import (
	"context"
	"errors"
	"time"
)

// Age bounds for a monitored child.
const (
	MinAge = 3
	MaxAge = 17
)

// Daily screen-time limit bounds in minutes.
const (
	MinDailyLimit     = 15
	MaxDailyLimit     = 1440
	DefaultDailyLimit = 120
)

// ErrNotFound is returned when a child does not exist or belongs to
// another parent.
var ErrNotFound = errors.New("child not found")

// Child is a monitored subject profile owned by a parent account.
type Child struct {
	ID            string    `json:"id"`
	ParentID      string    `json:"parentId"`
	Name          string    `json:"name"`
	Age           int       `json:"age"`
	Avatar        string    `json:"avatar,omitempty"`
	DeviceID      string    `json:"deviceId,omitempty"`
	DailyLimitMin int64     `json:"dailyLimitMin"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Store persists child profiles.
type Store interface {
	Create(ctx context.Context, child *Child) error
	Get(ctx context.Context, id string) (*Child, error)
	ListByParent(ctx context.Context, parentID string) ([]*Child, error)
	Update(ctx context.Context, child *Child) error
	Delete(ctx context.Context, id string) error
}

// GamificationInitializer creates the progression state for a newly
// registered child. Implemented by the gamification store.
type GamificationInitializer interface {
	EnsureState(ctx context.Context, childID string) error
}

// Authorize returns the child only if it is owned by parentID. Admins
// pass isAdmin to bypass the ownership check.
func Authorize(ctx context.Context, store Store, childID, parentID string, isAdmin bool) (*Child, error) {
	child, err := store.Get(ctx, childID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && child.ParentID != parentID {
		// Report not-found rather than forbidden to avoid leaking IDs.
		return nil, ErrNotFound
	}
	return child, nil
}
