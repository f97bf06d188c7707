// Package alerts is the notification sink for the Guardian platform.
//
// Every subsystem that detects something a parent should know about —
// risk assessments, screen-time limit breaches, badge unlocks — emits
// an alert here. Alerts are persisted, pushed over WebSocket, and
// forwarded to registered webhooks.
package alerts

import (
	"context"
	"errors"
	"time"

	"github.com/neuronest/guardian/internal/pagination"
)

// Type categorizes what triggered an alert.
type Type string

const (
	TypeAddictionRisk   Type = "ADDICTION_RISK"
	TypeScreenTimeLimit Type = "SCREEN_TIME_LIMIT"
	TypeBadgeUnlock     Type = "BADGE_UNLOCK"
	TypeLevelUp         Type = "LEVEL_UP"
)

// Severity orders alerts by urgency.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityDanger   Severity = "DANGER"
	SeverityCritical Severity = "CRITICAL"
)

// ErrNotFound is returned when an alert does not exist or belongs to
// another user.
var ErrNotFound = errors.New("alert not found")

// Alert is a single notification delivered to a parent.
type Alert struct {
	ID        string                 `json:"id"`
	ChildID   string                 `json:"childId"`
	UserID    string                 `json:"userId"`
	Type      Type                   `json:"type"`
	Severity  Severity               `json:"severity"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	IsRead    bool                   `json:"isRead"`
	CreatedAt time.Time              `json:"createdAt"`
}

// ListQuery selects a page of alerts for a user.
type ListQuery struct {
	UserID     string
	ChildID    string // optional filter
	UnreadOnly bool
	Limit      int
	Cursor     *pagination.Cursor
}

// Store persists alerts.
type Store interface {
	Create(ctx context.Context, alert *Alert) error
	Get(ctx context.Context, id string) (*Alert, error)
	List(ctx context.Context, q ListQuery) ([]*Alert, error)
	ListRecentByChild(ctx context.Context, childID string, limit int) ([]*Alert, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
}
