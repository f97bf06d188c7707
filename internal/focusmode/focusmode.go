// Package focusmode manages scheduled app-blocking windows.
package focusmode

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a focus session does not exist.
var ErrNotFound = errors.New("focus session not found")

// Schedule is a weekly recurring time window. Days use time.Weekday
// numbering (0 = Sunday). A window whose end is at or before its start
// wraps past midnight into the next day.
type Schedule struct {
	Days        []int `json:"days"`
	StartHour   int   `json:"startHour"`
	StartMinute int   `json:"startMinute"`
	EndHour     int   `json:"endHour"`
	EndMinute   int   `json:"endMinute"`
}

// Session is a named blocking window for one child.
type Session struct {
	ID          string    `json:"id"`
	ChildID     string    `json:"childId"`
	Name        string    `json:"name"`
	Schedule    Schedule  `json:"schedule"`
	BlockedApps []string  `json:"blockedApps"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
}

// scheduledOn reports whether the schedule covers the given weekday.
func (s *Schedule) scheduledOn(day int) bool {
	for _, d := range s.Days {
		if d == day {
			return true
		}
	}
	return false
}

// ActiveAt reports whether the session's window covers the given time.
// Overnight windows stay active past midnight on the day after a
// scheduled day.
func (s *Session) ActiveAt(now time.Time) bool {
	if !s.IsActive {
		return false
	}

	start := s.Schedule.StartHour*60 + s.Schedule.StartMinute
	end := s.Schedule.EndHour*60 + s.Schedule.EndMinute
	cur := now.Hour()*60 + now.Minute()
	day := int(now.Weekday())

	if start < end {
		return s.Schedule.scheduledOn(day) && cur >= start && cur < end
	}
	if start == end {
		return false
	}

	// Overnight wrap: the evening half belongs to the scheduled day,
	// the morning half to the day after.
	if cur >= start {
		return s.Schedule.scheduledOn(day)
	}
	if cur < end {
		return s.Schedule.scheduledOn((day + 6) % 7)
	}
	return false
}

// Store persists focus sessions.
type Store interface {
	Create(ctx context.Context, session *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	ListByChild(ctx context.Context, childID string) ([]*Session, error)
	Update(ctx context.Context, session *Session) error
	Delete(ctx context.Context, id string) error
}
