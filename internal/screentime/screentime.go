// Package screentime ingests per-app usage events and aggregates them
// into daily and weekly summaries.
package screentime

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a log record does not exist.
var ErrNotFound = errors.New("screen time log not found")

// Log is a single app-usage event reported by a child's device.
// Date is a calendar day in "2006-01-02" form; Hour is the local hour
// the usage occurred in (0-23).
type Log struct {
	ID              string    `json:"id"`
	ChildID         string    `json:"childId"`
	AppName         string    `json:"appName"`
	Category        string    `json:"category"`
	DurationMinutes int64     `json:"durationMinutes"`
	Date            string    `json:"date"`
	Hour            int       `json:"hour"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Day returns the log's calendar day as a time.Time (midnight UTC).
func (l *Log) Day() time.Time {
	t, _ := parseDate(l.Date)
	return t
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

// IsNightHour reports whether an hour counts as late-night usage
// (22:00-23:59 or 00:00-05:59).
func IsNightHour(hour int) bool {
	return hour >= 22 || hour < 6
}

// Store persists screen-time logs. Date parameters use "2006-01-02"
// form; the string ordering matches chronological ordering.
type Store interface {
	Create(ctx context.Context, log *Log) error
	ListSince(ctx context.Context, childID, sinceDate string) ([]*Log, error)
	ListForDay(ctx context.Context, childID, date string) ([]*Log, error)
	TotalForDay(ctx context.Context, childID, date string) (int64, error)
}
