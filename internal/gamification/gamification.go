// Package gamification tracks points, streaks, levels, and badges that
// reward children for staying under their screen-time limits.
package gamification

import (
	"context"
	"math"
	"time"
)

// PointsPerLevel is the point cost of each level. Level is always
// derived from total points: points/PointsPerLevel + 1.
const PointsPerLevel = 200

// Streak bonus: a flat base plus a growing per-day reward.
const (
	streakBonusBase   = 50
	streakBonusPerDay = 5
)

// State is a child's progression record. A child that has never earned
// anything has the zero state: 0 points, 0 streak, level 1, no badges.
type State struct {
	ChildID        string     `json:"childId"`
	Points         int64      `json:"points"`
	Streak         int        `json:"streak"`
	LongestStreak  int        `json:"longestStreak"`
	Level          int        `json:"level"`
	Badges         []string   `json:"badges"`
	LastActiveDate *time.Time `json:"lastActiveDate,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// NewState returns the zero progression state for a child.
func NewState(childID string, now time.Time) *State {
	return &State{
		ChildID:   childID,
		Level:     1,
		Badges:    []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// HasBadge reports whether the badge is already unlocked.
func (s *State) HasBadge(id string) bool {
	for _, b := range s.Badges {
		if b == id {
			return true
		}
	}
	return false
}

// LevelForPoints derives the level from a point total.
func LevelForPoints(points int64) int {
	return int(points/PointsPerLevel) + 1
}

// BadgeKind groups badges by what they measure.
type BadgeKind string

const (
	KindStreak    BadgeKind = "streak"
	KindPoints    BadgeKind = "points"
	KindLevel     BadgeKind = "level"
	KindScoreDrop BadgeKind = "scoredrop"
	KindFocus     BadgeKind = "focus"
)

// BadgeDefinition describes one badge in the catalog.
type BadgeDefinition struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Kind        BadgeKind `json:"kind"`
	Threshold   int64     `json:"threshold"`
}

// Catalog is the ordered badge table. Unlock checks are driven from
// this table; adding a badge here is all that is needed to make it
// earnable. scoredrop and focus badges are display-only for now: no
// signal feeds them yet.
var Catalog = []BadgeDefinition{
	{ID: "first_day", Name: "🌟 First Day Hero", Description: "Stayed under the limit for a full day", Kind: KindStreak, Threshold: 1},
	{ID: "streak_3", Name: "🔥 3-Day Streak", Description: "Three days under the limit in a row", Kind: KindStreak, Threshold: 3},
	{ID: "streak_7", Name: "⚡ Weekly Warrior", Description: "A whole week under the limit", Kind: KindStreak, Threshold: 7},
	{ID: "streak_30", Name: "🏆 Monthly Champion", Description: "Thirty days under the limit in a row", Kind: KindStreak, Threshold: 30},
	{ID: "score_drop_10", Name: "📉 Risk Reducer", Description: "Lowered the risk score by 10 points", Kind: KindScoreDrop, Threshold: 10},
	{ID: "score_drop_25", Name: "🛡️ Digital Guardian", Description: "Lowered the risk score by 25 points", Kind: KindScoreDrop, Threshold: 25},
	{ID: "focus_complete", Name: "🎯 Focus Master", Description: "Completed ten focus sessions", Kind: KindFocus, Threshold: 10},
	{ID: "level_5", Name: "🚀 Rising Star", Description: "Reached level 5", Kind: KindLevel, Threshold: 5},
	{ID: "level_10", Name: "💎 Diamond Mind", Description: "Reached level 10", Kind: KindLevel, Threshold: 10},
	{ID: "points_1000", Name: "🏅 Points Prodigy", Description: "Earned 1000 total points", Kind: KindPoints, Threshold: 1000},
}

// BadgeByID looks up a catalog entry.
func BadgeByID(id string) (BadgeDefinition, bool) {
	for _, b := range Catalog {
		if b.ID == id {
			return b, true
		}
	}
	return BadgeDefinition{}, false
}

// unlock adds every badge of the given kind whose threshold the value
// now meets and that is not yet held. Idempotent.
func unlock(state *State, kind BadgeKind, value int64) []BadgeDefinition {
	var earned []BadgeDefinition
	for _, b := range Catalog {
		if b.Kind != kind || value < b.Threshold || state.HasBadge(b.ID) {
			continue
		}
		state.Badges = append(state.Badges, b.ID)
		earned = append(earned, b)
	}
	return earned
}

// StreakResult reports the outcome of a daily streak evaluation.
type StreakResult struct {
	State        *State            `json:"state"`
	UnderLimit   bool              `json:"underLimit"`
	StreakBroken bool              `json:"streakBroken"`
	BonusPoints  int64             `json:"bonusPoints"`
	NewBadges    []BadgeDefinition `json:"newBadges"`
}

// AwardResult reports the outcome of a point award.
type AwardResult struct {
	State         *State            `json:"state"`
	PointsAwarded int64             `json:"pointsAwarded"`
	Reason        string            `json:"reason"`
	LeveledUp     bool              `json:"leveledUp"`
	NewBadges     []BadgeDefinition `json:"newBadges"`
}

// LevelProgress describes how far through the current level a child is.
type LevelProgress struct {
	Level                int   `json:"level"`
	Points               int64 `json:"points"`
	PointsToNextLevel    int64 `json:"pointsToNextLevel"`
	CurrentLevelProgress int64 `json:"currentLevelProgress"`
	ProgressPercent      int   `json:"progressPercent"`
}

// UpdateStreak applies one day's limit outcome to the state, in place.
// Under the limit the streak grows and earns a bonus of
// 50 + 5 x new streak length; over the limit the streak resets with no
// bonus. Either way the day counts as activity.
func UpdateStreak(state *State, minutesToday, dailyLimit int64, now time.Time) StreakResult {
	res := StreakResult{State: state, UnderLimit: minutesToday <= dailyLimit}

	if res.UnderLimit {
		state.Streak++
		res.BonusPoints = int64(streakBonusBase + streakBonusPerDay*state.Streak)
		res.NewBadges = unlock(state, KindStreak, int64(state.Streak))
	} else {
		res.StreakBroken = state.Streak > 0
		state.Streak = 0
	}

	if state.Streak > state.LongestStreak {
		state.LongestStreak = state.Streak
	}
	state.LastActiveDate = &now
	state.Points += res.BonusPoints
	state.Level = LevelForPoints(state.Points)
	state.UpdatedAt = now

	return res
}

// Award adds points to the state in place and unlocks any point or
// level milestones reached.
func Award(state *State, points int64, reason string, now time.Time) AwardResult {
	res := AwardResult{State: state, PointsAwarded: points, Reason: reason}

	state.Points += points
	newLevel := LevelForPoints(state.Points)
	res.LeveledUp = newLevel > state.Level
	state.Level = newLevel
	state.UpdatedAt = now

	res.NewBadges = append(res.NewBadges, unlock(state, KindPoints, state.Points)...)
	res.NewBadges = append(res.NewBadges, unlock(state, KindLevel, int64(state.Level))...)

	return res
}

// Progress computes level progress for display.
func Progress(state *State) LevelProgress {
	ptnl := int64(state.Level) * PointsPerLevel
	progress := state.Points % ptnl
	return LevelProgress{
		Level:                state.Level,
		Points:               state.Points,
		PointsToNextLevel:    ptnl,
		CurrentLevelProgress: progress,
		ProgressPercent:      int(math.Round(float64(progress) / float64(ptnl) * 100)),
	}
}

// Store persists progression state with per-child atomicity.
type Store interface {
	// GetOrCreate returns the state, creating the zero state if absent.
	GetOrCreate(ctx context.Context, childID string) (*State, error)
	// EnsureState creates the zero state if absent.
	EnsureState(ctx context.Context, childID string) error
	// Update atomically applies fn to the child's state and persists
	// the result. fn runs under a per-child lock.
	Update(ctx context.Context, childID string, fn func(*State) error) (*State, error)
}
