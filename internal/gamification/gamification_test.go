package gamification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelForPoints(t *testing.T) {
	tests := []struct {
		points int64
		level  int
	}{
		{0, 1},
		{199, 1},
		{200, 2},
		{399, 2},
		{400, 3},
		{1000, 6},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.level, LevelForPoints(tt.points), "points=%d", tt.points)
	}
}

func TestUpdateStreak_UnderLimit(t *testing.T) {
	now := time.Now()
	st := NewState("chd_1", now)

	res := UpdateStreak(st, 90, 120, now)
	assert.True(t, res.UnderLimit)
	assert.False(t, res.StreakBroken)
	assert.Equal(t, 1, st.Streak)
	assert.Equal(t, 1, st.LongestStreak)
	// Bonus is 50 + 5 x streak length.
	assert.Equal(t, int64(55), res.BonusPoints)
	assert.Equal(t, int64(55), st.Points)
	require.NotNil(t, st.LastActiveDate)

	// First day under the limit unlocks the first streak badge.
	require.Len(t, res.NewBadges, 1)
	assert.Equal(t, "first_day", res.NewBadges[0].ID)
}

func TestUpdateStreak_ExactlyAtLimitCounts(t *testing.T) {
	st := NewState("chd_1", time.Now())
	res := UpdateStreak(st, 120, 120, time.Now())
	assert.True(t, res.UnderLimit)
	assert.Equal(t, 1, st.Streak)
}

func TestUpdateStreak_OverLimitResets(t *testing.T) {
	now := time.Now()
	st := NewState("chd_1", now)
	st.Streak = 5
	st.LongestStreak = 5
	st.Points = 300
	st.Level = LevelForPoints(300)

	res := UpdateStreak(st, 150, 120, now)
	assert.False(t, res.UnderLimit)
	assert.True(t, res.StreakBroken)
	assert.Zero(t, res.BonusPoints)
	assert.Zero(t, st.Streak)
	// The high-water mark and points survive a broken streak.
	assert.Equal(t, 5, st.LongestStreak)
	assert.Equal(t, int64(300), st.Points)
}

func TestUpdateStreak_OverLimitWithZeroStreakNotBroken(t *testing.T) {
	st := NewState("chd_1", time.Now())
	res := UpdateStreak(st, 150, 120, time.Now())
	assert.False(t, res.UnderLimit)
	assert.False(t, res.StreakBroken)
}

func TestUpdateStreak_BadgeProgression(t *testing.T) {
	now := time.Now()
	st := NewState("chd_1", now)

	var unlocked []string
	for day := 1; day <= 30; day++ {
		res := UpdateStreak(st, 60, 120, now.AddDate(0, 0, day))
		for _, b := range res.NewBadges {
			unlocked = append(unlocked, b.ID)
		}
	}
	assert.Equal(t, []string{"first_day", "streak_3", "streak_7", "streak_30"}, unlocked)
	assert.Equal(t, 30, st.Streak)
	assert.Equal(t, 30, st.LongestStreak)
}

func TestUnlock_Idempotent(t *testing.T) {
	st := NewState("chd_1", time.Now())

	first := unlock(st, KindStreak, 3)
	assert.Len(t, first, 2) // first_day and streak_3

	again := unlock(st, KindStreak, 3)
	assert.Empty(t, again)
	assert.Len(t, st.Badges, 2)
}

func TestAward(t *testing.T) {
	now := time.Now()
	st := NewState("chd_1", now)

	res := Award(st, 150, "chores", now)
	assert.Equal(t, int64(150), st.Points)
	assert.Equal(t, 1, st.Level)
	assert.False(t, res.LeveledUp)
	assert.Empty(t, res.NewBadges)

	res = Award(st, 100, "reading", now)
	assert.Equal(t, int64(250), st.Points)
	assert.Equal(t, 2, st.Level)
	assert.True(t, res.LeveledUp)
}

func TestAward_MilestoneBadges(t *testing.T) {
	now := time.Now()
	st := NewState("chd_1", now)

	res := Award(st, 1000, "grand prize", now)
	assert.Equal(t, 6, st.Level)

	ids := make([]string, 0, len(res.NewBadges))
	for _, b := range res.NewBadges {
		ids = append(ids, b.ID)
	}
	assert.Contains(t, ids, "points_1000")
	assert.Contains(t, ids, "level_5")
	assert.NotContains(t, ids, "level_10")
}

func TestProgress(t *testing.T) {
	st := NewState("chd_1", time.Now())
	st.Points = 150

	p := Progress(st)
	assert.Equal(t, int64(200), p.PointsToNextLevel)
	assert.Equal(t, int64(150), p.CurrentLevelProgress)
	assert.Equal(t, 75, p.ProgressPercent)
}

func TestProgress_ZeroState(t *testing.T) {
	p := Progress(NewState("chd_1", time.Now()))
	assert.Equal(t, 1, p.Level)
	assert.Zero(t, p.CurrentLevelProgress)
	assert.Zero(t, p.ProgressPercent)
}

func TestBadgeByID(t *testing.T) {
	b, ok := BadgeByID("streak_7")
	require.True(t, ok)
	assert.Equal(t, "⚡ Weekly Warrior", b.Name)
	assert.Equal(t, KindStreak, b.Kind)
	assert.Equal(t, int64(7), b.Threshold)

	_, ok = BadgeByID("nope")
	assert.False(t, ok)
}

func TestMemoryStore_GetOrCreate(t *testing.T) {
	s := NewMemoryStore()
	st, err := s.GetOrCreate(context.Background(), "chd_1")
	require.NoError(t, err)
	assert.Equal(t, 1, st.Level)
	assert.Zero(t, st.Points)
	assert.NotNil(t, st.Badges)
	assert.Empty(t, st.Badges)
}

func TestMemoryStore_UpdateAtomicity(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Update(ctx, "chd_1", func(st *State) error {
				st.Points += 10
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	st, err := s.GetOrCreate(ctx, "chd_1")
	require.NoError(t, err)
	assert.Equal(t, int64(500), st.Points)
}

func TestMemoryStore_UpdateErrorDiscardsChanges(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.Update(ctx, "chd_1", func(st *State) error {
		st.Points = 999
		return assert.AnError
	})
	require.Error(t, err)

	st, err := s.GetOrCreate(ctx, "chd_1")
	require.NoError(t, err)
	assert.Zero(t, st.Points)
}
