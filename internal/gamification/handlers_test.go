package gamification

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuronest/guardian/internal/alerts"
	"github.com/neuronest/guardian/internal/children"
	"github.com/neuronest/guardian/internal/screentime"
)

type fixture struct {
	router     *gin.Engine
	store      *MemoryStore
	usage      *screentime.MemoryStore
	alertStore *alerts.MemoryStore
}

func setup(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	childStore := children.NewMemoryStore()
	require.NoError(t, childStore.Create(context.Background(), &children.Child{
		ID:            "chd_1",
		ParentID:      "usr_parent",
		Name:          "Mia",
		Age:           10,
		DailyLimitMin: 120,
	}))

	f := &fixture{
		store:      NewMemoryStore(),
		usage:      screentime.NewMemoryStore(),
		alertStore: alerts.NewMemoryStore(),
	}

	emitter := alerts.NewEmitter(f.alertStore, nil, nil, slog.New(slog.DiscardHandler))

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", "usr_parent")
		c.Set("role", "PARENT")
		c.Next()
	})
	h := NewHandler(f.store, childStore, f.usage, emitter, nil, nil)
	h.RegisterRoutes(r.Group("/v1"))
	f.router = r
	return f
}

func doJSON(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetState_LazyZeroState(t *testing.T) {
	f := setup(t)

	w := doJSON(f.router, http.MethodGet, "/v1/children/chd_1/gamification", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		State    State             `json:"state"`
		Progress LevelProgress     `json:"progress"`
		Badges   []BadgeDefinition `json:"badges"`
		Catalog  []BadgeDefinition `json:"catalog"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.State.Level)
	assert.Zero(t, resp.State.Points)
	assert.Empty(t, resp.Badges)
	assert.Len(t, resp.Catalog, 10)
	assert.Equal(t, int64(200), resp.Progress.PointsToNextLevel)
}

func TestGetState_UnownedChild(t *testing.T) {
	f := setup(t)
	w := doJSON(f.router, http.MethodGet, "/v1/children/chd_other/gamification", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReward(t *testing.T) {
	f := setup(t)

	w := doJSON(f.router, http.MethodPost, "/v1/gamification/reward", gin.H{
		"childId": "chd_1",
		"points":  150,
		"reason":  "finished homework",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Result   AwardResult   `json:"result"`
		Progress LevelProgress `json:"progress"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(150), resp.Result.State.Points)
	assert.False(t, resp.Result.LeveledUp)
	assert.Equal(t, 75, resp.Progress.ProgressPercent)
}

func TestReward_LevelUpEmitsAlert(t *testing.T) {
	f := setup(t)

	w := doJSON(f.router, http.MethodPost, "/v1/gamification/reward", gin.H{
		"childId": "chd_1",
		"points":  250,
		"reason":  "science fair",
	})
	require.Equal(t, http.StatusOK, w.Code)

	list, err := f.alertStore.List(context.Background(), alerts.ListQuery{
		UserID: "usr_parent", Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, alerts.TypeLevelUp, list[0].Type)
	assert.Equal(t, alerts.SeverityInfo, list[0].Severity)
}

func TestReward_BadgeEmitsAlert(t *testing.T) {
	f := setup(t)

	w := doJSON(f.router, http.MethodPost, "/v1/gamification/reward", gin.H{
		"childId": "chd_1",
		"points":  1000,
	})
	require.Equal(t, http.StatusOK, w.Code)

	list, err := f.alertStore.List(context.Background(), alerts.ListQuery{
		UserID: "usr_parent", Limit: 10,
	})
	require.NoError(t, err)

	var badgeAlerts int
	for _, a := range list {
		if a.Type == alerts.TypeBadgeUnlock {
			badgeAlerts++
		}
	}
	assert.Equal(t, 2, badgeAlerts) // points_1000 and level_5
}

func TestReward_Validation(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name string
		body gin.H
	}{
		{"missing childId", gin.H{"points": 100}},
		{"zero points", gin.H{"childId": "chd_1", "points": 0}},
		{"negative points", gin.H{"childId": "chd_1", "points": -10}},
		{"excessive points", gin.H{"childId": "chd_1", "points": 99999}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(f.router, http.MethodPost, "/v1/gamification/reward", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestEvaluateStreak_UnderLimit(t *testing.T) {
	f := setup(t)
	today := time.Now().Format("2006-01-02")
	require.NoError(t, f.usage.Create(context.Background(), &screentime.Log{
		ID: "log_1", ChildID: "chd_1", AppName: "Duolingo",
		Category: "education", DurationMinutes: 60, Date: today, Hour: 17,
	}))

	w := doJSON(f.router, http.MethodPost, "/v1/children/chd_1/gamification/streak", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Result           StreakResult `json:"result"`
		AlreadyEvaluated bool         `json:"alreadyEvaluated"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Result.UnderLimit)
	assert.Equal(t, 1, resp.Result.State.Streak)
	assert.Equal(t, int64(55), resp.Result.BonusPoints)
	assert.False(t, resp.AlreadyEvaluated)
}

func TestEvaluateStreak_SameDayIsNoOp(t *testing.T) {
	f := setup(t)

	w := doJSON(f.router, http.MethodPost, "/v1/children/chd_1/gamification/streak", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(f.router, http.MethodPost, "/v1/children/chd_1/gamification/streak", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Result           StreakResult `json:"result"`
		AlreadyEvaluated bool         `json:"alreadyEvaluated"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.AlreadyEvaluated)
	assert.Equal(t, 1, resp.Result.State.Streak)
}

func TestEvaluateStreak_OverLimit(t *testing.T) {
	f := setup(t)
	today := time.Now().Format("2006-01-02")
	require.NoError(t, f.usage.Create(context.Background(), &screentime.Log{
		ID: "log_1", ChildID: "chd_1", AppName: "Roblox",
		Category: "games", DurationMinutes: 200, Date: today, Hour: 15,
	}))

	w := doJSON(f.router, http.MethodPost, "/v1/children/chd_1/gamification/streak", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Result StreakResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Result.UnderLimit)
	assert.Zero(t, resp.Result.State.Streak)
	assert.Zero(t, resp.Result.BonusPoints)
}
