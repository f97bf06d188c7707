package risk

import (
	"context"
	"encoding/json"
	"fmt"
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
	h := NewHandler(NewEngine(nil), f.store, f.usage, childStore, emitter, nil, nil)
	h.RegisterRoutes(r.Group("/v1"))
	f.router = r
	return f
}

func (f *fixture) seedWeek(t *testing.T, app, category string, minutesPerDay int64, hour int) {
	t.Helper()
	now := time.Now()
	for i := 0; i < 7; i++ {
		require.NoError(t, f.usage.Create(context.Background(), &screentime.Log{
			ID: fmt.Sprintf("log_%s_%d", app, i), ChildID: "chd_1",
			AppName: app, Category: category,
			DurationMinutes: minutesPerDay,
			Date:            now.AddDate(0, 0, -i).Format("2006-01-02"),
			Hour:            hour,
		}))
	}
}

func do(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCalculate_PersistsAssessment(t *testing.T) {
	f := setup(t)
	f.seedWeek(t, "Duolingo", "education", 90, 16)
	f.seedWeek(t, "Minecraft", "games", 90, 17)

	w := do(f.router, http.MethodPost, "/v1/children/chd_1/risk/calculate")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Assessment Assessment `json:"assessment"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.InDelta(t, 34.5, resp.Assessment.Score, 0.001)
	assert.Equal(t, TierModerate, resp.Assessment.Tier)
	assert.NotEmpty(t, resp.Assessment.ID)

	stored, err := f.store.Latest(context.Background(), "chd_1")
	require.NoError(t, err)
	assert.Equal(t, resp.Assessment.ID, stored.ID)
}

func TestCalculate_EmptyWindowNotPersisted(t *testing.T) {
	f := setup(t)

	w := do(f.router, http.MethodPost, "/v1/children/chd_1/risk/calculate")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No usage data available for analysis.")

	_, err := f.store.Latest(context.Background(), "chd_1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCalculate_CriticalEmitsAlert(t *testing.T) {
	f := setup(t)
	f.seedWeek(t, "TikTok", "social_media", 240, 23)

	w := do(f.router, http.MethodPost, "/v1/children/chd_1/risk/calculate")
	require.Equal(t, http.StatusOK, w.Code)

	list, err := f.alertStore.List(context.Background(), alerts.ListQuery{
		UserID: "usr_parent", Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, alerts.TypeAddictionRisk, list[0].Type)
	assert.Equal(t, alerts.SeverityCritical, list[0].Severity)
	assert.Equal(t, "CRITICAL Addiction Risk Detected", list[0].Title)
	assert.Contains(t, list[0].Message, "Risk level: CRITICAL")
}

func TestCalculate_HighEmitsDangerAlert(t *testing.T) {
	f := setup(t)
	f.seedWeek(t, "TikTok", "social_media", 86, 23)

	w := do(f.router, http.MethodPost, "/v1/children/chd_1/risk/calculate")
	require.Equal(t, http.StatusOK, w.Code)

	list, err := f.alertStore.List(context.Background(), alerts.ListQuery{
		UserID: "usr_parent", Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, alerts.SeverityDanger, list[0].Severity)
	assert.Equal(t, "HIGH Addiction Risk Detected", list[0].Title)
}

func TestCalculate_ModerateEmitsNoAlert(t *testing.T) {
	f := setup(t)
	f.seedWeek(t, "Duolingo", "education", 90, 16)
	f.seedWeek(t, "Minecraft", "games", 90, 17)

	w := do(f.router, http.MethodPost, "/v1/children/chd_1/risk/calculate")
	require.Equal(t, http.StatusOK, w.Code)

	list, err := f.alertStore.List(context.Background(), alerts.ListQuery{
		UserID: "usr_parent", Limit: 10,
	})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCalculate_UnownedChild(t *testing.T) {
	f := setup(t)
	w := do(f.router, http.MethodPost, "/v1/children/chd_other/risk/calculate")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHistory(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, f.store.Create(ctx, &Assessment{
			ID: fmt.Sprintf("risk_%d", i), ChildID: "chd_1",
			Score: float64(10 * i), Tier: TierLow,
			Explanation: "x", Factors: map[string]float64{},
			CreatedAt: time.Now().Add(time.Duration(i) * time.Minute),
		}))
	}

	w := do(f.router, http.MethodGet, "/v1/children/chd_1/risk?limit=2")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Assessments []*Assessment `json:"assessments"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Assessments, 2)
	// Newest first.
	assert.Equal(t, "risk_2", resp.Assessments[0].ID)
}

func TestHistory_Empty(t *testing.T) {
	f := setup(t)
	w := do(f.router, http.MethodGet, "/v1/children/chd_1/risk")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"assessments":[]`)
}
