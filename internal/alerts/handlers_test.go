package alerts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(store Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	v1 := r.Group("/v1")
	v1.Use(func(c *gin.Context) {
		c.Set("userID", "usr_a")
		c.Next()
	})
	NewHandler(store).RegisterRoutes(v1)
	return r
}

func TestListAlerts_Empty(t *testing.T) {
	r := setupRouter(NewMemoryStore())

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/alerts", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Alerts      []*Alert `json:"alerts"`
		UnreadCount int64    `json:"unreadCount"`
		HasMore     bool     `json:"hasMore"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Alerts)
	assert.False(t, resp.HasMore)
}

func TestListAlerts_Pagination(t *testing.T) {
	store := NewMemoryStore()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		store.Create(context.Background(), &Alert{
			ID:        "alr_" + string(rune('a'+i)),
			UserID:    "usr_a",
			ChildID:   "chd_1",
			Type:      TypeAddictionRisk,
			Severity:  SeverityInfo,
			Title:     "t",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	r := setupRouter(store)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/alerts?limit=2", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Alerts     []*Alert `json:"alerts"`
		NextCursor string   `json:"nextCursor"`
		HasMore    bool     `json:"hasMore"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Alerts, 2)
	assert.True(t, resp.HasMore)
	require.NotEmpty(t, resp.NextCursor)

	// Second page continues past the first
	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/v1/alerts?limit=2&cursor="+resp.NextCursor, nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var page2 struct {
		Alerts []*Alert `json:"alerts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page2))
	require.Len(t, page2.Alerts, 2)
	assert.NotEqual(t, resp.Alerts[0].ID, page2.Alerts[0].ID)
}

func TestListAlerts_InvalidCursor(t *testing.T) {
	r := setupRouter(NewMemoryStore())

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/alerts?cursor=garbage!!!", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_cursor")
}

func TestMarkRead_Handler(t *testing.T) {
	store := NewMemoryStore()
	store.Create(context.Background(), &Alert{
		ID: "alr_1", UserID: "usr_a", ChildID: "chd_1",
		Type: TypeAddictionRisk, Severity: SeverityDanger, Title: "t",
		CreatedAt: time.Now(),
	})

	r := setupRouter(store)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("PUT", "/v1/alerts/alr_1/read", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	got, err := store.Get(context.Background(), "alr_1")
	require.NoError(t, err)
	assert.True(t, got.IsRead)
}

func TestMarkRead_NotFound(t *testing.T) {
	r := setupRouter(NewMemoryStore())

	w := httptest.NewRecorder()
	req := httptest.NewRequest("PUT", "/v1/alerts/alr_missing/read", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMarkAllRead_Handler(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()
	for _, id := range []string{"alr_1", "alr_2"} {
		store.Create(context.Background(), &Alert{
			ID: id, UserID: "usr_a", ChildID: "chd_1",
			Type: TypeAddictionRisk, Severity: SeverityInfo, Title: "t",
			CreatedAt: now,
		})
	}

	r := setupRouter(store)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("PUT", "/v1/alerts/read-all", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Updated int64 `json:"updated"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(2), resp.Updated)
}
