package children

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubInitializer struct {
	calls []string
}

func (s *stubInitializer) EnsureState(ctx context.Context, childID string) error {
	s.calls = append(s.calls, childID)
	return nil
}

func setupRouter(store Store, gam GamificationInitializer, userID, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", userID)
		c.Set("role", role)
		c.Next()
	})
	h := NewHandler(store, gam)
	h.RegisterRoutes(r.Group("/v1"))
	return r
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

func TestCreateChild(t *testing.T) {
	store := NewMemoryStore()
	gam := &stubInitializer{}
	r := setupRouter(store, gam, "usr_parent", "PARENT")

	w := doJSON(r, http.MethodPost, "/v1/children", gin.H{
		"name": "Mia",
		"age":  9,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Child Child `json:"child"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Mia", resp.Child.Name)
	assert.Equal(t, "usr_parent", resp.Child.ParentID)
	assert.Equal(t, int64(DefaultDailyLimit), resp.Child.DailyLimitMin)
	assert.NotEmpty(t, resp.Child.ID)

	// Gamification state created alongside the profile.
	require.Len(t, gam.calls, 1)
	assert.Equal(t, resp.Child.ID, gam.calls[0])
}

func TestCreateChild_Validation(t *testing.T) {
	store := NewMemoryStore()
	r := setupRouter(store, nil, "usr_parent", "PARENT")

	tests := []struct {
		name string
		body gin.H
	}{
		{"missing name", gin.H{"age": 9}},
		{"age too low", gin.H{"name": "Mia", "age": 2}},
		{"age too high", gin.H{"name": "Mia", "age": 18}},
		{"limit too low", gin.H{"name": "Mia", "age": 9, "dailyLimitMin": 5}},
		{"limit too high", gin.H{"name": "Mia", "age": 9, "dailyLimitMin": 2000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(r, http.MethodPost, "/v1/children", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestListChildren(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, newChild("chd_1", "usr_parent", "Mia")))
	require.NoError(t, store.Create(ctx, newChild("chd_2", "usr_other", "Leo")))

	r := setupRouter(store, nil, "usr_parent", "PARENT")
	w := doJSON(r, http.MethodGet, "/v1/children", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Children []*Child `json:"children"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Children, 1)
	assert.Equal(t, "chd_1", resp.Children[0].ID)
}

func TestListChildren_EmptyIsArray(t *testing.T) {
	r := setupRouter(NewMemoryStore(), nil, "usr_parent", "PARENT")
	w := doJSON(r, http.MethodGet, "/v1/children", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"children":[]`)
}

func TestGetChild_Ownership(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Create(context.Background(), newChild("chd_1", "usr_parent", "Mia")))

	t.Run("owner sees child", func(t *testing.T) {
		r := setupRouter(store, nil, "usr_parent", "PARENT")
		w := doJSON(r, http.MethodGet, "/v1/children/chd_1", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("stranger gets 404", func(t *testing.T) {
		r := setupRouter(store, nil, "usr_stranger", "PARENT")
		w := doJSON(r, http.MethodGet, "/v1/children/chd_1", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("admin sees any child", func(t *testing.T) {
		r := setupRouter(store, nil, "usr_admin", "ADMIN")
		w := doJSON(r, http.MethodGet, "/v1/children/chd_1", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestUpdateChild(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Create(context.Background(), newChild("chd_1", "usr_parent", "Mia")))
	r := setupRouter(store, nil, "usr_parent", "PARENT")

	w := doJSON(r, http.MethodPut, "/v1/children/chd_1", gin.H{
		"name":          "Mia R",
		"dailyLimitMin": 90,
	})
	require.Equal(t, http.StatusOK, w.Code)

	got, err := store.Get(context.Background(), "chd_1")
	require.NoError(t, err)
	assert.Equal(t, "Mia R", got.Name)
	assert.Equal(t, int64(90), got.DailyLimitMin)
	// Untouched fields survive a partial update.
	assert.Equal(t, 10, got.Age)
}

func TestUpdateChild_InvalidAge(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Create(context.Background(), newChild("chd_1", "usr_parent", "Mia")))
	r := setupRouter(store, nil, "usr_parent", "PARENT")

	w := doJSON(r, http.MethodPut, "/v1/children/chd_1", gin.H{"age": 25})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteChild(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Create(context.Background(), newChild("chd_1", "usr_parent", "Mia")))
	r := setupRouter(store, nil, "usr_parent", "PARENT")

	w := doJSON(r, http.MethodDelete, "/v1/children/chd_1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	_, err := store.Get(context.Background(), "chd_1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteChild_NotFound(t *testing.T) {
	r := setupRouter(NewMemoryStore(), nil, "usr_parent", "PARENT")
	w := doJSON(r, http.MethodDelete, "/v1/children/chd_missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
