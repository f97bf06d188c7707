package auth

import (
	"bytes"
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
	h := NewHandler(store, testTokenManager(), true)
	h.RegisterRoutes(r.Group("/v1"))
	return r
}

func doJSON(r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(body)
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func register(t *testing.T, r *gin.Engine, email string) string {
	t.Helper()
	w := doJSON(r, "/v1/auth/register", gin.H{
		"email":    email,
		"password": "hunter2hunter2",
		"name":     "Pat Parent",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		OTP string `json:"otp"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.OTP, 6)
	return resp.OTP
}

func TestRegisterVerifyLoginFlow(t *testing.T) {
	store := NewMemoryStore()
	r := setupRouter(store)

	otp := register(t, r, "pat@example.com")

	// Login before verification is rejected.
	w := doJSON(r, "/v1/auth/login", gin.H{
		"email": "pat@example.com", "password": "hunter2hunter2",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "not_verified")

	// Verify with the issued code.
	w = doJSON(r, "/v1/auth/verify-otp", gin.H{
		"email": "pat@example.com", "code": otp,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var verifyResp struct {
		User         User   `json:"user"`
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &verifyResp))
	assert.True(t, verifyResp.User.IsVerified)
	assert.NotEmpty(t, verifyResp.AccessToken)

	// Login now succeeds.
	w = doJSON(r, "/v1/auth/login", gin.H{
		"email": "pat@example.com", "password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusOK, w.Code)

	// Refresh the session.
	w = doJSON(r, "/v1/auth/refresh", gin.H{
		"refreshToken": verifyResp.RefreshToken,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "accessToken")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	r := setupRouter(NewMemoryStore())
	register(t, r, "pat@example.com")

	w := doJSON(r, "/v1/auth/register", gin.H{
		"email":    "PAT@example.com",
		"password": "hunter2hunter2",
		"name":     "Other Pat",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "email_taken")
}

func TestRegister_Validation(t *testing.T) {
	r := setupRouter(NewMemoryStore())

	tests := []struct {
		name string
		body gin.H
	}{
		{"bad email", gin.H{"email": "not-an-email", "password": "hunter2hunter2", "name": "P"}},
		{"short password", gin.H{"email": "p@example.com", "password": "short", "name": "P"}},
		{"missing name", gin.H{"email": "p@example.com", "password": "hunter2hunter2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(r, "/v1/auth/register", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	store := NewMemoryStore()
	r := setupRouter(store)
	otp := register(t, r, "pat@example.com")
	doJSON(r, "/v1/auth/verify-otp", gin.H{"email": "pat@example.com", "code": otp})

	w := doJSON(r, "/v1/auth/login", gin.H{
		"email": "pat@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_credentials")
}

func TestLogin_UnknownEmailSameError(t *testing.T) {
	r := setupRouter(NewMemoryStore())
	w := doJSON(r, "/v1/auth/login", gin.H{
		"email": "ghost@example.com", "password": "whatever123",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_credentials")
}

func TestVerifyOTP_WrongCode(t *testing.T) {
	r := setupRouter(NewMemoryStore())
	register(t, r, "pat@example.com")

	w := doJSON(r, "/v1/auth/verify-otp", gin.H{
		"email": "pat@example.com", "code": "000000",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVerifyOTP_Expired(t *testing.T) {
	store := NewMemoryStore()
	r := setupRouter(store)
	otp := register(t, r, "pat@example.com")

	user, err := store.GetByEmail(context.Background(), "pat@example.com")
	require.NoError(t, err)
	past := time.Now().Add(-time.Minute)
	user.OTPExpiry = &past
	require.NoError(t, store.Update(context.Background(), user))

	w := doJSON(r, "/v1/auth/verify-otp", gin.H{
		"email": "pat@example.com", "code": otp,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestResendOTP_ReplacesCode(t *testing.T) {
	store := NewMemoryStore()
	r := setupRouter(store)
	oldOTP := register(t, r, "pat@example.com")

	w := doJSON(r, "/v1/auth/resend-otp", gin.H{"email": "pat@example.com"})
	require.Equal(t, http.StatusOK, w.Code)

	user, err := store.GetByEmail(context.Background(), "pat@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, user.OTPCode)

	// The old code may collide by chance only 1 in 10^6; treat equality
	// as failure.
	assert.NotEqual(t, oldOTP, user.OTPCode)
}

func TestResendOTP_UnknownEmailDoesNotLeak(t *testing.T) {
	r := setupRouter(NewMemoryStore())
	w := doJSON(r, "/v1/auth/resend-otp", gin.H{"email": "ghost@example.com"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"otpSent":true`)
}

func TestRefresh_InvalidToken(t *testing.T) {
	r := setupRouter(NewMemoryStore())
	w := doJSON(r, "/v1/auth/refresh", gin.H{"refreshToken": "garbage"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPasswordHashNeverSerialized(t *testing.T) {
	store := NewMemoryStore()
	r := setupRouter(store)
	register(t, r, "pat@example.com")

	user, err := store.GetByEmail(context.Background(), "pat@example.com")
	require.NoError(t, err)

	data, err := json.Marshal(user)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "passwordHash")
	assert.NotContains(t, string(data), user.PasswordHash)
}
