package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/neuronest/guardian/internal/idgen"
	"github.com/neuronest/guardian/internal/logging"
	"github.com/neuronest/guardian/internal/validation"
)

// MinPasswordLength for new accounts.
const MinPasswordLength = 8

// Handler provides authentication endpoints. These routes are public;
// everything else sits behind Middleware.
type Handler struct {
	store   Store
	tokens  *TokenManager
	devMode bool
}

// NewHandler creates an auth handler. devMode echoes OTP codes in
// responses so local clients can verify without a mail provider.
func NewHandler(store Store, tokens *TokenManager, devMode bool) *Handler {
	return &Handler{store: store, tokens: tokens, devMode: devMode}
}

// RegisterRoutes sets up public auth routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	r.POST("/auth/verify-otp", h.VerifyOTP)
	r.POST("/auth/resend-otp", h.ResendOTP)
	r.POST("/auth/refresh", h.Refresh)
}

// RegisterRequest is the payload for account creation.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Phone    string `json:"phone"`
}

// Register handles POST /auth/register. New accounts start unverified
// with a pending OTP code.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	if errs := validation.Validate(
		validation.ValidEmail("email", req.Email),
		validation.MaxLength("name", req.Name, 100),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_failed",
			"message": errs.Error(),
			"details": errs,
		})
		return
	}
	if len(req.Password) < MinPasswordLength {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_failed",
			"message": "password: must be at least 8 characters",
		})
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "register_failed",
			"message": "Failed to create account",
		})
		return
	}

	now := time.Now()
	expiry := now.Add(OTPTTL)
	user := &User{
		ID:           idgen.WithPrefix("usr_"),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Name:         validation.SanitizeString(req.Name, 100),
		Phone:        validation.SanitizeString(req.Phone, 30),
		Role:         RoleParent,
		IsActive:     true,
		OTPCode:      idgen.OTP(),
		OTPExpiry:    &expiry,
		CreatedAt:    now,
	}

	if err := h.store.Create(c.Request.Context(), user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{
				"error":   "email_taken",
				"message": "An account with this email already exists",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "register_failed",
			"message": "Failed to create account",
		})
		return
	}

	// Delivery over SMS/email is out of scope; the code is logged for
	// operators and echoed in development.
	logging.L(c.Request.Context()).Info("otp issued", "user", user.ID)

	resp := gin.H{"user": user, "otpSent": true}
	if h.devMode {
		resp["otp"] = user.OTPCode
	}
	c.JSON(http.StatusCreated, resp)
}

// credentialsRequest is shared by login.
type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	user, err := h.store.GetByEmail(c.Request.Context(), req.Email)
	if err != nil || !CheckPassword(user.PasswordHash, req.Password) {
		// Same response for unknown email and wrong password.
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "invalid_credentials",
			"message": "Invalid email or password",
		})
		return
	}

	if !user.IsActive {
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "account_disabled",
			"message": "This account has been disabled",
		})
		return
	}
	if !user.IsVerified {
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "not_verified",
			"message": "Verify your email before logging in",
		})
		return
	}

	h.respondWithTokens(c, user)
}

// otpRequest carries an email + code pair.
type otpRequest struct {
	Email string `json:"email" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

// VerifyOTP handles POST /auth/verify-otp. A valid code verifies the
// account and logs the user in.
func (h *Handler) VerifyOTP(c *gin.Context) {
	var req otpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	user, err := h.store.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "invalid_otp",
			"message": "Invalid or expired verification code",
		})
		return
	}

	expired := user.OTPExpiry == nil || time.Now().After(*user.OTPExpiry)
	if user.OTPCode == "" || user.OTPCode != req.Code || expired {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "invalid_otp",
			"message": "Invalid or expired verification code",
		})
		return
	}

	user.IsVerified = true
	user.OTPCode = ""
	user.OTPExpiry = nil
	if err := h.store.Update(c.Request.Context(), user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "verify_failed",
			"message": "Failed to verify account",
		})
		return
	}

	h.respondWithTokens(c, user)
}

// resendRequest carries just an email.
type resendRequest struct {
	Email string `json:"email" binding:"required"`
}

// ResendOTP handles POST /auth/resend-otp.
func (h *Handler) ResendOTP(c *gin.Context) {
	var req resendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	user, err := h.store.GetByEmail(c.Request.Context(), req.Email)
	if err != nil || user.IsVerified {
		// Do not reveal whether the email exists or is verified.
		c.JSON(http.StatusOK, gin.H{"otpSent": true})
		return
	}

	expiry := time.Now().Add(OTPTTL)
	user.OTPCode = idgen.OTP()
	user.OTPExpiry = &expiry
	if err := h.store.Update(c.Request.Context(), user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "resend_failed",
			"message": "Failed to resend verification code",
		})
		return
	}

	logging.L(c.Request.Context()).Info("otp reissued", "user", user.ID)

	resp := gin.H{"otpSent": true}
	if h.devMode {
		resp["otp"] = user.OTPCode
	}
	c.JSON(http.StatusOK, resp)
}

// refreshRequest carries a refresh token.
type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// Refresh handles POST /auth/refresh.
func (h *Handler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	claims, err := h.tokens.ParseRefreshToken(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "Invalid or expired refresh token",
		})
		return
	}

	user, err := h.store.Get(c.Request.Context(), claims.UserID)
	if err != nil || !user.IsActive {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "Account unavailable",
		})
		return
	}

	h.respondWithTokens(c, user)
}

func (h *Handler) respondWithTokens(c *gin.Context, user *User) {
	access, err := h.tokens.GenerateAccessToken(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "token_failed",
			"message": "Failed to issue tokens",
		})
		return
	}
	refresh, err := h.tokens.GenerateRefreshToken(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "token_failed",
			"message": "Failed to issue tokens",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":         user,
		"accessToken":  access,
		"refreshToken": refresh,
	})
}
