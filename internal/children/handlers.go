package children

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/neuronest/guardian/internal/idgen"
	"github.com/neuronest/guardian/internal/logging"
	"github.com/neuronest/guardian/internal/validation"
)

// Handler provides HTTP endpoints for child profile management.
type Handler struct {
	store Store
	gam   GamificationInitializer
}

// NewHandler creates a child handler. gam may be nil in tests.
func NewHandler(store Store, gam GamificationInitializer) *Handler {
	return &Handler{store: store, gam: gam}
}

// RegisterRoutes sets up child routes. The group must carry auth middleware.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/children", h.CreateChild)
	r.GET("/children", h.ListChildren)
	r.GET("/children/:childId", h.GetChild)
	r.PUT("/children/:childId", h.UpdateChild)
	r.DELETE("/children/:childId", h.DeleteChild)
}

// CreateChildRequest is the payload for registering a child.
type CreateChildRequest struct {
	Name          string `json:"name" binding:"required"`
	Age           int    `json:"age" binding:"required"`
	Avatar        string `json:"avatar"`
	DeviceID      string `json:"deviceId"`
	DailyLimitMin int64  `json:"dailyLimitMin"`
}

// CreateChild handles POST /children.
func (h *Handler) CreateChild(c *gin.Context) {
	userID := c.GetString("userID")

	var req CreateChildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	if errs := validation.Validate(
		validation.MaxLength("name", req.Name, 100),
		validation.IntRange("age", req.Age, MinAge, MaxAge),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_failed",
			"message": errs.Error(),
			"details": errs,
		})
		return
	}

	limit := req.DailyLimitMin
	if limit == 0 {
		limit = DefaultDailyLimit
	}
	if limit < MinDailyLimit || limit > MaxDailyLimit {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_failed",
			"message": "dailyLimitMin: is out of range",
		})
		return
	}

	now := time.Now()
	child := &Child{
		ID:            idgen.WithPrefix("chd_"),
		ParentID:      userID,
		Name:          validation.SanitizeString(req.Name, 100),
		Age:           req.Age,
		Avatar:        validation.SanitizeString(req.Avatar, 200),
		DeviceID:      validation.SanitizeString(req.DeviceID, 100),
		DailyLimitMin: limit,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := h.store.Create(c.Request.Context(), child); err != nil {
		logging.L(c.Request.Context()).Error("failed to create child", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "create_failed",
			"message": "Failed to create child profile",
		})
		return
	}

	// Progression state starts at zero the moment a child is registered.
	if h.gam != nil {
		if err := h.gam.EnsureState(c.Request.Context(), child.ID); err != nil {
			logging.L(c.Request.Context()).Warn("failed to init gamification state",
				"child", child.ID, "error", err)
		}
	}

	c.JSON(http.StatusCreated, gin.H{"child": child})
}

// ListChildren handles GET /children.
func (h *Handler) ListChildren(c *gin.Context) {
	userID := c.GetString("userID")

	list, err := h.store.ListByParent(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "list_failed",
			"message": "Failed to list children",
		})
		return
	}
	if list == nil {
		list = []*Child{}
	}

	c.JSON(http.StatusOK, gin.H{"children": list})
}

// GetChild handles GET /children/:childId.
func (h *Handler) GetChild(c *gin.Context) {
	child, ok := h.authorized(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"child": child})
}

// UpdateChildRequest is the payload for editing a child profile.
// Pointer fields distinguish absent from zero.
type UpdateChildRequest struct {
	Name          *string `json:"name"`
	Age           *int    `json:"age"`
	Avatar        *string `json:"avatar"`
	DeviceID      *string `json:"deviceId"`
	DailyLimitMin *int64  `json:"dailyLimitMin"`
}

// UpdateChild handles PUT /children/:childId.
func (h *Handler) UpdateChild(c *gin.Context) {
	child, ok := h.authorized(c)
	if !ok {
		return
	}

	var req UpdateChildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	if req.Name != nil {
		child.Name = validation.SanitizeString(*req.Name, 100)
	}
	if req.Age != nil {
		if *req.Age < MinAge || *req.Age > MaxAge {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "validation_failed",
				"message": "age: is out of range",
			})
			return
		}
		child.Age = *req.Age
	}
	if req.Avatar != nil {
		child.Avatar = validation.SanitizeString(*req.Avatar, 200)
	}
	if req.DeviceID != nil {
		child.DeviceID = validation.SanitizeString(*req.DeviceID, 100)
	}
	if req.DailyLimitMin != nil {
		if *req.DailyLimitMin < MinDailyLimit || *req.DailyLimitMin > MaxDailyLimit {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "validation_failed",
				"message": "dailyLimitMin: is out of range",
			})
			return
		}
		child.DailyLimitMin = *req.DailyLimitMin
	}
	child.UpdatedAt = time.Now()

	if err := h.store.Update(c.Request.Context(), child); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "update_failed",
			"message": "Failed to update child profile",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"child": child})
}

// DeleteChild handles DELETE /children/:childId.
func (h *Handler) DeleteChild(c *gin.Context) {
	child, ok := h.authorized(c)
	if !ok {
		return
	}

	if err := h.store.Delete(c.Request.Context(), child.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "delete_failed",
			"message": "Failed to delete child profile",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// authorized loads the child from the :childId param and enforces
// ownership. Writes the error response and returns ok=false on failure.
func (h *Handler) authorized(c *gin.Context) (*Child, bool) {
	userID := c.GetString("userID")
	isAdmin := c.GetString("role") == "ADMIN"

	child, err := Authorize(c.Request.Context(), h.store, c.Param("childId"), userID, isAdmin)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "Child not found",
		})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "lookup_failed",
			"message": "Failed to load child profile",
		})
		return nil, false
	}
	return child, true
}
