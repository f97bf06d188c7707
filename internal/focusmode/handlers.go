package focusmode

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/neuronest/guardian/internal/children"
	"github.com/neuronest/guardian/internal/idgen"
	"github.com/neuronest/guardian/internal/validation"
)

// Handler provides HTTP endpoints for focus session management.
type Handler struct {
	store    Store
	children children.Store
}

// NewHandler creates a focus mode handler.
func NewHandler(store Store, childStore children.Store) *Handler {
	return &Handler{store: store, children: childStore}
}

// RegisterRoutes sets up focus mode routes. The group must carry auth
// middleware.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/focus-mode", h.CreateSession)
	r.GET("/focus-mode/:childId", h.ListSessions)
	r.GET("/focus-mode/:childId/active", h.ActiveSessions)
	r.PUT("/focus-mode/sessions/:sessionId/toggle", h.ToggleSession)
	r.DELETE("/focus-mode/sessions/:sessionId", h.DeleteSession)
}

// CreateSessionRequest is the payload for creating a blocking window.
type CreateSessionRequest struct {
	ChildID     string   `json:"childId" binding:"required"`
	Name        string   `json:"name" binding:"required"`
	Schedule    Schedule `json:"schedule" binding:"required"`
	BlockedApps []string `json:"blockedApps"`
}

// CreateSession handles POST /focus-mode.
func (h *Handler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	child, ok := h.authorizedChild(c, req.ChildID)
	if !ok {
		return
	}

	if errs := validateSchedule(req.Schedule); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_failed",
			"message": errs.Error(),
			"details": errs,
		})
		return
	}

	apps := req.BlockedApps
	if apps == nil {
		apps = []string{}
	}
	session := &Session{
		ID:          idgen.WithPrefix("fcs_"),
		ChildID:     child.ID,
		Name:        validation.SanitizeString(req.Name, 100),
		Schedule:    req.Schedule,
		BlockedApps: apps,
		IsActive:    true,
		CreatedAt:   time.Now(),
	}

	if err := h.store.Create(c.Request.Context(), session); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "create_failed",
			"message": "Failed to create focus session",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"session": session})
}

// ListSessions handles GET /focus-mode/:childId.
func (h *Handler) ListSessions(c *gin.Context) {
	child, ok := h.authorizedChild(c, c.Param("childId"))
	if !ok {
		return
	}

	list, err := h.store.ListByChild(c.Request.Context(), child.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "Failed to list focus sessions",
		})
		return
	}
	if list == nil {
		list = []*Session{}
	}

	c.JSON(http.StatusOK, gin.H{"sessions": list})
}

// ActiveSessions handles GET /focus-mode/:childId/active. It returns
// the sessions whose window covers now plus the union of their blocked
// apps, for device-side enforcement.
func (h *Handler) ActiveSessions(c *gin.Context) {
	child, ok := h.authorizedChild(c, c.Param("childId"))
	if !ok {
		return
	}

	list, err := h.store.ListByChild(c.Request.Context(), child.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "Failed to list focus sessions",
		})
		return
	}

	now := time.Now()
	active := []*Session{}
	blocked := []string{}
	seen := make(map[string]bool)
	for _, sess := range list {
		if !sess.ActiveAt(now) {
			continue
		}
		active = append(active, sess)
		for _, app := range sess.BlockedApps {
			if !seen[app] {
				seen[app] = true
				blocked = append(blocked, app)
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"active":      active,
		"blockedApps": blocked,
		"focusActive": len(active) > 0,
	})
}

// ToggleSession handles PUT /focus-mode/sessions/:sessionId/toggle.
func (h *Handler) ToggleSession(c *gin.Context) {
	session, ok := h.authorizedSession(c)
	if !ok {
		return
	}

	session.IsActive = !session.IsActive
	if err := h.store.Update(c.Request.Context(), session); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "update_failed",
			"message": "Failed to toggle focus session",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": session})
}

// DeleteSession handles DELETE /focus-mode/sessions/:sessionId.
func (h *Handler) DeleteSession(c *gin.Context) {
	session, ok := h.authorizedSession(c)
	if !ok {
		return
	}

	if err := h.store.Delete(c.Request.Context(), session.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "delete_failed",
			"message": "Failed to delete focus session",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func validateSchedule(s Schedule) validation.ValidationErrors {
	errs := validation.Validate(
		validation.ValidHour("startHour", s.StartHour),
		validation.ValidHour("endHour", s.EndHour),
		validation.IntRange("startMinute", s.StartMinute, 0, 59),
		validation.IntRange("endMinute", s.EndMinute, 0, 59),
	)
	if len(s.Days) == 0 {
		errs = append(errs, validation.ValidationError{
			Field: "days", Message: "is required",
		})
	}
	for _, d := range s.Days {
		if d < 0 || d > 6 {
			errs = append(errs, validation.ValidationError{
				Field: "days", Message: "is out of range",
			})
			break
		}
	}
	return errs
}

// authorizedSession loads the session from the :sessionId param and
// checks ownership of its child.
func (h *Handler) authorizedSession(c *gin.Context) (*Session, bool) {
	session, err := h.store.Get(c.Request.Context(), c.Param("sessionId"))
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "Focus session not found",
		})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "lookup_failed",
			"message": "Failed to load focus session",
		})
		return nil, false
	}

	if _, ok := h.authorizedChild(c, session.ChildID); !ok {
		return nil, false
	}
	return session, true
}

func (h *Handler) authorizedChild(c *gin.Context, childID string) (*children.Child, bool) {
	userID := c.GetString("userID")
	isAdmin := c.GetString("role") == "ADMIN"

	child, err := children.Authorize(c.Request.Context(), h.children, childID, userID, isAdmin)
	if errors.Is(err, children.ErrNotFound) {
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
