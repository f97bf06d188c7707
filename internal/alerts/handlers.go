package alerts

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/neuronest/guardian/internal/pagination"
)

// Handler provides HTTP endpoints for reading and acknowledging alerts.
type Handler struct {
	store Store
}

// NewHandler creates an alert handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes sets up alert routes. The group must carry auth middleware.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/alerts", h.ListAlerts)
	r.PUT("/alerts/:alertId/read", h.MarkRead)
	r.PUT("/alerts/read-all", h.MarkAllRead)
}

// ListAlerts handles GET /alerts with cursor pagination.
func (h *Handler) ListAlerts(c *gin.Context) {
	userID := c.GetString("userID")

	limit := pagination.ParseLimit(c.Query("limit"))
	cursor, err := pagination.Decode(c.Query("cursor"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_cursor",
			"message": "Invalid pagination cursor",
		})
		return
	}

	q := ListQuery{
		UserID:     userID,
		ChildID:    c.Query("childId"),
		UnreadOnly: c.Query("unread") == "true",
		Limit:      limit + 1, // fetch one extra to detect has_more
		Cursor:     cursor,
	}

	items, err := h.store.List(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "list_failed",
			"message": "Failed to list alerts",
		})
		return
	}

	page, next, hasMore := pagination.ComputePage(items, limit, func(a *Alert) (time.Time, string) {
		return a.CreatedAt, a.ID
	})

	unread, err := h.store.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		unread = 0
	}

	if page == nil {
		page = []*Alert{}
	}
	c.JSON(http.StatusOK, gin.H{
		"alerts":      page,
		"unreadCount": unread,
		"nextCursor":  next,
		"hasMore":     hasMore,
	})
}

// MarkRead handles PUT /alerts/:alertId/read.
func (h *Handler) MarkRead(c *gin.Context) {
	userID := c.GetString("userID")
	alertID := c.Param("alertId")

	err := h.store.MarkRead(c.Request.Context(), alertID, userID)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "Alert not found",
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "update_failed",
			"message": "Failed to mark alert as read",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "read"})
}

// MarkAllRead handles PUT /alerts/read-all.
func (h *Handler) MarkAllRead(c *gin.Context) {
	userID := c.GetString("userID")

	n, err := h.store.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "update_failed",
			"message": "Failed to mark alerts as read",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "read", "updated": n})
}
