package screentime

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/neuronest/guardian/internal/alerts"
	"github.com/neuronest/guardian/internal/children"
	"github.com/neuronest/guardian/internal/idgen"
	"github.com/neuronest/guardian/internal/logging"
	"github.com/neuronest/guardian/internal/metrics"
	"github.com/neuronest/guardian/internal/realtime"
	"github.com/neuronest/guardian/internal/validation"
)

// Handler provides HTTP endpoints for usage ingestion and summaries.
type Handler struct {
	store    Store
	children children.Store
	emitter  *alerts.Emitter
	hub      *realtime.Hub
}

// NewHandler creates a screen-time handler. emitter and hub may be nil.
func NewHandler(store Store, childStore children.Store, emitter *alerts.Emitter, hub *realtime.Hub) *Handler {
	return &Handler{store: store, children: childStore, emitter: emitter, hub: hub}
}

// RegisterRoutes sets up screen-time routes. The group must carry auth
// middleware.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/screen-time/log", h.LogUsage)
	r.GET("/screen-time/daily/:childId", h.DailySummary)
	r.GET("/screen-time/weekly/:childId", h.WeeklySummary)
}

// LogUsageRequest is the payload for reporting a usage event.
// Date defaults to today and Hour to the current hour when omitted.
type LogUsageRequest struct {
	ChildID         string `json:"childId" binding:"required"`
	AppName         string `json:"appName" binding:"required"`
	Category        string `json:"category"`
	DurationMinutes int64  `json:"durationMinutes" binding:"required"`
	Date            string `json:"date"`
	Hour            *int   `json:"hour"`
}

// LogUsage handles POST /screen-time/log.
func (h *Handler) LogUsage(c *gin.Context) {
	var req LogUsageRequest
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

	now := time.Now()
	date := req.Date
	if date == "" {
		date = now.Format("2006-01-02")
	}
	hour := now.Hour()
	if req.Hour != nil {
		hour = *req.Hour
	}

	if errs := validation.Validate(
		validation.PositiveInt("durationMinutes", int(req.DurationMinutes)),
		validation.ValidHour("hour", hour),
		validation.ValidDate("date", date),
		validation.MaxLength("appName", req.AppName, 100),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_failed",
			"message": errs.Error(),
			"details": errs,
		})
		return
	}

	ctx := c.Request.Context()

	// Total before the insert decides whether this event crosses the
	// daily limit; the limit alert fires once per day.
	before, err := h.store.TotalForDay(ctx, child.ID, date)
	if err != nil {
		logging.L(ctx).Error("failed to read daily total", "child", child.ID, "error", err)
		before = 0
	}

	log := &Log{
		ID:              idgen.WithPrefix("log_"),
		ChildID:         child.ID,
		AppName:         validation.SanitizeString(req.AppName, 100),
		Category:        validation.NormalizeCategory(req.Category),
		DurationMinutes: req.DurationMinutes,
		Date:            date,
		Hour:            hour,
		CreatedAt:       now,
	}

	if err := h.store.Create(ctx, log); err != nil {
		logging.L(ctx).Error("failed to store screen time log", "child", child.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "create_failed",
			"message": "Failed to record screen time",
		})
		return
	}

	metrics.ScreenTimeLogsTotal.WithLabelValues(log.Category).Inc()

	total := before + log.DurationMinutes
	if h.hub != nil {
		h.hub.BroadcastUsage(map[string]interface{}{
			"childId":      child.ID,
			"appName":      log.AppName,
			"category":     log.Category,
			"minutes":      log.DurationMinutes,
			"totalToday":   total,
			"dailyLimit":   child.DailyLimitMin,
			"limitReached": total > child.DailyLimitMin,
		})
	}

	limitExceeded := total > child.DailyLimitMin
	if limitExceeded && before <= child.DailyLimitMin && h.emitter != nil {
		h.emitter.Emit(ctx, &alerts.Alert{
			ChildID:  child.ID,
			UserID:   child.ParentID,
			Type:     alerts.TypeScreenTimeLimit,
			Severity: alerts.SeverityWarning,
			Title:    "Screen Time Limit Exceeded",
			Message: fmt.Sprintf("%s has used %d minutes today, over the %d minute daily limit.",
				child.Name, total, child.DailyLimitMin),
			Metadata: map[string]interface{}{
				"totalMinutes": total,
				"dailyLimit":   child.DailyLimitMin,
				"date":         date,
			},
		})
	}

	c.JSON(http.StatusCreated, gin.H{
		"log":           log,
		"totalToday":    total,
		"dailyLimit":    child.DailyLimitMin,
		"limitExceeded": limitExceeded,
	})
}

// DailySummary handles GET /screen-time/daily/:childId.
func (h *Handler) DailySummary(c *gin.Context) {
	child, ok := h.authorizedChild(c, c.Param("childId"))
	if !ok {
		return
	}

	date := c.Query("date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	if errs := validation.Validate(validation.ValidDate("date", date)); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_failed",
			"message": errs.Error(),
		})
		return
	}

	logs, err := h.store.ListForDay(c.Request.Context(), child.ID, date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "Failed to load screen time",
		})
		return
	}

	summary := SummarizeDay(date, logs)
	c.JSON(http.StatusOK, gin.H{
		"summary":    summary,
		"dailyLimit": child.DailyLimitMin,
	})
}

// WeeklySummary handles GET /screen-time/weekly/:childId.
func (h *Handler) WeeklySummary(c *gin.Context) {
	child, ok := h.authorizedChild(c, c.Param("childId"))
	if !ok {
		return
	}

	end := time.Now().Format("2006-01-02")
	dates := WindowDates(end, 7)

	logs, err := h.store.ListSince(c.Request.Context(), child.ID, dates[0])
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "Failed to load screen time",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": SummarizeWeek(dates, logs)})
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
