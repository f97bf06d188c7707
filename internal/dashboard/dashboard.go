// Package dashboard aggregates the per-child monitoring data into one
// parent overview payload.
package dashboard

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/neuronest/guardian/internal/alerts"
	"github.com/neuronest/guardian/internal/children"
	"github.com/neuronest/guardian/internal/gamification"
	"github.com/neuronest/guardian/internal/logging"
	"github.com/neuronest/guardian/internal/risk"
	"github.com/neuronest/guardian/internal/screentime"
)

// recentAlertCount is how many alerts the overview shows.
const recentAlertCount = 5

// trendLength is how many assessment scores feed the trend line.
const trendLength = 7

// ChildOverview is one child's slice of the dashboard.
type ChildOverview struct {
	Child            *children.Child             `json:"child"`
	TodayMinutes     int64                       `json:"todayMinutes"`
	WeeklyMinutes    int64                       `json:"weeklyMinutes"`
	LatestAssessment *risk.Assessment            `json:"latestAssessment,omitempty"`
	ScoreTrend       []float64                   `json:"scoreTrend"`
	Gamification     *gamification.LevelProgress `json:"gamification,omitempty"`
	Streak           int                         `json:"streak"`
	BadgeCount       int                         `json:"badgeCount"`
}

// Summary rolls the family up into headline numbers.
type Summary struct {
	TotalChildren     int     `json:"totalChildren"`
	HighRiskCount     int     `json:"highRiskCount"`
	AverageScreenTime float64 `json:"averageScreenTime"`
}

// Handler serves the parent overview.
type Handler struct {
	children children.Store
	usage    screentime.Store
	risks    risk.Store
	gam      gamification.Store
	alerts   alerts.Store
}

// NewHandler creates a dashboard handler.
func NewHandler(childStore children.Store, usage screentime.Store, risks risk.Store,
	gam gamification.Store, alertStore alerts.Store) *Handler {
	return &Handler{
		children: childStore,
		usage:    usage,
		risks:    risks,
		gam:      gam,
		alerts:   alertStore,
	}
}

// RegisterRoutes sets up the dashboard route. The group must carry auth
// middleware.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/dashboard", h.Overview)
}

// Overview handles GET /dashboard.
func (h *Handler) Overview(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.GetString("userID")
	now := time.Now()

	kids, err := h.children.ListByParent(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "Failed to load children",
		})
		return
	}

	overviews := make([]*ChildOverview, 0, len(kids))
	var todayTotal int64
	highRisk := 0
	for _, child := range kids {
		ov, err := h.childOverview(ctx, child, now)
		if err != nil {
			logging.L(ctx).Error("failed to build child overview",
				"child", child.ID, "error", err)
			continue
		}
		overviews = append(overviews, ov)
		todayTotal += ov.TodayMinutes
		if ov.LatestAssessment != nil &&
			(ov.LatestAssessment.Tier == risk.TierHigh || ov.LatestAssessment.Tier == risk.TierCritical) {
			highRisk++
		}
	}

	recent, err := h.alerts.List(ctx, alerts.ListQuery{
		UserID: userID,
		Limit:  recentAlertCount,
	})
	if err != nil {
		recent = nil
	}
	if recent == nil {
		recent = []*alerts.Alert{}
	}
	unread, err := h.alerts.UnreadCount(ctx, userID)
	if err != nil {
		unread = 0
	}

	summary := Summary{TotalChildren: len(overviews), HighRiskCount: highRisk}
	if len(overviews) > 0 {
		summary.AverageScreenTime = float64(todayTotal) / float64(len(overviews))
	}

	c.JSON(http.StatusOK, gin.H{
		"children":     overviews,
		"recentAlerts": recent,
		"unreadCount":  unread,
		"summary":      summary,
	})
}

func (h *Handler) childOverview(ctx context.Context, child *children.Child, now time.Time) (*ChildOverview, error) {
	today := now.Format("2006-01-02")

	todayMinutes, err := h.usage.TotalForDay(ctx, child.ID, today)
	if err != nil {
		return nil, err
	}

	weekLogs, err := h.usage.ListSince(ctx, child.ID, risk.WindowStart(now))
	if err != nil {
		return nil, err
	}
	var weeklyMinutes int64
	for _, l := range weekLogs {
		weeklyMinutes += l.DurationMinutes
	}

	ov := &ChildOverview{
		Child:         child,
		TodayMinutes:  todayMinutes,
		WeeklyMinutes: weeklyMinutes,
		ScoreTrend:    []float64{},
	}

	latest, err := h.risks.Latest(ctx, child.ID)
	if err != nil && !errors.Is(err, risk.ErrNotFound) {
		return nil, err
	}
	if latest != nil {
		ov.LatestAssessment = latest
		history, err := h.risks.ListByChild(ctx, child.ID, trendLength)
		if err != nil {
			return nil, err
		}
		// Oldest first for charting.
		for i := len(history) - 1; i >= 0; i-- {
			ov.ScoreTrend = append(ov.ScoreTrend, history[i].Score)
		}
	}

	state, err := h.gam.GetOrCreate(ctx, child.ID)
	if err != nil {
		return nil, err
	}
	progress := gamification.Progress(state)
	ov.Gamification = &progress
	ov.Streak = state.Streak
	ov.BadgeCount = len(state.Badges)

	return ov, nil
}
