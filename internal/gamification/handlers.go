package gamification

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/neuronest/guardian/internal/alerts"
	"github.com/neuronest/guardian/internal/children"
	"github.com/neuronest/guardian/internal/logging"
	"github.com/neuronest/guardian/internal/metrics"
	"github.com/neuronest/guardian/internal/realtime"
	"github.com/neuronest/guardian/internal/screentime"
	"github.com/neuronest/guardian/internal/validation"
	"github.com/neuronest/guardian/internal/webhooks"
)

// MaxRewardPoints caps a single manual reward.
const MaxRewardPoints = 10000

// Handler provides HTTP endpoints for progression state and rewards.
type Handler struct {
	store    Store
	children children.Store
	usage    screentime.Store
	emitter  *alerts.Emitter
	webhooks *webhooks.Emitter
	hub      *realtime.Hub
}

// NewHandler creates a gamification handler. emitter, webhooks, and hub
// may be nil.
func NewHandler(store Store, childStore children.Store, usage screentime.Store,
	emitter *alerts.Emitter, wh *webhooks.Emitter, hub *realtime.Hub) *Handler {
	return &Handler{
		store:    store,
		children: childStore,
		usage:    usage,
		emitter:  emitter,
		webhooks: wh,
		hub:      hub,
	}
}

// RegisterRoutes sets up gamification routes. The group must carry auth
// middleware.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/children/:childId/gamification", h.GetState)
	r.POST("/children/:childId/gamification/streak", h.EvaluateStreak)
	r.POST("/gamification/reward", h.Reward)
}

// GetState handles GET /children/:childId/gamification.
func (h *Handler) GetState(c *gin.Context) {
	child, ok := h.authorizedChild(c, c.Param("childId"))
	if !ok {
		return
	}

	state, err := h.store.GetOrCreate(c.Request.Context(), child.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "Failed to load gamification state",
		})
		return
	}

	unlocked := make([]BadgeDefinition, 0, len(state.Badges))
	for _, id := range state.Badges {
		if b, ok := BadgeByID(id); ok {
			unlocked = append(unlocked, b)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"state":    state,
		"progress": Progress(state),
		"badges":   unlocked,
		"catalog":  Catalog,
	})
}

// EvaluateStreak handles POST /children/:childId/gamification/streak.
// It scores today's usage against the child's daily limit.
func (h *Handler) EvaluateStreak(c *gin.Context) {
	child, ok := h.authorizedChild(c, c.Param("childId"))
	if !ok {
		return
	}

	ctx := c.Request.Context()
	now := time.Now()
	today := now.Format("2006-01-02")

	minutesToday, err := h.usage.TotalForDay(ctx, child.ID, today)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "Failed to load today's screen time",
		})
		return
	}

	// A day only counts once: repeated calls on the same day return the
	// current state unchanged.
	alreadyEvaluated := false
	var res StreakResult
	state, err := h.store.Update(ctx, child.ID, func(s *State) error {
		if s.LastActiveDate != nil && s.LastActiveDate.Format("2006-01-02") == today {
			alreadyEvaluated = true
			res = StreakResult{State: s, UnderLimit: minutesToday <= child.DailyLimitMin}
			return nil
		}
		res = UpdateStreak(s, minutesToday, child.DailyLimitMin, now)
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "update_failed",
			"message": "Failed to update streak",
		})
		return
	}
	res.State = state

	if !alreadyEvaluated {
		if res.BonusPoints > 0 {
			metrics.PointsAwardedTotal.Add(float64(res.BonusPoints))
		}
		h.announceBadges(c, child, res.NewBadges)

		logging.L(ctx).Info("streak evaluated",
			"child", child.ID, "underLimit", res.UnderLimit,
			"streak", state.Streak, "bonus", res.BonusPoints)
	}

	c.JSON(http.StatusOK, gin.H{
		"result":           res,
		"progress":         Progress(state),
		"alreadyEvaluated": alreadyEvaluated,
	})
}

// RewardRequest is the payload for a manual point award.
type RewardRequest struct {
	ChildID string `json:"childId" binding:"required"`
	Points  int64  `json:"points" binding:"required"`
	Reason  string `json:"reason"`
}

// Reward handles POST /gamification/reward.
func (h *Handler) Reward(c *gin.Context) {
	var req RewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	if errs := validation.Validate(
		validation.IntRange("points", int(req.Points), 1, MaxRewardPoints),
		validation.MaxLength("reason", req.Reason, 200),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_failed",
			"message": errs.Error(),
			"details": errs,
		})
		return
	}

	child, ok := h.authorizedChild(c, req.ChildID)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	now := time.Now()
	reason := validation.SanitizeString(req.Reason, 200)

	var res AwardResult
	state, err := h.store.Update(ctx, child.ID, func(s *State) error {
		res = Award(s, req.Points, reason, now)
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "update_failed",
			"message": "Failed to award points",
		})
		return
	}
	res.State = state

	metrics.PointsAwardedTotal.Add(float64(req.Points))
	h.announceBadges(c, child, res.NewBadges)
	if res.LeveledUp {
		h.announceLevelUp(c, child, state.Level)
	}

	logging.L(ctx).Info("points awarded",
		"child", child.ID, "points", req.Points, "reason", reason, "level", state.Level)

	c.JSON(http.StatusOK, gin.H{
		"result":   res,
		"progress": Progress(state),
	})
}

// announceBadges fans badge unlocks out to alerts, webhooks, the
// realtime hub, and metrics.
func (h *Handler) announceBadges(c *gin.Context, child *children.Child, badges []BadgeDefinition) {
	ctx := c.Request.Context()
	for _, b := range badges {
		metrics.BadgeUnlocksTotal.WithLabelValues(b.ID).Inc()

		if h.emitter != nil {
			h.emitter.Emit(ctx, &alerts.Alert{
				ChildID:  child.ID,
				UserID:   child.ParentID,
				Type:     alerts.TypeBadgeUnlock,
				Severity: alerts.SeverityInfo,
				Title:    fmt.Sprintf("Badge Unlocked: %s", b.Name),
				Message:  fmt.Sprintf("%s earned the %s badge. %s", child.Name, b.Name, b.Description),
				Metadata: map[string]interface{}{"badgeId": b.ID},
			})
		}
		if h.webhooks != nil {
			h.webhooks.EmitBadgeUnlocked(child.ParentID, child.ID, b.ID, b.Name)
		}
		if h.hub != nil {
			h.hub.Broadcast(&realtime.Event{
				Type:      realtime.EventBadgeUnlocked,
				Timestamp: time.Now(),
				Data: map[string]interface{}{
					"childId":   child.ID,
					"badgeId":   b.ID,
					"badgeName": b.Name,
				},
			})
		}
	}
}

// announceLevelUp fans a level-up out to alerts, webhooks, the realtime
// hub, and metrics.
func (h *Handler) announceLevelUp(c *gin.Context, child *children.Child, level int) {
	ctx := c.Request.Context()
	metrics.LevelUpsTotal.Inc()

	if h.emitter != nil {
		h.emitter.Emit(ctx, &alerts.Alert{
			ChildID:  child.ID,
			UserID:   child.ParentID,
			Type:     alerts.TypeLevelUp,
			Severity: alerts.SeverityInfo,
			Title:    "Level Up!",
			Message:  fmt.Sprintf("%s reached level %d.", child.Name, level),
			Metadata: map[string]interface{}{"level": level},
		})
	}
	if h.webhooks != nil {
		h.webhooks.EmitLevelUp(child.ParentID, child.ID, level)
	}
	if h.hub != nil {
		h.hub.Broadcast(&realtime.Event{
			Type:      realtime.EventLevelUp,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"childId": child.ID,
				"level":   level,
			},
		})
	}
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
