package risk

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/neuronest/guardian/internal/alerts"
	"github.com/neuronest/guardian/internal/children"
	"github.com/neuronest/guardian/internal/idgen"
	"github.com/neuronest/guardian/internal/logging"
	"github.com/neuronest/guardian/internal/metrics"
	"github.com/neuronest/guardian/internal/pagination"
	"github.com/neuronest/guardian/internal/realtime"
	"github.com/neuronest/guardian/internal/screentime"
	"github.com/neuronest/guardian/internal/traces"
	"github.com/neuronest/guardian/internal/webhooks"
)

// Handler provides HTTP endpoints for risk assessment.
type Handler struct {
	engine   *Engine
	store    Store
	usage    screentime.Store
	children children.Store
	emitter  *alerts.Emitter
	webhooks *webhooks.Emitter
	hub      *realtime.Hub
}

// NewHandler creates a risk handler. emitter, webhooks, and hub may be
// nil.
func NewHandler(engine *Engine, store Store, usage screentime.Store, childStore children.Store,
	emitter *alerts.Emitter, wh *webhooks.Emitter, hub *realtime.Hub) *Handler {
	return &Handler{
		engine:   engine,
		store:    store,
		usage:    usage,
		children: childStore,
		emitter:  emitter,
		webhooks: wh,
		hub:      hub,
	}
}

// RegisterRoutes sets up risk routes. The group must carry auth
// middleware.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/children/:childId/risk/calculate", h.Calculate)
	r.GET("/children/:childId/risk", h.History)
}

// Calculate handles POST /children/:childId/risk/calculate. It scores
// the last seven days of usage. An empty window returns the degenerate
// result without persisting an assessment.
func (h *Handler) Calculate(c *gin.Context) {
	child, ok := h.authorizedChild(c, c.Param("childId"))
	if !ok {
		return
	}

	ctx, span := traces.StartSpan(c.Request.Context(), "risk.Calculate", traces.ChildID(child.ID))
	defer span.End()

	now := time.Now()
	logs, err := h.usage.ListSince(ctx, child.ID, WindowStart(now))
	if err != nil {
		logging.L(ctx).Error("failed to load usage window", "child", child.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "Failed to load screen time",
		})
		return
	}

	result := h.engine.Score(logs)
	span.SetAttributes(traces.RiskTier(string(result.Tier)), traces.RiskScore(result.Score))

	if result.NoData {
		c.JSON(http.StatusOK, gin.H{"assessment": gin.H{
			"childId":     child.ID,
			"score":       result.Score,
			"tier":        result.Tier,
			"explanation": result.Explanation,
			"factors":     result.Factors,
		}})
		return
	}

	assessment := &Assessment{
		ID:          idgen.WithPrefix("risk_"),
		ChildID:     child.ID,
		Score:       result.Score,
		Tier:        result.Tier,
		Explanation: result.Explanation,
		Factors:     result.Factors,
		CreatedAt:   now,
	}
	if err := h.store.Create(ctx, assessment); err != nil {
		logging.L(ctx).Error("failed to store assessment", "child", child.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "create_failed",
			"message": "Failed to store assessment",
		})
		return
	}

	metrics.RiskAssessmentsTotal.WithLabelValues(string(assessment.Tier)).Inc()

	if h.hub != nil {
		h.hub.Broadcast(&realtime.Event{
			Type:      realtime.EventRiskAssessed,
			Timestamp: now,
			Data: map[string]interface{}{
				"childId":      child.ID,
				"assessmentId": assessment.ID,
				"score":        assessment.Score,
				"tier":         string(assessment.Tier),
			},
		})
	}
	if h.webhooks != nil {
		h.webhooks.EmitRiskAssessed(child.ParentID, child.ID, assessment.ID,
			string(assessment.Tier), assessment.Score)
	}

	if assessment.Tier == TierHigh || assessment.Tier == TierCritical {
		severity := alerts.SeverityDanger
		if assessment.Tier == TierCritical {
			severity = alerts.SeverityCritical
		}
		if h.emitter != nil {
			h.emitter.Emit(ctx, &alerts.Alert{
				ChildID:  child.ID,
				UserID:   child.ParentID,
				Type:     alerts.TypeAddictionRisk,
				Severity: severity,
				Title:    string(assessment.Tier) + " Addiction Risk Detected",
				Message:  assessment.Explanation,
				Metadata: map[string]interface{}{
					"assessmentId": assessment.ID,
					"score":        assessment.Score,
				},
			})
		}
	}

	logging.L(ctx).Info("risk assessed",
		"child", child.ID, "assessment", assessment.ID,
		"score", assessment.Score, "tier", assessment.Tier)

	c.JSON(http.StatusOK, gin.H{"assessment": assessment})
}

// History handles GET /children/:childId/risk.
func (h *Handler) History(c *gin.Context) {
	child, ok := h.authorizedChild(c, c.Param("childId"))
	if !ok {
		return
	}

	limit := pagination.ParseLimit(c.Query("limit"))
	list, err := h.store.ListByChild(c.Request.Context(), child.ID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "Failed to load assessments",
		})
		return
	}
	if list == nil {
		list = []*Assessment{}
	}

	c.JSON(http.StatusOK, gin.H{"assessments": list})
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
