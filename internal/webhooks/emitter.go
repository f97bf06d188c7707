package webhooks

import (
	"context"
	"log/slog"
	"time"

	"github.com/neuronest/guardian/internal/idgen"
	"github.com/neuronest/guardian/internal/metrics"
)

// Emitter wraps a Dispatcher to emit lifecycle events across subsystems.
// All methods are fire-and-forget: errors are logged but never returned.
type Emitter struct {
	d      *Dispatcher
	logger *slog.Logger
}

// NewEmitter creates a new webhook emitter.
func NewEmitter(d *Dispatcher, logger *slog.Logger) *Emitter {
	return &Emitter{d: d, logger: logger}
}

func (e *Emitter) emit(userID string, eventType EventType, data map[string]interface{}) {
	if e == nil || e.d == nil {
		return
	}
	event := &Event{
		ID:        idgen.WithPrefix("evt_"),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := e.d.DispatchToUser(ctx, userID, event); err != nil {
		metrics.WebhookDeliveriesTotal.WithLabelValues("error").Inc()
		e.logger.Warn("webhook emit failed", "event", eventType, "user", userID, "error", err)
		return
	}
	metrics.WebhookDeliveriesTotal.WithLabelValues("dispatched").Inc()
}

// EmitAlertCreated emits an alert.created event.
func (e *Emitter) EmitAlertCreated(userID, alertID, childID, alertType, severity, title string) {
	e.emit(userID, EventAlertCreated, map[string]interface{}{
		"alertId":  alertID,
		"childId":  childID,
		"type":     alertType,
		"severity": severity,
		"title":    title,
	})
}

// EmitBadgeUnlocked emits a badge.unlocked event.
func (e *Emitter) EmitBadgeUnlocked(userID, childID, badgeID, badgeName string) {
	e.emit(userID, EventBadgeUnlocked, map[string]interface{}{
		"childId":   childID,
		"badgeId":   badgeID,
		"badgeName": badgeName,
	})
}

// EmitLevelUp emits a level.up event.
func (e *Emitter) EmitLevelUp(userID, childID string, level int) {
	e.emit(userID, EventLevelUp, map[string]interface{}{
		"childId": childID,
		"level":   level,
	})
}

// EmitRiskAssessed emits a risk.assessed event.
func (e *Emitter) EmitRiskAssessed(userID, childID, assessmentID, tier string, score float64) {
	e.emit(userID, EventRiskAssessed, map[string]interface{}{
		"childId":      childID,
		"assessmentId": assessmentID,
		"tier":         tier,
		"score":        score,
	})
}
