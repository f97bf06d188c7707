package alerts

import (
	"context"
	"log/slog"
	"time"

	"github.com/neuronest/guardian/internal/idgen"
	"github.com/neuronest/guardian/internal/metrics"
	"github.com/neuronest/guardian/internal/realtime"
	"github.com/neuronest/guardian/internal/webhooks"
)

// Emitter fans an alert out to every delivery channel: the store, the
// realtime hub, registered webhooks, and Prometheus counters.
// Emit is fire-and-forget: failures are logged but never returned, so
// callers on the hot path (risk scoring, log ingestion) never block on
// notification delivery.
type Emitter struct {
	store    Store
	hub      *realtime.Hub
	webhooks *webhooks.Emitter
	logger   *slog.Logger
}

// NewEmitter creates an alert emitter. hub and webhooks may be nil; the
// corresponding channel is skipped.
func NewEmitter(store Store, hub *realtime.Hub, wh *webhooks.Emitter, logger *slog.Logger) *Emitter {
	return &Emitter{store: store, hub: hub, webhooks: wh, logger: logger}
}

// Emit persists and delivers an alert. The alert's ID and CreatedAt are
// assigned here; the returned alert is the stored copy.
func (e *Emitter) Emit(ctx context.Context, alert *Alert) *Alert {
	if alert.ID == "" {
		alert.ID = idgen.WithPrefix("alr_")
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now()
	}

	if err := e.store.Create(ctx, alert); err != nil {
		e.logger.Error("failed to persist alert",
			"type", alert.Type, "child", alert.ChildID, "error", err)
		return alert
	}

	metrics.AlertsTotal.WithLabelValues(string(alert.Type), string(alert.Severity)).Inc()

	if e.hub != nil {
		e.hub.BroadcastAlert(map[string]interface{}{
			"alertId":  alert.ID,
			"childId":  alert.ChildID,
			"type":     string(alert.Type),
			"severity": string(alert.Severity),
			"title":    alert.Title,
			"message":  alert.Message,
		})
	}

	if e.webhooks != nil {
		e.webhooks.EmitAlertCreated(alert.UserID, alert.ID, alert.ChildID,
			string(alert.Type), string(alert.Severity), alert.Title)
	}

	e.logger.Info("alert emitted",
		"alert", alert.ID, "type", alert.Type, "severity", alert.Severity, "child", alert.ChildID)

	return alert
}
