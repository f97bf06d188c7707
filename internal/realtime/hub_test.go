package realtime

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

func testHub() *Hub {
	return NewHub(slog.Default())
}

// ---------------------------------------------------------------------------
// shouldSend tests
// ---------------------------------------------------------------------------

func TestShouldSend_AllEvents(t *testing.T) {
	h := testHub()
	client := &Client{sub: Subscription{AllEvents: true}}

	event := &Event{Type: EventAlert, Timestamp: time.Now()}
	if !h.shouldSend(client, event) {
		t.Error("AllEvents client should receive all events")
	}
}

func TestShouldSend_EventTypeFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		EventTypes: []EventType{EventAlert, EventLevelUp},
	}}

	alertEvent := &Event{Type: EventAlert}
	levelEvent := &Event{Type: EventLevelUp}
	usageEvent := &Event{Type: EventUsage}

	if !h.shouldSend(client, alertEvent) {
		t.Error("Should receive alert events")
	}
	if !h.shouldSend(client, levelEvent) {
		t.Error("Should receive level_up events")
	}
	if h.shouldSend(client, usageEvent) {
		t.Error("Should NOT receive usage events")
	}
}

func TestShouldSend_ChildFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		ChildIDs: []string{"chd_1"},
	}}

	matching := &Event{
		Type: EventAlert,
		Data: map[string]interface{}{"childId": "chd_1"},
	}
	notMatching := &Event{
		Type: EventAlert,
		Data: map[string]interface{}{"childId": "chd_2"},
	}

	if !h.shouldSend(client, matching) {
		t.Error("Should match on childId")
	}
	if h.shouldSend(client, notMatching) {
		t.Error("Should NOT match unrelated children")
	}
}

func TestShouldSend_MinSeverityFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		MinSeverity: "DANGER",
	}}

	critical := &Event{
		Type: EventAlert,
		Data: map[string]interface{}{"severity": "CRITICAL"},
	}
	warning := &Event{
		Type: EventAlert,
		Data: map[string]interface{}{"severity": "WARNING"},
	}
	usage := &Event{
		Type: EventUsage,
		Data: map[string]interface{}{"minutes": 30},
	}

	if !h.shouldSend(client, critical) {
		t.Error("Should receive critical alert")
	}
	if h.shouldSend(client, warning) {
		t.Error("Should NOT receive warning alert below min severity")
	}
	if !h.shouldSend(client, usage) {
		t.Error("MinSeverity filter should only apply to alerts")
	}
}

func TestShouldSend_EmptySubscription(t *testing.T) {
	h := testHub()

	// No filters, not AllEvents
	client := &Client{sub: Subscription{}}

	event := &Event{Type: EventAlert}
	if !h.shouldSend(client, event) {
		t.Error("Empty subscription (no filters) should receive events")
	}
}

func TestShouldSend_NonMapData(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		ChildIDs: []string{"chd_1"},
	}}

	// Event with non-map data should not crash
	event := &Event{
		Type: EventBadgeUnlocked,
		Data: "string data not a map",
	}

	// Child filter skips non-map data (can't extract the child ID), so event passes through
	if !h.shouldSend(client, event) {
		t.Error("Non-map data should pass through when child filter can't extract the child ID")
	}
}

// ---------------------------------------------------------------------------
// Hub lifecycle tests
// ---------------------------------------------------------------------------

func TestHub_Stats_Initial(t *testing.T) {
	h := testHub()

	stats := h.Stats()
	if stats["connectedClients"].(int) != 0 {
		t.Errorf("Expected 0 connected clients, got %v", stats["connectedClients"])
	}
	if stats["totalEvents"].(int64) != 0 {
		t.Errorf("Expected 0 total events, got %v", stats["totalEvents"])
	}
}

func TestHub_BroadcastAndStats(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	// Broadcast an event
	h.Broadcast(&Event{Type: EventAlert, Timestamp: time.Now()})
	time.Sleep(50 * time.Millisecond)

	stats := h.Stats()
	if stats["totalEvents"].(int64) != 1 {
		t.Errorf("Expected 1 total event, got %v", stats["totalEvents"])
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{AllEvents: true},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	stats := h.Stats()
	if stats["connectedClients"].(int) != 1 {
		t.Errorf("Expected 1 connected client, got %v", stats["connectedClients"])
	}
	if stats["peakClients"].(int64) != 1 {
		t.Errorf("Expected peak 1, got %v", stats["peakClients"])
	}

	h.unregister <- client
	time.Sleep(50 * time.Millisecond)

	stats = h.Stats()
	if stats["connectedClients"].(int) != 0 {
		t.Errorf("Expected 0 connected clients after unregister, got %v", stats["connectedClients"])
	}
	// Peak should still be 1
	if stats["peakClients"].(int64) != 1 {
		t.Errorf("Expected peak still 1, got %v", stats["peakClients"])
	}
}

func TestHub_BroadcastToClient(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{AllEvents: true},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	h.Broadcast(&Event{
		Type:      EventAlert,
		Timestamp: time.Now(),
		Data:      map[string]interface{}{"severity": "WARNING"},
	})

	select {
	case msg := <-client.send:
		if len(msg) == 0 {
			t.Error("Expected non-empty message")
		}
	case <-time.After(time.Second):
		t.Error("Timeout waiting for broadcast")
	}
}

func TestHub_BroadcastAlert(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	// Should not panic
	h.BroadcastAlert(map[string]interface{}{
		"childId": "chd_1", "severity": "DANGER", "title": "test",
	})
}

func TestHub_ContextCancellation(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
		// Hub stopped
	case <-time.After(2 * time.Second):
		t.Error("Hub did not stop after context cancellation")
	}
}

func TestHub_FilteredBroadcast(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	// Client only wants badge unlocks
	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{EventTypes: []EventType{EventBadgeUnlocked}},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	// Send an alert event (should be filtered out)
	h.Broadcast(&Event{Type: EventAlert, Timestamp: time.Now()})
	time.Sleep(100 * time.Millisecond)

	select {
	case <-client.send:
		t.Error("Client should NOT receive alert event")
	default:
		// Good - filtered out
	}

	// Send a badge event (should be received)
	h.Broadcast(&Event{Type: EventBadgeUnlocked, Timestamp: time.Now()})

	select {
	case msg := <-client.send:
		if len(msg) == 0 {
			t.Error("Expected non-empty message")
		}
	case <-time.After(time.Second):
		t.Error("Client should receive badge_unlocked event")
	}
}
