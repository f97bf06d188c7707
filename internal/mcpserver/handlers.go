package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	client *GuardianClient
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(client *GuardianClient) *Handlers {
	return &Handlers{client: client}
}

// HandleListChildren lists the parent's child profiles.
func (h *Handlers) HandleListChildren(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := h.client.ListChildren(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list children: %v", err)), nil
	}

	text, err := formatChildList(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse children: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleGetDashboard returns the aggregated family dashboard.
func (h *Handlers) HandleGetDashboard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := h.client.GetDashboard(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load dashboard: %v", err)), nil
	}

	text, err := formatDashboard(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse dashboard: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleGetScreenTime returns a daily or weekly usage summary.
func (h *Handlers) HandleGetScreenTime(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	childID := req.GetString("child_id", "")
	if childID == "" {
		return mcp.NewToolResultError("child_id is required"), nil
	}
	period := req.GetString("period", "daily")

	var raw json.RawMessage
	var err error
	if period == "weekly" {
		raw, err = h.client.GetWeeklySummary(ctx, childID)
	} else {
		raw, err = h.client.GetDailySummary(ctx, childID, req.GetString("date", ""))
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load screen time: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Screen time summary:\n%s", formatJSON(raw))), nil
}

// HandleAssessRisk runs a fresh risk assessment.
func (h *Handlers) HandleAssessRisk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	childID := req.GetString("child_id", "")
	if childID == "" {
		return mcp.NewToolResultError("child_id is required"), nil
	}

	raw, err := h.client.CalculateRisk(ctx, childID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Risk assessment failed: %v", err)), nil
	}

	text, err := formatAssessment(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse assessment: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleGetRiskHistory returns past assessments, newest first.
func (h *Handlers) HandleGetRiskHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	childID := req.GetString("child_id", "")
	if childID == "" {
		return mcp.NewToolResultError("child_id is required"), nil
	}
	limit := req.GetInt("limit", 20)

	raw, err := h.client.GetRiskHistory(ctx, childID, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load risk history: %v", err)), nil
	}

	text, err := formatAssessmentList(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse assessments: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleGetGamification returns a child's motivation state.
func (h *Handlers) HandleGetGamification(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	childID := req.GetString("child_id", "")
	if childID == "" {
		return mcp.NewToolResultError("child_id is required"), nil
	}

	raw, err := h.client.GetGamification(ctx, childID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load gamification state: %v", err)), nil
	}

	text, err := formatGamification(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse gamification state: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleAwardPoints grants bonus points to a child.
func (h *Handlers) HandleAwardPoints(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	childID := req.GetString("child_id", "")
	if childID == "" {
		return mcp.NewToolResultError("child_id is required"), nil
	}
	points := req.GetInt("points", 0)
	if points <= 0 {
		return mcp.NewToolResultError("points must be a positive number"), nil
	}
	reason := req.GetString("reason", "")

	raw, err := h.client.AwardPoints(ctx, childID, points, reason)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to award points: %v", err)), nil
	}

	var resp struct {
		Result struct {
			LeveledUp bool `json:"leveledUp"`
			State     struct {
				Points int64 `json:"points"`
				Level  int   `json:"level"`
			} `json:"state"`
			NewBadges []struct {
				Name string `json:"name"`
			} `json:"newBadges"`
		} `json:"result"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse reward result: %v", err)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Awarded %d points.\n", points)
	fmt.Fprintf(&sb, "Total: %d points, level %d\n", resp.Result.State.Points, resp.Result.State.Level)
	if resp.Result.LeveledUp {
		sb.WriteString("Level up!\n")
	}
	for _, b := range resp.Result.NewBadges {
		fmt.Fprintf(&sb, "New badge unlocked: %s\n", b.Name)
	}

	return mcp.NewToolResultText(sb.String()), nil
}

// HandleListAlerts lists the parent's alerts.
func (h *Handlers) HandleListAlerts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	unreadOnly := req.GetBool("unread_only", false)
	limit := req.GetInt("limit", 20)

	raw, err := h.client.ListAlerts(ctx, unreadOnly, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list alerts: %v", err)), nil
	}

	text, err := formatAlertList(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse alerts: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}
