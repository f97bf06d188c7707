package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the Guardian MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolListChildren = mcp.NewTool("list_children",
	mcp.WithDescription(
		"List the parent's monitored children. "+
			"Returns each child's ID, name, age, and daily screen time limit. "+
			"Use this first to find a child ID for the other tools."),
)

var ToolGetDashboard = mcp.NewTool("get_dashboard",
	mcp.WithDescription(
		"Get the family dashboard: per-child screen time today and this week, "+
			"latest risk assessment, score trend, streaks, and recent alerts. "+
			"Best starting point for a general 'how are the kids doing' question."),
)

var ToolGetScreenTime = mcp.NewTool("get_screen_time",
	mcp.WithDescription(
		"Get a child's screen time summary. Daily summaries break usage down "+
			"by app, category, and hour of day; weekly summaries show per-day "+
			"totals across the last seven days."),
	mcp.WithString("child_id",
		mcp.Required(),
		mcp.Description("The child's ID (e.g. 'chd_...')")),
	mcp.WithString("period",
		mcp.Description("Summary period: 'daily' (default) or 'weekly'"),
		mcp.Enum("daily", "weekly")),
	mcp.WithString("date",
		mcp.Description("Day to summarize in YYYY-MM-DD form (daily only, defaults to today)")),
)

var ToolAssessRisk = mcp.NewTool("assess_risk",
	mcp.WithDescription(
		"Run a fresh addiction risk assessment for a child over the last seven "+
			"days of usage. Returns a 0-100 score, a tier (LOW/MODERATE/HIGH/CRITICAL), "+
			"the contributing factors, and a plain-language explanation."),
	mcp.WithString("child_id",
		mcp.Required(),
		mcp.Description("The child's ID (e.g. 'chd_...')")),
)

var ToolGetRiskHistory = mcp.NewTool("get_risk_history",
	mcp.WithDescription(
		"Get past risk assessments for a child, newest first. "+
			"Use this to see whether a child's risk score is trending up or down."),
	mcp.WithString("child_id",
		mcp.Required(),
		mcp.Description("The child's ID (e.g. 'chd_...')")),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of assessments to return (default 20)")),
)

var ToolGetGamification = mcp.NewTool("get_gamification",
	mcp.WithDescription(
		"Get a child's motivation state: points, level, current and longest "+
			"streak of days under the screen time limit, and unlocked badges."),
	mcp.WithString("child_id",
		mcp.Required(),
		mcp.Description("The child's ID (e.g. 'chd_...')")),
)

var ToolAwardPoints = mcp.NewTool("award_points",
	mcp.WithDescription(
		"Award bonus points to a child as a reward for good digital habits. "+
			"Points count toward levels and may unlock badges."),
	mcp.WithString("child_id",
		mcp.Required(),
		mcp.Description("The child's ID (e.g. 'chd_...')")),
	mcp.WithNumber("points",
		mcp.Required(),
		mcp.Description("Points to award (1-10000)")),
	mcp.WithString("reason",
		mcp.Description("Short reason shown alongside the reward (e.g. 'finished homework early')")),
)

var ToolListAlerts = mcp.NewTool("list_alerts",
	mcp.WithDescription(
		"List the parent's alerts: screen time limit breaches, elevated risk "+
			"assessments, badge unlocks, and level-ups."),
	mcp.WithBoolean("unread_only",
		mcp.Description("Only return unread alerts")),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of alerts to return (default 20)")),
)
