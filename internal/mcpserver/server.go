package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer creates a configured MCP server with all Guardian tools registered.
func NewMCPServer(cfg Config) *server.MCPServer {
	s := server.NewMCPServer("guardian", "1.0.0")
	client := NewGuardianClient(cfg)
	h := NewHandlers(client)

	s.AddTool(ToolListChildren, h.HandleListChildren)
	s.AddTool(ToolGetDashboard, h.HandleGetDashboard)
	s.AddTool(ToolGetScreenTime, h.HandleGetScreenTime)
	s.AddTool(ToolAssessRisk, h.HandleAssessRisk)
	s.AddTool(ToolGetRiskHistory, h.HandleGetRiskHistory)
	s.AddTool(ToolGetGamification, h.HandleGetGamification)
	s.AddTool(ToolAwardPoints, h.HandleAwardPoints)
	s.AddTool(ToolListAlerts, h.HandleListAlerts)

	return s
}
