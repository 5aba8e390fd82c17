package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer creates a configured MCP server with all Chainboard tools
// registered.
func NewMCPServer(cfg Config) *server.MCPServer {
	s := server.NewMCPServer("chainboard", "1.0.0")
	client := NewChainboardClient(cfg)
	h := NewHandlers(client)

	s.AddTool(ToolAssessRisk, h.HandleAssessRisk)
	s.AddTool(ToolGasPrices, h.HandleGasPrices)
	s.AddTool(ToolNetworkStats, h.HandleNetworkStats)

	return s
}
