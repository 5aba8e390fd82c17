package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the Chainboard MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolAssessRisk = mcp.NewTool("assess_risk",
	mcp.WithDescription(
		"Assess the risk of a blockchain transaction before sending it. "+
			"Scores the recipient (and optionally the sender) from 0 to 100, "+
			"categorizes the result (LOW/MEDIUM/HIGH/CRITICAL), and returns "+
			"recommendations and warnings. Use this before any transfer."),
	mcp.WithString("to_address",
		mcp.Required(),
		mcp.Description("Recipient address (e.g. '0x1234...')")),
	mcp.WithString("from_address",
		mcp.Description("Sender address. Omit to assess only the recipient.")),
	mcp.WithString("amount",
		mcp.Description("Transfer amount in the chain's native currency (e.g. '1.5')")),
)

var ToolGasPrices = mcp.NewTool("gas_prices",
	mcp.WithDescription(
		"Get current gas prices and network congestion. "+
			"Returns slow/standard/fast fee tiers in gwei, the congestion level, "+
			"and a recommendation on when to send."),
)

var ToolNetworkStats = mcp.NewTool("network_stats",
	mcp.WithDescription(
		"Get network activity statistics from the Chainboard dashboard: "+
			"latest block, average block time, transactions per block, and gas utilization."),
)
