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
	client *ChainboardClient
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(client *ChainboardClient) *Handlers {
	return &Handlers{client: client}
}

// HandleAssessRisk runs a risk assessment and renders it for the LLM.
func (h *Handlers) HandleAssessRisk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	toAddress := req.GetString("to_address", "")
	if toAddress == "" {
		return mcp.NewToolResultError("to_address is required"), nil
	}
	fromAddress := req.GetString("from_address", "")
	amount := req.GetString("amount", "")

	raw, err := h.client.AssessRisk(ctx, fromAddress, toAddress, amount)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Assessment failed: %v", err)), nil
	}

	text, err := formatAssessment(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse assessment: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// HandleGasPrices returns current gas conditions.
func (h *Handlers) HandleGasPrices(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := h.client.GasPrices(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get gas prices: %v", err)), nil
	}

	text, err := formatGasPrices(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse gas prices: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// HandleNetworkStats returns dashboard network statistics.
func (h *Handlers) HandleNetworkStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := h.client.NetworkStats(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get network stats: %v", err)), nil
	}

	text, err := formatNetworkStats(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse network stats: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// ---------------------------------------------------------------------------
// Response formatting
// ---------------------------------------------------------------------------

type assessmentPayload struct {
	ToAddress struct {
		Address          string `json:"address"`
		IsContract       bool   `json:"isContract"`
		IsVerified       bool   `json:"isVerified"`
		TransactionCount uint64 `json:"transactionCount"`
		Balance          string `json:"balance"`
	} `json:"toAddress"`
	Amount       string `json:"amount"`
	EstimatedGas string `json:"estimatedGas"`
	OverallRisk  struct {
		Overall    float64 `json:"overall"`
		Confidence float64 `json:"confidence"`
		Category   string  `json:"category"`
		Factors    []struct {
			Description string `json:"description"`
			Severity    string `json:"severity"`
		} `json:"factors"`
	} `json:"overallRisk"`
	Recommendations []string `json:"recommendations"`
	Warnings        []string `json:"warnings"`
}

func formatAssessment(raw json.RawMessage) (string, error) {
	var a assessmentPayload
	if err := json.Unmarshal(raw, &a); err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Risk: %.0f/100 (%s), confidence %.0f%%\n",
		a.OverallRisk.Overall, a.OverallRisk.Category, a.OverallRisk.Confidence)
	fmt.Fprintf(&sb, "Recipient: %s\n", a.ToAddress.Address)
	fmt.Fprintf(&sb, "  Contract: %t (verified: %t)\n", a.ToAddress.IsContract, a.ToAddress.IsVerified)
	fmt.Fprintf(&sb, "  History: %d transactions, balance %s\n",
		a.ToAddress.TransactionCount, a.ToAddress.Balance)
	if a.Amount != "" {
		fmt.Fprintf(&sb, "Amount: %s (estimated gas %s)\n", a.Amount, a.EstimatedGas)
	}

	if len(a.OverallRisk.Factors) > 0 {
		sb.WriteString("\nRisk factors:\n")
		for _, f := range a.OverallRisk.Factors {
			fmt.Fprintf(&sb, "- [%s] %s\n", f.Severity, f.Description)
		}
	}
	if len(a.Warnings) > 0 {
		sb.WriteString("\nWarnings:\n")
		for _, w := range a.Warnings {
			fmt.Fprintf(&sb, "- %s\n", w)
		}
	}
	if len(a.Recommendations) > 0 {
		sb.WriteString("\nRecommendations:\n")
		for _, r := range a.Recommendations {
			fmt.Fprintf(&sb, "- %s\n", r)
		}
	}
	return sb.String(), nil
}

type gasPayload struct {
	SlowGwei       float64 `json:"slowGwei"`
	StandardGwei   float64 `json:"standardGwei"`
	FastGwei       float64 `json:"fastGwei"`
	BaseFeeGwei    float64 `json:"baseFeeGwei"`
	Congestion     string  `json:"congestion"`
	Recommendation string  `json:"recommendation"`
}

func formatGasPrices(raw json.RawMessage) (string, error) {
	var g gasPayload
	if err := json.Unmarshal(raw, &g); err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Gas prices (gwei): slow %.1f | standard %.1f | fast %.1f\n",
		g.SlowGwei, g.StandardGwei, g.FastGwei)
	fmt.Fprintf(&sb, "Base fee: %.1f gwei, congestion: %s\n", g.BaseFeeGwei, g.Congestion)
	if g.Recommendation != "" {
		fmt.Fprintf(&sb, "%s\n", g.Recommendation)
	}
	return sb.String(), nil
}

type statsPayload struct {
	LatestBlock       uint64  `json:"latestBlock"`
	TrackedBlocks     int     `json:"trackedBlocks"`
	TrackedTxs        int     `json:"trackedTxs"`
	AvgBlockTimeSecs  float64 `json:"avgBlockTimeSecs"`
	AvgTxsPerBlock    float64 `json:"avgTxsPerBlock"`
	AvgGasUtilization float64 `json:"avgGasUtilization"`
}

func formatNetworkStats(raw json.RawMessage) (string, error) {
	var s statsPayload
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Latest block: %d\n", s.LatestBlock)
	fmt.Fprintf(&sb, "Tracked window: %d blocks, %d transactions\n", s.TrackedBlocks, s.TrackedTxs)
	fmt.Fprintf(&sb, "Avg block time: %.1fs | avg txs/block: %.1f | gas utilization: %.0f%%\n",
		s.AvgBlockTimeSecs, s.AvgTxsPerBlock, s.AvgGasUtilization*100)
	return sb.String(), nil
}
