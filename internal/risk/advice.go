package risk

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dmarsh/chainboard/internal/logging"
	"github.com/dmarsh/chainboard/internal/metrics"
)

const (
	adviceMaxTokens    = 400
	minRecommendations = 3
	maxRecommendations = 5
)

// Fallback advice per tier, returned verbatim whenever the advisor is
// unavailable or its reply is unusable.
var (
	criticalAdvice = []string{
		"Do not proceed until the recipient has been verified through an independent channel",
		"Confirm the recipient address with the counterparty outside this application",
		"If you must proceed, send a small test amount first and confirm it arrives",
	}
	highAdvice = []string{
		"Proceed with caution and double-check the recipient address character by character",
		"Verify the recipient is who you expect before signing",
		"Consider waiting for network congestion to ease before sending",
	}
	lowAdvice = []string{
		"Risk level is acceptable for this transaction",
		"Current gas conditions are reasonable for sending",
		"Safe to proceed with the transfer",
	}
)

// recommendations produces 3-5 advice strings for the assessment. The AI
// path is attempted first when an advisor is configured; any failure or
// unparsable reply silently degrades to the deterministic fallback. This
// never returns an empty list and never fails.
func (e *Engine) recommendations(ctx context.Context, to, from *AddressProfile, amount string, overall Score) []string {
	if e.advisor == nil {
		return fallbackAdvice(overall.Overall)
	}

	reply, err := e.advisor.Generate(ctx, advicePrompt(to, from, amount, overall), adviceMaxTokens)
	if err != nil {
		logging.L(ctx).Warn("advisor unavailable, using fallback advice", "error", err)
		metrics.AdvisorFallbacksTotal.Inc()
		return fallbackAdvice(overall.Overall)
	}

	recs, ok := parseAdvice(reply)
	if !ok {
		logging.L(ctx).Warn("advisor reply unparsable, using fallback advice")
		metrics.AdvisorFallbacksTotal.Inc()
		return fallbackAdvice(overall.Overall)
	}
	return recs
}

// fallbackAdvice returns the fixed tier-based recommendation list.
func fallbackAdvice(overall float64) []string {
	switch {
	case overall >= CriticalFloor:
		return criticalAdvice
	case overall >= HighFloor:
		return highAdvice
	default:
		return lowAdvice
	}
}

// advicePrompt embeds both evaluations into a prompt requesting a strict
// array-of-strings reply.
func advicePrompt(to, from *AddressProfile, amount string, overall Score) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "A user is about to send a blockchain transaction. Overall risk: %.0f/100 (%s), confidence %.0f%%.\n",
		overall.Overall, overall.Category, overall.Confidence)
	fmt.Fprintf(&sb, "Recipient %s: risk %.0f/100, contract=%t, verified=%t, %d prior transactions, balance %s.\n",
		to.Address, to.RiskScore.Overall, to.IsContract, to.IsVerified, to.TransactionCount, to.Balance)
	if from.Address != "" {
		fmt.Fprintf(&sb, "Sender %s: risk %.0f/100, %d prior transactions.\n",
			from.Address, from.RiskScore.Overall, from.TransactionCount)
	}
	if amount != "" {
		fmt.Fprintf(&sb, "Transfer amount: %s.\n", amount)
	}
	if len(overall.Factors) > 0 {
		sb.WriteString("Risk factors:\n")
		for _, f := range overall.Factors {
			fmt.Fprintf(&sb, "- [%s] %s\n", f.Severity, f.Description)
		}
	}
	sb.WriteString("\nRespond with ONLY a JSON array of 3 to 5 short, actionable recommendation strings for this user. No prose, no markdown.")

	return sb.String()
}

// parseAdvice extracts a 3-5 entry string array from the advisor's reply.
// Tolerates surrounding prose and markdown fences; anything else is
// rejected so the caller can fall back.
func parseAdvice(reply string) ([]string, bool) {
	start := strings.Index(reply, "[")
	end := strings.LastIndex(reply, "]")
	if start < 0 || end <= start {
		return nil, false
	}

	var recs []string
	if err := json.Unmarshal([]byte(reply[start:end+1]), &recs); err != nil {
		return nil, false
	}

	cleaned := recs[:0]
	for _, r := range recs {
		if r = strings.TrimSpace(r); r != "" {
			cleaned = append(cleaned, r)
		}
	}
	if len(cleaned) < minRecommendations {
		return nil, false
	}
	if len(cleaned) > maxRecommendations {
		cleaned = cleaned[:maxRecommendations]
	}
	return cleaned, true
}
