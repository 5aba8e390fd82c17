// Package risk implements pre-transaction risk assessment.
//
// A candidate transfer (sender, recipient, amount) is scored by blending
// independent risk profiles for both addresses with an amount heuristic.
// The combined score is bucketed into four severity tiers and turned into
// user-facing recommendations and warnings. Scores range from 0 (safe) to
// 100 (critical). The whole pipeline is request-scoped: nothing is cached
// or persisted between assessments.
package risk

import (
	"context"
	"errors"
	"fmt"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

// ErrMissingToAddress is returned when a request omits the recipient,
// the only required field.
var ErrMissingToAddress = errors.New("risk: toAddress is required")

// AnalysisError wraps a collaborator failure during the mandatory lookups.
// The whole assessment fails; no partial result is produced.
type AnalysisError struct {
	Stage string // "to_address", "from_address", or "gas"
	Err   error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("risk: %s analysis failed: %v", e.Stage, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// -----------------------------------------------------------------------------
// Severity tiers
// -----------------------------------------------------------------------------

// Category is a coarse severity bucket derived from a numeric score.
type Category string

const (
	CategoryLow      Category = "LOW"
	CategoryMedium   Category = "MEDIUM"
	CategoryHigh     Category = "HIGH"
	CategoryCritical Category = "CRITICAL"
)

// Tier boundaries are inclusive lower bounds; together the four bands
// partition [0, 100] with no gaps or overlaps.
const (
	MediumFloor   = 40.0
	HighFloor     = 60.0
	CriticalFloor = 80.0
)

// Scoring policy. These values are compatibility-sensitive: the recipient
// is weighted more heavily than the sender because recipient-side risk
// (a scam contract, a drained account) is the dominant real-world hazard.
const (
	weightRecipient = 0.7
	weightSender    = 0.3

	mediumAmountThreshold = 100.0
	mediumAmountRisk      = 10.0
	largeAmountThreshold  = 1000.0
	largeAmountRisk       = 20.0

	maxRisk = 100.0

	// fullConfidence is assigned to the synthetic zero-risk sender profile
	// so an omitted sender never drags down combined confidence.
	fullConfidence = 100.0
)

// -----------------------------------------------------------------------------
// Core types
// -----------------------------------------------------------------------------

// Factor is one discrete reason contributing to an address's risk score.
type Factor struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Severity    Category `json:"severity"`
}

// Score is a numeric risk evaluation with its derived category.
// Category always equals Categorize(Overall); the two never diverge.
type Score struct {
	Overall    float64  `json:"overall"`
	Confidence float64  `json:"confidence"`
	Category   Category `json:"category"`
	Factors    []Factor `json:"factors"`
}

// AddressProfile is the analyzer's evaluation of a single address.
// Immutable once built; owned by the request that created it.
type AddressProfile struct {
	Address          string   `json:"address"`
	IsContract       bool     `json:"isContract"`
	IsVerified       bool     `json:"isVerified"`
	TransactionCount uint64   `json:"transactionCount"`
	Balance          string   `json:"balance"` // native-currency decimal string
	RiskScore        Score    `json:"riskScore"`
	Flags            []string `json:"flags"`
}

// Request is a candidate transaction to assess. ToAddress is the only
// required field.
type Request struct {
	FromAddress string `json:"fromAddress"`
	ToAddress   string `json:"toAddress"`
	Amount      string `json:"amount"`
	ChainID     int64  `json:"chainId"`
}

// Assessment is the full result for one candidate transaction.
type Assessment struct {
	FromAddress     AddressProfile `json:"fromAddress"`
	ToAddress       AddressProfile `json:"toAddress"`
	Amount          string         `json:"amount"`
	EstimatedGas    string         `json:"estimatedGas"`
	GasOptimization any            `json:"gasOptimization"` // opaque collaborator output
	OverallRisk     Score          `json:"overallRisk"`
	Recommendations []string       `json:"recommendations"`
	Warnings        []string       `json:"warnings"`
}

// -----------------------------------------------------------------------------
// Collaborators
// -----------------------------------------------------------------------------

// AddressAnalyzer produces a risk profile for a single address.
type AddressAnalyzer interface {
	Analyze(ctx context.Context, address string) (*AddressProfile, error)
}

// GasEstimator supplies current gas-market conditions. The result is
// passed through to the caller untouched.
type GasEstimator interface {
	Optimization(ctx context.Context) (any, error)
}

// Advisor generates free-form advice text from a prompt, bounded by a
// maximum output-token budget. The reply is expected, but not guaranteed,
// to parse as a JSON string array.
type Advisor interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}
