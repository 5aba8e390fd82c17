package risk

import (
	"math"
	"strconv"
)

// Categorize maps a combined score onto its severity tier. Total over
// [0, 100]; applied everywhere a category is derived from a score.
func Categorize(score float64) Category {
	switch {
	case score >= CriticalFloor:
		return CategoryCritical
	case score >= HighFloor:
		return CategoryHigh
	case score >= MediumFloor:
		return CategoryMedium
	default:
		return CategoryLow
	}
}

// Combine blends two address evaluations and the transfer amount into a
// single score. Pure and deterministic:
//
//   - weighted = to*0.7 + from*0.3
//   - amount > 1000 adds 20, amount > 100 adds 10 (unparseable adds 0)
//   - final is capped at 100
//   - confidence is the pessimistic min of both inputs
//   - factors concatenate, recipient side first, original order preserved
func Combine(from, to *AddressProfile, amount string) Score {
	weighted := to.RiskScore.Overall*weightRecipient + from.RiskScore.Overall*weightSender

	final := math.Min(maxRisk, weighted+amountRisk(amount))

	factors := make([]Factor, 0, len(to.RiskScore.Factors)+len(from.RiskScore.Factors))
	factors = append(factors, to.RiskScore.Factors...)
	factors = append(factors, from.RiskScore.Factors...)

	return Score{
		Overall:    final,
		Confidence: math.Min(to.RiskScore.Confidence, from.RiskScore.Confidence),
		Category:   Categorize(final),
		Factors:    factors,
	}
}

// amountRisk applies the fixed amount heuristic. The amount is the
// native-currency decimal string as supplied by the caller; no currency
// conversion happens here.
func amountRisk(amount string) float64 {
	if amount == "" {
		return 0
	}
	v, err := strconv.ParseFloat(amount, 64)
	if err != nil {
		return 0
	}
	switch {
	case v > largeAmountThreshold:
		return largeAmountRisk
	case v > mediumAmountThreshold:
		return mediumAmountRisk
	default:
		return 0
	}
}

// syntheticSender builds the zero-risk profile substituted when no sender
// address was supplied. Confidence is maximal so the synthetic side never
// lowers the combined confidence.
func syntheticSender() *AddressProfile {
	return &AddressProfile{
		Address:          "",
		IsContract:       false,
		TransactionCount: 0,
		Balance:          "0",
		RiskScore: Score{
			Overall:    0,
			Confidence: fullConfidence,
			Category:   CategoryLow,
			Factors:    []Factor{},
		},
		Flags: []string{},
	}
}
