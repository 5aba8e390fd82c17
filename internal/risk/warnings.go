package risk

import "strconv"

// Warning text is fixed so clients can match on it.
const (
	WarnUnauditedContract = "Recipient is an unverified smart contract - its code has not been audited"
	WarnCriticalRisk      = "Critical risk level detected - strongly consider cancelling this transaction"
	WarnNewAddress        = "Recipient address has no transaction history"
	WarnDrainedAccount    = "Recipient has prior activity but a zero balance - the account may have been drained"
	WarnMultiplePatterns  = "Multiple high-risk patterns detected across the addresses involved"
)

// severeFactorFloor is the number of HIGH/CRITICAL factors across both
// profiles that triggers the multiple-pattern warning.
const severeFactorFloor = 2

// Warnings evaluates every hazard rule against the assessment. Rules are
// independent and all of them run, so several warnings can co-occur; the
// result preserves rule order and may be empty.
func Warnings(from, to *AddressProfile, overall Score) []string {
	var warnings []string

	if to.IsContract && !to.IsVerified {
		warnings = append(warnings, WarnUnauditedContract)
	}
	if overall.Overall >= CriticalFloor {
		warnings = append(warnings, WarnCriticalRisk)
	}
	if to.TransactionCount == 0 {
		warnings = append(warnings, WarnNewAddress)
	}
	if bal, err := strconv.ParseFloat(to.Balance, 64); err == nil && bal == 0 && to.TransactionCount > 0 {
		warnings = append(warnings, WarnDrainedAccount)
	}
	if severeFactorCount(from, to) >= severeFactorFloor {
		warnings = append(warnings, WarnMultiplePatterns)
	}

	return warnings
}

// severeFactorCount counts HIGH and CRITICAL factors across both sides.
func severeFactorCount(from, to *AddressProfile) int {
	count := 0
	for _, p := range []*AddressProfile{to, from} {
		if p == nil {
			continue
		}
		for _, f := range p.RiskScore.Factors {
			if f.Severity == CategoryHigh || f.Severity == CategoryCritical {
				count++
			}
		}
	}
	return count
}
