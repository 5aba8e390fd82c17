// Package analyzer builds risk profiles for individual addresses from
// on-chain state. Three reads per address: code (contract detection),
// nonce (activity), balance. The heuristics on top are deterministic, so
// the same chain state always yields the same profile.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/params"

	"github.com/dmarsh/chainboard/internal/metrics"
	"github.com/dmarsh/chainboard/internal/risk"
	"github.com/dmarsh/chainboard/internal/validation"
)

// ErrInvalidAddress is returned for input that is not a 0x-prefixed
// 40-hex-digit address.
var ErrInvalidAddress = errors.New("analyzer: invalid ethereum address")

// ErrRPCConnection is returned when the RPC endpoint cannot be reached.
var ErrRPCConnection = errors.New("analyzer: failed to connect to RPC")

// Heuristic scoring. Each factor contributes a fixed amount; the sum is
// capped at 100.
const (
	newAddressRisk         = 25.0
	unverifiedContractRisk = 30.0
	dustBalanceRisk        = 10.0
	highActivityRisk       = 15.0

	maxProfileRisk = 100.0

	// dustThresholdEther marks balances too small to cover a single
	// transfer's gas.
	dustThresholdEther = 0.001

	// highActivityNonce is the transaction count beyond which an address
	// looks like an automated or exchange-operated account.
	highActivityNonce = 50000

	// Profiles of addresses with history are trusted more than fresh ones.
	establishedConfidence = 95.0
	freshConfidence       = 75.0
)

// ChainReader is the subset of ethclient used to profile an address.
type ChainReader interface {
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// Analyzer profiles addresses against the latest chain state.
type Analyzer struct {
	client   ChainReader
	verified map[string]bool // lowercased contract addresses known to be audited
}

// Option configures the analyzer.
type Option func(*Analyzer)

// WithClient sets a custom chain reader (useful for testing).
func WithClient(client ChainReader) Option {
	return func(a *Analyzer) { a.client = client }
}

// WithVerifiedContracts marks the given contract addresses as verified.
func WithVerifiedContracts(addresses []string) Option {
	return func(a *Analyzer) {
		for _, addr := range addresses {
			a.verified[strings.ToLower(addr)] = true
		}
	}
}

// New creates an analyzer connected to the given RPC endpoint.
func New(rpcURL string, opts ...Option) (*Analyzer, error) {
	a := &Analyzer{verified: make(map[string]bool)}
	for _, opt := range opts {
		opt(a)
	}

	if a.client == nil {
		client, err := ethclient.Dial(rpcURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRPCConnection, err)
		}
		a.client = client
	}
	return a, nil
}

// Analyze reads the address's current state and derives its risk profile.
func (a *Analyzer) Analyze(ctx context.Context, address string) (*risk.AddressProfile, error) {
	if !validation.IsValidEthAddress(address) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	addr := common.HexToAddress(address)

	code, err := a.client.CodeAt(ctx, addr, nil)
	if err != nil {
		metrics.AnalyzerErrorsTotal.WithLabelValues("code").Inc()
		return nil, fmt.Errorf("failed to fetch code for %s: %w", address, err)
	}

	nonce, err := a.client.NonceAt(ctx, addr, nil)
	if err != nil {
		metrics.AnalyzerErrorsTotal.WithLabelValues("nonce").Inc()
		return nil, fmt.Errorf("failed to fetch nonce for %s: %w", address, err)
	}

	balance, err := a.client.BalanceAt(ctx, addr, nil)
	if err != nil {
		metrics.AnalyzerErrorsTotal.WithLabelValues("balance").Inc()
		return nil, fmt.Errorf("failed to fetch balance for %s: %w", address, err)
	}

	isContract := len(code) > 0
	isVerified := isContract && a.verified[strings.ToLower(address)]

	profile := &risk.AddressProfile{
		Address:          address,
		IsContract:       isContract,
		IsVerified:       isVerified,
		TransactionCount: nonce,
		Balance:          formatEther(balance),
		Flags:            []string{},
	}
	profile.RiskScore = a.scoreProfile(profile, balance)

	return profile, nil
}

// scoreProfile applies the heuristics to a populated profile and records
// the matching flags on it.
func (a *Analyzer) scoreProfile(p *risk.AddressProfile, balance *big.Int) risk.Score {
	var (
		total   float64
		factors = []risk.Factor{}
	)

	if p.TransactionCount == 0 {
		total += newAddressRisk
		p.Flags = append(p.Flags, "new-address")
		factors = append(factors, risk.Factor{
			Type:        "new_address",
			Description: "Address has no transaction history",
			Severity:    risk.CategoryMedium,
		})
	}

	if p.IsContract && !p.IsVerified {
		total += unverifiedContractRisk
		p.Flags = append(p.Flags, "unverified-contract")
		factors = append(factors, risk.Factor{
			Type:        "unverified_contract",
			Description: "Contract source code is not verified",
			Severity:    risk.CategoryHigh,
		})
	}

	if isDust(balance) {
		total += dustBalanceRisk
		p.Flags = append(p.Flags, "dust-balance")
		factors = append(factors, risk.Factor{
			Type:        "dust_balance",
			Description: "Balance is too small to cover gas for a transfer",
			Severity:    risk.CategoryLow,
		})
	}

	if p.TransactionCount > highActivityNonce {
		total += highActivityRisk
		p.Flags = append(p.Flags, "high-activity")
		factors = append(factors, risk.Factor{
			Type:        "high_activity",
			Description: "Unusually high transaction count suggests an automated account",
			Severity:    risk.CategoryMedium,
		})
	}

	if total > maxProfileRisk {
		total = maxProfileRisk
	}

	confidence := establishedConfidence
	if p.TransactionCount == 0 {
		confidence = freshConfidence
	}

	return risk.Score{
		Overall:    total,
		Confidence: confidence,
		Category:   risk.Categorize(total),
		Factors:    factors,
	}
}

// isDust reports whether the balance is positive but below the dust
// threshold.
func isDust(balance *big.Int) bool {
	if balance == nil || balance.Sign() <= 0 {
		return false
	}
	threshold := big.NewInt(int64(dustThresholdEther * params.Ether))
	return balance.Cmp(threshold) < 0
}

// formatEther converts a wei amount to a trimmed decimal ether string.
func formatEther(wei *big.Int) string {
	if wei == nil || wei.Sign() == 0 {
		return "0"
	}
	f := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(params.Ether))
	s := f.Text('f', 6)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	return s
}
