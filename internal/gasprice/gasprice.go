// Package gasprice reads current gas-market conditions and turns them
// into a fee recommendation. Results are cached with a short TTL; on a
// failed refresh the last good reading is served instead.
package gasprice

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/params"

	"github.com/dmarsh/chainboard/internal/logging"
)

// ErrRPCConnection is returned when the RPC endpoint cannot be reached.
var ErrRPCConnection = errors.New("gasprice: failed to connect to RPC")

// DefaultTTL is how long one reading stays fresh. Mainnet blocks land
// every 12s, so anything shorter just burns RPC quota.
const DefaultTTL = 15 * time.Second

// Fee tier multipliers applied to the node's suggested price.
const (
	slowMultiplier = 0.85
	fastMultiplier = 1.25
)

// Congestion bands over the current base fee in gwei.
const (
	moderateBaseFeeGwei = 10.0
	highBaseFeeGwei     = 30.0
	extremeBaseFeeGwei  = 100.0
)

// GasReader is the subset of ethclient used to read gas conditions.
type GasReader interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// Optimization is one reading of the gas market with derived advice.
type Optimization struct {
	CurrentGwei    float64   `json:"currentGwei"`
	SlowGwei       float64   `json:"slowGwei"`
	StandardGwei   float64   `json:"standardGwei"`
	FastGwei       float64   `json:"fastGwei"`
	BaseFeeGwei    float64   `json:"baseFeeGwei"`
	TipGwei        float64   `json:"tipGwei"`
	Congestion     string    `json:"congestion"` // low, moderate, high, extreme
	Recommendation string    `json:"recommendation"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Oracle caches gas readings from the chain.
type Oracle struct {
	client GasReader
	ttl    time.Duration

	mu         sync.RWMutex
	cached     *Optimization
	lastUpdate time.Time
}

// Option configures the oracle.
type Option func(*Oracle)

// WithClient sets a custom gas reader (useful for testing).
func WithClient(client GasReader) Option {
	return func(o *Oracle) { o.client = client }
}

// New creates a gas oracle connected to the given RPC endpoint.
func New(rpcURL string, ttl time.Duration, opts ...Option) (*Oracle, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	o := &Oracle{ttl: ttl}
	for _, opt := range opts {
		opt(o)
	}

	if o.client == nil {
		client, err := ethclient.Dial(rpcURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRPCConnection, err)
		}
		o.client = client
	}
	return o, nil
}

// Current returns the latest gas reading, refreshing the cache when it
// has gone stale. A failed refresh serves the previous reading; the
// error surfaces only when there is nothing cached at all.
func (o *Oracle) Current(ctx context.Context) (*Optimization, error) {
	o.mu.RLock()
	if o.cached != nil && time.Since(o.lastUpdate) < o.ttl {
		cached := o.cached
		o.mu.RUnlock()
		return cached, nil
	}
	o.mu.RUnlock()

	fresh, err := o.fetch(ctx)
	if err != nil {
		o.mu.RLock()
		stale := o.cached
		o.mu.RUnlock()
		if stale != nil {
			logging.L(ctx).Warn("gas refresh failed, serving stale reading",
				"error", err,
				"age", time.Since(stale.UpdatedAt).String(),
			)
			return stale, nil
		}
		return nil, err
	}

	o.mu.Lock()
	o.cached = fresh
	o.lastUpdate = time.Now()
	o.mu.Unlock()

	return fresh, nil
}

// fetch reads price, tip, and base fee in one pass and derives the tiers.
func (o *Oracle) fetch(ctx context.Context) (*Optimization, error) {
	price, err := o.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch gas price: %w", err)
	}

	tip, err := o.client.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch gas tip cap: %w", err)
	}

	header, err := o.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest header: %w", err)
	}

	current := weiToGwei(price)
	baseFee := weiToGwei(header.BaseFee)
	congestion := congestionLevel(baseFee)

	return &Optimization{
		CurrentGwei:    current,
		SlowGwei:       current * slowMultiplier,
		StandardGwei:   current,
		FastGwei:       current * fastMultiplier,
		BaseFeeGwei:    baseFee,
		TipGwei:        weiToGwei(tip),
		Congestion:     congestion,
		Recommendation: recommendation(congestion),
		UpdatedAt:      time.Now(),
	}, nil
}

func congestionLevel(baseFeeGwei float64) string {
	switch {
	case baseFeeGwei >= extremeBaseFeeGwei:
		return "extreme"
	case baseFeeGwei >= highBaseFeeGwei:
		return "high"
	case baseFeeGwei >= moderateBaseFeeGwei:
		return "moderate"
	default:
		return "low"
	}
}

func recommendation(congestion string) string {
	switch congestion {
	case "extreme":
		return "Network fees are extreme; wait for congestion to clear unless the transfer is urgent"
	case "high":
		return "Network fees are elevated; consider waiting an hour or using the slow tier"
	case "moderate":
		return "Network fees are moderate; the standard tier should confirm within a few blocks"
	default:
		return "Network fees are low; a good time to send"
	}
}

// weiToGwei converts a wei amount to gwei. Pre-EIP-1559 chains report a
// nil base fee, which reads as zero.
func weiToGwei(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(params.GWei)).Float64()
	return f
}
