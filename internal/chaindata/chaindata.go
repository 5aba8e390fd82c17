// Package chaindata caches recent chain activity for the dashboard.
//
// A collector follows the chain head and records blocks and their
// transactions; the store serves recent activity and aggregate network
// stats to the HTTP and websocket layers. Retention is bounded: this is
// a rolling window over the recent past, not an archive.
package chaindata

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("chaindata: not found")

// DefaultLimit and MaxLimit bound the list endpoints.
const (
	DefaultLimit = 25
	MaxLimit     = 100
)

// Transaction is one recorded transfer.
type Transaction struct {
	Hash        string    `json:"hash"`
	BlockNumber uint64    `json:"blockNumber"`
	FromAddress string    `json:"fromAddress"`
	ToAddress   string    `json:"toAddress"` // empty for contract creation
	Value       string    `json:"value"`     // ether decimal string
	GasPrice    string    `json:"gasPrice"`  // gwei decimal string
	Nonce       uint64    `json:"nonce"`
	Timestamp   time.Time `json:"timestamp"`
}

// Block is one recorded block header summary.
type Block struct {
	Number     uint64    `json:"number"`
	Hash       string    `json:"hash"`
	ParentHash string    `json:"parentHash"`
	Miner      string    `json:"miner"`
	TxCount    int       `json:"txCount"`
	GasUsed    uint64    `json:"gasUsed"`
	GasLimit   uint64    `json:"gasLimit"`
	BaseFee    string    `json:"baseFee"` // gwei decimal string, empty pre-1559
	Timestamp  time.Time `json:"timestamp"`
}

// NetworkStats aggregates the recorded window.
type NetworkStats struct {
	LatestBlock       uint64    `json:"latestBlock"`
	TrackedBlocks     int       `json:"trackedBlocks"`
	TrackedTxs        int       `json:"trackedTxs"`
	AvgBlockTimeSecs  float64   `json:"avgBlockTimeSecs"`
	AvgTxsPerBlock    float64   `json:"avgTxsPerBlock"`
	AvgGasUtilization float64   `json:"avgGasUtilization"` // 0..1
	UpdatedAt         time.Time `json:"updatedAt"`
}

// Store persists the rolling activity window.
type Store interface {
	// InsertBlock records a block and its transactions atomically.
	InsertBlock(ctx context.Context, block *Block, txs []*Transaction) error

	// RecentBlocks returns up to limit blocks, newest first.
	RecentBlocks(ctx context.Context, limit int) ([]*Block, error)

	// RecentTransactions returns up to limit transactions, newest first.
	RecentTransactions(ctx context.Context, limit int) ([]*Transaction, error)

	// LatestBlockNumber returns the highest recorded block number, or
	// ErrNotFound when nothing has been recorded yet.
	LatestBlockNumber(ctx context.Context) (uint64, error)

	// Stats aggregates the recorded window.
	Stats(ctx context.Context) (*NetworkStats, error)
}

// ClampLimit normalizes a caller-supplied limit.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
