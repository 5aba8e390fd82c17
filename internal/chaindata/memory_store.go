package chaindata

import (
	"context"
	"sort"
	"sync"
	"time"
)

// memoryRetention is how many blocks the in-memory store keeps.
const memoryRetention = 512

// MemoryStore is an in-memory implementation of Store. Used when no
// database is configured, and in tests.
type MemoryStore struct {
	mu     sync.RWMutex
	blocks []*Block       // ascending by number
	txs    []*Transaction // ascending by block number
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)

// InsertBlock records a block and its transactions.
func (m *MemoryStore) InsertBlock(_ context.Context, block *Block, txs []*Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b := *block
	m.blocks = append(m.blocks, &b)
	for _, tx := range txs {
		t := *tx
		m.txs = append(m.txs, &t)
	}

	// Evict beyond retention, oldest first.
	if len(m.blocks) > memoryRetention {
		cutoff := m.blocks[len(m.blocks)-memoryRetention].Number
		m.blocks = m.blocks[len(m.blocks)-memoryRetention:]
		kept := m.txs[:0]
		for _, tx := range m.txs {
			if tx.BlockNumber >= cutoff {
				kept = append(kept, tx)
			}
		}
		m.txs = kept
	}
	return nil
}

// RecentBlocks returns up to limit blocks, newest first.
func (m *MemoryStore) RecentBlocks(_ context.Context, limit int) ([]*Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Block, 0, limit)
	for i := len(m.blocks) - 1; i >= 0 && len(out) < limit; i-- {
		b := *m.blocks[i]
		out = append(out, &b)
	}
	return out, nil
}

// RecentTransactions returns up to limit transactions, newest first.
func (m *MemoryStore) RecentTransactions(_ context.Context, limit int) ([]*Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Transaction, 0, limit)
	for i := len(m.txs) - 1; i >= 0 && len(out) < limit; i-- {
		t := *m.txs[i]
		out = append(out, &t)
	}
	return out, nil
}

// LatestBlockNumber returns the highest recorded block number.
func (m *MemoryStore) LatestBlockNumber(_ context.Context) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.blocks) == 0 {
		return 0, ErrNotFound
	}
	latest := m.blocks[0].Number
	for _, b := range m.blocks {
		if b.Number > latest {
			latest = b.Number
		}
	}
	return latest, nil
}

// Stats aggregates the recorded window.
func (m *MemoryStore) Stats(_ context.Context) (*NetworkStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &NetworkStats{
		TrackedBlocks: len(m.blocks),
		TrackedTxs:    len(m.txs),
		UpdatedAt:     time.Now(),
	}
	if len(m.blocks) == 0 {
		return stats, nil
	}

	ordered := make([]*Block, len(m.blocks))
	copy(ordered, m.blocks)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Number < ordered[j].Number })

	stats.LatestBlock = ordered[len(ordered)-1].Number

	var totalTxs int
	var totalUtil float64
	for _, b := range ordered {
		totalTxs += b.TxCount
		if b.GasLimit > 0 {
			totalUtil += float64(b.GasUsed) / float64(b.GasLimit)
		}
	}
	stats.AvgTxsPerBlock = float64(totalTxs) / float64(len(ordered))
	stats.AvgGasUtilization = totalUtil / float64(len(ordered))

	if len(ordered) > 1 {
		span := ordered[len(ordered)-1].Timestamp.Sub(ordered[0].Timestamp).Seconds()
		stats.AvgBlockTimeSecs = span / float64(len(ordered)-1)
	}
	return stats, nil
}
