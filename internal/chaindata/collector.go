package chaindata

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/params"

	"github.com/dmarsh/chainboard/internal/logging"
	"github.com/dmarsh/chainboard/internal/metrics"
)

// maxCatchupBlocks bounds how far behind the collector will backfill in
// one poll. A longer gap is skipped; the window is a recent-activity
// cache, not an archive.
const maxCatchupBlocks = 10

// BlockReader is the subset of ethclient used by the collector.
type BlockReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
	BlockByNumber(ctx context.Context, number *big.Int) (*types.Block, error)
}

// BlockEmitter receives each newly recorded block. Used to fan out to
// websocket clients.
type BlockEmitter interface {
	EmitBlock(block *Block)
}

// Collector follows the chain head and records blocks into the store.
type Collector struct {
	client   BlockReader
	store    Store
	chainID  *big.Int
	interval time.Duration
	emitter  BlockEmitter

	lastBlock uint64

	stop chan struct{}
	done chan struct{}
}

// CollectorOption configures the collector.
type CollectorOption func(*Collector)

// WithBlockReader sets a custom chain client (useful for testing).
func WithBlockReader(client BlockReader) CollectorOption {
	return func(c *Collector) { c.client = client }
}

// WithEmitter forwards each recorded block to the given emitter.
func WithEmitter(emitter BlockEmitter) CollectorOption {
	return func(c *Collector) { c.emitter = emitter }
}

// NewCollector creates a collector polling the given RPC endpoint.
func NewCollector(rpcURL string, chainID int64, store Store, interval time.Duration, opts ...CollectorOption) (*Collector, error) {
	c := &Collector{
		store:    store,
		chainID:  big.NewInt(chainID),
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.client == nil {
		client, err := ethclient.Dial(rpcURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to RPC: %w", err)
		}
		c.client = client
	}
	return c, nil
}

// Start begins following the chain head from the current block.
func (c *Collector) Start(ctx context.Context) error {
	head, err := c.client.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("failed to get block number: %w", err)
	}
	c.lastBlock = head

	logging.L(ctx).Info("block collector started",
		"startBlock", head,
		"interval", c.interval.String(),
	)

	go c.pollLoop(ctx)
	return nil
}

// Stop stops the collector and waits for the poll loop to exit.
func (c *Collector) Stop() {
	close(c.stop)
	<-c.done
}

func (c *Collector) pollLoop(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		case <-ticker.C:
			if err := c.collect(ctx); err != nil {
				logging.L(ctx).Error("block collection failed", "error", err)
			}
		}
	}
}

// collect records every block between the last seen head and the
// current one, newest last.
func (c *Collector) collect(ctx context.Context) error {
	head, err := c.client.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("failed to get block number: %w", err)
	}
	if head <= c.lastBlock {
		return nil
	}

	from := c.lastBlock + 1
	if head-from >= maxCatchupBlocks {
		logging.L(ctx).Warn("collector fell behind, skipping ahead",
			"from", from,
			"head", head,
		)
		from = head - maxCatchupBlocks + 1
	}

	for n := from; n <= head; n++ {
		if err := c.recordBlock(ctx, n); err != nil {
			return err
		}
		c.lastBlock = n
	}
	return nil
}

func (c *Collector) recordBlock(ctx context.Context, number uint64) error {
	raw, err := c.client.BlockByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return fmt.Errorf("failed to fetch block %d: %w", number, err)
	}

	block, txs := convertBlock(raw, c.chainID)
	if err := c.store.InsertBlock(ctx, block, txs); err != nil {
		return fmt.Errorf("failed to store block %d: %w", number, err)
	}

	metrics.BlocksCollectedTotal.Inc()
	if c.emitter != nil {
		c.emitter.EmitBlock(block)
	}

	logging.L(ctx).Debug("block recorded",
		"number", block.Number,
		"txs", block.TxCount,
	)
	return nil
}

// convertBlock flattens a raw block into the stored representation.
func convertBlock(raw *types.Block, chainID *big.Int) (*Block, []*Transaction) {
	block := &Block{
		Number:     raw.NumberU64(),
		Hash:       raw.Hash().Hex(),
		ParentHash: raw.ParentHash().Hex(),
		Miner:      raw.Coinbase().Hex(),
		TxCount:    len(raw.Transactions()),
		GasUsed:    raw.GasUsed(),
		GasLimit:   raw.GasLimit(),
		Timestamp:  time.Unix(int64(raw.Time()), 0).UTC(),
	}
	if raw.BaseFee() != nil {
		block.BaseFee = weiToGweiString(raw.BaseFee())
	}

	signer := types.LatestSignerForChainID(chainID)
	txs := make([]*Transaction, 0, len(raw.Transactions()))
	for _, tx := range raw.Transactions() {
		record := &Transaction{
			Hash:        tx.Hash().Hex(),
			BlockNumber: block.Number,
			Value:       weiToEtherString(tx.Value()),
			GasPrice:    weiToGweiString(tx.GasPrice()),
			Nonce:       tx.Nonce(),
			Timestamp:   block.Timestamp,
		}
		if to := tx.To(); to != nil {
			record.ToAddress = strings.ToLower(to.Hex())
		}
		// Sender recovery fails only for transactions signed for another
		// chain; record those with an empty sender rather than dropping them.
		if from, err := types.Sender(signer, tx); err == nil {
			record.FromAddress = strings.ToLower(from.Hex())
		}
		txs = append(txs, record)
	}
	return block, txs
}

func weiToEtherString(wei *big.Int) string {
	return formatScaled(wei, params.Ether, 6)
}

func weiToGweiString(wei *big.Int) string {
	return formatScaled(wei, params.GWei, 2)
}

func formatScaled(wei *big.Int, scale float64, decimals int) string {
	if wei == nil || wei.Sign() == 0 {
		return "0"
	}
	f := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(scale))
	s := f.Text('f', decimals)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	return s
}
