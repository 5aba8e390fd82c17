package chaindata

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

type fakeBlockReader struct {
	mu     sync.Mutex
	head   uint64
	blocks map[uint64]*types.Block
}

func (f *fakeBlockReader) BlockNumber(context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.head, nil
}

func (f *fakeBlockReader) BlockByNumber(_ context.Context, number *big.Int) (*types.Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blocks[number.Uint64()], nil
}

func (f *fakeBlockReader) advance(block *types.Block) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.head = block.NumberU64()
	f.blocks[f.head] = block
}

func rawBlock(t *testing.T, number uint64, txCount int) *types.Block {
	t.Helper()

	header := &types.Header{
		Number:   new(big.Int).SetUint64(number),
		GasLimit: 30_000_000,
		GasUsed:  15_000_000,
		Time:     uint64(time.Now().Unix()),
		BaseFee:  big.NewInt(12_500_000_000), // 12.5 gwei
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	signer := types.LatestSignerForChainID(big.NewInt(1))
	to := common.HexToAddress("0x2222222222222222222222222222222222222222")

	var txs []*types.Transaction
	for i := 0; i < txCount; i++ {
		tx := types.MustSignNewTx(key, signer, &types.LegacyTx{
			Nonce:    uint64(i),
			To:       &to,
			Value:    big.NewInt(5e17), // 0.5 ether
			Gas:      21000,
			GasPrice: big.NewInt(20_000_000_000), // 20 gwei
		})
		txs = append(txs, tx)
	}

	return types.NewBlockWithHeader(header).WithBody(types.Body{Transactions: txs})
}

func newTestCollector(t *testing.T, reader BlockReader, store Store, opts ...CollectorOption) *Collector {
	t.Helper()
	opts = append([]CollectorOption{WithBlockReader(reader)}, opts...)
	c, err := NewCollector("", 1, store, time.Hour, opts...)
	if err != nil {
		t.Fatalf("NewCollector failed: %v", err)
	}
	return c
}

func TestConvertBlock(t *testing.T) {
	raw := rawBlock(t, 7, 2)
	block, txs := convertBlock(raw, big.NewInt(1))

	if block.Number != 7 {
		t.Errorf("Number = %d, want 7", block.Number)
	}
	if block.TxCount != 2 {
		t.Errorf("TxCount = %d, want 2", block.TxCount)
	}
	if block.BaseFee != "12.5" {
		t.Errorf("BaseFee = %q, want 12.5", block.BaseFee)
	}
	if len(txs) != 2 {
		t.Fatalf("got %d txs, want 2", len(txs))
	}

	tx := txs[0]
	if tx.BlockNumber != 7 {
		t.Errorf("tx.BlockNumber = %d, want 7", tx.BlockNumber)
	}
	if tx.Value != "0.5" {
		t.Errorf("tx.Value = %q, want 0.5", tx.Value)
	}
	if tx.GasPrice != "20" {
		t.Errorf("tx.GasPrice = %q, want 20", tx.GasPrice)
	}
	if tx.ToAddress != "0x2222222222222222222222222222222222222222" {
		t.Errorf("tx.ToAddress = %q", tx.ToAddress)
	}
	if tx.FromAddress == "" {
		t.Error("sender should be recovered from the signature")
	}
}

func TestCollectRecordsNewBlocks(t *testing.T) {
	reader := &fakeBlockReader{head: 100, blocks: map[uint64]*types.Block{}}
	store := NewMemoryStore()
	c := newTestCollector(t, reader, store)
	ctx := context.Background()

	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer c.Stop()

	// Nothing new yet.
	if err := c.collect(ctx); err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	if _, err := store.LatestBlockNumber(ctx); err == nil {
		t.Fatal("no block should be recorded before the head moves")
	}

	reader.advance(rawBlock(t, 101, 1))
	reader.advance(rawBlock(t, 102, 3))

	if err := c.collect(ctx); err != nil {
		t.Fatalf("collect failed: %v", err)
	}

	latest, err := store.LatestBlockNumber(ctx)
	if err != nil || latest != 102 {
		t.Fatalf("LatestBlockNumber = %d, %v; want 102", latest, err)
	}
	blocks, _ := store.RecentBlocks(ctx, 10)
	if len(blocks) != 2 {
		t.Errorf("got %d blocks, want 2", len(blocks))
	}
	txs, _ := store.RecentTransactions(ctx, 10)
	if len(txs) != 4 {
		t.Errorf("got %d txs, want 4", len(txs))
	}
}

type recordingEmitter struct {
	mu     sync.Mutex
	blocks []*Block
}

func (r *recordingEmitter) EmitBlock(b *Block) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocks = append(r.blocks, b)
}

func TestCollectEmitsBlocks(t *testing.T) {
	reader := &fakeBlockReader{head: 10, blocks: map[uint64]*types.Block{}}
	emitter := &recordingEmitter{}
	c := newTestCollector(t, reader, NewMemoryStore(), WithEmitter(emitter))
	ctx := context.Background()

	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer c.Stop()

	reader.advance(rawBlock(t, 11, 0))
	if err := c.collect(ctx); err != nil {
		t.Fatalf("collect failed: %v", err)
	}

	emitter.mu.Lock()
	defer emitter.mu.Unlock()
	if len(emitter.blocks) != 1 || emitter.blocks[0].Number != 11 {
		t.Errorf("emitted = %+v, want one block number 11", emitter.blocks)
	}
}

func TestCollectSkipsLongGaps(t *testing.T) {
	reader := &fakeBlockReader{head: 100, blocks: map[uint64]*types.Block{}}
	store := NewMemoryStore()
	c := newTestCollector(t, reader, store)
	ctx := context.Background()

	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer c.Stop()

	// Fall far behind; only the most recent window should be fetched.
	for n := uint64(101); n <= 200; n++ {
		reader.advance(rawBlock(t, n, 0))
	}
	if err := c.collect(ctx); err != nil {
		t.Fatalf("collect failed: %v", err)
	}

	blocks, _ := store.RecentBlocks(ctx, MaxLimit)
	if len(blocks) != maxCatchupBlocks {
		t.Errorf("got %d blocks, want %d", len(blocks), maxCatchupBlocks)
	}
	if blocks[0].Number != 200 {
		t.Errorf("newest recorded = %d, want 200", blocks[0].Number)
	}
}
