package gasprice

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
)

type fakeGasReader struct {
	mu      sync.Mutex
	price   *big.Int
	tip     *big.Int
	baseFee *big.Int
	err     error
	calls   int
}

func (f *fakeGasReader) SuggestGasPrice(context.Context) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.price, f.err
}

func (f *fakeGasReader) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return f.tip, f.err
}

func (f *fakeGasReader) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &types.Header{BaseFee: f.baseFee, Number: big.NewInt(1)}, nil
}

func (f *fakeGasReader) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func gwei(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e9))
}

func newOracle(t *testing.T, reader GasReader, ttl time.Duration) *Oracle {
	t.Helper()
	o, err := New("", ttl, WithClient(reader))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return o
}

func TestCurrentDerivesTiers(t *testing.T) {
	reader := &fakeGasReader{price: gwei(20), tip: gwei(2), baseFee: gwei(15)}
	o := newOracle(t, reader, time.Minute)

	opt, err := o.Current(context.Background())
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}

	if opt.CurrentGwei != 20 {
		t.Errorf("CurrentGwei = %v, want 20", opt.CurrentGwei)
	}
	if opt.SlowGwei != 20*slowMultiplier {
		t.Errorf("SlowGwei = %v, want %v", opt.SlowGwei, 20*slowMultiplier)
	}
	if opt.FastGwei != 20*fastMultiplier {
		t.Errorf("FastGwei = %v, want %v", opt.FastGwei, 20*fastMultiplier)
	}
	if opt.BaseFeeGwei != 15 {
		t.Errorf("BaseFeeGwei = %v, want 15", opt.BaseFeeGwei)
	}
	if opt.Congestion != "moderate" {
		t.Errorf("Congestion = %q, want moderate", opt.Congestion)
	}
	if opt.Recommendation == "" {
		t.Error("Recommendation should not be empty")
	}
}

func TestCongestionBands(t *testing.T) {
	tests := []struct {
		baseFee float64
		want    string
	}{
		{0, "low"},
		{9.9, "low"},
		{10, "moderate"},
		{29.9, "moderate"},
		{30, "high"},
		{99.9, "high"},
		{100, "extreme"},
		{500, "extreme"},
	}
	for _, tt := range tests {
		if got := congestionLevel(tt.baseFee); got != tt.want {
			t.Errorf("congestionLevel(%v) = %q, want %q", tt.baseFee, got, tt.want)
		}
	}
}

func TestCurrentCachesWithinTTL(t *testing.T) {
	reader := &fakeGasReader{price: gwei(20), tip: gwei(2), baseFee: gwei(5)}
	o := newOracle(t, reader, time.Minute)

	for i := 0; i < 5; i++ {
		if _, err := o.Current(context.Background()); err != nil {
			t.Fatalf("Current failed: %v", err)
		}
	}

	reader.mu.Lock()
	calls := reader.calls
	reader.mu.Unlock()
	if calls != 1 {
		t.Errorf("price fetched %d times within TTL, want 1", calls)
	}
}

func TestCurrentServesStaleOnFailure(t *testing.T) {
	reader := &fakeGasReader{price: gwei(20), tip: gwei(2), baseFee: gwei(5)}
	o := newOracle(t, reader, time.Nanosecond)

	first, err := o.Current(context.Background())
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}

	reader.fail(errors.New("rpc down"))
	time.Sleep(time.Millisecond)

	second, err := o.Current(context.Background())
	if err != nil {
		t.Fatalf("stale reading should be served, got error: %v", err)
	}
	if second != first {
		t.Error("expected the cached reading to be returned")
	}
}

func TestCurrentErrorsWithNothingCached(t *testing.T) {
	reader := &fakeGasReader{}
	reader.fail(errors.New("rpc down"))
	o := newOracle(t, reader, time.Minute)

	if _, err := o.Current(context.Background()); err == nil {
		t.Fatal("expected an error with an empty cache")
	}
}

func TestWeiToGweiNilBaseFee(t *testing.T) {
	if got := weiToGwei(nil); got != 0 {
		t.Errorf("weiToGwei(nil) = %v, want 0", got)
	}
}
