package chaindata

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(store Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(store).RegisterRoutes(r.Group("/v1"))
	return r
}

func seedStore(t *testing.T, store Store, blocks int) {
	t.Helper()
	base := time.Now().UTC()
	for n := 0; n < blocks; n++ {
		block, txs := testBlock(uint64(n+1), 2, base.Add(time.Duration(n)*12*time.Second))
		require.NoError(t, store.InsertBlock(context.Background(), block, txs))
	}
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestListTransactionsEndpoint(t *testing.T) {
	store := NewMemoryStore()
	seedStore(t, store, 5)
	r := newTestRouter(store)

	w := get(r, "/v1/transactions?limit=3")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Transactions []*Transaction `json:"transactions"`
		Count        int            `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Count)
	assert.Len(t, resp.Transactions, 3)
	assert.Equal(t, uint64(5), resp.Transactions[0].BlockNumber)
}

func TestListBlocksEndpoint(t *testing.T) {
	store := NewMemoryStore()
	seedStore(t, store, 5)
	r := newTestRouter(store)

	w := get(r, "/v1/blocks")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Blocks []*Block `json:"blocks"`
		Count  int      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 5, resp.Count)
	assert.Equal(t, uint64(5), resp.Blocks[0].Number)
}

func TestListBlocksClampsLimit(t *testing.T) {
	store := NewMemoryStore()
	seedStore(t, store, MaxLimit+10)
	r := newTestRouter(store)

	w := get(r, "/v1/blocks?limit=100000")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, MaxLimit, resp.Count)
}

func TestNetworkStatsEndpoint(t *testing.T) {
	store := NewMemoryStore()
	seedStore(t, store, 3)
	r := newTestRouter(store)

	w := get(r, "/v1/network/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var stats NetworkStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, uint64(3), stats.LatestBlock)
	assert.Equal(t, 3, stats.TrackedBlocks)
	assert.Equal(t, 6, stats.TrackedTxs)
}

type failingStore struct {
	Store
}

func (failingStore) RecentBlocks(context.Context, int) ([]*Block, error) {
	return nil, errors.New("db down")
}

func TestListBlocksStoreFailure(t *testing.T) {
	r := newTestRouter(failingStore{Store: NewMemoryStore()})

	w := get(r, "/v1/blocks")
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "failed to list blocks", resp["error"])
}
