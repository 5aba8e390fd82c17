package chaindata

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dmarsh/chainboard/internal/logging"
)

// Handler provides the HTTP surface for recorded chain activity.
type Handler struct {
	store Store
}

// NewHandler creates a new chain data handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes sets up the chain data routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/transactions", h.ListTransactions)
	r.GET("/blocks", h.ListBlocks)
	r.GET("/network/stats", h.NetworkStats)
}

// ListTransactions handles GET /v1/transactions?limit=n.
func (h *Handler) ListTransactions(c *gin.Context) {
	txs, err := h.store.RecentTransactions(c.Request.Context(), limitParam(c))
	if err != nil {
		logging.L(c.Request.Context()).Error("failed to list transactions", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list transactions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs, "count": len(txs)})
}

// ListBlocks handles GET /v1/blocks?limit=n.
func (h *Handler) ListBlocks(c *gin.Context) {
	blocks, err := h.store.RecentBlocks(c.Request.Context(), limitParam(c))
	if err != nil {
		logging.L(c.Request.Context()).Error("failed to list blocks", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list blocks"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"blocks": blocks, "count": len(blocks)})
}

// NetworkStats handles GET /v1/network/stats.
func (h *Handler) NetworkStats(c *gin.Context) {
	stats, err := h.store.Stats(c.Request.Context())
	if err != nil {
		logging.L(c.Request.Context()).Error("failed to compute network stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute network stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func limitParam(c *gin.Context) int {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	return ClampLimit(limit)
}
