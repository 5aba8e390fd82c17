package gasprice

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmarsh/chainboard/internal/logging"
)

// Handler provides the HTTP surface for gas conditions.
type Handler struct {
	oracle *Oracle
}

// NewHandler creates a new gas price handler.
func NewHandler(oracle *Oracle) *Handler {
	return &Handler{oracle: oracle}
}

// RegisterRoutes sets up the gas routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/gas/prices", h.GetPrices)
}

// GetPrices handles GET /v1/gas/prices.
func (h *Handler) GetPrices(c *gin.Context) {
	opt, err := h.oracle.Current(c.Request.Context())
	if err != nil {
		logging.L(c.Request.Context()).Error("failed to read gas prices", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "failed to read gas prices",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, opt)
}
