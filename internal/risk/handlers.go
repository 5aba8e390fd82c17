package risk

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmarsh/chainboard/internal/logging"
)

// AssessmentEventEmitter receives completed assessments for real-time delivery.
type AssessmentEventEmitter interface {
	EmitAssessment(assessment *Assessment)
}

// Handler provides the HTTP surface for risk assessment.
type Handler struct {
	engine *Engine
	events AssessmentEventEmitter
}

// NewHandler creates a new risk handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// WithEvents adds an event emitter for completed assessments.
func (h *Handler) WithEvents(events AssessmentEventEmitter) *Handler {
	h.events = events
	return h
}

// RegisterRoutes sets up the risk routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/risk/assess", h.AssessTransaction)
}

// AssessTransaction handles POST /v1/risk/assess.
//
// A missing toAddress is the caller's fault (400); a collaborator failure
// during the mandatory lookups is a server-side failure (502) carrying the
// underlying message. Advisor outages never surface here - the engine
// absorbs them into fallback advice.
func (h *Handler) AssessTransaction(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}

	assessment, err := h.engine.Assess(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, ErrMissingToAddress) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "toAddress is required"})
			return
		}

		var analysisErr *AnalysisError
		if errors.As(err, &analysisErr) {
			c.JSON(http.StatusBadGateway, gin.H{
				"error":   "analysis failed",
				"details": analysisErr.Error(),
			})
			return
		}

		logging.L(c.Request.Context()).Error("risk assessment failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "assessment failed"})
		return
	}

	if h.events != nil {
		h.events.EmitAssessment(assessment)
	}

	c.JSON(http.StatusOK, assessment)
}
