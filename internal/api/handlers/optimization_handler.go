package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/cbmdev/refopt/internal/batch"
	"github.com/cbmdev/refopt/internal/domain"
	"github.com/cbmdev/refopt/internal/service"
)

type OptimizationHandler struct {
	service *service.OptimizationService
	runner  *batch.Runner
}

func NewOptimizationHandler(service *service.OptimizationService, runner *batch.Runner) *OptimizationHandler {
	return &OptimizationHandler{service: service, runner: runner}
}

// EvaluateGroups handles POST /api/v1/optimization/groups.
func (h *OptimizationHandler) EvaluateGroups(c *gin.Context) {
	var req domain.OptimizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if req.IsEmpty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request must carry a grouping_id, refint or product_ids"})
		return
	}

	resp, err := h.service.EvaluateGroups(c.Request.Context(), &req)
	if err != nil {
		log.Error().Err(err).Msg("group evaluation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "evaluation failed"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

type batchRequest struct {
	Policy string `json:"policy"`
}

// RunBatch handles POST /api/v1/optimization/batch.
func (h *OptimizationHandler) RunBatch(c *gin.Context) {
	if h.runner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "batch runner not configured"})
		return
	}

	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	policy := batch.PolicyAll
	switch req.Policy {
	case "", string(batch.PolicyAll):
	case string(batch.PolicyMissing):
		policy = batch.PolicyMissing
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "policy must be 'all' or 'missing'"})
		return
	}

	report, err := h.runner.Run(c.Request.Context(), policy)
	if err != nil {
		log.Error().Err(err).Msg("batch run failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "batch run failed"})
		return
	}

	c.JSON(http.StatusOK, report)
}
