// README: Estimate handler; prices a trip without persisting anything.
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"coachquote/internal/modules/pricing"
)

type Estimator interface {
	Estimate(ctx context.Context, req pricing.EstimateRequest) (pricing.Estimate, error)
}

type EstimateHandler struct {
	pricing Estimator
}

func NewEstimateHandler(svc Estimator) *EstimateHandler {
	return &EstimateHandler{pricing: svc}
}

// Create handles POST /api/estimates.
func (h *EstimateHandler) Create(c *gin.Context) {
	var req pricing.EstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.CountryCode) == "" {
		writeError(c, http.StatusBadRequest, "missing country_code")
		return
	}
	est, err := h.pricing.Estimate(c.Request.Context(), req)
	if err != nil {
		writePricingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, est)
}
