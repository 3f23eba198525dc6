// README: Admin handlers for the rate-table cache and validation.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"coachquote/internal/modules/ratetable"
)

type Invalidator interface {
	Invalidate(ctx context.Context) error
}

type RateTableHandler struct {
	source ratetable.Source
	cache  Invalidator
}

// NewRateTableHandler validates whatever source reads; callers pass the store, not the
// cache in front of it. cache may be nil when rate tables come from a file.
func NewRateTableHandler(source ratetable.Source, cache Invalidator) *RateTableHandler {
	return &RateTableHandler{source: source, cache: cache}
}

// Invalidate handles POST /api/admin/rate-tables/invalidate.
func (h *RateTableHandler) Invalidate(c *gin.Context) {
	if h.cache == nil {
		writeError(c, http.StatusNotImplemented, "no rate-table cache configured")
		return
	}
	if err := h.cache.Invalidate(c.Request.Context()); err != nil {
		_ = c.Error(err)
		writeError(c, http.StatusBadGateway, "cache invalidation failed")
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"invalidated": true})
}

// Validate handles GET /api/admin/rate-tables/validate.
func (h *RateTableHandler) Validate(c *gin.Context) {
	snap, err := h.source.Snapshot(c.Request.Context())
	if errors.Is(err, ratetable.ErrNoSnapshot) {
		writeError(c, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	problems := []string{}
	for _, e := range snap.Validate() {
		problems = append(problems, e.Error())
	}
	writeJSON(c, http.StatusOK, gin.H{
		"version":  snap.Version,
		"valid":    len(problems) == 0,
		"problems": problems,
	})
}
