// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"coachquote/internal/maps"
	"coachquote/internal/modules/fleet"
	"coachquote/internal/modules/pricing"
	"coachquote/internal/modules/quote"
	"coachquote/internal/modules/ratetable"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// isValidID ensures IDs are hex and 32 chars (matches current ID generator).
func isValidID(v string) bool {
	if len(v) != 32 {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') {
			continue
		}
		return false
	}
	return true
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writePricingError maps engine failures: caller input problems are 400/422, rate-table
// gaps are 409 so the maintainer gets told rather than the client.
func writePricingError(c *gin.Context, err error) {
	kind := pricing.ErrorKind(err)
	switch {
	case errors.Is(err, pricing.ErrInvalidDistance), errors.Is(err, fleet.ErrInvalidPassengerCount):
		writeJSON(c, http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: kind})
	case errors.Is(err, pricing.ErrUnsupportedDuration):
		writeJSON(c, http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Kind: kind})
	case errors.Is(err, ratetable.ErrNoSnapshot):
		writeError(c, http.StatusServiceUnavailable, "rate tables not loaded")
	case pricing.IsConfigurationError(err):
		writeJSON(c, http.StatusConflict, errorResponse{
			Error: err.Error() + "; contact the rate-table maintainer",
			Kind:  kind,
		})
	default:
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writeQuoteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, quote.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, quote.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, quote.ErrInvalidState), errors.Is(err, quote.ErrConflict), errors.Is(err, quote.ErrNeedsReview):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, quote.ErrExpired):
		writeError(c, http.StatusGone, err.Error())
	case errors.Is(err, maps.ErrNoRoute):
		writeError(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, quote.ErrRoutingUnavailable):
		writeError(c, http.StatusBadRequest, err.Error())
	default:
		writePricingError(c, err)
	}
}
