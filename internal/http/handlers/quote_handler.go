// README: Quote handlers for create/get/send/accept/decline.
package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"coachquote/internal/http/middleware"
	"coachquote/internal/modules/quote"
	"coachquote/internal/types"
)

type QuoteService interface {
	Create(ctx context.Context, cmd quote.CreateCommand) (*quote.Quote, error)
	Get(ctx context.Context, id types.ID) (*quote.Quote, error)
	Send(ctx context.Context, cmd quote.SendCommand) (*quote.Quote, error)
	Accept(ctx context.Context, cmd quote.DecideCommand) (*quote.Quote, error)
	Decline(ctx context.Context, cmd quote.DecideCommand) (*quote.Quote, error)
}

type QuoteHandler struct {
	quotes QuoteService
}

func NewQuoteHandler(svc QuoteService) *QuoteHandler {
	return &QuoteHandler{quotes: svc}
}

type createQuoteReq struct {
	ClientID string `json:"client_id"`
	quote.Request
}

type sendQuoteReq struct {
	Reviewed bool `json:"reviewed"`
}

// Create handles POST /api/quotes (staff only).
func (h *QuoteHandler) Create(c *gin.Context) {
	var req createQuoteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	req.ClientID = strings.TrimSpace(req.ClientID)
	if req.ClientID == "" || strings.TrimSpace(req.CountryCode) == "" {
		writeError(c, http.StatusBadRequest, "missing client_id or country_code")
		return
	}
	q, err := h.quotes.Create(c.Request.Context(), quote.CreateCommand{
		ClientID:  types.ID(req.ClientID),
		CreatedBy: types.ID(middleware.CallerUID(c)),
		Request:   req.Request,
	})
	if err != nil {
		writeQuoteError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, q)
}

// Get handles GET /api/quotes/:id. Clients only see their own quotes.
func (h *QuoteHandler) Get(c *gin.Context) {
	q, ok := h.load(c)
	if !ok {
		return
	}
	writeJSON(c, http.StatusOK, q)
}

// Send handles POST /api/quotes/:id/send (staff only).
func (h *QuoteHandler) Send(c *gin.Context) {
	id, ok := quoteID(c)
	if !ok {
		return
	}
	var req sendQuoteReq
	// The body is optional; chunked requests report ContentLength -1.
	if c.Request.Body != nil && c.Request.Body != http.NoBody {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(c, http.StatusBadRequest, "invalid json")
			return
		}
	}
	q, err := h.quotes.Send(c.Request.Context(), quote.SendCommand{
		QuoteID:  id,
		ActorID:  types.ID(middleware.CallerUID(c)),
		Reviewed: req.Reviewed,
	})
	if err != nil {
		writeQuoteError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, q)
}

// Accept handles POST /api/quotes/:id/accept.
func (h *QuoteHandler) Accept(c *gin.Context) {
	h.decide(c, h.quotes.Accept)
}

// Decline handles POST /api/quotes/:id/decline.
func (h *QuoteHandler) Decline(c *gin.Context) {
	h.decide(c, h.quotes.Decline)
}

func (h *QuoteHandler) decide(c *gin.Context, fn func(context.Context, quote.DecideCommand) (*quote.Quote, error)) {
	existing, ok := h.load(c)
	if !ok {
		return
	}
	q, err := fn(c.Request.Context(), quote.DecideCommand{
		QuoteID: existing.ID,
		ActorID: types.ID(middleware.CallerUID(c)),
	})
	if err != nil {
		writeQuoteError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, q)
}

// load fetches the quote named in the path and enforces client ownership.
func (h *QuoteHandler) load(c *gin.Context) (*quote.Quote, bool) {
	id, ok := quoteID(c)
	if !ok {
		return nil, false
	}
	q, err := h.quotes.Get(c.Request.Context(), id)
	if err != nil {
		writeQuoteError(c, err)
		return nil, false
	}
	if !middleware.IsStaff(c) && string(q.ClientID) != middleware.CallerUID(c) {
		writeError(c, http.StatusForbidden, "forbidden")
		return nil, false
	}
	return q, true
}

func quoteID(c *gin.Context) (types.ID, bool) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid quote id")
		return "", false
	}
	return types.ID(id), true
}
