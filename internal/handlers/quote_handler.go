package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stockfolio/internal/services"
)

// QuoteHandler handles price refreshes and instrument lookups.
type QuoteHandler struct {
	quoteService services.QuoteServicer
	auditService services.AuditServicer
}

// NewQuoteHandler creates a new QuoteHandler.
func NewQuoteHandler(quoteService services.QuoteServicer, auditService services.AuditServicer) *QuoteHandler {
	return &QuoteHandler{quoteService: quoteService, auditService: auditService}
}

// RefreshPrices handles a bulk quote refresh of the user's holdings.
// @Summary     Refresh prices
// @Description Resolve a quote for every held ticker and store it on the holdings
// @Tags        holdings
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.RefreshResult "Refresh summary"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /holdings/refresh-prices [post]
func (h *QuoteHandler) RefreshPrices(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.quoteService.RefreshPrices(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "REFRESH_PRICES", "holding", "", c.ClientIP(),
		map[string]any{"updated": result.Updated, "tickers": result.Tickers, "errors": len(result.Errors)})

	c.JSON(http.StatusOK, result)
}

// GetInstrument handles an instrument lookup.
// @Summary     Get instrument
// @Description Reference data and current quote for a ticker
// @Tags        instruments
// @Produce     json
// @Security    BearerAuth
// @Param       ticker path string true "Ticker"
// @Success     200 {object} services.InstrumentQuote "Instrument and quote"
// @Failure     400 {object} ErrorResponse "Invalid ticker"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Instrument not found"
// @Router      /instruments/{ticker} [get]
func (h *QuoteHandler) GetInstrument(c *gin.Context) {
	result, err := h.quoteService.GetInstrument(c.Request.Context(), c.Param("ticker"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
