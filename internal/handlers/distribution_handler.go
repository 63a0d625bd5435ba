package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"stockfolio/internal/date"
	apperrors "stockfolio/internal/errors"
	"stockfolio/internal/pagination"
	"stockfolio/internal/services"
)

// DistributionHandler handles dividend and interest-on-equity requests.
type DistributionHandler struct {
	distributionService services.DistributionServicer
	auditService        services.AuditServicer
}

// NewDistributionHandler creates a new DistributionHandler.
func NewDistributionHandler(distributionService services.DistributionServicer, auditService services.AuditServicer) *DistributionHandler {
	return &DistributionHandler{distributionService: distributionService, auditService: auditService}
}

// CreateDistributionRequest represents the request payload for a manual distribution.
type CreateDistributionRequest struct {
	HoldingID   *string         `json:"holding_id" binding:"omitempty,uuid"`
	Ticker      string          `json:"ticker" binding:"required,ticker"`
	Amount      decimal.Decimal `json:"amount" swaggertype:"string" example:"12.34"`
	PaymentDate string          `json:"payment_date" binding:"required,iso_date"`
	ExDate      string          `json:"ex_date" binding:"omitempty,iso_date"`
	Type        string          `json:"type" binding:"omitempty,distribution_type"`
}

// DistributionListQuery holds the optional filters for listing distributions.
type DistributionListQuery struct {
	Ticker   string `form:"ticker"`
	FromDate string `form:"from_date" binding:"omitempty,iso_date"`
	ToDate   string `form:"to_date" binding:"omitempty,iso_date"`
}

// SyncDistributions handles matching corporate actions against the user's holdings.
// @Summary     Sync distributions
// @Description Fetch corporate actions for every held ticker and create the entries the user is entitled to
// @Tags        distributions
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.SyncResult "Sync summary"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /distributions/sync [post]
func (h *DistributionHandler) SyncDistributions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	h.sync(c, userID)
}

// PipelineSyncDistributions runs a sync on behalf of a user.
// @Summary     Sync distributions (pipeline)
// @Description Run a distribution sync for the given user (pipeline endpoint)
// @Tags        pipeline
// @Produce     json
// @Security    ApiKeyAuth
// @Param       user_id path string true "User ID"
// @Success     200 {object} services.SyncResult "Sync summary"
// @Failure     400 {object} ErrorResponse "Invalid user ID"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     503 {object} ErrorResponse "Pipeline not configured"
// @Router      /pipeline/users/{user_id}/distributions/sync [post]
func (h *DistributionHandler) PipelineSyncDistributions(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("user_id"))
	if userID == "" {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid user_id"))
		return
	}
	h.sync(c, userID)
}

func (h *DistributionHandler) sync(c *gin.Context, userID string) {
	result, err := h.distributionService.Sync(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "SYNC_DISTRIBUTIONS", "distribution", "", c.ClientIP(),
		map[string]any{
			"synced":            result.Synced,
			"skipped":           result.Skipped,
			"tickers_processed": result.TickersProcessed,
			"errors":            len(result.Errors),
		})

	c.JSON(http.StatusOK, result)
}

// GetUserDistributions handles listing distributions.
// @Summary     List distributions
// @Description Get a paginated list of distributions, newest payment first
// @Tags        distributions
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Param       ticker    query string false "Ticker filter"
// @Param       from_date query string false "Earliest payment date (YYYY-MM-DD)"
// @Param       to_date   query string false "Latest payment date (YYYY-MM-DD)"
// @Success     200 {object} pagination.PageResponse[models.DistributionEntry] "Paginated distributions"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /distributions [get]
func (h *DistributionHandler) GetUserDistributions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	var query DistributionListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter := services.DistributionFilter{Ticker: query.Ticker}
	if filter.FromDate, err = parseOptionalDate(query.FromDate, "from_date"); err != nil {
		respondWithError(c, err)
		return
	}
	if filter.ToDate, err = parseOptionalDate(query.ToDate, "to_date"); err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.distributionService.GetUserDistributions(c.Request.Context(), userID, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// CreateDistribution handles recording a distribution by hand.
// @Summary     Create manual distribution
// @Description Record a distribution that the feed does not report. Resyncs never remove it.
// @Tags        distributions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateDistributionRequest true "Distribution details"
// @Success     201 {object} models.DistributionEntry "Distribution created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Holding not found"
// @Failure     409 {object} ErrorResponse "Duplicate distribution"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /distributions [post]
func (h *DistributionHandler) CreateDistribution(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateDistributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	paid, err := date.Parse(req.PaymentDate)
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid payment_date, expected YYYY-MM-DD"))
		return
	}
	exDate, err := parseOptionalDate(req.ExDate, "ex_date")
	if err != nil {
		respondWithError(c, err)
		return
	}

	entry, err := h.distributionService.CreateManualDistribution(c.Request.Context(), userID, services.ManualDistributionInput{
		HoldingID:   req.HoldingID,
		Ticker:      req.Ticker,
		Amount:      req.Amount,
		PaymentDate: paid,
		ExDate:      exDate,
		Type:        req.Type,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "CREATE_DISTRIBUTION", "distribution", entry.ID, c.ClientIP(),
		map[string]any{
			"ticker":       entry.Ticker,
			"amount":       entry.Amount.String(),
			"payment_date": entry.PaymentDate.String(),
		})

	c.JSON(http.StatusCreated, gin.H{"distribution": entry})
}

// DeleteAllDistributions handles deleting every distribution of the user.
// @Summary     Delete all distributions
// @Tags        distributions
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]int64 "Number of distributions deleted"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /distributions [delete]
func (h *DistributionHandler) DeleteAllDistributions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	deleted, err := h.distributionService.DeleteAllDistributions(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "DELETE_ALL_DISTRIBUTIONS", "distribution", "", c.ClientIP(),
		map[string]any{"deleted": deleted})

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// GetDistributionSummary handles the distribution totals.
// @Summary     Distribution summary
// @Description Totals by month and by ticker
// @Tags        distributions
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.DistributionSummary "Distribution summary"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /distributions/summary [get]
func (h *DistributionHandler) GetDistributionSummary(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	summary, err := h.distributionService.GetDistributionSummary(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
