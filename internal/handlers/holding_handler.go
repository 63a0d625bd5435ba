package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "stockfolio/internal/errors"
	"stockfolio/internal/logger"
	"stockfolio/internal/pagination"
	"stockfolio/internal/services"
)

// HoldingHandler handles holding-related requests.
type HoldingHandler struct {
	holdingService services.HoldingServicer
	auditService   services.AuditServicer
	maxUploadSize  int64
}

// NewHoldingHandler creates a new HoldingHandler. Uploads larger than
// maxUploadSize bytes are rejected.
func NewHoldingHandler(holdingService services.HoldingServicer, auditService services.AuditServicer, maxUploadSize int64) *HoldingHandler {
	return &HoldingHandler{
		holdingService: holdingService,
		auditService:   auditService,
		maxUploadSize:  maxUploadSize,
	}
}

// CreateHoldingRequest represents the request payload for creating a holding.
type CreateHoldingRequest struct {
	Ticker          string          `json:"ticker" binding:"required,ticker"`
	Name            string          `json:"name" binding:"max=200"`
	AssetType       string          `json:"asset_type" binding:"omitempty,asset_type"`
	AcquisitionDate string          `json:"acquisition_date" binding:"omitempty,iso_date"`
	Quantity        decimal.Decimal `json:"quantity" swaggertype:"string" example:"100"`
	AverageCost     decimal.Decimal `json:"average_cost" swaggertype:"string" example:"10.50"`
}

// UpdateHoldingRequest represents the request payload for updating a holding.
// Omitted fields are left unchanged.
type UpdateHoldingRequest struct {
	Name                 *string          `json:"name" binding:"omitempty,max=200"`
	Quantity             *decimal.Decimal `json:"quantity" swaggertype:"string"`
	AverageCost          *decimal.Decimal `json:"average_cost" swaggertype:"string"`
	AcquisitionDate      *string          `json:"acquisition_date" binding:"omitempty,iso_date"`
	ClearAcquisitionDate bool             `json:"clear_acquisition_date"`
}

// HoldingListQuery holds the optional filters for listing holdings.
type HoldingListQuery struct {
	Ticker    string `form:"ticker"`
	AssetType string `form:"asset_type" binding:"omitempty,asset_type"`
}

// ImportHoldings handles a holdings file upload.
// @Summary     Import holdings
// @Description Import a broker CSV or XLSX export. Rows are merged by ticker and acquisition date.
// @Tags        holdings
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       file formData file true "Holdings file (CSV or XLSX)"
// @Success     200 {object} services.ImportResult "Import summary"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     413 {object} ErrorResponse "File too large"
// @Failure     422 {object} ErrorResponse "No data recognized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /holdings/import [post]
func (h *HoldingHandler) ImportHoldings(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "A file must be uploaded in the 'file' field"))
		return
	}
	defer file.Close()

	if h.maxUploadSize > 0 && header.Size > h.maxUploadSize {
		logger.With(c.Request.Context()).Warnw("upload rejected",
			"user_id", userID, "size", header.Size, "limit", h.maxUploadSize)
		respondWithError(c, apperrors.ErrFileTooLarge)
		return
	}

	var reader io.Reader = file
	if h.maxUploadSize > 0 {
		reader = io.LimitReader(file, h.maxUploadSize+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInvalidInput, err))
		return
	}
	if h.maxUploadSize > 0 && int64(len(data)) > h.maxUploadSize {
		respondWithError(c, apperrors.ErrFileTooLarge)
		return
	}

	result, err := h.holdingService.ImportHoldings(c.Request.Context(), userID, data, header.Filename)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "IMPORT_HOLDINGS", "holding", "", c.ClientIP(),
		map[string]any{
			"filename":    header.Filename,
			"created":     result.Created,
			"updated":     result.Updated,
			"rows_failed": result.RowsFailed,
			"resynced":    len(result.Resynced),
		})

	c.JSON(http.StatusOK, result)
}

// CreateHolding handles creating a single holding.
// @Summary     Create holding
// @Description Create a holding lot for a ticker and optional acquisition date
// @Tags        holdings
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateHoldingRequest true "Holding details"
// @Success     201 {object} models.Holding "Holding created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     409 {object} ErrorResponse "Duplicate holding"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /holdings [post]
func (h *HoldingHandler) CreateHolding(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateHoldingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	acquired, err := parseOptionalDate(req.AcquisitionDate, "acquisition_date")
	if err != nil {
		respondWithError(c, err)
		return
	}

	holding, err := h.holdingService.CreateHolding(c.Request.Context(), userID, services.HoldingInput{
		Ticker:          req.Ticker,
		Name:            req.Name,
		AssetType:       req.AssetType,
		AcquisitionDate: acquired,
		Quantity:        req.Quantity,
		AverageCost:     req.AverageCost,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "CREATE_HOLDING", "holding", holding.ID, c.ClientIP(),
		map[string]any{"ticker": holding.Ticker, "quantity": holding.Quantity.String()})

	c.JSON(http.StatusCreated, gin.H{"holding": holding})
}

// GetUserHoldings handles listing the user's holdings.
// @Summary     List holdings
// @Description Get a paginated list of holdings, optionally filtered by ticker or asset type
// @Tags        holdings
// @Produce     json
// @Security    BearerAuth
// @Param       page       query int    false "Page number (default 1)"
// @Param       page_size  query int    false "Items per page (default 20, max 100)"
// @Param       ticker     query string false "Ticker filter"
// @Param       asset_type query string false "Asset type filter"
// @Success     200 {object} pagination.PageResponse[models.Holding] "Paginated holdings"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /holdings [get]
func (h *HoldingHandler) GetUserHoldings(c *gin.Context) {
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
	var query HoldingListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.holdingService.GetUserHoldings(c.Request.Context(), userID, page, services.HoldingFilter{
		Ticker:    query.Ticker,
		AssetType: query.AssetType,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetHolding handles retrieving a specific holding.
// @Summary     Get holding by ID
// @Tags        holdings
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Holding ID"
// @Success     200 {object} models.Holding "Holding details"
// @Failure     400 {object} ErrorResponse "Invalid holding ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Holding not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /holdings/{id} [get]
func (h *HoldingHandler) GetHolding(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	holdingID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	holding, err := h.holdingService.GetHoldingByID(c.Request.Context(), userID, holdingID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"holding": holding})
}

// UpdateHolding handles updating a holding. Changing quantity or acquisition
// date regenerates the ticker's synced distributions.
// @Summary     Update holding
// @Tags        holdings
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string               true "Holding ID"
// @Param       request body UpdateHoldingRequest true "Fields to change"
// @Success     200 {object} services.HoldingUpdateResult "Updated holding and resync outcome"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Holding not found"
// @Failure     409 {object} ErrorResponse "Duplicate holding"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /holdings/{id} [put]
func (h *HoldingHandler) UpdateHolding(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	holdingID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateHoldingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	upd := services.HoldingUpdate{
		Name:                 req.Name,
		Quantity:             req.Quantity,
		AverageCost:          req.AverageCost,
		ClearAcquisitionDate: req.ClearAcquisitionDate,
	}
	if req.AcquisitionDate != nil {
		upd.AcquisitionDate, err = parseOptionalDate(*req.AcquisitionDate, "acquisition_date")
		if err != nil {
			respondWithError(c, err)
			return
		}
	}

	result, err := h.holdingService.UpdateHolding(c.Request.Context(), userID, holdingID, upd)
	if err != nil {
		respondWithError(c, err)
		return
	}

	changes := map[string]any{"ticker": result.Holding.Ticker}
	if req.Quantity != nil {
		changes["quantity"] = req.Quantity.String()
	}
	if upd.AcquisitionDate != nil {
		changes["acquisition_date"] = upd.AcquisitionDate.String()
	}
	if req.ClearAcquisitionDate {
		changes["acquisition_date"] = nil
	}
	if result.DistributionsResynced != nil {
		changes["resynced"] = result.DistributionsResynced.Synced
	}
	h.auditService.Log(c.Request.Context(), userID, "UPDATE_HOLDING", "holding", holdingID, c.ClientIP(), changes)

	c.JSON(http.StatusOK, result)
}

// DeleteHolding handles deleting a holding and its synced distributions. The
// response carries distributions_resynced when other lots of the ticker remain.
// @Summary     Delete holding
// @Tags        holdings
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Holding ID"
// @Success     200 {object} map[string]interface{} "Holding deleted"
// @Failure     400 {object} ErrorResponse "Invalid holding ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Holding not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /holdings/{id} [delete]
func (h *HoldingHandler) DeleteHolding(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	holdingID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.holdingService.DeleteHolding(c.Request.Context(), userID, holdingID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	body := gin.H{"message": "Holding deleted successfully"}
	var changes map[string]any
	if res := result.DistributionsResynced; res != nil {
		body["distributions_resynced"] = res
		changes = map[string]any{"resynced": res.Synced}
	}
	h.auditService.Log(c.Request.Context(), userID, "DELETE_HOLDING", "holding", holdingID, c.ClientIP(), changes)

	c.JSON(http.StatusOK, body)
}

// DeleteAllHoldings handles deleting every holding of the user.
// @Summary     Delete all holdings
// @Tags        holdings
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]int64 "Number of holdings deleted"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /holdings [delete]
func (h *HoldingHandler) DeleteAllHoldings(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	deleted, err := h.holdingService.DeleteAllHoldings(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "DELETE_ALL_HOLDINGS", "holding", "", c.ClientIP(),
		map[string]any{"deleted": deleted})

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// GetPortfolioSummary handles the portfolio totals.
// @Summary     Portfolio summary
// @Description Invested and current value, gain and received distributions
// @Tags        portfolio
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.PortfolioSummary "Portfolio summary"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /portfolio/summary [get]
func (h *HoldingHandler) GetPortfolioSummary(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	summary, err := h.holdingService.GetPortfolioSummary(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
