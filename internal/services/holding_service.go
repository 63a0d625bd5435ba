package services

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"stockfolio/internal/date"
	apperrors "stockfolio/internal/errors"
	"stockfolio/internal/holdings"
	"stockfolio/internal/importer"
	"stockfolio/internal/logger"
	"stockfolio/internal/metrics"
	"stockfolio/internal/models"
	"stockfolio/internal/pagination"
	"stockfolio/internal/reference"
	"stockfolio/internal/ticker"
)

// maxImportErrors caps the row errors echoed back by ImportHoldings.
const maxImportErrors = 20

var hundred = decimal.NewFromInt(100)

// holdingService handles holding-related business logic.
type holdingService struct {
	db       *gorm.DB
	catalog  reference.Catalog
	resyncer Resyncer
}

// NewHoldingService creates a new HoldingServicer.
func NewHoldingService(db *gorm.DB, catalog reference.Catalog, resyncer Resyncer) HoldingServicer {
	return &holdingService{db: db, catalog: catalog, resyncer: resyncer}
}

// ImportHoldings recognizes an uploaded broker export, merges its rows into
// lots and upserts them by (ticker, acquisition date). Tickers whose existing
// holdings changed quantity and already have synced entries are resynced.
func (s *holdingService) ImportHoldings(ctx context.Context, userID string, data []byte, filename string) (*ImportResult, error) {
	log := logger.With(ctx)

	doc, err := importer.Detect(data, filename)
	if err != nil {
		if errors.Is(err, importer.ErrNoDataRecognized) {
			appErr := apperrors.WithMessage(apperrors.ErrNoDataRecognized,
				"No holdings could be recognized in the uploaded file: "+importer.SupportedFormatsHint)
			appErr.Internal = err
			return nil, appErr
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	metrics.ImportFormats.WithLabelValues(string(doc.Layout.Format)).Inc()

	agg := holdings.Aggregate(doc.Records())
	metrics.ImportRows.WithLabelValues("ok").Add(float64(agg.RowsRead - agg.RowsFailed))
	metrics.ImportRows.WithLabelValues("failed").Add(float64(agg.RowsFailed))
	for _, key := range agg.Dropped {
		log.Warnw("import group dropped, non-positive quantity", "key", key)
	}

	result := &ImportResult{
		RowsRead:   agg.RowsRead,
		RowsFailed: agg.RowsFailed,
		Errors:     agg.Errors,
		Tickers:    []string{},
		Resynced:   []ResyncResult{},
		Layout:     doc.Layout,
	}
	if len(result.Errors) > maxImportErrors {
		result.Errors = result.Errors[:maxImportErrors]
	}
	if result.Errors == nil {
		result.Errors = []holdings.RowError{}
	}

	var changed []string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, lot := range agg.Lots {
			if !slices.Contains(result.Tickers, lot.Ticker) {
				result.Tickers = append(result.Tickers, lot.Ticker)
			}

			existing, err := findByKey(tx, userID, lot.Ticker, lot.AcquisitionDate)
			if err != nil {
				return err
			}
			if existing == nil {
				h := s.newHolding(userID, lot.Ticker, lot.Name, lot.AcquisitionDate, lot.Quantity, lot.AverageCost)
				if err := tx.Create(h).Error; err != nil {
					return apperrors.Wrap(apperrors.ErrInternalServer, err)
				}
				result.Created++
				continue
			}

			if !existing.Quantity.Equal(lot.Quantity) && !slices.Contains(changed, lot.Ticker) {
				changed = append(changed, lot.Ticker)
			}
			existing.Quantity = lot.Quantity
			existing.AverageCost = lot.AverageCost
			if existing.Name == "" && lot.Name != "" {
				existing.Name = lot.Name
			}
			if err := tx.Save(existing).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			result.Updated++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(changed)
	for _, code := range changed {
		has, err := s.hasSyncedEntries(ctx, userID, code)
		if err != nil {
			return nil, err
		}
		if !has {
			continue
		}
		res, err := s.resyncer.Resync(ctx, userID, code)
		if err != nil {
			log.Warnw("resync after import failed", "ticker", code, "error", err)
		}
		if res != nil {
			result.Resynced = append(result.Resynced, *res)
		}
	}

	log.Infow("holdings imported",
		"user_id", userID,
		"format", doc.Layout.Format,
		"encoding", doc.Layout.Encoding,
		"rows_read", result.RowsRead,
		"rows_failed", result.RowsFailed,
		"created", result.Created,
		"updated", result.Updated,
	)
	return result, nil
}

// CreateHolding adds a single holding.
func (s *holdingService) CreateHolding(ctx context.Context, userID string, in HoldingInput) (*models.Holding, error) {
	code, err := ticker.Canonicalize(in.Ticker)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidTicker, err)
	}
	if !in.Quantity.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Quantity must be greater than zero")
	}
	if in.AverageCost.IsNegative() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Average cost cannot be negative")
	}

	db := s.db.WithContext(ctx)
	existing, err := findByKey(db, userID, code, in.AcquisitionDate)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.ErrDuplicateHolding
	}

	h := s.newHolding(userID, code, in.Name, in.AcquisitionDate, in.Quantity, in.AverageCost.Round(holdings.CostPlaces))
	if in.AssetType != "" {
		h.AssetType = in.AssetType
	}
	if err := db.Create(h).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return h, nil
}

// GetUserHoldings returns a page of a user's holdings ordered by ticker.
func (s *holdingService) GetUserHoldings(ctx context.Context, userID string, page pagination.PageRequest, filter HoldingFilter) (*pagination.PageResponse[models.Holding], error) {
	page.Defaults()

	query := s.db.WithContext(ctx).Model(&models.Holding{}).Where("user_id = ?", userID)
	if filter.Ticker != "" {
		query = query.Where("ticker = ?", strings.ToUpper(filter.Ticker))
	}
	if filter.AssetType != "" {
		query = query.Where("asset_type = ?", filter.AssetType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var rows []models.Holding
	if err := query.Scopes(pagination.Paginate(page)).
		Order("ticker ASC").Order("acquisition_date ASC").
		Find(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	resp := pagination.NewPageResponse(rows, page.Page, page.PageSize, total)
	return &resp, nil
}

// GetHoldingByID returns one of the user's holdings.
func (s *holdingService) GetHoldingByID(ctx context.Context, userID, holdingID string) (*models.Holding, error) {
	var h models.Holding
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", holdingID, userID).First(&h).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrHoldingNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &h, nil
}

// UpdateHolding applies a correction. A change of quantity or acquisition
// date regenerates the ticker's synced distributions.
func (s *holdingService) UpdateHolding(ctx context.Context, userID, holdingID string, upd HoldingUpdate) (*HoldingUpdateResult, error) {
	h, err := s.GetHoldingByID(ctx, userID, holdingID)
	if err != nil {
		return nil, err
	}

	resync := false
	if upd.Quantity != nil {
		if !upd.Quantity.IsPositive() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Quantity must be greater than zero")
		}
		if !upd.Quantity.Equal(h.Quantity) {
			h.Quantity = *upd.Quantity
			resync = true
		}
	}
	if upd.AverageCost != nil {
		if upd.AverageCost.IsNegative() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Average cost cannot be negative")
		}
		h.AverageCost = upd.AverageCost.Round(holdings.CostPlaces)
	}
	if upd.Name != nil {
		h.Name = strings.TrimSpace(*upd.Name)
	}

	newDate := h.AcquisitionDate
	switch {
	case upd.ClearAcquisitionDate:
		newDate = nil
	case upd.AcquisitionDate != nil:
		newDate = upd.AcquisitionDate
	}
	if !sameDate(newDate, h.AcquisitionDate) {
		other, err := findByKey(s.db.WithContext(ctx), userID, h.Ticker, newDate)
		if err != nil {
			return nil, err
		}
		if other != nil && other.ID != h.ID {
			return nil, apperrors.ErrDuplicateHolding
		}
		h.AcquisitionDate = newDate
		resync = true
	}

	if err := s.db.WithContext(ctx).Save(h).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := &HoldingUpdateResult{Holding: h}
	if resync {
		res, err := s.resyncer.Resync(ctx, userID, h.Ticker)
		if err != nil {
			logger.With(ctx).Warnw("resync after update failed", "holding_id", h.ID, "ticker", h.Ticker, "error", err)
		}
		result.DistributionsResynced = res
	}
	return result, nil
}

// DeleteHolding removes a holding together with the entries credited to it.
// Remaining lots of the same ticker are resynced, since an entry shared by
// equal payments may have been credited to the deleted lot.
func (s *holdingService) DeleteHolding(ctx context.Context, userID, holdingID string) (*HoldingDeleteResult, error) {
	h, err := s.GetHoldingByID(ctx, userID, holdingID)
	if err != nil {
		return nil, err
	}

	var remaining int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("user_id = ? AND holding_id = ?", userID, h.ID).
			Delete(&models.DistributionEntry{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Delete(h).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Model(&models.Holding{}).
			Where("user_id = ? AND ticker = ?", userID, h.Ticker).
			Count(&remaining).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &HoldingDeleteResult{}
	if remaining > 0 {
		res, err := s.resyncer.Resync(ctx, userID, h.Ticker)
		if err != nil {
			logger.With(ctx).Warnw("resync after delete failed", "holding_id", h.ID, "ticker", h.Ticker, "error", err)
		}
		result.DistributionsResynced = res
	}
	return result, nil
}

// DeleteAllHoldings removes every holding of a user and their synced entries.
// Manual entries are kept.
func (s *holdingService) DeleteAllHoldings(ctx context.Context, userID string) (int64, error) {
	var deleted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("user_id = ? AND source = ?", userID, models.DistributionSourceSync).
			Delete(&models.DistributionEntry{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		res := tx.Where("user_id = ?", userID).Delete(&models.Holding{})
		if res.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
		}
		deleted = res.RowsAffected
		return nil
	})
	return deleted, err
}

// GetPortfolioSummary totals invested and current value plus distributions.
func (s *holdingService) GetPortfolioSummary(ctx context.Context, userID string) (*PortfolioSummary, error) {
	db := s.db.WithContext(ctx)

	var rows []models.Holding
	if err := db.Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	var amounts []decimal.Decimal
	if err := db.Model(&models.DistributionEntry{}).Where("user_id = ?", userID).
		Pluck("amount", &amounts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	invested, current := decimal.Zero, decimal.Zero
	for i := range rows {
		invested = invested.Add(rows[i].Invested())
		current = current.Add(rows[i].CurrentValue())
	}
	gain := current.Sub(invested)
	pct := decimal.Zero
	if invested.IsPositive() {
		pct = gain.Div(invested).Mul(hundred)
	}

	return &PortfolioSummary{
		TotalInvested:      invested.Round(2),
		TotalCurrent:       current.Round(2),
		TotalGain:          gain.Round(2),
		GainPercent:        pct.Round(2),
		TotalDistributions: decimal.Sum(decimal.Zero, amounts...).Round(2),
		HoldingsCount:      len(rows),
	}, nil
}

func (s *holdingService) newHolding(userID, code, name string, acquired *date.Date, qty, cost decimal.Decimal) *models.Holding {
	h := &models.Holding{
		UserID:          userID,
		Ticker:          code,
		Name:            strings.TrimSpace(name),
		AssetType:       ticker.DetectAssetType(code, s.catalog),
		AcquisitionDate: acquired,
		Quantity:        qty,
		AverageCost:     cost,
	}
	if h.Name == "" && s.catalog != nil {
		if in, ok := s.catalog.Lookup(code); ok {
			h.Name = in.Name
		}
	}
	if h.Name == "" {
		h.Name = code
	}
	return h
}

func (s *holdingService) hasSyncedEntries(ctx context.Context, userID, code string) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.DistributionEntry{}).
		Where("user_id = ? AND ticker = ? AND source = ?", userID, code, models.DistributionSourceSync).
		Count(&n).Error; err != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return n > 0, nil
}

// findByKey returns the holding with the exact (ticker, date) key, or nil.
// A nil date only matches undated holdings.
func findByKey(db *gorm.DB, userID, code string, acquired *date.Date) (*models.Holding, error) {
	query := db.Where("user_id = ? AND ticker = ?", userID, code)
	if acquired == nil {
		query = query.Where("acquisition_date IS NULL")
	} else {
		query = query.Where("acquisition_date = ?", *acquired)
	}

	var h models.Holding
	if err := query.First(&h).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &h, nil
}

func sameDate(a, b *date.Date) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
