package services

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"stockfolio/internal/date"
	"stockfolio/internal/entitlement"
	apperrors "stockfolio/internal/errors"
	"stockfolio/internal/feed"
	"stockfolio/internal/logger"
	"stockfolio/internal/metrics"
	"stockfolio/internal/models"
	"stockfolio/internal/pagination"
	"stockfolio/internal/ticker"
)

// maxSyncEntries caps the entries echoed back by Sync.
const maxSyncEntries = 10

// distributionService handles distribution-related business logic.
type distributionService struct {
	db   *gorm.DB
	feed feed.Feed
}

// NewDistributionService creates a new DistributionServicer.
func NewDistributionService(db *gorm.DB, f feed.Feed) DistributionServicer {
	return &distributionService{db: db, feed: f}
}

// Sync matches every held ticker's corporate actions against the user's
// holdings and records the entries that do not exist yet. A failing ticker
// is reported in Errors and does not stop the others.
func (s *distributionService) Sync(ctx context.Context, userID string) (*SyncResult, error) {
	log := logger.With(ctx)

	byTicker, tickers, err := s.holdingsByTicker(ctx, s.db, userID, "")
	if err != nil {
		return nil, err
	}

	seen, err := loadKeys(ctx, s.db, userID, "")
	if err != nil {
		return nil, err
	}

	result := &SyncResult{
		Errors:  map[string]string{},
		Entries: []models.DistributionEntry{},
	}
	for _, code := range tickers {
		actions, err := s.fetch(ctx, code)
		if err != nil {
			log.Warnw("corporate action fetch failed", "ticker", code, "error", err)
			result.Errors[code] = err.Error()
			continue
		}
		if len(actions) == 0 {
			continue
		}
		result.TickersProcessed++

		plan := entitlement.Reconcile(code, actions, byTicker[code], seen)
		entries := toEntries(userID, plan.Create)
		if err := createEntries(ctx, s.db, entries); err != nil {
			log.Errorw("failed to store distributions", "ticker", code, "error", err)
			result.Errors[code] = "failed to store distributions"
			continue
		}

		result.Synced += len(entries)
		result.Skipped += plan.Skipped()
		for _, e := range entries {
			if len(result.Entries) == maxSyncEntries {
				break
			}
			result.Entries = append(result.Entries, e)
		}
	}

	metrics.DistributionOutcomes.WithLabelValues("synced").Add(float64(result.Synced))
	metrics.DistributionOutcomes.WithLabelValues("skipped").Add(float64(result.Skipped))
	metrics.DistributionOutcomes.WithLabelValues("error").Add(float64(len(result.Errors)))
	log.Infow("distributions synced",
		"user_id", userID,
		"tickers", len(tickers),
		"synced", result.Synced,
		"skipped", result.Skipped,
		"errors", len(result.Errors),
	)
	return result, nil
}

// Resync deletes and regenerates the synced entries of one ticker. The feed
// is queried first; when it fails nothing is deleted and the returned result
// carries the error alongside the returned AppError.
func (s *distributionService) Resync(ctx context.Context, userID, code string) (*ResyncResult, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	result := &ResyncResult{Ticker: code}
	log := logger.With(ctx)

	actions, err := s.fetch(ctx, code)
	if err != nil {
		metrics.Resyncs.WithLabelValues("failed").Inc()
		log.Warnw("resync aborted, feed unavailable", "ticker", code, "error", err)
		result.Error = err.Error()
		return result, apperrors.Wrap(apperrors.ErrFeedUnavailable, err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		del := tx.Unscoped().
			Where("user_id = ? AND ticker = ? AND source = ?", userID, code, models.DistributionSourceSync).
			Delete(&models.DistributionEntry{})
		if del.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, del.Error)
		}
		result.Deleted = del.RowsAffected

		byTicker, _, err := s.holdingsByTicker(ctx, tx, userID, code)
		if err != nil {
			return err
		}
		seen, err := loadKeys(ctx, tx, userID, code)
		if err != nil {
			return err
		}

		plan := entitlement.Reconcile(code, actions, byTicker[code], seen)
		entries := toEntries(userID, plan.Create)
		if err := createEntries(ctx, tx, entries); err != nil {
			return err
		}
		result.Synced = len(entries)
		result.Skipped = plan.Skipped()
		return nil
	})
	if err != nil {
		metrics.Resyncs.WithLabelValues("failed").Inc()
		result.Deleted, result.Synced, result.Skipped = 0, 0, 0
		result.Error = "failed to regenerate distributions"
		return result, err
	}

	metrics.Resyncs.WithLabelValues("ok").Inc()
	log.Infow("distributions resynced",
		"user_id", userID,
		"ticker", code,
		"deleted", result.Deleted,
		"synced", result.Synced,
		"skipped", result.Skipped,
	)
	return result, nil
}

// GetUserDistributions returns a page of a user's entries, newest payment first.
func (s *distributionService) GetUserDistributions(ctx context.Context, userID string, page pagination.PageRequest, filter DistributionFilter) (*pagination.PageResponse[models.DistributionEntry], error) {
	page.Defaults()

	query := s.db.WithContext(ctx).Model(&models.DistributionEntry{}).Where("user_id = ?", userID)
	if filter.Ticker != "" {
		query = query.Where("ticker = ?", strings.ToUpper(filter.Ticker))
	}
	if filter.FromDate != nil {
		query = query.Where("payment_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("payment_date <= ?", *filter.ToDate)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var entries []models.DistributionEntry
	if err := query.Scopes(pagination.Paginate(page)).
		Order("payment_date DESC").Order("ticker ASC").
		Find(&entries).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	resp := pagination.NewPageResponse(entries, page.Page, page.PageSize, total)
	return &resp, nil
}

// GetDistributionSummary totals a user's entries by month and by ticker.
func (s *distributionService) GetDistributionSummary(ctx context.Context, userID string) (*DistributionSummary, error) {
	var entries []models.DistributionEntry
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&entries).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	byMonth := map[string]decimal.Decimal{}
	byTicker := map[string]decimal.Decimal{}
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Amount)
		month := e.PaymentDate.YearMonth()
		byMonth[month] = byMonth[month].Add(e.Amount)
		byTicker[e.Ticker] = byTicker[e.Ticker].Add(e.Amount)
	}

	summary := &DistributionSummary{
		Total:    total.Round(entitlement.AmountPlaces),
		Count:    len(entries),
		ByMonth:  make([]MonthAmount, 0, len(byMonth)),
		ByTicker: make([]TickerAmount, 0, len(byTicker)),
	}
	for month, amount := range byMonth {
		summary.ByMonth = append(summary.ByMonth, MonthAmount{Month: month, Amount: amount.Round(entitlement.AmountPlaces)})
	}
	slices.SortFunc(summary.ByMonth, func(a, b MonthAmount) int { return cmp.Compare(a.Month, b.Month) })

	for code, amount := range byTicker {
		summary.ByTicker = append(summary.ByTicker, TickerAmount{Ticker: code, Amount: amount.Round(entitlement.AmountPlaces)})
	}
	slices.SortFunc(summary.ByTicker, func(a, b TickerAmount) int {
		if c := b.Amount.Cmp(a.Amount); c != 0 {
			return c
		}
		return cmp.Compare(a.Ticker, b.Ticker)
	})

	return summary, nil
}

// CreateManualDistribution records a hand-entered entry, subject to the same
// (ticker, payment date, amount) uniqueness as synced entries.
func (s *distributionService) CreateManualDistribution(ctx context.Context, userID string, in ManualDistributionInput) (*models.DistributionEntry, error) {
	code, err := ticker.Canonicalize(in.Ticker)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidTicker, err)
	}
	amount := in.Amount.Round(entitlement.AmountPlaces)
	if !amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Amount must be greater than zero")
	}
	typ := in.Type
	if typ == "" {
		typ = string(entitlement.TypeDividend)
	}

	db := s.db.WithContext(ctx)
	if in.HoldingID != nil {
		var h models.Holding
		if err := db.Where("id = ? AND user_id = ?", *in.HoldingID, userID).First(&h).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.ErrHoldingNotFound
			}
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if h.Ticker != code {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Holding does not match ticker "+code)
		}
	}

	seen, err := loadKeys(ctx, db, userID, code)
	if err != nil {
		return nil, err
	}
	if seen.Has(entitlement.KeyOf(code, in.PaymentDate, amount)) {
		return nil, apperrors.ErrDuplicateDistribution
	}

	entry := &models.DistributionEntry{
		UserID:      userID,
		HoldingID:   in.HoldingID,
		Ticker:      code,
		Amount:      amount,
		PaymentDate: in.PaymentDate,
		ExDate:      in.ExDate,
		Type:        typ,
		Source:      models.DistributionSourceManual,
	}
	if err := db.Create(entry).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return entry, nil
}

// DeleteAllDistributions removes every entry of a user.
func (s *distributionService) DeleteAllDistributions(ctx context.Context, userID string) (int64, error) {
	res := s.db.WithContext(ctx).Unscoped().Where("user_id = ?", userID).Delete(&models.DistributionEntry{})
	if res.Error != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	return res.RowsAffected, nil
}

func (s *distributionService) fetch(ctx context.Context, code string) ([]feed.CorporateAction, error) {
	start := time.Now()
	defer func() { metrics.FeedDuration.Observe(time.Since(start).Seconds()) }()
	return s.feed.Fetch(ctx, code)
}

// holdingsByTicker loads a user's holdings grouped by ticker, optionally for
// one ticker only. Tickers are returned sorted.
func (s *distributionService) holdingsByTicker(ctx context.Context, db *gorm.DB, userID, code string) (map[string][]entitlement.Holding, []string, error) {
	query := db.WithContext(ctx).Where("user_id = ?", userID)
	if code != "" {
		query = query.Where("ticker = ?", code)
	}

	var rows []models.Holding
	if err := query.Order("ticker ASC").Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	grouped := make(map[string][]entitlement.Holding)
	var tickers []string
	for _, h := range rows {
		if _, ok := grouped[h.Ticker]; !ok {
			tickers = append(tickers, h.Ticker)
		}
		grouped[h.Ticker] = append(grouped[h.Ticker], entitlement.Holding{
			ID:              h.ID,
			AcquisitionDate: h.AcquisitionDate,
			Quantity:        h.Quantity,
		})
	}
	slices.Sort(tickers)
	return grouped, tickers, nil
}

// loadKeys collects the dedup keys of a user's stored entries.
func loadKeys(ctx context.Context, db *gorm.DB, userID, code string) (entitlement.KeySet, error) {
	type keyRow struct {
		Ticker      string
		PaymentDate date.Date
		Amount      decimal.Decimal
	}

	query := db.WithContext(ctx).Model(&models.DistributionEntry{}).
		Select("ticker, payment_date, amount").
		Where("user_id = ?", userID)
	if code != "" {
		query = query.Where("ticker = ?", code)
	}

	var rows []keyRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	seen := make(entitlement.KeySet, len(rows))
	for _, r := range rows {
		seen.Add(entitlement.KeyOf(r.Ticker, r.PaymentDate, r.Amount))
	}
	return seen, nil
}

func toEntries(userID string, planned []entitlement.Entitlement) []models.DistributionEntry {
	entries := make([]models.DistributionEntry, 0, len(planned))
	for _, p := range planned {
		holdingID := p.HoldingID
		exDate := p.ExDate
		entries = append(entries, models.DistributionEntry{
			UserID:      userID,
			HoldingID:   &holdingID,
			Ticker:      p.Ticker,
			Amount:      p.Amount,
			PaymentDate: p.PaymentDate,
			ExDate:      &exDate,
			Type:        string(p.Type),
			Source:      models.DistributionSourceSync,
		})
	}
	return entries
}

func createEntries(ctx context.Context, db *gorm.DB, entries []models.DistributionEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := db.WithContext(ctx).CreateInBatches(entries, 100).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
