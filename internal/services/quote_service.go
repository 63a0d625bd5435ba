package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
	"gorm.io/gorm"

	apperrors "stockfolio/internal/errors"
	"stockfolio/internal/logger"
	"stockfolio/internal/metrics"
	"stockfolio/internal/models"
	"stockfolio/internal/quotes"
	"stockfolio/internal/reference"
	"stockfolio/internal/ticker"
)

// QuoteResolver resolves one ticker to a quote. *quotes.Resolver satisfies it.
type QuoteResolver interface {
	Resolve(ctx context.Context, ticker string) (quotes.Quote, error)
}

// quoteService handles price refreshes and instrument lookups.
type quoteService struct {
	db       *gorm.DB
	resolver QuoteResolver
	catalog  reference.Catalog
	limiter  *rate.Limiter
	now      func() time.Time
}

// NewQuoteService creates a new QuoteServicer. Consecutive resolutions during
// a refresh are spaced by at least delay.
func NewQuoteService(db *gorm.DB, resolver QuoteResolver, catalog reference.Catalog, delay time.Duration) QuoteServicer {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &quoteService{
		db:       db,
		resolver: resolver,
		catalog:  catalog,
		limiter:  rate.NewLimiter(limit, 1),
		now:      time.Now,
	}
}

// RefreshPrices resolves every distinct ticker the user holds once and
// writes the quote to all holdings of that ticker. Failures are collected
// and never abort the run.
func (s *quoteService) RefreshPrices(ctx context.Context, userID string) (*RefreshResult, error) {
	log := logger.With(ctx)
	db := s.db.WithContext(ctx)

	var tickers []string
	if err := db.Model(&models.Holding{}).Where("user_id = ?", userID).
		Distinct().Order("ticker ASC").Pluck("ticker", &tickers).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := &RefreshResult{
		Tickers: len(tickers),
		Sources: map[string]int{},
		Errors:  []string{},
	}
	for _, code := range tickers {
		if err := s.limiter.Wait(ctx); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", code, err))
			break
		}

		q, err := s.resolver.Resolve(ctx, code)
		metrics.QuoteResolutions.WithLabelValues(q.Source).Inc()
		result.Sources[q.Source]++
		if err != nil {
			log.Warnw("live quote unavailable", "ticker", code, "source", q.Source, "error", err)
		}
		if !q.Price.IsPositive() {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: no price available", code))
			continue
		}

		updatedAt := q.AsOf
		if updatedAt.IsZero() {
			updatedAt = s.now().UTC()
		}
		res := db.Model(&models.Holding{}).
			Where("user_id = ? AND ticker = ?", userID, code).
			Updates(map[string]any{
				"current_price":        q.Price.Round(2),
				"price_change":         q.Change.Round(2),
				"price_change_percent": q.ChangePercent.Round(4),
				"price_source":         q.Source,
				"price_updated_at":     updatedAt,
			})
		if res.Error != nil {
			log.Errorw("failed to store quote", "ticker", code, "error", res.Error)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: failed to store price", code))
			continue
		}
		result.Updated += int(res.RowsAffected)
	}

	log.Infow("prices refreshed",
		"user_id", userID,
		"tickers", result.Tickers,
		"updated", result.Updated,
		"errors", len(result.Errors),
	)
	return result, nil
}

// GetInstrument returns reference data and a resolved quote for a ticker.
func (s *quoteService) GetInstrument(ctx context.Context, text string) (*InstrumentQuote, error) {
	code, err := ticker.Canonicalize(text)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidTicker, err)
	}

	out := &InstrumentQuote{AssetType: ticker.DetectAssetType(code, s.catalog)}
	if s.catalog != nil {
		if in, ok := s.catalog.Lookup(code); ok {
			out.Instrument = &in
		}
	}

	q, err := s.resolver.Resolve(ctx, code)
	metrics.QuoteResolutions.WithLabelValues(q.Source).Inc()
	if err != nil {
		logger.With(ctx).Debugw("live quote unavailable", "ticker", code, "source", q.Source, "error", err)
	}
	if out.Instrument == nil && !q.Live() {
		return nil, apperrors.ErrInstrumentNotFound
	}
	out.Quote = q
	return out, nil
}
