// Package feed fetches declared corporate actions (dividends and interest on
// equity) per instrument from an external HTTP source.
package feed

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"stockfolio/internal/date"
)

// ErrFeedUnavailable wraps transport and decoding failures.
var ErrFeedUnavailable = errors.New("corporate action feed unavailable")

// CorporateAction is a declared per-unit distribution for an instrument.
type CorporateAction struct {
	Ticker      string          `json:"ticker"`
	Type        string          `json:"type"`
	ExDate      date.Date       `json:"ex_date"`
	PaymentDate date.Date       `json:"payment_date"`
	PerUnit     decimal.Decimal `json:"per_unit"`
}

// Feed returns the corporate actions declared for a ticker. An instrument
// with no history returns an empty slice and a nil error.
type Feed interface {
	Fetch(ctx context.Context, ticker string) ([]CorporateAction, error)
}

// unavailable builds an error that matches ErrFeedUnavailable.
func unavailable(ticker string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrFeedUnavailable, ticker, err)
}
