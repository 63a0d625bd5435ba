// Package quotes resolves a current price for a ticker by walking an ordered
// list of external sources and falling back to a static reference table.
package quotes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrSourceUnavailable wraps transport failures and unusable answers.
var ErrSourceUnavailable = errors.New("quote source unavailable")

// Fallback source identifiers.
const (
	SourceReference = "reference"
	SourceUnknown   = "unknown"
)

// Quote is a resolved price tagged with the source that produced it.
type Quote struct {
	Ticker        string          `json:"ticker"`
	Price         decimal.Decimal `json:"price"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	Source        string          `json:"source"`
	AsOf          time.Time       `json:"as_of"`
}

// Live reports whether the quote came from an external source.
func (q Quote) Live() bool {
	return q.Source != SourceReference && q.Source != SourceUnknown
}

// Source is one external price provider.
type Source interface {
	// ID is the tag attached to quotes from this source.
	ID() string
	// Quote returns the current quote for a canonical ticker.
	Quote(ctx context.Context, ticker string) (Quote, error)
}

// SourceError records why a source did not produce a usable quote.
type SourceError struct {
	Source string
	Ticker string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Ticker, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

func unavailable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSourceUnavailable, fmt.Sprintf(format, args...))
}

func normalizeTicker(t string) string {
	return strings.ToUpper(strings.TrimSpace(t))
}
