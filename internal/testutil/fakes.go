package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"stockfolio/internal/date"
	"stockfolio/internal/feed"
	"stockfolio/internal/quotes"
)

// FakeFeed is an in-memory corporate action feed.
type FakeFeed struct {
	mu      sync.Mutex
	actions map[string][]feed.CorporateAction
	fail    map[string]error
	calls   map[string]int
}

var _ feed.Feed = (*FakeFeed)(nil)

// NewFakeFeed returns an empty feed.
func NewFakeFeed() *FakeFeed {
	return &FakeFeed{
		actions: make(map[string][]feed.CorporateAction),
		fail:    make(map[string]error),
		calls:   make(map[string]int),
	}
}

// Add registers an action for ticker. paymentDate may be empty to default to exDate.
func (f *FakeFeed) Add(ticker, typ, exDate, paymentDate, perUnit string) *FakeFeed {
	f.mu.Lock()
	defer f.mu.Unlock()

	ex := date.MustParse(exDate)
	pay := ex
	if paymentDate != "" {
		pay = date.MustParse(paymentDate)
	}
	f.actions[ticker] = append(f.actions[ticker], feed.CorporateAction{
		Ticker:      ticker,
		Type:        typ,
		ExDate:      ex,
		PaymentDate: pay,
		PerUnit:     decimal.RequireFromString(perUnit),
	})
	return f
}

// Fail makes every fetch of ticker return an unavailable error.
func (f *FakeFeed) Fail(ticker string) *FakeFeed {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[ticker] = fmt.Errorf("%w: %s: upstream returned 503", feed.ErrFeedUnavailable, ticker)
	return f
}

// Recover clears a failure registered with Fail.
func (f *FakeFeed) Recover(ticker string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.fail, ticker)
}

// Calls returns how many times ticker was fetched.
func (f *FakeFeed) Calls(ticker string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[ticker]
}

// Fetch implements feed.Feed.
func (f *FakeFeed) Fetch(ctx context.Context, ticker string) ([]feed.CorporateAction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ticker = strings.ToUpper(ticker)
	f.calls[ticker]++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := f.fail[ticker]; ok {
		return nil, err
	}
	out := make([]feed.CorporateAction, len(f.actions[ticker]))
	copy(out, f.actions[ticker])
	return out, nil
}

// FakeQuoteSource answers from a fixed price table.
type FakeQuoteSource struct {
	Name   string
	Prices map[string]string

	mu    sync.Mutex
	calls int
}

var _ quotes.Source = (*FakeQuoteSource)(nil)

// ID implements quotes.Source.
func (s *FakeQuoteSource) ID() string { return s.Name }

// Calls returns the number of Quote invocations.
func (s *FakeQuoteSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Quote implements quotes.Source.
func (s *FakeQuoteSource) Quote(ctx context.Context, ticker string) (quotes.Quote, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	p, ok := s.Prices[ticker]
	if !ok {
		return quotes.Quote{}, fmt.Errorf("%w: %s not listed", quotes.ErrSourceUnavailable, ticker)
	}
	return quotes.Quote{
		Ticker: ticker,
		Price:  decimal.RequireFromString(p),
		Change: decimal.RequireFromString("0.50"),
	}, nil
}
