package quotes

import (
	"context"
	"fmt"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/shopspring/decimal"
)

// b3Suffix is the Yahoo Finance exchange suffix for B3 listings.
const b3Suffix = ".SA"

// closesFunc returns daily closes for symbol between start and end, oldest first.
type closesFunc func(symbol string, start, end time.Time) ([]decimal.Decimal, error)

// Yahoo reads the latest daily bars from Yahoo Finance and derives the day's
// change from the previous close.
type Yahoo struct {
	closes closesFunc
	now    func() time.Time
}

// NewYahoo creates a Yahoo Finance source.
func NewYahoo() *Yahoo {
	return &Yahoo{closes: chartCloses, now: time.Now}
}

// ID implements Source.
func (y *Yahoo) ID() string { return "yahoo" }

// Quote implements Source. The chart client is not context aware, so the
// call runs in its own goroutine and is abandoned when ctx ends.
func (y *Yahoo) Quote(ctx context.Context, ticker string) (Quote, error) {
	end := y.now()
	start := end.AddDate(0, 0, -10)

	type result struct {
		closes []decimal.Decimal
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		closes, err := y.closes(ticker+b3Suffix, start, end)
		ch <- result{closes, err}
	}()

	var res result
	select {
	case <-ctx.Done():
		return Quote{}, fmt.Errorf("%w: %w", ErrSourceUnavailable, ctx.Err())
	case res = <-ch:
	}
	if res.err != nil {
		return Quote{}, fmt.Errorf("%w: chart: %w", ErrSourceUnavailable, res.err)
	}
	if len(res.closes) == 0 {
		return Quote{}, unavailable("no bars for %s", ticker)
	}

	last := res.closes[len(res.closes)-1]
	q := Quote{Price: last}
	if len(res.closes) > 1 {
		prev := res.closes[len(res.closes)-2]
		q.Change = last.Sub(prev)
		if prev.IsPositive() {
			q.ChangePercent = q.Change.Div(prev).Mul(decimal.NewFromInt(100)).Round(2)
		}
	}
	return q, nil
}

func chartCloses(symbol string, start, end time.Time) ([]decimal.Decimal, error) {
	params := &chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	}
	iter := chart.Get(params)

	var closes []decimal.Decimal
	for iter.Next() {
		if c := iter.Bar().Close; c.IsPositive() {
			closes = append(closes, c)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return closes, nil
}
