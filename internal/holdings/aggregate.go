// Package holdings merges raw import rows into lots keyed by instrument and
// acquisition date.
package holdings

import (
	"iter"
	"strings"

	"github.com/shopspring/decimal"

	"stockfolio/internal/date"
	"stockfolio/internal/importer"
	"stockfolio/internal/ticker"
)

// CostPlaces is the precision of a lot's reported average cost.
const CostPlaces = 2

// Lot is the aggregate of every row sharing a ticker and acquisition date.
type Lot struct {
	Ticker          string          `json:"ticker"`
	Name            string          `json:"name,omitempty"`
	AcquisitionDate *date.Date      `json:"acquisition_date"`
	Quantity        decimal.Decimal `json:"quantity"`
	AverageCost     decimal.Decimal `json:"average_cost"`
	Rows            int             `json:"rows"`
}

// Key identifies a lot. A nil date is its own group.
func (l Lot) Key() string { return LotKey(l.Ticker, l.AcquisitionDate) }

// LotKey builds the grouping key for a ticker and optional date.
func LotKey(code string, d *date.Date) string {
	if d == nil {
		return code + "|"
	}
	return code + "|" + d.String()
}

// RowError records why a single row was not aggregated.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Result is the outcome of Aggregate.
type Result struct {
	Lots       []Lot
	Errors     []RowError
	RowsRead   int
	RowsFailed int
	// Dropped lists keys whose summed quantity was not positive.
	Dropped []string
}

// Aggregate consumes rows and merges them into lots in first-seen order.
func Aggregate(rows iter.Seq[importer.RowResult]) Result {
	var res Result
	index := make(map[string]int)
	var lots []*Lot

	fail := func(line int, reason string) {
		res.RowsFailed++
		res.Errors = append(res.Errors, RowError{Line: line, Reason: reason})
	}

	for row := range rows {
		res.RowsRead++
		if row.Err != nil {
			fail(row.Line, row.Err.Error())
			continue
		}
		rec := row.Record

		code, err := ticker.Canonicalize(rec.Instrument)
		if err != nil {
			fail(rec.Line, err.Error())
			continue
		}
		qty, err := importer.ParseDecimal(rec.Quantity)
		if err != nil {
			fail(rec.Line, "quantity: "+err.Error())
			continue
		}
		cost, err := importer.ParseDecimal(rec.Price)
		if err != nil || cost.IsNegative() {
			cost = decimal.Zero
		}
		var acquired *date.Date
		if d, ok := importer.ParseDate(rec.Date); ok {
			acquired = &d
		}

		key := LotKey(code, acquired)
		i, ok := index[key]
		if !ok {
			index[key] = len(lots)
			lots = append(lots, &Lot{
				Ticker:          code,
				Name:            displayName(rec),
				AcquisitionDate: acquired,
				Quantity:        qty,
				AverageCost:     cost,
				Rows:            1,
			})
			continue
		}

		lot := lots[i]
		lot.AverageCost = WeightedCost(lot.Quantity, lot.AverageCost, qty, cost)
		lot.Quantity = lot.Quantity.Add(qty)
		lot.Rows++
		if lot.Name == "" {
			lot.Name = displayName(rec)
		}
	}

	for _, lot := range lots {
		if !lot.Quantity.IsPositive() {
			res.Dropped = append(res.Dropped, lot.Key())
			continue
		}
		lot.AverageCost = lot.AverageCost.Round(CostPlaces)
		res.Lots = append(res.Lots, *lot)
	}
	return res
}

// WeightedCost merges an incoming quantity and unit cost into a running
// average. A zero incoming cost leaves the average unchanged.
func WeightedCost(existingQty, existingCost, newQty, newCost decimal.Decimal) decimal.Decimal {
	if !newCost.IsPositive() {
		return existingCost
	}
	total := existingQty.Add(newQty)
	if total.IsZero() {
		return existingCost
	}
	return existingQty.Mul(existingCost).Add(newQty.Mul(newCost)).Div(total)
}

// displayName prefers an explicit name column and falls back to the text
// after " - " in descriptions like "FIQE3 - UNIFIQUE TELECOM S.A.".
func displayName(rec importer.RawRecord) string {
	if rec.Name != "" {
		return rec.Name
	}
	if _, rest, ok := strings.Cut(rec.Instrument, " - "); ok {
		return strings.TrimSpace(rest)
	}
	return ""
}
