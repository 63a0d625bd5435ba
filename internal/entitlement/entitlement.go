// Package entitlement decides which corporate actions a holding is owed and
// how much, without touching storage.
package entitlement

import (
	"strings"

	"github.com/shopspring/decimal"

	"stockfolio/internal/date"
	"stockfolio/internal/feed"
)

// AmountPlaces is the precision of a distribution amount.
const AmountPlaces = 2

// Type classifies a distribution.
type Type string

const (
	TypeDividend         Type = "dividend"
	TypeInterestOnEquity Type = "interest_on_equity"
)

// interestMarkers identify interest-on-equity in feed type text.
var interestMarkers = []string{"jcp", "juros", "jscp"}

// Classify maps free feed text ("JCP", "Juros sobre Capital Próprio",
// "Dividendo") to a Type.
func Classify(typeText string) Type {
	norm := strings.ToLower(typeText)
	for _, m := range interestMarkers {
		if strings.Contains(norm, m) {
			return TypeInterestOnEquity
		}
	}
	return TypeDividend
}

// Outcome is the result of evaluating one (action, holding) pair.
type Outcome int

const (
	// Indeterminate means the holding has no acquisition date.
	Indeterminate Outcome = iota
	// Ineligible means the holding was acquired after the ex-date.
	Ineligible
	// NonPositive means the computed amount rounds to zero or below.
	NonPositive
	// Eligible means an entry should exist.
	Eligible
)

func (o Outcome) String() string {
	switch o {
	case Indeterminate:
		return "indeterminate"
	case Ineligible:
		return "ineligible"
	case NonPositive:
		return "non_positive"
	case Eligible:
		return "eligible"
	}
	return "unknown"
}

// Amount is round(perUnit * quantity, 2).
func Amount(perUnit, quantity decimal.Decimal) decimal.Decimal {
	return perUnit.Mul(quantity).Round(AmountPlaces)
}

// Evaluate applies the eligibility cutoff: a holding is owed an action only
// when acquired on or before its ex-date.
func Evaluate(a feed.CorporateAction, acquired *date.Date, quantity decimal.Decimal) (Outcome, decimal.Decimal) {
	if acquired == nil || acquired.IsZero() {
		return Indeterminate, decimal.Zero
	}
	if acquired.After(a.ExDate) {
		return Ineligible, decimal.Zero
	}
	amount := Amount(a.PerUnit, quantity)
	if !amount.IsPositive() {
		return NonPositive, amount
	}
	return Eligible, amount
}

// Key is the de facto identity of a distribution entry.
type Key struct {
	Ticker      string
	PaymentDate date.Date
	Amount      string
}

// KeyOf normalizes the amount so 1.5 and 1.50 compare equal.
func KeyOf(ticker string, paymentDate date.Date, amount decimal.Decimal) Key {
	return Key{Ticker: ticker, PaymentDate: paymentDate, Amount: amount.StringFixed(AmountPlaces)}
}

// KeySet tracks keys already materialized for a user.
type KeySet map[Key]struct{}

// Has reports whether k is present.
func (s KeySet) Has(k Key) bool {
	_, ok := s[k]
	return ok
}

// Add inserts k.
func (s KeySet) Add(k Key) { s[k] = struct{}{} }

// Holding is the slice of a stored holding that entitlement needs.
type Holding struct {
	ID              string
	AcquisitionDate *date.Date
	Quantity        decimal.Decimal
}

// Entitlement is an entry that should be created.
type Entitlement struct {
	HoldingID   string
	Ticker      string
	Amount      decimal.Decimal
	PaymentDate date.Date
	ExDate      date.Date
	Type        Type
}

// Plan is the outcome of reconciling one ticker.
type Plan struct {
	Create        []Entitlement
	Indeterminate int
	Duplicates    int
}

// Skipped counts pairs reported as skipped: unknown acquisition dates and
// entries that already exist.
func (p Plan) Skipped() int { return p.Indeterminate + p.Duplicates }

// Reconcile evaluates every (action, holding) pair for one ticker. Keys of
// planned entries are added to seen so the same payment is never planned
// twice within a run.
func Reconcile(code string, actions []feed.CorporateAction, holdings []Holding, seen KeySet) Plan {
	var plan Plan
	for _, a := range actions {
		for _, h := range holdings {
			outcome, amount := Evaluate(a, h.AcquisitionDate, h.Quantity)
			switch outcome {
			case Indeterminate:
				plan.Indeterminate++
				continue
			case Ineligible, NonPositive:
				continue
			}

			key := KeyOf(code, a.PaymentDate, amount)
			if seen.Has(key) {
				plan.Duplicates++
				continue
			}
			seen.Add(key)
			plan.Create = append(plan.Create, Entitlement{
				HoldingID:   h.ID,
				Ticker:      code,
				Amount:      amount,
				PaymentDate: a.PaymentDate,
				ExDate:      a.ExDate,
				Type:        Classify(a.Type),
			})
		}
	}
	return plan
}
