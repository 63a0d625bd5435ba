package models

import (
	"github.com/shopspring/decimal"

	"stockfolio/internal/date"
)

// DistributionSource tells whether an entry was generated or entered by hand.
type DistributionSource string

const (
	DistributionSourceSync   DistributionSource = "sync"
	DistributionSourceManual DistributionSource = "manual"
)

// DistributionEntry is a dividend or interest-on-equity payment credited to a
// holding. Entries are never updated; a resync deletes and regenerates them.
type DistributionEntry struct {
	Base
	UserID      string             `gorm:"not null;index:idx_distributions_user_ticker" json:"user_id"`
	HoldingID   *string            `gorm:"type:uuid;index" json:"holding_id,omitempty"`
	Ticker      string             `gorm:"not null;index:idx_distributions_user_ticker" json:"ticker"`
	Amount      decimal.Decimal    `gorm:"type:decimal(20,2);not null" json:"amount"`
	PaymentDate date.Date          `gorm:"type:date;not null" json:"payment_date"`
	ExDate      *date.Date         `gorm:"type:date" json:"ex_date,omitempty"`
	Type        string             `gorm:"not null" json:"type"`
	Source      DistributionSource `gorm:"not null;default:sync" json:"source"`
}
