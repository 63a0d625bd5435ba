package models

import (
	"time"

	"github.com/shopspring/decimal"

	"stockfolio/internal/date"
)

// Holding is a position in one instrument acquired on one date. A nil
// acquisition date is its own lot.
type Holding struct {
	Base
	UserID          string          `gorm:"not null;index:idx_holdings_user_ticker" json:"user_id"`
	Ticker          string          `gorm:"not null;index:idx_holdings_user_ticker" json:"ticker"`
	Name            string          `json:"name"`
	AssetType       string          `gorm:"not null;default:stock" json:"asset_type"`
	AcquisitionDate *date.Date      `gorm:"type:date" json:"acquisition_date"`
	Quantity        decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"quantity"`
	AverageCost     decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"average_cost"`

	// Last resolved quote
	CurrentPrice       decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"current_price"`
	PriceChange        decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"price_change"`
	PriceChangePercent decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"price_change_percent"`
	PriceSource        string          `json:"price_source,omitempty"`
	PriceUpdatedAt     *time.Time      `json:"price_updated_at,omitempty"`
}

// Invested returns quantity times average cost.
func (h *Holding) Invested() decimal.Decimal {
	return h.Quantity.Mul(h.AverageCost)
}

// CurrentValue returns quantity times the last known price, falling back to
// the average cost when no price was ever resolved.
func (h *Holding) CurrentValue() decimal.Decimal {
	if h.CurrentPrice.IsPositive() {
		return h.Quantity.Mul(h.CurrentPrice)
	}
	return h.Invested()
}
