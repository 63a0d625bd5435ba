package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"stockfolio/internal/date"
	"stockfolio/internal/models"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// NewUserID returns a unique user id, as a token subject would carry.
func NewUserID() string {
	return fmt.Sprintf("user-%d", nextID())
}

// CreateTestHolding creates a holding. acquired may be empty for an undated lot.
func CreateTestHolding(t *testing.T, db *gorm.DB, userID, ticker, quantity, averageCost, acquired string) *models.Holding {
	t.Helper()

	holding := &models.Holding{
		UserID:      userID,
		Ticker:      ticker,
		Name:        ticker,
		AssetType:   "stock",
		Quantity:    decimal.RequireFromString(quantity),
		AverageCost: decimal.RequireFromString(averageCost),
	}
	if acquired != "" {
		holding.AcquisitionDate = date.Ptr(date.MustParse(acquired))
	}
	if err := db.Create(holding).Error; err != nil {
		t.Fatalf("failed to create test holding: %v", err)
	}
	return holding
}

// CreateTestDistribution creates a synced distribution entry for a holding.
func CreateTestDistribution(t *testing.T, db *gorm.DB, holding *models.Holding, amount, paymentDate string) *models.DistributionEntry {
	t.Helper()

	holdingID := holding.ID
	entry := &models.DistributionEntry{
		UserID:      holding.UserID,
		HoldingID:   &holdingID,
		Ticker:      holding.Ticker,
		Amount:      decimal.RequireFromString(amount),
		PaymentDate: date.MustParse(paymentDate),
		Type:        "dividend",
		Source:      models.DistributionSourceSync,
	}
	if err := db.Create(entry).Error; err != nil {
		t.Fatalf("failed to create test distribution: %v", err)
	}
	return entry
}

// CountDistributions returns the number of entries a user has for a ticker.
// An empty ticker counts every entry of the user.
func CountDistributions(t *testing.T, db *gorm.DB, userID, ticker string) int64 {
	t.Helper()

	q := db.Model(&models.DistributionEntry{}).Where("user_id = ?", userID)
	if ticker != "" {
		q = q.Where("ticker = ?", ticker)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("failed to count distributions: %v", err)
	}
	return n
}
