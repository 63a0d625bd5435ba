package services

import (
	"context"

	"github.com/shopspring/decimal"

	"stockfolio/internal/date"
	"stockfolio/internal/holdings"
	"stockfolio/internal/importer"
	"stockfolio/internal/models"
	"stockfolio/internal/pagination"
	"stockfolio/internal/quotes"
	"stockfolio/internal/reference"
)

// ImportResult summarizes an uploaded holdings file.
type ImportResult struct {
	Created    int                 `json:"created"`
	Updated    int                 `json:"updated"`
	RowsRead   int                 `json:"rows_read"`
	RowsFailed int                 `json:"rows_failed"`
	Errors     []holdings.RowError `json:"errors"`
	Tickers    []string            `json:"tickers"`
	Resynced   []ResyncResult      `json:"resynced"`
	Layout     importer.Layout     `json:"layout"`
}

// HoldingInput carries the fields of a manually created holding.
type HoldingInput struct {
	Ticker          string
	Name            string
	AssetType       string
	AcquisitionDate *date.Date
	Quantity        decimal.Decimal
	AverageCost     decimal.Decimal
}

// HoldingUpdate carries optional holding changes. Nil fields are left as is;
// ClearAcquisitionDate turns the holding into an undated lot.
type HoldingUpdate struct {
	Name                 *string
	Quantity             *decimal.Decimal
	AverageCost          *decimal.Decimal
	AcquisitionDate      *date.Date
	ClearAcquisitionDate bool
}

// HoldingFilter holds optional filters for listing holdings.
type HoldingFilter struct {
	Ticker    string
	AssetType string
}

// HoldingUpdateResult is an updated holding plus the resync it triggered, if any.
type HoldingUpdateResult struct {
	Holding               *models.Holding `json:"holding"`
	DistributionsResynced *ResyncResult   `json:"distributions_resynced,omitempty"`
}

// HoldingDeleteResult reports the resync a deletion triggered for the lots of
// the same ticker that remain, if any.
type HoldingDeleteResult struct {
	DistributionsResynced *ResyncResult `json:"distributions_resynced,omitempty"`
}

// PortfolioSummary aggregates a user's holdings and received distributions.
type PortfolioSummary struct {
	TotalInvested      decimal.Decimal `json:"total_invested"`
	TotalCurrent       decimal.Decimal `json:"total_current"`
	TotalGain          decimal.Decimal `json:"total_gain"`
	GainPercent        decimal.Decimal `json:"gain_percent"`
	TotalDistributions decimal.Decimal `json:"total_distributions"`
	HoldingsCount      int             `json:"holdings_count"`
}

// HoldingServicer defines the contract for holding-related business logic.
type HoldingServicer interface {
	ImportHoldings(ctx context.Context, userID string, data []byte, filename string) (*ImportResult, error)
	CreateHolding(ctx context.Context, userID string, in HoldingInput) (*models.Holding, error)
	GetUserHoldings(ctx context.Context, userID string, page pagination.PageRequest, filter HoldingFilter) (*pagination.PageResponse[models.Holding], error)
	GetHoldingByID(ctx context.Context, userID, holdingID string) (*models.Holding, error)
	UpdateHolding(ctx context.Context, userID, holdingID string, upd HoldingUpdate) (*HoldingUpdateResult, error)
	DeleteHolding(ctx context.Context, userID, holdingID string) (*HoldingDeleteResult, error)
	DeleteAllHoldings(ctx context.Context, userID string) (int64, error)
	GetPortfolioSummary(ctx context.Context, userID string) (*PortfolioSummary, error)
}

// SyncResult summarizes one synchronization run.
type SyncResult struct {
	Synced           int                        `json:"synced"`
	Skipped          int                        `json:"skipped"`
	TickersProcessed int                        `json:"tickers_processed"`
	Errors           map[string]string          `json:"errors"`
	Entries          []models.DistributionEntry `json:"entries"`
}

// ResyncResult summarizes the regeneration of one ticker's entries.
type ResyncResult struct {
	Ticker  string `json:"ticker"`
	Deleted int64  `json:"deleted"`
	Synced  int    `json:"synced"`
	Skipped int    `json:"skipped"`
	Error   string `json:"error,omitempty"`
}

// DistributionFilter holds optional filters for listing distributions.
type DistributionFilter struct {
	Ticker   string
	FromDate *date.Date
	ToDate   *date.Date
}

// ManualDistributionInput carries a hand-entered distribution.
type ManualDistributionInput struct {
	HoldingID   *string
	Ticker      string
	Amount      decimal.Decimal
	PaymentDate date.Date
	ExDate      *date.Date
	Type        string
}

// MonthAmount is a distribution total for one YYYY-MM month.
type MonthAmount struct {
	Month  string          `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

// TickerAmount is a distribution total for one ticker.
type TickerAmount struct {
	Ticker string          `json:"ticker"`
	Amount decimal.Decimal `json:"amount"`
}

// DistributionSummary groups a user's distributions by month and ticker.
type DistributionSummary struct {
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
	ByMonth  []MonthAmount   `json:"by_month"`
	ByTicker []TickerAmount  `json:"by_ticker"`
}

// Resyncer regenerates one ticker's synced entries.
type Resyncer interface {
	Resync(ctx context.Context, userID, ticker string) (*ResyncResult, error)
}

// DistributionServicer defines the contract for distribution-related business logic.
type DistributionServicer interface {
	Resyncer
	Sync(ctx context.Context, userID string) (*SyncResult, error)
	GetUserDistributions(ctx context.Context, userID string, page pagination.PageRequest, filter DistributionFilter) (*pagination.PageResponse[models.DistributionEntry], error)
	GetDistributionSummary(ctx context.Context, userID string) (*DistributionSummary, error)
	CreateManualDistribution(ctx context.Context, userID string, in ManualDistributionInput) (*models.DistributionEntry, error)
	DeleteAllDistributions(ctx context.Context, userID string) (int64, error)
}

// RefreshResult summarizes a bulk price refresh.
type RefreshResult struct {
	Updated int            `json:"updated"`
	Tickers int            `json:"tickers"`
	Sources map[string]int `json:"sources"`
	Errors  []string       `json:"errors"`
}

// InstrumentQuote combines reference data with the resolved quote.
type InstrumentQuote struct {
	Instrument *reference.Instrument `json:"instrument,omitempty"`
	AssetType  string                `json:"asset_type"`
	Quote      quotes.Quote          `json:"quote"`
}

// QuoteServicer defines the contract for price-related business logic.
type QuoteServicer interface {
	RefreshPrices(ctx context.Context, userID string) (*RefreshResult, error)
	GetInstrument(ctx context.Context, ticker string) (*InstrumentQuote, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(ctx context.Context, userID, action, resourceType, resourceID, ipAddress string, changes map[string]any)
}
