package services

import (
	"context"
	"testing"

	"stockfolio/internal/models"
	"stockfolio/internal/quotes"
	"stockfolio/internal/reference"
	"stockfolio/internal/testutil"
)

func TestRefreshPrices(t *testing.T) {
	t.Run("resolves_each_ticker_once", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		src := &testutil.FakeQuoteSource{Name: "brapi", Prices: map[string]string{"ITSA4": "11.25"}}
		resolver := quotes.NewResolver([]quotes.Source{src}, reference.NewDefaultCatalog(), quotes.WithCacheTTL(0))
		svc := NewQuoteService(db, resolver, reference.NewDefaultCatalog(), 0)

		userID := testutil.NewUserID()
		testutil.CreateTestHolding(t, db, userID, "ITSA4", "100", "10", "2024-01-10")
		testutil.CreateTestHolding(t, db, userID, "ITSA4", "50", "12", "")

		res, err := svc.RefreshPrices(context.Background(), userID)
		testutil.AssertNoError(t, err)

		if res.Tickers != 1 || res.Updated != 2 || len(res.Errors) != 0 {
			t.Errorf("unexpected result %+v", res)
		}
		if src.Calls() != 1 {
			t.Errorf("expected one resolution, got %d", src.Calls())
		}

		var rows []models.Holding
		db.Where("user_id = ?", userID).Find(&rows)
		for _, h := range rows {
			testutil.AssertDecimal(t, h.CurrentPrice, "11.25", "current price")
			if h.PriceSource != "brapi" || h.PriceUpdatedAt == nil {
				t.Errorf("expected brapi quote with timestamp, got %q %v", h.PriceSource, h.PriceUpdatedAt)
			}
		}
	})

	t.Run("falls_back_and_reports", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		src := &testutil.FakeQuoteSource{Name: "brapi", Prices: map[string]string{}}
		resolver := quotes.NewResolver([]quotes.Source{src}, reference.NewDefaultCatalog(), quotes.WithCacheTTL(0))
		svc := NewQuoteService(db, resolver, reference.NewDefaultCatalog(), 0)

		userID := testutil.NewUserID()
		testutil.CreateTestHolding(t, db, userID, "VALE3", "10", "60", "")
		testutil.CreateTestHolding(t, db, userID, "ZZZZ3", "10", "5", "")

		res, err := svc.RefreshPrices(context.Background(), userID)
		testutil.AssertNoError(t, err)

		if res.Updated != 1 || len(res.Errors) != 1 {
			t.Errorf("expected VALE3 from reference and ZZZZ3 reported, got %+v", res)
		}
		if res.Sources[quotes.SourceReference] != 1 || res.Sources[quotes.SourceUnknown] != 1 {
			t.Errorf("unexpected source tally %v", res.Sources)
		}

		var vale models.Holding
		db.Where("user_id = ? AND ticker = ?", userID, "VALE3").First(&vale)
		testutil.AssertDecimal(t, vale.CurrentPrice, "62.30", "reference price")
		if vale.PriceSource != quotes.SourceReference {
			t.Errorf("expected reference source, got %q", vale.PriceSource)
		}
	})

	t.Run("cancelled_context", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		resolver := quotes.NewResolver(nil, reference.NewDefaultCatalog())
		svc := NewQuoteService(db, resolver, nil, 0)

		userID := testutil.NewUserID()
		testutil.CreateTestHolding(t, db, userID, "VALE3", "10", "60", "")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := svc.RefreshPrices(ctx, userID)
		if err == nil {
			t.Fatal("expected error when the context is already cancelled")
		}
	})
}

func TestGetInstrument(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	src := &testutil.FakeQuoteSource{Name: "yahoo", Prices: map[string]string{"KLBN11": "21.00"}}
	resolver := quotes.NewResolver([]quotes.Source{src}, reference.NewDefaultCatalog(), quotes.WithCacheTTL(0))
	svc := NewQuoteService(db, resolver, reference.NewDefaultCatalog(), 0)

	t.Run("catalog_instrument", func(t *testing.T) {
		got, err := svc.GetInstrument(context.Background(), "taee11")
		testutil.AssertNoError(t, err)
		if got.Instrument == nil || got.Instrument.Name != "Taesa Unit" || got.AssetType != "unit" {
			t.Errorf("unexpected instrument %+v", got)
		}
		if got.Quote.Source != quotes.SourceReference {
			t.Errorf("expected reference quote, got %s", got.Quote.Source)
		}
	})

	t.Run("live_only", func(t *testing.T) {
		got, err := svc.GetInstrument(context.Background(), "KLBN11")
		testutil.AssertNoError(t, err)
		if got.Instrument != nil || got.Quote.Source != "yahoo" {
			t.Errorf("unexpected result %+v", got)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := svc.GetInstrument(context.Background(), "ZZZZ3")
		testutil.AssertAppError(t, err, "INSTRUMENT_NOT_FOUND")
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := svc.GetInstrument(context.Background(), "AB")
		testutil.AssertAppError(t, err, "INVALID_TICKER")
	})
}
