package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"stockfolio/internal/date"
	"stockfolio/internal/models"
	"stockfolio/internal/pagination"
	"stockfolio/internal/testutil"
)

func newDistributionFixture(t *testing.T) (*gorm.DB, *testutil.FakeFeed, DistributionServicer) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })
	f := testutil.NewFakeFeed()
	return db, f, NewDistributionService(db, f)
}

func storedEntries(t *testing.T, db *gorm.DB, userID, ticker string) []models.DistributionEntry {
	t.Helper()
	var entries []models.DistributionEntry
	if err := db.Where("user_id = ? AND ticker = ?", userID, ticker).Order("payment_date ASC").Find(&entries).Error; err != nil {
		t.Fatalf("failed to load entries: %v", err)
	}
	return entries
}

func TestSync(t *testing.T) {
	t.Run("creates_eligible_entry", func(t *testing.T) {
		db, f, svc := newDistributionFixture(t)
		userID := testutil.NewUserID()
		h := testutil.CreateTestHolding(t, db, userID, "ITSA4", "100", "10", "2024-01-10")
		f.Add("ITSA4", "Dividendo", "2024-02-01", "2024-03-01", "0.1234")

		res, err := svc.Sync(context.Background(), userID)
		testutil.AssertNoError(t, err)

		if res.Synced != 1 || res.Skipped != 0 || res.TickersProcessed != 1 {
			t.Fatalf("unexpected result %+v", res)
		}
		entries := storedEntries(t, db, userID, "ITSA4")
		if len(entries) != 1 {
			t.Fatalf("expected 1 entry, got %d", len(entries))
		}
		e := entries[0]
		testutil.AssertDecimal(t, e.Amount, "12.34", "amount")
		if e.PaymentDate.String() != "2024-03-01" {
			t.Errorf("expected payment date 2024-03-01, got %s", e.PaymentDate)
		}
		if e.ExDate == nil || e.ExDate.String() != "2024-02-01" {
			t.Errorf("expected ex date 2024-02-01, got %v", e.ExDate)
		}
		if e.HoldingID == nil || *e.HoldingID != h.ID {
			t.Errorf("expected entry for holding %s", h.ID)
		}
		if e.Type != "dividend" || e.Source != models.DistributionSourceSync {
			t.Errorf("unexpected type/source %s/%s", e.Type, e.Source)
		}
		if len(res.Entries) != 1 {
			t.Errorf("expected 1 echoed entry, got %d", len(res.Entries))
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		db, f, svc := newDistributionFixture(t)
		userID := testutil.NewUserID()
		testutil.CreateTestHolding(t, db, userID, "ITSA4", "100", "10", "2024-01-10")
		f.Add("ITSA4", "Dividendo", "2024-02-01", "2024-03-01", "0.10").
			Add("ITSA4", "JCP", "2024-05-02", "2024-06-01", "0.05")

		first, err := svc.Sync(context.Background(), userID)
		testutil.AssertNoError(t, err)
		if first.Synced != 2 {
			t.Fatalf("expected 2 synced on first run, got %d", first.Synced)
		}

		second, err := svc.Sync(context.Background(), userID)
		testutil.AssertNoError(t, err)
		if second.Synced != 0 || second.Skipped != 2 {
			t.Errorf("expected 0 synced / 2 skipped on rerun, got %d / %d", second.Synced, second.Skipped)
		}
		if n := testutil.CountDistributions(t, db, userID, "ITSA4"); n != 2 {
			t.Errorf("expected 2 stored entries, got %d", n)
		}
	})

	t.Run("eligibility_boundary", func(t *testing.T) {
		db, f, svc := newDistributionFixture(t)
		userID := testutil.NewUserID()
		testutil.CreateTestHolding(t, db, userID, "BBAS3", "10", "20", "2024-02-01") // on ex-date
		testutil.CreateTestHolding(t, db, userID, "BBAS3", "7", "20", "2024-02-02")  // after ex-date
		f.Add("BBAS3", "Dividendo", "2024-02-01", "", "1.00")

		res, err := svc.Sync(context.Background(), userID)
		testutil.AssertNoError(t, err)
		if res.Synced != 1 || res.Skipped != 0 {
			t.Fatalf("expected only the on-date lot to be entitled, got %+v", res)
		}
		entries := storedEntries(t, db, userID, "BBAS3")
		testutil.AssertDecimal(t, entries[0].Amount, "10.00", "amount")
		if entries[0].PaymentDate.String() != "2024-02-01" {
			t.Errorf("expected payment date to default to ex date, got %s", entries[0].PaymentDate)
		}
	})

	t.Run("undated_holding_is_skipped", func(t *testing.T) {
		db, f, svc := newDistributionFixture(t)
		userID := testutil.NewUserID()
		testutil.CreateTestHolding(t, db, userID, "PETR4", "50", "30", "")
		f.Add("PETR4", "Dividendo", "2024-02-01", "", "1.00").Add("PETR4", "JCP", "2024-04-01", "", "0.50")

		res, err := svc.Sync(context.Background(), userID)
		testutil.AssertNoError(t, err)
		if res.Synced != 0 || res.Skipped != 2 {
			t.Errorf("expected 2 indeterminate skips, got %+v", res)
		}
		if n := testutil.CountDistributions(t, db, userID, "PETR4"); n != 0 {
			t.Errorf("expected no entries, got %d", n)
		}
	})

	t.Run("interest_on_equity_classified", func(t *testing.T) {
		db, f, svc := newDistributionFixture(t)
		userID := testutil.NewUserID()
		testutil.CreateTestHolding(t, db, userID, "ITUB4", "100", "30", "2023-01-01")
		f.Add("ITUB4", "Juros Sobre Capital Próprio", "2024-03-01", "2024-04-01", "0.02")

		_, err := svc.Sync(context.Background(), userID)
		testutil.AssertNoError(t, err)
		entries := storedEntries(t, db, userID, "ITUB4")
		if len(entries) != 1 || entries[0].Type != "interest_on_equity" {
			t.Errorf("expected interest_on_equity entry, got %+v", entries)
		}
	})

	t.Run("non_positive_amount_ignored", func(t *testing.T) {
		db, f, svc := newDistributionFixture(t)
		userID := testutil.NewUserID()
		testutil.CreateTestHolding(t, db, userID, "MGLU3", "1", "2", "2023-01-01")
		f.Add("MGLU3", "Dividendo", "2024-03-01", "", "0.001")

		res, err := svc.Sync(context.Background(), userID)
		testutil.AssertNoError(t, err)
		if res.Synced != 0 || res.Skipped != 0 || res.TickersProcessed != 1 {
			t.Errorf("expected a processed ticker with nothing to record, got %+v", res)
		}
	})

	t.Run("feed_failure_isolated_per_ticker", func(t *testing.T) {
		db, f, svc := newDistributionFixture(t)
		userID := testutil.NewUserID()
		testutil.CreateTestHolding(t, db, userID, "ITSA4", "100", "10", "2024-01-10")
		testutil.CreateTestHolding(t, db, userID, "PETR4", "100", "30", "2024-01-10")
		testutil.CreateTestHolding(t, db, userID, "WEGE3", "100", "40", "2024-01-10")
		f.Add("ITSA4", "Dividendo", "2024-02-01", "", "0.10").Fail("PETR4")

		res, err := svc.Sync(context.Background(), userID)
		testutil.AssertNoError(t, err)
		if res.Synced != 1 {
			t.Errorf("expected 1 synced, got %d", res.Synced)
		}
		if _, ok := res.Errors["PETR4"]; !ok || len(res.Errors) != 1 {
			t.Errorf("expected only PETR4 in errors, got %v", res.Errors)
		}
		if res.TickersProcessed != 1 {
			t.Errorf("expected 1 processed ticker (WEGE3 has no actions), got %d", res.TickersProcessed)
		}
	})

	t.Run("each_ticker_fetched_once", func(t *testing.T) {
		db, f, svc := newDistributionFixture(t)
		userID := testutil.NewUserID()
		testutil.CreateTestHolding(t, db, userID, "ITSA4", "100", "10", "2024-01-10")
		testutil.CreateTestHolding(t, db, userID, "ITSA4", "50", "11", "2024-03-10")
		testutil.CreateTestHolding(t, db, userID, "ITSA4", "20", "9", "")
		f.Add("ITSA4", "Dividendo", "2024-02-01", "", "0.10").Add("ITSA4", "Dividendo", "2024-05-01", "", "0.10")

		res, err := svc.Sync(context.Background(), userID)
		testutil.AssertNoError(t, err)
		if f.Calls("ITSA4") != 1 {
			t.Errorf("expected one fetch, got %d", f.Calls("ITSA4"))
		}
		// Feb: only the January lot; May: January and March lots; undated lot skipped twice.
		if res.Synced != 3 || res.Skipped != 2 {
			t.Errorf("expected 3 synced / 2 skipped, got %d / %d", res.Synced, res.Skipped)
		}
	})

	t.Run("echoed_entries_capped", func(t *testing.T) {
		db, f, svc := newDistributionFixture(t)
		userID := testutil.NewUserID()
		testutil.CreateTestHolding(t, db, userID, "TAEE11", "100", "35", "2020-01-01")
		for month := 1; month <= 12; month++ {
			d := date.New(2024, time.Month(month), 15).String()
			f.Add("TAEE11", "Dividendo", d, "", "0.25")
		}

		res, err := svc.Sync(context.Background(), userID)
		testutil.AssertNoError(t, err)
		if res.Synced != 12 {
			t.Errorf("expected 12 synced, got %d", res.Synced)
		}
		if len(res.Entries) != maxSyncEntries {
			t.Errorf("expected %d echoed entries, got %d", maxSyncEntries, len(res.Entries))
		}
	})

	t.Run("other_users_untouched", func(t *testing.T) {
		db, f, svc := newDistributionFixture(t)
		alice, bob := testutil.NewUserID(), testutil.NewUserID()
		testutil.CreateTestHolding(t, db, alice, "ITSA4", "100", "10", "2024-01-10")
		testutil.CreateTestHolding(t, db, bob, "ITSA4", "100", "10", "2024-01-10")
		f.Add("ITSA4", "Dividendo", "2024-02-01", "", "0.10")

		_, err := svc.Sync(context.Background(), alice)
		testutil.AssertNoError(t, err)
		if n := testutil.CountDistributions(t, db, bob, ""); n != 0 {
			t.Errorf("expected no entries for bob, got %d", n)
		}
		res, err := svc.Sync(context.Background(), bob)
		testutil.AssertNoError(t, err)
		if res.Synced != 1 {
			t.Errorf("expected bob's identical payment to be recorded, got %d", res.Synced)
		}
	})
}

func TestResync(t *testing.T) {
	t.Run("regenerates_after_quantity_change", func(t *testing.T) {
		db, f, svc := newDistributionFixture(t)
		userID := testutil.NewUserID()
		h := testutil.CreateTestHolding(t, db, userID, "ITSA4", "100", "10", "2024-01-10")
		f.Add("ITSA4", "Dividendo", "2024-02-01", "2024-03-01", "0.10")

		_, err := svc.Sync(context.Background(), userID)
		testutil.AssertNoError(t, err)

		if err := db.Model(h).Update("quantity", decimal.NewFromInt(500)).Error; err != nil {
			t.Fatalf("failed to update quantity: %v", err)
		}

		res, err := svc.Resync(context.Background(), userID, "itsa4")
		testutil.AssertNoError(t, err)
		if res.Ticker != "ITSA4" || res.Deleted != 1 || res.Synced != 1 {
			t.Fatalf("unexpected resync result %+v", res)
		}
		entries := storedEntries(t, db, userID, "ITSA4")
		if len(entries) != 1 {
			t.Fatalf("expected 1 entry, got %d", len(entries))
		}
		testutil.AssertDecimal(t, entries[0].Amount, "50.00", "amount")
	})

	t.Run("feed_failure_keeps_entries", func(t *testing.T) {
		db, f, svc := newDistributionFixture(t)
		userID := testutil.NewUserID()
		h := testutil.CreateTestHolding(t, db, userID, "ITSA4", "100", "10", "2024-01-10")
		testutil.CreateTestDistribution(t, db, h, "10.00", "2024-03-01")
		f.Fail("ITSA4")

		res, err := svc.Resync(context.Background(), userID, "ITSA4")
		testutil.AssertAppError(t, err, "FEED_UNAVAILABLE")
		if res == nil || res.Error == "" || res.Deleted != 0 {
			t.Errorf("expected error result without deletions, got %+v", res)
		}
		if n := testutil.CountDistributions(t, db, userID, "ITSA4"); n != 1 {
			t.Errorf("expected entry to survive, got %d", n)
		}
	})

	t.Run("manual_entries_survive_and_dedup", func(t *testing.T) {
		db, f, svc := newDistributionFixture(t)
		userID := testutil.NewUserID()
		testutil.CreateTestHolding(t, db, userID, "ITSA4", "100", "10", "2024-01-10")
		f.Add("ITSA4", "Dividendo", "2024-02-01", "2024-03-01", "0.10")

		_, err := svc.CreateManualDistribution(context.Background(), userID, ManualDistributionInput{
			Ticker:      "ITSA4",
			Amount:      decimal.RequireFromString("10"),
			PaymentDate: date.MustParse("2024-03-01"),
		})
		testutil.AssertNoError(t, err)

		res, err := svc.Resync(context.Background(), userID, "ITSA4")
		testutil.AssertNoError(t, err)
		if res.Deleted != 0 || res.Synced != 0 || res.Skipped != 1 {
			t.Errorf("expected the manual entry to shadow the synced one, got %+v", res)
		}
		if n := testutil.CountDistributions(t, db, userID, "ITSA4"); n != 1 {
			t.Errorf("expected 1 entry, got %d", n)
		}
	})

	t.Run("date_moved_after_ex_date_removes_entitlement", func(t *testing.T) {
		db, f, svc := newDistributionFixture(t)
		userID := testutil.NewUserID()
		h := testutil.CreateTestHolding(t, db, userID, "ITSA4", "100", "10", "2024-01-10")
		f.Add("ITSA4", "Dividendo", "2024-02-01", "", "0.10")

		_, err := svc.Sync(context.Background(), userID)
		testutil.AssertNoError(t, err)

		db.Model(h).Update("acquisition_date", date.MustParse("2024-02-02"))

		res, err := svc.Resync(context.Background(), userID, "ITSA4")
		testutil.AssertNoError(t, err)
		if res.Deleted != 1 || res.Synced != 0 {
			t.Errorf("expected entitlement to be withdrawn, got %+v", res)
		}
	})
}

func TestCreateManualDistribution(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		db, _, svc := newDistributionFixture(t)
		userID := testutil.NewUserID()
		h := testutil.CreateTestHolding(t, db, userID, "BBSE3", "10", "30", "2024-01-01")

		entry, err := svc.CreateManualDistribution(context.Background(), userID, ManualDistributionInput{
			HoldingID:   &h.ID,
			Ticker:      "bbse3",
			Amount:      decimal.RequireFromString("7.456"),
			PaymentDate: date.MustParse("2024-05-10"),
			Type:        "interest_on_equity",
		})
		testutil.AssertNoError(t, err)
		if entry.Ticker != "BBSE3" || entry.Source != models.DistributionSourceManual {
			t.Errorf("unexpected entry %+v", entry)
		}
		testutil.AssertDecimal(t, entry.Amount, "7.46", "amount")
	})

	t.Run("duplicate", func(t *testing.T) {
		db, _, svc := newDistributionFixture(t)
		userID := testutil.NewUserID()
		h := testutil.CreateTestHolding(t, db, userID, "BBSE3", "10", "30", "2024-01-01")
		testutil.CreateTestDistribution(t, db, h, "7.46", "2024-05-10")

		_, err := svc.CreateManualDistribution(context.Background(), userID, ManualDistributionInput{
			Ticker:      "BBSE3",
			Amount:      decimal.RequireFromString("7.46"),
			PaymentDate: date.MustParse("2024-05-10"),
		})
		testutil.AssertAppError(t, err, "DUPLICATE_DISTRIBUTION")
	})

	t.Run("invalid_ticker", func(t *testing.T) {
		_, _, svc := newDistributionFixture(t)
		_, err := svc.CreateManualDistribution(context.Background(), "u", ManualDistributionInput{
			Ticker:      "AB",
			Amount:      decimal.NewFromInt(1),
			PaymentDate: date.MustParse("2024-05-10"),
		})
		testutil.AssertAppError(t, err, "INVALID_TICKER")
	})

	t.Run("non_positive_amount", func(t *testing.T) {
		_, _, svc := newDistributionFixture(t)
		_, err := svc.CreateManualDistribution(context.Background(), "u", ManualDistributionInput{
			Ticker:      "BBSE3",
			Amount:      decimal.RequireFromString("0.001"),
			PaymentDate: date.MustParse("2024-05-10"),
		})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("holding_of_other_user", func(t *testing.T) {
		db, _, svc := newDistributionFixture(t)
		h := testutil.CreateTestHolding(t, db, testutil.NewUserID(), "BBSE3", "10", "30", "2024-01-01")
		_, err := svc.CreateManualDistribution(context.Background(), testutil.NewUserID(), ManualDistributionInput{
			HoldingID:   &h.ID,
			Ticker:      "BBSE3",
			Amount:      decimal.NewFromInt(1),
			PaymentDate: date.MustParse("2024-05-10"),
		})
		testutil.AssertAppError(t, err, "HOLDING_NOT_FOUND")
	})
}

func TestDistributionQueries(t *testing.T) {
	db, _, svc := newDistributionFixture(t)
	userID := testutil.NewUserID()
	itsa := testutil.CreateTestHolding(t, db, userID, "ITSA4", "100", "10", "2024-01-10")
	taee := testutil.CreateTestHolding(t, db, userID, "TAEE11", "100", "35", "2024-01-10")
	testutil.CreateTestDistribution(t, db, itsa, "10.00", "2024-03-01")
	testutil.CreateTestDistribution(t, db, itsa, "5.55", "2024-03-20")
	testutil.CreateTestDistribution(t, db, taee, "40.00", "2024-04-15")

	t.Run("summary", func(t *testing.T) {
		s, err := svc.GetDistributionSummary(context.Background(), userID)
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, s.Total, "55.55", "total")
		if s.Count != 3 {
			t.Errorf("expected 3 entries, got %d", s.Count)
		}
		if len(s.ByMonth) != 2 || s.ByMonth[0].Month != "2024-03" || s.ByMonth[1].Month != "2024-04" {
			t.Fatalf("unexpected months %+v", s.ByMonth)
		}
		testutil.AssertDecimal(t, s.ByMonth[0].Amount, "15.55", "march total")
		if len(s.ByTicker) != 2 || s.ByTicker[0].Ticker != "TAEE11" {
			t.Errorf("expected TAEE11 first by amount, got %+v", s.ByTicker)
		}
	})

	t.Run("list_filtered_by_ticker", func(t *testing.T) {
		resp, err := svc.GetUserDistributions(context.Background(), userID, pagination.PageRequest{}, DistributionFilter{Ticker: "itsa4"})
		testutil.AssertNoError(t, err)
		if resp.TotalItems != 2 || len(resp.Data) != 2 {
			t.Fatalf("expected 2 ITSA4 entries, got %d", resp.TotalItems)
		}
		if resp.Data[0].PaymentDate.String() != "2024-03-20" {
			t.Errorf("expected newest first, got %s", resp.Data[0].PaymentDate)
		}
	})

	t.Run("list_filtered_by_date", func(t *testing.T) {
		from := date.MustParse("2024-03-15")
		resp, err := svc.GetUserDistributions(context.Background(), userID, pagination.PageRequest{Page: 1, PageSize: 1}, DistributionFilter{FromDate: &from})
		testutil.AssertNoError(t, err)
		if resp.TotalItems != 2 || len(resp.Data) != 1 || resp.TotalPages != 2 {
			t.Errorf("unexpected page %+v", resp)
		}
	})

	t.Run("delete_all", func(t *testing.T) {
		n, err := svc.DeleteAllDistributions(context.Background(), userID)
		testutil.AssertNoError(t, err)
		if n != 3 {
			t.Errorf("expected 3 deleted, got %d", n)
		}
	})
}
