package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/opentender/core"
	"github.com/cloudx-io/opentender/storage"
)

var base = time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "data", "tender.db"))
	assert.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seed(t *testing.T, s *SQLiteStore) {
	t.Helper()
	ctx := context.Background()

	assert.NoError(t, s.SaveTender(ctx, core.Tender{
		ID: "t1", Title: "Depot fit-out", IssuerID: "issuer",
		Budget:   decimal.NewNullDecimal(decimal.RequireFromString("5000.00")),
		Deadline: base.Add(72 * time.Hour), Status: core.TenderOpen,
	}))
	assert.NoError(t, s.SaveTender(ctx, core.Tender{ID: "t2", Title: "Roofing", Deadline: base, Status: core.TenderDraft}))

	assert.NoError(t, s.SaveBid(ctx, core.Bid{ID: "bid_b", TenderID: "t1", BidderID: "u2", BidAmount: decimal.NewFromInt(900), SubmittedAt: base.Add(2 * time.Hour), Status: core.BidSubmitted}))
	assert.NoError(t, s.SaveBid(ctx, core.Bid{ID: "bid_a", TenderID: "t1", BidderID: "u1", BidAmount: decimal.NewFromInt(308), SubmittedAt: base.Add(time.Hour), Status: core.BidSubmitted,
		CompanyInfo: core.CompanyInfo{Name: "Acme Builders", ExperienceSummary: "12 years", InsuranceCoverage: "5M", ContactEmail: "bids@acme.test"}}))
	assert.NoError(t, s.SaveBid(ctx, core.Bid{ID: "bid_x", TenderID: "t2", BidderID: "u1", SubmittedAt: base, Status: core.BidSubmitted}))

	items := []core.BidLineItem{
		{ID: "li3", LineNumber: 30, ItemDescription: "Paint", UnitPrice: decimal.RequireFromString("10.50"), Total: decimal.RequireFromString("10.50")},
		{ID: "li1", LineNumber: 10, ItemDescription: "Cement", Category: "Materials", Quantity: decimal.NewNullDecimal(decimal.NewFromInt(10)), UnitPrice: decimal.NewFromInt(25), Total: decimal.NewFromInt(250)},
		{ID: "li2", LineNumber: 20, ItemDescription: "Labour", Category: "Labour", Quantity: decimal.NewNullDecimal(decimal.RequireFromString("1.5")), UnitPrice: decimal.NewFromInt(20), Total: decimal.NewFromInt(30)},
	}
	for _, item := range items {
		item.BidID = "bid_a"
		assert.NoError(t, s.SaveLineItem(ctx, item))
	}
}

func TestSQLiteStore_LoadAndList(t *testing.T) {
	s := setupTestDB(t)
	seed(t, s)
	ctx := context.Background()

	tender, err := s.LoadTender(ctx, "t1")
	assert.NoError(t, err)
	check.Equal(t, "Depot fit-out", tender.Title)
	check.True(t, tender.Budget.Valid)
	check.True(t, tender.Budget.Decimal.Equal(decimal.NewFromInt(5000)))
	check.True(t, tender.Deadline.Equal(base.Add(72*time.Hour)))

	draft, err := s.LoadTender(ctx, "t2")
	assert.NoError(t, err)
	check.False(t, draft.Budget.Valid)

	bids, err := s.ListBids(ctx, "t1")
	assert.NoError(t, err)
	check.Equal(t, 2, len(bids))
	check.Equal(t, "bid_a", bids[0].ID)
	check.Equal(t, "bid_b", bids[1].ID)
	check.Equal(t, 3, len(bids[0].LineItems))

	bid, err := s.LoadBid(ctx, "bid_a")
	assert.NoError(t, err)
	check.Equal(t, "Acme Builders", bid.CompanyInfo.Name)
	check.Equal(t, core.BidSubmitted, bid.Status)
	check.True(t, bid.BidAmount.Equal(decimal.NewFromInt(308)))
	check.Nil(t, bid.Evaluation)

	check.Equal(t, 3, len(bid.LineItems))
	check.Equal(t, "li1", bid.LineItems[0].ID)
	check.Equal(t, "li3", bid.LineItems[2].ID)
	check.True(t, bid.LineItems[1].Quantity.Decimal.Equal(decimal.RequireFromString("1.5")))
	check.False(t, bid.LineItems[2].Quantity.Valid)
	check.True(t, bid.LineItems[2].UnitPrice.Equal(decimal.RequireFromString("10.5")))
}

func TestSQLiteStore_NotFound(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	_, err := s.LoadTender(ctx, "missing")
	check.True(t, errors.Is(err, core.ErrNotFound))

	_, err = s.LoadBid(ctx, "missing")
	check.True(t, errors.Is(err, core.ErrNotFound))

	_, err = s.LoadLineItems(ctx, "missing")
	check.True(t, errors.Is(err, core.ErrNotFound))

	bids, err := s.ListBids(ctx, "missing")
	assert.NoError(t, err)
	check.Equal(t, 0, len(bids))
}

func TestSQLiteStore_EvaluationRoundTrip(t *testing.T) {
	s := setupTestDB(t)
	seed(t, s)
	ctx := context.Background()

	bid, err := s.LoadBid(ctx, "bid_a")
	assert.NoError(t, err)
	bid.Status = core.BidUnderReview
	bid.Evaluation = &core.Evaluation{
		BidID:          "bid_a",
		Scores:         core.Subscores{Price: 80, Experience: 70, Timeline: 90, Technical: 60, Risk: 50},
		OverallScore:   74,
		EvaluatorNotes: "solid",
		EvaluatedAt:    base.Add(96 * time.Hour),
		EvaluatorID:    "eval1",
	}
	assert.NoError(t, s.SaveBid(ctx, *bid))

	got, err := s.LoadBid(ctx, "bid_a")
	assert.NoError(t, err)
	assert.NotNil(t, got.Evaluation)
	check.Equal(t, 74, got.Evaluation.OverallScore)
	check.Equal(t, 90.0, got.Evaluation.Scores.Timeline)
	check.Equal(t, "eval1", got.Evaluation.EvaluatorID)
	check.Equal(t, core.BidUnderReview, got.Status)
	// Saving a bid leaves its line items alone
	check.Equal(t, 3, len(got.LineItems))

	got.Evaluation = nil
	assert.NoError(t, s.SaveBid(ctx, *got))
	cleared, err := s.LoadBid(ctx, "bid_a")
	assert.NoError(t, err)
	check.Nil(t, cleared.Evaluation)
}

func TestSQLiteStore_SaveLineItemUpdates(t *testing.T) {
	s := setupTestDB(t)
	seed(t, s)
	ctx := context.Background()

	items, err := s.LoadLineItems(ctx, "bid_a")
	assert.NoError(t, err)
	item := items[0]
	item.UnitPrice = decimal.NewFromInt(30)
	item.Total = decimal.NewFromInt(300)
	item.Notes = "bulk rate"
	assert.NoError(t, s.SaveLineItem(ctx, item))

	items, err = s.LoadLineItems(ctx, "bid_a")
	assert.NoError(t, err)
	check.Equal(t, 3, len(items))
	check.True(t, items[0].Total.Equal(decimal.NewFromInt(300)))
	check.Equal(t, "bulk rate", items[0].Notes)
}

func TestSQLiteStore_WithinTxCommits(t *testing.T) {
	s := setupTestDB(t)
	seed(t, s)
	ctx := context.Background()

	err := s.WithinTx(ctx, func(tx storage.Store) error {
		tender, err := tx.LoadTender(ctx, "t1")
		if err != nil {
			return err
		}
		tender.Status = core.TenderClosed
		if err := tx.SaveTender(ctx, *tender); err != nil {
			return err
		}
		bid, err := tx.LoadBid(ctx, "bid_b")
		if err != nil {
			return err
		}
		bid.Status = core.BidRejected
		return tx.SaveBid(ctx, *bid)
	})
	assert.NoError(t, err)

	tender, err := s.LoadTender(ctx, "t1")
	assert.NoError(t, err)
	check.Equal(t, core.TenderClosed, tender.Status)

	bid, err := s.LoadBid(ctx, "bid_b")
	assert.NoError(t, err)
	check.Equal(t, core.BidRejected, bid.Status)
}

func TestSQLiteStore_WithinTxRollsBack(t *testing.T) {
	s := setupTestDB(t)
	seed(t, s)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(tx storage.Store) error {
		tender, err := tx.LoadTender(ctx, "t1")
		if err != nil {
			return err
		}
		tender.Status = core.TenderCancelled
		if err := tx.SaveTender(ctx, *tender); err != nil {
			return err
		}
		return boom
	})
	check.True(t, errors.Is(err, boom))

	tender, err := s.LoadTender(ctx, "t1")
	assert.NoError(t, err)
	check.Equal(t, core.TenderOpen, tender.Status)
}

func TestSQLiteStore_ForeignKeys(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	err := s.SaveBid(ctx, core.Bid{ID: "orphan", TenderID: "nope", SubmittedAt: base, Status: core.BidSubmitted})
	check.True(t, errors.Is(err, core.ErrPersistence))
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tender.db")
	s, err := New(path)
	assert.NoError(t, err)
	seed(t, s)
	assert.NoError(t, s.Close())

	reopened, err := New(path)
	assert.NoError(t, err)
	defer reopened.Close()

	bid, err := reopened.LoadBid(context.Background(), "bid_a")
	assert.NoError(t, err)
	check.Equal(t, 3, len(bid.LineItems))
}

func TestSQLiteStore_ListBidsOrdersBySubmissionTime(t *testing.T) {
	s := setupTestDB(t)
	seed(t, s)
	ctx := context.Background()

	// IDs sort opposite to submission time, so only the timestamp orders them
	submissions := map[string]time.Time{
		"z_first":  base,
		"y_second": base.Add(123450 * time.Microsecond),
		"x_third":  base.Add(123451 * time.Microsecond),
		"w_fourth": base.Add(500 * time.Millisecond),
		"v_fifth":  base.Add(time.Second),
	}
	for id, at := range submissions {
		assert.NoError(t, s.SaveBid(ctx, core.Bid{ID: id, TenderID: "t2", BidderID: id, SubmittedAt: at, Status: core.BidSubmitted}))
	}
	assert.NoError(t, s.SaveBid(ctx, core.Bid{ID: "bid_x", TenderID: "t2", BidderID: "u1", SubmittedAt: base.Add(time.Minute), Status: core.BidSubmitted}))

	bids, err := s.ListBids(ctx, "t2")
	assert.NoError(t, err)

	ids := make([]string, len(bids))
	for i, bid := range bids {
		ids[i] = bid.ID
	}
	check.Equal(t, []string{"z_first", "y_second", "x_third", "w_fourth", "v_fifth", "bid_x"}, ids)
	check.True(t, bids[3].SubmittedAt.Equal(base.Add(500*time.Millisecond)))
}

func TestFormatTime_FixedWidth(t *testing.T) {
	whole := formatTime(base)
	fractional := formatTime(base.Add(500 * time.Millisecond))

	check.Equal(t, "2026-01-05T08:00:00.000000000Z", whole)
	check.Equal(t, len(whole), len(fractional))
	check.True(t, whole < fractional)

	parsed, err := parseTime(fractional)
	assert.NoError(t, err)
	check.True(t, parsed.Equal(base.Add(500*time.Millisecond)))

	legacy, err := parseTime("2026-01-05T08:00:00.5Z")
	assert.NoError(t, err)
	check.True(t, legacy.Equal(parsed))
}
