package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/opentender/core"
	"github.com/cloudx-io/opentender/storage"
	"github.com/cloudx-io/opentender/tenderapi"
)

// NewTender describes a tender to create in draft.
type NewTender struct {
	Title    string
	IssuerID string
	Budget   decimal.NullDecimal
	Deadline time.Time
}

// NewBid describes a bid to submit. With line items, the bid amount is
// derived from them; without, BidAmount is taken as given.
type NewBid struct {
	TenderID     string
	BidderID     string
	BidAmount    decimal.Decimal
	TimelineDays int
	CompanyInfo  core.CompanyInfo
	LineItems    []core.BidLineItem
}

// AwardResult is the committed outcome of an award.
type AwardResult struct {
	Outcome *core.AwardOutcome
	Totals  core.BidTotals

	// Receipt and SignedReceipt are set when the engine has a receipt signer
	Receipt       *tenderapi.AwardReceipt
	SignedReceipt tenderapi.ReceiptCOSE
}

// CreateTender stores a new draft tender.
func (e *Engine) CreateTender(ctx context.Context, in NewTender) (core.Tender, error) {
	if in.Title == "" {
		return core.Tender{}, fmt.Errorf("%w: tender title is required", core.ErrInvalidInput)
	}
	if in.Deadline.IsZero() {
		return core.Tender{}, fmt.Errorf("%w: tender deadline is required", core.ErrInvalidInput)
	}
	if in.Budget.Valid && in.Budget.Decimal.IsNegative() {
		return core.Tender{}, fmt.Errorf("%w: budget %s is negative", core.ErrInvalidInput, in.Budget.Decimal)
	}

	tender := core.Tender{
		ID:       e.newID(),
		Title:    in.Title,
		IssuerID: in.IssuerID,
		Budget:   in.Budget,
		Deadline: in.Deadline,
		Status:   core.TenderDraft,
	}
	if err := e.store.SaveTender(ctx, tender); err != nil {
		return core.Tender{}, err
	}

	e.logger.InfoContext(ctx, "tender created", "tender_id", tender.ID, "deadline", tender.Deadline)
	return tender, nil
}

// SubmitBid records a bid on an open tender before its deadline. Line items
// get IDs where missing, are priced, and are saved with the bid atomically.
func (e *Engine) SubmitBid(ctx context.Context, in NewBid) (core.Bid, error) {
	if in.BidderID == "" {
		return core.Bid{}, fmt.Errorf("%w: bidder is required", core.ErrInvalidInput)
	}
	if in.TimelineDays < 0 {
		return core.Bid{}, fmt.Errorf("%w: timeline of %d days is negative", core.ErrInvalidInput, in.TimelineDays)
	}

	tender, err := e.store.LoadTender(ctx, in.TenderID)
	if err != nil {
		return core.Bid{}, err
	}
	now := e.clock.Now()
	if tender.Status != core.TenderOpen || !now.Before(tender.Deadline) {
		return core.Bid{}, fmt.Errorf("%w: tender %s is not accepting bids", core.ErrIllegalTransition, tender.ID)
	}

	bid := core.Bid{
		ID:           e.newID(),
		TenderID:     tender.ID,
		BidderID:     in.BidderID,
		BidAmount:    in.BidAmount,
		Status:       core.BidSubmitted,
		SubmittedAt:  now,
		TimelineDays: in.TimelineDays,
		CompanyInfo:  in.CompanyInfo,
		LineItems:    make([]core.BidLineItem, len(in.LineItems)),
	}
	for i, item := range in.LineItems {
		if item.ID == "" {
			item.ID = e.newID()
		}
		item.BidID = bid.ID
		bid.LineItems[i] = item
	}

	if bid, err = e.pricer.PriceBid(bid); err != nil {
		return core.Bid{}, err
	}
	if err := core.ValidateLineItems(bid.ID, bid.LineItems); err != nil {
		return core.Bid{}, err
	}
	if bid.BidAmount.IsNegative() {
		return core.Bid{}, fmt.Errorf("%w: bid amount %s is negative", core.ErrInvalidInput, bid.BidAmount)
	}

	err = e.store.WithinTx(ctx, func(tx storage.Store) error {
		if err := tx.SaveBid(ctx, bid); err != nil {
			return err
		}
		for _, item := range bid.LineItems {
			if err := tx.SaveLineItem(ctx, item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return core.Bid{}, err
	}

	bid.LineItems = core.SortLineItems(bid.LineItems)
	e.logger.InfoContext(ctx, "bid submitted",
		"tender_id", tender.ID, "bid_id", bid.ID, "bidder_id", bid.BidderID,
		"line_items", len(bid.LineItems), "bid_amount", bid.BidAmount.String())
	return bid, nil
}

// PublishTender opens a draft tender for bids. The deadline must still be ahead.
func (e *Engine) PublishTender(ctx context.Context, tenderID string) (core.Tender, error) {
	return e.transitionTender(ctx, tenderID, core.TenderOpen, func(t core.Tender) error {
		if !e.clock.Now().Before(t.Deadline) {
			return fmt.Errorf("%w: tender %s deadline %s has already passed", core.ErrInvalidInput, t.ID, t.Deadline.Format(time.RFC3339))
		}
		return nil
	})
}

// CloseTender stops bidding on an open tender.
func (e *Engine) CloseTender(ctx context.Context, tenderID string) (core.Tender, error) {
	return e.transitionTender(ctx, tenderID, core.TenderClosed, nil)
}

// CancelTender withdraws a tender that has not been awarded.
func (e *Engine) CancelTender(ctx context.Context, tenderID string) (core.Tender, error) {
	return e.transitionTender(ctx, tenderID, core.TenderCancelled, nil)
}

func (e *Engine) transitionTender(ctx context.Context, tenderID string, to core.TenderStatus, check func(core.Tender) error) (core.Tender, error) {
	tender, err := e.store.LoadTender(ctx, tenderID)
	if err != nil {
		return core.Tender{}, err
	}

	next, err := core.TransitionTender(*tender, to)
	if err != nil {
		return core.Tender{}, err
	}
	if check != nil {
		if err := check(*tender); err != nil {
			return core.Tender{}, err
		}
	}

	if err := e.store.SaveTender(ctx, next); err != nil {
		return core.Tender{}, err
	}

	e.logger.InfoContext(ctx, "tender status changed", "tender_id", tenderID, "from", tender.Status, "to", next.Status)
	return next, nil
}

// SyncTenderDeadline closes an open tender whose deadline has passed and
// reports whether it did.
func (e *Engine) SyncTenderDeadline(ctx context.Context, tenderID string) (core.Tender, bool, error) {
	tender, err := e.store.LoadTender(ctx, tenderID)
	if err != nil {
		return core.Tender{}, false, err
	}

	next, changed := core.CloseIfExpired(*tender, e.clock.Now())
	if !changed {
		return next, false, nil
	}
	if err := e.store.SaveTender(ctx, next); err != nil {
		return core.Tender{}, false, err
	}

	e.logger.InfoContext(ctx, "tender closed at deadline", "tender_id", tenderID, "deadline", tender.Deadline)
	return next, true, nil
}

// AdvanceBid moves a bid through review. Awards go through AwardBid.
func (e *Engine) AdvanceBid(ctx context.Context, bidID string, to core.BidStatus) (core.Bid, error) {
	if to == core.BidAwarded {
		return core.Bid{}, fmt.Errorf("%w: bid %s must be awarded through its tender", core.ErrIllegalTransition, bidID)
	}

	bid, err := e.store.LoadBid(ctx, bidID)
	if err != nil {
		return core.Bid{}, err
	}

	next, err := core.TransitionBid(*bid, to)
	if err != nil {
		return core.Bid{}, err
	}
	if err := e.store.SaveBid(ctx, next); err != nil {
		return core.Bid{}, err
	}

	e.logger.InfoContext(ctx, "bid status changed", "bid_id", bidID, "from", bid.Status, "to", next.Status)
	return next, nil
}

// AwardBid awards the tender to a shortlisted bid and rejects every other bid
// still in play. The tender, the winner and all rejected siblings are saved in
// one transaction: either every change is stored or none is.
func (e *Engine) AwardBid(ctx context.Context, tenderID, bidID string) (*AwardResult, error) {
	start := time.Now()

	var result *AwardResult
	err := e.store.WithinTx(ctx, func(tx storage.Store) error {
		tender, err := tx.LoadTender(ctx, tenderID)
		if err != nil {
			return err
		}
		bid, err := tx.LoadBid(ctx, bidID)
		if err != nil {
			return err
		}
		siblings, err := tx.ListBids(ctx, tenderID)
		if err != nil {
			return err
		}

		outcome, err := core.AwardBid(*tender, *bid, siblings, e.policy)
		if err != nil {
			return err
		}

		if err := tx.SaveTender(ctx, outcome.Tender); err != nil {
			return err
		}
		if err := tx.SaveBid(ctx, outcome.Awarded); err != nil {
			return err
		}
		for _, rejected := range outcome.Rejected {
			if err := tx.SaveBid(ctx, rejected); err != nil {
				return err
			}
		}

		result = &AwardResult{Outcome: outcome, Totals: e.awardTotals(outcome.Awarded)}

		if e.signer != nil {
			receipt := tenderapi.NewAwardReceipt(e.newID(), outcome, result.Totals, e.pricer.TaxRate(), e.clock.Now())
			signed, err := e.signer.SignReceipt(receipt)
			if err != nil {
				return fmt.Errorf("sign award receipt: %w", err)
			}
			result.Receipt = &receipt
			result.SignedReceipt = signed
		}
		return nil
	})

	e.metrics.award(outcomeOf(err), time.Since(start))
	if err != nil {
		e.logger.WarnContext(ctx, "award failed", "tender_id", tenderID, "bid_id", bidID, "error", err)
		return nil, err
	}

	e.logger.InfoContext(ctx, "tender awarded",
		"tender_id", tenderID, "bid_id", bidID,
		"grand_total", result.Totals.GrandTotal.String(), "rejected", len(result.Outcome.Rejected))
	return result, nil
}

// awardTotals prices the winning bid. A flat-amount bid has no line items,
// so its amount stands as the grand total.
func (e *Engine) awardTotals(bid core.Bid) core.BidTotals {
	if len(bid.LineItems) == 0 {
		return core.BidTotals{Subtotal: bid.BidAmount, Tax: decimal.Zero, GrandTotal: bid.BidAmount}
	}
	return e.pricer.AggregateBid(bid.LineItems)
}
