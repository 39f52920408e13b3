package engine

import (
	"context"
	"fmt"

	"github.com/cloudx-io/opentender/core"
)

// ItemEdit is one requested change within a batch edit.
type ItemEdit struct {
	ItemID string
	Edit   core.LineItemEdit
}

// ItemResult reports what happened to one requested edit. Item holds the
// persisted line item when Err is nil and the unchanged item otherwise
// (zero when the item does not exist).
type ItemResult struct {
	ItemID string
	Item   core.BidLineItem
	Err    error
}

// BidTotals derives subtotal, tax and grand total from the bid's stored line items.
func (e *Engine) BidTotals(ctx context.Context, bidID string) (core.BidTotals, error) {
	items, err := e.store.LoadLineItems(ctx, bidID)
	if err != nil {
		return core.BidTotals{}, err
	}
	return e.pricer.AggregateBid(items), nil
}

// PricedBid loads a bid with its line items and their rollup.
func (e *Engine) PricedBid(ctx context.Context, bidID string) (*core.Bid, core.BidTotals, error) {
	bid, err := e.store.LoadBid(ctx, bidID)
	if err != nil {
		return nil, core.BidTotals{}, err
	}
	return bid, e.pricer.AggregateBid(bid.LineItems), nil
}

// GroupedLineItems returns the bid's line items bucketed by category for display.
func (e *Engine) GroupedLineItems(ctx context.Context, bidID string) ([]core.CategoryGroup, error) {
	items, err := e.store.LoadLineItems(ctx, bidID)
	if err != nil {
		return nil, err
	}
	return core.GroupByCategory(items), nil
}

// CanEdit reports whether userID may edit the bid's line items right now.
func (e *Engine) CanEdit(ctx context.Context, bidID, userID string, readOnly bool) (bool, error) {
	bid, tender, err := e.loadBidAndTender(ctx, bidID)
	if err != nil {
		return false, err
	}
	return e.guard.CanEdit(*bid, *tender, userID, readOnly), nil
}

// UpdateLineItem applies a single edit. It fails with core.ErrEditLocked when
// the user may not edit the bid.
func (e *Engine) UpdateLineItem(ctx context.Context, bidID, userID string, readOnly bool, itemID string, edit core.LineItemEdit) (core.BidLineItem, error) {
	results, err := e.UpdateLineItems(ctx, bidID, userID, readOnly, []ItemEdit{{ItemID: itemID, Edit: edit}})
	if err != nil {
		return core.BidLineItem{}, err
	}
	return results[0].Item, results[0].Err
}

// UpdateLineItems applies edits one item at a time and reports a result per
// edit. A failed item does not stop the rest of the batch, and items already
// saved stay saved. After the batch the bid amount is resynced from the items
// that were persisted.
//
// The returned error is non-nil only when the batch could not start (unknown
// bid, edit not permitted) or the bid amount resync failed.
func (e *Engine) UpdateLineItems(ctx context.Context, bidID, userID string, readOnly bool, edits []ItemEdit) ([]ItemResult, error) {
	bid, tender, err := e.loadBidAndTender(ctx, bidID)
	if err != nil {
		return nil, err
	}

	if !e.guard.CanEdit(*bid, *tender, userID, readOnly) {
		e.metrics.guardDenied()
		e.logger.WarnContext(ctx, "line item edit refused",
			"bid_id", bidID, "user_id", userID, "read_only", readOnly, "deadline", tender.Deadline,
			"bid_status", bid.Status, "tender_status", tender.Status)
		return nil, fmt.Errorf("%w: user %q may not edit bid %s", core.ErrEditLocked, userID, bidID)
	}

	items := bid.LineItems
	index := make(map[string]int, len(items))
	for i, item := range items {
		index[item.ID] = i
	}

	results := make([]ItemResult, 0, len(edits))
	saved := 0
	for _, ed := range edits {
		i, ok := index[ed.ItemID]
		if !ok {
			err := fmt.Errorf("%w: line item %s on bid %s", core.ErrNotFound, ed.ItemID, bidID)
			e.metrics.lineItemEdit(outcomeOf(err))
			results = append(results, ItemResult{ItemID: ed.ItemID, Err: err})
			continue
		}

		updated, err := e.pricer.UpdateLineItem(items[i], ed.Edit)
		if err == nil {
			err = e.store.SaveLineItem(ctx, updated)
		}
		e.metrics.lineItemEdit(outcomeOf(err))
		if err != nil {
			e.logger.WarnContext(ctx, "line item edit failed", "bid_id", bidID, "item_id", ed.ItemID, "error", err)
			results = append(results, ItemResult{ItemID: ed.ItemID, Item: items[i], Err: err})
			continue
		}

		items[i] = updated
		saved++
		results = append(results, ItemResult{ItemID: ed.ItemID, Item: updated})
	}

	if saved == 0 {
		return results, nil
	}

	totals := e.pricer.AggregateBid(items)
	e.logger.InfoContext(ctx, "line items updated",
		"bid_id", bidID, "edited", saved, "requested", len(edits), "grand_total", totals.GrandTotal.String())

	if !bid.BidAmount.Equal(totals.GrandTotal) {
		bid.BidAmount = totals.GrandTotal
		if err := e.store.SaveBid(ctx, *bid); err != nil {
			return results, fmt.Errorf("resync bid %s amount: %w", bidID, err)
		}
	}
	return results, nil
}

func (e *Engine) loadBidAndTender(ctx context.Context, bidID string) (*core.Bid, *core.Tender, error) {
	bid, err := e.store.LoadBid(ctx, bidID)
	if err != nil {
		return nil, nil, err
	}
	tender, err := e.store.LoadTender(ctx, bid.TenderID)
	if err != nil {
		return nil, nil, err
	}
	return bid, tender, nil
}
