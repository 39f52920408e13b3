// Package storage defines the persistence collaborators of the tender engine.
// Implementations wrap driver failures in core.ErrPersistence and report
// missing entities with core.ErrNotFound.
package storage

import (
	"context"

	"github.com/cloudx-io/opentender/core"
)

// LineItemStore persists bid line items.
type LineItemStore interface {
	// LoadLineItems returns the bid's line items in line number order.
	LoadLineItems(ctx context.Context, bidID string) ([]core.BidLineItem, error)

	// SaveLineItem inserts or replaces a single line item.
	SaveLineItem(ctx context.Context, item core.BidLineItem) error
}

// BidStore persists bids together with their evaluation.
type BidStore interface {
	// LoadBid returns the bid with its line items and evaluation.
	LoadBid(ctx context.Context, bidID string) (*core.Bid, error)

	// ListBids returns every bid on a tender in submission order.
	ListBids(ctx context.Context, tenderID string) ([]core.Bid, error)

	// SaveBid inserts or replaces a bid and its evaluation. Line items are
	// saved through LineItemStore.
	SaveBid(ctx context.Context, bid core.Bid) error
}

// TenderStore persists tenders.
type TenderStore interface {
	LoadTender(ctx context.Context, tenderID string) (*core.Tender, error)
	SaveTender(ctx context.Context, tender core.Tender) error
}

// Store combines the collaborators with transaction support.
type Store interface {
	LineItemStore
	BidStore
	TenderStore

	// WithinTx runs fn against a transactional view of the store. Every
	// write made through tx is committed if fn returns nil and discarded
	// otherwise.
	WithinTx(ctx context.Context, fn func(tx Store) error) error

	// Close releases any resources held by the store.
	Close() error
}
