// Package memory provides an in-process implementation of storage.Store.
// Transactions run against a copy of the data that replaces the live state
// on commit, so a failed transaction leaves no trace.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cloudx-io/opentender/core"
	"github.com/cloudx-io/opentender/storage"
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

// Op names a write operation for fault injection.
type Op string

const (
	OpSaveLineItem Op = "save_line_item"
	OpSaveBid      Op = "save_bid"
	OpSaveTender   Op = "save_tender"
)

// FaultFunc returns a non-nil error to make a write fail.
type FaultFunc func(op Op, id string) error

type state struct {
	tenders map[string]core.Tender
	bids    map[string]core.Bid
	items   map[string]map[string]core.BidLineItem // bid ID -> item ID -> item
}

func newState() *state {
	return &state{
		tenders: map[string]core.Tender{},
		bids:    map[string]core.Bid{},
		items:   map[string]map[string]core.BidLineItem{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.tenders {
		c.tenders[k] = v
	}
	for k, v := range s.bids {
		c.bids[k] = v
	}
	for bidID, items := range s.items {
		m := make(map[string]core.BidLineItem, len(items))
		for k, v := range items {
			m[k] = v
		}
		c.items[bidID] = m
	}
	return c
}

// Store keeps tenders, bids and line items in memory.
type Store struct {
	writeMu sync.Mutex // serializes writers and transactions
	mu      sync.RWMutex
	data    *state
	fault   FaultFunc
	inTx    bool
}

// New returns an empty Store.
func New() *Store {
	return &Store{data: newState()}
}

// SetFault installs a fault injection hook used by tests. Pass nil to clear it.
func (s *Store) SetFault(f FaultFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = f
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// WithinTx runs fn on a private copy of the data and publishes the copy
// only when fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(tx storage.Store) error) error {
	if s.inTx {
		return fn(s)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	tx := &Store{data: s.data.clone(), fault: s.fault, inTx: true}
	s.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = tx.data
	s.mu.Unlock()
	return nil
}

func (s *Store) write(op Op, id string, apply func(*state)) error {
	if !s.inTx {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fault != nil {
		if err := s.fault(op, id); err != nil {
			return fmt.Errorf("%w: %s %s: %v", core.ErrPersistence, op, id, err)
		}
	}
	apply(s.data)
	return nil
}

// LoadTender returns a copy of the stored tender.
func (s *Store) LoadTender(ctx context.Context, tenderID string) (*core.Tender, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.data.tenders[tenderID]
	if !ok {
		return nil, fmt.Errorf("%w: tender %s", core.ErrNotFound, tenderID)
	}
	return &t, nil
}

// SaveTender inserts or replaces a tender.
func (s *Store) SaveTender(ctx context.Context, tender core.Tender) error {
	return s.write(OpSaveTender, tender.ID, func(st *state) {
		st.tenders[tender.ID] = tender
	})
}

// LoadBid returns the bid with its current line items.
func (s *Store) LoadBid(ctx context.Context, bidID string) (*core.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bid, ok := s.data.bids[bidID]
	if !ok {
		return nil, fmt.Errorf("%w: bid %s", core.ErrNotFound, bidID)
	}
	out := s.hydrate(bid)
	return &out, nil
}

// ListBids returns the tender's bids ordered by submission time.
func (s *Store) ListBids(ctx context.Context, tenderID string) ([]core.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bids := make([]core.Bid, 0)
	for _, bid := range s.data.bids {
		if bid.TenderID == tenderID {
			bids = append(bids, s.hydrate(bid))
		}
	}
	sort.SliceStable(bids, func(i, j int) bool {
		if bids[i].SubmittedAt.Equal(bids[j].SubmittedAt) {
			return bids[i].ID < bids[j].ID
		}
		return bids[i].SubmittedAt.Before(bids[j].SubmittedAt)
	})
	return bids, nil
}

// SaveBid inserts or replaces a bid. Line items carried on the bid are ignored.
func (s *Store) SaveBid(ctx context.Context, bid core.Bid) error {
	bid.LineItems = nil
	if bid.Evaluation != nil {
		ev := *bid.Evaluation
		bid.Evaluation = &ev
	}
	return s.write(OpSaveBid, bid.ID, func(st *state) {
		st.bids[bid.ID] = bid
	})
}

// LoadLineItems returns the bid's items in line number order.
func (s *Store) LoadLineItems(ctx context.Context, bidID string) ([]core.BidLineItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.data.bids[bidID]; !ok {
		return nil, fmt.Errorf("%w: bid %s", core.ErrNotFound, bidID)
	}
	return s.itemsOf(bidID), nil
}

// SaveLineItem inserts or replaces a single line item.
func (s *Store) SaveLineItem(ctx context.Context, item core.BidLineItem) error {
	return s.write(OpSaveLineItem, item.ID, func(st *state) {
		m, ok := st.items[item.BidID]
		if !ok {
			m = map[string]core.BidLineItem{}
			st.items[item.BidID] = m
		}
		m[item.ID] = item
	})
}

// hydrate must be called with mu held.
func (s *Store) hydrate(bid core.Bid) core.Bid {
	bid.LineItems = s.itemsOf(bid.ID)
	if bid.Evaluation != nil {
		ev := *bid.Evaluation
		bid.Evaluation = &ev
	}
	return bid
}

func (s *Store) itemsOf(bidID string) []core.BidLineItem {
	items := make([]core.BidLineItem, 0, len(s.data.items[bidID]))
	for _, item := range s.data.items[bidID] {
		items = append(items, item)
	}
	return core.SortLineItems(items)
}
