package core

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// UncategorizedLabel groups line items that carry no category.
const UncategorizedLabel = "Uncategorized"

// DefaultTaxRate is the GST rate applied when none is configured.
var DefaultTaxRate = decimal.NewFromFloat(0.10)

// Pricer computes line totals and bid rollups for a fixed tax rate.
type Pricer struct {
	taxRate decimal.Decimal
}

// NewPricer returns a Pricer applying taxRate to every bid subtotal.
func NewPricer(taxRate decimal.Decimal) (*Pricer, error) {
	if taxRate.IsNegative() {
		return nil, fmt.Errorf("%w: tax rate %s is negative", ErrInvalidInput, taxRate)
	}
	return &Pricer{taxRate: taxRate}, nil
}

// TaxRate returns the configured tax rate.
func (p *Pricer) TaxRate() decimal.Decimal {
	return p.taxRate
}

// ComputeLineTotal returns quantity * unitPrice, pricing an absent quantity as 1.
// Negative prices and quantities are rejected, never clamped.
func ComputeLineTotal(quantity decimal.NullDecimal, unitPrice decimal.Decimal) (decimal.Decimal, error) {
	if unitPrice.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: unit price %s is negative", ErrInvalidInput, unitPrice)
	}

	qty := decimal.NewFromInt(1)
	if quantity.Valid {
		if quantity.Decimal.IsNegative() {
			return decimal.Zero, fmt.Errorf("%w: quantity %s is negative", ErrInvalidInput, quantity.Decimal)
		}
		qty = quantity.Decimal
	}

	return qty.Mul(unitPrice), nil
}

// UpdateLineItem applies an operator edit and returns the updated item.
// Only the unit price and notes are editable; quantity is fixed by the
// issuer's bill of quantities. The total is recomputed whenever the unit
// price is set, so repeating the same edit yields the same total.
func (p *Pricer) UpdateLineItem(item BidLineItem, edit LineItemEdit) (BidLineItem, error) {
	updated := item

	if edit.UnitPrice != nil {
		total, err := ComputeLineTotal(item.Quantity, *edit.UnitPrice)
		if err != nil {
			return item, fmt.Errorf("line %d: %w", item.LineNumber, err)
		}
		updated.UnitPrice = *edit.UnitPrice
		updated.Total = total
	}

	if edit.Notes != nil {
		updated.Notes = *edit.Notes
	}

	return updated, nil
}

// AggregateBid sums line totals and applies the tax rate.
// The result is always derived from the items passed in.
func (p *Pricer) AggregateBid(items []BidLineItem) BidTotals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Total)
	}

	tax := subtotal.Mul(p.taxRate)

	return BidTotals{
		Subtotal:   subtotal,
		Tax:        tax,
		GrandTotal: subtotal.Add(tax),
	}
}

// PriceBid recomputes every line total and sets BidAmount to the grand total.
// Flat-amount bids (no line items) are returned unchanged.
func (p *Pricer) PriceBid(bid Bid) (Bid, error) {
	if len(bid.LineItems) == 0 {
		return bid, nil
	}

	priced := bid
	priced.LineItems = make([]BidLineItem, len(bid.LineItems))
	for i, item := range bid.LineItems {
		total, err := ComputeLineTotal(item.Quantity, item.UnitPrice)
		if err != nil {
			return bid, fmt.Errorf("bid %s line %d: %w", bid.ID, item.LineNumber, err)
		}
		priced.LineItems[i] = item
		priced.LineItems[i].Total = total
	}

	priced.BidAmount = p.AggregateBid(priced.LineItems).GrandTotal
	return priced, nil
}

// SortLineItems returns a copy of items in display (line number) order.
func SortLineItems(items []BidLineItem) []BidLineItem {
	sorted := make([]BidLineItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LineNumber < sorted[j].LineNumber
	})
	return sorted
}

// GroupByCategory buckets items by category. Categories appear in the order
// they are first seen in line number order, and items keep line number
// order within each bucket.
func GroupByCategory(items []BidLineItem) []CategoryGroup {
	groups := make([]CategoryGroup, 0)
	index := make(map[string]int)

	for _, item := range SortLineItems(items) {
		category := item.Category
		if category == "" {
			category = UncategorizedLabel
		}

		i, seen := index[category]
		if !seen {
			i = len(groups)
			index[category] = i
			groups = append(groups, CategoryGroup{Category: category})
		}
		groups[i].Items = append(groups[i].Items, item)
	}

	return groups
}

// ValidateLineItems checks the structural invariants of a bid's line items:
// every item belongs to bidID, line numbers are unique, prices are
// non-negative and every stored total equals quantity * unit price.
func ValidateLineItems(bidID string, items []BidLineItem) error {
	seen := make(map[int]string, len(items))

	for _, item := range items {
		if item.BidID != bidID {
			return fmt.Errorf("%w: line item %s belongs to bid %q, not %q", ErrInvalidInput, item.ID, item.BidID, bidID)
		}
		if other, dup := seen[item.LineNumber]; dup {
			return fmt.Errorf("%w: line number %d used by both %s and %s", ErrInvalidInput, item.LineNumber, other, item.ID)
		}
		seen[item.LineNumber] = item.ID

		want, err := ComputeLineTotal(item.Quantity, item.UnitPrice)
		if err != nil {
			return fmt.Errorf("line item %s: %w", item.ID, err)
		}
		if !item.Total.Equal(want) {
			return fmt.Errorf("%w: line item %s total %s does not equal %s", ErrInvalidInput, item.ID, item.Total, want)
		}
	}

	return nil
}
