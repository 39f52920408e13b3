package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("invalid decimal %q: %v", s, err)
	}
	return d
}

func qty(t *testing.T, s string) decimal.NullDecimal {
	t.Helper()
	return decimal.NewNullDecimal(dec(t, s))
}

func lineItem(t *testing.T, id string, line int, category, quantity, price string) BidLineItem {
	t.Helper()
	item := BidLineItem{
		ID:              id,
		BidID:           "bid1",
		LineNumber:      line,
		Category:        category,
		ItemDescription: "item " + id,
		UnitPrice:       dec(t, price),
	}
	if quantity != "" {
		item.Quantity = qty(t, quantity)
	}
	total, err := ComputeLineTotal(item.Quantity, item.UnitPrice)
	if err != nil {
		t.Fatalf("lineItem %s: %v", id, err)
	}
	item.Total = total
	return item
}
