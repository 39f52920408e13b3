package core

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ComputeLineItemsHash fingerprints the priced line items of a bid.
// Award receipts carry this hash so a later edit to any price is detectable.
//
// Formula: SHA256(bid_id + "|" + line_1 + "|" + line_2 + ...)
// where line_n = "number:quantity:unit_price:total" in line number order.
//
// Amounts are formatted with decimal.String so trailing zeros never change the hash
// (2.50 and 2.5 are the same price).
func ComputeLineItemsHash(bidID string, items []BidLineItem) string {
	var b strings.Builder
	b.WriteString(bidID)

	for _, item := range SortLineItems(items) {
		qty := "1"
		if item.Quantity.Valid {
			qty = item.Quantity.Decimal.String()
		}
		fmt.Fprintf(&b, "|%d:%s:%s:%s", item.LineNumber, qty, item.UnitPrice.String(), item.Total.String())
	}

	hash := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("%x", hash)
}

// ComputeAwardHash binds an award decision to the winning bid's amount and score.
//
// Formula: SHA256(tender_id + "|" + bid_id + "|" + grand_total + "|" + overall_score)
func ComputeAwardHash(tenderID, bidID string, grandTotal decimal.Decimal, overallScore int) string {
	data := fmt.Sprintf("%s|%s|%s|%d", tenderID, bidID, grandTotal.String(), overallScore)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
