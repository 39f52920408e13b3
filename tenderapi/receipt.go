// Package tenderapi defines the wire format of signed award receipts:
// a CBOR payload inside a COSE_Sign1 envelope, plus the base64 and gzip
// encodings used to hand receipts to bidders.
package tenderapi

import (
	"fmt"
	"sort"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/opentender/core"
)

// ReceiptContentType identifies the CBOR award receipt inside a COSE_Sign1 envelope.
const ReceiptContentType = "application/vnd.opentender.award-receipt+cbor"

// AwardReceipt is the tamper-evident record of an award decision.
// Amounts are decimal strings so the receipt round-trips without float rounding.
type AwardReceipt struct {
	ReceiptID      string    `cbor:"receipt_id" json:"receipt_id"`
	TenderID       string    `cbor:"tender_id" json:"tender_id"`
	BidID          string    `cbor:"bid_id" json:"bid_id"`
	BidderID       string    `cbor:"bidder_id" json:"bidder_id"`
	LineItemCount  int       `cbor:"line_item_count" json:"line_item_count"`
	Subtotal       string    `cbor:"subtotal" json:"subtotal"`
	Tax            string    `cbor:"tax" json:"tax"`
	TaxRate        string    `cbor:"tax_rate" json:"tax_rate"`
	GrandTotal     string    `cbor:"grand_total" json:"grand_total"`
	OverallScore   int       `cbor:"overall_score" json:"overall_score"`
	LineItemsHash  string    `cbor:"line_items_hash" json:"line_items_hash"`
	AwardHash      string    `cbor:"award_hash" json:"award_hash"`
	RejectedBidIDs []string  `cbor:"rejected_bid_ids" json:"rejected_bid_ids"`
	AwardedAt      time.Time `cbor:"awarded_at" json:"awarded_at"`
}

// NewAwardReceipt captures an award outcome and the winning bid's totals.
func NewAwardReceipt(receiptID string, outcome *core.AwardOutcome, totals core.BidTotals, taxRate decimal.Decimal, awardedAt time.Time) AwardReceipt {
	winner := outcome.Awarded
	score := core.OverallScore(&winner)

	rejected := make([]string, 0, len(outcome.Rejected))
	for _, bid := range outcome.Rejected {
		rejected = append(rejected, bid.ID)
	}
	sort.Strings(rejected)

	return AwardReceipt{
		ReceiptID:      receiptID,
		TenderID:       outcome.Tender.ID,
		BidID:          winner.ID,
		BidderID:       winner.BidderID,
		LineItemCount:  len(winner.LineItems),
		Subtotal:       totals.Subtotal.String(),
		Tax:            totals.Tax.String(),
		TaxRate:        taxRate.String(),
		GrandTotal:     totals.GrandTotal.String(),
		OverallScore:   score,
		LineItemsHash:  core.ComputeLineItemsHash(winner.ID, winner.LineItems),
		AwardHash:      core.ComputeAwardHash(outcome.Tender.ID, winner.ID, totals.GrandTotal, score),
		RejectedBidIDs: rejected,
		AwardedAt:      awardedAt.UTC(),
	}
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano

	var err error
	if encMode, err = opts.EncMode(); err != nil {
		panic(fmt.Sprintf("tenderapi: cbor encode options: %v", err))
	}
	if decMode, err = (cbor.DecOptions{}).DecMode(); err != nil {
		panic(fmt.Sprintf("tenderapi: cbor decode options: %v", err))
	}
}

// EncodeCBOR returns the deterministic CBOR encoding of the receipt.
func (r AwardReceipt) EncodeCBOR() ([]byte, error) {
	data, err := encMode.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode award receipt: %w", err)
	}
	return data, nil
}

// DecodeAwardReceipt parses a CBOR encoded receipt.
func DecodeAwardReceipt(data []byte) (*AwardReceipt, error) {
	var r AwardReceipt
	if err := decMode.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode award receipt: %w", err)
	}
	return &r, nil
}

// GrandTotalDecimal parses the receipt's grand total.
func (r AwardReceipt) GrandTotalDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(r.GrandTotal)
}

// TaxRateDecimal parses the receipt's tax rate.
func (r AwardReceipt) TaxRateDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(r.TaxRate)
}
