package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/opentender/core"
	"github.com/cloudx-io/opentender/tenderapi"
)

func awardedItems() []core.BidLineItem {
	return []core.BidLineItem{
		{ID: "li1", BidID: "bid1", LineNumber: 1, Quantity: decimal.NewNullDecimal(decimal.NewFromInt(10)), UnitPrice: decimal.NewFromInt(25), Total: decimal.NewFromInt(250)},
		{ID: "li2", BidID: "bid1", LineNumber: 2, UnitPrice: decimal.NewFromInt(30), Total: decimal.NewFromInt(30)},
	}
}

type signedFixture struct {
	pubPEM string
	signed tenderapi.ReceiptCOSE
}

func signAward(t *testing.T, items []core.BidLineItem, grandTotal decimal.Decimal) signedFixture {
	t.Helper()

	km, err := tenderapi.NewKeyManager()
	assert.NoError(t, err)
	pubPEM, err := km.PublicKeyPEM()
	assert.NoError(t, err)

	outcome := &core.AwardOutcome{
		Tender: core.Tender{ID: "t1", Status: core.TenderAwarded},
		Awarded: core.Bid{
			ID: "bid1", TenderID: "t1", BidderID: "u1", Status: core.BidAwarded,
			BidAmount: grandTotal, LineItems: items,
			Evaluation: &core.Evaluation{OverallScore: 74},
		},
	}
	totals := core.BidTotals{Subtotal: grandTotal, GrandTotal: grandTotal}
	if len(items) > 0 {
		pricer, err := core.NewPricer(core.DefaultTaxRate)
		assert.NoError(t, err)
		totals = pricer.AggregateBid(items)
	}

	receipt := tenderapi.NewAwardReceipt("r1", outcome, totals, core.DefaultTaxRate, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	signed, err := km.SignReceipt(receipt)
	assert.NoError(t, err)

	return signedFixture{pubPEM: pubPEM, signed: signed}
}

func TestValidateAwardReceipt_Valid(t *testing.T) {
	f := signAward(t, awardedItems(), decimal.NewFromInt(308))

	result, err := ValidateAwardReceipt(&ReceiptValidationInput{
		ReceiptBase64: f.signed.EncodeBase64(),
		PublicKeyPEM:  f.pubPEM,
		LineItems:     awardedItems(),
	})
	assert.NoError(t, err)
	check.True(t, result.SignatureValid)
	check.True(t, result.AwardHashValid)
	check.True(t, result.LineItemsHashValid)
	check.True(t, result.TotalsValid)
	check.True(t, result.IsValid())
	check.Equal(t, "308", result.Receipt.GrandTotal)
}

func TestValidateAwardReceipt_Gzip(t *testing.T) {
	f := signAward(t, awardedItems(), decimal.NewFromInt(308))
	gz, err := f.signed.CompressGzip()
	assert.NoError(t, err)

	result, err := ValidateAwardReceipt(&ReceiptValidationInput{
		ReceiptGzip:  gz,
		PublicKeyPEM: f.pubPEM,
		LineItems:    awardedItems(),
	})
	assert.NoError(t, err)
	check.True(t, result.IsValid())
}

func TestValidateAwardReceipt_EditedPrice(t *testing.T) {
	f := signAward(t, awardedItems(), decimal.NewFromInt(308))

	edited := awardedItems()
	edited[1].UnitPrice = decimal.NewFromInt(35)
	edited[1].Total = decimal.NewFromInt(35)

	result, err := ValidateAwardReceipt(&ReceiptValidationInput{
		ReceiptBase64: f.signed.EncodeBase64(),
		PublicKeyPEM:  f.pubPEM,
		LineItems:     edited,
	})
	assert.NoError(t, err)
	check.True(t, result.SignatureValid)
	check.False(t, result.LineItemsHashValid)
	check.False(t, result.TotalsValid)
	check.False(t, result.IsValid())
}

func TestValidateAwardReceipt_WrongKey(t *testing.T) {
	f := signAward(t, awardedItems(), decimal.NewFromInt(308))

	other, err := tenderapi.NewKeyManager()
	assert.NoError(t, err)
	otherPEM, err := other.PublicKeyPEM()
	assert.NoError(t, err)

	result, err := ValidateAwardReceipt(&ReceiptValidationInput{
		ReceiptBase64: f.signed.EncodeBase64(),
		PublicKeyPEM:  otherPEM,
		LineItems:     awardedItems(),
	})
	assert.NoError(t, err)
	check.False(t, result.SignatureValid)
	check.True(t, result.LineItemsHashValid)
	check.False(t, result.IsValid())
}

func TestValidateAwardReceipt_FlatBid(t *testing.T) {
	f := signAward(t, nil, decimal.NewFromInt(1200))

	result, err := ValidateAwardReceipt(&ReceiptValidationInput{
		ReceiptBase64: f.signed.EncodeBase64(),
		PublicKeyPEM:  f.pubPEM,
	})
	assert.NoError(t, err)
	check.True(t, result.IsValid())
}

func TestValidateAwardReceipt_BadInput(t *testing.T) {
	f := signAward(t, awardedItems(), decimal.NewFromInt(308))
	gz, err := f.signed.CompressGzip()
	assert.NoError(t, err)

	tests := []struct {
		name      string
		input     *ReceiptValidationInput
		errSubstr string
	}{
		{
			name:      "no receipt",
			input:     &ReceiptValidationInput{PublicKeyPEM: f.pubPEM},
			errSubstr: "receipt is required",
		},
		{
			name:      "both encodings",
			input:     &ReceiptValidationInput{ReceiptBase64: f.signed.EncodeBase64(), ReceiptGzip: gz, PublicKeyPEM: f.pubPEM},
			errSubstr: "not both",
		},
		{
			name:      "bad key",
			input:     &ReceiptValidationInput{ReceiptBase64: f.signed.EncodeBase64(), PublicKeyPEM: "nope"},
			errSubstr: "load issuer public key",
		},
		{
			name:      "not a receipt",
			input:     &ReceiptValidationInput{ReceiptBase64: tenderapi.ReceiptCOSE([]byte("junk")).EncodeBase64(), PublicKeyPEM: f.pubPEM},
			errSubstr: "parse receipt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ValidateAwardReceipt(tt.input)
			check.Nil(t, result)
			check.NotNil(t, err)
			check.True(t, strings.Contains(err.Error(), tt.errSubstr))
		})
	}
}
