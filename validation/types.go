package validation

import (
	"github.com/cloudx-io/opentender/core"
	"github.com/cloudx-io/opentender/tenderapi"
)

// BaseValidationResult contains the checks common to every signed document
type BaseValidationResult struct {
	SignatureValid    bool
	ValidationDetails []string
}

// ReceiptValidationResult contains validation results specific to award receipts
type ReceiptValidationResult struct {
	BaseValidationResult
	AwardHashValid     bool
	LineItemsHashValid bool
	TotalsValid        bool

	// Receipt is the decoded payload, present whenever it could be parsed
	Receipt *tenderapi.AwardReceipt
}

// IsValid returns true if all receipt validation checks passed
func (r *ReceiptValidationResult) IsValid() bool {
	return r.SignatureValid && r.AwardHashValid && r.LineItemsHashValid && r.TotalsValid
}

// ReceiptValidationInput contains all inputs needed for receipt validation.
// Exactly one of ReceiptBase64 and ReceiptGzip is set.
type ReceiptValidationInput struct {
	ReceiptBase64 tenderapi.ReceiptCOSEBase64
	ReceiptGzip   tenderapi.ReceiptCOSEGzip

	// PublicKeyPEM is the issuer's published signing key
	PublicKeyPEM string

	// LineItems are the awarded bid's line items as currently stored
	LineItems []core.BidLineItem
}
