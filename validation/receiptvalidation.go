// Package validation verifies signed award receipts so that a bidder, or an
// auditor, can confirm an award was made as recorded and that the winning
// bid's prices have not changed since.
package validation

import (
	"errors"
	"fmt"

	"github.com/cloudx-io/opentender/core"
	"github.com/cloudx-io/opentender/tenderapi"
)

// ValidateAwardReceipt validates a signed award receipt and verifies:
// - The COSE signature matches the issuer's public key
// - The award hash binds the tender, bid, grand total and score
// - The line items hash matches the bid's current line items
// - The line items still add up to the receipt's grand total
//
// Returns:
//   - ReceiptValidationResult with detailed results (call result.IsValid() to check overall status)
//   - error if validation cannot be performed (e.g., malformed input, unreadable key)
func ValidateAwardReceipt(input *ReceiptValidationInput) (*ReceiptValidationResult, error) {
	signed, err := decodeReceipt(input)
	if err != nil {
		return nil, err
	}

	publicKey, err := tenderapi.ParsePublicKeyPEM(input.PublicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("load issuer public key: %w", err)
	}

	msg, receipt, err := tenderapi.ParseSignedReceipt(signed)
	if err != nil {
		return nil, fmt.Errorf("parse receipt: %w", err)
	}

	result := &ReceiptValidationResult{
		BaseValidationResult: BaseValidationResult{ValidationDetails: []string{}},
		Receipt:              receipt,
	}

	if err := VerifyCOSESignature(msg, publicKey); err != nil {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Signature invalid: %v", err))
	} else {
		result.SignatureValid = true
		result.ValidationDetails = append(result.ValidationDetails, "Signature valid (ES256)")
	}

	result.AwardHashValid = validateAwardHash(receipt, result)
	result.LineItemsHashValid = validateLineItemsHash(receipt, input.LineItems, result)
	result.TotalsValid = validateTotals(receipt, input.LineItems, result)

	return result, nil
}

func decodeReceipt(input *ReceiptValidationInput) (tenderapi.ReceiptCOSE, error) {
	switch {
	case input.ReceiptBase64 != "" && input.ReceiptGzip != "":
		return nil, errors.New("provide either a base64 or a gzip receipt, not both")
	case input.ReceiptGzip != "":
		signed, err := input.ReceiptGzip.Decompress()
		if err != nil {
			return nil, fmt.Errorf("decompress receipt: %w", err)
		}
		return signed, nil
	case input.ReceiptBase64 != "":
		signed, err := input.ReceiptBase64.Decode()
		if err != nil {
			return nil, fmt.Errorf("decode receipt: %w", err)
		}
		return signed, nil
	default:
		return nil, errors.New("receipt is required")
	}
}

func validateAwardHash(receipt *tenderapi.AwardReceipt, result *ReceiptValidationResult) bool {
	grandTotal, err := receipt.GrandTotalDecimal()
	if err != nil {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Grand total %q is not a decimal", receipt.GrandTotal))
		return false
	}

	computed := core.ComputeAwardHash(receipt.TenderID, receipt.BidID, grandTotal, receipt.OverallScore)
	if computed == receipt.AwardHash {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Award hash validation passed: %s", computed))
		return true
	}

	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Award hash mismatch: computed %s, receipt has %s", computed, receipt.AwardHash))
	return false
}

func validateLineItemsHash(receipt *tenderapi.AwardReceipt, items []core.BidLineItem, result *ReceiptValidationResult) bool {
	if len(items) != receipt.LineItemCount {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Line item count mismatch: receipt has %d, provided %d", receipt.LineItemCount, len(items)))
		return false
	}

	computed := core.ComputeLineItemsHash(receipt.BidID, items)
	if computed == receipt.LineItemsHash {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Line items hash validation passed: %s", computed))
		return true
	}

	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Line items hash mismatch: computed %s, receipt has %s", computed, receipt.LineItemsHash))
	return false
}

func validateTotals(receipt *tenderapi.AwardReceipt, items []core.BidLineItem, result *ReceiptValidationResult) bool {
	if receipt.LineItemCount == 0 {
		result.ValidationDetails = append(result.ValidationDetails, "Flat-amount bid: no line items to total")
		return true
	}

	taxRate, err := receipt.TaxRateDecimal()
	if err != nil {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Tax rate %q is not a decimal", receipt.TaxRate))
		return false
	}
	pricer, err := core.NewPricer(taxRate)
	if err != nil {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Tax rate rejected: %v", err))
		return false
	}

	if err := core.ValidateLineItems(receipt.BidID, items); err != nil {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Line items inconsistent: %v", err))
		return false
	}

	grandTotal, err := receipt.GrandTotalDecimal()
	if err != nil {
		return false
	}

	computed := pricer.AggregateBid(items).GrandTotal
	if computed.Equal(grandTotal) {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Grand total validation passed: %s", computed))
		return true
	}

	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Grand total mismatch: computed %s, receipt has %s", computed, receipt.GrandTotal))
	return false
}
