package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"syscall"

	"github.com/cloudx-io/opentender/tenderapi"
	"github.com/cloudx-io/opentender/validation"
)

func main() {
	var (
		receiptInput   = flag.String("receipt", "", "Signed award receipt, base64 or gzip base64url (file path or inline)")
		publicKeyInput = flag.String("public-key", "", "Issuer public key PEM (file path or inline)")
		lineItemsInput = flag.String("line-items", "", "Awarded bid line items JSON array (file path or inline JSON)")
		gzipped        = flag.Bool("gzip", false, "Receipt is gzip-compressed base64url (as sent in award notifications)")
		outputFormat   = flag.String("format", "text", "Output format: text or json")
		help           = flag.Bool("help", false, "Show usage information")
	)

	flag.Parse()

	if *help {
		showUsage()
		os.Exit(0)
	}

	if *receiptInput == "" || *publicKeyInput == "" {
		showUsage()
		fail(exitError, "\nError: --receipt and --public-key are required")
	}

	input, err := buildInput(*receiptInput, *publicKeyInput, *lineItemsInput, *gzipped)
	if err != nil {
		fail(exitError, "%v", err)
	}

	result, err := validation.ValidateAwardReceipt(input)
	if err != nil {
		fail(exitError, "Validation error: %v", err)
	}

	if *outputFormat == "json" {
		outputJSON(result)
	} else {
		outputText(result)
	}

	if !result.IsValid() {
		os.Exit(exitFailed)
	}
}

const (
	exitFailed = 1
	exitError  = 2
)

func fail(code int, format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(code)
}

// buildInput resolves each flag as a file path or inline value.
func buildInput(receiptArg, publicKeyArg, lineItemsArg string, gzipped bool) (*validation.ReceiptValidationInput, error) {
	receipt, err := readInput(receiptArg)
	if err != nil {
		return nil, fmt.Errorf("read receipt: %w", err)
	}
	publicKey, err := readInput(publicKeyArg)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}

	input := &validation.ReceiptValidationInput{PublicKeyPEM: string(publicKey)}
	encoded := strings.TrimSpace(string(receipt))
	if gzipped {
		input.ReceiptGzip = tenderapi.ReceiptCOSEGzip(encoded)
	} else {
		input.ReceiptBase64 = tenderapi.ReceiptCOSEBase64(encoded)
	}

	if lineItemsArg == "" {
		return input, nil
	}
	raw, err := readInput(lineItemsArg)
	if err != nil {
		return nil, fmt.Errorf("read line items: %w", err)
	}
	if err := json.Unmarshal(raw, &input.LineItems); err != nil {
		return nil, fmt.Errorf("parse line items: %w", err)
	}
	return input, nil
}

const usage = `Award Receipt Validator

Verifies a signed award receipt against the issuer's public key and the
awarded bid's current line items.

Usage:
  receipt-validator --receipt <data> --public-key <pem> [--line-items <json>] [options]

Required Flags:
  --receipt <data>        Signed receipt (base64, or base64url gzip with --gzip)
  --public-key <pem>      Issuer public key

Optional Flags:
  --line-items <json>     Current line items of the awarded bid
                          (tender-eval export-bid --json prints them)
  --gzip                  Receipt is gzip-compressed
  --format <text|json>    Output format (default: text)
  --help                  Show this help message

Each flag accepts either a file path or an inline value.

Exit Codes:
  0 - Validation passed
  1 - Validation failed
  2 - Invalid input or runtime error
`

func showUsage() {
	fmt.Print(usage)
}

func readInput(input string) ([]byte, error) {
	data, err := os.ReadFile(input)
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENAMETOOLONG) {
		return []byte(input), nil
	}
	return data, err
}

func outputText(result *validation.ReceiptValidationResult) {
	fmt.Println("Award Receipt Validator")
	fmt.Println("=======================")
	fmt.Println()

	if r := result.Receipt; r != nil {
		fmt.Println("Receipt:")
		fmt.Printf("  Receipt ID:    %s\n", r.ReceiptID)
		fmt.Printf("  Tender:        %s\n", r.TenderID)
		fmt.Printf("  Awarded bid:   %s (bidder %s)\n", r.BidID, r.BidderID)
		fmt.Printf("  Grand total:   %s\n", r.GrandTotal)
		fmt.Printf("  Overall score: %d\n", r.OverallScore)
		fmt.Printf("  Awarded at:    %s\n", r.AwardedAt.Format("2006-01-02 15:04:05 MST"))
		fmt.Println()
	}

	fmt.Println("Summary:")
	fmt.Printf("  Signature Valid:         %v\n", result.SignatureValid)
	fmt.Printf("  Award Hash Valid:        %v\n", result.AwardHashValid)
	fmt.Printf("  Line Items Hash Valid:   %v\n", result.LineItemsHashValid)
	fmt.Printf("  Totals Valid:            %v\n", result.TotalsValid)

	fmt.Println()
	fmt.Println("Details:")
	for _, detail := range result.ValidationDetails {
		fmt.Printf("  - %s\n", detail)
	}

	fmt.Println()
	fmt.Println("=======================")
	if result.IsValid() {
		fmt.Println("VALIDATION: ✓ PASSED")
	} else {
		fmt.Println("VALIDATION: ✗ FAILED")
	}
}

func outputJSON(result *validation.ReceiptValidationResult) {
	output := map[string]any{
		"valid":                 result.IsValid(),
		"signature_valid":       result.SignatureValid,
		"award_hash_valid":      result.AwardHashValid,
		"line_items_hash_valid": result.LineItemsHashValid,
		"totals_valid":          result.TotalsValid,
		"receipt":               result.Receipt,
		"details":               result.ValidationDetails,
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		fail(exitError, "Error marshaling JSON: %v", err)
	}
	fmt.Println(string(data))
}
