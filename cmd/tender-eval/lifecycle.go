package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/opentender/core"
	"github.com/cloudx-io/opentender/engine"
)

func runCreateTender(ctx context.Context, eng *engine.Engine, args []string) error {
	fs := flag.NewFlagSet("create-tender", flag.ExitOnError)
	var (
		title    = fs.String("title", "", "Tender title")
		issuer   = fs.String("issuer", "", "Issuer ID")
		budget   = fs.String("budget", "", "Budget (optional)")
		deadline = fs.String("deadline", "", "Bid deadline, RFC 3339 (e.g. 2026-12-01T17:00:00Z)")
		publish  = fs.Bool("publish", false, "Open the tender for bids straight away")
	)
	fs.Parse(args)
	if *deadline == "" {
		return fmt.Errorf("%w: --deadline is required", core.ErrInvalidInput)
	}

	due, err := time.Parse(time.RFC3339, *deadline)
	if err != nil {
		return fmt.Errorf("%w: deadline %q is not an RFC 3339 time", core.ErrInvalidInput, *deadline)
	}
	in := engine.NewTender{Title: *title, IssuerID: *issuer, Deadline: due}
	if *budget != "" {
		b, err := decimal.NewFromString(*budget)
		if err != nil {
			return fmt.Errorf("%w: budget %q is not a number", core.ErrInvalidInput, *budget)
		}
		in.Budget = decimal.NewNullDecimal(b)
	}

	tender, err := eng.CreateTender(ctx, in)
	if err != nil {
		return err
	}
	if *publish {
		if tender, err = eng.PublishTender(ctx, tender.ID); err != nil {
			return err
		}
	}
	fmt.Fprintf(stdout, "Created tender %s (%s), deadline %s\n", tender.ID, tender.Status, tender.Deadline.UTC().Format(time.RFC3339))
	return nil
}

func runSyncDeadline(ctx context.Context, eng *engine.Engine, args []string) error {
	fs := flag.NewFlagSet("sync-deadline", flag.ExitOnError)
	tenderID := fs.String("tender", "", "Tender ID")
	fs.Parse(args)
	if *tenderID == "" {
		return fmt.Errorf("%w: --tender is required", core.ErrInvalidInput)
	}

	tender, closed, err := eng.SyncTenderDeadline(ctx, *tenderID)
	if err != nil {
		return err
	}
	if closed {
		fmt.Fprintf(stdout, "Tender %s closed at its deadline\n", tender.ID)
		return nil
	}
	fmt.Fprintf(stdout, "Tender %s unchanged (%s)\n", tender.ID, tender.Status)
	return nil
}

func runSubmitBid(ctx context.Context, eng *engine.Engine, args []string) error {
	fs := flag.NewFlagSet("submit-bid", flag.ExitOnError)
	var (
		tenderID   = fs.String("tender", "", "Tender ID")
		bidderID   = fs.String("bidder", "", "Bidder ID")
		amount     = fs.String("amount", "", "Flat bid amount (without --line-items)")
		timeline   = fs.Int("timeline", 0, "Delivery timeline in days")
		company    = fs.String("company", "", "Company name")
		experience = fs.String("experience", "", "Experience summary")
		insurance  = fs.String("insurance", "", "Insurance coverage")
		email      = fs.String("email", "", "Contact email")
		lineItems  = fs.String("line-items", "", "Line items as a JSON array, inline or a file path")
	)
	fs.Parse(args)
	if *tenderID == "" {
		return fmt.Errorf("%w: --tender is required", core.ErrInvalidInput)
	}

	in := engine.NewBid{
		TenderID:     *tenderID,
		BidderID:     *bidderID,
		TimelineDays: *timeline,
		CompanyInfo: core.CompanyInfo{
			Name:              *company,
			ExperienceSummary: *experience,
			InsuranceCoverage: *insurance,
			ContactEmail:      *email,
		},
	}

	switch {
	case *lineItems != "" && *amount != "":
		return fmt.Errorf("%w: --amount and --line-items are exclusive; the amount is derived from line items", core.ErrInvalidInput)
	case *lineItems != "":
		items, err := readLineItems(*lineItems)
		if err != nil {
			return err
		}
		in.LineItems = items
	case *amount != "":
		a, err := decimal.NewFromString(*amount)
		if err != nil {
			return fmt.Errorf("%w: amount %q is not a number", core.ErrInvalidInput, *amount)
		}
		in.BidAmount = a
	default:
		return fmt.Errorf("%w: --amount or --line-items is required", core.ErrInvalidInput)
	}

	bid, err := eng.SubmitBid(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Submitted bid %s on tender %s: %s (%d line items)\n",
		bid.ID, bid.TenderID, bid.BidAmount.StringFixed(2), len(bid.LineItems))
	return nil
}

// readLineItems decodes a JSON array of line items given inline or as a
// file path. Unknown fields are rejected.
func readLineItems(arg string) ([]core.BidLineItem, error) {
	data := []byte(arg)
	if !strings.HasPrefix(strings.TrimSpace(arg), "[") {
		var err error
		if data, err = os.ReadFile(arg); err != nil {
			return nil, fmt.Errorf("read line items: %w", err)
		}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var items []core.BidLineItem
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("%w: line items: %w", core.ErrInvalidInput, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: line items are empty", core.ErrInvalidInput)
	}
	return items, nil
}

func runAdvanceBid(ctx context.Context, eng *engine.Engine, args []string) error {
	fs := flag.NewFlagSet("advance-bid", flag.ExitOnError)
	var (
		bidID = fs.String("bid", "", "Bid ID")
		to    = fs.String("to", "", "Target status: under_review, shortlisted or rejected")
	)
	fs.Parse(args)
	if *bidID == "" || *to == "" {
		return fmt.Errorf("%w: --bid and --to are required", core.ErrInvalidInput)
	}

	bid, err := eng.AdvanceBid(ctx, *bidID, core.BidStatus(*to))
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Bid %s is now %s\n", bid.ID, bid.Status)
	return nil
}

func runBudget(ctx context.Context, eng *engine.Engine, args []string) error {
	fs := flag.NewFlagSet("budget", flag.ExitOnError)
	tenderID := fs.String("tender", "", "Tender ID")
	fs.Parse(args)
	if *tenderID == "" {
		return fmt.Errorf("%w: --tender is required", core.ErrInvalidInput)
	}

	within, over, err := eng.ScreenBudget(ctx, *tenderID)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Within budget: %d\n", len(within))
	for _, bid := range within {
		fmt.Fprintf(stdout, "  %s  %s\n", bid.ID, bid.BidAmount.StringFixed(2))
	}
	fmt.Fprintf(stdout, "Over budget: %d\n", len(over))
	for _, id := range over {
		fmt.Fprintf(stdout, "  %s\n", id)
	}
	return nil
}

func runLineItems(ctx context.Context, eng *engine.Engine, args []string) error {
	fs := flag.NewFlagSet("line-items", flag.ExitOnError)
	var (
		bidID  = fs.String("bid", "", "Bid ID")
		asJSON = fs.Bool("json", false, "Print the groups as JSON")
	)
	fs.Parse(args)
	if *bidID == "" {
		return fmt.Errorf("%w: --bid is required", core.ErrInvalidInput)
	}

	groups, err := eng.GroupedLineItems(ctx, *bidID)
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(groups)
	}
	for _, group := range groups {
		fmt.Fprintf(stdout, "%s\n", group.Category)
		for _, item := range group.Items {
			fmt.Fprintf(stdout, "  %d. %s  %s x %s = %s\n",
				item.LineNumber, item.ItemDescription, quantityOf(item), item.UnitPrice.StringFixed(2), item.Total.StringFixed(2))
		}
	}
	return nil
}
