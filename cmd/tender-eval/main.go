package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/opentender/config"
	"github.com/cloudx-io/opentender/core"
	"github.com/cloudx-io/opentender/engine"
	"github.com/cloudx-io/opentender/export"
	"github.com/cloudx-io/opentender/logging"
	"github.com/cloudx-io/opentender/storage"
	"github.com/cloudx-io/opentender/storage/sqlite"
	"github.com/cloudx-io/opentender/tenderapi"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitError   = 2
)

type command struct {
	summary string
	run     func(ctx context.Context, eng *engine.Engine, args []string) error
}

// commandOrder is the order commands are listed in the usage text.
var commandOrder = []string{
	"create-tender", "transition", "sync-deadline", "submit-bid", "line-items", "totals", "edit-item",
	"advance-bid", "evaluate", "budget", "rank", "compare", "award", "export-bid",
}

var commands = map[string]command{
	"create-tender": {"Create a draft tender", runCreateTender},
	"transition":    {"Publish, close or cancel a tender", runTransition},
	"sync-deadline": {"Close an open tender whose deadline has passed", runSyncDeadline},
	"submit-bid":    {"Submit a bid, flat or priced from line items", runSubmitBid},
	"line-items":    {"List a bid's line items grouped by category", runLineItems},
	"totals":        {"Print a bid's subtotal, tax and grand total", runTotals},
	"edit-item":     {"Change a line item's unit price or notes", runEditItem},
	"advance-bid":   {"Move a bid to under_review, shortlisted or rejected", runAdvanceBid},
	"evaluate":      {"Record an evaluator's subscores for a bid", runEvaluate},
	"budget":        {"Split a tender's bids by its budget", runBudget},
	"rank":          {"List a tender's bids in ranked order", runRank},
	"compare":       {"Compare selected bids side by side", runCompare},
	"award":         {"Award a tender to one bid", runAward},
	"export-bid":    {"Export a bid's priced line items", runExportBid},
}

// stdout receives command output.
var stdout io.Writer = os.Stdout

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file (optional)")
		help       = flag.Bool("help", false, "Show usage information")
	)
	flag.Usage = showUsage
	flag.Parse()

	if *help || flag.NArg() == 0 {
		showUsage()
		os.Exit(exitOK)
	}

	if flag.Arg(0) == "keygen" {
		if err := runKeygen(flag.Args()[1:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(exitError)
		}
		return
	}

	cmd, ok := commands[flag.Arg(0)]
	if !ok {
		showUsage()
		fmt.Fprintf(os.Stderr, "\nError: unknown command %q\n", flag.Arg(0))
		os.Exit(exitError)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(exitError)
	}
	logging.SetupWithLevel(cfg.Level())

	store, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		slog.Error("failed to open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(exitError)
	}
	defer store.Close()

	eng, err := newEngine(cfg, store, prometheus.DefaultRegisterer)
	if err != nil {
		slog.Error("failed to build engine", "error", err)
		os.Exit(exitError)
	}

	if err := cmd.run(context.Background(), eng, flag.Args()[1:]); err != nil {
		slog.Error("command failed", "command", flag.Arg(0), "error", err)
		store.Close()
		os.Exit(exitCode(err))
	}
}

func newEngine(cfg *config.Config, store storage.Store, reg prometheus.Registerer, extra ...engine.Option) (*engine.Engine, error) {
	pricer, err := cfg.Pricer()
	if err != nil {
		return nil, err
	}
	scorer, err := cfg.Scorer()
	if err != nil {
		return nil, err
	}

	opts := []engine.Option{
		engine.WithPricer(pricer),
		engine.WithScorer(scorer),
		engine.WithAwardPolicy(cfg.AwardPolicy()),
		engine.WithLogger(slog.Default()),
		engine.WithMetrics(engine.NewMetrics(reg)),
	}

	if cfg.SigningKeyPath != "" {
		pemData, err := os.ReadFile(cfg.SigningKeyPath)
		if err != nil {
			return nil, fmt.Errorf("read signing key: %w", err)
		}
		km, err := tenderapi.LoadKeyManager(pemData)
		if err != nil {
			return nil, err
		}
		opts = append(opts, engine.WithReceiptSigner(km))
	}

	return engine.New(store, append(opts, extra...)...)
}

// exitCode separates rejected requests from infrastructure failures.
func exitCode(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidInput),
		errors.Is(err, core.ErrNotFound),
		errors.Is(err, core.ErrInsufficientSelection),
		errors.Is(err, core.ErrIllegalTransition),
		errors.Is(err, core.ErrEditLocked):
		return exitFailure
	default:
		return exitError
	}
}

func runTotals(ctx context.Context, eng *engine.Engine, args []string) error {
	fs := flag.NewFlagSet("totals", flag.ExitOnError)
	bidID := fs.String("bid", "", "Bid ID")
	fs.Parse(args)
	if *bidID == "" {
		return fmt.Errorf("%w: --bid is required", core.ErrInvalidInput)
	}

	totals, err := eng.BidTotals(ctx, *bidID)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Subtotal:    %s\n", totals.Subtotal.StringFixed(2))
	fmt.Fprintf(stdout, "Tax:         %s\n", totals.Tax.StringFixed(2))
	fmt.Fprintf(stdout, "Grand Total: %s\n", totals.GrandTotal.StringFixed(2))
	return nil
}

func runEditItem(ctx context.Context, eng *engine.Engine, args []string) error {
	fs := flag.NewFlagSet("edit-item", flag.ExitOnError)
	var (
		bidID    = fs.String("bid", "", "Bid ID")
		userID   = fs.String("user", "", "Acting user ID")
		itemID   = fs.String("item", "", "Line item ID")
		price    = fs.String("price", "", "New unit price")
		notes    = fs.String("notes", "", "New notes")
		readOnly = fs.Bool("read-only", false, "Open the bid read-only")
	)
	fs.Parse(args)
	if *bidID == "" || *itemID == "" {
		return fmt.Errorf("%w: --bid and --item are required", core.ErrInvalidInput)
	}

	var edit core.LineItemEdit
	if *price != "" {
		p, err := decimal.NewFromString(*price)
		if err != nil {
			return fmt.Errorf("%w: price %q is not a number", core.ErrInvalidInput, *price)
		}
		edit.UnitPrice = &p
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "notes" {
			edit.Notes = notes
		}
	})

	item, err := eng.UpdateLineItem(ctx, *bidID, *userID, *readOnly, *itemID, edit)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s: %s x %s = %s\n", item.ID, quantityOf(item), item.UnitPrice.StringFixed(2), item.Total.StringFixed(2))
	return nil
}

func quantityOf(item core.BidLineItem) string {
	if !item.Quantity.Valid {
		return "1"
	}
	return item.Quantity.Decimal.String()
}

func runRank(ctx context.Context, eng *engine.Engine, args []string) error {
	fs := flag.NewFlagSet("rank", flag.ExitOnError)
	var (
		tenderID = fs.String("tender", "", "Tender ID")
		sortBy   = fs.String("sort", string(core.SortByPrice), "Sort key: price, score, timeline, submitted")
		order    = fs.String("order", string(core.Ascending), "Sort order: asc or desc")
		statuses = fs.String("status", "", "Comma-separated bid statuses to include")
	)
	fs.Parse(args)
	if *tenderID == "" {
		return fmt.Errorf("%w: --tender is required", core.ErrInvalidInput)
	}

	opts := core.RankOptions{SortBy: core.SortKey(*sortBy), Order: core.SortOrder(*order)}
	for _, s := range splitList(*statuses) {
		opts.StatusFilter = append(opts.StatusFilter, core.BidStatus(s))
	}

	ranked, err := eng.RankTender(ctx, *tenderID, opts)
	if err != nil {
		return err
	}
	for i, bid := range ranked {
		score := "-"
		if bid.Evaluation != nil {
			score = fmt.Sprint(bid.Evaluation.OverallScore)
		}
		fmt.Fprintf(stdout, "%d. %s  %s  %s  %d days  score %s\n",
			i+1, bid.ID, bid.Status, bid.BidAmount.StringFixed(2), bid.TimelineDays, score)
	}
	return nil
}

func runCompare(ctx context.Context, eng *engine.Engine, args []string) error {
	fs := flag.NewFlagSet("compare", flag.ExitOnError)
	var (
		tenderID = fs.String("tender", "", "Tender ID")
		bids     = fs.String("bids", "", "Comma-separated bid IDs to compare")
		format   = fs.String("format", "csv", "Output format: csv or xlsx")
		out      = fs.String("out", "", "Output file (default stdout)")
	)
	fs.Parse(args)
	if *tenderID == "" {
		return fmt.Errorf("%w: --tender is required", core.ErrInvalidInput)
	}

	table, err := eng.CompareTender(ctx, *tenderID, splitList(*bids))
	if err != nil {
		return err
	}
	return writeTable(export.ComparisonTable(table), *format, *out)
}

func runEvaluate(ctx context.Context, eng *engine.Engine, args []string) error {
	fs := flag.NewFlagSet("evaluate", flag.ExitOnError)
	var (
		bidID       = fs.String("bid", "", "Bid ID")
		evaluatorID = fs.String("evaluator", "", "Evaluator ID")
		notes       = fs.String("notes", "", "Evaluation notes")
		price       = fs.String("price", "", "Price score (0-100)")
		experience  = fs.String("experience", "", "Experience score (0-100)")
		timeline    = fs.String("timeline", "", "Timeline score (0-100)")
		technical   = fs.String("technical", "", "Technical score (0-100)")
		risk        = fs.String("risk", "", "Risk score (0-100)")
	)
	fs.Parse(args)
	if *bidID == "" {
		return fmt.Errorf("%w: --bid is required", core.ErrInvalidInput)
	}

	// Every criterion must be given; an omitted flag is not a zero score.
	scores, err := core.ParseSubscores(map[string]string{
		"price":      *price,
		"experience": *experience,
		"timeline":   *timeline,
		"technical":  *technical,
		"risk":       *risk,
	})
	if err != nil {
		return err
	}

	evaluation, err := eng.EvaluateBid(ctx, *bidID, *evaluatorID, scores, *notes)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Bid %s overall score: %d\n", evaluation.BidID, evaluation.OverallScore)
	return nil
}

func runTransition(ctx context.Context, eng *engine.Engine, args []string) error {
	fs := flag.NewFlagSet("transition", flag.ExitOnError)
	var (
		tenderID = fs.String("tender", "", "Tender ID")
		to       = fs.String("to", "", "Target status: open, closed or cancelled")
	)
	fs.Parse(args)
	if *tenderID == "" {
		return fmt.Errorf("%w: --tender is required", core.ErrInvalidInput)
	}

	var (
		tender core.Tender
		err    error
	)
	switch core.TenderStatus(*to) {
	case core.TenderOpen:
		tender, err = eng.PublishTender(ctx, *tenderID)
	case core.TenderClosed:
		tender, err = eng.CloseTender(ctx, *tenderID)
	case core.TenderCancelled:
		tender, err = eng.CancelTender(ctx, *tenderID)
	default:
		return fmt.Errorf("%w: unsupported target status %q", core.ErrInvalidInput, *to)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Tender %s is now %s\n", tender.ID, tender.Status)
	return nil
}

func runAward(ctx context.Context, eng *engine.Engine, args []string) error {
	fs := flag.NewFlagSet("award", flag.ExitOnError)
	var (
		tenderID = fs.String("tender", "", "Tender ID")
		bidID    = fs.String("bid", "", "Winning bid ID")
		gzipped  = fs.Bool("gzip", false, "Print the signed receipt as gzip base64url")
	)
	fs.Parse(args)
	if *tenderID == "" || *bidID == "" {
		return fmt.Errorf("%w: --tender and --bid are required", core.ErrInvalidInput)
	}

	result, err := eng.AwardBid(ctx, *tenderID, *bidID)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Awarded tender %s to bid %s (%s)\n", result.Outcome.Tender.ID, result.Outcome.Awarded.ID, result.Totals.GrandTotal.StringFixed(2))
	for _, rejected := range result.Outcome.Rejected {
		fmt.Fprintf(stdout, "Rejected bid %s\n", rejected.ID)
	}

	if result.SignedReceipt == nil {
		return nil
	}
	if *gzipped {
		encoded, err := result.SignedReceipt.CompressGzip()
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Receipt: %s\n", encoded)
		return nil
	}
	fmt.Fprintf(stdout, "Receipt: %s\n", result.SignedReceipt.EncodeBase64())
	return nil
}

func runExportBid(ctx context.Context, eng *engine.Engine, args []string) error {
	fs := flag.NewFlagSet("export-bid", flag.ExitOnError)
	var (
		bidID  = fs.String("bid", "", "Bid ID")
		format = fs.String("format", "xlsx", "Output format: csv or xlsx")
		out    = fs.String("out", "", "Output file (default stdout)")
		asJSON = fs.Bool("json", false, "Print line items as JSON (input for receipt-validator)")
	)
	fs.Parse(args)
	if *bidID == "" {
		return fmt.Errorf("%w: --bid is required", core.ErrInvalidInput)
	}

	bid, totals, err := eng.PricedBid(ctx, *bidID)
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(bid.LineItems)
	}
	return writeTable(export.BidSheet(*bid, totals), *format, *out)
}

func runKeygen(args []string) error {
	fs := flag.NewFlagSet("keygen", flag.ExitOnError)
	var (
		privOut = fs.String("out", "award-key.pem", "Private key output file")
		pubOut  = fs.String("public-out", "award-key.pub.pem", "Public key output file")
	)
	fs.Parse(args)

	km, err := tenderapi.NewKeyManager()
	if err != nil {
		return err
	}
	privPEM, err := km.PrivateKeyPEM()
	if err != nil {
		return err
	}
	pubPEM, err := km.PublicKeyPEM()
	if err != nil {
		return err
	}

	if err := os.WriteFile(*privOut, []byte(privPEM), 0o600); err != nil {
		return fmt.Errorf("write private key: %w", err)
	}
	if err := os.WriteFile(*pubOut, []byte(pubPEM), 0o644); err != nil {
		return fmt.Errorf("write public key: %w", err)
	}
	fmt.Fprintf(stdout, "Wrote %s and %s\n", *privOut, *pubOut)
	return nil
}

func writeTable(table export.Table, format, out string) error {
	w := stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create %s: %w", out, err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "csv":
		return table.WriteCSV(w)
	case "xlsx":
		return table.WriteExcel(w)
	default:
		return fmt.Errorf("%w: unsupported format %q", core.ErrInvalidInput, format)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func showUsage() {
	fmt.Fprintf(os.Stderr, "tender-eval - Evaluate, rank and award tender bids\n\n")
	fmt.Fprintf(os.Stderr, "Usage:\n  %s [--config FILE] COMMAND [flags]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	for _, name := range commandOrder {
		fmt.Fprintf(os.Stderr, "  %-14s %s\n", name, commands[name].summary)
	}
	fmt.Fprintf(os.Stderr, "  %-14s %s\n", "keygen", "Generate an award receipt signing key pair")
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  %s create-tender --title \"Hall repairs\" --budget 50000 --deadline 2026-12-01T17:00:00Z\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s submit-bid --tender t1 --bidder u1 --company Acme --line-items items.json\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s evaluate --bid b1 --evaluator e1 --price 80 --experience 70 --timeline 90 --technical 60 --risk 50\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s rank --tender t1 --sort score --order desc\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s compare --tender t1 --bids b1,b2 --format xlsx --out compare.xlsx\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s award --tender t1 --bid b1 --gzip\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "\nExit Codes:\n")
	fmt.Fprintf(os.Stderr, "  0 - Success\n")
	fmt.Fprintf(os.Stderr, "  1 - Request rejected (invalid input, not found, locked or illegal transition)\n")
	fmt.Fprintf(os.Stderr, "  2 - Error (configuration, storage or I/O)\n")
}
