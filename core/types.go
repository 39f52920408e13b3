package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// TenderStatus is the lifecycle state of a tender.
type TenderStatus string

const (
	TenderDraft     TenderStatus = "draft"
	TenderOpen      TenderStatus = "open"
	TenderClosed    TenderStatus = "closed"
	TenderAwarded   TenderStatus = "awarded"
	TenderCancelled TenderStatus = "cancelled"
)

// BidStatus is the lifecycle state of a bid.
type BidStatus string

const (
	BidSubmitted   BidStatus = "submitted"
	BidUnderReview BidStatus = "under_review"
	BidShortlisted BidStatus = "shortlisted"
	BidAwarded     BidStatus = "awarded"
	BidRejected    BidStatus = "rejected"
)

// Tender is a published request for competitive bids.
type Tender struct {
	ID       string              `json:"id"`
	Title    string              `json:"title"`
	IssuerID string              `json:"issuer_id,omitempty"`
	Budget   decimal.NullDecimal `json:"budget"`
	Deadline time.Time           `json:"deadline"`
	Status   TenderStatus        `json:"status"`
}

// CompanyInfo is the bidder-declared company profile attached to a bid.
// It is carried for comparison only and never validated.
type CompanyInfo struct {
	Name              string `json:"name"`
	ExperienceSummary string `json:"experience_summary,omitempty"`
	InsuranceCoverage string `json:"insurance_coverage,omitempty"`
	ContactEmail      string `json:"contact_email,omitempty"`
}

// Bid is a contractor's priced response to a tender.
type Bid struct {
	ID           string          `json:"id"`
	TenderID     string          `json:"tender_id"`
	BidderID     string          `json:"bidder_id"`
	BidAmount    decimal.Decimal `json:"bid_amount"`
	Status       BidStatus       `json:"status"`
	SubmittedAt  time.Time       `json:"submitted_at"`
	TimelineDays int             `json:"timeline_days"`
	CompanyInfo  CompanyInfo     `json:"company_info"`
	LineItems    []BidLineItem   `json:"line_items,omitempty"`
	Evaluation   *Evaluation     `json:"evaluation,omitempty"`
}

// BidLineItem is one priced unit of work within a bid.
// Quantity is optional; an absent quantity prices as 1.
type BidLineItem struct {
	ID              string              `json:"id"`
	BidID           string              `json:"bid_id"`
	LineNumber      int                 `json:"line_number"`
	Category        string              `json:"category,omitempty"`
	ItemDescription string              `json:"item_description"`
	Specification   string              `json:"specification,omitempty"`
	Quantity        decimal.NullDecimal `json:"quantity"`
	UnitOfMeasure   string              `json:"unit_of_measure,omitempty"`
	UnitPrice       decimal.Decimal     `json:"unit_price"`
	Total           decimal.Decimal     `json:"total"`
	Notes           string              `json:"notes,omitempty"`
}

// Subscores holds the five per-criterion evaluator scores, each in [0, 100].
type Subscores struct {
	Price      float64 `json:"price_score"`
	Experience float64 `json:"experience_score"`
	Timeline   float64 `json:"timeline_score"`
	Technical  float64 `json:"technical_score"`
	Risk       float64 `json:"risk_score"`
}

// Evaluation is an evaluator's judgment of a bid. OverallScore is always
// derived from Scores and the scorer's weights.
type Evaluation struct {
	BidID          string    `json:"bid_id"`
	Scores         Subscores `json:"scores"`
	OverallScore   int       `json:"overall_score"`
	EvaluatorNotes string    `json:"evaluator_notes,omitempty"`
	EvaluatedAt    time.Time `json:"evaluated_at"`
	EvaluatorID    string    `json:"evaluator_id"`
}

// BidTotals is the financial rollup of a bid's line items.
type BidTotals struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	Tax        decimal.Decimal `json:"tax"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

// CategoryGroup is one category bucket produced by GroupByCategory.
type CategoryGroup struct {
	Category string        `json:"category"`
	Items    []BidLineItem `json:"items"`
}

// LineItemEdit carries the operator-editable fields of a line item.
// Nil fields are left unchanged.
type LineItemEdit struct {
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
	Notes     *string          `json:"notes,omitempty"`
}

// AwardOutcome contains every entity changed by an award.
type AwardOutcome struct {
	// Tender is the awarded tender
	Tender Tender

	// Awarded is the winning bid
	Awarded Bid

	// Rejected contains sibling bids moved to rejected as a consequence of the award
	Rejected []Bid
}
