package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const minComparisonBids = 2

// ComparisonRow is the fixed column projection of one bid.
type ComparisonRow struct {
	BidID             string          `json:"bid_id"`
	BidderID          string          `json:"bidder_id"`
	CompanyName       string          `json:"company_name"`
	BidAmount         decimal.Decimal `json:"bid_amount"`
	TimelineDays      int             `json:"timeline_days"`
	OverallScore      *int            `json:"overall_score,omitempty"`
	ExperienceSummary string          `json:"experience_summary"`
	InsuranceCoverage string          `json:"insurance_coverage"`
	WithinBudget      bool            `json:"within_budget"`
}

// ComparisonTable lists the selected bids side by side, in selection order.
type ComparisonTable struct {
	Rows []ComparisonRow `json:"rows"`
}

// CompareBids projects the selected bids into a comparison table.
// Repeated IDs are ignored. At least two distinct bids are required and
// every selected ID must be present in bids.
func CompareBids(bids []Bid, selected []string, budget decimal.NullDecimal) (*ComparisonTable, error) {
	ids := make([]string, 0, len(selected))
	seen := make(map[string]bool, len(selected))
	for _, id := range selected {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	if len(ids) < minComparisonBids {
		return nil, fmt.Errorf("%w: %d bids selected, need at least %d", ErrInsufficientSelection, len(ids), minComparisonBids)
	}

	byID := make(map[string]*Bid, len(bids))
	for i := range bids {
		byID[bids[i].ID] = &bids[i]
	}

	table := &ComparisonTable{Rows: make([]ComparisonRow, 0, len(ids))}
	for _, id := range ids {
		bid, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: bid %s", ErrNotFound, id)
		}

		row := ComparisonRow{
			BidID:             bid.ID,
			BidderID:          bid.BidderID,
			CompanyName:       bid.CompanyInfo.Name,
			BidAmount:         bid.BidAmount,
			TimelineDays:      bid.TimelineDays,
			ExperienceSummary: bid.CompanyInfo.ExperienceSummary,
			InsuranceCoverage: bid.CompanyInfo.InsuranceCoverage,
			WithinBudget:      !budget.Valid || BidWithinBudget(bid.BidAmount, budget.Decimal),
		}
		if bid.Evaluation != nil {
			score := bid.Evaluation.OverallScore
			row.OverallScore = &score
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}
