package core

import (
	"github.com/shopspring/decimal"
)

const monetaryPrecision int32 = 2 // currency amounts compare at 0.01 precision

// BidWithinBudget returns true if the bid amount does not exceed the budget.
// Uses decimal arithmetic with monetaryPrecision to avoid representation noise.
func BidWithinBudget(amount, budget decimal.Decimal) bool {
	return amount.Round(monetaryPrecision).LessThanOrEqual(budget.Round(monetaryPrecision))
}

// PartitionByBudget splits bids into those within the tender budget and the
// IDs of those exceeding it. A tender without a budget accepts every bid.
func PartitionByBudget(bids []Bid, budget decimal.NullDecimal) (within []Bid, overBudgetIDs []string) {
	within = make([]Bid, 0, len(bids))
	overBudgetIDs = make([]string, 0)

	for _, bid := range bids {
		if !budget.Valid || BidWithinBudget(bid.BidAmount, budget.Decimal) {
			within = append(within, bid)
			continue
		}
		overBudgetIDs = append(overBudgetIDs, bid.ID)
	}

	return within, overBudgetIDs
}
