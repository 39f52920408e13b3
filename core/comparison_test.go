package core

import (
	"errors"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

func comparisonFixture(t *testing.T) []Bid {
	t.Helper()
	return []Bid{
		{ID: "bid_a", BidderID: "u1", BidAmount: dec(t, "250000"), TimelineDays: 120,
			CompanyInfo: CompanyInfo{Name: "Acme Build", ExperienceSummary: "12 civic projects", InsuranceCoverage: "$10M"},
			Evaluation:  &Evaluation{OverallScore: 74}},
		{ID: "bid_b", BidderID: "u2", BidAmount: dec(t, "310000"), TimelineDays: 90,
			CompanyInfo: CompanyInfo{Name: "Northwall", ExperienceSummary: "Hospitals", InsuranceCoverage: "$5M"}},
		{ID: "bid_c", BidderID: "u3", BidAmount: dec(t, "199000"), TimelineDays: 200},
	}
}

func TestCompareBids(t *testing.T) {
	budget := decimal.NewNullDecimal(dec(t, "300000"))

	table, err := CompareBids(comparisonFixture(t), []string{"bid_b", "bid_a"}, budget)
	assert.NoError(t, err)

	check.Equal(t, 2, len(table.Rows))

	// Selection order, not input order
	check.Equal(t, "bid_b", table.Rows[0].BidID)
	check.Equal(t, "bid_a", table.Rows[1].BidID)

	b := table.Rows[0]
	check.Equal(t, "Northwall", b.CompanyName)
	check.True(t, b.BidAmount.Equal(dec(t, "310000")))
	check.Equal(t, 90, b.TimelineDays)
	check.Nil(t, b.OverallScore)
	check.Equal(t, "Hospitals", b.ExperienceSummary)
	check.Equal(t, "$5M", b.InsuranceCoverage)
	check.False(t, b.WithinBudget)

	a := table.Rows[1]
	check.NotNil(t, a.OverallScore)
	check.Equal(t, 74, *a.OverallScore)
	check.True(t, a.WithinBudget)
}

func TestCompareBids_InsufficientSelection(t *testing.T) {
	bids := comparisonFixture(t)

	for _, selected := range [][]string{nil, {}, {"bid_a"}, {"bid_a", "bid_a"}} {
		_, err := CompareBids(bids, selected, decimal.NullDecimal{})
		check.True(t, errors.Is(err, ErrInsufficientSelection))
	}
}

func TestCompareBids_UnknownBid(t *testing.T) {
	_, err := CompareBids(comparisonFixture(t), []string{"bid_a", "bid_zzz"}, decimal.NullDecimal{})
	check.True(t, errors.Is(err, ErrNotFound))
}

func TestCompareBids_NoBudgetMeansWithin(t *testing.T) {
	table, err := CompareBids(comparisonFixture(t), []string{"bid_a", "bid_b", "bid_c"}, decimal.NullDecimal{})
	assert.NoError(t, err)
	for _, row := range table.Rows {
		check.True(t, row.WithinBudget)
	}
}
