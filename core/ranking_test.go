package core

import (
	"errors"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func rankingFixture(t *testing.T) []Bid {
	t.Helper()
	base := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	return []Bid{
		{ID: "bid_a", BidAmount: dec(t, "250000"), TimelineDays: 120, SubmittedAt: base.Add(3 * time.Hour), Status: BidShortlisted,
			Evaluation: &Evaluation{OverallScore: 74}},
		{ID: "bid_b", BidAmount: dec(t, "225000"), TimelineDays: 90, SubmittedAt: base.Add(1 * time.Hour), Status: BidUnderReview},
		{ID: "bid_c", BidAmount: dec(t, "275000"), TimelineDays: 90, SubmittedAt: base.Add(2 * time.Hour), Status: BidShortlisted,
			Evaluation: &Evaluation{OverallScore: 81}},
		{ID: "bid_d", BidAmount: dec(t, "225000"), TimelineDays: 150, SubmittedAt: base, Status: BidRejected,
			Evaluation: &Evaluation{OverallScore: 74}},
	}
}

func ids(bids []Bid) []string {
	out := make([]string, len(bids))
	for i, bid := range bids {
		out[i] = bid.ID
	}
	return out
}

func TestRankBids(t *testing.T) {
	tests := []struct {
		name     string
		opts     RankOptions
		expected []string
	}{
		{"price ascending keeps tie order", RankOptions{SortBy: SortByPrice, Order: Ascending}, []string{"bid_b", "bid_d", "bid_a", "bid_c"}},
		{"price descending keeps tie order", RankOptions{SortBy: SortByPrice, Order: Descending}, []string{"bid_c", "bid_a", "bid_b", "bid_d"}},
		{"score descending treats missing as zero", RankOptions{SortBy: SortByScore, Order: Descending}, []string{"bid_c", "bid_a", "bid_d", "bid_b"}},
		{"score ascending", RankOptions{SortBy: SortByScore, Order: Ascending}, []string{"bid_b", "bid_a", "bid_d", "bid_c"}},
		{"timeline ascending", RankOptions{SortBy: SortByTimeline, Order: Ascending}, []string{"bid_b", "bid_c", "bid_a", "bid_d"}},
		{"submitted ascending", RankOptions{SortBy: SortBySubmitted, Order: Ascending}, []string{"bid_d", "bid_b", "bid_c", "bid_a"}},
		{"default order is ascending", RankOptions{SortBy: SortByTimeline}, []string{"bid_b", "bid_c", "bid_a", "bid_d"}},
		{"status filter before sort", RankOptions{SortBy: SortByPrice, Order: Ascending, StatusFilter: []BidStatus{BidShortlisted}}, []string{"bid_a", "bid_c"}},
		{"filter with no matches", RankOptions{SortBy: SortByPrice, StatusFilter: []BidStatus{BidAwarded}}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bids := rankingFixture(t)
			ranked, err := RankBids(bids, tt.opts)
			assert.NoError(t, err)
			check.Equal(t, tt.expected, ids(ranked))

			// Input is never reordered or filtered
			check.Equal(t, []string{"bid_a", "bid_b", "bid_c", "bid_d"}, ids(bids))
		})
	}
}

func TestRankBids_StableForAllEqualKeys(t *testing.T) {
	same := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	bids := make([]Bid, 0, 8)
	for _, id := range []string{"b1", "b2", "b3", "b4", "b5", "b6", "b7", "b8"} {
		bids = append(bids, Bid{ID: id, BidAmount: dec(t, "100"), TimelineDays: 30, SubmittedAt: same})
	}

	for _, key := range []SortKey{SortByPrice, SortByScore, SortByTimeline, SortBySubmitted} {
		for _, order := range []SortOrder{Ascending, Descending} {
			ranked, err := RankBids(bids, RankOptions{SortBy: key, Order: order})
			assert.NoError(t, err)
			check.Equal(t, ids(bids), ids(ranked))
		}
	}
}

func TestRankBids_RejectsUnknownOptions(t *testing.T) {
	_, err := RankBids(nil, RankOptions{SortBy: "rating"})
	check.True(t, errors.Is(err, ErrInvalidInput))

	_, err = RankBids(nil, RankOptions{SortBy: SortByPrice, Order: "sideways"})
	check.True(t, errors.Is(err, ErrInvalidInput))
}

func TestRankingPositions(t *testing.T) {
	ranked, err := RankBids(rankingFixture(t), RankOptions{SortBy: SortByScore, Order: Descending})
	assert.NoError(t, err)

	ranks := RankingPositions(ranked)
	check.Equal(t, 4, len(ranks))
	check.Equal(t, 1, ranks["bid_c"])
	check.Equal(t, 4, ranks["bid_b"])
}

func TestFilterByStatus(t *testing.T) {
	bids := rankingFixture(t)

	check.Equal(t, 4, len(FilterByStatus(bids)))
	check.Equal(t, []string{"bid_b", "bid_d"}, ids(FilterByStatus(bids, BidUnderReview, BidRejected)))

	filtered := FilterByStatus(bids)
	filtered[0].ID = "changed"
	check.Equal(t, "bid_a", bids[0].ID)
}
