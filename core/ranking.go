package core

import (
	"fmt"
	"sort"
)

// SortKey selects the primary key used to order bids.
type SortKey string

const (
	SortByPrice     SortKey = "price"
	SortByScore     SortKey = "score"
	SortByTimeline  SortKey = "timeline"
	SortBySubmitted SortKey = "submitted"
)

// SortOrder is the direction of a ranking.
type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// RankOptions controls RankBids.
type RankOptions struct {
	SortBy SortKey
	Order  SortOrder

	// StatusFilter restricts ranking to bids in these statuses. Empty means all.
	StatusFilter []BidStatus
}

// RankBids returns a filtered, ordered copy of bids. Bids whose sort keys
// are equal keep their input order in both directions.
func RankBids(bids []Bid, opts RankOptions) ([]Bid, error) {
	less, err := comparatorFor(opts.SortBy)
	if err != nil {
		return nil, err
	}

	switch opts.Order {
	case Ascending, "":
	case Descending:
		asc := less
		less = func(a, b *Bid) bool { return asc(b, a) }
	default:
		return nil, fmt.Errorf("%w: unknown sort order %q", ErrInvalidInput, opts.Order)
	}

	ranked := FilterByStatus(bids, opts.StatusFilter...)

	// SliceStable keeps input order among equal keys
	sort.SliceStable(ranked, func(i, j int) bool {
		return less(&ranked[i], &ranked[j])
	})

	return ranked, nil
}

func comparatorFor(key SortKey) (func(a, b *Bid) bool, error) {
	switch key {
	case SortByPrice:
		return func(a, b *Bid) bool { return a.BidAmount.LessThan(b.BidAmount) }, nil
	case SortByScore:
		return func(a, b *Bid) bool { return OverallScore(a) < OverallScore(b) }, nil
	case SortByTimeline:
		return func(a, b *Bid) bool { return a.TimelineDays < b.TimelineDays }, nil
	case SortBySubmitted:
		return func(a, b *Bid) bool { return a.SubmittedAt.Before(b.SubmittedAt) }, nil
	default:
		return nil, fmt.Errorf("%w: unknown sort key %q", ErrInvalidInput, key)
	}
}

// OverallScore returns the bid's evaluated score, or 0 when unevaluated.
func OverallScore(bid *Bid) int {
	if bid.Evaluation == nil {
		return 0
	}
	return bid.Evaluation.OverallScore
}

// FilterByStatus returns a new slice holding the bids whose status is one of
// statuses. With no statuses every bid is kept. The input is not modified.
func FilterByStatus(bids []Bid, statuses ...BidStatus) []Bid {
	out := make([]Bid, 0, len(bids))
	if len(statuses) == 0 {
		return append(out, bids...)
	}

	allowed := make(map[BidStatus]bool, len(statuses))
	for _, s := range statuses {
		allowed[s] = true
	}
	for _, bid := range bids {
		if allowed[bid.Status] {
			out = append(out, bid)
		}
	}
	return out
}

// RankingPositions maps each bid ID of a ranked slice to its 1-based rank.
func RankingPositions(ranked []Bid) map[string]int {
	ranks := make(map[string]int, len(ranked))
	for i, bid := range ranked {
		ranks[bid.ID] = i + 1
	}
	return ranks
}
