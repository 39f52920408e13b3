package core

import (
	"errors"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func TestTenderTransitions(t *testing.T) {
	all := []TenderStatus{TenderDraft, TenderOpen, TenderClosed, TenderAwarded, TenderCancelled}
	legal := map[[2]TenderStatus]bool{
		{TenderDraft, TenderOpen}:       true,
		{TenderOpen, TenderClosed}:      true,
		{TenderClosed, TenderAwarded}:   true,
		{TenderDraft, TenderCancelled}:  true,
		{TenderOpen, TenderCancelled}:   true,
		{TenderClosed, TenderCancelled}: true,
	}

	for _, from := range all {
		for _, to := range all {
			want := legal[[2]TenderStatus{from, to}]
			check.Equal(t, want, CanTransitionTender(from, to))

			tender := Tender{ID: "t1", Status: from}
			next, err := TransitionTender(tender, to)
			if want {
				assert.NoError(t, err)
				check.Equal(t, to, next.Status)
			} else {
				check.True(t, errors.Is(err, ErrIllegalTransition))
				check.Equal(t, from, next.Status)
			}
			// Input is a value; never changed
			check.Equal(t, from, tender.Status)
		}
	}

	check.True(t, TenderAwarded.IsTerminal())
	check.True(t, TenderCancelled.IsTerminal())
	check.False(t, TenderClosed.IsTerminal())
}

func TestBidTransitions(t *testing.T) {
	all := []BidStatus{BidSubmitted, BidUnderReview, BidShortlisted, BidAwarded, BidRejected}
	legal := map[[2]BidStatus]bool{
		{BidSubmitted, BidUnderReview}:   true,
		{BidUnderReview, BidShortlisted}: true,
		{BidUnderReview, BidRejected}:    true,
		{BidShortlisted, BidAwarded}:     true,
		{BidShortlisted, BidRejected}:    true,
	}

	for _, from := range all {
		for _, to := range all {
			want := legal[[2]BidStatus{from, to}]
			check.Equal(t, want, CanTransitionBid(from, to))

			next, err := TransitionBid(Bid{ID: "bid1", Status: from}, to)
			if want {
				assert.NoError(t, err)
				check.Equal(t, to, next.Status)
			} else {
				check.True(t, errors.Is(err, ErrIllegalTransition))
			}
		}
	}

	check.True(t, BidAwarded.IsTerminal())
	check.True(t, BidRejected.IsTerminal())
	check.False(t, BidShortlisted.IsTerminal())
}

func TestCloseIfExpired(t *testing.T) {
	deadline := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	open := Tender{ID: "t1", Status: TenderOpen, Deadline: deadline}

	same, changed := CloseIfExpired(open, deadline.Add(-time.Second))
	check.False(t, changed)
	check.Equal(t, TenderOpen, same.Status)

	closed, changed := CloseIfExpired(open, deadline)
	check.True(t, changed)
	check.Equal(t, TenderClosed, closed.Status)

	draft := Tender{ID: "t2", Status: TenderDraft, Deadline: deadline}
	_, changed = CloseIfExpired(draft, deadline.Add(time.Hour))
	check.False(t, changed)
}
