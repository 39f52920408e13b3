package core

import (
	"fmt"
	"time"
)

var tenderTransitions = map[TenderStatus][]TenderStatus{
	TenderDraft:  {TenderOpen, TenderCancelled},
	TenderOpen:   {TenderClosed, TenderCancelled},
	TenderClosed: {TenderAwarded, TenderCancelled},
}

var bidTransitions = map[BidStatus][]BidStatus{
	BidSubmitted:   {BidUnderReview},
	BidUnderReview: {BidShortlisted, BidRejected},
	BidShortlisted: {BidAwarded, BidRejected},
}

// CanTransitionTender reports whether from -> to is a legal tender transition.
func CanTransitionTender(from, to TenderStatus) bool {
	for _, next := range tenderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanTransitionBid reports whether from -> to is a legal bid transition.
func CanTransitionBid(from, to BidStatus) bool {
	for _, next := range bidTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a tender in this status can no longer change.
func (s TenderStatus) IsTerminal() bool {
	return s == TenderAwarded || s == TenderCancelled
}

// IsTerminal reports whether a bid in this status can no longer change.
func (s BidStatus) IsTerminal() bool {
	return s == BidAwarded || s == BidRejected
}

// TransitionTender returns a copy of tender moved to status to.
func TransitionTender(tender Tender, to TenderStatus) (Tender, error) {
	if !CanTransitionTender(tender.Status, to) {
		return tender, fmt.Errorf("%w: tender %s cannot move from %s to %s", ErrIllegalTransition, tender.ID, tender.Status, to)
	}
	tender.Status = to
	return tender, nil
}

// TransitionBid returns a copy of bid moved to status to.
func TransitionBid(bid Bid, to BidStatus) (Bid, error) {
	if !CanTransitionBid(bid.Status, to) {
		return bid, fmt.Errorf("%w: bid %s cannot move from %s to %s", ErrIllegalTransition, bid.ID, bid.Status, to)
	}
	bid.Status = to
	return bid, nil
}

// CloseIfExpired closes an open tender whose deadline has passed.
// The boolean reports whether the tender changed.
func CloseIfExpired(tender Tender, now time.Time) (Tender, bool) {
	if tender.Status != TenderOpen || now.Before(tender.Deadline) {
		return tender, false
	}
	tender.Status = TenderClosed
	return tender, true
}
