package core

import "fmt"

// AwardPolicy controls which tender states accept an award.
type AwardPolicy struct {
	// AllowEarlyAward lets the issuer award an open tender before its deadline.
	AllowEarlyAward bool
}

// AwardBid selects bid as the winner of tender.
//
// Preconditions:
//   - tender is closed (or open when policy.AllowEarlyAward is set)
//   - bid belongs to tender and is shortlisted
//
// Processing flow:
//  1. Check the tender state against the policy
//  2. Check the bid is an eligible (shortlisted) bid of this tender
//  3. Move the bid and the tender to awarded
//  4. Reject every non-terminal sibling bid on the same tender
//
// Inputs are never modified. On failure nothing is returned, so callers
// persist either the whole outcome or nothing.
func AwardBid(tender Tender, bid Bid, siblings []Bid, policy AwardPolicy) (*AwardOutcome, error) {
	// Step 1: Tender state
	switch {
	case tender.Status == TenderClosed:
	case tender.Status == TenderOpen && policy.AllowEarlyAward:
	default:
		return nil, fmt.Errorf("%w: tender %s is %s and cannot be awarded", ErrIllegalTransition, tender.ID, tender.Status)
	}

	// Step 2: Bid eligibility
	if bid.TenderID != tender.ID {
		return nil, fmt.Errorf("%w: bid %s belongs to tender %s, not %s", ErrIllegalTransition, bid.ID, bid.TenderID, tender.ID)
	}
	if len(FilterByStatus([]Bid{bid}, BidShortlisted)) == 0 {
		return nil, fmt.Errorf("%w: bid %s is %s, only shortlisted bids can be awarded", ErrIllegalTransition, bid.ID, bid.Status)
	}

	// Step 3: Winner and tender
	awarded, err := TransitionBid(bid, BidAwarded)
	if err != nil {
		return nil, err
	}
	awardedTender := tender
	awardedTender.Status = TenderAwarded

	// Step 4: Cascade rejection to siblings still in play
	rejected := make([]Bid, 0, len(siblings))
	for _, sibling := range siblings {
		if sibling.ID == bid.ID || sibling.TenderID != tender.ID || sibling.Status.IsTerminal() {
			continue
		}
		sibling.Status = BidRejected
		rejected = append(rejected, sibling)
	}

	return &AwardOutcome{
		Tender:   awardedTender,
		Awarded:  awarded,
		Rejected: rejected,
	}, nil
}
