package core

import "time"

// Clock provides the current time for deadline checks.
// This interface enables dependency injection for deterministic testing.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time {
	return time.Now()
}

// CanEdit reports whether currentUserID may edit the line items of bid.
// An edit is allowed only for the bid's owner, strictly before the tender
// deadline, and when no read-only override is in force.
func CanEdit(bid Bid, tender Tender, currentUserID string, readOnlyOverride bool, now time.Time) bool {
	isOwner := currentUserID != "" && bid.BidderID == currentUserID
	isBeforeDeadline := now.Before(tender.Deadline)
	return isOwner && isBeforeDeadline && !readOnlyOverride
}

// EditableStatus reports whether the statuses of bid and tender still allow
// line item changes: the tender is open and the bid has not been awarded or
// rejected.
func EditableStatus(bid Bid, tender Tender) bool {
	return tender.Status == TenderOpen && !bid.Status.IsTerminal()
}

// Guard evaluates CanEdit against an injected clock and additionally
// requires EditableStatus. It holds no state between calls, so every check
// sees the current time.
type Guard struct {
	Clock Clock
}

// NewGuard returns a Guard reading clock, or the system clock when nil.
func NewGuard(clock Clock) *Guard {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Guard{Clock: clock}
}

// CanEdit reports whether the edit is allowed right now.
func (g *Guard) CanEdit(bid Bid, tender Tender, currentUserID string, readOnlyOverride bool) bool {
	return EditableStatus(bid, tender) &&
		CanEdit(bid, tender, currentUserID, readOnlyOverride, g.Clock.Now())
}
