package core

import "errors"

var (
	// ErrInvalidInput reports malformed numeric input such as a negative price or out-of-range score.
	ErrInvalidInput = errors.New("invalid input")

	// ErrIllegalTransition reports a tender or bid state machine violation.
	ErrIllegalTransition = errors.New("illegal transition")

	// ErrInsufficientSelection reports a comparison requested with fewer than two bids.
	ErrInsufficientSelection = errors.New("insufficient selection")

	// ErrNotFound reports a missing tender, bid or line item.
	ErrNotFound = errors.New("not found")

	// ErrPersistence reports a storage collaborator failure.
	ErrPersistence = errors.New("persistence error")

	// ErrEditLocked reports that the mutability guard denied an edit.
	ErrEditLocked = errors.New("bid is not editable")
)
