// Package sentinel holds the store-level facts that services translate into
// domain errors. Validation failures belong in pkg/domain-errors instead.
package sentinel

import "errors"

var (
	// ErrNotFound: no product, order, user or cart slot with that key.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyUsed: a unique value such as an account email is taken.
	ErrAlreadyUsed = errors.New("already used")
	// ErrConflict: an insert collided with an existing key.
	ErrConflict = errors.New("conflict")
	// ErrInvalidState: the store was asked for something its current state
	// cannot honour, e.g. revoking with a non-positive TTL.
	ErrInvalidState = errors.New("invalid state")
)
