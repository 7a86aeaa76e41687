package models

import "errors"

// Domain error kinds returned by the ledger core. Handlers translate these to
// HTTP status codes; the core itself never logs or retries.
var (
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrCapacityExceeded       = errors.New("storage capacity exceeded")
	ErrNotFound               = errors.New("not found")
	ErrAlreadyReversed        = errors.New("transaction already reversed")
	ErrConcurrentModification = errors.New("concurrent modification - record was modified by another request")
)
