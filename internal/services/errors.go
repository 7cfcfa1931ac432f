package services

import "errors"

// Caller-visible ledger errors. Handlers match these with errors.Is and map
// them to HTTP statuses; anything else is treated as an infrastructure
// failure and surfaces as a 500 with the transaction rolled back.
var (
	// ErrValidation covers malformed input: non-positive amounts, missing
	// kind or currency, blank rejection reasons.
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientBalance is returned when a reserve would exceed the
	// spendable (balance minus reserved) funds.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrBelowMinimum is returned when a withdrawal is under the configured
	// minimum amount.
	ErrBelowMinimum = errors.New("withdrawal amount below minimum")

	// ErrDuplicateRequest is returned when a messenger already has a pending
	// withdrawal request.
	ErrDuplicateRequest = errors.New("a pending withdrawal request already exists")

	// ErrInvalidTransition is returned when acting on an entry that has
	// already reached a terminal status.
	ErrInvalidTransition = errors.New("entry is in a terminal status")
)
