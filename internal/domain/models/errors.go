package models

import "errors"

// Domain sentinel errors. Handlers translate these to HTTP statuses;
// repositories return them wrapped so errors.Is works across layers.
var (
	ErrAssetNotFound        = errors.New("asset not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrInsufficientHoldings = errors.New("insufficient holdings")

	// ErrDuplicateKey signals a symbol or name collision during asset
	// generation. It never leaves the simulator: generation retries and
	// eventually skips the tick.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrClockBusy means another request claimed the tick first.
	ErrClockBusy = errors.New("simulation clock already claimed")
)
