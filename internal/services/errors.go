package services

import "errors"

// Client errors. Handlers map these to 4xx with errors.Is; anything else is a
// store failure and surfaces as 500.
var (
	ErrInvalidTimezone = errors.New("invalid timezone")
	ErrInvalidDate     = errors.New("invalid date")
	ErrNotFound        = errors.New("not found")
	ErrInvalidAmount   = errors.New("invalid amount")
)
