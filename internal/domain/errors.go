package domain

import (
	"errors"
	"fmt"
)

var (
	ErrFlightNotFound    = errors.New("flight not found")
	ErrFlightUnavailable = errors.New("flight is not open for booking")
	ErrTicketNotFound    = errors.New("ticket not found")
	ErrMemberNotFound    = errors.New("member not found")
	ErrMemberExists      = errors.New("member email already registered")
	ErrPartnerNotFound   = errors.New("partner not found")
	ErrAirportUnknown    = errors.New("unknown airport code")
)

// InsufficientCapacityError reports how many seats were actually left so
// the caller can retry with fewer passengers.
type InsufficientCapacityError struct {
	Requested int
	Available int
}

func (e *InsufficientCapacityError) Error() string {
	return fmt.Sprintf("insufficient capacity: requested %d seats, %d available", e.Requested, e.Available)
}

// ValidationError rejects malformed input before any storage is touched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
