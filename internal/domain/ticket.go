package domain

import "time"

type TicketStatus string

const (
	TicketStatusConfirmed TicketStatus = "CONFIRMED"
	TicketStatusCancelled TicketStatus = "CANCELLED"
)

type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodMiles        PaymentMethod = "MILES"
	PaymentMethodCashAndMiles PaymentMethod = "CASH_AND_MILES"
)

// Ticket is one seat sold to one passenger. All tickets from a single
// purchase share a BookingReference. PriceCents carries the full per-seat
// price; the miles discount lives in MilesUsed, split across the group.
type Ticket struct {
	ID               int64
	TicketNumber     string
	BookingReference string
	FlightID         int64
	MemberID         *int64 // nil for anonymous purchases
	FirstName        string
	LastName         string
	Title            string
	BirthDate        time.Time
	ContactEmail     string
	PriceCents       int64
	MilesUsed        int64
	MilesEarned      int64
	PaymentMethod    PaymentMethod
	Status           TicketStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
