package domain

import "time"

type FlightStatus string

const (
	FlightStatusScheduled FlightStatus = "SCHEDULED"
	FlightStatusDelayed   FlightStatus = "DELAYED"
	FlightStatusCancelled FlightStatus = "CANCELLED"
	FlightStatusCompleted FlightStatus = "COMPLETED"
)

type Flight struct {
	ID              int64
	FromAirport     string
	ToAirport       string
	DepartureTime   time.Time
	DurationMinutes int
	TotalSeats      int
	AvailableSeats  int
	BasePriceCents  int64
	Status          FlightStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Bookable reports whether new tickets may be sold on the flight.
// Delayed, cancelled and completed flights are closed for sale.
func (f *Flight) Bookable() bool {
	return f.Status == FlightStatusScheduled
}

type Airport struct {
	Code    string
	Name    string
	City    string
	Country string
}
