package flights

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/BartoooMuch/irline-ticketing-system/internal/domain"
	"github.com/BartoooMuch/irline-ticketing-system/internal/miles"
	"github.com/BartoooMuch/irline-ticketing-system/internal/pricing"
	"github.com/BartoooMuch/irline-ticketing-system/internal/repository"
)

type FlightUseCase interface {
	List(ctx context.Context) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	Create(ctx context.Context, input CreateInput) (*domain.Flight, error)
	Update(ctx context.Context, id int64, input UpdateInput) (*domain.Flight, error)
	Quote(ctx context.Context, q pricing.QuoteRequest) (decimal.Decimal, error)
	ListAirports(ctx context.Context) ([]domain.Airport, error)
}

type FlightStore interface {
	ListFlights(ctx context.Context) ([]domain.Flight, error)
	FlightByID(ctx context.Context, id int64) (*domain.Flight, error)
	InsertFlight(ctx context.Context, f *domain.Flight) error
	ListAirports(ctx context.Context) ([]domain.Airport, error)
	AirportExists(ctx context.Context, code string) (bool, error)
}

type Cache interface {
	GetFlights(ctx context.Context) ([]domain.Flight, error)
	SetFlights(ctx context.Context, flights []domain.Flight) error
	InvalidateFlights(ctx context.Context) error
	GetAirports(ctx context.Context) ([]domain.Airport, error)
	SetAirports(ctx context.Context, airports []domain.Airport) error
}

type PriceSuggester interface {
	SuggestPrice(ctx context.Context, q pricing.QuoteRequest) decimal.Decimal
}

type CreateInput struct {
	FromAirport     string
	ToAirport       string
	DepartureTime   time.Time
	DurationMinutes int
	TotalSeats      int
	PriceCents      int64 // zero asks the oracle for a suggestion
}

// UpdateInput carries the admin-editable fields; nil means leave as is.
type UpdateInput struct {
	Status        *domain.FlightStatus
	PriceCents    *int64
	TotalSeats    *int
	DepartureTime *time.Time
}

type FlightService struct {
	store  FlightStore
	ledger repository.Ledger
	cache  Cache
	oracle PriceSuggester
	now    func() time.Time
}

func NewFlightService(store FlightStore, ledger repository.Ledger, cache Cache, oracle PriceSuggester) *FlightService {
	return &FlightService{
		store:  store,
		ledger: ledger,
		cache:  cache,
		oracle: oracle,
		now:    time.Now,
	}
}

// List serves the flight list from redis when possible. Cache trouble is
// logged and answered from the database; stale or missing cache never
// fails a read.
func (s *FlightService) List(ctx context.Context) ([]domain.Flight, error) {
	if s.cache != nil {
		cached, err := s.cache.GetFlights(ctx)
		if err != nil {
			log.Printf("WARNING: flight cache read failed: %v", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	flights, err := s.store.ListFlights(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetFlights(ctx, flights); err != nil {
			log.Printf("WARNING: flight cache write failed: %v", err)
		}
	}
	return flights, nil
}

func (s *FlightService) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	return s.store.FlightByID(ctx, id)
}

func (s *FlightService) Create(ctx context.Context, input CreateInput) (*domain.Flight, error) {
	input.FromAirport = strings.ToUpper(strings.TrimSpace(input.FromAirport))
	input.ToAirport = strings.ToUpper(strings.TrimSpace(input.ToAirport))

	if err := s.validateCreate(ctx, input); err != nil {
		return nil, err
	}

	priceCents := input.PriceCents
	if priceCents <= 0 {
		suggested := s.oracle.SuggestPrice(ctx, pricing.QuoteRequest{
			FromAirport:     input.FromAirport,
			ToAirport:       input.ToAirport,
			DepartureDate:   input.DepartureTime,
			DurationMinutes: input.DurationMinutes,
		})
		priceCents = miles.CentsFromCash(suggested)
	}

	flight := &domain.Flight{
		FromAirport:     input.FromAirport,
		ToAirport:       input.ToAirport,
		DepartureTime:   input.DepartureTime,
		DurationMinutes: input.DurationMinutes,
		TotalSeats:      input.TotalSeats,
		BasePriceCents:  priceCents,
		Status:          domain.FlightStatusScheduled,
	}
	if err := s.store.InsertFlight(ctx, flight); err != nil {
		return nil, err
	}
	s.invalidateFlights(ctx)
	return flight, nil
}

// Update applies admin changes under the flight's row lock so capacity
// edits can never race a purchase. Completed flights are immutable.
func (s *FlightService) Update(ctx context.Context, id int64, input UpdateInput) (*domain.Flight, error) {
	if input.PriceCents != nil && *input.PriceCents <= 0 {
		return nil, &domain.ValidationError{Field: "price", Reason: "price must be positive"}
	}
	if input.Status != nil {
		switch *input.Status {
		case domain.FlightStatusScheduled, domain.FlightStatusDelayed, domain.FlightStatusCancelled:
		default:
			return nil, &domain.ValidationError{Field: "status", Reason: "status must be SCHEDULED, DELAYED or CANCELLED"}
		}
	}
	if input.DepartureTime != nil && !input.DepartureTime.After(s.now()) {
		return nil, &domain.ValidationError{Field: "departure_time", Reason: "departure must be in the future"}
	}

	var updated *domain.Flight
	err := s.ledger.WithinTx(ctx, func(ctx context.Context, tx repository.LedgerTx) error {
		flight, err := tx.FlightForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if flight.Status == domain.FlightStatusCompleted {
			return &domain.ValidationError{Field: "status", Reason: "completed flights cannot be modified"}
		}

		if input.Status != nil && *input.Status != flight.Status {
			if err := tx.SetFlightStatus(ctx, flight.ID, *input.Status); err != nil {
				return err
			}
			flight.Status = *input.Status
		}
		// A delayed flight keeps its settlement out of the sweep only while
		// the stored departure is ahead of the clock; rescheduling must move
		// the row's time, not just the status.
		if input.DepartureTime != nil && !input.DepartureTime.Equal(flight.DepartureTime) {
			if err := tx.SetFlightDeparture(ctx, flight.ID, *input.DepartureTime); err != nil {
				return err
			}
			flight.DepartureTime = *input.DepartureTime
		}
		if input.PriceCents != nil && *input.PriceCents != flight.BasePriceCents {
			if err := tx.SetFlightPrice(ctx, flight.ID, *input.PriceCents); err != nil {
				return err
			}
			flight.BasePriceCents = *input.PriceCents
		}
		if input.TotalSeats != nil && *input.TotalSeats != flight.TotalSeats {
			sold := flight.TotalSeats - flight.AvailableSeats
			if *input.TotalSeats < sold {
				return &domain.ValidationError{Field: "total_seats", Reason: "capacity cannot drop below seats already sold"}
			}
			available := *input.TotalSeats - sold
			if err := tx.SetFlightCapacity(ctx, flight.ID, *input.TotalSeats, available); err != nil {
				return err
			}
			flight.TotalSeats = *input.TotalSeats
			flight.AvailableSeats = available
		}

		updated = flight
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidateFlights(ctx)
	return updated, nil
}

// Quote prices a route without creating anything. Advisory only; the
// purchase path always charges the stored base price.
func (s *FlightService) Quote(ctx context.Context, q pricing.QuoteRequest) (decimal.Decimal, error) {
	q.FromAirport = strings.ToUpper(strings.TrimSpace(q.FromAirport))
	q.ToAirport = strings.ToUpper(strings.TrimSpace(q.ToAirport))
	if err := s.validateRoute(ctx, q.FromAirport, q.ToAirport); err != nil {
		return decimal.Zero, err
	}
	return s.oracle.SuggestPrice(ctx, q), nil
}

func (s *FlightService) ListAirports(ctx context.Context) ([]domain.Airport, error) {
	if s.cache != nil {
		cached, err := s.cache.GetAirports(ctx)
		if err != nil {
			log.Printf("WARNING: airport cache read failed: %v", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	airports, err := s.store.ListAirports(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetAirports(ctx, airports); err != nil {
			log.Printf("WARNING: airport cache write failed: %v", err)
		}
	}
	return airports, nil
}

func (s *FlightService) validateCreate(ctx context.Context, input CreateInput) error {
	if err := s.validateRoute(ctx, input.FromAirport, input.ToAirport); err != nil {
		return err
	}
	if !input.DepartureTime.After(s.now()) {
		return &domain.ValidationError{Field: "departure_time", Reason: "departure must be in the future"}
	}
	if input.DurationMinutes <= 0 {
		return &domain.ValidationError{Field: "duration_minutes", Reason: "duration must be positive"}
	}
	if input.TotalSeats <= 0 {
		return &domain.ValidationError{Field: "total_seats", Reason: "total seats must be positive"}
	}
	return nil
}

func (s *FlightService) validateRoute(ctx context.Context, from, to string) error {
	if from == "" || to == "" {
		return &domain.ValidationError{Field: "route", Reason: "both airports are required"}
	}
	if from == to {
		return &domain.ValidationError{Field: "route", Reason: "origin and destination must differ"}
	}
	for _, code := range []string{from, to} {
		exists, err := s.store.AirportExists(ctx, code)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrAirportUnknown
		}
	}
	return nil
}

func (s *FlightService) invalidateFlights(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateFlights(ctx); err != nil {
		log.Printf("WARNING: flight cache invalidation failed: %v", err)
	}
}

var _ FlightUseCase = (*FlightService)(nil)
