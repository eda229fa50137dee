package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/BartoooMuch/irline-ticketing-system/internal/domain"
)

const flightColumns = `id, from_airport, to_airport, departure_time, duration_minutes, total_seats, available_seats, base_price_cents, status, created_at, updated_at`

func scanFlight(row pgx.Row) (*domain.Flight, error) {
	var f domain.Flight
	if err := row.Scan(&f.ID, &f.FromAirport, &f.ToAirport, &f.DepartureTime, &f.DurationMinutes, &f.TotalSeats, &f.AvailableSeats, &f.BasePriceCents, &f.Status, &f.CreatedAt, &f.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFlightNotFound
		}
		return nil, err
	}
	return &f, nil
}

func (s *Store) ListFlights(ctx context.Context) ([]domain.Flight, error) {
	rows, err := s.db.Query(ctx, `SELECT `+flightColumns+` FROM flights ORDER BY departure_time`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	flights := make([]domain.Flight, 0)
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		flights = append(flights, *f)
	}
	return flights, rows.Err()
}

func (s *Store) FlightByID(ctx context.Context, id int64) (*domain.Flight, error) {
	return scanFlight(s.db.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=$1`, id))
}

func (s *Store) InsertFlight(ctx context.Context, f *domain.Flight) error {
	return s.db.QueryRow(ctx, `INSERT INTO flights (from_airport, to_airport, departure_time, duration_minutes, total_seats, available_seats, base_price_cents, status)
		VALUES ($1, $2, $3, $4, $5, $5, $6, $7)
		RETURNING id, available_seats, created_at, updated_at`,
		f.FromAirport, f.ToAirport, f.DepartureTime, f.DurationMinutes, f.TotalSeats, f.BasePriceCents, f.Status).
		Scan(&f.ID, &f.AvailableSeats, &f.CreatedAt, &f.UpdatedAt)
}

// DepartedFlightIDs returns flights whose departure is in the past but
// that were never settled, the settlement sweep's work list. Delayed
// flights depart too, so they are swept alongside scheduled ones.
func (s *Store) DepartedFlightIDs(ctx context.Context, before time.Time) ([]int64, error) {
	rows, err := s.db.Query(ctx, `SELECT id FROM flights WHERE status IN ($1, $2) AND departure_time < $3 ORDER BY departure_time`,
		domain.FlightStatusScheduled, domain.FlightStatusDelayed, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) ListAirports(ctx context.Context) ([]domain.Airport, error) {
	rows, err := s.db.Query(ctx, `SELECT code, name, city, country FROM airports ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	airports := make([]domain.Airport, 0)
	for rows.Next() {
		var a domain.Airport
		if err := rows.Scan(&a.Code, &a.Name, &a.City, &a.Country); err != nil {
			return nil, err
		}
		airports = append(airports, a)
	}
	return airports, rows.Err()
}

func (s *Store) AirportExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM airports WHERE code=$1)`, code).Scan(&exists)
	return exists, err
}

func (t *ledgerTx) FlightForUpdate(ctx context.Context, flightID int64) (*domain.Flight, error) {
	return scanFlight(t.tx.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=$1 FOR UPDATE`, flightID))
}

func (t *ledgerTx) SetFlightSeats(ctx context.Context, flightID int64, available int) error {
	cmd, err := t.tx.Exec(ctx, `UPDATE flights SET available_seats=$1, updated_at=now() WHERE id=$2`, available, flightID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrFlightNotFound
	}
	return nil
}

func (t *ledgerTx) SetFlightStatus(ctx context.Context, flightID int64, status domain.FlightStatus) error {
	cmd, err := t.tx.Exec(ctx, `UPDATE flights SET status=$1, updated_at=now() WHERE id=$2`, status, flightID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrFlightNotFound
	}
	return nil
}

func (t *ledgerTx) SetFlightPrice(ctx context.Context, flightID int64, priceCents int64) error {
	cmd, err := t.tx.Exec(ctx, `UPDATE flights SET base_price_cents=$1, updated_at=now() WHERE id=$2`, priceCents, flightID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrFlightNotFound
	}
	return nil
}

func (t *ledgerTx) SetFlightDeparture(ctx context.Context, flightID int64, departure time.Time) error {
	cmd, err := t.tx.Exec(ctx, `UPDATE flights SET departure_time=$1, updated_at=now() WHERE id=$2`, departure, flightID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrFlightNotFound
	}
	return nil
}

func (t *ledgerTx) SetFlightCapacity(ctx context.Context, flightID int64, total, available int) error {
	cmd, err := t.tx.Exec(ctx, `UPDATE flights SET total_seats=$1, available_seats=$2, updated_at=now() WHERE id=$3`, total, available, flightID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrFlightNotFound
	}
	return nil
}
