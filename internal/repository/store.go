package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BartoooMuch/irline-ticketing-system/internal/domain"
)

// LedgerTx is the view of the store inside one transaction. The ForUpdate
// reads take a row-level exclusive lock that is held until commit or
// rollback, so a capacity check and the matching decrement are atomic.
type LedgerTx interface {
	FlightForUpdate(ctx context.Context, flightID int64) (*domain.Flight, error)
	SetFlightSeats(ctx context.Context, flightID int64, available int) error
	SetFlightStatus(ctx context.Context, flightID int64, status domain.FlightStatus) error
	SetFlightPrice(ctx context.Context, flightID int64, priceCents int64) error
	SetFlightCapacity(ctx context.Context, flightID int64, total, available int) error
	SetFlightDeparture(ctx context.Context, flightID int64, departure time.Time) error

	MemberForUpdate(ctx context.Context, memberID int64) (*domain.Member, error)
	MemberByNumberForUpdate(ctx context.Context, number string) (*domain.Member, error)
	MemberByEmailForUpdate(ctx context.Context, email string) (*domain.Member, error)
	SetMemberMiles(ctx context.Context, memberID, totalMiles, availableMiles int64) error

	InsertTicket(ctx context.Context, t *domain.Ticket) error
	TicketForUpdate(ctx context.Context, ticketID int64) (*domain.Ticket, error)
	SetTicketStatus(ctx context.Context, ticketID int64, status domain.TicketStatus) error
	ConfirmedTickets(ctx context.Context, flightID int64) ([]domain.Ticket, error)

	InsertPointsTransaction(ctx context.Context, pt *domain.PointsTransaction) error
	SettlementCreditExists(ctx context.Context, ticketID int64) (bool, error)
}

// Ledger runs a function inside one database transaction. Any error from
// the function rolls everything back; there is no partial commit.
type Ledger interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error
}

type Store struct {
	db          *pgxpool.Pool
	lockTimeout time.Duration
}

func NewStore(db *pgxpool.Pool, lockTimeout time.Duration) *Store {
	return &Store{db: db, lockTimeout: lockTimeout}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if s.lockTimeout > 0 {
		// Lock waits are bounded by the surrounding transaction; a timeout
		// aborts the transaction and surfaces as a retryable failure.
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())); err != nil {
			return fmt.Errorf("set lock timeout: %w", err)
		}
	}

	if err := fn(ctx, &ledgerTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type ledgerTx struct {
	tx pgx.Tx
}

var (
	_ Ledger   = (*Store)(nil)
	_ LedgerTx = (*ledgerTx)(nil)
)
