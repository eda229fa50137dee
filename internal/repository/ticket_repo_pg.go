package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/BartoooMuch/irline-ticketing-system/internal/domain"
)

const ticketColumns = `id, ticket_number, booking_reference, flight_id, member_id, first_name, last_name, title, birth_date, contact_email, price_cents, miles_used, miles_earned, payment_method, status, created_at, updated_at`

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var t domain.Ticket
	if err := row.Scan(&t.ID, &t.TicketNumber, &t.BookingReference, &t.FlightID, &t.MemberID, &t.FirstName, &t.LastName, &t.Title, &t.BirthDate, &t.ContactEmail, &t.PriceCents, &t.MilesUsed, &t.MilesEarned, &t.PaymentMethod, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTicketNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *Store) TicketsByReference(ctx context.Context, reference string) ([]domain.Ticket, error) {
	rows, err := s.db.Query(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE booking_reference=$1 ORDER BY id`, reference)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := make([]domain.Ticket, 0)
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *t)
	}
	return tickets, rows.Err()
}

func (t *ledgerTx) InsertTicket(ctx context.Context, ticket *domain.Ticket) error {
	return t.tx.QueryRow(ctx, `INSERT INTO tickets (ticket_number, booking_reference, flight_id, member_id, first_name, last_name, title, birth_date, contact_email, price_cents, miles_used, miles_earned, payment_method, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at`,
		ticket.TicketNumber, ticket.BookingReference, ticket.FlightID, ticket.MemberID, ticket.FirstName, ticket.LastName, ticket.Title, ticket.BirthDate, ticket.ContactEmail, ticket.PriceCents, ticket.MilesUsed, ticket.MilesEarned, ticket.PaymentMethod, ticket.Status).
		Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (t *ledgerTx) TicketForUpdate(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	return scanTicket(t.tx.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1 FOR UPDATE`, ticketID))
}

func (t *ledgerTx) SetTicketStatus(ctx context.Context, ticketID int64, status domain.TicketStatus) error {
	cmd, err := t.tx.Exec(ctx, `UPDATE tickets SET status=$1, updated_at=now() WHERE id=$2`, status, ticketID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrTicketNotFound
	}
	return nil
}

func (t *ledgerTx) ConfirmedTickets(ctx context.Context, flightID int64) ([]domain.Ticket, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE flight_id=$1 AND status=$2 ORDER BY id`, flightID, domain.TicketStatusConfirmed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := make([]domain.Ticket, 0)
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *ticket)
	}
	return tickets, rows.Err()
}
