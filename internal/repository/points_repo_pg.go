package repository

import (
	"context"

	"github.com/BartoooMuch/irline-ticketing-system/internal/domain"
)

func (t *ledgerTx) InsertPointsTransaction(ctx context.Context, pt *domain.PointsTransaction) error {
	return t.tx.QueryRow(ctx, `INSERT INTO points_transactions (member_id, ticket_id, type, miles, description, source, settlement_processed, notification_sent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`,
		pt.MemberID, pt.TicketID, pt.Type, pt.Miles, pt.Description, pt.Source, pt.SettlementProcessed, pt.NotificationSent).
		Scan(&pt.ID, &pt.CreatedAt)
}

// SettlementCreditExists is the idempotency check of the settlement sweep:
// one FLIGHT_COMPLETION credit per ticket, ever.
func (t *ledgerTx) SettlementCreditExists(ctx context.Context, ticketID int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (
		SELECT 1 FROM points_transactions WHERE ticket_id=$1 AND type=$2 AND source=$3
	)`, ticketID, domain.TransactionCredit, domain.SourceFlightCompletion).Scan(&exists)
	return exists, err
}

func (s *Store) TransactionsForMember(ctx context.Context, memberID int64) ([]domain.PointsTransaction, error) {
	rows, err := s.db.Query(ctx, `SELECT id, member_id, ticket_id, type, miles, description, source, settlement_processed, notification_sent, created_at
		FROM points_transactions WHERE member_id=$1 ORDER BY created_at DESC, id DESC`, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txs := make([]domain.PointsTransaction, 0)
	for rows.Next() {
		var pt domain.PointsTransaction
		if err := rows.Scan(&pt.ID, &pt.MemberID, &pt.TicketID, &pt.Type, &pt.Miles, &pt.Description, &pt.Source, &pt.SettlementProcessed, &pt.NotificationSent, &pt.CreatedAt); err != nil {
			return nil, err
		}
		txs = append(txs, pt)
	}
	return txs, rows.Err()
}

// UnnotifiedTransactions returns up to limit ledger entries whose member
// notification has not been delivered, oldest first.
func (s *Store) UnnotifiedTransactions(ctx context.Context, limit int) ([]domain.PendingNotification, error) {
	rows, err := s.db.Query(ctx, `SELECT pt.id, pt.member_id, pt.ticket_id, pt.type, pt.miles, pt.description, pt.source, pt.settlement_processed, pt.notification_sent, pt.created_at, m.member_number, m.email
		FROM points_transactions pt
		JOIN members m ON m.id = pt.member_id
		WHERE NOT pt.notification_sent
		ORDER BY pt.id
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pending := make([]domain.PendingNotification, 0)
	for rows.Next() {
		var p domain.PendingNotification
		pt := &p.Transaction
		if err := rows.Scan(&pt.ID, &pt.MemberID, &pt.TicketID, &pt.Type, &pt.Miles, &pt.Description, &pt.Source, &pt.SettlementProcessed, &pt.NotificationSent, &pt.CreatedAt, &p.MemberNumber, &p.MemberEmail); err != nil {
			return nil, err
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

func (s *Store) MarkTransactionNotified(ctx context.Context, id int64) error {
	_, err := s.db.Exec(ctx, `UPDATE points_transactions SET notification_sent=TRUE WHERE id=$1`, id)
	return err
}
