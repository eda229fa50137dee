package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/BartoooMuch/irline-ticketing-system/internal/domain"
)

const memberColumns = `id, member_number, COALESCE(subject_id, ''), email, name, total_miles, available_miles, created_at, updated_at`

func scanMember(row pgx.Row) (*domain.Member, error) {
	var m domain.Member
	if err := row.Scan(&m.ID, &m.MemberNumber, &m.SubjectID, &m.Email, &m.Name, &m.TotalMiles, &m.AvailableMiles, &m.CreatedAt, &m.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (s *Store) MemberByNumber(ctx context.Context, number string) (*domain.Member, error) {
	return scanMember(s.db.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE member_number=$1`, number))
}

func (s *Store) MemberByEmail(ctx context.Context, email string) (*domain.Member, error) {
	return scanMember(s.db.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE email=$1`, email))
}

func (s *Store) CreateMember(ctx context.Context, m *domain.Member) error {
	err := s.db.QueryRow(ctx, `INSERT INTO members (member_number, subject_id, email, name)
		VALUES ($1, NULLIF($2, ''), $3, $4)
		RETURNING id, total_miles, available_miles, created_at, updated_at`,
		m.MemberNumber, m.SubjectID, m.Email, m.Name).
		Scan(&m.ID, &m.TotalMiles, &m.AvailableMiles, &m.CreatedAt, &m.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.ErrMemberExists
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// UpsertMemberByIdentity self-heals the join between the identity provider
// and the ledger on first authenticated login. Concurrent first logins for
// the same address race on the email uniqueness constraint; the loser
// reads back the winner's row, and the subject id is backfilled onto rows
// created before the identity provider knew them.
func (s *Store) UpsertMemberByIdentity(ctx context.Context, memberNumber, subjectID, email, name string) (*domain.Member, error) {
	return scanMember(s.db.QueryRow(ctx, `INSERT INTO members (member_number, subject_id, email, name)
		VALUES ($1, NULLIF($2, ''), $3, $4)
		ON CONFLICT (email) DO UPDATE
		SET subject_id = COALESCE(members.subject_id, EXCLUDED.subject_id), updated_at = now()
		RETURNING `+memberColumns,
		memberNumber, subjectID, email, name))
}

func (t *ledgerTx) MemberForUpdate(ctx context.Context, memberID int64) (*domain.Member, error) {
	return scanMember(t.tx.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE id=$1 FOR UPDATE`, memberID))
}

func (t *ledgerTx) MemberByNumberForUpdate(ctx context.Context, number string) (*domain.Member, error) {
	return scanMember(t.tx.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE member_number=$1 FOR UPDATE`, number))
}

func (t *ledgerTx) MemberByEmailForUpdate(ctx context.Context, email string) (*domain.Member, error) {
	return scanMember(t.tx.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE email=$1 FOR UPDATE`, email))
}

func (t *ledgerTx) SetMemberMiles(ctx context.Context, memberID, totalMiles, availableMiles int64) error {
	cmd, err := t.tx.Exec(ctx, `UPDATE members SET total_miles=$1, available_miles=$2, updated_at=now() WHERE id=$3`, totalMiles, availableMiles, memberID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrMemberNotFound
	}
	return nil
}
