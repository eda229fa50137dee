package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/BartoooMuch/irline-ticketing-system/internal/domain"
)

func (s *Store) PartnerByKey(ctx context.Context, apiKey string) (*domain.Partner, error) {
	var p domain.Partner
	err := s.db.QueryRow(ctx, `SELECT id, code, name, api_key, secret_hash, active, created_at
		FROM partners WHERE api_key=$1 AND active`, apiKey).
		Scan(&p.ID, &p.Code, &p.Name, &p.APIKey, &p.SecretHash, &p.Active, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPartnerNotFound
		}
		return nil, err
	}
	return &p, nil
}
