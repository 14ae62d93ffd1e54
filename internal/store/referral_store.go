package store

import (
	"context"

	"peervest/internal/models"
)

type ReferralStore struct {
	db DB
}

func NewReferralStore(db DB) *ReferralStore {
	return &ReferralStore{db: db}
}

type ReferralInput struct {
	ID         string
	ReferrerID string
	ReferredID string
	Commission int64
	PaymentRef string
}

func (s *ReferralStore) Create(ctx context.Context, tx Execer, input ReferralInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO referrals (id, referrer_id, referred_id, commission, payment_ref)
		VALUES ($1, $2, $3, $4, $5)
	`, input.ID, input.ReferrerID, input.ReferredID, input.Commission, input.PaymentRef)
	return err
}

func (s *ReferralStore) ListByReferrer(ctx context.Context, referrerID string, limit, offset int) ([]models.ReferralEntry, error) {
	var rows []models.ReferralEntry
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, referrer_id, referred_id, commission, payment_ref, created_at
		FROM referrals
		WHERE referrer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, referrerID, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *ReferralStore) TotalEarned(ctx context.Context, referrerID string) (int64, error) {
	var total int64
	err := s.db.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(commission), 0)
		FROM referrals
		WHERE referrer_id = $1
	`, referrerID)
	return total, err
}
