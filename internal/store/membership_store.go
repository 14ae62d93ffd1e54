package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"peervest/internal/models"
)

var ErrMembershipNotFound = errors.New("membership not found")

type MembershipStore struct {
	db DB
}

func NewMembershipStore(db DB) *MembershipStore {
	return &MembershipStore{db: db}
}

type MembershipInput struct {
	UserID          string
	Tier            string
	SecurityFee     int64
	RefundableFee   int64
	AdminFee        int64
	LoanLimit       int64
	InvestmentLimit int64
	CommissionRate  string
}

func (s *MembershipStore) Create(ctx context.Context, tx Execer, input MembershipInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO memberships (user_id, tier, security_fee, refundable_fee, admin_fee, loan_limit, investment_limit, commission_rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, input.UserID, input.Tier, input.SecurityFee, input.RefundableFee, input.AdminFee, input.LoanLimit, input.InvestmentLimit, input.CommissionRate)
	return err
}

func (s *MembershipStore) GetByUser(ctx context.Context, userID string) (models.MembershipAccount, error) {
	var row models.MembershipAccount
	err := s.db.GetContext(ctx, &row, `
		SELECT user_id, tier, security_fee, refundable_fee, admin_fee, loan_limit, investment_limit, commission_rate, activated_at, upgraded_at
		FROM memberships
		WHERE user_id = $1
	`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.MembershipAccount{}, ErrMembershipNotFound
		}
		return models.MembershipAccount{}, err
	}
	return row, nil
}

func (s *MembershipStore) GetForUpdate(ctx context.Context, tx Getter, userID string) (models.MembershipAccount, error) {
	var row models.MembershipAccount
	err := tx.GetContext(ctx, &row, `
		SELECT user_id, tier, security_fee, refundable_fee, admin_fee, loan_limit, investment_limit, commission_rate, activated_at, upgraded_at
		FROM memberships
		WHERE user_id = $1
		FOR UPDATE
	`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.MembershipAccount{}, ErrMembershipNotFound
		}
		return models.MembershipAccount{}, err
	}
	return row, nil
}

// ReplaceTier swaps the benefit snapshot during an upgrade. Downgrades are
// refused at the service layer, not here.
func (s *MembershipStore) ReplaceTier(ctx context.Context, tx Execer, input MembershipInput, upgradedAt time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE memberships
		SET tier = $1, security_fee = $2, refundable_fee = $3, admin_fee = $4,
		    loan_limit = $5, investment_limit = $6, commission_rate = $7, upgraded_at = $8
		WHERE user_id = $9
	`, input.Tier, input.SecurityFee, input.RefundableFee, input.AdminFee,
		input.LoanLimit, input.InvestmentLimit, input.CommissionRate, upgradedAt.UTC(), input.UserID)
	return err
}
