package store

import (
	"context"
	"database/sql"
	"errors"

	"peervest/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

type UserStore struct {
	db DB
}

func NewUserStore(db DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Create(ctx context.Context, tx Execer, id, fullName, email, phone, passwordHash, referralCode string) error {
	query := `
		INSERT INTO users (id, full_name, email, phone, password_hash, referral_code)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := tx.ExecContext(ctx, query, id, fullName, email, phone, passwordHash, referralCode)
	return err
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var row models.User
	err := s.db.GetContext(ctx, &row, `
		SELECT id, full_name, email, phone, password_hash, referral_code, created_at
		FROM users
		WHERE email = $1
	`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return row, nil
}

func (s *UserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	var row models.User
	err := s.db.GetContext(ctx, &row, `
		SELECT id, full_name, email, phone, referral_code, created_at
		FROM users
		WHERE id = $1
	`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return row, nil
}

// GetByReferralCode resolves the referrer inside the activation
// transaction so the commission credit and the activation commit together.
func (s *UserStore) GetByReferralCode(ctx context.Context, tx Getter, code string) (models.User, error) {
	var row models.User
	err := tx.GetContext(ctx, &row, `
		SELECT id, full_name, email, phone, referral_code, created_at
		FROM users
		WHERE referral_code = $1
	`, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return row, nil
}
