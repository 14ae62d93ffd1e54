package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"peervest/internal/models"
)

var ErrPendingNotFound = errors.New("pending registration not found")

type PendingStore struct {
	db DB
}

func NewPendingStore(db DB) *PendingStore {
	return &PendingStore{db: db}
}

type PendingInput struct {
	Token        string
	FullName     string
	Email        string
	Phone        string
	ReferredBy   string
	Tier         string
	PasswordHash string
	PaymentRef   string
	ExpiresAt    time.Time
}

func (s *PendingStore) Create(ctx context.Context, input PendingInput) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pending_registrations (token, full_name, email, phone, referred_by, tier, password_hash, payment_ref, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, input.Token, input.FullName, input.Email, input.Phone, input.ReferredBy, input.Tier, input.PasswordHash, input.PaymentRef, input.ExpiresAt.UTC())
	return err
}

const pendingColumns = `token, full_name, email, phone, referred_by, tier, password_hash, payment_ref, created_at, expires_at`

// GetValid looks up a pending registration by token. Expired entries are
// reported as not found, never as stale-but-usable.
func (s *PendingStore) GetValid(ctx context.Context, token string, now time.Time) (models.PendingRegistration, error) {
	var row models.PendingRegistration
	err := s.db.GetContext(ctx, &row, `
		SELECT `+pendingColumns+`
		FROM pending_registrations
		WHERE token = $1 AND expires_at > $2
	`, token, now.UTC())
	return row, mapPendingErr(err)
}

// GetByReference resolves the pending registration a webhook charge
// belongs to; the payment reference is the join key.
func (s *PendingStore) GetByReference(ctx context.Context, reference string, now time.Time) (models.PendingRegistration, error) {
	var row models.PendingRegistration
	err := s.db.GetContext(ctx, &row, `
		SELECT `+pendingColumns+`
		FROM pending_registrations
		WHERE payment_ref = $1 AND expires_at > $2
	`, reference, now.UTC())
	return row, mapPendingErr(err)
}

// GetForUpdate re-reads and locks the pending row inside the activation
// transaction. The pre-transaction read only sizes the expected fee; this
// read is the one that counts.
func (s *PendingStore) GetForUpdate(ctx context.Context, tx Getter, token string, now time.Time) (models.PendingRegistration, error) {
	var row models.PendingRegistration
	err := tx.GetContext(ctx, &row, `
		SELECT `+pendingColumns+`
		FROM pending_registrations
		WHERE token = $1 AND expires_at > $2
		FOR UPDATE
	`, token, now.UTC())
	return row, mapPendingErr(err)
}

func (s *PendingStore) Delete(ctx context.Context, tx Execer, token string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM pending_registrations WHERE token = $1`, token)
	return err
}

// DeleteExpired is the best-effort cleanup sweep for entries that expired
// without ever being paid.
func (s *PendingStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pending_registrations WHERE expires_at <= $1`, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func mapPendingErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrPendingNotFound
	}
	return err
}
