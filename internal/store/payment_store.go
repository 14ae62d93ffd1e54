package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"peervest/internal/models"
)

var ErrPaymentNotFound = errors.New("payment record not found")

type PaymentStore struct {
	db DB
}

func NewPaymentStore(db DB) *PaymentStore {
	return &PaymentStore{db: db}
}

type PaymentInput struct {
	Reference string
	UserID    *string
	Purpose   string
	Amount    int64
	Currency  string
	Status    string
	Metadata  string
}

// Upsert records a payment optimistically at initiation, or registers a
// reference seen first via webhook. An existing row is left untouched:
// status transitions go through the guarded updates below.
func (s *PaymentStore) Upsert(ctx context.Context, tx Execer, input PaymentInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO payments (reference, user_id, purpose, amount, currency, status, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (reference) DO NOTHING
	`, input.Reference, input.UserID, input.Purpose, input.Amount, input.Currency, input.Status, input.Metadata)
	return err
}

// GetForUpdate locks the payment row for the rest of the transaction. The
// idempotency check must read through this, inside the transaction, so a
// racing webhook and redirect cannot both observe a non-completed status.
func (s *PaymentStore) GetForUpdate(ctx context.Context, tx Getter, reference string) (models.PaymentRecord, error) {
	var row models.PaymentRecord
	err := tx.GetContext(ctx, &row, `
		SELECT reference, user_id, purpose, amount, currency, status, metadata, raw_payload, created_at, completed_at
		FROM payments
		WHERE reference = $1
		FOR UPDATE
	`, reference)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.PaymentRecord{}, ErrPaymentNotFound
		}
		return models.PaymentRecord{}, err
	}
	return row, nil
}

func (s *PaymentStore) GetByReference(ctx context.Context, reference string) (models.PaymentRecord, error) {
	var row models.PaymentRecord
	err := s.db.GetContext(ctx, &row, `
		SELECT reference, user_id, purpose, amount, currency, status, metadata, raw_payload, created_at, completed_at
		FROM payments
		WHERE reference = $1
	`, reference)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.PaymentRecord{}, ErrPaymentNotFound
		}
		return models.PaymentRecord{}, err
	}
	return row, nil
}

// MarkSuccess records the provider-confirmed charge. Only a pending row
// moves; completed and failed are terminal.
func (s *PaymentStore) MarkSuccess(ctx context.Context, tx Execer, reference, rawPayload string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE payments
		SET status = $1, raw_payload = $2
		WHERE reference = $3 AND status = $4
	`, models.PaymentSuccess, rawPayload, reference, models.PaymentPending)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// MarkCompleted finalizes a payment exactly once. The status guard returns
// zero rows affected for an already-completed reference, which callers
// treat as the idempotent no-op.
func (s *PaymentStore) MarkCompleted(ctx context.Context, tx Execer, reference string, userID *string, completedAt time.Time) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE payments
		SET status = $1, user_id = COALESCE($2, user_id), completed_at = $3
		WHERE reference = $4 AND status <> $1 AND status <> $5
	`, models.PaymentCompleted, userID, completedAt.UTC(), reference, models.PaymentFailed)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *PaymentStore) MarkFailed(ctx context.Context, tx Execer, reference, rawPayload string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE payments
		SET status = $1, raw_payload = $2
		WHERE reference = $3 AND status = $4
	`, models.PaymentFailed, rawPayload, reference, models.PaymentPending)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *PaymentStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.PaymentRecord, error) {
	var rows []models.PaymentRecord
	err := s.db.SelectContext(ctx, &rows, `
		SELECT reference, user_id, purpose, amount, currency, status, metadata, raw_payload, created_at, completed_at
		FROM payments
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
