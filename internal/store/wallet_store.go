package store

import (
	"context"
	"database/sql"
	"errors"

	"peervest/internal/models"
)

var ErrWalletNotFound = errors.New("wallet not found")

type WalletStore struct {
	db DB
}

func NewWalletStore(db DB) *WalletStore {
	return &WalletStore{db: db}
}

// Create opens a wallet with the refundable deposit already locked. Total
// balance is derived as available + locked and never stored.
func (s *WalletStore) Create(ctx context.Context, tx Execer, userID string, available, locked int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallets (user_id, available, locked)
		VALUES ($1, $2, $3)
	`, userID, available, locked)
	return err
}

func (s *WalletStore) GetByUser(ctx context.Context, userID string) (models.WalletAccount, error) {
	var row models.WalletAccount
	err := s.db.GetContext(ctx, &row, `
		SELECT user_id, available, locked, updated_at
		FROM wallets
		WHERE user_id = $1
	`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.WalletAccount{}, ErrWalletNotFound
		}
		return models.WalletAccount{}, err
	}
	return row, nil
}

// AdjustAvailable credits or debits the spendable balance. Mutations only
// happen inside the transaction that carries their triggering event.
func (s *WalletStore) AdjustAvailable(ctx context.Context, tx Execer, userID string, delta int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE wallets
		SET available = available + $1, updated_at = NOW()
		WHERE user_id = $2 AND available + $1 >= 0
	`, delta, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// AdjustLocked moves the security-deposit side of the wallet.
func (s *WalletStore) AdjustLocked(ctx context.Context, tx Execer, userID string, delta int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE wallets
		SET locked = locked + $1, updated_at = NOW()
		WHERE user_id = $2 AND locked + $1 >= 0
	`, delta, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
