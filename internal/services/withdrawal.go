package services

import (
	"context"
	"encoding/json"
	"errors"

	"peervest/internal/models"
	"peervest/internal/money"
	"peervest/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrInvalidWithdrawal = errors.New("withdrawal amount must be positive")
	ErrInsufficientFunds = errors.New("insufficient available balance")
)

// RequestWithdrawal moves the amount from available to locked and records
// a pending withdrawal payment. The funds stay locked until the provider's
// transfer webhook settles the payout one way or the other.
func (s *ActivationService) RequestWithdrawal(ctx context.Context, userID string, amountMinor int64) (string, error) {
	if amountMinor <= 0 {
		return "", ErrInvalidWithdrawal
	}
	reference := "wd-" + uuid.NewString()
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		rows, err := s.wallets.AdjustAvailable(ctx, tx, userID, -amountMinor)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrInsufficientFunds
		}
		if _, err := s.wallets.AdjustLocked(ctx, tx, userID, amountMinor); err != nil {
			return err
		}
		if err := s.payments.Upsert(ctx, tx, store.PaymentInput{
			Reference: reference,
			UserID:    &userID,
			Purpose:   PurposeWithdrawal,
			Amount:    amountMinor,
			Currency:  DefaultCurrency,
			Status:    models.PaymentPending,
			Metadata:  "{}",
		}); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{
			"reference": reference,
			"amount":    money.FormatMinor(amountMinor),
		})
		return s.audit.Log(ctx, tx, userID, "withdraw_requested", "payment", reference, string(data))
	})
	if err != nil {
		return "", err
	}
	s.broadcastWallet(ctx, userID)
	return reference, nil
}
