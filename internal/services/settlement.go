package services

import (
	"context"
	"encoding/json"
	"time"

	"peervest/internal/models"

	"github.com/jmoiron/sqlx"
)

// SettleTransfer finalizes a withdrawal payout from a transfer webhook
// event. Success releases the locked funds; failure returns them to the
// available balance. Terminal payment statuses make redelivery a no-op.
func (s *ActivationService) SettleTransfer(ctx context.Context, reference string, success bool, raw []byte) error {
	var userID string
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		userID = ""
		payment, err := s.payments.GetForUpdate(ctx, tx, reference)
		if err != nil {
			return err
		}
		if payment.Purpose != PurposeWithdrawal {
			return ErrPaymentUnusable
		}
		if payment.Status == models.PaymentCompleted || payment.Status == models.PaymentFailed {
			return nil
		}
		now := time.Now()
		action := "transfer_failed"
		if success {
			rows, err := s.payments.MarkCompleted(ctx, tx, reference, nil, now)
			if err != nil {
				return err
			}
			if rows == 0 {
				return nil
			}
			if payment.UserID != nil {
				if _, err := s.wallets.AdjustLocked(ctx, tx, *payment.UserID, -payment.Amount); err != nil {
					return err
				}
			}
			action = "transfer_settled"
		} else {
			rows, err := s.payments.MarkFailed(ctx, tx, reference, string(raw))
			if err != nil {
				return err
			}
			if rows == 0 {
				return nil
			}
			if payment.UserID != nil {
				if _, err := s.wallets.AdjustLocked(ctx, tx, *payment.UserID, -payment.Amount); err != nil {
					return err
				}
				if _, err := s.wallets.AdjustAvailable(ctx, tx, *payment.UserID, payment.Amount); err != nil {
					return err
				}
			}
		}
		if payment.UserID != nil {
			userID = *payment.UserID
		}
		data, _ := json.Marshal(map[string]string{"reference": reference})
		return s.audit.Log(ctx, tx, userID, action, "payment", reference, string(data))
	})
	if err != nil {
		return err
	}
	if userID != "" {
		s.broadcastWallet(ctx, userID)
	}
	return nil
}
