package services

import (
	"context"
	"encoding/json"
	"time"

	"peervest/internal/models"
	"peervest/internal/paystack"
	"peervest/internal/store"
	"peervest/internal/tier"

	"github.com/jmoiron/sqlx"
)

type upgradeMetadata struct {
	UserID     string `json:"user_id"`
	FromTier   string `json:"from_tier"`
	TargetTier string `json:"target_tier"`
}

// RequestUpgrade opens a provider charge for the security-fee difference
// between the member's current tier and the target tier, and records the
// payment optimistically. The actual tier swap happens only when the
// charge is verified and completed.
func (s *ActivationService) RequestUpgrade(ctx context.Context, userID, targetTier string) (paystack.Authorization, error) {
	membership, err := s.memberships.GetByUser(ctx, userID)
	if err != nil {
		return paystack.Authorization{}, err
	}
	from, err := tier.Lookup(membership.Tier)
	if err != nil {
		return paystack.Authorization{}, err
	}
	to, err := tier.Lookup(targetTier)
	if err != nil {
		return paystack.Authorization{}, err
	}
	feeDiff := tier.UpgradeFee(from, to)
	if feeDiff <= 0 {
		return paystack.Authorization{}, ErrNotUpgrade
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return paystack.Authorization{}, err
	}
	authz, err := s.initializer.InitializeTransaction(ctx, paystack.InitializeRequest{
		Email:    user.Email,
		Amount:   feeDiff,
		Currency: DefaultCurrency,
		Metadata: map[string]string{
			"purpose":     PurposeUpgrade,
			"user_id":     userID,
			"from_tier":   from.Name,
			"target_tier": to.Name,
		},
	})
	if err != nil {
		return paystack.Authorization{}, err
	}
	metadata, _ := json.Marshal(upgradeMetadata{
		UserID:     userID,
		FromTier:   from.Name,
		TargetTier: to.Name,
	})
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.payments.Upsert(ctx, tx, store.PaymentInput{
			Reference: authz.Reference,
			Purpose:   PurposeUpgrade,
			Amount:    feeDiff,
			Currency:  DefaultCurrency,
			Status:    models.PaymentPending,
			Metadata:  string(metadata),
		})
	})
	if err != nil {
		return paystack.Authorization{}, err
	}
	return authz, nil
}

// CompleteUpgrade verifies the upgrade charge against the provider and
// swaps the tier snapshot under the same idempotency discipline as
// activation: the payment row is locked first and a completed status is a
// no-op.
func (s *ActivationService) CompleteUpgrade(ctx context.Context, reference string, raw []byte) error {
	payment, err := s.payments.GetByReference(ctx, reference)
	if err != nil {
		return err
	}
	if payment.Purpose != PurposeUpgrade {
		return ErrPaymentUnusable
	}
	if payment.Status == models.PaymentCompleted {
		return nil
	}
	var meta upgradeMetadata
	if err := json.Unmarshal([]byte(payment.Metadata), &meta); err != nil {
		return err
	}
	from, err := tier.Lookup(meta.FromTier)
	if err != nil {
		return err
	}
	to, err := tier.Lookup(meta.TargetTier)
	if err != nil {
		return err
	}
	feeDiff := tier.UpgradeFee(from, to)
	if feeDiff <= 0 {
		return ErrNotUpgrade
	}
	txn, err := s.verifier.Verify(ctx, reference, feeDiff, DefaultCurrency)
	if err != nil {
		return err
	}

	var upgraded bool
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		upgraded = false
		locked, err := s.payments.GetForUpdate(ctx, tx, reference)
		if err != nil {
			return err
		}
		switch locked.Status {
		case models.PaymentCompleted:
			return nil
		case models.PaymentFailed:
			return ErrPaymentUnusable
		}
		membership, err := s.memberships.GetForUpdate(ctx, tx, meta.UserID)
		if err != nil {
			return err
		}
		if membership.SecurityFee >= to.SecurityFee {
			// Tier never moves down through this path.
			return ErrNotUpgrade
		}
		now := time.Now()
		if err := s.memberships.ReplaceTier(ctx, tx, store.MembershipInput{
			UserID:          meta.UserID,
			Tier:            to.Name,
			SecurityFee:     to.SecurityFee,
			RefundableFee:   to.RefundableFee,
			AdminFee:        to.AdminFee,
			LoanLimit:       to.LoanLimit,
			InvestmentLimit: to.InvestmentLimit,
			CommissionRate:  to.CommissionRate.String(),
		}, now); err != nil {
			return err
		}
		lockDelta := to.RefundableFee - membership.RefundableFee
		if lockDelta > 0 {
			if _, err := s.wallets.AdjustLocked(ctx, tx, meta.UserID, lockDelta); err != nil {
				return err
			}
		}
		if raw == nil {
			raw = txn.Raw
		}
		if _, err := s.payments.MarkSuccess(ctx, tx, reference, string(raw)); err != nil {
			return err
		}
		rows, err := s.payments.MarkCompleted(ctx, tx, reference, &meta.UserID, now)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrPaymentUnusable
		}
		data, _ := json.Marshal(map[string]string{
			"reference": reference,
			"from":      from.Name,
			"to":        to.Name,
		})
		if err := s.audit.Log(ctx, tx, meta.UserID, "upgrade", "membership", meta.UserID, string(data)); err != nil {
			return err
		}
		upgraded = true
		return nil
	})
	if err != nil {
		return err
	}
	if upgraded {
		s.broadcastWallet(ctx, meta.UserID)
	}
	return nil
}
