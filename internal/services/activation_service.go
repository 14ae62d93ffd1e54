package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"peervest/internal/db"
	"peervest/internal/models"
	"peervest/internal/money"
	"peervest/internal/paystack"
	"peervest/internal/store"
	"peervest/internal/tier"
	"peervest/internal/websocket"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const DefaultCurrency = "NGN"

const (
	PurposeMembership = "membership"
	PurposeUpgrade    = "upgrade"
	PurposeWithdrawal = "withdrawal"
)

var (
	ErrEmailTaken        = errors.New("email already registered")
	ErrPasswordRequired  = errors.New("password not set")
	ErrPaymentUnusable   = errors.New("payment is not in an activatable state")
	ErrReferenceMismatch = errors.New("payment reference does not match registration")
	ErrNotUpgrade        = errors.New("target tier is not an upgrade")
)

type PendingStore interface {
	GetValid(ctx context.Context, token string, now time.Time) (models.PendingRegistration, error)
	GetByReference(ctx context.Context, reference string, now time.Time) (models.PendingRegistration, error)
	GetForUpdate(ctx context.Context, tx store.Getter, token string, now time.Time) (models.PendingRegistration, error)
	Delete(ctx context.Context, tx store.Execer, token string) error
}

type PaymentStore interface {
	Upsert(ctx context.Context, tx store.Execer, input store.PaymentInput) error
	GetForUpdate(ctx context.Context, tx store.Getter, reference string) (models.PaymentRecord, error)
	GetByReference(ctx context.Context, reference string) (models.PaymentRecord, error)
	MarkSuccess(ctx context.Context, tx store.Execer, reference, rawPayload string) (int64, error)
	MarkCompleted(ctx context.Context, tx store.Execer, reference string, userID *string, completedAt time.Time) (int64, error)
	MarkFailed(ctx context.Context, tx store.Execer, reference, rawPayload string) (int64, error)
}

type UserStore interface {
	Create(ctx context.Context, tx store.Execer, id, fullName, email, phone, passwordHash, referralCode string) error
	GetByID(ctx context.Context, userID string) (models.User, error)
	GetByReferralCode(ctx context.Context, tx store.Getter, code string) (models.User, error)
}

type MembershipStore interface {
	Create(ctx context.Context, tx store.Execer, input store.MembershipInput) error
	GetByUser(ctx context.Context, userID string) (models.MembershipAccount, error)
	GetForUpdate(ctx context.Context, tx store.Getter, userID string) (models.MembershipAccount, error)
	ReplaceTier(ctx context.Context, tx store.Execer, input store.MembershipInput, upgradedAt time.Time) error
}

type WalletStore interface {
	Create(ctx context.Context, tx store.Execer, userID string, available, locked int64) error
	GetByUser(ctx context.Context, userID string) (models.WalletAccount, error)
	AdjustAvailable(ctx context.Context, tx store.Execer, userID string, delta int64) (int64, error)
	AdjustLocked(ctx context.Context, tx store.Execer, userID string, delta int64) (int64, error)
}

type ReferralStore interface {
	Create(ctx context.Context, tx store.Execer, input store.ReferralInput) error
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
}

type Verifier interface {
	Verify(ctx context.Context, reference string, expectedMinor int64, currency string) (paystack.Transaction, error)
}

type Initializer interface {
	InitializeTransaction(ctx context.Context, req paystack.InitializeRequest) (paystack.Authorization, error)
}

type WalletHub interface {
	BroadcastWallet(userID string, update websocket.WalletUpdate)
}

// ActivationService owns every mutation of the payment, membership and
// wallet records. All side effects of a confirmed payment go through one
// serializable transaction whose first read is the locked payment row, so
// at-least-once webhook delivery and webhook/redirect races collapse to a
// single activation.
type ActivationService struct {
	txRunner    db.TxRunner
	pending     PendingStore
	users       UserStore
	payments    PaymentStore
	memberships MembershipStore
	wallets     WalletStore
	referrals   ReferralStore
	audit       AuditStore
	verifier    Verifier
	initializer Initializer
	hub         WalletHub
}

func NewActivationService(txRunner db.TxRunner, pending PendingStore, users UserStore, payments PaymentStore, memberships MembershipStore, wallets WalletStore, referrals ReferralStore, audit AuditStore, verifier Verifier, initializer Initializer, hub WalletHub) *ActivationService {
	return &ActivationService{
		txRunner:    txRunner,
		pending:     pending,
		users:       users,
		payments:    payments,
		memberships: memberships,
		wallets:     wallets,
		referrals:   referrals,
		audit:       audit,
		verifier:    verifier,
		initializer: initializer,
		hub:         hub,
	}
}

type ActivationRequest struct {
	Token        string
	Reference    string
	PasswordHash string
	RawPayload   string
}

type ActivationResult struct {
	UserID           string
	AlreadyProcessed bool
}

// VerifyAndActivate is the signup-completion path: re-check the payment
// against the provider, then activate. The expected amount comes from the
// pending registration's tier, read from the authoritative tier table.
func (s *ActivationService) VerifyAndActivate(ctx context.Context, token, passwordHash, reference string) (ActivationResult, error) {
	pending, err := s.pending.GetValid(ctx, token, time.Now())
	if err != nil {
		if errors.Is(err, store.ErrPendingNotFound) {
			// The webhook may have finished first and deleted the pending
			// row. A completed payment for this reference is a success.
			payment, perr := s.payments.GetByReference(ctx, reference)
			if perr == nil && payment.Status == models.PaymentCompleted && payment.UserID != nil {
				return ActivationResult{UserID: *payment.UserID, AlreadyProcessed: true}, nil
			}
		}
		return ActivationResult{}, err
	}
	if pending.PaymentRef != "" && pending.PaymentRef != reference {
		return ActivationResult{}, ErrReferenceMismatch
	}
	benefits, err := tier.Lookup(pending.Tier)
	if err != nil {
		return ActivationResult{}, err
	}
	txn, err := s.verifier.Verify(ctx, reference, benefits.SecurityFee, DefaultCurrency)
	if err != nil {
		return ActivationResult{}, err
	}
	return s.Activate(ctx, ActivationRequest{
		Token:        token,
		Reference:    reference,
		PasswordHash: passwordHash,
		RawPayload:   string(txn.Raw),
	})
}

// HandleChargeSuccess is the webhook path for a provider-confirmed charge.
// Signature verification has already happened at the ingress; the amount
// and status still come from the provider's verify endpoint, never from
// the webhook body.
func (s *ActivationService) HandleChargeSuccess(ctx context.Context, reference string, raw []byte) (ActivationResult, error) {
	now := time.Now()
	pending, err := s.pending.GetByReference(ctx, reference, now)
	if err == nil {
		benefits, err := tier.Lookup(pending.Tier)
		if err != nil {
			return ActivationResult{}, err
		}
		txn, err := s.verifier.Verify(ctx, reference, benefits.SecurityFee, DefaultCurrency)
		if err != nil {
			return ActivationResult{}, err
		}
		if pending.PasswordHash == "" {
			// The applicant has not chosen a password yet. Confirm the
			// charge and leave activation to the completion call.
			return ActivationResult{}, s.confirmCharge(ctx, pending, benefits, string(txn.Raw))
		}
		return s.Activate(ctx, ActivationRequest{
			Token:      pending.Token,
			Reference:  reference,
			RawPayload: string(txn.Raw),
		})
	}
	if !errors.Is(err, store.ErrPendingNotFound) {
		return ActivationResult{}, err
	}
	payment, perr := s.payments.GetByReference(ctx, reference)
	if perr != nil {
		return ActivationResult{}, perr
	}
	switch {
	case payment.Status == models.PaymentCompleted:
		result := ActivationResult{AlreadyProcessed: true}
		if payment.UserID != nil {
			result.UserID = *payment.UserID
		}
		return result, nil
	case payment.Purpose == PurposeUpgrade:
		return ActivationResult{}, s.CompleteUpgrade(ctx, reference, raw)
	default:
		return ActivationResult{}, store.ErrPendingNotFound
	}
}

func (s *ActivationService) confirmCharge(ctx context.Context, pending models.PendingRegistration, benefits tier.Benefits, raw string) error {
	metadata, _ := json.Marshal(map[string]string{
		"pending_token": pending.Token,
		"tier":          pending.Tier,
	})
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.payments.Upsert(ctx, tx, store.PaymentInput{
			Reference: pending.PaymentRef,
			Purpose:   PurposeMembership,
			Amount:    benefits.SecurityFee,
			Currency:  DefaultCurrency,
			Status:    models.PaymentPending,
			Metadata:  string(metadata),
		}); err != nil {
			return err
		}
		_, err := s.payments.MarkSuccess(ctx, tx, pending.PaymentRef, raw)
		return err
	})
}

// Activate applies the side effects of a verified payment exactly once.
// Everything happens inside a single transaction: the locked payment row
// is read first, an already-completed status short-circuits to a no-op,
// and any failure rolls the whole unit back, leaving the pending
// registration intact for a legitimate retry.
func (s *ActivationService) Activate(ctx context.Context, req ActivationRequest) (ActivationResult, error) {
	var result ActivationResult
	var referrerID string
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		result = ActivationResult{}
		referrerID = ""
		paymentMissing := false
		payment, err := s.payments.GetForUpdate(ctx, tx, req.Reference)
		if err != nil {
			if !errors.Is(err, store.ErrPaymentNotFound) {
				return err
			}
			paymentMissing = true
		} else {
			switch payment.Status {
			case models.PaymentCompleted:
				if payment.UserID != nil {
					result.UserID = *payment.UserID
				}
				result.AlreadyProcessed = true
				return nil
			case models.PaymentFailed:
				return ErrPaymentUnusable
			}
		}

		now := time.Now()
		pending, err := s.pending.GetForUpdate(ctx, tx, req.Token, now)
		if err != nil {
			return err
		}
		benefits, err := tier.Lookup(pending.Tier)
		if err != nil {
			return err
		}
		passwordHash := req.PasswordHash
		if passwordHash == "" {
			passwordHash = pending.PasswordHash
		}
		if passwordHash == "" {
			return ErrPasswordRequired
		}

		metadata, _ := json.Marshal(map[string]string{
			"pending_token": pending.Token,
			"tier":          pending.Tier,
		})
		if paymentMissing {
			if err := s.payments.Upsert(ctx, tx, store.PaymentInput{
				Reference: req.Reference,
				Purpose:   PurposeMembership,
				Amount:    benefits.SecurityFee,
				Currency:  DefaultCurrency,
				Status:    models.PaymentPending,
				Metadata:  string(metadata),
			}); err != nil {
				return err
			}
		}
		if req.RawPayload != "" {
			if _, err := s.payments.MarkSuccess(ctx, tx, req.Reference, req.RawPayload); err != nil {
				return err
			}
		}

		userID := uuid.NewString()
		if err := s.users.Create(ctx, tx, userID, pending.FullName, pending.Email, pending.Phone, passwordHash, newReferralCode()); err != nil {
			if isUniqueViolation(err) {
				return ErrEmailTaken
			}
			return err
		}
		if err := s.memberships.Create(ctx, tx, store.MembershipInput{
			UserID:          userID,
			Tier:            benefits.Name,
			SecurityFee:     benefits.SecurityFee,
			RefundableFee:   benefits.RefundableFee,
			AdminFee:        benefits.AdminFee,
			LoanLimit:       benefits.LoanLimit,
			InvestmentLimit: benefits.InvestmentLimit,
			CommissionRate:  benefits.CommissionRate.String(),
		}); err != nil {
			return err
		}
		if err := s.wallets.Create(ctx, tx, userID, 0, benefits.RefundableFee); err != nil {
			return err
		}

		if pending.ReferredBy != "" {
			referrer, err := s.users.GetByReferralCode(ctx, tx, pending.ReferredBy)
			if err != nil && !errors.Is(err, store.ErrUserNotFound) {
				return err
			}
			if err == nil {
				commission := tier.Commission(benefits, benefits.SecurityFee)
				rows, err := s.wallets.AdjustAvailable(ctx, tx, referrer.ID, commission)
				if err != nil {
					return err
				}
				if rows == 1 {
					if err := s.referrals.Create(ctx, tx, store.ReferralInput{
						ID:         uuid.NewString(),
						ReferrerID: referrer.ID,
						ReferredID: userID,
						Commission: commission,
						PaymentRef: req.Reference,
					}); err != nil {
						return err
					}
					referrerID = referrer.ID
				}
			}
		}

		rows, err := s.payments.MarkCompleted(ctx, tx, req.Reference, &userID, now)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrPaymentUnusable
		}
		if err := s.pending.Delete(ctx, tx, pending.Token); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{
			"reference": req.Reference,
			"tier":      benefits.Name,
		})
		if err := s.audit.Log(ctx, tx, userID, "activate", "membership", userID, string(data)); err != nil {
			return err
		}
		result.UserID = userID
		return nil
	})
	if err != nil {
		return ActivationResult{}, err
	}
	if !result.AlreadyProcessed {
		s.broadcastWallet(ctx, result.UserID)
		if referrerID != "" {
			s.broadcastWallet(ctx, referrerID)
		}
	}
	return result, nil
}

func (s *ActivationService) broadcastWallet(ctx context.Context, userID string) {
	if userID == "" {
		return
	}
	wallet, err := s.wallets.GetByUser(ctx, userID)
	if err != nil {
		return
	}
	s.hub.BroadcastWallet(userID, websocket.WalletUpdate{
		Available: money.FormatMinor(wallet.Available),
		Locked:    money.FormatMinor(wallet.Locked),
		Total:     money.FormatMinor(wallet.Available + wallet.Locked),
	})
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "23505"
}

func newReferralCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
