package handlers

import (
	"context"
	"time"

	"peervest/internal/models"
	"peervest/internal/paystack"
	"peervest/internal/services"
	"peervest/internal/store"
)

type PendingStore interface {
	Create(ctx context.Context, input store.PendingInput) error
	GetValid(ctx context.Context, token string, now time.Time) (models.PendingRegistration, error)
}

type UserStore interface {
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, userID string) (models.User, error)
}

type PaymentStore interface {
	Upsert(ctx context.Context, tx store.Execer, input store.PaymentInput) error
	GetByReference(ctx context.Context, reference string) (models.PaymentRecord, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.PaymentRecord, error)
}

type WalletStore interface {
	GetByUser(ctx context.Context, userID string) (models.WalletAccount, error)
}

type MembershipStore interface {
	GetByUser(ctx context.Context, userID string) (models.MembershipAccount, error)
}

type ReferralStore interface {
	ListByReferrer(ctx context.Context, referrerID string, limit, offset int) ([]models.ReferralEntry, error)
	TotalEarned(ctx context.Context, referrerID string) (int64, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
}

type ActivationService interface {
	VerifyAndActivate(ctx context.Context, token, passwordHash, reference string) (services.ActivationResult, error)
	HandleChargeSuccess(ctx context.Context, reference string, raw []byte) (services.ActivationResult, error)
	SettleTransfer(ctx context.Context, reference string, success bool, raw []byte) error
	RequestUpgrade(ctx context.Context, userID, targetTier string) (paystack.Authorization, error)
	RequestWithdrawal(ctx context.Context, userID string, amountMinor int64) (string, error)
}

type Provider interface {
	InitializeTransaction(ctx context.Context, req paystack.InitializeRequest) (paystack.Authorization, error)
}
