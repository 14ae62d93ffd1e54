package handlers

import (
	"context"
	"time"

	"peervest/internal/config"
	"peervest/internal/models"
	"peervest/internal/paystack"
	"peervest/internal/services"
	"peervest/internal/store"
	"peervest/internal/websocket"

	"github.com/jmoiron/sqlx"
)

func testConfig() config.Config {
	return config.Config{
		AppEnv:                "test",
		Port:                  "8080",
		JWTSecret:             "test-jwt-secret",
		TokenTTL:              time.Hour,
		AllowedOrigins:        "*",
		PaystackSecretKey:     "sk_test_secret",
		PaystackWebhookSecret: "whsec_test",
		PendingTTL:            45 * time.Minute,
	}
}

type fakeTxRunner struct {
	err error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

type stubPendingStore struct {
	createFn   func(ctx context.Context, input store.PendingInput) error
	getValidFn func(ctx context.Context, token string, now time.Time) (models.PendingRegistration, error)
}

func (s stubPendingStore) Create(ctx context.Context, input store.PendingInput) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, input)
}

func (s stubPendingStore) GetValid(ctx context.Context, token string, now time.Time) (models.PendingRegistration, error) {
	if s.getValidFn == nil {
		return models.PendingRegistration{}, store.ErrPendingNotFound
	}
	return s.getValidFn(ctx, token, now)
}

type stubUserStore struct {
	getByEmailFn func(ctx context.Context, email string) (models.User, error)
	getByIDFn    func(ctx context.Context, userID string) (models.User, error)
}

func (s stubUserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	if s.getByEmailFn == nil {
		return models.User{}, store.ErrUserNotFound
	}
	return s.getByEmailFn(ctx, email)
}

func (s stubUserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	if s.getByIDFn == nil {
		return models.User{ID: userID}, nil
	}
	return s.getByIDFn(ctx, userID)
}

type stubPaymentStore struct {
	upsertFn         func(ctx context.Context, tx store.Execer, input store.PaymentInput) error
	getByReferenceFn func(ctx context.Context, reference string) (models.PaymentRecord, error)
	listByUserFn     func(ctx context.Context, userID string, limit, offset int) ([]models.PaymentRecord, error)
}

func (s stubPaymentStore) Upsert(ctx context.Context, tx store.Execer, input store.PaymentInput) error {
	if s.upsertFn == nil {
		return nil
	}
	return s.upsertFn(ctx, tx, input)
}

func (s stubPaymentStore) GetByReference(ctx context.Context, reference string) (models.PaymentRecord, error) {
	if s.getByReferenceFn == nil {
		return models.PaymentRecord{}, store.ErrPaymentNotFound
	}
	return s.getByReferenceFn(ctx, reference)
}

func (s stubPaymentStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.PaymentRecord, error) {
	if s.listByUserFn == nil {
		return nil, nil
	}
	return s.listByUserFn(ctx, userID, limit, offset)
}

type stubWalletStore struct {
	getByUserFn func(ctx context.Context, userID string) (models.WalletAccount, error)
}

func (s stubWalletStore) GetByUser(ctx context.Context, userID string) (models.WalletAccount, error) {
	if s.getByUserFn == nil {
		return models.WalletAccount{UserID: userID}, nil
	}
	return s.getByUserFn(ctx, userID)
}

type stubMembershipStore struct {
	getByUserFn func(ctx context.Context, userID string) (models.MembershipAccount, error)
}

func (s stubMembershipStore) GetByUser(ctx context.Context, userID string) (models.MembershipAccount, error) {
	if s.getByUserFn == nil {
		return models.MembershipAccount{}, store.ErrMembershipNotFound
	}
	return s.getByUserFn(ctx, userID)
}

type stubReferralStore struct {
	listByReferrerFn func(ctx context.Context, referrerID string, limit, offset int) ([]models.ReferralEntry, error)
	totalEarnedFn    func(ctx context.Context, referrerID string) (int64, error)
}

func (s stubReferralStore) ListByReferrer(ctx context.Context, referrerID string, limit, offset int) ([]models.ReferralEntry, error) {
	if s.listByReferrerFn == nil {
		return nil, nil
	}
	return s.listByReferrerFn(ctx, referrerID, limit, offset)
}

func (s stubReferralStore) TotalEarned(ctx context.Context, referrerID string) (int64, error) {
	if s.totalEarnedFn == nil {
		return 0, nil
	}
	return s.totalEarnedFn(ctx, referrerID)
}

type stubAuditStore struct {
	logFn func(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
}

func (s stubAuditStore) Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error {
	if s.logFn == nil {
		return nil
	}
	return s.logFn(ctx, tx, actorID, action, entityType, entityID, data)
}

type stubActivationService struct {
	verifyAndActivateFn   func(ctx context.Context, token, passwordHash, reference string) (services.ActivationResult, error)
	handleChargeSuccessFn func(ctx context.Context, reference string, raw []byte) (services.ActivationResult, error)
	settleTransferFn      func(ctx context.Context, reference string, success bool, raw []byte) error
	requestUpgradeFn      func(ctx context.Context, userID, targetTier string) (paystack.Authorization, error)
	requestWithdrawalFn   func(ctx context.Context, userID string, amountMinor int64) (string, error)
}

func (s stubActivationService) VerifyAndActivate(ctx context.Context, token, passwordHash, reference string) (services.ActivationResult, error) {
	if s.verifyAndActivateFn == nil {
		return services.ActivationResult{}, nil
	}
	return s.verifyAndActivateFn(ctx, token, passwordHash, reference)
}

func (s stubActivationService) HandleChargeSuccess(ctx context.Context, reference string, raw []byte) (services.ActivationResult, error) {
	if s.handleChargeSuccessFn == nil {
		return services.ActivationResult{}, nil
	}
	return s.handleChargeSuccessFn(ctx, reference, raw)
}

func (s stubActivationService) SettleTransfer(ctx context.Context, reference string, success bool, raw []byte) error {
	if s.settleTransferFn == nil {
		return nil
	}
	return s.settleTransferFn(ctx, reference, success, raw)
}

func (s stubActivationService) RequestUpgrade(ctx context.Context, userID, targetTier string) (paystack.Authorization, error) {
	if s.requestUpgradeFn == nil {
		return paystack.Authorization{}, nil
	}
	return s.requestUpgradeFn(ctx, userID, targetTier)
}

func (s stubActivationService) RequestWithdrawal(ctx context.Context, userID string, amountMinor int64) (string, error) {
	if s.requestWithdrawalFn == nil {
		return "wd-1", nil
	}
	return s.requestWithdrawalFn(ctx, userID, amountMinor)
}

type stubProvider struct {
	initializeFn func(ctx context.Context, req paystack.InitializeRequest) (paystack.Authorization, error)
}

func (s stubProvider) InitializeTransaction(ctx context.Context, req paystack.InitializeRequest) (paystack.Authorization, error) {
	if s.initializeFn == nil {
		return paystack.Authorization{Reference: "ref-1", AuthorizationURL: "https://checkout.example/ref-1"}, nil
	}
	return s.initializeFn(ctx, req)
}

type handlerStubs struct {
	cfg         *config.Config
	pending     stubPendingStore
	users       stubUserStore
	payments    stubPaymentStore
	wallets     stubWalletStore
	memberships stubMembershipStore
	referrals   stubReferralStore
	audit       stubAuditStore
	service     stubActivationService
	provider    stubProvider
}

func newTestHandler(stubs handlerStubs) *Handler {
	cfg := testConfig()
	if stubs.cfg != nil {
		cfg = *stubs.cfg
	}
	return New(
		fakeTxRunner{},
		cfg,
		stubs.pending,
		stubs.users,
		stubs.payments,
		stubs.wallets,
		stubs.memberships,
		stubs.referrals,
		stubs.audit,
		stubs.service,
		stubs.provider,
		websocket.NewHub(),
	)
}
