package services

import (
	"context"
	"time"

	"peervest/internal/models"
	"peervest/internal/paystack"
	"peervest/internal/store"
	"peervest/internal/websocket"

	"github.com/jmoiron/sqlx"
)

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
	getValidFn       func(ctx context.Context, token string, now time.Time) (models.PendingRegistration, error)
	getByReferenceFn func(ctx context.Context, reference string, now time.Time) (models.PendingRegistration, error)
	getForUpdateFn   func(ctx context.Context, tx store.Getter, token string, now time.Time) (models.PendingRegistration, error)
	deleteFn         func(ctx context.Context, tx store.Execer, token string) error
}

func (s stubPendingStore) GetValid(ctx context.Context, token string, now time.Time) (models.PendingRegistration, error) {
	if s.getValidFn == nil {
		return models.PendingRegistration{}, store.ErrPendingNotFound
	}
	return s.getValidFn(ctx, token, now)
}

func (s stubPendingStore) GetByReference(ctx context.Context, reference string, now time.Time) (models.PendingRegistration, error) {
	if s.getByReferenceFn == nil {
		return models.PendingRegistration{}, store.ErrPendingNotFound
	}
	return s.getByReferenceFn(ctx, reference, now)
}

func (s stubPendingStore) GetForUpdate(ctx context.Context, tx store.Getter, token string, now time.Time) (models.PendingRegistration, error) {
	if s.getForUpdateFn == nil {
		return models.PendingRegistration{}, store.ErrPendingNotFound
	}
	return s.getForUpdateFn(ctx, tx, token, now)
}

func (s stubPendingStore) Delete(ctx context.Context, tx store.Execer, token string) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, tx, token)
}

type stubPaymentStore struct {
	upsertFn         func(ctx context.Context, tx store.Execer, input store.PaymentInput) error
	getForUpdateFn   func(ctx context.Context, tx store.Getter, reference string) (models.PaymentRecord, error)
	getByReferenceFn func(ctx context.Context, reference string) (models.PaymentRecord, error)
	markSuccessFn    func(ctx context.Context, tx store.Execer, reference, rawPayload string) (int64, error)
	markCompletedFn  func(ctx context.Context, tx store.Execer, reference string, userID *string, completedAt time.Time) (int64, error)
	markFailedFn     func(ctx context.Context, tx store.Execer, reference, rawPayload string) (int64, error)
}

func (s stubPaymentStore) Upsert(ctx context.Context, tx store.Execer, input store.PaymentInput) error {
	if s.upsertFn == nil {
		return nil
	}
	return s.upsertFn(ctx, tx, input)
}

func (s stubPaymentStore) GetForUpdate(ctx context.Context, tx store.Getter, reference string) (models.PaymentRecord, error) {
	if s.getForUpdateFn == nil {
		return models.PaymentRecord{}, store.ErrPaymentNotFound
	}
	return s.getForUpdateFn(ctx, tx, reference)
}

func (s stubPaymentStore) GetByReference(ctx context.Context, reference string) (models.PaymentRecord, error) {
	if s.getByReferenceFn == nil {
		return models.PaymentRecord{}, store.ErrPaymentNotFound
	}
	return s.getByReferenceFn(ctx, reference)
}

func (s stubPaymentStore) MarkSuccess(ctx context.Context, tx store.Execer, reference, rawPayload string) (int64, error) {
	if s.markSuccessFn == nil {
		return 1, nil
	}
	return s.markSuccessFn(ctx, tx, reference, rawPayload)
}

func (s stubPaymentStore) MarkCompleted(ctx context.Context, tx store.Execer, reference string, userID *string, completedAt time.Time) (int64, error) {
	if s.markCompletedFn == nil {
		return 1, nil
	}
	return s.markCompletedFn(ctx, tx, reference, userID, completedAt)
}

func (s stubPaymentStore) MarkFailed(ctx context.Context, tx store.Execer, reference, rawPayload string) (int64, error) {
	if s.markFailedFn == nil {
		return 1, nil
	}
	return s.markFailedFn(ctx, tx, reference, rawPayload)
}

type stubUserStore struct {
	createFn            func(ctx context.Context, tx store.Execer, id, fullName, email, phone, passwordHash, referralCode string) error
	getByIDFn           func(ctx context.Context, userID string) (models.User, error)
	getByReferralCodeFn func(ctx context.Context, tx store.Getter, code string) (models.User, error)
}

func (s stubUserStore) Create(ctx context.Context, tx store.Execer, id, fullName, email, phone, passwordHash, referralCode string) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, id, fullName, email, phone, passwordHash, referralCode)
}

func (s stubUserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	if s.getByIDFn == nil {
		return models.User{ID: userID}, nil
	}
	return s.getByIDFn(ctx, userID)
}

func (s stubUserStore) GetByReferralCode(ctx context.Context, tx store.Getter, code string) (models.User, error) {
	if s.getByReferralCodeFn == nil {
		return models.User{}, store.ErrUserNotFound
	}
	return s.getByReferralCodeFn(ctx, tx, code)
}

type stubMembershipStore struct {
	createFn       func(ctx context.Context, tx store.Execer, input store.MembershipInput) error
	getByUserFn    func(ctx context.Context, userID string) (models.MembershipAccount, error)
	getForUpdateFn func(ctx context.Context, tx store.Getter, userID string) (models.MembershipAccount, error)
	replaceTierFn  func(ctx context.Context, tx store.Execer, input store.MembershipInput, upgradedAt time.Time) error
}

func (s stubMembershipStore) Create(ctx context.Context, tx store.Execer, input store.MembershipInput) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, input)
}

func (s stubMembershipStore) GetByUser(ctx context.Context, userID string) (models.MembershipAccount, error) {
	if s.getByUserFn == nil {
		return models.MembershipAccount{}, store.ErrMembershipNotFound
	}
	return s.getByUserFn(ctx, userID)
}

func (s stubMembershipStore) GetForUpdate(ctx context.Context, tx store.Getter, userID string) (models.MembershipAccount, error) {
	if s.getForUpdateFn == nil {
		return models.MembershipAccount{}, store.ErrMembershipNotFound
	}
	return s.getForUpdateFn(ctx, tx, userID)
}

func (s stubMembershipStore) ReplaceTier(ctx context.Context, tx store.Execer, input store.MembershipInput, upgradedAt time.Time) error {
	if s.replaceTierFn == nil {
		return nil
	}
	return s.replaceTierFn(ctx, tx, input, upgradedAt)
}

type stubWalletStore struct {
	createFn          func(ctx context.Context, tx store.Execer, userID string, available, locked int64) error
	getByUserFn       func(ctx context.Context, userID string) (models.WalletAccount, error)
	adjustAvailableFn func(ctx context.Context, tx store.Execer, userID string, delta int64) (int64, error)
	adjustLockedFn    func(ctx context.Context, tx store.Execer, userID string, delta int64) (int64, error)
}

func (s stubWalletStore) Create(ctx context.Context, tx store.Execer, userID string, available, locked int64) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, userID, available, locked)
}

func (s stubWalletStore) GetByUser(ctx context.Context, userID string) (models.WalletAccount, error) {
	if s.getByUserFn == nil {
		return models.WalletAccount{UserID: userID}, nil
	}
	return s.getByUserFn(ctx, userID)
}

func (s stubWalletStore) AdjustAvailable(ctx context.Context, tx store.Execer, userID string, delta int64) (int64, error) {
	if s.adjustAvailableFn == nil {
		return 1, nil
	}
	return s.adjustAvailableFn(ctx, tx, userID, delta)
}

func (s stubWalletStore) AdjustLocked(ctx context.Context, tx store.Execer, userID string, delta int64) (int64, error) {
	if s.adjustLockedFn == nil {
		return 1, nil
	}
	return s.adjustLockedFn(ctx, tx, userID, delta)
}

type stubReferralStore struct {
	createFn func(ctx context.Context, tx store.Execer, input store.ReferralInput) error
}

func (s stubReferralStore) Create(ctx context.Context, tx store.Execer, input store.ReferralInput) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, input)
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

type stubVerifier struct {
	verifyFn func(ctx context.Context, reference string, expectedMinor int64, currency string) (paystack.Transaction, error)
}

func (s stubVerifier) Verify(ctx context.Context, reference string, expectedMinor int64, currency string) (paystack.Transaction, error) {
	if s.verifyFn == nil {
		return paystack.Transaction{Reference: reference, Status: "success", Amount: expectedMinor, Currency: currency}, nil
	}
	return s.verifyFn(ctx, reference, expectedMinor, currency)
}

type stubInitializer struct {
	initializeFn func(ctx context.Context, req paystack.InitializeRequest) (paystack.Authorization, error)
}

func (s stubInitializer) InitializeTransaction(ctx context.Context, req paystack.InitializeRequest) (paystack.Authorization, error) {
	if s.initializeFn == nil {
		return paystack.Authorization{Reference: "ref-1", AuthorizationURL: "https://checkout.example/ref-1"}, nil
	}
	return s.initializeFn(ctx, req)
}

type stubHub struct {
	calls []websocket.WalletUpdate
}

func (s *stubHub) BroadcastWallet(_ string, update websocket.WalletUpdate) {
	s.calls = append(s.calls, update)
}

type serviceStubs struct {
	pending     stubPendingStore
	users       stubUserStore
	payments    stubPaymentStore
	memberships stubMembershipStore
	wallets     stubWalletStore
	referrals   stubReferralStore
	audit       stubAuditStore
	verifier    stubVerifier
	initializer stubInitializer
	hub         *stubHub
}

func newService(stubs serviceStubs) *ActivationService {
	if stubs.hub == nil {
		stubs.hub = &stubHub{}
	}
	return NewActivationService(
		fakeTxRunner{},
		stubs.pending,
		stubs.users,
		stubs.payments,
		stubs.memberships,
		stubs.wallets,
		stubs.referrals,
		stubs.audit,
		stubs.verifier,
		stubs.initializer,
		stubs.hub,
	)
}
