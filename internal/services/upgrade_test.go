package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"peervest/internal/models"
	"peervest/internal/paystack"
	"peervest/internal/store"
)

func silverMembership(userID string) models.MembershipAccount {
	return models.MembershipAccount{
		UserID:        userID,
		Tier:          "silver",
		SecurityFee:   2500000,
		RefundableFee: 2000000,
	}
}

func upgradePayment(reference, userID string) models.PaymentRecord {
	metadata, _ := json.Marshal(upgradeMetadata{UserID: userID, FromTier: "silver", TargetTier: "gold"})
	return models.PaymentRecord{
		Reference: reference,
		Purpose:   PurposeUpgrade,
		Amount:    2500000,
		Currency:  DefaultCurrency,
		Status:    models.PaymentPending,
		Metadata:  string(metadata),
	}
}

func TestRequestUpgradeChargesFeeDifference(t *testing.T) {
	var initReq paystack.InitializeRequest
	var recorded store.PaymentInput
	svc := newService(serviceStubs{
		memberships: stubMembershipStore{
			getByUserFn: func(_ context.Context, userID string) (models.MembershipAccount, error) {
				return silverMembership(userID), nil
			},
		},
		users: stubUserStore{
			getByIDFn: func(_ context.Context, userID string) (models.User, error) {
				return models.User{ID: userID, Email: "member@example.com"}, nil
			},
		},
		initializer: stubInitializer{
			initializeFn: func(_ context.Context, req paystack.InitializeRequest) (paystack.Authorization, error) {
				initReq = req
				return paystack.Authorization{Reference: "upg-1", AuthorizationURL: "https://checkout.example/upg-1"}, nil
			},
		},
		payments: stubPaymentStore{
			upsertFn: func(_ context.Context, _ store.Execer, input store.PaymentInput) error {
				recorded = input
				return nil
			},
		},
	})

	authz, err := svc.RequestUpgrade(context.Background(), "user-1", "gold")
	if err != nil {
		t.Fatalf("RequestUpgrade returned error: %v", err)
	}
	if authz.Reference != "upg-1" {
		t.Fatalf("reference = %q, want upg-1", authz.Reference)
	}
	// Gold 5000000 minus silver 2500000.
	if initReq.Amount != 2500000 {
		t.Fatalf("charged %d, want 2500000", initReq.Amount)
	}
	if initReq.Email != "member@example.com" {
		t.Fatalf("charge opened for %q", initReq.Email)
	}
	if recorded.Reference != "upg-1" || recorded.Purpose != PurposeUpgrade || recorded.Amount != 2500000 {
		t.Fatalf("payment record wrong: %+v", recorded)
	}
}

func TestRequestUpgradeRejectsDowngrade(t *testing.T) {
	svc := newService(serviceStubs{
		memberships: stubMembershipStore{
			getByUserFn: func(_ context.Context, userID string) (models.MembershipAccount, error) {
				return silverMembership(userID), nil
			},
		},
	})
	if _, err := svc.RequestUpgrade(context.Background(), "user-1", "basic"); !errors.Is(err, ErrNotUpgrade) {
		t.Fatalf("err = %v, want ErrNotUpgrade", err)
	}
	if _, err := svc.RequestUpgrade(context.Background(), "user-1", "silver"); !errors.Is(err, ErrNotUpgrade) {
		t.Fatalf("err = %v, want ErrNotUpgrade", err)
	}
}

func TestCompleteUpgradeSwapsTierSnapshot(t *testing.T) {
	payment := upgradePayment("upg-1", "user-1")
	var replaced store.MembershipInput
	var lockDelta int64
	var completed bool
	hub := &stubHub{}

	svc := newService(serviceStubs{
		hub: hub,
		payments: stubPaymentStore{
			getByReferenceFn: func(_ context.Context, _ string) (models.PaymentRecord, error) {
				return payment, nil
			},
			getForUpdateFn: func(_ context.Context, _ store.Getter, _ string) (models.PaymentRecord, error) {
				return payment, nil
			},
			markCompletedFn: func(_ context.Context, _ store.Execer, _ string, userID *string, _ time.Time) (int64, error) {
				completed = true
				if userID == nil || *userID != "user-1" {
					t.Fatal("upgrade completion must attribute the payment to the member")
				}
				return 1, nil
			},
		},
		memberships: stubMembershipStore{
			getForUpdateFn: func(_ context.Context, _ store.Getter, userID string) (models.MembershipAccount, error) {
				return silverMembership(userID), nil
			},
			replaceTierFn: func(_ context.Context, _ store.Execer, input store.MembershipInput, _ time.Time) error {
				replaced = input
				return nil
			},
		},
		wallets: stubWalletStore{
			adjustLockedFn: func(_ context.Context, _ store.Execer, _ string, delta int64) (int64, error) {
				lockDelta = delta
				return 1, nil
			},
		},
	})

	if err := svc.CompleteUpgrade(context.Background(), "upg-1", []byte(`{}`)); err != nil {
		t.Fatalf("CompleteUpgrade returned error: %v", err)
	}
	if replaced.Tier != "gold" || replaced.SecurityFee != 5000000 {
		t.Fatalf("tier snapshot wrong: %+v", replaced)
	}
	// Gold refundable 4000000 minus silver refundable 2000000.
	if lockDelta != 2000000 {
		t.Fatalf("locked delta = %d, want 2000000", lockDelta)
	}
	if !completed {
		t.Fatal("payment not marked completed")
	}
	if len(hub.calls) != 1 {
		t.Fatalf("expected one wallet broadcast, got %d", len(hub.calls))
	}
}

func TestCompleteUpgradeRedeliveryIsNoOp(t *testing.T) {
	payment := upgradePayment("upg-1", "user-1")
	payment.Status = models.PaymentCompleted
	replaced := false
	svc := newService(serviceStubs{
		payments: stubPaymentStore{
			getByReferenceFn: func(_ context.Context, _ string) (models.PaymentRecord, error) {
				return payment, nil
			},
		},
		memberships: stubMembershipStore{
			replaceTierFn: func(_ context.Context, _ store.Execer, _ store.MembershipInput, _ time.Time) error {
				replaced = true
				return nil
			},
		},
	})
	if err := svc.CompleteUpgrade(context.Background(), "upg-1", nil); err != nil {
		t.Fatalf("CompleteUpgrade returned error: %v", err)
	}
	if replaced {
		t.Fatal("completed upgrade must not be re-applied")
	}
}

func TestCompleteUpgradeGuardsAgainstConcurrentSwap(t *testing.T) {
	payment := upgradePayment("upg-1", "user-1")
	svc := newService(serviceStubs{
		payments: stubPaymentStore{
			getByReferenceFn: func(_ context.Context, _ string) (models.PaymentRecord, error) {
				return payment, nil
			},
			getForUpdateFn: func(_ context.Context, _ store.Getter, _ string) (models.PaymentRecord, error) {
				return payment, nil
			},
		},
		memberships: stubMembershipStore{
			getForUpdateFn: func(_ context.Context, _ store.Getter, userID string) (models.MembershipAccount, error) {
				// Another upgrade landed first: already on gold.
				return models.MembershipAccount{UserID: userID, Tier: "gold", SecurityFee: 5000000, RefundableFee: 4000000}, nil
			},
		},
	})
	if err := svc.CompleteUpgrade(context.Background(), "upg-1", nil); !errors.Is(err, ErrNotUpgrade) {
		t.Fatalf("err = %v, want ErrNotUpgrade", err)
	}
}

func TestCompleteUpgradeRejectsWrongPurpose(t *testing.T) {
	svc := newService(serviceStubs{
		payments: stubPaymentStore{
			getByReferenceFn: func(_ context.Context, reference string) (models.PaymentRecord, error) {
				return models.PaymentRecord{Reference: reference, Purpose: PurposeMembership, Status: models.PaymentPending}, nil
			},
		},
	})
	if err := svc.CompleteUpgrade(context.Background(), "ref-1", nil); !errors.Is(err, ErrPaymentUnusable) {
		t.Fatalf("err = %v, want ErrPaymentUnusable", err)
	}
}
