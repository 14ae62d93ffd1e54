package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"peervest/internal/models"
	"peervest/internal/store"
)

func TestRequestWithdrawalLocksFunds(t *testing.T) {
	ctx := context.Background()
	var availableDelta, lockedDelta int64
	var recorded store.PaymentInput
	hub := &stubHub{}
	svc := newService(serviceStubs{
		wallets: stubWalletStore{
			adjustAvailableFn: func(_ context.Context, _ store.Execer, userID string, delta int64) (int64, error) {
				if userID != "user-1" {
					t.Fatalf("unexpected user: %s", userID)
				}
				availableDelta = delta
				return 1, nil
			},
			adjustLockedFn: func(_ context.Context, _ store.Execer, _ string, delta int64) (int64, error) {
				lockedDelta = delta
				return 1, nil
			},
		},
		payments: stubPaymentStore{
			upsertFn: func(_ context.Context, _ store.Execer, input store.PaymentInput) error {
				recorded = input
				return nil
			},
		},
		hub: hub,
	})
	reference, err := svc.RequestWithdrawal(ctx, "user-1", 300000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(reference, "wd-") {
		t.Fatalf("unexpected reference: %s", reference)
	}
	if availableDelta != -300000 || lockedDelta != 300000 {
		t.Fatalf("unexpected deltas: available %d, locked %d", availableDelta, lockedDelta)
	}
	if recorded.Reference != reference || recorded.Purpose != PurposeWithdrawal || recorded.Amount != 300000 {
		t.Fatalf("unexpected payment record: %#v", recorded)
	}
	if recorded.UserID == nil || *recorded.UserID != "user-1" {
		t.Fatalf("payment must carry the owner: %#v", recorded.UserID)
	}
	if recorded.Status != models.PaymentPending {
		t.Fatalf("unexpected status: %s", recorded.Status)
	}
	if len(hub.calls) != 1 {
		t.Fatalf("expected 1 wallet broadcast, got %d", len(hub.calls))
	}
}

func TestRequestWithdrawalRejectsNonPositiveAmount(t *testing.T) {
	ctx := context.Background()
	svc := newService(serviceStubs{
		wallets: stubWalletStore{
			adjustAvailableFn: func(context.Context, store.Execer, string, int64) (int64, error) {
				t.Fatal("wallet must not be touched")
				return 0, nil
			},
		},
	})
	for _, amount := range []int64{0, -100} {
		if _, err := svc.RequestWithdrawal(ctx, "user-1", amount); !errors.Is(err, ErrInvalidWithdrawal) {
			t.Fatalf("amount %d: expected ErrInvalidWithdrawal, got %v", amount, err)
		}
	}
}

func TestRequestWithdrawalInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	svc := newService(serviceStubs{
		wallets: stubWalletStore{
			adjustAvailableFn: func(context.Context, store.Execer, string, int64) (int64, error) {
				return 0, nil
			},
			adjustLockedFn: func(context.Context, store.Execer, string, int64) (int64, error) {
				t.Fatal("locked balance must not change on an overdraft")
				return 0, nil
			},
		},
		payments: stubPaymentStore{
			upsertFn: func(context.Context, store.Execer, store.PaymentInput) error {
				t.Fatal("no payment row for an overdraft")
				return nil
			},
		},
	})
	if _, err := svc.RequestWithdrawal(ctx, "user-1", 300000); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}
