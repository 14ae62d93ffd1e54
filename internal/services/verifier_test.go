package services

import (
	"context"
	"errors"
	"testing"

	"peervest/internal/paystack"
)

type stubProviderClient struct {
	verifyFn func(ctx context.Context, reference string) (paystack.Transaction, error)
}

func (s stubProviderClient) VerifyTransaction(ctx context.Context, reference string) (paystack.Transaction, error) {
	return s.verifyFn(ctx, reference)
}

func TestVerifyAcceptsExactMatch(t *testing.T) {
	verifier := NewPaymentVerifier(stubProviderClient{
		verifyFn: func(_ context.Context, reference string) (paystack.Transaction, error) {
			return paystack.Transaction{Reference: reference, Status: "success", Amount: 1000000, Currency: "NGN"}, nil
		},
	})
	txn, err := verifier.Verify(context.Background(), "ref-1", 1000000, "NGN")
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if txn.Reference != "ref-1" {
		t.Fatalf("reference = %q, want ref-1", txn.Reference)
	}
}

func TestVerifyRejectsNonSuccessStatus(t *testing.T) {
	for _, status := range []string{"failed", "abandoned", "pending", ""} {
		verifier := NewPaymentVerifier(stubProviderClient{
			verifyFn: func(_ context.Context, reference string) (paystack.Transaction, error) {
				return paystack.Transaction{Reference: reference, Status: status, Amount: 1000000, Currency: "NGN"}, nil
			},
		})
		_, err := verifier.Verify(context.Background(), "ref-1", 1000000, "NGN")
		if !errors.Is(err, ErrPaymentNotSuccessful) {
			t.Fatalf("status %q: err = %v, want ErrPaymentNotSuccessful", status, err)
		}
	}
}

func TestVerifyRejectsAmountMismatch(t *testing.T) {
	// Off by one minor unit in either direction is a mismatch.
	for _, amount := range []int64{999999, 1000001, 0} {
		verifier := NewPaymentVerifier(stubProviderClient{
			verifyFn: func(_ context.Context, reference string) (paystack.Transaction, error) {
				return paystack.Transaction{Reference: reference, Status: "success", Amount: amount, Currency: "NGN"}, nil
			},
		})
		_, err := verifier.Verify(context.Background(), "ref-1", 1000000, "NGN")
		if !errors.Is(err, ErrAmountMismatch) {
			t.Fatalf("amount %d: err = %v, want ErrAmountMismatch", amount, err)
		}
	}
}

func TestVerifyRejectsCurrencyMismatch(t *testing.T) {
	verifier := NewPaymentVerifier(stubProviderClient{
		verifyFn: func(_ context.Context, reference string) (paystack.Transaction, error) {
			return paystack.Transaction{Reference: reference, Status: "success", Amount: 1000000, Currency: "USD"}, nil
		},
	})
	_, err := verifier.Verify(context.Background(), "ref-1", 1000000, "NGN")
	if !errors.Is(err, ErrCurrencyMismatch) {
		t.Fatalf("err = %v, want ErrCurrencyMismatch", err)
	}
}

func TestVerifyPropagatesProviderErrors(t *testing.T) {
	verifier := NewPaymentVerifier(stubProviderClient{
		verifyFn: func(_ context.Context, _ string) (paystack.Transaction, error) {
			return paystack.Transaction{}, paystack.ErrUnavailable
		},
	})
	_, err := verifier.Verify(context.Background(), "ref-1", 1000000, "NGN")
	if !errors.Is(err, paystack.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}
