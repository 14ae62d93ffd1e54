package services

import (
	"context"
	"errors"
	"fmt"

	"peervest/internal/paystack"
)

var (
	ErrPaymentNotSuccessful = errors.New("payment not successful")
	ErrAmountMismatch       = errors.New("payment amount mismatch")
	ErrCurrencyMismatch     = errors.New("payment currency mismatch")
)

type ProviderClient interface {
	VerifyTransaction(ctx context.Context, reference string) (paystack.Transaction, error)
}

// PaymentVerifier re-derives payment truth from the provider. The expected
// amount comes from the tier table, never from anything the client or the
// webhook payload claims. Both the webhook path and the signup-completion
// path go through this one implementation.
type PaymentVerifier struct {
	client ProviderClient
}

func NewPaymentVerifier(client ProviderClient) *PaymentVerifier {
	return &PaymentVerifier{client: client}
}

// Verify succeeds only when the provider reports the transaction exists,
// its status is success, and its minor-unit amount exactly equals
// expectedMinor. Transport failures propagate wrapped in
// paystack.ErrUnavailable so callers can distinguish retryable from
// terminal outcomes.
func (v *PaymentVerifier) Verify(ctx context.Context, reference string, expectedMinor int64, currency string) (paystack.Transaction, error) {
	txn, err := v.client.VerifyTransaction(ctx, reference)
	if err != nil {
		return paystack.Transaction{}, err
	}
	if txn.Status != "success" {
		return paystack.Transaction{}, fmt.Errorf("%w: provider status %q", ErrPaymentNotSuccessful, txn.Status)
	}
	if txn.Amount != expectedMinor {
		return paystack.Transaction{}, fmt.Errorf("%w: expected %d, provider reports %d", ErrAmountMismatch, expectedMinor, txn.Amount)
	}
	if currency != "" && txn.Currency != currency {
		return paystack.Transaction{}, fmt.Errorf("%w: expected %s, provider reports %s", ErrCurrencyMismatch, currency, txn.Currency)
	}
	return txn, nil
}
