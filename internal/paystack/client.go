package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrUnavailable wraps transport-level failures (timeout, connection
// refused, 5xx). Callers may retry the whole verify-then-activate
// sequence; activation stays safe under retry because completion is
// idempotent.
var ErrUnavailable = errors.New("paystack unavailable")

// ErrTransactionNotFound is terminal: the provider does not know the
// reference, so retrying with the same reference cannot succeed.
var ErrTransactionNotFound = errors.New("transaction not found")

type Client struct {
	baseURL string
	secret  string
	http    *http.Client
}

func NewClient(baseURL, secret string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		secret:  secret,
		http:    &http.Client{Timeout: timeout},
	}
}

// Transaction is the provider's authoritative view of a charge. Amount is
// in minor units of Currency.
type Transaction struct {
	Reference     string
	Status        string
	Amount        int64
	Currency      string
	CustomerEmail string
	Raw           json.RawMessage
}

type verifyResponse struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    transactionData `json:"data"`
}

type transactionData struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Customer  struct {
		Email string `json:"email"`
	} `json:"customer"`
}

// VerifyTransaction re-queries the provider's source of truth for a
// reference. Nothing from a webhook or client request is trusted for the
// amount or status; only this lookup is.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (Transaction, error) {
	body, err := c.get(ctx, "/transaction/verify/"+reference)
	if err != nil {
		return Transaction{}, err
	}
	var parsed verifyResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Transaction{}, fmt.Errorf("decode verify response: %w", err)
	}
	if !parsed.Status {
		return Transaction{}, ErrTransactionNotFound
	}
	return Transaction{
		Reference:     parsed.Data.Reference,
		Status:        parsed.Data.Status,
		Amount:        parsed.Data.Amount,
		Currency:      parsed.Data.Currency,
		CustomerEmail: parsed.Data.Customer.Email,
		Raw:           body,
	}, nil
}

type InitializeRequest struct {
	Email    string            `json:"email"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type Authorization struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type initializeResponse struct {
	Status  bool          `json:"status"`
	Message string        `json:"message"`
	Data    Authorization `json:"data"`
}

// InitializeTransaction opens a charge with the provider and returns the
// checkout authorization. The returned reference becomes the join key for
// the whole activation flow.
func (c *Client) InitializeTransaction(ctx context.Context, req InitializeRequest) (Authorization, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return Authorization{}, err
	}
	body, err := c.post(ctx, "/transaction/initialize", payload)
	if err != nil {
		return Authorization{}, err
	}
	var parsed initializeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Authorization{}, fmt.Errorf("decode initialize response: %w", err)
	}
	if !parsed.Status {
		return Authorization{}, fmt.Errorf("initialize rejected: %s", parsed.Message)
	}
	return parsed.Data, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) post(ctx context.Context, path string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+c.secret)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrTransactionNotFound
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("paystack request failed: status %d", resp.StatusCode)
	}
	return body, nil
}
