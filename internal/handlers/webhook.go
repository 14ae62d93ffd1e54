package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"peervest/internal/paystack"
	"peervest/internal/services"
	"peervest/internal/store"

	"github.com/jmoiron/sqlx"
)

const maxWebhookBody = 1 << 20

type webhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Customer  struct {
			Email string `json:"email"`
		} `json:"customer"`
		Metadata map[string]any `json:"metadata"`
	} `json:"data"`
}

// PaystackWebhook is the only inbound surface the provider talks to. The
// raw body is captured once and that exact byte sequence is used for both
// the signature check and parsing. Nothing in the payload is trusted for
// amounts or statuses; the service re-verifies against the provider.
func (h *Handler) PaystackWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	if h.cfg.PaystackWebhookSecret == "" {
		// Misconfiguration, not an attack: refuse everything and say so
		// loudly in the logs.
		log.Printf("CRITICAL: PAYSTACK_WEBHOOK_SECRET is not set; rejecting webhook delivery")
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	signature := r.Header.Get(paystack.SignatureHeader)
	if !paystack.ValidSignature(h.cfg.PaystackWebhookSecret, body, signature) {
		log.Printf("webhook signature verification failed from %s", r.RemoteAddr)
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		// Authentic but malformed; acknowledge so the provider stops
		// redelivering a payload we can never parse.
		respondJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	switch event.Event {
	case "charge.success":
		result, err := h.service.HandleChargeSuccess(r.Context(), event.Data.Reference, body)
		if err != nil {
			h.respondWebhookError(w, event.Data.Reference, err)
			return
		}
		status := "processed"
		if result.AlreadyProcessed {
			status = "duplicate"
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": status})
	case "transfer.success", "transfer.failed":
		success := event.Event == "transfer.success"
		if err := h.service.SettleTransfer(r.Context(), event.Data.Reference, success, body); err != nil {
			h.respondWebhookError(w, event.Data.Reference, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "processed"})
	case "subscription.create", "subscription.disable":
		h.logProviderEvent(r, event.Event, event.Data.Reference, body)
		respondJSON(w, http.StatusOK, map[string]string{"status": "acknowledged"})
	default:
		respondJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
	}
}

// respondWebhookError splits failures the provider can fix by retrying
// (infrastructure) from failures it cannot (business). Terminal business
// failures are acknowledged with 200 so an unfixable event is not
// redelivered forever.
func (h *Handler) respondWebhookError(w http.ResponseWriter, reference string, err error) {
	switch {
	case errors.Is(err, paystack.ErrUnavailable):
		respondError(w, http.StatusServiceUnavailable, "verification unavailable")
	case errors.Is(err, store.ErrPendingNotFound),
		errors.Is(err, store.ErrPaymentNotFound),
		errors.Is(err, services.ErrAmountMismatch),
		errors.Is(err, services.ErrCurrencyMismatch),
		errors.Is(err, services.ErrPaymentNotSuccessful),
		errors.Is(err, services.ErrPaymentUnusable),
		errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrNotUpgrade),
		errors.Is(err, paystack.ErrTransactionNotFound):
		log.Printf("webhook for %s rejected: %v", reference, err)
		respondJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
	default:
		log.Printf("webhook for %s failed: %v", reference, err)
		respondError(w, http.StatusInternalServerError, "processing failed")
	}
}

func (h *Handler) logProviderEvent(r *http.Request, eventName, reference string, body []byte) {
	err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		return h.audit.Log(r.Context(), tx, "paystack", eventName, "provider_event", reference, string(body))
	})
	if err != nil {
		log.Printf("failed to record %s event: %v", eventName, err)
	}
}
