package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"peervest/internal/auth"
	"peervest/internal/models"
	"peervest/internal/paystack"
	"peervest/internal/services"
	"peervest/internal/store"
	"peervest/internal/tier"
	"peervest/internal/validator"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type registerRequest struct {
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	ReferralCode string `json:"referral_code"`
	Tier         string `json:"tier"`
	Password     string `json:"password"`
}

// Register stages a signup and opens the provider charge for the tier's
// security fee. No account exists until the payment is verified and the
// activation transaction commits.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := validator.ValidateName(req.FullName); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validator.ValidateEmail(req.Email); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validator.ValidatePhone(req.Phone); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	benefits, err := tier.Lookup(req.Tier)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	passwordHash := ""
	if req.Password != "" {
		if err := validator.ValidatePassword(req.Password); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		passwordHash, err = auth.HashPassword(req.Password)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to secure password")
			return
		}
	}

	token := uuid.NewString()
	authz, err := h.provider.InitializeTransaction(r.Context(), paystack.InitializeRequest{
		Email:    req.Email,
		Amount:   benefits.SecurityFee,
		Currency: services.DefaultCurrency,
		Metadata: map[string]string{
			"purpose":       services.PurposeMembership,
			"pending_token": token,
			"tier":          benefits.Name,
		},
	})
	if err != nil {
		respondError(w, http.StatusBadGateway, "payment provider unavailable")
		return
	}

	expiresAt := time.Now().Add(h.cfg.PendingTTL)
	if err := h.pending.Create(r.Context(), store.PendingInput{
		Token:        token,
		FullName:     req.FullName,
		Email:        req.Email,
		Phone:        req.Phone,
		ReferredBy:   req.ReferralCode,
		Tier:         benefits.Name,
		PasswordHash: passwordHash,
		PaymentRef:   authz.Reference,
		ExpiresAt:    expiresAt,
	}); err != nil {
		respondError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	metadata, _ := json.Marshal(map[string]string{
		"pending_token": token,
		"tier":          benefits.Name,
	})
	err = h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.payments.Upsert(r.Context(), tx, store.PaymentInput{
			Reference: authz.Reference,
			Purpose:   services.PurposeMembership,
			Amount:    benefits.SecurityFee,
			Currency:  services.DefaultCurrency,
			Status:    models.PaymentPending,
			Metadata:  string(metadata),
		}); err != nil {
			return err
		}
		return h.audit.Log(r.Context(), tx, token, "register", "pending_registration", token, string(metadata))
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"pending_token":     token,
		"reference":         authz.Reference,
		"authorization_url": authz.AuthorizationURL,
		"amount":            benefits.SecurityFee,
		"currency":          services.DefaultCurrency,
		"expires_at":        expiresAt.UTC(),
	})
}

type completeRequest struct {
	Token     string `json:"token"`
	Password  string `json:"password"`
	Reference string `json:"reference"`
}

// CompleteSignup is the client-redirect completion path. It converges on
// the same verifier and activation transaction as the webhook; whichever
// arrives second becomes a no-op.
func (h *Handler) CompleteSignup(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Token == "" || req.Reference == "" {
		respondError(w, http.StatusBadRequest, "token and reference are required")
		return
	}
	if err := validator.ValidatePassword(req.Password); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to secure password")
		return
	}
	result, err := h.service.VerifyAndActivate(r.Context(), req.Token, passwordHash, req.Reference)
	if err != nil {
		status, message := completionError(err)
		respondError(w, status, message)
		return
	}
	token, err := auth.GenerateToken(h.cfg.JWTSecret, result.UserID, h.cfg.TokenTTL)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"user_id": result.UserID,
		"token":   token,
	})
}

// completionError maps activation failures onto user-facing statuses:
// self-correctable conditions get specific 4xx responses, everything else
// a generic retry.
func completionError(err error) (int, string) {
	switch {
	case errors.Is(err, store.ErrPendingNotFound):
		return http.StatusBadRequest, "invalid or expired registration token"
	case errors.Is(err, services.ErrReferenceMismatch):
		return http.StatusBadRequest, "payment reference does not match this registration"
	case errors.Is(err, services.ErrAmountMismatch),
		errors.Is(err, services.ErrCurrencyMismatch),
		errors.Is(err, services.ErrPaymentNotSuccessful),
		errors.Is(err, paystack.ErrTransactionNotFound):
		return http.StatusBadRequest, "payment could not be verified"
	case errors.Is(err, services.ErrEmailTaken):
		return http.StatusConflict, "email already registered"
	case errors.Is(err, tier.ErrUnknownTier):
		return http.StatusBadRequest, "unknown membership tier"
	case errors.Is(err, paystack.ErrUnavailable):
		return http.StatusServiceUnavailable, "payment provider unavailable, try again"
	default:
		return http.StatusInternalServerError, "activation failed, try again"
	}
}
