package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"peervest/internal/auth"
	"peervest/internal/middleware"
	"peervest/internal/money"
	"peervest/internal/services"
	"peervest/internal/store"
	"peervest/internal/tier"
	"peervest/internal/websocket"
)

func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	wallet, err := h.wallets.GetByUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrWalletNotFound) {
			respondError(w, http.StatusNotFound, "wallet not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load wallet")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"available":  money.FormatMinor(wallet.Available),
		"locked":     money.FormatMinor(wallet.Locked),
		"total":      money.FormatMinor(wallet.Available + wallet.Locked),
		"updated_at": wallet.UpdatedAt,
	})
}

type withdrawRequest struct {
	Amount string `json:"amount"`
}

func (h *Handler) RequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	amount, err := money.ParseMinor(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid amount")
		return
	}
	reference, err := h.service.RequestWithdrawal(r.Context(), userID, amount)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidWithdrawal):
			respondError(w, http.StatusBadRequest, "withdrawal amount must be positive")
		case errors.Is(err, services.ErrInsufficientFunds):
			respondError(w, http.StatusUnprocessableEntity, "insufficient available balance")
		default:
			respondError(w, http.StatusInternalServerError, "withdrawal request failed")
		}
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{
		"reference": reference,
		"amount":    money.FormatMinor(amount),
	})
}

func (h *Handler) GetMembership(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	membership, err := h.memberships.GetByUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrMembershipNotFound) {
			respondError(w, http.StatusNotFound, "membership not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load membership")
		return
	}
	respondJSON(w, http.StatusOK, membership)
}

type upgradeRequest struct {
	Tier string `json:"tier"`
}

func (h *Handler) RequestUpgrade(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req upgradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	authz, err := h.service.RequestUpgrade(r.Context(), userID, req.Tier)
	if err != nil {
		switch {
		case errors.Is(err, tier.ErrUnknownTier):
			respondError(w, http.StatusBadRequest, "unknown membership tier")
		case errors.Is(err, services.ErrNotUpgrade):
			respondError(w, http.StatusBadRequest, "target tier is not an upgrade")
		case errors.Is(err, store.ErrMembershipNotFound):
			respondError(w, http.StatusNotFound, "membership not found")
		default:
			respondError(w, http.StatusInternalServerError, "upgrade request failed")
		}
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"reference":         authz.Reference,
		"authorization_url": authz.AuthorizationURL,
	})
}

func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	limit, offset := paginate(r)
	payments, err := h.payments.ListByUser(r.Context(), userID, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load payments")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"payments": payments})
}

func (h *Handler) ListReferrals(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	limit, offset := paginate(r)
	referrals, err := h.referrals.ListByReferrer(r.Context(), userID, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load referrals")
		return
	}
	total, err := h.referrals.TotalEarned(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load referrals")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"referrals":    referrals,
		"total_earned": money.FormatMinor(total),
	})
}

func (h *Handler) WSBalances(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	claims, err := auth.ParseToken(h.cfg.JWTSecret, token)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	websocket.ServeWS(w, r, h.hub, claims.UserID)
}

func paginate(r *http.Request) (int, int) {
	limit := 50
	offset := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return limit, offset
}
