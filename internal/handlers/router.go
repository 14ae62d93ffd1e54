package handlers

import (
	"net/http"

	"peervest/internal/config"
	"peervest/internal/db"
	"peervest/internal/middleware"
	"peervest/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Handler struct {
	txRunner    db.TxRunner
	cfg         config.Config
	pending     PendingStore
	users       UserStore
	payments    PaymentStore
	wallets     WalletStore
	memberships MembershipStore
	referrals   ReferralStore
	audit       AuditStore
	service     ActivationService
	provider    Provider
	hub         *websocket.Hub
}

func New(txRunner db.TxRunner, cfg config.Config, pending PendingStore, users UserStore, payments PaymentStore, wallets WalletStore, memberships MembershipStore, referrals ReferralStore, audit AuditStore, service ActivationService, provider Provider, hub *websocket.Hub) *Handler {
	return &Handler{
		txRunner:    txRunner,
		cfg:         cfg,
		pending:     pending,
		users:       users,
		payments:    payments,
		wallets:     wallets,
		memberships: memberships,
		referrals:   referrals,
		audit:       audit,
		service:     service,
		provider:    provider,
		hub:         hub,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{h.cfg.AllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/complete", h.CompleteSignup)
		r.Post("/login", h.Login)
		r.With(middleware.Auth(h.cfg.JWTSecret)).Get("/me", h.Me)
	})

	// The webhook route accepts any method so the handler itself can
	// reject non-POST deliveries before touching the signature.
	router.Handle("/webhooks/paystack", http.HandlerFunc(h.PaystackWebhook))

	router.With(middleware.Auth(h.cfg.JWTSecret)).Get("/wallet", h.GetWallet)
	router.With(middleware.Auth(h.cfg.JWTSecret)).Post("/wallet/withdraw", h.RequestWithdrawal)
	router.With(middleware.Auth(h.cfg.JWTSecret)).Get("/membership", h.GetMembership)
	router.With(middleware.Auth(h.cfg.JWTSecret)).Post("/membership/upgrade", h.RequestUpgrade)
	router.With(middleware.Auth(h.cfg.JWTSecret)).Get("/payments", h.ListPayments)
	router.With(middleware.Auth(h.cfg.JWTSecret)).Get("/referrals", h.ListReferrals)
	router.Get("/ws/balances", h.WSBalances)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}
