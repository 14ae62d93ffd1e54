package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"peervest/internal/config"
	"peervest/internal/db"
	"peervest/internal/handlers"
	"peervest/internal/paystack"
	"peervest/internal/services"
	"peervest/internal/store"
	"peervest/internal/websocket"
)

func main() {
	cfg := config.Load()
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer database.Close()

	pending := store.NewPendingStore(database)
	users := store.NewUserStore(database)
	payments := store.NewPaymentStore(database)
	memberships := store.NewMembershipStore(database)
	wallets := store.NewWalletStore(database)
	referrals := store.NewReferralStore(database)
	audit := store.NewAuditStore(database)
	txRunner := db.NewTxRunner(database)
	hub := websocket.NewHub()

	provider := paystack.NewClient(cfg.PaystackBaseURL, cfg.PaystackSecretKey, cfg.PaystackTimeout)
	verifier := services.NewPaymentVerifier(provider)
	service := services.NewActivationService(txRunner, pending, users, payments, memberships, wallets, referrals, audit, verifier, provider, hub)

	handler := handlers.New(txRunner, cfg, pending, users, payments, wallets, memberships, referrals, audit, service, provider, hub)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go sweepExpiredPending(sweepCtx, pending)

	go func() {
		log.Printf("peervest API listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown
	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}

// sweepExpiredPending clears staged signups that expired without ever
// being paid. Best effort: activation already treats expired rows as
// missing, so the sweep only reclaims space.
func sweepExpiredPending(ctx context.Context, pending *store.PendingStore) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := pending.DeleteExpired(ctx, time.Now())
			if err != nil {
				log.Printf("pending sweep failed: %v", err)
				continue
			}
			if removed > 0 {
				log.Printf("pending sweep removed %d expired registrations", removed)
			}
		}
	}
}
