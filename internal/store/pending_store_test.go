package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"peervest/internal/models"
)

func TestPendingStoreCreate(t *testing.T) {
	ctx := context.Background()
	expires := time.Now().Add(45 * time.Minute)
	store := NewPendingStore(stubDB{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "INSERT INTO pending_registrations") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 9 {
				t.Fatalf("expected 9 args, got %d", len(args))
			}
			if args[0] != "tok-1" || args[5] != "basic" || args[7] != "ref-1" {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 1}, nil
		},
	})
	err := store.Create(ctx, PendingInput{
		Token:      "tok-1",
		FullName:   "Ada Obi",
		Email:      "ada@example.com",
		Phone:      "+2348012345678",
		Tier:       "basic",
		PaymentRef: "ref-1",
		ExpiresAt:  expires,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPendingStoreGetValidExcludesExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	store := NewPendingStore(stubDB{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "expires_at > $2") {
				t.Fatalf("lookup must exclude expired rows: %s", query)
			}
			if len(args) != 2 || args[0] != "tok-1" {
				t.Fatalf("unexpected args: %#v", args)
			}
			*dest.(*models.PendingRegistration) = models.PendingRegistration{Token: "tok-1", Tier: "basic"}
			return nil
		},
	})
	row, err := store.GetValid(ctx, "tok-1", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.Token != "tok-1" {
		t.Fatalf("unexpected row: %#v", row)
	}
}

func TestPendingStoreGetValidNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewPendingStore(stubDB{
		getFn: func(context.Context, any, string, ...any) error {
			return sql.ErrNoRows
		},
	})
	if _, err := store.GetValid(ctx, "missing", time.Now()); !errors.Is(err, ErrPendingNotFound) {
		t.Fatalf("expected ErrPendingNotFound, got %v", err)
	}
}

func TestPendingStoreGetByReference(t *testing.T) {
	ctx := context.Background()
	store := NewPendingStore(stubDB{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "WHERE payment_ref = $1") {
				t.Fatalf("unexpected query: %s", query)
			}
			if args[0] != "ref-1" {
				t.Fatalf("unexpected args: %#v", args)
			}
			*dest.(*models.PendingRegistration) = models.PendingRegistration{Token: "tok-1", PaymentRef: "ref-1"}
			return nil
		},
	})
	row, err := store.GetByReference(ctx, "ref-1", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.PaymentRef != "ref-1" {
		t.Fatalf("unexpected row: %#v", row)
	}
}

func TestPendingStoreGetForUpdateLocksRow(t *testing.T) {
	ctx := context.Background()
	getter := stubGetter{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "FOR UPDATE") || !strings.Contains(query, "expires_at > $2") {
				t.Fatalf("unexpected query: %s", query)
			}
			*dest.(*models.PendingRegistration) = models.PendingRegistration{Token: "tok-1"}
			return nil
		},
	}
	store := NewPendingStore(stubDB{})
	if _, err := store.GetForUpdate(ctx, getter, "tok-1", time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPendingStoreDeleteExpired(t *testing.T) {
	ctx := context.Background()
	store := NewPendingStore(stubDB{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "DELETE FROM pending_registrations WHERE expires_at <= $1") {
				t.Fatalf("unexpected query: %s", query)
			}
			return stubResult{rows: 3}, nil
		},
	})
	removed, err := store.DeleteExpired(ctx, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 removed, got %d", removed)
	}
}
