package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
)

func TestWalletStoreCreateSeedsLockedDeposit(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "INSERT INTO wallets") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 3 || args[0] != "user-1" || args[1] != int64(0) || args[2] != int64(800000) {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewWalletStore(stubDB{})
	if err := store.Create(ctx, execer, "user-1", 0, 800000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWalletStoreGetByUserNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewWalletStore(stubDB{
		getFn: func(context.Context, any, string, ...any) error {
			return sql.ErrNoRows
		},
	})
	if _, err := store.GetByUser(ctx, "missing"); !errors.Is(err, ErrWalletNotFound) {
		t.Fatalf("expected ErrWalletNotFound, got %v", err)
	}
}

func TestWalletStoreAdjustAvailableGuardsNegative(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "available + $1 >= 0") {
				t.Fatalf("debit must be guarded against overdraft: %s", query)
			}
			if args[0] != int64(-500000) || args[1] != "user-1" {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 0}, nil
		},
	}
	store := NewWalletStore(stubDB{})
	rows, err := store.AdjustAvailable(ctx, execer, "user-1", -500000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows != 0 {
		t.Fatalf("overdraft must affect zero rows, got %d", rows)
	}
}

func TestWalletStoreAdjustLocked(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "SET locked = locked + $1") {
				t.Fatalf("unexpected query: %s", query)
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewWalletStore(stubDB{})
	rows, err := store.AdjustLocked(ctx, execer, "user-1", 2000000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected 1 row, got %d", rows)
	}
}
