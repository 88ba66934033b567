package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestWallet(t *testing.T, store Store, balance int64) Wallet {
	t.Helper()
	w := Wallet{
		ID:        uuid.NewString(),
		UserID:    uuid.NewString(),
		Balance:   balance,
		Currency:  "NGN",
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	if err := store.CreateWallet(context.Background(), w); err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if balance != 0 {
		SeedBalance(store, w.ID, balance)
	}
	return w
}

func pendingTx(w Wallet, txType string, amount int64) Transaction {
	return Transaction{
		Reference: uuid.NewString(),
		WalletID:  w.ID,
		UserID:    w.UserID,
		Type:      txType,
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	}
}

func TestBeginPendingRejectsSecondOperation(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	w := newTestWallet(t, store, 1_000)

	if err := store.BeginPending(ctx, pendingTx(w, TypeFund, 500)); err != nil {
		t.Fatalf("first begin: %v", err)
	}

	err := store.BeginPending(ctx, pendingTx(w, TypeWithdraw, 200))
	if !errors.Is(err, ErrWalletLocked) {
		t.Fatalf("expected ErrWalletLocked, got %v", err)
	}
}

func TestBeginPendingConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	w := newTestWallet(t, store, 1_000)

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.BeginPending(ctx, pendingTx(w, TypeFund, 100))
		}(i)
	}
	wg.Wait()

	var winners int
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, ErrWalletLocked):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one lock winner, got %d", winners)
	}
}

func TestSettleFundSuccess(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	w := newTestWallet(t, store, 1_000)

	tx := pendingTx(w, TypeFund, 500)
	if err := store.BeginPending(ctx, tx); err != nil {
		t.Fatalf("begin: %v", err)
	}

	res, err := store.Settle(ctx, tx.Reference, StatusSuccess, 500)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if res.Wallet.Balance != 1_500 {
		t.Fatalf("expected balance 1500, got %d", res.Wallet.Balance)
	}
	if res.Wallet.IsLocked {
		t.Fatal("wallet should be unlocked after settlement")
	}
	if res.Transaction.Status != StatusSuccess {
		t.Fatalf("expected success status, got %s", res.Transaction.Status)
	}
}

func TestSettleWithdrawFailureLeavesBalance(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	w := newTestWallet(t, store, 1_500)

	tx := pendingTx(w, TypeWithdraw, 200)
	if err := store.BeginPending(ctx, tx); err != nil {
		t.Fatalf("begin: %v", err)
	}

	res, err := store.Settle(ctx, tx.Reference, StatusFailed, 0)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if res.Wallet.Balance != 1_500 {
		t.Fatalf("balance changed on failure: %d", res.Wallet.Balance)
	}
	if res.Transaction.Status != StatusFailed {
		t.Fatalf("expected failed status, got %s", res.Transaction.Status)
	}
	if res.Wallet.IsLocked {
		t.Fatal("wallet should be unlocked after failed settlement")
	}
}

func TestSettleIsOneShot(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	w := newTestWallet(t, store, 1_000)

	tx := pendingTx(w, TypeFund, 500)
	if err := store.BeginPending(ctx, tx); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := store.Settle(ctx, tx.Reference, StatusSuccess, 500); err != nil {
		t.Fatalf("first settle: %v", err)
	}

	_, err := store.Settle(ctx, tx.Reference, StatusSuccess, 500)
	if !errors.Is(err, ErrAlreadySettled) {
		t.Fatalf("expected ErrAlreadySettled, got %v", err)
	}

	final, err := store.Wallet(ctx, w.ID)
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	if final.Balance != 1_500 {
		t.Fatalf("duplicate settle changed balance: %d", final.Balance)
	}
}

func TestSettleConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	w := newTestWallet(t, store, 1_000)

	tx := pendingTx(w, TypeFund, 500)
	if err := store.BeginPending(ctx, tx); err != nil {
		t.Fatalf("begin: %v", err)
	}

	const racers = 8
	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = store.Settle(ctx, tx.Reference, StatusSuccess, 500)
		}(i)
	}
	wg.Wait()

	var applied int
	for _, err := range errs {
		switch {
		case err == nil:
			applied++
		case errors.Is(err, ErrAlreadySettled):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if applied != 1 {
		t.Fatalf("expected exactly one applied settlement, got %d", applied)
	}

	final, _ := store.Wallet(ctx, w.ID)
	if final.Balance != 1_500 {
		t.Fatalf("balance applied more than once: %d", final.Balance)
	}
}

func TestSettleGuardsNegativeBalance(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	w := newTestWallet(t, store, 100)

	tx := pendingTx(w, TypeWithdraw, 500)
	if err := store.BeginPending(ctx, tx); err != nil {
		t.Fatalf("begin: %v", err)
	}

	_, err := store.Settle(ctx, tx.Reference, StatusSuccess, -500)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	// Rejected settlement must leave the transaction pending and the lock held.
	current, err := store.Transaction(ctx, tx.Reference)
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if current.Status != StatusPending {
		t.Fatalf("expected pending, got %s", current.Status)
	}
	locked, _ := store.Wallet(ctx, w.ID)
	if !locked.IsLocked {
		t.Fatal("lock should still be held")
	}
}

func TestReleaseLockIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	w := newTestWallet(t, store, 0)

	if err := store.BeginPending(ctx, pendingTx(w, TypeFund, 100)); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := store.ReleaseLock(ctx, w.ID); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := store.ReleaseLock(ctx, w.ID); err != nil {
		t.Fatalf("second release: %v", err)
	}
	unlocked, _ := store.Wallet(ctx, w.ID)
	if unlocked.IsLocked {
		t.Fatal("wallet should be unlocked")
	}
}

func TestStuckLocks(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	w := newTestWallet(t, store, 1_000)

	tx := pendingTx(w, TypeWithdraw, 100)
	tx.CreatedAt = time.Now().UTC().Add(-time.Hour)
	if err := store.BeginPending(ctx, tx); err != nil {
		t.Fatalf("begin: %v", err)
	}

	stuck, err := store.StuckLocks(ctx, time.Now().UTC().Add(-30*time.Minute))
	if err != nil {
		t.Fatalf("stuck locks: %v", err)
	}
	if len(stuck) != 1 || stuck[0].Reference != tx.Reference {
		t.Fatalf("expected one stuck transaction, got %v", stuck)
	}

	// Settling clears it from the report.
	if _, err := store.Settle(ctx, tx.Reference, StatusFailed, 0); err != nil {
		t.Fatalf("settle: %v", err)
	}
	stuck, err = store.StuckLocks(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("stuck locks: %v", err)
	}
	if len(stuck) != 0 {
		t.Fatalf("expected no stuck transactions, got %v", stuck)
	}
}
