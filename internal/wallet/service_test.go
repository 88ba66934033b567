package wallet

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/padi-pay/padi_pay/internal/gateway"
	"github.com/padi-pay/padi_pay/internal/ledger"
	"github.com/padi-pay/padi_pay/internal/logging"
	"github.com/padi-pay/padi_pay/internal/notify"
	"github.com/padi-pay/padi_pay/internal/vendors"
)

type fakeBus struct {
	mu        sync.Mutex
	envelopes []notify.Envelope
}

func (b *fakeBus) Publish(_ context.Context, e notify.Envelope) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.envelopes = append(b.envelopes, e)
	return nil
}

type rejectingGateway struct {
	gateway.Static
}

func (rejectingGateway) InitiatePayment(context.Context, gateway.PaymentRequest) (gateway.PaymentLink, error) {
	return gateway.PaymentLink{}, &vendors.Error{Vendor: vendors.Gateway, Op: "initiate payment", Message: "card declined"}
}

func (rejectingGateway) InitiateTransfer(context.Context, gateway.TransferRequest) (gateway.TransferReceipt, error) {
	return gateway.TransferReceipt{}, &vendors.Error{Vendor: vendors.Gateway, Op: "initiate transfer", Message: "transfer rejected"}
}

type hangingGateway struct {
	gateway.Static
}

func (hangingGateway) InitiatePayment(ctx context.Context, _ gateway.PaymentRequest) (gateway.PaymentLink, error) {
	<-ctx.Done()
	return gateway.PaymentLink{}, ctx.Err()
}

func newService(t *testing.T, gw gateway.Client) (*Service, ledger.Store, *fakeBus) {
	t.Helper()
	store := ledger.NewInMemory()
	bus := &fakeBus{}
	svc := NewService(store, gw, bus, "NGN", 50*time.Millisecond, 30*time.Minute, logging.Discard())
	return svc, store, bus
}

func mustCreate(t *testing.T, svc *Service, userID string) ledger.Wallet {
	t.Helper()
	w, err := svc.Create(context.Background(), userID)
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	return w
}

func TestCreateWalletOnePerUser(t *testing.T) {
	svc, _, _ := newService(t, gateway.Static{})
	mustCreate(t, svc, "user-1")

	if _, err := svc.Create(context.Background(), "user-1"); !errors.Is(err, ledger.ErrWalletExists) {
		t.Fatalf("expected ErrWalletExists, got %v", err)
	}
}

func TestFundOpensPendingAndLocksWallet(t *testing.T) {
	svc, store, _ := newService(t, gateway.Static{})
	w := mustCreate(t, svc, "user-1")

	result, err := svc.Fund(context.Background(), FundInput{WalletID: w.ID, Amount: 5_000, Email: "u@example.test"})
	if err != nil {
		t.Fatalf("fund: %v", err)
	}
	if result.PaymentLink == "" {
		t.Fatal("expected a payment link")
	}
	if result.Status != ledger.StatusPending {
		t.Fatalf("expected pending status, got %s", result.Status)
	}

	tx, err := store.Transaction(context.Background(), result.Reference)
	if err != nil {
		t.Fatalf("load transaction: %v", err)
	}
	if tx.Type != ledger.TypeFund || tx.Status != ledger.StatusPending || tx.Amount != 5_000 {
		t.Fatalf("unexpected transaction: %+v", tx)
	}

	got, _ := store.Wallet(context.Background(), w.ID)
	if !got.IsLocked {
		t.Fatal("wallet should be locked while the top-up is pending")
	}
	if got.Balance != 0 {
		t.Fatalf("balance must not change before settlement, got %d", got.Balance)
	}
}

func TestFundRejectedByVendorSettlesFailed(t *testing.T) {
	svc, store, bus := newService(t, rejectingGateway{})
	w := mustCreate(t, svc, "user-1")

	result, err := svc.Fund(context.Background(), FundInput{WalletID: w.ID, Amount: 5_000})
	if err == nil {
		t.Fatal("expected vendor error")
	}
	var verr *vendors.Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected vendor error type, got %v", err)
	}

	tx, _ := store.Transaction(context.Background(), result.Reference)
	if tx.Status != ledger.StatusFailed {
		t.Fatalf("expected failed transaction, got %s", tx.Status)
	}
	got, _ := store.Wallet(context.Background(), w.ID)
	if got.IsLocked {
		t.Fatal("wallet must be unlocked after a vendor rejection")
	}
	if len(bus.envelopes) != 1 || bus.envelopes[0].Room != result.Reference {
		t.Fatalf("expected one notification for %s", result.Reference)
	}
}

func TestFundVendorTimeoutLeavesPendingLocked(t *testing.T) {
	svc, store, _ := newService(t, hangingGateway{})
	w := mustCreate(t, svc, "user-1")

	result, err := svc.Fund(context.Background(), FundInput{WalletID: w.ID, Amount: 5_000})
	if !errors.Is(err, ErrAwaitingVendor) {
		t.Fatalf("expected ErrAwaitingVendor, got %v", err)
	}

	tx, _ := store.Transaction(context.Background(), result.Reference)
	if tx.Status != ledger.StatusPending {
		t.Fatalf("timeout is not a verdict; expected pending, got %s", tx.Status)
	}
	got, _ := store.Wallet(context.Background(), w.ID)
	if !got.IsLocked {
		t.Fatal("lock must be held until the vendor's verdict arrives")
	}
}

func TestFundWhileLockedRejected(t *testing.T) {
	svc, _, _ := newService(t, gateway.Static{})
	w := mustCreate(t, svc, "user-1")

	if _, err := svc.Fund(context.Background(), FundInput{WalletID: w.ID, Amount: 1_000}); err != nil {
		t.Fatalf("first fund: %v", err)
	}
	if _, err := svc.Fund(context.Background(), FundInput{WalletID: w.ID, Amount: 1_000}); !errors.Is(err, ledger.ErrWalletLocked) {
		t.Fatalf("expected ErrWalletLocked, got %v", err)
	}
}

func TestFundInactiveWalletRejected(t *testing.T) {
	svc, _, _ := newService(t, gateway.Static{})
	w := mustCreate(t, svc, "user-1")

	if _, err := svc.SetActive(context.Background(), w.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := svc.Fund(context.Background(), FundInput{WalletID: w.ID, Amount: 1_000}); !errors.Is(err, ledger.ErrWalletInactive) {
		t.Fatalf("expected ErrWalletInactive, got %v", err)
	}
}

func TestWithdrawChecksBalanceUpfront(t *testing.T) {
	svc, store, _ := newService(t, gateway.Static{})
	w := mustCreate(t, svc, "user-1")
	ledger.SeedBalance(store, w.ID, 500)

	_, err := svc.Withdraw(context.Background(), WithdrawInput{
		WalletID: w.ID, Amount: 1_000, BankCode: "044", AccountNumber: "0123456789",
	})
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	got, _ := store.Wallet(context.Background(), w.ID)
	if got.IsLocked {
		t.Fatal("rejected withdrawal must not leave the wallet locked")
	}
}

func TestWithdrawDoesNotDebitBeforeSettlement(t *testing.T) {
	svc, store, _ := newService(t, gateway.Static{})
	w := mustCreate(t, svc, "user-1")
	ledger.SeedBalance(store, w.ID, 10_000)

	result, err := svc.Withdraw(context.Background(), WithdrawInput{
		WalletID: w.ID, Amount: 2_000, BankCode: "044", AccountNumber: "0123456789",
	})
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if result.AccountName == "" {
		t.Fatal("expected resolved account name")
	}

	tx, _ := store.Transaction(context.Background(), result.Reference)
	if tx.Status != ledger.StatusPending || tx.Type != ledger.TypeWithdraw {
		t.Fatalf("unexpected transaction: %+v", tx)
	}
	if tx.VendorRequestID == "" {
		t.Fatal("expected vendor transfer id recorded on the transaction")
	}

	got, _ := store.Wallet(context.Background(), w.ID)
	if got.Balance != 10_000 {
		t.Fatalf("balance must be untouched until settlement, got %d", got.Balance)
	}
	if !got.IsLocked {
		t.Fatal("wallet should be locked while the payout is pending")
	}
}

func TestWithdrawRejectedByVendorSettlesFailed(t *testing.T) {
	svc, store, _ := newService(t, rejectingGateway{})
	w := mustCreate(t, svc, "user-1")
	ledger.SeedBalance(store, w.ID, 10_000)

	result, err := svc.Withdraw(context.Background(), WithdrawInput{
		WalletID: w.ID, Amount: 2_000, BankCode: "044", AccountNumber: "0123456789",
	})
	if err == nil {
		t.Fatal("expected vendor error")
	}

	tx, _ := store.Transaction(context.Background(), result.Reference)
	if tx.Status != ledger.StatusFailed {
		t.Fatalf("expected failed transaction, got %s", tx.Status)
	}
	got, _ := store.Wallet(context.Background(), w.ID)
	if got.Balance != 10_000 || got.IsLocked {
		t.Fatalf("rejection must not move money or hold the lock: %+v", got)
	}
}

func TestUnlockReleasesStuckWallet(t *testing.T) {
	svc, store, _ := newService(t, hangingGateway{})
	w := mustCreate(t, svc, "user-1")

	if _, err := svc.Fund(context.Background(), FundInput{WalletID: w.ID, Amount: 1_000}); !errors.Is(err, ErrAwaitingVendor) {
		t.Fatalf("expected ErrAwaitingVendor, got %v", err)
	}

	if err := svc.Unlock(context.Background(), w.ID); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	got, _ := store.Wallet(context.Background(), w.ID)
	if got.IsLocked {
		t.Fatal("wallet should be unlocked")
	}
}
