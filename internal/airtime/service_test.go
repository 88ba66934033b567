package airtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/padi-pay/padi_pay/internal/ledger"
	"github.com/padi-pay/padi_pay/internal/logging"
	"github.com/padi-pay/padi_pay/internal/notify"
	"github.com/padi-pay/padi_pay/internal/vendors"
	"github.com/padi-pay/padi_pay/internal/webhook"
)

type fakeQueue struct {
	mu     sync.Mutex
	events []webhook.Event
}

func (q *fakeQueue) Publish(_ context.Context, event webhook.Event) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, event)
	return nil
}

func (q *fakeQueue) all() []webhook.Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]webhook.Event(nil), q.events...)
}

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

type hangingBiller struct {
	Static
}

func (hangingBiller) Purchase(ctx context.Context, _ PurchaseRequest) (PurchaseResult, error) {
	<-ctx.Done()
	return PurchaseResult{}, ctx.Err()
}

type fixture struct {
	service *Service
	store   ledger.Store
	queue   *fakeQueue
	bus     *fakeBus
	wallet  ledger.Wallet
}

func newFixture(t *testing.T, client Client, balance int64) *fixture {
	t.Helper()
	store := ledger.NewInMemory()
	queue := &fakeQueue{}
	bus := &fakeBus{}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	requery := NewRequery(ctx, client, queue, 5*time.Millisecond, 3, logging.Discard())

	svc := NewService(store, client, requery, bus, 50*time.Millisecond, logging.Discard())

	w := ledger.Wallet{ID: "w-1", UserID: "u-1", Currency: "NGN", IsActive: true, CreatedAt: time.Now().UTC()}
	if err := store.CreateWallet(context.Background(), w); err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	ledger.SeedBalance(store, w.ID, balance)

	return &fixture{service: svc, store: store, queue: queue, bus: bus, wallet: w}
}

func (f *fixture) waitForEvents(t *testing.T, n int) []webhook.Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if events := f.queue.all(); len(events) >= n {
			return events
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d queued events", n)
	return nil
}

func TestPurchaseDeliveredSettlesInline(t *testing.T) {
	f := newFixture(t, Static{}, 10_000)

	outcome, err := f.service.Purchase(context.Background(), PurchaseInput{
		WalletID: f.wallet.ID, ServiceID: "mtn", Phone: "08030000000", Amount: 2_000,
	})
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if outcome.Status != ledger.StatusSuccess {
		t.Fatalf("expected success, got %s", outcome.Status)
	}
	if outcome.Balance != 8_000 {
		t.Fatalf("expected balance 8000, got %d", outcome.Balance)
	}

	w, _ := f.store.Wallet(context.Background(), f.wallet.ID)
	if w.Balance != 8_000 || w.IsLocked {
		t.Fatalf("unexpected wallet state: %+v", w)
	}
	tx, _ := f.store.Transaction(context.Background(), outcome.Reference)
	if tx.Status != ledger.StatusSuccess {
		t.Fatalf("expected settled transaction, got %s", tx.Status)
	}
	if len(f.bus.envelopes) != 1 || f.bus.envelopes[0].Room != outcome.Reference {
		t.Fatalf("expected one notification for %s", outcome.Reference)
	}
}

func TestPurchaseRejectedDoesNotDebit(t *testing.T) {
	f := newFixture(t, Static{Verdict: vendors.StatusFailed}, 10_000)

	outcome, err := f.service.Purchase(context.Background(), PurchaseInput{
		WalletID: f.wallet.ID, ServiceID: "mtn", Phone: "08030000000", Amount: 2_000,
	})
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if outcome.Status != ledger.StatusFailed {
		t.Fatalf("expected failed, got %s", outcome.Status)
	}

	w, _ := f.store.Wallet(context.Background(), f.wallet.ID)
	if w.Balance != 10_000 || w.IsLocked {
		t.Fatalf("failed purchase must not move money or hold the lock: %+v", w)
	}
}

func TestPurchaseInsufficientBalance(t *testing.T) {
	f := newFixture(t, Static{}, 1_000)

	_, err := f.service.Purchase(context.Background(), PurchaseInput{
		WalletID: f.wallet.ID, ServiceID: "mtn", Phone: "08030000000", Amount: 2_000,
	})
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	w, _ := f.store.Wallet(context.Background(), f.wallet.ID)
	if w.IsLocked {
		t.Fatal("rejected purchase must not leave the wallet locked")
	}
}

func TestPurchaseProcessingGoesThroughRequery(t *testing.T) {
	f := newFixture(t, Static{Verdict: vendors.StatusPending}, 10_000)

	outcome, err := f.service.Purchase(context.Background(), PurchaseInput{
		WalletID: f.wallet.ID, ServiceID: "mtn", Phone: "08030000000", Amount: 2_000,
	})
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if outcome.Status != ledger.StatusPending {
		t.Fatalf("expected pending, got %s", outcome.Status)
	}

	// The transaction stays open while the requery poller works.
	w, _ := f.store.Wallet(context.Background(), f.wallet.ID)
	if !w.IsLocked {
		t.Fatal("wallet should stay locked while delivery is unconfirmed")
	}

	events := f.waitForEvents(t, 1)
	if events[0].Vendor != vendors.Airtime || events[0].Reference != outcome.Reference {
		t.Fatalf("unexpected event: %+v", events[0])
	}
	if events[0].Status != vendors.StatusSuccess {
		t.Fatalf("requery verdict should be success, got %s", events[0].Status)
	}
}

func TestPurchaseTimeoutSchedulesRequery(t *testing.T) {
	f := newFixture(t, hangingBiller{}, 10_000)

	outcome, err := f.service.Purchase(context.Background(), PurchaseInput{
		WalletID: f.wallet.ID, ServiceID: "mtn", Phone: "08030000000", Amount: 2_000,
	})
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if outcome.Status != ledger.StatusPending {
		t.Fatalf("timeout is not a verdict; expected pending, got %s", outcome.Status)
	}

	events := f.waitForEvents(t, 1)
	if events[0].Reference != outcome.Reference {
		t.Fatalf("unexpected event reference %s", events[0].Reference)
	}
}

func TestRequeryExhaustionDeclaresFailure(t *testing.T) {
	f := newFixture(t, Static{Verdict: vendors.StatusPending, RequeryVerdict: vendors.StatusPending}, 10_000)

	outcome, err := f.service.Purchase(context.Background(), PurchaseInput{
		WalletID: f.wallet.ID, ServiceID: "mtn", Phone: "08030000000", Amount: 2_000,
	})
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}

	events := f.waitForEvents(t, 1)
	if events[0].Status != vendors.StatusFailed {
		t.Fatalf("exhausted requery must declare failure, got %s", events[0].Status)
	}
	if events[0].Reference != outcome.Reference {
		t.Fatalf("unexpected event reference %s", events[0].Reference)
	}
}
