package webhook

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/padi-pay/padi_pay/internal/vendors"
)

func setupGate(t *testing.T) (*Gate, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cleanup := func() {
		cache.Close()
		mr.Close()
	}
	return NewGate(cache, time.Hour), cleanup
}

func testEvent(eventID, reference string, status vendors.Status) Event {
	return Event{
		EventID:   eventID,
		Vendor:    vendors.Gateway,
		Reference: reference,
		Status:    status,
		Amount:    500,
	}
}

func TestGateAdmitsOnce(t *testing.T) {
	gate, cleanup := setupGate(t)
	defer cleanup()
	ctx := context.Background()

	event := testEvent("charge-1", "ref-1", vendors.StatusSuccess)
	if err := gate.Admit(ctx, event); err != nil {
		t.Fatalf("first admit: %v", err)
	}
	if err := gate.Admit(ctx, event); !errors.Is(err, ErrDuplicateEvent) {
		t.Fatalf("expected ErrDuplicateEvent, got %v", err)
	}
}

func TestGateRejectsSameOutcomeDifferentEventID(t *testing.T) {
	gate, cleanup := setupGate(t)
	defer cleanup()
	ctx := context.Background()

	if err := gate.Admit(ctx, testEvent("charge-1", "ref-1", vendors.StatusSuccess)); err != nil {
		t.Fatalf("first admit: %v", err)
	}
	// A distinct vendor event id that maps to the same reference+status
	// pair is still a duplicate.
	err := gate.Admit(ctx, testEvent("charge-2", "ref-1", vendors.StatusSuccess))
	if !errors.Is(err, ErrDuplicateEvent) {
		t.Fatalf("expected ErrDuplicateEvent, got %v", err)
	}
}

func TestGateAllowsDistinctOutcomes(t *testing.T) {
	gate, cleanup := setupGate(t)
	defer cleanup()
	ctx := context.Background()

	if err := gate.Admit(ctx, testEvent("charge-1", "ref-1", vendors.StatusSuccess)); err != nil {
		t.Fatalf("admit success outcome: %v", err)
	}
	if err := gate.Admit(ctx, testEvent("charge-9", "ref-2", vendors.StatusSuccess)); err != nil {
		t.Fatalf("admit other reference: %v", err)
	}
}

func TestGateConcurrentDeliveryAdmitsExactlyOne(t *testing.T) {
	gate, cleanup := setupGate(t)
	defer cleanup()
	ctx := context.Background()

	event := testEvent("charge-7", "ref-7", vendors.StatusSuccess)

	const deliveries = 10
	var wg sync.WaitGroup
	errs := make([]error, deliveries)
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = gate.Admit(ctx, event)
		}(i)
	}
	wg.Wait()

	var admitted int
	for _, err := range errs {
		switch {
		case err == nil:
			admitted++
		case errors.Is(err, ErrDuplicateEvent):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if admitted != 1 {
		t.Fatalf("expected exactly one admission, got %d", admitted)
	}
}

func TestGateForgetAllowsRetry(t *testing.T) {
	gate, cleanup := setupGate(t)
	defer cleanup()
	ctx := context.Background()

	event := testEvent("charge-3", "ref-3", vendors.StatusFailed)
	if err := gate.Admit(ctx, event); err != nil {
		t.Fatalf("admit: %v", err)
	}
	if err := gate.Forget(ctx, event); err != nil {
		t.Fatalf("forget: %v", err)
	}
	if err := gate.Admit(ctx, event); err != nil {
		t.Fatalf("re-admit after forget: %v", err)
	}
}
