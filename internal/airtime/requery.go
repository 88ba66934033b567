package airtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/padi-pay/padi_pay/internal/vendors"
	"github.com/padi-pay/padi_pay/internal/webhook"
)

// Requery polls the biller for purchases it reported as still processing.
// Verdicts are not applied here: each result is pushed through the event
// queue so the completion worker remains the only settlement path for
// asynchronous outcomes. When attempts run out the purchase is declared
// failed the same way, keeping the wallet from staying locked forever.
type Requery struct {
	ctx         context.Context
	client      Client
	queue       webhook.EventQueue
	interval    time.Duration
	maxAttempts int
	logger      *slog.Logger
	wg          sync.WaitGroup
}

// NewRequery constructs a requery poller. Polls started by Schedule live
// until ctx is cancelled, independent of the request that spawned them.
func NewRequery(ctx context.Context, client Client, queue webhook.EventQueue, interval time.Duration, maxAttempts int, logger *slog.Logger) *Requery {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Requery{
		ctx:         ctx,
		client:      client,
		queue:       queue,
		interval:    interval,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Schedule starts polling the purchase in the background.
func (r *Requery) Schedule(reference, requestID string, amount int64) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.poll(r.ctx, reference, requestID, amount)
	}()
}

// Wait blocks until all in-flight polls have finished. Called on shutdown
// after the context passed to Schedule has been cancelled.
func (r *Requery) Wait() {
	r.wg.Wait()
}

func (r *Requery) poll(ctx context.Context, reference, requestID string, amount int64) {
	timer := time.NewTimer(r.interval)
	defer timer.Stop()

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			r.logger.Warn("requery interrupted", "reference", reference, "attempt", attempt)
			return
		case <-timer.C:
		}

		result, err := r.client.Requery(ctx, requestID)
		if err != nil {
			r.logger.Warn("requery attempt failed", "reference", reference, "attempt", attempt, "error", err)
		} else if result.Status.Terminal() {
			r.publish(ctx, reference, requestID, result.Status, amount, result.Message,
				fmt.Sprintf("requery-%s-%d", requestID, attempt))
			return
		}

		timer.Reset(r.interval)
	}

	r.logger.Error("requery attempts exhausted, declaring purchase failed", "reference", reference, "request_id", requestID)
	r.publish(ctx, reference, requestID, vendors.StatusFailed, amount, "airtime delivery unconfirmed",
		fmt.Sprintf("requery-%s-exhausted", requestID))
}

func (r *Requery) publish(ctx context.Context, reference, requestID string, status vendors.Status, amount int64, message, eventID string) {
	event := webhook.FromOutcome(vendors.Outcome{
		Vendor:          vendors.Airtime,
		Reference:       reference,
		VendorRequestID: requestID,
		Status:          status,
		Amount:          amount,
		Message:         message,
	}, eventID, nil)
	if err := r.queue.Publish(ctx, event); err != nil {
		r.logger.Error("requery verdict enqueue failed", "reference", reference, "error", err)
	}
}
