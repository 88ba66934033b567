package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/padi-pay/padi_pay/internal/webhook"
)

// Fetcher is the consuming side of the event stream. *kafka.Reader
// satisfies it.
type Fetcher interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Gate admits an event exactly once per event id and outcome.
type Gate interface {
	Admit(ctx context.Context, event webhook.Event) error
	Forget(ctx context.Context, event webhook.Event) error
}

// Requeuer puts an event back on the stream for another attempt.
// *webhook.Publisher satisfies it.
type Requeuer interface {
	Republish(ctx context.Context, event webhook.Event, attempt int) error
}

// DeadLetterer receives events that exhausted their attempts.
type DeadLetterer interface {
	Bury(ctx context.Context, event webhook.Event, attempt int, cause error) error
}

// Worker consumes webhook events and resolves them against the ledger.
// Processing is at-least-once: offsets are committed only after the
// event is either resolved, suppressed as a duplicate, requeued, or
// dead-lettered, and the idempotency gate absorbs redeliveries.
type Worker struct {
	reader      Fetcher
	gate        Gate
	resolver    *Resolver
	requeue     Requeuer
	deadLetter  DeadLetterer
	maxAttempts int
	logger      *slog.Logger
}

// New constructs a worker.
func New(reader Fetcher, gate Gate, resolver *Resolver, requeue Requeuer, deadLetter DeadLetterer, maxAttempts int, logger *slog.Logger) *Worker {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Worker{
		reader:      reader,
		gate:        gate,
		resolver:    resolver,
		requeue:     requeue,
		deadLetter:  deadLetter,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Run consumes until the context is cancelled or the reader is closed.
func (w *Worker) Run(ctx context.Context) error {
	for {
		msg, err := w.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			return err
		}

		w.process(ctx, msg)

		if err := w.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Error("commit failed", "offset", msg.Offset, "error", err)
		}
	}
}

func (w *Worker) process(ctx context.Context, msg kafka.Message) {
	var event webhook.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		w.logger.Error("undecodable event", "offset", msg.Offset, "error", err)
		if err := w.deadLetter.Bury(ctx, webhook.Event{RawPayload: msg.Value}, 0, err); err != nil {
			w.logger.Error("dead-letter failed", "offset", msg.Offset, "error", err)
		}
		return
	}

	attempt := retryAttempt(msg)

	if err := w.gate.Admit(ctx, event); err != nil {
		if errors.Is(err, webhook.ErrDuplicateEvent) {
			w.logger.Info("duplicate event dropped", "event_id", event.EventID, "reference", event.Reference)
			return
		}
		w.retry(ctx, event, attempt, err)
		return
	}

	if err := w.resolver.Resolve(ctx, event.Outcome()); err != nil {
		// Release the gate so the retry is not swallowed as a duplicate.
		if ferr := w.gate.Forget(ctx, event); ferr != nil {
			w.logger.Error("gate release failed", "event_id", event.EventID, "error", ferr)
		}
		w.retry(ctx, event, attempt, err)
		return
	}

	w.logger.Info("event resolved", "event_id", event.EventID, "reference", event.Reference, "status", string(event.Status))
}

func (w *Worker) retry(ctx context.Context, event webhook.Event, attempt int, cause error) {
	next := attempt + 1
	if next >= w.maxAttempts {
		w.logger.Error("event exhausted attempts", "event_id", event.EventID, "reference", event.Reference, "attempts", next, "error", cause)
		if err := w.deadLetter.Bury(ctx, event, next, cause); err != nil {
			w.logger.Error("dead-letter failed", "event_id", event.EventID, "error", err)
		}
		return
	}
	w.logger.Warn("event requeued", "event_id", event.EventID, "reference", event.Reference, "attempt", next, "error", cause)
	if err := w.requeue.Republish(ctx, event, next); err != nil {
		w.logger.Error("requeue failed", "event_id", event.EventID, "error", err)
	}
}

func retryAttempt(msg kafka.Message) int {
	for _, h := range msg.Headers {
		if h.Key == webhook.RetryHeader {
			if n, err := strconv.Atoi(string(h.Value)); err == nil {
				return n
			}
		}
	}
	return 0
}
