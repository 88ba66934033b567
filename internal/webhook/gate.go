package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	eventKeyPrefix   = "webhook:event:"
	outcomeKeyPrefix = "webhook:outcome:"
)

// ErrDuplicateEvent indicates the idempotency gate has already admitted
// this event, or another event resolving the same (reference, status)
// pair. Duplicates are acknowledged silently and never reprocessed.
var ErrDuplicateEvent = errors.New("duplicate webhook event")

// Gate deduplicates externally-delivered completion events before they
// reach the state machine. Vendor delivery is at-least-once; the gate is
// the defense-in-depth layer in front of the conditional status update.
type Gate struct {
	cache *redis.Client
	ttl   time.Duration
}

// NewGate builds a Redis-backed idempotency gate.
func NewGate(cache *redis.Client, ttl time.Duration) *Gate {
	return &Gate{cache: cache, ttl: ttl}
}

// Admit atomically checks-and-records the event. SetNX gives the
// check-and-set without a TOCTOU window: of N concurrent deliveries of
// the same event, exactly one caller sees nil. Two keys are reserved:
// the vendor event id, and the (reference, status) composite that
// catches distinct vendor event ids resolving the same transition.
func (g *Gate) Admit(ctx context.Context, event Event) error {
	ok, err := g.cache.SetNX(ctx, g.eventKey(event), "1", g.ttl).Result()
	if err != nil {
		return fmt.Errorf("reserve event key: %w", err)
	}
	if !ok {
		return ErrDuplicateEvent
	}

	ok, err = g.cache.SetNX(ctx, g.outcomeKey(event), event.EventID, g.ttl).Result()
	if err != nil {
		// Roll back the first reservation so redelivery can retry.
		g.cache.Del(ctx, g.eventKey(event))
		return fmt.Errorf("reserve outcome key: %w", err)
	}
	if !ok {
		return ErrDuplicateEvent
	}
	return nil
}

// Forget reverses an admission after a processing failure so that
// redelivery of the event is not rejected as a duplicate.
func (g *Gate) Forget(ctx context.Context, event Event) error {
	return g.cache.Del(ctx, g.eventKey(event), g.outcomeKey(event)).Err()
}

func (g *Gate) eventKey(event Event) string {
	return eventKeyPrefix + event.Vendor + ":" + event.EventID
}

func (g *Gate) outcomeKey(event Event) string {
	return outcomeKeyPrefix + event.Reference + ":" + string(event.Status)
}
