package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Bus publishes notification envelopes to a shared pub/sub channel so
// every process instance can fan out to its own local connections.
// Delivery is best-effort: no persistence, no acknowledgment.
type Bus struct {
	cache   *redis.Client
	channel string
}

// NewBus builds a Redis pub/sub publisher for the given channel.
func NewBus(cache *redis.Client, channel string) *Bus {
	return &Bus{cache: cache, channel: channel}
}

// Publish sends the envelope to the channel. A disconnected observer
// simply misses it; the ledger remains the source of truth.
func (b *Bus) Publish(ctx context.Context, envelope Envelope) error {
	message, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	if err := b.cache.Publish(ctx, b.channel, message).Err(); err != nil {
		return fmt.Errorf("publish envelope: %w", err)
	}
	return nil
}
