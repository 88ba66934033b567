package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Listener subscribes to the updates channel and forwards each envelope
// to the local room registry. Every process instance runs one listener
// so a settlement applied by any worker reaches observers connected to
// any API instance.
type Listener struct {
	cache   *redis.Client
	channel string
	rooms   *Rooms
	logger  *slog.Logger
}

// NewListener builds a pub/sub listener feeding the given registry.
func NewListener(cache *redis.Client, channel string, rooms *Rooms, logger *slog.Logger) *Listener {
	return &Listener{cache: cache, channel: channel, rooms: rooms, logger: logger}
}

// Run blocks consuming the channel until the context is cancelled.
// Malformed messages are logged and skipped; the subscription survives.
func (l *Listener) Run(ctx context.Context) error {
	pubsub := l.cache.Subscribe(ctx, l.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var envelope Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
				l.logger.Warn("malformed envelope on updates channel", "error", err)
				continue
			}
			payload, err := json.Marshal(envelope.Payload)
			if err != nil {
				continue
			}
			delivered := l.rooms.Broadcast(envelope.Room, payload)
			l.logger.Debug("envelope delivered", "room", envelope.Room, "observers", delivered)
		}
	}
}
