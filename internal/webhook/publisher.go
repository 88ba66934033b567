package webhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// RetryHeader carries the redelivery count across republishes.
const RetryHeader = "x-retry-count"

// Publisher writes events to the durable queue. The webhook HTTP boundary
// acknowledges the vendor only after the event is accepted by the broker.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher wraps a kafka writer for the wallet events topic.
func NewPublisher(writer *kafka.Writer) *Publisher {
	return &Publisher{writer: writer}
}

// Publish enqueues the event. Messages are keyed by reference so
// redeliveries of the same transaction land on the same partition.
func (p *Publisher) Publish(ctx context.Context, event Event) error {
	return p.publish(ctx, event, 0)
}

// Republish enqueues the event again with an incremented retry count.
func (p *Publisher) Republish(ctx context.Context, event Event, attempt int) error {
	return p.publish(ctx, event, attempt)
}

func (p *Publisher) publish(ctx context.Context, event Event, attempt int) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(event.Reference),
		Value: value,
	}
	if attempt > 0 {
		msg.Headers = append(msg.Headers, kafka.Header{
			Key:   RetryHeader,
			Value: []byte(fmt.Sprintf("%d", attempt)),
		})
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish event %s: %w", event.EventID, err)
	}
	return nil
}
