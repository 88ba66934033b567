package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/padi-pay/padi_pay/internal/webhook"
)

// MessageWriter is the producing side of a topic. *kafka.Writer
// satisfies it.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// DeadLetterQueue writes exhausted events to a parking topic together
// with the final error, keeping the original payload intact for manual
// replay.
type DeadLetterQueue struct {
	writer MessageWriter
}

// NewDeadLetterQueue constructs a dead-letter sink over the writer.
func NewDeadLetterQueue(writer MessageWriter) *DeadLetterQueue {
	return &DeadLetterQueue{writer: writer}
}

// Bury publishes the event to the dead-letter topic.
func (q *DeadLetterQueue) Bury(ctx context.Context, event webhook.Event, attempt int, cause error) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode dead letter: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(event.Reference),
		Value: value,
		Headers: []kafka.Header{
			{Key: webhook.RetryHeader, Value: []byte(strconv.Itoa(attempt))},
			{Key: "x-last-error", Value: []byte(cause.Error())},
		},
	}
	if err := q.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write dead letter: %w", err)
	}
	return nil
}
