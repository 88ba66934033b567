package infra

import (
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// NewKafkaWriter builds a producer for the given topic. Writes wait for
// leader acknowledgment so an accepted webhook is never silently lost.
func NewKafkaWriter(brokers []string, topic string, logger *slog.Logger) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
		Compression:  kafka.Snappy,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Error("kafka writer", "msg", msg, "args", args)
		}),
	}
}

// NewKafkaReader builds a consumer-group reader for the given topic.
// Offsets are committed explicitly by the worker after processing.
func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // synchronous commits
	})
}
