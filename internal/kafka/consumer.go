package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"

	"travel-booking/internal/logger"
)

// Consumer reads JSON events from a set of topics as one consumer group.
type Consumer struct {
	reader *kafka.Reader
	logger *logger.Logger
}

func NewConsumer(brokers []string, topics []string, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupTopics: topics,
		GroupID:     groupID,
		MinBytes:    10e3, // 10KB
		MaxBytes:    10e6, // 10MB
	})
	return &Consumer{reader: reader, logger: log}
}

// Handler receives one decoded message. Returning an error only logs it.
type Handler[T any] func(ctx context.Context, topic string, event T) error

// Consume blocks until ctx is cancelled, decoding each message into T.
// Messages that fail to decode are logged and skipped.
func Consume[T any](ctx context.Context, c *Consumer, handle Handler[T]) error {
	c.logger.Info("KAFKA", "🔄 Kafka consumer started...")
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			c.logger.Error("KAFKA", fmt.Sprintf("❌ Error reading message: %v", err))
			continue
		}
		if err := Dispatch(ctx, msg, handle); err != nil {
			c.logger.Warn("KAFKA", fmt.Sprintf("⚠️ %v", err))
		}
	}
}

// Dispatch decodes one message and hands it to handle.
func Dispatch[T any](ctx context.Context, msg kafka.Message, handle Handler[T]) error {
	var event T
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal message from %s: %w", msg.Topic, err)
	}
	if err := handle(ctx, msg.Topic, event); err != nil {
		return fmt.Errorf("handler failed for message from %s: %w", msg.Topic, err)
	}
	return nil
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
