package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"travel-booking/internal/logger"
)

// Publisher sends one JSON-encoded message to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
	Close() error
}

// Producer writes to any topic through a single writer; the topic is set per message.
type Producer struct {
	Writer *kafka.Writer
	Logger *logger.Logger
}

func NewProducer(brokers []string, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Producer{Writer: writer, Logger: log}
}

func (p *Producer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	msgBytes, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", topic, err)
	}

	p.Logger.LogKafka("PUBLISH", topic, string(msgBytes))

	return p.Writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: msgBytes,
	})
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}

// LogProducer stands in for Kafka in mock mode and only logs what would be sent.
type LogProducer struct {
	Logger *logger.Logger
}

func (p *LogProducer) Publish(_ context.Context, topic, key string, value interface{}) error {
	msgBytes, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", topic, err)
	}
	p.Logger.LogKafka("MOCK_PUBLISH", topic, fmt.Sprintf("key=%s value=%s", key, msgBytes))
	return nil
}

func (p *LogProducer) Close() error { return nil }
