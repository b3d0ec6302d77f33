package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	bookingkafka "travel-booking/internal/booking/kafka"
	"travel-booking/internal/config"
	"travel-booking/internal/kafka"
	"travel-booking/internal/logger"
	"travel-booking/internal/models"
)

func main() {
	logger := logger.NewLogger()
	defer logger.Close()

	if err := godotenv.Load(); err != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	}
	cfg := config.Load()

	topics := []string{cfg.Kafka.Topics.BookingCreated, cfg.Kafka.Topics.BookingUpdated, cfg.Kafka.Topics.BookingCancelled}
	groupID := cfg.Kafka.GroupID

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, topics, groupID, logger)
	defer consumer.Close()
	ledger := bookingkafka.NewLedger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("KAFKA", fmt.Sprintf("Consuming %v as group %s", topics, groupID))
	if err := kafka.Consume[models.BookingEvent](ctx, consumer, ledger.Handle); err != nil {
		logger.Error("KAFKA", err.Error())
	}
	logger.Info("APP", "✅ Booking events consumer stopped")
}
