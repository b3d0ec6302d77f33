package kafka

import (
	"context"
	"strconv"
	"time"

	"travel-booking/internal/config"
	"travel-booking/internal/kafka"
	"travel-booking/internal/models"
)

const (
	EventBookingCreated   = "booking.created"
	EventBookingUpdated   = "booking.updated"
	EventBookingCancelled = "booking.cancelled"
)

// Publisher streams booking lifecycle events, keyed by booking id.
type Publisher struct {
	Producer kafka.Publisher
	Topics   config.TopicConfig
	Now      func() time.Time
}

func NewPublisher(producer kafka.Publisher, topics config.TopicConfig) *Publisher {
	return &Publisher{Producer: producer, Topics: topics, Now: time.Now}
}

func (p *Publisher) PublishBookingCreated(ctx context.Context, b *models.Booking) error {
	return p.publish(ctx, p.Topics.BookingCreated, EventBookingCreated, b)
}

func (p *Publisher) PublishBookingUpdated(ctx context.Context, b *models.Booking) error {
	return p.publish(ctx, p.Topics.BookingUpdated, EventBookingUpdated, b)
}

func (p *Publisher) PublishBookingCancelled(ctx context.Context, b *models.Booking) error {
	return p.publish(ctx, p.Topics.BookingCancelled, EventBookingCancelled, b)
}

func (p *Publisher) publish(ctx context.Context, topic, eventType string, b *models.Booking) error {
	event := models.BookingEvent{
		Type:      eventType,
		BookingID: b.ID,
		TourID:    b.TourID,
		UserID:    b.UserID,
		Guests:    b.Guests,
		Timestamp: p.Now().UTC(),
	}
	return p.Producer.Publish(ctx, topic, strconv.FormatInt(b.ID, 10), event)
}
