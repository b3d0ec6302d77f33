package kafka

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travel-booking/internal/kafka"
	"travel-booking/internal/logger"
	"travel-booking/internal/models"
)

func message(t *testing.T, event models.BookingEvent) kafkago.Message {
	t.Helper()
	value, err := json.Marshal(event)
	require.NoError(t, err)
	return kafkago.Message{Topic: "travel.booking." + event.Type, Value: value}
}

func TestLedgerTracksGuestsPerTour(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger(logger.NewLoggerWithWriter(&bytes.Buffer{}))

	events := []models.BookingEvent{
		{Type: EventBookingCreated, BookingID: 1, TourID: 7, Guests: 3},
		{Type: EventBookingCreated, BookingID: 2, TourID: 7, Guests: 2},
		{Type: EventBookingCreated, BookingID: 3, TourID: 8, Guests: 5},
		{Type: EventBookingUpdated, BookingID: 1, TourID: 7, Guests: 1},
		{Type: EventBookingUpdated, BookingID: 2, TourID: 8, Guests: 2},
		{Type: EventBookingCancelled, BookingID: 3, TourID: 8, Guests: 5},
	}
	for _, e := range events {
		require.NoError(t, kafka.Dispatch[models.BookingEvent](ctx, message(t, e), ledger.Handle))
	}

	assert.Equal(t, 1, ledger.Guests(7))
	assert.Equal(t, 2, ledger.Guests(8))
	assert.Equal(t, 0, ledger.Guests(9))
}

func TestLedgerRejectsUnknownType(t *testing.T) {
	ledger := NewLedger(logger.NewLoggerWithWriter(&bytes.Buffer{}))
	err := ledger.Handle(context.Background(), "travel.booking.created", models.BookingEvent{Type: "booking.archived", BookingID: 1})
	assert.ErrorContains(t, err, "booking.archived")
}
