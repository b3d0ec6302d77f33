package kafka

import (
	"context"
	"fmt"
	"sync"

	"travel-booking/internal/logger"
	"travel-booking/internal/models"
)

type ledgerEntry struct {
	tourID int64
	guests int
}

// Ledger rebuilds guests per tour from booking events. Updates carry the
// new guest count, so the ledger keeps the last known row per booking.
type Ledger struct {
	mu       sync.Mutex
	bookings map[int64]ledgerEntry
	logger   *logger.Logger
}

func NewLedger(log *logger.Logger) *Ledger {
	return &Ledger{bookings: make(map[int64]ledgerEntry), logger: log}
}

// Handle applies one event. It matches kafka.Handler[models.BookingEvent].
func (l *Ledger) Handle(_ context.Context, topic string, event models.BookingEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch event.Type {
	case EventBookingCreated, EventBookingUpdated:
		l.bookings[event.BookingID] = ledgerEntry{tourID: event.TourID, guests: event.Guests}
	case EventBookingCancelled:
		delete(l.bookings, event.BookingID)
	default:
		return fmt.Errorf("unknown booking event type %q on %s", event.Type, topic)
	}

	l.logger.LogBooking(event.Type, event.BookingID, fmt.Sprintf("tour %d now has %d guest(s) booked", event.TourID, l.guestsLocked(event.TourID)))
	return nil
}

// Guests returns the guests currently booked on tourID.
func (l *Ledger) Guests(tourID int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.guestsLocked(tourID)
}

func (l *Ledger) guestsLocked(tourID int64) int {
	total := 0
	for _, e := range l.bookings {
		if e.tourID == tourID {
			total += e.guests
		}
	}
	return total
}
