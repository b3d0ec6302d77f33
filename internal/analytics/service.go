// Package analytics aggregates the booking ledger for the admin dashboard.
package analytics

import (
	"context"
	"errors"
	"math"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"travel-booking/internal/capacity"
	"travel-booking/internal/models"
)

var ErrTourNotFound = errors.New("tour not found")

// Service handles analytics operations
type Service struct {
	db *DB
}

// NewService creates a new analytics service
func NewService(db *bun.DB) *Service {
	return &Service{db: NewDB(db)}
}

// TourAnalytics represents aggregated booking data for one tour
type TourAnalytics struct {
	TourID        int64                 `json:"tour_id"`
	Title         string                `json:"title"`
	Capacity      int                   `json:"capacity"`
	Bookings      int                   `json:"bookings"`
	BookedGuests  int                   `json:"booked_guests"`
	Remaining     int                   `json:"remaining"`
	OccupancyRate float64               `json:"occupancy_rate"`
	Revenue       decimal.Decimal       `json:"revenue"`
	DailyBookings []DailyBookingMetrics `json:"daily_bookings"`
}

// DailyBookingMetrics contains bookings made on a single day
type DailyBookingMetrics struct {
	Date     string `json:"date"`
	Bookings int    `json:"bookings"`
	Guests   int    `json:"guests"`
}

// GetTourAnalytics returns booking analytics for a single tour
func (s *Service) GetTourAnalytics(ctx context.Context, tourID int64) (*TourAnalytics, error) {
	batch, err := s.GetBatchTourAnalytics(ctx, []int64{tourID})
	if err != nil {
		return nil, err
	}
	if len(batch.Tours) == 0 {
		return nil, ErrTourNotFound
	}
	return &batch.Tours[0], nil
}

// occupancy is booked guests as a percentage of capacity, two decimals.
func occupancy(booked, capacity int) float64 {
	if capacity <= 0 {
		return 0
	}
	return math.Round(float64(booked)*10000/float64(capacity)) / 100
}

func dailyMetrics(bookings []models.Booking) []DailyBookingMetrics {
	daily := []DailyBookingMetrics{}
	index := map[string]int{}
	for _, b := range bookings {
		day := b.CreatedAt.UTC().Format("2006-01-02")
		i, ok := index[day]
		if !ok {
			i = len(daily)
			index[day] = i
			daily = append(daily, DailyBookingMetrics{Date: day})
		}
		daily[i].Bookings++
		daily[i].Guests += b.Guests
	}
	return daily
}

func newTourAnalytics(row tourTotalsRow, bookings []models.Booking) TourAnalytics {
	snapshot := capacity.NewSnapshot(row.TourID, row.Capacity, row.BookedGuests)
	return TourAnalytics{
		TourID:        row.TourID,
		Title:         row.Title,
		Capacity:      row.Capacity,
		Bookings:      row.Bookings,
		BookedGuests:  row.BookedGuests,
		Remaining:     snapshot.Remaining,
		OccupancyRate: occupancy(row.BookedGuests, row.Capacity),
		Revenue:       row.Price.Mul(decimal.NewFromInt(int64(row.BookedGuests))),
		DailyBookings: dailyMetrics(bookings),
	}
}
