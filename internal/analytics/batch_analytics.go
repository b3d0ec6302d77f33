package analytics

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"travel-booking/internal/models"
)

// BatchTourAnalytics represents aggregated booking data for several tours
type BatchTourAnalytics struct {
	TourIDs       []int64               `json:"tour_ids"`
	TotalCapacity int                   `json:"total_capacity"`
	Bookings      int                   `json:"bookings"`
	BookedGuests  int                   `json:"booked_guests"`
	OccupancyRate float64               `json:"occupancy_rate"`
	Revenue       decimal.Decimal       `json:"revenue"`
	DailyBookings []DailyBookingMetrics `json:"daily_bookings"`
	Tours         []TourAnalytics       `json:"tours"`
}

// GetBatchTourAnalytics returns per-tour and combined analytics for tourIDs.
// Unknown ids are left out of Tours.
func (s *Service) GetBatchTourAnalytics(ctx context.Context, tourIDs []int64) (*BatchTourAnalytics, error) {
	result := &BatchTourAnalytics{
		TourIDs:       []int64{},
		Revenue:       decimal.Zero,
		DailyBookings: []DailyBookingMetrics{},
		Tours:         []TourAnalytics{},
	}
	if len(tourIDs) == 0 {
		return result, nil
	}

	rows, err := s.db.TourTotals(ctx, tourIDs)
	if err != nil {
		return nil, err
	}
	bookings, err := s.db.BookingsForTours(ctx, tourIDs)
	if err != nil {
		return nil, err
	}

	byTour := map[int64][]models.Booking{}
	for _, b := range bookings {
		byTour[b.TourID] = append(byTour[b.TourID], b)
	}

	for _, row := range rows {
		tour := newTourAnalytics(row, byTour[row.TourID])
		result.TourIDs = append(result.TourIDs, row.TourID)
		result.TotalCapacity += tour.Capacity
		result.Bookings += tour.Bookings
		result.BookedGuests += tour.BookedGuests
		result.Revenue = result.Revenue.Add(tour.Revenue)
		result.Tours = append(result.Tours, tour)
	}
	result.OccupancyRate = occupancy(result.BookedGuests, result.TotalCapacity)

	sort.Slice(bookings, func(i, j int) bool { return bookings[i].CreatedAt.Before(bookings[j].CreatedAt) })
	result.DailyBookings = dailyMetrics(bookings)
	return result, nil
}
