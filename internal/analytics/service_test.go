package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"travel-booking/internal/database/dbtest"
	"travel-booking/internal/models"
)

func insertTour(t *testing.T, db *bun.DB, title, price string, capacity int) int64 {
	t.Helper()
	tour := &models.Tour{
		Title: title, Description: "d", Location: "l", Price: decimal.RequireFromString(price),
		Date: time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC), Image: "i.jpg", Capacity: capacity, CreatedAt: time.Now(),
	}
	_, err := db.NewInsert().Model(tour).Exec(context.Background())
	require.NoError(t, err)
	return tour.ID
}

func insertBooking(t *testing.T, db *bun.DB, tourID int64, guests int, createdAt time.Time) {
	t.Helper()
	_, err := db.NewInsert().Model(&models.Booking{
		TourID: tourID, Name: "N", Email: "n@example.com", Phone: "5551234", Address: "A", Location: "L",
		Guests: guests, Arrivals: createdAt, Leaving: createdAt.Add(72 * time.Hour), CreatedAt: createdAt,
	}).Exec(context.Background())
	require.NoError(t, err)
}

func TestGetTourAnalytics(t *testing.T) {
	ctx := context.Background()
	db := dbtest.NewSQLite(t)
	svc := NewService(db)

	tourID := insertTour(t, db, "Douro Valley Wine", "150.00", 8)
	day1 := time.Date(2030, 5, 1, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2030, 5, 3, 18, 30, 0, 0, time.UTC)
	insertBooking(t, db, tourID, 2, day1)
	insertBooking(t, db, tourID, 1, day1.Add(2*time.Hour))
	insertBooking(t, db, tourID, 3, day2)

	result, err := svc.GetTourAnalytics(ctx, tourID)
	require.NoError(t, err)
	assert.Equal(t, "Douro Valley Wine", result.Title)
	assert.Equal(t, 3, result.Bookings)
	assert.Equal(t, 6, result.BookedGuests)
	assert.Equal(t, 2, result.Remaining)
	assert.Equal(t, 75.0, result.OccupancyRate)
	assert.True(t, result.Revenue.Equal(decimal.RequireFromString("900")), result.Revenue.String())
	assert.Equal(t, []DailyBookingMetrics{
		{Date: "2030-05-01", Bookings: 2, Guests: 3},
		{Date: "2030-05-03", Bookings: 1, Guests: 3},
	}, result.DailyBookings)

	_, err = svc.GetTourAnalytics(ctx, 9999)
	assert.ErrorIs(t, err, ErrTourNotFound)
}

func TestGetTourAnalyticsWithoutBookings(t *testing.T) {
	db := dbtest.NewSQLite(t)
	tourID := insertTour(t, db, "Quiet Tour", "99.00", 5)

	result, err := NewService(db).GetTourAnalytics(context.Background(), tourID)
	require.NoError(t, err)
	assert.Zero(t, result.Bookings)
	assert.Equal(t, 5, result.Remaining)
	assert.True(t, result.Revenue.IsZero())
	assert.Empty(t, result.DailyBookings)
}

func TestGetBatchTourAnalytics(t *testing.T) {
	ctx := context.Background()
	db := dbtest.NewSQLite(t)
	svc := NewService(db)

	a := insertTour(t, db, "A", "100.00", 10)
	b := insertTour(t, db, "B", "50.00", 10)
	when := time.Date(2030, 6, 10, 12, 0, 0, 0, time.UTC)
	insertBooking(t, db, a, 4, when)
	insertBooking(t, db, b, 1, when.Add(time.Hour))

	result, err := svc.GetBatchTourAnalytics(ctx, []int64{a, b, 9999})
	require.NoError(t, err)
	assert.Equal(t, []int64{a, b}, result.TourIDs)
	assert.Equal(t, 20, result.TotalCapacity)
	assert.Equal(t, 5, result.BookedGuests)
	assert.Equal(t, 25.0, result.OccupancyRate)
	assert.True(t, result.Revenue.Equal(decimal.RequireFromString("450")), result.Revenue.String())
	assert.Equal(t, []DailyBookingMetrics{{Date: "2030-06-10", Bookings: 2, Guests: 5}}, result.DailyBookings)
	require.Len(t, result.Tours, 2)

	empty, err := svc.GetBatchTourAnalytics(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty.Tours)
}

func TestOccupancy(t *testing.T) {
	assert.Equal(t, 33.33, occupancy(1, 3))
	assert.Equal(t, 0.0, occupancy(4, 0))
	assert.Equal(t, 150.0, occupancy(6, 4))
}
