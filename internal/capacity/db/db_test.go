package db

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"travel-booking/internal/capacity"
	"travel-booking/internal/database/dbtest"
	"travel-booking/internal/models"
)

func insertTour(t *testing.T, db *bun.DB, capacity int) *models.Tour {
	t.Helper()
	tour := &models.Tour{
		Title:       "River Cruise",
		Description: "Three days on the river",
		Location:    "Passau",
		Price:       decimal.RequireFromString("499.00"),
		Date:        time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC),
		Image:       "cruise.jpg",
		Capacity:    capacity,
		CreatedAt:   time.Now(),
	}
	_, err := db.NewInsert().Model(tour).Exec(context.Background())
	require.NoError(t, err)
	return tour
}

func insertBooking(t *testing.T, db *bun.DB, tourID int64, guests int) *models.Booking {
	t.Helper()
	b := &models.Booking{
		TourID:    tourID,
		Name:      "Ada Lovelace",
		Email:     "ada@example.com",
		Phone:     "5551234567",
		Address:   "1 Analytical Way",
		Location:  "Passau",
		Guests:    guests,
		Arrivals:  time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC),
		Leaving:   time.Date(2030, 5, 4, 0, 0, 0, 0, time.UTC),
		CreatedAt: time.Now(),
	}
	_, err := db.NewInsert().Model(b).Exec(context.Background())
	require.NoError(t, err)
	return b
}

func TestSnapshot(t *testing.T) {
	ctx := context.Background()
	db := dbtest.NewSQLite(t)
	store := &DB{Bun: db}

	tour := insertTour(t, db, 10)
	other := insertTour(t, db, 5)

	s, err := store.Snapshot(ctx, tour.ID)
	require.NoError(t, err)
	assert.Equal(t, capacity.NewSnapshot(tour.ID, 10, 0), s)

	first := insertBooking(t, db, tour.ID, 3)
	insertBooking(t, db, tour.ID, 5)
	insertBooking(t, db, other.ID, 4)

	s, err = store.Snapshot(ctx, tour.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, s.Booked)
	assert.Equal(t, 2, s.Remaining)
	assert.True(t, s.Available)

	s, err = Snapshot(ctx, db, tour.ID, first.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 5, s.Booked)
	assert.Equal(t, 5, s.Remaining)
}

func TestSnapshotUnknownTour(t *testing.T) {
	_, err := (&DB{Bun: dbtest.NewSQLite(t)}).Snapshot(context.Background(), 9999)
	assert.ErrorIs(t, err, capacity.ErrTourNotFound)
}

func TestSnapshotInsideTransaction(t *testing.T) {
	ctx := context.Background()
	db := dbtest.NewSQLite(t)
	tour := insertTour(t, db, 4)
	insertBooking(t, db, tour.ID, 4)

	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		s, err := Snapshot(ctx, tx, tour.ID, 0, true)
		require.NoError(t, err)
		assert.False(t, s.Available)
		assert.Equal(t, 0, s.Remaining)
		return nil
	})
	require.NoError(t, err)
}
