package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"

	"travel-booking/internal/booking"
	"travel-booking/internal/capacity"
	capacitydb "travel-booking/internal/capacity/db"
	"travel-booking/internal/models"
)

type DB struct {
	Bun *bun.DB
}

var sortColumns = map[string]string{
	"created_at": "b.created_at",
	"arrivals":   "b.arrivals",
	"leaving":    "b.leaving",
	"location":   "b.location",
	"guests":     "b.guests",
}

// ---------------- ADMISSION ----------------

// AdmitBooking locks the tour, re-checks capacity and inserts b only when it fits.
// On success b.ID is set. A rejection is returned as a result with no error.
func (d *DB) AdmitBooking(ctx context.Context, b *models.Booking) (models.AdmissionResult, error) {
	var result models.AdmissionResult
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		snapshot, err := capacitydb.Snapshot(ctx, tx, b.TourID, 0, true)
		if errors.Is(err, capacity.ErrTourNotFound) {
			result = capacity.NotFoundResult()
			return nil
		}
		if err != nil {
			return err
		}

		result = capacity.Evaluate(snapshot, b.Guests)
		if !result.Admissible {
			return nil
		}

		if _, err := tx.NewInsert().Model(b).Exec(ctx); err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.AdmissionResult{}, err
	}
	return result, nil
}

// UpdateBookingWithinCapacity rewrites b's details when its tour can hold the
// new guest count alongside every other booking on that tour.
func (d *DB) UpdateBookingWithinCapacity(ctx context.Context, b *models.Booking) (models.AdmissionResult, error) {
	var result models.AdmissionResult
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().Model((*models.Booking)(nil)).Where("b.id = ?", b.ID).Exists(ctx)
		if err != nil {
			return fmt.Errorf("look up booking %d: %w", b.ID, err)
		}
		if !exists {
			return booking.ErrNotFound
		}

		snapshot, err := capacitydb.Snapshot(ctx, tx, b.TourID, b.ID, true)
		if errors.Is(err, capacity.ErrTourNotFound) {
			result = capacity.NotFoundResult()
			return nil
		}
		if err != nil {
			return err
		}

		result = capacity.Evaluate(snapshot, b.Guests)
		if !result.Admissible {
			return nil
		}

		_, err = tx.NewUpdate().
			Model(b).
			Column("tour_id", "name", "email", "phone", "address", "location", "guests", "arrivals", "leaving").
			WherePK().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("update booking %d: %w", b.ID, err)
		}
		return nil
	})
	if err != nil {
		return models.AdmissionResult{}, err
	}
	return result, nil
}

// ---------------- LEDGER ----------------

func (d *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	var b models.Booking
	err := d.Bun.NewSelect().
		Model(&b).
		Where("b.id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (d *DB) DeleteBooking(ctx context.Context, id int64) error {
	res, err := d.Bun.NewDelete().
		Model((*models.Booking)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return booking.ErrNotFound
	}
	return nil
}

// ListBookings returns bookings matching filter. A nil userID lists every user's bookings.
func (d *DB) ListBookings(ctx context.Context, userID *int64, filter models.BookingFilter) ([]models.Booking, error) {
	bookings := []models.Booking{}
	q := d.Bun.NewSelect().Model(&bookings)

	if userID != nil {
		q = q.Where("b.user_id = ?", *userID)
	}
	if loc := strings.TrimSpace(filter.Location); loc != "" {
		q = q.Where("LOWER(b.location) LIKE ?", "%"+strings.ToLower(loc)+"%")
	}
	if filter.DateFrom != nil {
		q = q.Where("b.arrivals >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		q = q.Where("b.leaving <= ?", *filter.DateTo)
	}

	column, ok := sortColumns[filter.SortBy]
	if !ok {
		column = sortColumns["created_at"]
	}
	direction := "DESC"
	if strings.EqualFold(filter.Order, "asc") {
		direction = "ASC"
	}
	q = q.OrderExpr(column + " " + direction).OrderExpr("b.id " + direction)

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return bookings, nil
}
