package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"travel-booking/internal/models"
	"travel-booking/internal/tours"
)

type DB struct {
	Bun *bun.DB
}

const bookedExpr = "COALESCE(SUM(b.guests), 0)"

// ListTours joins each tour with the guests booked on it, ordered by title.
func (d *DB) ListTours(ctx context.Context, onlyAvailable bool) ([]models.TourWithAvailability, error) {
	rows := []models.TourWithAvailability{}
	q := d.Bun.NewSelect().
		Model(&rows).
		ColumnExpr("t.*").
		ColumnExpr(bookedExpr + " AS booked_guests").
		ColumnExpr("t.capacity - " + bookedExpr + " AS remaining_spots").
		Join("LEFT JOIN bookings AS b ON b.tour_id = t.id").
		GroupExpr("t.id").
		OrderExpr("t.title ASC")
	if onlyAvailable {
		q = q.Having("t.capacity - " + bookedExpr + " > 0")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

func (d *DB) GetTour(ctx context.Context, id int64) (*models.Tour, error) {
	var t models.Tour
	err := d.Bun.NewSelect().
		Model(&t).
		Where("t.id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, tours.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (d *DB) CreateTour(ctx context.Context, t *models.Tour) error {
	_, err := d.Bun.NewInsert().Model(t).Exec(ctx)
	return err
}

// UpdateTour checks existence separately; MySQL reports zero affected rows
// when the values did not change.
func (d *DB) UpdateTour(ctx context.Context, t *models.Tour) error {
	exists, err := d.Bun.NewSelect().Model((*models.Tour)(nil)).Where("t.id = ?", t.ID).Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return tours.ErrNotFound
	}
	_, err = d.Bun.NewUpdate().
		Model(t).
		Column("title", "description", "location", "price", "date", "image", "capacity").
		WherePK().
		Exec(ctx)
	return err
}

// DeleteTour refuses while any booking references the tour. The tour row is
// locked first so an admission cannot land between the check and the delete.
func (d *DB) DeleteTour(ctx context.Context, id int64) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		q := tx.NewSelect().Model((*models.Tour)(nil)).Column("id").Where("t.id = ?", id)
		if tx.Dialect().Name() != dialect.SQLite {
			q = q.For("UPDATE")
		}
		var found int64
		if err := q.Scan(ctx, &found); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return tours.ErrNotFound
			}
			return fmt.Errorf("lock tour %d: %w", id, err)
		}

		n, err := tx.NewSelect().Model((*models.Booking)(nil)).Where("b.tour_id = ?", id).Count(ctx)
		if err != nil {
			return fmt.Errorf("count bookings of tour %d: %w", id, err)
		}
		if n > 0 {
			return tours.ErrTourHasBookings
		}

		_, err = tx.NewDelete().Model((*models.Tour)(nil)).Where("id = ?", id).Exec(ctx)
		return err
	})
}
