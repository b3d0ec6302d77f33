package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"travel-booking/internal/capacity"
	"travel-booking/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) Snapshot(ctx context.Context, tourID int64) (models.CapacitySnapshot, error) {
	return Snapshot(ctx, d.Bun, tourID, 0, false)
}

// Snapshot computes a tour's capacity from the ledger through idb, which may be
// a transaction. excludeBookingID leaves one booking out of the sum (zero keeps
// all). With lock set the tour row is held FOR UPDATE until the transaction
// ends, serializing admissions per tour. SQLite has no row locks; there
// database.Open limits the pool to one connection.
func Snapshot(ctx context.Context, idb bun.IDB, tourID, excludeBookingID int64, lock bool) (models.CapacitySnapshot, error) {
	var total int
	q := idb.NewSelect().
		Model((*models.Tour)(nil)).
		Column("capacity").
		Where("t.id = ?", tourID)
	if lock && idb.Dialect().Name() != dialect.SQLite {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx, &total); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.CapacitySnapshot{}, capacity.ErrTourNotFound
		}
		return models.CapacitySnapshot{}, fmt.Errorf("read capacity of tour %d: %w", tourID, err)
	}

	// After the locking read, so a MySQL REPEATABLE READ snapshot starts here.
	var booked int
	sum := idb.NewSelect().
		Model((*models.Booking)(nil)).
		ColumnExpr("COALESCE(SUM(b.guests), 0)").
		Where("b.tour_id = ?", tourID)
	if excludeBookingID > 0 {
		sum = sum.Where("b.id <> ?", excludeBookingID)
	}
	if err := sum.Scan(ctx, &booked); err != nil {
		return models.CapacitySnapshot{}, fmt.Errorf("sum guests of tour %d: %w", tourID, err)
	}

	return capacity.NewSnapshot(tourID, total, booked), nil
}
