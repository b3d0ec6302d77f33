package analytics

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"travel-booking/internal/models"
)

// DB handles analytics database operations
type DB struct {
	bun *bun.DB
}

// NewDB creates a new analytics DB handler
func NewDB(db *bun.DB) *DB {
	return &DB{bun: db}
}

type tourTotalsRow struct {
	TourID       int64           `bun:"tour_id"`
	Title        string          `bun:"title"`
	Capacity     int             `bun:"capacity"`
	Price        decimal.Decimal `bun:"price"`
	Bookings     int             `bun:"bookings"`
	BookedGuests int             `bun:"booked_guests"`
}

// TourTotals aggregates bookings and guests for each of the given tours.
// Unknown ids are simply absent from the result.
func (db *DB) TourTotals(ctx context.Context, tourIDs []int64) ([]tourTotalsRow, error) {
	var rows []tourTotalsRow
	err := db.bun.NewSelect().
		TableExpr("tours AS t").
		ColumnExpr("t.id AS tour_id").
		ColumnExpr("t.title").
		ColumnExpr("t.capacity").
		ColumnExpr("t.price").
		ColumnExpr("COUNT(b.id) AS bookings").
		ColumnExpr("COALESCE(SUM(b.guests), 0) AS booked_guests").
		Join("LEFT JOIN bookings AS b ON b.tour_id = t.id").
		Where("t.id IN (?)", bun.In(tourIDs)).
		GroupExpr("t.id, t.title, t.capacity, t.price").
		OrderExpr("t.id ASC").
		Scan(ctx, &rows)
	return rows, err
}

// BookingsForTours loads the columns needed for daily breakdowns.
func (db *DB) BookingsForTours(ctx context.Context, tourIDs []int64) ([]models.Booking, error) {
	var bookings []models.Booking
	err := db.bun.NewSelect().
		Model(&bookings).
		Column("id", "tour_id", "guests", "created_at").
		Where("b.tour_id IN (?)", bun.In(tourIDs)).
		OrderExpr("b.created_at ASC").
		Scan(ctx)
	return bookings, err
}
