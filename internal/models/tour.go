package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type Tour struct {
	bun.BaseModel `bun:"table:tours,alias:t"`

	ID          int64           `bun:"id,pk,autoincrement" json:"id"`
	Title       string          `bun:"title,notnull" json:"title"`
	Description string          `bun:"description,notnull" json:"description"`
	Location    string          `bun:"location,notnull" json:"location"`
	Price       decimal.Decimal `bun:"price,type:decimal(10,2),notnull" json:"price"`
	Date        time.Time       `bun:"date,notnull" json:"date"`
	Image       string          `bun:"image,notnull" json:"image"`
	Capacity    int             `bun:"capacity,notnull" json:"capacity"`
	CreatedAt   time.Time       `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// TourWithAvailability is a catalog row joined with the guests already booked on it.
type TourWithAvailability struct {
	Tour           `bun:",extend"`
	BookedGuests   int `bun:"booked_guests" json:"booked_guests"`
	RemainingSpots int `bun:"remaining_spots" json:"remaining_spots"`
}

type TourRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	Location    string `json:"location" validate:"required"`
	Price       string `json:"price" validate:"required"`
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	Image       string `json:"image" validate:"required"`
	Capacity    int    `json:"capacity" validate:"gt=0"`
}

type TourEvent struct {
	Type     string `json:"type"`
	TourID   int64  `json:"tour_id"`
	Capacity int    `json:"capacity"`
}
