package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Booking struct {
	bun.BaseModel `bun:"table:bookings,alias:b"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	TourID    int64     `bun:"tour_id,notnull" json:"tour_id"`
	UserID    *int64    `bun:"user_id" json:"user_id,omitempty"`
	Name      string    `bun:"name,notnull" json:"name"`
	Email     string    `bun:"email,notnull" json:"email"`
	Phone     string    `bun:"phone,notnull" json:"phone"`
	Address   string    `bun:"address,notnull" json:"address"`
	Location  string    `bun:"location,notnull" json:"location"`
	Guests    int       `bun:"guests,notnull" json:"guests"`
	Arrivals  time.Time `bun:"arrivals,notnull" json:"arrivals"`
	Leaving   time.Time `bun:"leaving,notnull" json:"leaving"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// OwnedBy reports whether the booking was submitted by the given user.
func (b *Booking) OwnedBy(userID *int64) bool {
	return b.UserID != nil && userID != nil && *b.UserID == *userID
}

// BookingRequest is the booking submission as received from the form.
// Dates stay strings until validation so that format errors can be reported per field.
type BookingRequest struct {
	Name     string `json:"name" validate:"required,max=50,personname"`
	Email    string `json:"email" validate:"required,max=100,email"`
	Phone    string `json:"phone" validate:"required,phone"`
	Address  string `json:"address" validate:"required,max=100"`
	TourID   int64  `json:"tour_id" validate:"gt=0"`
	Location string `json:"location" validate:"required,max=50"`
	Guests   int    `json:"guests" validate:"min=1,max=50"`
	Arrivals string `json:"arrivals" validate:"required,datetime=2006-01-02"`
	Leaving  string `json:"leaving" validate:"required,datetime=2006-01-02"`
}

type BookingFilter struct {
	Location string
	DateFrom *time.Time
	DateTo   *time.Time
	SortBy   string
	Order    string
}

type BookingEvent struct {
	Type      string    `json:"type"`
	BookingID int64     `json:"booking_id"`
	TourID    int64     `json:"tour_id"`
	UserID    *int64    `json:"user_id,omitempty"`
	Guests    int       `json:"guests"`
	Timestamp time.Time `json:"timestamp"`
}
