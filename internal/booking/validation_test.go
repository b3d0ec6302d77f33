package booking

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travel-booking/internal/models"
)

var fixedNow = time.Date(2030, 6, 15, 10, 30, 0, 0, time.UTC)

func validRequest() models.BookingRequest {
	return models.BookingRequest{
		Name:     "Jean-Luc O'Hara",
		Email:    "jl@example.com",
		Phone:    "(555) 010-2030",
		Address:  "7 Rue de la Paix",
		TourID:   3,
		Location: "Paris",
		Guests:   2,
		Arrivals: "2030-06-15",
		Leaving:  "2030-06-18",
	}
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected *ValidationError, got %v", err)
	return verr.Fields
}

func TestValidateAcceptsAndNormalizes(t *testing.T) {
	req := validRequest()
	req.Name = "  Jean-Luc O'Hara "
	req.Location = " Paris "

	b, err := NewValidator(func() time.Time { return fixedNow }).Validate(req)
	require.NoError(t, err)
	assert.Equal(t, "Jean-Luc O'Hara", b.Name)
	assert.Equal(t, "Paris", b.Location)
	assert.Equal(t, "5550102030", b.Phone)
	assert.Equal(t, time.Date(2030, 6, 15, 0, 0, 0, 0, time.UTC), b.Arrivals, "arriving today is allowed")
	assert.Equal(t, time.Date(2030, 6, 18, 0, 0, 0, 0, time.UTC), b.Leaving)
	assert.Nil(t, b.UserID)
}

func TestValidateFieldRules(t *testing.T) {
	v := NewValidator(func() time.Time { return fixedNow })

	tests := []struct {
		name    string
		mutate  func(r *models.BookingRequest)
		field   string
		message string
	}{
		{"guests zero", func(r *models.BookingRequest) { r.Guests = 0 }, "guests", "Number of guests must be between 1 and 50"},
		{"guests fifty one", func(r *models.BookingRequest) { r.Guests = 51 }, "guests", "Number of guests must be between 1 and 50"},
		{"name missing", func(r *models.BookingRequest) { r.Name = "   " }, "name", "Name is required"},
		{"name too long", func(r *models.BookingRequest) { r.Name = strings.Repeat("a", 51) }, "name", "Name must be 50 characters or less"},
		{"name with digits", func(r *models.BookingRequest) { r.Name = "Agent 007" }, "name", "Name can only contain letters, spaces, hyphens, and apostrophes"},
		{"bad email", func(r *models.BookingRequest) { r.Email = "not-an-email" }, "email", "Please enter a valid email address"},
		{"short phone", func(r *models.BookingRequest) { r.Phone = "123-45" }, "phone", "Phone number must be 7-15 digits"},
		{"phone with letters", func(r *models.BookingRequest) { r.Phone = "555-CALL-NOW" }, "phone", "Phone number must be 7-15 digits"},
		{"address too long", func(r *models.BookingRequest) { r.Address = strings.Repeat("x", 101) }, "address", "Address must be 100 characters or less"},
		{"no tour", func(r *models.BookingRequest) { r.TourID = 0 }, "tour_id", "Please select a tour"},
		{"location missing", func(r *models.BookingRequest) { r.Location = "" }, "location", "Destination location is required"},
		{"location too long", func(r *models.BookingRequest) { r.Location = strings.Repeat("l", 51) }, "location", "Location must be 50 characters or less"},
		{"arrival in the past", func(r *models.BookingRequest) { r.Arrivals = "2030-06-14" }, "arrivals", "Arrival date cannot be in the past"},
		{"arrival malformed", func(r *models.BookingRequest) { r.Arrivals = "15/06/2030" }, "arrivals", "Please enter a valid date"},
		{"leaving equals arrival", func(r *models.BookingRequest) { r.Leaving = r.Arrivals }, "leaving", "Leaving date must be after arrival date"},
		{"leaving before arrival", func(r *models.BookingRequest) {
			r.Arrivals, r.Leaving = "2030-07-10", "2030-07-01"
		}, "leaving", "Leaving date must be after arrival date"},
		{"leaving in the past", func(r *models.BookingRequest) { r.Leaving = "2029-12-31" }, "leaving", "Leaving date cannot be in the past"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			_, err := v.Validate(req)
			fields := fieldsOf(t, err)
			assert.Equal(t, tt.message, fields[tt.field])
			assert.Len(t, fields, 1)
		})
	}
}

func TestValidateReportsAllFieldsTogether(t *testing.T) {
	_, err := NewValidator(func() time.Time { return fixedNow }).Validate(models.BookingRequest{})
	fields := fieldsOf(t, err)

	for _, f := range []string{"name", "email", "phone", "address", "tour_id", "location", "guests", "arrivals", "leaving"} {
		assert.Contains(t, fields, f)
	}
	assert.Equal(t, "Arrival date is required", fields["arrivals"])
	assert.Contains(t, err.Error(), "invalid booking: address: Address is required")
}
