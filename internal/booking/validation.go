package booking

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"travel-booking/internal/models"
	"travel-booking/internal/utils"
)

const dateLayout = "2006-01-02"

var fieldMessages = map[string]string{
	"name.required":     "Name is required",
	"name.max":          "Name must be 50 characters or less",
	"name.personname":   "Name can only contain letters, spaces, hyphens, and apostrophes",
	"email.required":    "Email is required",
	"email.max":         "Email must be 100 characters or less",
	"email.email":       "Please enter a valid email address",
	"phone.required":    "Phone number is required",
	"phone":             "Phone number must be 7-15 digits",
	"address.required":  "Address is required",
	"address":           "Address must be 100 characters or less",
	"tour_id":           "Please select a tour",
	"location.required": "Destination location is required",
	"location":          "Location must be 50 characters or less",
	"guests":            "Number of guests must be between 1 and 50",
	"arrivals.required": "Arrival date is required",
	"arrivals":          "Please enter a valid date",
	"leaving.required":  "Leaving date is required",
	"leaving":           "Please enter a valid date",
}

// Validator checks a booking form and turns it into a ledger row.
type Validator struct {
	validate *validator.Validate
	now      func() time.Time
}

// NewValidator uses now to decide which dates are in the past. nil means time.Now.
func NewValidator(now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{validate: utils.NewValidator(), now: now}
}

// Validate trims the form, checks every field and returns the booking to store.
// All failures are reported together in a *ValidationError.
func (v *Validator) Validate(req models.BookingRequest) (*models.Booking, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Address = strings.TrimSpace(req.Address)
	req.Location = strings.TrimSpace(req.Location)
	req.Arrivals = strings.TrimSpace(req.Arrivals)
	req.Leaving = strings.TrimSpace(req.Leaving)

	fields := map[string]string{}
	if err := v.validate.Struct(req); err != nil {
		fe, err := utils.FieldErrors(err, fieldMessages)
		if err != nil {
			return nil, err
		}
		fields = fe
	}

	today := truncateDay(v.now())
	arrivals, arrivalsOK := parseDay(req.Arrivals, fields["arrivals"])
	leaving, leavingOK := parseDay(req.Leaving, fields["leaving"])

	if arrivalsOK && arrivals.Before(today) {
		fields["arrivals"] = "Arrival date cannot be in the past"
		arrivalsOK = false
	}
	if leavingOK && leaving.Before(today) {
		fields["leaving"] = "Leaving date cannot be in the past"
		leavingOK = false
	}
	if arrivalsOK && leavingOK && !leaving.After(arrivals) {
		fields["leaving"] = "Leaving date must be after arrival date"
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	return &models.Booking{
		TourID:   req.TourID,
		Name:     req.Name,
		Email:    req.Email,
		Phone:    utils.NormalizePhone(req.Phone),
		Address:  req.Address,
		Location: req.Location,
		Guests:   req.Guests,
		Arrivals: arrivals,
		Leaving:  leaving,
	}, nil
}

func parseDay(value, existingError string) (time.Time, bool) {
	if existingError != "" {
		return time.Time{}, false
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
