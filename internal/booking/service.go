package booking

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"travel-booking/internal/logger"
	"travel-booking/internal/models"
)

// Store is the booking ledger. AdmitBooking and UpdateBookingWithinCapacity
// check capacity and write in one transaction, serialized per tour; when the
// result is not admissible nothing is written.
type Store interface {
	AdmitBooking(ctx context.Context, b *models.Booking) (models.AdmissionResult, error)
	UpdateBookingWithinCapacity(ctx context.Context, b *models.Booking) (models.AdmissionResult, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	DeleteBooking(ctx context.Context, id int64) error
	ListBookings(ctx context.Context, userID *int64, filter models.BookingFilter) ([]models.Booking, error)
}

type SubmissionGuard interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

type EventPublisher interface {
	PublishBookingCreated(ctx context.Context, b *models.Booking) error
	PublishBookingUpdated(ctx context.Context, b *models.Booking) error
	PublishBookingCancelled(ctx context.Context, b *models.Booking) error
}

// CapacityView refreshes what visitors see after the ledger changes.
type CapacityView interface {
	Snapshot(ctx context.Context, tourID int64) (models.CapacitySnapshot, error)
	Invalidate(ctx context.Context, tourID int64)
}

type Broadcaster interface {
	Broadcast(snapshot models.CapacitySnapshot)
}

type QRGenerator interface {
	Generate(reference string) ([]byte, error)
}

type DocumentGenerator interface {
	Generate(b *models.Booking, qrCode []byte) ([]byte, error)
}

type Service struct {
	Store     Store
	Validator *Validator
	Guard     SubmissionGuard
	Events    EventPublisher
	Capacity  CapacityView
	Stream    Broadcaster
	QR        QRGenerator
	Documents DocumentGenerator
	Logger    *logger.Logger
	Now       func() time.Time
}

// NewService wires the required collaborators. Guard, Events, Capacity,
// Stream, QR and Documents are optional and may be set on the returned value.
func NewService(store Store, validator *Validator, log *logger.Logger) *Service {
	return &Service{Store: store, Validator: validator, Logger: log, Now: time.Now}
}

// Submit validates a booking form and admits it if the tour has room.
func (s *Service) Submit(ctx context.Context, actor models.Actor, req models.BookingRequest) (*models.Booking, error) {
	b, err := s.Validator.Validate(req)
	if err != nil {
		return nil, err
	}
	if actor.IsAuthenticated() {
		id := *actor.UserID
		b.UserID = &id
	}

	key := submissionKey(b)
	if s.Guard != nil {
		acquired, err := s.Guard.Acquire(ctx, key)
		switch {
		case err != nil:
			s.Logger.Warn("BOOKING", fmt.Sprintf("Submission guard unavailable, continuing: %v", err))
		case !acquired:
			s.Logger.Warn("BOOKING", fmt.Sprintf("Duplicate submission rejected for tour %d", b.TourID))
			return nil, ErrDuplicateSubmission
		}
	}

	b.CreatedAt = s.Now().UTC()
	result, err := s.Store.AdmitBooking(ctx, b)
	if err != nil {
		s.releaseGuard(ctx, key)
		s.Logger.Error("BOOKING", fmt.Sprintf("Admission failed for tour %d: %v", b.TourID, err))
		return nil, &PersistenceError{Op: "admit booking", Err: err}
	}
	if !result.Admissible {
		s.releaseGuard(ctx, key)
		s.Logger.Info("BOOKING", fmt.Sprintf("Booking rejected for tour %d: %s (remaining %d, requested %d)",
			b.TourID, result.Reason, result.Remaining, b.Guests))
		return nil, &CapacityError{Reason: result.Reason, Remaining: result.Remaining}
	}

	s.Logger.LogBooking("CREATED", b.ID, fmt.Sprintf("tour=%d guests=%d", b.TourID, b.Guests))
	s.afterCommit(ctx, b.TourID)
	if s.Events != nil {
		if err := s.Events.PublishBookingCreated(ctx, b); err != nil {
			s.Logger.Error("KAFKA", fmt.Sprintf("Publish error (booking created %d): %v", b.ID, err))
		}
	}
	return b, nil
}

// Edit replaces a booking's details. The new guest count is checked against
// the tour's capacity without counting the booking's own current guests.
func (s *Service) Edit(ctx context.Context, actor models.Actor, id int64, req models.BookingRequest) (*models.Booking, error) {
	existing, err := s.authorize(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	b, err := s.Validator.Validate(req)
	if err != nil {
		return nil, err
	}
	b.ID = existing.ID
	b.UserID = existing.UserID
	b.CreatedAt = existing.CreatedAt

	result, err := s.Store.UpdateBookingWithinCapacity(ctx, b)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		s.Logger.Error("BOOKING", fmt.Sprintf("Update failed for booking %d: %v", id, err))
		return nil, &PersistenceError{Op: "update booking", Err: err}
	}
	if !result.Admissible {
		return nil, &CapacityError{Reason: result.Reason, Remaining: result.Remaining}
	}

	s.Logger.LogBooking("UPDATED", b.ID, fmt.Sprintf("tour=%d guests=%d", b.TourID, b.Guests))
	s.afterCommit(ctx, b.TourID)
	if existing.TourID != b.TourID {
		s.afterCommit(ctx, existing.TourID)
	}
	if s.Events != nil {
		if err := s.Events.PublishBookingUpdated(ctx, b); err != nil {
			s.Logger.Error("KAFKA", fmt.Sprintf("Publish error (booking updated %d): %v", b.ID, err))
		}
	}
	return b, nil
}

// Cancel deletes a booking and gives its places back to the tour.
func (s *Service) Cancel(ctx context.Context, actor models.Actor, id int64) error {
	existing, err := s.authorize(ctx, actor, id)
	if err != nil {
		return err
	}

	if err := s.Store.DeleteBooking(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		s.Logger.Error("BOOKING", fmt.Sprintf("Cancel failed for booking %d: %v", id, err))
		return &PersistenceError{Op: "cancel booking", Err: err}
	}

	s.Logger.LogBooking("CANCELLED", id, fmt.Sprintf("tour=%d guests=%d", existing.TourID, existing.Guests))
	s.afterCommit(ctx, existing.TourID)
	if s.Events != nil {
		if err := s.Events.PublishBookingCancelled(ctx, existing); err != nil {
			s.Logger.Error("KAFKA", fmt.Sprintf("Publish error (booking cancelled %d): %v", id, err))
		}
	}
	return nil
}

func (s *Service) Get(ctx context.Context, actor models.Actor, id int64) (*models.Booking, error) {
	return s.authorize(ctx, actor, id)
}

// ListMine returns the actor's own bookings.
func (s *Service) ListMine(ctx context.Context, actor models.Actor, filter models.BookingFilter) ([]models.Booking, error) {
	if !actor.IsAuthenticated() {
		return nil, ErrUnauthenticated
	}
	bookings, err := s.Store.ListBookings(ctx, actor.UserID, filter)
	if err != nil {
		return nil, &PersistenceError{Op: "list bookings", Err: err}
	}
	return bookings, nil
}

// ListAll returns every booking in the ledger. Admin only.
func (s *Service) ListAll(ctx context.Context, actor models.Actor, filter models.BookingFilter) ([]models.Booking, error) {
	if !actor.IsAuthenticated() {
		return nil, ErrUnauthenticated
	}
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	bookings, err := s.Store.ListBookings(ctx, nil, filter)
	if err != nil {
		return nil, &PersistenceError{Op: "list bookings", Err: err}
	}
	return bookings, nil
}

// ConfirmationQR renders the booking reference as a PNG QR code.
func (s *Service) ConfirmationQR(ctx context.Context, actor models.Actor, id int64) ([]byte, error) {
	b, err := s.authorize(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if s.QR == nil {
		return nil, errors.New("QR generation is not configured")
	}
	return s.QR.Generate(Reference(b))
}

// ConfirmationPDF renders a printable confirmation. The QR code is embedded
// when QR generation is configured.
func (s *Service) ConfirmationPDF(ctx context.Context, actor models.Actor, id int64) ([]byte, error) {
	b, err := s.authorize(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if s.Documents == nil {
		return nil, errors.New("confirmation documents are not configured")
	}
	var code []byte
	if s.QR != nil {
		if code, err = s.QR.Generate(Reference(b)); err != nil {
			return nil, fmt.Errorf("failed to generate QR code: %w", err)
		}
	}
	return s.Documents.Generate(b, code)
}

// Reference is the value encoded in a booking's confirmation QR code.
func Reference(b *models.Booking) string {
	return fmt.Sprintf("booking:%d|tour:%d|guests:%d|arrivals:%s", b.ID, b.TourID, b.Guests, b.Arrivals.Format(dateLayout))
}

// authorize loads a booking the actor may see: admins see every booking,
// users only their own. Bookings made without an account are admin only.
func (s *Service) authorize(ctx context.Context, actor models.Actor, id int64) (*models.Booking, error) {
	if !actor.IsAuthenticated() {
		return nil, ErrUnauthenticated
	}
	b, err := s.Store.GetBooking(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &PersistenceError{Op: "get booking", Err: err}
	}
	if !actor.IsAdmin() && !b.OwnedBy(actor.UserID) {
		s.Logger.LogSecurity("BOOKING_ACCESS_DENIED", fmt.Sprintf("user=%d booking=%d", *actor.UserID, id))
		return nil, ErrForbidden
	}
	return b, nil
}

func (s *Service) afterCommit(ctx context.Context, tourID int64) {
	if s.Capacity == nil {
		return
	}
	s.Capacity.Invalidate(ctx, tourID)
	if s.Stream == nil {
		return
	}
	snapshot, err := s.Capacity.Snapshot(ctx, tourID)
	if err != nil {
		s.Logger.Warn("BOOKING", fmt.Sprintf("Could not refresh capacity of tour %d: %v", tourID, err))
		return
	}
	s.Stream.Broadcast(snapshot)
}

func (s *Service) releaseGuard(ctx context.Context, key string) {
	if s.Guard == nil {
		return
	}
	if err := s.Guard.Release(ctx, key); err != nil {
		s.Logger.Warn("BOOKING", fmt.Sprintf("Failed to release submission guard: %v", err))
	}
}

func submissionKey(b *models.Booking) string {
	owner := "guest"
	if b.UserID != nil {
		owner = fmt.Sprintf("user:%d", *b.UserID)
	}
	raw := strings.Join([]string{
		owner,
		strings.ToLower(b.Email),
		fmt.Sprint(b.TourID),
		fmt.Sprint(b.Guests),
		b.Arrivals.Format(dateLayout),
		b.Leaving.Format(dateLayout),
	}, "|")
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
