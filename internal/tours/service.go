// Package tours manages the tour catalog. Reads are public; every mutation
// is admin only.
package tours

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"travel-booking/internal/capacity"
	"travel-booking/internal/logger"
	"travel-booking/internal/models"
	"travel-booking/internal/utils"
)

var (
	ErrNotFound        = errors.New("tour not found")
	ErrForbidden       = errors.New("admin access required")
	ErrTourHasBookings = errors.New("tour still has bookings")
)

const (
	EventTourCreated = "tour.created"
	EventTourUpdated = "tour.updated"
	EventTourDeleted = "tour.deleted"
)

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid tour: " + strings.Join(parts, "; ")
}

type Store interface {
	ListTours(ctx context.Context, onlyAvailable bool) ([]models.TourWithAvailability, error)
	GetTour(ctx context.Context, id int64) (*models.Tour, error)
	CreateTour(ctx context.Context, t *models.Tour) error
	UpdateTour(ctx context.Context, t *models.Tour) error
	DeleteTour(ctx context.Context, id int64) error
}

type CapacityView interface {
	Availability(ctx context.Context, tourID int64) (models.CapacitySnapshot, error)
	Snapshot(ctx context.Context, tourID int64) (models.CapacitySnapshot, error)
	Invalidate(ctx context.Context, tourID int64)
}

type Broadcaster interface {
	Broadcast(snapshot models.CapacitySnapshot)
}

type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

var fieldMessages = map[string]string{
	"title":         "Title is required",
	"description":   "Description is required",
	"location":      "Location is required",
	"price":         "Price is required",
	"date.required": "Date is required",
	"date":          "Please enter a valid date",
	"image":         "Image is required",
	"capacity":      "Capacity must be greater than 0",
}

type Service struct {
	Store  Store
	Engine CapacityView
	Stream Broadcaster
	Events EventPublisher
	Topic  string
	Logger *logger.Logger

	validate *validator.Validate
}

func NewService(store Store, engine CapacityView, log *logger.Logger) *Service {
	return &Service{Store: store, Engine: engine, Logger: log, validate: utils.NewValidator()}
}

// List returns the catalog with live availability, ordered by title.
// onlyAvailable keeps tours that still have at least one free place.
func (s *Service) List(ctx context.Context, onlyAvailable bool) ([]models.TourWithAvailability, error) {
	tours, err := s.Store.ListTours(ctx, onlyAvailable)
	if err != nil {
		return nil, err
	}
	for i := range tours {
		if tours[i].RemainingSpots < 0 {
			tours[i].RemainingSpots = 0
		}
	}
	return tours, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*models.Tour, error) {
	return s.Store.GetTour(ctx, id)
}

// Capacity is a display read and may be served from cache.
func (s *Service) Capacity(ctx context.Context, id int64) (models.CapacitySnapshot, error) {
	snapshot, err := s.Engine.Availability(ctx, id)
	if errors.Is(err, capacity.ErrTourNotFound) {
		return models.CapacitySnapshot{}, ErrNotFound
	}
	return snapshot, err
}

func (s *Service) Create(ctx context.Context, actor models.Actor, req models.TourRequest) (*models.Tour, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	t, err := s.parse(req)
	if err != nil {
		return nil, err
	}
	t.CreatedAt = time.Now().UTC()
	if err := s.Store.CreateTour(ctx, t); err != nil {
		return nil, err
	}

	s.Logger.Info("TOURS", fmt.Sprintf("Tour %d created by user %d: %s (capacity %d)", t.ID, *actor.UserID, t.Title, t.Capacity))
	s.publish(ctx, EventTourCreated, t)
	return t, nil
}

// Update rewrites a tour. Lowering capacity below what is already booked is
// allowed; the tour then reports zero remaining until bookings are cancelled.
func (s *Service) Update(ctx context.Context, actor models.Actor, id int64, req models.TourRequest) (*models.Tour, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	t, err := s.parse(req)
	if err != nil {
		return nil, err
	}
	t.ID = id
	if err := s.Store.UpdateTour(ctx, t); err != nil {
		return nil, err
	}

	s.Logger.Info("TOURS", fmt.Sprintf("Tour %d updated by user %d", id, *actor.UserID))
	s.refresh(ctx, id)
	s.publish(ctx, EventTourUpdated, t)
	return t, nil
}

// Delete removes a tour that has no bookings. Tours with bookings are
// refused with ErrTourHasBookings.
func (s *Service) Delete(ctx context.Context, actor models.Actor, id int64) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	if err := s.Store.DeleteTour(ctx, id); err != nil {
		return err
	}

	s.Logger.Info("TOURS", fmt.Sprintf("Tour %d deleted by user %d", id, *actor.UserID))
	if s.Engine != nil {
		s.Engine.Invalidate(ctx, id)
	}
	s.publish(ctx, EventTourDeleted, &models.Tour{ID: id})
	return nil
}

func (s *Service) parse(req models.TourRequest) (*models.Tour, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.Location = strings.TrimSpace(req.Location)
	req.Image = strings.TrimSpace(req.Image)
	req.Price = strings.TrimSpace(req.Price)
	req.Date = strings.TrimSpace(req.Date)

	fields := map[string]string{}
	if err := s.validate.Struct(req); err != nil {
		fe, err := utils.FieldErrors(err, fieldMessages)
		if err != nil {
			return nil, err
		}
		fields = fe
	}

	var price decimal.Decimal
	if _, failed := fields["price"]; !failed {
		p, err := decimal.NewFromString(req.Price)
		switch {
		case err != nil:
			fields["price"] = "Price must be a number"
		case !p.IsPositive():
			fields["price"] = "Price must be greater than 0"
		default:
			price = p.Round(2)
		}
	}

	var date time.Time
	if _, failed := fields["date"]; !failed {
		date, _ = time.Parse("2006-01-02", req.Date)
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	return &models.Tour{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Price:       price,
		Date:        date,
		Image:       req.Image,
		Capacity:    req.Capacity,
	}, nil
}

func (s *Service) refresh(ctx context.Context, id int64) {
	if s.Engine == nil {
		return
	}
	s.Engine.Invalidate(ctx, id)
	snapshot, err := s.Engine.Snapshot(ctx, id)
	if err != nil {
		s.Logger.Warn("TOURS", fmt.Sprintf("Could not refresh capacity of tour %d: %v", id, err))
		return
	}
	if snapshot.Booked > snapshot.TotalCapacity {
		s.Logger.Warn("TOURS", fmt.Sprintf("Tour %d now has %d guests booked against capacity %d", id, snapshot.Booked, snapshot.TotalCapacity))
	}
	if s.Stream != nil {
		s.Stream.Broadcast(snapshot)
	}
}

func (s *Service) publish(ctx context.Context, eventType string, t *models.Tour) {
	if s.Events == nil {
		return
	}
	event := models.TourEvent{Type: eventType, TourID: t.ID, Capacity: t.Capacity}
	if err := s.Events.Publish(ctx, s.Topic, strconv.FormatInt(t.ID, 10), event); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("Publish error (%s %d): %v", eventType, t.ID, err))
	}
}
