// Package capacity decides whether a tour can take more guests.
//
// The arithmetic lives in NewSnapshot and Evaluate, which are pure. The
// Engine wraps them with a Store for reads and an optional Cache for
// display-only availability lookups. Commits never go through the cache;
// the booking store evaluates admission inside its own transaction.
package capacity

import (
	"context"
	"errors"
	"fmt"

	"travel-booking/internal/logger"
	"travel-booking/internal/models"
)

var ErrTourNotFound = errors.New("tour not found")

// Store reads the current ledger state for one tour.
type Store interface {
	Snapshot(ctx context.Context, tourID int64) (models.CapacitySnapshot, error)
}

// Cache holds recent snapshots for display reads. Get returns nil, nil on a miss.
type Cache interface {
	Get(ctx context.Context, tourID int64) (*models.CapacitySnapshot, error)
	Set(ctx context.Context, snapshot models.CapacitySnapshot) error
	Delete(ctx context.Context, tourID int64) error
}

// NewSnapshot derives remaining and available from capacity and booked guests.
// An over-committed tour reports zero remaining, never a negative count.
func NewSnapshot(tourID int64, capacity, booked int) models.CapacitySnapshot {
	remaining := capacity - booked
	if remaining < 0 {
		remaining = 0
	}
	return models.CapacitySnapshot{
		TourID:        tourID,
		TotalCapacity: capacity,
		Booked:        booked,
		Remaining:     remaining,
		Available:     remaining > 0,
	}
}

// Evaluate decides admission of requested guests against a snapshot.
// Guest count bounds are enforced by validation before this point.
func Evaluate(snapshot models.CapacitySnapshot, requested int) models.AdmissionResult {
	switch {
	case snapshot.Remaining <= 0:
		return models.AdmissionResult{Reason: models.ReasonFullyBooked, Remaining: 0}
	case requested > snapshot.Remaining:
		return models.AdmissionResult{Reason: models.ReasonInsufficientCapacity, Remaining: snapshot.Remaining}
	default:
		return models.AdmissionResult{Admissible: true, Reason: models.ReasonOK, Remaining: snapshot.Remaining}
	}
}

// NotFoundResult is the admission answer for an unknown tour.
func NotFoundResult() models.AdmissionResult {
	return models.AdmissionResult{Reason: models.ReasonTourNotFound}
}

// Message renders a rejection the way it is shown to the guest.
func Message(result models.AdmissionResult) string {
	switch result.Reason {
	case models.ReasonTourNotFound:
		return "Tour not found"
	case models.ReasonFullyBooked:
		return "This tour is fully booked"
	case models.ReasonInsufficientCapacity:
		return fmt.Sprintf("Only %d spot(s) remaining", result.Remaining)
	default:
		return ""
	}
}

type Engine struct {
	store  Store
	cache  Cache
	logger *logger.Logger
}

// NewEngine builds an engine. cache may be nil, in which case every read hits the store.
func NewEngine(store Store, cache Cache, log *logger.Logger) *Engine {
	return &Engine{store: store, cache: cache, logger: log}
}

// Snapshot always reads the store.
func (e *Engine) Snapshot(ctx context.Context, tourID int64) (models.CapacitySnapshot, error) {
	return e.store.Snapshot(ctx, tourID)
}

// CheckAdmission reports whether requested guests fit on the tour right now.
// An unknown tour is a result, not an error; only storage failures are errors.
func (e *Engine) CheckAdmission(ctx context.Context, tourID int64, requested int) (models.AdmissionResult, error) {
	snapshot, err := e.store.Snapshot(ctx, tourID)
	if errors.Is(err, ErrTourNotFound) {
		return NotFoundResult(), nil
	}
	if err != nil {
		return models.AdmissionResult{}, err
	}
	return Evaluate(snapshot, requested), nil
}

// Availability is the display read. It may serve a slightly stale snapshot.
func (e *Engine) Availability(ctx context.Context, tourID int64) (models.CapacitySnapshot, error) {
	if e.cache != nil {
		cached, err := e.cache.Get(ctx, tourID)
		if err != nil {
			e.logger.Warn("CAPACITY", fmt.Sprintf("Cache read failed for tour %d: %v", tourID, err))
		} else if cached != nil {
			return *cached, nil
		}
	}

	snapshot, err := e.store.Snapshot(ctx, tourID)
	if err != nil {
		return models.CapacitySnapshot{}, err
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, snapshot); err != nil {
			e.logger.Warn("CAPACITY", fmt.Sprintf("Cache write failed for tour %d: %v", tourID, err))
		}
	}
	return snapshot, nil
}

// Invalidate drops the cached snapshot so the next display read sees the ledger.
func (e *Engine) Invalidate(ctx context.Context, tourID int64) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Delete(ctx, tourID); err != nil {
		e.logger.Warn("CAPACITY", fmt.Sprintf("Cache invalidation failed for tour %d: %v", tourID, err))
	}
}
