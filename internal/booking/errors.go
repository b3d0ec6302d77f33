package booking

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"travel-booking/internal/capacity"
	"travel-booking/internal/models"
)

var (
	ErrNotFound            = errors.New("booking not found")
	ErrForbidden           = errors.New("not allowed to access this booking")
	ErrUnauthenticated     = errors.New("login required")
	ErrDuplicateSubmission = errors.New("an identical booking is already being processed")
)

// ValidationError lists every rejected field with the message shown next to it.
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
	return "invalid booking: " + strings.Join(parts, "; ")
}

// CapacityError is a business rejection; nothing was written.
type CapacityError struct {
	Reason    models.AdmissionReason
	Remaining int
}

func (e *CapacityError) Error() string {
	return capacity.Message(models.AdmissionResult{Reason: e.Reason, Remaining: e.Remaining})
}

// PersistenceError means the store failed; the transaction was rolled back.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
