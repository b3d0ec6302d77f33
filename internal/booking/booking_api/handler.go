package booking_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"travel-booking/internal/auth"
	"travel-booking/internal/booking"
	"travel-booking/internal/logger"
	"travel-booking/internal/models"
	"travel-booking/internal/utils"
)

type Handler struct {
	Service *booking.Service
	Logger  *logger.Logger
}

func NewHandler(service *booking.Service, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

// Mount registers the booking routes. Actor resolution must already be installed on r.
func (h *Handler) Mount(r chi.Router) {
	r.Post("/bookings", h.SubmitBooking)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuthenticated)
		r.Get("/bookings/mine", h.ListMyBookings)
		r.Get("/bookings/{bookingID}", h.GetBooking)
		r.Put("/bookings/{bookingID}", h.EditBooking)
		r.Delete("/bookings/{bookingID}", h.CancelBooking)
		r.Get("/bookings/{bookingID}/qr", h.GetBookingQR)
		r.Get("/bookings/{bookingID}/confirmation.pdf", h.GetBookingPDF)
	})
	r.With(auth.RequireAdmin).Get("/admin/bookings", h.ListAllBookings)
}

func (h *Handler) SubmitBooking(w http.ResponseWriter, r *http.Request) {
	var req models.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("SubmitBooking: failed to decode request body: %v", err))
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", "bad_request")
		return
	}

	actor := auth.ActorFrom(r.Context())
	h.Logger.Info("API", fmt.Sprintf("SubmitBooking: tour=%d guests=%d role=%s", req.TourID, req.Guests, actor.Role))

	b, err := h.Service.Submit(r.Context(), actor, req)
	if err != nil {
		h.writeServiceError(w, "SubmitBooking", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Booking confirmed", b)
}

func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookingID(w, r)
	if !ok {
		return
	}
	b, err := h.Service.Get(r.Context(), auth.ActorFrom(r.Context()), id)
	if err != nil {
		h.writeServiceError(w, "GetBooking", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Booking found", b)
}

func (h *Handler) EditBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookingID(w, r)
	if !ok {
		return
	}
	var req models.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("EditBooking: failed to decode request body: %v", err))
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", "bad_request")
		return
	}

	b, err := h.Service.Edit(r.Context(), auth.ActorFrom(r.Context()), id, req)
	if err != nil {
		h.writeServiceError(w, "EditBooking", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Booking updated", b)
}

func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookingID(w, r)
	if !ok {
		return
	}
	if err := h.Service.Cancel(r.Context(), auth.ActorFrom(r.Context()), id); err != nil {
		h.writeServiceError(w, "CancelBooking", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetBookingQR(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookingID(w, r)
	if !ok {
		return
	}
	png, err := h.Service.ConfirmationQR(r.Context(), auth.ActorFrom(r.Context()), id)
	if err != nil {
		h.writeServiceError(w, "GetBookingQR", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=booking-%d.png", id))
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func (h *Handler) GetBookingPDF(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookingID(w, r)
	if !ok {
		return
	}
	doc, err := h.Service.ConfirmationPDF(r.Context(), auth.ActorFrom(r.Context()), id)
	if err != nil {
		h.writeServiceError(w, "GetBookingPDF", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=booking-%d.pdf", id))
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

func (h *Handler) ListMyBookings(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error(), "bad_request")
		return
	}
	bookings, err := h.Service.ListMine(r.Context(), auth.ActorFrom(r.Context()), filter)
	if err != nil {
		h.writeServiceError(w, "ListMyBookings", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, fmt.Sprintf("%d booking(s)", len(bookings)), bookings)
}

func (h *Handler) ListAllBookings(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error(), "bad_request")
		return
	}
	bookings, err := h.Service.ListAll(r.Context(), auth.ActorFrom(r.Context()), filter)
	if err != nil {
		h.writeServiceError(w, "ListAllBookings", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, fmt.Sprintf("%d booking(s)", len(bookings)), bookings)
}

func (h *Handler) bookingID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "bookingID"), 10, 64)
	if err != nil || id <= 0 {
		utils.WriteError(w, http.StatusBadRequest, "Invalid booking id", "bad_request")
		return 0, false
	}
	return id, true
}

func parseFilter(r *http.Request) (models.BookingFilter, error) {
	q := r.URL.Query()
	filter := models.BookingFilter{
		Location: q.Get("location"),
		SortBy:   q.Get("sort"),
		Order:    q.Get("order"),
	}
	for param, dst := range map[string]**time.Time{"date_from": &filter.DateFrom, "date_to": &filter.DateTo} {
		if v := q.Get(param); v != "" {
			t, err := time.Parse("2006-01-02", v)
			if err != nil {
				return filter, fmt.Errorf("%s must be a date in YYYY-MM-DD format", param)
			}
			*dst = &t
		}
	}
	return filter, nil
}

// writeServiceError maps booking errors to statuses. Storage causes stay in the log.
func (h *Handler) writeServiceError(w http.ResponseWriter, op string, err error) {
	var (
		verr   *booking.ValidationError
		capErr *booking.CapacityError
		perr   *booking.PersistenceError
	)
	switch {
	case errors.As(err, &verr):
		h.Logger.Info("API", fmt.Sprintf("%s: validation failed: %v", op, err))
		utils.WriteJSON(w, http.StatusUnprocessableEntity, utils.ValidationResponse("Please correct the highlighted fields", verr.Fields))
	case errors.As(err, &capErr):
		status := http.StatusConflict
		if capErr.Reason == models.ReasonTourNotFound {
			status = http.StatusNotFound
		}
		utils.WriteJSON(w, status, utils.APIResponse{
			Success:   false,
			Message:   capErr.Error(),
			Error:     string(capErr.Reason),
			Data:      map[string]int{"remaining": capErr.Remaining},
			Timestamp: time.Now(),
		})
	case errors.Is(err, booking.ErrDuplicateSubmission):
		utils.WriteError(w, http.StatusConflict, "This booking is already being processed", "duplicate_submission")
	case errors.Is(err, booking.ErrUnauthenticated):
		utils.WriteError(w, http.StatusUnauthorized, "Please log in to continue", "unauthorized")
	case errors.Is(err, booking.ErrForbidden):
		utils.WriteError(w, http.StatusForbidden, "You do not have access to this booking", "forbidden")
	case errors.Is(err, booking.ErrNotFound):
		utils.WriteError(w, http.StatusNotFound, "Booking not found", "not_found")
	case errors.As(err, &perr):
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
		utils.WriteError(w, http.StatusServiceUnavailable, "We could not save your booking right now. Please try again.", "persistence_error")
	default:
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
		utils.WriteError(w, http.StatusInternalServerError, "Unexpected error", "internal_error")
	}
}
