package tour_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"travel-booking/internal/auth"
	"travel-booking/internal/logger"
	"travel-booking/internal/models"
	"travel-booking/internal/sse"
	"travel-booking/internal/tours"
	"travel-booking/internal/utils"
)

type Handler struct {
	Service *tours.Service
	Stream  *sse.AvailabilityEmitter
	Logger  *logger.Logger
}

func NewHandler(service *tours.Service, stream *sse.AvailabilityEmitter, log *logger.Logger) *Handler {
	return &Handler{Service: service, Stream: stream, Logger: log}
}

func (h *Handler) Mount(r chi.Router) {
	r.Get("/tours", h.ListTours)
	r.Get("/tours/{tourID}", h.GetTour)
	r.Get("/tours/{tourID}/capacity", h.GetCapacity)
	r.Get("/tours/{tourID}/capacity/stream", h.StreamCapacity)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAdmin)
		r.Post("/admin/tours", h.CreateTour)
		r.Put("/admin/tours/{tourID}", h.UpdateTour)
		r.Delete("/admin/tours/{tourID}", h.DeleteTour)
	})
}

// ListTours serves the catalog. ?available=true keeps only bookable tours.
func (h *Handler) ListTours(w http.ResponseWriter, r *http.Request) {
	onlyAvailable, _ := strconv.ParseBool(r.URL.Query().Get("available"))
	list, err := h.Service.List(r.Context(), onlyAvailable)
	if err != nil {
		h.writeServiceError(w, "ListTours", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, fmt.Sprintf("%d tour(s)", len(list)), list)
}

func (h *Handler) GetTour(w http.ResponseWriter, r *http.Request) {
	id, ok := tourID(w, r)
	if !ok {
		return
	}
	t, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "GetTour", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Tour found", t)
}

func (h *Handler) GetCapacity(w http.ResponseWriter, r *http.Request) {
	id, ok := tourID(w, r)
	if !ok {
		return
	}
	snapshot, err := h.Service.Capacity(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "GetCapacity", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Capacity", snapshot)
}

// StreamCapacity pushes a tour's capacity over server-sent events whenever it changes.
func (h *Handler) StreamCapacity(w http.ResponseWriter, r *http.Request) {
	id, ok := tourID(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.WriteError(w, http.StatusInternalServerError, "Streaming unsupported", "internal_error")
		return
	}

	initial, err := h.Service.Capacity(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "StreamCapacity", err)
		return
	}

	ctx := r.Context()
	updates := h.Stream.Subscribe(ctx, id)

	// Streams outlive the server write timeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		h.Logger.Warn("SSE", fmt.Sprintf("Capacity stream for tour %d keeps the server write timeout: %v", id, err))
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	h.Logger.Info("SSE", fmt.Sprintf("Client connected to capacity stream for tour %d", id))
	writeEvent(w, "capacity", initial)
	flusher.Flush()

	for {
		select {
		case snapshot, ok := <-updates:
			if !ok {
				return
			}
			writeEvent(w, "capacity", snapshot)
			flusher.Flush()
		case <-ctx.Done():
			h.Logger.Debug("SSE", fmt.Sprintf("Client disconnected from capacity stream for tour %d", id))
			return
		}
	}
}

func (h *Handler) CreateTour(w http.ResponseWriter, r *http.Request) {
	var req models.TourRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", "bad_request")
		return
	}
	t, err := h.Service.Create(r.Context(), auth.ActorFrom(r.Context()), req)
	if err != nil {
		h.writeServiceError(w, "CreateTour", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Tour created", t)
}

func (h *Handler) UpdateTour(w http.ResponseWriter, r *http.Request) {
	id, ok := tourID(w, r)
	if !ok {
		return
	}
	var req models.TourRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", "bad_request")
		return
	}
	t, err := h.Service.Update(r.Context(), auth.ActorFrom(r.Context()), id, req)
	if err != nil {
		h.writeServiceError(w, "UpdateTour", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Tour updated", t)
}

func (h *Handler) DeleteTour(w http.ResponseWriter, r *http.Request) {
	id, ok := tourID(w, r)
	if !ok {
		return
	}
	if err := h.Service.Delete(r.Context(), auth.ActorFrom(r.Context()), id); err != nil {
		h.writeServiceError(w, "DeleteTour", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func tourID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "tourID"), 10, 64)
	if err != nil || id <= 0 {
		utils.WriteError(w, http.StatusBadRequest, "Invalid tour id", "bad_request")
		return 0, false
	}
	return id, true
}

func writeEvent(w http.ResponseWriter, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, op string, err error) {
	var verr *tours.ValidationError
	switch {
	case errors.As(err, &verr):
		utils.WriteJSON(w, http.StatusUnprocessableEntity, utils.ValidationResponse("Please correct the highlighted fields", verr.Fields))
	case errors.Is(err, tours.ErrNotFound):
		utils.WriteError(w, http.StatusNotFound, "Tour not found", "not_found")
	case errors.Is(err, tours.ErrForbidden):
		utils.WriteError(w, http.StatusForbidden, "Admin access required", "forbidden")
	case errors.Is(err, tours.ErrTourHasBookings):
		utils.WriteError(w, http.StatusConflict, "This tour has bookings and cannot be deleted", "tour_has_bookings")
	default:
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
		utils.WriteError(w, http.StatusServiceUnavailable, "The tour catalog is unavailable right now. Please try again.", "persistence_error")
	}
}
