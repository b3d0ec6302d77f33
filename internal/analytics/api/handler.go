package analytics_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"travel-booking/internal/analytics"
	"travel-booking/internal/auth"
	"travel-booking/internal/logger"
	"travel-booking/internal/utils"
)

// maxBatchTours bounds the IN list of a batch request.
const maxBatchTours = 100

// Handler handles analytics HTTP endpoints
type Handler struct {
	Service *analytics.Service
	Logger  *logger.Logger
}

// NewHandler creates a new analytics handler
func NewHandler(service *analytics.Service, logger *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: logger}
}

type batchRequest struct {
	TourIDs []int64 `json:"tour_ids"`
}

// RegisterRoutes registers the admin analytics routes on a chi router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/admin/analytics", func(r chi.Router) {
		r.Use(auth.RequireAdmin)
		r.Get("/tours/{tourID}", h.GetTourAnalytics)
		r.Post("/tours/batch", h.GetBatchTourAnalytics)
	})
}

func (h *Handler) GetTourAnalytics(w http.ResponseWriter, r *http.Request) {
	tourID, err := strconv.ParseInt(chi.URLParam(r, "tourID"), 10, 64)
	if err != nil || tourID <= 0 {
		utils.WriteError(w, http.StatusBadRequest, "Invalid tour id", "bad_request")
		return
	}

	h.Logger.Debug("ANALYTICS", fmt.Sprintf("Fetching analytics for tour %d", tourID))
	result, err := h.Service.GetTourAnalytics(r.Context(), tourID)
	if errors.Is(err, analytics.ErrTourNotFound) {
		utils.WriteError(w, http.StatusNotFound, "Tour not found", "not_found")
		return
	}
	if err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("Failed to get analytics for tour %d: %v", tourID, err))
		utils.WriteError(w, http.StatusServiceUnavailable, "Analytics are unavailable right now", "persistence_error")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Tour analytics", result)
}

func (h *Handler) GetBatchTourAnalytics(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", "bad_request")
		return
	}
	if len(req.TourIDs) > maxBatchTours {
		utils.WriteError(w, http.StatusBadRequest, fmt.Sprintf("At most %d tours per request", maxBatchTours), "bad_request")
		return
	}

	result, err := h.Service.GetBatchTourAnalytics(r.Context(), req.TourIDs)
	if err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("Failed to get batch analytics: %v", err))
		utils.WriteError(w, http.StatusServiceUnavailable, "Analytics are unavailable right now", "persistence_error")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, fmt.Sprintf("Analytics for %d tour(s)", len(result.Tours)), result)
}
