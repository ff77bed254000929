// Package handlers provides HTTP handlers for capacity and staffing views.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aristath/capacity-planner/internal/domain"
	"github.com/aristath/capacity-planner/internal/modules/planning"
	"github.com/aristath/capacity-planner/internal/modules/rollup"
	"github.com/aristath/capacity-planner/internal/utils"
)

// Views is the rollup service as seen by the HTTP layer
type Views interface {
	CapacityOverview(ctx context.Context, periodID int64) (*rollup.CapacityOverview, error)
	PersonCapacity(ctx context.Context, periodID, personID int64) (*rollup.PersonCapacity, error)
	ProjectStaffing(ctx context.Context, periodID, projectID int64) (*rollup.ProjectStaffing, error)
}

// Handler handles capacity HTTP requests
type Handler struct {
	views Views
	log   zerolog.Logger
}

// NewHandler creates a new capacity handler
func NewHandler(views Views, log zerolog.Logger) *Handler {
	return &Handler{
		views: views,
		log:   log.With().Str("handler", "capacity").Logger(),
	}
}

// HandleGetOverview handles GET /api/periods/{periodID}/capacity
func (h *Handler) HandleGetOverview(w http.ResponseWriter, r *http.Request) {
	periodID, err := utils.URLParamID(r, "periodID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	overview, err := h.views.CapacityOverview(r.Context(), periodID)
	if err != nil {
		h.writeLookupError(w, err, "failed to build capacity overview")
		return
	}
	h.writeJSON(w, http.StatusOK, overview)
}

// HandleGetPersonCapacity handles GET /api/periods/{periodID}/people/{personID}/capacity
func (h *Handler) HandleGetPersonCapacity(w http.ResponseWriter, r *http.Request) {
	periodID, err := utils.URLParamID(r, "periodID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	personID, err := utils.URLParamID(r, "personID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	capacity, err := h.views.PersonCapacity(r.Context(), periodID, personID)
	if err != nil {
		h.writeLookupError(w, err, "failed to build person capacity")
		return
	}
	h.writeJSON(w, http.StatusOK, capacity)
}

// HandleGetProjectStaffing handles GET /api/periods/{periodID}/projects/{projectID}/staffing
func (h *Handler) HandleGetProjectStaffing(w http.ResponseWriter, r *http.Request) {
	periodID, err := utils.URLParamID(r, "periodID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	projectID, err := utils.URLParamID(r, "projectID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	staffing, err := h.views.ProjectStaffing(r.Context(), periodID, projectID)
	if err != nil {
		h.writeLookupError(w, err, "failed to build project staffing")
		return
	}
	h.writeJSON(w, http.StatusOK, staffing)
}

func (h *Handler) writeLookupError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, planning.ErrMalformedPeriod):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.log.Error().Err(err).Msg(message)
		h.writeError(w, http.StatusServiceUnavailable, message)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
