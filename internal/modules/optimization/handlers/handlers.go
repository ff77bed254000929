// Package handlers provides HTTP handlers for optimization runs.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aristath/capacity-planner/internal/domain"
	"github.com/aristath/capacity-planner/internal/modules/optimization"
	"github.com/aristath/capacity-planner/internal/utils"
)

// Runner is the optimization service as seen by the HTTP layer
type Runner interface {
	CalculateOptimalAllocations(ctx context.Context, periodID int64) (*optimization.OptimizationResult, error)
	LatestRun(ctx context.Context, periodID int64) (*optimization.OptimizationResult, error)
}

// Handler handles optimization HTTP requests
type Handler struct {
	runner Runner
	log    zerolog.Logger
}

// NewHandler creates a new optimization handler
func NewHandler(runner Runner, log zerolog.Logger) *Handler {
	return &Handler{
		runner: runner,
		log:    log.With().Str("handler", "optimization").Logger(),
	}
}

// HandleOptimize handles POST /api/periods/{periodID}/optimize
func (h *Handler) HandleOptimize(w http.ResponseWriter, r *http.Request) {
	periodID, err := utils.URLParamID(r, "periodID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.runner.CalculateOptimalAllocations(r.Context(), periodID)
	if err != nil {
		h.writeRunError(w, periodID, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// HandleGetLatest handles GET /api/periods/{periodID}/optimization/latest
func (h *Handler) HandleGetLatest(w http.ResponseWriter, r *http.Request) {
	periodID, err := utils.URLParamID(r, "periodID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.runner.LatestRun(r.Context(), periodID)
	if errors.Is(err, domain.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "no optimization run for this planning period")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Int64("period_id", periodID).Msg("Failed to get latest optimization run")
		h.writeError(w, http.StatusInternalServerError, "failed to get latest optimization run")
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) writeRunError(w http.ResponseWriter, periodID int64, err error) {
	status := http.StatusServiceUnavailable
	kind := optimization.KindStorageUnavailable
	var runErr *optimization.RunError
	if errors.As(err, &runErr) {
		kind = runErr.Kind
	}
	switch kind {
	case optimization.KindPeriodNotFound:
		status = http.StatusNotFound
	case optimization.KindMalformedPeriod:
		status = http.StatusUnprocessableEntity
	}

	h.writeJSON(w, status, map[string]interface{}{
		"success":            false,
		"planning_period_id": periodID,
		"error":              string(kind),
		"message":            err.Error(),
	})
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
