package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the capacity view routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/periods/{periodID}/capacity", h.HandleGetOverview)
	r.Get("/periods/{periodID}/people/{personID}/capacity", h.HandleGetPersonCapacity)
	r.Get("/periods/{periodID}/projects/{projectID}/staffing", h.HandleGetProjectStaffing)
}
