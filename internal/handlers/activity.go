package handlers

import (
	"net/http"

	"pact-sync-client/internal/models"
	"pact-sync-client/internal/services"

	"github.com/go-chi/chi/v5"
)

// ActivityHandler handles activity-related bridge requests
type ActivityHandler struct {
	activities *services.ActivityFeed
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(activities *services.ActivityFeed) *ActivityHandler {
	return &ActivityHandler{activities: activities}
}

// GetActivities handles GET /v1/activities
func (h *ActivityHandler) GetActivities(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.activities.Own(r.Context()))
}

// GetShared handles GET /v1/activities/shared
func (h *ActivityHandler) GetShared(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.activities.Shared(r.Context()))
}

// GetProgress handles GET /v1/activities/progress
func (h *ActivityHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.activities.Progress(r.Context())
	if err != nil {
		respondError(w, "Could not load challenge activities", http.StatusBadGateway)
		return
	}
	if progress == nil {
		respondError(w, services.DisplayMessage(services.ErrNoChallenge), http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, progress)
}

// AddActivity handles POST /v1/activities
func (h *ActivityHandler) AddActivity(w http.ResponseWriter, r *http.Request) {
	var req models.NewActivityRequest
	if !decodeBody(w, r, &req) {
		return
	}

	activity, err := h.activities.Add(r.Context(), &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, activity)
}

// DeleteActivity handles DELETE /v1/activities/{id}
func (h *ActivityHandler) DeleteActivity(w http.ResponseWriter, r *http.Request) {
	if err := h.activities.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
