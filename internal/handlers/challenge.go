package handlers

import (
	"net/http"

	"pact-sync-client/internal/models"
	"pact-sync-client/internal/services"

	"github.com/go-chi/chi/v5"
)

// ChallengeHandler handles challenge-related bridge requests
type ChallengeHandler struct {
	challenges *services.ChallengeStore
}

// NewChallengeHandler creates a new challenge handler
func NewChallengeHandler(challenges *services.ChallengeStore) *ChallengeHandler {
	return &ChallengeHandler{challenges: challenges}
}

// HistoryResponse lists past challenges of both modes
type HistoryResponse struct {
	Solo []models.Challenge `json:"solo"`
	Duo  []models.Challenge `json:"duo"`
}

// GetChallenges handles GET /v1/challenges
func (h *ChallengeHandler) GetChallenges(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.challenges.Snapshot())
}

// CreateChallenge handles POST /v1/challenges
func (h *ChallengeHandler) CreateChallenge(w http.ResponseWriter, r *http.Request) {
	var req models.CreateChallengeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ch, err := h.challenges.CreateChallenge(r.Context(), &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, ch)
}

// UpdateChallenge handles PUT /v1/challenges/current
func (h *ChallengeHandler) UpdateChallenge(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateChallengeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ch, err := h.challenges.UpdateChallenge(r.Context(), &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ch)
}

// DeleteChallenge handles DELETE /v1/challenges/current
func (h *ChallengeHandler) DeleteChallenge(w http.ResponseWriter, r *http.Request) {
	if err := h.challenges.DeleteChallenge(r.Context()); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AcceptInvitation handles POST /v1/challenges/{id}/accept
func (h *ChallengeHandler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	ch, err := h.challenges.AcceptInvitation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ch)
}

// RefuseInvitation handles POST /v1/challenges/{id}/refuse
func (h *ChallengeHandler) RefuseInvitation(w http.ResponseWriter, r *http.Request) {
	if err := h.challenges.RefuseInvitation(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RefreshProgress handles POST /v1/challenges/refresh-progress
func (h *ChallengeHandler) RefreshProgress(w http.ResponseWriter, r *http.Request) {
	if _, err := h.challenges.RefreshProgress(r.Context()); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.challenges.Snapshot())
}

// GetHistory handles GET /v1/challenges/history
func (h *ChallengeHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HistoryResponse{
		Solo: h.challenges.SoloHistory(r.Context()),
		Duo:  h.challenges.DuoHistory(r.Context()),
	})
}
