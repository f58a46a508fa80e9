package handlers

import (
	"net/http"

	"pact-sync-client/internal/services"

	"github.com/rs/zerolog/log"
)

// Foregrounder triggers an immediate background refresh
type Foregrounder interface {
	Foreground()
}

// SessionHandler handles session and state bridge requests
type SessionHandler struct {
	engine *services.Engine
	poller Foregrounder
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(engine *services.Engine, poller Foregrounder) *SessionHandler {
	return &SessionHandler{engine: engine, poller: poller}
}

// LoginRequest represents the request body for signing in
type LoginRequest struct {
	Token string `json:"token"`
}

// GetState handles GET /v1/state
func (h *SessionHandler) GetState(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.State())
}

// Login handles POST /v1/session
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Token == "" {
		respondError(w, "token is required", http.StatusBadRequest)
		return
	}

	if err := h.engine.Session.Login(req.Token); err != nil {
		log.Warn().Err(err).Msg("Rejected session token")
		respondError(w, "Invalid token", http.StatusBadRequest)
		return
	}
	h.engine.Refresh(r.Context())

	respondJSON(w, http.StatusOK, h.engine.State())
}

// Logout handles DELETE /v1/session
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.engine.Session.Logout()
	w.WriteHeader(http.StatusNoContent)
}

// Foreground handles POST /v1/foreground
func (h *SessionHandler) Foreground(w http.ResponseWriter, r *http.Request) {
	if h.poller != nil {
		h.poller.Foreground()
	}
	w.WriteHeader(http.StatusAccepted)
}
