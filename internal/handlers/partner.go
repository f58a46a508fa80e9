package handlers

import (
	"net/http"

	"pact-sync-client/internal/models"
	"pact-sync-client/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// PartnerHandler handles slot and partner-related bridge requests
type PartnerHandler struct {
	partners *services.PartnerStore
}

// NewPartnerHandler creates a new partner handler
func NewPartnerHandler(partners *services.PartnerStore) *PartnerHandler {
	return &PartnerHandler{partners: partners}
}

// SwitchSlotRequest represents the request body for switching slot
type SwitchSlotRequest struct {
	Slot models.Slot `json:"slot"`
}

// UpdatePartnersRequest represents the request body for assigning partners
type UpdatePartnersRequest struct {
	P1 *string `json:"p1"`
	P2 *string `json:"p2"`
}

// SendInviteRequest represents the request body for a partner invite
type SendInviteRequest struct {
	Slot      models.Slot `json:"slot"`
	PartnerID string      `json:"partnerId"`
}

// GetPartners handles GET /v1/partners
func (h *PartnerHandler) GetPartners(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.partners.Snapshot())
}

// SwitchSlot handles POST /v1/slot
func (h *PartnerHandler) SwitchSlot(w http.ResponseWriter, r *http.Request) {
	var req SwitchSlotRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.partners.SwitchSlot(r.Context(), req.Slot); err != nil {
		log.Error().Err(err).Str("slot", string(req.Slot)).Msg("Failed to switch slot")
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.partners.Snapshot())
}

// UpdatePartners handles PUT /v1/partners
func (h *PartnerHandler) UpdatePartners(w http.ResponseWriter, r *http.Request) {
	var req UpdatePartnersRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.partners.UpdatePartners(r.Context(), req.P1, req.P2); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.partners.Snapshot())
}

// SendInvite handles POST /v1/partner-invites
func (h *PartnerHandler) SendInvite(w http.ResponseWriter, r *http.Request) {
	var req SendInviteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	invite, err := h.partners.SendInvite(r.Context(), req.Slot, req.PartnerID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, invite)
}

// AcceptInvite handles POST /v1/partner-invites/{id}/accept
func (h *PartnerHandler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	if err := h.partners.AcceptIncomingInvite(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.partners.Snapshot())
}

// RefuseInvite handles POST /v1/partner-invites/{id}/refuse
func (h *PartnerHandler) RefuseInvite(w http.ResponseWriter, r *http.Request) {
	if err := h.partners.RefuseIncomingInvite(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.partners.Snapshot())
}
