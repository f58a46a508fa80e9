package repository

import (
	"context"
	"fmt"
	"net/http"

	"pact-sync-client/internal/models"
)

// PartnerRepository handles remote operations on partner links and invites
type PartnerRepository struct {
	client *Client
}

// NewPartnerRepository creates a new partner repository
func NewPartnerRepository(client *Client) *PartnerRepository {
	return &PartnerRepository{client: client}
}

// GetLinks retrieves the user's partner links and active slot
func (r *PartnerRepository) GetLinks(ctx context.Context) (*models.PartnerLinksData, error) {
	resp, err := r.client.do(ctx, http.MethodGet, "/users/partner-links", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get partner links: %w", err)
	}
	return decodeLinks(resp)
}

// UpdateLinks replaces both partner slots. A nil id clears the slot.
func (r *PartnerRepository) UpdateLinks(ctx context.Context, p1, p2 *string) (*models.PartnerLinksData, error) {
	body := map[string]*string{"p1": p1, "p2": p2}
	resp, err := r.client.do(ctx, http.MethodPut, "/users/partner-links", nil, body)
	if err != nil {
		return nil, fmt.Errorf("failed to update partner links: %w", err)
	}
	return decodeLinks(resp)
}

// SetActiveSlot activates a slot server-side
func (r *PartnerRepository) SetActiveSlot(ctx context.Context, slot models.Slot) (*models.PartnerLinksData, error) {
	body := map[string]models.Slot{"activeSlot": slot}
	resp, err := r.client.do(ctx, http.MethodPut, "/users/active-slot", nil, body)
	if err != nil {
		return nil, fmt.Errorf("failed to set active slot: %w", err)
	}
	return decodeLinks(resp)
}

// SendInvite creates a partner invite for a slot
func (r *PartnerRepository) SendInvite(ctx context.Context, slot models.Slot, partnerID string) (*models.PartnerInvite, error) {
	body := map[string]string{"slot": string(slot), "partnerId": partnerID}
	resp, err := r.client.do(ctx, http.MethodPost, "/users/partner-invites", nil, body)
	if err != nil {
		return nil, fmt.Errorf("failed to send partner invite: %w", err)
	}
	var payload struct {
		Invite *models.PartnerInvite `json:"invite"`
	}
	if _, err := decode(resp, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode partner invite: %w", err)
	}
	return payload.Invite, nil
}

// IncomingInvites lists pending invites addressed to the user
func (r *PartnerRepository) IncomingInvites(ctx context.Context) ([]models.PartnerInvite, error) {
	resp, err := r.client.do(ctx, http.MethodGet, "/users/partner-invites/incoming", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get incoming invites: %w", err)
	}
	var payload struct {
		Invites []models.PartnerInvite `json:"invites"`
	}
	if _, err := decode(resp, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode incoming invites: %w", err)
	}

	pending := payload.Invites[:0]
	for _, inv := range payload.Invites {
		if inv.Status == "" || inv.Status == models.InvitePending {
			pending = append(pending, inv)
		}
	}
	return pending, nil
}

// AcceptInvite accepts an incoming invite
func (r *PartnerRepository) AcceptInvite(ctx context.Context, inviteID string) error {
	if _, err := r.client.do(ctx, http.MethodPost, "/users/partner-invites/"+inviteID+"/accept", nil, struct{}{}); err != nil {
		return fmt.Errorf("failed to accept partner invite: %w", err)
	}
	return nil
}

// RefuseInvite refuses an incoming invite
func (r *PartnerRepository) RefuseInvite(ctx context.Context, inviteID string) error {
	if _, err := r.client.do(ctx, http.MethodPost, "/users/partner-invites/"+inviteID+"/refuse", nil, struct{}{}); err != nil {
		return fmt.Errorf("failed to refuse partner invite: %w", err)
	}
	return nil
}

func decodeLinks(resp *response) (*models.PartnerLinksData, error) {
	var data models.PartnerLinksData
	ok, err := decode(resp, &data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode partner links: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("empty partner links response")
	}
	if data.ActiveSlot == "" {
		data.ActiveSlot = models.SlotSolo
	}
	if data.PartnerLinks == nil {
		data.PartnerLinks = []models.PartnerLink{}
	}
	return &data, nil
}
