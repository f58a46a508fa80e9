package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"pact-sync-client/internal/models"
)

// ChallengeRepository handles remote operations on challenges
type ChallengeRepository struct {
	client *Client
}

// NewChallengeRepository creates a new challenge repository
func NewChallengeRepository(client *Client) *ChallengeRepository {
	return &ChallengeRepository{client: client}
}

// Current retrieves the active challenge. An empty slot asks the server for
// the unfiltered current challenge. A missing challenge returns nil, nil.
func (r *ChallengeRepository) Current(ctx context.Context, slot models.Slot) (*models.Challenge, error) {
	resp, err := r.client.do(ctx, http.MethodGet, "/challenges/current", slotQuery(string(slot)), nil)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get current challenge: %w", err)
	}
	return decodeChallenge(resp)
}

// PendingSent retrieves the duo invitation the user sent and is still
// waiting on. A 404, an empty body or a non-JSON body all mean none.
func (r *ChallengeRepository) PendingSent(ctx context.Context, slot models.Slot) (*models.Challenge, error) {
	resp, err := r.client.do(ctx, http.MethodGet, "/challenges/pending-sent", slotQuery(string(slot)), nil)
	if err != nil {
		if errors.Is(err, ErrNotFound) || (resp != nil && !resp.isJSON()) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get pending sent challenge: %w", err)
	}
	if !resp.isJSON() {
		return nil, nil
	}
	return decodeChallenge(resp)
}

// Invitations lists challenges where the user is an invited, not yet
// accepted player
func (r *ChallengeRepository) Invitations(ctx context.Context) ([]models.Challenge, error) {
	return r.list(ctx, "/challenges/invitations", nil)
}

// SoloHistory lists the user's past solo challenges
func (r *ChallengeRepository) SoloHistory(ctx context.Context) ([]models.Challenge, error) {
	return r.list(ctx, "/challenges/solo/history", nil)
}

// DuoHistory lists past duo challenges for a partner slot
func (r *ChallengeRepository) DuoHistory(ctx context.Context, slot models.Slot, partnerID string) ([]models.Challenge, error) {
	query := url.Values{"slot": []string{string(slot)}}
	if partnerID != "" {
		query.Set("partnerId", partnerID)
	}
	return r.list(ctx, "/challenges/duo/history", query)
}

// Create creates a solo or duo challenge
func (r *ChallengeRepository) Create(ctx context.Context, req *models.CreateChallengeRequest) (*models.Challenge, error) {
	resp, err := r.client.do(ctx, http.MethodPost, "/challenges", nil, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create challenge: %w", err)
	}
	return requireChallenge(resp, "create")
}

// Accept accepts a duo invitation
func (r *ChallengeRepository) Accept(ctx context.Context, challengeID string) (*models.Challenge, error) {
	resp, err := r.client.do(ctx, http.MethodPost, "/challenges/"+challengeID+"/accept", nil, struct{}{})
	if err != nil {
		return nil, fmt.Errorf("failed to accept challenge: %w", err)
	}
	return requireChallenge(resp, "accept")
}

// Refuse refuses a duo invitation
func (r *ChallengeRepository) Refuse(ctx context.Context, challengeID string) error {
	if _, err := r.client.do(ctx, http.MethodPost, "/challenges/"+challengeID+"/refuse", nil, struct{}{}); err != nil {
		return fmt.Errorf("failed to refuse challenge: %w", err)
	}
	return nil
}

// Update edits the current challenge of a slot
func (r *ChallengeRepository) Update(ctx context.Context, req *models.UpdateChallengeRequest, slot models.Slot) (*models.Challenge, error) {
	resp, err := r.client.do(ctx, http.MethodPut, "/challenges/current", slotQuery(string(slot)), req)
	if err != nil {
		return nil, fmt.Errorf("failed to update challenge: %w", err)
	}
	return requireChallenge(resp, "update")
}

// Delete ends the current challenge of a slot. An already missing challenge
// counts as deleted.
func (r *ChallengeRepository) Delete(ctx context.Context, slot models.Slot) error {
	if _, err := r.client.do(ctx, http.MethodDelete, "/challenges/current", slotQuery(string(slot)), nil); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete challenge: %w", err)
	}
	return nil
}

// RefreshProgress asks the server to recompute the current challenge's
// progress. A missing challenge returns nil, nil.
func (r *ChallengeRepository) RefreshProgress(ctx context.Context, slot models.Slot) (*models.Challenge, error) {
	resp, err := r.client.do(ctx, http.MethodPost, "/challenges/refresh-progress", slotQuery(string(slot)), nil)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to refresh progress: %w", err)
	}
	return decodeChallenge(resp)
}

func (r *ChallengeRepository) list(ctx context.Context, path string, query url.Values) ([]models.Challenge, error) {
	resp, err := r.client.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}
	var out []models.Challenge
	if _, err := decode(resp, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Challenge{}
	}
	return out, nil
}

func decodeChallenge(resp *response) (*models.Challenge, error) {
	var ch models.Challenge
	ok, err := decode(resp, &ch)
	if err != nil {
		return nil, err
	}
	if !ok || ch.ID == "" {
		return nil, nil
	}
	return &ch, nil
}

func requireChallenge(resp *response, op string) (*models.Challenge, error) {
	ch, err := decodeChallenge(resp)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, fmt.Errorf("%s challenge: empty response", op)
	}
	return ch, nil
}
