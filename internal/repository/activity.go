package repository

import (
	"context"
	"fmt"
	"net/http"

	"pact-sync-client/internal/models"
)

// ActivityRepository handles remote operations on activities
type ActivityRepository struct {
	client *Client
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(client *Client) *ActivityRepository {
	return &ActivityRepository{client: client}
}

// List retrieves the user's own activities
func (r *ActivityRepository) List(ctx context.Context) ([]models.Activity, error) {
	return r.list(ctx, "/activities")
}

// Shared retrieves activities shared with a confirmed partner
func (r *ActivityRepository) Shared(ctx context.Context, partnerID string) ([]models.Activity, error) {
	return r.list(ctx, "/activities/shared/"+partnerID)
}

// DuoCurrent retrieves both players' activities for the current duo challenge
func (r *ActivityRepository) DuoCurrent(ctx context.Context) ([]models.Activity, error) {
	return r.list(ctx, "/activities/duo/current")
}

// Create logs a new activity
func (r *ActivityRepository) Create(ctx context.Context, req *models.NewActivityRequest) (*models.Activity, error) {
	resp, err := r.client.do(ctx, http.MethodPost, "/activities", nil, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create activity: %w", err)
	}
	var activity models.Activity
	ok, err := decode(resp, &activity)
	if err != nil {
		return nil, fmt.Errorf("failed to decode activity: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("create activity: empty response")
	}
	return &activity, nil
}

// Delete removes an activity by ID
func (r *ActivityRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.client.do(ctx, http.MethodDelete, "/activities/"+id, nil, nil); err != nil {
		return fmt.Errorf("failed to delete activity: %w", err)
	}
	return nil
}

func (r *ActivityRepository) list(ctx context.Context, path string) ([]models.Activity, error) {
	resp, err := r.client.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get activities: %w", err)
	}
	var activities []models.Activity
	if _, err := decode(resp, &activities); err != nil {
		return nil, fmt.Errorf("failed to decode activities: %w", err)
	}
	if activities == nil {
		activities = []models.Activity{}
	}
	return activities, nil
}
