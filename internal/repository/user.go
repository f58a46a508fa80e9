package repository

import (
	"context"
	"fmt"
	"net/http"

	"pact-sync-client/internal/models"
)

// UserRepository handles remote operations on the user's profile
type UserRepository struct {
	client *Client
}

// NewUserRepository creates a new user repository
func NewUserRepository(client *Client) *UserRepository {
	return &UserRepository{client: client}
}

// Profile retrieves the authenticated user's profile, including the diamond
// balance
func (r *UserRepository) Profile(ctx context.Context) (*models.User, error) {
	resp, err := r.client.do(ctx, http.MethodGet, "/users/profile", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	var user models.User
	ok, err := decode(resp, &user)
	if err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("get profile: empty response")
	}
	return &user, nil
}
