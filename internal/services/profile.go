package services

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"pact-sync-client/internal/models"

	"github.com/rs/zerolog/log"
)

// ProfileAPI is the remote side of the user's profile
type ProfileAPI interface {
	Profile(ctx context.Context) (*models.User, error)
}

// ProfileStore caches the user's profile and diamond balance
type ProfileStore struct {
	api ProfileAPI

	mu        sync.RWMutex
	user      *models.User
	listeners []func()
}

// NewProfileStore creates a new profile store
func NewProfileStore(api ProfileAPI) *ProfileStore {
	return &ProfileStore{api: api}
}

// OnChange registers fn to run after the profile changes.
func (s *ProfileStore) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// ReloadBalance refetches the profile so the diamond balance is current.
func (s *ProfileStore) ReloadBalance(ctx context.Context) error {
	user, err := s.api.Profile(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to reload diamond balance")
		return fmt.Errorf("failed to reload balance: %w", err)
	}

	s.mu.Lock()
	changed := s.user == nil || s.user.TotalDiamonds != user.TotalDiamonds
	s.user = user
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	if changed {
		log.Info().Int("total_diamonds", user.TotalDiamonds).Msg("Diamond balance updated")
		for _, fn := range listeners {
			fn()
		}
	}
	return nil
}

// Profile returns a copy of the cached profile, or nil.
func (s *ProfileStore) Profile() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Balance returns the cached diamond balance.
func (s *ProfileStore) Balance() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return 0
	}
	return s.user.TotalDiamonds
}

// Reset forgets the cached profile.
func (s *ProfileStore) Reset() {
	s.mu.Lock()
	had := s.user != nil
	s.user = nil
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	if had {
		for _, fn := range listeners {
			fn()
		}
	}
}
