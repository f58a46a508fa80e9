package services

import (
	"context"
	"fmt"

	"pact-sync-client/internal/models"
	"pact-sync-client/internal/repository"

	"github.com/rs/zerolog/log"
)

// ActivityAPI is the remote activity log
type ActivityAPI interface {
	List(ctx context.Context) ([]models.Activity, error)
	Shared(ctx context.Context, partnerID string) ([]models.Activity, error)
	DuoCurrent(ctx context.Context) ([]models.Activity, error)
	Create(ctx context.Context, req *models.NewActivityRequest) (*models.Activity, error)
	Delete(ctx context.Context, id string) error
}

// ProgressSource is the part of the challenge store the feed needs
type ProgressSource interface {
	CurrentChallenge() *models.Challenge
	RefreshProgress(ctx context.Context) (*models.Challenge, error)
}

// PlayerProgress is one player's counted activities toward a challenge
type PlayerProgress struct {
	UserID     string            `json:"userId"`
	Activities []models.Activity `json:"activities"`
	Stats      ChallengeStats    `json:"stats"`
}

// ChallengeProgress is the activity breakdown of the current challenge
type ChallengeProgress struct {
	Challenge *models.Challenge `json:"challenge"`
	Me        PlayerProgress    `json:"me"`
	Partner   *PlayerProgress   `json:"partner,omitempty"`
}

// ActivityFeed reads and writes the activity log and relates it to the
// current challenge
type ActivityFeed struct {
	api        ActivityAPI
	slots      SlotProvider
	challenges ProgressSource
	viewer     Viewer
}

// NewActivityFeed creates a new activity feed
func NewActivityFeed(api ActivityAPI, slots SlotProvider, challenges ProgressSource, viewer Viewer) *ActivityFeed {
	return &ActivityFeed{api: api, slots: slots, challenges: challenges, viewer: viewer}
}

// Own lists the user's activities. Failures degrade to empty.
func (f *ActivityFeed) Own(ctx context.Context) []models.Activity {
	list, err := f.api.List(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to load activities")
		return []models.Activity{}
	}
	return list
}

// sharedPartner picks whose shared activities to show: the confirmed
// partner of the active slot, or while a duo challenge is current the
// confirmed partner playing it.
func (f *ActivityFeed) sharedPartner() (string, bool) {
	links := f.slots.Links()
	if l, ok := linkFor(links, f.slots.ActiveSlot()); ok && l.Status == models.LinkConfirmed {
		return l.PartnerID, true
	}
	current := f.challenges.CurrentChallenge()
	if current == nil || current.Mode != models.ModeDuo {
		return "", false
	}
	other, ok := current.OtherPlayer(f.viewer.UserID())
	if !ok {
		return "", false
	}
	for _, l := range links {
		if l.PartnerID == other.User.ID && l.Status == models.LinkConfirmed {
			return l.PartnerID, true
		}
	}
	return "", false
}

// Shared lists the activities shared by the relevant confirmed partner.
// Failures and a missing partner degrade to empty.
func (f *ActivityFeed) Shared(ctx context.Context) []models.Activity {
	partnerID, ok := f.sharedPartner()
	if !ok {
		return []models.Activity{}
	}
	list, err := f.api.Shared(ctx, partnerID)
	if err != nil {
		log.Debug().Err(err).Str("partner_id", partnerID).Msg("Failed to load shared activities")
		return []models.Activity{}
	}
	return list
}

// Progress breaks the current challenge down into counted activities and
// stats per player. It returns nil when no challenge is current.
func (f *ActivityFeed) Progress(ctx context.Context) (*ChallengeProgress, error) {
	current := f.challenges.CurrentChallenge()
	if current == nil {
		return nil, nil
	}
	viewerID := f.viewer.UserID()

	var (
		list []models.Activity
		err  error
	)
	if current.Mode == models.ModeDuo {
		list, err = f.api.DuoCurrent(ctx)
	} else {
		list, err = f.api.List(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load challenge activities: %w", err)
	}

	counted := CountedActivities(list, current)
	out := &ChallengeProgress{Challenge: current}
	out.Me = playerProgress(viewerID, counted, current, true)
	if current.Mode == models.ModeDuo {
		if other, ok := current.OtherPlayer(viewerID); ok {
			p := playerProgress(other.User.ID, counted, current, false)
			out.Partner = &p
		}
	}
	return out, nil
}

// playerProgress keeps the activities of userID. Activities without a
// user belong to the viewer.
func playerProgress(userID string, counted []models.Activity, challenge *models.Challenge, viewer bool) PlayerProgress {
	mine := make([]models.Activity, 0, len(counted))
	for _, a := range counted {
		if a.User.ID == userID || (viewer && a.User.ID == "") {
			mine = append(mine, a)
		}
	}
	return PlayerProgress{
		UserID:     userID,
		Activities: mine,
		Stats:      SummarizeCounted(mine, challenge.Goal.Type),
	}
}

// Add logs an activity, then refreshes the challenge progress.
func (f *ActivityFeed) Add(ctx context.Context, req *models.NewActivityRequest) (*models.Activity, error) {
	if !f.viewer.Authenticated() {
		return nil, ErrNotAuthenticated
	}
	if req == nil {
		return nil, &ValidationError{Message: "Missing activity"}
	}
	if err := validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	activity, err := f.api.Create(ctx, req)
	if err != nil {
		log.Error().Err(err).Msg("Failed to add activity")
		return nil, &ActionError{Op: "add activity", Message: repository.UserMessage(err, "Could not save the activity"), Err: err}
	}
	log.Info().Str("activity_id", activity.ID).Str("type", string(activity.Type)).Msg("Activity added")

	f.refreshProgress(ctx)
	return activity, nil
}

// Delete removes an activity, then refreshes the challenge progress.
func (f *ActivityFeed) Delete(ctx context.Context, id string) error {
	if !f.viewer.Authenticated() {
		return ErrNotAuthenticated
	}
	if id == "" {
		return &ValidationError{Field: "id", Message: "Missing activity"}
	}
	if err := f.api.Delete(ctx, id); err != nil {
		log.Error().Err(err).Str("activity_id", id).Msg("Failed to delete activity")
		return &ActionError{Op: "delete activity", Message: repository.UserMessage(err, "Could not delete the activity"), Err: err}
	}
	log.Info().Str("activity_id", id).Msg("Activity deleted")

	f.refreshProgress(ctx)
	return nil
}

func (f *ActivityFeed) refreshProgress(ctx context.Context) {
	if _, err := f.challenges.RefreshProgress(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to refresh progress after activity change")
	}
}
