package services

import (
	"context"

	"pact-sync-client/internal/config"

	"github.com/rs/zerolog/log"
)

// State is the full client view published over the bridge
type State struct {
	Authenticated bool              `json:"authenticated"`
	UserID        string            `json:"userId,omitempty"`
	TotalDiamonds int               `json:"totalDiamonds"`
	Partners      PartnerSnapshot   `json:"partners"`
	Challenges    ChallengeSnapshot `json:"challenges"`
}

// Engine groups the stores of one signed-in client
type Engine struct {
	Session    *Session
	Partners   *PartnerStore
	Challenges *ChallengeStore
	Profile    *ProfileStore
	Activities *ActivityFeed
	Reconciler *Reconciler
}

// NewEngine wires the stores together: slot changes reach the challenge
// store and logout clears every store. The profile goes first so no state
// published during logout carries the old balance.
func NewEngine(session *Session, partnerAPI PartnerAPI, challengeAPI ChallengeAPI, profileAPI ProfileAPI, activityAPI ActivityAPI, cfg *config.Config) *Engine {
	partners := NewPartnerStore(partnerAPI, session)
	profile := NewProfileStore(profileAPI)
	reconciler := NewReconciler(partners, partners, session)
	challenges := NewChallengeStore(challengeAPI, partners, session, reconciler, profile, cfg.Challenge, cfg.Poll)
	activities := NewActivityFeed(activityAPI, partners, challenges, session)

	partners.OnSlotChanged(challenges.HandleSlotChanged)
	session.OnLogout(func() {
		profile.Reset()
		partners.Reset()
		challenges.Reset()
	})

	return &Engine{
		Session:    session,
		Partners:   partners,
		Challenges: challenges,
		Profile:    profile,
		Activities: activities,
		Reconciler: reconciler,
	}
}

// OnChange registers fn to run after any store changes.
func (e *Engine) OnChange(fn func()) {
	e.Partners.OnChange(fn)
	e.Challenges.OnChange(fn)
	e.Profile.OnChange(fn)
}

// State returns a snapshot of every store.
func (e *Engine) State() State {
	return State{
		Authenticated: e.Session.Authenticated(),
		UserID:        e.Session.UserID(),
		TotalDiamonds: e.Profile.Balance(),
		Partners:      e.Partners.Snapshot(),
		Challenges:    e.Challenges.Snapshot(),
	}
}

// Refresh loads every store from the server: links first so the challenge
// queries use the right slot.
func (e *Engine) Refresh(ctx context.Context) {
	if !e.Session.Authenticated() {
		return
	}
	e.Partners.LoadLinks(ctx, false)
	e.Partners.RefreshIncomingInvites(ctx)
	if err := e.Challenges.RefreshAll(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to load challenges")
	}
	_ = e.Profile.ReloadBalance(ctx)
}
