package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"pact-sync-client/internal/config"
	"pact-sync-client/internal/models"
	"pact-sync-client/internal/repository"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ChallengeAPI is the remote side of challenges
type ChallengeAPI interface {
	Current(ctx context.Context, slot models.Slot) (*models.Challenge, error)
	PendingSent(ctx context.Context, slot models.Slot) (*models.Challenge, error)
	Invitations(ctx context.Context) ([]models.Challenge, error)
	SoloHistory(ctx context.Context) ([]models.Challenge, error)
	DuoHistory(ctx context.Context, slot models.Slot, partnerID string) ([]models.Challenge, error)
	Create(ctx context.Context, req *models.CreateChallengeRequest) (*models.Challenge, error)
	Accept(ctx context.Context, challengeID string) (*models.Challenge, error)
	Refuse(ctx context.Context, challengeID string) error
	Update(ctx context.Context, req *models.UpdateChallengeRequest, slot models.Slot) (*models.Challenge, error)
	Delete(ctx context.Context, slot models.Slot) error
	RefreshProgress(ctx context.Context, slot models.Slot) (*models.Challenge, error)
}

// SlotSyncer moves the active slot to the one a challenge belongs to
type SlotSyncer interface {
	Sync(ctx context.Context, challenge *models.Challenge, force bool) (bool, error)
}

// BalanceReloader refreshes the diamond balance
type BalanceReloader interface {
	ReloadBalance(ctx context.Context) error
}

// ChallengeSnapshot is a copy of the challenge store state with the derived
// current challenge and its scoreboard
type ChallengeSnapshot struct {
	Current        *models.Challenge  `json:"current"`
	Score          *Scoreboard        `json:"score,omitempty"`
	PendingSent    *models.Challenge  `json:"pendingSent"`
	Invitations    []models.Challenge `json:"invitations"`
	Loading        bool               `json:"loading"`
	Error          string             `json:"error,omitempty"`
	PollIntervalMs int64              `json:"pollIntervalMs"`
}

// generation identifies the state a load started from. A load applies its
// result only if neither the epoch (slot switch, logout) nor the sequence
// (mutations) moved meanwhile.
type generation struct {
	epoch uint64
	seq   uint64
}

// linearBackOff waits base, 2*base, 3*base, ...
type linearBackOff struct {
	base time.Duration
	n    int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.n++
	return time.Duration(b.n) * b.base
}

func (b *linearBackOff) Reset() {
	b.n = 0
}

// ChallengeStore owns the client view of challenges: the raw current
// challenge of the active slot, received invitations and the pending-sent
// invitation.
type ChallengeStore struct {
	api        ChallengeAPI
	slots      SlotProvider
	viewer     Viewer
	reconciler SlotSyncer
	profile    BalanceReloader
	cfg        config.ChallengeConfig
	poll       config.PollConfig

	mu          sync.RWMutex
	raw         *models.Challenge
	pendingSent *models.Challenge
	invitations []models.Challenge
	loading     bool
	lastErr     string
	epoch       uint64
	seq         uint64
	session     uint64
	signature   string

	mutateMu sync.Mutex

	listenerMu sync.Mutex
	listeners  []func()

	bg      context.Context
	spawn   func(func())
	after   func(time.Duration, func())
	onRetry func(error, time.Duration)
	now     func() time.Time
}

// NewChallengeStore creates a new challenge store
func NewChallengeStore(
	api ChallengeAPI,
	slots SlotProvider,
	viewer Viewer,
	reconciler SlotSyncer,
	profile BalanceReloader,
	cfg config.ChallengeConfig,
	poll config.PollConfig,
) *ChallengeStore {
	s := &ChallengeStore{
		api:         api,
		slots:       slots,
		viewer:      viewer,
		reconciler:  reconciler,
		profile:     profile,
		cfg:         cfg,
		poll:        poll,
		invitations: []models.Challenge{},
		bg:          context.Background(),
		now:         time.Now,
	}
	s.spawn = func(fn func()) { go fn() }
	s.after = func(d time.Duration, fn func()) { time.AfterFunc(d, fn) }
	s.onRetry = func(err error, d time.Duration) {
		log.Warn().Err(err).Dur("delay", d).Msg("Retrying progress refresh")
	}
	s.signature = s.stateSignature()
	return s
}

// OnChange registers fn to run after a visible state change.
func (s *ChallengeStore) OnChange(fn func()) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *ChallengeStore) publish(changed bool) {
	if !changed {
		return
	}
	s.listenerMu.Lock()
	listeners := slices.Clone(s.listeners)
	s.listenerMu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// challengeSignature covers the fields whose change must be re-published.
func challengeSignature(ch *models.Challenge) string {
	if ch == nil {
		return "-"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%s|%t|%t|%g|%s|%s", ch.ID, ch.Status, ch.Mode,
		ch.BonusEarned, ch.BonusAwarded, ch.Goal.Value, ch.Title, ch.Icon)
	for _, p := range ch.Players {
		fmt.Fprintf(&b, "|%s:%g:%d:%t", p.User.ID, p.Progress, p.Diamonds, p.Completed)
	}
	return b.String()
}

// stateSignature summarises the published state. Callers hold s.mu.
func (s *ChallengeStore) stateSignature() string {
	parts := []string{challengeSignature(s.raw), challengeSignature(s.pendingSent)}
	for i := range s.invitations {
		parts = append(parts, challengeSignature(&s.invitations[i]))
	}
	parts = append(parts, fmt.Sprintf("%t", s.loading), s.lastErr)
	return strings.Join(parts, "#")
}

// touch records the new signature and reports whether it changed. Callers
// hold s.mu.
func (s *ChallengeStore) touch() bool {
	sig := s.stateSignature()
	if sig == s.signature {
		return false
	}
	s.signature = sig
	return true
}

func (s *ChallengeStore) generation() generation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return generation{epoch: s.epoch, seq: s.seq}
}

// isCurrent reports whether g still describes the store and was not taken
// while a mutation was in flight (odd seq). Callers hold s.mu.
func (s *ChallengeStore) isCurrent(g generation) bool {
	return g.seq%2 == 0 && g == generation{epoch: s.epoch, seq: s.seq}
}

// beginMutation serialises mutations and invalidates loads in flight. It
// returns the session counter the mutation must still match to apply.
func (s *ChallengeStore) beginMutation() uint64 {
	s.mutateMu.Lock()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.loading = true
	return s.session
}

func (s *ChallengeStore) endMutation() {
	s.mu.Lock()
	s.seq++
	s.loading = false
	changed := s.touch()
	s.mu.Unlock()
	s.mutateMu.Unlock()
	s.publish(changed)
}

func (s *ChallengeStore) viewerID() string {
	if s.viewer == nil {
		return ""
	}
	return s.viewer.UserID()
}

func (s *ChallengeStore) authenticated() bool {
	return s.viewer == nil || s.viewer.Authenticated()
}

// querySlot is the slot passed to slot-scoped endpoints. Before the user
// has picked a slot the unfiltered query is used.
func (s *ChallengeStore) querySlot() models.Slot {
	if !s.slots.HasSelectedSlot() {
		return ""
	}
	return s.slots.ActiveSlot()
}

// actionFailed records and returns a failed user action.
func (s *ChallengeStore) actionFailed(op, message string, err error) error {
	log.Error().Err(err).Str("op", op).Msg("Challenge action failed")
	s.mu.Lock()
	s.lastErr = message
	changed := s.touch()
	s.mu.Unlock()
	s.publish(changed)
	return &ActionError{Op: op, Message: message, Err: err}
}

// CurrentChallenge returns the current challenge as filtered for the active
// slot, or nil.
func (s *ChallengeStore) CurrentChallenge() *models.Challenge {
	slot := s.slots.ActiveSlot()
	viewerID := s.viewerID()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CurrentFor(s.raw, slot, viewerID).Clone()
}

// PendingSent returns the duo invitation the user sent, or nil.
func (s *ChallengeStore) PendingSent() *models.Challenge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pendingSent.Clone()
}

// Invitations returns the received duo invitations.
func (s *ChallengeStore) Invitations() []models.Challenge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.invitations)
}

// PollInterval is the fast interval while a sent duo invitation is pending,
// the normal one otherwise.
func (s *ChallengeStore) PollInterval() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p := s.pendingSent; p != nil && p.Mode == models.ModeDuo && p.Status == models.StatusPending {
		return s.poll.ChallengeFastInterval
	}
	return s.poll.ChallengeInterval
}

// Snapshot returns the store state with the derived projections.
func (s *ChallengeStore) Snapshot() ChallengeSnapshot {
	current := s.CurrentChallenge()
	interval := s.PollInterval()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ChallengeSnapshot{
		Current:        current,
		Score:          ProjectScore(current, s.viewerID(), s.now()),
		PendingSent:    s.pendingSent.Clone(),
		Invitations:    slices.Clone(s.invitations),
		Loading:        s.loading,
		Error:          s.lastErr,
		PollIntervalMs: interval.Milliseconds(),
	}
}

// LoadCurrentChallenge reloads the current challenge. A pending challenge
// created by the user goes to PendingSent instead. Before the user has
// picked a slot the result also drives the reconciler.
func (s *ChallengeStore) LoadCurrentChallenge(ctx context.Context) error {
	g := s.generation()
	ch, err := s.api.Current(ctx, s.querySlot())
	if err != nil {
		log.Debug().Err(err).Msg("Failed to load current challenge")
		return fmt.Errorf("failed to load current challenge: %w", err)
	}

	viewerID := s.viewerID()
	placement := PlacementOf(ch, viewerID)

	s.mu.Lock()
	if !s.isCurrent(g) {
		s.mu.Unlock()
		log.Debug().Msg("Discarding stale current challenge response")
		return nil
	}
	switch placement {
	case PlacePendingSent:
		s.raw = nil
		s.pendingSent = ch
	case PlaceCurrent:
		s.raw = ch
		if s.pendingSent != nil && s.pendingSent.ID == ch.ID {
			s.pendingSent = nil
		}
	default:
		s.raw = nil
	}
	changed := s.touch()
	s.mu.Unlock()
	s.publish(changed)

	if (placement == PlaceCurrent || placement == PlacePendingSent) && !s.slots.HasSelectedSlot() {
		if _, err := s.reconciler.Sync(ctx, ch, false); err != nil {
			log.Warn().Err(err).Str("challenge_id", ch.ID).Msg("Failed to sync slot to challenge")
		}
	}
	return nil
}

// LoadPendingSent reloads the duo invitation the user sent. It is skipped
// while a challenge is visible for the active slot.
func (s *ChallengeStore) LoadPendingSent(ctx context.Context) error {
	if s.CurrentChallenge() != nil {
		return nil
	}

	g := s.generation()
	ch, err := s.api.PendingSent(ctx, "")
	if err != nil {
		log.Debug().Err(err).Msg("Failed to load pending sent challenge")
		return fmt.Errorf("failed to load pending sent challenge: %w", err)
	}
	if PlacementOf(ch, s.viewerID()) != PlacePendingSent {
		ch = nil
	}

	s.mu.Lock()
	if !s.isCurrent(g) {
		s.mu.Unlock()
		return nil
	}
	s.pendingSent = ch
	changed := s.touch()
	s.mu.Unlock()
	s.publish(changed)
	return nil
}

// LoadInvitations reloads received duo invitations, dropping any the user
// created.
func (s *ChallengeStore) LoadInvitations(ctx context.Context) error {
	g := s.generation()
	list, err := s.api.Invitations(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to load challenge invitations")
		return fmt.Errorf("failed to load invitations: %w", err)
	}

	viewerID := s.viewerID()
	received := make([]models.Challenge, 0, len(list))
	for _, ch := range list {
		if ch.IsCreator(viewerID) {
			continue
		}
		if ch.Status != "" && ch.Status != models.StatusPending {
			continue
		}
		received = append(received, ch)
	}

	s.mu.Lock()
	if !s.isCurrent(g) {
		s.mu.Unlock()
		return nil
	}
	s.invitations = received
	changed := s.touch()
	s.mu.Unlock()
	s.publish(changed)
	return nil
}

// RefreshAll reloads the current challenge and invitations concurrently,
// then the pending-sent invitation.
func (s *ChallengeStore) RefreshAll(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return s.LoadCurrentChallenge(ctx) })
	g.Go(func() error { return s.LoadInvitations(ctx) })
	err := g.Wait()
	if perr := s.LoadPendingSent(ctx); err == nil {
		err = perr
	}
	return err
}

// CreateChallenge creates a challenge. A solo challenge becomes current; a
// duo one becomes the pending-sent invitation.
func (s *ChallengeStore) CreateChallenge(ctx context.Context, req *models.CreateChallengeRequest) (*models.Challenge, error) {
	if !s.authenticated() {
		return nil, ErrNotAuthenticated
	}
	if req == nil {
		return nil, &ValidationError{Message: "Missing challenge"}
	}

	r := *req
	if r.Mode == models.ModeSolo {
		r.PartnerID = ""
	}
	if r.Mode == models.ModeDuo && r.PartnerID == "" {
		if l, ok := linkFor(s.slots.Links(), s.slots.ActiveSlot()); ok {
			r.PartnerID = l.PartnerID
		}
	}
	if r.Title == "" {
		r.Title = GenerateTitle(r.ActivityTypes, r.Goal)
	}
	if r.Icon == "" {
		r.Icon = DefaultIcon(r.ActivityTypes)
	}
	if err := validate.Struct(&r); err != nil {
		return nil, validationError(err)
	}
	viewerID := s.viewerID()
	if r.Mode == models.ModeDuo && r.PartnerID == viewerID {
		return nil, &ValidationError{Field: "PartnerID", Message: "You cannot challenge yourself"}
	}

	session := s.beginMutation()
	ch, err := s.api.Create(ctx, &r)
	if err != nil {
		s.endMutation()
		return nil, s.actionFailed("create challenge", repository.UserMessage(err, "Could not create the challenge"), err)
	}

	s.mu.Lock()
	applied := s.session == session
	if applied {
		if PlacementOf(ch, viewerID) == PlaceCurrent {
			s.raw = ch
		} else {
			s.raw = nil
			s.pendingSent = ch
		}
		s.lastErr = ""
	}
	s.mu.Unlock()

	if applied {
		log.Info().Str("challenge_id", ch.ID).Str("mode", string(ch.Mode)).Msg("Challenge created")
		if _, err := s.reconciler.Sync(ctx, ch, true); err != nil {
			log.Warn().Err(err).Str("challenge_id", ch.ID).Msg("Failed to sync slot after create")
		}
	}
	s.endMutation()

	if applied && ch.Mode == models.ModeDuo {
		s.after(s.cfg.InvitationRefreshDelay, func() {
			// both log their own failures
			_ = s.LoadInvitations(s.bg)
			_ = s.LoadPendingSent(s.bg)
		})
	}
	return ch, nil
}

// AcceptInvitation accepts a duo invitation, moves to its slot and makes it
// current.
func (s *ChallengeStore) AcceptInvitation(ctx context.Context, challengeID string) (*models.Challenge, error) {
	if !s.authenticated() {
		return nil, ErrNotAuthenticated
	}
	if challengeID == "" {
		return nil, &ValidationError{Field: "id", Message: "Missing invitation"}
	}

	session := s.beginMutation()
	ch, err := s.api.Accept(ctx, challengeID)
	if err != nil {
		msg := repository.UserMessage(err, "Could not accept the invitation")
		switch repository.StatusCode(err) {
		case http.StatusConflict:
			msg = "You already have a challenge in progress"
		case http.StatusNotFound:
			msg = "This invitation no longer exists"
			s.mu.Lock()
			s.invitations = withoutChallenge(s.invitations, challengeID)
			s.mu.Unlock()
		}
		s.endMutation()
		return nil, s.actionFailed("accept invitation", msg, err)
	}

	if _, err := s.reconciler.Sync(ctx, ch, true); err != nil {
		log.Warn().Err(err).Str("challenge_id", ch.ID).Msg("Failed to sync slot after accept")
	}

	s.mu.Lock()
	if s.session == session {
		s.raw = ch
		s.invitations = withoutChallenge(s.invitations, challengeID)
		if s.pendingSent != nil && s.pendingSent.ID == challengeID {
			s.pendingSent = nil
		}
		s.lastErr = ""
	}
	s.mu.Unlock()
	s.endMutation()

	log.Info().Str("challenge_id", ch.ID).Msg("Challenge invitation accepted")
	return ch, nil
}

// RefuseInvitation refuses a duo invitation. The invitation is removed
// right away and restored if the server rejects the refusal.
func (s *ChallengeStore) RefuseInvitation(ctx context.Context, challengeID string) error {
	if !s.authenticated() {
		return ErrNotAuthenticated
	}
	if challengeID == "" {
		return &ValidationError{Field: "id", Message: "Missing invitation"}
	}

	session := s.beginMutation()
	s.mu.Lock()
	snapshot := slices.Clone(s.invitations)
	s.invitations = withoutChallenge(s.invitations, challengeID)
	changed := s.touch()
	s.mu.Unlock()
	s.publish(changed)

	err := s.api.Refuse(ctx, challengeID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.mu.Lock()
		if s.session == session {
			s.invitations = snapshot
		}
		s.mu.Unlock()
		s.endMutation()
		return s.actionFailed("refuse invitation", repository.UserMessage(err, "Could not refuse the invitation"), err)
	}
	s.endMutation()

	log.Info().Str("challenge_id", challengeID).Msg("Challenge invitation refused")
	return nil
}

// UpdateChallenge edits the current challenge. The edit shows right away
// and is rolled back if the server rejects it.
func (s *ChallengeStore) UpdateChallenge(ctx context.Context, req *models.UpdateChallengeRequest) (*models.Challenge, error) {
	if !s.authenticated() {
		return nil, ErrNotAuthenticated
	}
	if req == nil {
		return nil, &ValidationError{Message: "Missing challenge"}
	}
	if s.CurrentChallenge() == nil {
		return nil, ErrNoChallenge
	}

	r := *req
	if r.Title == "" {
		r.Title = GenerateTitle(r.ActivityTypes, r.Goal)
	}
	if r.Icon == "" {
		r.Icon = DefaultIcon(r.ActivityTypes)
	}
	if err := validate.Struct(&r); err != nil {
		return nil, validationError(err)
	}

	session := s.beginMutation()
	s.mu.Lock()
	snapshot := s.raw
	if s.raw != nil {
		optimistic := s.raw.Clone()
		optimistic.Goal = r.Goal
		optimistic.ActivityTypes = slices.Clone(r.ActivityTypes)
		optimistic.Title = r.Title
		optimistic.Icon = r.Icon
		s.raw = optimistic
	}
	changed := s.touch()
	s.mu.Unlock()
	s.publish(changed)

	ch, err := s.api.Update(ctx, &r, s.querySlot())
	if err != nil {
		s.mu.Lock()
		if s.session == session {
			s.raw = snapshot
		}
		s.mu.Unlock()
		s.endMutation()
		return nil, s.actionFailed("update challenge", repository.UserMessage(err, "Could not update the challenge"), err)
	}

	s.mu.Lock()
	if s.session == session {
		s.raw = ch
		s.lastErr = ""
	}
	s.mu.Unlock()
	s.endMutation()

	log.Info().Str("challenge_id", ch.ID).Msg("Challenge updated")
	return ch, nil
}

// DeleteChallenge ends the challenge of the active slot, including a
// pending-sent invitation, then reloads the diamond balance. An already
// missing challenge counts as deleted.
func (s *ChallengeStore) DeleteChallenge(ctx context.Context) error {
	if !s.authenticated() {
		return ErrNotAuthenticated
	}

	session := s.beginMutation()
	s.mu.Lock()
	prevRaw, prevPending := s.raw, s.pendingSent
	s.raw = nil
	s.pendingSent = nil
	changed := s.touch()
	s.mu.Unlock()
	s.publish(changed)

	if err := s.api.Delete(ctx, s.querySlot()); err != nil {
		s.mu.Lock()
		if s.session == session {
			s.raw, s.pendingSent = prevRaw, prevPending
		}
		s.mu.Unlock()
		s.endMutation()
		return s.actionFailed("delete challenge", repository.UserMessage(err, "Could not delete the challenge"), err)
	}
	s.mu.Lock()
	s.lastErr = ""
	s.mu.Unlock()
	s.endMutation()

	log.Info().Msg("Challenge deleted")
	if s.profile != nil {
		// logged by the profile store; the delete itself succeeded
		_ = s.profile.ReloadBalance(ctx)
	}
	return nil
}

// RefreshProgress asks the server to recompute the current challenge's
// progress, retrying network errors and 5xx with a linear backoff. A
// missing challenge clears the current one. A pending result is ignored.
func (s *ChallengeStore) RefreshProgress(ctx context.Context) (*models.Challenge, error) {
	if !s.authenticated() {
		return nil, ErrNotAuthenticated
	}

	g := s.generation()
	slot := s.querySlot()
	op := func() (*models.Challenge, error) {
		ch, err := s.api.RefreshProgress(ctx, slot)
		if err != nil && !repository.IsTransient(err) {
			return nil, backoff.Permanent(err)
		}
		return ch, err
	}
	ch, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(&linearBackOff{base: s.cfg.RetryBaseDelay}),
		backoff.WithMaxTries(uint(s.cfg.MaxRetries+1)),
		backoff.WithNotify(func(err error, d time.Duration) { s.onRetry(err, d) }),
	)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to refresh challenge progress")
		return nil, &ActionError{
			Op:      "refresh progress",
			Message: repository.UserMessage(err, "Could not refresh the challenge"),
			Err:     err,
		}
	}

	if ch != nil && ch.Status == models.StatusPending {
		log.Debug().Str("challenge_id", ch.ID).Msg("Ignoring pending challenge from progress refresh")
		return s.CurrentChallenge(), nil
	}

	s.mu.Lock()
	if !s.isCurrent(g) {
		s.mu.Unlock()
		log.Debug().Msg("Discarding stale progress refresh")
		return s.CurrentChallenge(), nil
	}
	s.raw = ch
	changed := s.touch()
	s.mu.Unlock()
	s.publish(changed)

	if ch != nil && ch.Mode == models.ModeDuo && ch.BonusEarned && !ch.BonusAwarded {
		log.Info().Str("challenge_id", ch.ID).Msg("Duo bonus earned, scheduling reload")
		s.after(s.cfg.BonusReloadDelay, func() {
			_ = s.LoadCurrentChallenge(s.bg)
			if s.profile != nil {
				_ = s.profile.ReloadBalance(s.bg)
			}
		})
	}
	return s.CurrentChallenge(), nil
}

// SoloHistory lists past solo challenges. Failures degrade to empty.
func (s *ChallengeStore) SoloHistory(ctx context.Context) []models.Challenge {
	list, err := s.api.SoloHistory(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to load solo history")
		return []models.Challenge{}
	}
	return list
}

// DuoHistory lists past duo challenges with the partner of the active slot.
// Failures degrade to empty.
func (s *ChallengeStore) DuoHistory(ctx context.Context) []models.Challenge {
	slot := s.slots.ActiveSlot()
	if !slot.IsPartner() {
		return []models.Challenge{}
	}
	partnerID := ""
	if l, ok := linkFor(s.slots.Links(), slot); ok {
		partnerID = l.PartnerID
	}
	list, err := s.api.DuoHistory(ctx, slot, partnerID)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to load duo history")
		return []models.Challenge{}
	}
	return list
}

// HandleSlotChanged reacts to a new active slot: responses still in flight
// are discarded and the store reloads. The raw challenge is kept only if it
// belongs to the new slot.
func (s *ChallengeStore) HandleSlotChanged(slot models.Slot) {
	links := s.slots.Links()
	viewerID := s.viewerID()

	s.mu.Lock()
	s.epoch++
	if desired, ok := DesiredSlot(s.raw, links, viewerID); !ok || desired != slot {
		s.raw = nil
	}
	changed := s.touch()
	s.mu.Unlock()
	s.publish(changed)

	if s.authenticated() {
		s.spawn(func() { s.RefreshAll(s.bg) })
	}
}

// Reset clears the store after logout. Responses and mutations still in
// flight are discarded.
func (s *ChallengeStore) Reset() {
	s.mu.Lock()
	s.epoch++
	s.session++
	s.raw = nil
	s.pendingSent = nil
	s.invitations = []models.Challenge{}
	s.lastErr = ""
	changed := s.touch()
	s.mu.Unlock()
	s.publish(changed)
}

func withoutChallenge(list []models.Challenge, id string) []models.Challenge {
	out := make([]models.Challenge, 0, len(list))
	for _, ch := range list {
		if ch.ID != id {
			out = append(out, ch)
		}
	}
	return out
}
