package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"pact-sync-client/internal/models"
	"pact-sync-client/internal/repository"

	"github.com/rs/zerolog/log"
)

// PartnerAPI is the remote side of partner links and invites
type PartnerAPI interface {
	GetLinks(ctx context.Context) (*models.PartnerLinksData, error)
	UpdateLinks(ctx context.Context, p1, p2 *string) (*models.PartnerLinksData, error)
	SetActiveSlot(ctx context.Context, slot models.Slot) (*models.PartnerLinksData, error)
	SendInvite(ctx context.Context, slot models.Slot, partnerID string) (*models.PartnerInvite, error)
	IncomingInvites(ctx context.Context) ([]models.PartnerInvite, error)
	AcceptInvite(ctx context.Context, inviteID string) error
	RefuseInvite(ctx context.Context, inviteID string) error
}

// Viewer identifies the signed-in user
type Viewer interface {
	UserID() string
	Authenticated() bool
}

// SlotProvider is the read-only view of the partner slots other stores use
type SlotProvider interface {
	ActiveSlot() models.Slot
	Links() []models.PartnerLink
	HasSelectedSlot() bool
}

// SlotSwitcher activates a slot. PartnerStore is the only implementation.
type SlotSwitcher interface {
	SwitchSlot(ctx context.Context, slot models.Slot) error
}

// PartnerSnapshot is a copy of the partner store state
type PartnerSnapshot struct {
	PartnerLinks    []models.PartnerLink   `json:"partnerLinks"`
	ActiveSlot      models.Slot            `json:"activeSlot"`
	HasSelectedSlot bool                   `json:"hasSelectedSlot"`
	IncomingInvites []models.PartnerInvite `json:"incomingInvites"`
	Loading         bool                   `json:"loading"`
}

// PartnerStore owns the user's partner slots. It is the only writer of the
// active slot.
type PartnerStore struct {
	api    PartnerAPI
	viewer Viewer

	mu              sync.RWMutex
	links           []models.PartnerLink
	activeSlot      models.Slot
	hasSelectedSlot bool
	incoming        []models.PartnerInvite
	loading         bool
	epoch           uint64
	seq             uint64
	signature       string

	mutateMu sync.Mutex

	listenerMu    sync.Mutex
	slotListeners []func(models.Slot)
	listeners     []func()
}

// NewPartnerStore creates a new partner store
func NewPartnerStore(api PartnerAPI, viewer Viewer) *PartnerStore {
	s := &PartnerStore{
		api:        api,
		viewer:     viewer,
		links:      []models.PartnerLink{},
		activeSlot: models.SlotSolo,
		incoming:   []models.PartnerInvite{},
	}
	s.signature = s.stateSignature()
	return s
}

// CheckPartnerConflict rejects linking partnerID in slot when the same
// partner already holds a pending or confirmed link in the other slot.
func CheckPartnerConflict(links []models.PartnerLink, slot models.Slot, partnerID string) error {
	if !slot.IsPartner() {
		return &ValidationError{Field: "slot", Message: "Choose partner slot P1 or P2"}
	}
	if partnerID == "" {
		return &ValidationError{Field: "partnerId", Message: "Choose a partner"}
	}
	for _, l := range links {
		if l.Slot == slot.Other() && l.PartnerID == partnerID && l.Active() {
			return &ValidationError{
				Field:   "partnerId",
				Message: fmt.Sprintf("%s is already your partner in slot %s", l.PartnerDisplay(), l.Slot),
			}
		}
	}
	return nil
}

// OnSlotChanged registers fn to run after the active slot changes.
func (s *PartnerStore) OnSlotChanged(fn func(models.Slot)) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	s.slotListeners = append(s.slotListeners, fn)
}

// OnChange registers fn to run after any state change.
func (s *PartnerStore) OnChange(fn func()) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// stateSignature summarises the published state. Callers hold s.mu.
func (s *PartnerStore) stateSignature() string {
	b, _ := json.Marshal(s.snapshot()) // plain data, cannot fail
	return string(b)
}

// touch records the new signature and reports whether it changed. Callers
// hold s.mu.
func (s *PartnerStore) touch() bool {
	sig := s.stateSignature()
	if sig == s.signature {
		return false
	}
	s.signature = sig
	return true
}

// notify runs the slot listeners when the slot moved and the change
// listeners when the published state did.
func (s *PartnerStore) notify(prevSlot, slot models.Slot, changed bool) {
	s.listenerMu.Lock()
	slotListeners := slices.Clone(s.slotListeners)
	listeners := slices.Clone(s.listeners)
	s.listenerMu.Unlock()

	if prevSlot != slot {
		log.Info().Str("from", string(prevSlot)).Str("to", string(slot)).Msg("Active slot changed")
		for _, fn := range slotListeners {
			fn(slot)
		}
	}
	if !changed {
		return
	}
	for _, fn := range listeners {
		fn()
	}
}

// ActiveSlot returns the active slot.
func (s *PartnerStore) ActiveSlot() models.Slot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeSlot
}

// Links returns a copy of the partner links.
func (s *PartnerStore) Links() []models.PartnerLink {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.links)
}

// HasSelectedSlot reports whether the user ever picked a slot explicitly.
func (s *PartnerStore) HasSelectedSlot() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasSelectedSlot
}

// ActivePartner returns the link of the active slot, if any.
func (s *PartnerStore) ActivePartner() (models.PartnerLink, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return linkFor(s.links, s.activeSlot)
}

func linkFor(links []models.PartnerLink, slot models.Slot) (models.PartnerLink, bool) {
	if !slot.IsPartner() {
		return models.PartnerLink{}, false
	}
	for _, l := range links {
		if l.Slot == slot && l.Active() {
			return l, true
		}
	}
	return models.PartnerLink{}, false
}

// Snapshot returns a copy of the store state.
func (s *PartnerStore) Snapshot() PartnerSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

func (s *PartnerStore) snapshot() PartnerSnapshot {
	return PartnerSnapshot{
		PartnerLinks:    slices.Clone(s.links),
		ActiveSlot:      s.activeSlot,
		HasSelectedSlot: s.hasSelectedSlot,
		IncomingInvites: slices.Clone(s.incoming),
		Loading:         s.loading,
	}
}

// LoadLinks reloads the partner links. A failure resets the store to the
// solo slot with no links; it is logged and never returned. Silent loads
// leave the loading flag alone.
func (s *PartnerStore) LoadLinks(ctx context.Context, silent bool) {
	s.mu.Lock()
	epoch, seq := s.epoch, s.seq
	if !silent {
		s.loading = true
	}
	s.mu.Unlock()

	data, err := s.api.GetLinks(ctx)

	s.mu.Lock()
	if s.epoch != epoch || s.seq != seq || seq%2 != 0 {
		if !silent {
			s.loading = false
		}
		s.mu.Unlock()
		log.Debug().Msg("Discarding stale partner links response")
		return
	}
	prev := s.activeSlot
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load partner links")
		data = &models.PartnerLinksData{PartnerLinks: []models.PartnerLink{}, ActiveSlot: models.SlotSolo}
	}
	s.applyLinks(data)
	if !silent {
		s.loading = false
	}
	slot := s.activeSlot
	changed := s.touch()
	s.mu.Unlock()

	s.notify(prev, slot, changed)
}

// applyLinks replaces the links state. Callers hold s.mu.
func (s *PartnerStore) applyLinks(data *models.PartnerLinksData) {
	s.links = data.PartnerLinks
	if s.links == nil {
		s.links = []models.PartnerLink{}
	}
	s.activeSlot = data.ActiveSlot
	if !s.activeSlot.Valid() {
		s.activeSlot = models.SlotSolo
	}
	s.hasSelectedSlot = data.HasSelectedSlot
}

// beginMutation serialises mutations and invalidates polls in flight.
func (s *PartnerStore) beginMutation() uint64 {
	s.mutateMu.Lock()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.epoch
}

func (s *PartnerStore) endMutation() {
	s.mu.Lock()
	s.seq++
	s.mu.Unlock()
	s.mutateMu.Unlock()
}

// SwitchSlot activates slot on the server and adopts the returned links.
func (s *PartnerStore) SwitchSlot(ctx context.Context, slot models.Slot) error {
	if !slot.Valid() {
		return &ValidationError{Field: "slot", Message: fmt.Sprintf("Unknown slot %q", slot)}
	}
	if s.viewer != nil && !s.viewer.Authenticated() {
		return ErrNotAuthenticated
	}

	epoch := s.beginMutation()
	data, err := s.api.SetActiveSlot(ctx, slot)
	if err != nil {
		s.endMutation()
		log.Error().Err(err).Str("slot", string(slot)).Msg("Failed to switch slot")
		return &ActionError{Op: "switch slot", Message: repository.UserMessage(err, "Could not switch slot"), Err: err}
	}

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		s.endMutation()
		return ErrNotAuthenticated
	}
	prev := s.activeSlot
	data.HasSelectedSlot = true
	if data.ActiveSlot == "" || !data.ActiveSlot.Valid() {
		data.ActiveSlot = slot
	}
	s.applyLinks(data)
	if prev != s.activeSlot {
		s.epoch++
	}
	current := s.activeSlot
	changed := s.touch()
	s.mu.Unlock()
	s.endMutation()

	s.notify(prev, current, changed)
	return nil
}

// UpdatePartners replaces both partner slot assignments. A nil id clears
// the slot.
func (s *PartnerStore) UpdatePartners(ctx context.Context, p1, p2 *string) error {
	if p1 != nil && p2 != nil && *p1 != "" && *p1 == *p2 {
		return &ValidationError{Field: "p2", Message: "The same partner cannot fill both slots"}
	}
	if s.viewer != nil {
		for _, id := range []*string{p1, p2} {
			if id != nil && *id != "" && *id == s.viewer.UserID() {
				return &ValidationError{Field: "partnerId", Message: "You cannot be your own partner"}
			}
		}
	}

	epoch := s.beginMutation()
	data, err := s.api.UpdateLinks(ctx, p1, p2)
	if err != nil {
		s.endMutation()
		log.Error().Err(err).Msg("Failed to update partners")
		return &ActionError{Op: "update partners", Message: repository.UserMessage(err, "Could not update partners"), Err: err}
	}

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		s.endMutation()
		return ErrNotAuthenticated
	}
	prev := s.activeSlot
	data.HasSelectedSlot = data.HasSelectedSlot || s.hasSelectedSlot
	s.applyLinks(data)
	if prev != s.activeSlot {
		s.epoch++
	}
	current := s.activeSlot
	changed := s.touch()
	s.mu.Unlock()
	s.endMutation()

	s.notify(prev, current, changed)
	return nil
}

// SendInvite invites partnerID into slot. Links are reloaded afterwards
// since the server materialises a pending link.
func (s *PartnerStore) SendInvite(ctx context.Context, slot models.Slot, partnerID string) (*models.PartnerInvite, error) {
	if err := CheckPartnerConflict(s.Links(), slot, partnerID); err != nil {
		return nil, err
	}
	if s.viewer != nil && partnerID == s.viewer.UserID() {
		return nil, &ValidationError{Field: "partnerId", Message: "You cannot invite yourself"}
	}

	s.beginMutation()
	invite, err := s.api.SendInvite(ctx, slot, partnerID)
	s.endMutation()
	if err != nil {
		log.Error().Err(err).Str("slot", string(slot)).Msg("Failed to send partner invite")
		return nil, &ActionError{Op: "send invite", Message: repository.UserMessage(err, "Could not send the invitation"), Err: err}
	}

	log.Info().Str("slot", string(slot)).Str("partner_id", partnerID).Msg("Partner invite sent")
	s.LoadLinks(ctx, true)
	return invite, nil
}

// AcceptIncomingInvite accepts an invite and reloads links and invites.
func (s *PartnerStore) AcceptIncomingInvite(ctx context.Context, inviteID string) error {
	return s.answerInvite(ctx, inviteID, "accept", s.api.AcceptInvite)
}

// RefuseIncomingInvite refuses an invite and reloads links and invites.
func (s *PartnerStore) RefuseIncomingInvite(ctx context.Context, inviteID string) error {
	return s.answerInvite(ctx, inviteID, "refuse", s.api.RefuseInvite)
}

func (s *PartnerStore) answerInvite(ctx context.Context, inviteID, op string, call func(context.Context, string) error) error {
	if inviteID == "" {
		return &ValidationError{Field: "id", Message: "Missing invitation"}
	}

	s.beginMutation()
	err := call(ctx, inviteID)
	s.endMutation()
	if err != nil {
		log.Error().Err(err).Str("invite_id", inviteID).Str("op", op).Msg("Failed to answer partner invite")
		msg := repository.UserMessage(err, "Could not "+op+" the invitation")
		if errors.Is(err, repository.ErrNotFound) {
			msg = "This invitation no longer exists"
		}
		s.LoadLinks(ctx, true)
		s.RefreshIncomingInvites(ctx)
		return &ActionError{Op: op + " invite", Message: msg, Err: err}
	}

	log.Info().Str("invite_id", inviteID).Str("op", op).Msg("Partner invite answered")
	s.LoadLinks(ctx, true)
	s.RefreshIncomingInvites(ctx)
	return nil
}

// RefreshIncomingInvites reloads pending invites addressed to the user. On
// failure the last known list is kept.
func (s *PartnerStore) RefreshIncomingInvites(ctx context.Context) {
	s.mu.RLock()
	epoch, seq := s.epoch, s.seq
	s.mu.RUnlock()

	invites, err := s.api.IncomingInvites(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to refresh incoming invites")
		return
	}

	viewerID := ""
	if s.viewer != nil {
		viewerID = s.viewer.UserID()
	}
	pending := make([]models.PartnerInvite, 0, len(invites))
	for _, inv := range invites {
		if inv.Status != "" && inv.Status != models.InvitePending {
			continue
		}
		if viewerID != "" && inv.FromUser.ID == viewerID {
			continue
		}
		pending = append(pending, inv)
	}

	s.mu.Lock()
	if s.epoch != epoch || s.seq != seq || seq%2 != 0 {
		s.mu.Unlock()
		return
	}
	s.incoming = pending
	slot := s.activeSlot
	changed := s.touch()
	s.mu.Unlock()

	s.notify(slot, slot, changed)
}

// Reset clears the store after logout. Responses still in flight are
// discarded.
func (s *PartnerStore) Reset() {
	s.mu.Lock()
	s.epoch++
	prev := s.activeSlot
	s.links = []models.PartnerLink{}
	s.activeSlot = models.SlotSolo
	s.hasSelectedSlot = false
	s.incoming = []models.PartnerInvite{}
	s.loading = false
	changed := s.touch()
	s.mu.Unlock()

	s.notify(prev, models.SlotSolo, changed)
}
