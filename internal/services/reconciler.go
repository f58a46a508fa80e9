package services

import (
	"context"
	"sync/atomic"

	"pact-sync-client/internal/models"

	"github.com/rs/zerolog/log"
)

// DesiredSlot infers the slot a challenge belongs to: solo for solo
// challenges, and for duo the partner slot whose pending or confirmed link
// points at the other player. ok is false when nothing matches.
func DesiredSlot(challenge *models.Challenge, links []models.PartnerLink, viewerID string) (models.Slot, bool) {
	if challenge == nil {
		return "", false
	}
	if challenge.Mode == models.ModeSolo {
		return models.SlotSolo, true
	}
	if challenge.Mode != models.ModeDuo {
		return "", false
	}

	other, ok := challenge.OtherPlayer(viewerID)
	if !ok {
		return "", false
	}
	for _, slot := range []models.Slot{models.SlotP1, models.SlotP2} {
		if l, found := linkFor(links, slot); found && l.PartnerID == other.User.ID {
			return slot, true
		}
	}
	return "", false
}

// Reconciler aligns the active slot with the challenge in flight. It only
// acts before the user has picked a slot, unless forced.
type Reconciler struct {
	slots    SlotProvider
	switcher SlotSwitcher
	viewer   Viewer
	inFlight atomic.Bool
}

// NewReconciler creates a new reconciler
func NewReconciler(slots SlotProvider, switcher SlotSwitcher, viewer Viewer) *Reconciler {
	return &Reconciler{slots: slots, switcher: switcher, viewer: viewer}
}

// Sync switches to the slot challenge belongs to. It reports whether a
// switch happened. A call made while another is in flight is dropped.
func (r *Reconciler) Sync(ctx context.Context, challenge *models.Challenge, force bool) (bool, error) {
	if challenge == nil {
		return false, nil
	}
	if !force && r.slots.HasSelectedSlot() {
		return false, nil
	}
	if !r.inFlight.CompareAndSwap(false, true) {
		log.Debug().Str("challenge_id", challenge.ID).Msg("Slot sync already in flight, dropping")
		return false, nil
	}
	defer r.inFlight.Store(false)

	desired, ok := DesiredSlot(challenge, r.slots.Links(), r.viewer.UserID())
	if !ok || desired == r.slots.ActiveSlot() {
		return false, nil
	}

	log.Info().
		Str("challenge_id", challenge.ID).
		Str("slot", string(desired)).
		Bool("force", force).
		Msg("Syncing slot to challenge")
	if err := r.switcher.SwitchSlot(ctx, desired); err != nil {
		return false, err
	}
	return true, nil
}
