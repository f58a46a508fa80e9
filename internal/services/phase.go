package services

import "pact-sync-client/internal/models"

// Phase is where a challenge sits in its lifecycle from one viewer's side
type Phase string

const (
	PhaseNone            Phase = "none"
	PhasePendingSent     Phase = "pending_sent"
	PhasePendingReceived Phase = "pending_received"
	PhaseActive          Phase = "active"
	PhaseTerminal        Phase = "terminal"
)

// Placement is the store field a challenge in a given phase belongs to
type Placement int

const (
	PlaceNowhere Placement = iota
	PlaceCurrent
	PlacePendingSent
	PlaceInvitations
)

// placements is the single table deciding where a challenge is shown.
// A pending challenge is never current: its creator sees it as the pending
// sent invitation, the invitee among received invitations.
var placements = map[Phase]Placement{
	PhaseNone:            PlaceNowhere,
	PhasePendingSent:     PlacePendingSent,
	PhasePendingReceived: PlaceInvitations,
	PhaseActive:          PlaceCurrent,
	PhaseTerminal:        PlaceCurrent,
}

// PhaseOf returns the lifecycle phase of challenge for viewerID.
func PhaseOf(challenge *models.Challenge, viewerID string) Phase {
	if challenge == nil {
		return PhaseNone
	}
	switch {
	case challenge.Status == models.StatusPending && challenge.IsCreator(viewerID):
		return PhasePendingSent
	case challenge.Status == models.StatusPending:
		return PhasePendingReceived
	case challenge.Status.Terminal():
		return PhaseTerminal
	default:
		return PhaseActive
	}
}

// PlacementOf returns where challenge belongs for viewerID.
func PlacementOf(challenge *models.Challenge, viewerID string) Placement {
	return placements[PhaseOf(challenge, viewerID)]
}

// VisibleForSlot reports whether challenge's mode matches slot: solo
// challenges only in the solo slot, duo challenges only in p1/p2.
func VisibleForSlot(challenge *models.Challenge, slot models.Slot) bool {
	if challenge == nil {
		return false
	}
	if slot == models.SlotSolo {
		return challenge.Mode == models.ModeSolo
	}
	return slot.IsPartner() && challenge.Mode == models.ModeDuo
}

// CurrentFor projects a raw challenge into the current challenge for slot, or
// nil when it must not be shown there.
func CurrentFor(challenge *models.Challenge, slot models.Slot, viewerID string) *models.Challenge {
	if PlacementOf(challenge, viewerID) != PlaceCurrent {
		return nil
	}
	if !VisibleForSlot(challenge, slot) {
		return nil
	}
	return challenge
}
