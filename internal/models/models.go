package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// User represents the authenticated user's profile
type User struct {
	ID            string    `json:"_id"`
	Username      string    `json:"username,omitempty"`
	Email         string    `json:"email"`
	TotalDiamonds int       `json:"totalDiamonds"`
	CreatedAt     time.Time `json:"createdAt"`
}

// UserRef is a user reference as returned by the server: either a bare id
// string or a populated user document.
type UserRef struct {
	ID            string `json:"_id"`
	Username      string `json:"username,omitempty"`
	Email         string `json:"email,omitempty"`
	TotalDiamonds int    `json:"totalDiamonds,omitempty"`
}

// UnmarshalJSON accepts both the string and the object form.
func (r *UserRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = UserRef{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return fmt.Errorf("failed to decode user id: %w", err)
		}
		*r = UserRef{ID: id}
		return nil
	}
	type plain UserRef
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("failed to decode user: %w", err)
	}
	*r = UserRef(p)
	return nil
}

// Display returns the best human label for the user.
func (r UserRef) Display() string {
	if r.Username != "" {
		return r.Username
	}
	if r.Email != "" {
		return r.Email
	}
	return r.ID
}

// Slot is the user's active relationship context
type Slot string

const (
	SlotSolo Slot = "solo"
	SlotP1   Slot = "p1"
	SlotP2   Slot = "p2"
)

// Valid reports whether s is one of the three known slots.
func (s Slot) Valid() bool {
	return s == SlotSolo || s == SlotP1 || s == SlotP2
}

// IsPartner reports whether s is a partner slot (p1 or p2).
func (s Slot) IsPartner() bool {
	return s == SlotP1 || s == SlotP2
}

// Other returns the opposite partner slot. It returns "" for solo.
func (s Slot) Other() Slot {
	switch s {
	case SlotP1:
		return SlotP2
	case SlotP2:
		return SlotP1
	default:
		return ""
	}
}

// LinkStatus is the state of a partner link
type LinkStatus string

const (
	LinkPending   LinkStatus = "pending"
	LinkConfirmed LinkStatus = "confirmed"
)

// PartnerLink pairs the user with another user in slot p1 or p2
type PartnerLink struct {
	Slot      Slot       `json:"slot"`
	PartnerID string     `json:"partnerId"`
	Partner   *UserRef   `json:"partner,omitempty"`
	Status    LinkStatus `json:"status"`
}

// Active reports whether the link holds the partner (pending or confirmed).
func (l PartnerLink) Active() bool {
	return l.Status == LinkPending || l.Status == LinkConfirmed
}

// PartnerDisplay returns the partner's display label.
func (l PartnerLink) PartnerDisplay() string {
	if l.Partner != nil {
		return l.Partner.Display()
	}
	return l.PartnerID
}

// PartnerLinksData is the server's view of the user's slots
type PartnerLinksData struct {
	PartnerLinks    []PartnerLink `json:"partnerLinks"`
	ActiveSlot      Slot          `json:"activeSlot"`
	HasSelectedSlot bool          `json:"hasSelectedSlot"`
}

// InviteStatus is the lifecycle status of a partner invite
type InviteStatus string

const (
	InvitePending   InviteStatus = "pending"
	InviteAccepted  InviteStatus = "accepted"
	InviteRefused   InviteStatus = "refused"
	InviteCancelled InviteStatus = "cancelled"
)

// PartnerInvite is an invitation to fill one of the inviter's partner slots
type PartnerInvite struct {
	ID        string       `json:"_id"`
	FromUser  UserRef      `json:"fromUser"`
	ToUser    UserRef      `json:"toUser"`
	Slot      Slot         `json:"slot"`
	Status    InviteStatus `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
}
