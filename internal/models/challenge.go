package models

import "time"

// Mode is the challenge mode
type Mode string

const (
	ModeSolo Mode = "solo"
	ModeDuo  Mode = "duo"
)

// GoalType is the unit a challenge goal is measured in
type GoalType string

const (
	GoalDistance GoalType = "distance"
	GoalDuration GoalType = "duration"
	GoalCount    GoalType = "count"
)

// ChallengeStatus is the lifecycle status of a challenge
type ChallengeStatus string

const (
	StatusPending   ChallengeStatus = "pending"
	StatusActive    ChallengeStatus = "active"
	StatusCompleted ChallengeStatus = "completed"
	StatusFailed    ChallengeStatus = "failed"
	StatusCancelled ChallengeStatus = "cancelled"
)

// Terminal reports whether the status ends the challenge.
func (s ChallengeStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Goal is the numeric target of a challenge
type Goal struct {
	Type  GoalType `json:"type" validate:"required,oneof=distance duration count"`
	Value float64  `json:"value" validate:"gt=0"`
}

// Player is one participant of a challenge
type Player struct {
	User      UserRef `json:"user"`
	Progress  float64 `json:"progress"`
	Diamonds  int     `json:"diamonds"`
	Completed bool    `json:"completed"`
}

// Challenge is a weekly pact, solo or duo
type Challenge struct {
	ID            string          `json:"_id"`
	Mode          Mode            `json:"mode"`
	Creator       UserRef         `json:"creator"`
	Players       []Player        `json:"players"`
	Goal          Goal            `json:"goal"`
	ActivityTypes []ActivityType  `json:"activityTypes"`
	Title         string          `json:"title"`
	Icon          string          `json:"icon"`
	StartDate     time.Time       `json:"startDate"`
	EndDate       time.Time       `json:"endDate"`
	Status        ChallengeStatus `json:"status"`
	BonusEarned   bool            `json:"bonusEarned"`
	BonusAwarded  bool            `json:"bonusAwarded"`
	CreatedAt     *time.Time      `json:"createdAt,omitempty"`
	UpdatedAt     *time.Time      `json:"updatedAt,omitempty"`
}

// Player returns the player entry for userID.
func (c *Challenge) Player(userID string) (Player, bool) {
	for _, p := range c.Players {
		if p.User.ID == userID {
			return p, true
		}
	}
	return Player{}, false
}

// OtherPlayer returns the first player that is not userID.
func (c *Challenge) OtherPlayer(userID string) (Player, bool) {
	for _, p := range c.Players {
		if p.User.ID != "" && p.User.ID != userID {
			return p, true
		}
	}
	return Player{}, false
}

// IsCreator reports whether userID created the challenge.
func (c *Challenge) IsCreator(userID string) bool {
	return userID != "" && c.Creator.ID == userID
}

// Clone returns a deep copy of the challenge.
func (c *Challenge) Clone() *Challenge {
	if c == nil {
		return nil
	}
	out := *c
	out.Players = append([]Player(nil), c.Players...)
	out.ActivityTypes = append([]ActivityType(nil), c.ActivityTypes...)
	return &out
}

// CreateChallengeRequest is the payload to create a solo or duo challenge
type CreateChallengeRequest struct {
	Mode          Mode           `json:"mode" validate:"required,oneof=solo duo"`
	PartnerID     string         `json:"partnerId,omitempty" validate:"required_if=Mode duo"`
	Goal          Goal           `json:"goal"`
	ActivityTypes []ActivityType `json:"activityTypes" validate:"min=1,dive,oneof=running cycling walking swimming workout yoga"`
	Title         string         `json:"title"`
	Icon          string         `json:"icon"`
}

// UpdateChallengeRequest is the payload to edit the current challenge
type UpdateChallengeRequest struct {
	Goal          Goal           `json:"goal"`
	ActivityTypes []ActivityType `json:"activityTypes" validate:"min=1,dive,oneof=running cycling walking swimming workout yoga"`
	Title         string         `json:"title"`
	Icon          string         `json:"icon"`
}
