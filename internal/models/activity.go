package models

import "time"

// ActivityType is the kind of sport an activity belongs to
type ActivityType string

const (
	ActivityRunning  ActivityType = "running"
	ActivityCycling  ActivityType = "cycling"
	ActivityWalking  ActivityType = "walking"
	ActivitySwimming ActivityType = "swimming"
	ActivityWorkout  ActivityType = "workout"
	ActivityYoga     ActivityType = "yoga"
)

// ActivityTypes lists every known activity type in display order.
var ActivityTypes = []ActivityType{
	ActivityRunning, ActivityCycling, ActivityWalking,
	ActivitySwimming, ActivityWorkout, ActivityYoga,
}

// activityLabels are the user-facing names of each activity type
var activityLabels = map[ActivityType]string{
	ActivityRunning:  "running",
	ActivityCycling:  "cycling",
	ActivityWalking:  "walking",
	ActivitySwimming: "swimming",
	ActivityWorkout:  "strength training",
	ActivityYoga:     "yoga",
}

// Label returns the user-facing name of the type.
func (t ActivityType) Label() string {
	if l, ok := activityLabels[t]; ok {
		return l
	}
	return string(t)
}

// Activity is a logged physical activity
type Activity struct {
	ID            string       `json:"_id"`
	User          UserRef      `json:"user"`
	Title         string       `json:"title"`
	Type          ActivityType `json:"type"`
	Date          time.Time    `json:"date"`
	Duration      float64      `json:"duration"`                // minutes
	Distance      *float64     `json:"distance,omitempty"`      // km
	ElevationGain *float64     `json:"elevationGain,omitempty"` // meters
	Source        string       `json:"source,omitempty"`
	CreatedAt     *time.Time   `json:"createdAt,omitempty"`
}

// NewActivityRequest is the payload to log a new activity
type NewActivityRequest struct {
	Title         string       `json:"title"`
	Type          ActivityType `json:"type" validate:"required,oneof=running cycling walking swimming workout yoga"`
	Date          time.Time    `json:"date" validate:"required"`
	Duration      float64      `json:"duration" validate:"gte=0"`
	Distance      *float64     `json:"distance,omitempty" validate:"omitempty,gte=0"`
	ElevationGain *float64     `json:"elevationGain,omitempty" validate:"omitempty,gte=0"`
	Source        string       `json:"source,omitempty"`
}
