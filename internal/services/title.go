package services

import (
	"fmt"
	"math"
	"strings"

	"pact-sync-client/internal/models"
)

const defaultIcon = "trophy"

var activityIcons = map[models.ActivityType]string{
	models.ActivityRunning:  "run-fast",
	models.ActivityCycling:  "bicycle-outline",
	models.ActivityWalking:  "walk-outline",
	models.ActivitySwimming: "water-outline",
	models.ActivityWorkout:  "barbell-outline",
	models.ActivityYoga:     "flower-outline",
}

// FormatDuration renders minutes as "45min" or "1h 30min".
func FormatDuration(minutes float64) string {
	if minutes < 1 {
		return "< 1min"
	}
	if minutes < 60 {
		return fmt.Sprintf("%dmin", int(math.Round(minutes)))
	}
	hours := int(math.Floor(minutes / 60))
	mins := int(math.Round(math.Mod(minutes, 60)))
	if mins > 0 {
		return fmt.Sprintf("%dh %dmin", hours, mins)
	}
	return fmt.Sprintf("%dh", hours)
}

func formatGoalValue(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}

// GenerateTitle builds the default title of a challenge from its goal and
// activity types, e.g. "10 km of running".
func GenerateTitle(types []models.ActivityType, goal models.Goal) string {
	var value string
	switch goal.Type {
	case models.GoalDistance:
		value = formatGoalValue(goal.Value) + " km"
	case models.GoalDuration:
		value = FormatDuration(goal.Value)
	case models.GoalCount:
		value = formatGoalValue(goal.Value) + " activit"
		if goal.Value > 1 {
			value += "ies"
		} else {
			value += "y"
		}
	}

	var sport string
	switch {
	case len(types) == 1:
		sport = types[0].Label()
	case len(types) == 2:
		sport = types[0].Label() + " and " + types[1].Label()
	case len(types) == len(models.ActivityTypes):
		sport = "sport"
	default:
		sport = "multi-sport"
	}

	return strings.TrimSpace(value + " of " + sport)
}

// DefaultIcon returns the icon of the first activity type.
func DefaultIcon(types []models.ActivityType) string {
	if len(types) == 0 {
		return defaultIcon
	}
	if icon, ok := activityIcons[types[0]]; ok {
		return icon
	}
	return defaultIcon
}
