package services

import (
	"math"
	"slices"
	"time"

	"pact-sync-client/internal/models"
)

// startOfDay returns 00:00:00.000 of t's calendar day in loc.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// endOfDay returns 23:59:59.999 of t's calendar day in loc.
func endOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), loc)
}

// IsCounted reports whether activity counts toward challenge, using the
// local calendar to normalise the challenge window. It mirrors the server's
// scoring rule.
func IsCounted(activity models.Activity, challenge models.Challenge) bool {
	return IsCountedIn(activity, challenge, time.Local)
}

// IsCountedIn is IsCounted with an explicit calendar location.
//
// An activity without a createdAt timestamp skips the retroactive guard so
// older records keep counting.
func IsCountedIn(activity models.Activity, challenge models.Challenge, loc *time.Location) bool {
	if loc == nil {
		loc = time.Local
	}
	if len(challenge.ActivityTypes) == 0 || !slices.Contains(challenge.ActivityTypes, activity.Type) {
		return false
	}
	if activity.Date.IsZero() || challenge.StartDate.IsZero() || challenge.EndDate.IsZero() {
		return false
	}

	start := startOfDay(challenge.StartDate, loc)
	end := endOfDay(challenge.EndDate, loc)
	if activity.Date.Before(start) || activity.Date.After(end) {
		return false
	}

	lowerBound := start
	if challenge.CreatedAt != nil && challenge.CreatedAt.After(start) {
		lowerBound = *challenge.CreatedAt
	}
	if activity.CreatedAt != nil && !activity.CreatedAt.IsZero() && activity.CreatedAt.Before(lowerBound) {
		return false
	}
	return true
}

// CountedActivities filters activities down to the ones counting toward
// challenge.
func CountedActivities(activities []models.Activity, challenge *models.Challenge) []models.Activity {
	if challenge == nil {
		return []models.Activity{}
	}
	out := make([]models.Activity, 0, len(activities))
	for _, a := range activities {
		if IsCounted(a, *challenge) {
			out = append(out, a)
		}
	}
	return out
}

// ChallengeStats aggregates the activities counted toward a challenge
type ChallengeStats struct {
	Count           int     `json:"count"`
	TotalDistance   float64 `json:"totalDistance"`
	TotalDuration   float64 `json:"totalDuration"`
	TotalElevation  float64 `json:"totalElevation"`
	EstimatedAmount float64 `json:"estimatedAmount"`
}

// SummarizeCounted aggregates counted activities and estimates the progress
// they represent in the unit of goalType. The estimate is for optimistic
// display only; the server's players[].progress stays authoritative.
func SummarizeCounted(counted []models.Activity, goalType models.GoalType) ChallengeStats {
	var stats ChallengeStats
	for _, a := range counted {
		stats.Count++
		if a.Distance != nil && !math.IsNaN(*a.Distance) {
			stats.TotalDistance += *a.Distance
		}
		if !math.IsNaN(a.Duration) {
			stats.TotalDuration += a.Duration
		}
		if a.ElevationGain != nil && !math.IsNaN(*a.ElevationGain) {
			stats.TotalElevation += *a.ElevationGain
		}
	}
	switch goalType {
	case models.GoalDistance:
		stats.EstimatedAmount = stats.TotalDistance
	case models.GoalDuration:
		stats.EstimatedAmount = stats.TotalDuration
	case models.GoalCount:
		stats.EstimatedAmount = float64(stats.Count)
	}
	return stats
}
