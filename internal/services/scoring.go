package services

import (
	"math"
	"time"

	"pact-sync-client/internal/models"
)

const (
	maxDuoDiamonds  = 4
	maxSoloDiamonds = 8
	urgentWindow    = 24 * time.Hour
)

// safeGoal treats a missing, zero, negative or NaN goal as 1.
func safeGoal(goal float64) float64 {
	if math.IsNaN(goal) || math.IsInf(goal, 0) || goal <= 0 {
		return 1
	}
	return goal
}

// safeProgress treats negative or NaN progress as 0.
func safeProgress(progress float64) float64 {
	if math.IsNaN(progress) || progress < 0 {
		return 0
	}
	return progress
}

func clampUnit(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}

// Percent returns progress as a percentage of goal, clamped to [0, 100].
func Percent(progress, goal float64) float64 {
	return clampUnit(safeProgress(progress)/safeGoal(goal)) * 100
}

// DuoDiamonds returns a duo player's diamonds: one per 25%, at most 4.
func DuoDiamonds(progress, goal float64) int {
	return min(int(math.Floor(Percent(progress, goal)/25)), maxDuoDiamonds)
}

// SoloDiamonds returns a solo player's diamonds: one per 12.5%, at most 8.
func SoloDiamonds(progress, goal float64) int {
	return min(int(math.Floor(Percent(progress, goal)/12.5)), maxSoloDiamonds)
}

// CombinedPercent returns both duo players' joint progress toward twice the
// goal, clamped to [0, 100].
func CombinedPercent(progressA, progressB, goal float64) float64 {
	return clampUnit((safeProgress(progressA)+safeProgress(progressB))/(safeGoal(goal)*2)) * 100
}

// PlayerScore is one player's derived display state
type PlayerScore struct {
	UserID    string  `json:"userId"`
	Progress  float64 `json:"progress"`
	Percent   float64 `json:"percent"`
	Diamonds  int     `json:"diamonds"`
	Completed bool    `json:"completed"`
}

// Scoreboard is the derived display state of a challenge, re-computed from the
// server's players[].progress on every read
type Scoreboard struct {
	Mode            models.Mode  `json:"mode"`
	Goal            float64      `json:"goal"`
	Me              PlayerScore  `json:"me"`
	Partner         *PlayerScore `json:"partner,omitempty"`
	CombinedPercent float64      `json:"combinedPercent"`
	BonusUnlocked   bool         `json:"bonusUnlocked"`
	Finished        bool         `json:"finished"`
	Urgent          bool         `json:"urgent"`
}

// ProjectScore derives the scoreboard of challenge as seen by viewerID at now.
func ProjectScore(challenge *models.Challenge, viewerID string, now time.Time) *Scoreboard {
	if challenge == nil {
		return nil
	}
	goal := safeGoal(challenge.Goal.Value)
	board := &Scoreboard{Mode: challenge.Mode, Goal: goal}

	me, ok := challenge.Player(viewerID)
	if !ok && challenge.Mode == models.ModeSolo && len(challenge.Players) > 0 {
		me = challenge.Players[0]
	}
	board.Me = PlayerScore{
		UserID:    me.User.ID,
		Progress:  safeProgress(me.Progress),
		Percent:   Percent(me.Progress, goal),
		Completed: me.Completed,
	}

	if challenge.Mode == models.ModeDuo {
		board.Me.Diamonds = DuoDiamonds(me.Progress, goal)
		if partner, ok := challenge.OtherPlayer(viewerID); ok {
			board.Partner = &PlayerScore{
				UserID:    partner.User.ID,
				Progress:  safeProgress(partner.Progress),
				Percent:   Percent(partner.Progress, goal),
				Diamonds:  DuoDiamonds(partner.Progress, goal),
				Completed: partner.Completed,
			}
			board.CombinedPercent = CombinedPercent(me.Progress, partner.Progress, goal)
			board.BonusUnlocked = me.Completed && partner.Completed
		} else {
			board.CombinedPercent = CombinedPercent(me.Progress, 0, goal)
		}
	} else {
		board.Me.Diamonds = SoloDiamonds(me.Progress, goal)
		board.CombinedPercent = board.Me.Percent
	}

	timeOver := !challenge.EndDate.IsZero() && challenge.EndDate.Before(now)
	anyCompleted := board.Me.Completed || (board.Partner != nil && board.Partner.Completed)
	soloDone := challenge.Mode == models.ModeSolo && board.Me.Percent >= 100
	board.Finished = challenge.Status.Terminal() || timeOver || anyCompleted || soloDone

	if challenge.Status == models.StatusActive && !challenge.EndDate.IsZero() {
		left := challenge.EndDate.Sub(now)
		board.Urgent = left > 0 && left <= urgentWindow
	}
	return board
}
