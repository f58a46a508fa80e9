package services

import (
	"context"
	"testing"
	"time"

	"pact-sync-client/internal/config"
	"pact-sync-client/internal/models"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func slowPoll() config.PollConfig {
	return config.PollConfig{
		PartnerInterval:       time.Hour,
		ChallengeInterval:     time.Hour,
		ChallengeFastInterval: time.Hour,
	}
}

func TestPollerForegroundRefreshesImmediately(t *testing.T) {
	te := newTestEngine(t, "me", soloLinks())
	te.Challenges.poll = slowPoll()
	poller := NewPoller(te.Engine, slowPoll())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- poller.Run(ctx) }()

	linksBefore := te.partnerAPI.count("GetLinks")
	poller.Foreground()
	waitFor(t, func() bool {
		return te.partnerAPI.count("GetLinks") > linksBefore &&
			te.partnerAPI.count("IncomingInvites") > 0 &&
			te.challengeAPI.count("Current") > 0 &&
			te.challengeAPI.count("Invitations") > 0
	})

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestPollerPausedWhileSignedOut(t *testing.T) {
	te := newTestEngine(t, "me", soloLinks())
	te.Challenges.poll = slowPoll()
	te.Session.Logout()
	poller := NewPoller(te.Engine, slowPoll())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go poller.Run(ctx)

	linksBefore := te.partnerAPI.count("GetLinks")
	poller.Foreground()
	time.Sleep(50 * time.Millisecond)
	if te.partnerAPI.count("GetLinks") != linksBefore || te.challengeAPI.count("Current") != 0 {
		t.Fatal("expected no refresh while signed out")
	}
}

func TestPollerFollowsFastInterval(t *testing.T) {
	te := newTestEngine(t, "me", confirmedLinks(models.SlotP1, true, map[models.Slot]string{models.SlotP1: "bob"}))
	te.Challenges.poll = config.PollConfig{ChallengeInterval: time.Hour, ChallengeFastInterval: 10 * time.Millisecond}
	te.challengeAPI.set(func(f *fakeChallengeAPI) {
		f.pendingSent = func() (*models.Challenge, error) {
			return duoChallenge("d1", "me", "bob", models.StatusPending), nil
		}
	})
	te.Challenges.LoadPendingSent(context.Background())

	poller := NewPoller(te.Engine, slowPoll())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go poller.Run(ctx)

	poller.Foreground()
	waitFor(t, func() bool { return te.challengeAPI.count("Current") >= 3 })
}

func TestPollerSpeedsUpWhenDuoSentWhileRunning(t *testing.T) {
	ctx := context.Background()
	te := newTestEngine(t, "me", confirmedLinks(models.SlotP1, true, map[models.Slot]string{models.SlotP1: "bob"}))
	te.Challenges.poll = config.PollConfig{ChallengeInterval: time.Hour, ChallengeFastInterval: 10 * time.Millisecond}
	pending := duoChallenge("d1", "me", "bob", models.StatusPending)
	te.challengeAPI.set(func(f *fakeChallengeAPI) {
		f.create = func(*models.CreateChallengeRequest) (*models.Challenge, error) { return pending.Clone(), nil }
		f.pendingSent = func() (*models.Challenge, error) { return pending.Clone(), nil }
	})

	poller := NewPoller(te.Engine, slowPoll())
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go poller.Run(runCtx)
	waitFor(t, func() bool { return time.Duration(poller.armed.Load()) == time.Hour })

	before := te.challengeAPI.count("Current")
	if _, err := te.Challenges.CreateChallenge(ctx, &models.CreateChallengeRequest{
		Mode:          models.ModeDuo,
		Goal:          models.Goal{Type: models.GoalDistance, Value: 20},
		ActivityTypes: []models.ActivityType{models.ActivityRunning},
	}); err != nil {
		t.Fatalf("create duo: %v", err)
	}
	waitFor(t, func() bool { return te.challengeAPI.count("Current") >= before+3 })
}
