package services

import (
	"context"
	"testing"
	"time"

	"pact-sync-client/internal/models"
)

func TestSharedUsesConfirmedPartnerOfActiveSlot(t *testing.T) {
	te := newTestEngine(t, "me", confirmedLinks(models.SlotP1, true, map[models.Slot]string{models.SlotP1: "bob"}))
	te.activityAPI.shared["bob"] = []models.Activity{{ID: "a1", Type: models.ActivityRunning}}

	got := te.Activities.Shared(context.Background())
	if len(got) != 1 || got[0].ID != "a1" {
		t.Fatalf("expected bob's activities, got %+v", got)
	}
}

func TestSharedFallsBackToDuoPartner(t *testing.T) {
	te := newTestEngine(t, "me", confirmedLinks(models.SlotP2, true, map[models.Slot]string{models.SlotP1: "bob"}))
	te.challengeAPI.set(func(f *fakeChallengeAPI) {
		f.current = func(models.Slot) (*models.Challenge, error) {
			return duoChallenge("d1", "me", "bob", models.StatusActive), nil
		}
	})
	te.Challenges.LoadCurrentChallenge(context.Background())

	te.Activities.Shared(context.Background())
	if len(te.activityAPI.sharedWith) != 1 || te.activityAPI.sharedWith[0] != "bob" {
		t.Fatalf("expected shared query for bob, got %v", te.activityAPI.sharedWith)
	}
}

func TestSharedWithoutPartnerIsEmpty(t *testing.T) {
	te := newTestEngine(t, "me", soloLinks())
	if got := te.Activities.Shared(context.Background()); got == nil || len(got) != 0 {
		t.Fatalf("expected empty list, got %+v", got)
	}
	if len(te.activityAPI.sharedWith) != 0 {
		t.Fatal("expected no network call")
	}
}

func TestDuoProgressSplitsByPlayer(t *testing.T) {
	te := newTestEngine(t, "me", confirmedLinks(models.SlotP1, true, map[models.Slot]string{models.SlotP1: "bob"}))
	te.challengeAPI.set(func(f *fakeChallengeAPI) {
		f.current = func(models.Slot) (*models.Challenge, error) {
			return duoChallenge("d1", "me", "bob", models.StatusActive), nil
		}
	})
	te.Challenges.LoadCurrentChallenge(context.Background())
	te.activityAPI.duo = []models.Activity{
		{ID: "a1", User: models.UserRef{ID: "me"}, Type: models.ActivityRunning, Date: day(0), Distance: ptrFloat(5)},
		{ID: "a2", User: models.UserRef{ID: "bob"}, Type: models.ActivityCycling, Date: day(0), Distance: ptrFloat(12)},
		{ID: "a3", User: models.UserRef{ID: "bob"}, Type: models.ActivityYoga, Date: day(0), Duration: 60},
		{ID: "a4", User: models.UserRef{ID: "me"}, Type: models.ActivityRunning, Date: day(-3), Distance: ptrFloat(8)},
	}

	progress, err := te.Activities.Progress(context.Background())
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if progress.Me.Stats.EstimatedAmount != 5 || len(progress.Me.Activities) != 1 {
		t.Fatalf("unexpected own progress %+v", progress.Me)
	}
	if progress.Partner == nil || progress.Partner.UserID != "bob" || progress.Partner.Stats.EstimatedAmount != 12 {
		t.Fatalf("unexpected partner progress %+v", progress.Partner)
	}
}

func TestProgressWithoutChallenge(t *testing.T) {
	te := newTestEngine(t, "me", soloLinks())
	progress, err := te.Activities.Progress(context.Background())
	if err != nil || progress != nil {
		t.Fatalf("expected nil progress, got %+v (%v)", progress, err)
	}
}

func TestAddActivityValidatesBeforeNetwork(t *testing.T) {
	te := newTestEngine(t, "me", soloLinks())
	tests := []struct {
		name string
		req  models.NewActivityRequest
	}{
		{"unknown type", models.NewActivityRequest{Type: "chess", Date: time.Now()}},
		{"missing date", models.NewActivityRequest{Type: models.ActivityYoga}},
		{"negative distance", models.NewActivityRequest{Type: models.ActivityRunning, Date: time.Now(), Distance: ptrFloat(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			if _, err := te.Activities.Add(context.Background(), &req); !IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
	if len(te.activityAPI.created) != 0 {
		t.Fatal("expected no network call")
	}
}

func TestDeleteActivityRefreshesProgress(t *testing.T) {
	te := newTestEngine(t, "me", soloLinks())
	if err := te.Activities.Delete(context.Background(), "a1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(te.activityAPI.deleted) != 1 || te.challengeAPI.count("RefreshProgress") != 1 {
		t.Fatal("expected delete followed by a progress refresh")
	}
	if err := te.Activities.Delete(context.Background(), ""); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
