package repository

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"pact-sync-client/internal/models"

	"github.com/go-chi/chi/v5"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, r chi.Router) *Client {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/api", 2*time.Second, staticToken("tok"))
}

func TestCurrentChallengeUnwrapsEnvelopeAndSendsHeaders(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/challenges/current", func(w http.ResponseWriter, req *http.Request) {
		if got := req.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("expected bearer token, got %q", got)
		}
		if req.Header.Get("X-Request-ID") == "" {
			t.Error("expected request id header")
		}
		if got := req.URL.Query().Get("slot"); got != "p1" {
			t.Errorf("expected slot p1, got %q", got)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"data": map[string]any{
				"_id":     "c1",
				"mode":    "duo",
				"status":  "active",
				"creator": map[string]any{"_id": "u1", "email": "a@x"},
				"players": []map[string]any{
					{"user": "u1", "progress": 3},
					{"user": map[string]any{"_id": "u2"}, "progress": 5},
				},
				"goal":      map[string]any{"type": "distance", "value": 20},
				"startDate": "2026-10-12T00:00:00.000Z",
				"endDate":   "2026-10-18T23:59:59.999Z",
			},
		})
	})
	repo := NewChallengeRepository(newTestClient(t, r))

	ch, err := repo.Current(context.Background(), models.SlotP1)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if ch == nil || ch.ID != "c1" {
		t.Fatalf("expected challenge c1, got %+v", ch)
	}
	if ch.Creator.ID != "u1" || ch.Players[0].User.ID != "u1" || ch.Players[1].User.ID != "u2" {
		t.Fatalf("unexpected user refs: %+v", ch)
	}
}

func TestCurrentChallengeNotFoundIsAbsent(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/challenges/current", func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Query().Has("slot") {
			t.Error("expected no slot param for unfiltered query")
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "no challenge"})
	})
	repo := NewChallengeRepository(newTestClient(t, r))

	ch, err := repo.Current(context.Background(), "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ch != nil {
		t.Fatalf("expected nil challenge, got %+v", ch)
	}
}

func TestPendingSentTreatsNonJSONAsAbsent(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"html 404", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte("<pre>Cannot GET /api/challenges/pending-sent</pre>"))
		}},
		{"html 200", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte("<html></html>"))
		}},
		{"empty body", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}},
		{"json null", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"data": nil})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Get("/api/challenges/pending-sent", tt.handler)
			repo := NewChallengeRepository(newTestClient(t, r))

			ch, err := repo.PendingSent(context.Background(), "")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if ch != nil {
				t.Fatalf("expected nil, got %+v", ch)
			}
		})
	}
}

func TestRefreshProgressErrorsAreClassified(t *testing.T) {
	var status atomic.Int32
	r := chi.NewRouter()
	r.Post("/api/challenges/refresh-progress", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, int(status.Load()), map[string]string{"message": "boom"})
	})
	repo := NewChallengeRepository(newTestClient(t, r))

	status.Store(http.StatusServiceUnavailable)
	_, err := repo.RefreshProgress(context.Background(), models.SlotSolo)
	if !IsTransient(err) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if StatusCode(err) != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", StatusCode(err))
	}

	status.Store(http.StatusBadRequest)
	_, err = repo.RefreshProgress(context.Background(), models.SlotSolo)
	if err == nil || IsTransient(err) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if got := UserMessage(err, "fallback"); got != "boom" {
		t.Fatalf("expected server message, got %q", got)
	}

	status.Store(http.StatusNotFound)
	ch, err := repo.RefreshProgress(context.Background(), models.SlotSolo)
	if err != nil || ch != nil {
		t.Fatalf("expected absent challenge, got %+v, %v", ch, err)
	}
}

func TestNetworkErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	repo := NewChallengeRepository(NewClient(srv.URL+"/api", time.Second, nil))

	_, err := repo.RefreshProgress(context.Background(), "")
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsTransient(err) {
		t.Fatalf("expected transient, got %v", err)
	}
	if got := UserMessage(err, "fallback"); got == "" || got == err.Error() {
		t.Fatalf("expected friendly message, got %q", got)
	}
}

func TestUnauthorizedEndsSession(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/users/partner-links", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "expired"})
	})
	client := newTestClient(t, r)
	var called atomic.Bool
	client.OnUnauthorized(func() { called.Store(true) })

	if _, err := NewPartnerRepository(client).GetLinks(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if !called.Load() {
		t.Fatal("expected unauthorized hook to run")
	}
}

func TestPartnerLinksAndInvites(t *testing.T) {
	r := chi.NewRouter()
	r.Put("/api/users/active-slot", func(w http.ResponseWriter, req *http.Request) {
		var body map[string]string
		json.NewDecoder(req.Body).Decode(&body)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{
			"partnerLinks":    []map[string]any{{"slot": "p1", "partnerId": "u2", "status": "confirmed"}},
			"activeSlot":      body["activeSlot"],
			"hasSelectedSlot": true,
		}})
	})
	r.Get("/api/users/partner-invites/incoming", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"invites": []map[string]any{
			{"_id": "i1", "fromUser": map[string]any{"_id": "u3", "email": "c@x"}, "toUser": "u1", "slot": "p2", "status": "pending"},
			{"_id": "i2", "fromUser": map[string]any{"_id": "u4"}, "toUser": "u1", "slot": "p1", "status": "cancelled"},
		}}})
	})
	r.Put("/api/users/partner-links", func(w http.ResponseWriter, req *http.Request) {
		var body map[string]*string
		json.NewDecoder(req.Body).Decode(&body)
		if _, ok := body["p2"]; !ok || body["p2"] != nil {
			t.Errorf("expected explicit null p2, got %+v", body)
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"partnerLinks": nil, "activeSlot": "solo"}})
	})
	repo := NewPartnerRepository(newTestClient(t, r))
	ctx := context.Background()

	data, err := repo.SetActiveSlot(ctx, models.SlotP1)
	if err != nil {
		t.Fatalf("set active slot: %v", err)
	}
	if data.ActiveSlot != models.SlotP1 || !data.HasSelectedSlot || len(data.PartnerLinks) != 1 {
		t.Fatalf("unexpected links data %+v", data)
	}

	invites, err := repo.IncomingInvites(ctx)
	if err != nil {
		t.Fatalf("incoming invites: %v", err)
	}
	if len(invites) != 1 || invites[0].ID != "i1" || invites[0].FromUser.Display() != "c@x" {
		t.Fatalf("unexpected invites %+v", invites)
	}

	p1 := "u2"
	data, err = repo.UpdateLinks(ctx, &p1, nil)
	if err != nil {
		t.Fatalf("update links: %v", err)
	}
	if data.PartnerLinks == nil {
		t.Fatal("expected non-nil links slice")
	}
}

func TestAcceptChallengeNotFoundKeepsStatus(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/challenges/{id}/accept", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "gone"})
	})
	repo := NewChallengeRepository(newTestClient(t, r))

	_, err := repo.Accept(context.Background(), "c9")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteNotFoundIsSuccess(t *testing.T) {
	r := chi.NewRouter()
	r.Delete("/api/challenges/current", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "none"})
	})
	repo := NewChallengeRepository(newTestClient(t, r))

	if err := repo.Delete(context.Background(), models.SlotSolo); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestActivitiesAndProfile(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/activities", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{
			{"_id": "a1", "type": "running", "date": "2026-10-14T08:00:00Z", "duration": 30, "distance": 6, "createdAt": "2026-10-14T09:00:00Z"},
			{"_id": "a2", "type": "yoga", "date": "2026-10-14T08:00:00Z", "duration": 45},
		})
	})
	r.Get("/api/users/profile", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"_id": "u1", "email": "a@x", "totalDiamonds": 12})
	})
	client := newTestClient(t, r)

	activities, err := NewActivityRepository(client).List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(activities) != 2 || activities[0].Distance == nil || *activities[0].Distance != 6 {
		t.Fatalf("unexpected activities %+v", activities)
	}
	if activities[0].CreatedAt == nil || activities[1].CreatedAt != nil {
		t.Fatal("expected createdAt only on the first activity")
	}

	user, err := NewUserRepository(client).Profile(context.Background())
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if user.TotalDiamonds != 12 {
		t.Fatalf("expected 12 diamonds, got %d", user.TotalDiamonds)
	}
}
