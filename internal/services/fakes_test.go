package services

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"pact-sync-client/internal/config"
	"pact-sync-client/internal/models"
	"pact-sync-client/internal/repository"

	"github.com/golang-jwt/jwt/v5"
)

func testToken(t *testing.T, userID string, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{"id": userID}
	if !exp.IsZero() {
		claims["exp"] = exp.Unix()
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

type fakeViewer struct {
	id   string
	auth bool
}

func (v fakeViewer) UserID() string      { return v.id }
func (v fakeViewer) Authenticated() bool { return v.auth }

type fakePartnerAPI struct {
	mu      sync.Mutex
	data    models.PartnerLinksData
	getErr  error
	slotErr error
	invites []models.PartnerInvite
	calls   map[string]int
}

func newFakePartnerAPI(data models.PartnerLinksData) *fakePartnerAPI {
	return &fakePartnerAPI{data: data, calls: map[string]int{}}
}

func (f *fakePartnerAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakePartnerAPI) copyData() *models.PartnerLinksData {
	d := f.data
	d.PartnerLinks = slices.Clone(f.data.PartnerLinks)
	return &d
}

func (f *fakePartnerAPI) GetLinks(context.Context) (*models.PartnerLinksData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["GetLinks"]++
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.copyData(), nil
}

func (f *fakePartnerAPI) UpdateLinks(_ context.Context, p1, p2 *string) (*models.PartnerLinksData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["UpdateLinks"]++
	var links []models.PartnerLink
	if p1 != nil {
		links = append(links, models.PartnerLink{Slot: models.SlotP1, PartnerID: *p1, Status: models.LinkPending})
	}
	if p2 != nil {
		links = append(links, models.PartnerLink{Slot: models.SlotP2, PartnerID: *p2, Status: models.LinkPending})
	}
	f.data.PartnerLinks = links
	return f.copyData(), nil
}

func (f *fakePartnerAPI) SetActiveSlot(_ context.Context, slot models.Slot) (*models.PartnerLinksData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["SetActiveSlot"]++
	if f.slotErr != nil {
		return nil, f.slotErr
	}
	f.data.ActiveSlot = slot
	f.data.HasSelectedSlot = true
	return f.copyData(), nil
}

func (f *fakePartnerAPI) SendInvite(_ context.Context, slot models.Slot, partnerID string) (*models.PartnerInvite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["SendInvite"]++
	f.data.PartnerLinks = append(f.data.PartnerLinks, models.PartnerLink{Slot: slot, PartnerID: partnerID, Status: models.LinkPending})
	return &models.PartnerInvite{ID: "inv-" + partnerID, ToUser: models.UserRef{ID: partnerID}, Slot: slot, Status: models.InvitePending}, nil
}

func (f *fakePartnerAPI) IncomingInvites(context.Context) ([]models.PartnerInvite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["IncomingInvites"]++
	return slices.Clone(f.invites), nil
}

func (f *fakePartnerAPI) AcceptInvite(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["AcceptInvite"]++
	for i, inv := range f.invites {
		if inv.ID == id {
			f.data.PartnerLinks = append(f.data.PartnerLinks, models.PartnerLink{Slot: inv.Slot, PartnerID: inv.FromUser.ID, Status: models.LinkConfirmed})
			f.invites = slices.Delete(f.invites, i, i+1)
			return nil
		}
	}
	return &repository.APIError{Status: 404, Message: "not found"}
}

func (f *fakePartnerAPI) RefuseInvite(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["RefuseInvite"]++
	f.invites = slices.DeleteFunc(f.invites, func(inv models.PartnerInvite) bool { return inv.ID == id })
	return nil
}

// fakeChallengeAPI answers from hook functions; a nil hook means absent.
type fakeChallengeAPI struct {
	mu          sync.Mutex
	current     func(slot models.Slot) (*models.Challenge, error)
	pendingSent func() (*models.Challenge, error)
	invitations []models.Challenge
	create      func(req *models.CreateChallengeRequest) (*models.Challenge, error)
	accept      func(id string) (*models.Challenge, error)
	refuse      func(id string) error
	update      func(req *models.UpdateChallengeRequest) (*models.Challenge, error)
	remove      func(slot models.Slot) error
	refresh     func(slot models.Slot) (*models.Challenge, error)
	calls       map[string]int
	slots       []models.Slot
}

func newFakeChallengeAPI() *fakeChallengeAPI {
	return &fakeChallengeAPI{calls: map[string]int{}}
}

func (f *fakeChallengeAPI) hit(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fakeChallengeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeChallengeAPI) set(fn func(f *fakeChallengeAPI)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeChallengeAPI) Current(_ context.Context, slot models.Slot) (*models.Challenge, error) {
	f.hit("Current")
	f.mu.Lock()
	fn := f.current
	f.slots = append(f.slots, slot)
	f.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(slot)
}

func (f *fakeChallengeAPI) PendingSent(context.Context, models.Slot) (*models.Challenge, error) {
	f.hit("PendingSent")
	f.mu.Lock()
	fn := f.pendingSent
	f.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn()
}

func (f *fakeChallengeAPI) Invitations(context.Context) ([]models.Challenge, error) {
	f.hit("Invitations")
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.invitations), nil
}

func (f *fakeChallengeAPI) SoloHistory(context.Context) ([]models.Challenge, error) {
	f.hit("SoloHistory")
	return []models.Challenge{}, nil
}

func (f *fakeChallengeAPI) DuoHistory(context.Context, models.Slot, string) ([]models.Challenge, error) {
	f.hit("DuoHistory")
	return []models.Challenge{}, nil
}

func (f *fakeChallengeAPI) Create(_ context.Context, req *models.CreateChallengeRequest) (*models.Challenge, error) {
	f.hit("Create")
	if f.create == nil {
		return nil, &repository.APIError{Status: 500}
	}
	return f.create(req)
}

func (f *fakeChallengeAPI) Accept(_ context.Context, id string) (*models.Challenge, error) {
	f.hit("Accept")
	if f.accept == nil {
		return nil, &repository.APIError{Status: 404}
	}
	return f.accept(id)
}

func (f *fakeChallengeAPI) Refuse(_ context.Context, id string) error {
	f.hit("Refuse")
	if f.refuse == nil {
		return nil
	}
	return f.refuse(id)
}

func (f *fakeChallengeAPI) Update(_ context.Context, req *models.UpdateChallengeRequest, _ models.Slot) (*models.Challenge, error) {
	f.hit("Update")
	if f.update == nil {
		return nil, &repository.APIError{Status: 500}
	}
	return f.update(req)
}

func (f *fakeChallengeAPI) Delete(_ context.Context, slot models.Slot) error {
	f.hit("Delete")
	if f.remove == nil {
		return nil
	}
	return f.remove(slot)
}

func (f *fakeChallengeAPI) RefreshProgress(_ context.Context, slot models.Slot) (*models.Challenge, error) {
	f.hit("RefreshProgress")
	f.mu.Lock()
	fn := f.refresh
	f.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(slot)
}

type fakeProfileAPI struct {
	mu       sync.Mutex
	diamonds int
	calls    int
}

func (f *fakeProfileAPI) Profile(context.Context) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return &models.User{ID: "me", TotalDiamonds: f.diamonds}, nil
}

type fakeActivityAPI struct {
	mu         sync.Mutex
	own        []models.Activity
	duo        []models.Activity
	shared     map[string][]models.Activity
	created    []models.NewActivityRequest
	deleted    []string
	sharedWith []string
}

func (f *fakeActivityAPI) List(context.Context) ([]models.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.own), nil
}

func (f *fakeActivityAPI) Shared(_ context.Context, partnerID string) ([]models.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sharedWith = append(f.sharedWith, partnerID)
	return slices.Clone(f.shared[partnerID]), nil
}

func (f *fakeActivityAPI) DuoCurrent(context.Context) ([]models.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.duo), nil
}

func (f *fakeActivityAPI) Create(_ context.Context, req *models.NewActivityRequest) (*models.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, *req)
	a := models.Activity{ID: "new", Type: req.Type, Date: req.Date, Duration: req.Duration, Distance: req.Distance}
	f.own = append(f.own, a)
	return &a, nil
}

func (f *fakeActivityAPI) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

type testEngine struct {
	*Engine
	partnerAPI   *fakePartnerAPI
	challengeAPI *fakeChallengeAPI
	profileAPI   *fakeProfileAPI
	activityAPI  *fakeActivityAPI
	retries      []time.Duration
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Challenge.RetryBaseDelay = time.Millisecond
	cfg.Challenge.InvitationRefreshDelay = 0
	cfg.Challenge.BonusReloadDelay = 0
	return cfg
}

// newTestEngine signs in userID and loads links. Delayed work and slot
// change refreshes run synchronously.
func newTestEngine(t *testing.T, userID string, links models.PartnerLinksData) *testEngine {
	t.Helper()
	session := NewSession()
	if err := session.Login(testToken(t, userID, time.Time{})); err != nil {
		t.Fatalf("login: %v", err)
	}
	te := &testEngine{
		partnerAPI:   newFakePartnerAPI(links),
		challengeAPI: newFakeChallengeAPI(),
		profileAPI:   &fakeProfileAPI{},
		activityAPI:  &fakeActivityAPI{shared: map[string][]models.Activity{}},
	}
	te.Engine = NewEngine(session, te.partnerAPI, te.challengeAPI, te.profileAPI, te.activityAPI, testConfig())
	te.Challenges.spawn = func(fn func()) { fn() }
	te.Challenges.after = func(_ time.Duration, fn func()) { fn() }
	te.Challenges.onRetry = func(_ error, d time.Duration) { te.retries = append(te.retries, d) }
	te.Partners.LoadLinks(context.Background(), true)
	return te
}

func confirmedLinks(active models.Slot, selected bool, partners map[models.Slot]string) models.PartnerLinksData {
	data := models.PartnerLinksData{ActiveSlot: active, HasSelectedSlot: selected}
	for _, slot := range []models.Slot{models.SlotP1, models.SlotP2} {
		if id, ok := partners[slot]; ok {
			data.PartnerLinks = append(data.PartnerLinks, models.PartnerLink{Slot: slot, PartnerID: id, Status: models.LinkConfirmed})
		}
	}
	return data
}

func day(offset int) time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 12, 0, 0, 0, time.Local).AddDate(0, 0, offset)
}

func soloChallenge(id, userID string, progress float64) *models.Challenge {
	created := day(-1).Add(-12 * time.Hour)
	return &models.Challenge{
		ID:            id,
		Mode:          models.ModeSolo,
		Creator:       models.UserRef{ID: userID},
		Players:       []models.Player{{User: models.UserRef{ID: userID}, Progress: progress}},
		Goal:          models.Goal{Type: models.GoalDistance, Value: 10},
		ActivityTypes: []models.ActivityType{models.ActivityRunning},
		StartDate:     day(-1),
		EndDate:       day(5),
		Status:        models.StatusActive,
		CreatedAt:     &created,
	}
}

func duoChallenge(id, creatorID, otherID string, status models.ChallengeStatus) *models.Challenge {
	created := day(-1).Add(-12 * time.Hour)
	return &models.Challenge{
		ID:      id,
		Mode:    models.ModeDuo,
		Creator: models.UserRef{ID: creatorID},
		Players: []models.Player{
			{User: models.UserRef{ID: creatorID}},
			{User: models.UserRef{ID: otherID}},
		},
		Goal:          models.Goal{Type: models.GoalDistance, Value: 20},
		ActivityTypes: []models.ActivityType{models.ActivityRunning, models.ActivityCycling},
		StartDate:     day(-1),
		EndDate:       day(5),
		Status:        status,
		CreatedAt:     &created,
	}
}
