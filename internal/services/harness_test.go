package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aawaaz/complaint-server/internal/cache"
	"github.com/aawaaz/complaint-server/internal/classifier"
	"github.com/aawaaz/complaint-server/internal/geocoder"
	"github.com/aawaaz/complaint-server/internal/identity"
	"github.com/aawaaz/complaint-server/internal/media"
	"github.com/aawaaz/complaint-server/internal/models"
	"github.com/aawaaz/complaint-server/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClassifier struct {
	res *classifier.Result
	err error
}

func (f *fakeClassifier) Classify(context.Context, string) (*classifier.Result, error) {
	return f.res, f.err
}

type fakeGateway struct {
	mu      sync.Mutex
	calls   []string
	sms     []string
	callErr error
}

func (g *fakeGateway) Call(_ context.Context, to, voiceURL, statusURL string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.callErr != nil {
		return "", g.callErr
	}
	g.calls = append(g.calls, to)
	return "CA" + uuid.NewString()[:8], nil
}

func (g *fakeGateway) SendSMS(_ context.Context, to, body string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sms = append(g.sms, to)
	return nil
}

func (g *fakeGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

type fakeScheduler struct {
	mu     sync.Mutex
	delays []time.Duration
	fns    []func()
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	s.fns = append(s.fns, f)
}

// fire runs and clears the scheduled functions
func (s *fakeScheduler) fire() {
	s.mu.Lock()
	fns := s.fns
	s.fns = nil
	s.mu.Unlock()
	for _, f := range fns {
		f()
	}
}

type failingGeocoder struct{}

func (failingGeocoder) Resolve(context.Context, float64, float64) (*models.Location, error) {
	return nil, errors.New("quota exceeded")
}

// failingNotifications breaks the notification fan-out only
type failingNotifications struct {
	*store.Memory
}

func (failingNotifications) CreateNotification(context.Context, *models.Notification) error {
	return errors.New("notifications table unavailable")
}

type harness struct {
	mem          *store.Memory
	gateway      *fakeGateway
	scheduler    *fakeScheduler
	classifier   *fakeClassifier
	routing      *RoutingService
	chat         *ChatService
	rewards      *RewardService
	notify       *NotificationService
	activity     *ActivityLogService
	lifecycle    *LifecycleService
	verification *VerificationService
	complaints   *ComplaintService
	auth         *AuthService
	actors       *ActorResolver

	seq time.Time
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	notifications store.NotificationStore
	production    bool
	noGateway     bool
}

func withNotifications(n store.NotificationStore) harnessOption {
	return func(c *harnessConfig) { c.notifications = n }
}

func inProduction() harnessOption {
	return func(c *harnessConfig) { c.production = true }
}

func withoutGateway() harnessOption {
	return func(c *harnessConfig) { c.noGateway = true }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	logger := zap.NewNop().Sugar()
	mem := store.NewMemory()

	cfg := harnessConfig{notifications: mem}
	for _, o := range opts {
		o(&cfg)
	}

	h := &harness{
		mem:        mem,
		gateway:    &fakeGateway{},
		scheduler:  &fakeScheduler{},
		classifier: &fakeClassifier{err: classifier.ErrNotConfigured},
		seq:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	var gateway *fakeGateway
	if !cfg.noGateway {
		gateway = h.gateway
	}

	files, err := media.NewLocal(t.TempDir(), "/uploads")
	require.NoError(t, err)

	h.routing = NewRoutingService(mem, mem, h.classifier, 0.4, logger)
	h.chat = NewChatService(mem, mem, mem, mem, mem, cache.NewMemoryUnread(), logger)
	h.rewards = NewRewardService(mem, mem, nil, logger)
	if gateway != nil {
		h.notify = NewNotificationService(cfg.notifications, mem, gateway, nil, logger)
	} else {
		h.notify = NewNotificationService(cfg.notifications, mem, nil, nil, logger)
	}
	h.activity = NewActivityLogService(mem, logger)
	h.lifecycle = NewLifecycleService(mem, mem, mem, h.routing, h.chat, h.rewards, h.notify, h.activity, logger)

	vcfg := VerificationConfig{BaseURL: "https://api.example.org/", Production: cfg.production, Scheduler: h.scheduler}
	if gateway != nil {
		h.verification = NewVerificationService(mem, gateway, h.routing, h.chat, h.rewards, h.notify, h.activity, vcfg, logger)
	} else {
		h.verification = NewVerificationService(mem, nil, h.routing, h.chat, h.rewards, h.notify, h.activity, vcfg, logger)
	}

	h.complaints = NewComplaintService(mem, mem, mem, geocoder.NewWithFallback(failingGeocoder{}, logger), files, h.routing, h.verification, h.activity, logger)
	h.auth = NewAuthService(mem, mem, mem, identity.NewIssuer("test-secret", time.Hour), logger)
	h.actors = NewActorResolver(mem, mem, mem)
	return h
}

// tick returns strictly increasing timestamps so store ordering is stable
func (h *harness) tick() time.Time {
	h.seq = h.seq.Add(time.Minute)
	return h.seq
}

func (h *harness) user(t *testing.T, name string) *models.User {
	t.Helper()
	u := &models.User{
		ID:            uuid.New(),
		Name:          name,
		Email:         name + "@example.org",
		AccountStatus: models.AccountActive,
		CreatedAt:     h.tick(),
	}
	require.NoError(t, h.mem.CreateUser(context.Background(), u))
	return u
}

func (h *harness) admin(t *testing.T, city, state string) Actor {
	t.Helper()
	a := &models.Admin{
		ID:            uuid.New(),
		AdminID:       "admin-" + uuid.NewString()[:8],
		Name:          city + " admin",
		AssignedCity:  city,
		AssignedState: state,
		CreatedAt:     h.tick(),
	}
	require.NoError(t, h.mem.CreateAdmin(context.Background(), a))
	return Actor{
		Principal: models.Principal{ID: a.ID, Role: models.RoleAdmin},
		Name:      a.Name,
		City:      city,
		State:     state,
	}
}

func (h *harness) department(t *testing.T, typ models.DepartmentType, city, district, state string) Actor {
	t.Helper()
	d := &models.Department{
		ID:               uuid.New(),
		DepartmentID:     "dept-" + uuid.NewString()[:8],
		Name:             city + " " + string(typ),
		DepartmentType:   typ,
		AssignedCity:     city,
		AssignedDistrict: district,
		AssignedState:    state,
		CreatedAt:        h.tick(),
	}
	require.NoError(t, h.mem.CreateDepartment(context.Background(), d))
	return Actor{
		Principal: models.Principal{ID: d.ID, Role: models.RoleDepartment},
		Name:      d.Name,
		City:      city,
		State:     state,
		District:  district,
	}
}

func userActor(u *models.User) Actor {
	return Actor{Principal: models.Principal{ID: u.ID, Role: models.RoleUser}, Name: u.Name}
}

func (h *harness) complaint(t *testing.T, owner uuid.UUID, description, city, state string, status models.ComplaintStatus) *models.Complaint {
	t.Helper()
	at := h.tick()
	c := &models.Complaint{
		ID:                      uuid.New(),
		UserID:                  owner,
		Description:             description,
		Phone:                   "+919876543210",
		Image:                   "/uploads/img.jpg",
		Location:                models.Location{Lat: 26.9, Lng: 75.8, City: city, District: city, State: state},
		Status:                  status,
		AssignedCity:            city,
		AssignedState:           state,
		PhoneVerificationStatus: models.VerificationNotStarted,
		Messages:                []models.ComplaintMessage{},
		CreatedAt:               at,
		UpdatedAt:               at,
	}
	require.NoError(t, h.mem.CreateComplaint(context.Background(), c))
	return c
}

func (h *harness) reload(t *testing.T, id uuid.UUID) *models.Complaint {
	t.Helper()
	c, err := h.mem.GetComplaint(context.Background(), id)
	require.NoError(t, err)
	return c
}

func (h *harness) points(t *testing.T, id uuid.UUID) *models.User {
	t.Helper()
	u, err := h.mem.GetUser(context.Background(), id)
	require.NoError(t, err)
	return u
}

func ledgerSum(u *models.User) int {
	sum := 0
	for _, e := range u.PointsHistory {
		sum += e.Points
	}
	return sum
}
