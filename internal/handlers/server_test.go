package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/aawaaz/complaint-server/internal/cache"
	"github.com/aawaaz/complaint-server/internal/classifier"
	"github.com/aawaaz/complaint-server/internal/geocoder"
	"github.com/aawaaz/complaint-server/internal/identity"
	"github.com/aawaaz/complaint-server/internal/media"
	"github.com/aawaaz/complaint-server/internal/models"
	"github.com/aawaaz/complaint-server/internal/ratelimit"
	"github.com/aawaaz/complaint-server/internal/services"
	"github.com/aawaaz/complaint-server/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testPassword = "correct-horse"

type stubGateway struct {
	mu    sync.Mutex
	calls []string
}

func (g *stubGateway) Call(_ context.Context, to, _, _ string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, to)
	return "CA0001", nil
}

func (g *stubGateway) SendSMS(context.Context, string, string) error { return nil }

type offlineGeocoder struct{}

func (offlineGeocoder) Resolve(context.Context, float64, float64) (*models.Location, error) {
	return nil, errors.New("offline")
}

type stubScheduler struct{}

func (stubScheduler) AfterFunc(time.Duration, func()) {}

type testServer struct {
	mem     *store.Memory
	issuer  *identity.Issuer
	gateway *stubGateway
	handler http.Handler
}

type serverOption func(*serverConfig)

type serverConfig struct {
	twilioToken string
	chatLimiter ratelimit.Limiter
	backends    map[string]Pinger
}

func withTwilioToken(token string) serverOption {
	return func(c *serverConfig) { c.twilioToken = token }
}

func withChatLimiter(l ratelimit.Limiter) serverOption {
	return func(c *serverConfig) { c.chatLimiter = l }
}

func withBackends(b map[string]Pinger) serverOption {
	return func(c *serverConfig) { c.backends = b }
}

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()
	cfg := serverConfig{}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.backends == nil {
		cfg.backends = map[string]Pinger{}
	}

	logger := zap.NewNop().Sugar()
	mem := store.NewMemory()
	gateway := &stubGateway{}
	issuer := identity.NewIssuer("handler-secret", time.Hour)
	files, err := media.NewLocal(t.TempDir(), "/uploads")
	require.NoError(t, err)

	routing := services.NewRoutingService(mem, mem, classifier.LocalScorer{}, 0.4, logger)
	chat := services.NewChatService(mem, mem, mem, mem, mem, cache.NewMemoryUnread(), logger)
	rewards := services.NewRewardService(mem, mem, nil, logger)
	notify := services.NewNotificationService(mem, mem, gateway, nil, logger)
	activity := services.NewActivityLogService(mem, logger)
	lifecycle := services.NewLifecycleService(mem, mem, mem, routing, chat, rewards, notify, activity, logger)
	verification := services.NewVerificationService(mem, gateway, routing, chat, rewards, notify, activity,
		services.VerificationConfig{BaseURL: "https://api.example.org", Scheduler: stubScheduler{}}, logger)
	complaints := services.NewComplaintService(mem, mem, mem, geocoder.NewWithFallback(offlineGeocoder{}, logger),
		files, routing, verification, activity, logger)
	analytics := services.NewAnalyticsService(mem, logger)
	auth := services.NewAuthService(mem, mem, mem, issuer, logger)
	actors := services.NewActorResolver(mem, mem, mem)

	api := &API{
		Health:        NewHealthHandler(cfg.backends, logger),
		Auth:          NewAuthHandler(auth, nil, "https://app.example.org", false, logger),
		Complaints:    NewComplaintHandler(complaints, actors, logger),
		Admin:         NewAdminHandler(complaints, lifecycle, analytics, rewards, actors, logger),
		Activity:      NewActivityHandler(complaints, actors, logger),
		Department:    NewDepartmentHandler(complaints, lifecycle, actors, logger),
		Chat:          NewChatHandler(chat, actors, logger),
		Rewards:       NewRewardHandler(rewards, logger),
		Notifications: NewNotificationHandler(notify, logger),
		Telephony:     NewTelephonyHandler(verification, cfg.twilioToken, "https://api.example.org", logger),
		Issuer:        issuer,
		ChatLimiter:   cfg.chatLimiter,
		Logger:        logger,
	}
	r := chi.NewRouter()
	r.Route("/api", api.Mount)

	return &testServer{mem: mem, issuer: issuer, gateway: gateway, handler: r}
}

// do sends a JSON request; body may be nil
func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) token(t *testing.T, id uuid.UUID, role models.Role) string {
	t.Helper()
	tok, err := s.issuer.Issue(models.Principal{ID: id, Role: role})
	require.NoError(t, err)
	return tok
}

func (s *testServer) admin(t *testing.T, city, state string) (*models.Admin, string) {
	t.Helper()
	hash, err := identity.HashPassword(testPassword)
	require.NoError(t, err)
	a := &models.Admin{
		ID:            uuid.New(),
		AdminID:       "admin-" + uuid.NewString()[:8],
		Name:          city + " admin",
		PasswordHash:  hash,
		AssignedCity:  city,
		AssignedState: state,
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, s.mem.CreateAdmin(context.Background(), a))
	return a, s.token(t, a.ID, models.RoleAdmin)
}

func (s *testServer) department(t *testing.T, typ models.DepartmentType, city, state string) (*models.Department, string) {
	t.Helper()
	hash, err := identity.HashPassword(testPassword)
	require.NoError(t, err)
	d := &models.Department{
		ID:               uuid.New(),
		DepartmentID:     "dept-" + uuid.NewString()[:8],
		Name:             city + " " + string(typ),
		DepartmentType:   typ,
		PasswordHash:     hash,
		AssignedCity:     city,
		AssignedDistrict: city,
		AssignedState:    state,
		CreatedAt:        time.Now().UTC(),
	}
	require.NoError(t, s.mem.CreateDepartment(context.Background(), d))
	return d, s.token(t, d.ID, models.RoleDepartment)
}

// register signs a citizen up through the API
func (s *testServer) register(t *testing.T, email string) (uuid.UUID, string) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name":     "Asha",
		"email":    email,
		"password": testPassword,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out struct {
		Token   string `json:"token"`
		Account struct {
			ID uuid.UUID `json:"id"`
		} `json:"account"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out.Account.ID, out.Token
}

// submit files a complaint through the multipart endpoint
func (s *testServer) submit(t *testing.T, token, description string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := map[string]string{
		"description": description,
		"phone":       "9876543210",
		"lat":         "26.9",
		"lon":         "75.8",
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	part, err := mw.CreateFormFile("image", "photo.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("jpeg bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/complaints", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) complaint(t *testing.T, id uuid.UUID) *models.Complaint {
	t.Helper()
	c, err := s.mem.GetComplaint(context.Background(), id)
	require.NoError(t, err)
	return c
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}
