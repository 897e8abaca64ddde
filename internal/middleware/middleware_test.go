package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aawaaz/complaint-server/internal/identity"
	"github.com/aawaaz/complaint-server/internal/models"
	"github.com/aawaaz/complaint-server/internal/ratelimit"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func echoPrincipal(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		w.WriteHeader(http.StatusTeapot)
		return
	}
	_, _ = w.Write([]byte(string(p.Role) + ":" + p.ID.String()))
}

func TestRequireAuth(t *testing.T) {
	iss := identity.NewIssuer("secret", time.Hour)
	p := models.Principal{ID: uuid.New(), Role: models.RoleAdmin}
	tok, err := iss.Issue(p)
	require.NoError(t, err)
	h := RequireAuth(iss)(http.HandlerFunc(echoPrincipal))

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid", "Bearer " + tok, http.StatusOK, "admin:" + p.ID.String()},
		{"missing", "", http.StatusUnauthorized, `{"error":"Authorization required"}`},
		{"wrong scheme", "Basic " + tok, http.StatusUnauthorized, `{"error":"Authorization required"}`},
		{"garbage", "Bearer not-a-jwt", http.StatusUnauthorized, `{"error":"Invalid or expired token"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, tt.body, rec.Body.String())
			} else {
				assert.JSONEq(t, tt.body, rec.Body.String())
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(models.RoleAdmin, models.RoleDepartment)(http.HandlerFunc(echoPrincipal))

	for role, status := range map[models.Role]int{
		models.RoleAdmin:      http.StatusOK,
		models.RoleDepartment: http.StatusOK,
		models.RoleUser:       http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithPrincipal(req.Context(), models.Principal{ID: uuid.New(), Role: role}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, status, rec.Code, role)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func TestRateLimitByPrincipalRoute(t *testing.T) {
	limiter := ratelimit.NewMemory(2, time.Minute)
	user := models.Principal{ID: uuid.New(), Role: models.RoleUser}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(WithPrincipal(req.Context(), user)))
		})
	})
	r.Group(func(r chi.Router) {
		r.Use(RateLimit(limiter, ByPrincipalRoute, zap.NewNop().Sugar()))
		r.Post("/api/chat/{complaintId}/message", func(w http.ResponseWriter, _ *http.Request) {})
		r.Get("/api/chat/{complaintId}", func(w http.ResponseWriter, _ *http.Request) {})
	})

	do := func(method, path string) int {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do(http.MethodPost, "/api/chat/a/message"))
	assert.Equal(t, http.StatusOK, do(http.MethodPost, "/api/chat/b/message"))
	assert.Equal(t, http.StatusTooManyRequests, do(http.MethodPost, "/api/chat/c/message"), "same route pattern shares a bucket")
	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/api/chat/a"), "other routes are independent")
}

func TestRateLimitFailsOpen(t *testing.T) {
	h := RateLimit(failingLimiter{}, ByClientIP, zap.NewNop().Sugar())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestByClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	assert.Equal(t, "ip:203.0.113.7", ByClientIP(req))
}

func TestSecurityHeadersAndLogger(t *testing.T) {
	h := StructuredLogger(zap.NewNop())(SecurityHeaders()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}
