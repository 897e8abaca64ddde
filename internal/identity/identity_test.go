package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aawaaz/complaint-server/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	iss := NewIssuer("secret", time.Hour)
	p := models.Principal{ID: uuid.New(), Role: models.RoleDepartment}

	tok, err := iss.Issue(p)
	require.NoError(t, err)

	got, err := iss.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, p, *got)
}

func TestVerifyAcceptsLegacyClaimNames(t *testing.T) {
	iss := NewIssuer("secret", time.Hour)
	id := uuid.New()
	claims := Claims{
		UserID: id.String(),
		Type:   "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	got, err := iss.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, models.RoleAdmin, got.Role)
}

func TestVerifyRejects(t *testing.T) {
	iss := NewIssuer("secret", time.Hour)
	p := models.Principal{ID: uuid.New(), Role: models.RoleUser}

	other, err := NewIssuer("other", time.Hour).Issue(p)
	require.NoError(t, err)
	_, err = iss.Verify(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewIssuer("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.Issue(p)
	require.NoError(t, err)
	_, err = iss.Verify(old)
	assert.ErrorIs(t, err, ErrInvalidToken)

	badRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{ID: p.ID.String(), Role: "root"}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = iss.Verify(badRole)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = iss.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	_, err := HashPassword("short")
	assert.Error(t, err)

	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NoError(t, CheckPassword(hash, "correct horse"))
	assert.ErrorIs(t, CheckPassword(hash, "wrong horse"), ErrBadCredentials)
	assert.ErrorIs(t, CheckPassword("", "anything"), ErrBadCredentials)
}

func TestGoogleExchange(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(GoogleProfile{ID: "g-1", Email: "a@b.com", Name: "A B", VerifiedEmail: true})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	g := NewGoogle("client", "secret", "http://localhost/callback")
	g.cfg.Endpoint.TokenURL = srv.URL + "/token"
	g.userInfoURL = srv.URL + "/userinfo"
	require.True(t, g.Enabled())
	assert.Contains(t, g.AuthCodeURL("xyz"), "state=xyz")

	profile, err := g.Exchange(context.Background(), "code")
	require.NoError(t, err)
	assert.Equal(t, "g-1", profile.ID)
	assert.Equal(t, "a@b.com", profile.Email)
}

func TestNewStateIsRandom(t *testing.T) {
	a, b := NewState(), NewState()
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
