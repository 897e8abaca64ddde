package handlers

import (
	"net/http"
	"net/url"
	"time"

	"github.com/aawaaz/complaint-server/internal/identity"
	"github.com/aawaaz/complaint-server/internal/services"
	"go.uber.org/zap"
)

const oauthStateCookie = "oauth_state"

// AuthHandler handles sign-up and sign-in for every role
type AuthHandler struct {
	auth        *services.AuthService
	google      *identity.Google
	frontendURL string
	secure      bool
	logger      *zap.SugaredLogger
}

// NewAuthHandler creates an auth handler. google may be nil.
func NewAuthHandler(auth *services.AuthService, google *identity.Google, frontendURL string, secureCookies bool, logger *zap.SugaredLogger) *AuthHandler {
	return &AuthHandler{auth: auth, google: google, frontendURL: frontendURL, secure: secureCookies, logger: logger}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	sess, err := h.auth.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, sess)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req services.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	sess, err := h.auth.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

// AdminLogin handles POST /api/admin/login
func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AdminID  string `json:"adminId"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	sess, err := h.auth.AdminLogin(r.Context(), req.AdminID, req.Password)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

// DepartmentLogin handles POST /api/department/login
func (h *AuthHandler) DepartmentLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DepartmentID string `json:"departmentId"`
		Password     string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	sess, err := h.auth.DepartmentLogin(r.Context(), req.DepartmentID, req.Password)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

// Me handles GET /api/users/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	account, err := h.auth.Me(r.Context(), p)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"role": p.Role, "account": account})
}

// GoogleLogin handles GET /api/auth/google/login
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.google.Enabled() {
		respondError(w, http.StatusNotFound, "Google sign-in is not configured")
		return
	}
	state := identity.NewState()
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/api/auth/google",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.google.AuthCodeURL(state), http.StatusFound)
}

// GoogleCallback handles GET /api/auth/google/callback and redirects to
// the frontend with a token or an error
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if !h.google.Enabled() {
		respondError(w, http.StatusNotFound, "Google sign-in is not configured")
		return
	}
	fail := func(reason string) {
		http.Redirect(w, r, h.frontendURL+"/login?error="+url.QueryEscape(reason), http.StatusFound)
	}

	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		fail("invalid_state")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Path: "/api/auth/google", MaxAge: -1})

	profile, err := h.google.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		h.logger.Warnw("Google exchange failed", "error", err)
		fail("google_failed")
		return
	}
	sess, err := h.auth.GoogleLogin(r.Context(), profile)
	if err != nil {
		h.logger.Warnw("Google login rejected", "error", err)
		fail("login_failed")
		return
	}
	http.Redirect(w, r, h.frontendURL+"/auth/callback?token="+url.QueryEscape(sess.Token), http.StatusFound)
}
