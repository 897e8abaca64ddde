// Package handlers contains HTTP request handlers for the complaint API.
// Handlers parse requests, call services, and return JSON responses.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/aawaaz/complaint-server/internal/middleware"
	"github.com/aawaaz/complaint-server/internal/models"
	"github.com/aawaaz/complaint-server/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ActorResolver loads the scope of an authenticated principal
type ActorResolver interface {
	Resolve(ctx context.Context, p models.Principal) (*services.Actor, error)
}

// Helper: respond with JSON
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Helper: respond with error
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps a service error kind onto an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden), errors.Is(err, services.ErrChatUnavailable):
		return http.StatusForbidden
	case errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrNotFoundOrProcessed):
		return http.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, services.ErrRateLimited):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// writeServiceError writes err with the status of its kind. Unclassified
// errors are logged and answered with a generic message.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *zap.SugaredLogger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Errorw("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		respondError(w, status, "Internal server error")
		return
	}
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		respondError(w, status, svcErr.Msg)
		return
	}
	respondError(w, status, err.Error())
}

func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// pathID parses a uuid path parameter, answering 400 when it is malformed
func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// principal returns the caller stored by RequireAuth
func principal(w http.ResponseWriter, r *http.Request) (models.Principal, bool) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authorization required")
	}
	return p, ok
}

// actor resolves the caller with its location scope
func actor(w http.ResponseWriter, r *http.Request, actors ActorResolver, logger *zap.SugaredLogger) (*services.Actor, bool) {
	p, ok := principal(w, r)
	if !ok {
		return nil, false
	}
	a, err := actors.Resolve(r.Context(), p)
	if err != nil {
		writeServiceError(w, r, logger, err)
		return nil, false
	}
	return a, true
}
