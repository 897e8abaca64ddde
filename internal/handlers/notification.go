package handlers

import (
	"net/http"
	"strconv"

	"github.com/aawaaz/complaint-server/internal/services"
	"go.uber.org/zap"
)

// NotificationHandler serves a citizen's in-app inbox
type NotificationHandler struct {
	notify *services.NotificationService
	logger *zap.SugaredLogger
}

// NewNotificationHandler creates a notification handler
func NewNotificationHandler(notify *services.NotificationService, logger *zap.SugaredLogger) *NotificationHandler {
	return &NotificationHandler{notify: notify, logger: logger}
}

// List handles GET /api/notifications?limit=
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.notify.List(r.Context(), p.ID, limit)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// MarkRead handles PUT /api/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.notify.MarkRead(r.Context(), id, p.ID); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Notification marked as read"})
}
