package handlers

import (
	"net/http"

	"github.com/aawaaz/complaint-server/internal/services"
	"go.uber.org/zap"
)

// ActivityHandler handles activity log endpoints
type ActivityHandler struct {
	complaints *services.ComplaintService
	actors     ActorResolver
	logger     *zap.SugaredLogger
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(complaints *services.ComplaintService, actors ActorResolver, logger *zap.SugaredLogger) *ActivityHandler {
	return &ActivityHandler{complaints: complaints, actors: actors, logger: logger}
}

// ByComplaint handles GET /api/admin/complaints/{id}/activity
func (h *ActivityHandler) ByComplaint(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	a, ok := actor(w, r, h.actors, h.logger)
	if !ok {
		return
	}

	logs, err := h.complaints.Activity(r.Context(), *a, id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, logs)
}
