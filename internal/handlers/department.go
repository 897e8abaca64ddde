package handlers

import (
	"net/http"

	"github.com/aawaaz/complaint-server/internal/services"
	"go.uber.org/zap"
)

// DepartmentHandler serves the department console
type DepartmentHandler struct {
	complaints *services.ComplaintService
	lifecycle  *services.LifecycleService
	actors     ActorResolver
	logger     *zap.SugaredLogger
}

// NewDepartmentHandler creates a department handler
func NewDepartmentHandler(complaints *services.ComplaintService, lifecycle *services.LifecycleService, actors ActorResolver, logger *zap.SugaredLogger) *DepartmentHandler {
	return &DepartmentHandler{complaints: complaints, lifecycle: lifecycle, actors: actors, logger: logger}
}

// List handles GET /api/department/complaints?status=
func (h *DepartmentHandler) List(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r, h.actors, h.logger)
	if !ok {
		return
	}
	list, err := h.complaints.ListForDepartment(r.Context(), *a, r.URL.Query().Get("status"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// Reject handles POST /api/department/reject-complaint/{complaintId}
func (h *DepartmentHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "complaintId")
	if !ok {
		return
	}
	var req struct {
		Reason          string `json:"reason"`
		AdditionalNotes string `json:"additionalNotes"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	a, ok := actor(w, r, h.actors, h.logger)
	if !ok {
		return
	}
	t, err := h.lifecycle.DepartmentReject(r.Context(), *a, id, req.Reason, req.AdditionalNotes)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"message": "Complaint rejected", "complaint": t.Complaint})
}

// Resolve handles PUT /api/department/resolve-complaint/{complaintId}
func (h *DepartmentHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "complaintId")
	if !ok {
		return
	}
	var req struct {
		Note string `json:"note"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	a, ok := actor(w, r, h.actors, h.logger)
	if !ok {
		return
	}
	t, err := h.lifecycle.Resolve(r.Context(), *a, id, req.Note)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"message": "Complaint resolved", "complaint": t.Complaint})
}
