package handlers

import (
	"bytes"
	"net/http"
	"time"

	"github.com/aawaaz/complaint-server/internal/models"
	"github.com/aawaaz/complaint-server/internal/services"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AdminHandler serves the city admin console
type AdminHandler struct {
	complaints *services.ComplaintService
	lifecycle  *services.LifecycleService
	analytics  *services.AnalyticsService
	rewards    *services.RewardService
	actors     ActorResolver
	logger     *zap.SugaredLogger
}

// NewAdminHandler creates an admin handler
func NewAdminHandler(
	complaints *services.ComplaintService,
	lifecycle *services.LifecycleService,
	analytics *services.AnalyticsService,
	rewards *services.RewardService,
	actors ActorResolver,
	logger *zap.SugaredLogger,
) *AdminHandler {
	return &AdminHandler{
		complaints: complaints,
		lifecycle:  lifecycle,
		analytics:  analytics,
		rewards:    rewards,
		actors:     actors,
		logger:     logger,
	}
}

// List handles GET /api/admin/complaints?status=
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r, h.actors, h.logger)
	if !ok {
		return
	}
	list, err := h.complaints.ListForAdmin(r.Context(), *a, r.URL.Query().Get("status"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *AdminHandler) transition(w http.ResponseWriter, r *http.Request, message string, run func(a services.Actor, id uuid.UUID) (*services.Transition, error)) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	a, ok := actor(w, r, h.actors, h.logger)
	if !ok {
		return
	}
	t, err := run(*a, id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"message": message, "complaint": t.Complaint})
}

// Approve handles PUT /api/admin/complaints/{id}/approve
func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Comment string `json:"comment"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	h.transition(w, r, "Complaint approved", func(a services.Actor, id uuid.UUID) (*services.Transition, error) {
		return h.lifecycle.Approve(r.Context(), a, id, req.Comment)
	})
}

// Reject handles PUT /api/admin/complaints/{id}/reject
func (h *AdminHandler) Reject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	h.transition(w, r, "Complaint rejected", func(a services.Actor, id uuid.UUID) (*services.Transition, error) {
		return h.lifecycle.Reject(r.Context(), a, id, req.Reason)
	})
}

// Assign handles PUT /api/admin/complaints/{id}/assign
func (h *AdminHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DepartmentID string `json:"departmentId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	deptID, err := uuid.Parse(req.DepartmentID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid departmentId")
		return
	}
	h.transition(w, r, "Complaint assigned", func(a services.Actor, id uuid.UUID) (*services.Transition, error) {
		return h.lifecycle.Assign(r.Context(), a, id, deptID)
	})
}

// GiveWarning handles POST /api/admin/give-warning/{userId}
func (h *AdminHandler) GiveWarning(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}
	var req services.WarningRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	a, ok := actor(w, r, h.actors, h.logger)
	if !ok {
		return
	}
	m, err := h.lifecycle.GiveWarning(r.Context(), *a, userID, req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":       "Warning issued",
		"warningCount":  m.User.Warnings.Count,
		"accountStatus": m.User.AccountStatus,
	})
}

// Blacklist handles POST /api/admin/blacklist-user/{userId}
func (h *AdminHandler) Blacklist(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
		Notes  string `json:"notes"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	a, ok := actor(w, r, h.actors, h.logger)
	if !ok {
		return
	}
	m, err := h.lifecycle.Blacklist(r.Context(), *a, userID, req.Reason, req.Notes)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":       "User blacklisted",
		"accountStatus": m.User.AccountStatus,
	})
}

// Analytics handles GET /api/admin/analytics
func (h *AdminHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r, h.actors, h.logger)
	if !ok {
		return
	}
	out, err := h.analytics.Summary(r.Context(), *a)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

// Export handles GET /api/admin/analytics/export
func (h *AdminHandler) Export(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r, h.actors, h.logger)
	if !ok {
		return
	}
	// buffer so a failed export can still answer with JSON
	var buf bytes.Buffer
	if err := h.analytics.Export(r.Context(), *a, &buf); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	name := "complaints-" + time.Now().UTC().Format("20060102") + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// CreateReward handles POST /api/admin/rewards
func (h *AdminHandler) CreateReward(w http.ResponseWriter, r *http.Request) {
	var req services.NewReward
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	reward, err := h.rewards.CreateReward(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, reward)
}

// SetRedemptionStatus handles PUT /api/admin/redemptions/{id}/status
func (h *AdminHandler) SetRedemptionStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Status models.RedemptionStatus `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	red, err := h.rewards.SetRedemptionStatus(r.Context(), id, req.Status)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, red)
}
