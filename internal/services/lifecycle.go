package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aawaaz/complaint-server/internal/models"
	"github.com/aawaaz/complaint-server/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WarningRejectionReason is stored on a complaint rejected by a warning
const WarningRejectionReason = "Warning Given"

// approvable complaints wait for an admin decision
var approvable = []models.ComplaintStatus{models.StatusPending, models.StatusPhoneVerified}

// open complaints can still be rejected or reassigned
var open = []models.ComplaintStatus{models.StatusPending, models.StatusPhoneVerified, models.StatusInProgress}

// Transition is the outcome of a lifecycle operation
type Transition struct {
	Complaint *models.Complaint
	Effects   []EffectResult
}

// LifecycleService drives the admin and department transitions of a
// complaint. Every transition is one conditional write; the side effects
// that follow are best-effort.
type LifecycleService struct {
	complaints  store.ComplaintStore
	users       store.UserStore
	departments store.DepartmentStore
	routing     *RoutingService
	chat        *ChatService
	rewards     *RewardService
	notify      *NotificationService
	activity    *ActivityLogService
	logger      *zap.SugaredLogger
	now         func() time.Time
}

// NewLifecycleService creates a lifecycle service
func NewLifecycleService(
	complaints store.ComplaintStore,
	users store.UserStore,
	departments store.DepartmentStore,
	routing *RoutingService,
	chat *ChatService,
	rewards *RewardService,
	notify *NotificationService,
	activity *ActivityLogService,
	logger *zap.SugaredLogger,
) *LifecycleService {
	return &LifecycleService{
		complaints:  complaints,
		users:       users,
		departments: departments,
		routing:     routing,
		chat:        chat,
		rewards:     rewards,
		notify:      notify,
		activity:    activity,
		logger:      logger,
		now:         time.Now,
	}
}

func guardErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return errNotFoundOrProcessed
	}
	return fmt.Errorf("update complaint: %w", err)
}

func requireAdmin(a Actor) error {
	if a.Role != models.RoleAdmin {
		return forbidden("Admin access required")
	}
	return nil
}

func requireDepartment(a Actor) error {
	if a.Role != models.RoleDepartment {
		return forbidden("Department access required")
	}
	return nil
}

// Approve moves a pending or phone-verified complaint in the admin's scope
// to in_progress. Afterwards, in order: route if unassigned, notify the
// user, award points, create the chat rooms, log the transition.
func (s *LifecycleService) Approve(ctx context.Context, a Actor, complaintID uuid.UUID, comment string) (*Transition, error) {
	if err := requireAdmin(a); err != nil {
		return nil, err
	}

	status := models.StatusInProgress
	upd := store.ComplaintUpdate{Status: &status, AssignedAdmin: uuidPtr(a.ID)}
	if comment = strings.TrimSpace(comment); comment != "" {
		upd.AppendMessage = &models.ComplaintMessage{Sender: models.SenderAdmin, Text: comment, CreatedAt: s.now().UTC()}
	}
	c, err := s.complaints.UpdateComplaint(ctx, complaintID, store.ComplaintGuard{
		Statuses: approvable,
		City:     a.City,
		State:    a.State,
	}, upd)
	if err != nil {
		return nil, guardErr(err)
	}

	s.logger.Infow("Complaint approved", "complaint_id", c.ID, "admin_id", a.ID)

	effects := []effect{
		{name: "route", run: func(ctx context.Context) error {
			if c.AssignedDepartment != nil {
				return nil
			}
			res, err := s.routing.RouteComplaint(ctx, c)
			if res != nil && res.Complaint != nil {
				c = res.Complaint
			}
			return err
		}},
		{name: "notify", run: func(ctx context.Context) error {
			return s.notify.Notify(ctx, statusNotice(c, "Complaint approved",
				"Your complaint has been approved and is now in progress."))
		}},
		{name: "points", run: func(ctx context.Context) error {
			_, err := s.rewards.Award(ctx, c.UserID, ApprovalPoints, "Complaint approved by admin", uuidPtr(c.ID))
			return err
		}},
		{name: "chat", run: func(ctx context.Context) error {
			return s.chat.EnsureRooms(ctx, c)
		}},
		{name: "activity", run: func(ctx context.Context) error {
			return s.activity.Log(ctx, c.ID, models.ActivityApproved, "Complaint approved by admin "+a.Name, &a.Principal)
		}},
	}
	results := runEffects(ctx, s.logger, c.ID, effects)
	return &Transition{Complaint: c, Effects: results}, nil
}

// Reject closes a pending or phone-verified complaint in the admin's scope
func (s *LifecycleService) Reject(ctx context.Context, a Actor, complaintID uuid.UUID, reason string) (*Transition, error) {
	if err := requireAdmin(a); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, invalid("Rejection reason is required")
	}

	status := models.StatusRejected
	c, err := s.complaints.UpdateComplaint(ctx, complaintID, store.ComplaintGuard{
		Statuses: approvable,
		City:     a.City,
		State:    a.State,
	}, store.ComplaintUpdate{
		Status:          &status,
		AssignedAdmin:   uuidPtr(a.ID),
		RejectionReason: &reason,
		AppendMessage:   &models.ComplaintMessage{Sender: models.SenderAdmin, Text: reason, CreatedAt: s.now().UTC()},
	})
	if err != nil {
		return nil, guardErr(err)
	}

	s.logger.Infow("Complaint rejected", "complaint_id", c.ID, "admin_id", a.ID)

	results := runEffects(ctx, s.logger, c.ID, []effect{
		{name: "notify", run: func(ctx context.Context) error {
			return s.notify.Notify(ctx, statusNotice(c, "Complaint rejected", "Your complaint was rejected: "+reason))
		}},
		{name: "activity", run: func(ctx context.Context) error {
			return s.activity.Log(ctx, c.ID, models.ActivityRejected, "Rejected by admin: "+reason, &a.Principal)
		}},
	})
	return &Transition{Complaint: c, Effects: results}, nil
}

// Assign sets the department of an open complaint in the admin's scope,
// replacing any earlier assignment
func (s *LifecycleService) Assign(ctx context.Context, a Actor, complaintID, departmentID uuid.UUID) (*Transition, error) {
	if err := requireAdmin(a); err != nil {
		return nil, err
	}
	dept, err := s.departments.GetDepartment(ctx, departmentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound("Department not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load department: %w", err)
	}
	if !strings.EqualFold(strings.TrimSpace(dept.AssignedState), strings.TrimSpace(a.State)) {
		return nil, invalid("Department must be in the complaint's state")
	}

	now := s.now().UTC()
	c, err := s.complaints.UpdateComplaint(ctx, complaintID, store.ComplaintGuard{
		Statuses: open,
		City:     a.City,
		State:    a.State,
	}, store.ComplaintUpdate{AssignedDepartment: &dept.ID, AssignedAt: &now})
	if err != nil {
		return nil, guardErr(err)
	}

	s.logger.Infow("Complaint assigned", "complaint_id", c.ID, "department_id", dept.ID, "admin_id", a.ID)

	results := runEffects(ctx, s.logger, c.ID, []effect{
		{name: "activity", run: func(ctx context.Context) error {
			return s.activity.Log(ctx, c.ID, models.ActivityAssigned, "Assigned to "+dept.Name, &a.Principal)
		}},
	})
	return &Transition{Complaint: c, Effects: results}, nil
}

// DepartmentReject records a department's refusal. The assigned department
// may reject; so may a department of the complaint's city while no
// department is assigned.
func (s *LifecycleService) DepartmentReject(ctx context.Context, a Actor, complaintID uuid.UUID, reason, notes string) (*Transition, error) {
	if err := requireDepartment(a); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, invalid("Rejection reason is required")
	}

	status := models.StatusRejectedByDepartment
	upd := store.ComplaintUpdate{
		Status: &status,
		DepartmentRejection: &models.DepartmentRejection{
			RejectedBy:      a.ID,
			RejectedAt:      s.now().UTC(),
			Reason:          reason,
			AdditionalNotes: strings.TrimSpace(notes),
		},
	}

	c, err := s.complaints.UpdateComplaint(ctx, complaintID, store.ComplaintGuard{Statuses: open, DepartmentID: &a.ID}, upd)
	if errors.Is(err, store.ErrNotFound) {
		c, err = s.departmentRejectFallback(ctx, a, complaintID, upd)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Infow("Complaint rejected by department", "complaint_id", c.ID, "department_id", a.ID)

	results := runEffects(ctx, s.logger, c.ID, []effect{
		{name: "notify", run: func(ctx context.Context) error {
			return s.notify.Notify(ctx, statusNotice(c, "Complaint rejected by department",
				fmt.Sprintf("%s could not take up your complaint: %s", a.Name, reason)))
		}},
		{name: "activity", run: func(ctx context.Context) error {
			return s.activity.Log(ctx, c.ID, models.ActivityDepartmentRejected, "Rejected by department: "+reason, &a.Principal)
		}},
	})
	return &Transition{Complaint: c, Effects: results}, nil
}

// departmentRejectFallback explains a failed guard, or retries it under the
// city-scope rule when the complaint is unassigned
func (s *LifecycleService) departmentRejectFallback(ctx context.Context, a Actor, complaintID uuid.UUID, upd store.ComplaintUpdate) (*models.Complaint, error) {
	current, err := s.complaints.GetComplaint(ctx, complaintID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound("Complaint not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load complaint: %w", err)
	}
	if current.Status == models.StatusRejectedByDepartment {
		return nil, invalid("Complaint has already been rejected")
	}
	if !hasStatus(open, current.Status) {
		return nil, errNotFoundOrProcessed
	}
	if current.AssignedDepartment != nil || !a.InCity(current.AssignedCity) {
		return nil, forbidden("You are not authorized to reject this complaint")
	}

	c, err := s.complaints.UpdateComplaint(ctx, complaintID, store.ComplaintGuard{
		Statuses:   open,
		City:       a.City,
		Unassigned: true,
	}, upd)
	if err != nil {
		return nil, guardErr(err)
	}
	return c, nil
}

// Resolve closes an in_progress complaint assigned to the department
func (s *LifecycleService) Resolve(ctx context.Context, a Actor, complaintID uuid.UUID, note string) (*Transition, error) {
	if err := requireDepartment(a); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	status := models.StatusResolved
	upd := store.ComplaintUpdate{Status: &status, ResolvedAt: &now}
	if note = strings.TrimSpace(note); note != "" {
		upd.Reason = &note
	}
	c, err := s.complaints.UpdateComplaint(ctx, complaintID, store.ComplaintGuard{
		Statuses:     []models.ComplaintStatus{models.StatusInProgress},
		DepartmentID: &a.ID,
	}, upd)
	if err != nil {
		return nil, guardErr(err)
	}

	s.logger.Infow("Complaint resolved", "complaint_id", c.ID, "department_id", a.ID)

	msg := "Your complaint has been resolved by " + a.Name + "."
	if note != "" {
		msg += " " + note
	}
	results := runEffects(ctx, s.logger, c.ID, []effect{
		{name: "notify", run: func(ctx context.Context) error {
			return s.notify.Notify(ctx, statusNotice(c, "Complaint resolved", msg))
		}},
		{name: "activity", run: func(ctx context.Context) error {
			return s.activity.Log(ctx, c.ID, models.ActivityResolved, "Resolved by "+a.Name, &a.Principal)
		}},
	})
	return &Transition{Complaint: c, Effects: results}, nil
}

// WarningRequest is the input of GiveWarning
type WarningRequest struct {
	Reason      string     `json:"reason"`
	ComplaintID *uuid.UUID `json:"complaintId"`
	Notes       string     `json:"notes"`
}

// Moderation is the outcome of a moderation action
type Moderation struct {
	User    *models.User
	Effects []EffectResult
}

// GiveWarning records a warning on the user. When a complaint is named it
// is rejected with WarningRejectionReason as a side effect.
func (s *LifecycleService) GiveWarning(ctx context.Context, a Actor, userID uuid.UUID, req WarningRequest) (*Moderation, error) {
	if err := requireAdmin(a); err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, invalid("Warning reason is required")
	}

	u, err := s.users.AddWarning(ctx, userID, models.WarningEntry{
		Reason:      reason,
		Notes:       strings.TrimSpace(req.Notes),
		ComplaintID: req.ComplaintID,
		IssuedBy:    a.ID,
		IssuedAt:    s.now().UTC(),
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("add warning: %w", err)
	}

	s.logger.Infow("Warning issued", "user_id", userID, "admin_id", a.ID, "count", u.Warnings.Count)

	var effects []effect
	if req.ComplaintID != nil {
		cid := *req.ComplaintID
		effects = append(effects, effect{name: "reject_complaint", run: func(ctx context.Context) error {
			status := models.StatusRejected
			rejection := WarningRejectionReason
			c, err := s.complaints.UpdateComplaint(ctx, cid, store.ComplaintGuard{
				Statuses: open,
				City:     a.City,
				State:    a.State,
				UserID:   &userID,
			}, store.ComplaintUpdate{
				Status:          &status,
				RejectionReason: &rejection,
				AppendMessage:   &models.ComplaintMessage{Sender: models.SenderAdmin, Text: reason, CreatedAt: s.now().UTC()},
			})
			if err != nil {
				return guardErr(err)
			}
			return s.activity.Log(ctx, c.ID, models.ActivityWarningGiven, "Warning given: "+reason, &a.Principal)
		}})
	}
	effects = append(effects, effect{name: "notify", run: func(ctx context.Context) error {
		msg := fmt.Sprintf("You have received a warning (%d of %d): %s", u.Warnings.Count, models.WarningThreshold, reason)
		return s.notify.Notify(ctx, Notice{
			UserID:      u.ID,
			ComplaintID: req.ComplaintID,
			Type:        models.NotificationAdminMessage,
			Title:       "Account warning",
			Message:     msg,
			Phone:       u.Phone,
		})
	}})

	var subject uuid.UUID
	if req.ComplaintID != nil {
		subject = *req.ComplaintID
	}
	results := runEffects(ctx, s.logger, subject, effects)
	return &Moderation{User: u, Effects: results}, nil
}

// Blacklist blocks the user from logging in and filing complaints. Existing
// complaints keep their status.
func (s *LifecycleService) Blacklist(ctx context.Context, a Actor, userID uuid.UUID, reason, notes string) (*Moderation, error) {
	if err := requireAdmin(a); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, invalid("Blacklist reason is required")
	}
	if notes = strings.TrimSpace(notes); notes != "" {
		reason = reason + " (" + notes + ")"
	}

	u, err := s.users.Blacklist(ctx, userID, reason)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("blacklist user: %w", err)
	}

	s.logger.Infow("User blacklisted", "user_id", userID, "admin_id", a.ID)

	results := runEffects(ctx, s.logger, uuid.Nil, []effect{
		{name: "notify", run: func(ctx context.Context) error {
			return s.notify.Notify(ctx, Notice{
				UserID:  u.ID,
				Type:    models.NotificationAdminMessage,
				Title:   "Account blacklisted",
				Message: "Your account has been blacklisted: " + reason,
				Phone:   u.Phone,
			})
		}},
	})
	return &Moderation{User: u, Effects: results}, nil
}

func hasStatus(list []models.ComplaintStatus, s models.ComplaintStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
