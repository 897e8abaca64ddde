package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aawaaz/complaint-server/internal/models"
	"github.com/aawaaz/complaint-server/internal/store"
	"github.com/aawaaz/complaint-server/internal/telephony"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// RetryDelay is the wait before the single verification call retry
	RetryDelay = 10 * time.Minute
	// maxCallAttempts counts the first call and its retry
	maxCallAttempts = 2

	PhoneRejectionReason    = "User rejected during phone verification"
	NoAnswerRejectionReason = "Phone verification failed: no answer after retry"
)

// Spoken replies for the DTMF webhook
const (
	replyConfirmed = "Thank you. Your complaint has been confirmed and will be forwarded to the concerned department."
	replyRejected  = "Your complaint has been cancelled. Thank you."
	replyInvalid   = "We could not verify your complaint. Goodbye."
	replyProcessed = "This complaint has already been processed. Goodbye."
)

// Scheduler runs f once after d
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

// TimerScheduler schedules with time.AfterFunc. Pending timers are lost
// when the process exits.
type TimerScheduler struct{}

// AfterFunc starts a one-shot timer
func (TimerScheduler) AfterFunc(d time.Duration, f func()) { time.AfterFunc(d, f) }

// VerificationOutcome is the result of a DTMF event
type VerificationOutcome struct {
	Complaint *models.Complaint
	// Reply is read back to the caller before hanging up
	Reply   string
	Effects []EffectResult
}

// VerificationService places the confirmation call for a new complaint and
// applies the keypad answer to it
type VerificationService struct {
	complaints store.ComplaintStore
	gateway    telephony.Gateway
	routing    *RoutingService
	chat       *ChatService
	rewards    *RewardService
	notify     *NotificationService
	activity   *ActivityLogService
	scheduler  Scheduler
	baseURL    string
	production bool
	logger     *zap.SugaredLogger
	now        func() time.Time
}

// VerificationConfig carries the telephony settings of VerificationService
type VerificationConfig struct {
	// BaseURL is the public URL the call gateway posts webhooks to
	BaseURL    string
	Production bool
	Scheduler  Scheduler
}

// NewVerificationService creates a verification service. A nil gateway
// means calls cannot be placed.
func NewVerificationService(
	complaints store.ComplaintStore,
	gateway telephony.Gateway,
	routing *RoutingService,
	chat *ChatService,
	rewards *RewardService,
	notify *NotificationService,
	activity *ActivityLogService,
	cfg VerificationConfig,
	logger *zap.SugaredLogger,
) *VerificationService {
	if cfg.Scheduler == nil {
		cfg.Scheduler = TimerScheduler{}
	}
	return &VerificationService{
		complaints: complaints,
		gateway:    gateway,
		routing:    routing,
		chat:       chat,
		rewards:    rewards,
		notify:     notify,
		activity:   activity,
		scheduler:  cfg.Scheduler,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		production: cfg.Production,
		logger:     logger,
		now:        time.Now,
	}
}

// VoiceURL is the webhook that serves the verification prompt
func (s *VerificationService) VoiceURL(id uuid.UUID) string {
	return s.baseURL + "/api/telephony/voice/" + id.String()
}

// GatherURL is the webhook that receives the pressed digit
func (s *VerificationService) GatherURL(id uuid.UUID) string {
	return s.baseURL + "/api/telephony/gather/" + id.String()
}

// StatusURL is the webhook that receives call status changes
func (s *VerificationService) StatusURL(id uuid.UUID) string {
	return s.baseURL + "/api/telephony/status/" + id.String()
}

// Start places the verification call. A call that cannot be placed leaves
// the complaint pending for an admin: marked mock outside production and
// call_failed in production. A retry that cannot be placed rejects instead.
func (s *VerificationService) Start(ctx context.Context, c *models.Complaint) (*models.Complaint, error) {
	attempts := c.VerificationAttempts + 1
	upd := store.ComplaintUpdate{VerificationAttempts: &attempts}

	sid, err := s.call(ctx, c)
	if err != nil {
		vs := models.VerificationMock
		if s.production {
			vs = models.VerificationCallFailed
		}
		upd.PhoneVerificationStatus = &vs
		s.logger.Warnw("Verification call not placed",
			"complaint_id", c.ID,
			"status", vs,
			"error", err,
		)
	} else {
		vs := models.VerificationPending
		upd.PhoneVerificationStatus = &vs
		upd.PhoneVerificationCallSid = &sid
		s.logger.Infow("Verification call placed", "complaint_id", c.ID, "call_sid", sid, "attempt", attempts)
	}

	updated, err := s.complaints.UpdateComplaint(ctx, c.ID, store.ComplaintGuard{
		Statuses: []models.ComplaintStatus{models.StatusPending},
	}, upd)
	if err != nil {
		return nil, guardErr(err)
	}
	return updated, nil
}

func (s *VerificationService) call(ctx context.Context, c *models.Complaint) (string, error) {
	if s.gateway == nil {
		return "", telephony.ErrNotConfigured
	}
	if c.Phone == "" {
		return "", errors.New("complaint has no phone number")
	}
	return s.gateway.Call(ctx, telephony.NormalizePhone(c.Phone), s.VoiceURL(c.ID), s.StatusURL(c.ID))
}

// HandleDigits applies a keypad answer: "1" confirms, "2" rejects, anything
// else including a gather timeout fails verification
func (s *VerificationService) HandleDigits(ctx context.Context, complaintID uuid.UUID, digits string) (*VerificationOutcome, error) {
	c, err := s.complaints.GetComplaint(ctx, complaintID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound("Complaint not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load complaint: %w", err)
	}
	if c.Status != models.StatusPending {
		return &VerificationOutcome{Complaint: c, Reply: replyProcessed}, nil
	}

	switch strings.TrimSpace(digits) {
	case "1":
		return s.confirm(ctx, c)
	case "2":
		return s.reject(ctx, c)
	default:
		return s.fail(ctx, c, "Invalid input during phone verification")
	}
}

// HandleCallStatus reacts to the final status of a verification call. An
// unanswered first call is retried once after RetryDelay; an unanswered
// retry rejects the complaint.
func (s *VerificationService) HandleCallStatus(ctx context.Context, complaintID uuid.UUID, callStatus string) (*VerificationOutcome, error) {
	c, err := s.complaints.GetComplaint(ctx, complaintID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound("Complaint not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load complaint: %w", err)
	}
	if c.Status != models.StatusPending || c.PhoneVerificationStatus != models.VerificationPending {
		return &VerificationOutcome{Complaint: c}, nil
	}

	switch callStatus {
	case "no-answer", "busy", "failed", "canceled":
	case "completed":
		// answered but the prompt ended without a digit
		return s.fail(ctx, c, "No input during phone verification")
	default:
		return &VerificationOutcome{Complaint: c}, nil
	}

	if c.VerificationAttempts < maxCallAttempts {
		vs := models.VerificationNoAnswer
		updated, err := s.complaints.UpdateComplaint(ctx, c.ID, store.ComplaintGuard{
			Statuses: []models.ComplaintStatus{models.StatusPending},
		}, store.ComplaintUpdate{PhoneVerificationStatus: &vs})
		if err != nil {
			return nil, guardErr(err)
		}
		s.logger.Infow("Verification call unanswered, retry scheduled",
			"complaint_id", c.ID,
			"call_status", callStatus,
			"retry_in", RetryDelay,
		)
		s.scheduler.AfterFunc(RetryDelay, func() { s.retry(c.ID) })
		return &VerificationOutcome{Complaint: updated}, nil
	}

	return s.unreachable(ctx, c)
}

// unreachable closes a complaint whose owner could not be reached by phone
func (s *VerificationService) unreachable(ctx context.Context, c *models.Complaint) (*VerificationOutcome, error) {
	status := models.StatusRejected
	vs := models.VerificationRejected
	reason := NoAnswerRejectionReason
	return s.finish(ctx, c, store.ComplaintUpdate{
		Status:                  &status,
		PhoneVerificationStatus: &vs,
		RejectionReason:         &reason,
	}, "", "Complaint rejected", "We could not reach you to verify your complaint, so it has been closed.",
		models.ActivityVerificationFailed, reason)
}

func (s *VerificationService) retry(id uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c, err := s.complaints.GetComplaint(ctx, id)
	if err != nil {
		s.logger.Warnw("Verification retry skipped", "complaint_id", id, "error", err)
		return
	}
	if c.Status != models.StatusPending || c.PhoneVerificationStatus != models.VerificationNoAnswer {
		return
	}
	updated, err := s.Start(ctx, c)
	if err != nil {
		s.logger.Warnw("Verification retry failed", "complaint_id", id, "error", err)
		return
	}
	if updated.PhoneVerificationStatus == models.VerificationPending || updated.VerificationAttempts < maxCallAttempts {
		return
	}
	// the last attempt could not even be placed
	if _, err := s.unreachable(ctx, updated); err != nil {
		s.logger.Warnw("Verification retry rejection failed", "complaint_id", id, "error", err)
	}
}

func (s *VerificationService) confirm(ctx context.Context, c *models.Complaint) (*VerificationOutcome, error) {
	status := models.StatusPhoneVerified
	vs := models.VerificationVerified
	c, err := s.complaints.UpdateComplaint(ctx, c.ID, store.ComplaintGuard{
		Statuses: []models.ComplaintStatus{models.StatusPending},
	}, store.ComplaintUpdate{Status: &status, PhoneVerificationStatus: &vs})
	if errors.Is(err, store.ErrNotFound) {
		return &VerificationOutcome{Reply: replyProcessed}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update complaint: %w", err)
	}

	s.logger.Infow("Complaint verified by phone", "complaint_id", c.ID)

	approved := false
	effects := []effect{
		{name: "route", run: func(ctx context.Context) error {
			res, err := s.routing.RouteComplaint(ctx, c)
			if res != nil && res.Complaint != nil {
				c = res.Complaint
			}
			if err != nil {
				return err
			}
			if c.AssignedDepartment == nil {
				return nil
			}
			next := models.StatusInProgress
			updated, err := s.complaints.UpdateComplaint(ctx, c.ID, store.ComplaintGuard{
				Statuses: []models.ComplaintStatus{models.StatusPhoneVerified},
			}, store.ComplaintUpdate{Status: &next})
			if err != nil {
				return guardErr(err)
			}
			c, approved = updated, true
			return nil
		}},
		{name: "notify", run: func(ctx context.Context) error {
			msg := "Your complaint has been verified and is awaiting assignment."
			if approved {
				msg = "Your complaint has been verified and forwarded to the concerned department."
			}
			return s.notify.Notify(ctx, statusNotice(c, "Complaint verified", msg))
		}},
		{name: "points", run: func(ctx context.Context) error {
			if !approved {
				return nil
			}
			_, err := s.rewards.Award(ctx, c.UserID, ApprovalPoints, "Complaint approved via phone verification", uuidPtr(c.ID))
			return err
		}},
		{name: "chat", run: func(ctx context.Context) error {
			if !approved {
				return nil
			}
			return s.chat.EnsureRooms(ctx, c)
		}},
		{name: "activity", run: func(ctx context.Context) error {
			return s.activity.Log(ctx, c.ID, models.ActivityPhoneVerified, "Confirmed by the citizen over the phone", nil)
		}},
	}
	results := runEffects(ctx, s.logger, c.ID, effects)
	return &VerificationOutcome{Complaint: c, Reply: replyConfirmed, Effects: results}, nil
}

func (s *VerificationService) reject(ctx context.Context, c *models.Complaint) (*VerificationOutcome, error) {
	status := models.StatusRejected
	vs := models.VerificationRejected
	reason := PhoneRejectionReason
	return s.finish(ctx, c, store.ComplaintUpdate{
		Status:                  &status,
		PhoneVerificationStatus: &vs,
		RejectionReason:         &reason,
	}, replyRejected, "Complaint cancelled", "Your complaint was cancelled during phone verification.",
		models.ActivityRejected, reason)
}

func (s *VerificationService) fail(ctx context.Context, c *models.Complaint, why string) (*VerificationOutcome, error) {
	status := models.StatusVerificationFailed
	vs := models.VerificationFailed
	return s.finish(ctx, c, store.ComplaintUpdate{
		Status:                  &status,
		PhoneVerificationStatus: &vs,
	}, replyInvalid, "Verification failed", "We could not verify your complaint over the phone.",
		models.ActivityVerificationFailed, why)
}

// finish applies a terminal verification outcome to a pending complaint
func (s *VerificationService) finish(ctx context.Context, c *models.Complaint, upd store.ComplaintUpdate, reply, title, message, activityType, description string) (*VerificationOutcome, error) {
	c, err := s.complaints.UpdateComplaint(ctx, c.ID, store.ComplaintGuard{
		Statuses: []models.ComplaintStatus{models.StatusPending},
	}, upd)
	if errors.Is(err, store.ErrNotFound) {
		return &VerificationOutcome{Reply: replyProcessed}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update complaint: %w", err)
	}

	s.logger.Infow("Phone verification finished", "complaint_id", c.ID, "status", c.Status)

	results := runEffects(ctx, s.logger, c.ID, []effect{
		{name: "notify", run: func(ctx context.Context) error {
			return s.notify.Notify(ctx, statusNotice(c, title, message))
		}},
		{name: "activity", run: func(ctx context.Context) error {
			return s.activity.Log(ctx, c.ID, activityType, description, nil)
		}},
	})
	return &VerificationOutcome{Complaint: c, Reply: reply, Effects: results}, nil
}
