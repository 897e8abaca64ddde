package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aawaaz/complaint-server/internal/mailer"
	"github.com/aawaaz/complaint-server/internal/models"
	"github.com/aawaaz/complaint-server/internal/store"
	"github.com/aawaaz/complaint-server/internal/telephony"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notice is one message to deliver to a citizen
type Notice struct {
	UserID      uuid.UUID
	ComplaintID *uuid.UUID
	Type        models.NotificationType
	Title       string
	Message     string
	// Phone receives an SMS copy when set
	Phone string
}

// NotificationService stores notifications and fans them out over SMS and
// email. Only the stored row is required; the copies are best-effort.
type NotificationService struct {
	notifications store.NotificationStore
	users         store.UserStore
	sms           telephony.Gateway
	mail          mailer.Mailer
	logger        *zap.SugaredLogger
	now           func() time.Time
}

// NewNotificationService creates a notification service. sms and mail may be nil.
func NewNotificationService(notifications store.NotificationStore, users store.UserStore, sms telephony.Gateway, mail mailer.Mailer, logger *zap.SugaredLogger) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		users:         users,
		sms:           sms,
		mail:          mail,
		logger:        logger,
		now:           time.Now,
	}
}

// Notify stores n and sends the SMS and email copies
func (s *NotificationService) Notify(ctx context.Context, n Notice) error {
	row := &models.Notification{
		ID:          uuid.New(),
		UserID:      n.UserID,
		ComplaintID: n.ComplaintID,
		Type:        n.Type,
		Title:       n.Title,
		Message:     n.Message,
		Status:      models.NotificationUnread,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.notifications.CreateNotification(ctx, row); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}

	if s.sms != nil && n.Phone != "" {
		if err := s.sms.SendSMS(ctx, telephony.NormalizePhone(n.Phone), n.Title+": "+n.Message); err != nil && !errors.Is(err, telephony.ErrNotConfigured) {
			s.logger.Warnw("SMS notification failed", "user_id", n.UserID, "error", err)
		}
	}

	if s.mail != nil {
		u, err := s.users.GetUser(ctx, n.UserID)
		if err != nil {
			s.logger.Warnw("Notification recipient lookup failed", "user_id", n.UserID, "error", err)
			return nil
		}
		if u.Email != "" {
			if err := s.mail.Send(ctx, u.Email, u.Name, n.Title, n.Message); err != nil {
				s.logger.Warnw("Email notification failed", "user_id", n.UserID, "error", err)
			}
		}
	}
	return nil
}

// List returns the caller's notifications, newest first
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	out, err := s.notifications.ListNotifications(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	if out == nil {
		out = []*models.Notification{}
	}
	return out, nil
}

// MarkRead marks one of the caller's notifications read
func (s *NotificationService) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	err := s.notifications.MarkNotificationRead(ctx, id, userID, s.now().UTC())
	if errors.Is(err, store.ErrNotFound) {
		return notFound("Notification not found")
	}
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

func statusNotice(c *models.Complaint, title, message string) Notice {
	id := c.ID
	return Notice{
		UserID:      c.UserID,
		ComplaintID: &id,
		Type:        models.NotificationStatusUpdate,
		Title:       title,
		Message:     message,
		Phone:       c.Phone,
	}
}
