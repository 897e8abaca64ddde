package services

import (
	"context"
	"fmt"
	"time"

	"github.com/aawaaz/complaint-server/internal/models"
	"github.com/aawaaz/complaint-server/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ActivityLogService records lifecycle transitions for accountability tracking
type ActivityLogService struct {
	store  store.ActivityStore
	logger *zap.SugaredLogger
	now    func() time.Time
}

// NewActivityLogService creates a new activity log service
func NewActivityLogService(s store.ActivityStore, logger *zap.SugaredLogger) *ActivityLogService {
	return &ActivityLogService{store: s, logger: logger, now: time.Now}
}

// Log records one transition performed by actor. A nil actor is the system.
func (s *ActivityLogService) Log(ctx context.Context, complaintID uuid.UUID, activityType, description string, actor *models.Principal) error {
	entry := &models.ActivityLog{
		ID:           uuid.New(),
		ComplaintID:  complaintID,
		ActivityType: activityType,
		Description:  description,
		ActorRole:    "system",
		CreatedAt:    s.now().UTC(),
	}
	if actor != nil {
		entry.ActorRole = string(actor.Role)
		entry.ActorID = actor.ID.String()
	}

	if err := s.store.LogActivity(ctx, entry); err != nil {
		return fmt.Errorf("insert activity log: %w", err)
	}

	s.logger.Infow("Activity logged",
		"complaint_id", complaintID,
		"type", activityType,
		"actor", entry.ActorRole,
	)
	return nil
}

// FetchByComplaint returns the audit trail of a complaint, newest first
func (s *ActivityLogService) FetchByComplaint(ctx context.Context, complaintID uuid.UUID, limit int) ([]models.ActivityLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	logs, err := s.store.ListActivity(ctx, complaintID, limit)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	if logs == nil {
		logs = []models.ActivityLog{}
	}
	return logs, nil
}
