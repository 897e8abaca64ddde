package store

import (
	"context"
	"time"

	"github.com/aawaaz/complaint-server/internal/models"
	"github.com/google/uuid"
)

// CreateNotification inserts a notification row
func (p *Postgres) CreateNotification(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, complaint_id, type, title, message, status, created_at, read_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := p.db.Exec(ctx, query, n.ID, n.UserID, n.ComplaintID, n.Type, n.Title, n.Message, n.Status, n.CreatedAt, n.ReadAt)
	return mapErr(err, "insert notification")
}

// ListNotifications returns a user's notifications, newest first
func (p *Postgres) ListNotifications(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Notification, error) {
	query := `
		SELECT id, user_id, complaint_id, type, title, message, status, created_at, read_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := p.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, mapErr(err, "list notifications")
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.ComplaintID, &n.Type, &n.Title, &n.Message,
			&n.Status, &n.CreatedAt, &n.ReadAt); err != nil {
			return nil, mapErr(err, "scan notification")
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

// MarkNotificationRead flips a notification owned by userID to read
func (p *Postgres) MarkNotificationRead(ctx context.Context, id, userID uuid.UUID, at time.Time) error {
	tag, err := p.db.Exec(ctx, `UPDATE notifications SET status = 'read', read_at = COALESCE(read_at, $3)
		WHERE id = $1 AND user_id = $2`, id, userID, at)
	if err != nil {
		return mapErr(err, "mark notification read")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// LogActivity appends to the complaint audit trail
func (p *Postgres) LogActivity(ctx context.Context, a *models.ActivityLog) error {
	query := `
		INSERT INTO activity_logs (id, complaint_id, activity_type, description, actor_role, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := p.db.Exec(ctx, query, a.ID, a.ComplaintID, a.ActivityType, a.Description, a.ActorRole, a.ActorID, a.CreatedAt)
	return mapErr(err, "insert activity log")
}

// ListActivity returns the audit trail of one complaint, newest first
func (p *Postgres) ListActivity(ctx context.Context, complaintID uuid.UUID, limit int) ([]models.ActivityLog, error) {
	query := `
		SELECT id, complaint_id, activity_type, description, actor_role, actor_id, created_at
		FROM activity_logs
		WHERE complaint_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := p.db.Query(ctx, query, complaintID, limit)
	if err != nil {
		return nil, mapErr(err, "list activity")
	}
	defer rows.Close()

	var logs []models.ActivityLog
	for rows.Next() {
		var log models.ActivityLog
		if err := rows.Scan(&log.ID, &log.ComplaintID, &log.ActivityType, &log.Description,
			&log.ActorRole, &log.ActorID, &log.CreatedAt); err != nil {
			continue
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
