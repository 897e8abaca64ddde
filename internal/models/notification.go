package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType categorises a user notification
type NotificationType string

const (
	NotificationStatusUpdate NotificationType = "status_update"
	NotificationComment      NotificationType = "comment"
	NotificationUpvote       NotificationType = "upvote"
	NotificationAdminMessage NotificationType = "admin_message"
)

// NotificationState is the read state of a notification
type NotificationState string

const (
	NotificationUnread NotificationState = "unread"
	NotificationRead   NotificationState = "read"
)

// Notification is a one-way message owned by a user
type Notification struct {
	ID          uuid.UUID         `json:"id"`
	UserID      uuid.UUID         `json:"user_id"`
	ComplaintID *uuid.UUID        `json:"complaint_id,omitempty"`
	Type        NotificationType  `json:"type"`
	Title       string            `json:"title"`
	Message     string            `json:"message"`
	Status      NotificationState `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	ReadAt      *time.Time        `json:"read_at,omitempty"`
}
