// Package store defines the persistence interfaces used by the services and
// their PostgreSQL, MongoDB and in-memory implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/aawaaz/complaint-server/internal/models"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no row matches the id or the guard of a
	// conditional update.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned on a uniqueness violation.
	ErrConflict = errors.New("conflict")
	// ErrInsufficientPoints is returned when a debit would make points negative.
	ErrInsufficientPoints = errors.New("insufficient points")
	// ErrRedemptionLimit is returned when a user reached maxRedemptionsPerUser.
	ErrRedemptionLimit = errors.New("redemption limit reached")
	// ErrRewardUnavailable is returned for inactive or out of stock rewards.
	ErrRewardUnavailable = errors.New("reward unavailable")
	// ErrInvalidTransition is returned for a redemption status move that is not allowed.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ComplaintGuard is the condition a complaint must meet for an update to
// apply. Zero-valued fields are not checked.
type ComplaintGuard struct {
	Statuses []models.ComplaintStatus
	// City and State are compared case-insensitively.
	City         string
	State        string
	UserID       *uuid.UUID
	DepartmentID *uuid.UUID
	Unassigned   bool
}

// ComplaintUpdate lists the fields to write. Nil fields are left untouched.
type ComplaintUpdate struct {
	Status                   *models.ComplaintStatus
	AssignedAdmin            *uuid.UUID
	AssignedDepartment       *uuid.UUID
	AssignedAt               *time.Time
	Priority                 *string
	Reason                   *string
	RejectionReason          *string
	DepartmentRejection      *models.DepartmentRejection
	PhoneVerificationStatus  *models.VerificationStatus
	PhoneVerificationCallSid *string
	VerificationAttempts     *int
	DetectedDepartmentInfo   *models.DetectionResult
	AutoRoutingData          *models.AutoRoutingData
	ResolvedAt               *time.Time
	AppendMessage            *models.ComplaintMessage
}

// ComplaintFilter narrows complaint listings. Zero-valued fields are ignored.
type ComplaintFilter struct {
	UserID       *uuid.UUID
	City         string
	State        string
	DepartmentID *uuid.UUID
	Statuses     []models.ComplaintStatus
	Limit        int
}

// ComplaintStore persists complaints
type ComplaintStore interface {
	CreateComplaint(ctx context.Context, c *models.Complaint) error
	GetComplaint(ctx context.Context, id uuid.UUID) (*models.Complaint, error)
	ListComplaints(ctx context.Context, f ComplaintFilter) ([]*models.Complaint, error)
	// UpdateComplaint applies upd in a single conditional write and returns
	// the updated complaint, or ErrNotFound when the guard does not hold.
	UpdateComplaint(ctx context.Context, id uuid.UUID, guard ComplaintGuard, upd ComplaintUpdate) (*models.Complaint, error)
}

// UserStore persists citizen accounts and their points ledger
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByPhone(ctx context.Context, phone string) (*models.User, error)
	GetUserByGoogleID(ctx context.Context, googleID string) (*models.User, error)
	LinkGoogleID(ctx context.Context, id uuid.UUID, googleID string) error
	// AdjustPoints adds entry.Points to the balance and appends entry to the
	// ledger in one write. A debit below zero yields ErrInsufficientPoints.
	AdjustPoints(ctx context.Context, userID uuid.UUID, entry models.PointsEntry) (*models.User, error)
	// AddWarning increments the warning count, appends w and flips the
	// account to warned at models.WarningThreshold.
	AddWarning(ctx context.Context, userID uuid.UUID, w models.WarningEntry) (*models.User, error)
	Blacklist(ctx context.Context, userID uuid.UUID, reason string) (*models.User, error)
}

// AdminStore persists city admins
type AdminStore interface {
	CreateAdmin(ctx context.Context, a *models.Admin) error
	GetAdmin(ctx context.Context, id uuid.UUID) (*models.Admin, error)
	GetAdminByLogin(ctx context.Context, adminID string) (*models.Admin, error)
	FindAdminsByScope(ctx context.Context, city, state string) ([]*models.Admin, error)
}

// DepartmentMatch selects how DepartmentQuery.Value is compared
type DepartmentMatch int

const (
	MatchCityExact DepartmentMatch = iota
	MatchCityPartial
	MatchDistrict
	MatchState
)

// String names the match mode; used as the routing tier label
func (m DepartmentMatch) String() string {
	switch m {
	case MatchCityExact:
		return "city_exact"
	case MatchCityPartial:
		return "city_partial"
	case MatchDistrict:
		return "district"
	case MatchState:
		return "state"
	}
	return "unknown"
}

// DepartmentQuery looks departments up by location. An empty Type matches
// every department type. All comparisons are case-insensitive.
type DepartmentQuery struct {
	Type  models.DepartmentType
	Match DepartmentMatch
	Value string
}

// DepartmentStore persists departments
type DepartmentStore interface {
	CreateDepartment(ctx context.Context, d *models.Department) error
	GetDepartment(ctx context.Context, id uuid.UUID) (*models.Department, error)
	GetDepartmentByLogin(ctx context.Context, departmentID string) (*models.Department, error)
	FindDepartments(ctx context.Context, q DepartmentQuery) ([]*models.Department, error)
}

// NotificationStore persists user notifications
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID uuid.UUID, at time.Time) error
}

// RedeemParams describes one redemption attempt
type RedeemParams struct {
	UserID          uuid.UUID
	RewardID        uuid.UUID
	DeliveryAddress string
	ContactPhone    string
	Notes           string
	At              time.Time
}

// RewardStore persists the reward catalog and redemptions
type RewardStore interface {
	CreateReward(ctx context.Context, r *models.Reward) error
	GetReward(ctx context.Context, id uuid.UUID) (*models.Reward, error)
	ListRewards(ctx context.Context, activeOnly bool) ([]*models.Reward, error)
	// Redeem checks the per-user limit, stock and balance, debits the points
	// through the ledger and records the redemption, all or nothing.
	Redeem(ctx context.Context, p RedeemParams) (*models.UserRedemption, *models.User, error)
	ListRedemptions(ctx context.Context, userID uuid.UUID) ([]*models.UserRedemption, error)
	// SetRedemptionStatus moves a redemption to next. Moving to cancelled
	// refunds the points with a ledger entry.
	SetRedemptionStatus(ctx context.Context, id uuid.UUID, next models.RedemptionStatus, at time.Time) (*models.UserRedemption, error)
}

// ActivityStore persists the complaint audit trail
type ActivityStore interface {
	LogActivity(ctx context.Context, a *models.ActivityLog) error
	ListActivity(ctx context.Context, complaintID uuid.UUID, limit int) ([]models.ActivityLog, error)
}

// ChatStore persists chat rooms, one per (complaint, chat type)
type ChatStore interface {
	// EnsureChat inserts chat unless a room for its (ComplaintID, ChatType)
	// already exists, and returns the stored room either way.
	EnsureChat(ctx context.Context, chat *models.Chat) (*models.Chat, bool, error)
	GetChat(ctx context.Context, complaintID string, chatType models.ChatType) (*models.Chat, error)
	AddParticipant(ctx context.Context, complaintID string, chatType models.ChatType, p models.Participant) error
	AppendChatMessage(ctx context.Context, complaintID string, chatType models.ChatType, msg models.ChatMessage) error
	// MarkChatRead adds a receipt for readerID to every message from someone
	// else that the reader has not read yet. ErrNotFound when the room is missing.
	MarkChatRead(ctx context.Context, complaintID string, chatType models.ChatType, readerID string, at time.Time) error
	TouchParticipant(ctx context.Context, complaintID string, chatType models.ChatType, participantID string, at time.Time) error
}
