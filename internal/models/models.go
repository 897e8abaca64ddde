// Package models defines the data structures used across the application.
// Relational entities map to the PostgreSQL schema; chats are stored as
// MongoDB documents.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies which kind of account a principal belongs to
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleDepartment Role = "department"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleDepartment:
		return true
	}
	return false
}

// Principal is the authenticated caller of a request
type Principal struct {
	ID   uuid.UUID `json:"id"`
	Role Role      `json:"role"`
}

// ActivityLog records a lifecycle transition for accountability tracking
type ActivityLog struct {
	ID           uuid.UUID `json:"id" db:"id"`
	ComplaintID  uuid.UUID `json:"complaint_id" db:"complaint_id"`
	ActivityType string    `json:"activity_type" db:"activity_type"`
	Description  string    `json:"description" db:"description"`
	ActorRole    string    `json:"actor_role" db:"actor_role"`
	ActorID      string    `json:"actor_id,omitempty" db:"actor_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Activity types written by the lifecycle
const (
	ActivitySubmitted          = "submitted"
	ActivityApproved           = "approved"
	ActivityRejected           = "rejected"
	ActivityAssigned           = "assigned"
	ActivityDepartmentRejected = "department_rejected"
	ActivityResolved           = "resolved"
	ActivityPhoneVerified      = "phone_verified"
	ActivityVerificationFailed = "verification_failed"
	ActivityWarningGiven       = "warning_given"
)

// StatusCount is one bucket of the admin analytics breakdown
type StatusCount struct {
	Status ComplaintStatus `json:"status"`
	Count  int             `json:"count"`
}

// Analytics summarises the complaints inside an admin's scope.
// Average durations skip complaints whose timestamps were never set.
type Analytics struct {
	City                 string        `json:"city"`
	State                string        `json:"state"`
	Total                int           `json:"total"`
	ByStatus             []StatusCount `json:"by_status"`
	AvgResponseHours     float64       `json:"avg_response_hours"`
	AvgResolveHours      float64       `json:"avg_resolve_hours"`
	ResponseSampleSize   int           `json:"response_sample_size"`
	ResolutionSampleSize int           `json:"resolution_sample_size"`
}

// HealthStatus represents the server health check response
type HealthStatus struct {
	Status   string            `json:"status"`
	Version  string            `json:"version"`
	Uptime   string            `json:"uptime,omitempty"`
	Backends map[string]string `json:"backends,omitempty"`
}
