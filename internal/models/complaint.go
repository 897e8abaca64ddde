package models

import (
	"time"

	"github.com/google/uuid"
)

// ComplaintStatus is the lifecycle state of a complaint
type ComplaintStatus string

const (
	StatusPending              ComplaintStatus = "pending"
	StatusPhoneVerified        ComplaintStatus = "phone_verified"
	StatusInProgress           ComplaintStatus = "in_progress"
	StatusResolved             ComplaintStatus = "resolved"
	StatusRejected             ComplaintStatus = "rejected"
	StatusRejectedByDepartment ComplaintStatus = "rejected_by_department"
	StatusVerificationFailed   ComplaintStatus = "verification_failed"
)

// AllStatuses lists every state a complaint can be in
var AllStatuses = []ComplaintStatus{
	StatusPending,
	StatusPhoneVerified,
	StatusInProgress,
	StatusResolved,
	StatusRejected,
	StatusRejectedByDepartment,
	StatusVerificationFailed,
}

// Valid reports whether s is a defined lifecycle state
func (s ComplaintStatus) Valid() bool {
	for _, v := range AllStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Terminal reports whether no further lifecycle transition leaves s
func (s ComplaintStatus) Terminal() bool {
	switch s {
	case StatusResolved, StatusRejected, StatusRejectedByDepartment, StatusVerificationFailed:
		return true
	}
	return false
}

// VerificationStatus tracks the phone verification sub-machine
type VerificationStatus string

const (
	VerificationNotStarted VerificationStatus = "not_started"
	VerificationPending    VerificationStatus = "pending_verification"
	VerificationNoAnswer   VerificationStatus = "no_answer"
	VerificationVerified   VerificationStatus = "phone_verified"
	VerificationRejected   VerificationStatus = "rejected"
	VerificationFailed     VerificationStatus = "verification_failed"
	// VerificationMock marks complaints whose call could not be placed
	// outside production; they wait for an admin decision instead.
	VerificationMock VerificationStatus = "mock"
	// VerificationCallFailed marks a production call that could not be placed.
	VerificationCallFailed VerificationStatus = "call_failed"
)

// Location is the submitted coordinate plus its reverse-geocoded address
type Location struct {
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	Street           string  `json:"street,omitempty"`
	Sublocality1     string  `json:"sublocality_1,omitempty"`
	Sublocality2     string  `json:"sublocality_2,omitempty"`
	Sublocality3     string  `json:"sublocality_3,omitempty"`
	City             string  `json:"city,omitempty"`
	District         string  `json:"district,omitempty"`
	State            string  `json:"state,omitempty"`
	PostalCode       string  `json:"postal_code,omitempty"`
	Country          string  `json:"country,omitempty"`
	FormattedAddress string  `json:"formatted_address,omitempty"`
	DetailedAddress  string  `json:"detailed_address,omitempty"`
}

// DepartmentRejection is recorded when a department refuses a complaint
type DepartmentRejection struct {
	RejectedBy      uuid.UUID `json:"rejected_by"`
	RejectedAt      time.Time `json:"rejected_at"`
	Reason          string    `json:"reason"`
	AdditionalNotes string    `json:"additional_notes,omitempty"`
}

// DetectionResult is the department classification cached on a complaint
type DetectionResult struct {
	Department string    `json:"department"`
	Confidence float64   `json:"confidence"`
	Reasoning  string    `json:"reasoning,omitempty"`
	IsFallback bool      `json:"is_fallback"`
	DetectedAt time.Time `json:"detected_at"`
}

// AutoRoutingData is left on a complaint by each automatic routing pass
type AutoRoutingData struct {
	DetectedDepartment       string     `json:"detected_department,omitempty"`
	AssignedDepartment       *uuid.UUID `json:"assigned_department,omitempty"`
	Confidence               float64    `json:"confidence"`
	Tier                     string     `json:"tier,omitempty"`
	IsFallback               bool       `json:"is_fallback"`
	RequiresManualAssignment bool       `json:"requires_manual_assignment"`
	Error                    string     `json:"error,omitempty"`
	RoutedAt                 time.Time  `json:"routed_at"`
}

// MessageSender identifies who wrote an embedded complaint note
type MessageSender string

const (
	SenderUser  MessageSender = "user"
	SenderAdmin MessageSender = "admin"
)

// ComplaintMessage is a free-text note embedded in the complaint itself,
// distinct from chat messages
type ComplaintMessage struct {
	Sender      MessageSender `json:"sender"`
	Text        string        `json:"text"`
	Attachments []string      `json:"attachments,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Complaint is the central aggregate of the lifecycle
type Complaint struct {
	ID                       uuid.UUID            `json:"id"`
	UserID                   uuid.UUID            `json:"user_id"`
	Description              string               `json:"description"`
	Category                 string               `json:"category,omitempty"`
	Phone                    string               `json:"phone,omitempty"`
	Image                    string               `json:"image"`
	Audio                    string               `json:"audio,omitempty"`
	Location                 Location             `json:"location"`
	Status                   ComplaintStatus      `json:"status"`
	AssignedAdmin            *uuid.UUID           `json:"assigned_admin,omitempty"`
	AssignedCity             string               `json:"assigned_city"`
	AssignedState            string               `json:"assigned_state"`
	AssignedDepartment       *uuid.UUID           `json:"assigned_department,omitempty"`
	AssignedAt               *time.Time           `json:"assigned_at,omitempty"`
	Priority                 string               `json:"priority,omitempty"`
	Reason                   string               `json:"reason,omitempty"`
	RejectionReason          string               `json:"rejection_reason,omitempty"`
	DepartmentRejection      *DepartmentRejection `json:"department_rejection,omitempty"`
	PhoneVerificationStatus  VerificationStatus   `json:"phone_verification_status"`
	PhoneVerificationCallSid string               `json:"phone_verification_call_sid,omitempty"`
	VerificationAttempts     int                  `json:"verification_attempts"`
	DetectedDepartmentInfo   *DetectionResult     `json:"detected_department_info,omitempty"`
	AutoRoutingData          *AutoRoutingData     `json:"auto_routing_data,omitempty"`
	Messages                 []ComplaintMessage   `json:"messages"`
	ResolvedAt               *time.Time           `json:"resolved_at,omitempty"`
	CreatedAt                time.Time            `json:"created_at"`
	UpdatedAt                time.Time            `json:"updated_at"`
}

// Redacted returns a copy safe for the public explore feed
func (c *Complaint) Redacted() *Complaint {
	cp := *c
	cp.Phone = ""
	cp.PhoneVerificationCallSid = ""
	cp.Messages = nil
	cp.Location.DetailedAddress = ""
	cp.Location.Street = ""
	return &cp
}
