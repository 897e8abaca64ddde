package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// AccountStatus is the moderation state of a citizen account
type AccountStatus string

const (
	AccountActive      AccountStatus = "active"
	AccountWarned      AccountStatus = "warned"
	AccountBlacklisted AccountStatus = "blacklisted"
)

// WarningThreshold is the warning count at which an account becomes "warned"
const WarningThreshold = 3

// PointsEntry is one append-only line of the points ledger
type PointsEntry struct {
	Points      int        `json:"points"`
	Reason      string     `json:"reason"`
	ComplaintID *uuid.UUID `json:"complaint_id,omitempty"`
	AwardedAt   time.Time  `json:"awarded_at"`
}

// WarningEntry is one moderation warning issued by an admin
type WarningEntry struct {
	Reason      string     `json:"reason"`
	Notes       string     `json:"notes,omitempty"`
	ComplaintID *uuid.UUID `json:"complaint_id,omitempty"`
	IssuedBy    uuid.UUID  `json:"issued_by"`
	IssuedAt    time.Time  `json:"issued_at"`
}

// Warnings is the embedded moderation record of a user
type Warnings struct {
	Count   int            `json:"count"`
	History []WarningEntry `json:"history"`
}

// User is a citizen account. Points always equal the sum of PointsHistory.
type User struct {
	ID              uuid.UUID     `json:"id"`
	Name            string        `json:"name"`
	Email           string        `json:"email,omitempty"`
	Phone           string        `json:"phone,omitempty"`
	GoogleID        string        `json:"-"`
	PasswordHash    string        `json:"-"`
	Points          int           `json:"points"`
	PointsHistory   []PointsEntry `json:"points_history"`
	Warnings        Warnings      `json:"warnings"`
	AccountStatus   AccountStatus `json:"account_status"`
	IsBlacklisted   bool          `json:"is_blacklisted"`
	BlacklistReason string        `json:"blacklist_reason,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

// Admin is scoped to exactly one city/state pair
type Admin struct {
	ID            uuid.UUID `json:"id"`
	AdminID       string    `json:"admin_id"`
	Name          string    `json:"name"`
	Email         string    `json:"email,omitempty"`
	PasswordHash  string    `json:"-"`
	AssignedCity  string    `json:"assigned_city"`
	AssignedState string    `json:"assigned_state"`
	CreatedAt     time.Time `json:"created_at"`
}

// DepartmentType is the closed set of department kinds
type DepartmentType string

const (
	DepartmentFire        DepartmentType = "Fire Department"
	DepartmentPolice      DepartmentType = "Police Department"
	DepartmentWater       DepartmentType = "Water Department"
	DepartmentRoad        DepartmentType = "Road Department"
	DepartmentHealth      DepartmentType = "Health Department"
	DepartmentElectricity DepartmentType = "Electricity Department"
	DepartmentMunicipal   DepartmentType = "Municipal Corporation"
	DepartmentOther       DepartmentType = "Other"
)

// DepartmentTypes lists the department kinds in routing priority order
var DepartmentTypes = []DepartmentType{
	DepartmentFire,
	DepartmentPolice,
	DepartmentWater,
	DepartmentRoad,
	DepartmentHealth,
	DepartmentElectricity,
	DepartmentMunicipal,
	DepartmentOther,
}

// ParseDepartmentType matches s case-insensitively against the closed enum
func ParseDepartmentType(s string) (DepartmentType, bool) {
	for _, t := range DepartmentTypes {
		if strings.EqualFold(string(t), strings.TrimSpace(s)) {
			return t, true
		}
	}
	return "", false
}

// Department is scoped to a city, district and state
type Department struct {
	ID               uuid.UUID      `json:"id"`
	DepartmentID     string         `json:"department_id"`
	Name             string         `json:"name"`
	DepartmentType   DepartmentType `json:"department_type"`
	Email            string         `json:"email,omitempty"`
	PasswordHash     string         `json:"-"`
	AssignedCity     string         `json:"assigned_city"`
	AssignedDistrict string         `json:"assigned_district"`
	AssignedState    string         `json:"assigned_state"`
	CreatedAt        time.Time      `json:"created_at"`
}
