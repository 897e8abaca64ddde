package models

import (
	"time"

	"github.com/google/uuid"
)

// Reward is a catalog item that users redeem points for
type Reward struct {
	ID                    uuid.UUID `json:"id"`
	Title                 string    `json:"title"`
	Description           string    `json:"description,omitempty"`
	PointsRequired        int       `json:"points_required"`
	MaxRedemptionsPerUser int       `json:"max_redemptions_per_user"`
	// Stock < 0 means unlimited
	Stock     int       `json:"stock"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// RedemptionStatus is the fulfilment state of a redemption
type RedemptionStatus string

const (
	RedemptionPending   RedemptionStatus = "pending"
	RedemptionApproved  RedemptionStatus = "approved"
	RedemptionCompleted RedemptionStatus = "completed"
	RedemptionCancelled RedemptionStatus = "cancelled"
)

// CanMoveTo reports whether a redemption may move from s to next
func (s RedemptionStatus) CanMoveTo(next RedemptionStatus) bool {
	switch s {
	case RedemptionPending:
		return next == RedemptionApproved || next == RedemptionCancelled
	case RedemptionApproved:
		return next == RedemptionCompleted || next == RedemptionCancelled
	}
	return false
}

// UserRedemption is one redemption ledger entry
type UserRedemption struct {
	ID              uuid.UUID        `json:"id"`
	UserID          uuid.UUID        `json:"user_id"`
	RewardID        uuid.UUID        `json:"reward_id"`
	PointsSpent     int              `json:"points_spent"`
	Status          RedemptionStatus `json:"status"`
	DeliveryAddress string           `json:"delivery_address,omitempty"`
	ContactPhone    string           `json:"contact_phone,omitempty"`
	Notes           string           `json:"notes,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}
