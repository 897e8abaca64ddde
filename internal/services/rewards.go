package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aawaaz/complaint-server/internal/mailer"
	"github.com/aawaaz/complaint-server/internal/models"
	"github.com/aawaaz/complaint-server/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ApprovalPoints is awarded whenever a complaint is approved
const ApprovalPoints = 5

// RewardService owns the points ledger and the reward catalog
type RewardService struct {
	users   store.UserStore
	rewards store.RewardStore
	mail    mailer.Mailer
	logger  *zap.SugaredLogger
	now     func() time.Time
}

// NewRewardService creates a reward service. mail may be nil.
func NewRewardService(users store.UserStore, rewards store.RewardStore, mail mailer.Mailer, logger *zap.SugaredLogger) *RewardService {
	return &RewardService{users: users, rewards: rewards, mail: mail, logger: logger, now: time.Now}
}

// Award credits points with a ledger entry
func (s *RewardService) Award(ctx context.Context, userID uuid.UUID, points int, reason string, complaintID *uuid.UUID) (*models.User, error) {
	u, err := s.users.AdjustPoints(ctx, userID, models.PointsEntry{
		Points:      points,
		Reason:      reason,
		ComplaintID: complaintID,
		AwardedAt:   s.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("award points: %w", err)
	}
	s.logger.Infow("Points awarded", "user_id", userID, "points", points, "balance", u.Points)
	return u, nil
}

// Balance returns the caller's points and ledger
func (s *RewardService) Balance(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	u, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound("User not found")
	}
	return u, err
}

// NewReward is the input of CreateReward
type NewReward struct {
	Title                 string `json:"title"`
	Description           string `json:"description"`
	PointsRequired        int    `json:"points_required"`
	MaxRedemptionsPerUser int    `json:"max_redemptions_per_user"`
	Stock                 *int   `json:"stock"`
}

// CreateReward adds an active reward to the catalog. A nil stock is unlimited.
func (s *RewardService) CreateReward(ctx context.Context, in NewReward) (*models.Reward, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, invalid("Title is required")
	}
	if in.PointsRequired <= 0 {
		return nil, invalid("Points required must be positive")
	}
	if in.MaxRedemptionsPerUser < 0 {
		return nil, invalid("Max redemptions per user cannot be negative")
	}
	r := &models.Reward{
		ID:                    uuid.New(),
		Title:                 title,
		Description:           strings.TrimSpace(in.Description),
		PointsRequired:        in.PointsRequired,
		MaxRedemptionsPerUser: in.MaxRedemptionsPerUser,
		Stock:                 -1,
		IsActive:              true,
		CreatedAt:             s.now().UTC(),
	}
	if in.Stock != nil {
		r.Stock = *in.Stock
	}
	if err := s.rewards.CreateReward(ctx, r); err != nil {
		return nil, fmt.Errorf("create reward: %w", err)
	}
	return r, nil
}

// ListRewards returns the active catalog, or everything for admins
func (s *RewardService) ListRewards(ctx context.Context, activeOnly bool) ([]*models.Reward, error) {
	out, err := s.rewards.ListRewards(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	if out == nil {
		out = []*models.Reward{}
	}
	return out, nil
}

// RedeemRequest is the input of Redeem
type RedeemRequest struct {
	DeliveryAddress string `json:"delivery_address"`
	ContactPhone    string `json:"contact_phone"`
	Notes           string `json:"notes"`
	// SendEmail defaults to true
	SendEmail *bool `json:"send_email"`
}

// Redeem spends points on a reward. The limit, stock and balance checks and
// the debit happen atomically in the store.
func (s *RewardService) Redeem(ctx context.Context, userID, rewardID uuid.UUID, req RedeemRequest) (*models.UserRedemption, *models.User, error) {
	red, u, err := s.rewards.Redeem(ctx, store.RedeemParams{
		UserID:          userID,
		RewardID:        rewardID,
		DeliveryAddress: strings.TrimSpace(req.DeliveryAddress),
		ContactPhone:    strings.TrimSpace(req.ContactPhone),
		Notes:           strings.TrimSpace(req.Notes),
		At:              s.now().UTC(),
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, nil, notFound("Reward not found")
	case errors.Is(err, store.ErrInsufficientPoints):
		return nil, nil, invalid("Insufficient points")
	case errors.Is(err, store.ErrRedemptionLimit):
		return nil, nil, invalid("Maximum redemptions reached for this reward")
	case errors.Is(err, store.ErrRewardUnavailable):
		return nil, nil, invalid("Reward is not available")
	case err != nil:
		return nil, nil, fmt.Errorf("redeem: %w", err)
	}

	s.logger.Infow("Reward redeemed", "user_id", userID, "reward_id", rewardID, "points", red.PointsSpent)

	if s.mail != nil && u.Email != "" && (req.SendEmail == nil || *req.SendEmail) {
		body := fmt.Sprintf("Your redemption of %d points is pending fulfilment. Remaining balance: %d.", red.PointsSpent, u.Points)
		if err := s.mail.Send(context.WithoutCancel(ctx), u.Email, u.Name, "Reward redemption received", body); err != nil {
			s.logger.Warnw("Redemption email failed", "user_id", userID, "error", err)
		}
	}
	return red, u, nil
}

// Redemptions lists the caller's redemptions
func (s *RewardService) Redemptions(ctx context.Context, userID uuid.UUID) ([]*models.UserRedemption, error) {
	out, err := s.rewards.ListRedemptions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list redemptions: %w", err)
	}
	if out == nil {
		out = []*models.UserRedemption{}
	}
	return out, nil
}

// SetRedemptionStatus moves a redemption along pending, approved, completed.
// Cancelling refunds the points.
func (s *RewardService) SetRedemptionStatus(ctx context.Context, id uuid.UUID, next models.RedemptionStatus) (*models.UserRedemption, error) {
	red, err := s.rewards.SetRedemptionStatus(ctx, id, next, s.now().UTC())
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, notFound("Redemption not found")
	case errors.Is(err, store.ErrInvalidTransition):
		return nil, invalid("Cannot move redemption to %s", next)
	case err != nil:
		return nil, fmt.Errorf("set redemption status: %w", err)
	}
	return red, nil
}
