package store

import (
	"context"
	"fmt"
	"time"

	"github.com/aawaaz/complaint-server/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const rewardColumns = `id, title, description, points_required, max_redemptions_per_user, stock, is_active, created_at`

func scanReward(row pgx.Row) (*models.Reward, error) {
	var r models.Reward
	if err := row.Scan(&r.ID, &r.Title, &r.Description, &r.PointsRequired, &r.MaxRedemptionsPerUser,
		&r.Stock, &r.IsActive, &r.CreatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

const redemptionColumns = `id, user_id, reward_id, points_spent, status, delivery_address, contact_phone, notes, created_at, updated_at`

func scanRedemption(row pgx.Row) (*models.UserRedemption, error) {
	var r models.UserRedemption
	if err := row.Scan(&r.ID, &r.UserID, &r.RewardID, &r.PointsSpent, &r.Status,
		&r.DeliveryAddress, &r.ContactPhone, &r.Notes, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateReward inserts a catalog entry
func (p *Postgres) CreateReward(ctx context.Context, r *models.Reward) error {
	_, err := p.db.Exec(ctx, `INSERT INTO rewards (`+rewardColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.ID, r.Title, r.Description, r.PointsRequired, r.MaxRedemptionsPerUser, r.Stock, r.IsActive, r.CreatedAt)
	return mapErr(err, "insert reward")
}

// GetReward loads a reward by id
func (p *Postgres) GetReward(ctx context.Context, id uuid.UUID) (*models.Reward, error) {
	r, err := scanReward(p.db.QueryRow(ctx, `SELECT `+rewardColumns+` FROM rewards WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err, "get reward")
	}
	return r, nil
}

// ListRewards returns the catalog ordered by cost
func (p *Postgres) ListRewards(ctx context.Context, activeOnly bool) ([]*models.Reward, error) {
	query := `SELECT ` + rewardColumns + ` FROM rewards`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY points_required, created_at`

	rows, err := p.db.Query(ctx, query)
	if err != nil {
		return nil, mapErr(err, "list rewards")
	}
	defer rows.Close()

	var out []*models.Reward
	for rows.Next() {
		r, err := scanReward(rows)
		if err != nil {
			return nil, mapErr(err, "scan reward")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Redeem runs the whole redemption in one transaction. The reward row is
// locked first so the per-user count cannot race with a parallel attempt.
func (p *Postgres) Redeem(ctx context.Context, rp RedeemParams) (*models.UserRedemption, *models.User, error) {
	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("begin redeem: %w", err)
	}
	defer tx.Rollback(ctx)

	reward, err := scanReward(tx.QueryRow(ctx, `SELECT `+rewardColumns+` FROM rewards WHERE id = $1 FOR UPDATE`, rp.RewardID))
	if err != nil {
		return nil, nil, mapErr(err, "lock reward")
	}
	if !reward.IsActive || reward.Stock == 0 {
		return nil, nil, ErrRewardUnavailable
	}

	if reward.MaxRedemptionsPerUser > 0 {
		var count int
		err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM user_redemptions
			WHERE user_id = $1 AND reward_id = $2 AND status <> 'cancelled'`, rp.UserID, rp.RewardID).Scan(&count)
		if err != nil {
			return nil, nil, mapErr(err, "count redemptions")
		}
		if count >= reward.MaxRedemptionsPerUser {
			return nil, nil, ErrRedemptionLimit
		}
	}

	user, err := adjustPoints(ctx, tx, rp.UserID, models.PointsEntry{
		Points:    -reward.PointsRequired,
		Reason:    "Redeemed reward: " + reward.Title,
		AwardedAt: rp.At,
	})
	if err != nil {
		return nil, nil, err
	}

	if reward.Stock > 0 {
		if _, err := tx.Exec(ctx, `UPDATE rewards SET stock = stock - 1 WHERE id = $1`, reward.ID); err != nil {
			return nil, nil, mapErr(err, "decrement stock")
		}
	}

	red := &models.UserRedemption{
		ID:              uuid.New(),
		UserID:          rp.UserID,
		RewardID:        rp.RewardID,
		PointsSpent:     reward.PointsRequired,
		Status:          models.RedemptionPending,
		DeliveryAddress: rp.DeliveryAddress,
		ContactPhone:    rp.ContactPhone,
		Notes:           rp.Notes,
		CreatedAt:       rp.At,
		UpdatedAt:       rp.At,
	}
	_, err = tx.Exec(ctx, `INSERT INTO user_redemptions (`+redemptionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		red.ID, red.UserID, red.RewardID, red.PointsSpent, red.Status,
		red.DeliveryAddress, red.ContactPhone, red.Notes, red.CreatedAt, red.UpdatedAt)
	if err != nil {
		return nil, nil, mapErr(err, "insert redemption")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit redeem: %w", err)
	}
	return red, user, nil
}

// ListRedemptions returns a user's redemptions, newest first
func (p *Postgres) ListRedemptions(ctx context.Context, userID uuid.UUID) ([]*models.UserRedemption, error) {
	rows, err := p.db.Query(ctx, `SELECT `+redemptionColumns+` FROM user_redemptions
		WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, mapErr(err, "list redemptions")
	}
	defer rows.Close()

	var out []*models.UserRedemption
	for rows.Next() {
		r, err := scanRedemption(rows)
		if err != nil {
			return nil, mapErr(err, "scan redemption")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SetRedemptionStatus moves a redemption forward, refunding and restocking
// on cancellation inside the same transaction.
func (p *Postgres) SetRedemptionStatus(ctx context.Context, id uuid.UUID, next models.RedemptionStatus, at time.Time) (*models.UserRedemption, error) {
	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin redemption update: %w", err)
	}
	defer tx.Rollback(ctx)

	red, err := scanRedemption(tx.QueryRow(ctx, `SELECT `+redemptionColumns+` FROM user_redemptions WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, mapErr(err, "lock redemption")
	}
	if !red.Status.CanMoveTo(next) {
		return nil, ErrInvalidTransition
	}

	if _, err := tx.Exec(ctx, `UPDATE user_redemptions SET status = $2, updated_at = $3 WHERE id = $1`, id, next, at); err != nil {
		return nil, mapErr(err, "update redemption")
	}
	red.Status = next
	red.UpdatedAt = at

	if next == models.RedemptionCancelled {
		var title string
		err := tx.QueryRow(ctx, `UPDATE rewards SET stock = CASE WHEN stock >= 0 THEN stock + 1 ELSE stock END
			WHERE id = $1 RETURNING title`, red.RewardID).Scan(&title)
		if err != nil {
			return nil, mapErr(err, "restock reward")
		}
		_, err = adjustPoints(ctx, tx, red.UserID, models.PointsEntry{
			Points:    red.PointsSpent,
			Reason:    "Refund for cancelled redemption: " + title,
			AwardedAt: at,
		})
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit redemption update: %w", err)
	}
	return red, nil
}
