package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		email TEXT UNIQUE,
		phone TEXT UNIQUE,
		google_id TEXT UNIQUE,
		password_hash TEXT NOT NULL DEFAULT '',
		points INTEGER NOT NULL DEFAULT 0 CHECK (points >= 0),
		points_history JSONB NOT NULL DEFAULT '[]',
		warnings JSONB NOT NULL DEFAULT '{"count":0,"history":[]}',
		account_status TEXT NOT NULL DEFAULT 'active',
		is_blacklisted BOOLEAN NOT NULL DEFAULT FALSE,
		blacklist_reason TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (email IS NOT NULL OR phone IS NOT NULL OR google_id IS NOT NULL)
	)`,
	`CREATE TABLE IF NOT EXISTS admins (
		id UUID PRIMARY KEY,
		admin_id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		assigned_city TEXT NOT NULL,
		assigned_state TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS departments (
		id UUID PRIMARY KEY,
		department_id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		department_type TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		assigned_city TEXT NOT NULL,
		assigned_district TEXT NOT NULL DEFAULT '',
		assigned_state TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS complaints (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id),
		description TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		image TEXT NOT NULL CHECK (image <> ''),
		audio TEXT NOT NULL DEFAULT '',
		location JSONB NOT NULL,
		status TEXT NOT NULL,
		assigned_admin UUID REFERENCES admins(id),
		assigned_city TEXT NOT NULL DEFAULT '',
		assigned_state TEXT NOT NULL DEFAULT '',
		assigned_department UUID REFERENCES departments(id),
		assigned_at TIMESTAMPTZ,
		priority TEXT NOT NULL DEFAULT '',
		reason TEXT NOT NULL DEFAULT '',
		rejection_reason TEXT NOT NULL DEFAULT '',
		department_rejection JSONB,
		phone_verification_status TEXT NOT NULL DEFAULT 'not_started',
		phone_verification_call_sid TEXT NOT NULL DEFAULT '',
		verification_attempts INTEGER NOT NULL DEFAULT 0,
		detected_department_info JSONB,
		auto_routing_data JSONB,
		messages JSONB NOT NULL DEFAULT '[]',
		resolved_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (status IN ('pending','phone_verified','in_progress','resolved','rejected','rejected_by_department','verification_failed'))
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id),
		complaint_id UUID,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'unread',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		read_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS rewards (
		id UUID PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		points_required INTEGER NOT NULL CHECK (points_required > 0),
		max_redemptions_per_user INTEGER NOT NULL DEFAULT 1,
		stock INTEGER NOT NULL DEFAULT -1,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS user_redemptions (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id),
		reward_id UUID NOT NULL REFERENCES rewards(id),
		points_spent INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		delivery_address TEXT NOT NULL DEFAULT '',
		contact_phone TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS activity_logs (
		id UUID PRIMARY KEY,
		complaint_id UUID NOT NULL,
		activity_type TEXT NOT NULL,
		description TEXT NOT NULL,
		actor_role TEXT NOT NULL,
		actor_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_complaints_user ON complaints(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_complaints_scope ON complaints(LOWER(assigned_city), LOWER(assigned_state))`,
	`CREATE INDEX IF NOT EXISTS idx_complaints_department ON complaints(assigned_department)`,
	`CREATE INDEX IF NOT EXISTS idx_complaints_status ON complaints(status)`,
	`CREATE INDEX IF NOT EXISTS idx_departments_type_city ON departments(department_type, LOWER(assigned_city))`,
	`CREATE INDEX IF NOT EXISTS idx_admins_scope ON admins(LOWER(assigned_city), LOWER(assigned_state))`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_redemptions_user_reward ON user_redemptions(user_id, reward_id)`,
	`CREATE INDEX IF NOT EXISTS idx_activity_complaint ON activity_logs(complaint_id, created_at DESC)`,
}

// Migrate creates tables and indexes if they do not exist yet
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
