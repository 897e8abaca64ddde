package store

import (
	"context"
	"errors"
	"strings"

	"github.com/aawaaz/complaint-server/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Optional identifiers are stored as NULL so the UNIQUE constraints only
// apply to values that are actually set.
const userColumns = `id, name, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(google_id, ''),
	password_hash, points, points_history, warnings, account_status, is_blacklisted, blacklist_reason, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.GoogleID, &u.PasswordHash,
		&u.Points, &u.PointsHistory, &u.Warnings, &u.AccountStatus, &u.IsBlacklisted, &u.BlacklistReason, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	if u.PointsHistory == nil {
		u.PointsHistory = []models.PointsEntry{}
	}
	return &u, nil
}

// CreateUser inserts a citizen account
func (p *Postgres) CreateUser(ctx context.Context, u *models.User) error {
	if u.PointsHistory == nil {
		u.PointsHistory = []models.PointsEntry{}
	}
	if u.Warnings.History == nil {
		u.Warnings.History = []models.WarningEntry{}
	}
	query := `INSERT INTO users (id, name, email, phone, google_id, password_hash, points, points_history,
			warnings, account_status, is_blacklisted, blacklist_reason, created_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := p.db.Exec(ctx, query, u.ID, u.Name, strings.ToLower(u.Email), u.Phone, u.GoogleID, u.PasswordHash,
		u.Points, u.PointsHistory, u.Warnings, u.AccountStatus, u.IsBlacklisted, u.BlacklistReason, u.CreatedAt)
	return mapErr(err, "insert user")
}

func (p *Postgres) getUserWhere(ctx context.Context, cond string, arg any) (*models.User, error) {
	u, err := scanUser(p.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+cond, arg))
	if err != nil {
		return nil, mapErr(err, "get user")
	}
	return u, nil
}

// GetUser loads a user by id
func (p *Postgres) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return p.getUserWhere(ctx, "id = $1", id)
}

// GetUserByEmail loads a user by lower-cased email
func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return p.getUserWhere(ctx, "email = $1", strings.ToLower(strings.TrimSpace(email)))
}

// GetUserByPhone loads a user by phone number
func (p *Postgres) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	return p.getUserWhere(ctx, "phone = $1", phone)
}

// GetUserByGoogleID loads a user by Google subject
func (p *Postgres) GetUserByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	return p.getUserWhere(ctx, "google_id = $1", googleID)
}

// LinkGoogleID attaches a Google subject to an existing account
func (p *Postgres) LinkGoogleID(ctx context.Context, id uuid.UUID, googleID string) error {
	tag, err := p.db.Exec(ctx, `UPDATE users SET google_id = $2 WHERE id = $1`, id, googleID)
	if err != nil {
		return mapErr(err, "link google id")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustPoints moves the balance and appends the ledger entry in one statement
func (p *Postgres) AdjustPoints(ctx context.Context, userID uuid.UUID, entry models.PointsEntry) (*models.User, error) {
	return adjustPoints(ctx, p.db, userID, entry)
}

func adjustPoints(ctx context.Context, q querier, userID uuid.UUID, entry models.PointsEntry) (*models.User, error) {
	query := `UPDATE users
		SET points = points + $2, points_history = points_history || $3::jsonb
		WHERE id = $1 AND points + $2 >= 0
		RETURNING ` + userColumns

	u, err := scanUser(q.QueryRow(ctx, query, userID, entry.Points, []models.PointsEntry{entry}))
	if err == nil {
		return u, nil
	}
	if err = mapErr(err, "adjust points"); !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return nil, mapErr(err, "check user")
	}
	if !exists {
		return nil, ErrNotFound
	}
	return nil, ErrInsufficientPoints
}

// AddWarning records a warning and escalates the account status at the threshold
func (p *Postgres) AddWarning(ctx context.Context, userID uuid.UUID, w models.WarningEntry) (*models.User, error) {
	query := `UPDATE users SET
			warnings = jsonb_build_object(
				'count', COALESCE((warnings->>'count')::int, 0) + 1,
				'history', COALESCE(warnings->'history', '[]'::jsonb) || $2::jsonb),
			account_status = CASE
				WHEN account_status = 'blacklisted' THEN account_status
				WHEN COALESCE((warnings->>'count')::int, 0) + 1 >= $3 THEN 'warned'
				ELSE account_status END
		WHERE id = $1
		RETURNING ` + userColumns

	u, err := scanUser(p.db.QueryRow(ctx, query, userID, []models.WarningEntry{w}, models.WarningThreshold))
	if err != nil {
		return nil, mapErr(err, "add warning")
	}
	return u, nil
}

// Blacklist marks the account as blacklisted
func (p *Postgres) Blacklist(ctx context.Context, userID uuid.UUID, reason string) (*models.User, error) {
	query := `UPDATE users SET is_blacklisted = TRUE, account_status = 'blacklisted', blacklist_reason = $2
		WHERE id = $1 RETURNING ` + userColumns

	u, err := scanUser(p.db.QueryRow(ctx, query, userID, reason))
	if err != nil {
		return nil, mapErr(err, "blacklist user")
	}
	return u, nil
}

const adminColumns = `id, admin_id, name, email, password_hash, assigned_city, assigned_state, created_at`

func scanAdmin(row pgx.Row) (*models.Admin, error) {
	var a models.Admin
	if err := row.Scan(&a.ID, &a.AdminID, &a.Name, &a.Email, &a.PasswordHash,
		&a.AssignedCity, &a.AssignedState, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateAdmin inserts an admin account
func (p *Postgres) CreateAdmin(ctx context.Context, a *models.Admin) error {
	_, err := p.db.Exec(ctx, `INSERT INTO admins (`+adminColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.AdminID, a.Name, a.Email, a.PasswordHash, a.AssignedCity, a.AssignedState, a.CreatedAt)
	return mapErr(err, "insert admin")
}

// GetAdmin loads an admin by id
func (p *Postgres) GetAdmin(ctx context.Context, id uuid.UUID) (*models.Admin, error) {
	a, err := scanAdmin(p.db.QueryRow(ctx, `SELECT `+adminColumns+` FROM admins WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err, "get admin")
	}
	return a, nil
}

// GetAdminByLogin loads an admin by login identifier
func (p *Postgres) GetAdminByLogin(ctx context.Context, adminID string) (*models.Admin, error) {
	a, err := scanAdmin(p.db.QueryRow(ctx, `SELECT `+adminColumns+` FROM admins WHERE admin_id = $1`, adminID))
	if err != nil {
		return nil, mapErr(err, "get admin")
	}
	return a, nil
}

// FindAdminsByScope returns admins assigned to city/state, oldest first
func (p *Postgres) FindAdminsByScope(ctx context.Context, city, state string) ([]*models.Admin, error) {
	rows, err := p.db.Query(ctx, `SELECT `+adminColumns+` FROM admins
		WHERE LOWER(assigned_city) = LOWER($1) AND LOWER(assigned_state) = LOWER($2)
		ORDER BY created_at`, city, state)
	if err != nil {
		return nil, mapErr(err, "find admins")
	}
	defer rows.Close()

	var out []*models.Admin
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, mapErr(err, "scan admin")
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

const departmentColumns = `id, department_id, name, department_type, email, password_hash,
	assigned_city, assigned_district, assigned_state, created_at`

func scanDepartment(row pgx.Row) (*models.Department, error) {
	var d models.Department
	if err := row.Scan(&d.ID, &d.DepartmentID, &d.Name, &d.DepartmentType, &d.Email, &d.PasswordHash,
		&d.AssignedCity, &d.AssignedDistrict, &d.AssignedState, &d.CreatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

// CreateDepartment inserts a department account
func (p *Postgres) CreateDepartment(ctx context.Context, d *models.Department) error {
	_, err := p.db.Exec(ctx, `INSERT INTO departments (`+departmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		d.ID, d.DepartmentID, d.Name, d.DepartmentType, d.Email, d.PasswordHash,
		d.AssignedCity, d.AssignedDistrict, d.AssignedState, d.CreatedAt)
	return mapErr(err, "insert department")
}

// GetDepartment loads a department by id
func (p *Postgres) GetDepartment(ctx context.Context, id uuid.UUID) (*models.Department, error) {
	d, err := scanDepartment(p.db.QueryRow(ctx, `SELECT `+departmentColumns+` FROM departments WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err, "get department")
	}
	return d, nil
}

// GetDepartmentByLogin loads a department by login identifier
func (p *Postgres) GetDepartmentByLogin(ctx context.Context, departmentID string) (*models.Department, error) {
	d, err := scanDepartment(p.db.QueryRow(ctx, `SELECT `+departmentColumns+` FROM departments WHERE department_id = $1`, departmentID))
	if err != nil {
		return nil, mapErr(err, "get department")
	}
	return d, nil
}

// FindDepartments returns departments matching q, oldest first
func (p *Postgres) FindDepartments(ctx context.Context, q DepartmentQuery) ([]*models.Department, error) {
	var a args
	var where []string
	if q.Type != "" {
		where = append(where, "department_type = "+a.add(q.Type))
	}
	switch q.Match {
	case MatchCityExact:
		where = append(where, "LOWER(assigned_city) = LOWER("+a.add(strings.TrimSpace(q.Value))+")")
	case MatchCityPartial:
		where = append(where, "assigned_city ILIKE "+a.add(likePattern(q.Value)))
	case MatchDistrict:
		where = append(where, "LOWER(assigned_district) = LOWER("+a.add(strings.TrimSpace(q.Value))+")")
	case MatchState:
		where = append(where, "LOWER(assigned_state) = LOWER("+a.add(strings.TrimSpace(q.Value))+")")
	}

	query := `SELECT ` + departmentColumns + ` FROM departments WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_at`
	rows, err := p.db.Query(ctx, query, a.values...)
	if err != nil {
		return nil, mapErr(err, "find departments")
	}
	defer rows.Close()

	var out []*models.Department
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, mapErr(err, "scan department")
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
