package store

import (
	"context"
	"strings"
	"time"

	"github.com/aawaaz/complaint-server/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const complaintColumns = `id, user_id, description, category, phone, image, audio, location, status,
	assigned_admin, assigned_city, assigned_state, assigned_department, assigned_at,
	priority, reason, rejection_reason, department_rejection,
	phone_verification_status, phone_verification_call_sid, verification_attempts,
	detected_department_info, auto_routing_data, messages, resolved_at, created_at, updated_at`

func scanComplaint(row pgx.Row) (*models.Complaint, error) {
	var c models.Complaint
	err := row.Scan(&c.ID, &c.UserID, &c.Description, &c.Category, &c.Phone, &c.Image, &c.Audio,
		&c.Location, &c.Status,
		&c.AssignedAdmin, &c.AssignedCity, &c.AssignedState, &c.AssignedDepartment, &c.AssignedAt,
		&c.Priority, &c.Reason, &c.RejectionReason, &c.DepartmentRejection,
		&c.PhoneVerificationStatus, &c.PhoneVerificationCallSid, &c.VerificationAttempts,
		&c.DetectedDepartmentInfo, &c.AutoRoutingData, &c.Messages, &c.ResolvedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if c.Messages == nil {
		c.Messages = []models.ComplaintMessage{}
	}
	return &c, nil
}

// CreateComplaint inserts a new complaint
func (p *Postgres) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	if c.Messages == nil {
		c.Messages = []models.ComplaintMessage{}
	}
	query := `INSERT INTO complaints (` + complaintColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
			$19, $20, $21, $22, $23, $24, $25, $26, $27)`

	_, err := p.db.Exec(ctx, query,
		c.ID, c.UserID, c.Description, c.Category, c.Phone, c.Image, c.Audio, c.Location, c.Status,
		c.AssignedAdmin, c.AssignedCity, c.AssignedState, c.AssignedDepartment, c.AssignedAt,
		c.Priority, c.Reason, c.RejectionReason, c.DepartmentRejection,
		c.PhoneVerificationStatus, c.PhoneVerificationCallSid, c.VerificationAttempts,
		c.DetectedDepartmentInfo, c.AutoRoutingData, c.Messages, c.ResolvedAt, c.CreatedAt, c.UpdatedAt,
	)
	return mapErr(err, "insert complaint")
}

// GetComplaint loads one complaint by id
func (p *Postgres) GetComplaint(ctx context.Context, id uuid.UUID) (*models.Complaint, error) {
	c, err := scanComplaint(p.db.QueryRow(ctx, `SELECT `+complaintColumns+` FROM complaints WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err, "get complaint")
	}
	return c, nil
}

// ListComplaints returns complaints matching f, newest first
func (p *Postgres) ListComplaints(ctx context.Context, f ComplaintFilter) ([]*models.Complaint, error) {
	var a args
	var where []string
	if f.UserID != nil {
		where = append(where, "user_id = "+a.add(*f.UserID))
	}
	if f.City != "" {
		where = append(where, "LOWER(assigned_city) = LOWER("+a.add(f.City)+")")
	}
	if f.State != "" {
		where = append(where, "LOWER(assigned_state) = LOWER("+a.add(f.State)+")")
	}
	if f.DepartmentID != nil {
		where = append(where, "assigned_department = "+a.add(*f.DepartmentID))
	}
	if len(f.Statuses) > 0 {
		where = append(where, "status = ANY("+a.add(statusStrings(f.Statuses))+")")
	}

	query := `SELECT ` + complaintColumns + ` FROM complaints`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		query += " LIMIT " + a.add(f.Limit)
	}

	rows, err := p.db.Query(ctx, query, a.values...)
	if err != nil {
		return nil, mapErr(err, "list complaints")
	}
	defer rows.Close()

	var out []*models.Complaint
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, mapErr(err, "scan complaint")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateComplaint applies upd with a single UPDATE whose WHERE clause
// carries the guard, so concurrent transitions cannot both succeed.
func (p *Postgres) UpdateComplaint(ctx context.Context, id uuid.UUID, guard ComplaintGuard, upd ComplaintUpdate) (*models.Complaint, error) {
	var a args
	sets := []string{"updated_at = " + a.add(time.Now().UTC())}
	set := func(col string, v any) {
		sets = append(sets, col+" = "+a.add(v))
	}

	if upd.Status != nil {
		set("status", *upd.Status)
	}
	if upd.AssignedAdmin != nil {
		set("assigned_admin", *upd.AssignedAdmin)
	}
	if upd.AssignedDepartment != nil {
		set("assigned_department", *upd.AssignedDepartment)
	}
	if upd.AssignedAt != nil {
		set("assigned_at", *upd.AssignedAt)
	}
	if upd.Priority != nil {
		set("priority", *upd.Priority)
	}
	if upd.Reason != nil {
		set("reason", *upd.Reason)
	}
	if upd.RejectionReason != nil {
		set("rejection_reason", *upd.RejectionReason)
	}
	if upd.DepartmentRejection != nil {
		set("department_rejection", upd.DepartmentRejection)
	}
	if upd.PhoneVerificationStatus != nil {
		set("phone_verification_status", *upd.PhoneVerificationStatus)
	}
	if upd.PhoneVerificationCallSid != nil {
		set("phone_verification_call_sid", *upd.PhoneVerificationCallSid)
	}
	if upd.VerificationAttempts != nil {
		set("verification_attempts", *upd.VerificationAttempts)
	}
	if upd.DetectedDepartmentInfo != nil {
		set("detected_department_info", upd.DetectedDepartmentInfo)
	}
	if upd.AutoRoutingData != nil {
		set("auto_routing_data", upd.AutoRoutingData)
	}
	if upd.ResolvedAt != nil {
		set("resolved_at", *upd.ResolvedAt)
	}
	if upd.AppendMessage != nil {
		sets = append(sets, "messages = messages || "+a.add([]models.ComplaintMessage{*upd.AppendMessage})+"::jsonb")
	}

	where := []string{"id = " + a.add(id)}
	if len(guard.Statuses) > 0 {
		where = append(where, "status = ANY("+a.add(statusStrings(guard.Statuses))+")")
	}
	if guard.City != "" {
		where = append(where, "LOWER(assigned_city) = LOWER("+a.add(guard.City)+")")
	}
	if guard.State != "" {
		where = append(where, "LOWER(assigned_state) = LOWER("+a.add(guard.State)+")")
	}
	if guard.UserID != nil {
		where = append(where, "user_id = "+a.add(*guard.UserID))
	}
	if guard.DepartmentID != nil {
		where = append(where, "assigned_department = "+a.add(*guard.DepartmentID))
	}
	if guard.Unassigned {
		where = append(where, "assigned_department IS NULL")
	}

	query := `UPDATE complaints SET ` + strings.Join(sets, ", ") +
		` WHERE ` + strings.Join(where, " AND ") +
		` RETURNING ` + complaintColumns

	c, err := scanComplaint(p.db.QueryRow(ctx, query, a.values...))
	if err != nil {
		return nil, mapErr(err, "update complaint")
	}
	return c, nil
}

func statusStrings(statuses []models.ComplaintStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
