package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aawaaz/complaint-server/internal/models"
	"github.com/aawaaz/complaint-server/internal/store"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// AnalyticsService reports on the complaints of an admin's scope
type AnalyticsService struct {
	complaints store.ComplaintStore
	logger     *zap.SugaredLogger
}

// NewAnalyticsService creates an analytics service
func NewAnalyticsService(complaints store.ComplaintStore, logger *zap.SugaredLogger) *AnalyticsService {
	return &AnalyticsService{complaints: complaints, logger: logger}
}

func (s *AnalyticsService) scoped(ctx context.Context, a Actor) ([]*models.Complaint, error) {
	if err := requireAdmin(a); err != nil {
		return nil, err
	}
	list, err := s.complaints.ListComplaints(ctx, store.ComplaintFilter{City: a.City, State: a.State})
	if err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	return list, nil
}

// Summary counts complaints per status and averages response and resolve
// times where the timestamps exist
func (s *AnalyticsService) Summary(ctx context.Context, a Actor) (*models.Analytics, error) {
	list, err := s.scoped(ctx, a)
	if err != nil {
		return nil, err
	}
	out := summarize(a.City, a.State, list)
	return &out, nil
}

func summarize(city, state string, list []*models.Complaint) models.Analytics {
	counts := make(map[models.ComplaintStatus]int, len(models.AllStatuses))
	var response, resolve time.Duration
	var responseN, resolveN int

	for _, c := range list {
		counts[c.Status]++
		if c.AssignedAt != nil && c.AssignedAt.After(c.CreatedAt) {
			response += c.AssignedAt.Sub(c.CreatedAt)
			responseN++
		}
		if c.Status == models.StatusResolved && c.ResolvedAt != nil && c.ResolvedAt.After(c.CreatedAt) {
			resolve += c.ResolvedAt.Sub(c.CreatedAt)
			resolveN++
		}
	}

	out := models.Analytics{
		City:                 city,
		State:                state,
		Total:                len(list),
		ResponseSampleSize:   responseN,
		ResolutionSampleSize: resolveN,
	}
	for _, st := range models.AllStatuses {
		out.ByStatus = append(out.ByStatus, models.StatusCount{Status: st, Count: counts[st]})
	}
	if responseN > 0 {
		out.AvgResponseHours = response.Hours() / float64(responseN)
	}
	if resolveN > 0 {
		out.AvgResolveHours = resolve.Hours() / float64(resolveN)
	}
	return out
}

var exportHeader = []any{
	"ID", "Created", "Status", "Description", "Category", "City", "District", "State",
	"Detected Department", "Assigned Department", "Assigned At", "Resolved At", "Verification",
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// Export writes the admin's complaints and the summary as an xlsx workbook
func (s *AnalyticsService) Export(ctx context.Context, a Actor, w io.Writer) error {
	list, err := s.scoped(ctx, a)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warnw("Failed to close workbook", "error", err)
		}
	}()

	const sheet = "Complaints"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(sheet, "A1", &exportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, c := range list {
		detected, assigned := "", ""
		if c.DetectedDepartmentInfo != nil {
			detected = c.DetectedDepartmentInfo.Department
		}
		if c.AssignedDepartment != nil {
			assigned = c.AssignedDepartment.String()
		}
		row := []any{
			c.ID.String(),
			c.CreatedAt.UTC().Format(time.RFC3339),
			string(c.Status),
			c.Description,
			c.Category,
			c.Location.City,
			c.Location.District,
			c.Location.State,
			detected,
			assigned,
			formatTime(c.AssignedAt),
			formatTime(c.ResolvedAt),
			string(c.PhoneVerificationStatus),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	sum := summarize(a.City, a.State, list)
	if _, err := f.NewSheet("Summary"); err != nil {
		return fmt.Errorf("add summary sheet: %w", err)
	}
	rows := [][]any{
		{"City", sum.City},
		{"State", sum.State},
		{"Total", sum.Total},
		{"Average response (hours)", sum.AvgResponseHours},
		{"Average resolution (hours)", sum.AvgResolveHours},
	}
	for _, bucket := range sum.ByStatus {
		rows = append(rows, []any{string(bucket.Status), bucket.Count})
	}
	for i := range rows {
		if err := f.SetSheetRow("Summary", fmt.Sprintf("A%d", i+1), &rows[i]); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	s.logger.Infow("Analytics exported", "admin_id", a.ID, "rows", len(list))
	return nil
}
