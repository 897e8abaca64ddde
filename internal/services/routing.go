package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aawaaz/complaint-server/internal/classifier"
	"github.com/aawaaz/complaint-server/internal/models"
	"github.com/aawaaz/complaint-server/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// fallbackConfidenceFactor scales confidence when the Municipal Corporation
// stands in for the detected department
const fallbackConfidenceFactor = 0.7

// RouteRequest is the input of Route
type RouteRequest struct {
	Description string
	Category    string
	Location    *models.Location
	// Cached is a detection made earlier, reused when it names a known type
	Cached *models.DetectionResult
}

// RouteResult is the outcome of one routing pass. AssignedDepartment is nil
// when no department exists anywhere in the cascade.
type RouteResult struct {
	Success            bool               `json:"success"`
	DetectedDepartment string             `json:"detected_department,omitempty"`
	AssignedDepartment *models.Department `json:"assigned_department"`
	Confidence         float64            `json:"confidence"`
	Reasoning          string             `json:"reasoning,omitempty"`
	IsFallback         bool               `json:"is_fallback"`
	Tier               string             `json:"tier,omitempty"`
	Error              string             `json:"error,omitempty"`
}

// RoutingService detects the responsible department type and resolves a
// concrete department through a location cascade
type RoutingService struct {
	departments   store.DepartmentStore
	complaints    store.ComplaintStore
	classifier    classifier.Classifier
	local         classifier.Classifier
	minConfidence float64
	logger        *zap.SugaredLogger
	now           func() time.Time
}

// NewRoutingService creates a routing service. A nil classifier means local
// keyword scoring only.
func NewRoutingService(departments store.DepartmentStore, complaints store.ComplaintStore, c classifier.Classifier, minConfidence float64, logger *zap.SugaredLogger) *RoutingService {
	return &RoutingService{
		departments:   departments,
		complaints:    complaints,
		classifier:    c,
		local:         classifier.LocalScorer{},
		minConfidence: minConfidence,
		logger:        logger,
		now:           time.Now,
	}
}

// Detect classifies text. Classifier errors, unknown departments and results
// under the confidence floor all degrade to local keyword scoring.
func (s *RoutingService) Detect(ctx context.Context, text string) models.DetectionResult {
	if s.classifier != nil {
		res, err := s.classifier.Classify(ctx, text)
		switch {
		case err != nil:
			if !errors.Is(err, classifier.ErrNotConfigured) {
				s.logger.Warnw("Classifier failed, using keyword scoring", "error", err)
			}
		case res == nil:
		default:
			if t, ok := models.ParseDepartmentType(res.Department); ok && res.Confidence >= s.minConfidence {
				return models.DetectionResult{
					Department: string(t),
					Confidence: res.Confidence,
					Reasoning:  res.Reasoning,
					DetectedAt: s.now().UTC(),
				}
			}
			s.logger.Infow("Classifier result rejected, using keyword scoring",
				"department", res.Department,
				"confidence", res.Confidence,
			)
		}
	}

	// LocalScorer never fails
	res, _ := s.local.Classify(ctx, text)
	return models.DetectionResult{
		Department: res.Department,
		Confidence: res.Confidence,
		Reasoning:  res.Reasoning,
		IsFallback: true,
		DetectedAt: s.now().UTC(),
	}
}

func routingText(description, category string) string {
	return strings.TrimSpace(description + " " + category)
}

// Route detects the department type and resolves a department for it,
// falling back to the Municipal Corporation
func (s *RoutingService) Route(ctx context.Context, req RouteRequest) (*RouteResult, error) {
	if strings.TrimSpace(req.Description) == "" {
		return &RouteResult{Error: "description is required"}, invalid("Description is required")
	}
	if req.Location == nil {
		return &RouteResult{Error: "location is required"}, invalid("Location is required")
	}

	var detection models.DetectionResult
	if req.Cached != nil {
		if _, ok := models.ParseDepartmentType(req.Cached.Department); ok {
			detection = *req.Cached
		}
	}
	if detection.Department == "" {
		detection = s.Detect(ctx, routingText(req.Description, req.Category))
	}
	detected, _ := models.ParseDepartmentType(detection.Department)

	result := &RouteResult{
		Success:            true,
		DetectedDepartment: string(detected),
		Confidence:         detection.Confidence,
		Reasoning:          detection.Reasoning,
	}

	dept, tier, err := s.findDepartment(ctx, detected, req.Location)
	if err != nil {
		return nil, err
	}
	if dept == nil {
		result.IsFallback = true
		result.Confidence *= fallbackConfidenceFactor
		if detected != models.DepartmentMunicipal {
			dept, tier, err = s.findDepartment(ctx, models.DepartmentMunicipal, req.Location)
			if err != nil {
				return nil, err
			}
		}
	}
	if dept != nil {
		result.AssignedDepartment = dept
		result.Tier = tier
	}
	return result, nil
}

// findDepartment walks the cascade and returns the first department of the
// first tier with any match
func (s *RoutingService) findDepartment(ctx context.Context, t models.DepartmentType, loc *models.Location) (*models.Department, string, error) {
	tiers := []store.DepartmentQuery{
		{Type: t, Match: store.MatchCityExact, Value: loc.City},
		{Type: t, Match: store.MatchCityPartial, Value: loc.City},
		{Type: t, Match: store.MatchDistrict, Value: loc.District},
		{Type: t, Match: store.MatchState, Value: loc.State},
	}
	for _, q := range tiers {
		if strings.TrimSpace(q.Value) == "" {
			continue
		}
		found, err := s.departments.FindDepartments(ctx, q)
		if err != nil {
			return nil, "", fmt.Errorf("find departments (%s): %w", q.Match, err)
		}
		if len(found) > 0 {
			return found[0], q.Match.String(), nil
		}
	}
	return nil, "", nil
}

// AssignResult is returned by RouteComplaint
type AssignResult struct {
	Route     *RouteResult
	Complaint *models.Complaint
	// Assigned is true when this pass wrote assignedDepartment
	Assigned bool
}

// RouteComplaint routes c and records the outcome on it. The department is
// only written while the complaint is still unassigned, so a manual
// assignment made meanwhile is kept. A routing failure is recorded in
// autoRoutingData with requires_manual_assignment set.
func (s *RoutingService) RouteComplaint(ctx context.Context, c *models.Complaint) (*AssignResult, error) {
	loc := c.Location
	if loc.City == "" {
		loc.City = c.AssignedCity
	}
	if loc.State == "" {
		loc.State = c.AssignedState
	}

	now := s.now().UTC()
	route, routeErr := s.Route(ctx, RouteRequest{
		Description: c.Description,
		Category:    c.Category,
		Location:    &loc,
		Cached:      c.DetectedDepartmentInfo,
	})

	data := models.AutoRoutingData{RoutedAt: now, RequiresManualAssignment: true}
	upd := store.ComplaintUpdate{AutoRoutingData: &data}
	guard := store.ComplaintGuard{}

	switch {
	case routeErr != nil:
		data.Error = routeErr.Error()
	default:
		data.DetectedDepartment = route.DetectedDepartment
		data.Confidence = route.Confidence
		data.IsFallback = route.IsFallback
		data.Tier = route.Tier
		upd.DetectedDepartmentInfo = &models.DetectionResult{
			Department: route.DetectedDepartment,
			Confidence: route.Confidence,
			Reasoning:  route.Reasoning,
			IsFallback: route.IsFallback,
			DetectedAt: now,
		}
		if route.AssignedDepartment != nil {
			id := route.AssignedDepartment.ID
			data.AssignedDepartment = &id
			data.RequiresManualAssignment = false
			upd.AssignedDepartment = &id
			upd.AssignedAt = &now
			guard.Unassigned = true
		}
	}

	updated, err := s.complaints.UpdateComplaint(ctx, c.ID, guard, upd)
	if errors.Is(err, store.ErrNotFound) && guard.Unassigned {
		current, getErr := s.complaints.GetComplaint(ctx, c.ID)
		if getErr != nil {
			return nil, fmt.Errorf("reload complaint: %w", getErr)
		}
		s.logger.Infow("Complaint assigned concurrently, keeping existing department", "complaint_id", c.ID)
		return &AssignResult{Route: route, Complaint: current}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("record routing: %w", err)
	}

	if routeErr != nil {
		s.logger.Warnw("Routing failed, complaint needs manual assignment", "complaint_id", c.ID, "error", routeErr)
		return &AssignResult{Route: route, Complaint: updated}, routeErr
	}

	fields := []any{"complaint_id", c.ID, "detected", route.DetectedDepartment, "fallback", route.IsFallback}
	if route.AssignedDepartment == nil {
		s.logger.Warnw("No department found, complaint needs manual assignment", fields...)
	} else {
		s.logger.Infow("Complaint routed", append(fields, "department_id", route.AssignedDepartment.ID, "tier", route.Tier)...)
	}
	return &AssignResult{Route: route, Complaint: updated, Assigned: route.AssignedDepartment != nil}, nil
}

// departmentFor picks a department to pair with c in a chat: the assigned
// one, else any department in the complaint's city
func departmentFor(ctx context.Context, departments store.DepartmentStore, c *models.Complaint) (*models.Department, error) {
	if c.AssignedDepartment != nil {
		d, err := departments.GetDepartment(ctx, *c.AssignedDepartment)
		if err == nil {
			return d, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}
	if c.AssignedCity == "" {
		return nil, nil
	}
	found, err := departments.FindDepartments(ctx, store.DepartmentQuery{Match: store.MatchCityExact, Value: c.AssignedCity})
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return found[0], nil
}

func uuidPtr(id uuid.UUID) *uuid.UUID { return &id }
