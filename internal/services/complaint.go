// Package services contains the business logic of the complaint lifecycle.
// Services are called by handlers and talk to the stores and the external
// collaborators through interfaces.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aawaaz/complaint-server/internal/geocoder"
	"github.com/aawaaz/complaint-server/internal/media"
	"github.com/aawaaz/complaint-server/internal/models"
	"github.com/aawaaz/complaint-server/internal/store"
	"github.com/aawaaz/complaint-server/internal/telephony"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Upload is one file from a multipart submission
type Upload struct {
	Filename string
	Data     []byte
}

// NewComplaint is the input of Create
type NewComplaint struct {
	Description string
	Category    string
	Phone       string
	Lat         float64
	Lng         float64
	Image       *Upload
	Audio       *Upload
}

// ComplaintService handles submission and the read side of complaints
type ComplaintService struct {
	complaints   store.ComplaintStore
	users        store.UserStore
	admins       store.AdminStore
	geocoder     geocoder.Geocoder
	media        media.Store
	routing      *RoutingService
	verification *VerificationService
	activity     *ActivityLogService
	logger       *zap.SugaredLogger
	now          func() time.Time
}

// NewComplaintService creates a new complaint service
func NewComplaintService(
	complaints store.ComplaintStore,
	users store.UserStore,
	admins store.AdminStore,
	geo geocoder.Geocoder,
	files media.Store,
	routing *RoutingService,
	verification *VerificationService,
	activity *ActivityLogService,
	logger *zap.SugaredLogger,
) *ComplaintService {
	return &ComplaintService{
		complaints:   complaints,
		users:        users,
		admins:       admins,
		geocoder:     geo,
		media:        files,
		routing:      routing,
		verification: verification,
		activity:     activity,
		logger:       logger,
		now:          time.Now,
	}
}

func (in NewComplaint) validate() error {
	switch {
	case strings.TrimSpace(in.Description) == "":
		return invalid("Description is required")
	case strings.TrimSpace(in.Phone) == "":
		return invalid("Phone number is required")
	case in.Image == nil || len(in.Image.Data) == 0:
		return invalid("Image is required")
	case in.Lat < -90 || in.Lat > 90 || in.Lng < -180 || in.Lng > 180:
		return invalid("Invalid coordinates")
	case in.Lat == 0 && in.Lng == 0:
		return invalid("Location is required")
	}
	return nil
}

// Create files a complaint for userID. Geocoding and uploads run
// concurrently; the department is classified once and cached, then the
// verification call is placed.
func (s *ComplaintService) Create(ctx context.Context, userID uuid.UUID, in NewComplaint) (*models.Complaint, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	u, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, newError(ErrUnauthorized, "Account not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if u.IsBlacklisted {
		return nil, forbidden("Your account has been blacklisted")
	}

	var (
		loc      *models.Location
		imageURL string
		audioURL string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		l, err := s.geocoder.Resolve(gctx, in.Lat, in.Lng)
		if err != nil {
			return fmt.Errorf("geocode: %w", err)
		}
		loc = l
		return nil
	})
	g.Go(func() error {
		url, err := s.media.Save(gctx, "complaints/images", in.Image.Filename, in.Image.Data)
		if err != nil {
			return fmt.Errorf("upload image: %w", err)
		}
		imageURL = url
		return nil
	})
	if in.Audio != nil && len(in.Audio.Data) > 0 {
		g.Go(func() error {
			url, err := s.media.Save(gctx, "complaints/audio", in.Audio.Filename, in.Audio.Data)
			if err != nil {
				return fmt.Errorf("upload audio: %w", err)
			}
			audioURL = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	loc.Lat, loc.Lng = in.Lat, in.Lng
	if loc.DetailedAddress == "" {
		loc.DetailedAddress = loc.FormattedAddress
	}

	now := s.now().UTC()
	detection := s.routing.Detect(ctx, routingText(in.Description, in.Category))
	c := &models.Complaint{
		ID:                      uuid.New(),
		UserID:                  userID,
		Description:             strings.TrimSpace(in.Description),
		Category:                strings.TrimSpace(in.Category),
		Phone:                   telephony.NormalizePhone(in.Phone),
		Image:                   imageURL,
		Audio:                   audioURL,
		Location:                *loc,
		Status:                  models.StatusPending,
		AssignedCity:            loc.City,
		AssignedState:           loc.State,
		PhoneVerificationStatus: models.VerificationNotStarted,
		DetectedDepartmentInfo:  &detection,
		Messages:                []models.ComplaintMessage{},
		CreatedAt:               now,
		UpdatedAt:               now,
	}

	admins, err := s.admins.FindAdminsByScope(ctx, loc.City, loc.State)
	if err != nil {
		s.logger.Warnw("Admin lookup failed", "city", loc.City, "state", loc.State, "error", err)
	} else if len(admins) > 0 {
		c.AssignedAdmin = uuidPtr(admins[0].ID)
	}

	if err := s.complaints.CreateComplaint(ctx, c); err != nil {
		return nil, fmt.Errorf("insert complaint: %w", err)
	}

	s.logger.Infow("Complaint submitted",
		"complaint_id", c.ID,
		"city", c.AssignedCity,
		"state", c.AssignedState,
		"detected", detection.Department,
	)

	runEffects(ctx, s.logger, c.ID, []effect{
		{name: "activity", run: func(ctx context.Context) error {
			return s.activity.Log(ctx, c.ID, models.ActivitySubmitted, "Complaint submitted", &models.Principal{ID: userID, Role: models.RoleUser})
		}},
		{name: "verification", run: func(ctx context.Context) error {
			updated, err := s.verification.Start(ctx, c)
			if err != nil {
				return err
			}
			c = updated
			return nil
		}},
	})
	return c, nil
}

// ListOwn returns the caller's complaints, newest first
func (s *ComplaintService) ListOwn(ctx context.Context, userID uuid.UUID) ([]*models.Complaint, error) {
	return s.list(ctx, store.ComplaintFilter{UserID: &userID})
}

// Get returns a complaint the actor may see: the owner, an admin of its
// scope, or the department acting on it. Others get not found.
func (s *ComplaintService) Get(ctx context.Context, a Actor, id uuid.UUID) (*models.Complaint, error) {
	c, err := s.complaints.GetComplaint(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound("Complaint not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load complaint: %w", err)
	}
	owner := a.Role == models.RoleUser && c.UserID == a.ID
	if !owner && !adminActs(a, c) && !departmentActs(a, c) {
		return nil, notFound("Complaint not found")
	}
	return c, nil
}

// explorable are the statuses shown on the public feed
var explorable = []models.ComplaintStatus{
	models.StatusPending,
	models.StatusPhoneVerified,
	models.StatusInProgress,
	models.StatusResolved,
}

// Explore returns recent public complaints with personal fields removed
func (s *ComplaintService) Explore(ctx context.Context, limit int) ([]*models.Complaint, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	list, err := s.list(ctx, store.ComplaintFilter{Statuses: explorable, Limit: limit})
	if err != nil {
		return nil, err
	}
	for i, c := range list {
		list[i] = c.Redacted()
	}
	return list, nil
}

func parseStatus(raw string) ([]models.ComplaintStatus, error) {
	if raw == "" {
		return nil, nil
	}
	st := models.ComplaintStatus(raw)
	if !st.Valid() {
		return nil, invalid("Invalid status %q", raw)
	}
	return []models.ComplaintStatus{st}, nil
}

// ListForAdmin returns the complaints of the admin's city and state
func (s *ComplaintService) ListForAdmin(ctx context.Context, a Actor, status string) ([]*models.Complaint, error) {
	if err := requireAdmin(a); err != nil {
		return nil, err
	}
	statuses, err := parseStatus(status)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, store.ComplaintFilter{City: a.City, State: a.State, Statuses: statuses})
}

// ListForDepartment returns the complaints assigned to the department
func (s *ComplaintService) ListForDepartment(ctx context.Context, a Actor, status string) ([]*models.Complaint, error) {
	if err := requireDepartment(a); err != nil {
		return nil, err
	}
	statuses, err := parseStatus(status)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, store.ComplaintFilter{DepartmentID: &a.ID, Statuses: statuses})
}

// Activity returns the audit trail of a complaint in the admin's scope
func (s *ComplaintService) Activity(ctx context.Context, a Actor, id uuid.UUID) ([]models.ActivityLog, error) {
	if err := requireAdmin(a); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, a, id); err != nil {
		return nil, err
	}
	return s.activity.FetchByComplaint(ctx, id, 100)
}

func (s *ComplaintService) list(ctx context.Context, f store.ComplaintFilter) ([]*models.Complaint, error) {
	out, err := s.complaints.ListComplaints(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	if out == nil {
		out = []*models.Complaint{}
	}
	return out, nil
}
