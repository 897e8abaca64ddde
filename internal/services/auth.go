package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aawaaz/complaint-server/internal/identity"
	"github.com/aawaaz/complaint-server/internal/models"
	"github.com/aawaaz/complaint-server/internal/store"
	"github.com/aawaaz/complaint-server/internal/telephony"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session is returned by every login
type Session struct {
	Token   string      `json:"token"`
	Role    models.Role `json:"role"`
	Account any         `json:"account"`
}

// RegisterRequest is the input of Register
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// LoginRequest is the input of Login. One of Email or Phone is required.
type LoginRequest struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// AuthService signs accounts in and issues tokens
type AuthService struct {
	users       store.UserStore
	admins      store.AdminStore
	departments store.DepartmentStore
	issuer      *identity.Issuer
	logger      *zap.SugaredLogger
	now         func() time.Time
}

// NewAuthService creates an auth service
func NewAuthService(users store.UserStore, admins store.AdminStore, departments store.DepartmentStore, issuer *identity.Issuer, logger *zap.SugaredLogger) *AuthService {
	return &AuthService{
		users:       users,
		admins:      admins,
		departments: departments,
		issuer:      issuer,
		logger:      logger,
		now:         time.Now,
	}
}

var errBadLogin = newError(ErrUnauthorized, "Invalid credentials")

func (s *AuthService) session(id uuid.UUID, role models.Role, account any) (*Session, error) {
	token, err := s.issuer.Issue(models.Principal{ID: id, Role: role})
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Session{Token: token, Role: role, Account: account}, nil
}

// Register creates a password account
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	phone := strings.TrimSpace(req.Phone)
	if name == "" {
		return nil, invalid("Name is required")
	}
	if email == "" && phone == "" {
		return nil, invalid("Email or phone is required")
	}
	if email != "" && !strings.Contains(email, "@") {
		return nil, invalid("Invalid email address")
	}
	if phone != "" {
		phone = telephony.NormalizePhone(phone)
	}
	hash, err := identity.HashPassword(req.Password)
	if err != nil {
		return nil, invalid("%s", err.Error())
	}

	u := &models.User{
		ID:            uuid.New(),
		Name:          name,
		Email:         email,
		Phone:         phone,
		PasswordHash:  hash,
		PointsHistory: []models.PointsEntry{},
		Warnings:      models.Warnings{History: []models.WarningEntry{}},
		AccountStatus: models.AccountActive,
		CreatedAt:     s.now().UTC(),
	}
	err = s.users.CreateUser(ctx, u)
	if errors.Is(err, store.ErrConflict) {
		return nil, newError(ErrConflict, "An account with this email or phone already exists")
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Infow("User registered", "user_id", u.ID)
	return s.session(u.ID, models.RoleUser, u)
}

// Login signs a citizen in by email or phone
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	var (
		u   *models.User
		err error
	)
	switch {
	case strings.TrimSpace(req.Email) != "":
		u, err = s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	case strings.TrimSpace(req.Phone) != "":
		u, err = s.users.GetUserByPhone(ctx, telephony.NormalizePhone(req.Phone))
	default:
		return nil, invalid("Email or phone is required")
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, errBadLogin
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err := identity.CheckPassword(u.PasswordHash, req.Password); err != nil {
		return nil, errBadLogin
	}
	if u.IsBlacklisted {
		return nil, forbidden("Your account has been blacklisted")
	}
	return s.session(u.ID, models.RoleUser, u)
}

// GoogleLogin finds the user by Google id, then by verified email, and
// creates one when neither exists
func (s *AuthService) GoogleLogin(ctx context.Context, p *identity.GoogleProfile) (*Session, error) {
	if p == nil || p.ID == "" {
		return nil, newError(ErrUnauthorized, "Google sign-in failed")
	}

	u, err := s.users.GetUserByGoogleID(ctx, p.ID)
	if errors.Is(err, store.ErrNotFound) && p.Email != "" && p.VerifiedEmail {
		u, err = s.users.GetUserByEmail(ctx, strings.ToLower(p.Email))
		if err == nil {
			if linkErr := s.users.LinkGoogleID(ctx, u.ID, p.ID); linkErr != nil {
				return nil, fmt.Errorf("link google account: %w", linkErr)
			}
			u.GoogleID = p.ID
		}
	}
	if errors.Is(err, store.ErrNotFound) {
		u = &models.User{
			ID:            uuid.New(),
			Name:          p.Name,
			GoogleID:      p.ID,
			PointsHistory: []models.PointsEntry{},
			Warnings:      models.Warnings{History: []models.WarningEntry{}},
			AccountStatus: models.AccountActive,
			CreatedAt:     s.now().UTC(),
		}
		if p.VerifiedEmail {
			u.Email = strings.ToLower(p.Email)
		}
		if u.Name == "" {
			u.Name = "Citizen"
		}
		err = s.users.CreateUser(ctx, u)
		if err == nil {
			s.logger.Infow("User registered with Google", "user_id", u.ID)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("google login: %w", err)
	}
	if u.IsBlacklisted {
		return nil, forbidden("Your account has been blacklisted")
	}
	return s.session(u.ID, models.RoleUser, u)
}

// AdminLogin signs a city admin in
func (s *AuthService) AdminLogin(ctx context.Context, adminID, password string) (*Session, error) {
	if strings.TrimSpace(adminID) == "" || password == "" {
		return nil, invalid("Admin ID and password are required")
	}
	a, err := s.admins.GetAdminByLogin(ctx, strings.TrimSpace(adminID))
	if errors.Is(err, store.ErrNotFound) {
		return nil, errBadLogin
	}
	if err != nil {
		return nil, fmt.Errorf("load admin: %w", err)
	}
	if err := identity.CheckPassword(a.PasswordHash, password); err != nil {
		return nil, errBadLogin
	}
	s.logger.Infow("Admin logged in", "admin_id", a.ID)
	return s.session(a.ID, models.RoleAdmin, a)
}

// DepartmentLogin signs a department in
func (s *AuthService) DepartmentLogin(ctx context.Context, departmentID, password string) (*Session, error) {
	if strings.TrimSpace(departmentID) == "" || password == "" {
		return nil, invalid("Department ID and password are required")
	}
	d, err := s.departments.GetDepartmentByLogin(ctx, strings.TrimSpace(departmentID))
	if errors.Is(err, store.ErrNotFound) {
		return nil, errBadLogin
	}
	if err != nil {
		return nil, fmt.Errorf("load department: %w", err)
	}
	if err := identity.CheckPassword(d.PasswordHash, password); err != nil {
		return nil, errBadLogin
	}
	s.logger.Infow("Department logged in", "department_id", d.ID)
	return s.session(d.ID, models.RoleDepartment, d)
}

// Me returns the account behind a principal
func (s *AuthService) Me(ctx context.Context, p models.Principal) (any, error) {
	var (
		account any
		err     error
	)
	switch p.Role {
	case models.RoleUser:
		account, err = s.users.GetUser(ctx, p.ID)
	case models.RoleAdmin:
		account, err = s.admins.GetAdmin(ctx, p.ID)
	case models.RoleDepartment:
		account, err = s.departments.GetDepartment(ctx, p.ID)
	default:
		return nil, newError(ErrUnauthorized, "Unknown role")
	}
	if err != nil {
		return nil, accountErr(err)
	}
	return account, nil
}
