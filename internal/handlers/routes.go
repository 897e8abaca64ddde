package handlers

import (
	"net/http"

	"github.com/aawaaz/complaint-server/internal/identity"
	"github.com/aawaaz/complaint-server/internal/middleware"
	"github.com/aawaaz/complaint-server/internal/models"
	"github.com/aawaaz/complaint-server/internal/ratelimit"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// API is the full set of handlers mounted under /api
type API struct {
	Health        *HealthHandler
	Auth          *AuthHandler
	Complaints    *ComplaintHandler
	Admin         *AdminHandler
	Activity      *ActivityHandler
	Department    *DepartmentHandler
	Chat          *ChatHandler
	Rewards       *RewardHandler
	Notifications *NotificationHandler
	Telephony     *TelephonyHandler

	Issuer *identity.Issuer
	// ChatLimiter throttles chat routes per principal and route
	ChatLimiter ratelimit.Limiter
	Logger      *zap.SugaredLogger
}

// Mount registers every API route on r
func (a *API) Mount(r chi.Router) {
	auth := middleware.RequireAuth(a.Issuer)
	citizen := middleware.RequireRole(models.RoleUser)
	admin := middleware.RequireRole(models.RoleAdmin)
	department := middleware.RequireRole(models.RoleDepartment)

	r.Get("/health", a.Health.Check)
	r.Get("/health/ready", a.Health.Ready)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", a.Auth.Register)
		r.Post("/login", a.Auth.Login)
		r.Get("/google/login", a.Auth.GoogleLogin)
		r.Get("/google/callback", a.Auth.GoogleCallback)
	})

	r.Route("/users", func(r chi.Router) {
		r.Use(auth)
		r.Get("/me", a.Auth.Me)
		r.With(citizen).Get("/points", a.Rewards.Points)
	})

	r.Route("/complaints", func(r chi.Router) {
		r.Get("/explore", a.Complaints.Explore)
		r.Group(func(r chi.Router) {
			r.Use(auth)
			r.With(citizen).Post("/", a.Complaints.Submit)
			r.With(citizen).Get("/", a.Complaints.ListOwn)
			r.Get("/{id}", a.Complaints.Get)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Post("/login", a.Auth.AdminLogin)
		r.Group(func(r chi.Router) {
			r.Use(auth, admin)
			r.Get("/complaints", a.Admin.List)
			r.Put("/complaints/{id}/approve", a.Admin.Approve)
			r.Put("/complaints/{id}/reject", a.Admin.Reject)
			r.Put("/complaints/{id}/assign", a.Admin.Assign)
			r.Get("/complaints/{id}/activity", a.Activity.ByComplaint)
			r.Post("/give-warning/{userId}", a.Admin.GiveWarning)
			r.Post("/blacklist-user/{userId}", a.Admin.Blacklist)
			r.Get("/analytics", a.Admin.Analytics)
			r.Get("/analytics/export", a.Admin.Export)
			r.Post("/rewards", a.Admin.CreateReward)
			r.Put("/redemptions/{id}/status", a.Admin.SetRedemptionStatus)
		})
	})

	r.Route("/department", func(r chi.Router) {
		r.Post("/login", a.Auth.DepartmentLogin)
		r.Group(func(r chi.Router) {
			r.Use(auth, department)
			r.Get("/complaints", a.Department.List)
			r.Post("/reject-complaint/{complaintId}", a.Department.Reject)
			r.Put("/resolve-complaint/{complaintId}", a.Department.Resolve)
		})
	})

	// chat routes sit in a Group so the limiter sees the full route pattern
	r.Route("/chat", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(auth)
			if a.ChatLimiter != nil {
				r.Use(middleware.RateLimit(a.ChatLimiter, middleware.ByPrincipalRoute, a.Logger))
			}
			r.Post("/init/{complaintId}", a.Chat.Init)
			r.Get("/{complaintId}", a.Chat.Get)
			r.Post("/{complaintId}/message", a.Chat.Send)
			r.Post("/{complaintId}/read", a.Chat.MarkRead)
			r.Get("/{complaintId}/unread", a.Chat.Unread)
		})
	})

	r.Route("/rewards", func(r chi.Router) {
		r.Get("/", a.Rewards.List)
		r.Group(func(r chi.Router) {
			r.Use(auth, citizen)
			r.Post("/redeem/{rewardId}", a.Rewards.Redeem)
			r.Get("/redemptions", a.Rewards.Redemptions)
		})
	})

	r.Route("/notifications", func(r chi.Router) {
		r.Use(auth, citizen)
		r.Get("/", a.Notifications.List)
		r.Put("/{id}/read", a.Notifications.MarkRead)
	})

	r.Route("/telephony", func(r chi.Router) {
		r.Post("/voice/{id}", a.Telephony.Voice)
		r.Post("/gather/{id}", a.Telephony.Gather)
		r.Post("/status/{id}", a.Telephony.Status)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, "Route not found")
	})
}
