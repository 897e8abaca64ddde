// Package main is the entry point for the civic complaint server.
// It provides a REST API for filing complaints with media and location,
// phone verification through a call gateway, routing to city departments,
// per-complaint chat rooms and a points-for-rewards programme.
//
// Architecture:
//   - PostgreSQL holds complaints, accounts, notifications, rewards and the
//     activity log; every lifecycle transition is one conditional update
//   - MongoDB holds chat rooms, one document per (complaint, chat type)
//   - Redis backs the shared rate limiter and the unread-count cache
//   - Side effects of a transition (routing, notifications, points, chat
//     rooms, audit) are best-effort and never fail the transition
//
// Outside production every backend falls back to an in-memory
// implementation when it is not reachable.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aawaaz/complaint-server/internal/cache"
	"github.com/aawaaz/complaint-server/internal/classifier"
	"github.com/aawaaz/complaint-server/internal/config"
	"github.com/aawaaz/complaint-server/internal/database"
	"github.com/aawaaz/complaint-server/internal/geocoder"
	"github.com/aawaaz/complaint-server/internal/handlers"
	"github.com/aawaaz/complaint-server/internal/identity"
	"github.com/aawaaz/complaint-server/internal/mailer"
	"github.com/aawaaz/complaint-server/internal/media"
	"github.com/aawaaz/complaint-server/internal/middleware"
	"github.com/aawaaz/complaint-server/internal/ratelimit"
	"github.com/aawaaz/complaint-server/internal/services"
	"github.com/aawaaz/complaint-server/internal/store"
	"github.com/aawaaz/complaint-server/internal/telephony"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	twilioBaseURL    = "https://api.twilio.com"
	geocodingBaseURL = "https://maps.googleapis.com"
	// classifierRPS keeps the classifier under its free-tier quota
	classifierRPS = 1.0
)

// relational is the set of stores kept in PostgreSQL
type relational interface {
	store.ComplaintStore
	store.UserStore
	store.AdminStore
	store.DepartmentStore
	store.NotificationStore
	store.RewardStore
	store.ActivityStore
	handlers.Pinger
}

type backends struct {
	db      relational
	chats   store.ChatStore
	redis   *redis.Client
	health  map[string]handlers.Pinger
	closers []func()
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func newLogger(level, format string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}
	zcfg := zap.NewProductionConfig()
	if format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.EncoderConfig.TimeKey = "timestamp"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zcfg.Build()
}

// openBackends connects PostgreSQL, MongoDB and Redis. Outside production a
// backend that cannot be reached is replaced by its in-memory counterpart.
func openBackends(ctx context.Context, cfg *config.Config, sugar *zap.SugaredLogger) (*backends, error) {
	b := &backends{health: map[string]handlers.Pinger{}}
	mem := store.NewMemory()

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	switch {
	case err == nil:
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		pg := store.NewPostgres(pool)
		b.db = pg
		b.health["postgres"] = pg
		b.closers = append(b.closers, pool.Close)
	case cfg.IsProduction():
		return nil, fmt.Errorf("postgres: %w", err)
	default:
		sugar.Warnw("PostgreSQL unavailable, using in-memory store", "error", err)
		b.db = mem
	}

	client, db, err := database.NewMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	switch {
	case err == nil:
		chats := store.NewMongoChats(db)
		if err := chats.EnsureIndexes(ctx); err != nil {
			sugar.Warnw("Failed to ensure chat indexes", "error", err)
		}
		b.chats = chats
		b.health["mongo"] = chats
		b.closers = append(b.closers, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(ctx)
		})
	case cfg.IsProduction():
		b.close()
		return nil, fmt.Errorf("mongo: %w", err)
	default:
		sugar.Warnw("MongoDB unavailable, using in-memory chat store", "error", err)
		b.chats = mem
	}

	rdb, err := database.NewRedis(ctx, cfg.RedisURL)
	switch {
	case err == nil:
		b.redis = rdb
		b.health["redis"] = handlers.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
		b.closers = append(b.closers, func() { _ = rdb.Close() })
	case cfg.IsProduction() && cfg.RateLimitBackend == "redis":
		b.close()
		return nil, fmt.Errorf("redis: %w", err)
	default:
		sugar.Warnw("Redis unavailable, using in-memory limiter and cache", "error", err)
	}

	return b, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	logger, err := newLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	sugar.Infow("Starting civic complaint server",
		"port", cfg.Port,
		"env", cfg.Environment,
		"public_base_url", cfg.PublicBaseURL,
	)

	ctx := context.Background()
	b, err := openBackends(ctx, cfg, sugar)
	if err != nil {
		sugar.Fatalf("Failed to open backends: %v", err)
	}
	defer b.close()

	// Shared counters: Redis when available, process memory otherwise
	var (
		unread      cache.Unread = cache.NewMemoryUnread()
		ipLimiter   ratelimit.Limiter
		chatLimiter ratelimit.Limiter
	)
	ipLimiter = ratelimit.NewMemory(cfg.RateLimitRPM, time.Minute)
	chatLimiter = ratelimit.NewMemory(cfg.ChatRateLimitMax, cfg.ChatRateLimitWindow)
	if b.redis != nil {
		unread = cache.NewRedisUnread(b.redis)
		if cfg.RateLimitBackend == "redis" {
			ipLimiter = ratelimit.NewRedis(b.redis, "rl:ip:", cfg.RateLimitRPM, time.Minute)
			chatLimiter = ratelimit.NewRedis(b.redis, "rl:chat:", cfg.ChatRateLimitMax, cfg.ChatRateLimitWindow)
		}
	}

	// External collaborators
	var gateway telephony.Gateway
	webhookToken := ""
	if cfg.TelephonyEnabled() {
		gateway = telephony.NewTwilio(twilioBaseURL, cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
		webhookToken = cfg.TwilioAuthToken
	} else {
		sugar.Warn("Call gateway not configured, complaints will skip phone verification")
	}

	var mail mailer.Mailer = mailer.NewLog(sugar)
	if cfg.SendGridAPIKey != "" {
		mail = mailer.NewSendGrid(cfg.SendGridAPIKey, cfg.MailFromAddress, cfg.MailFromName)
	}

	var files media.Store
	serveUploads := false
	if cfg.CloudinaryEnabled() {
		cld, err := media.NewCloudinary(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			sugar.Fatalf("Failed to initialize media store: %v", err)
		}
		files = cld
	} else {
		local, err := media.NewLocal(cfg.UploadDir, "/uploads")
		if err != nil {
			sugar.Fatalf("Failed to initialize upload directory: %v", err)
		}
		files = local
		serveUploads = true
	}

	classify := classifier.NewGemini(cfg.ClassifierBaseURL, cfg.ClassifierAPIKey, cfg.ClassifierModel, classifierRPS, sugar)
	geo := geocoder.NewWithFallback(geocoder.NewGoogle(geocodingBaseURL, cfg.GeocodingAPIKey), sugar)
	issuer := identity.NewIssuer(cfg.JWTSecret, cfg.JWTTTL)
	google := identity.NewGoogle(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.PublicBaseURL+"/api/auth/google/callback")

	// Initialize services
	db := b.db
	routingSvc := services.NewRoutingService(db, db, classify, cfg.ClassifierMinConfidence, sugar)
	chatSvc := services.NewChatService(db, b.chats, db, db, db, unread, sugar)
	rewardSvc := services.NewRewardService(db, db, mail, sugar)
	notifySvc := services.NewNotificationService(db, db, gateway, mail, sugar)
	activitySvc := services.NewActivityLogService(db, sugar)
	lifecycleSvc := services.NewLifecycleService(db, db, db, routingSvc, chatSvc, rewardSvc, notifySvc, activitySvc, sugar)
	verificationSvc := services.NewVerificationService(db, gateway, routingSvc, chatSvc, rewardSvc, notifySvc, activitySvc,
		services.VerificationConfig{BaseURL: cfg.PublicBaseURL, Production: cfg.IsProduction()}, sugar)
	complaintSvc := services.NewComplaintService(db, db, db, geo, files, routingSvc, verificationSvc, activitySvc, sugar)
	analyticsSvc := services.NewAnalyticsService(db, sugar)
	authSvc := services.NewAuthService(db, db, db, issuer, sugar)
	actors := services.NewActorResolver(db, db, db)

	// Initialize handlers
	api := &handlers.API{
		Health:        handlers.NewHealthHandler(b.health, sugar),
		Auth:          handlers.NewAuthHandler(authSvc, google, cfg.FrontendURL, cfg.IsProduction(), sugar),
		Complaints:    handlers.NewComplaintHandler(complaintSvc, actors, sugar),
		Admin:         handlers.NewAdminHandler(complaintSvc, lifecycleSvc, analyticsSvc, rewardSvc, actors, sugar),
		Activity:      handlers.NewActivityHandler(complaintSvc, actors, sugar),
		Department:    handlers.NewDepartmentHandler(complaintSvc, lifecycleSvc, actors, sugar),
		Chat:          handlers.NewChatHandler(chatSvc, actors, sugar),
		Rewards:       handlers.NewRewardHandler(rewardSvc, sugar),
		Notifications: handlers.NewNotificationHandler(notifySvc, sugar),
		Telephony:     handlers.NewTelephonyHandler(verificationSvc, webhookToken, cfg.PublicBaseURL, sugar),
		Issuer:        issuer,
		ChatLimiter:   chatLimiter,
		Logger:        sugar,
	}

	// Build router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.SecurityHeaders())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Rate limiting
	r.Use(middleware.RateLimit(ipLimiter, middleware.ByClientIP, sugar))

	r.Route("/api", api.Mount)

	if serveUploads {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadDir))))
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sugar.Infof("Server listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	sugar.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorf("Forced shutdown: %v", err)
	}

	sugar.Info("Server stopped")
}
