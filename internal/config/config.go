// Package config handles loading and validation of application configuration
// from environment variables. Supports .env files via godotenv.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port        int
	Environment string // "development" | "staging" | "production"
	LogLevel    string
	LogFormat   string

	// Storage
	DatabaseURL   string
	MongoURI      string
	MongoDatabase string
	RedisURL      string

	// Security
	JWTSecret      string
	JWTTTL         time.Duration
	AllowedOrigins []string
	RateLimitRPM   int
	// RateLimitBackend selects "memory" or "redis"
	RateLimitBackend    string
	ChatRateLimitWindow time.Duration
	ChatRateLimitMax    int

	// Public URLs
	PublicBaseURL string
	FrontendURL   string

	// Google sign-in
	GoogleClientID     string
	GoogleClientSecret string

	// Classifier
	ClassifierAPIKey        string
	ClassifierModel         string
	ClassifierBaseURL       string
	ClassifierMinConfidence float64

	// Geocoding
	GeocodingAPIKey string

	// Call gateway / SMS
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	// Email
	SendGridAPIKey  string
	MailFromAddress string
	MailFromName    string

	// Media
	CloudinaryName      string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	UploadDir           string
}

const devJWTSecret = "dev-secret-change-in-production"

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnvInt("PORT", 8080),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),

		DatabaseURL:   getEnv("DATABASE_URL", ""),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "civic_complaints"),
		RedisURL:      getEnv("REDIS_URL", "redis://localhost:6379"),

		JWTSecret:           getEnv("JWT_SECRET", devJWTSecret),
		JWTTTL:              time.Duration(getEnvInt("JWT_TTL_HOURS", 24*7)) * time.Hour,
		AllowedOrigins:      splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")),
		RateLimitRPM:        getEnvInt("RATE_LIMIT_RPM", 120),
		RateLimitBackend:    strings.ToLower(getEnv("RATE_LIMIT_BACKEND", "memory")),
		ChatRateLimitWindow: time.Duration(getEnvInt("CHAT_RATE_LIMIT_WINDOW_SECONDS", 10)) * time.Second,
		ChatRateLimitMax:    getEnvInt("CHAT_RATE_LIMIT_MAX", 6),

		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		FrontendURL:   strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:5173"), "/"),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),

		ClassifierAPIKey:        getEnv("CLASSIFIER_API_KEY", ""),
		ClassifierModel:         getEnv("CLASSIFIER_MODEL", "gemini-1.5-flash"),
		ClassifierBaseURL:       getEnv("CLASSIFIER_BASE_URL", "https://generativelanguage.googleapis.com"),
		ClassifierMinConfidence: getEnvFloat("CLASSIFIER_MIN_CONFIDENCE", 0.4),

		GeocodingAPIKey: getEnv("GEOCODING_API_KEY", ""),

		TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber: getEnv("TWILIO_FROM_NUMBER", ""),

		SendGridAPIKey:  getEnv("SENDGRID_API_KEY", ""),
		MailFromAddress: getEnv("MAIL_FROM_ADDRESS", "noreply@civic-complaints.local"),
		MailFromName:    getEnv("MAIL_FROM_NAME", "Civic Complaints"),

		CloudinaryName:      getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),
		UploadDir:           getEnv("UPLOAD_DIR", "./uploads"),
	}

	if cfg.RateLimitBackend != "memory" && cfg.RateLimitBackend != "redis" {
		return nil, fmt.Errorf("RATE_LIMIT_BACKEND must be memory or redis, got %q", cfg.RateLimitBackend)
	}

	// Validate required fields in production
	if cfg.IsProduction() {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required in production")
		}
		if cfg.JWTSecret == devJWTSecret {
			return nil, fmt.Errorf("JWT_SECRET must be set in production")
		}
	}

	return cfg, nil
}

// IsProduction reports whether the server runs with production semantics
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// TelephonyEnabled reports whether call gateway credentials are present
func (c *Config) TelephonyEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioFromNumber != ""
}

// CloudinaryEnabled reports whether media should go to Cloudinary
func (c *Config) CloudinaryEnabled() bool {
	return c.CloudinaryName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
