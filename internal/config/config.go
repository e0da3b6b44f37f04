package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultJWTSecret is only acceptable outside production
const DefaultJWTSecret = "sparklog-dev-secret-change-me"

// Config holds application level configuration. Database and Redis settings
// are loaded by their own packages.
type Config struct {
	Server    ServerConfig
	Session   SessionConfig
	Storage   StorageConfig
	Webhook   WebhookConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port           string
	Env            string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	StaticDir      string
	AllowedOrigins []string
}

// SessionConfig holds cookie session settings
type SessionConfig struct {
	JWTSecret    string
	TTL          time.Duration
	CookieName   string
	CookieSecure bool
}

// StorageConfig selects and configures the image upload backend
type StorageConfig struct {
	Driver         string // local or supabase
	LocalDir       string
	PublicURL      string
	SupabaseURL    string
	SupabaseKey    string
	MaxUploadBytes int64
}

// WebhookConfig holds the third-party transcript and automation endpoints
type WebhookConfig struct {
	TranscriptURL string
	AutomationURL string
	APIKey        string
	Timeout       time.Duration
}

// RateLimitConfig holds per-client API limits
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string
	Format string
}

// Load reads an optional .env file and then the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           GetEnv("PORT", "8080"),
			Env:            GetEnv("APP_ENV", "development"),
			ReadTimeout:    GetEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   GetEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    GetEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			StaticDir:      GetEnv("STATIC_DIR", ""),
			AllowedOrigins: GetEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Session: SessionConfig{
			JWTSecret:    GetEnv("JWT_SECRET", DefaultJWTSecret),
			TTL:          GetEnvAsDuration("SESSION_TTL", 7*24*time.Hour),
			CookieName:   GetEnv("SESSION_COOKIE_NAME", "sparklog_session"),
			CookieSecure: GetEnvAsBool("SESSION_COOKIE_SECURE", false),
		},
		Storage: StorageConfig{
			Driver:         strings.ToLower(GetEnv("STORAGE_DRIVER", "local")),
			LocalDir:       GetEnv("STORAGE_DIR", "./uploads"),
			PublicURL:      GetEnv("STORAGE_PUBLIC_URL", "/uploads"),
			SupabaseURL:    GetEnv("SUPABASE_URL", ""),
			SupabaseKey:    GetEnv("SUPABASE_SERVICE_KEY", ""),
			MaxUploadBytes: int64(GetEnvAsInt("STORAGE_MAX_UPLOAD_MB", 10)) << 20,
		},
		Webhook: WebhookConfig{
			TranscriptURL: GetEnv("TRANSCRIPT_API_URL", ""),
			AutomationURL: GetEnv("AUTOMATION_WEBHOOK_URL", ""),
			APIKey:        GetEnv("TRANSCRIPT_API_KEY", ""),
			Timeout:       GetEnvAsDuration("WEBHOOK_TIMEOUT", 30*time.Second),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: GetEnvAsInt("RATE_LIMIT_RPS", 20),
			Burst:             GetEnvAsInt("RATE_LIMIT_BURST", 40),
		},
		Log: LogConfig{
			Level:  GetEnv("LOG_LEVEL", "info"),
			Format: GetEnv("LOG_FORMAT", "text"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction reports whether the server runs with APP_ENV=production
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Validate checks settings that would otherwise fail at request time
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("PORT is required")
	}
	if c.IsProduction() && c.Session.JWTSecret == DefaultJWTSecret {
		return errors.New("JWT_SECRET must be set in production")
	}
	if c.Session.TTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	switch c.Storage.Driver {
	case "local":
		if c.Storage.LocalDir == "" {
			return errors.New("STORAGE_DIR is required for the local storage driver")
		}
	case "supabase":
		if c.Storage.SupabaseURL == "" || c.Storage.SupabaseKey == "" {
			return errors.New("SUPABASE_URL and SUPABASE_SERVICE_KEY are required for the supabase storage driver")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}
	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0 {
		return errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return nil
}
