package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds application configuration
type Config struct {
	Port        int      `env:"PORT" envDefault:"8080"`
	Environment string   `env:"ENVIRONMENT" envDefault:"production"`
	AppURL      string   `env:"APP_URL"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:","`

	Brand     BrandConfig
	Mobile    MobileConfig
	Identity  IdentityConfig
	Store     StoreConfig
	RateLimit RateLimitConfig
	Telemetry TelemetryConfig
}

// BrandConfig holds the presentation parameters shared by every page
type BrandConfig struct {
	Name            string `env:"BRAND_NAME" envDefault:"LJL – CoLive"`
	Tagline         string `env:"BRAND_TAGLINE" envDefault:"Comparte · Vive · Conecta"`
	DefaultLanguage string `env:"DEFAULT_LANGUAGE" envDefault:"es"`
}

// MobileConfig holds the native app hand-off parameters
type MobileConfig struct {
	Scheme         string        `env:"APP_SCHEME" envDefault:"ljlcolive"`
	AndroidPackage string        `env:"ANDROID_PACKAGE" envDefault:"com.example.am_proyectofinal_ljl"`
	Path           string        `env:"HANDOFF_PATH" envDefault:"auth/callback"`
	FallbackDelay  time.Duration `env:"HANDOFF_DELAY" envDefault:"700ms"`
}

// IdentityConfig holds the identity provider (GoTrue) configuration
type IdentityConfig struct {
	URL            string        `env:"SUPABASE_URL"`
	AnonKey        string        `env:"SUPABASE_ANON_KEY"`
	JWTSecret      string        `env:"SUPABASE_JWT_SECRET"`
	Timeout        time.Duration `env:"IDENTITY_TIMEOUT" envDefault:"30s"`
	HardenedErrors bool          `env:"HARDEN_ERROR_MESSAGES" envDefault:"false"`
}

// StoreConfig holds flow-session storage configuration
type StoreConfig struct {
	Driver          string        `env:"STORE_DRIVER" envDefault:"memory"`
	RedisURL        string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	Database        DatabaseConfig
	SessionTTL      time.Duration `env:"FLOW_SESSION_TTL" envDefault:"15m"`
	TicketTTL       time.Duration `env:"HANDOFF_TICKET_TTL" envDefault:"2m"`
	CleanupSchedule string        `env:"CLEANUP_SCHEDULE" envDefault:"*/10 * * * *"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	DSN          string `env:"DATABASE_DSN"`
	MaxOpenConns int    `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns int    `env:"DB_MAX_IDLE_CONNS" envDefault:"2"`
}

// RateLimitConfig holds per-IP limits for the link endpoints
type RateLimitConfig struct {
	PerSecond float64 `env:"RESET_RATE_LIMIT" envDefault:"1"`
	Burst     int     `env:"RESET_RATE_BURST" envDefault:"5"`
}

// TelemetryConfig holds OpenTelemetry exporter configuration
type TelemetryConfig struct {
	Endpoint    string `env:"OTEL_ENDPOINT"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"colive-web"`
}

const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.AppURL = strings.TrimRight(strings.TrimSpace(cfg.AppURL), "/")
	cfg.Identity.URL = strings.TrimRight(strings.TrimSpace(cfg.Identity.URL), "/")
	cfg.Mobile.Path = strings.Trim(strings.TrimSpace(cfg.Mobile.Path), "/")
	cfg.CORSOrigins = loadCORSOrigins(cfg.CORSOrigins, cfg.AppURL, cfg.Environment)
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = StoreMemory
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}

	if c.Environment == "production" {
		if c.Identity.URL == "" {
			return fmt.Errorf("SUPABASE_URL is required in production")
		}
		if c.Identity.AnonKey == "" {
			return fmt.Errorf("SUPABASE_ANON_KEY is required in production")
		}
	}

	if len(c.CORSOrigins) == 0 {
		return fmt.Errorf("at least one CORS origin must be configured")
	}

	if c.Mobile.Scheme == "" {
		return fmt.Errorf("APP_SCHEME must not be empty")
	}
	if strings.ContainsAny(c.Mobile.Scheme, ":/;#") {
		return fmt.Errorf("APP_SCHEME must be a bare scheme name, got %q", c.Mobile.Scheme)
	}
	if c.Mobile.AndroidPackage == "" {
		return fmt.Errorf("ANDROID_PACKAGE must not be empty")
	}
	if c.Mobile.FallbackDelay < 0 {
		return fmt.Errorf("HANDOFF_DELAY must not be negative")
	}

	switch c.Store.Driver {
	case StoreMemory:
	case StoreRedis:
		if c.Store.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when STORE_DRIVER is redis")
		}
	case StorePostgres:
		if c.Store.Database.DSN == "" {
			return fmt.Errorf("DATABASE_DSN is required when STORE_DRIVER is postgres")
		}
	default:
		return fmt.Errorf("unsupported store driver: %s", c.Store.Driver)
	}

	if c.Store.SessionTTL <= 0 || c.Store.TicketTTL <= 0 {
		return fmt.Errorf("FLOW_SESSION_TTL and HANDOFF_TICKET_TTL must be positive")
	}

	if c.RateLimit.PerSecond <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("RESET_RATE_LIMIT and RESET_RATE_BURST must be positive")
	}

	return nil
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func loadCORSOrigins(explicit []string, appURL, env string) []string {
	origins := make([]string, 0, len(explicit))
	for _, origin := range explicit {
		if trimmed := strings.TrimRight(strings.TrimSpace(origin), "/"); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) > 0 {
		return origins
	}

	if appURL != "" {
		return []string{appURL}
	}

	if env != "development" {
		log.Println("WARNING: APP_URL not set. Using default localhost origins.")
		log.Println("WARNING: Set APP_URL environment variable for production deployments.")
	}
	return []string{"http://localhost:3000", "http://localhost:8080"}
}
