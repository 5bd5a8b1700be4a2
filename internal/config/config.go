// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// ErrPlaceholderSecret is returned when a required secret holds a placeholder value.
var ErrPlaceholderSecret = errors.New("placeholder credential")

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Public origin used for checkout return URLs (e.g., https://kidsstudy.app)
	BaseURL   string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	LoginPath string `env:"LOGIN_PATH" envDefault:"/login"`

	// Profile store (Supabase Postgres)
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	DBMaxConns  int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns  int32  `env:"DB_MIN_CONNS" envDefault:"2"`
	// Set when DATABASE_URL points at the Supabase transaction pooler.
	DBSimpleProtocol bool `env:"DB_SIMPLE_PROTOCOL" envDefault:"false"`

	// Cache (Redis)
	RedisURL       string `env:"REDIS_URL,required,notEmpty"`
	RedisPoolSize  int    `env:"REDIS_POOL_SIZE" envDefault:"10"`
	RedisKeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"ks:"`

	// Payment processor
	StripeSecretKey     string        `env:"STRIPE_SECRET_KEY,required,notEmpty"`
	StripeWebhookSecret string        `env:"STRIPE_WEBHOOK_SECRET,required,notEmpty"`
	CheckoutCurrency    string        `env:"CHECKOUT_CURRENCY" envDefault:"ils"`
	WebhookTolerance    time.Duration `env:"WEBHOOK_TOLERANCE" envDefault:"5m"`

	// Session tokens issued by Supabase Auth
	SupabaseJWTSecret   string `env:"SUPABASE_JWT_SECRET,required,notEmpty"`
	SupabaseJWTAudience string `env:"SUPABASE_JWT_AUDIENCE" envDefault:"authenticated"`

	// Privileged identities that bypass the subscription gate
	AdminEmails  []string `env:"ADMIN_EMAILS" envSeparator:","`
	AdminUserIDs []string `env:"ADMIN_USER_IDS" envSeparator:","`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Outbound call budgets
	ProfileFetchTimeout time.Duration `env:"PROFILE_FETCH_TIMEOUT" envDefault:"3s"`
	CheckoutTimeout     time.Duration `env:"CHECKOUT_TIMEOUT" envDefault:"10s"`
	WebhookTimeout      time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"10s"`

	// Rate limiting (per client IP)
	RateLimitEnabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitRPS     int  `env:"RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst   int  `env:"RATE_LIMIT_BURST" envDefault:"20"`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Validate rejects placeholder or test credentials that must never reach a running service.
func (c *Config) Validate() error {
	secrets := map[string]string{
		"STRIPE_SECRET_KEY":     c.StripeSecretKey,
		"STRIPE_WEBHOOK_SECRET": c.StripeWebhookSecret,
		"SUPABASE_JWT_SECRET":   c.SupabaseJWTSecret,
	}
	for name, value := range secrets {
		if isPlaceholder(value) {
			return fmt.Errorf("%s: %w", name, ErrPlaceholderSecret)
		}
	}

	if c.IsProduction() && strings.HasPrefix(c.StripeSecretKey, "sk_test_") {
		return errors.New("STRIPE_SECRET_KEY: test key not allowed in production")
	}

	if c.RateLimitEnabled && (c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0) {
		return errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}

	return nil
}

func isPlaceholder(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	return v == "" || v == "changeme" || strings.HasSuffix(v, "_dummy")
}

// Load parses environment variables and returns a validated Config.
// A local .env file is loaded first if present.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	// Missing .env is fine; the process environment always wins.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
