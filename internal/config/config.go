package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Store drivers
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// MinSessionSecretLength matches the HMAC key size of the session tokens
const MinSessionSecretLength = 32

// Config holds all application configuration
type Config struct {
	StoreDriver  string `envconfig:"STORE_DRIVER" default:"postgres"`
	SeedPassword string `envconfig:"SEED_PASSWORD" default:"password"`

	Server        ServerConfig        `envconfig:"SERVER"`
	Database      DatabaseConfig      `envconfig:"DB"`
	Session       SessionConfig       `envconfig:"SESSION"`
	Log           LogConfig           `envconfig:"LOG"`
	Observability ObservabilityConfig `envconfig:"OTEL"`
	Security      SecurityConfig      `envconfig:"SECURITY"`
	RateLimit     RateLimitConfig     `envconfig:"RATELIMIT"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string        `default:"0.0.0.0"`
	Port           string        `default:"8080"`
	ReadTimeout    time.Duration `split_words:"true" default:"15s"`
	WriteTimeout   time.Duration `split_words:"true" default:"15s"`
	IdleTimeout    time.Duration `split_words:"true" default:"60s"`
	RequestTimeout time.Duration `split_words:"true" default:"30s"`
	// LoginPath is where unauthenticated browser requests are redirected
	LoginPath string `split_words:"true" default:"/login"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `default:"localhost"`
	Port     string `default:"5432"`
	User     string `default:"storeadmin"`
	Password string
	Name     string `default:"storeadmin"`
	SSLMode  string `envconfig:"SSLMODE" default:"disable"`
	MaxConns int    `split_words:"true" default:"25"`
	MinConns int    `split_words:"true" default:"5"`
}

// SessionConfig holds session token configuration
type SessionConfig struct {
	Secret   string
	Issuer   string        `default:"storeadmin"`
	Lifetime time.Duration `default:"24h"`

	CookieName     string `split_words:"true" default:"storeadmin_session"`
	CookieDomain   string `split_words:"true"`
	CookiePath     string `split_words:"true" default:"/"`
	CookieSecure   bool   `split_words:"true" default:"true"`
	CookieSameSite string `split_words:"true" default:"Lax"` // Strict, Lax or None
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `default:"info"`
	Format string `default:"json"`
}

// ObservabilityConfig holds tracing and metrics configuration
type ObservabilityConfig struct {
	Enabled        bool    `default:"false"`
	ServiceName    string  `split_words:"true" default:"storeadmin"`
	ServiceVersion string  `split_words:"true" default:"0.1.0"`
	Endpoint       string  // host:port of the OTLP/HTTP collector
	Insecure       bool    `default:"false"`
	SamplingRate   float64 `split_words:"true" default:"1.0"`

	// MetricsInterval is the push period of the metric exporter
	MetricsInterval time.Duration `split_words:"true" default:"10s"`
}

// SecurityConfig holds password hashing and lockout configuration
type SecurityConfig struct {
	Argon2Memory       uint32        `split_words:"true" default:"65536"`
	Argon2Iterations   uint32        `split_words:"true" default:"3"`
	Argon2Parallelism  uint8         `split_words:"true" default:"2"`
	Argon2SaltLength   uint32        `split_words:"true" default:"16"`
	Argon2KeyLength    uint32        `split_words:"true" default:"32"`
	LockoutMaxAttempts int           `split_words:"true" default:"5"`
	LockoutDuration    time.Duration `split_words:"true" default:"15m"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond float64 `split_words:"true" default:"10"`
	Burst             int     `default:"20"`
	// TrustedProxies lists the CIDRs or addresses allowed to set X-Forwarded-For
	TrustedProxies []string `split_words:"true"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres:
		if c.Database.Password == "" {
			return errors.New("DB_PASSWORD is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q", DriverPostgres, DriverMemory)
	}

	if len(c.Session.Secret) < MinSessionSecretLength {
		return fmt.Errorf("SESSION_SECRET must be at least %d characters", MinSessionSecretLength)
	}

	switch c.Session.CookieSameSite {
	case "Strict", "Lax", "None":
	default:
		return fmt.Errorf("SESSION_COOKIE_SAME_SITE must be Strict, Lax or None")
	}

	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text")
	}

	return nil
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}
