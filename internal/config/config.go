// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tripbazaar/backend/internal/domain"
)

// minSecretBytes is the shortest HS256 signing key accepted.
const minSecretBytes = 32

// Config holds all configuration values for the API server and marketctl.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string

	// JWTSecret signs and verifies bearer tokens. Required, at least 32 bytes.
	JWTSecret []byte

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"].
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// RedisURL locates the pending-registration store.
	RedisURL string

	// AMQPURL is the broker for domain events. Empty means events are only logged.
	AMQPURL string

	// AMQPExchange is the topic exchange events are published to.
	AMQPExchange string

	// MaxCartQuantity caps the quantity of a single cart line.
	MaxCartQuantity int

	// TxMaxRetries bounds how often a transaction is retried after a
	// serialization failure or deadlock.
	TxMaxRetries int

	// CompletionSweepInterval is how often confirmed bookings whose date has
	// passed are completed. Zero disables the sweep.
	CompletionSweepInterval time.Duration

	// PendingRegistrationTTL is how long a started registration stays valid.
	PendingRegistrationTTL time.Duration

	// TokenTTL is the lifetime of issued bearer tokens.
	TokenTTL time.Duration

	// MaxBodyBytes limits request bodies. Zero disables the limit.
	MaxBodyBytes int64

	// AutoMigrate applies pending migrations when the API starts.
	AutoMigrate bool
}

// Load reads configuration from environment variables and returns a Config.
// Returns one error listing every required variable that is not set and every
// value that does not parse.
func Load() (Config, error) {
	p := &parser{}
	cfg := Config{
		Port:                    getEnv("PORT", "8080"),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		CORSOrigins:             splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		RedisURL:                getEnv("REDIS_URL", "redis://localhost:6379/0"),
		AMQPURL:                 os.Getenv("AMQP_URL"),
		AMQPExchange:            getEnv("AMQP_EXCHANGE", "marketplace.events"),
		MaxCartQuantity:         p.intVar("MAX_CART_QUANTITY", domain.DefaultMaxCartQuantity, 1),
		TxMaxRetries:            p.intVar("TX_MAX_RETRIES", 3, 0),
		CompletionSweepInterval: p.durationVar("COMPLETION_SWEEP_INTERVAL", 5*time.Minute),
		PendingRegistrationTTL:  p.durationVar("PENDING_REGISTRATION_TTL", 15*time.Minute),
		TokenTTL:                p.durationVar("TOKEN_TTL", 24*time.Hour),
		MaxBodyBytes:            int64(p.intVar("MAX_BODY_BYTES", 1<<20, 0)),
		AutoMigrate:             p.boolVar("AUTO_MIGRATE", true),
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		p.missing = append(p.missing, "DATABASE_URL")
	}

	secret := os.Getenv("JWT_SECRET")
	switch {
	case secret == "":
		p.missing = append(p.missing, "JWT_SECRET")
	case len(secret) < minSecretBytes:
		p.invalid = append(p.invalid, fmt.Sprintf("JWT_SECRET must be at least %d bytes", minSecretBytes))
	default:
		cfg.JWTSecret = []byte(secret)
	}

	if cfg.PendingRegistrationTTL <= 0 {
		p.invalid = append(p.invalid, "PENDING_REGISTRATION_TTL must be positive")
	}
	if cfg.TokenTTL <= 0 {
		p.invalid = append(p.invalid, "TOKEN_TTL must be positive")
	}

	if err := p.err(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// parser collects problems so Load can report them all at once.
type parser struct {
	missing []string
	invalid []string
}

func (p *parser) intVar(key string, fallback, minimum int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < minimum {
		p.invalid = append(p.invalid, fmt.Sprintf("%s must be an integer >= %d, got %q", key, minimum, raw))
		return fallback
	}
	return n
}

func (p *parser) durationVar(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		p.invalid = append(p.invalid, fmt.Sprintf("%s must be a non-negative duration, got %q", key, raw))
		return fallback
	}
	return d
}

func (p *parser) boolVar(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		p.invalid = append(p.invalid, fmt.Sprintf("%s must be a boolean, got %q", key, raw))
		return fallback
	}
	return b
}

func (p *parser) err() error {
	var parts []string
	if len(p.missing) > 0 {
		parts = append(parts, "required environment variables not set: "+strings.Join(p.missing, ", "))
	}
	if len(p.invalid) > 0 {
		parts = append(parts, "invalid environment variables: "+strings.Join(p.invalid, "; "))
	}
	if len(parts) == 0 {
		return nil
	}
	return fmt.Errorf("%s", strings.Join(parts, "; "))
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
