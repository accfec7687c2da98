package heavyride

import (
	"errors"
	"net/url"
	"time"
)

// Config defines the client configuration consumed by [Builder.Build].
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	HTTP      HTTPConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
HTTP CONFIG
====================================
*/

// HTTPConfig defines the transport-facing configuration.
//
// HTTPConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HTTPConfig struct {
	// BaseURL is the backend origin including the fixed /api/ prefix.
	BaseURL string
	// Locale is sent as Accept-Language on every request. Empty means "en".
	Locale string
	// RequestTimeout is the fixed per-request dispatch ceiling.
	RequestTimeout time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig defines session persistence behavior.
//
// SessionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionConfig struct {
	RedisPrefix string
	// TTL bounds the Redis session entries. The file store mirror is durable
	// and carries no expiry.
	TTL time.Duration
	// FilePath locates the durable session mirror on disk.
	FilePath string
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig defines optional client-side dispatch throttling.
//
// RateLimitConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	Burst             int
}

// AuditConfig defines audit dispatcher buffering.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines the in-process metrics system.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		HTTP: HTTPConfig{
			Locale:         "en",
			RequestTimeout: 30 * time.Second,
		},
		Session: SessionConfig{
			RedisPrefix: "hr:session",
			TTL:         7 * 24 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			Enabled:           false,
			RequestsPerSecond: 25,
			Burst:             50,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	return cfg
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation fails.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// HTTP
	if c.HTTP.BaseURL == "" {
		return errors.New("HTTP BaseURL is required")
	}
	base, err := url.Parse(c.HTTP.BaseURL)
	if err != nil {
		return errors.New("HTTP BaseURL must parse as a URL")
	}
	if base.Scheme == "" || base.Host == "" {
		return errors.New("HTTP BaseURL must be absolute")
	}
	if c.HTTP.RequestTimeout <= 0 {
		return errors.New("HTTP RequestTimeout must be > 0")
	}

	// Session
	if c.Session.TTL <= 0 {
		return errors.New("Session TTL must be > 0")
	}
	if c.Session.RedisPrefix == "" {
		return errors.New("Session RedisPrefix is required")
	}

	// Rate limit
	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerSecond <= 0 {
			return errors.New("RateLimit RequestsPerSecond must be > 0 when enabled")
		}
		if c.RateLimit.Burst <= 0 {
			return errors.New("RateLimit Burst must be > 0 when enabled")
		}
	}

	// Audit
	if c.Audit.Enabled {
		if c.Audit.BufferSize <= 0 {
			return errors.New("Audit BufferSize must be > 0 when audit is enabled")
		}
	}

	return nil
}
