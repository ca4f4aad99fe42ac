// Package fetcher performs outbound HTTP fetches with per-attempt timeouts,
// bounded retry and per-host circuit breaking.
package fetcher

import (
	"fmt"
	"time"

	pkgconfig "deltawatch/internal/pkg/config"
	"deltawatch/internal/resilience/retry"
)

// Backoff strategies accepted by FETCH_BACKOFF.
const (
	BackoffExponential = "exponential"
	BackoffFixed       = "fixed"
)

// DefaultUserAgent identifies deltawatch to the sites it polls.
const DefaultUserAgent = "deltawatch/1.0 (+change-detection)"

// Config holds the configuration for fetching.
//
// Security settings:
//   - DenyPrivateIPs: blocks URLs and redirects resolving to private addresses
//   - MaxBodyBytes: bounds memory used by a single response
//   - MaxRedirects: bounds redirect chains
type Config struct {
	// MaxAttempts is the total number of attempts per fetch, including the first.
	// Default: 3
	MaxAttempts int

	// Backoff selects the wait strategy between attempts (exponential or fixed).
	// Default: exponential
	Backoff string

	// InitialBackoff is the first wait, and the constant wait for fixed backoff.
	// Default: 1s
	InitialBackoff time.Duration

	// MaxBackoff caps exponential waits.
	// Default: 30s
	MaxBackoff time.Duration

	// AttemptTimeout bounds a single attempt, including reading the body.
	// An attempt that runs out of time is retried.
	// Default: 15s
	AttemptTimeout time.Duration

	// MaxBodyBytes is the largest accepted response body.
	// Default: 10485760 (10MB)
	MaxBodyBytes int64

	// MaxRedirects is the maximum number of redirects to follow.
	// Default: 5
	MaxRedirects int

	// RateLimit is the number of requests per second across all hosts.
	// Zero disables limiting.
	// Default: 2
	RateLimit float64

	// UserAgent is sent with every request.
	UserAgent string

	// DenyPrivateIPs rejects loopback, private and link-local targets.
	// Default: true
	DenyPrivateIPs bool
}

// DefaultConfig returns the default fetch configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		Backoff:        BackoffExponential,
		InitialBackoff: time.Second,
		MaxBackoff:     30 * time.Second,
		AttemptTimeout: 15 * time.Second,
		MaxBodyBytes:   10 * 1024 * 1024, // 10MB
		MaxRedirects:   5,
		RateLimit:      2,
		UserAgent:      DefaultUserAgent,
		DenyPrivateIPs: true,
	}
}

// Validate checks that the configuration is usable.
//
// Validation rules:
//   - MaxAttempts: 1-10
//   - Backoff: exponential or fixed
//   - InitialBackoff, AttemptTimeout: > 0
//   - MaxBackoff: >= InitialBackoff
//   - MaxBodyBytes: 1KB-100MB
//   - MaxRedirects: 0-10
//   - RateLimit: >= 0
func (c *Config) Validate() error {
	if c.MaxAttempts < 1 || c.MaxAttempts > 10 {
		return fmt.Errorf("max attempts must be between 1 and 10, got %d", c.MaxAttempts)
	}

	if c.Backoff != BackoffExponential && c.Backoff != BackoffFixed {
		return fmt.Errorf("backoff must be %q or %q, got %q", BackoffExponential, BackoffFixed, c.Backoff)
	}

	if c.InitialBackoff <= 0 {
		return fmt.Errorf("initial backoff must be positive, got %v", c.InitialBackoff)
	}

	if c.MaxBackoff < c.InitialBackoff {
		return fmt.Errorf("max backoff (%v) must not be below initial backoff (%v)", c.MaxBackoff, c.InitialBackoff)
	}

	if c.AttemptTimeout <= 0 {
		return fmt.Errorf("attempt timeout must be positive, got %v", c.AttemptTimeout)
	}

	minBody := int64(1024)              // 1KB
	maxBody := int64(100 * 1024 * 1024) // 100MB
	if c.MaxBodyBytes < minBody || c.MaxBodyBytes > maxBody {
		return fmt.Errorf("max body size must be between %d and %d bytes, got %d", minBody, maxBody, c.MaxBodyBytes)
	}

	if c.MaxRedirects < 0 || c.MaxRedirects > 10 {
		return fmt.Errorf("max redirects must be between 0 and 10, got %d", c.MaxRedirects)
	}

	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit must be non-negative, got %v", c.RateLimit)
	}

	return nil
}

// Policy builds the retry policy described by the configuration.
func (c Config) Policy() retry.Policy {
	var backoff retry.Backoff = retry.Exponential{
		Initial:        c.InitialBackoff,
		Max:            c.MaxBackoff,
		Multiplier:     2.0,
		JitterFraction: 0.1,
	}
	if c.Backoff == BackoffFixed {
		backoff = retry.Fixed{Wait: c.InitialBackoff}
	}
	return retry.Policy{MaxAttempts: c.MaxAttempts, Backoff: backoff}
}

// LoadConfigFromEnv loads configuration from environment variables.
// Invalid values fall back to their defaults and are reported through l.
//
// Environment variables:
//   - FETCH_MAX_ATTEMPTS: integer 1-10 (default: 3)
//   - FETCH_BACKOFF: exponential or fixed (default: exponential)
//   - FETCH_INITIAL_BACKOFF: duration (default: 1s)
//   - FETCH_MAX_BACKOFF: duration (default: 30s)
//   - FETCH_ATTEMPT_TIMEOUT: duration (default: 15s)
//   - FETCH_MAX_BODY_BYTES: integer in bytes (default: 10485760)
//   - FETCH_MAX_REDIRECTS: integer 0-10 (default: 5)
//   - FETCH_RATE_LIMIT: requests per second, 0 disables (default: 2)
//   - FETCH_USER_AGENT: string
//   - FETCH_DENY_PRIVATE_IPS: boolean (default: true)
func LoadConfigFromEnv(l *pkgconfig.Loader) Config {
	def := DefaultConfig()
	cfg := Config{
		MaxAttempts: l.Int("FETCH_MAX_ATTEMPTS", def.MaxAttempts, func(v int) error {
			return pkgconfig.ValidateIntRange(v, 1, 10)
		}),
		Backoff: l.String("FETCH_BACKOFF", def.Backoff,
			pkgconfig.ValidateOneOf(BackoffExponential, BackoffFixed)),
		InitialBackoff: l.Duration("FETCH_INITIAL_BACKOFF", def.InitialBackoff,
			pkgconfig.ValidatePositiveDuration),
		MaxBackoff: l.Duration("FETCH_MAX_BACKOFF", def.MaxBackoff,
			pkgconfig.ValidatePositiveDuration),
		AttemptTimeout: l.Duration("FETCH_ATTEMPT_TIMEOUT", def.AttemptTimeout, func(d time.Duration) error {
			return pkgconfig.ValidateDuration(d, 100*time.Millisecond, 5*time.Minute)
		}),
		MaxBodyBytes: l.Int64("FETCH_MAX_BODY_BYTES", def.MaxBodyBytes, func(v int64) error {
			if v < 1024 || v > 100*1024*1024 {
				return fmt.Errorf("must be between 1KB and 100MB")
			}
			return nil
		}),
		MaxRedirects: l.Int("FETCH_MAX_REDIRECTS", def.MaxRedirects, func(v int) error {
			return pkgconfig.ValidateIntRange(v, 0, 10)
		}),
		RateLimit: l.Float("FETCH_RATE_LIMIT", def.RateLimit, func(v float64) error {
			if v < 0 {
				return fmt.Errorf("must be non-negative")
			}
			return nil
		}),
		UserAgent:      pkgconfig.LoadEnvString("FETCH_USER_AGENT", def.UserAgent),
		DenyPrivateIPs: l.Bool("FETCH_DENY_PRIVATE_IPS", def.DenyPrivateIPs),
	}

	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}
	return cfg
}
