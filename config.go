package authkit

import (
	"errors"
	"net/url"
	"time"
)

// Config defines the Manager's tunables. Zero values are filled from
// defaultConfig by the Builder; a fully hand-built Config must pass
// Validate.
type Config struct {
	Service ServiceConfig
	Session SessionConfig
	Redis   RedisConfig
	HTTP    HTTPConfig
	Metrics MetricsConfig
}

/*
====================================
SERVICE CONFIG
====================================
*/

// ServiceConfig locates the auth backend and names the tenant this session
// operates in.
type ServiceConfig struct {
	AuthBaseURL string
	TenantID    string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls idle and proactive-refresh behavior.
type SessionConfig struct {
	// IdleTimeout is how long without user activity a session counts as idle.
	IdleTimeout time.Duration
	// RefreshThreshold is how close to token expiry ExtendSession triggers a
	// proactive refresh instead of just stamping activity.
	RefreshThreshold time.Duration
	// RefreshTokenTTL bounds how long the stored refresh token survives.
	RefreshTokenTTL time.Duration
}

/*
====================================
REDIS CONFIG
====================================
*/

// RedisConfig names the durable-store key namespace and the cross-session
// signal channel. The client itself is injected through the Builder.
type RedisConfig struct {
	Prefix        string
	SignalChannel string
}

/*
====================================
HTTP CONFIG
====================================
*/

// HTTPConfig controls the transport used for auth calls.
type HTTPConfig struct {
	// Timeout applies to foreground requests.
	Timeout time.Duration
	// BackgroundTimeout bounds detached calls (status refresh, logout
	// notification) that run without a caller waiting.
	BackgroundTimeout time.Duration
}

// MetricsConfig toggles the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

func defaultConfig() Config {
	return Config{
		Session: SessionConfig{
			IdleTimeout:      30 * time.Minute,
			RefreshThreshold: 2 * time.Minute,
			RefreshTokenTTL:  7 * 24 * time.Hour,
		},
		Redis: RedisConfig{
			Prefix:        "ak",
			SignalChannel: "ak:signals",
		},
		HTTP: HTTPConfig{
			Timeout:           15 * time.Second,
			BackgroundTimeout: 10 * time.Second,
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

func cloneConfig(cfg Config) Config {
	// All fields are values; a struct copy is a deep copy.
	return cfg
}

// Validate checks the configuration for internal consistency.
func (c Config) Validate() error {
	if c.Service.AuthBaseURL == "" {
		return errors.New("auth base URL required")
	}
	if _, err := url.ParseRequestURI(c.Service.AuthBaseURL); err != nil {
		return errors.New("auth base URL invalid")
	}
	if c.Session.IdleTimeout <= 0 {
		return errors.New("idle timeout must be positive")
	}
	if c.Session.RefreshThreshold <= 0 {
		return errors.New("refresh threshold must be positive")
	}
	if c.Session.RefreshThreshold >= c.Session.IdleTimeout {
		return errors.New("refresh threshold must be below idle timeout")
	}
	if c.Redis.Prefix == "" {
		return errors.New("redis prefix required")
	}
	if c.Redis.SignalChannel == "" {
		return errors.New("signal channel required")
	}
	if c.HTTP.Timeout <= 0 || c.HTTP.BackgroundTimeout <= 0 {
		return errors.New("http timeouts must be positive")
	}
	return nil
}
