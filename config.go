package adminGate

import (
	"errors"
	"strings"
	"time"
)

// Config defines the policy of a [Gate].
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	PasswordLimit LimitConfig
	CodeLimit     LimitConfig
	Challenge     ChallengeConfig
	Credentials   CredentialsConfig
	Service       ServiceConfig
	Session       SessionConfig
	Storage       StorageConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
}

/*
====================================
LIMITER CONFIG
====================================
*/

// LimitConfig is the policy of one attempt limiter.
type LimitConfig struct {
	Threshold       int
	LockoutDuration time.Duration
	// StalenessWindow is how long an unlocked failure count survives without a new
	// attempt. Zero means LockoutDuration.
	StalenessWindow time.Duration
}

/*
====================================
CHALLENGE CONFIG
====================================
*/

// ChallengeConfig controls the one-time code phase.
type ChallengeConfig struct {
	CodeLength     int
	ResendCooldown time.Duration
}

// CredentialsConfig controls phase-1 input validation.
type CredentialsConfig struct {
	MinPasswordLength int
	MaxEmailLength    int
}

// ServiceConfig controls calls to the verification backend.
type ServiceConfig struct {
	Timeout time.Duration
	// CountTransientFailures makes network and timeout failures count against the
	// limiter of the phase that issued the call.
	CountTransientFailures bool
}

// SessionConfig controls the persisted admin session.
type SessionConfig struct {
	RequiredRole        string
	RejectExpiredTokens bool
}

// StorageConfig controls key naming in the injected store.
type StorageConfig struct {
	KeyPrefix string
}

// AuditConfig controls asynchronous audit dispatch.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	// SinkTimeout bounds each AuditSink.Emit call.
	SinkTimeout time.Duration
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULTS
====================================
*/

// DefaultConfig returns the production defaults: five attempts per phase, a two-hour
// lockout, 4-digit codes and a 60-second resend cooldown.
func DefaultConfig() Config {
	return Config{
		PasswordLimit: LimitConfig{
			Threshold:       5,
			LockoutDuration: 2 * time.Hour,
		},
		CodeLimit: LimitConfig{
			Threshold:       5,
			LockoutDuration: 2 * time.Hour,
		},
		Challenge: ChallengeConfig{
			CodeLength:     4,
			ResendCooldown: 60 * time.Second,
		},
		Credentials: CredentialsConfig{
			MinPasswordLength: 6,
			MaxEmailLength:    254,
		},
		Service: ServiceConfig{
			Timeout:                30 * time.Second,
			CountTransientFailures: true,
		},
		Session: SessionConfig{
			RequiredRole:        "ADMIN",
			RejectExpiredTokens: true,
		},
		Storage: StorageConfig{
			KeyPrefix: "ag",
		},
		Audit: AuditConfig{
			Enabled:     false,
			BufferSize:  256,
			DropIfFull:  true,
			SinkTimeout: 5 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
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

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if err := c.PasswordLimit.validate("PasswordLimit"); err != nil {
		return err
	}
	if err := c.CodeLimit.validate("CodeLimit"); err != nil {
		return err
	}

	if c.Challenge.CodeLength <= 0 || c.Challenge.CodeLength > 12 {
		return errors.New("Challenge CodeLength must be between 1 and 12")
	}
	if c.Challenge.ResendCooldown < 0 {
		return errors.New("Challenge ResendCooldown must be >= 0")
	}
	if c.Challenge.ResendCooldown%time.Second != 0 {
		return errors.New("Challenge ResendCooldown must be a whole number of seconds")
	}

	if c.Credentials.MinPasswordLength <= 0 {
		return errors.New("Credentials MinPasswordLength must be > 0")
	}
	if c.Credentials.MaxEmailLength <= 0 {
		return errors.New("Credentials MaxEmailLength must be > 0")
	}

	if c.Service.Timeout <= 0 {
		return errors.New("Service Timeout must be > 0")
	}

	if strings.TrimSpace(c.Session.RequiredRole) == "" {
		return errors.New("Session RequiredRole must not be empty")
	}

	prefix := c.Storage.KeyPrefix
	if prefix == "" {
		return errors.New("Storage KeyPrefix must not be empty")
	}
	if strings.ContainsAny(prefix, " \t\r\n") {
		return errors.New("Storage KeyPrefix must not contain whitespace")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}
	if c.Audit.SinkTimeout < 0 {
		return errors.New("Audit SinkTimeout must be >= 0")
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}

func (l LimitConfig) validate(name string) error {
	if l.Threshold <= 0 {
		return errors.New(name + " Threshold must be > 0")
	}
	if l.LockoutDuration <= 0 {
		return errors.New(name + " LockoutDuration must be > 0")
	}
	if l.StalenessWindow < 0 {
		return errors.New(name + " StalenessWindow must be >= 0")
	}
	return nil
}

func (l LimitConfig) staleness() time.Duration {
	if l.StalenessWindow > 0 {
		return l.StalenessWindow
	}
	return l.LockoutDuration
}
