// Package config loads the admin-gate binary's settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	adminGate "github.com/MrEthical07/adminGate"
)

// Store backends accepted by STORE_BACKEND.
const (
	StoreMemory    = "memory"
	StoreRedis     = "redis"
	StorePostgres  = "postgres"
	StoreMiniredis = "miniredis"
)

// Config holds all process configuration.
type Config struct {
	// Server
	Port      int
	LogLevel  string
	LogFormat string

	// Persistence
	StoreBackend string
	RedisURL     string
	PostgresURL  string
	KeyPrefix    string

	// Auth backend
	BackendURL     string
	BackendAPIKey  string
	BackendTimeout time.Duration

	// Audit publishing; empty disables it.
	RabbitMQURL   string
	AuditQueue    string
	AuditExchange string

	// Gate policy
	PasswordThreshold int
	CodeThreshold     int
	LockoutDuration   time.Duration
	ResendCooldown    time.Duration
	CountTransient    bool
	RequiredRole      string

	MetricsEnabled bool
	OTelEnabled    bool
}

// Load reads configuration from environment variables.
// A .env file in the working directory is loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:      getEnvInt("PORT", 8080),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", StoreMemory)),
		RedisURL:     getEnv("REDIS_URL", "redis://localhost:6379/0"),
		PostgresURL:  getEnv("DATABASE_URL", ""),
		KeyPrefix:    getEnv("KEY_PREFIX", "ag"),

		BackendURL:     getEnv("BACKEND_URL", "http://localhost:3000"),
		BackendAPIKey:  getEnv("BACKEND_API_KEY", ""),
		BackendTimeout: getEnvDuration("BACKEND_TIMEOUT", 30*time.Second),

		RabbitMQURL:   getEnv("RABBITMQ_URL", ""),
		AuditQueue:    getEnv("AUDIT_QUEUE", "admin-gate-audit"),
		AuditExchange: getEnv("AUDIT_EXCHANGE", ""),

		PasswordThreshold: getEnvInt("PASSWORD_THRESHOLD", 5),
		CodeThreshold:     getEnvInt("CODE_THRESHOLD", 5),
		LockoutDuration:   getEnvDuration("LOCKOUT_DURATION", 2*time.Hour),
		ResendCooldown:    getEnvDuration("RESEND_COOLDOWN", 60*time.Second),
		CountTransient:    getEnvBool("COUNT_TRANSIENT_FAILURES", true),
		RequiredRole:      getEnv("REQUIRED_ROLE", "ADMIN"),

		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
		OTelEnabled:    getEnvBool("OTEL_ENABLED", false),
	}

	switch cfg.StoreBackend {
	case StoreMemory, StoreMiniredis, StoreRedis:
	case StorePostgres:
		if cfg.PostgresURL == "" {
			return nil, fmt.Errorf("config: DATABASE_URL is required for the postgres store")
		}
	default:
		return nil, fmt.Errorf("config: unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	return cfg, nil
}

// GateConfig maps the environment onto the gate's policy, starting from its defaults.
func (c *Config) GateConfig() adminGate.Config {
	g := adminGate.DefaultConfig()
	g.PasswordLimit.Threshold = c.PasswordThreshold
	g.PasswordLimit.LockoutDuration = c.LockoutDuration
	g.CodeLimit.Threshold = c.CodeThreshold
	g.CodeLimit.LockoutDuration = c.LockoutDuration
	g.Challenge.ResendCooldown = c.ResendCooldown
	g.Service.Timeout = c.BackendTimeout
	g.Service.CountTransientFailures = c.CountTransient
	g.Session.RequiredRole = c.RequiredRole
	g.Storage.KeyPrefix = c.KeyPrefix
	g.Metrics.Enabled = c.MetricsEnabled
	g.Metrics.EnableLatencyHistograms = c.MetricsEnabled
	return g
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
