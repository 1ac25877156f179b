// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Registry RegistryConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response. Exports can
	// run for many minutes, so this defaults to 0 (disabled).
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// RegistryConfig holds settings for the upstream company-registry API.
type RegistryConfig struct {
	// BaseURL is the registry API root (default: the UK registry)
	BaseURL string `env:"REGISTRY_BASE_URL" default:"https://api.company-information.service.gov.uk"`

	// APIKey is the registry credential, sent as the basic-auth username with
	// an empty password. Supports the legacy COMPANIES_HOUSE_API_KEY name.
	APIKey string `env:"REGISTRY_API_KEY" envAlt:"COMPANIES_HOUSE_API_KEY"`

	// Timeout is the per-attempt HTTP deadline (default: 30s)
	Timeout time.Duration `env:"REGISTRY_TIMEOUT" default:"30s"`

	// MaxRetries is the number of retries after a 429 response before the
	// call is abandoned (default: 3)
	MaxRetries int `env:"REGISTRY_MAX_RETRIES" default:"3"`

	// FallbackToNameSearch controls what happens when the advanced-search
	// endpoint rejects POST (HTTP 405). When true and a name filter is
	// present, the search restarts in name-only mode; when false the export
	// fails with a descriptive "advanced search unsupported" error.
	FallbackToNameSearch bool `env:"REGISTRY_FALLBACK_TO_NAME_SEARCH" default:"false"`

	// WindowRequests is the outbound rate-limit cap per window (default: 600,
	// the registry's documented quota)
	WindowRequests int `env:"REGISTRY_RATE_REQUESTS" default:"600"`

	// Window is the outbound rate-limit window (default: 5m)
	Window time.Duration `env:"REGISTRY_RATE_WINDOW" default:"5m"`
}

// RateLimitConfig holds inbound (per-client) rate limiting settings.
type RateLimitConfig struct {
	// Enabled controls whether inbound rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the per-IP request budget (default: 60)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"60"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + itoa(c.Port)
	}
	return c.Host + ":" + itoa(c.Port)
}

// itoa converts an int to string without importing strconv in this file.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	n := len(b)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		n--
		b[n] = '-'
	}
	return string(b[n:])
}
