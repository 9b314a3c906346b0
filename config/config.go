// Package config loads relay server settings from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	domain "github.com/example/realtime-relay/domain/relay"
	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultPort           = "3000"
	DefaultMaxMessageSize = 64 * 1024
	DefaultSendBuffer     = 256
	DefaultWriteWait      = 10 * time.Second
	DefaultPongWait       = 60 * time.Second
	DefaultRatePerSecond  = 20
	DefaultRateBurst      = 40
	DefaultMetricsPath    = "/metrics"
	DefaultNamespace      = "relay"
)

// DefaultAllowedOrigins are the browser origins accepted out of the box.
var DefaultAllowedOrigins = []string{
	"https://micro-coches.com",
	"https://www.micro-coches.com",
	"http://localhost",
}

// DefaultRules relays "tasacion:updated" to the budget it belongs to.
var DefaultRules = []domain.Rule{
	{Domain: "tasacion", ScopeField: "presupuestoId", RoomKind: "presupuesto"},
}

// Config is the top-level configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Relay   RelayConfig   `yaml:"relay"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig holds the HTTP and WebSocket listener settings.
type ServerConfig struct {
	Port           string        `yaml:"port"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	MaxMessageSize int           `yaml:"max_message_size"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
}

// RelayConfig tunes the hub.
type RelayConfig struct {
	// SendBuffer is the number of outbound frames queued per connection
	// before further frames are dropped.
	SendBuffer int           `yaml:"send_buffer"`
	WriteWait  time.Duration `yaml:"write_wait"`
	// PongWait is how long a connection may stay silent. Pings are sent at
	// nine tenths of it.
	PongWait  time.Duration   `yaml:"pong_wait"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Rules     []domain.Rule   `yaml:"rules"`
}

// RateLimitConfig limits inbound frames per connection. PerSecond 0 disables it.
type RateLimitConfig struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

// PingPeriod returns the keepalive interval derived from PongWait.
func (r RelayConfig) PingPeriod() time.Duration {
	return r.PongWait * 9 / 10
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}

// LogConfig selects the application log level and format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a Config pre-populated with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           DefaultPort,
			AllowedOrigins: append([]string(nil), DefaultAllowedOrigins...),
			MaxMessageSize: DefaultMaxMessageSize,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   60 * time.Second,
			IdleTimeout:    120 * time.Second,
		},
		Relay: RelayConfig{
			SendBuffer: DefaultSendBuffer,
			WriteWait:  DefaultWriteWait,
			PongWait:   DefaultPongWait,
			RateLimit: RateLimitConfig{
				PerSecond: DefaultRatePerSecond,
				Burst:     DefaultRateBurst,
			},
			Rules: append([]domain.Rule(nil), DefaultRules...),
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Path:      DefaultMetricsPath,
			Namespace: DefaultNamespace,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads and parses the YAML config file at path, then applies
// environment overrides. Missing optional fields keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// FromEnv returns the defaults with environment overrides applied.
func FromEnv() (*Config, error) {
	cfg := Default()
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from PORT, ALLOWED_ORIGINS and LOG_LEVEL.
func (c *Config) ApplyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		c.Server.AllowedOrigins = splitList(origins)
	}
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
}

// Validate checks required fields and normalizes origins in place.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if c.Server.MaxMessageSize <= 0 {
		return errors.New("server.max_message_size must be positive")
	}

	origins, err := NormalizeOrigins(c.Server.AllowedOrigins)
	if err != nil {
		return fmt.Errorf("server.allowed_origins: %w", err)
	}
	if len(origins) == 0 {
		return errors.New("server.allowed_origins must not be empty")
	}
	c.Server.AllowedOrigins = origins

	if c.Relay.SendBuffer <= 0 {
		return errors.New("relay.send_buffer must be positive")
	}
	if c.Relay.WriteWait <= 0 {
		return errors.New("relay.write_wait must be positive")
	}
	if c.Relay.PongWait <= 0 {
		return errors.New("relay.pong_wait must be positive")
	}
	if c.Relay.RateLimit.PerSecond < 0 {
		return errors.New("relay.rate_limit.per_second must not be negative")
	}
	for i, rule := range c.Relay.Rules {
		if rule.Domain == "" {
			return fmt.Errorf("relay.rules[%d]: domain is required", i)
		}
		if rule.RoomKind == "" {
			return fmt.Errorf("relay.rules[%d] %q: room_kind is required", i, rule.Domain)
		}
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path %q must start with /", c.Metrics.Path)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	return nil
}

// NormalizeOrigins lowercases scheme and host, strips trailing slashes and
// drops duplicates. "*" is kept as is.
func NormalizeOrigins(origins []string) ([]string, error) {
	seen := make(map[string]struct{}, len(origins))
	result := make([]string, 0, len(origins))
	for _, origin := range origins {
		normalized, err := NormalizeOrigin(origin)
		if err != nil {
			return nil, err
		}
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		result = append(result, normalized)
	}
	return result, nil
}

// NormalizeOrigin returns origin as "scheme://host[:port]".
func NormalizeOrigin(origin string) (string, error) {
	origin = strings.TrimSpace(origin)
	if origin == "" || origin == "*" {
		return origin, nil
	}
	u, err := url.Parse(strings.TrimRight(origin, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid origin %q: %w", origin, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid origin %q: scheme and host are required", origin)
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host), nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
