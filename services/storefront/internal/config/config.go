package config

import (
	"fmt"
	"net/netip"
	"net/url"
	"strings"
	"time"

	pkgconfig "github.com/utafrali/storefront/pkg/config"
)

const defaultJWTSecret = "change-this-to-a-secure-secret"

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"STOREFRONT_HTTP_PORT" envDefault:"8012"`

	// Redis
	RedisHost string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`
	RedisPool int    `env:"REDIS_POOL_SIZE" envDefault:"20"`

	// Slow command logging threshold; 0 disables.
	RedisSlowThreshold time.Duration `env:"REDIS_SLOW_THRESHOLD" envDefault:"100ms"`

	// Sessions
	SessionTTL         time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	SessionIdleTimeout time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"30m"`
	ToastQueueSize     int           `env:"TOAST_QUEUE_SIZE" envDefault:"32"`

	// Kafka. Notification events are skipped when no brokers are set.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`

	// Upstream APIs
	CartAPIURL      string        `env:"CART_API_URL" envDefault:"http://localhost:8003"`
	CatalogAPIURL   string        `env:"CATALOG_API_URL" envDefault:"http://localhost:8001"`
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"5s"`
	UpstreamRetries int           `env:"UPSTREAM_MAX_RETRIES" envDefault:"2"`

	// JWT
	JWTSecret string `env:"JWT_SECRET" envDefault:"change-this-to-a-secure-secret"`

	// Rate limiting, bucketed per client address. Forwarding headers are
	// read only from peers inside TRUSTED_PROXY_CIDRS.
	RateLimitRPS      float64  `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst    int      `env:"RATE_LIMIT_BURST" envDefault:"40"`
	TrustedProxyCIDRs []string `env:"TRUSTED_PROXY_CIDRS" envSeparator:","`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Tracing
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// pprof
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.1/32,::1/128" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %v", c.OTELSampleRate)
	}
	for name, raw := range map[string]string{"CART_API_URL": c.CartAPIURL, "CATALOG_API_URL": c.CatalogAPIURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", name, raw)
		}
	}
	if c.SessionIdleTimeout <= 0 {
		return fmt.Errorf("SESSION_IDLE_TIMEOUT must be positive, got %s", c.SessionIdleTimeout)
	}
	if c.SessionTTL < c.SessionIdleTimeout {
		return fmt.Errorf("SESSION_TTL (%s) must not be shorter than SESSION_IDLE_TIMEOUT (%s)", c.SessionTTL, c.SessionIdleTimeout)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		return fmt.Errorf("invalid rate limit: %v rps, burst %d", c.RateLimitRPS, c.RateLimitBurst)
	}
	for _, cidr := range c.TrustedProxyCIDRs {
		if _, err := netip.ParsePrefix(strings.TrimSpace(cidr)); err != nil {
			return fmt.Errorf("TRUSTED_PROXY_CIDRS: invalid CIDR %q", cidr)
		}
	}

	// In non-development environments, require an explicitly set, strong JWT secret.
	if c.Environment != "development" {
		if c.JWTSecret == defaultJWTSecret {
			return fmt.Errorf("JWT_SECRET must be explicitly set via environment variable in %q mode", c.Environment)
		}
		if len(c.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters long, got %d", len(c.JWTSecret))
		}
	}
	return nil
}
