// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Redis    RedisConfig
	Images   ImageConfig
	Storage  StorageConfig
	Geocode  GeocodeConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Audit    AuditConfig
}

// AppConfig holds application-wide settings.
type AppConfig struct {
	// Environment is the deployment environment: development, staging, production (default: production)
	Environment string `env:"APP_ENV" envAlt:"NODE_ENV" default:"production"`
}

// IsDevelopment reports whether the app runs in development mode.
// Development mode attaches stack traces to sanitized error logs.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 0 for websockets)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`

	// MaxFormSize caps form-encoded and multipart action payloads (default: 10MB)
	MaxFormSize int64 `env:"SERVER_MAX_FORM_SIZE" default:"10485760"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// AutoMigrate applies the embedded schema on startup (default: false)
	AutoMigrate bool `env:"DB_AUTO_MIGRATE" default:"false"`
}

// AuthConfig holds Supabase session verification settings.
type AuthConfig struct {
	// JWTSecret is the Supabase project JWT secret used to verify access tokens (required)
	JWTSecret string `env:"SUPABASE_JWT_SECRET" envAlt:"JWT_SECRET" required:"true"`

	// Audience is the expected "aud" claim (default: authenticated)
	Audience string `env:"SUPABASE_JWT_AUDIENCE" default:"authenticated"`

	// CookieName is the cookie carrying the access token when no Authorization header is sent
	CookieName string `env:"SUPABASE_AUTH_COOKIE" default:"sb-access-token"`
}

// RedisConfig holds cache settings. An empty Addr disables caching.
type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" default:"0"`
	TTL      time.Duration `env:"REDIS_REFERENCE_TTL" default:"1h"`
}

// Enabled reports whether a Redis address is configured.
func (c *RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// ImageConfig holds image rehosting settings.
type ImageConfig struct {
	// Backend selects the rehosting backend: postimages or mirror (default: postimages)
	Backend string `env:"IMAGE_BACKEND" default:"postimages"`

	// UploadURL is the postimages JSON upload endpoint
	UploadURL string `env:"IMAGE_UPLOAD_URL" default:"https://postimages.org/json/rr"`

	// ExtraHosts are additional already-hosted image hosts (comma-separated)
	ExtraHosts []string `env:"IMAGE_EXTRA_HOSTS"`

	// Timeout bounds a single rehost call (default: 20s)
	Timeout time.Duration `env:"IMAGE_TIMEOUT" default:"20s"`

	// MaxConcurrent is the maximum number of parallel rehost calls (default: 4)
	MaxConcurrent int `env:"IMAGE_MAX_CONCURRENT" default:"4"`

	// MaxWait is how long to wait for a rehost slot (default: 10s)
	MaxWait time.Duration `env:"IMAGE_MAX_WAIT" default:"10s"`

	// MaxBytes caps downloaded images for the mirror backend (default: 5MB)
	MaxBytes int64 `env:"IMAGE_MAX_BYTES" default:"5242880"`

	// AllowedNetworks exempts CIDRs from the mirror's public-address check (comma-separated)
	AllowedNetworks []string `env:"IMAGE_ALLOWED_NETWORKS"`
}

// StorageConfig holds S3-compatible storage settings for the mirror image backend.
type StorageConfig struct {
	Endpoint   string `env:"STORAGE_ENDPOINT" default:"localhost:9000"`
	AccessKey  string `env:"STORAGE_ACCESS_KEY"`
	SecretKey  string `env:"STORAGE_SECRET_KEY"`
	UseSSL     bool   `env:"STORAGE_USE_SSL" default:"false"`
	Bucket     string `env:"STORAGE_BUCKET" default:"d21-images"`
	PublicBase string `env:"STORAGE_PUBLIC_BASE" default:"http://localhost:9000"`
}

// GeocodeConfig holds geocoding settings.
type GeocodeConfig struct {
	BaseURL   string        `env:"GEOCODE_BASE_URL" default:"https://nominatim.openstreetmap.org"`
	UserAgent string        `env:"GEOCODE_USER_AGENT" default:"d21-directory/1.0"`
	Timeout   time.Duration `env:"GEOCODE_TIMEOUT" default:"10s"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// SubmissionLimit is requests per minute for public submission endpoints (default: 10)
	SubmissionLimit int `env:"RATE_LIMIT_SUBMISSIONS" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// AllowedOrigins are origins accepted for websocket upgrades (comma-separated)
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" default:"http://localhost:3000"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// AuditConfig holds audit log retention settings.
type AuditConfig struct {
	// RetentionDays is days to keep audit entries (default: 180)
	RetentionDays int `env:"AUDIT_RETENTION_DAYS" default:"180"`

	// PurgeInterval is how often to run the purge job (default: 24h)
	PurgeInterval time.Duration `env:"AUDIT_PURGE_INTERVAL" default:"24h"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
