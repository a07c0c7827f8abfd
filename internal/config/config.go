// Package config loads labelbook settings from environment variables with
// defaults, and validates them on startup so misconfiguration fails fast.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server     ServerConfig
	Repository RepositoryConfig
	Export     ExportConfig
	Import     ImportConfig
	Run        RunConfig
	History    HistoryConfig
	Storage    StorageConfig
	Rate       RateLimitConfig
	Security   SecurityConfig
	Logging    LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is the maximum duration for writing response (default: 0 for SSE)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown, including running imports (default: 60s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"60s"`

	// RequestTimeout is the middleware timeout for short requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// RepositoryConfig selects and tunes the metadata repository.
type RepositoryConfig struct {
	// SnapshotPath is a JSON repository snapshot; empty serves the built-in sample
	SnapshotPath string `env:"REPOSITORY_SNAPSHOT" envAlt:"LABELBOOK_SNAPSHOT"`

	// SaveOnShutdown writes imported changes back to SnapshotPath (default: true)
	SaveOnShutdown bool `env:"REPOSITORY_SAVE_ON_SHUTDOWN" default:"true"`

	// SettleDelay is the pause after switching the user language (default: 0s)
	SettleDelay time.Duration `env:"REPOSITORY_SETTLE_DELAY" default:"0s"`

	// SettleAttempts is how often a language switch is verified (default: 3)
	SettleAttempts int `env:"REPOSITORY_SETTLE_ATTEMPTS" default:"3"`

	// FetchConcurrency is the number of tables fetched in parallel (default: 4)
	FetchConcurrency int `env:"REPOSITORY_FETCH_CONCURRENCY" default:"4"`

	// CacheSize is the number of cached metadata reads (default: 512)
	CacheSize int `env:"REPOSITORY_CACHE_SIZE" default:"512"`
}

// ExportConfig holds export defaults applied when a request leaves them empty.
type ExportConfig struct {
	// Languages are LCIDs or tags, e.g. "1033,fr-FR"; empty exports all
	Languages []string `env:"EXPORT_LANGUAGES"`

	// Filter is both, names or descriptions (default: both)
	Filter string `env:"EXPORT_FILTER" default:"both"`
}

// ImportConfig holds import settings.
type ImportConfig struct {
	// MaxFileSize is the maximum workbook size in bytes (default: 50MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"52428800"`

	// SkipUnchanged drops translations equal to the live value (default: true)
	SkipUnchanged bool `env:"IMPORT_SKIP_UNCHANGED" default:"true"`

	// ResultRetention is how long finished runs stay queryable (default: 5m)
	ResultRetention time.Duration `env:"IMPORT_RESULT_RETENTION" default:"5m"`
}

// RunConfig bounds export and import runs.
type RunConfig struct {
	// MaxConcurrent is the number of simultaneous runs (default: 1)
	MaxConcurrent int `env:"RUN_MAX_CONCURRENT" default:"1"`

	// MaxWaitTime is how long to wait for a run slot (default: 30s)
	MaxWaitTime time.Duration `env:"RUN_MAX_WAIT_TIME" default:"30s"`

	// Timeout is the maximum duration of a single run (default: 30m)
	Timeout time.Duration `env:"RUN_TIMEOUT" default:"30m"`
}

// HistoryConfig holds run history settings.
type HistoryConfig struct {
	// DatabaseURL is the PostgreSQL connection string; empty keeps history in memory
	DatabaseURL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// RetentionDays is how long run records are kept (default: 90)
	RetentionDays int `env:"HISTORY_RETENTION_DAYS" default:"90"`

	// CheckInterval is how often old runs are purged (default: 24h)
	CheckInterval time.Duration `env:"HISTORY_CHECK_INTERVAL" default:"24h"`
}

// Enabled reports whether history is persisted to PostgreSQL.
func (h *HistoryConfig) Enabled() bool {
	return h.DatabaseURL != ""
}

// Retention returns RetentionDays as a duration.
func (h *HistoryConfig) Retention() time.Duration {
	return time.Duration(h.RetentionDays) * 24 * time.Hour
}

// StorageConfig selects where exported and imported workbooks are archived.
type StorageConfig struct {
	// Backend is none, disk or s3 (default: none)
	Backend string `env:"STORAGE_BACKEND" default:"none"`

	// Dir is the archive directory for the disk backend (default: ./archive)
	Dir string `env:"STORAGE_DIR" default:"./archive"`

	// Endpoint is the S3-compatible endpoint, host[:port]
	Endpoint string `env:"S3_ENDPOINT"`

	// Bucket is the archive bucket (default: labelbook)
	Bucket string `env:"S3_BUCKET" default:"labelbook"`

	// AccessKey and SecretKey authenticate against the endpoint
	AccessKey string `env:"S3_ACCESS_KEY" envAlt:"AWS_ACCESS_KEY_ID"`
	SecretKey string `env:"S3_SECRET_KEY" envAlt:"AWS_SECRET_ACCESS_KEY"`

	// Region is the bucket region (default: us-east-1)
	Region string `env:"S3_REGION" default:"us-east-1"`

	// UseSSL connects over TLS (default: true)
	UseSSL bool `env:"S3_USE_SSL" default:"true"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// RunLimit is requests per minute for export, import and preview (default: 10)
	RunLimit int `env:"RATE_LIMIT_RUNS" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// APIKeys is a comma-separated list of accepted X-API-Key values
	APIKeys []string `env:"API_KEYS"`

	// RequireAPIKey rejects /api requests without a valid key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`
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
	return c.Host + ":" + strconv.Itoa(c.Port)
}
