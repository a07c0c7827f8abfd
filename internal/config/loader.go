package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/labelbook/internal/locale"
)

// Load reads configuration from the process environment, applies defaults
// and validates the result.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom reads configuration through getenv.
func LoadFrom(getenv func(string) string) (*Config, error) {
	cfg := &Config{}
	if err := fill(reflect.ValueOf(cfg).Elem(), getenv); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// fill populates tagged fields of v, recursing into section structs.
func fill(v reflect.Value, getenv func(string) string) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fv := v.Field(i)
		if !fv.CanSet() {
			continue
		}
		if field.Type.Kind() == reflect.Struct {
			if err := fill(fv, getenv); err != nil {
				return err
			}
			continue
		}

		name := field.Tag.Get("env")
		if name == "" {
			continue
		}
		value := getenv(name)
		if value == "" {
			if alt := field.Tag.Get("envAlt"); alt != "" {
				value = getenv(alt)
			}
		}
		if value == "" {
			if field.Tag.Get("required") == "true" {
				return fmt.Errorf("required environment variable %s is not set", name)
			}
			value = field.Tag.Get("default")
		}
		if value == "" {
			continue
		}
		if err := set(fv, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", name, value, err)
		}
	}
	return nil
}

func set(fv reflect.Value, value string) error {
	switch {
	case fv.Type() == durationType:
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		fv.SetInt(int64(d))
	case fv.Kind() == reflect.String:
		fv.SetString(value)
	case fv.Kind() == reflect.Int, fv.Kind() == reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		fv.SetInt(n)
	case fv.Kind() == reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		fv.SetBool(b)
	case fv.Kind() == reflect.Slice && fv.Type().Elem().Kind() == reflect.String:
		fv.Set(reflect.ValueOf(splitList(value)))
	default:
		return fmt.Errorf("unsupported field type: %s", fv.Type())
	}
	return nil
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ExportLanguageCodes resolves Export.Languages to LCIDs.
func (c *Config) ExportLanguageCodes() ([]int, error) {
	codes := make([]int, 0, len(c.Export.Languages))
	for _, s := range c.Export.Languages {
		code, ok := locale.Parse(s)
		if !ok {
			return nil, fmt.Errorf("unknown language %q", s)
		}
		codes = append(codes, code)
	}
	return codes, nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		add("SERVER_PORT (%d) must be 1-65535", c.Server.Port)
	}
	if c.Server.ReadTimeout < 0 {
		add("SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		add("SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Repository
	if c.Repository.FetchConcurrency <= 0 {
		add("REPOSITORY_FETCH_CONCURRENCY must be positive")
	}
	if c.Repository.CacheSize <= 0 {
		add("REPOSITORY_CACHE_SIZE must be positive")
	}
	if c.Repository.SettleAttempts < 0 {
		add("REPOSITORY_SETTLE_ATTEMPTS must be non-negative")
	}

	// Export
	if _, err := c.ExportLanguageCodes(); err != nil {
		add("EXPORT_LANGUAGES: %v", err)
	}
	switch strings.ToLower(c.Export.Filter) {
	case "", "both", "names", "descriptions":
	default:
		add("EXPORT_FILTER (%q) must be one of: both, names, descriptions", c.Export.Filter)
	}

	// Import and runs
	if c.Import.MaxFileSize <= 0 {
		add("IMPORT_MAX_FILE_SIZE must be positive")
	}
	if c.Run.MaxConcurrent <= 0 {
		add("RUN_MAX_CONCURRENT must be positive")
	}
	if c.Run.MaxWaitTime <= 0 {
		add("RUN_MAX_WAIT_TIME must be positive")
	}
	if c.Run.Timeout <= 0 {
		add("RUN_TIMEOUT must be positive")
	}

	// History
	if c.History.Enabled() {
		if c.History.MaxConns <= 0 {
			add("DB_MAX_CONNS must be positive")
		}
		if c.History.MaxConns < c.History.MinConns {
			add("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", c.History.MaxConns, c.History.MinConns)
		}
	}
	if c.History.RetentionDays <= 0 {
		add("HISTORY_RETENTION_DAYS must be positive")
	}
	if c.History.CheckInterval <= 0 {
		add("HISTORY_CHECK_INTERVAL must be positive")
	}

	// Storage
	switch strings.ToLower(c.Storage.Backend) {
	case "", "none":
	case "disk":
		if strings.TrimSpace(c.Storage.Dir) == "" {
			add("STORAGE_DIR is required for the disk backend")
		}
	case "s3":
		if c.Storage.Endpoint == "" {
			add("S3_ENDPOINT is required for the s3 backend")
		}
		if c.Storage.Bucket == "" {
			add("S3_BUCKET is required for the s3 backend")
		}
	default:
		add("STORAGE_BACKEND (%q) must be one of: none, disk, s3", c.Storage.Backend)
	}

	// Rate limits and security
	if c.Rate.Enabled && (c.Rate.RequestsPerMinute <= 0 || c.Rate.RunLimit <= 0) {
		add("RATE_LIMIT_REQUESTS_PER_MINUTE and RATE_LIMIT_RUNS must be positive when rate limiting is enabled")
	}
	if c.Security.RequireAPIKey && len(c.Security.APIKeys) == 0 {
		add("REQUIRE_API_KEY is true but API_KEYS is empty; configure at least one API key or disable auth")
	}

	// Logging
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		add("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		add("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format)
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// String returns a representation safe for logging. Credentials are masked.
func (c *Config) String() string {
	history := "memory"
	if c.History.Enabled() {
		history = "[MASKED]"
	}
	secret := ""
	if c.Storage.SecretKey != "" {
		secret = "[MASKED]"
	}
	return fmt.Sprintf("Config{Server: {Addr: %q}, Repository: {Snapshot: %q, FetchConcurrency: %d}, "+
		"Import: {MaxFileSize: %d, SkipUnchanged: %v}, Run: {MaxConcurrent: %d, Timeout: %s}, "+
		"History: {URL: %s, RetentionDays: %d}, Storage: {Backend: %q, Bucket: %q, SecretKey: %q}, "+
		"Security: {APIKeys: %d}, Logging: {Level: %q, Format: %q}}",
		c.Server.Addr(), c.Repository.SnapshotPath, c.Repository.FetchConcurrency,
		c.Import.MaxFileSize, c.Import.SkipUnchanged, c.Run.MaxConcurrent, c.Run.Timeout,
		history, c.History.RetentionDays, c.Storage.Backend, c.Storage.Bucket, secret,
		len(c.Security.APIKeys), c.Logging.Level, c.Logging.Format)
}
