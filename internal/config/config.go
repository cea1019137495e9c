// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, database paths, rate limiting, the AI
// content check endpoint, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "content-trust")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// AICheckConfig defines the AI content check collaborator settings.
type AICheckConfig struct {
	BaseURL    string        // AI_CHECK_URL (e.g. "http://companion:9000")
	Timeout    time.Duration // AI_CHECK_TIMEOUT per attempt
	MaxRetries int           // AI_CHECK_MAX_RETRIES on transient errors
	RPS        float64       // AI_CHECK_RPS outbound token-bucket rate
	Burst      int           // AI_CHECK_BURST outbound token-bucket size
}

// RateTier defines one admission-control tier (fixed window).
type RateTier struct {
	Limit  int64         // requests per window
	Window time.Duration // window length
}

// RateLimitConfig defines the read and create tiers plus the optional
// shared Redis counter store. An empty RedisAddr selects the in-process
// store.
type RateLimitConfig struct {
	Read      RateTier
	Create    RateTier
	RedisAddr string // RATE_REDIS_ADDR (e.g. "redis:6379")
}

// ContentConfig caps user-submitted text lengths (in runes).
type ContentConfig struct {
	MaxTitleRunes       int
	MaxBodyRunes        int
	MaxReportDescRunes  int
	ExtraScreenTerms    []string // MODERATION_EXTRA_TERMS, comma separated
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging
	LogLevel    string // debug|info|warn|error|fatal|panic
	LogPretty   bool   // pretty console logs in dev
	APIBasePath string // base path for API routes

	// App
	DBPath  string // SQLite path
	AICheck AICheckConfig
	Rate    RateLimitConfig
	Content ContentConfig

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:    strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:   getbool("LOG_PRETTY", false),
		APIBasePath: normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// App
		DBPath: getenv("DB_PATH", "app.db"),
		AICheck: AICheckConfig{
			BaseURL:    getenv("AI_CHECK_URL", "http://localhost:9000"),
			Timeout:    getdur("AI_CHECK_TIMEOUT", 5*time.Second),
			MaxRetries: getint("AI_CHECK_MAX_RETRIES", 2),
			RPS:        getfloat("AI_CHECK_RPS", 10.0),
			Burst:      getint("AI_CHECK_BURST", 20),
		},
		Rate: RateLimitConfig{
			Read: RateTier{
				Limit:  int64(getint("RATE_READ_LIMIT", 60)),
				Window: getdur("RATE_READ_WINDOW", time.Minute),
			},
			Create: RateTier{
				Limit:  int64(getint("RATE_CREATE_LIMIT", 10)),
				Window: getdur("RATE_CREATE_WINDOW", time.Minute),
			},
			RedisAddr: getenv("RATE_REDIS_ADDR", ""),
		},
		Content: ContentConfig{
			MaxTitleRunes:      getint("MAX_TITLE_RUNES", 200),
			MaxBodyRunes:       getint("MAX_BODY_RUNES", 20000),
			MaxReportDescRunes: getint("MAX_REPORT_DESC_RUNES", 2000),
			ExtraScreenTerms:   splitCSV(getenv("MODERATION_EXTRA_TERMS", "")),
		},

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "content-trust"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if strings.TrimSpace(cfg.AICheck.BaseURL) == "" {
		return cfg, errors.New("AI_CHECK_URL must not be empty")
	}
	if cfg.AICheck.Timeout <= 0 {
		return cfg, errors.New("AI_CHECK_TIMEOUT must be > 0")
	}
	if cfg.AICheck.MaxRetries < 0 {
		return cfg, errors.New("AI_CHECK_MAX_RETRIES must be >= 0")
	}
	if cfg.AICheck.RPS <= 0 {
		return cfg, errors.New("AI_CHECK_RPS must be > 0")
	}
	if cfg.AICheck.Burst < 1 {
		return cfg, errors.New("AI_CHECK_BURST must be >= 1")
	}
	if cfg.Rate.Read.Limit < 1 || cfg.Rate.Create.Limit < 1 {
		return cfg, errors.New("rate tier limits must be >= 1")
	}
	if cfg.Rate.Read.Window <= 0 || cfg.Rate.Create.Window <= 0 {
		return cfg, errors.New("rate tier windows must be positive durations")
	}
	if cfg.Content.MaxTitleRunes < 1 || cfg.Content.MaxBodyRunes < 1 || cfg.Content.MaxReportDescRunes < 1 {
		return cfg, errors.New("content length caps must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
