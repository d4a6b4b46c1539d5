package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	HTTPPort string

	DatabaseURL       string
	StoreRetryCount   int
	StoreRetryBackoff time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisEnabled  bool

	// Verification tokens expire this long after account creation.
	VerificationTokenTTL time.Duration

	IdentityBaseURL      string
	IdentityTokenURL     string
	IdentityClientID     string
	IdentityClientSecret string
	IdentityTimeout      time.Duration
	IdentityMinPasswordLen int

	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
	MailEnabled  bool

	JWTSecret    string
	JWTIssuer    string
	JWTAudience  string
	JWTAccessTTL time.Duration

	CORSAllowedOrigins []string
	AuthRateLimitPerMin int
	APIRateLimitPerMin  int

	AbuseProtectionEnabled bool
	AbuseFreeAttempts      int
	AbuseBaseDelay         time.Duration
	AbuseMultiplier        float64
	AbuseMaxDelay          time.Duration
	AbuseResetWindow       time.Duration
	AbuseRedisPrefix       string

	BootstrapAdminEmail string

	ReadinessProbeTimeout  time.Duration
	ServerStartGracePeriod time.Duration

	ShutdownTimeout              time.Duration
	ShutdownHTTPDrainTimeout     time.Duration
	ShutdownObservabilityTimeout time.Duration

	OTELServiceName           string
	OTELEnvironment           string
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELMetricsExportInterval time.Duration
	OTELTraceSamplingRatio    float64
	OTELMetricsEnabled        bool
	OTELTracingEnabled        bool
	OTELLogsEnabled           bool
	OTELLogLevel              string
}

// Load reads configuration from the environment. An optional .env file is
// merged in first without overriding variables already set by the caller.
func Load() (*Config, error) {
	if path := getEnv("ENV_FILE", ".env"); path != "" {
		_ = godotenv.Load(path)
	}
	env := getEnv("APP_ENV", "development")

	cfg := &Config{
		Env:      env,
		HTTPPort: getEnv("HTTP_PORT", "8080"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisEnabled:  getEnvBool("REDIS_ENABLED", true),

		IdentityBaseURL:        getEnv("IDENTITY_PROVIDER_BASE_URL", "http://localhost:9099"),
		IdentityTokenURL:       os.Getenv("IDENTITY_PROVIDER_TOKEN_URL"),
		IdentityClientID:       os.Getenv("IDENTITY_PROVIDER_CLIENT_ID"),
		IdentityClientSecret:   os.Getenv("IDENTITY_PROVIDER_CLIENT_SECRET"),
		IdentityMinPasswordLen: getEnvInt("IDENTITY_MIN_PASSWORD_LEN", 12),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     getEnv("SMTP_FROM", os.Getenv("SMTP_USER")),
		MailEnabled:  getEnvBool("MAIL_ENABLED", false),

		JWTSecret:   os.Getenv("JWT_SECRET"),
		JWTIssuer:   getEnv("JWT_ISSUER", "quick-delivey"),
		JWTAudience: getEnv("JWT_AUDIENCE", "quick-delivey-api"),

		CORSAllowedOrigins:  splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		AuthRateLimitPerMin: getEnvInt("AUTH_RATE_LIMIT_PER_MIN", 30),
		APIRateLimitPerMin:  getEnvInt("API_RATE_LIMIT_PER_MIN", 120),

		AbuseProtectionEnabled: getEnvBool("ABUSE_PROTECTION_ENABLED", true),
		AbuseFreeAttempts:      getEnvInt("ABUSE_FREE_ATTEMPTS", 3),
		AbuseMultiplier:        getEnvFloat("ABUSE_MULTIPLIER", 2.0),
		AbuseRedisPrefix:       getEnv("ABUSE_REDIS_PREFIX", "activation_abuse"),

		BootstrapAdminEmail: strings.TrimSpace(strings.ToLower(os.Getenv("BOOTSTRAP_ADMIN_EMAIL"))),

		StoreRetryCount: getEnvInt("STORE_RETRY_COUNT", 3),

		OTELServiceName:          getEnv("OTEL_SERVICE_NAME", "quick-delivey-activation"),
		OTELEnvironment:          getEnv("OTEL_ENVIRONMENT", env),
		OTELExporterOTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELExporterOTLPInsecure: getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELTraceSamplingRatio:   getEnvFloat("OTEL_TRACE_SAMPLING_RATIO", 1.0),
		OTELMetricsEnabled:       getEnvBool("OTEL_METRICS_ENABLED", true),
		OTELTracingEnabled:       getEnvBool("OTEL_TRACING_ENABLED", true),
		OTELLogsEnabled:          getEnvBool("OTEL_LOGS_ENABLED", true),
		OTELLogLevel:             strings.ToLower(getEnv("OTEL_LOG_LEVEL", "info")),
	}

	var err error
	if cfg.VerificationTokenTTL, err = parseDurationEnv("VERIFICATION_TOKEN_TTL", "24h"); err != nil {
		return nil, err
	}
	if cfg.JWTAccessTTL, err = parseDurationEnv("JWT_ACCESS_TTL", "15m"); err != nil {
		return nil, err
	}
	if cfg.IdentityTimeout, err = parseDurationEnv("IDENTITY_PROVIDER_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.StoreRetryBackoff, err = parseDurationEnv("STORE_RETRY_BACKOFF", "200ms"); err != nil {
		return nil, err
	}
	if cfg.AbuseBaseDelay, err = parseDurationEnv("ABUSE_BASE_DELAY", "2s"); err != nil {
		return nil, err
	}
	if cfg.AbuseMaxDelay, err = parseDurationEnv("ABUSE_MAX_DELAY", "5m"); err != nil {
		return nil, err
	}
	if cfg.AbuseResetWindow, err = parseDurationEnv("ABUSE_RESET_WINDOW", "30m"); err != nil {
		return nil, err
	}
	if cfg.ReadinessProbeTimeout, err = parseDurationEnv("READINESS_PROBE_TIMEOUT", "2s"); err != nil {
		return nil, err
	}
	if cfg.ServerStartGracePeriod, err = parseDurationEnv("SERVER_START_GRACE_PERIOD", "0s"); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = parseDurationEnv("SHUTDOWN_TIMEOUT", "20s"); err != nil {
		return nil, err
	}
	if cfg.ShutdownHTTPDrainTimeout, err = parseDurationEnv("SHUTDOWN_HTTP_DRAIN_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.ShutdownObservabilityTimeout, err = parseDurationEnv("SHUTDOWN_OBSERVABILITY_TIMEOUT", "8s"); err != nil {
		return nil, err
	}
	if cfg.OTELMetricsExportInterval, err = parseDurationEnv("OTEL_METRICS_EXPORT_INTERVAL", "10s"); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IdentityBaseURL == "" {
		errs = append(errs, errors.New("IDENTITY_PROVIDER_BASE_URL is required"))
	}
	if c.VerificationTokenTTL <= 0 {
		errs = append(errs, errors.New("VERIFICATION_TOKEN_TTL must be positive"))
	}
	if c.MailEnabled && c.SMTPHost == "" {
		errs = append(errs, errors.New("SMTP_HOST is required when MAIL_ENABLED=true"))
	}
	if c.StoreRetryCount < 0 {
		errs = append(errs, errors.New("STORE_RETRY_COUNT must not be negative"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "local" || c.Env == "test"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseDurationEnv(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
