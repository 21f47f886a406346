package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Logging   LoggingConfig
	CORS      CORSConfig
	Auth      AuthConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
	Analyzer  AnalyzerConfig
	FPL       FPLConfig
	Static    StaticConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxBodyBytes int64
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

// CORSConfig holds CORS configuration. The default is an empty allowlist
// (same-origin only); cross-origin frontends must opt in explicitly via
// CORS_ALLOWED_ORIGINS.
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// AuthConfig holds the shared-secret configuration. At least one of
// Password or PasswordBcrypt must be set; PasswordBcrypt wins when both
// are present.
type AuthConfig struct {
	Password       string
	PasswordBcrypt string
}

// SessionConfig holds session token configuration
type SessionConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

// PolicyConfig holds one rate-limit policy's knobs
type PolicyConfig struct {
	MaxAttempts int
	Window      time.Duration
}

// RateLimitConfig holds the three per-IP rate-limit policies
type RateLimitConfig struct {
	Auth          PolicyConfig
	Analyze       PolicyConfig
	Global        PolicyConfig
	SweepInterval time.Duration
}

// AnalyzerConfig holds the external AI service configuration
type AnalyzerConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// FPLConfig holds the poverty guideline configuration
type FPLConfig struct {
	ScheduleFile string
}

// StaticConfig holds frontend asset serving configuration
type StaticConfig struct {
	Dir string
}

// Load loads configuration from environment variables. It fails when the
// shared-secret password is absent so a misconfigured deployment never
// starts accepting requests.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 90*time.Second),
			MaxBodyBytes: int64(getEnvInt("SERVER_MAX_BODY_BYTES", 100<<20)),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			Output: getEnv("LOG_OUTPUT", "stdout"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", nil),
			AllowedMethods: getEnvSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
			AllowedHeaders: getEnvSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		Auth: AuthConfig{
			Password:       os.Getenv("ACCESS_PASSWORD"),
			PasswordBcrypt: os.Getenv("ACCESS_PASSWORD_BCRYPT"),
		},
		Session: SessionConfig{
			TTL:           getEnvDuration("SESSION_TTL", 24*time.Hour),
			SweepInterval: getEnvDuration("SESSION_SWEEP_INTERVAL", time.Hour),
		},
		RateLimit: RateLimitConfig{
			Auth: PolicyConfig{
				MaxAttempts: getEnvInt("RATE_LIMIT_AUTH_ATTEMPTS", 5),
				Window:      getEnvDuration("RATE_LIMIT_AUTH_WINDOW", 15*time.Minute),
			},
			Analyze: PolicyConfig{
				MaxAttempts: getEnvInt("RATE_LIMIT_ANALYZE_ATTEMPTS", 10),
				Window:      getEnvDuration("RATE_LIMIT_ANALYZE_WINDOW", time.Hour),
			},
			Global: PolicyConfig{
				MaxAttempts: getEnvInt("RATE_LIMIT_GLOBAL_ATTEMPTS", 100),
				Window:      getEnvDuration("RATE_LIMIT_GLOBAL_WINDOW", time.Minute),
			},
			SweepInterval: getEnvDuration("RATE_LIMIT_SWEEP_INTERVAL", 5*time.Minute),
		},
		Analyzer: AnalyzerConfig{
			APIKey:  os.Getenv("GEMINI_API_KEY"),
			BaseURL: getEnv("GEMINI_BASE_URL", ""),
			Model:   getEnv("GEMINI_MODEL", ""),
			Timeout: getEnvDuration("ANALYZER_TIMEOUT", 60*time.Second),
		},
		FPL: FPLConfig{
			ScheduleFile: os.Getenv("FPL_SCHEDULE_FILE"),
		},
		Static: StaticConfig{
			Dir: getEnv("STATIC_DIR", "web/dist"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.Password == "" && c.Auth.PasswordBcrypt == "" {
		return fmt.Errorf("ACCESS_PASSWORD (or ACCESS_PASSWORD_BCRYPT) environment variable is required")
	}
	if c.RateLimit.Auth.MaxAttempts <= 0 || c.RateLimit.Analyze.MaxAttempts <= 0 || c.RateLimit.Global.MaxAttempts <= 0 {
		return fmt.Errorf("rate limit attempt counts must be positive")
	}
	if c.RateLimit.Auth.Window <= 0 || c.RateLimit.Analyze.Window <= 0 || c.RateLimit.Global.Window <= 0 {
		return fmt.Errorf("rate limit windows must be positive")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}
	return nil
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := []string{}
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) == 0 {
		return defaultValue
	}
	return parts
}
