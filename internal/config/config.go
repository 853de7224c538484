// Package config reads the server configuration from the environment.
//
// A .env file in the working directory is loaded first when present; real
// environment variables always win over it.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// devJWTSecret is only used outside production when JWT_SECRET is unset.
const devJWTSecret = "dev-only-secret-change-me-please"

// Config holds application configuration.
type Config struct {
	Port     int
	Env      string
	LogLevel slog.Level

	DBPath    string
	StaticDir string

	JWTSecret  string
	SessionTTL time.Duration

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string

	// FrontendURL is prefixed to post-login redirect paths.
	FrontendURL string
	CORSOrigins []string

	GeminiAPIKey string
	GeminiModel  string

	RequestTimeout        time.Duration
	UpstreamTimeout       time.Duration
	LikeReconcileInterval time.Duration
	RateLimitPerMinute    int
}

// Load loads configuration from the environment and an optional .env file.
// Malformed values are reported together rather than one at a time.
func Load() (Config, error) {
	_ = godotenv.Load()

	var errs []error
	env := strings.ToLower(getenv("APP_ENV", EnvDevelopment))

	cfg := Config{
		Port:               getenvInt("PORT", 8080, &errs),
		Env:                env,
		LogLevel:           getenvLevel("LOG_LEVEL", defaultLevel(env), &errs),
		DBPath:             getenv("DB_PATH", "data/cocktails.db"),
		StaticDir:          getenv("STATIC_DIR", "web/static"),
		JWTSecret:          strings.TrimSpace(getenv("JWT_SECRET", "")),
		SessionTTL:         getenvDuration("SESSION_TTL", 7*24*time.Hour, &errs),
		GoogleClientID:     strings.TrimSpace(getenv("GOOGLE_CLIENT_ID", "")),
		GoogleClientSecret: strings.TrimSpace(getenv("GOOGLE_CLIENT_SECRET", "")),
		GoogleRedirectURI:  getenv("GOOGLE_REDIRECT_URI", ""),
		FrontendURL:        strings.TrimRight(getenv("FRONTEND_URL", ""), "/"),
		CORSOrigins:        splitList(getenv("CORS_ORIGINS", "http://localhost:3000")),
		GeminiAPIKey:       strings.TrimSpace(getenv("GEMINI_API_KEY", "")),
		GeminiModel:        getenv("GEMINI_MODEL", "gemini-1.5-flash"),
		RequestTimeout:     getenvDuration("REQUEST_TIMEOUT", 30*time.Second, &errs),
		UpstreamTimeout:    getenvDuration("UPSTREAM_TIMEOUT", 20*time.Second, &errs),

		LikeReconcileInterval: getenvDuration("LIKE_RECONCILE_INTERVAL", time.Hour, &errs),
		RateLimitPerMinute:    getenvInt("RATE_LIMIT_RPM", 120, &errs),
	}

	if cfg.GoogleRedirectURI == "" {
		cfg.GoogleRedirectURI = fmt.Sprintf("http://localhost:%d/auth/google/callback", cfg.Port)
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// IsProduction selects the production cookie attributes and stricter checks.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Validate checks settings that cannot be defaulted. Outside production a
// missing JWT secret is replaced by a fixed development secret and a warning
// is logged; in production it is an error.
func (c *Config) Validate(logger *slog.Logger) error {
	if len(c.JWTSecret) < 16 {
		if c.IsProduction() {
			return errors.New("config: JWT_SECRET must be set to at least 16 characters in production")
		}
		logger.Warn("JWT_SECRET missing or too short, using the development secret")
		c.JWTSecret = devJWTSecret
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: PORT %d out of range", c.Port)
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("config: RATE_LIMIT_RPM must not be negative")
	}
	if c.GoogleClientID == "" || c.GoogleClientSecret == "" {
		logger.Warn("Google OAuth credentials not set, /auth/google is disabled")
	}
	if c.GeminiAPIKey == "" {
		logger.Warn("GEMINI_API_KEY not set, recipe generation is disabled")
	}
	return nil
}

func defaultLevel(env string) string {
	if env == EnvProduction {
		return "info"
	}
	return "debug"
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int, errs *[]error) int {
	raw := getenv(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("config: %s=%q is not an integer", key, raw))
		return def
	}
	return v
}

func getenvDuration(key string, def time.Duration, errs *[]error) time.Duration {
	raw := getenv(key, "")
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("config: %s=%q is not a duration", key, raw))
		return def
	}
	return v
}

func getenvLevel(key, def string, errs *[]error) slog.Level {
	var lvl slog.Level
	raw := getenv(key, def)
	if err := lvl.UnmarshalText([]byte(raw)); err != nil {
		*errs = append(*errs, fmt.Errorf("config: %s=%q is not a log level", key, raw))
		return slog.LevelInfo
	}
	return lvl
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
