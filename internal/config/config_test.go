package config

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no stray .env
	for _, k := range []string{"PORT", "APP_ENV", "LOG_LEVEL", "SESSION_TTL", "CORS_ORIGINS", "JWT_SECRET", "GOOGLE_REDIRECT_URI"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 7*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	assert.Equal(t, "http://localhost:8080/auth/google/callback", cfg.GoogleRedirectURI)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9000")
	t.Setenv("APP_ENV", "Production")
	t.Setenv("SESSION_TTL", "24h")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("FRONTEND_URL", "https://cocktail.example/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "https://cocktail.example", cfg.FrontendURL)
}

func TestLoad_CollectsAllErrors(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "eighty")
	t.Setenv("SESSION_TTL", "a week")
	t.Setenv("LOG_LEVEL", "loud")

	_, err := Load()
	require.Error(t, err)
	assert.ErrorContains(t, err, "PORT")
	assert.ErrorContains(t, err, "SESSION_TTL")
	assert.ErrorContains(t, err, "LOG_LEVEL")
}

func TestValidate_JWTSecret(t *testing.T) {
	dev := Config{Env: EnvDevelopment, Port: 8080}
	require.NoError(t, dev.Validate(quiet))
	assert.Equal(t, devJWTSecret, dev.JWTSecret)

	prod := Config{Env: EnvProduction, Port: 8080}
	assert.Error(t, prod.Validate(quiet))

	prod.JWTSecret = "a-production-secret-of-decent-length"
	assert.NoError(t, prod.Validate(quiet))
}
