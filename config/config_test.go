package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RATE_LIMIT_BACKEND", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, cfg.Invites.TTL)
	assert.Equal(t, 10, cfg.Invites.RateLimit)
	assert.Equal(t, time.Minute, cfg.Invites.RateWindow)
	assert.Equal(t, "memory", cfg.Invites.RateLimitBackend)
	assert.Equal(t, 30*time.Minute, cfg.PasswordReset.TTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("INVITE_TTL", "48h")
	t.Setenv("RATE_LIMIT_BACKEND", "Redis")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("APP_BASE_URL", "https://app.example.com/")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 48*time.Hour, cfg.Invites.TTL)
	assert.Equal(t, "redis", cfg.Invites.RateLimitBackend)
	assert.True(t, cfg.Server.CookieSecure)
	assert.Equal(t, "https://app.example.com", cfg.Server.AppBaseURL)
}

func TestLoadRejectsUnknownLimiterBackend(t *testing.T) {
	t.Setenv("RATE_LIMIT_BACKEND", "memcached")
	_, err := Load()
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "lumen", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/lumen?sslmode=disable", c.DSN())
	c.URL = "postgres://x"
	assert.Equal(t, "postgres://x", c.DSN())
}
