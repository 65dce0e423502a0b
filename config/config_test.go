package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"SESSION_STORE", "MARCHE241_API_URL", "MARCHE241_API_TIMEOUT", "ALLOWED_ORIGINS", "CART_CLIENT_IDLE"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Session.Store)
	assert.Equal(t, "m241_visitor", cfg.Session.VisitorCookie)
	assert.Equal(t, "http://localhost:3000/api", cfg.API.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.API.Timeout)
	assert.Equal(t, 30*time.Minute, cfg.Scheduler.CartIdle)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("SESSION_STORE", "redis")
	t.Setenv("MARCHE241_API_URL", "https://api.marche241.ga/api/")
	t.Setenv("MARCHE241_API_TIMEOUT", "3s")
	t.Setenv("AUTH_RESEND_COOLDOWN", "not-a-duration")
	t.Setenv("ALLOWED_ORIGINS", "https://marche241.ga, ,https://admin.marche241.ga")
	t.Setenv("SESSION_COOKIE_SECURE", "true")
	t.Setenv("REDIS_DB", "2")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.Session.Store)
	assert.Equal(t, "https://api.marche241.ga/api", cfg.API.BaseURL, "trailing slash trimmed")
	assert.Equal(t, 3*time.Second, cfg.API.Timeout)
	assert.Equal(t, time.Minute, cfg.Auth.ResendCooldown, "invalid duration falls back")
	assert.Equal(t, []string{"https://marche241.ga", "https://admin.marche241.ga"}, cfg.CORS.AllowedOrigins)
	assert.True(t, cfg.Session.CookieSecure)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
}

func TestLoad_RejectsUnknownStore(t *testing.T) {
	t.Setenv("SESSION_STORE", "localstorage")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_STORE")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "gw", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=gw sslmode=disable", cfg.DSN())
}
