package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_Defaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("DB_AUTO_MIGRATE", "true")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("CACHE_LIST_TTL", "1m")

	cfg := New()

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.Postgres.AutoMigrate)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, time.Minute, cfg.Cache.ListTTL)
	assert.Equal(t, 5*time.Minute, cfg.Presence.IdleTimeout)
	assert.Equal(t, 2*time.Second, cfg.Notifications.GroupWindow)
	assert.Equal(t, "@hourly", cfg.Jobs.OverdueSweepSpec)
}

func TestGetEnv_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("X_INT", "abc")
	t.Setenv("X_BOOL", "maybe")
	t.Setenv("X_DUR", "soon")

	assert.Equal(t, 7, getEnvInt("X_INT", 7))
	assert.False(t, getEnvBool("X_BOOL", false))
	assert.Equal(t, time.Second, getEnvDuration("X_DUR", time.Second))
	assert.Equal(t, "fallback", getEnv("X_MISSING_KEY", "fallback"))
}
