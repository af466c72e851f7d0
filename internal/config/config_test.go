package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_SQLiteSkipsMySQLCredentials(t *testing.T) {
	t.Setenv("APP_PORT", "8080")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ACCESS_TOKEN_TTL_MIN", "15")
	t.Setenv("REFRESH_TOKEN_TTL_DAYS", "7")
	t.Setenv("BCRYPT_COST", "4")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/x.db")
	t.Setenv("ADMIN_EMAIL", "  Admin@Example.com ")

	cfg := Load()

	require.Equal(t, DriverSQLite, cfg.DBDriver)
	require.Equal(t, "/tmp/x.db", cfg.SQLitePath)
	require.Equal(t, "admin@example.com", cfg.AdminEmail)
	require.Equal(t, "secret", cfg.ExportKey, "export key falls back to the JWT secret")
	require.Equal(t, "dev", cfg.Env)
	require.True(t, cfg.AutoMigrate)
}

func TestLoadRateLimitConfig_Normalizes(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()

	require.Equal(t, 1, cfg.Capacity)
	require.Equal(t, 2*time.Second, cfg.RefillInterval)
	require.Equal(t, 10*time.Second, cfg.TTL, "ttl is raised to five refill intervals")
}

func TestLoadSubmitRateLimitConfig_UsesIPKey(t *testing.T) {
	cfg := LoadSubmitRateLimitConfig()

	require.Equal(t, "ip", cfg.KeyStrategy)
	require.Equal(t, 5, cfg.Capacity)
	require.Equal(t, "rl:submit", cfg.Prefix)
}

func TestLoadCacheConfig_ParsesMethods(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head ,")
	t.Setenv("CACHE_ENABLED", "off")

	cfg := LoadCacheConfig()

	require.False(t, cfg.Enabled)
	require.Equal(t, map[string]bool{"GET": true, "HEAD": true}, cfg.Methods)
	require.Equal(t, 5*time.Second, cfg.TTL)
}

func TestEnvHelpers_FallBackOnGarbage(t *testing.T) {
	t.Setenv("X_INT", "nope")
	t.Setenv("X_DUR", "soon")
	t.Setenv("X_BOOL", "maybe")

	require.Equal(t, 3, envInt("X_INT", 3))
	require.Equal(t, time.Minute, envDur("X_DUR", time.Minute))
	require.True(t, envBool("X_BOOL", true))
	require.Equal(t, []string{"a", "b"}, envList("X_MISSING", "a,,b"))
}

func TestLoadQueueConfig_PrefersRabbitURL(t *testing.T) {
	t.Setenv("AMQP_URL", "amqp://fallback/")
	t.Setenv("RABBITMQ_URL", "amqp://primary/")

	cfg := LoadQueueConfig()

	require.Equal(t, "amqp://primary/", cfg.URL)
	require.Equal(t, "registration.confirmed", cfg.Queue)
	require.Equal(t, 50, cfg.Prefetch)
}
