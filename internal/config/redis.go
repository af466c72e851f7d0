package config

// Redis backs the rate limiter, the response cache and the per-team
// submission guard. All three degrade to no-ops when the client is nil.

import (
	"context"
	"crypto/tls"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/league-registration/internal/log"
)

// NewRedisClient instantiates a Redis client using environment variables:
//
//	REDIS_ADDR      host:port (default localhost:6379), or REDIS_HOST + REDIS_PORT
//	REDIS_PASSWORD  optional password
//	REDIS_DB        database number (default 0)
//	REDIS_TLS       enable TLS when true
//	REDIS_DISABLED  skip Redis entirely
//
// The returned client is nil if Redis is disabled or unreachable.
func NewRedisClient() *redis.Client {
	if envBool("REDIS_DISABLED", false) {
		return nil
	}
	addr := envStr("REDIS_ADDR", "localhost:6379")
	if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
		addr = host + ":" + port
	}
	var tlsConf *tls.Config
	if envBool("REDIS_TLS", false) {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      addr,
		Password:  os.Getenv("REDIS_PASSWORD"),
		DB:        envInt("REDIS_DB", 0),
		TLSConfig: tlsConf,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn(log.CatConfig, "redis unavailable; rate limit, cache and submission guard disabled", "addr", addr, "error", err.Error())
		_ = client.Close()
		return nil
	}
	return client
}

// SubmitGuardTTL bounds how long a team's in-flight submission marker lives.
func SubmitGuardTTL() time.Duration {
	return envDur("SUBMIT_GUARD_TTL", 30*time.Second)
}
