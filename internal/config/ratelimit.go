package config

import "time"

// RateLimitConfig configures the Redis token bucket placed in front of the
// public endpoints. Submissions get their own, tighter bucket.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

// LoadRateLimitConfig builds the bucket for read endpoints.
func LoadRateLimitConfig() RateLimitConfig {
	return normalizeRateLimit(RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_CAPACITY", 60),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_route"),
		Prefix:         envStr("RATE_LIMIT_PREFIX", "rl"),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	})
}

// LoadSubmitRateLimitConfig builds the bucket for POST /v1/registrations.
func LoadSubmitRateLimitConfig() RateLimitConfig {
	base := LoadRateLimitConfig()
	base.Capacity = envInt("SUBMIT_RATE_LIMIT_CAPACITY", 5)
	base.RefillInterval = envDur("SUBMIT_RATE_LIMIT_REFILL_INTERVAL", 10*time.Second)
	base.KeyStrategy = "ip"
	base.Prefix = envStr("SUBMIT_RATE_LIMIT_PREFIX", "rl:submit")
	return normalizeRateLimit(base)
}

func normalizeRateLimit(c RateLimitConfig) RateLimitConfig {
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
		c.TTL = minTTL
	}
	return c
}
