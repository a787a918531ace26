package config

import (
	"time"

	"pulsetrack/shared/auth/middleware"
	sharedcfg "pulsetrack/shared/config"
)

type Upstreams struct {
	Auth      string
	Patient   string
	Analytics string
	Billing   string
}

type AppConfig struct {
	HTTPAddr  string
	JWTSecret string
	Upstreams Upstreams
	Gate      middleware.GateConfig

	RateLimitEnabled bool
	RedisAddr        string
	RedisPass        string
	RateLimit        middleware.RateLimitConfig
}

func Load() AppConfig {
	gate := middleware.LoadGateConfig()
	if sharedcfg.GetEnvBool("METRICS_PUBLIC", true) {
		gate.PublicPrefixes = append(gate.PublicPrefixes, "/metrics")
	}

	return AppConfig{
		HTTPAddr:  sharedcfg.GetEnv("HTTP_ADDR", ":4004"),
		JWTSecret: sharedcfg.GetEnv("JWT_SECRET", ""),
		Upstreams: Upstreams{
			Auth:      sharedcfg.GetEnv("AUTH_SERVICE_URL", "http://auth-service:4005"),
			Patient:   sharedcfg.GetEnv("PATIENT_SERVICE_URL", "http://patient-service:4000"),
			Analytics: sharedcfg.GetEnv("ANALYTICS_SERVICE_URL", "http://analytics-service:4002"),
			Billing:   sharedcfg.GetEnv("BILLING_SERVICE_URL", "http://billing-service:4001"),
		},
		Gate: gate,

		RateLimitEnabled: sharedcfg.GetEnvBool("RATE_LIMIT_ENABLED", false),
		RedisAddr:        sharedcfg.GetEnv("REDIS_ADDR", "redis:6379"),
		RedisPass:        sharedcfg.GetEnv("REDIS_PASS", ""),
		RateLimit: middleware.RateLimitConfig{
			Limit:         sharedcfg.GetEnvInt("RATE_LIMIT", 120),
			Window:        sharedcfg.GetEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
			BlockDuration: sharedcfg.GetEnvDuration("RATE_LIMIT_BLOCK", 5*time.Minute),
			KeyPrefix:     "gateway:rl",
			// Only set behind a load balancer that overwrites X-Forwarded-For.
			TrustForwarded: sharedcfg.GetEnvBool("RATE_LIMIT_TRUST_FORWARDED", false),
		},
	}
}
