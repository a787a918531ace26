package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"pulsetrack/services/api-gateway/internal/config"
	"pulsetrack/services/api-gateway/internal/proxy"
	"pulsetrack/services/api-gateway/internal/router"
	"pulsetrack/shared/auth/middleware"
	"pulsetrack/shared/auth/pkg/jwtutil"
	httpserver "pulsetrack/shared/server"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func BuildRoutes(u config.Upstreams) (router.Routes, error) {
	var (
		routes router.Routes
		err    error
	)
	if routes.Auth, err = proxy.ParseUpstream("auth-service", u.Auth, ""); err != nil {
		return routes, err
	}
	if routes.Patient, err = proxy.ParseUpstream("patient-service", u.Patient, "/api"); err != nil {
		return routes, err
	}
	if routes.Analytics, err = proxy.ParseUpstream("analytics-service", u.Analytics, "/api"); err != nil {
		return routes, err
	}
	if routes.Billing, err = proxy.ParseUpstream("billing-service", u.Billing, "/api"); err != nil {
		return routes, err
	}
	return routes, nil
}

// Run starts the gateway and blocks until ctx is cancelled.
func Run(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) error {
	authority, err := jwtutil.NewAuthority(cfg.JWTSecret, 0)
	if err != nil {
		return fmt.Errorf("token authority: %w", err)
	}
	routes, err := BuildRoutes(cfg.Upstreams)
	if err != nil {
		return err
	}
	gate := middleware.NewGate(authority, cfg.Gate, logger)

	var limiter func(http.Handler) http.Handler
	if cfg.RateLimitEnabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:         cfg.RedisAddr,
			Password:     cfg.RedisPass,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		})
		defer rdb.Close()
		limiter = middleware.RateLimiter(rdb, cfg.RateLimit, logger)
		logger.Info("rate limiting enabled",
			zap.String("redis", cfg.RedisAddr),
			zap.Int("limit", cfg.RateLimit.Limit),
			zap.Duration("window", cfg.RateLimit.Window),
		)
	}

	logger.Info("starting api gateway",
		zap.String("http_addr", cfg.HTTPAddr),
		zap.Strings("public_prefixes", cfg.Gate.PublicPrefixes),
		zap.Strings("admin_prefixes", cfg.Gate.AdminPrefixes),
	)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.SetupRoutes(routes, gate, limiter, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return httpserver.ListenAndServe(ctx, srv, 10*time.Second, logger)
}
