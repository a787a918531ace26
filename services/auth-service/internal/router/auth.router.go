package router

import (
	"context"
	"net/http"
	"time"

	"pulsetrack/services/auth-service/internal/handler"
	"pulsetrack/shared/server"

	"go.uber.org/zap"
)

func SetupRoutes(h *handler.AuthHandler, health func(ctx context.Context) error, logger *zap.Logger) http.Handler {
	r := server.NewRouter(logger, 30*time.Second)
	server.MountOps(r, health)

	r.Get("/auth/health", h.Health)
	r.Post("/auth/signup", h.Signup)
	r.Post("/auth/login", h.Login)
	return r
}
