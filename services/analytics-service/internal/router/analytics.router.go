package router

import (
	"context"
	"net/http"
	"time"

	"pulsetrack/services/analytics-service/internal/handler"
	"pulsetrack/shared/server"

	"go.uber.org/zap"
)

func SetupRoutes(h *handler.AnalyticsHandler, health func(ctx context.Context) error, logger *zap.Logger) http.Handler {
	r := server.NewRouter(logger, 15*time.Second)
	server.MountOps(r, health)
	r.Get("/analytics/events", h.ListEvents)
	return r
}
