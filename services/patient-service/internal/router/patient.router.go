package router

import (
	"context"
	"net/http"
	"time"

	"pulsetrack/services/patient-service/internal/handler"
	"pulsetrack/shared/auth/middleware"
	"pulsetrack/shared/server"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func SetupRoutes(h *handler.PatientHandler, health func(ctx context.Context) error, logger *zap.Logger) http.Handler {
	r := server.NewRouter(logger, 30*time.Second)
	server.MountOps(r, health)

	r.Route("/patients", func(r chi.Router) {
		r.Use(middleware.ForwardedIdentity)
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
	return r
}
