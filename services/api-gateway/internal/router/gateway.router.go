package router

import (
	"net/http"
	"time"

	"pulsetrack/services/api-gateway/internal/proxy"
	"pulsetrack/shared/auth/middleware"
	"pulsetrack/shared/server"

	"go.uber.org/zap"
)

type Routes struct {
	Auth      proxy.Upstream
	Patient   proxy.Upstream
	Analytics proxy.Upstream
	Billing   proxy.Upstream
}

// SetupRoutes mounts the proxies behind the gate. limiter may be nil.
// The gateway faces clients, so RemoteAddr is never rewritten from headers.
func SetupRoutes(routes Routes, gate *middleware.Gate, limiter func(http.Handler) http.Handler, logger *zap.Logger) http.Handler {
	r := server.NewEdgeRouter(logger, 30*time.Second)
	r.Use(gate.Handler)
	if limiter != nil {
		r.Use(limiter)
	}
	server.MountOps(r, nil)

	auth := routes.Auth.Handler(logger)
	r.Handle("/auth/*", auth)

	patients := routes.Patient.Handler(logger)
	r.Handle("/api/patients", patients)
	r.Handle("/api/patients/*", patients)

	r.Handle("/api/analytics/*", routes.Analytics.Handler(logger))
	r.Handle("/api/billing/admin/*", routes.Billing.Handler(logger))
	return r
}
