package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter returns a chi router with the middleware stack every HTTP
// service in the platform shares. RemoteAddr is taken from X-Forwarded-For
// or X-Real-IP, so only use it behind the gateway.
func NewRouter(logger *zap.Logger, timeout time.Duration) chi.Router {
	return newRouter(logger, timeout, true)
}

// NewEdgeRouter is NewRouter for a server that takes client traffic
// directly. RemoteAddr stays the peer address.
func NewEdgeRouter(logger *zap.Logger, timeout time.Duration) chi.Router {
	return newRouter(logger, timeout, false)
}

func newRouter(logger *zap.Logger, timeout time.Duration, realIP bool) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if realIP {
		r.Use(middleware.RealIP)
	}
	r.Use(LoggerMiddleware(logger))
	r.Use(middleware.Recoverer)
	if timeout > 0 {
		r.Use(middleware.Timeout(timeout))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Billing-Status", "X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	return r
}

// MountOps adds /actuator/health and /metrics. check may be nil.
func MountOps(r chi.Router, check func(ctx context.Context) error) {
	r.Get("/actuator/health", func(w http.ResponseWriter, req *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte("DOWN"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())
}

// LoggerMiddleware logs HTTP requests
func LoggerMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("remote_addr", r.RemoteAddr),
			)
		})
	}
}

// ListenAndServe runs srv until ctx is cancelled, then shuts it down within
// grace.
func ListenAndServe(ctx context.Context, srv *http.Server, grace time.Duration, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	logger.Info("http server shutting down", zap.String("addr", srv.Addr))
	return srv.Shutdown(shutdownCtx)
}
