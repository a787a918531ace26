package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"pulsetrack/services/billing-service/internal/config"
	hgrpc "pulsetrack/services/billing-service/internal/handler/grpc"
	"pulsetrack/services/billing-service/internal/handler/rest"
	"pulsetrack/services/billing-service/internal/repository"
	"pulsetrack/services/billing-service/internal/usecase"
	"pulsetrack/shared/genproto/billingpb"
	httpserver "pulsetrack/shared/server"
	"pulsetrack/shared/utils/cache"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
)

// Run starts the billing gRPC server and its ops HTTP listener and blocks
// until ctx is cancelled.
func Run(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) error {
	logger.Info("starting billing service",
		zap.String("grpc_addr", cfg.GRPCAddr),
		zap.String("http_addr", cfg.HTTPAddr),
	)

	store, closeStore := openStore(ctx, cfg, logger)
	defer closeStore()

	billingUC := usecase.NewBillingUsecase(store, logger)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.GRPCAddr, err)
	}

	grpcServer := grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle: 5 * time.Minute,
			Time:              time.Minute,
			Timeout:           20 * time.Second,
		}),
	)
	billingpb.RegisterBillingServiceServer(grpcServer, hgrpc.NewBillingGRPCHandler(billingUC, logger))

	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus(billingpb.BillingService_ServiceDesc.ServiceName, healthpb.HealthCheckResponse_SERVING)

	r := httpserver.NewRouter(logger, 10*time.Second)
	httpserver.MountOps(r, nil)
	r.Get("/billing/admin/accounts/{patientId}", rest.NewAdminHandler(billingUC).GetAccount)
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("billing gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc serve: %w", err)
		}
	}()
	go func() {
		if err := httpserver.ListenAndServe(ctx, httpSrv, 5*time.Second, logger); err != nil {
			errCh <- fmt.Errorf("http serve: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		grpcServer.Stop()
		return err
	}

	healthSrv.Shutdown()
	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(10 * time.Second):
		grpcServer.Stop()
	}
	logger.Info("billing service stopped")
	return nil
}

// openStore prefers redis and degrades to process memory when redis is
// unreachable at startup.
func openStore(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) (repository.AccountStore, func()) {
	c := cache.NewCache(cfg.RedisAddrs, cfg.RedisPass, cfg.RedisCluster)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.Ping(pingCtx); err != nil {
		logger.Warn("redis unreachable, billing accounts kept in memory (degraded mode)",
			zap.Strings("addrs", cfg.RedisAddrs),
			zap.Error(err),
		)
		c.Close()
		return repository.NewMemoryStore(), func() {}
	}

	logger.Info("redis connected", zap.Strings("addrs", cfg.RedisAddrs))
	return repository.NewRedisStore(c), func() { c.Close() }
}
