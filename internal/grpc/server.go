package grpcserver

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/Dhoini/subscription-service/internal/interceptors"
	"github.com/Dhoini/subscription-service/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
)

// ServiceName имя сервиса в grpc.health.v1
const ServiceName = "subscription.SubscriptionService"

// Pinger проверка готовности базы
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server gRPC сервер со стандартным health и reflection
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	log        *logger.Logger
}

// NewServer создает новый gRPC сервер
func NewServer(log *logger.Logger) *Server {
	kaParams := keepalive.ServerParameters{
		MaxConnectionIdle:     5 * time.Minute,
		MaxConnectionAge:      time.Hour,
		MaxConnectionAgeGrace: 5 * time.Minute,
		Time:                  2 * time.Minute,
		Timeout:               20 * time.Second,
	}

	grpcServer := grpc.NewServer(
		grpc.KeepaliveParams(kaParams),
		grpc.ChainUnaryInterceptor(interceptors.NewLoggingInterceptor(log).Unary()),
	)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	// Включаем reflection для удобства отладки (grpcurl)
	reflection.Register(grpcServer)

	return &Server{
		grpcServer: grpcServer,
		health:     healthServer,
		log:        log,
	}
}

// SetServing выставляет статус для всего сервера и для ServiceName
func (s *Server) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// WatchReadiness опрашивает db и переключает статус, пока ctx не отменен.
// При db == nil сервер всегда SERVING.
func (s *Server) WatchReadiness(ctx context.Context, db Pinger, interval time.Duration) {
	check := func() bool {
		if db == nil {
			return true
		}
		pingCtx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()
		if err := db.Ping(pingCtx); err != nil {
			s.log.Warnw("Database ping failed, gRPC health set to NOT_SERVING", "error", err)
			return false
		}
		return true
	}

	s.SetServing(check())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SetServing(check())
		}
	}
}

// Serve обслуживает соединения на lis до остановки
func (s *Server) Serve(lis net.Listener) error {
	s.log.Infow("Starting gRPC server", "addr", lis.Addr().String())
	if err := s.grpcServer.Serve(lis); err != nil {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// Stop переводит health в NOT_SERVING и дожидается текущих вызовов
func (s *Server) Stop() {
	s.log.Infow("Stopping gRPC server")
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}
