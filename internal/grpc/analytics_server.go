package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/soltixdb/tsinsight/internal/logging"
	"github.com/soltixdb/tsinsight/internal/metrics"
	"github.com/soltixdb/tsinsight/internal/services"
	"github.com/soltixdb/tsinsight/internal/utils"
)

// AnalyticsServer represents the analytics gRPC server
type AnalyticsServer struct {
	address    string
	grpcServer *grpc.Server
	health     *health.Server
	logger     *logging.Logger

	handler *AnalyticsHandler
}

// NewAnalyticsServer creates a new analytics gRPC server instance
func NewAnalyticsServer(address string, logger *logging.Logger, analytics *services.AnalyticsService) *AnalyticsServer {
	return &AnalyticsServer{
		address: address,
		logger:  logger,
		handler: NewAnalyticsHandler(logger, analytics),
	}
}

func (s *AnalyticsServer) build() {
	opts := []grpc.ServerOption{
		grpc.MaxRecvMsgSize(utils.GRPCMaxMessageSize),
		grpc.MaxSendMsgSize(utils.GRPCMaxMessageSize),
		grpc.ChainUnaryInterceptor(s.observe),
	}

	s.grpcServer = grpc.NewServer(opts...)
	RegisterAnalyticsServiceServer(s.grpcServer, s.handler)

	s.health = health.NewServer()
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	// For grpcurl
	reflection.Register(s.grpcServer)
}

// Start listens on the configured address and serves until ctx is done
func (s *AnalyticsServer) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.address, err)
	}
	return s.Serve(ctx, listener)
}

// Serve serves on listener until ctx is done, then stops gracefully
func (s *AnalyticsServer) Serve(ctx context.Context, listener net.Listener) error {
	s.build()
	s.logger.Info("gRPC server starting", "address", listener.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.grpcServer.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			s.logger.Error("gRPC server error", "error", err)
		}
		return err
	case <-ctx.Done():
		s.logger.Info("Shutting down gRPC server")
		s.Stop()
		return nil
	}
}

// Stop marks the server not serving and stops it gracefully
func (s *AnalyticsServer) Stop() {
	if s.grpcServer == nil {
		return
	}
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}

// observe logs and times every unary call
func (s *AnalyticsServer) observe(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	code := status.Code(err).String()
	if err != nil {
		metrics.ObserveOperation(metrics.OpGRPC, "", start)
		s.logger.Warn("gRPC call failed", "method", info.FullMethod, "code", code, "error", err)
	} else {
		metrics.ObserveOperation(metrics.OpGRPC, "ok", start)
		s.logger.Debug("gRPC call completed", "method", info.FullMethod, "duration_ms", time.Since(start).Milliseconds())
	}
	return resp, err
}
