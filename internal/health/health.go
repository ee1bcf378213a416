// Package health exposes the standard gRPC health checking service so
// orchestrators can probe whether the game server is accepting games.
package health

import (
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/cory-johannsen/guessword/internal/config"
)

// ServiceName is the health service name reported for the game server.
const ServiceName = "guessword.GameServer"

// Server serves gRPC health checks. Both ServiceName and the overall ("")
// status follow SetServing.
type Server struct {
	cfg    config.HealthConfig
	grpc   *grpc.Server
	health *grpchealth.Server
	logger *zap.Logger

	mu    sync.Mutex
	lis   net.Listener
	ready chan struct{}
}

// NewServer creates a health server. Status starts as NOT_SERVING.
//
// Precondition: logger must be non-nil.
func NewServer(cfg config.HealthConfig, logger *zap.Logger) *Server {
	hs := grpchealth.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	return &Server{
		cfg:    cfg,
		grpc:   gs,
		health: hs,
		logger: logger,
		ready:  make(chan struct{}),
	}
}

// SetServing updates the reported status. It implements gameserver.StatusReporter.
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
	s.logger.Debug("health status changed", zap.String("status", status.String()))
}

// Start listens on the configured address and serves until Stop. This method blocks.
//
// Postcondition: Returns nil after Stop, or the listen/serve error.
func (s *Server) Start() error {
	start := time.Now()
	lis, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr(), err)
	}

	s.mu.Lock()
	s.lis = lis
	close(s.ready)
	s.mu.Unlock()

	s.logger.Info("health server listening",
		zap.String("addr", lis.Addr().String()),
		zap.Duration("startup", time.Since(start)),
	)
	if err := s.grpc.Serve(lis); err != nil {
		return fmt.Errorf("serving health checks: %w", err)
	}
	return nil
}

// Stop marks every service NOT_SERVING and stops the gRPC server gracefully.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound address, or empty string before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis == nil {
		return ""
	}
	return s.lis.Addr().String()
}
