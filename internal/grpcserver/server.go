// Package grpcserver exposes the standard grpc.health.v1.Health service so
// orchestrators can probe the research service over gRPC.
//
// The serving status mirrors health.Report.Serving and is recomputed by
// Refresh, which the scheduler calls on a fixed cadence.
package grpcserver

import (
	"context"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"jobmate/research-service/internal/health"
)

// ServiceName is the name probes can ask about besides the empty
// (whole-server) name.
const ServiceName = "jobmate.research.v1.ResearchService"

// Server wraps a grpc.Server carrying only the health service.
type Server struct {
	grpc    *grpc.Server
	health  *grpchealth.Server
	checker *health.Checker
}

// NewServer returns a Server reporting NOT_SERVING until the first Refresh.
func NewServer(checker *health.Checker) *Server {
	hs := grpchealth.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	return &Server{grpc: gs, health: hs, checker: checker}
}

// ─── Lifecycle ───────────────────────────────────────────────────────────────

// Serve blocks accepting connections on lis.
func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// Stop marks every service NOT_SERVING and drains in-flight calls.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}

// Refresh pings the backing stores and publishes the result.
func (s *Server) Refresh(ctx context.Context) {
	report := s.checker.Check(ctx)
	status := healthpb.HealthCheckResponse_SERVING
	if !report.Serving() {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		slog.Warn("grpc health not serving", "database", report.Database, "redis", report.Redis)
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}
