package grpc

import (
	"net"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"friend-service/internal/observability"
)

// ServiceName is the health service key reported alongside the overall status.
const ServiceName = "friend.FriendService"

// Server is the internal gRPC listener. It only serves grpc.health.v1.
type Server struct {
	srv    *gogrpc.Server
	health *health.Server
}

// NewServer builds the gRPC server with metrics and tracing instrumentation.
func NewServer() *Server {
	srv := gogrpc.NewServer(
		gogrpc.ChainUnaryInterceptor(observability.GRPCServerMetricsUnaryInterceptor()),
		gogrpc.StatsHandler(otelgrpc.NewServerHandler()),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	return &Server{srv: srv, health: hs}
}

// Serve blocks until lis is closed or Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	logrus.WithField("addr", lis.Addr().String()).Info("grpc server listening")
	return s.srv.Serve(lis)
}

// Stop marks the service NOT_SERVING and drains in-flight calls.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.srv.GracefulStop()
}
