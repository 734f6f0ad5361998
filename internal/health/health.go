// Package health exposes the standard gRPC health service for the running
// simulation.
package health

import (
	"context"
	"net"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/signalsfoundry/ride-network-sim/internal/logging"
	"github.com/signalsfoundry/ride-network-sim/internal/observability"
)

// ServiceName is reported alongside the overall ("") status.
const ServiceName = "ridesim.Simulation"

// Server serves grpc.health.v1 for the simulation.
type Server struct {
	grpc   *grpc.Server
	health *grpchealth.Server
	log    logging.Logger
}

// NewServer builds the gRPC server. collector may be nil.
func NewServer(collector *observability.SimCollector, log logging.Logger) *Server {
	if log == nil {
		log = logging.Noop()
	}
	opts := []grpc.ServerOption{grpc.StatsHandler(otelgrpc.NewServerHandler())}
	if collector != nil {
		opts = append(opts, grpc.ChainUnaryInterceptor(collector.UnaryServerInterceptor()))
	}

	s := &Server{
		grpc:   grpc.NewServer(opts...),
		health: grpchealth.NewServer(),
		log:    log,
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.SetServing(false)
	return s
}

// SetServing flips both the overall and the simulation status.
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Serve blocks until Stop is called or lis fails.
func (s *Server) Serve(lis net.Listener) error {
	s.log.Info(context.Background(), "starting health gRPC server", logging.String("addr", lis.Addr().String()))
	return s.grpc.Serve(lis)
}

// Stop reports NOT_SERVING to watchers, then drains the server.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
