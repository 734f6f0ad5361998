package health

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/signalsfoundry/ride-network-sim/internal/logging"
	"github.com/signalsfoundry/ride-network-sim/internal/observability"
)

func TestHealthServerStatus(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	collector, err := observability.NewSimCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewSimCollector: %v", err)
	}

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}

	srv := NewServer(collector, logging.Noop())
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(lis) }()

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)

	check := func(service string) healthpb.HealthCheckResponse_ServingStatus {
		t.Helper()
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
		if err != nil {
			t.Fatalf("Check(%q): %v", service, err)
		}
		return resp.GetStatus()
	}

	if got := check(ServiceName); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("initial status = %v, want NOT_SERVING", got)
	}

	srv.SetServing(true)
	if got := check(""); got != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("overall status = %v, want SERVING", got)
	}
	if got := check(ServiceName); got != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("service status = %v, want SERVING", got)
	}

	got := testutil.ToFloat64(collector.RPCRequests.WithLabelValues("Health", "Check", "OK"))
	if got != 3 {
		t.Fatalf("grpc_requests_total{Check,OK} = %v, want 3", got)
	}

	srv.Stop()
	if err := <-serveErr; err != nil {
		t.Fatalf("Serve returned error: %v", err)
	}
}
