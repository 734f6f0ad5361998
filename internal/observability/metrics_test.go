package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/ride-network-sim/core"
	"github.com/signalsfoundry/ride-network-sim/kb"
)

func TestRecordTickUpdatesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("NewSimCollector: %v", err)
	}

	report := core.TickReport{
		Tick:         1,
		Duration:     2 * time.Millisecond,
		Connectivity: core.ConnectivityReport{Connected: 9, Unconnected: 1, Rejected: 2},
		Dispatch: core.DispatchReport{
			Assignments: []kb.Assignment{{DriverID: "DR-200", PassengerID: "P-300"}, {DriverID: "DR-201", PassengerID: "P-301"}},
			Released:    1,
			Unassigned:  8,
			Available:   3,
		},
		Stations: []core.StationLoad{
			{ID: "BS-001", Location: "Nairobi", Connected: 4},
			{ID: "BS-002", Location: "Mombasa", Connected: 5},
		},
	}
	collector.RecordTick(report)
	collector.RecordTick(report)

	if got := testutil.ToFloat64(collector.Ticks); got != 2 {
		t.Fatalf("sim_ticks_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.StationConnections.WithLabelValues("BS-002", "Mombasa")); got != 5 {
		t.Fatalf("sim_station_connected_devices{BS-002} = %v, want 5", got)
	}
	if got := testutil.ToFloat64(collector.UnconnectedDevices); got != 1 {
		t.Fatalf("sim_devices_unconnected = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.RejectedConnections); got != 4 {
		t.Fatalf("sim_connections_rejected_total = %v, want 4", got)
	}
	if got := testutil.ToFloat64(collector.AvailableDrivers); got != 3 {
		t.Fatalf("sim_drivers_available = %v, want 3", got)
	}
	if got := testutil.ToFloat64(collector.DriverAssignments); got != 4 {
		t.Fatalf("sim_driver_assignments_total = %v, want 4", got)
	}
	if got := testutil.ToFloat64(collector.DriverReleases); got != 2 {
		t.Fatalf("sim_driver_releases_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.UnassignedPassengers); got != 8 {
		t.Fatalf("sim_passengers_unassigned = %v, want 8", got)
	}
	if count := histogramSampleCount(t, reg, "sim_tick_duration_seconds", nil); count != 2 {
		t.Fatalf("sim_tick_duration_seconds sample_count = %d, want 2", count)
	}
}

func TestSetEntityCounts(t *testing.T) {
	collector, err := NewSimCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewSimCollector: %v", err)
	}
	collector.SetEntityCounts(kb.Counts{BaseStations: 5, Devices: 10, Passengers: 10, Drivers: 5})

	if got := testutil.ToFloat64(collector.Entities.WithLabelValues("driver")); got != 5 {
		t.Fatalf("sim_entities{kind=driver} = %v, want 5", got)
	}
	if got := testutil.ToFloat64(collector.Entities.WithLabelValues("device")); got != 10 {
		t.Fatalf("sim_entities{kind=device} = %v, want 10", got)
	}
}

func TestNewSimCollectorReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("first NewSimCollector: %v", err)
	}
	second, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("second NewSimCollector: %v", err)
	}
	second.Ticks.Inc()
	if got := testutil.ToFloat64(first.Ticks); got != 1 {
		t.Fatalf("shared sim_ticks_total = %v, want 1", got)
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *SimCollector
	c.RecordTick(core.TickReport{})
	c.SetEntityCounts(kb.Counts{})
	if c.Gatherer() != nil {
		t.Fatalf("nil collector returned a gatherer")
	}

	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("nil collector /metrics status = %d, want 200", rr.Code)
	}
}

func TestUnaryInterceptorRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("NewSimCollector: %v", err)
	}

	interceptor := collector.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	_, err = interceptor(context.Background(), struct{}{}, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		time.Sleep(10 * time.Millisecond)
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("interceptor handler returned error: %v", err)
	}

	if got := testutil.ToFloat64(collector.RPCRequests.WithLabelValues("Health", "Check", "OK")); got != 1 {
		t.Fatalf("grpc_requests_total = %v, want 1", got)
	}

	if count := histogramSampleCount(t, reg, "grpc_request_duration_seconds", map[string]string{
		"service": "Health",
		"method":  "Check",
	}); count != 1 {
		t.Fatalf("grpc_request_duration_seconds sample_count = %d, want 1", count)
	}
}

func TestUnaryInterceptorRecordsErrorCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("NewSimCollector: %v", err)
	}

	interceptor := collector.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	_, _ = interceptor(context.Background(), struct{}{}, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.NotFound, "unknown service")
	})

	if got := testutil.ToFloat64(collector.RPCRequests.WithLabelValues("Health", "Check", "NotFound")); got != 1 {
		t.Fatalf("grpc_requests_total error label = %v, want 1", got)
	}
}

func TestMetricsHandlerExposesSimulationMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("NewSimCollector: %v", err)
	}
	collector.RecordTick(core.TickReport{
		Stations: []core.StationLoad{{ID: "BS-001", Location: "Nairobi", Connected: 3}},
	})
	collector.SetEntityCounts(kb.Counts{BaseStations: 1})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"sim_ticks_total",
		"sim_tick_duration_seconds",
		`sim_station_connected_devices{location="Nairobi",station="BS-001"} 3`,
		"sim_drivers_available",
		`sim_entities{kind="base_station"} 1`,
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output", metric)
		}
	}
}

func TestSplitMethod(t *testing.T) {
	cases := map[string][2]string{
		"":                             {"unknown", "unknown"},
		"/grpc.health.v1.Health/Check": {"Health", "Check"},
		"Health/Watch":                 {"Health", "Watch"},
		"noslash":                      {"unknown", "unknown"},
		"/svc/":                        {"svc", "unknown"},
	}
	for in, want := range cases {
		service, method := SplitMethod(in)
		if service != want[0] || method != want[1] {
			t.Fatalf("SplitMethod(%q) = %q, %q; want %q, %q", in, service, method, want[0], want[1])
		}
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
