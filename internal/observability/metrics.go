package observability

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/ride-network-sim/core"
	"github.com/signalsfoundry/ride-network-sim/kb"
)

// SimCollector bundles Prometheus metrics for the simulation loop and the
// gRPC side surface, and provides helpers to wire them into servers and
// HTTP handlers.
type SimCollector struct {
	gatherer prometheus.Gatherer

	Ticks        prometheus.Counter
	TickDuration prometheus.Histogram

	StationConnections   *prometheus.GaugeVec
	UnconnectedDevices   prometheus.Gauge
	RejectedConnections  prometheus.Counter
	AvailableDrivers     prometheus.Gauge
	DriverAssignments    prometheus.Counter
	DriverReleases       prometheus.Counter
	UnassignedPassengers prometheus.Gauge
	Entities             *prometheus.GaugeVec

	RPCRequests  *prometheus.CounterVec
	RPCDurations *prometheus.HistogramVec
}

// NewSimCollector registers simulation metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewSimCollector(reg prometheus.Registerer) (*SimCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &SimCollector{gatherer: gatherer}
	var err error

	if c.Ticks, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_ticks_total",
		Help: "Total number of completed simulation ticks.",
	}), "sim_ticks_total"); err != nil {
		return nil, err
	}
	if c.TickDuration, err = registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_tick_duration_seconds",
		Help:    "Time spent in the core steps of a tick, excluding rendering and pauses.",
		Buckets: []float64{0.00001, 0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}), "sim_tick_duration_seconds"); err != nil {
		return nil, err
	}
	if c.StationConnections, err = registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sim_station_connected_devices",
		Help: "Devices connected to each base station after the last tick.",
	}, []string{"station", "location"}), "sim_station_connected_devices"); err != nil {
		return nil, err
	}
	if c.UnconnectedDevices, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_devices_unconnected",
		Help: "Devices without a co-located base station after the last tick.",
	}), "sim_devices_unconnected"); err != nil {
		return nil, err
	}
	if c.RejectedConnections, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_connections_rejected_total",
		Help: "Connections refused because every co-located station was full.",
	}), "sim_connections_rejected_total"); err != nil {
		return nil, err
	}
	if c.AvailableDrivers, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_drivers_available",
		Help: "Drivers left in the available pool after the last tick.",
	}), "sim_drivers_available"); err != nil {
		return nil, err
	}
	if c.DriverAssignments, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_driver_assignments_total",
		Help: "Total number of driver-to-passenger assignments.",
	}), "sim_driver_assignments_total"); err != nil {
		return nil, err
	}
	if c.DriverReleases, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_driver_releases_total",
		Help: "Total number of drivers returned to the pool.",
	}), "sim_driver_releases_total"); err != nil {
		return nil, err
	}
	if c.UnassignedPassengers, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_passengers_unassigned",
		Help: "Passengers without a driver after the last tick.",
	}), "sim_passengers_unassigned"); err != nil {
		return nil, err
	}
	if c.Entities, err = registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sim_entities",
		Help: "Current number of entities in the world, by kind.",
	}, []string{"kind"}), "sim_entities"); err != nil {
		return nil, err
	}

	if c.RPCRequests, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "grpc_requests_total",
		Help: "Total number of handled gRPC calls, labeled by service, method, and status code.",
	}, []string{"service", "method", "code"}), "grpc_requests_total"); err != nil {
		return nil, err
	}
	if c.RPCDurations, err = registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "grpc_request_duration_seconds",
		Help:    "gRPC call latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"service", "method"}), "grpc_request_duration_seconds"); err != nil {
		return nil, err
	}

	return c, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *SimCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// RecordTick satisfies core.MetricsRecorder.
func (c *SimCollector) RecordTick(r core.TickReport) {
	if c == nil {
		return
	}
	c.Ticks.Inc()
	c.TickDuration.Observe(r.Duration.Seconds())

	for _, s := range r.Stations {
		c.StationConnections.WithLabelValues(s.ID, string(s.Location)).Set(float64(s.Connected))
	}
	c.UnconnectedDevices.Set(float64(r.Connectivity.Unconnected))
	c.RejectedConnections.Add(float64(r.Connectivity.Rejected))

	c.AvailableDrivers.Set(float64(r.Dispatch.Available))
	c.DriverAssignments.Add(float64(len(r.Dispatch.Assignments)))
	c.DriverReleases.Add(float64(r.Dispatch.Released))
	c.UnassignedPassengers.Set(float64(r.Dispatch.Unassigned))
}

// SetEntityCounts publishes the world's collection sizes.
func (c *SimCollector) SetEntityCounts(counts kb.Counts) {
	if c == nil {
		return
	}
	c.Entities.WithLabelValues("base_station").Set(float64(counts.BaseStations))
	c.Entities.WithLabelValues("device").Set(float64(counts.Devices))
	c.Entities.WithLabelValues("passenger").Set(float64(counts.Passengers))
	c.Entities.WithLabelValues("driver").Set(float64(counts.Drivers))
}

// UnaryServerInterceptor records request counts and durations for unary RPCs.
func (c *SimCollector) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		if c == nil {
			return resp, err
		}

		fullMethod := ""
		if info != nil {
			fullMethod = info.FullMethod
		}
		service, method := SplitMethod(fullMethod)
		code := status.Code(err).String()

		if c.RPCRequests != nil {
			c.RPCRequests.WithLabelValues(service, method, code).Inc()
		}
		if c.RPCDurations != nil {
			c.RPCDurations.WithLabelValues(service, method).Observe(time.Since(start).Seconds())
		}

		return resp, err
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimCollector) Handler() http.Handler {
	gatherer := c.Gatherer()
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SplitMethod parses a fully-qualified gRPC method name into service and method
// components. It tolerates empty strings and partial paths, returning
// "unknown"/"unknown" when parsing fails.
func SplitMethod(fullMethod string) (string, string) {
	if fullMethod == "" {
		return "unknown", "unknown"
	}
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 2 {
		return "unknown", "unknown"
	}
	service := parts[len(parts)-2]
	method := parts[len(parts)-1]
	if dot := strings.LastIndex(service, "."); dot >= 0 && dot+1 < len(service) {
		service = service[dot+1:]
	}
	if service == "" {
		service = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	return service, method
}
