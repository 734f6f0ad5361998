package observability

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/signalsfoundry/ride-network-sim/internal/logging"
)

// Span exporters accepted in TracingConfig.Exporter.
const (
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

const (
	defaultServiceName  = "ride-network-sim"
	defaultOTLPEndpoint = "localhost:4317"
)

// TracingConfig selects whether tick spans are exported and where.
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Exporter    string
	Endpoint    string // OTLP collector, host:port
	SampleRatio float64
}

// DefaultTracingConfig is tracing switched off, with the stdout exporter
// ready if it is switched on.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName: defaultServiceName,
		Exporter:    ExporterStdout,
		SampleRatio: 1,
	}
}

// TracingConfigFromEnv overlays SIM_TRACING_ENABLED, SIM_TRACING_EXPORTER,
// SIM_TRACING_SERVICE_NAME, SIM_TRACING_SAMPLE_RATIO and SIM_OTLP_ENDPOINT
// on the defaults.
func TracingConfigFromEnv(getenv func(string) string) (TracingConfig, error) {
	cfg := DefaultTracingConfig()
	if v := getenv("SIM_TRACING_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("SIM_TRACING_ENABLED: %w", err)
		}
		cfg.Enabled = enabled
	}
	if v := getenv("SIM_TRACING_EXPORTER"); v != "" {
		cfg.Exporter = strings.ToLower(v)
	}
	if v := getenv("SIM_TRACING_SERVICE_NAME"); v != "" {
		cfg.ServiceName = v
	}
	if v := getenv("SIM_TRACING_SAMPLE_RATIO"); v != "" {
		ratio, err := strconv.ParseFloat(v, 64)
		if err != nil || ratio < 0 || ratio > 1 {
			return cfg, fmt.Errorf("SIM_TRACING_SAMPLE_RATIO: want a number in [0, 1], got %q", v)
		}
		cfg.SampleRatio = ratio
	}
	cfg.Endpoint = getenv("SIM_OTLP_ENDPOINT")

	switch cfg.Exporter {
	case ExporterStdout, ExporterOTLP:
	default:
		return cfg, fmt.Errorf("SIM_TRACING_EXPORTER: unsupported exporter %q", cfg.Exporter)
	}
	return cfg, nil
}

// InitTracing installs the global tracer provider. Spans from the stdout
// exporter go to stderr since stdout carries the tables. The returned
// function flushes and stops the provider.
func InitTracing(ctx context.Context, cfg TracingConfig, log logging.Logger) (func(context.Context) error, error) {
	return initTracing(ctx, cfg, log, os.Stderr)
}

func initTracing(ctx context.Context, cfg TracingConfig, log logging.Logger, spanOut io.Writer) (func(context.Context) error, error) {
	if log == nil {
		log = logging.Noop()
	}
	otel.SetTextMapPropagator(propagation.TraceContext{})

	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		log.Debug(ctx, "tracing disabled")
		return func(context.Context) error { return nil }, nil
	}

	exp, err := newSpanExporter(ctx, cfg, spanOut)
	if err != nil {
		return nil, err
	}

	attrs := []attribute.KeyValue{
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.namespace", "simulation"),
	}
	if id := logging.RunIDFromContext(ctx); id != "" {
		attrs = append(attrs, attribute.String("sim.run_id", id))
	}
	res, err := resource.New(ctx, resource.WithAttributes(attrs...))
	if err != nil {
		return nil, fmt.Errorf("tracing resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	log.Info(ctx, "tracing enabled",
		logging.String("exporter", cfg.Exporter),
		logging.String("service_name", cfg.ServiceName),
		logging.String("sample_ratio", strconv.FormatFloat(cfg.SampleRatio, 'f', -1, 64)),
	)
	return tp.Shutdown, nil
}

func newSpanExporter(ctx context.Context, cfg TracingConfig, w io.Writer) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case ExporterStdout:
		return stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithoutTimestamps())
	case ExporterOTLP:
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = defaultOTLPEndpoint
		}
		return otlptrace.New(ctx, otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		))
	default:
		return nil, fmt.Errorf("unsupported tracing exporter %q", cfg.Exporter)
	}
}

// ShutdownWithTimeout flushes spans, giving up after five seconds. Errors
// are logged, not returned.
func ShutdownWithTimeout(ctx context.Context, shutdown func(context.Context) error, log logging.Logger) {
	if shutdown == nil {
		return
	}
	if log == nil {
		log = logging.Noop()
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		log.Warn(ctx, "tracing shutdown failed", logging.Err(err))
	}
}
