// Package telemetry provides OpenTelemetry integration for bb.
//
// Telemetry is disabled by default (zero runtime overhead when off).
//
// # Configuration
//
//	BB_OTEL_ENABLED=true              enable telemetry (default: off)
//	BB_OTEL_STDOUT=true               write spans/metrics to stdout (dev mode)
//	BB_OTEL_METRIC_INTERVAL=5s        metric export interval
//	OTEL_EXPORTER_OTLP_ENDPOINT=...  OTLP/HTTP endpoint for metrics (e.g. localhost:4318)
//
// # Supported exporters
//
//   - stdout: pretty-prints spans and metrics (BB_OTEL_STDOUT=true, or the
//     default when no OTLP endpoint is configured)
//   - OTLP/HTTP metrics: Prometheus, Grafana Mimir, Honeycomb, etc.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationScope = "github.com/steveyegge/boards"

var shutdownFns []func(context.Context) error

// options is the exporter setup read from the environment.
type options struct {
	enabled        bool
	stdout         bool
	endpoint       string
	stdoutInterval time.Duration
	otlpInterval   time.Duration
}

// readOptions reads BB_OTEL_* and the standard OTEL_EXPORTER_OTLP_* variables.
// Without an OTLP endpoint metrics go to stdout. BB_OTEL_METRIC_INTERVAL
// overrides the export interval of both readers.
func readOptions(getenv func(string) string) options {
	o := options{
		enabled: getenv("BB_OTEL_ENABLED") == "true",
		endpoint: firstNonEmpty(
			getenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"),
			getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		),
		stdoutInterval: 15 * time.Second,
		otlpInterval:   30 * time.Second,
	}
	o.stdout = getenv("BB_OTEL_STDOUT") == "true" || o.endpoint == ""
	if d, err := time.ParseDuration(getenv("BB_OTEL_METRIC_INTERVAL")); err == nil && d > 0 {
		o.stdoutInterval, o.otlpInterval = d, d
	}
	return o
}

// Enabled reports whether telemetry is active (BB_OTEL_ENABLED=true).
func Enabled() bool {
	return readOptions(os.Getenv).enabled
}

// Init installs the global tracer and meter providers. Disabled telemetry
// gets no-op providers. Stdout exporters write to w.
func Init(ctx context.Context, w io.Writer, serviceName, version string) error {
	opts := readOptions(os.Getenv)
	if !opts.enabled {
		otel.SetTracerProvider(tracenoop.NewTracerProvider())
		otel.SetMeterProvider(metricnoop.NewMeterProvider())
		return nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(version),
		),
		resource.WithHost(),
	)
	if err != nil {
		return fmt.Errorf("telemetry: resource: %w", err)
	}

	spans, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return fmt.Errorf("telemetry: span exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(spans),
	)
	otel.SetTracerProvider(tp)
	shutdownFns = append(shutdownFns, tp.Shutdown)

	readers, err := metricReaders(ctx, w, opts)
	if err != nil {
		return fmt.Errorf("telemetry: metric readers: %w", err)
	}
	mpOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	for _, r := range readers {
		mpOpts = append(mpOpts, sdkmetric.WithReader(r))
	}
	mp := sdkmetric.NewMeterProvider(mpOpts...)
	otel.SetMeterProvider(mp)
	shutdownFns = append(shutdownFns, mp.Shutdown)
	return nil
}

func metricReaders(ctx context.Context, w io.Writer, opts options) ([]sdkmetric.Reader, error) {
	var readers []sdkmetric.Reader
	if opts.stdout {
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
		if err != nil {
			return nil, err
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(opts.stdoutInterval)))
	}
	if opts.endpoint != "" {
		exp, err := buildOTLPMetricExporter(ctx, opts.endpoint)
		if err != nil {
			return nil, fmt.Errorf("otlp: %w", err)
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(opts.otlpInterval)))
	}
	return readers, nil
}

// Tracer returns a tracer with the given instrumentation name (or the global scope).
func Tracer(name string) trace.Tracer {
	if name == "" {
		name = instrumentationScope
	}
	return otel.Tracer(name)
}

// Meter returns a meter with the given instrumentation name (or the global scope).
func Meter(name string) metric.Meter {
	if name == "" {
		name = instrumentationScope
	}
	return otel.Meter(name)
}

// Shutdown flushes all spans/metrics and shuts down OTel providers.
// Deferred from the root command with a short-lived context.
func Shutdown(ctx context.Context) {
	for _, fn := range shutdownFns {
		_ = fn(ctx)
	}
	shutdownFns = nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
