// Package otelx wires OpenTelemetry tracing for the salon services and
// carries span context across the outbox.
package otelx

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	libconfig "github.com/parrylicious/salonbook/libs/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

const exportTimeout = 3 * time.Second

type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string // host:port of the collector's gRPC receiver
	Insecure       bool
	SampleRatio    float64
}

// ConfigFromEnv turns tracing on when OTEL_EXPORTER_OTLP_ENDPOINT is set.
// OTEL_ENABLED=false switches it off regardless.
func ConfigFromEnv(serviceName string) Config {
	endpoint := strings.TrimSpace(libconfig.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""))
	return Config{
		Enabled:        endpoint != "" && libconfig.Bool("OTEL_ENABLED", true),
		ServiceName:    serviceName,
		ServiceVersion: libconfig.String("SERVICE_VERSION", "dev"),
		Environment:    libconfig.String("APP_ENV", "development"),
		OTLPEndpoint:   endpoint,
		Insecure:       libconfig.Bool("OTEL_EXPORTER_OTLP_INSECURE", true),
		SampleRatio:    sampleRatio(libconfig.String("OTEL_SAMPLING_RATIO", "")),
	}
}

// sampleRatio falls back to sampling everything on a missing or
// out-of-range value.
func sampleRatio(raw string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || f < 0 || f > 1 {
		return 1
	}
	return f
}

// Setup installs the W3C propagators and, when enabled, a batching OTLP
// tracer provider. The returned func flushes and stops the provider.
func Setup(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithTimeout(exportTimeout),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exp, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
