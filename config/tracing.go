package config

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/akeren/sheet-waitlist/internal/log"
	"github.com/akeren/sheet-waitlist/pkg/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
)

const (
	defaultOTLPEndpoint = "http://localhost:4318"
	otlpTracesPath      = "/v1/traces"
)

// SetupTracing installs an OTLP/HTTP tracer provider when OTEL_TRACES_ENABLED
// is true and returns its shutdown. Spans cover the inbound request and the
// outbound token and Sheets calls.
func SetupTracing(ctx context.Context, logger *log.Logger) (func(context.Context) error, error) {
	if !utils.IsTracingEnabled() {
		return nil, nil
	}

	endpoint, err := tracesEndpointURL(utils.EnvOr("OTEL_EXPORTER_OTLP_ENDPOINT", defaultOTLPEndpoint))
	if err != nil {
		return nil, err
	}

	ratio, err := samplerRatio(utils.Env("OTEL_TRACES_SAMPLER_RATIO"))
	if err != nil {
		return nil, err
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
	if err != nil {
		return nil, fmt.Errorf("tracing exporter: %w", err)
	}

	serviceName := utils.OTelServiceName()
	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("deployment.environment", AppEnv()),
		),
		resource.WithHost(),
	)
	if err != nil {
		return nil, fmt.Errorf("tracing resource: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
		trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(ratio))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	logger.Info("Tracing enabled", "service", serviceName, "endpoint", endpoint, "sample_ratio", ratio)
	return tp.Shutdown, nil
}

// tracesEndpointURL accepts http(s)://host:port[/path] or a bare host:port
// (plain http) and fills in the traces path when none is given.
func tracesEndpointURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty OTLP endpoint")
	}
	if !strings.Contains(raw, "://") {
		if strings.ContainsAny(raw, "/?#") {
			return "", fmt.Errorf("OTLP endpoint %q has a path but no scheme; use http://host:port/path", raw)
		}
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid OTLP endpoint %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("OTLP endpoint %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("OTLP endpoint %q: missing host", raw)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = otlpTracesPath
	}
	return u.String(), nil
}

func samplerRatio(raw string) (float64, error) {
	if raw == "" {
		return 1, nil
	}
	ratio, err := strconv.ParseFloat(raw, 64)
	if err != nil || ratio < 0 || ratio > 1 {
		return 0, fmt.Errorf("OTEL_TRACES_SAMPLER_RATIO %q must be a number between 0 and 1", raw)
	}
	return ratio, nil
}
