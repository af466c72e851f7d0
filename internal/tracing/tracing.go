// Package tracing wires OpenTelemetry for the registration service. When
// disabled every tracer is a no-op.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/iliyamo/league-registration/internal/config"
)

// Span and attribute names.
const (
	SpanSubmit        = "registration.submit"
	SpanHandleMessage = "queue.handle"
	AttrTeamNumber    = "registration.team_number"
	AttrSlotCount     = "registration.slot_count"
	AttrAttempt       = "registration.attempt"
	AttrMessageID     = "messaging.message_id"
	AttrQueue         = "messaging.destination"
)

// Provider owns the tracer provider for the process lifetime.
type Provider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// NewProvider returns a no-op provider unless cfg.Enabled, in which case
// spans are batched to the stdout exporter.
func NewProvider(cfg config.TracingConfig) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{tracer: Noop()}, nil
	}
	var opts []stdouttrace.Option
	if cfg.Pretty {
		opts = append(opts, stdouttrace.WithPrettyPrint())
	}
	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create stdout exporter: %w", err)
	}
	return newProvider(cfg.ServiceName, sdktrace.WithBatcher(exporter)), nil
}

// NewProviderWithExporter builds a provider that exports synchronously to
// exp. Tests use it with an in-memory exporter.
func NewProviderWithExporter(serviceName string, exp sdktrace.SpanExporter) *Provider {
	return newProvider(serviceName, sdktrace.WithSyncer(exp))
}

func newProvider(serviceName string, exportOpt sdktrace.TracerProviderOption) *Provider {
	if serviceName == "" {
		serviceName = "league-registration"
	}
	res := resource.NewSchemaless(attribute.String("service.name", serviceName))
	tp := sdktrace.NewTracerProvider(sdktrace.WithResource(res), exportOpt)
	otel.SetTracerProvider(tp)
	return &Provider{provider: tp, tracer: tp.Tracer(serviceName)}
}

// Noop returns a tracer that records nothing.
func Noop() trace.Tracer {
	return noop.NewTracerProvider().Tracer("noop")
}

// Tracer is safe to use when tracing is disabled.
func (p *Provider) Tracer() trace.Tracer {
	if p == nil {
		return Noop()
	}
	return p.tracer
}

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.provider == nil {
		return nil
	}
	return p.provider.Shutdown(ctx)
}

// End records err on span (if any) and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
