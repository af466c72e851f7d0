package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/iliyamo/league-registration/internal/config"
)

func TestNewProvider_DisabledIsNoop(t *testing.T) {
	p, err := NewProvider(config.TracingConfig{Enabled: false})
	require.NoError(t, err)

	_, span := p.Tracer().Start(context.Background(), "x")
	require.False(t, span.SpanContext().IsValid())
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestEnd_RecordsErrorStatus(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	p := NewProviderWithExporter("test", exp)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	_, ok := p.Tracer().Start(context.Background(), "ok")
	End(ok, nil)
	_, bad := p.Tracer().Start(context.Background(), "bad")
	End(bad, errors.New("boom"))

	spans := exp.GetSpans()
	require.Len(t, spans, 2)
	require.Equal(t, codes.Ok, spans[0].Status.Code)
	require.Equal(t, codes.Error, spans[1].Status.Code)
	require.Equal(t, "boom", spans[1].Status.Description)
}

func TestNilProviderTracer(t *testing.T) {
	var p *Provider
	require.NotNil(t, p.Tracer())
	require.NoError(t, p.Shutdown(context.Background()))
}
