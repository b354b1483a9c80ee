package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"roster/internal/platform/config"
)

func TestDisabledIsNoop(t *testing.T) {
	var buf bytes.Buffer
	tp, shutdown, err := Setup(context.Background(), config.TracingConfig{}, &buf)
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "search.Search")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	assert.False(t, span.SpanContext().IsValid())
	assert.Zero(t, buf.Len())
}

func TestStdoutExportsSpans(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	tp, shutdown, err := Setup(context.Background(), config.TracingConfig{
		Enabled:     true,
		Stdout:      true,
		SampleRatio: 1,
		ServiceName: "roster-test",
	}, &buf)
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "search.Search")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	assert.Contains(t, buf.String(), "search.Search")
	assert.Contains(t, buf.String(), "roster-test")
}
