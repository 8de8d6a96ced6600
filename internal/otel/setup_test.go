package otel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestSetup_Disabled(t *testing.T) {
	shutdown, err := Setup("aida", "dev", false)
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetup_Enabled(t *testing.T) {
	tests := []struct {
		name        string
		serviceName string
		version     string
	}{
		{"basic setup", "test-service", "1.0.0"},
		{"dev version", "aida", "dev"},
		{"empty version", "aida", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shutdown, err := Setup(tt.serviceName, tt.version, true)
			require.NoError(t, err)
			require.NotNil(t, shutdown, "shutdown function must not be nil")

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			assert.NoError(t, shutdown(ctx), "shutdown should complete without error")
		})
	}
}

func TestTracer_CreatesValidSpansAfterSetup(t *testing.T) {
	shutdown, err := Setup("test-service", "0.0.1", true)
	require.NoError(t, err)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = shutdown(ctx)
	}()

	tr := Tracer("github.com/Lokie-ree/aida-sub001/internal/otel/test")
	_, span := tr.Start(context.Background(), "test.operation")
	defer span.End()

	assert.True(t, span.SpanContext().IsValid(), "span context should be valid after Setup()")
	assert.True(t, span.SpanContext().HasTraceID())
}

func TestTracer_NoopWithoutSetup(t *testing.T) {
	tr := Tracer("github.com/Lokie-ree/aida-sub001/internal/noop")
	_, span := tr.Start(context.Background(), "noop.operation")
	defer span.End()
	assert.Implements(t, (*trace.Span)(nil), span)
}

func TestMeter_ReturnsMeter(t *testing.T) {
	m := Meter("github.com/Lokie-ree/aida-sub001/internal/otel/test")
	require.NotNil(t, m)
	_, err := m.Int64Counter("aida.test.counter")
	assert.NoError(t, err)
}
