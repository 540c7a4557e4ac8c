package tracing

import (
	"context"
	"testing"

	"github.com/hilthontt/encore/internal/infrastructure/configs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitTracerDisabledInstallsPropagator(t *testing.T) {
	shutdown, err := InitTracer(NewConfig("encore", configs.TracingConfig{Enabled: false}))
	require.NoError(t, err)

	assert.NoError(t, shutdown(context.Background()))
	assert.Contains(t, otel.GetTextMapPropagator().Fields(), "traceparent")
}

func TestInitTracerEnabled(t *testing.T) {
	shutdown, err := InitTracer(NewConfig("encore", configs.TracingConfig{
		Enabled:     true,
		Environment: "test",
		Endpoint:    "http://127.0.0.1:4318/v1/traces",
	}))
	require.NoError(t, err)
	assert.NotNil(t, GetTracer("encore"))

	// Nothing was exported, so shutdown does not need the collector.
	assert.NoError(t, shutdown(context.Background()))
}
