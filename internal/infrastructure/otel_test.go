package infrastructure

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/xalekter/charts-edit/internal/config"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestOTelInitialization tests OpenTelemetry initialization
func TestOTelInitialization(t *testing.T) {
	providers, err := InitializeOTel(nil, quietLogger())
	require.NoError(t, err)
	require.NotNil(t, providers)

	assert.NotNil(t, providers.TracerProvider)
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.PrometheusHTTP)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(ctx))
}

// TestOTelConfiguration tests exporter selection
func TestOTelConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		tel     config.TelemetryConfig
		wantErr bool
	}{
		{name: "prometheus without trace export", tel: config.TelemetryConfig{TraceExporter: "none", MetricExporter: "prometheus"}},
		{name: "stdout traces", tel: config.TelemetryConfig{TraceExporter: "stdout", MetricExporter: "none"}},
		{name: "everything off", tel: config.TelemetryConfig{TraceExporter: "none", MetricExporter: "none"}},
		{name: "unknown trace exporter", tel: config.TelemetryConfig{TraceExporter: "otlp", MetricExporter: "none"}, wantErr: true},
		{name: "unknown metric exporter", tel: config.TelemetryConfig{TraceExporter: "none", MetricExporter: "statsd"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			providers, err := InitializeOTel(OTelConfigFrom(tt.tel), quietLogger())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, providers.Meter, "a meter is always available")
			assert.NoError(t, providers.Shutdown(context.Background()))
		})
	}
}

// TestTraceCorrelation tests trace ID correlation
func TestTraceCorrelation(t *testing.T) {
	providers, err := InitializeOTel(DefaultOTelConfig(), quietLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	ctx, span := otel.Tracer("test").Start(context.Background(), "test-operation")
	defer span.End()

	traceID := TraceIDFromContext(ctx)
	assert.NotEmpty(t, traceID)
	assert.Equal(t, span.SpanContext().TraceID().String(), traceID)

	RecordError(ctx, errors.New("boom"))
	assert.True(t, span.IsRecording())
	assert.Empty(t, TraceIDFromContext(context.Background()))
}

// TestBusinessMetrics tests business metrics creation and recording
func TestBusinessMetrics(t *testing.T) {
	providers, err := InitializeOTel(DefaultOTelConfig(), quietLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	metrics, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)
	require.NotNil(t, metrics)

	ctx := context.Background()
	RecordCommandMetrics(ctx, metrics, "add_row", 3*time.Millisecond, nil)
	RecordCommandMetrics(ctx, metrics, "remove_row", time.Millisecond, errors.New("bad index"))
	RecordRowAdded(ctx, metrics, "interpolated")
	RecordCommandMetrics(ctx, nil, "ignored", 0, nil)

	server := httptest.NewServer(providers.PrometheusHTTP)
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "dataset_commands_total")
	assert.Contains(t, string(body), `provenance="interpolated"`)
	assert.Contains(t, string(body), "go_goroutines")
}
