package instrumentation

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "empty", config: Config{}},
		{name: "stdout", config: Config{MetricsExporter: ExporterStdout, TracingExporter: ExporterStdout}},
		{name: "bad metrics", config: Config{MetricsExporter: "prometheus"}, wantErr: true},
		{name: "bad tracing", config: Config{TracingExporter: "otlp"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{MetricsExporter: ExporterNone})
	require.NoError(t, err)

	assert.False(t, provider.Enabled())
	require.NotNil(t, provider.Metrics())
	provider.Metrics().RecordAPIOperation(context.Background(), "list", StatusSuccess, time.Millisecond)
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestNewProvider_InvalidExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{TracingExporter: "jaeger"})
	assert.Error(t, err)
}

func TestNewProvider_StdoutMetricsFlushOnShutdown(t *testing.T) {
	prevMP, prevTP := otel.GetMeterProvider(), otel.GetTracerProvider()
	t.Cleanup(func() {
		otel.SetMeterProvider(prevMP)
		otel.SetTracerProvider(prevTP)
	})

	var buf bytes.Buffer
	ctx := context.Background()
	provider, err := NewProvider(ctx, Config{
		ServiceVersion:  "test",
		MetricsExporter: ExporterStdout,
		Writer:          &buf,
	})
	require.NoError(t, err)
	assert.True(t, provider.Enabled())

	provider.Metrics().RecordAPIOperation(ctx, "create", StatusSuccess, 20*time.Millisecond)
	require.NoError(t, provider.Shutdown(ctx))

	assert.Contains(t, buf.String(), "task_api_operations_total")
}

func TestMetrics_RecordAPIOperation(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordAPIOperation(ctx, "delete", StatusSuccess, 10*time.Millisecond)
	m.RecordAPIOperation(ctx, "delete", StatusError, 10*time.Millisecond)
	m.RecordAPIOperation(ctx, "delete", StatusSuccess, 10*time.Millisecond)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	var total int64
	var found bool
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if md.Name != "task_api_operations_total" {
				continue
			}
			found = true
			sum, ok := md.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			assert.Len(t, sum.DataPoints, 2)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	assert.True(t, found)
	assert.Equal(t, int64(3), total)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.RecordAPIOperation(context.Background(), "list", StatusSuccess, time.Second)
	(&Metrics{}).RecordAPIOperation(context.Background(), "list", StatusSuccess, time.Second)
}

func TestStartAPISpan(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	otel.SetTracerProvider(tp)

	ctx, span := StartAPISpan(context.Background(), "update")
	assert.NotEmpty(t, TraceID(ctx))
	SetSpanError(span, errors.New("boom"))
	span.End()

	parent, other := StartSpan(context.Background(), "board.load")
	_, child := StartAPISpan(parent, "list")
	child.End()
	other.End()

	ended := rec.Ended()
	require.Len(t, ended, 3)
	assert.Equal(t, "taskapi.update", ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "taskapi.list", ended[1].Name())
	assert.Equal(t, trace.SpanKindClient, ended[1].SpanKind())
	assert.Equal(t, other.SpanContext().SpanID(), ended[1].Parent().SpanID())
	assert.Equal(t, "board.load", ended[2].Name())
	assert.Equal(t, trace.SpanKindInternal, ended[2].SpanKind())
}

func TestTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, TraceID(context.Background()))
}
