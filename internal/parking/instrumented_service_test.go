package parking_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"parking-system/internal/parking"
)

type recordedTelemetry struct {
	spans  *tracetest.SpanRecorder
	reader *sdkmetric.ManualReader
	*parking.TelemetryProvider
}

func newRecordedTelemetry(t *testing.T) *recordedTelemetry {
	t.Helper()
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})
	return &recordedTelemetry{
		spans:             spans,
		reader:            reader,
		TelemetryProvider: parking.NewTelemetryProviderWith(tp.Tracer("test"), mp.Meter("test")),
	}
}

func (r *recordedTelemetry) metric(t *testing.T, name string) metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, r.reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m.Data
			}
		}
	}
	t.Fatalf("metric %s not recorded", name)
	return nil
}

func sumInt(t *testing.T, data metricdata.Aggregation) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestInstrumentedSessionServiceRecordsSessions(t *testing.T) {
	f := newFixture(t, 1, 1)
	telemetry := newRecordedTelemetry(t)
	svc, err := parking.NewInstrumentedSessionService(f.service, telemetry.TelemetryProvider)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.BeginSession(ctx, parking.CategoryCar, "ABCDEF")
	require.NoError(t, err)
	assert.Equal(t, int64(1), sumInt(t, telemetry.metric(t, "parking_lot_occupancy")))

	f.clock.Advance(time.Hour)
	receipt, err := svc.EndSession(ctx, "ABCDEF")
	require.NoError(t, err)
	requirePrice(t, "1.5", receipt.Price)

	assert.Equal(t, int64(0), sumInt(t, telemetry.metric(t, "parking_lot_occupancy")))
	assert.Equal(t, int64(1), sumInt(t, telemetry.metric(t, "parking_sessions_started_total")))
	assert.Equal(t, int64(1), sumInt(t, telemetry.metric(t, "parking_sessions_ended_total")))

	fares, ok := telemetry.metric(t, "parking_fares_collected").(metricdata.Sum[float64])
	require.True(t, ok)
	require.Len(t, fares.DataPoints, 1)
	assert.InDelta(t, 1.5, fares.DataPoints[0].Value, 0.0001)

	var names []string
	for _, span := range telemetry.spans.Ended() {
		names = append(names, span.Name())
	}
	assert.Contains(t, names, "parking.begin_session")
	assert.Contains(t, names, "parking.end_session")
}

func TestInstrumentedSessionServiceMarksFailedSpans(t *testing.T) {
	f := newFixture(t, 1, 1)
	telemetry := newRecordedTelemetry(t)
	svc, err := parking.NewInstrumentedSessionService(f.service, telemetry.TelemetryProvider)
	require.NoError(t, err)

	_, err = svc.EndSession(context.Background(), "UNKNOWN")
	require.ErrorIs(t, err, parking.ErrNoOpenTicket)

	ended := telemetry.spans.Ended()
	require.NotEmpty(t, ended)
	last := ended[len(ended)-1]
	assert.Equal(t, "parking.end_session", last.Name())
	assert.Equal(t, codes.Error, last.Status().Code)
}

func TestInstrumentedSessionServiceListsSpots(t *testing.T) {
	f := newFixture(t, 2, 1)
	svc, err := parking.NewInstrumentedSessionService(f.service, parking.NewNoopTelemetryProvider())
	require.NoError(t, err)

	spots, err := svc.Spots(context.Background())
	require.NoError(t, err)
	assert.Len(t, spots, 3)

	_, err = svc.Tickets(context.Background(), "ABCDEF")
	require.NoError(t, err)
}
