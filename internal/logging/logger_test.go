package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInfoWritesJSONWithServiceFields(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "parking-test", "test")

	Info(context.Background(), "ticket opened", "spot_id", 3)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "ticket opened", record["msg"])
	assert.Equal(t, "parking-test", record["service"])
	assert.Equal(t, "test", record["environment"])
	assert.EqualValues(t, 3, record["spot_id"])
	assert.NotContains(t, record, "traceId")
}

func TestDebugSuppressedOutsideDevelopment(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "parking-test", "production")

	Debug(context.Background(), "hidden")

	assert.Empty(t, buf.String())
}

func TestWithContextAddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "parking-test", "development")

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	Warn(ctx, "degraded")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, span.SpanContext().TraceID().String(), record["traceId"])
	assert.Equal(t, span.SpanContext().SpanID().String(), record["spanId"])
}
