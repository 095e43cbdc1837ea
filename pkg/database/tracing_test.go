package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	t.Cleanup(func() {
		tp.Shutdown(context.Background()) //nolint:errcheck
		otel.SetTracerProvider(prev)
	})

	return exporter
}

func TestTraceCommand_Success(t *testing.T) {
	exporter := setupTestTracer(t)

	_, end := TraceCommand(context.Background(), "GetSession", "GET")
	end(nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "redis.GetSession", span.Name)
	assert.Equal(t, codes.Unset, span.Status.Code)

	attrs := make(map[string]string)
	for _, a := range span.Attributes {
		attrs[string(a.Key)] = a.Value.Emit()
	}
	assert.Equal(t, "redis", attrs["db.system"])
	assert.Equal(t, "GetSession", attrs["db.operation"])
	assert.Equal(t, "GET", attrs["db.statement"])
}

func TestTraceCommand_Error(t *testing.T) {
	exporter := setupTestTracer(t)

	_, end := TraceCommand(context.Background(), "SaveSession", "SET")
	end(errors.New("connection refused"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.NotEmpty(t, spans[0].Events, "error should be recorded on the span")
}

func TestTraceCommand_ChildOfCaller(t *testing.T) {
	exporter := setupTestTracer(t)

	ctx, parent := otel.Tracer("test").Start(context.Background(), "parent")
	_, end := TraceCommand(ctx, "DeleteSession", "DEL")
	end(nil)
	parent.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, spans[1].SpanContext.SpanID(), spans[0].Parent.SpanID())
}

func TestSlowCommandLogging(t *testing.T) {
	setupTestTracer(t)
	t.Cleanup(func() { SetSlowCommandLogging(0, nil) })

	tests := []struct {
		name      string
		threshold time.Duration
		err       error
		wantLog   bool
	}{
		{name: "slow command logged", threshold: time.Nanosecond, wantLog: true},
		{name: "slow failure includes error", threshold: time.Nanosecond, err: errors.New("READONLY"), wantLog: true},
		{name: "fast command not logged", threshold: time.Hour},
		{name: "disabled", threshold: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			SetSlowCommandLogging(tt.threshold, slog.New(slog.NewJSONHandler(&buf, nil)))

			_, end := TraceCommand(context.Background(), "SaveSession", "SET")
			end(tt.err)

			out := buf.String()
			assert.Equal(t, tt.wantLog, strings.Contains(out, "slow redis command"), out)
			if tt.wantLog {
				assert.Contains(t, out, "SaveSession")
			}
			if tt.err != nil {
				assert.Contains(t, out, "READONLY")
			}
		})
	}
}

func TestSetSlowCommandLogging_Concurrent(t *testing.T) {
	t.Cleanup(func() { SetSlowCommandLogging(0, nil) })
	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			SetSlowCommandLogging(time.Duration(i)*time.Millisecond, logger)
		}
	}()
	for i := 0; i < 100; i++ {
		getSlowCommandConfig()
	}
	<-done
}
