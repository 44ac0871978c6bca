package observability

import (
	"context"
	"errors"
	"testing"
)

func TestSetSpanErrorAndOK(t *testing.T) {
	if err := Init(context.Background(), Config{
		Enabled:     true,
		Exporter:    "stdout",
		ServiceName: "lus-test",
		SampleRate:  1.0,
	}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { Shutdown(context.Background()) })

	ctx, span := StartSpan(context.Background(), "op", AttrWorkerID.String("w1"))
	SetSpanError(span, errors.New("boom"))
	span.End()

	if SpanFromContext(ctx) == nil {
		t.Fatalf("expected a span to be recoverable from context")
	}

	_, span2 := StartSpan(context.Background(), "op-ok")
	SetSpanOK(span2)
	span2.End()
}

func TestGetTraceAndSpanIDEmptyWithoutActiveSpan(t *testing.T) {
	ctx := context.Background()
	if id := GetTraceID(ctx); id != "" {
		t.Fatalf("expected empty trace ID without an active span, got %q", id)
	}
	if id := GetSpanID(ctx); id != "" {
		t.Fatalf("expected empty span ID without an active span, got %q", id)
	}
}
