package logging

import (
	"context"
	"testing"
)

func TestOpWithContextNoExtractorsReturnsPlainLogger(t *testing.T) {
	traceIDFromContext = nil
	spanIDFromContext = nil

	if got := OpWithContext(context.Background()); got != Op() {
		t.Fatalf("expected plain operational logger with no extractors wired")
	}
}

func TestOpWithContextAttachesTraceAndSpanID(t *testing.T) {
	t.Cleanup(func() {
		traceIDFromContext = nil
		spanIDFromContext = nil
	})

	SetTraceContextExtractors(
		func(context.Context) string { return "trace-123" },
		func(context.Context) string { return "span-456" },
	)

	l := OpWithContext(context.Background())
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l == Op() {
		t.Fatal("expected a distinct logger annotated with trace/span IDs")
	}
}

func TestOpWithContextSkipsSpanIDWhenEmpty(t *testing.T) {
	t.Cleanup(func() {
		traceIDFromContext = nil
		spanIDFromContext = nil
	})

	SetTraceContextExtractors(
		func(context.Context) string { return "trace-only" },
		func(context.Context) string { return "" },
	)

	l := OpWithContext(context.Background())
	if l == Op() {
		t.Fatal("expected a distinct logger annotated with the trace ID alone")
	}
}

func TestOpWithContextNoTraceIDReturnsPlainLogger(t *testing.T) {
	t.Cleanup(func() {
		traceIDFromContext = nil
		spanIDFromContext = nil
	})

	SetTraceContextExtractors(
		func(context.Context) string { return "" },
		func(context.Context) string { return "span-only" },
	)

	if got := OpWithContext(context.Background()); got != Op() {
		t.Fatalf("expected plain operational logger when trace ID is empty")
	}
}
