package tracing_test

import (
	"context"
	"testing"

	"github.com/dalemusser/seatplan/internal/app/system/tracing"
)

func TestSetup_NoopWhenEndpointEmpty(t *testing.T) {
	shutdown, err := tracing.Setup(context.Background(), "seatplan-test", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetup_CreatesProviderWhenEndpointSet(t *testing.T) {
	// Non-routable address so nothing is exported.
	shutdown, err := tracing.Setup(context.Background(), "seatplan-test", "http://192.0.2.1:4318")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, span := tracing.Tracer().Start(context.Background(), "probe")
	if !span.SpanContext().IsValid() {
		t.Error("expected a recording span from the configured provider")
	}
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetup_NoopShutdownIgnoresCancelledContext(t *testing.T) {
	shutdown, err := tracing.Setup(context.Background(), "seatplan-test", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("noop shutdown should not error: %v", err)
	}
}
