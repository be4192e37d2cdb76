package otel_test

import (
	"context"
	"testing"

	"github.com/GTBitsOfGood/bit-bot/internal/platform/otel"
)

func TestSetup_NoopWhenEndpointEmpty(t *testing.T) {
	t.Setenv("BIT_BOT_OTEL_ENDPOINT", "")
	t.Setenv("BIT_BOT_OTEL_ENABLED", "")

	shutdown, err := otel.Setup(context.Background(), "test-service")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("noop shutdown: %v", err)
	}
}

func TestSetup_NoopWhenDisabled(t *testing.T) {
	t.Setenv("BIT_BOT_OTEL_ENDPOINT", "http://localhost:4318")
	t.Setenv("BIT_BOT_OTEL_ENABLED", "false")

	shutdown, err := otel.Setup(context.Background(), "test-service")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("noop shutdown: %v", err)
	}
}
