package telemetry

import (
	"context"
	"testing"
)

func TestInitProviderDisabled(t *testing.T) {
	config := DefaultConfig()
	config.Enabled = false

	ctx := context.Background()
	shutdown, err := InitProvider(ctx, config)
	if err != nil {
		t.Fatalf("InitProvider failed: %v", err)
	}
	if shutdown == nil {
		t.Fatal("expected shutdown function, got nil")
	}

	if err := shutdown(ctx); err != nil {
		t.Fatalf("shutdown returned error: %v", err)
	}
}

func TestInitProviderEnabled(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
	}{
		{name: "no exporter", endpoint: ""},
		{name: "host and port", endpoint: "127.0.0.1:4318"},
		{name: "url", endpoint: "http://127.0.0.1:4318/v1/traces"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			config.Enabled = true
			config.Endpoint = tt.endpoint
			config.SampleRate = 0.5

			ctx := context.Background()
			shutdown, err := InitProvider(ctx, config)
			if err != nil {
				t.Fatalf("InitProvider failed: %v", err)
			}
			if shutdown == nil {
				t.Fatal("expected shutdown function, got nil")
			}
			// Nothing was recorded, so shutdown never reaches the collector.
			if err := shutdown(ctx); err != nil {
				t.Fatalf("shutdown returned error: %v", err)
			}
		})
	}
}

func TestShutdownAfterDisabledInit(t *testing.T) {
	ctx := context.Background()
	if _, err := InitProvider(ctx, DefaultConfig()); err != nil {
		t.Fatalf("InitProvider failed: %v", err)
	}
	if GetTracerProvider() == nil {
		t.Fatal("expected a tracer provider")
	}
	if err := Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
}
