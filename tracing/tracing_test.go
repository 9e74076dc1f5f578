package tracing

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("OTEL_ENVIRONMENT", "")
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	cfg := DefaultConfig("benkyokai-webdemo", "0.3.0")

	if cfg.ServiceName != "benkyokai-webdemo" {
		t.Errorf("Expected ServiceName 'benkyokai-webdemo', got %q", cfg.ServiceName)
	}
	if cfg.ServiceVersion != "0.3.0" {
		t.Errorf("Expected ServiceVersion '0.3.0', got %q", cfg.ServiceVersion)
	}
	if cfg.Environment != "development" {
		t.Errorf("Expected Environment 'development', got %q", cfg.Environment)
	}
	if cfg.Enabled {
		t.Error("Expected Enabled to be false by default")
	}
	if cfg.ConsoleWriter != os.Stderr {
		t.Error("Expected console exporter to write to stderr")
	}
	if cfg.SampleRate != 1.0 {
		t.Errorf("Expected SampleRate 1.0, got %f", cfg.SampleRate)
	}
}

func TestDefaultConfig_WithEnvVars(t *testing.T) {
	t.Setenv("OTEL_ENVIRONMENT", "production")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318")

	cfg := DefaultConfig("svc", "1.0.0")

	if cfg.Environment != "production" {
		t.Errorf("Expected Environment 'production', got %q", cfg.Environment)
	}
	if !cfg.Enabled {
		t.Error("Expected Enabled to be true")
	}
	if cfg.OTLPEndpoint != "localhost:4318" {
		t.Errorf("Expected OTLPEndpoint 'localhost:4318', got %q", cfg.OTLPEndpoint)
	}
}

func TestDefaultConfig_EnabledByEndpoint(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318")

	if !DefaultConfig("svc", "1.0.0").Enabled {
		t.Error("Expected Enabled to be true when OTLP endpoint is set")
	}
}

func TestSetup_Disabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown returned error: %v", err)
	}
}

func TestSetup_ConsoleExporterWritesToConfiguredWriter(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{
		ServiceName:    "test-service",
		ServiceVersion: "1.0.0",
		Environment:    "test",
		Enabled:        true,
		ConsoleWriter:  &buf,
		SampleRate:     1.0,
	}

	shutdown, err := Setup(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	_, span := StartSpan(context.Background(), "console-span")
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("console-span")) {
		t.Error("expected span to be exported to the configured writer")
	}
	if !bytes.Contains(buf.Bytes(), []byte("test-service")) {
		t.Error("expected the service name in the exported resource")
	}
}

func TestSetup_DifferentSampleRates(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate float64
	}{
		{"always sample", 1.0},
		{"never sample", 0.0},
		{"ratio sample", 0.5},
		{"above 1.0", 1.5},
		{"below 0.0", -0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			cfg := Config{
				ServiceName:    "test-service",
				ServiceVersion: "1.0.0",
				Environment:    "test",
				Enabled:        true,
				ConsoleWriter:  &buf,
				SampleRate:     tt.sampleRate,
			}

			shutdown, err := Setup(context.Background(), cfg)
			if err != nil {
				t.Fatalf("Setup failed: %v", err)
			}
			_ = shutdown(context.Background())
		})
	}
}

func TestSpanHelpers(t *testing.T) {
	_, span := StartSpan(context.Background(), "helpers")
	defer span.End()

	// None of these should panic on a non-recording span
	AddToolAttributes(span, "address", "lookup")
	AddRouteAttributes(span, "GET", "/users", true)
	AddUpstreamAttributes(span, "github", "GET", "https://api.github.com/repos/o/r/pulls")
	RecordError(span, nil)
	RecordError(span, errors.New("test error"))
}

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("TEST_GET_ENV_KEY", "custom-value")
	t.Setenv("TEST_GET_ENV_KEY_EMPTY", "")

	if got := getEnvOrDefault("TEST_GET_ENV_KEY", "default-value"); got != "custom-value" {
		t.Errorf("Expected custom-value, got %q", got)
	}
	if got := getEnvOrDefault("TEST_GET_ENV_KEY_EMPTY", "default-value"); got != "default-value" {
		t.Errorf("Expected default-value for empty env, got %q", got)
	}
	if got := getEnvOrDefault("TEST_GET_ENV_KEY_UNSET_XYZ", "default-value"); got != "default-value" {
		t.Errorf("Expected default-value for unset env, got %q", got)
	}
}
