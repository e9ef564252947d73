package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "idp.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate(Default()) failed: %v", err)
	}
	if cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("ListenAddress = %q, want %q", cfg.Server.ListenAddress, DefaultListenAddress)
	}
	if !cfg.Storage.SQLite.WALMode || !cfg.Evaluation.StackTraces || !cfg.Telemetry.Metrics.Enabled {
		t.Error("boolean defaults not applied")
	}
	if cfg.Retention.Days != 0 {
		t.Errorf("Retention.Days = %d, want 0 before a file or override sets it", cfg.Retention.Days)
	}
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  listen_address: "0.0.0.0:9090"
  read_timeout: 5s
storage:
  backend: memory
  sqlite:
    wal_mode: false
worker:
  workers: 8
retention:
  days: 30
  schedule: "@every 6h"
telemetry:
  logging:
    level: debug
    format: text
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:9090" {
		t.Errorf("ListenAddress = %q", cfg.Server.ListenAddress)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("ReadTimeout = %v", cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != DefaultWriteTimeout {
		t.Errorf("WriteTimeout = %v, want default", cfg.Server.WriteTimeout)
	}
	if cfg.Storage.Backend != BackendMemory {
		t.Errorf("Backend = %q", cfg.Storage.Backend)
	}
	if cfg.Storage.SQLite.WALMode {
		t.Error("WALMode = true, want explicit false from file")
	}
	if !cfg.Evaluation.StackTraces {
		t.Error("StackTraces default lost")
	}
	if cfg.Worker.Workers != 8 || cfg.Worker.QueueSize != DefaultQueueSize {
		t.Errorf("Worker = %+v", cfg.Worker)
	}
	if cfg.Retention.Days != 30 || cfg.Retention.Schedule != "@every 6h" {
		t.Errorf("Retention = %+v", cfg.Retention)
	}
	if cfg.Telemetry.Logging.Level != "debug" || cfg.Telemetry.Logging.Format != "text" {
		t.Errorf("Logging = %+v", cfg.Telemetry.Logging)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"malformed yaml", "server: [", "failed to parse"},
		{"invalid backend", "storage:\n  backend: postgres\n", "storage.backend"},
		{"invalid driver", "storage:\n  sqlite:\n    driver: pgx\n", "storage.sqlite.driver"},
		{"bad listen address", "server:\n  listen_address: localhost\n", "server.listen_address"},
		{"bad schedule", "retention:\n  days: 7\n  schedule: \"every day\"\n", "retention.schedule"},
		{"negative retention", "retention:\n  days: -1\n", "retention.days"},
		{"bad sampler", "telemetry:\n  tracing:\n    sampler: sometimes\n", "telemetry.tracing.sampler"},
		{"sample ratio", "telemetry:\n  tracing:\n    sample_ratio: 2\n", "telemetry.tracing.sample_ratio"},
		{"negative workers", "worker:\n  workers: -2\n", "worker.workers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("LoadConfig() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadConfig() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadConfig() error = %v, want os.ErrNotExist", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Worker.Workers = 0
	cfg.Worker.QueueSize = 0
	cfg.Telemetry.Logging.Level = "verbose"

	err := Validate(cfg)

	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Validate() error = %v, want ValidationError", err)
	}
	if len(verr.Errors) != 3 {
		t.Errorf("got %d field errors, want 3: %v", len(verr.Errors), verr)
	}
	if !strings.Contains(verr.Error(), "3 errors") {
		t.Errorf("Error() = %q", verr.Error())
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, "server:\n  listen_address: \"127.0.0.1:8080\"\n")

	t.Setenv("IDP_SERVER_LISTEN_ADDRESS", "0.0.0.0:7000")
	t.Setenv("IDP_SERVER_SHUTDOWN_TIMEOUT", "45s")
	t.Setenv("IDP_STORAGE_BACKEND", "memory")
	t.Setenv("IDP_EVALUATION_WEBHOOK_SECRET", "s3cret")
	t.Setenv("IDP_EVALUATION_STACK_TRACES", "false")
	t.Setenv("IDP_CATALOG_WATCH", "true")
	t.Setenv("IDP_TELEMETRY_LOGGING_REDACT_KEYS", "secret, token ,")
	t.Setenv("IDP_TELEMETRY_TRACING_SAMPLE_RATIO", "0.25")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() failed: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:7000" {
		t.Errorf("ListenAddress = %q", cfg.Server.ListenAddress)
	}
	if cfg.Server.ShutdownTimeout != 45*time.Second {
		t.Errorf("ShutdownTimeout = %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Storage.Backend != BackendMemory {
		t.Errorf("Backend = %q", cfg.Storage.Backend)
	}
	if cfg.Evaluation.WebhookSecret != "s3cret" || cfg.Evaluation.StackTraces {
		t.Errorf("Evaluation = %+v", cfg.Evaluation)
	}
	if !cfg.Catalog.Watch {
		t.Error("Catalog.Watch not overridden")
	}
	keys := cfg.Telemetry.Logging.RedactKeys
	if len(keys) != 2 || keys[0] != "secret" || keys[1] != "token" {
		t.Errorf("RedactKeys = %v", keys)
	}
	if cfg.Telemetry.Tracing.SampleRatio != 0.25 {
		t.Errorf("SampleRatio = %v", cfg.Telemetry.Tracing.SampleRatio)
	}
}

func TestLoadConfigWithEnvOverrides_NoFile(t *testing.T) {
	t.Setenv("IDP_WORKER_WORKERS", "2")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() failed: %v", err)
	}
	if cfg.Worker.Workers != 2 {
		t.Errorf("Workers = %d, want 2", cfg.Worker.Workers)
	}
}

func TestLoadConfigWithEnvOverrides_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unparsable duration", "IDP_SERVER_READ_TIMEOUT", "soon"},
		{"unparsable int", "IDP_WORKER_QUEUE_SIZE", "many"},
		{"unparsable bool", "IDP_CATALOG_WATCH", "sometimes"},
		{"invalid after override", "IDP_STORAGE_BACKEND", "redis"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := LoadConfigWithEnvOverrides("")
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("LoadConfigWithEnvOverrides() error = %v, want ValidationError", err)
			}
		})
	}
}
