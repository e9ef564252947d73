package config

import "time"

// Config is the root configuration of the assessment service. The loaded
// value is passed to each constructor; there is no global instance.
type Config struct {
	// Server configures the HTTP API.
	Server ServerConfig `yaml:"server"`

	// Storage selects and configures the run store.
	Storage StorageConfig `yaml:"storage"`

	// Evaluation configures the orchestrator and the completion webhook.
	Evaluation EvaluationConfig `yaml:"evaluation"`

	// Worker configures the background worker pool.
	Worker WorkerConfig `yaml:"worker"`

	// Catalog locates rule packs, scenarios, artifacts and datasets on disk.
	Catalog CatalogConfig `yaml:"catalog"`

	// Retention configures pruning of old runs.
	Retention RetentionConfig `yaml:"retention"`

	// Telemetry configures logging, metrics and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the host:port to listen on.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown, including draining the
	// worker pool.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// MaxBodyBytes limits request body size.
	// Default: 1048576 (1MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// StorageConfig selects the run store backend.
type StorageConfig struct {
	// Backend is "memory" or "sqlite".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite configures the SQLite backend.
	SQLite SQLiteConfig `yaml:"sqlite"`
}

// SQLiteConfig contains SQLite-specific configuration.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/runs.db"
	Path string `yaml:"path"`

	// Driver is "sqlite3" (mattn/go-sqlite3, cgo) or "sqlite"
	// (modernc.org/sqlite, pure Go).
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long a writer waits for a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// EvaluationConfig configures run execution.
type EvaluationConfig struct {
	// WebhookSecret is sent in the X-IDP-Webhook header. Webhooks are not
	// sent when it is empty.
	WebhookSecret string `yaml:"webhook_secret"`

	// WebhookTimeout bounds one webhook delivery.
	// Default: 5s
	WebhookTimeout time.Duration `yaml:"webhook_timeout"`

	// StackTraces includes panic stacks in the error detail of debug runs.
	// Default: true
	StackTraces bool `yaml:"stack_traces"`

	// StoreTimeout bounds the terminal write of a run.
	// Default: 10s
	StoreTimeout time.Duration `yaml:"store_timeout"`

	// Sandbox bounds rule conditions.
	Sandbox SandboxConfig `yaml:"sandbox"`
}

// SandboxConfig contains expression limits.
type SandboxConfig struct {
	// MaxExpressionLength is the longest accepted condition in bytes.
	// Default: 4096
	MaxExpressionLength int `yaml:"max_expression_length"`

	// MaxDepth is the deepest accepted expression tree.
	// Default: 64
	MaxDepth int `yaml:"max_depth"`
}

// WorkerConfig configures the worker pool.
type WorkerConfig struct {
	// Workers is the number of concurrent runs.
	// Default: 4
	Workers int `yaml:"workers"`

	// QueueSize bounds queued runs; submissions beyond it are refused.
	// Default: 256
	QueueSize int `yaml:"queue_size"`
}

// CatalogConfig locates the documents runs reference. Empty directories
// are not loaded.
type CatalogConfig struct {
	// RulePackDir holds rule pack documents (*.yaml, *.yml, *.json).
	// Default: "catalog/rulepacks"
	RulePackDir string `yaml:"rulepack_dir"`

	// ScenarioDir holds scenario documents (*.json).
	// Default: "catalog/scenarios"
	ScenarioDir string `yaml:"scenario_dir"`

	// ArtifactDir holds artifact documents (*.json).
	// Default: "catalog/artifacts"
	ArtifactDir string `yaml:"artifact_dir"`

	// DatasetDir holds anthropometric dataset documents.
	// Default: "catalog/datasets"
	DatasetDir string `yaml:"dataset_dir"`

	// Watch reloads the catalog when files change.
	// Default: false
	Watch bool `yaml:"watch"`

	// DebounceInterval is the quiet period before a reload.
	// Default: 250ms
	DebounceInterval time.Duration `yaml:"debounce_interval"`
}

// RetentionConfig configures pruning of terminal runs.
type RetentionConfig struct {
	// Days is how long terminal runs are kept. 0 keeps them forever.
	// Default: 90
	Days int `yaml:"days"`

	// Schedule is a cron expression.
	// Default: "0 3 * * *"
	Schedule string `yaml:"schedule"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	// Default: "info"
	Level string `yaml:"level"`

	// Format is json or text.
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource adds file:line to every record.
	AddSource bool `yaml:"add_source"`

	// RedactKeys are attribute keys written as "***".
	RedactKeys []string `yaml:"redact_keys"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the scrape endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace prefixes every metric name.
	// Default: "idp"
	Namespace string `yaml:"namespace"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	// Enabled turns on span export.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector address.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS to the collector.
	Insecure bool `yaml:"insecure"`

	// ServiceName is reported as service.name.
	// Default: "idp-assess"
	ServiceName string `yaml:"service_name"`

	// Sampler is always, never or ratio.
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is used by the ratio sampler.
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`
}
