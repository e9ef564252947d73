package config

import "time"

// Default values for configuration fields.
const (
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1 << 20
	DefaultMaxBodyBytes    = int64(1 << 20)

	DefaultStorageBackend     = BackendSQLite
	DefaultSQLitePath         = "data/runs.db"
	DefaultSQLiteDriver       = "sqlite"
	DefaultSQLiteMaxOpenConns = 10
	DefaultSQLiteMaxIdleConns = 5
	DefaultSQLiteWALMode      = true
	DefaultSQLiteBusyTimeout  = 5 * time.Second

	DefaultWebhookTimeout      = 5 * time.Second
	DefaultStackTraces         = true
	DefaultStoreTimeout        = 10 * time.Second
	DefaultMaxExpressionLength = 4096
	DefaultMaxDepth            = 64

	DefaultWorkers   = 4
	DefaultQueueSize = 256

	DefaultRulePackDir      = "catalog/rulepacks"
	DefaultScenarioDir      = "catalog/scenarios"
	DefaultArtifactDir      = "catalog/artifacts"
	DefaultDatasetDir       = "catalog/datasets"
	DefaultDebounceInterval = 250 * time.Millisecond

	DefaultRetentionDays     = 90
	DefaultRetentionSchedule = "0 3 * * *"

	DefaultLogLevel           = "info"
	DefaultLogFormat          = "json"
	DefaultMetricsEnabled     = true
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "idp"
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingServiceName = "idp-assess"
	DefaultTracingSampler     = "ratio"
	DefaultTracingSampleRatio = 1.0
)

// Storage backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Default returns a configuration with every default applied, including
// the boolean defaults ApplyDefaults cannot tell apart from false.
func Default() *Config {
	cfg := &Config{}
	cfg.Storage.SQLite.WALMode = DefaultSQLiteWALMode
	cfg.Evaluation.StackTraces = DefaultStackTraces
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults. Boolean
// fields are left alone; LoadConfig decodes over Default() so they keep
// their defaults unless the file sets them.
func ApplyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyStorageDefaults(&cfg.Storage)
	applyEvaluationDefaults(&cfg.Evaluation)

	if cfg.Worker.Workers == 0 {
		cfg.Worker.Workers = DefaultWorkers
	}
	if cfg.Worker.QueueSize == 0 {
		cfg.Worker.QueueSize = DefaultQueueSize
	}

	applyCatalogDefaults(&cfg.Catalog)

	if cfg.Retention.Schedule == "" {
		cfg.Retention.Schedule = DefaultRetentionSchedule
	}

	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyServerDefaults(s *ServerConfig) {
	if s.ListenAddress == "" {
		s.ListenAddress = DefaultListenAddress
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = DefaultReadTimeout
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = DefaultWriteTimeout
	}
	if s.IdleTimeout == 0 {
		s.IdleTimeout = DefaultIdleTimeout
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = DefaultShutdownTimeout
	}
	if s.MaxHeaderBytes == 0 {
		s.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if s.MaxBodyBytes == 0 {
		s.MaxBodyBytes = DefaultMaxBodyBytes
	}
}

func applyStorageDefaults(s *StorageConfig) {
	if s.Backend == "" {
		s.Backend = DefaultStorageBackend
	}
	if s.SQLite.Path == "" {
		s.SQLite.Path = DefaultSQLitePath
	}
	if s.SQLite.Driver == "" {
		s.SQLite.Driver = DefaultSQLiteDriver
	}
	if s.SQLite.MaxOpenConns == 0 {
		s.SQLite.MaxOpenConns = DefaultSQLiteMaxOpenConns
	}
	if s.SQLite.MaxIdleConns == 0 {
		s.SQLite.MaxIdleConns = DefaultSQLiteMaxIdleConns
	}
	if s.SQLite.BusyTimeout == 0 {
		s.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}
}

func applyEvaluationDefaults(e *EvaluationConfig) {
	if e.WebhookTimeout == 0 {
		e.WebhookTimeout = DefaultWebhookTimeout
	}
	if e.StoreTimeout == 0 {
		e.StoreTimeout = DefaultStoreTimeout
	}
	if e.Sandbox.MaxExpressionLength == 0 {
		e.Sandbox.MaxExpressionLength = DefaultMaxExpressionLength
	}
	if e.Sandbox.MaxDepth == 0 {
		e.Sandbox.MaxDepth = DefaultMaxDepth
	}
}

func applyCatalogDefaults(c *CatalogConfig) {
	if c.RulePackDir == "" {
		c.RulePackDir = DefaultRulePackDir
	}
	if c.ScenarioDir == "" {
		c.ScenarioDir = DefaultScenarioDir
	}
	if c.ArtifactDir == "" {
		c.ArtifactDir = DefaultArtifactDir
	}
	if c.DatasetDir == "" {
		c.DatasetDir = DefaultDatasetDir
	}
	if c.DebounceInterval == 0 {
		c.DebounceInterval = DefaultDebounceInterval
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLogLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLogFormat
	}
	if t.Metrics.Path == "" {
		t.Metrics.Path = DefaultMetricsPath
	}
	if t.Metrics.Namespace == "" {
		t.Metrics.Namespace = DefaultMetricsNamespace
	}
	if t.Tracing.Endpoint == "" {
		t.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if t.Tracing.ServiceName == "" {
		t.Tracing.ServiceName = DefaultTracingServiceName
	}
	if t.Tracing.Sampler == "" {
		t.Tracing.Sampler = DefaultTracingSampler
	}
	if t.Tracing.SampleRatio == 0 {
		t.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
}
