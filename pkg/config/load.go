package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "IDP_"

// LoadConfig loads configuration from a YAML file at the specified path.
// The file is decoded over Default(), so omitted fields keep their
// defaults. The result is validated. Environment variables are ignored;
// use LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML over Default() and applies defaults to any fields
// the document zeroed. It does not validate.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides. Variables follow the naming
// convention IDP_SECTION_FIELD (e.g. IDP_SERVER_LISTEN_ADDRESS) and always
// take precedence over the file.
//
// An empty path skips the file and starts from Default().
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = Default()
	} else {
		var err error
		cfg, err = LoadConfig(path)
		if err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies IDP_* variables to cfg. Unlike a missing
// variable, an unparsable one is an error.
func applyEnvOverrides(cfg *Config) error {
	o := &overrides{}

	// Server
	o.str("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	o.duration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	o.duration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	o.duration("SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	o.duration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	o.integer("SERVER_MAX_HEADER_BYTES", &cfg.Server.MaxHeaderBytes)
	o.int64("SERVER_MAX_BODY_BYTES", &cfg.Server.MaxBodyBytes)

	// Storage
	o.str("STORAGE_BACKEND", &cfg.Storage.Backend)
	o.str("STORAGE_SQLITE_PATH", &cfg.Storage.SQLite.Path)
	o.str("STORAGE_SQLITE_DRIVER", &cfg.Storage.SQLite.Driver)
	o.integer("STORAGE_SQLITE_MAX_OPEN_CONNS", &cfg.Storage.SQLite.MaxOpenConns)
	o.integer("STORAGE_SQLITE_MAX_IDLE_CONNS", &cfg.Storage.SQLite.MaxIdleConns)
	o.boolean("STORAGE_SQLITE_WAL_MODE", &cfg.Storage.SQLite.WALMode)
	o.duration("STORAGE_SQLITE_BUSY_TIMEOUT", &cfg.Storage.SQLite.BusyTimeout)

	// Evaluation
	o.str("EVALUATION_WEBHOOK_SECRET", &cfg.Evaluation.WebhookSecret)
	o.duration("EVALUATION_WEBHOOK_TIMEOUT", &cfg.Evaluation.WebhookTimeout)
	o.boolean("EVALUATION_STACK_TRACES", &cfg.Evaluation.StackTraces)
	o.duration("EVALUATION_STORE_TIMEOUT", &cfg.Evaluation.StoreTimeout)
	o.integer("EVALUATION_SANDBOX_MAX_EXPRESSION_LENGTH", &cfg.Evaluation.Sandbox.MaxExpressionLength)
	o.integer("EVALUATION_SANDBOX_MAX_DEPTH", &cfg.Evaluation.Sandbox.MaxDepth)

	// Worker
	o.integer("WORKER_WORKERS", &cfg.Worker.Workers)
	o.integer("WORKER_QUEUE_SIZE", &cfg.Worker.QueueSize)

	// Catalog
	o.str("CATALOG_RULEPACK_DIR", &cfg.Catalog.RulePackDir)
	o.str("CATALOG_SCENARIO_DIR", &cfg.Catalog.ScenarioDir)
	o.str("CATALOG_ARTIFACT_DIR", &cfg.Catalog.ArtifactDir)
	o.str("CATALOG_DATASET_DIR", &cfg.Catalog.DatasetDir)
	o.boolean("CATALOG_WATCH", &cfg.Catalog.Watch)
	o.duration("CATALOG_DEBOUNCE_INTERVAL", &cfg.Catalog.DebounceInterval)

	// Retention
	o.integer("RETENTION_DAYS", &cfg.Retention.Days)
	o.str("RETENTION_SCHEDULE", &cfg.Retention.Schedule)

	// Telemetry
	o.str("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	o.str("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	o.boolean("TELEMETRY_LOGGING_ADD_SOURCE", &cfg.Telemetry.Logging.AddSource)
	o.list("TELEMETRY_LOGGING_REDACT_KEYS", &cfg.Telemetry.Logging.RedactKeys)
	o.boolean("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	o.str("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	o.str("TELEMETRY_METRICS_NAMESPACE", &cfg.Telemetry.Metrics.Namespace)
	o.boolean("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	o.str("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	o.boolean("TELEMETRY_TRACING_INSECURE", &cfg.Telemetry.Tracing.Insecure)
	o.str("TELEMETRY_TRACING_SERVICE_NAME", &cfg.Telemetry.Tracing.ServiceName)
	o.str("TELEMETRY_TRACING_SAMPLER", &cfg.Telemetry.Tracing.Sampler)
	o.float("TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)

	if len(o.errs) > 0 {
		return ValidationError{Errors: o.errs}
	}
	return nil
}

// overrides collects parse failures so every bad variable is reported.
type overrides struct {
	errs []FieldError
}

func (o *overrides) lookup(name string) (string, bool) {
	val, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || val == "" {
		return "", false
	}
	return val, true
}

func (o *overrides) fail(name, val string, err error) {
	o.errs = append(o.errs, FieldError{
		Field:   EnvPrefix + name,
		Message: fmt.Sprintf("cannot parse %q: %v", val, err),
	})
}

func (o *overrides) str(name string, dst *string) {
	if val, ok := o.lookup(name); ok {
		*dst = val
	}
}

func (o *overrides) list(name string, dst *[]string) {
	val, ok := o.lookup(name)
	if !ok {
		return
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

func (o *overrides) duration(name string, dst *time.Duration) {
	if val, ok := o.lookup(name); ok {
		d, err := time.ParseDuration(val)
		if err != nil {
			o.fail(name, val, err)
			return
		}
		*dst = d
	}
}

func (o *overrides) integer(name string, dst *int) {
	if val, ok := o.lookup(name); ok {
		i, err := strconv.Atoi(val)
		if err != nil {
			o.fail(name, val, err)
			return
		}
		*dst = i
	}
}

func (o *overrides) int64(name string, dst *int64) {
	if val, ok := o.lookup(name); ok {
		i, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			o.fail(name, val, err)
			return
		}
		*dst = i
	}
}

func (o *overrides) float(name string, dst *float64) {
	if val, ok := o.lookup(name); ok {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			o.fail(name, val, err)
			return
		}
		*dst = f
	}
}

func (o *overrides) boolean(name string, dst *bool) {
	if val, ok := o.lookup(name); ok {
		b, err := strconv.ParseBool(val)
		if err != nil {
			o.fail(name, val, err)
			return
		}
		*dst = b
	}
}
