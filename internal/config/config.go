// Package config loads the runtime configuration for the Lus CLI and
// embeddable runtime core from a YAML document, with environment variable
// and CLI flag overrides layered on top (flags win, then env, then file).
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// PledgeConfig holds default permission grants applied before any script
// `pledge()` call runs.
type PledgeConfig struct {
	Defaults []PledgeGrant `yaml:"defaults,omitempty"`
}

// PledgeGrant is a single default grant, in the same "base[:sub]=value"
// shape scripts use when calling pledge().
type PledgeGrant struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value,omitempty"`
}

// WorkerPoolConfig holds worker pool sizing.
type WorkerPoolConfig struct {
	MaxWorkers int `yaml:"max_workers,omitempty"` // default: min(NumCPU, 32)
}

// ThreadPoolConfig holds thread pool sizing for blocking work offload.
type ThreadPoolConfig struct {
	Size int `yaml:"size,omitempty"` // default: 4
}

// SchedulerConfig holds scheduler poll-cycle defaults.
type SchedulerConfig struct {
	PollBatchSize  int           `yaml:"poll_batch_size,omitempty"`  // default: 256
	DefaultTimeout time.Duration `yaml:"default_timeout,omitempty"`  // default: 0 (non-blocking)
}

// TracingConfig holds OpenTelemetry tracing settings.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Exporter    string  `yaml:"exporter,omitempty"`     // otlp-http, stdout
	Endpoint    string  `yaml:"endpoint,omitempty"`     // localhost:4318
	ServiceName string  `yaml:"service_name,omitempty"` // lus
	SampleRate  float64 `yaml:"sample_rate,omitempty"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled          bool      `yaml:"enabled"`
	Namespace        string    `yaml:"namespace,omitempty"`
	Addr             string    `yaml:"addr,omitempty"` // read from file/LUS_METRICS_ADDR; nothing starts a /metrics listener from it
	HistogramBuckets []float64 `yaml:"histogram_buckets,omitempty"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level          string `yaml:"level,omitempty"` // debug, info, warn, error
	Format         string `yaml:"format,omitempty"` // text, json
	IncludeTraceID bool   `yaml:"include_trace_id,omitempty"`
}

// ObservabilityConfig groups the observability-related settings.
type ObservabilityConfig struct {
	Tracing TracingConfig `yaml:"tracing"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// Config is the central configuration struct embedding all component configs.
type Config struct {
	Pledge        PledgeConfig        `yaml:"pledge"`
	WorkerPool    WorkerPoolConfig    `yaml:"worker_pool"`
	ThreadPool    ThreadPoolConfig    `yaml:"thread_pool"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		WorkerPool: WorkerPoolConfig{
			MaxWorkers: 0, // resolved at runtime to min(NumCPU, 32)
		},
		ThreadPool: ThreadPoolConfig{
			Size: 4,
		},
		Scheduler: SchedulerConfig{
			PollBatchSize:  256,
			DefaultTimeout: 0,
		},
		Observability: ObservabilityConfig{
			Tracing: TracingConfig{
				Enabled:     false,
				Exporter:    "otlp-http",
				Endpoint:    "localhost:4318",
				ServiceName: "lus",
				SampleRate:  1.0,
			},
			Metrics: MetricsConfig{
				Enabled:          true,
				Namespace:        "lus",
				HistogramBuckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100},
			},
			Logging: LoggingConfig{
				Level:          "info",
				Format:         "text",
				IncludeTraceID: true,
			},
		},
	}
}

// Load resolves the config file path from the explicit path argument, then
// $LUS_CONFIG, then ./lus.yaml, and returns defaults merged with whatever
// is found. Environment overrides are not applied here; callers apply them
// with LoadFromEnv. Absence of a config file is not an error unless
// explicitPath named it.
func Load(explicitPath string) (*Config, error) {
	cfg := DefaultConfig()

	path := explicitPath
	if path == "" {
		path = os.Getenv("LUS_CONFIG")
	}
	if path == "" {
		path = "lus.yaml"
	}

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if explicitPath != "" {
		return nil, err
	}

	return cfg, nil
}

// LoadFromEnv applies environment variable overrides to the config.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("LUS_WORKER_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.WorkerPool.MaxWorkers = n
		}
	}
	if v := os.Getenv("LUS_THREADPOOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ThreadPool.Size = n
		}
	}
	if v := os.Getenv("LUS_SCHEDULER_POLL_BATCH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Scheduler.PollBatchSize = n
		}
	}
	if v := os.Getenv("LUS_TRACING_ENABLED"); v != "" {
		cfg.Observability.Tracing.Enabled = parseBool(v)
	}
	if v := os.Getenv("LUS_TRACING_ENDPOINT"); v != "" {
		cfg.Observability.Tracing.Endpoint = v
	}
	if v := os.Getenv("LUS_METRICS_ENABLED"); v != "" {
		cfg.Observability.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("LUS_METRICS_ADDR"); v != "" {
		cfg.Observability.Metrics.Addr = v
	}
	if v := os.Getenv("LUS_LOG_LEVEL"); v != "" {
		cfg.Observability.Logging.Level = v
	}
	if v := os.Getenv("LUS_LOG_FORMAT"); v != "" {
		cfg.Observability.Logging.Format = v
	}
}

func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes"
}
