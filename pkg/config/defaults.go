package config

import (
	"strings"
	"time"

	"github.com/marmos91/iobufs/internal/bytesize"
	"github.com/marmos91/iobufs/pkg/bufpool"
)

// DefaultShutdownTimeout bounds how long the CLI waits for workers and
// servers to stop.
const DefaultShutdownTimeout = 30 * time.Second

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//
// Storage kinds have no zero-value default: byte_array is the zero kind and
// is a legitimate choice.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyMetricsDefaults(&cfg.Metrics)
	applyProfilingDefaults(&cfg.Profiling)
	applyPoolDefaults(&cfg.Pool)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

// applyMetricsDefaults sets the metrics port when metrics are enabled.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// applyProfilingDefaults sets Pyroscope profiling defaults.
func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}

	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

func applyPoolDefaults(cfg *PoolConfig) {
	if cfg.Header.Size == 0 {
		cfg.Header.Size = bytesize.ByteSize(bufpool.DefaultHeaderSize)
	}
	if cfg.Body.Size == 0 {
		cfg.Body.Size = bytesize.ByteSize(bufpool.DefaultBodySize)
	}
	if cfg.MaxPooled == 0 {
		cfg.MaxPooled = bufpool.DefaultMaxPooled
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = bufpool.DefaultSweepInterval
	}
	if cfg.IdleThreshold == 0 {
		cfg.IdleThreshold = bufpool.DefaultIdleThreshold
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
// The pool uses indirect headers, direct bodies and indirect others.
func GetDefaultConfig() *Config {
	types := bufpool.DefaultTypes()
	cfg := &Config{
		Pool: PoolConfig{
			Header:    BufferTypeConfig{Kind: types.HeaderKind},
			Body:      BufferTypeConfig{Kind: types.BodyKind},
			OtherKind: types.OtherKind,
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
