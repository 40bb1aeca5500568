package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/iobufs/internal/bytesize"
	"github.com/marmos91/iobufs/pkg/buffer"
	"github.com/marmos91/iobufs/pkg/bufpool"
)

// Config represents the iobufs configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (IOBUFS_*)
//  3. Configuration file (YAML or TOML)
//  4. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Metrics contains Prometheus metrics server configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Profiling contains Pyroscope continuous profiling configuration
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`

	// Pool configures the buffer pool
	Pool PoolConfig `mapstructure:"pool" yaml:"pool"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
// When Enabled is false, no metrics are collected (zero overhead).
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the metrics endpoint
	// Default: 9090
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	// Enabled controls whether continuous profiling is enabled
	// Default: false (opt-in for profiling)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server endpoint (URL)
	// Default: "http://localhost:4040"
	Endpoint string `mapstructure:"endpoint" validate:"omitempty,url" yaml:"endpoint"`

	// ProfileTypes specifies which profile types to collect
	// Valid values: cpu, alloc_objects, alloc_space, inuse_objects, inuse_space,
	//               goroutines, mutex_count, mutex_duration, block_count, block_duration
	ProfileTypes []string `mapstructure:"profile_types" validate:"dive,oneof=cpu alloc_objects alloc_space inuse_objects inuse_space goroutines mutex_count mutex_duration block_count block_duration" yaml:"profile_types"`
}

// BufferTypeConfig selects the storage kind and size of one buffer role.
type BufferTypeConfig struct {
	// Kind is one of byte_array, direct or indirect
	Kind buffer.StorageKind `mapstructure:"kind" yaml:"kind"`

	// Size supports human-readable formats: "6KiB", "16Ki", "4096"
	Size bytesize.ByteSize `mapstructure:"size" yaml:"size"`
}

// PoolConfig configures the buffer pool.
//
// The tunables (direct_budget, idle_eviction, sweep_interval, idle_threshold)
// are re-applied to a running pool when the config file changes; buffer
// types and max_pooled only take effect for new pools.
type PoolConfig struct {
	Header BufferTypeConfig `mapstructure:"header" yaml:"header"`
	Body   BufferTypeConfig `mapstructure:"body" yaml:"body"`

	// OtherKind is the storage kind for buffers of any other size
	OtherKind buffer.StorageKind `mapstructure:"other_kind" yaml:"other_kind"`

	// MaxPooled is the soft cap on pooled buffers
	// Default: 1024
	MaxPooled int `mapstructure:"max_pooled" validate:"gte=0" yaml:"max_pooled"`

	// DirectBudget caps direct memory allocated on misses; 0 disables it.
	// Environment: IOBUFS_POOL_DIRECT_BUDGET=40KiB
	DirectBudget bytesize.ByteSize `mapstructure:"direct_budget" yaml:"direct_budget"`

	// IdleEviction enables the idle sweep
	IdleEviction bool `mapstructure:"idle_eviction" yaml:"idle_eviction"`

	// SweepInterval is how often the inspector runs (minimum 10s)
	SweepInterval time.Duration `mapstructure:"sweep_interval" validate:"omitempty,gte=10s" yaml:"sweep_interval"`

	// IdleThreshold is how long a buffer may sit pooled before eviction
	IdleThreshold time.Duration `mapstructure:"idle_threshold" validate:"omitempty,gt=0" yaml:"idle_threshold"`
}

// Tunables returns the runtime-adjustable part of the pool config.
func (c PoolConfig) Tunables() bufpool.Tunables {
	return bufpool.Tunables{
		DirectBudgetKB: c.DirectBudget.KiB(),
		IdleEviction:   c.IdleEviction,
		SweepInterval:  c.SweepInterval,
		IdleThreshold:  c.IdleThreshold,
	}
}

// ToBufpool converts the pool config into a bufpool.Config. Metrics and
// clock are left for the caller to set.
func (c PoolConfig) ToBufpool() *bufpool.Config {
	return &bufpool.Config{
		Types: buffer.Types{
			HeaderKind: c.Header.Kind,
			HeaderSize: c.Header.Size.Int(),
			BodyKind:   c.Body.Kind,
			BodySize:   c.Body.Size.Int(),
			OtherKind:  c.OtherKind,
		},
		MaxPooled: c.MaxPooled,
		Tunables:  c.Tunables(),
	}
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (IOBUFS_*)
//  2. Configuration file
//  3. Default values
//
// A missing config file is not an error: defaults plus environment are used.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := bindDefaults(v); err != nil {
		return nil, err
	}

	// A missing file still goes through decode so IOBUFS_* overrides apply.
	if _, err := readConfigFile(v); err != nil {
		return nil, err
	}

	return decode(v)
}

// bindDefaults registers every default value with viper. AutomaticEnv only
// resolves keys viper already knows about, so this is what makes
// environment overrides work without a config file.
func bindDefaults(v *viper.Viper) error {
	data, err := yaml.Marshal(GetDefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal defaults: %w", err)
	}

	var tree map[string]interface{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("failed to unmarshal defaults: %w", err)
	}

	setDefaults(v, "", tree)
	return nil
}

func setDefaults(v *viper.Viper, prefix string, tree map[string]interface{}) {
	for key, value := range tree {
		if prefix != "" {
			key = prefix + "." + key
		}
		if sub, ok := value.(map[string]interface{}); ok {
			setDefaults(v, key, sub)
			continue
		}
		v.SetDefault(key, value)
	}
}

// decode unmarshals, defaults and validates whatever v has loaded.
func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages.
// It checks if the config file exists and provides user-friendly instructions if not.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  iobufs config init\n\n"+
				"Or specify a custom config file:\n"+
				"  iobufs <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s\n\n"+
				"Please create the configuration file:\n"+
				"  iobufs config init --config %s",
				configPath, configPath)
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path in YAML.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return writeLocked(path, data)
}

// ErrConfigLocked is returned when another process is writing the same
// config file.
var ErrConfigLocked = errors.New("config file is locked by another process")

// writeLocked writes data to path while holding an advisory lock on
// path.lock.
func writeLocked(path string, data []byte) error {
	lock := flock.New(path + ".lock")
	held, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock config file: %w", err)
	}
	if !held {
		return ErrConfigLocked
	}
	defer func() { _ = lock.Unlock() }()

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// IOBUFS_POOL_DIRECT_BUDGET=40KiB sets pool.direct_budget
	v.SetEnvPrefix("IOBUFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// $XDG_CONFIG_HOME/iobufs/config.{yaml,toml}
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
		storageKindDecodeHook(),
	)
}

// byteSizeDecodeHook converts strings and integers to bytesize.ByteSize, so
// config files can use sizes like "16KiB", "6Ki" or plain numbers.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return bytesize.Parse(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook converts strings like "30s", "5m" or "1h" to time.Duration.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			// Assume nanoseconds for raw integers
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// storageKindDecodeHook converts kind names ("direct", "byte_array",
// "indirect") to buffer.StorageKind.
func storageKindDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(buffer.StorageKind(0)) {
			return data, nil
		}

		if s, ok := data.(string); ok {
			return buffer.ParseStorageKind(s)
		}
		return data, nil
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "iobufs")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "iobufs")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}
