package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"github.com/marmos91/iobufs/internal/bytesize"
	"github.com/marmos91/iobufs/pkg/buffer"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoad_DefaultConfig(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
logging:
  level: "info"

pool:
  body:
    kind: direct
    size: 1KiB
  direct_budget: 40KiB
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected level normalized to 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Pool.Body.Size != bytesize.KiB {
		t.Errorf("Expected body size 1KiB, got %v", cfg.Pool.Body.Size)
	}
	if cfg.Pool.DirectBudget.KiB() != 40 {
		t.Errorf("Expected direct budget 40KiB, got %v", cfg.Pool.DirectBudget)
	}
	if cfg.Pool.Header.Kind != buffer.KindIndirect {
		t.Errorf("Expected default header kind indirect, got %v", cfg.Pool.Header.Kind)
	}
	if cfg.Pool.Header.Size != 6*bytesize.KiB {
		t.Errorf("Expected default header size 6KiB, got %v", cfg.Pool.Header.Size)
	}
	if cfg.Pool.SweepInterval != 10*time.Second {
		t.Errorf("Expected default sweep interval 10s, got %v", cfg.Pool.SweepInterval)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	nonExistentPath := filepath.Join(t.TempDir(), "nonexistent.yaml")

	cfg, err := Load(nonExistentPath)
	if err != nil {
		t.Fatalf("Expected no error when loading default config, got: %v", err)
	}
	if cfg == nil {
		t.Fatal("Expected default config to be returned")
	}

	if cfg.Pool.Body.Kind != buffer.KindDirect {
		t.Errorf("Expected default body kind direct, got %v", cfg.Pool.Body.Kind)
	}
	if cfg.Pool.MaxPooled != 1024 {
		t.Errorf("Expected default max_pooled 1024, got %d", cfg.Pool.MaxPooled)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
logging:
  level: "INFO"
  invalid yaml here: [
`)

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error for invalid YAML")
	}
}

func TestLoad_InvalidStorageKind(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
pool:
  header:
    kind: offheap
`)

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error for unknown storage kind")
	}
}

func TestLoad_TOML(t *testing.T) {
	configPath := writeConfig(t, "config.toml", `
[logging]
level = "DEBUG"
format = "json"

[pool]
max_pooled = 50
idle_eviction = true
sweep_interval = "20s"
idle_threshold = "40s"

[pool.header]
kind = "byte_array"
size = "1KiB"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load TOML config: %v", err)
	}

	if cfg.Logging.Format != "json" {
		t.Errorf("Expected format 'json', got %q", cfg.Logging.Format)
	}
	if cfg.Pool.MaxPooled != 50 {
		t.Errorf("Expected max_pooled 50, got %d", cfg.Pool.MaxPooled)
	}
	if !cfg.Pool.IdleEviction {
		t.Error("Expected idle_eviction to be enabled")
	}
	if cfg.Pool.IdleThreshold != 40*time.Second {
		t.Errorf("Expected idle_threshold 40s, got %v", cfg.Pool.IdleThreshold)
	}
	if cfg.Pool.Header.Kind != buffer.KindByteArray {
		t.Errorf("Expected header kind byte_array, got %v", cfg.Pool.Header.Kind)
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("IOBUFS_LOGGING_LEVEL", "WARN")
	t.Setenv("IOBUFS_POOL_DIRECT_BUDGET", "40KiB")
	t.Setenv("IOBUFS_POOL_IDLE_EVICTION", "true")

	t.Run("OverridesFile", func(t *testing.T) {
		configPath := writeConfig(t, "config.yaml", `
logging:
  level: "DEBUG"
pool:
  direct_budget: 8KiB
`)
		cfg, err := Load(configPath)
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		if cfg.Logging.Level != "WARN" {
			t.Errorf("Expected env to override level to WARN, got %q", cfg.Logging.Level)
		}
		if cfg.Pool.DirectBudget.KiB() != 40 {
			t.Errorf("Expected env budget 40KiB, got %v", cfg.Pool.DirectBudget)
		}
	})

	t.Run("WithoutFile", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		if cfg.Pool.DirectBudget.KiB() != 40 {
			t.Errorf("Expected env budget 40KiB, got %v", cfg.Pool.DirectBudget)
		}
		if !cfg.Pool.IdleEviction {
			t.Error("Expected env to enable idle eviction")
		}
	})
}

func TestPoolConfig_ToBufpool(t *testing.T) {
	pc := GetDefaultConfig().Pool
	pc.Header = BufferTypeConfig{Kind: buffer.KindByteArray, Size: bytesize.KiB}
	pc.DirectBudget = 40 * bytesize.KiB
	pc.IdleEviction = true

	bc := pc.ToBufpool()

	if bc.Types.HeaderKind != buffer.KindByteArray || bc.Types.HeaderSize != 1024 {
		t.Errorf("Unexpected header type: %v/%d", bc.Types.HeaderKind, bc.Types.HeaderSize)
	}
	if bc.Types.BodyKind != buffer.KindDirect || bc.Types.BodySize != 16<<10 {
		t.Errorf("Unexpected body type: %v/%d", bc.Types.BodyKind, bc.Types.BodySize)
	}
	if bc.Tunables.DirectBudgetKB != 40 {
		t.Errorf("Expected budget 40, got %d", bc.Tunables.DirectBudgetKB)
	}
	if !bc.Tunables.IdleEviction {
		t.Error("Expected idle eviction in tunables")
	}
	if bc.MaxPooled != 1024 {
		t.Errorf("Expected max pooled 1024, got %d", bc.MaxPooled)
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := GetDefaultConfig()
	cfg.Pool.DirectBudget = 40 * bytesize.KiB
	cfg.Pool.Body.Kind = buffer.KindByteArray

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}
	if loaded.Pool.DirectBudget != cfg.Pool.DirectBudget {
		t.Errorf("Expected budget %v, got %v", cfg.Pool.DirectBudget, loaded.Pool.DirectBudget)
	}
	if loaded.Pool.Body.Kind != buffer.KindByteArray {
		t.Errorf("Expected body kind byte_array, got %v", loaded.Pool.Body.Kind)
	}
	if loaded.Pool.IdleThreshold != cfg.Pool.IdleThreshold {
		t.Errorf("Expected idle threshold %v, got %v", cfg.Pool.IdleThreshold, loaded.Pool.IdleThreshold)
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	got := GetDefaultConfigPath()
	want := filepath.Join("/tmp/xdg", "iobufs", "config.yaml")
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
	if GetConfigDir() != filepath.Join("/tmp/xdg", "iobufs") {
		t.Errorf("Unexpected config dir %q", GetConfigDir())
	}
}

func TestMustLoad_MissingFile(t *testing.T) {
	_, err := MustLoad(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("Expected error for missing config file")
	}
}

func TestSaveConfig_Locked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	other := flock.New(path + ".lock")
	held, err := other.TryLock()
	if err != nil || !held {
		t.Fatalf("Failed to take lock: held=%v err=%v", held, err)
	}
	defer func() { _ = other.Unlock() }()

	err = SaveConfig(GetDefaultConfig(), path)
	if !errors.Is(err, ErrConfigLocked) {
		t.Fatalf("Expected ErrConfigLocked, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected config file not to be written while locked")
	}
}
