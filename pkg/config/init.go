package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const configHeader = `# iobufs Configuration File
#
# Every key can be overridden from the environment with the IOBUFS_ prefix,
# dots replaced by underscores:
#   IOBUFS_LOGGING_LEVEL=DEBUG
#   IOBUFS_POOL_DIRECT_BUDGET=40KiB
#
# Storage kinds: byte_array, direct, indirect.
# Changes to pool.direct_budget, pool.idle_eviction, pool.sweep_interval and
# pool.idle_threshold are applied to a running soak without a restart.

`

// InitConfig writes a default configuration file to the default location.
// It refuses to overwrite an existing file unless force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a default configuration file to path.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(configHeader)

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(GetDefaultConfig()); err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}

	return writeLocked(path, buf.Bytes())
}
