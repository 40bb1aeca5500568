package config

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks struct tags and the cross-field rules tags cannot express.
func Validate(cfg *Config) error {
	if err := getValidator().Struct(cfg); err != nil {
		return err
	}

	kinds := map[string]interface{ Valid() bool }{
		"pool.header.kind": cfg.Pool.Header.Kind,
		"pool.body.kind":   cfg.Pool.Body.Kind,
		"pool.other_kind":  cfg.Pool.OtherKind,
	}
	for key, kind := range kinds {
		if !kind.Valid() {
			return fmt.Errorf("%s: invalid storage kind %v", key, kind)
		}
	}

	if cfg.Pool.Header.Size == 0 || cfg.Pool.Body.Size == 0 {
		return fmt.Errorf("pool: header and body sizes must be positive")
	}

	if cfg.Profiling.Enabled && cfg.Profiling.Endpoint == "" {
		return fmt.Errorf("profiling: endpoint is required when profiling is enabled")
	}

	return nil
}
