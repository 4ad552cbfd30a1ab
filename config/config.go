// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quiver Contributors

package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"

	quiverr "github.com/quiver-db/quiver/pkg/errors"
	"github.com/quiver-db/quiver/store"
)

// Config is the top-level Quiver configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// DatabaseConfig locates the backing database file.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// StorageConfig controls the storage backend and its tuning knobs.
type StorageConfig struct {
	Backend          string `mapstructure:"backend"`
	SelectBatchSize  int    `mapstructure:"select_batch_size"`
	IndexData        bool   `mapstructure:"index_data"`
	VectorDimensions int    `mapstructure:"vector_dimensions"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix QUIVER_).
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("database.path", "quiver.db")
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.select_batch_size", store.DefaultSelectBatchSize)
	v.SetDefault("storage.index_data", false)
	v.SetDefault("storage.vector_dimensions", store.DefaultVectorDimensions)
	v.SetDefault("logging.level", "info")

	// Environment
	v.SetEnvPrefix("QUIVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// File
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, quiverr.Errorf(quiverr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, quiverr.Errorf(quiverr.CodeConfigLoadReadFailure, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, quiverr.Errorf(quiverr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors. It returns a
// slice of all validation errors found, collecting all issues rather
// than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	if c.Database.Path == "" {
		errs = append(errs, quiverr.Errorf(quiverr.CodeConfigValidateInvalidValue,
			"config: database.path must not be empty"))
	}

	validBackends := map[string]bool{"sqlite": true}
	if !validBackends[c.Storage.Backend] {
		errs = append(errs, quiverr.Errorf(quiverr.CodeConfigValidateInvalidValue,
			"config: storage.backend must be one of [sqlite], got %q", c.Storage.Backend))
	}
	if c.Storage.SelectBatchSize < 0 {
		errs = append(errs, quiverr.Errorf(quiverr.CodeConfigValidateInvalidValue,
			"config: storage.select_batch_size must not be negative, got %d", c.Storage.SelectBatchSize))
	}
	if c.Storage.VectorDimensions < 0 {
		errs = append(errs, quiverr.Errorf(quiverr.CodeConfigValidateInvalidValue,
			"config: storage.vector_dimensions must not be negative, got %d", c.Storage.VectorDimensions))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		errs = append(errs, quiverr.Errorf(quiverr.CodeConfigValidateInvalidValue,
			"config: logging.level must be one of [debug, info, warn, error], got %q", c.Logging.Level))
	}

	return errs
}

// StoreConfig maps the loaded configuration onto the store factory's
// expectations.
func (c *Config) StoreConfig() *store.StorageConfig {
	return &store.StorageConfig{
		Backend:          c.Storage.Backend,
		SelectBatchSize:  c.Storage.SelectBatchSize,
		IndexData:        c.Storage.IndexData,
		VectorDimensions: c.Storage.VectorDimensions,
	}
}
