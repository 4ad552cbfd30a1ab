// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quiver Contributors

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiver-db/quiver/config"
	quiverr "github.com/quiver-db/quiver/pkg/errors"
	"github.com/quiver-db/quiver/store"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "quiver.db", cfg.Database.Path)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, store.DefaultSelectBatchSize, cfg.Storage.SelectBatchSize)
	assert.False(t, cfg.Storage.IndexData)
	assert.Equal(t, store.DefaultVectorDimensions, cfg.Storage.VectorDimensions)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quiver.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  path: /var/lib/quiver/graph.db
storage:
  select_batch_size: 250
  index_data: true
logging:
  level: debug
`), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/quiver/graph.db", cfg.Database.Path)
	assert.Equal(t, 250, cfg.Storage.SelectBatchSize)
	assert.True(t, cfg.Storage.IndexData)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Unset keys keep their defaults.
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("QUIVER_LOGGING_LEVEL", "warn")
	t.Setenv("QUIVER_DATABASE_PATH", "/tmp/env.db")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "/tmp/env.db", cfg.Database.Path)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.True(t, quiverr.HasCode(err, quiverr.CodeConfigLoadReadFailure))
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := &config.Config{
		Database: config.DatabaseConfig{Path: ""},
		Storage:  config.StorageConfig{Backend: "postgres", SelectBatchSize: -1, VectorDimensions: -2},
		Logging:  config.LoggingConfig{Level: "loud"},
	}

	errs := cfg.Validate()
	assert.Len(t, errs, 5)
	for _, err := range errs {
		assert.True(t, quiverr.HasCode(err, quiverr.CodeConfigValidateInvalidValue))
	}
}

func TestStoreConfig(t *testing.T) {
	cfg := &config.Config{
		Storage: config.StorageConfig{
			Backend: "sqlite", SelectBatchSize: 64, IndexData: true, VectorDimensions: 768,
		},
	}
	sc := cfg.StoreConfig()
	assert.Equal(t, "sqlite", sc.Backend)
	assert.Equal(t, 64, sc.SelectBatchSize)
	assert.True(t, sc.IndexData)
	assert.Equal(t, 768, sc.VectorDimensions)
}
