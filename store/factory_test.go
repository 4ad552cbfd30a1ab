// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quiver Contributors

package store_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	quiverr "github.com/quiver-db/quiver/pkg/errors"
	"github.com/quiver-db/quiver/store"
	_ "github.com/quiver-db/quiver/store/sqlite"
)

func TestOpenDefaultsToSQLite(t *testing.T) {
	c, err := store.Open(nil, filepath.Join(t.TempDir(), "open.db"))
	require.NoError(t, err)
	require.NoError(t, c.Close())
}

func TestOpenNamedBackend(t *testing.T) {
	c, err := store.Open(&store.StorageConfig{Backend: "sqlite"}, filepath.Join(t.TempDir(), "named.db"))
	require.NoError(t, err)
	require.NoError(t, c.Close())
}

func TestOpenUnsupportedBackend(t *testing.T) {
	_, err := store.Open(&store.StorageConfig{Backend: "postgres"}, "ignored")
	assert.True(t, quiverr.HasCode(err, quiverr.CodeStoreBackendUnsupported))
}
