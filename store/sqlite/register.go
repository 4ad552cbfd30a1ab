// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quiver Contributors

package sqlite

import (
	"github.com/quiver-db/quiver/store"
)

func init() {
	store.RegisterBackend("sqlite", func(cfg *store.StorageConfig, path string) (store.Client, error) {
		return NewClient(cfg, path)
	})
}
