// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quiver Contributors

package store

import (
	"sync"

	quiverr "github.com/quiver-db/quiver/pkg/errors"
)

// ClientFactory creates a Client for a database file path.
type ClientFactory func(cfg *StorageConfig, path string) (Client, error)

var (
	factories   = map[string]ClientFactory{}
	factoriesMu sync.RWMutex
)

// RegisterBackend registers a factory for a named storage backend.
// Backend packages call this from init(). Goroutine-safe.
func RegisterBackend(name string, factory ClientFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = factory
}

// resolveBackend returns the effective backend name, defaulting to "sqlite".
func resolveBackend(cfg *StorageConfig) string {
	if cfg == nil || cfg.Backend == "" {
		return "sqlite"
	}
	return cfg.Backend
}

// Open creates a Client for the configured backend at the given path.
func Open(cfg *StorageConfig, path string) (Client, error) {
	backend := resolveBackend(cfg)

	factoriesMu.RLock()
	factory, ok := factories[backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, quiverr.Errorf(quiverr.CodeStoreBackendUnsupported, "unsupported storage backend: %q", backend)
	}

	if cfg == nil {
		cfg = &StorageConfig{}
	}
	return factory(cfg, path)
}
