// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quiver Contributors

package store

// StorageConfig controls which backend the store factory uses and how
// the backend paginates and indexes.
type StorageConfig struct {
	Backend string // "sqlite" is the only supported backend for now.

	// SelectBatchSize is the page size lazy enumeration reads per
	// query; 0 uses the default (100).
	SelectBatchSize int

	// IndexData adds an index over the JSON data column of graphs,
	// nodes, and edges at initialization.
	IndexData bool

	// VectorDimensions sizes the embedding mirror table; 0 uses the
	// default (384).
	VectorDimensions int
}

// DefaultSelectBatchSize is the enumeration page size when the config
// leaves SelectBatchSize unset.
const DefaultSelectBatchSize = 100

// DefaultVectorDimensions is the embedding dimension when the config
// leaves VectorDimensions unset.
const DefaultVectorDimensions = 384
