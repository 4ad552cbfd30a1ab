// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quiver Contributors

package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/quiver-db/quiver/graph"
)

// Scope narrows a tag, label, or vector operation to a graph and, via
// the GUID lists, to many nodes and edges in one call. A nil GraphGUID
// with empty lists addresses tenant-level records.
type Scope struct {
	GraphGUID *uuid.UUID
	NodeGUIDs []uuid.UUID
	EdgeGUIDs []uuid.UUID
}

// TagStore manages key/value annotations.
type TagStore interface {
	Create(ctx context.Context, tag *graph.Tag) (*graph.Tag, error)
	CreateMany(ctx context.Context, tenantGUID uuid.UUID, tags []*graph.Tag) ([]*graph.Tag, error)
	ReadByGUID(ctx context.Context, tenantGUID, guid uuid.UUID) (*graph.Tag, error)
	ReadMany(ctx context.Context, tenantGUID uuid.UUID, scope Scope, order graph.EnumerationOrder, skip int) Seq[*graph.Tag]
	Update(ctx context.Context, tag *graph.Tag) (*graph.Tag, error)
	Delete(ctx context.Context, tenantGUID, guid uuid.UUID) error
	DeleteMany(ctx context.Context, tenantGUID uuid.UUID, guids []uuid.UUID) error
	// DeleteScoped prunes every tag matching the scope; the cascade
	// paths use it to clear metadata for many entities in one call.
	DeleteScoped(ctx context.Context, tenantGUID uuid.UUID, scope Scope) error
	Exists(ctx context.Context, tenantGUID, guid uuid.UUID) (bool, error)
}

// LabelStore manages string markers with the same scoping as tags.
type LabelStore interface {
	Create(ctx context.Context, label *graph.Label) (*graph.Label, error)
	CreateMany(ctx context.Context, tenantGUID uuid.UUID, labels []*graph.Label) ([]*graph.Label, error)
	ReadByGUID(ctx context.Context, tenantGUID, guid uuid.UUID) (*graph.Label, error)
	ReadMany(ctx context.Context, tenantGUID uuid.UUID, scope Scope, order graph.EnumerationOrder, skip int) Seq[*graph.Label]
	Update(ctx context.Context, label *graph.Label) (*graph.Label, error)
	Delete(ctx context.Context, tenantGUID, guid uuid.UUID) error
	DeleteMany(ctx context.Context, tenantGUID uuid.UUID, guids []uuid.UUID) error
	DeleteScoped(ctx context.Context, tenantGUID uuid.UUID, scope Scope) error
	Exists(ctx context.Context, tenantGUID, guid uuid.UUID) (bool, error)
}

// VectorStore manages embedding records. Similarity search over them is
// an external collaborator's concern; this contract only defines the
// storage, cascade, and enumeration surface.
type VectorStore interface {
	Create(ctx context.Context, vec *graph.VectorMetadata) (*graph.VectorMetadata, error)
	CreateMany(ctx context.Context, tenantGUID uuid.UUID, vecs []*graph.VectorMetadata) ([]*graph.VectorMetadata, error)
	ReadByGUID(ctx context.Context, tenantGUID, guid uuid.UUID) (*graph.VectorMetadata, error)
	ReadMany(ctx context.Context, tenantGUID uuid.UUID, scope Scope, order graph.EnumerationOrder, skip int) Seq[*graph.VectorMetadata]
	Update(ctx context.Context, vec *graph.VectorMetadata) (*graph.VectorMetadata, error)
	Delete(ctx context.Context, tenantGUID, guid uuid.UUID) error
	DeleteMany(ctx context.Context, tenantGUID uuid.UUID, guids []uuid.UUID) error
	DeleteScoped(ctx context.Context, tenantGUID uuid.UUID, scope Scope) error
	Exists(ctx context.Context, tenantGUID, guid uuid.UUID) (bool, error)
}
