// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quiver Contributors

package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/quiver-db/quiver/graph"
)

// GraphStore manages graph containers.
type GraphStore interface {
	// Create inserts a graph, validating the owning tenant first.
	// Re-submitting a GUID that already exists returns the stored row
	// unchanged (at-most-once semantics for retried creates).
	Create(ctx context.Context, g *graph.Graph) (*graph.Graph, error)
	ReadByGUID(ctx context.Context, tenantGUID, guid uuid.UUID) (*graph.Graph, error)
	ReadByName(ctx context.Context, tenantGUID uuid.UUID, name string) (*graph.Graph, error)
	ReadFirst(ctx context.Context, tenantGUID uuid.UUID, filter Filter) (*graph.Graph, error)
	ReadMany(ctx context.Context, tenantGUID uuid.UUID, filter Filter) Seq[*graph.Graph]
	Update(ctx context.Context, g *graph.Graph) (*graph.Graph, error)
	// Delete removes a graph. With force, all nodes (and transitively
	// their edges and metadata) are cascaded first; without it, a
	// non-empty graph is rejected.
	Delete(ctx context.Context, tenantGUID, guid uuid.UUID, force bool) error
	Exists(ctx context.Context, tenantGUID, guid uuid.UUID) (bool, error)
	Statistics(ctx context.Context, tenantGUID, guid uuid.UUID) (*graph.GraphStatistics, error)
}

// NodeStore manages vertices and their structural lookups.
type NodeStore interface {
	Create(ctx context.Context, n *graph.Node) (*graph.Node, error)
	// CreateMany inserts a batch atomically. If any GUID already
	// exists the whole batch is rejected and nothing is inserted.
	CreateMany(ctx context.Context, tenantGUID, graphGUID uuid.UUID, nodes []*graph.Node) ([]*graph.Node, error)
	ReadByGUID(ctx context.Context, tenantGUID, graphGUID, guid uuid.UUID) (*graph.Node, error)
	ReadFirst(ctx context.Context, tenantGUID, graphGUID uuid.UUID, filter Filter) (*graph.Node, error)
	ReadMany(ctx context.Context, tenantGUID, graphGUID uuid.UUID, filter Filter) Seq[*graph.Node]
	Update(ctx context.Context, n *graph.Node) (*graph.Node, error)
	// Delete cascades the node's incident edges (and their tags,
	// labels, and vectors) before removing the node row.
	Delete(ctx context.Context, tenantGUID, graphGUID, guid uuid.UUID) error
	DeleteMany(ctx context.Context, tenantGUID, graphGUID uuid.UUID, guids []uuid.UUID) error
	// DeleteAll removes every node in the graph with the same cascade.
	DeleteAll(ctx context.Context, tenantGUID, graphGUID uuid.UUID) error
	Exists(ctx context.Context, tenantGUID, graphGUID, guid uuid.UUID) (bool, error)

	// GetParents returns nodes with an edge pointing at the given node.
	GetParents(ctx context.Context, tenantGUID, graphGUID, nodeGUID uuid.UUID, filter Filter) Seq[*graph.Node]
	// GetChildren returns nodes the given node points at.
	GetChildren(ctx context.Context, tenantGUID, graphGUID, nodeGUID uuid.UUID, filter Filter) Seq[*graph.Node]
	// GetNeighbors returns parents and children, deduplicated.
	GetNeighbors(ctx context.Context, tenantGUID, graphGUID, nodeGUID uuid.UUID, filter Filter) Seq[*graph.Node]
}

// EdgeStore manages directed connections and edge-centric lookups.
type EdgeStore interface {
	Create(ctx context.Context, e *graph.Edge) (*graph.Edge, error)
	CreateMany(ctx context.Context, tenantGUID, graphGUID uuid.UUID, edges []*graph.Edge) ([]*graph.Edge, error)
	ReadByGUID(ctx context.Context, tenantGUID, graphGUID, guid uuid.UUID) (*graph.Edge, error)
	ReadFirst(ctx context.Context, tenantGUID, graphGUID uuid.UUID, filter Filter) (*graph.Edge, error)
	ReadMany(ctx context.Context, tenantGUID, graphGUID uuid.UUID, filter Filter) Seq[*graph.Edge]
	Update(ctx context.Context, e *graph.Edge) (*graph.Edge, error)
	Delete(ctx context.Context, tenantGUID, graphGUID, guid uuid.UUID) error
	DeleteMany(ctx context.Context, tenantGUID, graphGUID uuid.UUID, guids []uuid.UUID) error
	Exists(ctx context.Context, tenantGUID, graphGUID, guid uuid.UUID) (bool, error)

	// GetConnectedEdges returns edges touching the node in either direction.
	GetConnectedEdges(ctx context.Context, tenantGUID, graphGUID, nodeGUID uuid.UUID, filter Filter) Seq[*graph.Edge]
	GetEdgesFrom(ctx context.Context, tenantGUID, graphGUID, nodeGUID uuid.UUID, filter Filter) Seq[*graph.Edge]
	GetEdgesTo(ctx context.Context, tenantGUID, graphGUID, nodeGUID uuid.UUID, filter Filter) Seq[*graph.Edge]
	GetEdgesBetween(ctx context.Context, tenantGUID, graphGUID, fromGUID, toGUID uuid.UUID, filter Filter) Seq[*graph.Edge]
}

// RouteReader enumerates simple paths between two nodes.
type RouteReader interface {
	// GetRoutes returns every simple path from fromGUID to toGUID.
	// Results are unordered; callers wanting shortest-first sort by
	// RouteDetail.TotalCost. The edge filter's expression, labels, and
	// tags constrain which edges are traversed (its order and
	// pagination fields are ignored); the node filter constrains which
	// intermediate nodes are admitted.
	GetRoutes(ctx context.Context, tenantGUID, graphGUID, fromGUID, toGUID uuid.UUID, edgeFilter Filter, nodeFilter *graph.Expr) ([]*graph.RouteDetail, error)
}

// BatchStore answers bulk existence checks in one round trip, so
// callers can validate large creation requests without one query per
// candidate.
type BatchStore interface {
	Existence(ctx context.Context, tenantGUID, graphGUID uuid.UUID, req *graph.ExistenceRequest) (*graph.ExistenceResult, error)
}
