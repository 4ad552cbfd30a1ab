// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quiver Contributors

package graph

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is the root isolation scope. Every other entity belongs to
// exactly one tenant, and every query the engine runs is tenant-scoped.
type Tenant struct {
	GUID          uuid.UUID
	Name          string
	Active        bool
	CreatedUtc    time.Time
	LastUpdateUtc time.Time
}

// User is an administrative principal scoped to a tenant. Users are not
// traversed by the graph engine; they exist so credentials can be
// validated against a real account before creation.
type User struct {
	GUID          uuid.UUID
	TenantGUID    uuid.UUID
	FirstName     string
	LastName      string
	Email         string
	Password      string
	Active        bool
	CreatedUtc    time.Time
	LastUpdateUtc time.Time
}

// Credential maps a bearer token to a user within a tenant.
type Credential struct {
	GUID          uuid.UUID
	TenantGUID    uuid.UUID
	UserGUID      uuid.UUID
	Name          string
	BearerToken   string
	Active        bool
	CreatedUtc    time.Time
	LastUpdateUtc time.Time
}

// Graph is a named, tenant-scoped container of nodes and edges with an
// opaque JSON data payload.
type Graph struct {
	GUID          uuid.UUID
	TenantGUID    uuid.UUID
	Name          string
	Data          map[string]any
	Labels        []string
	Tags          map[string]string
	Vectors       []*VectorMetadata
	CreatedUtc    time.Time
	LastUpdateUtc time.Time
}

// Node is a vertex owned by exactly one graph.
type Node struct {
	GUID          uuid.UUID
	TenantGUID    uuid.UUID
	GraphGUID     uuid.UUID
	Name          string
	Data          map[string]any
	Labels        []string
	Tags          map[string]string
	Vectors       []*VectorMetadata
	CreatedUtc    time.Time
	LastUpdateUtc time.Time
}

// Edge is a directed, non-negatively costed connection between two nodes
// in the same graph.
type Edge struct {
	GUID          uuid.UUID
	TenantGUID    uuid.UUID
	GraphGUID     uuid.UUID
	Name          string
	From          uuid.UUID
	To            uuid.UUID
	Cost          int
	Data          map[string]any
	Labels        []string
	Tags          map[string]string
	Vectors       []*VectorMetadata
	CreatedUtc    time.Time
	LastUpdateUtc time.Time
}

// Tag is a key/value annotation attached to a tenant and optionally
// scoped further to a graph, node, or edge. Tags double as join-filter
// predicates during enumeration.
type Tag struct {
	GUID          uuid.UUID
	TenantGUID    uuid.UUID
	GraphGUID     *uuid.UUID
	NodeGUID      *uuid.UUID
	EdgeGUID      *uuid.UUID
	Key           string
	Value         string
	CreatedUtc    time.Time
	LastUpdateUtc time.Time
}

// Label is a string marker with the same optional scoping as Tag, used
// for categorical filtering.
type Label struct {
	GUID          uuid.UUID
	TenantGUID    uuid.UUID
	GraphGUID     *uuid.UUID
	NodeGUID      *uuid.UUID
	EdgeGUID      *uuid.UUID
	Label         string
	CreatedUtc    time.Time
	LastUpdateUtc time.Time
}

// VectorMetadata is an embedding record optionally scoped to a graph,
// node, or edge. The engine stores and cascades these records; the
// similarity computation over them lives outside this core.
type VectorMetadata struct {
	GUID           uuid.UUID
	TenantGUID     uuid.UUID
	GraphGUID      *uuid.UUID
	NodeGUID       *uuid.UUID
	EdgeGUID       *uuid.UUID
	Model          string
	Dimensionality int
	Content        string
	Vectors        []float32
	CreatedUtc     time.Time
	LastUpdateUtc  time.Time
}

// RouteDetail is an ordered sequence of edges connecting a source node
// to a target node.
type RouteDetail struct {
	Edges []*Edge
}

// TotalCost sums the cost of every edge on the route.
func (r *RouteDetail) TotalCost() int {
	total := 0
	for _, e := range r.Edges {
		total += e.Cost
	}
	return total
}

// EdgeBetween names a (from, to) node pair for batch existence checks.
type EdgeBetween struct {
	From uuid.UUID
	To   uuid.UUID
}

// ExistenceRequest names up to three disjoint candidate sets to check in
// a single round trip: node GUIDs, edge GUIDs, and (from, to) node pairs.
type ExistenceRequest struct {
	Nodes        []uuid.UUID
	Edges        []uuid.UUID
	EdgesBetween []EdgeBetween
}

// Empty reports whether the request names no candidates at all.
func (r *ExistenceRequest) Empty() bool {
	return r == nil || (len(r.Nodes) == 0 && len(r.Edges) == 0 && len(r.EdgesBetween) == 0)
}

// ExistenceResult partitions each requested set into existing and missing.
type ExistenceResult struct {
	ExistingNodes        []uuid.UUID
	MissingNodes         []uuid.UUID
	ExistingEdges        []uuid.UUID
	MissingEdges         []uuid.UUID
	ExistingEdgesBetween []EdgeBetween
	MissingEdgesBetween  []EdgeBetween
}

// TenantStatistics aggregates per-tenant object counts.
type TenantStatistics struct {
	Graphs  int
	Nodes   int
	Edges   int
	Labels  int
	Tags    int
	Vectors int
}

// GraphStatistics aggregates per-graph object counts.
type GraphStatistics struct {
	Nodes   int
	Edges   int
	Labels  int
	Tags    int
	Vectors int
}
