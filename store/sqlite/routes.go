// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quiver Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/quiver-db/quiver/graph"
	quiverr "github.com/quiver-db/quiver/pkg/errors"
	"github.com/quiver-db/quiver/store"
)

// Compile-time interface check.
var _ store.RouteReader = (*routeReader)(nil)

type routeReader struct {
	c *Client
}

// GetRoutes enumerates every simple path from fromGUID to toGUID by
// depth-first search. Reaching the destination emits a route and the
// search continues through sibling edges, so all simple paths are
// found, not just the first. Results are unordered.
func (r *routeReader) GetRoutes(ctx context.Context, tenantGUID, graphGUID, fromGUID, toGUID uuid.UUID,
	edgeFilter store.Filter, nodeFilter *graph.Expr) ([]*graph.RouteDetail, error) {

	if err := r.requireRouteArgs(ctx, tenantGUID, graphGUID, fromGUID, toGUID); err != nil {
		return nil, err
	}

	// Surface a malformed edge expression before the walk starts.
	if _, err := compileExpr(edgeFilter.Expr, "data"); err != nil {
		return nil, err
	}
	nodeCond, err := compileExpr(nodeFilter, "data")
	if err != nil {
		return nil, err
	}

	w := &routeWalk{
		r:          r,
		ctx:        ctx,
		tenant:     tenantGUID,
		graph:      graphGUID,
		target:     toGUID,
		edgeFilter: edgeFilter,
		nodeCond:   nodeCond,
		visited:    map[uuid.UUID]bool{fromGUID: true},
	}
	if err := w.walk(fromGUID, nil); err != nil {
		return nil, err
	}
	return w.routes, nil
}

func (r *routeReader) requireRouteArgs(ctx context.Context, tenantGUID, graphGUID, fromGUID, toGUID uuid.UUID) error {
	if err := r.c.requireGraph(ctx, tenantGUID, graphGUID); err != nil {
		if quiverr.IsNotFound(err) {
			return quiverr.New(quiverr.CodeRouteArgumentInvalid,
				"graph "+graphGUID.String()+" does not exist",
				quiverr.FieldGraphID(graphGUID.String()))
		}
		return err
	}
	for _, probe := range []struct {
		guid uuid.UUID
		role string
	}{
		{fromGUID, "source"},
		{toGUID, "target"},
	} {
		ok, err := r.c.exists(ctx, `SELECT 1 FROM nodes WHERE tenant_id = ? AND graph_id = ? AND id = ?`,
			tenantGUID.String(), graphGUID.String(), probe.guid.String())
		if err != nil {
			return err
		}
		if !ok {
			return quiverr.New(quiverr.CodeRouteArgumentInvalid,
				probe.role+" node "+probe.guid.String()+" does not exist",
				quiverr.FieldNodeID(probe.guid.String()))
		}
	}
	return nil
}

// routeWalk carries the state of one depth-first traversal.
type routeWalk struct {
	r          *routeReader
	ctx        context.Context
	tenant     uuid.UUID
	graph      uuid.UUID
	target     uuid.UUID
	edgeFilter store.Filter
	nodeCond   whereClause
	visited    map[uuid.UUID]bool
	routes     []*graph.RouteDetail
}

func (w *routeWalk) walk(current uuid.UUID, path []*graph.Edge) error {
	edges, err := w.outboundEdges(current)
	if err != nil {
		return err
	}

	for _, edge := range edges {
		if edge.To == w.target {
			route := &graph.RouteDetail{Edges: make([]*graph.Edge, 0, len(path)+1)}
			route.Edges = append(append(route.Edges, path...), edge)
			w.routes = append(w.routes, route)
			continue
		}
		if w.visited[edge.To] {
			continue
		}

		admitted, err := w.admitNode(edge.To)
		if err != nil {
			return err
		}
		if !admitted {
			continue
		}

		w.visited[edge.To] = true
		if err := w.walk(edge.To, append(path, edge)); err != nil {
			return err
		}
		delete(w.visited, edge.To)
	}
	return nil
}

// outboundEdges fetches the traversable edges leaving a node, newest
// first, applying the caller's edge expression, labels, and tags.
// LIMIT -1 disables the page cap: the walk needs every sibling edge.
func (w *routeWalk) outboundEdges(nodeGUID uuid.UUID) ([]*graph.Edge, error) {
	q, args, err := buildFilteredSelect(
		"e.id, e.tenant_id, e.graph_id, e.name, e.from_id, e.to_id, e.cost, e.data, e.created_utc, e.lastupdate_utc",
		"edges", "e", "edge_id", true,
		"e.tenant_id = ? AND e.graph_id = ? AND e.from_id = ?",
		[]any{w.tenant.String(), w.graph.String(), nodeGUID.String()},
		filterParams{Labels: w.edgeFilter.Labels, Tags: w.edgeFilter.Tags, Expr: w.edgeFilter.Expr,
			Order: graph.CreatedDescending, Limit: -1},
	)
	if err != nil {
		return nil, err
	}

	rows, err := w.r.c.db.QueryContext(w.ctx, q, args...)
	if err != nil {
		return nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "fetching outbound edges: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var edges []*graph.Edge
	for rows.Next() {
		e, err := scanEdgeRows(rows)
		if err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// admitNode decides whether a candidate intermediate node can be
// stepped onto. A dangling edge target is logged and treated as a dead
// end rather than an error.
func (w *routeWalk) admitNode(nodeGUID uuid.UUID) (bool, error) {
	q := `SELECT 1 FROM nodes WHERE tenant_id = ? AND graph_id = ? AND id = ?`
	args := []any{w.tenant.String(), w.graph.String(), nodeGUID.String()}
	if !w.nodeCond.empty() {
		q += ` AND ` + w.nodeCond.SQL
		args = append(args, w.nodeCond.Args...)
	}

	var one int
	err := w.r.c.db.QueryRowContext(w.ctx, q, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		if w.nodeCond.empty() {
			w.r.c.logger.Warn("edge references missing node, treating as dead end",
				"tenant", w.tenant.String(), "graph", w.graph.String(), "node", nodeGUID.String())
		}
		return false, nil
	}
	if err != nil {
		return false, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "resolving edge target: %w", err)
	}
	return true, nil
}
