// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quiver Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/quiver-db/quiver/graph"
	quiverr "github.com/quiver-db/quiver/pkg/errors"
	"github.com/quiver-db/quiver/store"
)

// Compile-time interface check.
var _ store.EdgeStore = (*edgeStore)(nil)

type edgeStore struct {
	c *Client
}

const edgeCols = `id, tenant_id, graph_id, name, from_id, to_id, cost, data, created_utc, lastupdate_utc`

// Create inserts an edge. Both endpoint nodes must already be stored
// in the same graph.
func (s *edgeStore) Create(ctx context.Context, e *graph.Edge) (*graph.Edge, error) {
	if e == nil {
		return nil, quiverr.New(quiverr.CodeStoreInvalidInput, "edge: record is required")
	}
	if e.GUID == uuid.Nil {
		e.GUID = uuid.New()
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	if err := s.c.requireGraph(ctx, e.TenantGUID, e.GraphGUID); err != nil {
		return nil, err
	}

	data, err := marshalData(e.Data)
	if err != nil {
		return nil, err
	}

	tx, done, err := s.c.beginWrite(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	existing, err := s.readTx(ctx, tx, e.TenantGUID, e.GraphGUID, e.GUID)
	if err != nil && !quiverr.IsNotFound(err) {
		return nil, err
	}
	if existing != nil {
		return s.withAttached(ctx, existing)
	}

	if err := requireEndpoints(ctx, tx, e.TenantGUID, e.GraphGUID, e); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	e.CreatedUtc = now
	e.LastUpdateUtc = now

	if err := s.insertTx(ctx, tx, e, data, now); err != nil {
		return nil, err
	}

	if err := commit(tx, "edge create"); err != nil {
		return nil, err
	}
	return e, nil
}

// requireEndpoints verifies that every From and To node of the given
// edges is stored in the graph, so no dangling reference can be
// written.
func requireEndpoints(ctx context.Context, tx *sql.Tx, tenantGUID, graphGUID uuid.UUID, edges ...*graph.Edge) error {
	seen := make(map[uuid.UUID]bool, 2*len(edges))
	var guids []uuid.UUID
	for _, e := range edges {
		for _, g := range [2]uuid.UUID{e.From, e.To} {
			if !seen[g] {
				seen[g] = true
				guids = append(guids, g)
			}
		}
	}

	found, err := existingGUIDs(ctx, tx, "nodes", tenantGUID, graphGUID, guids)
	if err != nil {
		return err
	}
	stored := make(map[uuid.UUID]bool, len(found))
	for _, g := range found {
		stored[g] = true
	}
	for _, g := range guids {
		if !stored[g] {
			return quiverr.New(quiverr.CodeStoreNodeNotFound,
				"edge endpoint node "+g.String()+" not found",
				quiverr.FieldNodeID(g.String()))
		}
	}
	return nil
}

// CreateMany inserts a batch in one transaction. Any GUID collision
// with stored rows rejects the whole batch before anything is written.
func (s *edgeStore) CreateMany(ctx context.Context, tenantGUID, graphGUID uuid.UUID, edges []*graph.Edge) ([]*graph.Edge, error) {
	if len(edges) == 0 {
		return nil, nil
	}
	if err := s.c.requireGraph(ctx, tenantGUID, graphGUID); err != nil {
		return nil, err
	}

	guids := make([]uuid.UUID, 0, len(edges))
	payloads := make([]string, len(edges))
	for i, e := range edges {
		if e == nil {
			return nil, quiverr.New(quiverr.CodeStoreInvalidInput, "edge: record is required")
		}
		if e.GUID == uuid.Nil {
			e.GUID = uuid.New()
		}
		e.TenantGUID = tenantGUID
		e.GraphGUID = graphGUID
		if err := e.Validate(); err != nil {
			return nil, err
		}
		data, err := marshalData(e.Data)
		if err != nil {
			return nil, err
		}
		guids = append(guids, e.GUID)
		payloads[i] = data
	}

	tx, done, err := s.c.beginWrite(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	conflicts, err := existingGUIDs(ctx, tx, "edges", tenantGUID, graphGUID, guids)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, quiverr.New(quiverr.CodeStoreBatchConflict,
			"batch rejected: "+strconv.Itoa(len(conflicts))+" edge GUID(s) already exist",
			quiverr.FieldGraphID(graphGUID.String()))
	}
	if err := requireEndpoints(ctx, tx, tenantGUID, graphGUID, edges...); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for i, e := range edges {
		e.CreatedUtc = now
		e.LastUpdateUtc = now
		if err := s.insertTx(ctx, tx, e, payloads[i], now); err != nil {
			return nil, err
		}
	}

	if err := commit(tx, "edge batch create"); err != nil {
		return nil, err
	}
	return edges, nil
}

func (s *edgeStore) insertTx(ctx context.Context, tx *sql.Tx, e *graph.Edge, data string, now time.Time) error {
	const q = `INSERT INTO edges (` + edgeCols + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if err := execTx(ctx, tx, q,
		e.GUID.String(), e.TenantGUID.String(), e.GraphGUID.String(), e.Name,
		e.From.String(), e.To.String(), e.Cost, data,
		formatTime(now), formatTime(now),
	); err != nil {
		return err
	}
	return s.c.insertAttached(ctx, tx, e.TenantGUID, edgeScope(e.GraphGUID, e.GUID), e.Labels, e.Tags, e.Vectors, now)
}

func (s *edgeStore) ReadByGUID(ctx context.Context, tenantGUID, graphGUID, guid uuid.UUID) (*graph.Edge, error) {
	const q = `SELECT ` + edgeCols + ` FROM edges WHERE tenant_id = ? AND graph_id = ? AND id = ?`
	e, err := scanEdgeRow(s.c.db.QueryRowContext(ctx, q, tenantGUID.String(), graphGUID.String(), guid.String()), guid)
	if err != nil {
		return nil, err
	}
	return s.withAttached(ctx, e)
}

func (s *edgeStore) readTx(ctx context.Context, tx *sql.Tx, tenantGUID, graphGUID, guid uuid.UUID) (*graph.Edge, error) {
	const q = `SELECT ` + edgeCols + ` FROM edges WHERE tenant_id = ? AND graph_id = ? AND id = ?`
	return scanEdgeRow(tx.QueryRowContext(ctx, q, tenantGUID.String(), graphGUID.String(), guid.String()), guid)
}

func (s *edgeStore) ReadFirst(ctx context.Context, tenantGUID, graphGUID uuid.UUID, filter store.Filter) (*graph.Edge, error) {
	edges, err := s.page(ctx, tenantGUID, filter, "e.tenant_id = ? AND e.graph_id = ?",
		[]any{tenantGUID.String(), graphGUID.String()}, filter.Skip, 1)
	if err != nil {
		return nil, err
	}
	if len(edges) == 0 {
		return nil, quiverr.New(quiverr.CodeStoreEdgeNotFound, "no edge matches the filter")
	}
	return s.withAttached(ctx, edges[0])
}

func (s *edgeStore) ReadMany(ctx context.Context, tenantGUID, graphGUID uuid.UUID, filter store.Filter) store.Seq[*graph.Edge] {
	return s.enumerateEdges(ctx, tenantGUID, filter, "e.tenant_id = ? AND e.graph_id = ?",
		[]any{tenantGUID.String(), graphGUID.String()})
}

func (s *edgeStore) enumerateEdges(ctx context.Context, tenantGUID uuid.UUID, filter store.Filter, baseWhere string, baseArgs []any) store.Seq[*graph.Edge] {
	return enumerate(s.c.batchSize, filter.Skip, func(offset, limit int) ([]*graph.Edge, error) {
		edges, err := s.page(ctx, tenantGUID, filter, baseWhere, baseArgs, offset, limit)
		if err != nil {
			return nil, err
		}
		for i, e := range edges {
			if edges[i], err = s.withAttached(ctx, e); err != nil {
				return nil, err
			}
		}
		return edges, nil
	})
}

func (s *edgeStore) page(ctx context.Context, tenantGUID uuid.UUID, filter store.Filter,
	baseWhere string, baseArgs []any, offset, limit int) ([]*graph.Edge, error) {

	q, args, err := buildFilteredSelect(
		"e.id, e.tenant_id, e.graph_id, e.name, e.from_id, e.to_id, e.cost, e.data, e.created_utc, e.lastupdate_utc",
		"edges", "e", "edge_id", true,
		baseWhere, baseArgs,
		filterParams{Labels: filter.Labels, Tags: filter.Tags, Expr: filter.Expr, Order: filter.Order, Limit: limit, Offset: offset},
	)
	if err != nil {
		return nil, err
	}

	rows, err := s.c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "listing edges: %w", err)
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

func (s *edgeStore) withAttached(ctx context.Context, e *graph.Edge) (*graph.Edge, error) {
	labels, tags, vectors, err := s.c.loadAttached(ctx, e.TenantGUID, edgeScope(e.GraphGUID, e.GUID))
	if err != nil {
		return nil, err
	}
	e.Labels, e.Tags, e.Vectors = labels, tags, vectors
	return e, nil
}

func scanEdgeRow(row *sql.Row, guid uuid.UUID) (*graph.Edge, error) {
	var e graph.Edge
	var data, created, updated string
	err := row.Scan(&e.GUID, &e.TenantGUID, &e.GraphGUID, &e.Name, &e.From, &e.To, &e.Cost, &data, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, quiverr.New(quiverr.CodeStoreEdgeNotFound, "edge "+guid.String()+" not found",
			quiverr.FieldEdgeID(guid.String()))
	}
	if err != nil {
		return nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "getting edge %s: %w", guid, err)
	}
	if e.Data, err = unmarshalData(data); err != nil {
		return nil, err
	}
	e.CreatedUtc = parseTime(created)
	e.LastUpdateUtc = parseTime(updated)
	return &e, nil
}

func scanEdgeRows(rows *sql.Rows) (*graph.Edge, error) {
	var e graph.Edge
	var data, created, updated string
	if err := rows.Scan(&e.GUID, &e.TenantGUID, &e.GraphGUID, &e.Name, &e.From, &e.To, &e.Cost, &data, &created, &updated); err != nil {
		return nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "scanning edge row: %w", err)
	}
	var err error
	if e.Data, err = unmarshalData(data); err != nil {
		return nil, err
	}
	e.CreatedUtc = parseTime(created)
	e.LastUpdateUtc = parseTime(updated)
	return &e, nil
}

// Update rewrites the row and replaces all attached metadata with
// whatever the record carries.
func (s *edgeStore) Update(ctx context.Context, e *graph.Edge) (*graph.Edge, error) {
	if e == nil {
		return nil, quiverr.New(quiverr.CodeStoreInvalidInput, "edge: record is required")
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}

	data, err := marshalData(e.Data)
	if err != nil {
		return nil, err
	}

	tx, done, err := s.c.beginWrite(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	existing, err := s.readTx(ctx, tx, e.TenantGUID, e.GraphGUID, e.GUID)
	if err != nil {
		return nil, err
	}
	if err := requireEndpoints(ctx, tx, e.TenantGUID, e.GraphGUID, e); err != nil {
		return nil, err
	}

	e.CreatedUtc = existing.CreatedUtc
	e.LastUpdateUtc = time.Now().UTC()

	const q = `UPDATE edges SET name = ?, from_id = ?, to_id = ?, cost = ?, data = ?, lastupdate_utc = ?
WHERE tenant_id = ? AND graph_id = ? AND id = ?`
	if err := execTx(ctx, tx, q, e.Name, e.From.String(), e.To.String(), e.Cost, data,
		formatTime(e.LastUpdateUtc), e.TenantGUID.String(), e.GraphGUID.String(), e.GUID.String()); err != nil {
		return nil, err
	}

	if err := s.c.deleteOwnAttached(ctx, tx, e.TenantGUID, edgeScope(e.GraphGUID, e.GUID)); err != nil {
		return nil, err
	}
	if err := s.c.insertAttached(ctx, tx, e.TenantGUID, edgeScope(e.GraphGUID, e.GUID), e.Labels, e.Tags, e.Vectors, e.LastUpdateUtc); err != nil {
		return nil, err
	}

	if err := commit(tx, "edge update"); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *edgeStore) Delete(ctx context.Context, tenantGUID, graphGUID, guid uuid.UUID) error {
	tx, done, err := s.c.beginWrite(ctx)
	if err != nil {
		return err
	}
	defer done()

	if _, err := s.readTx(ctx, tx, tenantGUID, graphGUID, guid); err != nil {
		return err
	}
	if err := s.deleteTx(ctx, tx, tenantGUID, graphGUID, []uuid.UUID{guid}); err != nil {
		return err
	}

	return commit(tx, "edge delete")
}

func (s *edgeStore) DeleteMany(ctx context.Context, tenantGUID, graphGUID uuid.UUID, guids []uuid.UUID) error {
	if len(guids) == 0 {
		return nil
	}

	tx, done, err := s.c.beginWrite(ctx)
	if err != nil {
		return err
	}
	defer done()

	if err := s.deleteTx(ctx, tx, tenantGUID, graphGUID, guids); err != nil {
		return err
	}

	return commit(tx, "edge batch delete")
}

func (s *edgeStore) deleteTx(ctx context.Context, tx *sql.Tx, tenantGUID, graphGUID uuid.UUID, guids []uuid.UUID) error {
	if err := s.c.deleteAttached(ctx, tx, tenantGUID, "edge_id", guids); err != nil {
		return err
	}
	ph := placeholders(len(guids))
	args := append([]any{tenantGUID.String(), graphGUID.String()}, guidArgs(guids)...)
	return execTx(ctx, tx, `DELETE FROM edges WHERE tenant_id = ? AND graph_id = ? AND id IN (`+ph+`)`, args...)
}

func (s *edgeStore) Exists(ctx context.Context, tenantGUID, graphGUID, guid uuid.UUID) (bool, error) {
	return s.c.exists(ctx, `SELECT 1 FROM edges WHERE tenant_id = ? AND graph_id = ? AND id = ?`,
		tenantGUID.String(), graphGUID.String(), guid.String())
}

func (s *edgeStore) GetConnectedEdges(ctx context.Context, tenantGUID, graphGUID, nodeGUID uuid.UUID, filter store.Filter) store.Seq[*graph.Edge] {
	base := `e.tenant_id = ? AND e.graph_id = ? AND (e.from_id = ? OR e.to_id = ?)`
	nid := nodeGUID.String()
	return s.enumerateEdges(ctx, tenantGUID, filter, base,
		[]any{tenantGUID.String(), graphGUID.String(), nid, nid})
}

func (s *edgeStore) GetEdgesFrom(ctx context.Context, tenantGUID, graphGUID, nodeGUID uuid.UUID, filter store.Filter) store.Seq[*graph.Edge] {
	base := `e.tenant_id = ? AND e.graph_id = ? AND e.from_id = ?`
	return s.enumerateEdges(ctx, tenantGUID, filter, base,
		[]any{tenantGUID.String(), graphGUID.String(), nodeGUID.String()})
}

func (s *edgeStore) GetEdgesTo(ctx context.Context, tenantGUID, graphGUID, nodeGUID uuid.UUID, filter store.Filter) store.Seq[*graph.Edge] {
	base := `e.tenant_id = ? AND e.graph_id = ? AND e.to_id = ?`
	return s.enumerateEdges(ctx, tenantGUID, filter, base,
		[]any{tenantGUID.String(), graphGUID.String(), nodeGUID.String()})
}

func (s *edgeStore) GetEdgesBetween(ctx context.Context, tenantGUID, graphGUID, fromGUID, toGUID uuid.UUID, filter store.Filter) store.Seq[*graph.Edge] {
	base := `e.tenant_id = ? AND e.graph_id = ? AND e.from_id = ? AND e.to_id = ?`
	return s.enumerateEdges(ctx, tenantGUID, filter, base,
		[]any{tenantGUID.String(), graphGUID.String(), fromGUID.String(), toGUID.String()})
}
