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
var _ store.NodeStore = (*nodeStore)(nil)

type nodeStore struct {
	c *Client
}

const nodeCols = `id, tenant_id, graph_id, name, data, created_utc, lastupdate_utc`

func (s *nodeStore) Create(ctx context.Context, n *graph.Node) (*graph.Node, error) {
	if n == nil {
		return nil, quiverr.New(quiverr.CodeStoreInvalidInput, "node: record is required")
	}
	if n.GUID == uuid.Nil {
		n.GUID = uuid.New()
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	if err := s.c.requireGraph(ctx, n.TenantGUID, n.GraphGUID); err != nil {
		return nil, err
	}

	data, err := marshalData(n.Data)
	if err != nil {
		return nil, err
	}

	tx, done, err := s.c.beginWrite(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	existing, err := s.readTx(ctx, tx, n.TenantGUID, n.GraphGUID, n.GUID)
	if err != nil && !quiverr.IsNotFound(err) {
		return nil, err
	}
	if existing != nil {
		return s.withAttached(ctx, existing)
	}

	now := time.Now().UTC()
	n.CreatedUtc = now
	n.LastUpdateUtc = now

	if err := s.insertTx(ctx, tx, n, data, now); err != nil {
		return nil, err
	}

	if err := commit(tx, "node create"); err != nil {
		return nil, err
	}
	return n, nil
}

// CreateMany inserts a batch in one transaction. Any GUID collision
// with stored rows rejects the whole batch before anything is written.
func (s *nodeStore) CreateMany(ctx context.Context, tenantGUID, graphGUID uuid.UUID, nodes []*graph.Node) ([]*graph.Node, error) {
	if len(nodes) == 0 {
		return nil, nil
	}
	if err := s.c.requireGraph(ctx, tenantGUID, graphGUID); err != nil {
		return nil, err
	}

	guids := make([]uuid.UUID, 0, len(nodes))
	payloads := make([]string, len(nodes))
	for i, n := range nodes {
		if n == nil {
			return nil, quiverr.New(quiverr.CodeStoreInvalidInput, "node: record is required")
		}
		if n.GUID == uuid.Nil {
			n.GUID = uuid.New()
		}
		n.TenantGUID = tenantGUID
		n.GraphGUID = graphGUID
		if err := n.Validate(); err != nil {
			return nil, err
		}
		data, err := marshalData(n.Data)
		if err != nil {
			return nil, err
		}
		guids = append(guids, n.GUID)
		payloads[i] = data
	}

	tx, done, err := s.c.beginWrite(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	conflicts, err := existingGUIDs(ctx, tx, "nodes", tenantGUID, graphGUID, guids)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, quiverr.New(quiverr.CodeStoreBatchConflict,
			"batch rejected: "+strconv.Itoa(len(conflicts))+" node GUID(s) already exist",
			quiverr.FieldGraphID(graphGUID.String()))
	}

	now := time.Now().UTC()
	for i, n := range nodes {
		n.CreatedUtc = now
		n.LastUpdateUtc = now
		if err := s.insertTx(ctx, tx, n, payloads[i], now); err != nil {
			return nil, err
		}
	}

	if err := commit(tx, "node batch create"); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (s *nodeStore) insertTx(ctx context.Context, tx *sql.Tx, n *graph.Node, data string, now time.Time) error {
	const q = `INSERT INTO nodes (` + nodeCols + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	if err := execTx(ctx, tx, q,
		n.GUID.String(), n.TenantGUID.String(), n.GraphGUID.String(), n.Name, data,
		formatTime(now), formatTime(now),
	); err != nil {
		return err
	}
	return s.c.insertAttached(ctx, tx, n.TenantGUID, nodeScope(n.GraphGUID, n.GUID), n.Labels, n.Tags, n.Vectors, now)
}

func (s *nodeStore) ReadByGUID(ctx context.Context, tenantGUID, graphGUID, guid uuid.UUID) (*graph.Node, error) {
	const q = `SELECT ` + nodeCols + ` FROM nodes WHERE tenant_id = ? AND graph_id = ? AND id = ?`
	n, err := scanNodeRow(s.c.db.QueryRowContext(ctx, q, tenantGUID.String(), graphGUID.String(), guid.String()), guid)
	if err != nil {
		return nil, err
	}
	return s.withAttached(ctx, n)
}

func (s *nodeStore) readTx(ctx context.Context, tx *sql.Tx, tenantGUID, graphGUID, guid uuid.UUID) (*graph.Node, error) {
	const q = `SELECT ` + nodeCols + ` FROM nodes WHERE tenant_id = ? AND graph_id = ? AND id = ?`
	return scanNodeRow(tx.QueryRowContext(ctx, q, tenantGUID.String(), graphGUID.String(), guid.String()), guid)
}

func (s *nodeStore) ReadFirst(ctx context.Context, tenantGUID, graphGUID uuid.UUID, filter store.Filter) (*graph.Node, error) {
	nodes, err := s.page(ctx, tenantGUID, filter, "n.tenant_id = ? AND n.graph_id = ?",
		[]any{tenantGUID.String(), graphGUID.String()}, filter.Skip, 1)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, quiverr.New(quiverr.CodeStoreNodeNotFound, "no node matches the filter")
	}
	return s.withAttached(ctx, nodes[0])
}

func (s *nodeStore) ReadMany(ctx context.Context, tenantGUID, graphGUID uuid.UUID, filter store.Filter) store.Seq[*graph.Node] {
	return s.enumerateNodes(ctx, tenantGUID, filter, "n.tenant_id = ? AND n.graph_id = ?",
		[]any{tenantGUID.String(), graphGUID.String()})
}

func (s *nodeStore) enumerateNodes(ctx context.Context, tenantGUID uuid.UUID, filter store.Filter, baseWhere string, baseArgs []any) store.Seq[*graph.Node] {
	return enumerate(s.c.batchSize, filter.Skip, func(offset, limit int) ([]*graph.Node, error) {
		nodes, err := s.page(ctx, tenantGUID, filter, baseWhere, baseArgs, offset, limit)
		if err != nil {
			return nil, err
		}
		for i, n := range nodes {
			if nodes[i], err = s.withAttached(ctx, n); err != nil {
				return nil, err
			}
		}
		return nodes, nil
	})
}

func (s *nodeStore) page(ctx context.Context, tenantGUID uuid.UUID, filter store.Filter,
	baseWhere string, baseArgs []any, offset, limit int) ([]*graph.Node, error) {

	q, args, err := buildFilteredSelect(
		"n.id, n.tenant_id, n.graph_id, n.name, n.data, n.created_utc, n.lastupdate_utc",
		"nodes", "n", "node_id", false,
		baseWhere, baseArgs,
		filterParams{Labels: filter.Labels, Tags: filter.Tags, Expr: filter.Expr, Order: filter.Order, Limit: limit, Offset: offset},
	)
	if err != nil {
		return nil, err
	}

	rows, err := s.c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "listing nodes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var nodes []*graph.Node
	for rows.Next() {
		n, err := scanNodeRows(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func (s *nodeStore) withAttached(ctx context.Context, n *graph.Node) (*graph.Node, error) {
	labels, tags, vectors, err := s.c.loadAttached(ctx, n.TenantGUID, nodeScope(n.GraphGUID, n.GUID))
	if err != nil {
		return nil, err
	}
	n.Labels, n.Tags, n.Vectors = labels, tags, vectors
	return n, nil
}

func scanNodeRow(row *sql.Row, guid uuid.UUID) (*graph.Node, error) {
	var n graph.Node
	var data, created, updated string
	err := row.Scan(&n.GUID, &n.TenantGUID, &n.GraphGUID, &n.Name, &data, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, quiverr.New(quiverr.CodeStoreNodeNotFound, "node "+guid.String()+" not found",
			quiverr.FieldNodeID(guid.String()))
	}
	if err != nil {
		return nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "getting node %s: %w", guid, err)
	}
	if n.Data, err = unmarshalData(data); err != nil {
		return nil, err
	}
	n.CreatedUtc = parseTime(created)
	n.LastUpdateUtc = parseTime(updated)
	return &n, nil
}

func scanNodeRows(rows *sql.Rows) (*graph.Node, error) {
	var n graph.Node
	var data, created, updated string
	if err := rows.Scan(&n.GUID, &n.TenantGUID, &n.GraphGUID, &n.Name, &data, &created, &updated); err != nil {
		return nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "scanning node row: %w", err)
	}
	var err error
	if n.Data, err = unmarshalData(data); err != nil {
		return nil, err
	}
	n.CreatedUtc = parseTime(created)
	n.LastUpdateUtc = parseTime(updated)
	return &n, nil
}

// Update rewrites the row and replaces all attached metadata with
// whatever the record carries.
func (s *nodeStore) Update(ctx context.Context, n *graph.Node) (*graph.Node, error) {
	if n == nil {
		return nil, quiverr.New(quiverr.CodeStoreInvalidInput, "node: record is required")
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}

	data, err := marshalData(n.Data)
	if err != nil {
		return nil, err
	}

	tx, done, err := s.c.beginWrite(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	existing, err := s.readTx(ctx, tx, n.TenantGUID, n.GraphGUID, n.GUID)
	if err != nil {
		return nil, err
	}

	n.CreatedUtc = existing.CreatedUtc
	n.LastUpdateUtc = time.Now().UTC()

	const q = `UPDATE nodes SET name = ?, data = ?, lastupdate_utc = ? WHERE tenant_id = ? AND graph_id = ? AND id = ?`
	if err := execTx(ctx, tx, q, n.Name, data, formatTime(n.LastUpdateUtc),
		n.TenantGUID.String(), n.GraphGUID.String(), n.GUID.String()); err != nil {
		return nil, err
	}

	if err := s.c.deleteOwnAttached(ctx, tx, n.TenantGUID, nodeScope(n.GraphGUID, n.GUID)); err != nil {
		return nil, err
	}
	if err := s.c.insertAttached(ctx, tx, n.TenantGUID, nodeScope(n.GraphGUID, n.GUID), n.Labels, n.Tags, n.Vectors, n.LastUpdateUtc); err != nil {
		return nil, err
	}

	if err := commit(tx, "node update"); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *nodeStore) Delete(ctx context.Context, tenantGUID, graphGUID, guid uuid.UUID) error {
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

	return commit(tx, "node delete")
}

func (s *nodeStore) DeleteMany(ctx context.Context, tenantGUID, graphGUID uuid.UUID, guids []uuid.UUID) error {
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

	return commit(tx, "node batch delete")
}

func (s *nodeStore) DeleteAll(ctx context.Context, tenantGUID, graphGUID uuid.UUID) error {
	if err := s.c.requireGraph(ctx, tenantGUID, graphGUID); err != nil {
		return err
	}

	tx, done, err := s.c.beginWrite(ctx)
	if err != nil {
		return err
	}
	defer done()

	guids, err := allGUIDs(ctx, tx, "nodes", tenantGUID, graphGUID)
	if err != nil {
		return err
	}
	if err := s.deleteTx(ctx, tx, tenantGUID, graphGUID, guids); err != nil {
		return err
	}

	return commit(tx, "node delete all")
}

// deleteTx cascades: the incident edges lose their metadata and rows
// first, then the nodes lose theirs, then the node rows go.
func (s *nodeStore) deleteTx(ctx context.Context, tx *sql.Tx, tenantGUID, graphGUID uuid.UUID, guids []uuid.UUID) error {
	if len(guids) == 0 {
		return nil
	}
	ph := placeholders(len(guids))
	idArgs := guidArgs(guids)

	edgeQ := `SELECT id FROM edges WHERE tenant_id = ? AND graph_id = ? AND (from_id IN (` + ph + `) OR to_id IN (` + ph + `))`
	args := append([]any{tenantGUID.String(), graphGUID.String()}, idArgs...)
	args = append(args, idArgs...)
	rows, err := tx.QueryContext(ctx, edgeQ, args...)
	if err != nil {
		return quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "finding incident edges: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var edgeGUIDs []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "scanning incident edge: %w", err)
		}
		edgeGUIDs = append(edgeGUIDs, id)
	}
	if err := rows.Err(); err != nil {
		return quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "iterating incident edges: %w", err)
	}

	if err := s.c.deleteAttached(ctx, tx, tenantGUID, "edge_id", edgeGUIDs); err != nil {
		return err
	}
	if len(edgeGUIDs) > 0 {
		eph := placeholders(len(edgeGUIDs))
		eargs := append([]any{tenantGUID.String()}, guidArgs(edgeGUIDs)...)
		if err := execTx(ctx, tx, `DELETE FROM edges WHERE tenant_id = ? AND id IN (`+eph+`)`, eargs...); err != nil {
			return err
		}
	}

	if err := s.c.deleteAttached(ctx, tx, tenantGUID, "node_id", guids); err != nil {
		return err
	}
	nargs := append([]any{tenantGUID.String(), graphGUID.String()}, idArgs...)
	return execTx(ctx, tx, `DELETE FROM nodes WHERE tenant_id = ? AND graph_id = ? AND id IN (`+ph+`)`, nargs...)
}

func (s *nodeStore) Exists(ctx context.Context, tenantGUID, graphGUID, guid uuid.UUID) (bool, error) {
	return s.c.exists(ctx, `SELECT 1 FROM nodes WHERE tenant_id = ? AND graph_id = ? AND id = ?`,
		tenantGUID.String(), graphGUID.String(), guid.String())
}

func (s *nodeStore) GetParents(ctx context.Context, tenantGUID, graphGUID, nodeGUID uuid.UUID, filter store.Filter) store.Seq[*graph.Node] {
	base := `n.tenant_id = ? AND n.graph_id = ? AND n.id IN
(SELECT from_id FROM edges WHERE tenant_id = ? AND graph_id = ? AND to_id = ?)`
	return s.enumerateNodes(ctx, tenantGUID, filter, base,
		[]any{tenantGUID.String(), graphGUID.String(), tenantGUID.String(), graphGUID.String(), nodeGUID.String()})
}

func (s *nodeStore) GetChildren(ctx context.Context, tenantGUID, graphGUID, nodeGUID uuid.UUID, filter store.Filter) store.Seq[*graph.Node] {
	base := `n.tenant_id = ? AND n.graph_id = ? AND n.id IN
(SELECT to_id FROM edges WHERE tenant_id = ? AND graph_id = ? AND from_id = ?)`
	return s.enumerateNodes(ctx, tenantGUID, filter, base,
		[]any{tenantGUID.String(), graphGUID.String(), tenantGUID.String(), graphGUID.String(), nodeGUID.String()})
}

func (s *nodeStore) GetNeighbors(ctx context.Context, tenantGUID, graphGUID, nodeGUID uuid.UUID, filter store.Filter) store.Seq[*graph.Node] {
	base := `n.tenant_id = ? AND n.graph_id = ? AND n.id IN
(SELECT from_id FROM edges WHERE tenant_id = ? AND graph_id = ? AND to_id = ?
 UNION
 SELECT to_id FROM edges WHERE tenant_id = ? AND graph_id = ? AND from_id = ?)`
	tid, gid, nid := tenantGUID.String(), graphGUID.String(), nodeGUID.String()
	return s.enumerateNodes(ctx, tenantGUID, filter, base, []any{tid, gid, tid, gid, nid, tid, gid, nid})
}

// existingGUIDs probes which of the candidate GUIDs already have rows.
func existingGUIDs(ctx context.Context, tx *sql.Tx, table string, tenantGUID, graphGUID uuid.UUID, guids []uuid.UUID) ([]uuid.UUID, error) {
	if len(guids) == 0 {
		return nil, nil
	}
	q := `SELECT id FROM ` + table + ` WHERE tenant_id = ? AND graph_id = ? AND id IN (` + placeholders(len(guids)) + `)`
	args := append([]any{tenantGUID.String(), graphGUID.String()}, guidArgs(guids)...)

	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "probing %s existence: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var existing []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "scanning %s id: %w", table, err)
		}
		existing = append(existing, id)
	}
	return existing, rows.Err()
}

// allGUIDs lists every row id in the graph for the given table.
func allGUIDs(ctx context.Context, tx *sql.Tx, table string, tenantGUID, graphGUID uuid.UUID) ([]uuid.UUID, error) {
	q := `SELECT id FROM ` + table + ` WHERE tenant_id = ? AND graph_id = ?`
	rows, err := tx.QueryContext(ctx, q, tenantGUID.String(), graphGUID.String())
	if err != nil {
		return nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "listing %s ids: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var guids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "scanning %s id: %w", table, err)
		}
		guids = append(guids, id)
	}
	return guids, rows.Err()
}
