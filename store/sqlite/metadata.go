// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quiver Contributors

package sqlite

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/quiver-db/quiver/graph"
	quiverr "github.com/quiver-db/quiver/pkg/errors"
	"github.com/quiver-db/quiver/store"
)

// attachScope names the owning entity for attached tags, labels, and
// vectors. Graph-level metadata carries only the graph GUID; node- and
// edge-level metadata carries the graph GUID plus its own.
type attachScope struct {
	graphGUID *uuid.UUID
	nodeGUID  *uuid.UUID
	edgeGUID  *uuid.UUID
}

func graphScope(g uuid.UUID) attachScope   { return attachScope{graphGUID: &g} }
func nodeScope(g, n uuid.UUID) attachScope { return attachScope{graphGUID: &g, nodeGUID: &n} }
func edgeScope(g, e uuid.UUID) attachScope { return attachScope{graphGUID: &g, edgeGUID: &e} }

func (s attachScope) ownerCol() string {
	switch {
	case s.edgeGUID != nil:
		return "edge_id"
	case s.nodeGUID != nil:
		return "node_id"
	default:
		return "graph_id"
	}
}

func (s attachScope) ownerGUID() uuid.UUID {
	switch {
	case s.edgeGUID != nil:
		return *s.edgeGUID
	case s.nodeGUID != nil:
		return *s.nodeGUID
	default:
		return *s.graphGUID
	}
}

// ownerCond returns the WHERE fragment matching rows owned by exactly
// this entity. Graph-owned rows must exclude node and edge rows, which
// also carry the graph id so scoped pruning can address them.
func (s attachScope) ownerCond() (string, []any) {
	switch {
	case s.edgeGUID != nil:
		return "edge_id = ?", []any{s.edgeGUID.String()}
	case s.nodeGUID != nil:
		return "node_id = ?", []any{s.nodeGUID.String()}
	default:
		return "graph_id = ? AND node_id IS NULL AND edge_id IS NULL", []any{s.graphGUID.String()}
	}
}

// insertAttached persists the labels, tags, and vectors carried on a
// graph, node, or edge record as rows in their own tables.
func (c *Client) insertAttached(ctx context.Context, tx *sql.Tx, tenantGUID uuid.UUID, scope attachScope,
	labels []string, tags map[string]string, vectors []*graph.VectorMetadata, now time.Time) error {

	const labelQ = `INSERT INTO labels (id, tenant_id, graph_id, node_id, edge_id, label, created_utc, lastupdate_utc)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	for _, label := range labels {
		if err := execTx(ctx, tx, labelQ,
			uuid.NewString(), tenantGUID.String(),
			nullableGUID(scope.graphGUID), nullableGUID(scope.nodeGUID), nullableGUID(scope.edgeGUID),
			label, formatTime(now), formatTime(now),
		); err != nil {
			return err
		}
	}

	const tagQ = `INSERT INTO tags (id, tenant_id, graph_id, node_id, edge_id, tkey, tvalue, created_utc, lastupdate_utc)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, k := range sortedKeys(tags) {
		if err := execTx(ctx, tx, tagQ,
			uuid.NewString(), tenantGUID.String(),
			nullableGUID(scope.graphGUID), nullableGUID(scope.nodeGUID), nullableGUID(scope.edgeGUID),
			k, tags[k], formatTime(now), formatTime(now),
		); err != nil {
			return err
		}
	}

	for _, v := range vectors {
		if v.GUID == uuid.Nil {
			v.GUID = uuid.New()
		}
		v.TenantGUID = tenantGUID
		v.GraphGUID = scope.graphGUID
		v.NodeGUID = scope.nodeGUID
		v.EdgeGUID = scope.edgeGUID
		if v.CreatedUtc.IsZero() {
			v.CreatedUtc = now
		}
		v.LastUpdateUtc = now
		if err := v.Validate(); err != nil {
			return err
		}
		if err := c.insertVectorTx(ctx, tx, v); err != nil {
			return err
		}
	}

	return nil
}

// deleteAttached clears every tag, label, and vector owned by the given
// entities. Used by the replace-all update semantics and by cascades.
func (c *Client) deleteAttached(ctx context.Context, tx *sql.Tx, tenantGUID uuid.UUID, ownerCol string, guids []uuid.UUID) error {
	if len(guids) == 0 {
		return nil
	}
	ph := placeholders(len(guids))
	args := append([]any{tenantGUID.String()}, guidArgs(guids)...)

	if err := c.deleteVectorIndexFor(ctx, tx, tenantGUID, ownerCol, guids); err != nil {
		return err
	}
	for _, q := range []string{
		`DELETE FROM tags WHERE tenant_id = ? AND ` + ownerCol + ` IN (` + ph + `)`,
		`DELETE FROM labels WHERE tenant_id = ? AND ` + ownerCol + ` IN (` + ph + `)`,
		`DELETE FROM vectors WHERE tenant_id = ? AND ` + ownerCol + ` IN (` + ph + `)`,
	} {
		if err := execTx(ctx, tx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

// deleteOwnAttached clears only the metadata owned by one entity,
// leaving rows owned by entities nested under it alone. The replace-all
// update path uses this; cascades use deleteAttached.
func (c *Client) deleteOwnAttached(ctx context.Context, tx *sql.Tx, tenantGUID uuid.UUID, scope attachScope) error {
	cond, condArgs := scope.ownerCond()
	args := append([]any{tenantGUID.String()}, condArgs...)

	idxQ := `DELETE FROM vector_index WHERE id IN (SELECT id FROM vectors WHERE tenant_id = ? AND ` + cond + `)`
	if err := execTx(ctx, tx, idxQ, args...); err != nil {
		return err
	}
	for _, q := range []string{
		`DELETE FROM tags WHERE tenant_id = ? AND ` + cond,
		`DELETE FROM labels WHERE tenant_id = ? AND ` + cond,
		`DELETE FROM vectors WHERE tenant_id = ? AND ` + cond,
	} {
		if err := execTx(ctx, tx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

// loadAttached reads the labels, tags, and vectors owned by one entity.
func (c *Client) loadAttached(ctx context.Context, tenantGUID uuid.UUID, scope attachScope) ([]string, map[string]string, []*graph.VectorMetadata, error) {
	cond, condArgs := scope.ownerCond()
	args := append([]any{tenantGUID.String()}, condArgs...)

	labelQ := `SELECT label FROM labels WHERE tenant_id = ? AND ` + cond + ` ORDER BY label`
	rows, err := c.db.QueryContext(ctx, labelQ, args...)
	if err != nil {
		return nil, nil, nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "loading labels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var labels []string
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, nil, nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "scanning label row: %w", err)
		}
		labels = append(labels, l)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "iterating labels: %w", err)
	}

	tagQ := `SELECT tkey, tvalue FROM tags WHERE tenant_id = ? AND ` + cond + ` ORDER BY tkey`
	tagRows, err := c.db.QueryContext(ctx, tagQ, args...)
	if err != nil {
		return nil, nil, nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "loading tags: %w", err)
	}
	defer func() { _ = tagRows.Close() }()

	var tags map[string]string
	for tagRows.Next() {
		var k string
		var v sql.NullString
		if err := tagRows.Scan(&k, &v); err != nil {
			return nil, nil, nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "scanning tag row: %w", err)
		}
		if tags == nil {
			tags = make(map[string]string)
		}
		tags[k] = v.String
	}
	if err := tagRows.Err(); err != nil {
		return nil, nil, nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "iterating tags: %w", err)
	}

	vectors, err := c.readVectorsFor(ctx, tenantGUID, cond, condArgs)
	if err != nil {
		return nil, nil, nil, err
	}

	return labels, tags, vectors, nil
}

// scopeCond translates a caller-facing scope into a WHERE fragment.
// Node and edge lists combine with OR; the graph narrows either. An
// empty scope matches every row in the tenant.
func scopeCond(scope store.Scope) (string, []any) {
	var (
		parts []string
		args  []any
	)

	if scope.GraphGUID != nil {
		parts = append(parts, "graph_id = ?")
		args = append(args, scope.GraphGUID.String())
	}

	var members []string
	if len(scope.NodeGUIDs) > 0 {
		members = append(members, "node_id IN ("+placeholders(len(scope.NodeGUIDs))+")")
		args = append(args, guidArgs(scope.NodeGUIDs)...)
	}
	if len(scope.EdgeGUIDs) > 0 {
		members = append(members, "edge_id IN ("+placeholders(len(scope.EdgeGUIDs))+")")
		args = append(args, guidArgs(scope.EdgeGUIDs)...)
	}
	switch len(members) {
	case 1:
		parts = append(parts, members[0])
	case 2:
		parts = append(parts, "("+members[0]+" OR "+members[1]+")")
	}

	if len(parts) == 0 {
		return "", nil
	}
	cond := parts[0]
	for _, p := range parts[1:] {
		cond += " AND " + p
	}
	return cond, args
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
