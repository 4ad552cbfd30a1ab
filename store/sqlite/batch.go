// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quiver Contributors

package sqlite

import (
	"context"

	"github.com/google/uuid"

	"github.com/quiver-db/quiver/graph"
	quiverr "github.com/quiver-db/quiver/pkg/errors"
	"github.com/quiver-db/quiver/store"
)

// Compile-time interface check.
var _ store.BatchStore = (*batchStore)(nil)

type batchStore struct {
	c *Client
}

// Existence partitions each candidate set into existing and missing in
// one probe query per set. Duplicate candidates partition once each.
func (s *batchStore) Existence(ctx context.Context, tenantGUID, graphGUID uuid.UUID, req *graph.ExistenceRequest) (*graph.ExistenceResult, error) {
	if req.Empty() {
		return nil, quiverr.New(quiverr.CodeStoreInvalidInput, "existence request names no candidates")
	}
	if err := s.c.requireGraph(ctx, tenantGUID, graphGUID); err != nil {
		return nil, err
	}

	result := &graph.ExistenceResult{}

	if len(req.Nodes) > 0 {
		found, err := s.probeGUIDs(ctx, "nodes", tenantGUID, graphGUID, req.Nodes)
		if err != nil {
			return nil, err
		}
		result.ExistingNodes, result.MissingNodes = partitionGUIDs(req.Nodes, found)
	}

	if len(req.Edges) > 0 {
		found, err := s.probeGUIDs(ctx, "edges", tenantGUID, graphGUID, req.Edges)
		if err != nil {
			return nil, err
		}
		result.ExistingEdges, result.MissingEdges = partitionGUIDs(req.Edges, found)
	}

	if len(req.EdgesBetween) > 0 {
		found, err := s.probePairs(ctx, tenantGUID, graphGUID, req.EdgesBetween)
		if err != nil {
			return nil, err
		}
		for _, pair := range req.EdgesBetween {
			if found[pair] {
				result.ExistingEdgesBetween = append(result.ExistingEdgesBetween, pair)
			} else {
				result.MissingEdgesBetween = append(result.MissingEdgesBetween, pair)
			}
		}
	}

	return result, nil
}

func (s *batchStore) probeGUIDs(ctx context.Context, table string, tenantGUID, graphGUID uuid.UUID, guids []uuid.UUID) (map[uuid.UUID]bool, error) {
	q := `SELECT id FROM ` + table + ` WHERE tenant_id = ? AND graph_id = ? AND id IN (` + placeholders(len(guids)) + `)`
	args := append([]any{tenantGUID.String(), graphGUID.String()}, guidArgs(guids)...)

	rows, err := s.c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "probing %s existence: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	found := make(map[uuid.UUID]bool, len(guids))
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "scanning %s id: %w", table, err)
		}
		found[id] = true
	}
	return found, rows.Err()
}

func (s *batchStore) probePairs(ctx context.Context, tenantGUID, graphGUID uuid.UUID, pairs []graph.EdgeBetween) (map[graph.EdgeBetween]bool, error) {
	cond := ""
	args := []any{tenantGUID.String(), graphGUID.String()}
	for i, p := range pairs {
		if i > 0 {
			cond += " OR "
		}
		cond += "(from_id = ? AND to_id = ?)"
		args = append(args, p.From.String(), p.To.String())
	}

	q := `SELECT DISTINCT from_id, to_id FROM edges WHERE tenant_id = ? AND graph_id = ? AND (` + cond + `)`
	rows, err := s.c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "probing edge pairs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	found := make(map[graph.EdgeBetween]bool, len(pairs))
	for rows.Next() {
		var pair graph.EdgeBetween
		if err := rows.Scan(&pair.From, &pair.To); err != nil {
			return nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "scanning edge pair: %w", err)
		}
		found[pair] = true
	}
	return found, rows.Err()
}

func partitionGUIDs(candidates []uuid.UUID, found map[uuid.UUID]bool) (existing, missing []uuid.UUID) {
	seen := make(map[uuid.UUID]bool, len(candidates))
	for _, g := range candidates {
		if seen[g] {
			continue
		}
		seen[g] = true
		if found[g] {
			existing = append(existing, g)
		} else {
			missing = append(missing, g)
		}
	}
	return existing, missing
}
