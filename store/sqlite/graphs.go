// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quiver Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/quiver-db/quiver/graph"
	quiverr "github.com/quiver-db/quiver/pkg/errors"
	"github.com/quiver-db/quiver/store"
)

// Compile-time interface check.
var _ store.GraphStore = (*graphStore)(nil)

type graphStore struct {
	c *Client
}

const graphCols = `id, tenant_id, name, data, created_utc, lastupdate_utc`

func (s *graphStore) Create(ctx context.Context, g *graph.Graph) (*graph.Graph, error) {
	if g == nil {
		return nil, quiverr.New(quiverr.CodeStoreInvalidInput, "graph: record is required")
	}
	if g.GUID == uuid.Nil {
		g.GUID = uuid.New()
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if err := s.c.requireTenant(ctx, g.TenantGUID); err != nil {
		return nil, err
	}

	data, err := marshalData(g.Data)
	if err != nil {
		return nil, err
	}

	tx, done, err := s.c.beginWrite(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	existing, err := s.readTx(ctx, tx, g.TenantGUID, g.GUID)
	if err != nil && !quiverr.IsNotFound(err) {
		return nil, err
	}
	if existing != nil {
		return s.withAttached(ctx, existing)
	}

	now := time.Now().UTC()
	g.CreatedUtc = now
	g.LastUpdateUtc = now

	const q = `INSERT INTO graphs (` + graphCols + `) VALUES (?, ?, ?, ?, ?, ?)`
	if err := execTx(ctx, tx, q,
		g.GUID.String(), g.TenantGUID.String(), g.Name, data,
		formatTime(now), formatTime(now),
	); err != nil {
		return nil, err
	}
	if err := s.c.insertAttached(ctx, tx, g.TenantGUID, graphScope(g.GUID), g.Labels, g.Tags, g.Vectors, now); err != nil {
		return nil, err
	}

	if err := commit(tx, "graph create"); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *graphStore) ReadByGUID(ctx context.Context, tenantGUID, guid uuid.UUID) (*graph.Graph, error) {
	const q = `SELECT ` + graphCols + ` FROM graphs WHERE tenant_id = ? AND id = ?`
	g, err := scanGraphRow(s.c.db.QueryRowContext(ctx, q, tenantGUID.String(), guid.String()), guid.String())
	if err != nil {
		return nil, err
	}
	return s.withAttached(ctx, g)
}

// readTx reads the bare row without attached metadata, for existence
// checks inside a write transaction.
func (s *graphStore) readTx(ctx context.Context, tx *sql.Tx, tenantGUID, guid uuid.UUID) (*graph.Graph, error) {
	const q = `SELECT ` + graphCols + ` FROM graphs WHERE tenant_id = ? AND id = ?`
	return scanGraphRow(tx.QueryRowContext(ctx, q, tenantGUID.String(), guid.String()), guid.String())
}

func (s *graphStore) ReadByName(ctx context.Context, tenantGUID uuid.UUID, name string) (*graph.Graph, error) {
	const q = `SELECT ` + graphCols + ` FROM graphs WHERE tenant_id = ? AND name = ? ORDER BY created_utc ASC LIMIT 1`
	g, err := scanGraphRow(s.c.db.QueryRowContext(ctx, q, tenantGUID.String(), name), name)
	if err != nil {
		return nil, err
	}
	return s.withAttached(ctx, g)
}

func (s *graphStore) ReadFirst(ctx context.Context, tenantGUID uuid.UUID, filter store.Filter) (*graph.Graph, error) {
	graphs, err := s.page(ctx, tenantGUID, filter, filter.Skip, 1)
	if err != nil {
		return nil, err
	}
	if len(graphs) == 0 {
		return nil, quiverr.New(quiverr.CodeStoreGraphNotFound, "no graph matches the filter")
	}
	return s.withAttached(ctx, graphs[0])
}

func (s *graphStore) ReadMany(ctx context.Context, tenantGUID uuid.UUID, filter store.Filter) store.Seq[*graph.Graph] {
	return enumerate(s.c.batchSize, filter.Skip, func(offset, limit int) ([]*graph.Graph, error) {
		graphs, err := s.page(ctx, tenantGUID, filter, offset, limit)
		if err != nil {
			return nil, err
		}
		for i, g := range graphs {
			if graphs[i], err = s.withAttached(ctx, g); err != nil {
				return nil, err
			}
		}
		return graphs, nil
	})
}

func (s *graphStore) page(ctx context.Context, tenantGUID uuid.UUID, filter store.Filter, offset, limit int) ([]*graph.Graph, error) {
	q, args, err := buildFilteredSelect(
		"g.id, g.tenant_id, g.name, g.data, g.created_utc, g.lastupdate_utc",
		"graphs", "g", "graph_id", false,
		"g.tenant_id = ?", []any{tenantGUID.String()},
		filterParams{Labels: filter.Labels, Tags: filter.Tags, Expr: filter.Expr, Order: filter.Order, Limit: limit, Offset: offset},
	)
	if err != nil {
		return nil, err
	}

	rows, err := s.c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "listing graphs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var graphs []*graph.Graph
	for rows.Next() {
		g, err := scanGraphRows(rows)
		if err != nil {
			return nil, err
		}
		graphs = append(graphs, g)
	}
	return graphs, rows.Err()
}

func (s *graphStore) withAttached(ctx context.Context, g *graph.Graph) (*graph.Graph, error) {
	labels, tags, vectors, err := s.c.loadAttached(ctx, g.TenantGUID, graphScope(g.GUID))
	if err != nil {
		return nil, err
	}
	g.Labels, g.Tags, g.Vectors = labels, tags, vectors
	return g, nil
}

func scanGraphRow(row *sql.Row, ref string) (*graph.Graph, error) {
	var g graph.Graph
	var data, created, updated string
	err := row.Scan(&g.GUID, &g.TenantGUID, &g.Name, &data, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, quiverr.New(quiverr.CodeStoreGraphNotFound, "graph "+ref+" not found",
			quiverr.FieldGraphID(ref))
	}
	if err != nil {
		return nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "getting graph %s: %w", ref, err)
	}
	if g.Data, err = unmarshalData(data); err != nil {
		return nil, err
	}
	g.CreatedUtc = parseTime(created)
	g.LastUpdateUtc = parseTime(updated)
	return &g, nil
}

func scanGraphRows(rows *sql.Rows) (*graph.Graph, error) {
	var g graph.Graph
	var data, created, updated string
	if err := rows.Scan(&g.GUID, &g.TenantGUID, &g.Name, &data, &created, &updated); err != nil {
		return nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "scanning graph row: %w", err)
	}
	var err error
	if g.Data, err = unmarshalData(data); err != nil {
		return nil, err
	}
	g.CreatedUtc = parseTime(created)
	g.LastUpdateUtc = parseTime(updated)
	return &g, nil
}

// Update rewrites the row and replaces all attached metadata with
// whatever the record carries.
func (s *graphStore) Update(ctx context.Context, g *graph.Graph) (*graph.Graph, error) {
	if g == nil {
		return nil, quiverr.New(quiverr.CodeStoreInvalidInput, "graph: record is required")
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}

	data, err := marshalData(g.Data)
	if err != nil {
		return nil, err
	}

	tx, done, err := s.c.beginWrite(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	existing, err := s.readTx(ctx, tx, g.TenantGUID, g.GUID)
	if err != nil {
		return nil, err
	}

	g.CreatedUtc = existing.CreatedUtc
	g.LastUpdateUtc = time.Now().UTC()

	const q = `UPDATE graphs SET name = ?, data = ?, lastupdate_utc = ? WHERE tenant_id = ? AND id = ?`
	if err := execTx(ctx, tx, q, g.Name, data, formatTime(g.LastUpdateUtc), g.TenantGUID.String(), g.GUID.String()); err != nil {
		return nil, err
	}

	if err := s.c.deleteOwnAttached(ctx, tx, g.TenantGUID, graphScope(g.GUID)); err != nil {
		return nil, err
	}
	if err := s.c.insertAttached(ctx, tx, g.TenantGUID, graphScope(g.GUID), g.Labels, g.Tags, g.Vectors, g.LastUpdateUtc); err != nil {
		return nil, err
	}

	if err := commit(tx, "graph update"); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *graphStore) Delete(ctx context.Context, tenantGUID, guid uuid.UUID, force bool) error {
	tx, done, err := s.c.beginWrite(ctx)
	if err != nil {
		return err
	}
	defer done()

	if _, err := s.readTx(ctx, tx, tenantGUID, guid); err != nil {
		return err
	}

	var nodes int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM nodes WHERE tenant_id = ? AND graph_id = ?`,
		tenantGUID.String(), guid.String()).Scan(&nodes); err != nil {
		return quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "counting graph nodes: %w", err)
	}
	if nodes > 0 && !force {
		return quiverr.New(quiverr.CodeStoreDeleteConflict, "graph "+guid.String()+" still contains nodes",
			quiverr.FieldGraphID(guid.String()))
	}

	// Everything scoped to the graph goes: metadata first so the vec0
	// index rows are pruned, then edges, nodes, and the graph row.
	if err := s.c.deleteAttached(ctx, tx, tenantGUID, "graph_id", []uuid.UUID{guid}); err != nil {
		return err
	}
	for _, q := range []string{
		`DELETE FROM edges WHERE tenant_id = ? AND graph_id = ?`,
		`DELETE FROM nodes WHERE tenant_id = ? AND graph_id = ?`,
		`DELETE FROM graphs WHERE tenant_id = ? AND id = ?`,
	} {
		if err := execTx(ctx, tx, q, tenantGUID.String(), guid.String()); err != nil {
			return err
		}
	}

	return commit(tx, "graph delete")
}

// requireGraph raises the not-found error before any mutating query
// when the containing graph does not exist.
func (c *Client) requireGraph(ctx context.Context, tenantGUID, graphGUID uuid.UUID) error {
	if err := c.requireTenant(ctx, tenantGUID); err != nil {
		return err
	}
	ok, err := c.exists(ctx, `SELECT 1 FROM graphs WHERE tenant_id = ? AND id = ?`, tenantGUID.String(), graphGUID.String())
	if err != nil {
		return err
	}
	if !ok {
		return quiverr.New(quiverr.CodeStoreGraphNotFound, "graph "+graphGUID.String()+" not found",
			quiverr.FieldGraphID(graphGUID.String()))
	}
	return nil
}

func (s *graphStore) Exists(ctx context.Context, tenantGUID, guid uuid.UUID) (bool, error) {
	return s.c.exists(ctx, `SELECT 1 FROM graphs WHERE tenant_id = ? AND id = ?`, tenantGUID.String(), guid.String())
}

func (s *graphStore) Statistics(ctx context.Context, tenantGUID, guid uuid.UUID) (*graph.GraphStatistics, error) {
	if _, err := s.ReadByGUID(ctx, tenantGUID, guid); err != nil {
		return nil, err
	}

	const q = `SELECT
	(SELECT COUNT(*) FROM nodes   WHERE tenant_id = ? AND graph_id = ?),
	(SELECT COUNT(*) FROM edges   WHERE tenant_id = ? AND graph_id = ?),
	(SELECT COUNT(*) FROM labels  WHERE tenant_id = ? AND graph_id = ?),
	(SELECT COUNT(*) FROM tags    WHERE tenant_id = ? AND graph_id = ?),
	(SELECT COUNT(*) FROM vectors WHERE tenant_id = ? AND graph_id = ?)`

	tid, gid := tenantGUID.String(), guid.String()
	var stats graph.GraphStatistics
	if err := s.c.db.QueryRowContext(ctx, q, tid, gid, tid, gid, tid, gid, tid, gid, tid, gid).
		Scan(&stats.Nodes, &stats.Edges, &stats.Labels, &stats.Tags, &stats.Vectors); err != nil {
		return nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "reading graph statistics: %w", err)
	}
	return &stats, nil
}
