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
var _ store.LabelStore = (*labelStore)(nil)

type labelStore struct {
	c *Client
}

const labelCols = `id, tenant_id, graph_id, node_id, edge_id, label, created_utc, lastupdate_utc`

func (s *labelStore) Create(ctx context.Context, label *graph.Label) (*graph.Label, error) {
	if label == nil {
		return nil, quiverr.New(quiverr.CodeStoreInvalidInput, "label: record is required")
	}
	if label.GUID == uuid.Nil {
		label.GUID = uuid.New()
	}
	if err := label.Validate(); err != nil {
		return nil, err
	}
	if err := s.c.requireTenant(ctx, label.TenantGUID); err != nil {
		return nil, err
	}

	tx, done, err := s.c.beginWrite(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	existing, err := s.readTx(ctx, tx, label.TenantGUID, label.GUID)
	if err != nil && !quiverr.IsNotFound(err) {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now().UTC()
	label.CreatedUtc = now
	label.LastUpdateUtc = now

	if err := s.insertTx(ctx, tx, label, now); err != nil {
		return nil, err
	}

	if err := commit(tx, "label create"); err != nil {
		return nil, err
	}
	return label, nil
}

func (s *labelStore) CreateMany(ctx context.Context, tenantGUID uuid.UUID, labels []*graph.Label) ([]*graph.Label, error) {
	if len(labels) == 0 {
		return nil, nil
	}
	if err := s.c.requireTenant(ctx, tenantGUID); err != nil {
		return nil, err
	}

	guids := make([]uuid.UUID, 0, len(labels))
	for _, l := range labels {
		if l == nil {
			return nil, quiverr.New(quiverr.CodeStoreInvalidInput, "label: record is required")
		}
		if l.GUID == uuid.Nil {
			l.GUID = uuid.New()
		}
		l.TenantGUID = tenantGUID
		if err := l.Validate(); err != nil {
			return nil, err
		}
		guids = append(guids, l.GUID)
	}

	tx, done, err := s.c.beginWrite(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	conflicts, err := existingMetaGUIDs(ctx, tx, "labels", tenantGUID, guids)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, quiverr.New(quiverr.CodeStoreBatchConflict,
			"batch rejected: "+strconv.Itoa(len(conflicts))+" label GUID(s) already exist")
	}

	now := time.Now().UTC()
	for _, l := range labels {
		l.CreatedUtc = now
		l.LastUpdateUtc = now
		if err := s.insertTx(ctx, tx, l, now); err != nil {
			return nil, err
		}
	}

	if err := commit(tx, "label batch create"); err != nil {
		return nil, err
	}
	return labels, nil
}

func (s *labelStore) insertTx(ctx context.Context, tx *sql.Tx, l *graph.Label, now time.Time) error {
	const q = `INSERT INTO labels (` + labelCols + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	return execTx(ctx, tx, q,
		l.GUID.String(), l.TenantGUID.String(),
		nullableGUID(l.GraphGUID), nullableGUID(l.NodeGUID), nullableGUID(l.EdgeGUID),
		l.Label, formatTime(now), formatTime(now),
	)
}

func (s *labelStore) ReadByGUID(ctx context.Context, tenantGUID, guid uuid.UUID) (*graph.Label, error) {
	const q = `SELECT ` + labelCols + ` FROM labels WHERE tenant_id = ? AND id = ?`
	return scanLabelRow(s.c.db.QueryRowContext(ctx, q, tenantGUID.String(), guid.String()), guid)
}

func (s *labelStore) readTx(ctx context.Context, tx *sql.Tx, tenantGUID, guid uuid.UUID) (*graph.Label, error) {
	const q = `SELECT ` + labelCols + ` FROM labels WHERE tenant_id = ? AND id = ?`
	return scanLabelRow(tx.QueryRowContext(ctx, q, tenantGUID.String(), guid.String()), guid)
}

func scanLabelRow(row *sql.Row, guid uuid.UUID) (*graph.Label, error) {
	var (
		l                graph.Label
		gid, nid, eid    sql.NullString
		created, updated string
	)
	err := row.Scan(&l.GUID, &l.TenantGUID, &gid, &nid, &eid, &l.Label, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, quiverr.New(quiverr.CodeStoreEntityNotFound, "label "+guid.String()+" not found")
	}
	if err != nil {
		return nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "getting label %s: %w", guid, err)
	}
	return labelFromScan(&l, gid, nid, eid, created, updated)
}

func labelFromScan(l *graph.Label, gid, nid, eid sql.NullString, created, updated string) (*graph.Label, error) {
	var err error
	if l.GraphGUID, err = scanGUIDPtr(gid); err != nil {
		return nil, err
	}
	if l.NodeGUID, err = scanGUIDPtr(nid); err != nil {
		return nil, err
	}
	if l.EdgeGUID, err = scanGUIDPtr(eid); err != nil {
		return nil, err
	}
	l.CreatedUtc = parseTime(created)
	l.LastUpdateUtc = parseTime(updated)
	return l, nil
}

func (s *labelStore) ReadMany(ctx context.Context, tenantGUID uuid.UUID, scope store.Scope, order graph.EnumerationOrder, skip int) store.Seq[*graph.Label] {
	orderSQL, err := tagOrderClause(order, "label")
	if err != nil {
		return failSeq[*graph.Label](err)
	}

	cond, condArgs := scopeCond(scope)
	where := `tenant_id = ?`
	if cond != "" {
		where += ` AND ` + cond
	}
	baseArgs := append([]any{tenantGUID.String()}, condArgs...)

	return enumerate(s.c.batchSize, skip, func(offset, limit int) ([]*graph.Label, error) {
		q := `SELECT ` + labelCols + ` FROM labels WHERE ` + where + ` ORDER BY ` + orderSQL + ` LIMIT ? OFFSET ?`
		args := append(append([]any{}, baseArgs...), limit, offset)

		rows, err := s.c.db.QueryContext(ctx, q, args...)
		if err != nil {
			return nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "listing labels: %w", err)
		}
		defer func() { _ = rows.Close() }()

		var labels []*graph.Label
		for rows.Next() {
			var (
				l                graph.Label
				gid, nid, eid    sql.NullString
				created, updated string
			)
			if err := rows.Scan(&l.GUID, &l.TenantGUID, &gid, &nid, &eid, &l.Label, &created, &updated); err != nil {
				return nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "scanning label row: %w", err)
			}
			label, err := labelFromScan(&l, gid, nid, eid, created, updated)
			if err != nil {
				return nil, err
			}
			labels = append(labels, label)
		}
		return labels, rows.Err()
	})
}

func (s *labelStore) Update(ctx context.Context, label *graph.Label) (*graph.Label, error) {
	if label == nil {
		return nil, quiverr.New(quiverr.CodeStoreInvalidInput, "label: record is required")
	}
	if err := label.Validate(); err != nil {
		return nil, err
	}

	tx, done, err := s.c.beginWrite(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	existing, err := s.readTx(ctx, tx, label.TenantGUID, label.GUID)
	if err != nil {
		return nil, err
	}

	label.CreatedUtc = existing.CreatedUtc
	label.LastUpdateUtc = time.Now().UTC()

	const q = `UPDATE labels SET graph_id = ?, node_id = ?, edge_id = ?, label = ?, lastupdate_utc = ?
WHERE tenant_id = ? AND id = ?`
	if err := execTx(ctx, tx, q,
		nullableGUID(label.GraphGUID), nullableGUID(label.NodeGUID), nullableGUID(label.EdgeGUID),
		label.Label, formatTime(label.LastUpdateUtc),
		label.TenantGUID.String(), label.GUID.String(),
	); err != nil {
		return nil, err
	}

	if err := commit(tx, "label update"); err != nil {
		return nil, err
	}
	return label, nil
}

func (s *labelStore) Delete(ctx context.Context, tenantGUID, guid uuid.UUID) error {
	return s.DeleteMany(ctx, tenantGUID, []uuid.UUID{guid})
}

func (s *labelStore) DeleteMany(ctx context.Context, tenantGUID uuid.UUID, guids []uuid.UUID) error {
	if len(guids) == 0 {
		return nil
	}

	tx, done, err := s.c.beginWrite(ctx)
	if err != nil {
		return err
	}
	defer done()

	ph := placeholders(len(guids))
	args := append([]any{tenantGUID.String()}, guidArgs(guids)...)
	if err := execTx(ctx, tx, `DELETE FROM labels WHERE tenant_id = ? AND id IN (`+ph+`)`, args...); err != nil {
		return err
	}

	return commit(tx, "label delete")
}

func (s *labelStore) DeleteScoped(ctx context.Context, tenantGUID uuid.UUID, scope store.Scope) error {
	tx, done, err := s.c.beginWrite(ctx)
	if err != nil {
		return err
	}
	defer done()

	cond, condArgs := scopeCond(scope)
	q := `DELETE FROM labels WHERE tenant_id = ?`
	if cond != "" {
		q += ` AND ` + cond
	}
	args := append([]any{tenantGUID.String()}, condArgs...)
	if err := execTx(ctx, tx, q, args...); err != nil {
		return err
	}

	return commit(tx, "label scoped delete")
}

func (s *labelStore) Exists(ctx context.Context, tenantGUID, guid uuid.UUID) (bool, error) {
	return s.c.exists(ctx, `SELECT 1 FROM labels WHERE tenant_id = ? AND id = ?`, tenantGUID.String(), guid.String())
}
