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
var _ store.TagStore = (*tagStore)(nil)

type tagStore struct {
	c *Client
}

const tagCols = `id, tenant_id, graph_id, node_id, edge_id, tkey, tvalue, created_utc, lastupdate_utc`

func (s *tagStore) Create(ctx context.Context, tag *graph.Tag) (*graph.Tag, error) {
	if tag == nil {
		return nil, quiverr.New(quiverr.CodeStoreInvalidInput, "tag: record is required")
	}
	if tag.GUID == uuid.Nil {
		tag.GUID = uuid.New()
	}
	if err := tag.Validate(); err != nil {
		return nil, err
	}
	if err := s.c.requireTenant(ctx, tag.TenantGUID); err != nil {
		return nil, err
	}

	tx, done, err := s.c.beginWrite(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	existing, err := s.readTx(ctx, tx, tag.TenantGUID, tag.GUID)
	if err != nil && !quiverr.IsNotFound(err) {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now().UTC()
	tag.CreatedUtc = now
	tag.LastUpdateUtc = now

	if err := s.insertTx(ctx, tx, tag, now); err != nil {
		return nil, err
	}

	if err := commit(tx, "tag create"); err != nil {
		return nil, err
	}
	return tag, nil
}

func (s *tagStore) CreateMany(ctx context.Context, tenantGUID uuid.UUID, tags []*graph.Tag) ([]*graph.Tag, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	if err := s.c.requireTenant(ctx, tenantGUID); err != nil {
		return nil, err
	}

	guids := make([]uuid.UUID, 0, len(tags))
	for _, t := range tags {
		if t == nil {
			return nil, quiverr.New(quiverr.CodeStoreInvalidInput, "tag: record is required")
		}
		if t.GUID == uuid.Nil {
			t.GUID = uuid.New()
		}
		t.TenantGUID = tenantGUID
		if err := t.Validate(); err != nil {
			return nil, err
		}
		guids = append(guids, t.GUID)
	}

	tx, done, err := s.c.beginWrite(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	conflicts, err := existingMetaGUIDs(ctx, tx, "tags", tenantGUID, guids)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, quiverr.New(quiverr.CodeStoreBatchConflict,
			"batch rejected: "+strconv.Itoa(len(conflicts))+" tag GUID(s) already exist")
	}

	now := time.Now().UTC()
	for _, t := range tags {
		t.CreatedUtc = now
		t.LastUpdateUtc = now
		if err := s.insertTx(ctx, tx, t, now); err != nil {
			return nil, err
		}
	}

	if err := commit(tx, "tag batch create"); err != nil {
		return nil, err
	}
	return tags, nil
}

func (s *tagStore) insertTx(ctx context.Context, tx *sql.Tx, t *graph.Tag, now time.Time) error {
	const q = `INSERT INTO tags (` + tagCols + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	return execTx(ctx, tx, q,
		t.GUID.String(), t.TenantGUID.String(),
		nullableGUID(t.GraphGUID), nullableGUID(t.NodeGUID), nullableGUID(t.EdgeGUID),
		t.Key, t.Value, formatTime(now), formatTime(now),
	)
}

func (s *tagStore) ReadByGUID(ctx context.Context, tenantGUID, guid uuid.UUID) (*graph.Tag, error) {
	const q = `SELECT ` + tagCols + ` FROM tags WHERE tenant_id = ? AND id = ?`
	return scanTagRow(s.c.db.QueryRowContext(ctx, q, tenantGUID.String(), guid.String()), guid)
}

func (s *tagStore) readTx(ctx context.Context, tx *sql.Tx, tenantGUID, guid uuid.UUID) (*graph.Tag, error) {
	const q = `SELECT ` + tagCols + ` FROM tags WHERE tenant_id = ? AND id = ?`
	return scanTagRow(tx.QueryRowContext(ctx, q, tenantGUID.String(), guid.String()), guid)
}

func scanTagRow(row *sql.Row, guid uuid.UUID) (*graph.Tag, error) {
	var (
		t                graph.Tag
		gid, nid, eid    sql.NullString
		created, updated string
	)
	err := row.Scan(&t.GUID, &t.TenantGUID, &gid, &nid, &eid, &t.Key, &t.Value, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, quiverr.New(quiverr.CodeStoreEntityNotFound, "tag "+guid.String()+" not found")
	}
	if err != nil {
		return nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "getting tag %s: %w", guid, err)
	}
	return tagFromScan(&t, gid, nid, eid, created, updated)
}

func tagFromScan(t *graph.Tag, gid, nid, eid sql.NullString, created, updated string) (*graph.Tag, error) {
	var err error
	if t.GraphGUID, err = scanGUIDPtr(gid); err != nil {
		return nil, err
	}
	if t.NodeGUID, err = scanGUIDPtr(nid); err != nil {
		return nil, err
	}
	if t.EdgeGUID, err = scanGUIDPtr(eid); err != nil {
		return nil, err
	}
	t.CreatedUtc = parseTime(created)
	t.LastUpdateUtc = parseTime(updated)
	return t, nil
}

func (s *tagStore) ReadMany(ctx context.Context, tenantGUID uuid.UUID, scope store.Scope, order graph.EnumerationOrder, skip int) store.Seq[*graph.Tag] {
	orderSQL, err := tagOrderClause(order, "tkey")
	if err != nil {
		return failSeq[*graph.Tag](err)
	}

	cond, condArgs := scopeCond(scope)
	where := `tenant_id = ?`
	if cond != "" {
		where += ` AND ` + cond
	}
	baseArgs := append([]any{tenantGUID.String()}, condArgs...)

	return enumerate(s.c.batchSize, skip, func(offset, limit int) ([]*graph.Tag, error) {
		q := `SELECT ` + tagCols + ` FROM tags WHERE ` + where + ` ORDER BY ` + orderSQL + ` LIMIT ? OFFSET ?`
		args := append(append([]any{}, baseArgs...), limit, offset)

		rows, err := s.c.db.QueryContext(ctx, q, args...)
		if err != nil {
			return nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "listing tags: %w", err)
		}
		defer func() { _ = rows.Close() }()

		var tags []*graph.Tag
		for rows.Next() {
			var (
				t                graph.Tag
				gid, nid, eid    sql.NullString
				created, updated string
			)
			if err := rows.Scan(&t.GUID, &t.TenantGUID, &gid, &nid, &eid, &t.Key, &t.Value, &created, &updated); err != nil {
				return nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "scanning tag row: %w", err)
			}
			tag, err := tagFromScan(&t, gid, nid, eid, created, updated)
			if err != nil {
				return nil, err
			}
			tags = append(tags, tag)
		}
		return tags, rows.Err()
	})
}

func (s *tagStore) Update(ctx context.Context, tag *graph.Tag) (*graph.Tag, error) {
	if tag == nil {
		return nil, quiverr.New(quiverr.CodeStoreInvalidInput, "tag: record is required")
	}
	if err := tag.Validate(); err != nil {
		return nil, err
	}

	tx, done, err := s.c.beginWrite(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	existing, err := s.readTx(ctx, tx, tag.TenantGUID, tag.GUID)
	if err != nil {
		return nil, err
	}

	tag.CreatedUtc = existing.CreatedUtc
	tag.LastUpdateUtc = time.Now().UTC()

	const q = `UPDATE tags SET graph_id = ?, node_id = ?, edge_id = ?, tkey = ?, tvalue = ?, lastupdate_utc = ?
WHERE tenant_id = ? AND id = ?`
	if err := execTx(ctx, tx, q,
		nullableGUID(tag.GraphGUID), nullableGUID(tag.NodeGUID), nullableGUID(tag.EdgeGUID),
		tag.Key, tag.Value, formatTime(tag.LastUpdateUtc),
		tag.TenantGUID.String(), tag.GUID.String(),
	); err != nil {
		return nil, err
	}

	if err := commit(tx, "tag update"); err != nil {
		return nil, err
	}
	return tag, nil
}

func (s *tagStore) Delete(ctx context.Context, tenantGUID, guid uuid.UUID) error {
	return s.DeleteMany(ctx, tenantGUID, []uuid.UUID{guid})
}

func (s *tagStore) DeleteMany(ctx context.Context, tenantGUID uuid.UUID, guids []uuid.UUID) error {
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
	if err := execTx(ctx, tx, `DELETE FROM tags WHERE tenant_id = ? AND id IN (`+ph+`)`, args...); err != nil {
		return err
	}

	return commit(tx, "tag delete")
}

func (s *tagStore) DeleteScoped(ctx context.Context, tenantGUID uuid.UUID, scope store.Scope) error {
	tx, done, err := s.c.beginWrite(ctx)
	if err != nil {
		return err
	}
	defer done()

	cond, condArgs := scopeCond(scope)
	q := `DELETE FROM tags WHERE tenant_id = ?`
	if cond != "" {
		q += ` AND ` + cond
	}
	args := append([]any{tenantGUID.String()}, condArgs...)
	if err := execTx(ctx, tx, q, args...); err != nil {
		return err
	}

	return commit(tx, "tag scoped delete")
}

func (s *tagStore) Exists(ctx context.Context, tenantGUID, guid uuid.UUID) (bool, error) {
	return s.c.exists(ctx, `SELECT 1 FROM tags WHERE tenant_id = ? AND id = ?`, tenantGUID.String(), guid.String())
}

// tagOrderClause maps enumeration orders for the metadata tables, where
// name ordering falls back to the given column.
func tagOrderClause(order graph.EnumerationOrder, nameCol string) (string, error) {
	switch order {
	case "", graph.CreatedDescending:
		return "created_utc DESC", nil
	case graph.CreatedAscending:
		return "created_utc ASC", nil
	case graph.NameAscending:
		return nameCol + " ASC", nil
	case graph.NameDescending:
		return nameCol + " DESC", nil
	case graph.GuidAscending:
		return "id ASC", nil
	case graph.GuidDescending:
		return "id DESC", nil
	default:
		return "", quiverr.New(quiverr.CodeStoreInvalidInput, "unsupported enumeration order "+string(order))
	}
}

// existingMetaGUIDs probes which candidate GUIDs already have rows in a
// tenant-scoped metadata table.
func existingMetaGUIDs(ctx context.Context, tx *sql.Tx, table string, tenantGUID uuid.UUID, guids []uuid.UUID) ([]uuid.UUID, error) {
	if len(guids) == 0 {
		return nil, nil
	}
	q := `SELECT id FROM ` + table + ` WHERE tenant_id = ? AND id IN (` + placeholders(len(guids)) + `)`
	args := append([]any{tenantGUID.String()}, guidArgs(guids)...)

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
