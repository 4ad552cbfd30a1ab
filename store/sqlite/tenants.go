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
var _ store.TenantStore = (*tenantStore)(nil)

type tenantStore struct {
	c *Client
}

func (s *tenantStore) Create(ctx context.Context, tenant *graph.Tenant) (*graph.Tenant, error) {
	if tenant == nil {
		return nil, quiverr.New(quiverr.CodeStoreInvalidInput, "tenant: record is required")
	}
	if tenant.GUID == uuid.Nil {
		tenant.GUID = uuid.New()
	}
	if err := tenant.Validate(); err != nil {
		return nil, err
	}

	tx, done, err := s.c.beginWrite(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	// Existence pre-check under the creation lock: re-submitting an
	// existing identifier returns the stored row unchanged.
	existing, err := s.readTx(ctx, tx, tenant.GUID)
	if err != nil && !quiverr.IsNotFound(err) {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now().UTC()
	tenant.CreatedUtc = now
	tenant.LastUpdateUtc = now

	const q = `INSERT INTO tenants (id, name, active, created_utc, lastupdate_utc) VALUES (?, ?, ?, ?, ?)`
	if err := execTx(ctx, tx, q,
		tenant.GUID.String(), tenant.Name, tenant.Active, formatTime(now), formatTime(now),
	); err != nil {
		return nil, err
	}

	if err := commit(tx, "tenant create"); err != nil {
		return nil, err
	}
	return tenant, nil
}

func (s *tenantStore) ReadByGUID(ctx context.Context, guid uuid.UUID) (*graph.Tenant, error) {
	const q = `SELECT id, name, active, created_utc, lastupdate_utc FROM tenants WHERE id = ?`
	return scanTenantRow(s.c.db.QueryRowContext(ctx, q, guid.String()), guid)
}

func (s *tenantStore) readTx(ctx context.Context, tx *sql.Tx, guid uuid.UUID) (*graph.Tenant, error) {
	const q = `SELECT id, name, active, created_utc, lastupdate_utc FROM tenants WHERE id = ?`
	return scanTenantRow(tx.QueryRowContext(ctx, q, guid.String()), guid)
}

func scanTenantRow(row *sql.Row, guid uuid.UUID) (*graph.Tenant, error) {
	var t graph.Tenant
	var created, updated string
	err := row.Scan(&t.GUID, &t.Name, &t.Active, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, quiverr.New(quiverr.CodeStoreTenantNotFound, "tenant "+guid.String()+" not found",
			quiverr.FieldTenantID(guid.String()))
	}
	if err != nil {
		return nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "getting tenant %s: %w", guid, err)
	}
	t.CreatedUtc = parseTime(created)
	t.LastUpdateUtc = parseTime(updated)
	return &t, nil
}

func (s *tenantStore) ReadMany(ctx context.Context, order graph.EnumerationOrder, skip int) store.Seq[*graph.Tenant] {
	orderSQL, err := orderClause(order, "", false)
	if err != nil {
		return failSeq[*graph.Tenant](err)
	}

	return enumerate(s.c.batchSize, skip, func(offset, limit int) ([]*graph.Tenant, error) {
		q := `SELECT id, name, active, created_utc, lastupdate_utc FROM tenants ORDER BY ` + orderSQL + ` LIMIT ? OFFSET ?`
		rows, err := s.c.db.QueryContext(ctx, q, limit, offset)
		if err != nil {
			return nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "listing tenants: %w", err)
		}
		defer func() { _ = rows.Close() }()

		var tenants []*graph.Tenant
		for rows.Next() {
			var t graph.Tenant
			var created, updated string
			if err := rows.Scan(&t.GUID, &t.Name, &t.Active, &created, &updated); err != nil {
				return nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "scanning tenant row: %w", err)
			}
			t.CreatedUtc = parseTime(created)
			t.LastUpdateUtc = parseTime(updated)
			tenants = append(tenants, &t)
		}
		return tenants, rows.Err()
	})
}

func (s *tenantStore) Update(ctx context.Context, tenant *graph.Tenant) (*graph.Tenant, error) {
	if tenant == nil {
		return nil, quiverr.New(quiverr.CodeStoreInvalidInput, "tenant: record is required")
	}
	if err := tenant.Validate(); err != nil {
		return nil, err
	}

	tx, done, err := s.c.beginWrite(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	existing, err := s.readTx(ctx, tx, tenant.GUID)
	if err != nil {
		return nil, err
	}

	tenant.CreatedUtc = existing.CreatedUtc
	tenant.LastUpdateUtc = time.Now().UTC()

	const q = `UPDATE tenants SET name = ?, active = ?, lastupdate_utc = ? WHERE id = ?`
	if err := execTx(ctx, tx, q,
		tenant.Name, tenant.Active, formatTime(tenant.LastUpdateUtc), tenant.GUID.String(),
	); err != nil {
		return nil, err
	}

	if err := commit(tx, "tenant update"); err != nil {
		return nil, err
	}
	return tenant, nil
}

func (s *tenantStore) Delete(ctx context.Context, guid uuid.UUID, force bool) error {
	tx, done, err := s.c.beginWrite(ctx)
	if err != nil {
		return err
	}
	defer done()

	if _, err := s.readTx(ctx, tx, guid); err != nil {
		return err
	}

	if !force {
		var owned int
		const countQ = `SELECT (SELECT COUNT(*) FROM graphs WHERE tenant_id = ?) + (SELECT COUNT(*) FROM users WHERE tenant_id = ?)`
		if err := tx.QueryRowContext(ctx, countQ, guid.String(), guid.String()).Scan(&owned); err != nil {
			return quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "counting tenant children: %w", err)
		}
		if owned > 0 {
			return quiverr.New(quiverr.CodeStoreDeleteConflict,
				"tenant "+guid.String()+" still owns graphs or users; delete with force to cascade",
				quiverr.FieldTenantID(guid.String()))
		}
	}

	// Cascade everything the tenant owns, leaves first.
	if err := execTx(ctx, tx, `DELETE FROM vector_index WHERE id IN (SELECT id FROM vectors WHERE tenant_id = ?)`, guid.String()); err != nil {
		return err
	}
	for _, q := range []string{
		`DELETE FROM vectors WHERE tenant_id = ?`,
		`DELETE FROM tags WHERE tenant_id = ?`,
		`DELETE FROM labels WHERE tenant_id = ?`,
		`DELETE FROM edges WHERE tenant_id = ?`,
		`DELETE FROM nodes WHERE tenant_id = ?`,
		`DELETE FROM graphs WHERE tenant_id = ?`,
		`DELETE FROM creds WHERE tenant_id = ?`,
		`DELETE FROM users WHERE tenant_id = ?`,
		`DELETE FROM tenants WHERE id = ?`,
	} {
		if err := execTx(ctx, tx, q, guid.String()); err != nil {
			return err
		}
	}

	return commit(tx, "tenant delete")
}

func (s *tenantStore) Exists(ctx context.Context, guid uuid.UUID) (bool, error) {
	return s.c.exists(ctx, `SELECT 1 FROM tenants WHERE id = ?`, guid.String())
}

func (s *tenantStore) Statistics(ctx context.Context, guid uuid.UUID) (*graph.TenantStatistics, error) {
	if _, err := s.ReadByGUID(ctx, guid); err != nil {
		return nil, err
	}

	const q = `SELECT
	(SELECT COUNT(*) FROM graphs  WHERE tenant_id = ?),
	(SELECT COUNT(*) FROM nodes   WHERE tenant_id = ?),
	(SELECT COUNT(*) FROM edges   WHERE tenant_id = ?),
	(SELECT COUNT(*) FROM labels  WHERE tenant_id = ?),
	(SELECT COUNT(*) FROM tags    WHERE tenant_id = ?),
	(SELECT COUNT(*) FROM vectors WHERE tenant_id = ?)`

	var st graph.TenantStatistics
	id := guid.String()
	err := s.c.db.QueryRowContext(ctx, q, id, id, id, id, id, id).Scan(
		&st.Graphs, &st.Nodes, &st.Edges, &st.Labels, &st.Tags, &st.Vectors,
	)
	if err != nil {
		return nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "reading tenant statistics: %w", err)
	}
	return &st, nil
}

// exists runs a 1-row probe query.
func (c *Client) exists(ctx context.Context, q string, args ...any) (bool, error) {
	var one int
	err := c.db.QueryRowContext(ctx, q, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "existence probe: %w", err)
	}
	return true, nil
}
