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
var _ store.CredentialStore = (*credentialStore)(nil)

type credentialStore struct {
	c *Client
}

const credCols = `id, tenant_id, user_id, name, bearer_token, active, created_utc, lastupdate_utc`

func (s *credentialStore) Create(ctx context.Context, cred *graph.Credential) (*graph.Credential, error) {
	if cred == nil {
		return nil, quiverr.New(quiverr.CodeStoreInvalidInput, "credential: record is required")
	}
	if cred.GUID == uuid.Nil {
		cred.GUID = uuid.New()
	}
	if err := cred.Validate(); err != nil {
		return nil, err
	}
	if err := s.c.requireTenant(ctx, cred.TenantGUID); err != nil {
		return nil, err
	}

	ok, err := s.c.exists(ctx, `SELECT 1 FROM users WHERE tenant_id = ? AND id = ?`, cred.TenantGUID.String(), cred.UserGUID.String())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, quiverr.New(quiverr.CodeStoreUserNotFound, "user "+cred.UserGUID.String()+" not found")
	}

	tx, done, err := s.c.beginWrite(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	existing, err := s.readTx(ctx, tx, cred.TenantGUID, cred.GUID)
	if err != nil && !quiverr.IsNotFound(err) {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now().UTC()
	cred.CreatedUtc = now
	cred.LastUpdateUtc = now

	const q = `INSERT INTO creds (` + credCols + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if err := execTx(ctx, tx, q,
		cred.GUID.String(), cred.TenantGUID.String(), cred.UserGUID.String(),
		cred.Name, cred.BearerToken, cred.Active,
		formatTime(now), formatTime(now),
	); err != nil {
		return nil, err
	}

	if err := commit(tx, "credential create"); err != nil {
		return nil, err
	}
	return cred, nil
}

func (s *credentialStore) ReadByGUID(ctx context.Context, tenantGUID, guid uuid.UUID) (*graph.Credential, error) {
	const q = `SELECT ` + credCols + ` FROM creds WHERE tenant_id = ? AND id = ?`
	return scanCredRow(s.c.db.QueryRowContext(ctx, q, tenantGUID.String(), guid.String()), guid.String())
}

func (s *credentialStore) readTx(ctx context.Context, tx *sql.Tx, tenantGUID, guid uuid.UUID) (*graph.Credential, error) {
	const q = `SELECT ` + credCols + ` FROM creds WHERE tenant_id = ? AND id = ?`
	return scanCredRow(tx.QueryRowContext(ctx, q, tenantGUID.String(), guid.String()), guid.String())
}

// ReadByBearerToken resolves an active credential by its token across
// all tenants, for callers authenticating a request.
func (s *credentialStore) ReadByBearerToken(ctx context.Context, token string) (*graph.Credential, error) {
	if token == "" {
		return nil, quiverr.New(quiverr.CodeStoreInvalidInput, "credential: bearer token is required")
	}
	const q = `SELECT ` + credCols + ` FROM creds WHERE bearer_token = ? AND active = 1`
	return scanCredRow(s.c.db.QueryRowContext(ctx, q, token), "by token")
}

func scanCredRow(row *sql.Row, ref string) (*graph.Credential, error) {
	var c graph.Credential
	var created, updated string
	err := row.Scan(&c.GUID, &c.TenantGUID, &c.UserGUID, &c.Name, &c.BearerToken, &c.Active, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, quiverr.New(quiverr.CodeStoreCredentialNotFound, "credential "+ref+" not found")
	}
	if err != nil {
		return nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "getting credential %s: %w", ref, err)
	}
	c.CreatedUtc = parseTime(created)
	c.LastUpdateUtc = parseTime(updated)
	return &c, nil
}

func (s *credentialStore) ReadMany(ctx context.Context, tenantGUID uuid.UUID, order graph.EnumerationOrder, skip int) store.Seq[*graph.Credential] {
	orderSQL, err := orderClause(order, "", false)
	if err != nil {
		return failSeq[*graph.Credential](err)
	}

	return enumerate(s.c.batchSize, skip, func(offset, limit int) ([]*graph.Credential, error) {
		q := `SELECT ` + credCols + ` FROM creds WHERE tenant_id = ? ORDER BY ` + orderSQL + ` LIMIT ? OFFSET ?`
		rows, err := s.c.db.QueryContext(ctx, q, tenantGUID.String(), limit, offset)
		if err != nil {
			return nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "listing credentials: %w", err)
		}
		defer func() { _ = rows.Close() }()

		var creds []*graph.Credential
		for rows.Next() {
			var c graph.Credential
			var created, updated string
			if err := rows.Scan(&c.GUID, &c.TenantGUID, &c.UserGUID, &c.Name, &c.BearerToken, &c.Active, &created, &updated); err != nil {
				return nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "scanning credential row: %w", err)
			}
			c.CreatedUtc = parseTime(created)
			c.LastUpdateUtc = parseTime(updated)
			creds = append(creds, &c)
		}
		return creds, rows.Err()
	})
}

func (s *credentialStore) Update(ctx context.Context, cred *graph.Credential) (*graph.Credential, error) {
	if cred == nil {
		return nil, quiverr.New(quiverr.CodeStoreInvalidInput, "credential: record is required")
	}
	if err := cred.Validate(); err != nil {
		return nil, err
	}

	tx, done, err := s.c.beginWrite(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	existing, err := s.readTx(ctx, tx, cred.TenantGUID, cred.GUID)
	if err != nil {
		return nil, err
	}

	cred.CreatedUtc = existing.CreatedUtc
	cred.LastUpdateUtc = time.Now().UTC()

	const q = `UPDATE creds SET user_id = ?, name = ?, bearer_token = ?, active = ?, lastupdate_utc = ?
WHERE tenant_id = ? AND id = ?`
	if err := execTx(ctx, tx, q,
		cred.UserGUID.String(), cred.Name, cred.BearerToken, cred.Active,
		formatTime(cred.LastUpdateUtc), cred.TenantGUID.String(), cred.GUID.String(),
	); err != nil {
		return nil, err
	}

	if err := commit(tx, "credential update"); err != nil {
		return nil, err
	}
	return cred, nil
}

func (s *credentialStore) Delete(ctx context.Context, tenantGUID, guid uuid.UUID) error {
	tx, done, err := s.c.beginWrite(ctx)
	if err != nil {
		return err
	}
	defer done()

	if _, err := s.readTx(ctx, tx, tenantGUID, guid); err != nil {
		return err
	}
	if err := execTx(ctx, tx, `DELETE FROM creds WHERE tenant_id = ? AND id = ?`, tenantGUID.String(), guid.String()); err != nil {
		return err
	}

	return commit(tx, "credential delete")
}

func (s *credentialStore) Exists(ctx context.Context, tenantGUID, guid uuid.UUID) (bool, error) {
	return s.c.exists(ctx, `SELECT 1 FROM creds WHERE tenant_id = ? AND id = ?`, tenantGUID.String(), guid.String())
}
