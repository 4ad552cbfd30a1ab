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
var _ store.UserStore = (*userStore)(nil)

type userStore struct {
	c *Client
}

const userCols = `id, tenant_id, first_name, last_name, email, password, active, created_utc, lastupdate_utc`

func (s *userStore) Create(ctx context.Context, user *graph.User) (*graph.User, error) {
	if user == nil {
		return nil, quiverr.New(quiverr.CodeStoreInvalidInput, "user: record is required")
	}
	if user.GUID == uuid.Nil {
		user.GUID = uuid.New()
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if err := s.c.requireTenant(ctx, user.TenantGUID); err != nil {
		return nil, err
	}

	tx, done, err := s.c.beginWrite(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	existing, err := s.readTx(ctx, tx, user.TenantGUID, user.GUID)
	if err != nil && !quiverr.IsNotFound(err) {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now().UTC()
	user.CreatedUtc = now
	user.LastUpdateUtc = now

	const q = `INSERT INTO users (` + userCols + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if err := execTx(ctx, tx, q,
		user.GUID.String(), user.TenantGUID.String(),
		user.FirstName, user.LastName, user.Email, user.Password, user.Active,
		formatTime(now), formatTime(now),
	); err != nil {
		return nil, err
	}

	if err := commit(tx, "user create"); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userStore) ReadByGUID(ctx context.Context, tenantGUID, guid uuid.UUID) (*graph.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE tenant_id = ? AND id = ?`
	return scanUserRow(s.c.db.QueryRowContext(ctx, q, tenantGUID.String(), guid.String()), guid)
}

func (s *userStore) readTx(ctx context.Context, tx *sql.Tx, tenantGUID, guid uuid.UUID) (*graph.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE tenant_id = ? AND id = ?`
	return scanUserRow(tx.QueryRowContext(ctx, q, tenantGUID.String(), guid.String()), guid)
}

func scanUserRow(row *sql.Row, guid uuid.UUID) (*graph.User, error) {
	var u graph.User
	var created, updated string
	err := row.Scan(&u.GUID, &u.TenantGUID, &u.FirstName, &u.LastName, &u.Email, &u.Password, &u.Active, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, quiverr.New(quiverr.CodeStoreUserNotFound, "user "+guid.String()+" not found")
	}
	if err != nil {
		return nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "getting user %s: %w", guid, err)
	}
	u.CreatedUtc = parseTime(created)
	u.LastUpdateUtc = parseTime(updated)
	return &u, nil
}

// userOrderClause maps enumeration orders onto user columns. Users
// have no name column; name ordering falls to email, the human-facing
// identifier. Cost and unrecognized orders fail.
func userOrderClause(order graph.EnumerationOrder) (string, error) {
	switch order {
	case "", graph.CreatedDescending:
		return "created_utc DESC", nil
	case graph.CreatedAscending:
		return "created_utc ASC", nil
	case graph.NameAscending:
		return "email ASC", nil
	case graph.NameDescending:
		return "email DESC", nil
	case graph.GuidAscending:
		return "id ASC", nil
	case graph.GuidDescending:
		return "id DESC", nil
	default:
		return "", quiverr.Errorf(quiverr.CodeStoreInvalidInput, "order %q is not valid for users", order)
	}
}

func (s *userStore) ReadMany(ctx context.Context, tenantGUID uuid.UUID, order graph.EnumerationOrder, skip int) store.Seq[*graph.User] {
	orderSQL, err := userOrderClause(order)
	if err != nil {
		return failSeq[*graph.User](err)
	}

	return enumerate(s.c.batchSize, skip, func(offset, limit int) ([]*graph.User, error) {
		q := `SELECT ` + userCols + ` FROM users WHERE tenant_id = ? ORDER BY ` + orderSQL + ` LIMIT ? OFFSET ?`
		rows, err := s.c.db.QueryContext(ctx, q, tenantGUID.String(), limit, offset)
		if err != nil {
			return nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "listing users: %w", err)
		}
		defer func() { _ = rows.Close() }()

		var users []*graph.User
		for rows.Next() {
			var u graph.User
			var created, updated string
			if err := rows.Scan(&u.GUID, &u.TenantGUID, &u.FirstName, &u.LastName, &u.Email, &u.Password, &u.Active, &created, &updated); err != nil {
				return nil, quiverr.Errorf(quiverr.CodeStoreDatabaseFailure, "scanning user row: %w", err)
			}
			u.CreatedUtc = parseTime(created)
			u.LastUpdateUtc = parseTime(updated)
			users = append(users, &u)
		}
		return users, rows.Err()
	})
}

func (s *userStore) Update(ctx context.Context, user *graph.User) (*graph.User, error) {
	if user == nil {
		return nil, quiverr.New(quiverr.CodeStoreInvalidInput, "user: record is required")
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}

	tx, done, err := s.c.beginWrite(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	existing, err := s.readTx(ctx, tx, user.TenantGUID, user.GUID)
	if err != nil {
		return nil, err
	}

	user.CreatedUtc = existing.CreatedUtc
	user.LastUpdateUtc = time.Now().UTC()

	const q = `UPDATE users SET first_name = ?, last_name = ?, email = ?, password = ?, active = ?, lastupdate_utc = ?
WHERE tenant_id = ? AND id = ?`
	if err := execTx(ctx, tx, q,
		user.FirstName, user.LastName, user.Email, user.Password, user.Active,
		formatTime(user.LastUpdateUtc), user.TenantGUID.String(), user.GUID.String(),
	); err != nil {
		return nil, err
	}

	if err := commit(tx, "user update"); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userStore) Delete(ctx context.Context, tenantGUID, guid uuid.UUID) error {
	tx, done, err := s.c.beginWrite(ctx)
	if err != nil {
		return err
	}
	defer done()

	if _, err := s.readTx(ctx, tx, tenantGUID, guid); err != nil {
		return err
	}

	// Credentials are useless without their user.
	if err := execTx(ctx, tx, `DELETE FROM creds WHERE tenant_id = ? AND user_id = ?`, tenantGUID.String(), guid.String()); err != nil {
		return err
	}
	if err := execTx(ctx, tx, `DELETE FROM users WHERE tenant_id = ? AND id = ?`, tenantGUID.String(), guid.String()); err != nil {
		return err
	}

	return commit(tx, "user delete")
}

func (s *userStore) Exists(ctx context.Context, tenantGUID, guid uuid.UUID) (bool, error) {
	return s.c.exists(ctx, `SELECT 1 FROM users WHERE tenant_id = ? AND id = ?`, tenantGUID.String(), guid.String())
}

// requireTenant raises the not-found error before any mutating query
// when the owning tenant does not exist.
func (c *Client) requireTenant(ctx context.Context, guid uuid.UUID) error {
	ok, err := c.exists(ctx, `SELECT 1 FROM tenants WHERE id = ?`, guid.String())
	if err != nil {
		return err
	}
	if !ok {
		return quiverr.New(quiverr.CodeStoreTenantNotFound, "tenant "+guid.String()+" not found",
			quiverr.FieldTenantID(guid.String()))
	}
	return nil
}
