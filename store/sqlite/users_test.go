// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quiver Contributors

package sqlite_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiver-db/quiver/graph"
	quiverr "github.com/quiver-db/quiver/pkg/errors"
)

func TestUserStore_CRUD(t *testing.T) {
	ctx := context.Background()
	c := testClient(t, "users", nil)
	tenant := seedTenant(t, ctx, c)

	u, err := c.Users().Create(ctx, &graph.User{
		TenantGUID: tenant.GUID,
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Email:      "ada@example.com",
		Password:   "secret",
		Active:     true,
	})
	require.NoError(t, err)

	got, err := c.Users().ReadByGUID(ctx, tenant.GUID, u.GUID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", got.Email)
	assert.True(t, got.Active)

	got.Email = "ada.l@example.com"
	got.Active = false
	_, err = c.Users().Update(ctx, got)
	require.NoError(t, err)

	reread, err := c.Users().ReadByGUID(ctx, tenant.GUID, u.GUID)
	require.NoError(t, err)
	assert.Equal(t, "ada.l@example.com", reread.Email)
	assert.False(t, reread.Active)
	assert.Equal(t, got.CreatedUtc, reread.CreatedUtc)

	require.NoError(t, c.Users().Delete(ctx, tenant.GUID, u.GUID))
	_, err = c.Users().ReadByGUID(ctx, tenant.GUID, u.GUID)
	assert.True(t, quiverr.IsNotFound(err))
}

func TestUserStore_CreateRequiresTenant(t *testing.T) {
	ctx := context.Background()
	c := testClient(t, "users-notenant", nil)

	_, err := c.Users().Create(ctx, &graph.User{
		TenantGUID: uuid.New(),
		Email:      "ghost@example.com",
	})
	assert.True(t, quiverr.IsNotFound(err))
}

func TestUserStore_ReadManyRejectsCostOrder(t *testing.T) {
	ctx := context.Background()
	c := testClient(t, "users-order", nil)
	tenant := seedTenant(t, ctx, c)

	var got error
	for _, err := range c.Users().ReadMany(ctx, tenant.GUID, graph.CostAscending, 0) {
		got = err
		break
	}
	assert.True(t, quiverr.IsInvalidInput(got))
}

func TestUserStore_DeleteCascadesCredentials(t *testing.T) {
	ctx := context.Background()
	c := testClient(t, "users-cascade", nil)
	tenant := seedTenant(t, ctx, c)

	u, err := c.Users().Create(ctx, &graph.User{
		TenantGUID: tenant.GUID, Email: "ada@example.com", Active: true,
	})
	require.NoError(t, err)

	cred, err := c.Credentials().Create(ctx, &graph.Credential{
		TenantGUID:  tenant.GUID,
		UserGUID:    u.GUID,
		Name:        "default",
		BearerToken: "tok-ada",
		Active:      true,
	})
	require.NoError(t, err)

	require.NoError(t, c.Users().Delete(ctx, tenant.GUID, u.GUID))

	_, err = c.Credentials().ReadByGUID(ctx, tenant.GUID, cred.GUID)
	assert.True(t, quiverr.IsNotFound(err))
}

func TestCredentialStore_ReadByBearerToken(t *testing.T) {
	ctx := context.Background()
	c := testClient(t, "creds-token", nil)
	tenant := seedTenant(t, ctx, c)

	u, err := c.Users().Create(ctx, &graph.User{
		TenantGUID: tenant.GUID, Email: "ada@example.com", Active: true,
	})
	require.NoError(t, err)

	active, err := c.Credentials().Create(ctx, &graph.Credential{
		TenantGUID: tenant.GUID, UserGUID: u.GUID, BearerToken: "tok-active", Active: true,
	})
	require.NoError(t, err)
	_, err = c.Credentials().Create(ctx, &graph.Credential{
		TenantGUID: tenant.GUID, UserGUID: u.GUID, BearerToken: "tok-revoked", Active: false,
	})
	require.NoError(t, err)

	got, err := c.Credentials().ReadByBearerToken(ctx, "tok-active")
	require.NoError(t, err)
	assert.Equal(t, active.GUID, got.GUID)

	// Inactive tokens do not resolve.
	_, err = c.Credentials().ReadByBearerToken(ctx, "tok-revoked")
	assert.True(t, quiverr.IsNotFound(err))

	_, err = c.Credentials().ReadByBearerToken(ctx, "tok-unknown")
	assert.True(t, quiverr.IsNotFound(err))
}

func TestCredentialStore_CreateRequiresUser(t *testing.T) {
	ctx := context.Background()
	c := testClient(t, "creds-nouser", nil)
	tenant := seedTenant(t, ctx, c)

	_, err := c.Credentials().Create(ctx, &graph.Credential{
		TenantGUID: tenant.GUID, UserGUID: uuid.New(), BearerToken: "tok",
	})
	assert.True(t, quiverr.IsNotFound(err))
}
