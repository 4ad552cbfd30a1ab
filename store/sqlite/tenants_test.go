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
	"github.com/quiver-db/quiver/store"
)

func TestTenantStore_CRUD(t *testing.T) {
	ctx := context.Background()
	c := testClient(t, "tenants", nil)

	tenant, err := c.Tenants().Create(ctx, &graph.Tenant{Name: "acme", Active: true})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, tenant.GUID)

	got, err := c.Tenants().ReadByGUID(ctx, tenant.GUID)
	require.NoError(t, err)
	assert.Equal(t, "acme", got.Name)
	assert.True(t, got.Active)
	assert.False(t, got.CreatedUtc.IsZero())

	got.Name = "acme-renamed"
	updated, err := c.Tenants().Update(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, tenant.CreatedUtc.UTC().Truncate(0), updated.CreatedUtc.UTC().Truncate(0))

	exists, err := c.Tenants().Exists(ctx, tenant.GUID)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, c.Tenants().Delete(ctx, tenant.GUID, false))

	_, err = c.Tenants().ReadByGUID(ctx, tenant.GUID)
	require.Error(t, err)
	assert.True(t, quiverr.IsNotFound(err))
}

func TestTenantStore_CreateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	c := testClient(t, "tenants-idem", nil)

	first, err := c.Tenants().Create(ctx, &graph.Tenant{Name: "acme", Active: true})
	require.NoError(t, err)

	// Re-submitting the same GUID returns the stored row, not an error
	// and not a duplicate.
	second, err := c.Tenants().Create(ctx, &graph.Tenant{GUID: first.GUID, Name: "other-name"})
	require.NoError(t, err)
	assert.Equal(t, first.GUID, second.GUID)
	assert.Equal(t, "acme", second.Name)

	all := collectSeq(t, c.Tenants().ReadMany(ctx, graph.CreatedAscending, 0))
	assert.Len(t, all, 1)
}

func TestTenantStore_DeleteRejectsNonEmptyWithoutForce(t *testing.T) {
	ctx := context.Background()
	c := testClient(t, "tenants-conflict", nil)

	tenant := seedTenant(t, ctx, c)
	seedGraph(t, ctx, c, tenant.GUID)

	err := c.Tenants().Delete(ctx, tenant.GUID, false)
	require.Error(t, err)
	assert.True(t, quiverr.IsConflict(err))
}

func TestTenantStore_ForceDeleteCascades(t *testing.T) {
	ctx := context.Background()
	c := testClient(t, "tenants-cascade", nil)

	tenant := seedTenant(t, ctx, c)
	g := seedGraph(t, ctx, c, tenant.GUID)
	a := seedNode(t, ctx, c, tenant.GUID, g.GUID, "a", nil)
	b := seedNode(t, ctx, c, tenant.GUID, g.GUID, "b", nil)
	seedEdge(t, ctx, c, tenant.GUID, g.GUID, a.GUID, b.GUID, 1)

	_, err := c.Tags().Create(ctx, &graph.Tag{
		TenantGUID: tenant.GUID, GraphGUID: &g.GUID, NodeGUID: &a.GUID, Key: "color", Value: "red",
	})
	require.NoError(t, err)

	require.NoError(t, c.Tenants().Delete(ctx, tenant.GUID, true))

	// Nothing scoped to the tenant survives.
	_, err = c.Graphs().ReadByGUID(ctx, tenant.GUID, g.GUID)
	assert.True(t, quiverr.IsNotFound(err))
	tags := collectSeq(t, c.Tags().ReadMany(ctx, tenant.GUID, store.Scope{}, graph.CreatedAscending, 0))
	assert.Empty(t, tags)
}

func TestTenantStore_Statistics(t *testing.T) {
	ctx := context.Background()
	c := testClient(t, "tenants-stats", nil)

	tenant := seedTenant(t, ctx, c)
	g := seedGraph(t, ctx, c, tenant.GUID)
	a := seedNode(t, ctx, c, tenant.GUID, g.GUID, "a", nil)
	b := seedNode(t, ctx, c, tenant.GUID, g.GUID, "b", nil)
	seedEdge(t, ctx, c, tenant.GUID, g.GUID, a.GUID, b.GUID, 1)

	stats, err := c.Tenants().Statistics(ctx, tenant.GUID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Graphs)
	assert.Equal(t, 2, stats.Nodes)
	assert.Equal(t, 1, stats.Edges)
}
