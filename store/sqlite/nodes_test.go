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

func TestNodeStore_CRUD(t *testing.T) {
	ctx := context.Background()
	c := testClient(t, "nodes", nil)
	tenant := seedTenant(t, ctx, c)
	g := seedGraph(t, ctx, c, tenant.GUID)

	n, err := c.Nodes().Create(ctx, &graph.Node{
		TenantGUID: tenant.GUID,
		GraphGUID:  g.GUID,
		Name:       "city-a",
		Data:       map[string]any{"population": float64(120000)},
		Labels:     []string{"city"},
		Tags:       map[string]string{"country": "de"},
	})
	require.NoError(t, err)

	got, err := c.Nodes().ReadByGUID(ctx, tenant.GUID, g.GUID, n.GUID)
	require.NoError(t, err)
	assert.Equal(t, "city-a", got.Name)
	assert.Equal(t, float64(120000), got.Data["population"])
	assert.Equal(t, []string{"city"}, got.Labels)

	got.Name = "city-a-renamed"
	got.Tags = map[string]string{"country": "fr"}
	_, err = c.Nodes().Update(ctx, got)
	require.NoError(t, err)

	reread, err := c.Nodes().ReadByGUID(ctx, tenant.GUID, g.GUID, n.GUID)
	require.NoError(t, err)
	assert.Equal(t, "city-a-renamed", reread.Name)
	assert.Equal(t, map[string]string{"country": "fr"}, reread.Tags)

	require.NoError(t, c.Nodes().Delete(ctx, tenant.GUID, g.GUID, n.GUID))
	_, err = c.Nodes().ReadByGUID(ctx, tenant.GUID, g.GUID, n.GUID)
	assert.True(t, quiverr.IsNotFound(err))
}

func TestNodeStore_CreateManyIsAtomic(t *testing.T) {
	ctx := context.Background()
	c := testClient(t, "nodes-batch", nil)
	tenant := seedTenant(t, ctx, c)
	g := seedGraph(t, ctx, c, tenant.GUID)

	existing := seedNode(t, ctx, c, tenant.GUID, g.GUID, "existing", nil)

	// One candidate collides; the whole batch must be rejected and
	// nothing inserted.
	fresh := uuid.New()
	_, err := c.Nodes().CreateMany(ctx, tenant.GUID, g.GUID, []*graph.Node{
		{GUID: fresh, Name: "fresh"},
		{GUID: existing.GUID, Name: "duplicate"},
	})
	require.Error(t, err)
	assert.True(t, quiverr.IsConflict(err))

	_, err = c.Nodes().ReadByGUID(ctx, tenant.GUID, g.GUID, fresh)
	assert.True(t, quiverr.IsNotFound(err))

	nodes := collectSeq(t, c.Nodes().ReadMany(ctx, tenant.GUID, g.GUID, store.Filter{}))
	assert.Len(t, nodes, 1)
}

func TestNodeStore_DeleteCascadesIncidentEdges(t *testing.T) {
	ctx := context.Background()
	c := testClient(t, "nodes-cascade", nil)
	tenant := seedTenant(t, ctx, c)
	g := seedGraph(t, ctx, c, tenant.GUID)

	a := seedNode(t, ctx, c, tenant.GUID, g.GUID, "a", nil)
	b := seedNode(t, ctx, c, tenant.GUID, g.GUID, "b", nil)
	d := seedNode(t, ctx, c, tenant.GUID, g.GUID, "c", nil)

	inbound := seedEdge(t, ctx, c, tenant.GUID, g.GUID, a.GUID, b.GUID, 1)
	outbound := seedEdge(t, ctx, c, tenant.GUID, g.GUID, b.GUID, d.GUID, 1)
	unrelated := seedEdge(t, ctx, c, tenant.GUID, g.GUID, a.GUID, d.GUID, 1)

	_, err := c.Tags().Create(ctx, &graph.Tag{
		TenantGUID: tenant.GUID, GraphGUID: &g.GUID, EdgeGUID: &inbound.GUID, Key: "k", Value: "v",
	})
	require.NoError(t, err)

	require.NoError(t, c.Nodes().Delete(ctx, tenant.GUID, g.GUID, b.GUID))

	_, err = c.Edges().ReadByGUID(ctx, tenant.GUID, g.GUID, inbound.GUID)
	assert.True(t, quiverr.IsNotFound(err))
	_, err = c.Edges().ReadByGUID(ctx, tenant.GUID, g.GUID, outbound.GUID)
	assert.True(t, quiverr.IsNotFound(err))

	// The edge not touching the deleted node survives, and the dead
	// edge's tag is gone with it.
	_, err = c.Edges().ReadByGUID(ctx, tenant.GUID, g.GUID, unrelated.GUID)
	assert.NoError(t, err)
	tags := collectSeq(t, c.Tags().ReadMany(ctx, tenant.GUID, store.Scope{EdgeGUIDs: []uuid.UUID{inbound.GUID}}, graph.CreatedAscending, 0))
	assert.Empty(t, tags)
}

func TestNodeStore_DeleteAll(t *testing.T) {
	ctx := context.Background()
	c := testClient(t, "nodes-deleteall", nil)
	tenant := seedTenant(t, ctx, c)
	g := seedGraph(t, ctx, c, tenant.GUID)

	a := seedNode(t, ctx, c, tenant.GUID, g.GUID, "a", nil)
	b := seedNode(t, ctx, c, tenant.GUID, g.GUID, "b", nil)
	seedEdge(t, ctx, c, tenant.GUID, g.GUID, a.GUID, b.GUID, 1)

	require.NoError(t, c.Nodes().DeleteAll(ctx, tenant.GUID, g.GUID))

	assert.Empty(t, collectSeq(t, c.Nodes().ReadMany(ctx, tenant.GUID, g.GUID, store.Filter{})))
	assert.Empty(t, collectSeq(t, c.Edges().ReadMany(ctx, tenant.GUID, g.GUID, store.Filter{})))
}

func TestNodeStore_Traversals(t *testing.T) {
	ctx := context.Background()
	c := testClient(t, "nodes-traverse", nil)
	tenant := seedTenant(t, ctx, c)
	g := seedGraph(t, ctx, c, tenant.GUID)

	hub := seedNode(t, ctx, c, tenant.GUID, g.GUID, "hub", nil)
	parent := seedNode(t, ctx, c, tenant.GUID, g.GUID, "parent", nil)
	child := seedNode(t, ctx, c, tenant.GUID, g.GUID, "child", nil)
	both := seedNode(t, ctx, c, tenant.GUID, g.GUID, "both", nil)

	seedEdge(t, ctx, c, tenant.GUID, g.GUID, parent.GUID, hub.GUID, 1)
	seedEdge(t, ctx, c, tenant.GUID, g.GUID, hub.GUID, child.GUID, 1)
	seedEdge(t, ctx, c, tenant.GUID, g.GUID, both.GUID, hub.GUID, 1)
	seedEdge(t, ctx, c, tenant.GUID, g.GUID, hub.GUID, both.GUID, 1)

	parents := collectSeq(t, c.Nodes().GetParents(ctx, tenant.GUID, g.GUID, hub.GUID, store.Filter{Order: graph.NameAscending}))
	require.Len(t, parents, 2)
	assert.Equal(t, "both", parents[0].Name)
	assert.Equal(t, "parent", parents[1].Name)

	children := collectSeq(t, c.Nodes().GetChildren(ctx, tenant.GUID, g.GUID, hub.GUID, store.Filter{Order: graph.NameAscending}))
	require.Len(t, children, 2)
	assert.Equal(t, "both", children[0].Name)
	assert.Equal(t, "child", children[1].Name)

	// Neighbors deduplicate nodes that are both parent and child.
	neighbors := collectSeq(t, c.Nodes().GetNeighbors(ctx, tenant.GUID, g.GUID, hub.GUID, store.Filter{Order: graph.NameAscending}))
	require.Len(t, neighbors, 3)
	assert.Equal(t, "both", neighbors[0].Name)
	assert.Equal(t, "child", neighbors[1].Name)
	assert.Equal(t, "parent", neighbors[2].Name)
}

func TestNodeStore_RetriedCreateReturnsStoredRow(t *testing.T) {
	ctx := context.Background()
	c := testClient(t, "nodes-retry", nil)
	tenant := seedTenant(t, ctx, c)
	g := seedGraph(t, ctx, c, tenant.GUID)

	first, err := c.Nodes().Create(ctx, &graph.Node{
		TenantGUID: tenant.GUID,
		GraphGUID:  g.GUID,
		Name:       "depot",
		Labels:     []string{"city"},
		Tags:       map[string]string{"country": "de"},
	})
	require.NoError(t, err)

	// Re-submitting the GUID is a no-op that hands back the stored row,
	// attached metadata included.
	retry, err := c.Nodes().Create(ctx, &graph.Node{
		TenantGUID: tenant.GUID,
		GraphGUID:  g.GUID,
		GUID:       first.GUID,
		Name:       "depot-retry",
	})
	require.NoError(t, err)
	assert.Equal(t, "depot", retry.Name)
	assert.Equal(t, []string{"city"}, retry.Labels)
	assert.Equal(t, map[string]string{"country": "de"}, retry.Tags)
}

func TestNodeStore_PaginatedEnumeration(t *testing.T) {
	ctx := context.Background()
	c := testClient(t, "nodes-pages", &store.StorageConfig{SelectBatchSize: 3})
	tenant := seedTenant(t, ctx, c)
	g := seedGraph(t, ctx, c, tenant.GUID)

	const total = 10
	for i := 0; i < total; i++ {
		seedNode(t, ctx, c, tenant.GUID, g.GUID, "n"+string(rune('a'+i)), nil)
	}

	// Ten rows over a page size of three: the sequence spans page
	// boundaries without loss or duplication.
	nodes := collectSeq(t, c.Nodes().ReadMany(ctx, tenant.GUID, g.GUID, store.Filter{Order: graph.NameAscending}))
	require.Len(t, nodes, total)
	seen := map[uuid.UUID]bool{}
	for _, n := range nodes {
		assert.False(t, seen[n.GUID])
		seen[n.GUID] = true
	}

	skipped := collectSeq(t, c.Nodes().ReadMany(ctx, tenant.GUID, g.GUID, store.Filter{Order: graph.NameAscending, Skip: 4}))
	require.Len(t, skipped, total-4)
	assert.Equal(t, nodes[4].GUID, skipped[0].GUID)
}

// Offset pagination offers a weak guarantee: rows that shift between
// page fetches are skipped or repeated, never surfaced as an error.
func TestNodeStore_EnumerationUnderMutation(t *testing.T) {
	ctx := context.Background()

	t.Run("delete shifts a later row out of the window", func(t *testing.T) {
		c := testClient(t, "nodes-mutate-delete", &store.StorageConfig{SelectBatchSize: 3})
		tenant := seedTenant(t, ctx, c)
		g := seedGraph(t, ctx, c, tenant.GUID)

		first := seedNode(t, ctx, c, tenant.GUID, g.GUID, "na", nil)
		for i := 1; i < 10; i++ {
			seedNode(t, ctx, c, tenant.GUID, g.GUID, "n"+string(rune('a'+i)), nil)
		}

		var got []string
		count := 0
		for n, err := range c.Nodes().ReadMany(ctx, tenant.GUID, g.GUID, store.Filter{Order: graph.NameAscending}) {
			require.NoError(t, err)
			got = append(got, n.Name)
			count++
			if count == 3 {
				// Removing an already-returned row slides the next
				// offset window past nd.
				require.NoError(t, c.Nodes().Delete(ctx, tenant.GUID, g.GUID, first.GUID))
			}
		}
		assert.Equal(t, []string{"na", "nb", "nc", "ne", "nf", "ng", "nh", "ni", "nj"}, got)
		assert.NotContains(t, got, "nd")
	})

	t.Run("insert shifts an earlier row back into the window", func(t *testing.T) {
		c := testClient(t, "nodes-mutate-insert", &store.StorageConfig{SelectBatchSize: 3})
		tenant := seedTenant(t, ctx, c)
		g := seedGraph(t, ctx, c, tenant.GUID)

		for i := 0; i < 10; i++ {
			seedNode(t, ctx, c, tenant.GUID, g.GUID, "n"+string(rune('a'+i)), nil)
		}

		var got []string
		count := 0
		for n, err := range c.Nodes().ReadMany(ctx, tenant.GUID, g.GUID, store.Filter{Order: graph.NameAscending}) {
			require.NoError(t, err)
			got = append(got, n.Name)
			count++
			if count == 3 {
				// A row sorting before the cursor pushes nc into the
				// next window a second time.
				seedNode(t, ctx, c, tenant.GUID, g.GUID, "aa", nil)
			}
		}
		require.Len(t, got, 11)
		assert.Equal(t, []string{"na", "nb", "nc", "nc"}, got[:4])
		assert.NotContains(t, got, "aa")
	})
}
