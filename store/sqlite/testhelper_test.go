// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quiver Contributors

package sqlite_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/quiver-db/quiver/graph"
	"github.com/quiver-db/quiver/store"
	"github.com/quiver-db/quiver/store/sqlite"
)

// testDir creates a temp directory for a test and returns its path.
func testDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "quiver-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

// testDBPath returns a temp SQLite database path.
func testDBPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(testDir(t), name+".db")
}

// testClient opens a fresh engine over a temp database.
func testClient(t *testing.T, name string, cfg *store.StorageConfig) *sqlite.Client {
	t.Helper()
	c, err := sqlite.NewClient(cfg, testDBPath(t, name))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// seedTenant creates a tenant to scope subsequent fixtures.
func seedTenant(t *testing.T, ctx context.Context, c *sqlite.Client) *graph.Tenant {
	t.Helper()
	tenant, err := c.Tenants().Create(ctx, &graph.Tenant{Name: "acme", Active: true})
	require.NoError(t, err)
	return tenant
}

// seedGraph creates a graph under the tenant.
func seedGraph(t *testing.T, ctx context.Context, c *sqlite.Client, tenantGUID uuid.UUID) *graph.Graph {
	t.Helper()
	g, err := c.Graphs().Create(ctx, &graph.Graph{TenantGUID: tenantGUID, Name: "main"})
	require.NoError(t, err)
	return g
}

// seedNode creates a named node in the graph.
func seedNode(t *testing.T, ctx context.Context, c *sqlite.Client, tenantGUID, graphGUID uuid.UUID, name string, data map[string]any) *graph.Node {
	t.Helper()
	n, err := c.Nodes().Create(ctx, &graph.Node{
		TenantGUID: tenantGUID,
		GraphGUID:  graphGUID,
		Name:       name,
		Data:       data,
	})
	require.NoError(t, err)
	return n
}

// seedEdge connects two nodes with a cost.
func seedEdge(t *testing.T, ctx context.Context, c *sqlite.Client, tenantGUID, graphGUID, from, to uuid.UUID, cost int) *graph.Edge {
	t.Helper()
	e, err := c.Edges().Create(ctx, &graph.Edge{
		TenantGUID: tenantGUID,
		GraphGUID:  graphGUID,
		From:       from,
		To:         to,
		Cost:       cost,
	})
	require.NoError(t, err)
	return e
}

// collectSeq drains a result sequence, failing the test on error.
func collectSeq[T any](t *testing.T, seq store.Seq[T]) []T {
	t.Helper()
	var out []T
	for item, err := range seq {
		require.NoError(t, err)
		out = append(out, item)
	}
	return out
}
