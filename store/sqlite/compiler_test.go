// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quiver Contributors

package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiver-db/quiver/graph"
	quiverr "github.com/quiver-db/quiver/pkg/errors"
)

func TestCompileExpr_NilIsNoOp(t *testing.T) {
	w, err := compileExpr(nil, "data")
	require.NoError(t, err)
	assert.True(t, w.empty())
}

func TestCompileExpr_Comparison(t *testing.T) {
	e, err := graph.NewExpr("city.population", graph.OperatorGreaterThan, 100000)
	require.NoError(t, err)

	w, err := compileExpr(e, "n.data")
	require.NoError(t, err)
	assert.Equal(t, "json_extract(n.data, '$.' || ?) > ?", w.SQL)
	assert.Equal(t, []any{"city.population", 100000}, w.Args)
}

func TestCompileExpr_PathIsBoundNotConcatenated(t *testing.T) {
	// A hostile field path must end up as a parameter, never as SQL text.
	e, err := graph.NewExpr("x') OR 1=1 --", graph.OperatorEquals, "v")
	require.NoError(t, err)

	w, err := compileExpr(e, "data")
	require.NoError(t, err)
	assert.NotContains(t, w.SQL, "1=1")
	assert.Equal(t, []any{"x') OR 1=1 --", "v"}, w.Args)
}

func TestCompileExpr_BooleanNesting(t *testing.T) {
	left, err := graph.NewExpr("status", graph.OperatorEquals, "open")
	require.NoError(t, err)
	right, err := graph.NewExpr("cost", graph.OperatorLessThan, 10)
	require.NoError(t, err)

	w, err := compileExpr(&graph.Expr{Left: left, Operator: graph.OperatorAnd, Right: right}, "data")
	require.NoError(t, err)
	assert.Equal(t, "(json_extract(data, '$.' || ?) = ? AND json_extract(data, '$.' || ?) < ?)", w.SQL)
	assert.Equal(t, []any{"status", "open", "cost", 10}, w.Args)
}

func TestCompileExpr_BooleanCollapsesNoOpBranch(t *testing.T) {
	real, err := graph.NewExpr("status", graph.OperatorEquals, "open")
	require.NoError(t, err)
	// An In with an empty list compiles to nothing; the And collapses to
	// the surviving side.
	noop := &graph.Expr{Left: "x", Operator: graph.OperatorIn, Right: []string{}}

	w, err := compileExpr(&graph.Expr{Left: real, Operator: graph.OperatorAnd, Right: noop}, "data")
	require.NoError(t, err)
	assert.Equal(t, "json_extract(data, '$.' || ?) = ?", w.SQL)

	w, err = compileExpr(&graph.Expr{Left: noop, Operator: graph.OperatorOr, Right: real}, "data")
	require.NoError(t, err)
	assert.Equal(t, "json_extract(data, '$.' || ?) = ?", w.SQL)
}

func TestCompileExpr_Membership(t *testing.T) {
	e, err := graph.NewExpr("region", graph.OperatorIn, []string{"eu", "us", "ap"})
	require.NoError(t, err)

	w, err := compileExpr(e, "data")
	require.NoError(t, err)
	assert.Equal(t, "json_extract(data, '$.' || ?) IN (?,?,?)", w.SQL)
	assert.Equal(t, []any{"region", "eu", "us", "ap"}, w.Args)

	e, err = graph.NewExpr("region", graph.OperatorNotIn, []string{"eu"})
	require.NoError(t, err)
	w, err = compileExpr(e, "data")
	require.NoError(t, err)
	assert.Equal(t, "json_extract(data, '$.' || ?) NOT IN (?)", w.SQL)
}

func TestCompileExpr_Patterns(t *testing.T) {
	cases := []struct {
		op      graph.Operator
		sql     string
		pattern string
	}{
		{graph.OperatorContains, " LIKE ?", "%mid%"},
		{graph.OperatorContainsNot, " NOT LIKE ?", "%mid%"},
		{graph.OperatorStartsWith, " LIKE ?", "mid%"},
		{graph.OperatorStartsWithNot, " NOT LIKE ?", "mid%"},
		{graph.OperatorEndsWith, " LIKE ?", "%mid"},
		{graph.OperatorEndsWithNot, " NOT LIKE ?", "%mid"},
	}
	for _, tc := range cases {
		e, err := graph.NewExpr("name", tc.op, "mid")
		require.NoError(t, err)
		w, err := compileExpr(e, "data")
		require.NoError(t, err)
		assert.Equal(t, "json_extract(data, '$.' || ?)"+tc.sql, w.SQL, string(tc.op))
		assert.Equal(t, []any{"name", tc.pattern}, w.Args, string(tc.op))
	}
}

func TestCompileExpr_NullChecks(t *testing.T) {
	e, err := graph.NewExpr("deleted_at", graph.OperatorIsNull, nil)
	require.NoError(t, err)
	w, err := compileExpr(e, "data")
	require.NoError(t, err)
	assert.Equal(t, "json_extract(data, '$.' || ?) IS NULL", w.SQL)

	e, err = graph.NewExpr("deleted_at", graph.OperatorIsNotNull, nil)
	require.NoError(t, err)
	w, err = compileExpr(e, "data")
	require.NoError(t, err)
	assert.Equal(t, "json_extract(data, '$.' || ?) IS NOT NULL", w.SQL)
}

func TestCompileExpr_RejectsBadTerms(t *testing.T) {
	_, err := compileExpr(&graph.Expr{Left: 42, Operator: graph.OperatorEquals, Right: "v"}, "data")
	assert.True(t, quiverr.HasCode(err, quiverr.CodeExprCompileInvalid))

	_, err = compileExpr(&graph.Expr{Left: "a", Operator: graph.Operator("Bogus"), Right: "v"}, "data")
	assert.True(t, quiverr.HasCode(err, quiverr.CodeExprCompileInvalid))

	_, err = compileExpr(&graph.Expr{Left: "not-nested", Operator: graph.OperatorAnd, Right: &graph.Expr{}}, "data")
	assert.True(t, quiverr.HasCode(err, quiverr.CodeExprCompileInvalid))
}

func TestOrderClause(t *testing.T) {
	got, err := orderClause("", "n", false)
	require.NoError(t, err)
	assert.Equal(t, "n.created_utc DESC", got)

	got, err = orderClause(graph.NameAscending, "g", false)
	require.NoError(t, err)
	assert.Equal(t, "g.name ASC", got)

	got, err = orderClause(graph.CostDescending, "e", true)
	require.NoError(t, err)
	assert.Equal(t, "e.cost DESC", got)

	_, err = orderClause(graph.CostAscending, "n", false)
	assert.True(t, quiverr.IsInvalidInput(err))

	_, err = orderClause(graph.EnumerationOrder("Sideways"), "n", false)
	assert.True(t, quiverr.IsInvalidInput(err))
}

func TestMetadataJoins(t *testing.T) {
	joins, args := metadataJoins("n", "node_id", []string{"city", "hub"}, map[string]string{"env": "prod", "tier": ""})
	assert.Contains(t, joins, "JOIN labels l0 ON l0.tenant_id = n.tenant_id AND l0.node_id = n.id AND l0.label = ?")
	assert.Contains(t, joins, "JOIN labels l1")
	assert.Contains(t, joins, "JOIN tags t0 ON t0.tenant_id = n.tenant_id AND t0.node_id = n.id AND t0.tkey = ? AND t0.tvalue = ?")
	assert.Contains(t, joins, "AND (t1.tvalue IS NULL OR t1.tvalue = '')")
	// Keys are visited sorted: env before tier.
	assert.Equal(t, []any{"city", "hub", "env", "prod", "tier"}, args)
}

func TestMetadataJoins_GraphScopeExcludesChildRows(t *testing.T) {
	joins, _ := metadataJoins("g", "graph_id", []string{"prod"}, nil)
	assert.Contains(t, joins, "l0.node_id IS NULL AND l0.edge_id IS NULL")
}

func TestBuildFilteredSelect_ArgOrder(t *testing.T) {
	expr, err := graph.NewExpr("status", graph.OperatorEquals, "open")
	require.NoError(t, err)

	q, args, err := buildFilteredSelect(
		"n.id", "nodes", "n", "node_id", false,
		"n.tenant_id = ? AND n.graph_id = ?", []any{"tid", "gid"},
		filterParams{Labels: []string{"city"}, Expr: expr, Limit: 50, Offset: 10},
	)
	require.NoError(t, err)
	assert.Contains(t, q, "SELECT DISTINCT n.id FROM nodes n")
	assert.Contains(t, q, "WHERE n.tenant_id = ? AND n.graph_id = ?")
	assert.Contains(t, q, "LIMIT ? OFFSET ?")
	// Join args, then base scoping, then expression, then the window.
	assert.Equal(t, []any{"city", "tid", "gid", "status", "open", 50, 10}, args)
}
