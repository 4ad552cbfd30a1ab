// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quiver Contributors

package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiver-db/quiver/graph"
	quiverr "github.com/quiver-db/quiver/pkg/errors"
)

func TestNewExpr(t *testing.T) {
	e, err := graph.NewExpr("status", graph.OperatorEquals, "open")
	require.NoError(t, err)
	assert.Equal(t, "status", e.Left)
	assert.Equal(t, graph.OperatorEquals, e.Operator)
	assert.Equal(t, "open", e.Right)

	_, err = graph.NewExpr(nil, graph.OperatorEquals, "open")
	assert.True(t, quiverr.HasCode(err, quiverr.CodeExprConstructInvalid))

	_, err = graph.NewExpr("status", graph.OperatorEquals, nil)
	assert.True(t, quiverr.HasCode(err, quiverr.CodeExprConstructInvalid))

	// Null checks stand alone.
	e, err = graph.NewExpr("deleted_at", graph.OperatorIsNull, nil)
	require.NoError(t, err)
	assert.Nil(t, e.Right)
}

func TestOperatorRequiresRight(t *testing.T) {
	assert.False(t, graph.OperatorIsNull.RequiresRight())
	assert.False(t, graph.OperatorIsNotNull.RequiresRight())
	assert.True(t, graph.OperatorEquals.RequiresRight())
	assert.True(t, graph.OperatorIn.RequiresRight())
}

func TestBetween(t *testing.T) {
	e, err := graph.Between("cost", 5, 10)
	require.NoError(t, err)
	assert.Equal(t, graph.OperatorAnd, e.Operator)

	lower, ok := e.Left.(*graph.Expr)
	require.True(t, ok)
	assert.Equal(t, graph.OperatorGreaterThanOrEqualTo, lower.Operator)
	assert.Equal(t, 5, lower.Right)

	upper, ok := e.Right.(*graph.Expr)
	require.True(t, ok)
	assert.Equal(t, graph.OperatorLessThanOrEqualTo, upper.Operator)
	assert.Equal(t, 10, upper.Right)
}

func TestPrepend(t *testing.T) {
	base, err := graph.NewExpr("a", graph.OperatorEquals, 1)
	require.NoError(t, err)
	add, err := graph.NewExpr("b", graph.OperatorEquals, 2)
	require.NoError(t, err)

	// The added expression becomes the left branch; the receiver moves
	// to the right.
	joined := base.PrependAnd(add)
	assert.Equal(t, graph.OperatorAnd, joined.Operator)
	assert.Same(t, add, joined.Left)
	assert.Same(t, base, joined.Right)

	joined = base.PrependOr(add)
	assert.Equal(t, graph.OperatorOr, joined.Operator)
	assert.Same(t, add, joined.Left)
	assert.Same(t, base, joined.Right)
}

func TestListToNestedExpr(t *testing.T) {
	assert.Nil(t, graph.ListToNestedAndExpr(nil))

	single, err := graph.NewExpr("a", graph.OperatorEquals, 1)
	require.NoError(t, err)
	assert.Same(t, single, graph.ListToNestedAndExpr([]*graph.Expr{single}))

	b, err := graph.NewExpr("b", graph.OperatorEquals, 2)
	require.NoError(t, err)
	c, err := graph.NewExpr("c", graph.OperatorEquals, 3)
	require.NoError(t, err)

	// Three elements fold right-deep: a And (b And c).
	folded := graph.ListToNestedAndExpr([]*graph.Expr{single, b, c})
	assert.Equal(t, graph.OperatorAnd, folded.Operator)
	assert.Same(t, single, folded.Left)
	inner, ok := folded.Right.(*graph.Expr)
	require.True(t, ok)
	assert.Same(t, b, inner.Left)
	assert.Same(t, c, inner.Right)

	or := graph.ListToNestedOrExpr([]*graph.Expr{single, b})
	assert.Equal(t, graph.OperatorOr, or.Operator)
}

func TestRouteDetailTotalCost(t *testing.T) {
	r := &graph.RouteDetail{Edges: []*graph.Edge{{Cost: 2}, {Cost: 3}, {Cost: 5}}}
	assert.Equal(t, 10, r.TotalCost())
	assert.Equal(t, 0, (&graph.RouteDetail{}).TotalCost())
}
