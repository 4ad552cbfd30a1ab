// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quiver Contributors

package graph_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/quiver-db/quiver/graph"
	quiverr "github.com/quiver-db/quiver/pkg/errors"
)

func TestValidateRequiredFields(t *testing.T) {
	tid := uuid.New()
	gid := uuid.New()
	nid := uuid.New()

	cases := []struct {
		name  string
		err   error
		valid bool
	}{
		{"tenant ok", graph.Tenant{GUID: tid, Name: "acme"}.Validate(), true},
		{"tenant missing name", graph.Tenant{GUID: tid}.Validate(), false},
		{"user ok", graph.User{GUID: nid, TenantGUID: tid, Email: "a@b.c"}.Validate(), true},
		{"user missing email", graph.User{GUID: nid, TenantGUID: tid}.Validate(), false},
		{"graph missing tenant", graph.Graph{GUID: gid, Name: "g"}.Validate(), false},
		{"node ok", graph.Node{GUID: nid, TenantGUID: tid, GraphGUID: gid}.Validate(), true},
		{"node missing graph", graph.Node{GUID: nid, TenantGUID: tid}.Validate(), false},
		{"edge missing from", graph.Edge{GUID: nid, TenantGUID: tid, GraphGUID: gid, To: nid}.Validate(), false},
		{"tag missing key", graph.Tag{GUID: nid, TenantGUID: tid}.Validate(), false},
		{"label missing label", graph.Label{GUID: nid, TenantGUID: tid}.Validate(), false},
		{"vector missing vectors", graph.VectorMetadata{GUID: nid, TenantGUID: tid, Model: "m"}.Validate(), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.valid {
				assert.NoError(t, tc.err)
			} else {
				assert.True(t, quiverr.IsInvalidInput(tc.err))
			}
		})
	}
}

func TestEdgeRejectsNegativeCost(t *testing.T) {
	e := graph.Edge{
		GUID: uuid.New(), TenantGUID: uuid.New(), GraphGUID: uuid.New(),
		From: uuid.New(), To: uuid.New(), Cost: -1,
	}
	assert.True(t, quiverr.IsInvalidInput(e.Validate()))
}

func TestEnumerationOrderValid(t *testing.T) {
	assert.True(t, graph.NameAscending.Valid())
	assert.True(t, graph.CostDescending.Valid())
	assert.False(t, graph.EnumerationOrder("Sideways").Valid())
	assert.False(t, graph.EnumerationOrder("").Valid())
}

func TestExistenceRequestEmpty(t *testing.T) {
	var nilReq *graph.ExistenceRequest
	assert.True(t, nilReq.Empty())
	assert.True(t, (&graph.ExistenceRequest{}).Empty())
	assert.False(t, (&graph.ExistenceRequest{Nodes: []uuid.UUID{uuid.New()}}).Empty())
	assert.False(t, (&graph.ExistenceRequest{EdgesBetween: []graph.EdgeBetween{{}}}).Empty())
}
