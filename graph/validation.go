// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quiver Contributors

package graph

import (
	"github.com/google/uuid"

	quiverr "github.com/quiver-db/quiver/pkg/errors"
)

// Validate checks that the Tenant has all required fields set.
func (t Tenant) Validate() error {
	if t.GUID == uuid.Nil {
		return quiverr.New(quiverr.CodeStoreInvalidInput, "tenant: GUID is required")
	}
	if t.Name == "" {
		return quiverr.New(quiverr.CodeStoreInvalidInput, "tenant: Name is required")
	}
	return nil
}

// Validate checks that the User has all required fields set.
func (u User) Validate() error {
	if u.GUID == uuid.Nil {
		return quiverr.New(quiverr.CodeStoreInvalidInput, "user: GUID is required")
	}
	if u.TenantGUID == uuid.Nil {
		return quiverr.New(quiverr.CodeStoreInvalidInput, "user: TenantGUID is required")
	}
	if u.Email == "" {
		return quiverr.New(quiverr.CodeStoreInvalidInput, "user: Email is required")
	}
	return nil
}

// Validate checks that the Credential has all required fields set.
func (c Credential) Validate() error {
	if c.GUID == uuid.Nil {
		return quiverr.New(quiverr.CodeStoreInvalidInput, "credential: GUID is required")
	}
	if c.TenantGUID == uuid.Nil {
		return quiverr.New(quiverr.CodeStoreInvalidInput, "credential: TenantGUID is required")
	}
	if c.UserGUID == uuid.Nil {
		return quiverr.New(quiverr.CodeStoreInvalidInput, "credential: UserGUID is required")
	}
	if c.BearerToken == "" {
		return quiverr.New(quiverr.CodeStoreInvalidInput, "credential: BearerToken is required")
	}
	return nil
}

// Validate checks that the Graph has all required fields set.
func (g Graph) Validate() error {
	if g.GUID == uuid.Nil {
		return quiverr.New(quiverr.CodeStoreInvalidInput, "graph: GUID is required")
	}
	if g.TenantGUID == uuid.Nil {
		return quiverr.New(quiverr.CodeStoreInvalidInput, "graph: TenantGUID is required")
	}
	if g.Name == "" {
		return quiverr.New(quiverr.CodeStoreInvalidInput, "graph: Name is required")
	}
	return nil
}

// Validate checks that the Node has all required fields set.
func (n Node) Validate() error {
	if n.GUID == uuid.Nil {
		return quiverr.New(quiverr.CodeStoreInvalidInput, "node: GUID is required")
	}
	if n.TenantGUID == uuid.Nil {
		return quiverr.New(quiverr.CodeStoreInvalidInput, "node: TenantGUID is required")
	}
	if n.GraphGUID == uuid.Nil {
		return quiverr.New(quiverr.CodeStoreInvalidInput, "node: GraphGUID is required")
	}
	return nil
}

// Validate checks Edge invariants: endpoints set and a non-negative cost.
func (e Edge) Validate() error {
	if e.GUID == uuid.Nil {
		return quiverr.New(quiverr.CodeStoreInvalidInput, "edge: GUID is required")
	}
	if e.TenantGUID == uuid.Nil {
		return quiverr.New(quiverr.CodeStoreInvalidInput, "edge: TenantGUID is required")
	}
	if e.GraphGUID == uuid.Nil {
		return quiverr.New(quiverr.CodeStoreInvalidInput, "edge: GraphGUID is required")
	}
	if e.From == uuid.Nil {
		return quiverr.New(quiverr.CodeStoreInvalidInput, "edge: From is required")
	}
	if e.To == uuid.Nil {
		return quiverr.New(quiverr.CodeStoreInvalidInput, "edge: To is required")
	}
	if e.Cost < 0 {
		return quiverr.Errorf(quiverr.CodeStoreInvalidInput, "edge: Cost must be >= 0, got %d", e.Cost)
	}
	return nil
}

// Validate checks that the Tag has all required fields set.
func (t Tag) Validate() error {
	if t.GUID == uuid.Nil {
		return quiverr.New(quiverr.CodeStoreInvalidInput, "tag: GUID is required")
	}
	if t.TenantGUID == uuid.Nil {
		return quiverr.New(quiverr.CodeStoreInvalidInput, "tag: TenantGUID is required")
	}
	if t.Key == "" {
		return quiverr.New(quiverr.CodeStoreInvalidInput, "tag: Key is required")
	}
	return nil
}

// Validate checks that the Label has all required fields set.
func (l Label) Validate() error {
	if l.GUID == uuid.Nil {
		return quiverr.New(quiverr.CodeStoreInvalidInput, "label: GUID is required")
	}
	if l.TenantGUID == uuid.Nil {
		return quiverr.New(quiverr.CodeStoreInvalidInput, "label: TenantGUID is required")
	}
	if l.Label == "" {
		return quiverr.New(quiverr.CodeStoreInvalidInput, "label: Label is required")
	}
	return nil
}

// Validate checks VectorMetadata invariants: a model name and a vector
// whose length matches the declared dimensionality.
func (v VectorMetadata) Validate() error {
	if v.GUID == uuid.Nil {
		return quiverr.New(quiverr.CodeStoreInvalidInput, "vector: GUID is required")
	}
	if v.TenantGUID == uuid.Nil {
		return quiverr.New(quiverr.CodeStoreInvalidInput, "vector: TenantGUID is required")
	}
	if v.Model == "" {
		return quiverr.New(quiverr.CodeStoreInvalidInput, "vector: Model is required")
	}
	if len(v.Vectors) == 0 {
		return quiverr.New(quiverr.CodeStoreInvalidInput, "vector: Vectors is required")
	}
	if v.Dimensionality != len(v.Vectors) {
		return quiverr.Errorf(quiverr.CodeStoreInvalidInput,
			"vector: Dimensionality (%d) does not match vector length (%d)", v.Dimensionality, len(v.Vectors))
	}
	return nil
}
